package metrics

import (
	"math"
	"time"

	"camconnect/internal/models"
)

// SignalUptime summarises one reachability signal over the sample history.
type SignalUptime struct {
	Signal        string  `json:"signal"`
	UptimePercent float64 `json:"uptime_percent"`
	TotalChecks   int     `json:"total_checks"`
	Reachable     int     `json:"reachable"`
	Unreachable   int     `json:"unreachable"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	LastState     string  `json:"last_state,omitempty"`
	LastUpdated   string  `json:"last_updated,omitempty"`
}

// ComputeSignalUptime aggregates reachability per signal. The device signal is
// only reported when at least one sample actually probed the camera.
func ComputeSignalUptime(samples []models.Sample) []SignalUptime {
	if len(samples) == 0 {
		return nil
	}

	var internet, device counter
	deviceSeen := false
	for _, sample := range samples {
		internet.add(sample.Internet, sample.InternetMs, sample.CheckedAt)
		if sample.DeviceChecked {
			deviceSeen = true
			device.add(sample.Device, sample.DeviceMs, sample.CheckedAt)
		}
	}

	results := []SignalUptime{internet.result("internet")}
	if deviceSeen {
		results = append(results, device.result("device"))
	}
	return results
}

type counter struct {
	reachable   int
	unreachable int
	latency     int64
	last        bool
	lastTime    time.Time
}

func (c *counter) add(ok bool, latencyMs int64, at time.Time) {
	if ok {
		c.reachable++
	} else {
		c.unreachable++
	}
	c.latency += latencyMs
	c.last = ok
	c.lastTime = at
}

func (c *counter) result(signal string) SignalUptime {
	total := c.reachable + c.unreachable
	result := SignalUptime{
		Signal:      signal,
		TotalChecks: total,
		Reachable:   c.reachable,
		Unreachable: c.unreachable,
	}
	if total > 0 {
		result.UptimePercent = round2(float64(c.reachable) / float64(total) * 100)
		result.AvgLatencyMs = round2(float64(c.latency) / float64(total))
		result.LastState = "unreachable"
		if c.last {
			result.LastState = "reachable"
		}
	}
	if !c.lastTime.IsZero() {
		result.LastUpdated = c.lastTime.UTC().Format(time.RFC3339)
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
