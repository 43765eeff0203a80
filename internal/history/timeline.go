package history

import (
	"sort"
	"time"

	"camconnect/internal/models"
)

const (
	// DefaultTimelinePoints controls how many buckets a timeline has.
	DefaultTimelinePoints = 40
	maxDetailsPerPoint    = 4

	StateOnline  = "online"
	StateOffline = "offline"
	StateMixed   = "mixed"
	StateMissing = "missing"
)

// Signal selects which reachability signal a timeline follows.
type Signal string

const (
	SignalInternet Signal = "internet"
	SignalDevice   Signal = "device"
)

// BuildProbeTimeline reduces samples into fixed-width buckets between start and end.
// A bucket without samples inherits the previous state while it is within the
// usual probe gap, so a suspended or slow cycle does not paint holes.
func BuildProbeTimeline(samples []models.Sample, signal Signal, start, end time.Time, points int) []models.TimelinePoint {
	if points <= 0 {
		points = DefaultTimelinePoints
	}
	if !end.After(start) {
		end = start.Add(time.Minute)
	}

	relevant := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		if s.CheckedAt.IsZero() {
			continue
		}
		if signal == SignalDevice && !s.DeviceChecked {
			continue
		}
		relevant = append(relevant, s)
	}
	sort.Slice(relevant, func(i, j int) bool {
		return relevant[i].CheckedAt.Before(relevant[j].CheckedAt)
	})

	bucketDuration := end.Sub(start) / time.Duration(points)
	if bucketDuration <= 0 {
		bucketDuration = time.Second
	}
	gap := deriveGap(relevant)

	result := make([]models.TimelinePoint, 0, points)
	idx := 0
	var last models.Sample
	haveLast := false
	for idx < len(relevant) && relevant[idx].CheckedAt.Before(start) {
		last = relevant[idx]
		haveLast = true
		idx++
	}

	for i := 0; i < points; i++ {
		bucketStart := start.Add(time.Duration(i) * bucketDuration)
		bucketEnd := bucketStart.Add(bucketDuration)
		if i == points-1 {
			bucketEnd = end
		}
		point := models.TimelinePoint{
			State: StateMissing,
			Label: "No data",
			Start: bucketStart,
			End:   bucketEnd,
		}

		var bucket []models.Sample
		for idx < len(relevant) && relevant[idx].CheckedAt.Before(bucketEnd) {
			bucket = append(bucket, relevant[idx])
			last = relevant[idx]
			haveLast = true
			idx++
		}

		switch {
		case len(bucket) > 0:
			point.State, point.Label = classify(bucket, signal)
			for _, s := range bucket {
				if len(point.Details) >= maxDetailsPerPoint {
					break
				}
				point.Details = append(point.Details, detail(s, signal))
			}
		case haveLast && bucketStart.Sub(last.CheckedAt) <= gap:
			point.State, point.Label = classify([]models.Sample{last}, signal)
		}
		result = append(result, point)
	}
	return result
}

func classify(bucket []models.Sample, signal Signal) (state, label string) {
	up, down := 0, 0
	for _, s := range bucket {
		if reachable(s, signal) {
			up++
		} else {
			down++
		}
	}
	switch {
	case down == 0:
		return StateOnline, "Reachable"
	case up == 0:
		return StateOffline, "Unreachable"
	default:
		return StateMixed, "Flapping"
	}
}

func detail(s models.Sample, signal Signal) models.TimelineDetail {
	d := models.TimelineDetail{Timestamp: s.CheckedAt, State: StateOffline, LatencyMs: s.InternetMs}
	if signal == SignalDevice {
		d.LatencyMs = s.DeviceMs
	}
	if reachable(s, signal) {
		d.State = StateOnline
	}
	return d
}

func reachable(s models.Sample, signal Signal) bool {
	if signal == SignalDevice {
		return s.Device
	}
	return s.Internet
}

// deriveGap is twice the median spacing between samples, clamped to [3s, 1m].
func deriveGap(samples []models.Sample) time.Duration {
	const defaultGap = 5 * time.Second
	if len(samples) < 2 {
		return defaultGap
	}
	diffs := make([]time.Duration, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		if d := samples[i].CheckedAt.Sub(samples[i-1].CheckedAt); d > 0 {
			diffs = append(diffs, d)
		}
	}
	if len(diffs) == 0 {
		return defaultGap
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i] < diffs[j] })
	gap := diffs[len(diffs)/2] * 2
	if gap < 3*time.Second {
		return 3 * time.Second
	}
	if gap > time.Minute {
		return time.Minute
	}
	return gap
}
