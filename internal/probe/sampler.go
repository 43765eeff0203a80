package probe

import (
	"context"
	"time"

	"camconnect/internal/clock"
	"camconnect/internal/models"
)

// Sampler runs one probe cycle: the internet echo probe, then the optional
// camera probe. Each probe carries its own hard timeout.
type Sampler struct {
	Internet Prober
	Device   Prober
	Timeout  time.Duration
	Clock    clock.Clock
}

// Sample runs the configured probes sequentially and returns their outcome.
func (s *Sampler) Sample(ctx context.Context) models.Sample {
	clk := s.Clock
	if clk == nil {
		clk = clock.Real()
	}

	var sample models.Sample
	started := clk.Now()
	sample.Internet = Probe(ctx, s.Internet, s.Timeout)
	sample.InternetMs = clk.Now().Sub(started).Milliseconds()

	if s.Device != nil {
		started = clk.Now()
		sample.DeviceChecked = true
		sample.Device = Probe(ctx, s.Device, s.Timeout)
		sample.DeviceMs = clk.Now().Sub(started).Milliseconds()
	}

	sample.CheckedAt = clk.Now().UTC()
	return sample
}
