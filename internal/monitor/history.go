package monitor

import (
	"sort"
	"sync"
	"time"

	"camconnect/internal/models"
)

// History keeps a bounded, in-memory window of probe samples.
type History struct {
	mu         sync.RWMutex
	maxHistory int
	latest     *models.Sample
	samples    []models.Sample
}

// NewHistory sizes the window to roughly cover span at the given probe interval.
func NewHistory(interval, span time.Duration) *History {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	capacity := 256
	if span > 0 {
		slots := int(span/interval) + 16
		if slots > capacity {
			capacity = slots
		}
		const maxCap = 10000
		if capacity > maxCap {
			capacity = maxCap
		}
	}
	return &History{maxHistory: capacity}
}

// Record appends a sample, evicting the oldest once the window is full.
func (h *History) Record(sample models.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = &sample
	h.samples = append(h.samples, sample)
	if len(h.samples) > h.maxHistory {
		h.samples = append([]models.Sample(nil), h.samples[len(h.samples)-h.maxHistory:]...)
	}
}

// Latest returns the most recent sample.
func (h *History) Latest() (models.Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.latest == nil {
		return models.Sample{}, false
	}
	return *h.latest, true
}

// All returns a copy of the retained samples, oldest first.
func (h *History) All() []models.Sample {
	return h.Since(time.Time{})
}

// Since returns samples whose timestamp is >= cutoff.
func (h *History) Since(cutoff time.Time) []models.Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.samples) == 0 {
		return nil
	}
	idx := 0
	if !cutoff.IsZero() {
		idx = sort.Search(len(h.samples), func(i int) bool {
			return !h.samples[i].CheckedAt.Before(cutoff)
		})
	}
	if idx >= len(h.samples) {
		return nil
	}
	out := make([]models.Sample, len(h.samples)-idx)
	copy(out, h.samples[idx:])
	return out
}

// Reset drops every retained sample.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = nil
	h.samples = nil
}
