package models

import "time"

// Step is one user-acknowledged item of the connection checklist.
type Step struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Sample captures the outcome of one probe cycle.
// Internet and Device are separate signals: the first says whether the general
// internet echo endpoint answered, the second whether the camera itself did.
type Sample struct {
	Internet      bool      `json:"internet"`
	Device        bool      `json:"device"`
	DeviceChecked bool      `json:"device_checked"`
	InternetMs    int64     `json:"internet_ms"`
	DeviceMs      int64     `json:"device_ms,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// TimelinePoint is one bucket of the compact reachability timeline.
type TimelinePoint struct {
	State   string           `json:"state"`
	Label   string           `json:"label"`
	Start   time.Time        `json:"start"`
	End     time.Time        `json:"end"`
	Details []TimelineDetail `json:"details,omitempty"`
}

// TimelineDetail is a sample that contributed to a timeline bucket.
type TimelineDetail struct {
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state"`
	LatencyMs int64     `json:"latency_ms"`
}
