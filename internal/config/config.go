package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"camconnect/internal/models"
	"camconnect/internal/wizard"
)

// Config represents configuration data for the connection wizard.
type Config struct {
	ListenAddr  string        `yaml:"listen_addr"`
	NetworkName string        `yaml:"network_name"`
	CameraURL   string        `yaml:"camera_url"`
	Platform    string        `yaml:"platform"`
	Probe       ProbeConfig   `yaml:"probe"`
	Wizard      WizardConfig  `yaml:"wizard"`
	Steps       []models.Step `yaml:"steps"`
}

// ProbeConfig controls the reachability probes and their cadence.
type ProbeConfig struct {
	IntervalMs     int    `yaml:"interval_ms"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	EchoURL        string `yaml:"echo_url"`
	DeviceURL      string `yaml:"device_url"`
	CheckDevice    bool   `yaml:"check_device"`
	HistoryMinutes int    `yaml:"history_minutes"`
}

// WizardConfig holds the state machine timings and texts.
type WizardConfig struct {
	SettleDelayMs     int              `yaml:"settle_delay_ms"`
	ErrorDelayMs      int              `yaml:"error_delay_ms"`
	RevertDelayMs     int              `yaml:"revert_delay_ms"`
	HintDelayMs       int              `yaml:"hint_delay_ms"`
	HintRevertDelayMs int              `yaml:"hint_revert_delay_ms"`
	FailureThreshold  int              `yaml:"failure_threshold"`
	RequireDevice     bool             `yaml:"require_device"`
	StickyConnected   *bool            `yaml:"sticky_connected"`
	Hint              *wizard.HintRule `yaml:"hint"`
	Messages          wizard.Messages  `yaml:"messages"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	sticky := true
	policy := wizard.DefaultPolicy()
	return Config{
		ListenAddr:  ":8080",
		NetworkName: "floto_cam",
		CameraURL:   "http://floto.cam",
		Platform:    "ios",
		Probe: ProbeConfig{
			IntervalMs:     1500,
			TimeoutMs:      1000,
			EchoURL:        "https://cp.cloudflare.com/generate_204",
			DeviceURL:      "http://200.200.200.1/probe.jpg",
			HistoryMinutes: 10,
		},
		Wizard: WizardConfig{
			SettleDelayMs:     1000,
			ErrorDelayMs:      1000,
			RevertDelayMs:     5000,
			HintDelayMs:       3000,
			HintRevertDelayMs: 5000,
			FailureThreshold:  2,
			StickyConnected:   &sticky,
			Hint:              policy.Hint,
			Messages:          policy.Messages,
		},
		Steps: []models.Step{
			{ID: "wifi", Label: "Join the floto_cam Wi-Fi network"},
			{ID: "portal", Label: "Tap the sign-in notification and keep the network"},
		},
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.NetworkName == "" {
		c.NetworkName = def.NetworkName
	}
	if c.CameraURL == "" {
		c.CameraURL = def.CameraURL
	}
	if c.Platform == "" {
		c.Platform = def.Platform
	}
	if c.Probe.IntervalMs <= 0 {
		c.Probe.IntervalMs = def.Probe.IntervalMs
	}
	if c.Probe.TimeoutMs <= 0 {
		c.Probe.TimeoutMs = def.Probe.TimeoutMs
	}
	if c.Probe.EchoURL == "" {
		c.Probe.EchoURL = def.Probe.EchoURL
	}
	if c.Probe.DeviceURL == "" {
		c.Probe.DeviceURL = def.Probe.DeviceURL
	}
	if c.Probe.HistoryMinutes <= 0 {
		c.Probe.HistoryMinutes = def.Probe.HistoryMinutes
	}
	if c.Wizard.SettleDelayMs < 0 {
		c.Wizard.SettleDelayMs = def.Wizard.SettleDelayMs
	}
	if c.Wizard.ErrorDelayMs < 0 {
		c.Wizard.ErrorDelayMs = def.Wizard.ErrorDelayMs
	}
	if c.Wizard.RevertDelayMs <= 0 {
		c.Wizard.RevertDelayMs = def.Wizard.RevertDelayMs
	}
	if c.Wizard.HintDelayMs <= 0 {
		c.Wizard.HintDelayMs = def.Wizard.HintDelayMs
	}
	if c.Wizard.HintRevertDelayMs <= 0 {
		c.Wizard.HintRevertDelayMs = def.Wizard.HintRevertDelayMs
	}
	if c.Wizard.FailureThreshold <= 0 {
		c.Wizard.FailureThreshold = def.Wizard.FailureThreshold
	}
	if c.Wizard.StickyConnected == nil {
		c.Wizard.StickyConnected = def.Wizard.StickyConnected
	}
	if c.Wizard.RequireDevice {
		c.Probe.CheckDevice = true
	}
}

func (c Config) validate() error {
	if len(c.Steps) == 0 {
		return errors.New("configuration must define at least one step")
	}
	seen := make(map[string]bool, len(c.Steps))
	for i, step := range c.Steps {
		if step.ID == "" {
			return fmt.Errorf("step %d is missing id", i)
		}
		if seen[step.ID] {
			return fmt.Errorf("step %s is defined twice", step.ID)
		}
		seen[step.ID] = true
	}
	if hint := c.Wizard.Hint; hint != nil {
		for _, id := range append(append([]string(nil), hint.Done...), hint.Pending...) {
			if !seen[id] {
				return fmt.Errorf("hint references unknown step %s", id)
			}
		}
	}
	return nil
}

// Interval returns the delay between probe cycles.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Probe.IntervalMs) * time.Millisecond
}

// Timeout returns the hard bound of a single probe.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Probe.TimeoutMs) * time.Millisecond
}

// HistorySpan returns how much sample history is kept in memory.
func (c Config) HistorySpan() time.Duration {
	return time.Duration(c.Probe.HistoryMinutes) * time.Minute
}

// Policy converts the wizard section into a state machine policy.
func (c Config) Policy() wizard.Policy {
	w := c.Wizard
	sticky := true
	if w.StickyConnected != nil {
		sticky = *w.StickyConnected
	}
	return wizard.Policy{
		SettleDelay:      ms(w.SettleDelayMs),
		ErrorDelay:       ms(w.ErrorDelayMs),
		RevertDelay:      ms(w.RevertDelayMs),
		HintDelay:        ms(w.HintDelayMs),
		HintRevertDelay:  ms(w.HintRevertDelayMs),
		FailureThreshold: w.FailureThreshold,
		RequireDevice:    w.RequireDevice,
		StickyConnected:  sticky,
		Hint:             w.Hint,
		Messages:         w.Messages,
	}
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
