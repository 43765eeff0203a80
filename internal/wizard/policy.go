package wizard

import "time"

// Status is the single UI-facing connection status.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
	StatusHint       Status = "hint"
)

// Purpose keys the timer table. At most one timer per purpose is live.
type Purpose string

const (
	PurposeHint    Purpose = "hint"
	PurposeRevert  Purpose = "revert"
	PurposeConfirm Purpose = "confirm"
	PurposeError   Purpose = "error"
)

var purposes = []Purpose{PurposeConfirm, PurposeError, PurposeHint, PurposeRevert}

// Messages holds the text shown alongside each status.
type Messages struct {
	Waiting    string `yaml:"waiting" json:"waiting"`
	Connecting string `yaml:"connecting" json:"connecting"`
	Connected  string `yaml:"connected" json:"connected"`
	Error      string `yaml:"error" json:"error"`
	Hint       string `yaml:"hint" json:"hint"`
}

// HintRule describes the "likely stuck" condition that triggers a stall hint.
// It holds when the checklist is partially complete, the platform matches
// (any platform when Platforms is empty), every Done step is acknowledged and
// every Pending step is not.
type HintRule struct {
	Platforms []string `yaml:"platforms" json:"platforms"`
	Done      []string `yaml:"done" json:"done"`
	Pending   []string `yaml:"pending" json:"pending"`
}

// Policy carries every tunable of the state machine.
type Policy struct {
	// SettleDelay debounces promotion to connected. Zero promotes immediately.
	SettleDelay time.Duration
	// ErrorDelay debounces the mismatch error. Zero shows it immediately.
	ErrorDelay      time.Duration
	RevertDelay     time.Duration
	HintDelay       time.Duration
	HintRevertDelay time.Duration
	// FailureThreshold is the run of consecutive unreachable internet samples
	// required before promotion is scheduled.
	FailureThreshold int
	// RequireDevice additionally demands a reachable camera before promotion.
	RequireDevice bool
	// StickyConnected keeps connected until an explicit reset.
	StickyConnected bool
	Hint            *HintRule
	Messages        Messages
}

// DefaultMessages returns the stock status texts.
func DefaultMessages() Messages {
	return Messages{
		Waiting:    "Waiting for connection...",
		Connecting: "Connecting...",
		Connected:  "Connected!",
		Error:      "Connection problem. Forget the camera network and retry the steps again.",
		Hint:       "Didn't see anything for step 2? Turn off Do Not Disturb mode and look out for notifications.",
	}
}

// DefaultPolicy returns the debounced, threshold-based promotion policy.
func DefaultPolicy() Policy {
	return Policy{
		SettleDelay:      time.Second,
		ErrorDelay:       time.Second,
		RevertDelay:      5 * time.Second,
		HintDelay:        3 * time.Second,
		HintRevertDelay:  5 * time.Second,
		FailureThreshold: 2,
		StickyConnected:  true,
		Hint: &HintRule{
			Platforms: []string{"android"},
			Done:      []string{"wifi"},
			Pending:   []string{"portal"},
		},
		Messages: DefaultMessages(),
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.SettleDelay < 0 {
		p.SettleDelay = 0
	}
	if p.ErrorDelay < 0 {
		p.ErrorDelay = 0
	}
	if p.RevertDelay <= 0 {
		p.RevertDelay = def.RevertDelay
	}
	if p.HintDelay <= 0 {
		p.HintDelay = def.HintDelay
	}
	if p.HintRevertDelay <= 0 {
		p.HintRevertDelay = def.HintRevertDelay
	}
	if p.FailureThreshold < 1 {
		p.FailureThreshold = 1
	}
	msgs := def.Messages
	if p.Messages.Waiting == "" {
		p.Messages.Waiting = msgs.Waiting
	}
	if p.Messages.Connecting == "" {
		p.Messages.Connecting = msgs.Connecting
	}
	if p.Messages.Connected == "" {
		p.Messages.Connected = msgs.Connected
	}
	if p.Messages.Error == "" {
		p.Messages.Error = msgs.Error
	}
	if p.Messages.Hint == "" {
		p.Messages.Hint = msgs.Hint
	}
	return p
}
