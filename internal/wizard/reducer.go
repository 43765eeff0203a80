package wizard

import (
	"time"

	"camconnect/internal/models"
)

// Event is an input to the state machine.
type Event interface {
	event()
}

// SampleEvent delivers the outcome of one probe cycle.
type SampleEvent struct {
	Sample models.Sample
}

// ToggleEvent flips one checklist step.
type ToggleEvent struct {
	Step string
}

// PlatformEvent switches the platform used by the stall hint.
type PlatformEvent struct {
	Platform string
}

// TimerEvent reports that the timer scheduled under Purpose with generation Gen fired.
type TimerEvent struct {
	Purpose Purpose
	Gen     uint64
}

// ResetEvent returns the machine to its initial state.
type ResetEvent struct{}

func (SampleEvent) event()   {}
func (ToggleEvent) event()   {}
func (PlatformEvent) event() {}
func (TimerEvent) event()    {}
func (ResetEvent) event()    {}

// Effect is a side effect requested by Reduce.
type Effect interface {
	effect()
}

// Schedule asks for a TimerEvent{Purpose, Gen} after Delay.
type Schedule struct {
	Purpose Purpose
	Gen     uint64
	Delay   time.Duration
}

// Cancel asks for the live timer under Purpose to be stopped.
type Cancel struct {
	Purpose Purpose
}

func (Schedule) effect() {}
func (Cancel) effect()   {}

type phase int

const (
	phaseIdle phase = iota
	phaseHintPending
	phaseHintShown
	phaseConnecting
	phaseConfirmPending
	phaseErrorPending
	phaseErrorShown
	phaseConnected
)

// State is the full state machine value. Reduce never mutates its input.
type State struct {
	Status    Status
	Message   string
	Checklist map[string]bool
	Platform  string
	Latest    models.Sample
	HasSample bool
	Failures  int

	phase     phase
	hintSpent bool
	timers    map[Purpose]uint64
	gen       uint64
}

// NewState builds the initial waiting state for the given step ids.
func NewState(p Policy, steps []string, platform string) State {
	p = p.normalized()
	checklist := make(map[string]bool, len(steps))
	for _, id := range steps {
		checklist[id] = false
	}
	return State{
		Status:    StatusWaiting,
		Message:   p.Messages.Waiting,
		Checklist: checklist,
		Platform:  platform,
		timers:    map[Purpose]uint64{},
	}
}

// Complete reports whether every checklist step is acknowledged.
func (s State) Complete() bool {
	if len(s.Checklist) == 0 {
		return false
	}
	for _, done := range s.Checklist {
		if !done {
			return false
		}
	}
	return true
}

// Pending returns the generation of the live timer for purpose, if any.
func (s State) Pending(purpose Purpose) (uint64, bool) {
	gen, ok := s.timers[purpose]
	return gen, ok
}

// Reduce applies ev to s and returns the next state with the timer effects to run.
func Reduce(p Policy, s State, ev Event) (State, []Effect) {
	p = p.normalized()
	s.timers = cloneTimers(s.timers)
	var fx []Effect

	switch e := ev.(type) {
	case SampleEvent:
		s.Latest = e.Sample
		s.HasSample = true
		if e.Sample.Internet {
			s.Failures = 0
		} else {
			s.Failures++
		}
		if s.phase == phaseErrorShown || s.terminal(p) {
			return s, nil
		}
		s = s.enter(p, s.decide(p), &fx)

	case ToggleEvent:
		if s.terminal(p) {
			return s, nil
		}
		done, ok := s.Checklist[e.Step]
		if !ok {
			return s, nil
		}
		s.Checklist = cloneChecklist(s.Checklist)
		s.Checklist[e.Step] = !done
		s.hintSpent = false
		if s.phase == phaseErrorShown || s.phase == phaseConnected {
			s = s.cancelAll(&fx)
			s.phase = phaseIdle
			s = s.show(StatusWaiting, p.Messages.Waiting)
		}
		s = s.enter(p, s.decide(p), &fx)

	case PlatformEvent:
		if e.Platform == s.Platform {
			return s, nil
		}
		s.Platform = e.Platform
		if s.terminal(p) || s.phase == phaseErrorShown {
			return s, nil
		}
		s.hintSpent = false
		s = s.enter(p, s.decide(p), &fx)

	case TimerEvent:
		gen, ok := s.timers[e.Purpose]
		if !ok || gen != e.Gen {
			return s, nil
		}
		delete(s.timers, e.Purpose)
		s = s.fire(p, e.Purpose, &fx)

	case ResetEvent:
		s = s.cancelAll(&fx)
		next := NewState(p, checklistIDs(s.Checklist), s.Platform)
		next.gen = s.gen
		s = next
	}
	return s, fx
}

func (s State) terminal(p Policy) bool {
	return s.phase == phaseConnected && p.StickyConnected
}

// decide picks the phase the current inputs call for.
func (s State) decide(p Policy) phase {
	if !s.Complete() {
		if s.hintApplies(p) {
			if s.phase == phaseHintShown {
				return phaseHintShown
			}
			if !s.hintSpent {
				return phaseHintPending
			}
		}
		return phaseIdle
	}
	if !s.HasSample {
		return phaseIdle
	}
	if s.Latest.Internet {
		return phaseErrorPending
	}
	if s.phase == phaseConnected {
		return phaseConnected
	}
	if s.Failures >= p.FailureThreshold && (!p.RequireDevice || (s.Latest.DeviceChecked && s.Latest.Device)) {
		return phaseConfirmPending
	}
	return phaseConnecting
}

// enter moves to target. Re-entering the current phase keeps its live timer;
// any other move cancels every timer scheduled under the previous phase first.
func (s State) enter(p Policy, target phase, fx *[]Effect) State {
	if target == s.phase {
		return s
	}
	s = s.cancelAll(fx)
	s.phase = target

	switch target {
	case phaseIdle:
		s = s.show(StatusWaiting, p.Messages.Waiting)
	case phaseHintPending:
		s = s.show(StatusWaiting, p.Messages.Waiting)
		s = s.schedule(PurposeHint, p.HintDelay, fx)
	case phaseConnecting:
		s = s.show(StatusConnecting, p.Messages.Connecting)
	case phaseConfirmPending:
		s = s.show(StatusConnecting, p.Messages.Connecting)
		if p.SettleDelay <= 0 {
			return s.promote(p, fx)
		}
		s = s.schedule(PurposeConfirm, p.SettleDelay, fx)
	case phaseErrorPending:
		s = s.show(StatusWaiting, p.Messages.Waiting)
		if p.ErrorDelay <= 0 {
			return s.showError(p, fx)
		}
		s = s.schedule(PurposeError, p.ErrorDelay, fx)
	}
	return s
}

func (s State) fire(p Policy, purpose Purpose, fx *[]Effect) State {
	switch purpose {
	case PurposeConfirm:
		if s.phase == phaseConfirmPending {
			return s.promote(p, fx)
		}
	case PurposeError:
		if s.phase == phaseErrorPending {
			return s.showError(p, fx)
		}
	case PurposeHint:
		if s.phase == phaseHintPending {
			s.phase = phaseHintShown
			s = s.show(StatusHint, p.Messages.Hint)
			return s.schedule(PurposeRevert, p.HintRevertDelay, fx)
		}
	case PurposeRevert:
		switch s.phase {
		case phaseErrorShown:
			s.Checklist = cloneChecklist(s.Checklist)
			for id := range s.Checklist {
				s.Checklist[id] = false
			}
			s.hintSpent = false
			s.phase = phaseIdle
			s = s.show(StatusWaiting, p.Messages.Waiting)
			return s.enter(p, s.decide(p), fx)
		case phaseHintShown:
			s.hintSpent = true
			s.phase = phaseIdle
			s = s.show(StatusWaiting, p.Messages.Waiting)
			return s.enter(p, s.decide(p), fx)
		}
	}
	return s
}

func (s State) promote(p Policy, fx *[]Effect) State {
	s = s.cancelAll(fx)
	s.phase = phaseConnected
	return s.show(StatusConnected, p.Messages.Connected)
}

func (s State) showError(p Policy, fx *[]Effect) State {
	s = s.cancelAll(fx)
	s.phase = phaseErrorShown
	s = s.show(StatusError, p.Messages.Error)
	return s.schedule(PurposeRevert, p.RevertDelay, fx)
}

func (s State) show(status Status, message string) State {
	s.Status = status
	s.Message = message
	return s
}

func (s State) schedule(purpose Purpose, delay time.Duration, fx *[]Effect) State {
	s.gen++
	s.timers[purpose] = s.gen
	*fx = append(*fx, Schedule{Purpose: purpose, Gen: s.gen, Delay: delay})
	return s
}

func (s State) cancelAll(fx *[]Effect) State {
	for _, purpose := range purposes {
		if _, ok := s.timers[purpose]; ok {
			delete(s.timers, purpose)
			*fx = append(*fx, Cancel{Purpose: purpose})
		}
	}
	return s
}

func (s State) hintApplies(p Policy) bool {
	rule := p.Hint
	if rule == nil {
		return false
	}
	if len(rule.Platforms) > 0 && !contains(rule.Platforms, s.Platform) {
		return false
	}
	acknowledged := 0
	for _, done := range s.Checklist {
		if done {
			acknowledged++
		}
	}
	if acknowledged == 0 || acknowledged == len(s.Checklist) {
		return false
	}
	for _, id := range rule.Done {
		if !s.Checklist[id] {
			return false
		}
	}
	for _, id := range rule.Pending {
		if s.Checklist[id] {
			return false
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func cloneTimers(in map[Purpose]uint64) map[Purpose]uint64 {
	out := make(map[Purpose]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneChecklist(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func checklistIDs(checklist map[string]bool) []string {
	ids := make([]string, 0, len(checklist))
	for id := range checklist {
		ids = append(ids, id)
	}
	return ids
}
