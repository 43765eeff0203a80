package wizard

import (
	"context"
	"errors"
	"log"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"camconnect/internal/clock"
	"camconnect/internal/models"
	"camconnect/internal/monitor"
)

// ErrStopped is returned when starting a controller that was already torn down.
var ErrStopped = errors.New("wizard controller stopped")

const eventBuffer = 64

// Sampler produces one probe sample per call.
type Sampler interface {
	Sample(ctx context.Context) models.Sample
}

// Snapshot is the read model handed to presentation layers.
type Snapshot struct {
	Session   string          `json:"session"`
	Status    Status          `json:"status"`
	Message   string          `json:"message"`
	Checklist map[string]bool `json:"checklist"`
	Platform  string          `json:"platform"`
	Failures  int             `json:"failures"`
	Latest    *models.Sample  `json:"latest,omitempty"`
	Visible   bool            `json:"visible"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Controller wires the sampler, the probe scheduler and the state machine.
// Every event is applied on a single goroutine, so transitions are strictly
// ordered and a sample is fully applied before the next one arrives.
type Controller struct {
	policy   Policy
	steps    []models.Step
	sampler  Sampler
	interval time.Duration
	clock    clock.Clock
	logger   *log.Logger
	history  *monitor.History

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	state     State
	session   string
	visible   bool
	updatedAt time.Time

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	// owned by the loop goroutine until it exits
	timers map[Purpose]clock.Timer

	sched *monitor.Scheduler[models.Sample] // guarded by mu

	lifeMu   sync.Mutex
	started  bool
	stopped  bool
	loopDone chan struct{}
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock replaces the real clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithLogger sets the logger for transition and diagnostic output.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithInterval sets the delay between probe cycles.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithHistory records every applied sample into h.
func WithHistory(h *monitor.History) Option {
	return func(c *Controller) { c.history = h }
}

// WithPlatform sets the initial platform.
func WithPlatform(platform string) Option {
	return func(c *Controller) { c.state.Platform = platform }
}

// New builds a controller in the waiting state. Probing begins with Start.
func New(policy Policy, steps []models.Step, sampler Sampler, opts ...Option) *Controller {
	ids := make([]string, 0, len(steps))
	for _, step := range steps {
		ids = append(ids, step.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		policy:   policy.normalized(),
		steps:    append([]models.Step(nil), steps...),
		sampler:  sampler,
		interval: 1500 * time.Millisecond,
		clock:    clock.Real(),
		logger:   log.Default(),
		events:   make(chan Event, eventBuffer),
		ctx:      ctx,
		cancel:   cancel,
		state:    NewState(policy, ids, ""),
		session:  uuid.NewString(),
		visible:  true,
		subs:     make(map[int]func(Snapshot)),
		timers:   make(map[Purpose]clock.Timer),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.updatedAt = c.clock.Now().UTC()
	return c
}

// Start launches the event loop and the probe scheduler.
func (c *Controller) Start() error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return nil
	}
	c.started = true
	go c.loop()

	if c.sampler != nil {
		sched := monitor.Start(c.ctx, c.clock, c.interval, c.sampler.Sample, func(sample models.Sample) {
			c.post(SampleEvent{Sample: sample})
		})
		c.mu.Lock()
		c.sched = sched
		sched.SetVisible(c.visible)
		c.mu.Unlock()
	}
	c.logger.Printf("wizard: session %s started (interval %s)", c.Session(), c.interval)
	return nil
}

// Stop tears the controller down: the scheduler stops, every pending timer is
// cancelled and no subscriber is called after Stop returns.
func (c *Controller) Stop() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true
	c.cancel()
	c.mu.RLock()
	sched := c.sched
	c.mu.RUnlock()
	if sched != nil {
		sched.Stop()
	}
	if c.started {
		<-c.loopDone
	}
	for purpose, timer := range c.timers {
		timer.Stop()
		delete(c.timers, purpose)
	}

	c.subMu.Lock()
	c.subs = make(map[int]func(Snapshot))
	c.subMu.Unlock()
}

// CurrentStatus returns the active status.
func (c *Controller) CurrentStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Status
}

// Snapshot returns a copy of the state suitable for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Steps returns the configured checklist steps in display order.
func (c *Controller) Steps() []models.Step {
	return append([]models.Step(nil), c.steps...)
}

// Session returns the id of the current wizard session.
func (c *Controller) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// History returns the sample history, if one was configured.
func (c *Controller) History() *monitor.History {
	return c.history
}

// ToggleStep flips the named checklist step. Unknown ids are ignored.
func (c *Controller) ToggleStep(id string) {
	if !c.knownStep(id) {
		c.logger.Printf("wizard: ignoring toggle of unknown step %q", id)
		return
	}
	c.post(ToggleEvent{Step: id})
}

// SetPlatform switches the platform used by the stall hint.
func (c *Controller) SetPlatform(platform string) {
	c.post(PlatformEvent{Platform: platform})
}

// Reset starts a new session: checklist cleared, timers cancelled, status waiting.
func (c *Controller) Reset() {
	c.post(ResetEvent{})
}

// SetVisible suspends probing while the hosting view is hidden. The loop stays
// alive, so probing resumes on the next tick once visible again.
func (c *Controller) SetVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = visible
	if c.sched != nil {
		c.sched.SetVisible(visible)
	}
}

// Visible reports whether probing is active.
func (c *Controller) Visible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visible
}

// Subscribe registers fn for every change a presentation layer renders,
// including checklist and platform edits. Callbacks run on the event loop in
// order and must not block. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) knownStep(id string) bool {
	for _, step := range c.steps {
		if step.ID == id {
			return true
		}
	}
	return false
}

// flushEvent is a barrier: done closes once every earlier event is applied.
type flushEvent struct {
	done chan struct{}
}

func (flushEvent) event() {}

// Flush waits until every event posted before the call has been applied, so a
// following Snapshot reflects them. It returns early if ctx ends or the
// controller stops.
func (c *Controller) Flush(ctx context.Context) error {
	c.lifeMu.Lock()
	running := c.started && !c.stopped
	c.lifeMu.Unlock()
	if !running {
		return nil
	}

	done := make(chan struct{})
	c.post(flushEvent{done: done})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrStopped
	}
}

func (c *Controller) post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *Controller) loop() {
	defer close(c.loopDone)

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			if c.ctx.Err() != nil {
				return
			}
			if f, ok := ev.(flushEvent); ok {
				close(f.done)
				continue
			}
			c.apply(ev)
		}
	}
}

func (c *Controller) apply(ev Event) {
	_, reset := ev.(ResetEvent)
	sample, isSample := ev.(SampleEvent)
	if isSample && c.history != nil {
		c.history.Record(sample.Sample)
	}

	c.mu.Lock()
	prev := c.state
	next, effects := Reduce(c.policy, prev, ev)
	c.state = next
	if reset {
		c.session = uuid.NewString()
	}
	changed := reset || prev.Status != next.Status || prev.Message != next.Message ||
		prev.Platform != next.Platform || !maps.Equal(prev.Checklist, next.Checklist)
	if changed {
		c.updatedAt = c.clock.Now().UTC()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.runEffects(effects)

	if reset {
		if c.history != nil {
			c.history.Reset()
		}
		c.logger.Printf("wizard: reset, new session %s", snap.Session)
	}
	if !changed {
		return
	}
	if prev.Status != next.Status {
		c.logger.Printf("wizard: status %s -> %s", prev.Status, next.Status)
	}
	c.notify(snap)
}

func (c *Controller) runEffects(effects []Effect) {
	for _, fx := range effects {
		switch e := fx.(type) {
		case Cancel:
			if timer, ok := c.timers[e.Purpose]; ok {
				timer.Stop()
				delete(c.timers, e.Purpose)
			}
		case Schedule:
			if timer, ok := c.timers[e.Purpose]; ok {
				timer.Stop()
			}
			ev := TimerEvent{Purpose: e.Purpose, Gen: e.Gen}
			c.timers[e.Purpose] = c.clock.AfterFunc(e.Delay, func() { c.post(ev) })
		}
	}
}

func (c *Controller) notify(snap Snapshot) {
	c.subMu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		if c.ctx.Err() != nil {
			return
		}
		fn(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Session:   c.session,
		Status:    c.state.Status,
		Message:   c.state.Message,
		Checklist: cloneChecklist(c.state.Checklist),
		Platform:  c.state.Platform,
		Failures:  c.state.Failures,
		Visible:   c.visible,
		UpdatedAt: c.updatedAt,
	}
	if c.state.HasSample {
		latest := c.state.Latest
		snap.Latest = &latest
	}
	return snap
}
