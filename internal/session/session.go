// Package session drives one live typing test from prompt fetch to submission.
//
// The machine owns no scheduler. Callers pass the current time to every time-dependent entry point
// and deliver a Tick every TickInterval while TimerActive reports true.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/typetrack/internal/metrics"
	"github.com/verte-zerg/typetrack/internal/model"
)

const (
	DefaultTimeout = 300 * time.Second
	DefaultGrace   = time.Second
	TickInterval   = time.Second
)

var (
	ErrNotRunning       = errors.New("no test is running")
	ErrNothingToRetry   = errors.New("no failed submission to retry")
	ErrAlreadySubmitted = errors.New("session already submitted")
	// ErrStale is returned when a newer Start or Reset superseded the call.
	ErrStale = errors.New("session superseded")
)

// PromptProvider supplies prompt text for a new test.
type PromptProvider interface {
	FetchPrompt(ctx context.Context, difficulty model.Difficulty, category string) (model.Prompt, error)
}

// SubmissionSink persists a finished test.
type SubmissionSink interface {
	Submit(ctx context.Context, sub model.Submission) (model.SessionRecord, error)
}

type State int

const (
	Idle State = iota
	Armed
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type EventKind int

const (
	EventArmed EventKind = iota
	EventRunning
	EventMetrics
	EventFinished
	EventSubmitted
	EventSubmitFailed
	EventIdle
	EventError
)

var eventKindNames = [...]string{"armed", "running", "metrics", "finished", "submitted", "submit-failed", "idle", "error"}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return fmt.Sprintf("event(%d)", int(k))
	}
	return eventKindNames[k]
}

// Event reports a transition or a metrics recompute.
type Event struct {
	Kind       EventKind
	State      State
	Snapshot   metrics.Snapshot
	Generation uint64
	Record     *model.SessionRecord
	Err        error
}

// Options configures a Machine. Zero durations take the defaults.
type Options struct {
	Difficulty model.Difficulty
	Category   string
	Timeout    time.Duration
	Grace      time.Duration
}

// Machine is the Idle, Armed, Running, Finished state machine of a typing test.
// It is safe for concurrent use; collaborators are called without holding the lock.
type Machine struct {
	prompts PromptProvider
	sink    SubmissionSink
	opts    Options

	mu          sync.Mutex
	state       State
	live        *model.LiveSession
	snapshot    metrics.Snapshot
	generation  uint64
	autoSubmit  *time.Time
	payload     *model.Submission
	record      *model.SessionRecord
	submitErr   error
	submitting  bool
	subscribers []func(Event)
}

func New(prompts PromptProvider, sink SubmissionSink, opts Options) *Machine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	opts.Difficulty = model.ParseDifficulty(string(opts.Difficulty))
	return &Machine{prompts: prompts, sink: sink, opts: opts, snapshot: metrics.Initial()}
}

// Subscribe registers fn for every future event. Events are delivered on the calling goroutine
// after the machine lock is released.
func (m *Machine) Subscribe(fn func(Event)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

// SetDifficulty changes the difficulty used by the next Start.
func (m *Machine) SetDifficulty(d model.Difficulty) {
	m.mu.Lock()
	m.opts.Difficulty = model.ParseDifficulty(string(d))
	m.mu.Unlock()
}

func (m *Machine) Difficulty() model.Difficulty {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts.Difficulty
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// TimerActive reports whether the caller should keep delivering ticks.
func (m *Machine) TimerActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Running
}

func (m *Machine) Snapshot() metrics.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Live returns a copy of the live session, or false when no prompt is loaded.
func (m *Machine) Live() (model.LiveSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == nil {
		return model.LiveSession{}, false
	}
	return *m.live, true
}

// Result returns the stored record after a successful submission, and the last submission error.
func (m *Machine) Result() (*model.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record, m.submitErr
}

// Start fetches a prompt and arms a new test, discarding whatever came before.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	m.clearLocked()
	m.state = Idle
	m.generation++
	gen := m.generation
	difficulty, category := m.opts.Difficulty, m.opts.Category
	m.mu.Unlock()

	prompt, err := m.prompts.FetchPrompt(ctx, difficulty, category)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch prompt: %w", err)
		m.state = Idle
		events := []Event{m.eventLocked(EventError, err), m.eventLocked(EventIdle, nil)}
		m.mu.Unlock()
		m.emit(events)
		return err
	}
	if prompt.Difficulty == "" {
		prompt.Difficulty = difficulty
	}
	m.live = &model.LiveSession{
		Prompt:     prompt,
		Difficulty: model.ParseDifficulty(string(prompt.Difficulty)),
		Category:   prompt.Category,
	}
	m.state = Armed
	m.snapshot = metrics.Initial()
	ev := m.eventLocked(EventArmed, nil)
	m.mu.Unlock()
	m.emit([]Event{ev})
	return nil
}

// Input records the full current text of the input field.
func (m *Machine) Input(text string, now time.Time) {
	m.mu.Lock()
	var events []Event
	switch m.state {
	case Armed:
		if text == "" {
			m.mu.Unlock()
			return
		}
		started := now
		m.live.StartedAt = &started
		m.state = Running
		events = append(events, m.eventLocked(EventRunning, nil))
	case Running:
	default:
		m.mu.Unlock()
		return
	}
	m.live.Input = text
	m.snapshot = metrics.Compute(m.live.Prompt.Text, text, now.Sub(*m.live.StartedAt))

	if len([]rune(text)) >= len([]rune(m.live.Prompt.Text)) {
		if m.autoSubmit == nil {
			due := now.Add(m.opts.Grace)
			m.autoSubmit = &due
		}
	} else {
		m.autoSubmit = nil
	}
	events = append(events, m.eventLocked(EventMetrics, nil))
	m.mu.Unlock()
	m.emit(events)
}

// Tick refreshes elapsed time and fires a due auto-submit or the timeout.
func (m *Machine) Tick(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return nil
	}
	elapsed := now.Sub(*m.live.StartedAt)
	due := m.autoSubmit != nil && !now.Before(*m.autoSubmit)
	if due || elapsed >= m.opts.Timeout {
		return m.finishLocked(ctx, now)
	}
	m.snapshot = metrics.Compute(m.live.Prompt.Text, m.live.Input, elapsed)
	ev := m.eventLocked(EventMetrics, nil)
	m.mu.Unlock()
	m.emit([]Event{ev})
	return nil
}

// Submit ends a running test immediately.
func (m *Machine) Submit(ctx context.Context, now time.Time) error {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	return m.finishLocked(ctx, now)
}

// Retry resends the payload of a finished test whose submission failed.
func (m *Machine) Retry(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.state != Finished || m.payload == nil || m.submitting:
		m.mu.Unlock()
		return ErrNothingToRetry
	case m.record != nil:
		m.mu.Unlock()
		return ErrAlreadySubmitted
	}
	m.submitting = true
	gen, sub := m.generation, *m.payload
	m.mu.Unlock()
	return m.deliver(ctx, gen, sub)
}

// Reset discards the live session and returns to Idle.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.clearLocked()
	m.generation++
	m.state = Idle
	ev := m.eventLocked(EventIdle, nil)
	m.mu.Unlock()
	m.emit([]Event{ev})
}

// finishLocked must be called with the lock held; it releases it.
func (m *Machine) finishLocked(ctx context.Context, now time.Time) error {
	elapsed := now.Sub(*m.live.StartedAt)
	m.autoSubmit = nil
	m.state = Finished
	m.snapshot = metrics.Compute(m.live.Prompt.Text, m.live.Input, elapsed).Final()
	sub := model.Submission{
		WPM:              m.snapshot.WPM,
		Accuracy:         m.snapshot.Accuracy,
		Difficulty:       m.live.Difficulty,
		Errors:           m.snapshot.Errors,
		CharactersTyped:  len([]rune(m.live.Input)),
		TimeTakenSeconds: metrics.Round2(elapsed.Seconds()),
	}
	m.payload = &sub
	m.submitting = true
	gen := m.generation
	ev := m.eventLocked(EventFinished, nil)
	m.mu.Unlock()
	m.emit([]Event{ev})
	return m.deliver(ctx, gen, sub)
}

func (m *Machine) deliver(ctx context.Context, gen uint64, sub model.Submission) error {
	rec, err := m.sink.Submit(ctx, sub)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrStale
	}
	m.submitting = false
	var ev Event
	if err != nil {
		err = fmt.Errorf("failed to submit session: %w", err)
		m.submitErr = err
		ev = m.eventLocked(EventSubmitFailed, err)
	} else {
		m.record = &rec
		m.submitErr = nil
		ev = m.eventLocked(EventSubmitted, nil)
		ev.Record = &rec
	}
	m.mu.Unlock()
	m.emit([]Event{ev})
	return err
}

func (m *Machine) clearLocked() {
	m.live = nil
	m.autoSubmit = nil
	m.payload = nil
	m.record = nil
	m.submitErr = nil
	m.submitting = false
	m.snapshot = metrics.Initial()
}

func (m *Machine) eventLocked(kind EventKind, err error) Event {
	return Event{
		Kind:       kind,
		State:      m.state,
		Snapshot:   m.snapshot,
		Generation: m.generation,
		Err:        err,
	}
}

func (m *Machine) emit(events []Event) {
	m.mu.Lock()
	subs := append([]func(Event){}, m.subscribers...)
	m.mu.Unlock()
	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
