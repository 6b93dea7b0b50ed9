// Package progress simulates a training run's visible progress.
//
// The training endpoint is synchronous, so the client cannot observe
// real progress. The Timeline walks a fixed checkpoint schedule while
// the request is in flight, then jumps to the terminal state when the
// response arrives.
package progress

import (
	"sync"
	"time"
)

// Phase is one named stage of a simulated run.
type Phase struct {
	Label string

	// Until is the percent at which this phase hands over to the next.
	Until float64

	// Duration is how long the simulation lingers in this phase.
	Duration time.Duration
}

// DefaultSchedule mirrors the stages the training service actually
// moves through. The final phase stops short of 100; only a real
// response completes a run.
var DefaultSchedule = []Phase{
	{Label: "loading dataset", Until: 8, Duration: 600 * time.Millisecond},
	{Label: "analyzing target", Until: 18, Duration: 900 * time.Millisecond},
	{Label: "preprocessing features", Until: 34, Duration: 1500 * time.Millisecond},
	{Label: "splitting train/test", Until: 47, Duration: 700 * time.Millisecond},
	{Label: "fitting model", Until: 68, Duration: 3 * time.Second},
	{Label: "scoring", Until: 86, Duration: 1200 * time.Millisecond},
	{Label: "persisting model", Until: 95, Duration: time.Hour},
}

// State is a Timeline's lifecycle position.
type State int

const (
	Ready State = iota
	Running
	Completed
	Failed
)

// String returns the state's display label.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of a run for rendering.
type Snapshot struct {
	Session uint64
	State   State
	Percent float64
	Phase   string
	Elapsed time.Duration

	// Err is set only in the Failed state.
	Err error
}

// Timeline manages simulated progress for one training run at a time.
//
// Each Start invalidates the previous run by advancing the session
// token; ticks and terminal events carry the token of the run they
// belong to and are ignored when a newer run has started. Percent never
// moves backwards within a run.
type Timeline struct {
	mu sync.Mutex

	schedule []Phase

	session uint64
	state   State
	percent float64
	phase   int
	started time.Time
	err     error
}

// NewTimeline creates a Timeline with the given schedule, or
// DefaultSchedule when nil.
func NewTimeline(schedule []Phase) *Timeline {
	if schedule == nil {
		schedule = DefaultSchedule
	}
	return &Timeline{schedule: schedule}
}

// Start begins a new simulated run and returns its session token.
// Any previous run is abandoned regardless of its state.
func (t *Timeline) Start(now time.Time) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.session++
	t.state = Running
	t.percent = 0
	t.phase = 0
	t.started = now
	t.err = nil

	return t.session
}

// Tick advances the simulation for the given session and reports
// whether further ticks are wanted. Ticks for a stale session or a
// finished run are no-ops.
func (t *Timeline) Tick(session uint64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if session != t.session || t.state != Running {
		return false
	}

	elapsed := now.Sub(t.started)
	var phaseStart time.Duration
	var from float64

	for i, phase := range t.schedule {
		if elapsed < phaseStart+phase.Duration {
			frac := float64(elapsed-phaseStart) / float64(phase.Duration)
			pct := from + frac*(phase.Until-from)
			if pct > t.percent {
				t.percent = pct
			}
			t.phase = i
			return true
		}
		phaseStart += phase.Duration
		from = phase.Until
	}

	// Past the end of the schedule: hold at the final checkpoint
	// until the real response lands.
	last := len(t.schedule) - 1
	if t.schedule[last].Until > t.percent {
		t.percent = t.schedule[last].Until
	}
	t.phase = last
	return true
}

// Complete ends the run at 100 percent. A stale session is ignored and
// the method reports whether the completion applied.
func (t *Timeline) Complete(session uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if session != t.session || t.state != Running {
		return false
	}
	t.state = Completed
	t.percent = 100
	return true
}

// Fail ends the run with an error. Percent drops back to zero so a
// failed run never shows partial progress.
func (t *Timeline) Fail(session uint64, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if session != t.session || t.state != Running {
		return false
	}
	t.state = Failed
	t.percent = 0
	t.err = err
	return true
}

// Reset returns the timeline to Ready and invalidates the current
// session.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.session++
	t.state = Ready
	t.percent = 0
	t.phase = 0
	t.err = nil
}

// Snapshot returns the current run state for rendering.
func (t *Timeline) Snapshot(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		Session: t.session,
		State:   t.state,
		Percent: t.percent,
		Err:     t.err,
	}
	if t.state == Running || t.state == Completed || t.state == Failed {
		snap.Phase = t.schedule[t.phase].Label
	}
	if t.state == Running {
		snap.Elapsed = now.Sub(t.started)
	}
	if t.state == Completed {
		snap.Phase = "done"
	}
	return snap
}
