// Package debounce coalesces rapid input changes into single
// validations, delivering each result with the sequence number of the
// input that produced it so callers can discard stale answers.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Result pairs a validation outcome with the sequence number of the
// input that produced it.
type Result[T any] struct {
	Seq   uint64
	Value T
	Err   error
}

// Validator produces a result for one input value.
type Validator[T any] func(ctx context.Context, input string) (T, error)

// Debouncer runs a Validator against the latest input once the input
// has been stable for the configured window.
//
// Every Set advances the sequence number and restarts the window; only
// the newest input is ever validated. Results are delivered on the
// channel passed to New, tagged with their sequence number. A caller
// applies a result only when its sequence matches the latest Set, so a
// slow validation of an old input can never override a newer state.
type Debouncer[T any] struct {
	mu sync.Mutex

	window   time.Duration
	validate Validator[T]
	results  chan<- Result[T]

	seq    uint64
	input  string
	timer  *time.Timer
	cancel context.CancelFunc
}

// New creates a Debouncer that reports results on the given channel.
func New[T any](
	window time.Duration,
	validate Validator[T],
	results chan<- Result[T],
) *Debouncer[T] {
	return &Debouncer[T]{
		window:   window,
		validate: validate,
		results:  results,
	}
}

// Set records a new input and returns its sequence number.
//
// The pending window restarts and any in-flight validation of an older
// input is cancelled.
func (d *Debouncer[T]) Set(input string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	d.input = input
	d.cancelLocked()

	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq) })

	return seq
}

// Flush validates the current input immediately, skipping the window.
// Returns the sequence number of the input being validated.
func (d *Debouncer[T]) Flush() uint64 {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.mu.Unlock()

	d.fire(seq)
	return seq
}

// Cancel stops the pending window and any in-flight validation without
// producing a result.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.cancelLocked()
}

// Latest returns the sequence number of the most recent Set.
func (d *Debouncer[T]) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// fire runs the validator for the given sequence if it is still the
// latest, then delivers the tagged result.
func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		return
	}
	input := d.input
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.mu.Unlock()

	go func() {
		defer cancel()
		value, err := d.validate(ctx, input)
		if ctx.Err() != nil {
			return
		}
		d.results <- Result[T]{Seq: seq, Value: value, Err: err}
	}()
}

func (d *Debouncer[T]) cancelLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
