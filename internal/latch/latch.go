// Package latch implements a debounced busy indicator latch.
//
// A Latch consumes a raw busy/not-busy signal and derives smoothed
// show/hide emissions for a visual refresh indicator: a busy phase that
// ends before the show delay elapsed is never shown at all, and once shown
// the indicator stays visible for at least the minimum show duration.
//
// The latch moves through four states: idle, pending show (busy, show
// timer running), shown (show emitted) and pending hide (no longer busy,
// hide timer running until the minimum show duration is satisfied).
// At most one emission is ever pending; any state change cancels it before
// scheduling a new one, so emissions are always delivered in order and
// never duplicated for a superseded state.
package latch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/okranz/steady/internal/schedule"
)

// Default timing as used when no option overrides it.
const (
	DefaultShowDelay = 300 * time.Millisecond
	DefaultMinShow   = 700 * time.Millisecond
)

var (
	ErrNilSink          = errors.New("nil sink")
	ErrNegativeDuration = errors.New("negative duration")
)

// Latch derives debounced show/hide emissions from a boolean busy signal.
//
// All emissions, including scheduled ones, are serialized on an internal
// lock, hence the sink is never invoked concurrently and must not call back
// into the Latch.
type Latch struct {
	mu    sync.Mutex
	sched *schedule.Scheduler

	sink      func(show bool)
	showDelay time.Duration
	minShow   time.Duration
	logger    *slog.Logger
	now       func() time.Time

	busy     bool
	shownAt  time.Time // Zero while the indicator is hidden.
	disposed bool
}

type Option func(*Latch)

// WithShowDelay overrides how long the busy signal must stay raised
// before show is emitted. Default: DefaultShowDelay.
func WithShowDelay(d time.Duration) Option {
	return func(l *Latch) { l.showDelay = d }
}

// WithMinShow overrides the minimum duration the indicator stays shown
// once show was emitted. Default: DefaultMinShow.
func WithMinShow(d time.Duration) Option {
	return func(l *Latch) { l.minShow = d }
}

// WithLogger enables transition diagnostics on logger at debug level.
// Diagnostics are purely observational and never affect timing.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Latch) { l.logger = logger }
}

// WithClock overrides the wall clock, intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Latch) { l.now = now }
}

// New creates an idle Latch emitting to sink.
// sink receives true for show and false for hide.
func New(sink func(show bool), opts ...Option) (*Latch, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	l := &Latch{
		sink:      sink,
		showDelay: DefaultShowDelay,
		minShow:   DefaultMinShow,
		now:       time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	if l.showDelay < 0 {
		return nil, fmt.Errorf("show delay (%v): %w", l.showDelay, ErrNegativeDuration)
	}
	if l.minShow < 0 {
		return nil, fmt.Errorf("min show (%v): %w", l.minShow, ErrNegativeDuration)
	}
	l.sched = schedule.New(&l.mu)
	return l, nil
}

// SetBusy toggles the busy signal. Setting the current value again is a
// noop: nothing is emitted, canceled or rescheduled.
//
// Raising the signal schedules show after the show delay. Lowering it
// either cancels a still pending show silently (the indicator never became
// visible, so there is nothing to hide), schedules hide for when the
// minimum show duration is satisfied, or emits hide synchronously if it
// already is.
func (l *Latch) SetBusy(busy bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mustUsable()

	if busy == l.busy {
		l.debug("busy toggle ignored", slog.Bool("busy", busy))
		return
	}
	l.sched.CancelAll()
	l.busy = busy

	if busy {
		l.sched.After(l.showDelay, l.emitShow)
		l.debug("show scheduled", slog.Duration("delay", l.showDelay))
		return
	}
	if l.shownAt.IsZero() {
		// Show never fired, the pending show was just canceled.
		l.debug("show canceled before firing")
		return
	}
	if elapsed := l.now().Sub(l.shownAt); elapsed < l.minShow {
		remaining := l.minShow - elapsed
		l.sched.After(remaining, l.emitHide)
		l.debug("hide scheduled", slog.Duration("delay", remaining))
		return
	}
	l.emitHide()
}

// Force sets the busy signal and emits synchronously, bypassing both the
// show delay and the minimum show duration. Any pending emission is
// canceled first.
func (l *Latch) Force(busy bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mustUsable()

	l.sched.CancelAll()
	l.busy = busy
	l.debug("forced", slog.Bool("busy", busy))
	if busy {
		l.emitShow()
	} else {
		l.emitHide()
	}
}

// Dispose cancels any pending emission and retires the latch.
// Dispose is idempotent; SetBusy and Force panic afterwards.
// Dispose is meant to be bound to the teardown of whatever owns the latch
// (in steady: shutdown context cancellation).
func (l *Latch) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return
	}
	l.sched.CancelAll()
	l.disposed = true
	l.debug("disposed")
}

func (l *Latch) mustUsable() {
	if l.disposed {
		panic("latch: use after Dispose")
	}
}

func (l *Latch) emitShow() {
	l.shownAt = l.now()
	l.debug("show fired")
	l.sink(true)
}

func (l *Latch) emitHide() {
	l.shownAt = time.Time{}
	l.debug("hide fired")
	l.sink(false)
}

func (l *Latch) debug(msg string, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
