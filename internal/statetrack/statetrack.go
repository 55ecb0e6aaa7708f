// Package statetrack tracks the refresh indicator and the outcome of the
// last refresh run, notifying listeners on change.
package statetrack

import (
	"sync"

	"github.com/okranz/steady/internal/broadcaster"
)

// Event identifies what changed in a Tracker.
type Event int8

const (
	// EventIndicator signals that the smoothed busy indicator
	// was shown or hidden.
	EventIndicator Event = iota

	// EventOutcome signals that the last refresh outcome changed.
	EventOutcome
)

// State is a snapshot of the tracked refresh state.
type State struct {
	// Refreshing is the smoothed indicator state fed by the latch sink.
	Refreshing bool

	// ErrOutput holds the output of the last failed refresh command,
	// empty if the last refresh succeeded.
	ErrOutput string
}

func (s State) IsErr() bool { return s.ErrOutput != "" }

type Tracker struct {
	lock        sync.Mutex
	state       State
	broadcaster *broadcaster.Broadcaster[Event]
}

func NewTracker() *Tracker {
	return &Tracker{broadcaster: broadcaster.New[Event]()}
}

// Get returns the current state snapshot.
func (t *Tracker) Get() State {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state
}

// SetRefreshing sets the indicator state and notifies all listeners.
func (t *Tracker) SetRefreshing(refreshing bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.state.Refreshing = refreshing
	t.broadcaster.BroadcastNonblock(EventIndicator)
}

// SetErrOutput sets or resets (if "") the last refresh failure output
// and notifies all listeners. Noop if the outcome didn't change.
func (t *Tracker) SetErrOutput(msg string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if msg == t.state.ErrOutput {
		return // Outcome didn't change, ignore.
	}
	t.state.ErrOutput = msg
	t.broadcaster.BroadcastNonblock(EventOutcome)
}

// NumListeners returns the number of currently active listeners.
func (t *Tracker) NumListeners() int {
	return t.broadcaster.Len()
}

// AddListener adds a listener channel receiving an Event on every change.
func (t *Tracker) AddListener(c chan<- Event) {
	t.broadcaster.AddListener(c)
}

// RemoveListener removes a listener channel.
func (t *Tracker) RemoveListener(c chan<- Event) {
	t.broadcaster.RemoveListener(c)
}
