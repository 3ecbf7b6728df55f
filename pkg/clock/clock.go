// Package clock abstracts the current time so time-driven transitions can be
// evaluated deterministically.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

// New returns the wall clock in UTC.
func New() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a settable clock for tests and replays.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}
