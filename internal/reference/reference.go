// Package reference supplies the moving point the formation is flown against.
package reference

import (
	"context"
	"sync"
	"time"

	"droneops-formation/internal/geo"
)

// Tracker exposes the current reference pose and velocity. Implementations
// return their last-known value when the underlying feed goes quiet.
type Tracker interface {
	Position() (pos geo.Position, heading float64)
	Velocity() geo.Vector3
}

// Snapshot reads a Tracker into a single value.
func Snapshot(t Tracker) geo.Reference {
	pos, hdg := t.Position()
	return geo.Reference{Position: pos, Heading: hdg, Velocity: t.Velocity()}
}

// Feed holds the latest reference pushed by a navigation source.
type Feed struct {
	mu      sync.RWMutex
	ref     geo.Reference
	updated time.Time
	hasRef  bool
	updates chan geo.Reference
	now     func() time.Time
}

// NewFeed creates an empty feed. Until the first update it reports the zero reference.
func NewFeed() *Feed {
	return &Feed{updates: make(chan geo.Reference, 10), now: time.Now}
}

// Run applies queued updates until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	for {
		select {
		case ref := <-f.updates:
			f.Update(ref)
		case <-ctx.Done():
			return nil
		}
	}
}

// Updates returns the channel for sending reference updates.
func (f *Feed) Updates() chan<- geo.Reference {
	return f.updates
}

// Update stores ref as the latest value.
func (f *Feed) Update(ref geo.Reference) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ref = ref
	f.updated = f.now()
	f.hasRef = true
}

// Position implements Tracker.
func (f *Feed) Position() (geo.Position, float64) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ref.Position, f.ref.Heading
}

// Velocity implements Tracker.
func (f *Feed) Velocity() geo.Vector3 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ref.Velocity
}

// Age reports how long ago the last update arrived. ok is false before the first update.
func (f *Feed) Age(now time.Time) (age time.Duration, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.hasRef {
		return 0, false
	}
	return now.Sub(f.updated), true
}
