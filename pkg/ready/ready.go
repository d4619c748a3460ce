// Package ready tracks startup readiness of long-lived components.
// Each component registers a target with a begin function; the tracker
// kicks every begin function off together and the surrounding system
// waits until all targets have signaled ready once.
package ready

import (
	"context"
	"sync"
)

// Target is one component's readiness handle. Ready may be called any
// number of times; only the first call has an effect.
type Target struct {
	name string
	once sync.Once
	done chan struct{}
}

// Name returns the name the target was registered under.
func (t *Target) Name() string { return t.name }

// Ready marks the target ready. Idempotent.
func (t *Target) Ready() {
	t.once.Do(func() { close(t.done) })
}

// Done returns a channel closed once the target is ready.
func (t *Target) Done() <-chan struct{} { return t.done }

// Tracker collects targets and starts them as a group.
type Tracker struct {
	mu      sync.Mutex
	targets []*Target
	begins  []func()
	started bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Register adds a target. The begin function runs when Start is called
// (or immediately, if the tracker already started) and is expected to
// eventually lead to Target.Ready being invoked.
func (t *Tracker) Register(name string, begin func()) *Target {
	tgt := &Target{name: name, done: make(chan struct{})}

	t.mu.Lock()
	t.targets = append(t.targets, tgt)
	started := t.started
	if !started && begin != nil {
		t.begins = append(t.begins, begin)
	}
	t.mu.Unlock()

	if started && begin != nil {
		begin()
	}
	return tgt
}

// Start invokes all registered begin functions. Safe to call once;
// later registrations begin immediately.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	begins := t.begins
	t.begins = nil
	t.mu.Unlock()

	for _, begin := range begins {
		begin()
	}
}

// Ready reports whether every registered target has signaled.
func (t *Tracker) Ready() bool {
	t.mu.Lock()
	targets := make([]*Target, len(t.targets))
	copy(targets, t.targets)
	t.mu.Unlock()

	for _, tgt := range targets {
		select {
		case <-tgt.Done():
		default:
			return false
		}
	}
	return true
}

// Wait blocks until every registered target is ready or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	targets := make([]*Target, len(t.targets))
	copy(targets, t.targets)
	t.mu.Unlock()

	for _, tgt := range targets {
		select {
		case <-tgt.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
