package power

import (
	"context"
	"sync"
)

// Distributor holds the latest Snapshot and wakes observers when it changes.
//
// It is a single versioned cell, not a queue: Publish replaces the value and
// bumps the version, and observers that fall behind skip straight to the
// newest value. Observers are not tracked, so their number is unbounded and
// abandoning one needs no cleanup.
//
// Thread Safety: all methods are safe for concurrent use.
type Distributor struct {
	mu      sync.RWMutex
	value   Snapshot
	version uint64
	changed chan struct{} // closed and replaced on every Publish
	closed  bool
}

// NewDistributor creates a distributor whose current value is initial, at version 0.
func NewDistributor(initial Snapshot) *Distributor {
	return &Distributor{
		value:   initial,
		changed: make(chan struct{}),
	}
}

// Publish replaces the visible snapshot and wakes every waiting observer.
// Publishing after Close is a no-op.
func (d *Distributor) Publish(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.value = snap
	d.version++
	close(d.changed)
	d.changed = make(chan struct{})
}

// Current returns the latest snapshot.
func (d *Distributor) Current() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value
}

// Version returns the number of snapshots published so far.
func (d *Distributor) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Close wakes all observers; once they have consumed the final snapshot,
// WaitForChange returns ErrDistributorClosed.
func (d *Distributor) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.changed)
}

// Observe returns a cursor positioned at the current snapshot.
func (d *Distributor) Observe() *Observer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return &Observer{d: d, seen: d.version}
}

// load returns the value, version, wake channel and closed flag atomically.
func (d *Distributor) load() (Snapshot, uint64, <-chan struct{}, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value, d.version, d.changed, d.closed
}

// Observer is one reader's position in the distributor.
// An Observer must not be used from more than one goroutine at a time.
type Observer struct {
	d    *Distributor
	seen uint64
}

// Current returns the latest snapshot and marks it as seen.
func (o *Observer) Current() Snapshot {
	value, version, _, _ := o.d.load()
	o.seen = version
	return value
}

// Seen returns the version of the last snapshot this observer consumed.
func (o *Observer) Seen() uint64 {
	return o.seen
}

// HasChanged reports whether a newer snapshot than the last one seen exists.
func (o *Observer) HasChanged() bool {
	return o.d.Version() > o.seen
}

// WaitForChange blocks until a snapshot newer than the last one seen exists,
// then returns the latest one. Intermediate snapshots are skipped.
//
// Returns ctx.Err() if ctx ends first, or ErrDistributorClosed once the
// distributor is closed and the observer is up to date.
func (o *Observer) WaitForChange(ctx context.Context) (Snapshot, error) {
	for {
		value, version, changed, closed := o.d.load()
		if version > o.seen {
			o.seen = version
			return value, nil
		}
		if closed {
			return Snapshot{}, ErrDistributorClosed
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}
