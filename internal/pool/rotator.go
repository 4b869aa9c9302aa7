package pool

import (
	"sync"
	"time"

	"github.com/vekoo-go1/veko-dome-v1/internal/model"
)

// Rotator is the rotation state machine: which endpoint is active, when it
// became active, and how long it stays active. One rotator serves a whole
// session; the rotation task advances it while the transport layer reads
// the active endpoint on every outbound request.
//
// All methods are safe for concurrent use. The mutex spans every read and
// write of the (index, rotatedAt) pair, so readers never observe an index
// from one rotation paired with a timestamp from another.
type Rotator struct {
	mu        sync.Mutex
	pool      *Pool
	index     int
	rotatedAt time.Time
	interval  time.Duration
	rotations int
}

// Snapshot is a consistent view of the rotator taken under one lock.
type Snapshot struct {
	// Endpoint is the active endpoint.
	Endpoint Endpoint

	// Index is the pool index of Endpoint.
	Index int

	// RotatedAt is when Endpoint became active.
	RotatedAt time.Time

	// Rotations is how many advances have happened so far.
	Rotations int

	// PoolSize is the number of endpoints in the pool.
	PoolSize int

	// Interval is the configured rotation interval.
	Interval time.Duration
}

// NewRotator builds a rotator over the given pool, starting at the first
// endpoint with the activation clock set to now. Returns ErrEmptyPool if
// the pool has no endpoints; callers wanting direct mode must not build a
// rotator at all.
//
// A zero interval means "rotate on every check".
func NewRotator(p *Pool, interval time.Duration, now time.Time) (*Rotator, error) {
	if p == nil || p.Empty() {
		return nil, ErrEmptyPool
	}
	return &Rotator{
		pool:      p,
		rotatedAt: now,
		interval:  interval,
	}, nil
}

// Current returns the active endpoint. It never fails: the pool is
// non-empty by construction and the index always stays in range.
func (r *Rotator) Current() Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool.At(r.index)
}

// ShouldRotate reports whether the interval has elapsed at the given time.
// The boundary is inclusive: an elapsed time exactly equal to the interval
// rotates. It performs no mutation, so callers may probe freely.
func (r *Rotator) ShouldRotate(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return now.Sub(r.rotatedAt) >= r.interval
}

// Advance moves to the next endpoint circularly and resets the activation
// clock to now, as one atomic unit. On a single-endpoint pool the index
// stays put but the clock still resets, so the next boundary is measured
// from this advance.
//
// The returned event describes the transition for logging and history.
func (r *Rotator) Advance(now time.Time) model.RotationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.pool.At(r.index)
	r.index = (r.index + 1) % r.pool.Len()
	r.rotatedAt = now
	r.rotations++

	return model.RotationEvent{
		Seq:       r.rotations,
		Previous:  previous.String(),
		Current:   r.pool.At(r.index).String(),
		Index:     r.index,
		PoolSize:  r.pool.Len(),
		RotatedAt: now,
	}
}

// Snapshot returns a consistent view of the rotator's state.
func (r *Rotator) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		Endpoint:  r.pool.At(r.index),
		Index:     r.index,
		RotatedAt: r.rotatedAt,
		Rotations: r.rotations,
		PoolSize:  r.pool.Len(),
		Interval:  r.interval,
	}
}

// Interval returns the configured rotation interval.
func (r *Rotator) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}
