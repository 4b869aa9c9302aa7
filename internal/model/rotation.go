package model

import "time"

// RotationEvent describes a single proxy rotation performed by a session.
// The rotator emits one event per advance; the session controller logs it
// and the history store persists it.
type RotationEvent struct {
	// Seq is the 1-based ordinal of this rotation within the session.
	Seq int `json:"seq"`

	// Previous is the endpoint that was active before the rotation.
	Previous string `json:"previous"`

	// Current is the endpoint activated by this rotation.
	Current string `json:"current"`

	// Index is the pool index of Current.
	Index int `json:"index"`

	// PoolSize is the number of endpoints in the pool.
	PoolSize int `json:"pool_size"`

	// RotatedAt is when the rotation took effect.
	RotatedAt time.Time `json:"rotated_at"`
}
