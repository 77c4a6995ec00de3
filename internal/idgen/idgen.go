// Package idgen produces identifiers for new statuses.
package idgen

import "github.com/google/uuid"

// Generator returns a fresh identifier on every call.
type Generator func() string

// New returns a random (v4) UUID string. It panics if the system randomness
// source is unavailable, which is treated as a fatal condition.
func New() string {
	return uuid.New().String()
}
