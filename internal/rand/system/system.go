// Package system provides a real randomness source.
package system

import "math/rand/v2"

// Rand implements tracker.Rand using the shared math/rand/v2 generator.
type Rand struct{}

// New creates a new Rand.
func New() *Rand {
	return &Rand{}
}

// Intn returns a uniform value in [0, n).
func (Rand) Intn(n int) int {
	return rand.IntN(n)
}
