package dice

import (
	"math/rand/v2"
	"sync"
)

// Source produces uniformly distributed integers for rolling.
// Implementations used from several goroutines must be safe for concurrent use.
type Source interface {
	// IntN returns a value in [0, n). n is always > 0.
	IntN(n int) int
}

// globalSource draws from the math/rand/v2 top-level generator, which is
// randomly seeded and safe for concurrent use.
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource is the process-wide source used by Roll and by a Roller
// created without one.
var DefaultSource Source = globalSource{}

// lockedSource serializes draws from a seeded generator.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a reproducible Source: equal seeds produce equal
// sequences of draws. It is safe for concurrent use.
func NewSeededSource(seed uint64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
