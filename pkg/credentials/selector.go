package credentials

import (
	"math/rand/v2"
	"sync"
)

// Selector picks the index of one candidate out of n > 0.
type Selector interface {
	Select(n int) int
}

// UniformSelector picks uniformly at random. The zero value uses the
// global math/rand/v2 source.
type UniformSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ Selector = (*UniformSelector)(nil)

// NewUniformSelector returns a UniformSelector with a deterministic PCG
// source, mostly for tests and reproducible load runs.
func NewUniformSelector(seed uint64) *UniformSelector {
	return &UniformSelector{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (s *UniformSelector) Select(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
