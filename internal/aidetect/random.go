package aidetect

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies the perturbation term. *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// NewSeededSource returns a PCG generator. Seed 0 picks a random seed.
func NewSeededSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// LockedSource serializes access to a source that is not safe for
// concurrent use.
type LockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func NewLockedSource(src RandomSource) *LockedSource {
	return &LockedSource{src: src}
}

func (l *LockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}
