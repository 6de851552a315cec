// Package random provides the injectable randomness used by exercise
// selection and generation, so tests can pin exact outcomes.
package random

import (
	"math/rand/v2"
	"sync"
)

// Source is the subset of math/rand behaviour the policy layer depends on.
type Source interface {
	// Float64 returns a number in [0.0, 1.0).
	Float64() float64
	// IntN returns a number in [0, n). n must be > 0.
	IntN(n int) int
}

// New returns a Source backed by the global math/rand/v2 generator.
func New() Source {
	return globalSource{}
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// Seeded returns a deterministic, goroutine-safe Source.
func Seeded(seed uint64) Source {
	return &seededSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *seededSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Sequence replays fixed values. Floats and ints are consumed from separate
// queues; an exhausted queue yields 0.
type Sequence struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}

// IntN returns the next queued int modulo n.
func (s *Sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 {
		return 0
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	if v < 0 {
		v = -v
	}
	return v % n
}

// Shuffle permutes n elements with a Fisher-Yates pass driven by src.
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		swap(i, j)
	}
}
