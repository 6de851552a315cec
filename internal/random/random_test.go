package random

import "testing"

func TestSequence_ReplaysValues(t *testing.T) {
	s := &Sequence{Floats: []float64{0.1, 0.9}, Ints: []int{2, 7}}
	if got := s.Float64(); got != 0.1 {
		t.Errorf("Float64() = %v, want 0.1", got)
	}
	if got := s.IntN(5); got != 2 {
		t.Errorf("IntN(5) = %d, want 2", got)
	}
	if got := s.IntN(5); got != 2 {
		t.Errorf("IntN(5) = %d, want 7 mod 5 = 2", got)
	}
	if got := s.Float64(); got != 0.9 {
		t.Errorf("Float64() = %v, want 0.9", got)
	}
	if got := s.Float64(); got != 0 {
		t.Errorf("exhausted Float64() = %v, want 0", got)
	}
}

func TestSeeded_Deterministic(t *testing.T) {
	a, b := Seeded(42), Seeded(42)
	for i := 0; i < 20; i++ {
		if a.IntN(100) != b.IntN(100) {
			t.Fatal("same seed produced different sequences")
		}
	}
}

func TestShuffle_IsPermutation(t *testing.T) {
	xs := []int{0, 1, 2, 3, 4, 5}
	Shuffle(Seeded(7), len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
	seen := make(map[int]bool)
	for _, x := range xs {
		seen[x] = true
	}
	if len(seen) != 6 {
		t.Fatalf("shuffle lost elements: %v", xs)
	}
}
