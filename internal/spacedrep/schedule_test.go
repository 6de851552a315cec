package spacedrep

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNextReview_FirstPass(t *testing.T) {
	got := NextReview(nil, 5, t0, DefaultParams())
	if got.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want 1", got.Repetitions)
	}
	if got.IntervalDays != 1 {
		t.Errorf("IntervalDays = %d, want 1", got.IntervalDays)
	}
	if math.Abs(got.EaseFactor-2.6) > 1e-9 {
		t.Errorf("EaseFactor = %f, want 2.6", got.EaseFactor)
	}
	if !got.NextReviewDate.Equal(t0.AddDate(0, 0, 1)) {
		t.Errorf("NextReviewDate = %v, want %v", got.NextReviewDate, t0.AddDate(0, 0, 1))
	}
}

func TestNextReview_Progression(t *testing.T) {
	p := DefaultParams()
	s := NextReview(nil, 4, t0, p)
	s = NextReview(&s, 4, t0, p)
	if s.IntervalDays != 6 {
		t.Fatalf("second interval = %d, want 6", s.IntervalDays)
	}
	s = NextReview(&s, 4, t0, p)
	// quality 4 leaves EF unchanged at 2.5, 6*2.5 = 15
	if s.IntervalDays != 15 {
		t.Errorf("third interval = %d, want 15", s.IntervalDays)
	}
	if s.Repetitions != 3 {
		t.Errorf("Repetitions = %d, want 3", s.Repetitions)
	}
}

func TestNextReview_FailureResets(t *testing.T) {
	p := DefaultParams()
	prev := State{IntervalDays: 15, EaseFactor: 2.5, Repetitions: 3}
	got := NextReview(&prev, 1, t0, p)
	if got.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0", got.Repetitions)
	}
	if got.IntervalDays != 1 {
		t.Errorf("IntervalDays = %d, want 1", got.IntervalDays)
	}
	// 2.5 + 0.1 - 4*(0.08+4*0.02) = 1.96
	if math.Abs(got.EaseFactor-1.96) > 1e-9 {
		t.Errorf("EaseFactor = %f, want 1.96", got.EaseFactor)
	}
}

func TestNextReview_EaseFloorAndIntervalInvariant(t *testing.T) {
	p := DefaultParams()
	qualities := []int{0, 5, 1, 3, 0, 0, 2, 4, 5, 5, 0, 3, 3, 3, 1, 0, 0, 0}
	var s *State
	for i, q := range qualities {
		next := NextReview(s, q, t0.AddDate(0, 0, i), p)
		if next.EaseFactor < p.EaseFloor {
			t.Fatalf("step %d: EaseFactor %f below floor", i, next.EaseFactor)
		}
		if next.IntervalDays < 1 {
			t.Fatalf("step %d: IntervalDays %d < 1", i, next.IntervalDays)
		}
		s = &next
	}
	if s.EaseFactor != p.EaseFloor {
		t.Errorf("after repeated failures EaseFactor = %f, want floor %f", s.EaseFactor, p.EaseFloor)
	}
}

func TestNextReview_ClampsQuality(t *testing.T) {
	a := NextReview(nil, 9, t0, DefaultParams())
	b := NextReview(nil, 5, t0, DefaultParams())
	if a != b {
		t.Errorf("quality 9 should behave as 5: %+v vs %+v", a, b)
	}
}

func TestQuality(t *testing.T) {
	th := DefaultQualityThresholds()
	tests := []struct {
		name    string
		correct bool
		secs    int
		hints   int
		want    int
	}{
		{"wrong with hints", false, 3, 2, 0},
		{"wrong fast", false, 2, 0, 1},
		{"correct fast", true, 5, 0, 5},
		{"correct normal", true, 20, 0, 4},
		{"correct slow", true, 60, 0, 3},
		{"correct hinted", true, 5, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quality(tt.correct, tt.secs, tt.hints, th); got != tt.want {
				t.Errorf("Quality() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	s := State{IntervalDays: 4, NextReviewDate: t0}
	if got := s.Status(t0.Add(-time.Hour)); got != ReviewNotDue {
		t.Errorf("before date: %s", got)
	}
	if got := s.Status(t0.AddDate(0, 0, 1)); got != ReviewDue {
		t.Errorf("1 day late: %s", got)
	}
	if got := s.Status(t0.AddDate(0, 0, 3)); got != ReviewOverdue {
		t.Errorf("3 days late: %s", got)
	}
	if got := s.DaysUntilReview(t0.Add(-30 * time.Hour)); got != 2 {
		t.Errorf("DaysUntilReview = %d, want 2", got)
	}
}
