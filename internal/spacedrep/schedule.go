package spacedrep

import (
	"math"
	"time"
)

// MaxQuality is the best possible recall quality.
const MaxQuality = 5

// Params tunes the SM-2 scheduler.
type Params struct {
	InitialEase    float64 `mapstructure:"initial_ease"`
	EaseFloor      float64 `mapstructure:"ease_floor"`
	PassThreshold  int     `mapstructure:"pass_threshold"`
	FirstInterval  int     `mapstructure:"first_interval"`
	SecondInterval int     `mapstructure:"second_interval"`
}

// DefaultParams returns the classic SM-2 parameters.
func DefaultParams() Params {
	return Params{
		InitialEase:    2.5,
		EaseFloor:      1.3,
		PassThreshold:  3,
		FirstInterval:  1,
		SecondInterval: 6,
	}
}

// State is the scheduling state of one (student, skill) pair.
type State struct {
	IntervalDays   int       `json:"interval_days"`
	EaseFactor     float64   `json:"ease_factor"`
	Repetitions    int       `json:"repetitions"`
	NextReviewDate time.Time `json:"next_review_date"`
	LastReviewDate time.Time `json:"last_review_date"`
}

// Initial returns the state used when no review history exists.
func Initial(p Params) State {
	return State{
		IntervalDays: p.FirstInterval,
		EaseFactor:   p.InitialEase,
	}
}

// NextReview computes the state after a review of the given quality.
// prev may be nil for a first review. It performs no I/O.
func NextReview(prev *State, quality int, now time.Time, p Params) State {
	p = p.normalized()
	quality = clampQuality(quality)

	cur := Initial(p)
	if prev != nil {
		cur = *prev
		if cur.IntervalDays < 1 {
			cur.IntervalDays = 1
		}
		if cur.EaseFactor < p.EaseFloor {
			cur.EaseFactor = p.EaseFloor
		}
	}

	next := State{
		EaseFactor:     adjustEase(cur.EaseFactor, quality, p.EaseFloor),
		LastReviewDate: now,
	}

	if quality < p.PassThreshold {
		next.Repetitions = 0
		next.IntervalDays = p.FirstInterval
	} else {
		next.Repetitions = cur.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.IntervalDays = p.FirstInterval
		case 2:
			next.IntervalDays = p.SecondInterval
		default:
			next.IntervalDays = int(math.Ceil(float64(cur.IntervalDays) * next.EaseFactor))
		}
	}
	if next.IntervalDays < 1 {
		next.IntervalDays = 1
	}

	next.NextReviewDate = now.AddDate(0, 0, next.IntervalDays)
	return next
}

// adjustEase applies EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)).
func adjustEase(ef float64, quality int, floor float64) float64 {
	d := float64(MaxQuality - quality)
	ef += 0.1 - d*(0.08+d*0.02)
	if ef < floor {
		ef = floor
	}
	return math.Round(ef*1000) / 1000
}

func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}

func (p Params) normalized() Params {
	d := DefaultParams()
	if p.InitialEase <= 0 {
		p.InitialEase = d.InitialEase
	}
	if p.EaseFloor <= 0 {
		p.EaseFloor = d.EaseFloor
	}
	if p.PassThreshold <= 0 {
		p.PassThreshold = d.PassThreshold
	}
	if p.FirstInterval < 1 {
		p.FirstInterval = d.FirstInterval
	}
	if p.SecondInterval < 1 {
		p.SecondInterval = d.SecondInterval
	}
	return p
}
