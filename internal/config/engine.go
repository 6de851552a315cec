package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/kidquest/internal/spacedrep"
)

// LevelThreshold is one row of the star-level table.
type LevelThreshold struct {
	Level         int `mapstructure:"level" json:"level"`
	MinCorrect    int `mapstructure:"min_correct" json:"min_correct"`
	MinMasteryPct int `mapstructure:"min_mastery_pct" json:"min_mastery_pct"`
}

// SessionRules sizes sessions and awards XP.
type SessionRules struct {
	SecondsPerExercise int `mapstructure:"seconds_per_exercise"`
	MinSteps           int `mapstructure:"min_steps"`
	MaxSteps           int `mapstructure:"max_steps"`
	DefaultMinutes     int `mapstructure:"default_minutes"`
	XPPerCorrect       int `mapstructure:"xp_per_correct"`
	StreakBonusEvery   int `mapstructure:"streak_bonus_every"`
	StreakBonusXP      int `mapstructure:"streak_bonus_xp"`
	CompletionXP       int `mapstructure:"completion_xp"`
}

// Engine is the policy configuration of the selection and progression
// engine. Services take one snapshot per operation.
type Engine struct {
	GenerationQuota      int           `mapstructure:"generation_quota"`
	MinBuffer            int           `mapstructure:"min_buffer"`
	ChallengeProbability float64       `mapstructure:"challenge_probability"`
	RecencyWindow        time.Duration `mapstructure:"recency_window"`
	TopK                 int           `mapstructure:"top_k"`

	MinAge     int `mapstructure:"min_age"`
	MaxAge     int `mapstructure:"max_age"`
	DefaultAge int `mapstructure:"default_age"`

	DefaultLanguage string `mapstructure:"default_language"`
	DefaultMethod   string `mapstructure:"default_method"`

	// Levels is evaluated from the highest level down.
	Levels                []LevelThreshold `mapstructure:"levels"`
	MasteryLevel          int              `mapstructure:"mastery_level"`
	StrugglingPct         int              `mapstructure:"struggling_pct"`
	StrugglingMinAttempts int              `mapstructure:"struggling_min_attempts"`
	StreakMilestone       int              `mapstructure:"streak_milestone"`

	SpacedRep spacedrep.Params            `mapstructure:"spaced_rep"`
	Quality   spacedrep.QualityThresholds `mapstructure:"quality"`
	Session   SessionRules                `mapstructure:"session"`
}

// DefaultEngine returns the production defaults.
func DefaultEngine() Engine {
	return Engine{
		GenerationQuota:      10,
		MinBuffer:            3,
		ChallengeProbability: 0.3,
		RecencyWindow:        24 * time.Hour,
		TopK:                 3,

		MinAge:     6,
		MaxAge:     12,
		DefaultAge: 8,

		DefaultLanguage: "fr",
		DefaultMethod:   "playful",

		Levels: []LevelThreshold{
			{Level: 5, MinCorrect: 20, MinMasteryPct: 80},
			{Level: 4, MinCorrect: 15, MinMasteryPct: 60},
			{Level: 3, MinCorrect: 10, MinMasteryPct: 40},
			{Level: 2, MinCorrect: 6, MinMasteryPct: 20},
			{Level: 1, MinCorrect: 3, MinMasteryPct: 0},
		},
		MasteryLevel:          5,
		StrugglingPct:         40,
		StrugglingMinAttempts: 3,
		StreakMilestone:       3,

		SpacedRep: spacedrep.DefaultParams(),
		Quality:   spacedrep.DefaultQualityThresholds(),
		Session: SessionRules{
			SecondsPerExercise: 60,
			MinSteps:           3,
			MaxSteps:           20,
			DefaultMinutes:     10,
			XPPerCorrect:       10,
			StreakBonusEvery:   3,
			StreakBonusXP:      5,
			CompletionXP:       20,
		},
	}
}

// ClampAge returns age limited to the supported band, or the default age
// when unknown.
func (e Engine) ClampAge(age *int) int {
	if age == nil || *age <= 0 {
		return e.DefaultAge
	}
	switch {
	case *age < e.MinAge:
		return e.MinAge
	case *age > e.MaxAge:
		return e.MaxAge
	}
	return *age
}

// LevelFor returns the highest level whose thresholds are met, or 0 when
// none is.
func (e Engine) LevelFor(correct, masteryPct int) int {
	best := 0
	for _, t := range e.Levels {
		if correct >= t.MinCorrect && masteryPct >= t.MinMasteryPct && t.Level > best {
			best = t.Level
		}
	}
	return best
}

// StepsFor converts a time budget into an exercise count.
func (e Engine) StepsFor(minutes int) int {
	r := e.Session
	if minutes <= 0 {
		minutes = r.DefaultMinutes
	}
	per := r.SecondsPerExercise
	if per <= 0 {
		per = 60
	}
	n := minutes * 60 / per
	if n < r.MinSteps {
		n = r.MinSteps
	}
	if r.MaxSteps > 0 && n > r.MaxSteps {
		n = r.MaxSteps
	}
	return n
}

// Validate rejects configurations the engine cannot run with.
func (e Engine) Validate() error {
	var errs []string
	if e.GenerationQuota < 0 {
		errs = append(errs, "generation_quota must be >= 0")
	}
	if e.MinBuffer < 0 {
		errs = append(errs, "min_buffer must be >= 0")
	}
	if e.ChallengeProbability < 0 || e.ChallengeProbability > 1 {
		errs = append(errs, "challenge_probability must be in [0, 1]")
	}
	if e.TopK < 1 {
		errs = append(errs, "top_k must be >= 1")
	}
	if e.MinAge > e.MaxAge || e.DefaultAge < e.MinAge || e.DefaultAge > e.MaxAge {
		errs = append(errs, "default_age must lie within [min_age, max_age]")
	}
	if len(e.Levels) == 0 {
		errs = append(errs, "levels must not be empty")
	}
	for _, l := range e.Levels {
		if l.Level < 1 || l.Level > 5 {
			errs = append(errs, fmt.Sprintf("level %d out of range [1, 5]", l.Level))
		}
	}
	if e.SpacedRep.EaseFloor <= 0 || e.SpacedRep.InitialEase < e.SpacedRep.EaseFloor {
		errs = append(errs, "spaced_rep.initial_ease must be >= ease_floor > 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid engine config: %s", strings.Join(errs, "; "))
	}
	return nil
}
