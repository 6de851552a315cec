package progression

import (
	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/store"
)

// Outcome is the cross-skill flow decision taken after an answer.
type Outcome string

const (
	OutcomeMastery        Outcome = "mastery"
	OutcomeDomainComplete Outcome = "domain_complete"
	OutcomeLevelUp        Outcome = "level_up"
	OutcomeStruggling     Outcome = "struggling"
	OutcomeStreak         Outcome = "streak"
	OutcomeCorrect        Outcome = "correct"
	OutcomeIncorrect      Outcome = "incorrect"
)

// Turn is everything the rules look at for one answer.
type Turn struct {
	Correct  bool
	Progress store.SkillProgress // after the answer
	LevelUp  bool
	Mastered bool // level 5 reached for the first time this turn
}

// Rule maps a guard to an outcome.
type Rule struct {
	Outcome Outcome
	Applies func(t Turn, eng config.Engine) bool
}

// Rules are evaluated top to bottom; the first match wins. OutcomeMastery is
// later refined into OutcomeDomainComplete when the domain has no next
// skill.
var Rules = []Rule{
	{
		Outcome: OutcomeMastery,
		Applies: func(t Turn, _ config.Engine) bool { return t.Mastered },
	},
	{
		Outcome: OutcomeLevelUp,
		Applies: func(t Turn, _ config.Engine) bool { return t.LevelUp },
	},
	{
		Outcome: OutcomeStruggling,
		Applies: func(t Turn, eng config.Engine) bool {
			return t.Progress.Attempts >= eng.StrugglingMinAttempts && t.Progress.MasteryPct < eng.StrugglingPct
		},
	},
	{
		Outcome: OutcomeStreak,
		Applies: func(t Turn, eng config.Engine) bool {
			n := eng.StreakMilestone
			return n > 0 && t.Progress.CurrentStreak >= n && t.Progress.CurrentStreak%n == 0
		},
	},
}

// Evaluate returns the outcome of the first matching rule, or the default
// correct/incorrect outcome.
func Evaluate(t Turn, eng config.Engine) Outcome {
	for _, r := range Rules {
		if r.Applies(t, eng) {
			return r.Outcome
		}
	}
	if t.Correct {
		return OutcomeCorrect
	}
	return OutcomeIncorrect
}
