package session

import (
	"math"
	"time"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/store"
)

// Recap is the summary of a completed session.
type Recap = store.Recap

// BuildRecap derives the recap from the session counters. fullRun is true
// when the step budget was used up, which earns the completion bonus.
func BuildRecap(s store.LearningSession, now time.Time, rules config.SessionRules, fullRun bool) Recap {
	var accuracy int
	if s.Completed > 0 {
		accuracy = int(math.Round(float64(s.Correct) * 100 / float64(s.Completed)))
	}

	xp := s.Correct*rules.XPPerCorrect + s.StreakBonusXP
	if fullRun {
		xp += rules.CompletionXP
	}

	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	return Recap{
		Completed:      s.Completed,
		Correct:        s.Correct,
		AccuracyPct:    accuracy,
		XP:             xp,
		ElapsedSecs:    int64(elapsed / time.Second),
		BestStreak:     s.BestStreak,
		StreakBonus:    s.StreakBonusXP > 0,
		LevelUp:        s.LevelUp,
		MasteryReached: s.MasteryReached,
	}
}
