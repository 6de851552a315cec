package progression

import (
	"math"
	"time"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/store"
)

// Tally applies one answer to p: counters, mastery percentage, streaks and
// level. It reports whether the level went up and whether mastery was reached
// for the first time. Level never decreases and MasteredAt is set once.
func Tally(p *store.SkillProgress, correct bool, now time.Time, eng config.Engine) (levelUp, mastered bool) {
	p.Attempts++
	if correct {
		p.Correct++
		p.CurrentStreak++
	} else {
		p.CurrentStreak = 0
	}
	if p.CurrentStreak > p.BestStreak {
		p.BestStreak = p.CurrentStreak
	}
	p.MasteryPct = MasteryPct(p.Correct, p.Attempts)

	if p.Level < 1 {
		p.Level = 1
	}
	if lvl := eng.LevelFor(p.Correct, p.MasteryPct); lvl > p.Level {
		p.Level = lvl
		levelUp = true
	}

	if p.Level >= eng.MasteryLevel && p.MasteredAt == nil {
		t := now
		p.MasteredAt = &t
		mastered = true
	}
	p.UpdatedAt = now
	return levelUp, mastered
}

// MasteryPct is correct/attempts as a rounded percentage.
func MasteryPct(correct, attempts int) int {
	if attempts == 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(attempts)))
}
