// Package progression records answers and decides the cross-skill flow:
// mastery bookkeeping, levels, streaks, spaced-repetition scheduling and
// skill unlocks.
package progression

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/lock"
	"github.com/abhisek/kidquest/internal/metrics"
	"github.com/abhisek/kidquest/internal/pool"
	"github.com/abhisek/kidquest/internal/skillgraph"
	"github.com/abhisek/kidquest/internal/spacedrep"
	"github.com/abhisek/kidquest/internal/store"
	"github.com/abhisek/kidquest/internal/telemetry"
)

// Selector picks the next exercise. *pool.Manager implements it.
type Selector interface {
	SelectOrGenerate(ctx context.Context, skillID, studentID, language, method string) (pool.Selection, error)
}

// Answer is one submitted answer.
type Answer struct {
	StudentID       string
	SkillID         string
	ExerciseID      string
	SessionID       string
	Correct         bool
	TimeSpentSecs   int
	HintsUsed       int
	SubmittedAnswer string

	// Language and Method are passed through to exercise selection.
	Language string
	Method   string
}

// Result is the outcome of RecordAnswer.
type Result struct {
	NextSkillID  string
	NextExercise pool.Selection
	Reason       string
	Outcome      Outcome

	Progress        store.SkillProgress
	Review          spacedrep.State
	Quality         int
	LevelUp         bool
	Mastered        bool
	UnlockedSkillID string

	// Committed is true once progress, review, attempt and unlock are
	// stored, even when selecting the next exercise failed afterwards.
	Committed bool
}

// Deps groups the repositories the engine reads and writes. Every write
// of an answer goes through Answers in one commit.
type Deps struct {
	Skills   store.SkillRepo
	Progress store.ProgressRepo
	Reviews  store.ReviewRepo
	Answers  store.AnswerRepo
}

// Engine applies answers. Updates for one (student, skill) pair are
// serialized through the Locker; the hold ends once the answer is stored.
type Engine struct {
	deps     Deps
	selector Selector
	locker   lock.Locker
	cfg      config.Source
	log      *zap.Logger

	// Now is the clock; tests may replace it.
	Now func() time.Time
}

// New creates an Engine. A nil locker defaults to an in-process one.
func New(deps Deps, selector Selector, locker lock.Locker, cfg config.Source, log *zap.Logger) *Engine {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{deps: deps, selector: selector, locker: locker, cfg: cfg, log: log, Now: time.Now}
}

// RecordAnswer updates progress for the answer, decides where the student
// goes next and selects the next exercise there. Progress is committed
// before selection: when selection fails the error is returned together with
// a Result carrying everything but NextExercise.
func (e *Engine) RecordAnswer(ctx context.Context, a Answer) (res Result, err error) {
	eng := e.cfg.Engine()
	now := e.Now()

	ctx, span := telemetry.Tracer().Start(ctx, "progression.RecordAnswer")
	span.SetAttributes(
		attribute.String("student.id", a.StudentID),
		attribute.String("skill.id", a.SkillID),
		attribute.Bool("answer.correct", a.Correct),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("progression.outcome", string(res.Outcome)))
		}
		span.End()
	}()

	release, err := e.locker.Lock(ctx, lock.Key(a.StudentID, a.SkillID))
	if err != nil {
		return res, fmt.Errorf("lock progress: %w", err)
	}
	// Held until the answer is committed, not across exercise selection.
	unlock := sync.OnceFunc(release)
	defer unlock()

	skill, err := e.deps.Skills.GetSkill(ctx, a.SkillID)
	if err != nil {
		return res, err
	}

	p, err := e.deps.Progress.GetOrCreateProgress(ctx, a.StudentID, a.SkillID)
	if err != nil {
		return res, fmt.Errorf("load progress: %w", err)
	}

	res.Quality = spacedrep.Quality(a.Correct, a.TimeSpentSecs, a.HintsUsed, eng.Quality)
	prevReview, err := e.deps.Reviews.GetReview(ctx, a.StudentID, a.SkillID)
	if err != nil {
		return res, fmt.Errorf("load review: %w", err)
	}
	res.Review = spacedrep.NextReview(prevReview, res.Quality, now, eng.SpacedRep)

	res.LevelUp, res.Mastered = Tally(&p, a.Correct, now, eng)
	res.Outcome = Evaluate(Turn{Correct: a.Correct, Progress: p, LevelUp: res.LevelUp, Mastered: res.Mastered}, eng)

	res.NextSkillID = a.SkillID
	var next *skillgraph.Skill
	if res.Outcome == OutcomeMastery {
		next, err = e.deps.Skills.NextInDomain(ctx, a.SkillID)
		if err != nil {
			return res, fmt.Errorf("next skill: %w", err)
		}
		if next == nil {
			res.Outcome = OutcomeDomainComplete
		}
	}

	commit := store.AnswerCommit{
		Progress: &p,
		Review:   res.Review,
		Attempt: store.Attempt{
			StudentID:       a.StudentID,
			SkillID:         a.SkillID,
			ExerciseID:      a.ExerciseID,
			SessionID:       a.SessionID,
			Correct:         a.Correct,
			SubmittedAnswer: a.SubmittedAnswer,
			TimeSpentSecs:   a.TimeSpentSecs,
			HintsUsed:       a.HintsUsed,
			Timestamp:       now,
		},
	}
	if next != nil {
		commit.Unlock = &store.Unlock{
			StudentID:  a.StudentID,
			SkillID:    next.ID,
			UnlockedBy: a.SkillID,
			UnlockedAt: now,
		}
	}
	created, err := e.deps.Answers.CommitAnswer(ctx, commit)
	if err != nil {
		return res, fmt.Errorf("commit answer: %w", err)
	}
	unlock()

	res.Progress = p
	if next != nil {
		if created {
			metrics.UnlocksTotal.Inc()
		}
		res.NextSkillID = next.ID
		res.UnlockedSkillID = next.ID
	}

	res.Reason = reason(res.Outcome, skill, next, p)
	res.Committed = true

	metrics.AnswersTotal.WithLabelValues(strconv.FormatBool(a.Correct)).Inc()
	metrics.OutcomesTotal.WithLabelValues(string(res.Outcome)).Inc()
	e.log.Info("answer recorded",
		zap.String("student_id", a.StudentID),
		zap.String("skill_id", a.SkillID),
		zap.String("exercise_id", a.ExerciseID),
		zap.Bool("correct", a.Correct),
		zap.Int("level", p.Level),
		zap.Int("mastery_pct", p.MasteryPct),
		zap.String("outcome", string(res.Outcome)))

	res.NextExercise, err = e.selector.SelectOrGenerate(ctx, res.NextSkillID, a.StudentID, a.Language, a.Method)
	if err != nil {
		return res, fmt.Errorf("next exercise for %s: %w", res.NextSkillID, err)
	}
	return res, nil
}

func reason(o Outcome, skill skillgraph.Skill, next *skillgraph.Skill, p store.SkillProgress) string {
	switch o {
	case OutcomeMastery:
		return fmt.Sprintf("Skill mastered: %s! On to %s.", skill.DisplayName(), next.DisplayName())
	case OutcomeDomainComplete:
		return fmt.Sprintf("Skill mastered: %s! You finished every skill in %s.", skill.DisplayName(), skill.Domain)
	case OutcomeLevelUp:
		return fmt.Sprintf("Level up! You reached level %d.", p.Level)
	case OutcomeStruggling:
		return "Let's keep practising this one together."
	case OutcomeStreak:
		return fmt.Sprintf("%d in a row, great streak!", p.CurrentStreak)
	case OutcomeCorrect:
		return "Correct, well done!"
	default:
		return "Not quite. Let's try another one."
	}
}
