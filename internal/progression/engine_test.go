package progression

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/pool"
	"github.com/abhisek/kidquest/internal/random"
	"github.com/abhisek/kidquest/internal/skillgraph"
	"github.com/abhisek/kidquest/internal/store"
	"github.com/abhisek/kidquest/internal/store/storetest"
)

const kid = "kid-1"

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeSelector struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeSelector) SelectOrGenerate(_ context.Context, skillID, _, _, _ string) (pool.Selection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, skillID)
	if f.err != nil {
		return pool.Selection{}, f.err
	}
	return pool.Selection{Exercise: exercise.Exercise{ID: "ex-" + skillID, SkillID: skillID}, Source: pool.SourcePool}, nil
}

func setup(t *testing.T, withNext bool) (*Engine, *storetest.Memory, *fakeSelector) {
	t.Helper()
	mem := storetest.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.UpsertSkill(ctx, skillgraph.Skill{ID: "add-10", Domain: "addition", SortOrder: 1, Difficulty: 1, Status: skillgraph.StatusPublished}))
	if withNext {
		require.NoError(t, mem.UpsertSkill(ctx, skillgraph.Skill{ID: "add-20", Domain: "addition", SortOrder: 2, Difficulty: 2, Status: skillgraph.StatusPublished}))
	}

	sel := &fakeSelector{}
	deps := Deps{Skills: mem, Progress: mem, Reviews: mem, Answers: mem}
	e := New(deps, sel, nil, config.Static(config.DefaultEngine()), nil)
	e.Now = func() time.Time { return fixedNow }
	return e, mem, sel
}

func preset(t *testing.T, mem *storetest.Memory, fn func(p *store.SkillProgress)) {
	t.Helper()
	ctx := context.Background()
	p, err := mem.GetOrCreateProgress(ctx, kid, "add-10")
	require.NoError(t, err)
	fn(&p)
	require.NoError(t, mem.SaveProgress(ctx, &p))
}

func answer(correct bool) Answer {
	return Answer{StudentID: kid, SkillID: "add-10", ExerciseID: "ex-1", Correct: correct, TimeSpentSecs: 5}
}

func TestRecordAnswer_FirstCorrect(t *testing.T) {
	e, mem, sel := setup(t, true)

	res, err := e.RecordAnswer(context.Background(), answer(true))
	require.NoError(t, err)

	p := res.Progress
	assert.Equal(t, 1, p.Attempts)
	assert.Equal(t, 1, p.Correct)
	assert.Equal(t, 100, p.MasteryPct)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.Level, "below the 3-correct threshold the level stays at its default")
	assert.False(t, res.LevelUp)
	assert.Equal(t, OutcomeCorrect, res.Outcome)
	assert.Equal(t, "add-10", res.NextSkillID)
	assert.Equal(t, "ex-add-10", res.NextExercise.Exercise.ID)
	assert.Equal(t, []string{"add-10"}, sel.calls)

	assert.Equal(t, 5, res.Quality)
	assert.Equal(t, 1, res.Review.IntervalDays)
	assert.Equal(t, 1, res.Review.Repetitions)
	stored, err := mem.GetReview(context.Background(), kid, "add-10")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, res.Review.NextReviewDate, stored.NextReviewDate)

	attempts := mem.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, "ex-1", attempts[0].ExerciseID)
	assert.Equal(t, fixedNow, attempts[0].Timestamp)
}

func TestRecordAnswer_MasteryUnlocksNextSkill(t *testing.T) {
	e, mem, sel := setup(t, true)
	preset(t, mem, func(p *store.SkillProgress) {
		p.Attempts, p.Correct, p.Level = 22, 19, 4
	})

	res, err := e.RecordAnswer(context.Background(), answer(true))
	require.NoError(t, err)

	assert.Equal(t, OutcomeMastery, res.Outcome)
	assert.True(t, res.Mastered)
	assert.Equal(t, 5, res.Progress.Level)
	assert.Equal(t, 87, res.Progress.MasteryPct)
	require.NotNil(t, res.Progress.MasteredAt)
	assert.Equal(t, fixedNow, *res.Progress.MasteredAt)
	assert.Equal(t, "add-20", res.NextSkillID)
	assert.Equal(t, "add-20", res.UnlockedSkillID)
	assert.Equal(t, []string{"add-20"}, sel.calls)

	unlocks, err := mem.ListUnlocks(context.Background(), kid)
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.Equal(t, "add-10", unlocks[0].UnlockedBy)

	// Later correct answers neither move masteredAt nor unlock again.
	e.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	res, err = e.RecordAnswer(context.Background(), answer(true))
	require.NoError(t, err)
	assert.False(t, res.Mastered)
	assert.NotEqual(t, OutcomeMastery, res.Outcome)
	assert.Equal(t, "add-10", res.NextSkillID)
	assert.Equal(t, fixedNow, *res.Progress.MasteredAt)

	unlocks, err = mem.ListUnlocks(context.Background(), kid)
	require.NoError(t, err)
	assert.Len(t, unlocks, 1)
}

func TestRecordAnswer_MasteryStaysInSubject(t *testing.T) {
	e, mem, _ := setup(t, false)
	require.NoError(t, mem.UpsertSkill(context.Background(), skillgraph.Skill{ID: "fr-add", Subject: "french", Domain: "addition", SortOrder: 2, Status: skillgraph.StatusPublished}))
	preset(t, mem, func(p *store.SkillProgress) {
		p.Attempts, p.Correct, p.Level = 20, 19, 4
	})

	res, err := e.RecordAnswer(context.Background(), answer(true))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDomainComplete, res.Outcome, "a same-named domain of another subject is not next")
	assert.Empty(t, res.UnlockedSkillID)
}

func TestRecordAnswer_DomainComplete(t *testing.T) {
	e, mem, _ := setup(t, false)
	preset(t, mem, func(p *store.SkillProgress) {
		p.Attempts, p.Correct, p.Level = 20, 19, 4
	})

	res, err := e.RecordAnswer(context.Background(), answer(true))
	require.NoError(t, err)

	assert.Equal(t, OutcomeDomainComplete, res.Outcome)
	assert.Equal(t, "add-10", res.NextSkillID)
	assert.Empty(t, res.UnlockedSkillID)
	assert.Contains(t, res.Reason, "addition")

	unlocks, err := mem.ListUnlocks(context.Background(), kid)
	require.NoError(t, err)
	assert.Empty(t, unlocks)
}

func TestRecordAnswer_LevelUp(t *testing.T) {
	e, mem, _ := setup(t, true)
	preset(t, mem, func(p *store.SkillProgress) {
		p.Attempts, p.Correct, p.CurrentStreak = 5, 5, 5
	})

	res, err := e.RecordAnswer(context.Background(), answer(true))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLevelUp, res.Outcome, "level-up outranks the streak milestone")
	assert.Equal(t, 2, res.Progress.Level)
	assert.Contains(t, res.Reason, "level 2")
}

func TestRecordAnswer_Struggling(t *testing.T) {
	e, mem, _ := setup(t, true)
	preset(t, mem, func(p *store.SkillProgress) { p.Attempts = 2 })

	res, err := e.RecordAnswer(context.Background(), answer(false))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStruggling, res.Outcome)
	assert.Equal(t, "add-10", res.NextSkillID)
}

func TestRecordAnswer_StreakMilestone(t *testing.T) {
	e, mem, _ := setup(t, true)
	preset(t, mem, func(p *store.SkillProgress) {
		p.Attempts, p.Correct, p.CurrentStreak, p.BestStreak = 4, 2, 2, 2
	})

	res, err := e.RecordAnswer(context.Background(), answer(true))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStreak, res.Outcome)
	assert.Equal(t, 3, res.Progress.CurrentStreak)
	assert.Equal(t, 3, res.Progress.BestStreak)
}

func TestRecordAnswer_WrongResetsStreak(t *testing.T) {
	e, mem, _ := setup(t, true)
	preset(t, mem, func(p *store.SkillProgress) {
		p.Attempts, p.Correct, p.CurrentStreak, p.BestStreak = 4, 4, 4, 4
	})

	res, err := e.RecordAnswer(context.Background(), answer(false))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Progress.CurrentStreak)
	assert.Equal(t, 4, res.Progress.BestStreak)
	assert.Equal(t, OutcomeIncorrect, res.Outcome)
	assert.Less(t, res.Quality, 3)
	assert.Equal(t, 0, res.Review.Repetitions)
}

func TestRecordAnswer_SelectionFailureKeepsProgress(t *testing.T) {
	e, mem, sel := setup(t, true)
	sel.err = pool.ErrNoContentAvailable

	res, err := e.RecordAnswer(context.Background(), answer(true))
	require.ErrorIs(t, err, pool.ErrNoContentAvailable)
	assert.True(t, res.Committed)
	assert.Equal(t, 1, res.Progress.Attempts)

	p, err := mem.GetProgress(context.Background(), kid, "add-10")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Attempts)
	assert.Len(t, mem.Attempts(), 1)
}

func TestRecordAnswer_FailedUnlockCommitsNothing(t *testing.T) {
	e, mem, sel := setup(t, true)
	preset(t, mem, func(p *store.SkillProgress) {
		p.Attempts, p.Correct, p.Level = 22, 19, 4
	})
	mem.UnlockErr = errors.New("db down")

	res, err := e.RecordAnswer(context.Background(), answer(true))
	require.ErrorContains(t, err, "db down")
	assert.False(t, res.Committed)
	assert.Empty(t, sel.calls)

	p, err := mem.GetProgress(context.Background(), kid, "add-10")
	require.NoError(t, err)
	assert.Equal(t, 22, p.Attempts)
	assert.Nil(t, p.MasteredAt, "mastery must not be stamped without its unlock")
	assert.Empty(t, mem.Attempts())
	review, err := mem.GetReview(context.Background(), kid, "add-10")
	require.NoError(t, err)
	assert.Nil(t, review)

	// The retry masters the skill and unlocks the next one exactly once.
	mem.UnlockErr = nil
	res, err = e.RecordAnswer(context.Background(), answer(true))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMastery, res.Outcome)
	assert.Equal(t, 23, res.Progress.Attempts)
	require.NotNil(t, res.Progress.MasteredAt)
	assert.Equal(t, "add-20", res.UnlockedSkillID)
	assert.Len(t, mem.Attempts(), 1)

	unlocks, err := mem.ListUnlocks(context.Background(), kid)
	require.NoError(t, err)
	require.Len(t, unlocks, 1)
	assert.Equal(t, "add-20", unlocks[0].SkillID)
}

// heldSelector blocks its first call until release is closed.
type heldSelector struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *heldSelector) SelectOrGenerate(_ context.Context, skillID, _, _, _ string) (pool.Selection, error) {
	first := false
	h.once.Do(func() { first = true })
	if first {
		close(h.entered)
		<-h.release
	}
	return pool.Selection{Exercise: exercise.Exercise{ID: "ex-" + skillID, SkillID: skillID}, Source: pool.SourcePool}, nil
}

func TestRecordAnswer_SlowSelectionDoesNotHoldLock(t *testing.T) {
	_, mem, _ := setup(t, true)
	sel := &heldSelector{entered: make(chan struct{}), release: make(chan struct{})}
	e := New(Deps{Skills: mem, Progress: mem, Reviews: mem, Answers: mem}, sel, nil, config.Static(config.DefaultEngine()), nil)
	e.Now = func() time.Time { return fixedNow }

	firstErr := make(chan error, 1)
	go func() {
		_, err := e.RecordAnswer(context.Background(), answer(true))
		firstErr <- err
	}()
	<-sel.entered

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := e.RecordAnswer(ctx, answer(true))
	require.NoError(t, err, "second answer waited on the first one's selection")
	assert.Equal(t, 2, res.Progress.Attempts)

	close(sel.release)
	require.NoError(t, <-firstErr)
}

func TestRecordAnswer_UnknownSkill(t *testing.T) {
	e, _, _ := setup(t, true)
	a := answer(true)
	a.SkillID = "missing"

	_, err := e.RecordAnswer(context.Background(), a)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordAnswer_ConcurrentSubmissionsSerialized(t *testing.T) {
	e, mem, _ := setup(t, true)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := e.RecordAnswer(context.Background(), answer(i%2 == 0)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	p, err := mem.GetProgress(context.Background(), kid, "add-10")
	require.NoError(t, err)
	assert.Equal(t, 20, p.Attempts)
	assert.Equal(t, 10, p.Correct)
}

func TestRecordAnswer_Invariants(t *testing.T) {
	e, mem, _ := setup(t, true)
	rnd := random.Seeded(42)

	prevLevel, prevBest := 1, 0
	for i := 0; i < 200; i++ {
		a := answer(rnd.Float64() < 0.75)
		a.TimeSpentSecs = rnd.IntN(60)
		a.HintsUsed = rnd.IntN(2)
		res, err := e.RecordAnswer(context.Background(), a)
		require.NoError(t, err)

		p := res.Progress
		assert.Equal(t, MasteryPct(p.Correct, p.Attempts), p.MasteryPct)
		assert.GreaterOrEqual(t, p.Level, prevLevel)
		assert.GreaterOrEqual(t, p.BestStreak, prevBest)
		assert.GreaterOrEqual(t, res.Review.IntervalDays, 1)
		assert.GreaterOrEqual(t, res.Review.EaseFactor, 1.3)
		if !a.Correct {
			assert.Zero(t, p.CurrentStreak)
		}
		prevLevel, prevBest = p.Level, p.BestStreak
	}

	unlocks, err := mem.ListUnlocks(context.Background(), kid)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(unlocks), 1)
}

func TestEvaluate_Priority(t *testing.T) {
	eng := config.DefaultEngine()
	tests := []struct {
		name string
		turn Turn
		want Outcome
	}{
		{"mastery beats level-up", Turn{Correct: true, Mastered: true, LevelUp: true}, OutcomeMastery},
		{"level-up beats struggling", Turn{LevelUp: true, Progress: store.SkillProgress{Attempts: 10, MasteryPct: 30}}, OutcomeLevelUp},
		{"struggling beats streak", Turn{Correct: true, Progress: store.SkillProgress{Attempts: 10, MasteryPct: 30, CurrentStreak: 3}}, OutcomeStruggling},
		{"struggling needs 3 attempts", Turn{Progress: store.SkillProgress{Attempts: 2, MasteryPct: 0}}, OutcomeIncorrect},
		{"streak of 6", Turn{Correct: true, Progress: store.SkillProgress{Attempts: 10, MasteryPct: 60, CurrentStreak: 6}}, OutcomeStreak},
		{"streak of 4 is no milestone", Turn{Correct: true, Progress: store.SkillProgress{Attempts: 10, MasteryPct: 60, CurrentStreak: 4}}, OutcomeCorrect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.turn, eng))
		})
	}
}

func TestTally_MasteryPctRounding(t *testing.T) {
	assert.Equal(t, 67, MasteryPct(2, 3))
	assert.Equal(t, 33, MasteryPct(1, 3))
	assert.Equal(t, 0, MasteryPct(0, 0))
}
