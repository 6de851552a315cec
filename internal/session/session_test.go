package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/contentgen"
	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/llm"
	"github.com/abhisek/kidquest/internal/pool"
	"github.com/abhisek/kidquest/internal/progression"
	"github.com/abhisek/kidquest/internal/random"
	"github.com/abhisek/kidquest/internal/skillgraph"
	"github.com/abhisek/kidquest/internal/store"
	"github.com/abhisek/kidquest/internal/store/storetest"
)

var start = time.Date(2026, 5, 4, 16, 0, 0, 0, time.UTC)

type fakeRecorder struct {
	results []progression.Result
	err     error
	answers []progression.Answer
}

func (f *fakeRecorder) RecordAnswer(_ context.Context, a progression.Answer) (progression.Result, error) {
	f.answers = append(f.answers, a)
	var r progression.Result
	if len(f.results) > 0 {
		r = f.results[0]
		f.results = f.results[1:]
	}
	if r.NextSkillID == "" {
		r.NextSkillID = a.SkillID
	}
	r.Committed = true
	return r, f.err
}

type fixture struct {
	svc *Service
	mem *storetest.Memory
	rec *fakeRecorder
	ex  exercise.Exercise
	now time.Time
}

func setup(t *testing.T, lessons LessonGenerator) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := storetest.NewMemory()
	require.NoError(t, mem.UpsertSkill(ctx, skillgraph.Skill{
		ID: "add-10", Domain: "addition", Description: "Add within 10", SortOrder: 1, Difficulty: 1, Status: skillgraph.StatusPublished,
	}))
	c := exercise.FreeInput{Question: "3 + 4 ?", Answer: "7"}
	ex, err := mem.InsertExercise(ctx, exercise.Exercise{
		SkillID: "add-10", Type: c.Type(), Difficulty: 1, Content: c, Validated: true, Language: "fr",
	})
	require.NoError(t, err)

	f := &fixture{mem: mem, rec: &fakeRecorder{}, ex: ex, now: start}
	deps := Deps{Sessions: mem, Skills: mem, Students: mem, Exercises: mem}
	mgr := pool.NewManager(pool.Deps{Skills: mem, Students: mem, Progress: mem, Exercises: mem, Attempts: mem},
		nil, config.Static(config.DefaultEngine()), random.Seeded(1), nil)
	f.svc = New(deps, f.rec, mgr, lessons, config.Static(config.DefaultEngine()), nil)
	f.svc.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) submit(t *testing.T, id string, correct bool) StepResult {
	t.Helper()
	f.now = f.now.Add(30 * time.Second)
	res, err := f.svc.SubmitAnswer(context.Background(), id, Submission{ExerciseID: f.ex.ID, Correct: correct, TimeSpentSecs: 8})
	require.NoError(t, err)
	return res
}

func TestCreate_StepBudget(t *testing.T) {
	f := setup(t, nil)

	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice, TargetMinutes: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, sess.TotalSteps)
	assert.True(t, sess.TheoryDone, "practice starts directly with exercises")
	assert.Equal(t, string(StatusActive), sess.Status)

	sess, err = f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindReview})
	require.NoError(t, err)
	assert.Equal(t, 10, sess.TargetMinutes)
	assert.Equal(t, 10, sess.TotalSteps)
}

func TestCreate_Validation(t *testing.T) {
	f := setup(t, nil)

	_, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: "marathon"})
	require.ErrorIs(t, err, ErrInvalidKind)

	_, err = f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "nope", Kind: KindLearn})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestLearnSession_TheoryFirst(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{
		"title": "Ajouter", "explanation": "On met ensemble.", "worked_example": "1. 3 + 4 = 7"
	}`)})
	f := setup(t, contentgen.New(mock, contentgen.DefaultConfig(), nil, nil))

	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindLearn, TargetMinutes: 3})
	require.NoError(t, err)
	assert.False(t, sess.TheoryDone)
	assert.Contains(t, sess.Lesson, "On met ensemble.")

	_, err = f.svc.SubmitAnswer(context.Background(), sess.ID, Submission{ExerciseID: f.ex.ID, Correct: true})
	require.ErrorIs(t, err, ErrTheoryPending)
	_, err = f.svc.NextExercise(context.Background(), sess.ID, "", "")
	require.ErrorIs(t, err, ErrTheoryPending)

	sess, err = f.svc.CompleteTheory(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, sess.TheoryDone)

	sel, err := f.svc.NextExercise(context.Background(), sess.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, f.ex.ID, sel.Exercise.ID)

	res := f.submit(t, sess.ID, true)
	assert.Equal(t, 1, res.NewStep)
}

func TestLearnSession_LessonFallback(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	f := setup(t, contentgen.New(mock, contentgen.DefaultConfig(), nil, nil))

	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindLearn})
	require.NoError(t, err)
	assert.Contains(t, sess.Lesson, "Add within 10")
}

func TestSubmitAnswer_CompletesWithRecap(t *testing.T) {
	f := setup(t, nil)
	f.rec.results = []progression.Result{{}, {LevelUp: true}, {}}

	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice, TargetMinutes: 3})
	require.NoError(t, err)
	require.Equal(t, 3, sess.TotalSteps)

	r1 := f.submit(t, sess.ID, true)
	assert.False(t, r1.SessionComplete)
	assert.Equal(t, 1, r1.NewStep)
	r2 := f.submit(t, sess.ID, true)
	assert.False(t, r2.SessionComplete)
	r3 := f.submit(t, sess.ID, true)
	require.True(t, r3.SessionComplete)
	require.NotNil(t, r3.Recap)

	rules := config.DefaultEngine().Session
	want := Recap{
		Completed:   3,
		Correct:     3,
		AccuracyPct: 100,
		XP:          3*rules.XPPerCorrect + rules.StreakBonusXP + rules.CompletionXP,
		ElapsedSecs: 90,
		BestStreak:  3,
		StreakBonus: true,
		LevelUp:     true,
	}
	assert.Equal(t, want, *r3.Recap)

	stored, err := f.mem.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), stored.Status)

	_, err = f.svc.SubmitAnswer(context.Background(), sess.ID, Submission{ExerciseID: f.ex.ID})
	require.ErrorIs(t, err, ErrSessionClosed)

	recap, err := f.svc.Complete(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, want, recap, "completing twice returns the stored recap")

	for _, a := range f.rec.answers {
		assert.Equal(t, sess.ID, a.SessionID)
		assert.Equal(t, "add-10", a.SkillID)
	}
}

func TestSubmitAnswer_SessionStreakIsLocal(t *testing.T) {
	f := setup(t, nil)
	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice, TargetMinutes: 10})
	require.NoError(t, err)

	f.submit(t, sess.ID, true)
	f.submit(t, sess.ID, true)
	res := f.submit(t, sess.ID, false)
	assert.Equal(t, 0, res.Session.Streak)
	assert.Equal(t, 2, res.Session.BestStreak)
	assert.Equal(t, 0, res.Session.StreakBonusXP)
	assert.Equal(t, 2, res.Session.Correct)
	assert.Equal(t, 3, res.Session.Completed)
}

func TestSubmitAnswer_TimeBudget(t *testing.T) {
	f := setup(t, nil)
	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice, TargetMinutes: 5})
	require.NoError(t, err)

	f.now = f.now.Add(6 * time.Minute)
	res, err := f.svc.SubmitAnswer(context.Background(), sess.ID, Submission{ExerciseID: f.ex.ID, Correct: false})
	require.NoError(t, err)
	require.True(t, res.SessionComplete)
	assert.Equal(t, 0, res.Recap.XP, "no completion bonus when time ran out")
	assert.Equal(t, 0, res.Recap.AccuracyPct)
}

func TestSubmitAnswer_NoContentKeepsAnswer(t *testing.T) {
	f := setup(t, nil)
	f.rec.err = pool.ErrNoContentAvailable
	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice})
	require.NoError(t, err)

	res, err := f.svc.SubmitAnswer(context.Background(), sess.ID, Submission{ExerciseID: f.ex.ID, Correct: true})
	require.ErrorIs(t, err, pool.ErrNoContentAvailable)
	assert.Equal(t, 1, res.NewStep)
	assert.False(t, res.SessionComplete)

	stored, err := f.mem.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Completed)
	assert.Equal(t, string(StatusActive), stored.Status)
}

func TestSubmitAnswer_UncommittedFailure(t *testing.T) {
	f := setup(t, nil)
	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice})
	require.NoError(t, err)

	rec := &uncommitted{err: store.ErrConflict}
	f.svc.recorder = rec
	_, err = f.svc.SubmitAnswer(context.Background(), sess.ID, Submission{ExerciseID: f.ex.ID, Correct: true})
	require.ErrorIs(t, err, store.ErrConflict)

	stored, err := f.mem.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CurrentStep)
}

type uncommitted struct{ err error }

func (u *uncommitted) RecordAnswer(context.Context, progression.Answer) (progression.Result, error) {
	return progression.Result{}, u.err
}

func TestAbandon(t *testing.T) {
	f := setup(t, nil)
	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice})
	require.NoError(t, err)
	f.submit(t, sess.ID, true)

	require.NoError(t, f.svc.Abandon(context.Background(), sess.ID))
	require.NoError(t, f.svc.Abandon(context.Background(), sess.ID), "abandon is idempotent")

	stored, err := f.mem.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusAbandoned), stored.Status)
	assert.Nil(t, stored.Recap)
	assert.Len(t, f.rec.answers, 1, "recorded answers are kept")

	_, err = f.svc.Complete(context.Background(), sess.ID)
	require.ErrorIs(t, err, ErrSessionClosed)
	_, err = f.svc.SubmitAnswer(context.Background(), sess.ID, Submission{ExerciseID: f.ex.ID})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestComplete_Early(t *testing.T) {
	f := setup(t, nil)
	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice, TargetMinutes: 10})
	require.NoError(t, err)
	f.submit(t, sess.ID, true)
	f.submit(t, sess.ID, false)

	recap, err := f.svc.Complete(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, recap.AccuracyPct)
	assert.Equal(t, config.DefaultEngine().Session.XPPerCorrect, recap.XP)

	err = f.svc.Abandon(context.Background(), sess.ID)
	require.True(t, errors.Is(err, ErrSessionClosed))
}

func TestEndToEnd_WithProgression(t *testing.T) {
	f := setup(t, nil)
	mem := f.mem
	eng := config.Static(config.DefaultEngine())
	mgr := pool.NewManager(pool.Deps{Skills: mem, Students: mem, Progress: mem, Exercises: mem, Attempts: mem},
		nil, eng, random.Seeded(9), nil)
	prog := progression.New(progression.Deps{Skills: mem, Progress: mem, Reviews: mem, Answers: mem}, mgr, nil, eng, nil)
	f.svc.recorder = prog

	sess, err := f.svc.Create(context.Background(), CreateRequest{StudentID: "kid", SkillID: "add-10", Kind: KindPractice, TargetMinutes: 3})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		f.submit(t, sess.ID, true)
	}

	p, err := mem.GetProgress(context.Background(), "kid", "add-10")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Attempts)

	stored, err := mem.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusCompleted), stored.Status)
	require.NotNil(t, stored.Recap)
	assert.Equal(t, 100, stored.Recap.AccuracyPct)
}
