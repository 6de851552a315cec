package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/skillgraph"
	"github.com/abhisek/kidquest/internal/spacedrep"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSkills(t *testing.T, s *Store) {
	t.Helper()
	skills := []skillgraph.Skill{
		{ID: "count-10", Subject: "math", Domain: "numbers", Difficulty: 1, SortOrder: 1, Status: skillgraph.StatusPublished},
		{ID: "count-draft", Subject: "math", Domain: "numbers", Difficulty: 2, SortOrder: 2, Status: skillgraph.StatusDraft},
		{ID: "count-100", Subject: "math", Domain: "numbers", Difficulty: 2, SortOrder: 3, Status: skillgraph.StatusPublished, Prerequisites: []string{"count-10"}},
	}
	for _, sk := range skills {
		if err := s.SkillRepo().UpsertSkill(context.Background(), sk); err != nil {
			t.Fatalf("upsert skill %s: %v", sk.ID, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.Client() == nil {
		t.Fatal("expected non-nil ent client")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestSkillRepo_NextInDomain(t *testing.T) {
	s := openTestStore(t)
	seedSkills(t, s)
	ctx := context.Background()
	repo := s.SkillRepo()

	next, err := repo.NextInDomain(ctx, "count-10")
	if err != nil {
		t.Fatalf("NextInDomain: %v", err)
	}
	if next == nil || next.ID != "count-100" {
		t.Fatalf("next = %+v, want count-100 (draft skipped)", next)
	}

	next, err = repo.NextInDomain(ctx, "count-100")
	if err != nil {
		t.Fatalf("NextInDomain at end: %v", err)
	}
	if next != nil {
		t.Errorf("expected nil at domain end, got %+v", next)
	}

	if _, err := repo.GetSkill(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSkill(missing) err = %v, want ErrNotFound", err)
	}
}

func TestSkillRepo_NextInDomainStaysInSubject(t *testing.T) {
	s := openTestStore(t)
	seedSkills(t, s)
	ctx := context.Background()
	repo := s.SkillRepo()

	// Same domain name, other subject, sorted between count-10 and count-100.
	other := skillgraph.Skill{ID: "nombres-10", Subject: "french", Domain: "numbers", Difficulty: 1, SortOrder: 2, Status: skillgraph.StatusPublished}
	if err := repo.UpsertSkill(ctx, other); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	next, err := repo.NextInDomain(ctx, "count-10")
	if err != nil {
		t.Fatalf("NextInDomain: %v", err)
	}
	if next == nil || next.ID != "count-100" {
		t.Fatalf("next = %+v, want count-100 from the same subject", next)
	}

	next, err = repo.NextInDomain(ctx, "nombres-10")
	if err != nil {
		t.Fatalf("NextInDomain: %v", err)
	}
	if next != nil {
		t.Errorf("french numbers has one skill, got next %+v", next)
	}
}

func TestSkillRepo_UpsertUpdates(t *testing.T) {
	s := openTestStore(t)
	seedSkills(t, s)
	ctx := context.Background()

	sk, _ := s.SkillRepo().GetSkill(ctx, "count-draft")
	sk.Status = skillgraph.StatusPublished
	if err := s.SkillRepo().UpsertSkill(ctx, sk); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, _ := s.SkillRepo().GetSkill(ctx, "count-draft")
	if got.Status != skillgraph.StatusPublished {
		t.Errorf("status = %q, want published", got.Status)
	}
}

func TestProgressRepo_OptimisticConcurrency(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.ProgressRepo()

	p, err := repo.GetOrCreateProgress(ctx, "kid", "count-10")
	if err != nil {
		t.Fatalf("GetOrCreateProgress: %v", err)
	}
	if p.Level != 1 || p.Attempts != 0 {
		t.Fatalf("fresh progress = %+v", p)
	}

	stale := p
	p.Attempts, p.Correct, p.MasteryPct = 1, 1, 100
	if err := repo.SaveProgress(ctx, &p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if p.Version != 1 {
		t.Errorf("version = %d, want 1", p.Version)
	}

	stale.Attempts = 5
	if err := repo.SaveProgress(ctx, &stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale save err = %v, want ErrConflict", err)
	}

	again, err := repo.GetOrCreateProgress(ctx, "kid", "count-10")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Attempts != 1 || again.MasteryPct != 100 {
		t.Errorf("reloaded = %+v", again)
	}
}

func TestExerciseRepo_ListValidatedSorted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.ExerciseRepo()

	for _, d := range []int{3, 1, 2} {
		_, err := repo.InsertExercise(ctx, exercise.Exercise{
			SkillID:    "count-10",
			Type:       exercise.TypeFreeInput,
			Difficulty: d,
			Content:    exercise.FreeInput{Question: "2+2?", Answer: "4"},
			Validated:  true,
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	_, err := repo.InsertExercise(ctx, exercise.Exercise{
		SkillID:    "count-10",
		Type:       exercise.TypeFreeInput,
		Difficulty: 1,
		Content:    exercise.FreeInput{Question: "draft", Answer: "x"},
	})
	if err != nil {
		t.Fatalf("insert unvalidated: %v", err)
	}

	list, err := repo.ListValidated(ctx, "count-10")
	if err != nil {
		t.Fatalf("ListValidated: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d validated, want 3", len(list))
	}
	for i, want := range []int{1, 2, 3} {
		if list[i].Difficulty != want {
			t.Errorf("list[%d].Difficulty = %d, want %d", i, list[i].Difficulty, want)
		}
	}
	if _, ok := list[0].Content.(exercise.FreeInput); !ok {
		t.Errorf("content type = %T, want FreeInput", list[0].Content)
	}
	if n, _ := repo.CountValidated(ctx, "count-10"); n != 3 {
		t.Errorf("CountValidated = %d, want 3", n)
	}
}

func TestAttemptRepo_RecentExerciseIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.AttemptRepo()
	now := time.Now().UTC()

	attempts := []Attempt{
		{StudentID: "kid", SkillID: "count-10", ExerciseID: "old", Timestamp: now.Add(-48 * time.Hour)},
		{StudentID: "kid", SkillID: "count-10", ExerciseID: "fresh", Timestamp: now.Add(-time.Hour)},
		{StudentID: "kid", SkillID: "count-10", ExerciseID: "fresh", Timestamp: now.Add(-time.Minute)},
		{StudentID: "other", SkillID: "count-10", ExerciseID: "theirs", Timestamp: now},
	}
	for _, a := range attempts {
		if err := repo.AppendAttempt(ctx, a); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	ids, err := repo.RecentExerciseIDs(ctx, "kid", "count-10", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("RecentExerciseIDs: %v", err)
	}
	if len(ids) != 1 || !ids["fresh"] {
		t.Errorf("ids = %v, want only fresh", ids)
	}
}

func TestUnlockRepo_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.UnlockRepo()

	u := Unlock{StudentID: "kid", SkillID: "count-100", UnlockedBy: "count-10"}
	created, err := repo.UpsertUnlock(ctx, u)
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	created, err = repo.UpsertUnlock(ctx, u)
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}
	list, _ := repo.ListUnlocks(ctx, "kid")
	if len(list) != 1 {
		t.Errorf("got %d unlocks, want 1", len(list))
	}
}

func answerCommit(p *SkillProgress, now time.Time) AnswerCommit {
	return AnswerCommit{
		Progress: p,
		Review:   spacedrep.State{IntervalDays: 1, EaseFactor: 2.5, Repetitions: 1, NextReviewDate: now.Add(24 * time.Hour), LastReviewDate: now},
		Attempt:  Attempt{StudentID: p.StudentID, SkillID: p.SkillID, ExerciseID: "ex-1", Correct: true, Timestamp: now},
		Unlock:   &Unlock{StudentID: p.StudentID, SkillID: "count-100", UnlockedBy: p.SkillID, UnlockedAt: now},
	}
}

func TestAnswerRepo_CommitWritesEverything(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p, err := s.ProgressRepo().GetOrCreateProgress(ctx, "kid", "count-10")
	if err != nil {
		t.Fatalf("GetOrCreateProgress: %v", err)
	}
	p.Attempts, p.Correct, p.Level = 1, 1, 5
	p.MasteredAt = &now

	created, err := s.AnswerRepo().CommitAnswer(ctx, answerCommit(&p, now))
	if err != nil || !created {
		t.Fatalf("CommitAnswer: created=%v err=%v", created, err)
	}
	if p.Version != 1 {
		t.Errorf("version = %d, want 1 after commit", p.Version)
	}

	stored, _ := s.ProgressRepo().GetProgress(ctx, "kid", "count-10")
	if stored.Attempts != 1 || stored.MasteredAt == nil {
		t.Errorf("stored progress = %+v", stored)
	}
	if rv, _ := s.ReviewRepo().GetReview(ctx, "kid", "count-10"); rv == nil {
		t.Error("review not stored")
	}
	ids, _ := s.AttemptRepo().RecentExerciseIDs(ctx, "kid", "count-10", time.Time{})
	if !ids["ex-1"] {
		t.Errorf("attempt not stored: %v", ids)
	}
	if list, _ := s.UnlockRepo().ListUnlocks(ctx, "kid"); len(list) != 1 {
		t.Errorf("got %d unlocks, want 1", len(list))
	}

	created, err = s.AnswerRepo().CommitAnswer(ctx, answerCommit(&p, now))
	if err != nil || created {
		t.Fatalf("second commit: created=%v err=%v", created, err)
	}
}

func TestAnswerRepo_ConflictRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	p, err := s.ProgressRepo().GetOrCreateProgress(ctx, "kid", "count-10")
	if err != nil {
		t.Fatalf("GetOrCreateProgress: %v", err)
	}
	stale := p
	p.Attempts = 1
	if err := s.ProgressRepo().SaveProgress(ctx, &p); err != nil {
		t.Fatalf("SaveProgress: %v", err)
	}

	stale.Attempts = 7
	_, err = s.AnswerRepo().CommitAnswer(ctx, answerCommit(&stale, now))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if stale.Version != 0 {
		t.Errorf("failed commit bumped version to %d", stale.Version)
	}

	if rv, _ := s.ReviewRepo().GetReview(ctx, "kid", "count-10"); rv != nil {
		t.Errorf("review survived rollback: %+v", rv)
	}
	if ids, _ := s.AttemptRepo().RecentExerciseIDs(ctx, "kid", "count-10", time.Time{}); len(ids) != 0 {
		t.Errorf("attempt survived rollback: %v", ids)
	}
	if list, _ := s.UnlockRepo().ListUnlocks(ctx, "kid"); len(list) != 0 {
		t.Errorf("unlock survived rollback: %+v", list)
	}
	stored, _ := s.ProgressRepo().GetProgress(ctx, "kid", "count-10")
	if stored.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", stored.Attempts)
	}
}

func TestReviewRepo_SaveAndDue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.ReviewRepo()
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	got, err := repo.GetReview(ctx, "kid", "count-10")
	if err != nil || got != nil {
		t.Fatalf("GetReview empty = %v, %v", got, err)
	}

	st := spacedrep.NextReview(nil, 5, now, spacedrep.DefaultParams())
	if err := repo.SaveReview(ctx, "kid", "count-10", st); err != nil {
		t.Fatalf("save: %v", err)
	}
	st2 := spacedrep.NextReview(&st, 5, now, spacedrep.DefaultParams())
	if err := repo.SaveReview(ctx, "kid", "count-10", st2); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err = repo.GetReview(ctx, "kid", "count-10")
	if err != nil || got == nil {
		t.Fatalf("GetReview = %v, %v", got, err)
	}
	if got.Repetitions != 2 || got.IntervalDays != 6 {
		t.Errorf("stored state = %+v", got)
	}

	due, _ := repo.DueReviews(ctx, "kid", now.AddDate(0, 0, 1))
	if len(due) != 0 {
		t.Errorf("due after 1 day = %d, want 0", len(due))
	}
	due, _ = repo.DueReviews(ctx, "kid", now.AddDate(0, 0, 7))
	if len(due) != 1 || due[0].SkillID != "count-10" {
		t.Errorf("due after 7 days = %+v", due)
	}
}

func TestSessionRepo_Roundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.SessionRepo()

	sess := &LearningSession{
		ID: "s1", StudentID: "kid", SkillID: "count-10", CurrentSkillID: "count-10",
		Kind: "practice", Status: "active", TotalSteps: 5, TargetMinutes: 5,
	}
	if err := repo.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	sess.CurrentStep, sess.Completed, sess.Correct = 5, 5, 4
	sess.Status = "completed"
	end := sess.StartedAt.Add(3 * time.Minute)
	sess.EndedAt = &end
	sess.Recap = &Recap{Completed: 5, Correct: 4, AccuracyPct: 80, XP: 45}
	if err := repo.SaveSession(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Recap == nil || got.Recap.AccuracyPct != 80 || got.Recap.XP != 45 {
		t.Errorf("recap = %+v", got.Recap)
	}
	if _, err := repo.GetSession(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing session err = %v", err)
	}
}

func TestEventRepo_UsageAggregates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.EventRepo()

	events := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude-haiku-4-5", Purpose: "exercise-gen", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true},
		{Provider: "anthropic", Model: "claude-haiku-4-5", Purpose: "exercise-gen", InputTokens: 120, OutputTokens: 40, LatencyMs: 400, Success: true},
		{Provider: "anthropic", Model: "claude-haiku-4-5", Purpose: "hint", InputTokens: 30, OutputTokens: 10, LatencyMs: 100, Success: false, ErrorMessage: "boom"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("LLMUsageByPurpose: %v", err)
	}
	found := false
	for _, u := range byPurpose {
		if u.Purpose == "exercise-gen" {
			found = true
			if u.Calls != 2 || u.InputTokens != 220 || u.OutputTokens != 90 || u.AvgLatencyMs != 300 {
				t.Errorf("exercise-gen usage = %+v", u)
			}
		}
	}
	if !found {
		t.Fatalf("no exercise-gen row in %+v", byPurpose)
	}

	list, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("QueryLLMEvents: %v", err)
	}
	if len(list) != 2 || list[0].Purpose != "hint" {
		t.Errorf("newest-first list = %+v", list)
	}

	e, err := repo.GetLLMEvent(ctx, list[0].ID)
	if err != nil || e == nil || e.ErrorMessage != "boom" {
		t.Errorf("GetLLMEvent = %+v, %v", e, err)
	}
}

func TestStudentRepo_UpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	repo := s.StudentRepo()

	if _, err := repo.GetStudent(ctx, "kid"); !IsNotFound(err) {
		t.Fatalf("GetStudent unknown = %v, want ErrNotFound", err)
	}

	age := 7
	if err := repo.UpsertStudent(ctx, Student{ID: "kid", DisplayName: "Léa", Age: &age, Language: "fr", Method: "montessori"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpsertStudent(ctx, Student{ID: "kid", DisplayName: "Léa", Language: "en", Method: "playful"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetStudent(ctx, "kid")
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	if got.Language != "en" || got.Method != "playful" {
		t.Errorf("student = %+v, want en/playful", got)
	}
	if got.Age != nil {
		t.Errorf("age = %d, want cleared", *got.Age)
	}
}
