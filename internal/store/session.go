package store

import (
	"context"
	"fmt"

	"github.com/abhisek/kidquest/ent"
	"github.com/abhisek/kidquest/ent/learningsession"
)

type sessionRepo struct {
	client *ent.Client
}

func (r *sessionRepo) CreateSession(ctx context.Context, s *LearningSession) error {
	create := r.client.LearningSession.Create().
		SetID(s.ID).
		SetStudentID(s.StudentID).
		SetSkillID(s.SkillID).
		SetCurrentSkillID(s.CurrentSkillID).
		SetKind(learningsession.Kind(s.Kind)).
		SetStatus(learningsession.Status(s.Status)).
		SetTargetMinutes(s.TargetMinutes).
		SetTotalSteps(s.TotalSteps).
		SetLesson(s.Lesson)
	if !s.StartedAt.IsZero() {
		create.SetStartedAt(s.StartedAt)
	}
	row, err := create.Save(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.StartedAt = row.StartedAt
	return nil
}

func (r *sessionRepo) GetSession(ctx context.Context, id string) (LearningSession, error) {
	row, err := r.client.LearningSession.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return LearningSession{}, fmt.Errorf("session %q: %w", id, ErrNotFound)
		}
		return LearningSession{}, fmt.Errorf("get session %q: %w", id, err)
	}

	s := LearningSession{
		ID:             row.ID,
		StudentID:      row.StudentID,
		SkillID:        row.SkillID,
		CurrentSkillID: row.CurrentSkillID,
		Kind:           string(row.Kind),
		Status:         string(row.Status),
		TargetMinutes:  row.TargetMinutes,
		TotalSteps:     row.TotalSteps,
		CurrentStep:    row.CurrentStep,
		Completed:      row.CompletedCount,
		Correct:        row.CorrectCount,
		Streak:         row.Streak,
		BestStreak:     row.BestStreak,
		StreakBonusXP:  row.StreakBonusXp,
		LevelUp:        row.LevelUp,
		MasteryReached: row.MasteryReached,
		TheoryDone:     row.TheoryDone,
		Lesson:         row.Lesson,
		StartedAt:      row.StartedAt,
		EndedAt:        row.EndedAt,
	}
	if row.Status == learningsession.StatusCompleted {
		recap := row.Recap
		s.Recap = &recap
	}
	return s, nil
}

func (r *sessionRepo) SaveSession(ctx context.Context, s *LearningSession) error {
	upd := r.client.LearningSession.UpdateOneID(s.ID).
		SetCurrentSkillID(s.CurrentSkillID).
		SetStatus(learningsession.Status(s.Status)).
		SetCurrentStep(s.CurrentStep).
		SetCompletedCount(s.Completed).
		SetCorrectCount(s.Correct).
		SetStreak(s.Streak).
		SetBestStreak(s.BestStreak).
		SetStreakBonusXp(s.StreakBonusXP).
		SetLevelUp(s.LevelUp).
		SetMasteryReached(s.MasteryReached).
		SetTheoryDone(s.TheoryDone).
		SetLesson(s.Lesson).
		SetNillableEndedAt(s.EndedAt)
	if s.Recap != nil {
		upd.SetRecap(*s.Recap)
	}
	if err := upd.Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return fmt.Errorf("session %q: %w", s.ID, ErrNotFound)
		}
		return fmt.Errorf("save session %q: %w", s.ID, err)
	}
	return nil
}
