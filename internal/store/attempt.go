package store

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/kidquest/ent"
	"github.com/abhisek/kidquest/ent/exerciseattempt"
)

type attemptRepo struct {
	client *ent.Client
	seq    *sequenceCounter
}

func (r *attemptRepo) AppendAttempt(ctx context.Context, a Attempt) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	return insertAttempt(ctx, r.client, seqNum, a)
}

func insertAttempt(ctx context.Context, client *ent.Client, seqNum int64, a Attempt) error {
	create := client.ExerciseAttempt.Create().
		SetSequence(seqNum).
		SetStudentID(a.StudentID).
		SetSkillID(a.SkillID).
		SetExerciseID(a.ExerciseID).
		SetSessionID(a.SessionID).
		SetCorrect(a.Correct).
		SetSubmittedAnswer(a.SubmittedAnswer).
		SetTimeSpentSecs(a.TimeSpentSecs).
		SetHintsUsed(a.HintsUsed)
	if !a.Timestamp.IsZero() {
		create.SetTimestamp(a.Timestamp)
	}
	if err := create.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) RecentExerciseIDs(ctx context.Context, studentID, skillID string, since time.Time) (map[string]bool, error) {
	ids, err := r.client.ExerciseAttempt.Query().
		Where(
			exerciseattempt.StudentID(studentID),
			exerciseattempt.SkillID(skillID),
			exerciseattempt.TimestampGTE(since),
		).
		Unique(true).
		Select(exerciseattempt.FieldExerciseID).
		Strings(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent attempts %s/%s: %w", studentID, skillID, err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
