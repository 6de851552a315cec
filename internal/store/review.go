package store

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/kidquest/ent"
	"github.com/abhisek/kidquest/ent/reviewschedule"
	"github.com/abhisek/kidquest/internal/spacedrep"
)

type reviewRepo struct {
	client *ent.Client
}

func (r *reviewRepo) GetReview(ctx context.Context, studentID, skillID string) (*spacedrep.State, error) {
	row, err := r.client.ReviewSchedule.Query().
		Where(reviewschedule.StudentID(studentID), reviewschedule.SkillID(skillID)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review %s/%s: %w", studentID, skillID, err)
	}
	st := entReviewToState(row)
	return &st, nil
}

func (r *reviewRepo) SaveReview(ctx context.Context, studentID, skillID string, st spacedrep.State) error {
	n, err := r.client.ReviewSchedule.Update().
		Where(reviewschedule.StudentID(studentID), reviewschedule.SkillID(skillID)).
		SetIntervalDays(st.IntervalDays).
		SetEaseFactor(st.EaseFactor).
		SetRepetitions(st.Repetitions).
		SetNextReviewAt(st.NextReviewDate).
		SetLastReviewAt(st.LastReviewDate).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("update review %s/%s: %w", studentID, skillID, err)
	}
	if n > 0 {
		return nil
	}

	err = r.client.ReviewSchedule.Create().
		SetStudentID(studentID).
		SetSkillID(skillID).
		SetIntervalDays(st.IntervalDays).
		SetEaseFactor(st.EaseFactor).
		SetRepetitions(st.Repetitions).
		SetNextReviewAt(st.NextReviewDate).
		SetLastReviewAt(st.LastReviewDate).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create review %s/%s: %w", studentID, skillID, err)
	}
	return nil
}

func (r *reviewRepo) DueReviews(ctx context.Context, studentID string, now time.Time) ([]DueReview, error) {
	rows, err := r.client.ReviewSchedule.Query().
		Where(reviewschedule.StudentID(studentID), reviewschedule.NextReviewAtLTE(now)).
		Order(ent.Asc(reviewschedule.FieldNextReviewAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("due reviews for %s: %w", studentID, err)
	}
	out := make([]DueReview, len(rows))
	for i, row := range rows {
		out[i] = DueReview{SkillID: row.SkillID, State: entReviewToState(row)}
	}
	return out, nil
}

func entReviewToState(row *ent.ReviewSchedule) spacedrep.State {
	return spacedrep.State{
		IntervalDays:   row.IntervalDays,
		EaseFactor:     row.EaseFactor,
		Repetitions:    row.Repetitions,
		NextReviewDate: row.NextReviewAt,
		LastReviewDate: row.LastReviewAt,
	}
}
