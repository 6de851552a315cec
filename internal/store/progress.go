package store

import (
	"context"
	"fmt"

	"github.com/abhisek/kidquest/ent"
	ssp "github.com/abhisek/kidquest/ent/studentskillprogress"
)

type progressRepo struct {
	client *ent.Client
}

func (r *progressRepo) GetOrCreateProgress(ctx context.Context, studentID, skillID string) (SkillProgress, error) {
	p, err := r.GetProgress(ctx, studentID, skillID)
	if err == nil {
		return p, nil
	}
	if !IsNotFound(err) {
		return SkillProgress{}, err
	}

	row, err := r.client.StudentSkillProgress.Create().
		SetStudentID(studentID).
		SetSkillID(skillID).
		Save(ctx)
	if err != nil {
		if ent.IsConstraintError(err) {
			// Created concurrently by another request.
			return r.GetProgress(ctx, studentID, skillID)
		}
		return SkillProgress{}, fmt.Errorf("create progress %s/%s: %w", studentID, skillID, err)
	}
	return entProgressToProgress(row), nil
}

func (r *progressRepo) GetProgress(ctx context.Context, studentID, skillID string) (SkillProgress, error) {
	row, err := r.client.StudentSkillProgress.Query().
		Where(ssp.StudentID(studentID), ssp.SkillID(skillID)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return SkillProgress{}, fmt.Errorf("progress %s/%s: %w", studentID, skillID, ErrNotFound)
		}
		return SkillProgress{}, fmt.Errorf("get progress %s/%s: %w", studentID, skillID, err)
	}
	return entProgressToProgress(row), nil
}

func (r *progressRepo) SaveProgress(ctx context.Context, p *SkillProgress) error {
	n, err := r.client.StudentSkillProgress.Update().
		Where(
			ssp.StudentID(p.StudentID),
			ssp.SkillID(p.SkillID),
			ssp.Version(p.Version),
		).
		SetAttempts(p.Attempts).
		SetCorrectCount(p.Correct).
		SetMasteryPercentage(p.MasteryPct).
		SetCurrentStreak(p.CurrentStreak).
		SetBestStreak(p.BestStreak).
		SetLevel(p.Level).
		SetNillableMasteredAt(p.MasteredAt).
		SetVersion(p.Version + 1).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("save progress %s/%s: %w", p.StudentID, p.SkillID, err)
	}
	if n == 0 {
		return fmt.Errorf("save progress %s/%s at version %d: %w", p.StudentID, p.SkillID, p.Version, ErrConflict)
	}
	p.Version++
	return nil
}

func (r *progressRepo) ListProgress(ctx context.Context, studentID string) ([]SkillProgress, error) {
	rows, err := r.client.StudentSkillProgress.Query().
		Where(ssp.StudentID(studentID)).
		Order(ent.Asc(ssp.FieldSkillID)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list progress for %s: %w", studentID, err)
	}
	out := make([]SkillProgress, len(rows))
	for i, row := range rows {
		out[i] = entProgressToProgress(row)
	}
	return out, nil
}

func entProgressToProgress(row *ent.StudentSkillProgress) SkillProgress {
	return SkillProgress{
		StudentID:     row.StudentID,
		SkillID:       row.SkillID,
		Attempts:      row.Attempts,
		Correct:       row.CorrectCount,
		MasteryPct:    row.MasteryPercentage,
		CurrentStreak: row.CurrentStreak,
		BestStreak:    row.BestStreak,
		Level:         row.Level,
		MasteredAt:    row.MasteredAt,
		Version:       row.Version,
		UpdatedAt:     row.UpdatedAt,
	}
}
