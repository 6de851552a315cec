package store

import (
	"context"
	"fmt"

	"github.com/abhisek/kidquest/ent"
	"github.com/abhisek/kidquest/ent/studentunlockedskill"
)

type unlockRepo struct {
	client *ent.Client
}

func (r *unlockRepo) UpsertUnlock(ctx context.Context, u Unlock) (bool, error) {
	exists, err := r.client.StudentUnlockedSkill.Query().
		Where(
			studentunlockedskill.StudentID(u.StudentID),
			studentunlockedskill.SkillID(u.SkillID),
		).
		Exist(ctx)
	if err != nil {
		return false, fmt.Errorf("check unlock %s/%s: %w", u.StudentID, u.SkillID, err)
	}
	if exists {
		return false, nil
	}

	create := r.client.StudentUnlockedSkill.Create().
		SetStudentID(u.StudentID).
		SetSkillID(u.SkillID).
		SetUnlockedBy(u.UnlockedBy)
	if !u.UnlockedAt.IsZero() {
		create.SetUnlockedAt(u.UnlockedAt)
	}
	if err := create.Exec(ctx); err != nil {
		if ent.IsConstraintError(err) {
			return false, nil
		}
		return false, fmt.Errorf("create unlock %s/%s: %w", u.StudentID, u.SkillID, err)
	}
	return true, nil
}

func (r *unlockRepo) ListUnlocks(ctx context.Context, studentID string) ([]Unlock, error) {
	rows, err := r.client.StudentUnlockedSkill.Query().
		Where(studentunlockedskill.StudentID(studentID)).
		Order(ent.Asc(studentunlockedskill.FieldUnlockedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unlocks for %s: %w", studentID, err)
	}
	out := make([]Unlock, len(rows))
	for i, row := range rows {
		out[i] = Unlock{
			StudentID:  row.StudentID,
			SkillID:    row.SkillID,
			UnlockedBy: row.UnlockedBy,
			UnlockedAt: row.UnlockedAt,
		}
	}
	return out, nil
}
