package store

import (
	"context"
	"fmt"

	"github.com/abhisek/kidquest/ent"
	entskill "github.com/abhisek/kidquest/ent/skill"
	"github.com/abhisek/kidquest/internal/skillgraph"
)

type skillRepo struct {
	client *ent.Client
}

func (r *skillRepo) UpsertSkill(ctx context.Context, s skillgraph.Skill) error {
	exists, err := r.client.Skill.Query().Where(entskill.ID(s.ID)).Exist(ctx)
	if err != nil {
		return fmt.Errorf("check skill %q: %w", s.ID, err)
	}

	if !exists {
		err = r.client.Skill.Create().
			SetID(s.ID).
			SetSubject(s.Subject).
			SetDomain(s.Domain).
			SetNameKey(s.NameKey).
			SetDescriptionKey(s.DescriptionKey).
			SetDescription(s.Description).
			SetDifficulty(s.Difficulty).
			SetSortOrder(s.SortOrder).
			SetStatus(entskill.Status(s.Status)).
			SetPrerequisites(s.Prerequisites).
			Exec(ctx)
		if err == nil {
			return nil
		}
		if !ent.IsConstraintError(err) {
			return fmt.Errorf("create skill %q: %w", s.ID, err)
		}
		// Lost an insert race; fall through to update.
	}

	err = r.client.Skill.UpdateOneID(s.ID).
		SetSubject(s.Subject).
		SetDomain(s.Domain).
		SetNameKey(s.NameKey).
		SetDescriptionKey(s.DescriptionKey).
		SetDescription(s.Description).
		SetDifficulty(s.Difficulty).
		SetSortOrder(s.SortOrder).
		SetStatus(entskill.Status(s.Status)).
		SetPrerequisites(s.Prerequisites).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update skill %q: %w", s.ID, err)
	}
	return nil
}

func (r *skillRepo) GetSkill(ctx context.Context, id string) (skillgraph.Skill, error) {
	row, err := r.client.Skill.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return skillgraph.Skill{}, fmt.Errorf("skill %q: %w", id, ErrNotFound)
		}
		return skillgraph.Skill{}, fmt.Errorf("get skill %q: %w", id, err)
	}
	return entSkillToSkill(row), nil
}

func (r *skillRepo) ListSkills(ctx context.Context) ([]skillgraph.Skill, error) {
	rows, err := r.client.Skill.Query().
		Order(ent.Asc(entskill.FieldSubject), ent.Asc(entskill.FieldDomain), ent.Asc(entskill.FieldSortOrder)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	out := make([]skillgraph.Skill, len(rows))
	for i, row := range rows {
		out[i] = entSkillToSkill(row)
	}
	return out, nil
}

func (r *skillRepo) NextInDomain(ctx context.Context, id string) (*skillgraph.Skill, error) {
	cur, err := r.GetSkill(ctx, id)
	if err != nil {
		return nil, err
	}

	row, err := r.client.Skill.Query().
		Where(
			entskill.Subject(cur.Subject),
			entskill.Domain(cur.Domain),
			entskill.SortOrderGT(cur.SortOrder),
			entskill.StatusEQ(entskill.StatusPublished),
		).
		Order(ent.Asc(entskill.FieldSortOrder)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("next skill after %q: %w", id, err)
	}
	next := entSkillToSkill(row)
	return &next, nil
}

func entSkillToSkill(row *ent.Skill) skillgraph.Skill {
	return skillgraph.Skill{
		ID:             row.ID,
		Subject:        row.Subject,
		Domain:         row.Domain,
		NameKey:        row.NameKey,
		DescriptionKey: row.DescriptionKey,
		Description:    row.Description,
		Difficulty:     row.Difficulty,
		SortOrder:      row.SortOrder,
		Status:         skillgraph.Status(row.Status),
		Prerequisites:  row.Prerequisites,
	}
}
