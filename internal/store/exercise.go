package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/abhisek/kidquest/ent"
	entexercise "github.com/abhisek/kidquest/ent/exercise"
	"github.com/abhisek/kidquest/internal/exercise"
)

type exerciseRepo struct {
	client *ent.Client
}

func (r *exerciseRepo) InsertExercise(ctx context.Context, e exercise.Exercise) (exercise.Exercise, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Provenance == "" {
		e.Provenance = exercise.ProvenanceHuman
	}
	payload, err := e.MarshalContent()
	if err != nil {
		return exercise.Exercise{}, err
	}

	row, err := r.client.Exercise.Create().
		SetID(e.ID).
		SetSkillID(e.SkillID).
		SetKind(string(e.Type)).
		SetDifficulty(exercise.ClampDifficulty(e.Difficulty)).
		SetContent(string(payload)).
		SetValidated(e.Validated).
		SetProvenance(entexercise.Provenance(e.Provenance)).
		SetLanguage(e.Language).
		Save(ctx)
	if err != nil {
		return exercise.Exercise{}, fmt.Errorf("insert exercise for %s: %w", e.SkillID, err)
	}
	return entExerciseToExercise(row), nil
}

func (r *exerciseRepo) GetExercise(ctx context.Context, id string) (exercise.Exercise, error) {
	row, err := r.client.Exercise.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return exercise.Exercise{}, fmt.Errorf("exercise %q: %w", id, ErrNotFound)
		}
		return exercise.Exercise{}, fmt.Errorf("get exercise %q: %w", id, err)
	}
	return entExerciseToExercise(row), nil
}

func (r *exerciseRepo) ListValidated(ctx context.Context, skillID string) ([]exercise.Exercise, error) {
	rows, err := r.client.Exercise.Query().
		Where(entexercise.SkillID(skillID), entexercise.Validated(true)).
		Order(ent.Asc(entexercise.FieldDifficulty), ent.Asc(entexercise.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exercises for %s: %w", skillID, err)
	}
	out := make([]exercise.Exercise, len(rows))
	for i, row := range rows {
		out[i] = entExerciseToExercise(row)
	}
	return out, nil
}

func (r *exerciseRepo) CountValidated(ctx context.Context, skillID string) (int, error) {
	n, err := r.client.Exercise.Query().
		Where(entexercise.SkillID(skillID), entexercise.Validated(true)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count exercises for %s: %w", skillID, err)
	}
	return n, nil
}

func entExerciseToExercise(row *ent.Exercise) exercise.Exercise {
	t := exercise.Type(row.Kind)
	content, err := exercise.Decode(t, []byte(row.Content))
	if err != nil {
		// Human-authored rows may not satisfy the strict generator shapes.
		content = exercise.Template{Tag: t, Data: json.RawMessage(row.Content)}
	}
	return exercise.Exercise{
		ID:         row.ID,
		SkillID:    row.SkillID,
		Type:       t,
		Difficulty: row.Difficulty,
		Content:    content,
		Validated:  row.Validated,
		Provenance: exercise.Provenance(row.Provenance),
		Language:   row.Language,
		CreatedAt:  row.CreatedAt,
	}
}
