package store

import (
	"context"
	"fmt"

	"github.com/abhisek/kidquest/ent"
	entstudent "github.com/abhisek/kidquest/ent/student"
)

type studentRepo struct {
	client *ent.Client
}

func (r *studentRepo) UpsertStudent(ctx context.Context, s Student) error {
	exists, err := r.client.Student.Query().Where(entstudent.ID(s.ID)).Exist(ctx)
	if err != nil {
		return fmt.Errorf("check student %q: %w", s.ID, err)
	}
	if !exists {
		err = r.client.Student.Create().
			SetID(s.ID).
			SetDisplayName(s.DisplayName).
			SetNillableAge(s.Age).
			SetLanguage(s.Language).
			SetMethod(s.Method).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create student %q: %w", s.ID, err)
		}
		return nil
	}

	upd := r.client.Student.UpdateOneID(s.ID).
		SetDisplayName(s.DisplayName).
		SetLanguage(s.Language).
		SetMethod(s.Method)
	if s.Age != nil {
		upd.SetAge(*s.Age)
	} else {
		upd.ClearAge()
	}
	if err := upd.Exec(ctx); err != nil {
		return fmt.Errorf("update student %q: %w", s.ID, err)
	}
	return nil
}

func (r *studentRepo) GetStudent(ctx context.Context, id string) (Student, error) {
	row, err := r.client.Student.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return Student{}, fmt.Errorf("student %q: %w", id, ErrNotFound)
		}
		return Student{}, fmt.Errorf("get student %q: %w", id, err)
	}
	return Student{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		Age:         row.Age,
		Language:    row.Language,
		Method:      row.Method,
		CreatedAt:   row.CreatedAt,
	}, nil
}
