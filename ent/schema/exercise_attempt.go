package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ExerciseAttempt records a single answer to an exercise. Append-only.
type ExerciseAttempt struct {
	ent.Schema
}

func (ExerciseAttempt) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (ExerciseAttempt) Fields() []ent.Field {
	return []ent.Field{
		field.String("student_id").
			NotEmpty(),
		field.String("skill_id").
			NotEmpty(),
		field.String("exercise_id").
			NotEmpty(),
		field.String("session_id").
			Default("").
			Comment("Empty when answered outside a session"),
		field.Bool("correct"),
		field.Text("submitted_answer").
			Default(""),
		field.Int("time_spent_secs").
			Default(0),
		field.Int("hints_used").
			Default(0),
	}
}

func (ExerciseAttempt) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "skill_id", "timestamp"),
		index.Fields("exercise_id"),
	}
}
