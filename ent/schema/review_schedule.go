package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ReviewSchedule persists the SM-2 state of a (student, skill) pair.
type ReviewSchedule struct {
	ent.Schema
}

func (ReviewSchedule) Fields() []ent.Field {
	return []ent.Field{
		field.String("student_id").
			NotEmpty().
			Immutable(),
		field.String("skill_id").
			NotEmpty().
			Immutable(),
		field.Int("interval_days").
			Positive(),
		field.Float("ease_factor"),
		field.Int("repetitions").
			Default(0),
		field.Time("next_review_at"),
		field.Time("last_review_at"),
	}
}

func (ReviewSchedule) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "skill_id").Unique(),
		index.Fields("student_id", "next_review_at"),
	}
}
