package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StudentSkillProgress holds per (student, skill) counters and level.
type StudentSkillProgress struct {
	ent.Schema
}

func (StudentSkillProgress) Fields() []ent.Field {
	return []ent.Field{
		field.String("student_id").
			NotEmpty().
			Immutable(),
		field.String("skill_id").
			NotEmpty().
			Immutable(),
		field.Int("attempts").
			Default(0).
			NonNegative(),
		field.Int("correct_count").
			Default(0).
			NonNegative(),
		field.Int("mastery_percentage").
			Default(0).
			Comment("Cached projection of correct_count / attempts"),
		field.Int("current_streak").
			Default(0),
		field.Int("best_streak").
			Default(0),
		field.Int("level").
			Range(1, 5).
			Default(1),
		field.Time("mastered_at").
			Optional().
			Nillable().
			Comment("Set once, when level 5 is first reached"),
		field.Int64("version").
			Default(0).
			Comment("Optimistic concurrency token"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (StudentSkillProgress) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "skill_id").Unique(),
	}
}
