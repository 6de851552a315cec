package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// StudentUnlockedSkill marks a skill as accessible to a student.
type StudentUnlockedSkill struct {
	ent.Schema
}

func (StudentUnlockedSkill) Fields() []ent.Field {
	return []ent.Field{
		field.String("student_id").
			NotEmpty().
			Immutable(),
		field.String("skill_id").
			NotEmpty().
			Immutable(),
		field.String("unlocked_by").
			Default("").
			Immutable().
			Comment("Skill whose mastery granted access"),
		field.Time("unlocked_at").
			Default(time.Now).
			Immutable(),
	}
}

func (StudentUnlockedSkill) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "skill_id").Unique(),
	}
}
