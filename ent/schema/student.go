package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Student is a learner profile as seen by the selection engine.
type Student struct {
	ent.Schema
}

func (Student) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable(),
		field.String("display_name").
			Default(""),
		field.Int("age").
			Optional().
			Nillable().
			Comment("Unknown ages fall back to the configured default"),
		field.String("language").
			Default("fr"),
		field.String("method").
			Default("").
			Comment("Pedagogical method used to style generated content"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}
