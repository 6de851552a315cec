package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Skill is a node of the subject/domain skill graph.
type Skill struct {
	ent.Schema
}

func (Skill) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable().
			Comment("Stable skill identifier from the catalog"),
		field.String("subject").
			NotEmpty(),
		field.String("domain").
			NotEmpty().
			Comment("Skills of a domain are ordered by sort_order"),
		field.String("name_key").
			Default(""),
		field.String("description_key").
			Default(""),
		field.Text("description").
			Default("").
			Comment("Plain-language description used in generation prompts"),
		field.Int("difficulty").
			Range(1, 5).
			Default(1),
		field.Int("sort_order").
			Default(0),
		field.Enum("status").
			Values("draft", "published").
			Default("draft"),
		field.JSON("prerequisites", []string{}).
			Optional(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

func (Skill) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("domain", "sort_order"),
		index.Fields("subject"),
	}
}
