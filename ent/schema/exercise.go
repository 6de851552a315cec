package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Exercise is a content unit of one skill. The content payload is the JSON
// encoding of the variant named by kind.
type Exercise struct {
	ent.Schema
}

func (Exercise) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable(),
		field.String("skill_id").
			NotEmpty().
			Immutable(),
		field.String("kind").
			NotEmpty().
			Immutable().
			Comment("qcm, fill_blank, drag_drop, free_input, matching or a template tag"),
		field.Int("difficulty").
			Range(1, 5),
		field.Text("content").
			Immutable(),
		field.Bool("validated").
			Default(false),
		field.Enum("provenance").
			Values("human", "ai").
			Default("human"),
		field.String("language").
			Default(""),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Exercise) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("skill_id", "validated", "difficulty"),
	}
}
