package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LearningSession is the envelope around a bounded run of exercises.
type LearningSession struct {
	ent.Schema
}

// RecapSummary is the serialized recap of a completed session.
type RecapSummary struct {
	Completed      int   `json:"completed"`
	Correct        int   `json:"correct"`
	AccuracyPct    int   `json:"accuracy_pct"`
	XP             int   `json:"xp"`
	ElapsedSecs    int64 `json:"elapsed_secs"`
	BestStreak     int   `json:"best_streak"`
	StreakBonus    bool  `json:"streak_bonus"`
	LevelUp        bool  `json:"level_up"`
	MasteryReached bool  `json:"mastery_reached"`
}

func (LearningSession) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			NotEmpty().
			Immutable().
			Comment("UUID"),
		field.String("student_id").
			NotEmpty().
			Immutable(),
		field.String("skill_id").
			NotEmpty().
			Immutable(),
		field.Enum("kind").
			Values("learn", "practice", "review").
			Immutable(),
		field.Enum("status").
			Values("active", "completed", "abandoned").
			Default("active"),
		field.Int("target_minutes").
			Default(0),
		field.Int("total_steps"),
		field.Int("current_step").
			Default(0),
		field.Int("completed_count").
			Default(0),
		field.Int("correct_count").
			Default(0),
		field.Int("streak").
			Default(0),
		field.Int("best_streak").
			Default(0),
		field.Int("streak_bonus_xp").
			Default(0),
		field.Bool("level_up").
			Default(false),
		field.Bool("mastery_reached").
			Default(false),
		field.Bool("theory_done").
			Default(false),
		field.Text("lesson").
			Default(""),
		field.String("current_skill_id").
			Default("").
			Comment("Skill the next exercise is drawn from; moves on unlock"),
		field.Time("started_at").
			Default(time.Now).
			Immutable(),
		field.Time("ended_at").
			Optional().
			Nillable(),
		field.JSON("recap", RecapSummary{}).
			Optional(),
	}
}

func (LearningSession) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "status"),
	}
}
