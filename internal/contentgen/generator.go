// Package contentgen turns a skill context into AI-generated exercises,
// hints and micro-lessons through an llm.Provider.
package contentgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/llm"
	"github.com/abhisek/kidquest/internal/metrics"
	"github.com/abhisek/kidquest/internal/random"
	"github.com/abhisek/kidquest/internal/skillgraph"
	"github.com/abhisek/kidquest/internal/telemetry"
)

// ExerciseRequest describes the exercise to generate. Age must already be
// clamped to the supported band. An empty Type picks one at random among
// exercise.GeneratableTypes.
type ExerciseRequest struct {
	Skill      skillgraph.Skill
	Difficulty int
	Age        int
	Method     Method
	Language   string
	Type       exercise.Type
}

// HintRequest describes the exercise a hint is wanted for.
type HintRequest struct {
	Exercise exercise.Exercise
	Skill    skillgraph.Skill
	Age      int
	Method   Method
	Language string
}

// LessonRequest describes the skill a micro-lesson introduces.
type LessonRequest struct {
	Skill    skillgraph.Skill
	Age      int
	Method   Method
	Language string
}

// Lesson is a generated micro-lesson.
type Lesson struct {
	SkillID       string
	Title         string
	Explanation   string
	WorkedExample string
}

// Text renders the lesson as plain text.
func (l Lesson) Text() string {
	return strings.TrimSpace(l.Title + "\n\n" + l.Explanation + "\n\n" + l.WorkedExample)
}

// FallbackLesson is served when no lesson can be generated.
func FallbackLesson(s skillgraph.Skill) Lesson {
	return Lesson{
		SkillID:     s.ID,
		Title:       s.DisplayName(),
		Explanation: s.Description,
	}
}

// Generator produces content with an LLM provider. A nil provider is
// llm.Unconfigured: every call fails with KindConfig.
type Generator struct {
	provider llm.Provider
	cfg      Config
	rnd      random.Source
	log      *zap.Logger
}

// New creates a Generator.
func New(provider llm.Provider, cfg Config, rnd random.Source, log *zap.Logger) *Generator {
	if rnd == nil {
		rnd = random.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if provider == nil {
		provider = llm.Unconfigured()
	}
	return &Generator{provider: provider, cfg: cfg, rnd: rnd, log: log}
}

// Generate produces one validated exercise for req. The returned exercise
// has no ID; it is assigned when the exercise is stored.
func (g *Generator) Generate(ctx context.Context, req ExerciseRequest) (ex exercise.Exercise, err error) {
	if req.Type == "" {
		types := exercise.GeneratableTypes()
		req.Type = types[g.rnd.IntN(len(types))]
	}
	req.Difficulty = exercise.ClampDifficulty(req.Difficulty)

	ctx, span := telemetry.Tracer().Start(ctx, "contentgen.Generate")
	span.SetAttributes(
		attribute.String("skill.id", req.Skill.ID),
		attribute.String("exercise.type", string(req.Type)),
		attribute.Int("exercise.difficulty", req.Difficulty),
	)
	defer func() { g.finish("exercise", span, err) }()

	schema, ok := exerciseSchemas[req.Type]
	if !ok {
		return ex, &Error{Kind: KindValidation, Err: fmt.Errorf("type %q cannot be generated", req.Type)}
	}

	var content exercise.Content
	err = g.complete(llm.WithPurpose(ctx, PurposeExercise), llm.Request{
		System:      exerciseSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildExerciseMessage(req)}},
		Schema:      schema,
		MaxTokens:   g.cfg.Exercise.MaxTokens,
		Temperature: g.cfg.Exercise.Temperature,
	}, func(raw []byte) (err error) {
		content, err = exercise.Decode(req.Type, raw)
		return err
	})
	if err != nil {
		return ex, err
	}

	g.log.Debug("exercise generated",
		zap.String("skill_id", req.Skill.ID),
		zap.String("type", string(req.Type)),
		zap.Int("difficulty", req.Difficulty))

	return exercise.Exercise{
		SkillID:    req.Skill.ID,
		Type:       req.Type,
		Difficulty: req.Difficulty,
		Content:    content,
		Validated:  true,
		Provenance: exercise.ProvenanceAI,
		Language:   req.Language,
	}, nil
}

// GenerateHint returns a short hint for the exercise.
func (g *Generator) GenerateHint(ctx context.Context, req HintRequest) (hint string, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "contentgen.GenerateHint")
	span.SetAttributes(attribute.String("exercise.id", req.Exercise.ID))
	defer func() { g.finish("hint", span, err) }()

	payload, err := req.Exercise.MarshalContent()
	if err != nil {
		return "", &Error{Kind: KindValidation, Err: err}
	}

	err = g.complete(llm.WithPurpose(ctx, PurposeHint), llm.Request{
		System:      hintSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildHintMessage(req, string(payload))}},
		Schema:      HintSchema,
		MaxTokens:   g.cfg.Hint.MaxTokens,
		Temperature: g.cfg.Hint.Temperature,
	}, func(raw []byte) error {
		var out struct {
			Hint string `json:"hint"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		if strings.TrimSpace(out.Hint) == "" {
			return errors.New("empty hint")
		}
		hint = out.Hint
		return nil
	})
	return hint, err
}

// GenerateLesson returns a micro-lesson introducing the skill.
func (g *Generator) GenerateLesson(ctx context.Context, req LessonRequest) (lesson Lesson, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "contentgen.GenerateLesson")
	span.SetAttributes(attribute.String("skill.id", req.Skill.ID))
	defer func() { g.finish("lesson", span, err) }()

	err = g.complete(llm.WithPurpose(ctx, PurposeLesson), llm.Request{
		System:      lessonSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildLessonMessage(req)}},
		Schema:      LessonSchema,
		MaxTokens:   g.cfg.Lesson.MaxTokens,
		Temperature: g.cfg.Lesson.Temperature,
	}, func(raw []byte) error {
		var out struct {
			Title         string `json:"title"`
			Explanation   string `json:"explanation"`
			WorkedExample string `json:"worked_example"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		if strings.TrimSpace(out.Explanation) == "" {
			return errors.New("empty lesson explanation")
		}
		lesson = Lesson{
			SkillID:       req.Skill.ID,
			Title:         out.Title,
			Explanation:   out.Explanation,
			WorkedExample: out.WorkedExample,
		}
		return nil
	})
	return lesson, err
}

// complete runs one provider call and hands the JSON object of the reply to
// decode. decode runs as the request's Check, so a payload it rejects is
// logged as a failed request. Providers that skip Check get it applied here.
func (g *Generator) complete(ctx context.Context, req llm.Request, decode func(raw []byte) error) error {
	checked := false
	req.Check = func(content json.RawMessage) error {
		checked = true
		raw, err := extractJSON(content)
		if err != nil {
			return err
		}
		return decode(raw)
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return classify(err)
	}
	if !checked {
		if err := req.Check(resp.Content); err != nil {
			return &Error{Kind: KindValidation, Err: err}
		}
	}
	return nil
}

func (g *Generator) finish(task string, span trace.Span, err error) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		g.log.Warn("content generation failed", zap.String("task", task), zap.String("outcome", outcome), zap.Error(err))
	}
	metrics.GenerationTotal.WithLabelValues(task, outcome).Inc()
	span.End()
}
