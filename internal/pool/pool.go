// Package pool decides which exercise a student gets next on a skill:
// reuse of validated content, AI generation under a per-skill quota, and the
// fallbacks that keep a student from ever running out of content.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/contentgen"
	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/metrics"
	"github.com/abhisek/kidquest/internal/random"
	"github.com/abhisek/kidquest/internal/store"
	"github.com/abhisek/kidquest/internal/telemetry"
)

// ErrNoContentAvailable is returned when a skill has no validated exercise
// and generation failed too.
var ErrNoContentAvailable = errors.New("no content available")

// Generator produces a new exercise. *contentgen.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, req contentgen.ExerciseRequest) (exercise.Exercise, error)
}

// Source tells where a selected exercise came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourcePool      Source = "pool"
	SourceFallback  Source = "fallback"
)

// QuotaInfo reports the per-skill generation quota for display.
type QuotaInfo struct {
	Count        int  `json:"count"`
	Limit        int  `json:"limit"`
	LimitReached bool `json:"limit_reached"`
}

// Selection is the result of SelectOrGenerate.
type Selection struct {
	Exercise              exercise.Exercise
	AIGenerated           bool
	Quota                 QuotaInfo
	RecommendedDifficulty int
	Challenge             bool
	Source                Source
}

// Deps groups the repositories the manager reads and writes.
type Deps struct {
	Skills    store.SkillRepo
	Students  store.StudentRepo
	Progress  store.ProgressRepo
	Exercises store.ExerciseRepo
	Attempts  store.AttemptRepo
}

// Manager implements exercise selection. It is safe for concurrent use.
type Manager struct {
	deps Deps
	gen  Generator
	cfg  config.Source
	rnd  random.Source
	log  *zap.Logger

	// Now is the clock; tests may replace it.
	Now func() time.Time

	// Concurrent generations for the same skill, difficulty and language
	// share one provider call and one stored exercise.
	flight singleflight.Group
}

// NewManager creates a Manager. gen may be nil, in which case selection
// only serves existing content.
func NewManager(deps Deps, gen Generator, cfg config.Source, rnd random.Source, log *zap.Logger) *Manager {
	if rnd == nil {
		rnd = random.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{deps: deps, gen: gen, cfg: cfg, rnd: rnd, log: log, Now: time.Now}
}

// SelectOrGenerate returns the next exercise for studentID on skillID.
// Empty language or method default to the student's, then to the engine
// defaults. Generation failures are absorbed; only ErrNoContentAvailable
// and storage errors are returned.
func (m *Manager) SelectOrGenerate(ctx context.Context, skillID, studentID, language, method string) (sel Selection, err error) {
	eng := m.cfg.Engine()

	ctx, span := telemetry.Tracer().Start(ctx, "pool.SelectOrGenerate")
	span.SetAttributes(attribute.String("skill.id", skillID), attribute.String("student.id", studentID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.String("selection.source", string(sel.Source)),
				attribute.Int("selection.difficulty", sel.RecommendedDifficulty),
			)
		}
		span.End()
	}()

	skill, err := m.deps.Skills.GetSkill(ctx, skillID)
	if err != nil {
		return sel, err
	}

	progress, err := m.deps.Progress.GetProgress(ctx, studentID, skillID)
	if err != nil && !store.IsNotFound(err) {
		return sel, fmt.Errorf("load progress: %w", err)
	}

	student, err := m.deps.Students.GetStudent(ctx, studentID)
	if err != nil && !store.IsNotFound(err) {
		return sel, fmt.Errorf("load student: %w", err)
	}
	if language == "" {
		language = firstNonEmpty(student.Language, eng.DefaultLanguage)
	}
	if method == "" {
		method = firstNonEmpty(student.Method, eng.DefaultMethod)
	}
	age := eng.ClampAge(student.Age)

	recent, err := m.deps.Attempts.RecentExerciseIDs(ctx, studentID, skillID, m.Now().Add(-eng.RecencyWindow))
	if err != nil {
		return sel, fmt.Errorf("load recent attempts: %w", err)
	}

	all, err := m.deps.Exercises.ListValidated(ctx, skillID)
	if err != nil {
		return sel, fmt.Errorf("list exercises: %w", err)
	}

	sel.RecommendedDifficulty, sel.Challenge = m.recommend(progress.CorrectRate(), eng.ChallengeProbability)
	sel.Quota = QuotaInfo{
		Count:        len(all),
		Limit:        eng.GenerationQuota,
		LimitReached: len(all) >= eng.GenerationQuota,
	}

	available := make([]exercise.Exercise, 0, len(all))
	for _, e := range all {
		if !recent[e.ID] {
			available = append(available, e)
		}
	}

	log := m.log.With(
		zap.String("student_id", studentID),
		zap.String("skill_id", skillID),
		zap.Int("difficulty", sel.RecommendedDifficulty))

	req := contentgen.ExerciseRequest{
		Skill:      skill,
		Difficulty: sel.RecommendedDifficulty,
		Age:        age,
		Method:     contentgen.Method(method),
		Language:   language,
	}

	if sel.Quota.LimitReached {
		metrics.QuotaReachedTotal.Inc()
	} else if len(available) < eng.MinBuffer {
		if ex, ok := m.generate(ctx, req, log); ok {
			return m.served(sel, ex, SourceGenerated), nil
		}
	}

	if len(available) > 0 {
		return m.served(sel, m.pick(available, sel.RecommendedDifficulty, eng.TopK), SourcePool), nil
	}

	if len(all) > 0 {
		log.Info("every exercise seen recently, serving from the full pool")
		return m.served(sel, all[m.rnd.IntN(len(all))], SourceFallback), nil
	}

	if !sel.Quota.LimitReached {
		if ex, ok := m.generate(ctx, req, log); ok {
			return m.served(sel, ex, SourceGenerated), nil
		}
	}

	metrics.SelectionTotal.WithLabelValues("none").Inc()
	return sel, fmt.Errorf("skill %s: %w", skillID, ErrNoContentAvailable)
}

// recommend draws the consolidation/challenge coin and returns the target
// difficulty.
func (m *Manager) recommend(correctRate, challengeProbability float64) (int, bool) {
	challenge := m.rnd.Float64() < challengeProbability
	d := exercise.ClampDifficulty(int(math.Round(correctRate * exercise.MaxDifficulty)))
	if challenge {
		d = exercise.ClampDifficulty(d + 1)
	}
	return d, challenge
}

// pick ranks candidates by distance to target, ties in random order, and
// picks uniformly among the topK closest.
func (m *Manager) pick(candidates []exercise.Exercise, target, topK int) exercise.Exercise {
	ranked := append([]exercise.Exercise(nil), candidates...)
	random.Shuffle(m.rnd, len(ranked), func(i, j int) { ranked[i], ranked[j] = ranked[j], ranked[i] })
	sort.SliceStable(ranked, func(i, j int) bool {
		return distance(ranked[i].Difficulty, target) < distance(ranked[j].Difficulty, target)
	})
	if topK < 1 {
		topK = 1
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked[m.rnd.IntN(len(ranked))]
}

// generate creates and stores one exercise. ok is false on any failure,
// which has already been logged.
func (m *Manager) generate(ctx context.Context, req contentgen.ExerciseRequest, log *zap.Logger) (exercise.Exercise, bool) {
	if m.gen == nil {
		return exercise.Exercise{}, false
	}

	key := fmt.Sprintf("%s/%d/%s", req.Skill.ID, req.Difficulty, req.Language)
	v, err, _ := m.flight.Do(key, func() (any, error) {
		ex, err := m.gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return m.deps.Exercises.InsertExercise(ctx, ex)
	})
	if err != nil {
		log.Warn("generation failed, falling back to existing content",
			zap.String("outcome", contentgen.KindOf(err).String()), zap.Error(err))
		return exercise.Exercise{}, false
	}
	return v.(exercise.Exercise), true
}

func (m *Manager) served(sel Selection, ex exercise.Exercise, src Source) Selection {
	sel.Exercise = ex
	sel.Source = src
	sel.AIGenerated = ex.IsAIGenerated()
	if src == SourceGenerated {
		sel.Quota.Count++
		sel.Quota.LimitReached = sel.Quota.Count >= sel.Quota.Limit
	}
	metrics.SelectionTotal.WithLabelValues(string(src)).Inc()
	m.log.Debug("exercise selected",
		zap.String("exercise_id", ex.ID),
		zap.String("source", string(src)),
		zap.Int("difficulty", ex.Difficulty))
	return sel
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
