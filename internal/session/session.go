// Package session runs bounded learning sessions: a step budget derived from
// a time target, per-session counters fed by each answer, and the recap
// computed on completion.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/contentgen"
	"github.com/abhisek/kidquest/internal/metrics"
	"github.com/abhisek/kidquest/internal/pool"
	"github.com/abhisek/kidquest/internal/progression"
	"github.com/abhisek/kidquest/internal/store"
)

// Kind is the session type.
type Kind string

const (
	KindLearn    Kind = "learn"
	KindPractice Kind = "practice"
	KindReview   Kind = "review"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

var (
	// ErrSessionClosed is returned for writes to a completed or abandoned
	// session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrTheoryPending is returned when a learn session gets an answer
	// before its theory step is done.
	ErrTheoryPending = errors.New("theory step not completed")
	// ErrInvalidKind is returned by Create for an unknown session kind.
	ErrInvalidKind = errors.New("invalid session kind")
)

// Recorder applies one answer. *progression.Engine implements it.
type Recorder interface {
	RecordAnswer(ctx context.Context, a progression.Answer) (progression.Result, error)
}

// LessonGenerator writes the theory step. *contentgen.Generator implements it.
type LessonGenerator interface {
	GenerateLesson(ctx context.Context, req contentgen.LessonRequest) (contentgen.Lesson, error)
}

// CreateRequest starts a session.
type CreateRequest struct {
	StudentID     string
	SkillID       string
	Kind          Kind
	TargetMinutes int
}

// Submission is one answer inside a session.
type Submission struct {
	ExerciseID      string
	Correct         bool
	TimeSpentSecs   int
	HintsUsed       int
	SubmittedAnswer string
}

// StepResult is returned by SubmitAnswer.
type StepResult struct {
	Session         store.LearningSession
	NewStep         int
	SessionComplete bool
	Progression     progression.Result
	Recap           *Recap
}

// Deps groups the repositories the service reads and writes.
type Deps struct {
	Sessions  store.SessionRepo
	Skills    store.SkillRepo
	Students  store.StudentRepo
	Exercises store.ExerciseRepo
}

// Service manages sessions.
type Service struct {
	deps     Deps
	recorder Recorder
	selector progression.Selector
	lessons  LessonGenerator
	cfg      config.Source
	log      *zap.Logger

	// Now is the clock; tests may replace it.
	Now func() time.Time
}

// New creates a Service. lessons may be nil; learn sessions then use the
// skill description as their theory text.
func New(deps Deps, recorder Recorder, selector progression.Selector, lessons LessonGenerator, cfg config.Source, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{deps: deps, recorder: recorder, selector: selector, lessons: lessons, cfg: cfg, log: log, Now: time.Now}
}

// Create starts a session. The step budget comes from the time target.
func (s *Service) Create(ctx context.Context, req CreateRequest) (store.LearningSession, error) {
	eng := s.cfg.Engine()

	switch req.Kind {
	case KindLearn, KindPractice, KindReview:
	default:
		return store.LearningSession{}, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	skill, err := s.deps.Skills.GetSkill(ctx, req.SkillID)
	if err != nil {
		return store.LearningSession{}, err
	}

	minutes := req.TargetMinutes
	if minutes <= 0 {
		minutes = eng.Session.DefaultMinutes
	}

	sess := store.LearningSession{
		ID:             uuid.NewString(),
		StudentID:      req.StudentID,
		SkillID:        req.SkillID,
		CurrentSkillID: req.SkillID,
		Kind:           string(req.Kind),
		Status:         string(StatusActive),
		TargetMinutes:  minutes,
		TotalSteps:     eng.StepsFor(minutes),
		TheoryDone:     req.Kind != KindLearn,
		StartedAt:      s.Now(),
	}

	if req.Kind == KindLearn {
		sess.Lesson = s.lesson(ctx, req.StudentID, eng, contentgen.LessonRequest{Skill: skill}).Text()
	}

	if err := s.deps.Sessions.CreateSession(ctx, &sess); err != nil {
		return store.LearningSession{}, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsTotal.WithLabelValues("created").Inc()
	s.log.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("student_id", sess.StudentID),
		zap.String("skill_id", sess.SkillID),
		zap.String("kind", sess.Kind),
		zap.Int("steps", sess.TotalSteps))
	return sess, nil
}

// lesson generates the theory text, falling back to the skill description.
func (s *Service) lesson(ctx context.Context, studentID string, eng config.Engine, req contentgen.LessonRequest) contentgen.Lesson {
	if s.lessons == nil {
		return contentgen.FallbackLesson(req.Skill)
	}

	student, err := s.deps.Students.GetStudent(ctx, studentID)
	if err != nil && !store.IsNotFound(err) {
		s.log.Warn("load student for lesson", zap.String("student_id", studentID), zap.Error(err))
	}
	req.Age = eng.ClampAge(student.Age)
	req.Language = firstNonEmpty(student.Language, eng.DefaultLanguage)
	req.Method = contentgen.Method(firstNonEmpty(student.Method, eng.DefaultMethod))

	lesson, err := s.lessons.GenerateLesson(ctx, req)
	if err != nil {
		return contentgen.FallbackLesson(req.Skill)
	}
	return lesson
}

// Get returns a session by ID.
func (s *Service) Get(ctx context.Context, id string) (store.LearningSession, error) {
	return s.deps.Sessions.GetSession(ctx, id)
}

// CompleteTheory marks the theory step of a learn session as done.
func (s *Service) CompleteTheory(ctx context.Context, id string) (store.LearningSession, error) {
	sess, err := s.active(ctx, id)
	if err != nil {
		return sess, err
	}
	if sess.TheoryDone {
		return sess, nil
	}
	sess.TheoryDone = true
	if err := s.deps.Sessions.SaveSession(ctx, &sess); err != nil {
		return sess, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// NextExercise selects an exercise on the session's current skill.
func (s *Service) NextExercise(ctx context.Context, id, language, method string) (pool.Selection, error) {
	sess, err := s.active(ctx, id)
	if err != nil {
		return pool.Selection{}, err
	}
	if !sess.TheoryDone {
		return pool.Selection{}, ErrTheoryPending
	}
	return s.selector.SelectOrGenerate(ctx, sess.CurrentSkillID, sess.StudentID, language, method)
}

// SubmitAnswer records an answer, advances the step pointer and completes
// the session once the step budget or the time target is used up. When the
// answer was recorded but no next exercise could be selected, the updated
// session is returned together with the error.
func (s *Service) SubmitAnswer(ctx context.Context, id string, sub Submission) (StepResult, error) {
	eng := s.cfg.Engine()

	sess, err := s.active(ctx, id)
	if err != nil {
		return StepResult{Session: sess}, err
	}
	if !sess.TheoryDone {
		return StepResult{Session: sess}, ErrTheoryPending
	}

	ex, err := s.deps.Exercises.GetExercise(ctx, sub.ExerciseID)
	if err != nil {
		return StepResult{Session: sess}, err
	}

	res, recErr := s.recorder.RecordAnswer(ctx, progression.Answer{
		StudentID:       sess.StudentID,
		SkillID:         ex.SkillID,
		ExerciseID:      ex.ID,
		SessionID:       sess.ID,
		Correct:         sub.Correct,
		TimeSpentSecs:   sub.TimeSpentSecs,
		HintsUsed:       sub.HintsUsed,
		SubmittedAnswer: sub.SubmittedAnswer,
		Language:        ex.Language,
	})
	if recErr != nil && !res.Committed {
		return StepResult{Session: sess}, recErr
	}

	advance(&sess, sub.Correct, res, eng.Session)

	now := s.Now()
	out := StepResult{Progression: res}
	budgetUsed := sess.CurrentStep >= sess.TotalSteps
	timeUp := sess.TargetMinutes > 0 && now.Sub(sess.StartedAt) >= time.Duration(sess.TargetMinutes)*time.Minute
	if budgetUsed || timeUp {
		recap := s.finalize(&sess, now, eng.Session, budgetUsed)
		out.Recap = &recap
		out.SessionComplete = true
	}

	if err := s.deps.Sessions.SaveSession(ctx, &sess); err != nil {
		return StepResult{Session: sess}, fmt.Errorf("save session: %w", err)
	}
	out.Session = sess
	out.NewStep = sess.CurrentStep

	if recErr != nil && !out.SessionComplete {
		return out, recErr
	}
	return out, nil
}

// advance applies one answer to the session counters. The session streak is
// independent of the per-skill streak.
func advance(sess *store.LearningSession, correct bool, res progression.Result, rules config.SessionRules) {
	sess.CurrentStep++
	sess.Completed++
	if correct {
		sess.Correct++
		sess.Streak++
		if rules.StreakBonusEvery > 0 && sess.Streak%rules.StreakBonusEvery == 0 {
			sess.StreakBonusXP += rules.StreakBonusXP
		}
	} else {
		sess.Streak = 0
	}
	if sess.Streak > sess.BestStreak {
		sess.BestStreak = sess.Streak
	}
	sess.LevelUp = sess.LevelUp || res.LevelUp
	sess.MasteryReached = sess.MasteryReached || res.Mastered
	if res.NextSkillID != "" {
		sess.CurrentSkillID = res.NextSkillID
	}
}

// Complete finalizes the session and returns its recap. Completing an
// already completed session returns the stored recap.
func (s *Service) Complete(ctx context.Context, id string) (Recap, error) {
	eng := s.cfg.Engine()

	sess, err := s.deps.Sessions.GetSession(ctx, id)
	if err != nil {
		return Recap{}, err
	}
	switch Status(sess.Status) {
	case StatusCompleted:
		if sess.Recap != nil {
			return *sess.Recap, nil
		}
		return BuildRecap(sess, *sess.EndedAt, eng.Session, sess.CurrentStep >= sess.TotalSteps), nil
	case StatusAbandoned:
		return Recap{}, ErrSessionClosed
	}

	recap := s.finalize(&sess, s.Now(), eng.Session, sess.CurrentStep >= sess.TotalSteps)
	if err := s.deps.Sessions.SaveSession(ctx, &sess); err != nil {
		return Recap{}, fmt.Errorf("save session: %w", err)
	}
	return recap, nil
}

// Abandon discards the session envelope. Answers already recorded stay in
// the student's progress.
func (s *Service) Abandon(ctx context.Context, id string) error {
	sess, err := s.deps.Sessions.GetSession(ctx, id)
	if err != nil {
		return err
	}
	switch Status(sess.Status) {
	case StatusAbandoned:
		return nil
	case StatusCompleted:
		return ErrSessionClosed
	}

	now := s.Now()
	sess.Status = string(StatusAbandoned)
	sess.EndedAt = &now
	if err := s.deps.Sessions.SaveSession(ctx, &sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	metrics.SessionsTotal.WithLabelValues("abandoned").Inc()
	s.log.Info("session abandoned", zap.String("session_id", id), zap.Int("step", sess.CurrentStep))
	return nil
}

func (s *Service) finalize(sess *store.LearningSession, now time.Time, rules config.SessionRules, fullRun bool) Recap {
	recap := BuildRecap(*sess, now, rules, fullRun)
	sess.Status = string(StatusCompleted)
	sess.EndedAt = &now
	sess.Recap = &recap

	metrics.SessionsTotal.WithLabelValues("completed").Inc()
	s.log.Info("session completed",
		zap.String("session_id", sess.ID),
		zap.Int("accuracy_pct", recap.AccuracyPct),
		zap.Int("xp", recap.XP))
	return recap
}

func (s *Service) active(ctx context.Context, id string) (store.LearningSession, error) {
	sess, err := s.deps.Sessions.GetSession(ctx, id)
	if err != nil {
		return sess, err
	}
	if Status(sess.Status) != StatusActive {
		return sess, ErrSessionClosed
	}
	return sess, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
