package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/kidquest/ent/schema"
	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/skillgraph"
	"github.com/abhisek/kidquest/internal/spacedrep"
)

var (
	// ErrNotFound is returned when a required record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a record changed since it was read.
	ErrConflict = errors.New("concurrent update")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// Student is a learner profile.
type Student struct {
	ID          string
	DisplayName string
	Age         *int
	Language    string
	Method      string
	CreatedAt   time.Time
}

// SkillProgress is the per (student, skill) accumulator row.
type SkillProgress struct {
	StudentID     string
	SkillID       string
	Attempts      int
	Correct       int
	MasteryPct    int
	CurrentStreak int
	BestStreak    int
	Level         int
	MasteredAt    *time.Time
	Version       int64
	UpdatedAt     time.Time
}

// CorrectRate returns correct/attempts, or 0 with no attempts.
func (p SkillProgress) CorrectRate() float64 {
	if p.Attempts == 0 {
		return 0
	}
	return float64(p.Correct) / float64(p.Attempts)
}

// Attempt is one answer to one exercise.
type Attempt struct {
	Sequence        int64
	StudentID       string
	SkillID         string
	ExerciseID      string
	SessionID       string
	Correct         bool
	SubmittedAnswer string
	TimeSpentSecs   int
	HintsUsed       int
	Timestamp       time.Time
}

// Unlock grants a student access to a skill.
type Unlock struct {
	StudentID  string
	SkillID    string
	UnlockedBy string
	UnlockedAt time.Time
}

// DueReview is a skill whose spaced-repetition review is due.
type DueReview struct {
	SkillID string
	State   spacedrep.State
}

// Recap is the summary of a completed learning session.
type Recap = schema.RecapSummary

// LearningSession is the persisted session envelope.
type LearningSession struct {
	ID             string
	StudentID      string
	SkillID        string
	CurrentSkillID string
	Kind           string
	Status         string
	TargetMinutes  int
	TotalSteps     int
	CurrentStep    int
	Completed      int
	Correct        int
	Streak         int
	BestStreak     int
	StreakBonusXP  int
	LevelUp        bool
	MasteryReached bool
	TheoryDone     bool
	Lesson         string
	StartedAt      time.Time
	EndedAt        *time.Time
	Recap          *Recap
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	LLMRequestEventData
	ID        int
	Sequence  int64
	Timestamp time.Time
}

// LLMUsage aggregates token usage for one purpose or model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// SkillRepo reads and writes the skill catalog.
type SkillRepo interface {
	UpsertSkill(ctx context.Context, s skillgraph.Skill) error
	// GetSkill returns ErrNotFound for unknown IDs.
	GetSkill(ctx context.Context, id string) (skillgraph.Skill, error)
	ListSkills(ctx context.Context) ([]skillgraph.Skill, error)
	// NextInDomain returns the next published skill by sort order, or nil at
	// the end of the domain.
	NextInDomain(ctx context.Context, id string) (*skillgraph.Skill, error)
}

// StudentRepo manages learner profiles.
type StudentRepo interface {
	UpsertStudent(ctx context.Context, s Student) error
	GetStudent(ctx context.Context, id string) (Student, error)
}

// ProgressRepo manages per (student, skill) progress rows.
type ProgressRepo interface {
	// GetOrCreateProgress returns the row, inserting a fresh one if absent.
	GetOrCreateProgress(ctx context.Context, studentID, skillID string) (SkillProgress, error)
	GetProgress(ctx context.Context, studentID, skillID string) (SkillProgress, error)
	// SaveProgress writes p if its Version still matches the stored row and
	// bumps p.Version. Returns ErrConflict otherwise.
	SaveProgress(ctx context.Context, p *SkillProgress) error
	ListProgress(ctx context.Context, studentID string) ([]SkillProgress, error)
}

// ExerciseRepo manages the exercise catalog. Validated rows are never
// mutated in place.
type ExerciseRepo interface {
	InsertExercise(ctx context.Context, e exercise.Exercise) (exercise.Exercise, error)
	GetExercise(ctx context.Context, id string) (exercise.Exercise, error)
	// ListValidated returns validated exercises sorted by difficulty.
	ListValidated(ctx context.Context, skillID string) ([]exercise.Exercise, error)
	CountValidated(ctx context.Context, skillID string) (int, error)
}

// AttemptRepo is the append-only attempt log.
type AttemptRepo interface {
	AppendAttempt(ctx context.Context, a Attempt) error
	RecentExerciseIDs(ctx context.Context, studentID, skillID string, since time.Time) (map[string]bool, error)
}

// UnlockRepo records skill unlocks.
type UnlockRepo interface {
	// UpsertUnlock inserts the unlock if absent. created is false when the
	// student already had access.
	UpsertUnlock(ctx context.Context, u Unlock) (created bool, err error)
	ListUnlocks(ctx context.Context, studentID string) ([]Unlock, error)
}

// AnswerCommit is every write produced by one recorded answer.
type AnswerCommit struct {
	Progress *SkillProgress
	Review   spacedrep.State
	Attempt  Attempt
	// Unlock is set when mastering the skill opens the next one.
	Unlock *Unlock
}

// AnswerRepo stores the writes of one answer atomically.
type AnswerRepo interface {
	// CommitAnswer applies all of c or none of it. On success c.Progress.Version
	// is bumped; a stale version returns ErrConflict. created reports whether
	// the unlock row was new.
	CommitAnswer(ctx context.Context, c AnswerCommit) (created bool, err error)
}

// ReviewRepo persists spaced-repetition state.
type ReviewRepo interface {
	// GetReview returns nil when the pair was never reviewed.
	GetReview(ctx context.Context, studentID, skillID string) (*spacedrep.State, error)
	SaveReview(ctx context.Context, studentID, skillID string, st spacedrep.State) error
	DueReviews(ctx context.Context, studentID string, now time.Time) ([]DueReview, error)
}

// SessionRepo persists learning session envelopes.
type SessionRepo interface {
	CreateSession(ctx context.Context, s *LearningSession) error
	GetSession(ctx context.Context, id string) (LearningSession, error)
	SaveSession(ctx context.Context, s *LearningSession) error
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	// GetLLMEvent returns nil when no event has the ID.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
