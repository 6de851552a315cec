package api

import (
	"encoding/json"
	"time"

	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/pool"
	"github.com/abhisek/kidquest/internal/progression"
	"github.com/abhisek/kidquest/internal/session"
	"github.com/abhisek/kidquest/internal/store"
)

type exerciseDTO struct {
	ID          string          `json:"id"`
	SkillID     string          `json:"skill_id"`
	Type        string          `json:"type"`
	Difficulty  int             `json:"difficulty"`
	Content     json.RawMessage `json:"content"`
	AIGenerated bool            `json:"ai_generated"`
	Language    string          `json:"language"`
}

func toExercise(e exercise.Exercise) exerciseDTO {
	raw, err := e.MarshalContent()
	if err != nil {
		raw = json.RawMessage("null")
	}
	return exerciseDTO{
		ID:          e.ID,
		SkillID:     e.SkillID,
		Type:        string(e.Type),
		Difficulty:  e.Difficulty,
		Content:     raw,
		AIGenerated: e.IsAIGenerated(),
		Language:    e.Language,
	}
}

type selectionDTO struct {
	Exercise              exerciseDTO    `json:"exercise"`
	IsAIGenerated         bool           `json:"is_ai_generated"`
	QuotaInfo             pool.QuotaInfo `json:"quota_info"`
	RecommendedDifficulty int            `json:"recommended_difficulty"`
}

func toSelection(s pool.Selection) selectionDTO {
	return selectionDTO{
		Exercise:              toExercise(s.Exercise),
		IsAIGenerated:         s.AIGenerated,
		QuotaInfo:             s.Quota,
		RecommendedDifficulty: s.RecommendedDifficulty,
	}
}

type progressDTO struct {
	Attempts      int        `json:"attempts"`
	Correct       int        `json:"correct"`
	MasteryPct    int        `json:"mastery_percentage"`
	CurrentStreak int        `json:"current_streak"`
	BestStreak    int        `json:"best_streak"`
	Level         int        `json:"level"`
	MasteredAt    *time.Time `json:"mastered_at,omitempty"`
}

type answerResultDTO struct {
	NextSkillID  string        `json:"next_skill_id"`
	NextExercise *selectionDTO `json:"next_exercise,omitempty"`
	Reason       string        `json:"reason"`
	Outcome      string        `json:"outcome"`
	LevelUp      bool          `json:"level_up"`
	Mastered     bool          `json:"mastered"`
	Progress     progressDTO   `json:"progress"`
	NextReviewAt time.Time     `json:"next_review_at"`
}

func toAnswerResult(r progression.Result, withExercise bool) answerResultDTO {
	p := r.Progress
	out := answerResultDTO{
		NextSkillID: r.NextSkillID,
		Reason:      r.Reason,
		Outcome:     string(r.Outcome),
		LevelUp:     r.LevelUp,
		Mastered:    r.Mastered,
		Progress: progressDTO{
			Attempts:      p.Attempts,
			Correct:       p.Correct,
			MasteryPct:    p.MasteryPct,
			CurrentStreak: p.CurrentStreak,
			BestStreak:    p.BestStreak,
			Level:         p.Level,
			MasteredAt:    p.MasteredAt,
		},
		NextReviewAt: r.Review.NextReviewDate,
	}
	if withExercise {
		sel := toSelection(r.NextExercise)
		out.NextExercise = &sel
	}
	return out
}

type sessionDTO struct {
	ID             string         `json:"id"`
	StudentID      string         `json:"student_id"`
	SkillID        string         `json:"skill_id"`
	CurrentSkillID string         `json:"current_skill_id"`
	Type           string         `json:"type"`
	Status         string         `json:"status"`
	TotalSteps     int            `json:"total_steps"`
	CurrentStep    int            `json:"current_step"`
	Completed      int            `json:"completed"`
	Correct        int            `json:"correct"`
	TheoryDone     bool           `json:"theory_done"`
	Lesson         string         `json:"lesson,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	Recap          *session.Recap `json:"recap,omitempty"`
}

func toSession(s store.LearningSession) sessionDTO {
	return sessionDTO{
		ID:             s.ID,
		StudentID:      s.StudentID,
		SkillID:        s.SkillID,
		CurrentSkillID: s.CurrentSkillID,
		Type:           s.Kind,
		Status:         s.Status,
		TotalSteps:     s.TotalSteps,
		CurrentStep:    s.CurrentStep,
		Completed:      s.Completed,
		Correct:        s.Correct,
		TheoryDone:     s.TheoryDone,
		Lesson:         s.Lesson,
		StartedAt:      s.StartedAt,
		Recap:          s.Recap,
	}
}

type dueReviewDTO struct {
	SkillID      string    `json:"skill_id"`
	IntervalDays int       `json:"interval_days"`
	EaseFactor   float64   `json:"ease_factor"`
	Repetitions  int       `json:"repetitions"`
	NextReviewAt time.Time `json:"next_review_at"`
	Status       string    `json:"status"`
}

// Request bodies.

type answerRequest struct {
	StudentID       string `json:"student_id" binding:"required"`
	SkillID         string `json:"skill_id" binding:"required"`
	ExerciseID      string `json:"exercise_id" binding:"required"`
	Correct         bool   `json:"correct"`
	TimeSpentSecs   int    `json:"time_spent_seconds" binding:"min=0"`
	HintsUsed       int    `json:"hints_used" binding:"min=0"`
	SubmittedAnswer string `json:"submitted_answer"`
	Language        string `json:"language"`
	Method          string `json:"method"`
}

type createSessionRequest struct {
	StudentID     string `json:"student_id" binding:"required"`
	SkillID       string `json:"skill_id" binding:"required"`
	Type          string `json:"type" binding:"required"`
	TargetMinutes int    `json:"target_minutes" binding:"min=0"`
}

type sessionAnswerRequest struct {
	ExerciseID      string `json:"exercise_id" binding:"required"`
	Correct         bool   `json:"correct"`
	TimeSpentSecs   int    `json:"time_spent_seconds" binding:"min=0"`
	HintsUsed       int    `json:"hints_used" binding:"min=0"`
	SubmittedAnswer string `json:"submitted_answer"`
}
