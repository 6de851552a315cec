package api

import (
	"github.com/gin-gonic/gin"

	"github.com/abhisek/kidquest/internal/contentgen"
	"github.com/abhisek/kidquest/internal/progression"
	"github.com/abhisek/kidquest/internal/session"
	"github.com/abhisek/kidquest/internal/store"
)

func (h *Handler) nextExercise(c *gin.Context) {
	sel, err := h.Pool.SelectOrGenerate(c.Request.Context(),
		c.Param("skill"), c.Param("student"), c.Query("language"), c.Query("method"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	success(c, toSelection(sel))
}

func (h *Handler) recordAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.Progression.RecordAnswer(c.Request.Context(), progression.Answer{
		StudentID:       req.StudentID,
		SkillID:         req.SkillID,
		ExerciseID:      req.ExerciseID,
		Correct:         req.Correct,
		TimeSpentSecs:   req.TimeSpentSecs,
		HintsUsed:       req.HintsUsed,
		SubmittedAnswer: req.SubmittedAnswer,
		Language:        req.Language,
		Method:          req.Method,
	})
	if err != nil {
		var data any
		if res.Committed {
			data = toAnswerResult(res, false)
		}
		h.fail(c, err, data)
		return
	}
	success(c, toAnswerResult(res, true))
}

func (h *Handler) dueReviews(c *gin.Context) {
	now := h.now()
	due, err := h.Reviews.DueReviews(c.Request.Context(), c.Param("student"), now)
	if err != nil {
		h.fail(c, err, nil)
		return
	}

	out := make([]dueReviewDTO, 0, len(due))
	for _, d := range due {
		out = append(out, dueReviewDTO{
			SkillID:      d.SkillID,
			IntervalDays: d.State.IntervalDays,
			EaseFactor:   d.State.EaseFactor,
			Repetitions:  d.State.Repetitions,
			NextReviewAt: d.State.NextReviewDate,
			Status:       string(d.State.Status(now)),
		})
	}
	success(c, out)
}

func (h *Handler) hint(c *gin.Context) {
	ctx := c.Request.Context()
	eng := h.Config.Engine()

	ex, err := h.Exercises.GetExercise(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	skill, err := h.Skills.GetSkill(ctx, ex.SkillID)
	if err != nil {
		h.fail(c, err, nil)
		return
	}

	var student store.Student
	if id := c.Query("student"); id != "" {
		student, err = h.Students.GetStudent(ctx, id)
		if err != nil && !store.IsNotFound(err) {
			h.fail(c, err, nil)
			return
		}
	}

	if h.Hints == nil {
		h.fail(c, contentgen.ErrConfig, nil)
		return
	}
	hint, err := h.Hints.GenerateHint(ctx, contentgen.HintRequest{
		Exercise: ex,
		Skill:    skill,
		Age:      eng.ClampAge(student.Age),
		Method:   contentgen.Method(firstNonEmpty(c.Query("method"), student.Method, eng.DefaultMethod)),
		Language: firstNonEmpty(c.Query("language"), student.Language, ex.Language, eng.DefaultLanguage),
	})
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	success(c, gin.H{"exercise_id": ex.ID, "hint": hint})
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	sess, err := h.Sessions.Create(c.Request.Context(), session.CreateRequest{
		StudentID:     req.StudentID,
		SkillID:       req.SkillID,
		Kind:          session.Kind(req.Type),
		TargetMinutes: req.TargetMinutes,
	})
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	created(c, toSession(sess))
}

func (h *Handler) getSession(c *gin.Context) {
	sess, err := h.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	success(c, toSession(sess))
}

func (h *Handler) completeTheory(c *gin.Context) {
	sess, err := h.Sessions.CompleteTheory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	success(c, toSession(sess))
}

func (h *Handler) sessionNextExercise(c *gin.Context) {
	sel, err := h.Sessions.NextExercise(c.Request.Context(), c.Param("id"), c.Query("language"), c.Query("method"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	success(c, toSelection(sel))
}

func (h *Handler) sessionAnswer(c *gin.Context) {
	var req sessionAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.Sessions.SubmitAnswer(c.Request.Context(), c.Param("id"), session.Submission{
		ExerciseID:      req.ExerciseID,
		Correct:         req.Correct,
		TimeSpentSecs:   req.TimeSpentSecs,
		HintsUsed:       req.HintsUsed,
		SubmittedAnswer: req.SubmittedAnswer,
	})

	body := gin.H{
		"new_step":         res.NewStep,
		"session_complete": res.SessionComplete,
		"session":          toSession(res.Session),
	}
	if res.Progression.Committed {
		body["result"] = toAnswerResult(res.Progression, err == nil && !res.SessionComplete)
	}
	if res.Recap != nil {
		body["recap"] = res.Recap
	}

	if err != nil {
		if res.Progression.Committed {
			h.fail(c, err, body)
		} else {
			h.fail(c, err, nil)
		}
		return
	}
	success(c, body)
}

func (h *Handler) completeSession(c *gin.Context) {
	recap, err := h.Sessions.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	success(c, recap)
}

func (h *Handler) abandonSession(c *gin.Context) {
	if err := h.Sessions.Abandon(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, nil)
		return
	}
	success(c, gin.H{"id": c.Param("id"), "status": string(session.StatusAbandoned)})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
