package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/kidquest/internal/contentgen"
	"github.com/abhisek/kidquest/internal/pool"
	"github.com/abhisek/kidquest/internal/session"
	"github.com/abhisek/kidquest/internal/store"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Code: http.StatusCreated, Message: "created", Data: data})
}

func errorJSON(c *gin.Context, code int, message string, data any) {
	c.AbortWithStatusJSON(code, Response{Code: code, Message: message, Data: data})
}

func badRequest(c *gin.Context, message string) {
	errorJSON(c, http.StatusBadRequest, message, nil)
}

// fail maps err to a status code. data, when set, is returned alongside the
// error (e.g. the updated session of a committed answer).
func (h *Handler) fail(c *gin.Context, err error, data any) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		errorJSON(c, http.StatusNotFound, err.Error(), data)
	case errors.Is(err, pool.ErrNoContentAvailable):
		errorJSON(c, http.StatusServiceUnavailable, "no more exercises right now, try again later", data)
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrTheoryPending):
		errorJSON(c, http.StatusConflict, err.Error(), data)
	case errors.Is(err, session.ErrInvalidKind):
		errorJSON(c, http.StatusBadRequest, err.Error(), data)
	case contentgen.KindOf(err) != 0:
		errorJSON(c, http.StatusServiceUnavailable, "content generation unavailable", data)
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
