package contentgen

import (
	"errors"
	"fmt"

	"github.com/abhisek/kidquest/internal/llm"
)

// Kind classifies generation failures. None of them is retried here.
type Kind int

const (
	// KindConfig means no completion provider is configured.
	KindConfig Kind = iota + 1
	// KindValidation means the response did not parse into a valid payload.
	KindValidation
	// KindUpstream covers provider errors, rate limits and timeouts.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrConfig     = &Error{Kind: KindConfig}
	ErrValidation = &Error{Kind: KindValidation}
	ErrUpstream   = &Error{Kind: KindUpstream}
)

// Error is a typed generation failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("content generation failed (%s)", e.Kind)
	}
	return fmt.Sprintf("content generation failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 when err is not a generation error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}

// classify maps a provider error to a generation error.
func classify(err error) *Error {
	var (
		invalid   *llm.ErrInvalidResponse
		truncated *llm.ErrMaxTokensExceeded
	)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return &Error{Kind: KindConfig, Err: err}
	case errors.As(err, &invalid), errors.As(err, &truncated):
		return &Error{Kind: KindValidation, Err: err}
	default:
		return &Error{Kind: KindUpstream, Err: err}
	}
}
