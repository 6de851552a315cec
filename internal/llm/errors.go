package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRateLimit is a 429 from the provider or a request the local limiter
// could not admit before its deadline.
type ErrRateLimit struct {
	Err error
}

func (e *ErrRateLimit) Error() string { return fmt.Sprintf("LLM rate limited: %v", e.Err) }

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse is a reply that does not fit the requested schema or
// fails the request's Check. Content is the rejected payload.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string { return fmt.Sprintf("invalid LLM response: %v", e.Err) }

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers outages, 5xx replies, network failures and
// timeouts.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "LLM provider unavailable"
	}
	return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is structured output cut off at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string { return "LLM response truncated at max tokens" }

// ErrUnauthorized means the provider rejected the credentials (401/403).
// It matches ErrNotConfigured: a bad key is a configuration problem, not an
// outage.
type ErrUnauthorized struct {
	Err error
}

func (e *ErrUnauthorized) Error() string { return fmt.Sprintf("LLM credentials rejected: %v", e.Err) }

func (e *ErrUnauthorized) Unwrap() error { return e.Err }

func (e *ErrUnauthorized) Is(target error) bool { return target == ErrNotConfigured }

// finish turns provider output into a Response. Structured output cut off
// at the token limit is reported as ErrMaxTokensExceeded rather than as a
// schema violation.
func finish(req Request, resp *Response) (*Response, error) {
	if req.Schema != nil {
		if resp.StopReason == stopMaxTokens {
			return nil, &ErrMaxTokensExceeded{Content: resp.Content}
		}
		if err := Validate(req.Schema, resp.Content); err != nil {
			return nil, err
		}
	}
	return check(req, resp)
}

func check(req Request, resp *Response) (*Response, error) {
	if req.Check == nil {
		return resp, nil
	}
	if err := req.Check(resp.Content); err != nil {
		return nil, &ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	return resp, nil
}

// rejectedContent returns the payload carried by a validation error.
func rejectedContent(err error) json.RawMessage {
	var (
		invalid   *ErrInvalidResponse
		truncated *ErrMaxTokensExceeded
	)
	switch {
	case errors.As(err, &invalid):
		return invalid.Content
	case errors.As(err, &truncated):
		return truncated.Content
	}
	return nil
}
