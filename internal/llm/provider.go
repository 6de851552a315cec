// Package llm sends single-turn structured completion requests to a hosted
// model (Anthropic, OpenAI, OpenRouter or Gemini) on behalf of content
// generation. Providers are wrapped in timeout, rate-limit and request-log
// decorators; nothing here retries.
package llm

import (
	"context"
	"encoding/json"
)

// Provider produces one JSON object per call.
type Provider interface {
	// Generate runs req. When req.Schema is set the provider's native
	// structured output is used and Content is checked against the schema
	// before it is returned.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the configured model, after alias resolution.
	ModelID() string
}

// Request is one completion: a system prompt and the user turn describing
// the exercise, hint or lesson wanted.
type Request struct {
	System   string
	Messages []Message

	// Schema is the shape the reply must have. Without it Content is the
	// raw completion text encoded as a JSON string.
	Schema *Schema

	MaxTokens   int
	Temperature float64

	// Check, when set, decodes the content past what Schema can express.
	// It runs inside the provider call; a failure comes back as
	// *ErrInvalidResponse and is logged as a failed request.
	Check func(content json.RawMessage) error
}

// Message is one conversation turn. Generation prompts are single user
// turns.
type Message struct {
	Role    Role
	Content string
}

// Role is the sender of a Message.
type Role string

const RoleUser Role = "user"

// Schema is a named JSON Schema, e.g. "exercise-qcm". Name doubles as the
// structured-output name on providers that want one.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Normalized Response.StopReason values.
const (
	stopEnd       = "end"
	stopMaxTokens = "max_tokens"
)

// Response is a completed call.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	// Model is the model that served the call, as reported by the provider.
	Model      string
	StopReason string
}

// Usage is the token count of one call, as recorded in the request log.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
