package llm

import (
	"regexp"
	"strings"
)

// ModelCost is USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost prices one usage total.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*c.InputPerMTok + float64(outputTokens)*c.OutputPerMTok) / 1_000_000
}

// modelCosts prices the models the configuration aliases resolve to and a
// few cheap alternatives worth configuring for exercise generation. List
// prices as of 2026-02.
var modelCosts = map[string]ModelCost{
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4-5": {3, 15},

	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4o":       {2.5, 10},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4.1-nano": {0.1, 0.4},

	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},
	"gemini-2.5-pro":        {1.25, 10},
	"gemini-2.0-flash":      {0.1, 0.4},

	// Offline stand-ins cost nothing.
	"mock": {},
	"none": {},
}

// Snapshot suffixes: Anthropic -20251001, OpenAI -2024-07-18, Gemini -001.
var snapshotSuffix = regexp.MustCompile(`-(\d{8}|\d{4}-\d{2}-\d{2}|\d{3})$`)

// LookupCost prices a model as recorded in the request log, or returns nil
// when unknown. It accepts configuration aliases, snapshot suffixes and
// OpenRouter "vendor/model" IDs.
func LookupCost(model string) *ModelCost {
	candidates := []string{
		model,
		resolveModel(model, anthropicModels),
		resolveModel(model, geminiModels),
	}
	if _, bare, ok := strings.Cut(model, "/"); ok {
		candidates = append(candidates, bare, strings.ReplaceAll(bare, ".", "-"))
	}
	for _, id := range candidates {
		for _, key := range []string{id, snapshotSuffix.ReplaceAllString(id, "")} {
			if c, ok := modelCosts[key]; ok {
				return &c
			}
		}
	}
	return nil
}
