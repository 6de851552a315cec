// Package exercise defines the exercise record served to learners and the
// tagged union of per-type content payloads.
package exercise

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type tags the shape of an exercise payload. The set is open: template types
// authored by humans may use any tag and are carried as Template content.
type Type string

const (
	TypeQCM       Type = "qcm"
	TypeFillBlank Type = "fill_blank"
	TypeDragDrop  Type = "drag_drop"
	TypeFreeInput Type = "free_input"
	TypeMatching  Type = "matching"
)

// GeneratableTypes lists the types the content generator can produce,
// in a stable order.
func GeneratableTypes() []Type {
	return []Type{TypeQCM, TypeFillBlank, TypeDragDrop, TypeFreeInput, TypeMatching}
}

// IsGeneratable reports whether t has a strict schema the generator can target.
func (t Type) IsGeneratable() bool {
	for _, g := range GeneratableTypes() {
		if g == t {
			return true
		}
	}
	return false
}

// Provenance records who authored an exercise.
type Provenance string

const (
	ProvenanceHuman Provenance = "human"
	ProvenanceAI    Provenance = "ai"
)

// MinDifficulty and MaxDifficulty bound every difficulty value.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// ClampDifficulty forces d into [MinDifficulty, MaxDifficulty].
func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Exercise is a content unit belonging to one skill.
type Exercise struct {
	ID         string
	SkillID    string
	Type       Type
	Difficulty int
	Content    Content
	Validated  bool
	Provenance Provenance
	Language   string
	CreatedAt  time.Time
}

// IsAIGenerated reports whether the exercise came from the content generator.
func (e *Exercise) IsAIGenerated() bool {
	return e.Provenance == ProvenanceAI
}

// MarshalContent encodes the payload for storage.
func (e *Exercise) MarshalContent() ([]byte, error) {
	if e.Content == nil {
		return nil, fmt.Errorf("exercise %q has no content", e.ID)
	}
	return json.Marshal(e.Content)
}
