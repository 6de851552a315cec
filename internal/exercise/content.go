package exercise

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Content is one variant of the exercise payload union. Validate reports the
// first structural problem found, or nil.
type Content interface {
	Type() Type
	Validate() error
}

// BlankMarker separates the segments of a fill-in-the-blank text.
const BlankMarker = "___"

// QCM is a multiple-choice question with exactly four options.
type QCM struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

func (QCM) Type() Type { return TypeQCM }

func (c QCM) Validate() error {
	if strings.TrimSpace(c.Question) == "" {
		return fmt.Errorf("qcm: question is empty")
	}
	if len(c.Options) != 4 {
		return fmt.Errorf("qcm: need exactly 4 options, got %d", len(c.Options))
	}
	seen := make(map[string]bool, len(c.Options))
	for i, o := range c.Options {
		key := strings.ToLower(strings.TrimSpace(o))
		if key == "" {
			return fmt.Errorf("qcm: option %d is empty", i+1)
		}
		if seen[key] {
			return fmt.Errorf("qcm: duplicate option %q", o)
		}
		seen[key] = true
	}
	if c.Correct < 0 || c.Correct >= len(c.Options) {
		return fmt.Errorf("qcm: correct index %d out of range", c.Correct)
	}
	return nil
}

// FillBlank is a text with one or more BlankMarker gaps.
type FillBlank struct {
	Text    string   `json:"text"`
	Answers []string `json:"answers"`
}

func (FillBlank) Type() Type { return TypeFillBlank }

func (c FillBlank) Validate() error {
	blanks := strings.Count(c.Text, BlankMarker)
	if blanks == 0 {
		return fmt.Errorf("fill_blank: text has no %q marker", BlankMarker)
	}
	if len(c.Answers) != blanks {
		return fmt.Errorf("fill_blank: %d blanks but %d answers", blanks, len(c.Answers))
	}
	for i, a := range c.Answers {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("fill_blank: answer %d is empty", i+1)
		}
	}
	return nil
}

// DragDrop asks the learner to put Items in order. CorrectOrder holds item
// indices in their expected sequence.
type DragDrop struct {
	Prompt       string   `json:"prompt"`
	Items        []string `json:"items"`
	CorrectOrder []int    `json:"correct_order"`
}

func (DragDrop) Type() Type { return TypeDragDrop }

func (c DragDrop) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return fmt.Errorf("drag_drop: prompt is empty")
	}
	if len(c.Items) < 2 {
		return fmt.Errorf("drag_drop: need at least 2 items, got %d", len(c.Items))
	}
	if len(c.CorrectOrder) != len(c.Items) {
		return fmt.Errorf("drag_drop: correct_order has %d entries for %d items", len(c.CorrectOrder), len(c.Items))
	}
	seen := make([]bool, len(c.Items))
	for _, idx := range c.CorrectOrder {
		if idx < 0 || idx >= len(c.Items) || seen[idx] {
			return fmt.Errorf("drag_drop: correct_order is not a permutation")
		}
		seen[idx] = true
	}
	return nil
}

// FreeInput is an open question checked against an answer and alternates.
type FreeInput struct {
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	AcceptedAnswers []string `json:"accepted_answers,omitempty"`
}

func (FreeInput) Type() Type { return TypeFreeInput }

func (c FreeInput) Validate() error {
	if strings.TrimSpace(c.Question) == "" {
		return fmt.Errorf("free_input: question is empty")
	}
	if strings.TrimSpace(c.Answer) == "" {
		return fmt.Errorf("free_input: answer is empty")
	}
	return nil
}

// Pair is one left/right association of a Matching exercise.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Matching asks the learner to connect each left entry with its right entry.
type Matching struct {
	Prompt string `json:"prompt"`
	Pairs  []Pair `json:"pairs"`
}

func (Matching) Type() Type { return TypeMatching }

func (c Matching) Validate() error {
	if len(c.Pairs) < 2 {
		return fmt.Errorf("matching: need at least 2 pairs, got %d", len(c.Pairs))
	}
	for i, p := range c.Pairs {
		if strings.TrimSpace(p.Left) == "" || strings.TrimSpace(p.Right) == "" {
			return fmt.Errorf("matching: pair %d has an empty side", i+1)
		}
	}
	return nil
}

// Template carries a payload for richer, human-authored template types
// (timeline, audio, ...). It is opaque to the engine.
type Template struct {
	Tag  Type
	Data json.RawMessage
}

func (c Template) Type() Type { return c.Tag }

func (c Template) Validate() error {
	if c.Tag == "" {
		return fmt.Errorf("template: empty type tag")
	}
	if !json.Valid(c.Data) {
		return fmt.Errorf("template %q: payload is not valid JSON", c.Tag)
	}
	return nil
}

func (c Template) MarshalJSON() ([]byte, error) {
	if len(c.Data) == 0 {
		return []byte("null"), nil
	}
	return c.Data, nil
}
