package exercise

import (
	"encoding/json"
	"fmt"
)

// The wire structs use pointers so that a missing required field can be told
// apart from a zero value.
type qcmWire struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Correct     *int     `json:"correct"`
	Explanation string   `json:"explanation"`
}

type dragDropWire struct {
	Prompt       string   `json:"prompt"`
	Items        []string `json:"items"`
	CorrectOrder []int    `json:"correct_order"`
}

// Decode parses raw into the Content variant selected by t and validates it.
// Unknown types decode to Template.
func Decode(t Type, raw []byte) (Content, error) {
	var c Content

	switch t {
	case TypeQCM:
		var w qcmWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode qcm: %w", err)
		}
		if w.Correct == nil {
			return nil, fmt.Errorf("qcm: missing correct index")
		}
		c = QCM{Question: w.Question, Options: w.Options, Correct: *w.Correct, Explanation: w.Explanation}
	case TypeFillBlank:
		var v FillBlank
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode fill_blank: %w", err)
		}
		c = v
	case TypeDragDrop:
		var w dragDropWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("decode drag_drop: %w", err)
		}
		c = DragDrop(w)
	case TypeFreeInput:
		var v FreeInput
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode free_input: %w", err)
		}
		c = v
	case TypeMatching:
		var v Matching
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode matching: %w", err)
		}
		c = v
	default:
		c = Template{Tag: t, Data: append(json.RawMessage(nil), raw...)}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
