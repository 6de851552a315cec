package contentgen

import (
	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/llm"
)

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func strList(desc string, min int) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"minItems":    min,
		"description": desc,
	}
}

func object(props map[string]any, required ...string) map[string]any {
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             req,
		"additionalProperties": false,
	}
}

// exerciseSchemas holds the strict output shape of every generatable type.
var exerciseSchemas = map[exercise.Type]*llm.Schema{
	exercise.TypeQCM: {
		Name:        "exercise-qcm",
		Description: "A multiple-choice question with exactly four options",
		Definition: object(map[string]any{
			"question": str("The question shown to the child"),
			"options": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"minItems":    4,
				"maxItems":    4,
				"description": "Exactly 4 distinct options; distractors reflect common mistakes",
			},
			"correct": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     3,
				"description": "Zero-based index of the correct option",
			},
			"explanation": str("One or two sentences explaining the right answer"),
		}, "question", "options", "correct", "explanation"),
	},
	exercise.TypeFillBlank: {
		Name:        "exercise-fill-blank",
		Description: "A sentence with one or more ___ gaps to fill",
		Definition: object(map[string]any{
			"text":    str("The text, with each gap written as ___"),
			"answers": strList("The expected word for each gap, in order", 1),
		}, "text", "answers"),
	},
	exercise.TypeDragDrop: {
		Name:        "exercise-drag-drop",
		Description: "Items the child drags into the right order",
		Definition: object(map[string]any{
			"prompt": str("What the child must order, and by which rule"),
			"items":  strList("The items, shuffled", 2),
			"correct_order": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "integer", "minimum": 0},
				"minItems":    2,
				"description": "Indices into items, in the expected order",
			},
		}, "prompt", "items", "correct_order"),
	},
	exercise.TypeFreeInput: {
		Name:        "exercise-free-input",
		Description: "An open question with a short typed answer",
		Definition: object(map[string]any{
			"question":         str("The question shown to the child"),
			"answer":           str("The expected answer, as short as possible"),
			"accepted_answers": strList("Other spellings or forms that are also correct", 0),
		}, "question", "answer", "accepted_answers"),
	},
	exercise.TypeMatching: {
		Name:        "exercise-matching",
		Description: "Pairs the child connects left to right",
		Definition: object(map[string]any{
			"prompt": str("What links the two columns"),
			"pairs": map[string]any{
				"type":     "array",
				"minItems": 2,
				"items": object(map[string]any{
					"left":  str("Left entry"),
					"right": str("Matching right entry"),
				}, "left", "right"),
			},
		}, "prompt", "pairs"),
	},
}

// HintSchema is the output shape of a hint.
var HintSchema = &llm.Schema{
	Name:        "exercise-hint",
	Description: "A short hint that helps without giving the answer away",
	Definition: object(map[string]any{
		"hint": str("One or two short sentences nudging the child toward the method"),
	}, "hint"),
}

// LessonSchema is the output shape of a micro-lesson.
var LessonSchema = &llm.Schema{
	Name:        "micro-lesson",
	Description: "A short lesson introducing a skill before practice",
	Definition: object(map[string]any{
		"title":          str("Short, friendly lesson title"),
		"explanation":    str("The idea explained in 3-5 simple sentences"),
		"worked_example": str("One fully worked example with numbered steps"),
	}, "title", "explanation", "worked_example"),
}
