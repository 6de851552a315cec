package contentgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/kidquest/internal/exercise"
	"github.com/abhisek/kidquest/internal/skillgraph"
)

const exerciseSystemPrompt = `You are an experienced primary-school teacher writing practice exercises for children aged 6 to 12.

Rules:
- Write exactly one exercise for the given skill, difficulty and exercise type.
- Write every learner-facing string in the requested language.
- Difficulty 1 is a first contact with the skill; difficulty 5 is a real stretch for a child who already masters it.
- The exercise must have one unambiguous correct answer.
- Respect the output shape of the exercise type exactly. Return only the JSON object, no surrounding text.`

// typeRules restates the strict shape of each type in prose; models follow
// both the schema and the instruction better than either alone.
var typeRules = map[exercise.Type]string{
	exercise.TypeQCM:       `"qcm": fields question, options (exactly 4 distinct strings), correct (integer index 0-3 of the right option), explanation.`,
	exercise.TypeFillBlank: `"fill_blank": fields text (use ___ for each gap) and answers (one answer per gap, in order).`,
	exercise.TypeDragDrop:  `"drag_drop": fields prompt, items (at least 2, shuffled) and correct_order (indices of items in the right order, a permutation).`,
	exercise.TypeFreeInput: `"free_input": fields question, answer (short) and accepted_answers (other accepted forms, may be empty).`,
	exercise.TypeMatching:  `"matching": fields prompt and pairs (at least 2 objects with left and right).`,
}

func buildExerciseMessage(req ExerciseRequest) string {
	var b strings.Builder

	writeSkill(&b, req.Skill)
	fmt.Fprintf(&b, "Difficulty: %d/5\n", req.Difficulty)
	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Exercise type: %s\n", typeRules[req.Type])
	b.WriteString("\n")
	b.WriteString(styleRules(req.Method, req.Age))

	return b.String()
}

const hintSystemPrompt = `You help a child who is stuck on an exercise. Give a hint that points at the method or a first step. Never reveal the answer.`

func buildHintMessage(req HintRequest, payload string) string {
	var b strings.Builder

	writeSkill(&b, req.Skill)
	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Exercise (%s):\n%s\n\n", req.Exercise.Type, payload)
	b.WriteString(styleRules(req.Method, req.Age))

	return b.String()
}

const lessonSystemPrompt = `You are a patient, encouraging teacher. Introduce a skill to a child with a very short lesson before they practise it.`

func buildLessonMessage(req LessonRequest) string {
	var b strings.Builder

	writeSkill(&b, req.Skill)
	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	b.WriteString(`
Instructions:
1. Explain the idea in 3-5 short sentences a child understands.
2. Show one worked example with numbered steps.
3. Do not ask the child any question; practice comes afterwards.

`)
	b.WriteString(styleRules(req.Method, req.Age))

	return b.String()
}

func writeSkill(b *strings.Builder, s skillgraph.Skill) {
	fmt.Fprintf(b, "Subject: %s\n", s.Subject)
	fmt.Fprintf(b, "Domain: %s\n", s.Domain)
	fmt.Fprintf(b, "Skill: %s\n", s.DisplayName())
	if s.Description != "" {
		fmt.Fprintf(b, "Description: %s\n", s.Description)
	}
}
