package contentgen

import (
	"fmt"
	"strings"
)

// Method is a pedagogical style. Unknown methods fall back to MethodPlayful.
type Method string

const (
	MethodPlayful    Method = "playful"
	MethodMontessori Method = "montessori"
	MethodClassic    Method = "classic"
)

// AgeBand groups target ages that share a register.
type AgeBand string

const (
	BandYoung  AgeBand = "6-7"
	BandMiddle AgeBand = "8-9"
	BandOlder  AgeBand = "10-12"
)

// BandFor maps an age to its band. Ages are clamped by the caller.
func BandFor(age int) AgeBand {
	switch {
	case age <= 7:
		return BandYoung
	case age <= 9:
		return BandMiddle
	default:
		return BandOlder
	}
}

var methodRules = map[Method]string{
	MethodPlayful: `- Wrap the task in a tiny story or game with a friendly character.
- Keep the tone cheerful and use one or two fitting emoji at most.`,
	MethodMontessori: `- Anchor the task in concrete, hands-on objects the child can picture (beads, blocks, fruit).
- Let the child discover the rule; avoid giving it away in the question.`,
	MethodClassic: `- State the task plainly, like a well-written workbook exercise.
- No story framing and no emoji.`,
}

var bandRules = map[AgeBand]string{
	BandYoung: `- Use very short sentences (under 10 words) and everyday words only.
- Numbers stay small and familiar.`,
	BandMiddle: `- Use short sentences and explain any new word in the same sentence.
- One idea per question.`,
	BandOlder: `- Sentences can be longer and may introduce the proper subject vocabulary.
- Multi-step reasoning is fine if each step is clear.`,
}

// styleRules renders the style block for a method and age.
func styleRules(method Method, age int) string {
	rules, ok := methodRules[method]
	if !ok {
		method = MethodPlayful
		rules = methodRules[method]
	}
	band := BandFor(age)

	var b strings.Builder
	fmt.Fprintf(&b, "Pedagogical style (%s, age %s):\n", method, band)
	b.WriteString(rules)
	b.WriteString("\n")
	b.WriteString(bandRules[band])
	return b.String()
}
