package contentgen

// TaskParams bounds one kind of completion call.
type TaskParams struct {
	MaxTokens   int
	Temperature float64
}

// Config holds per-task completion settings. Exercise generation gets the
// largest budget and the most randomness; hints stay short and focused.
type Config struct {
	Exercise TaskParams
	Hint     TaskParams
	Lesson   TaskParams
}

// DefaultConfig returns the recommended per-task settings.
func DefaultConfig() Config {
	return Config{
		Exercise: TaskParams{MaxTokens: 1024, Temperature: 0.8},
		Hint:     TaskParams{MaxTokens: 150, Temperature: 0.3},
		Lesson:   TaskParams{MaxTokens: 600, Temperature: 0.5},
	}
}

// Purpose labels recorded with every LLM event.
const (
	PurposeExercise = "exercise-gen"
	PurposeHint     = "hint"
	PurposeLesson   = "lesson"
)
