package spacedrep

// QualityThresholds are the response latencies that separate fast, normal
// and slow correct answers.
type QualityThresholds struct {
	FastSeconds int `mapstructure:"fast_seconds"`
	SlowSeconds int `mapstructure:"slow_seconds"`
}

// DefaultQualityThresholds suits early-reader exercises.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{FastSeconds: 10, SlowSeconds: 30}
}

// Quality maps an answer to an SM-2 quality score. Incorrect answers are
// always below the pass threshold regardless of speed.
func Quality(correct bool, timeSpentSeconds, hintsUsed int, th QualityThresholds) int {
	if !correct {
		if hintsUsed > 0 {
			return 0
		}
		return 1
	}
	if hintsUsed > 0 {
		return 3
	}
	switch {
	case timeSpentSeconds <= th.FastSeconds:
		return 5
	case timeSpentSeconds <= th.SlowSeconds:
		return 4
	default:
		return 3
	}
}
