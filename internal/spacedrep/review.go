package spacedrep

import "time"

// IsDue returns true if the skill is due for review (at or past the review date).
func (s State) IsDue(now time.Time) bool {
	return !s.NextReviewDate.IsZero() && !now.Before(s.NextReviewDate)
}

// OverdueDays returns how many days past due the skill is. Returns 0 if not yet due.
func (s State) OverdueDays(now time.Time) float64 {
	if !s.IsDue(now) {
		return 0
	}
	return now.Sub(s.NextReviewDate).Hours() / 24.0
}

// DaysUntilReview returns the number of whole days until the next review.
// Returns 0 if already due.
func (s State) DaysUntilReview(now time.Time) int {
	if s.IsDue(now) {
		return 0
	}
	hours := s.NextReviewDate.Sub(now).Hours()
	days := int(hours / 24)
	if hours-float64(days*24) > 0 {
		days++
	}
	return days
}

// ReviewStatus describes a skill's review status for display.
type ReviewStatus string

const (
	ReviewNotDue  ReviewStatus = "not_due"
	ReviewDue     ReviewStatus = "due"
	ReviewOverdue ReviewStatus = "overdue"
)

// Status reports overdue once the review is late by more than half of its
// interval.
func (s State) Status(now time.Time) ReviewStatus {
	if !s.IsDue(now) {
		return ReviewNotDue
	}
	grace := float64(s.IntervalDays) * 0.5
	if s.OverdueDays(now) > grace {
		return ReviewOverdue
	}
	return ReviewDue
}
