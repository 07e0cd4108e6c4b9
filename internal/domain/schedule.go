package domain

import "time"

// Grade is the user's ordinal answer to a card review.
type Grade int

const (
	GradeFail Grade = 1
	GradeHard Grade = 2
	GradeGood Grade = 3
	GradeEasy Grade = 4
)

// Valid reports whether g is within the recognized grade scale.
func (g Grade) Valid() bool {
	return g >= GradeFail && g <= GradeEasy
}

// Passing reports whether g counts as a successful review.
func (g Grade) Passing() bool {
	return g > GradeFail
}

func (g Grade) String() string {
	switch g {
	case GradeFail:
		return "fail"
	case GradeHard:
		return "hard"
	case GradeGood:
		return "good"
	case GradeEasy:
		return "easy"
	default:
		return "invalid"
	}
}

// SchedulingState is the spaced-repetition state owned by exactly one
// card. It is produced only by the scheduler and written back only
// through the store.
type SchedulingState struct {
	EaseFactor  float64   // never below the configured floor
	Interval    int       // days until the next review
	Repetitions int       // consecutive successful reviews
	Lapses      int       // failed reviews, never decreasing
	DueAt       time.Time // next scheduled review
}

// ReviewLogEntry is the immutable record of a single review. Entries
// are append-only and survive card deletion unless explicitly purged.
type ReviewLogEntry struct {
	CardID            CardID
	ReviewedAt        time.Time
	Grade             Grade
	ResultingInterval int
}
