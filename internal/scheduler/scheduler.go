// Package scheduler computes the next scheduling state of a card from
// its current state and a review grade. It is a pure function of its
// inputs: no I/O, no ambient clock, identical output for identical
// input every time.
package scheduler

import (
	"errors"
	"time"

	"github.com/colmryan/memodeck/internal/domain"
)

var ErrInvalidGrade = errors.New("grade outside the recognized scale")

// NewState returns the state a freshly created card starts with: due
// immediately, zero interval, default ease.
func NewState(p *Params, now time.Time) domain.SchedulingState {
	return domain.SchedulingState{
		EaseFactor: p.DefaultEase,
		DueAt:      now.UTC(),
	}
}

// Next computes the state a card moves to when it is reviewed with
// grade at reviewedAt. The input state is never modified.
func Next(p *Params, state domain.SchedulingState, grade domain.Grade, reviewedAt time.Time) (domain.SchedulingState, error) {
	if !grade.Valid() {
		return domain.SchedulingState{}, ErrInvalidGrade
	}

	reviewedAt = reviewedAt.UTC()
	next := state
	next.EaseFactor = clampEase(p, state.EaseFactor+p.EaseDelta[grade])

	if !grade.Passing() {
		next.Repetitions = 0
		next.Lapses = state.Lapses + 1
		next.Interval = p.RelearnInterval
		next.DueAt = reviewedAt.AddDate(0, 0, next.Interval)
		return next, nil
	}

	next.Repetitions = state.Repetitions + 1
	next.Interval = nextInterval(p, state, grade, next.EaseFactor)
	next.DueAt = reviewedAt.AddDate(0, 0, next.Interval)
	return next, nil
}

func nextInterval(p *Params, state domain.SchedulingState, grade domain.Grade, ease float64) int {
	// First-ever pass, or first pass after relearning with a zero
	// interval: the multiplicative formula would barely move, so a
	// fixed first interval applies instead.
	if state.Repetitions == 0 && state.Interval <= p.RelearnInterval {
		return capInterval(p, p.FirstInterval[grade])
	}

	var mult float64
	switch grade {
	case domain.GradeHard:
		mult = p.HardMultiplier
	case domain.GradeEasy:
		mult = ease * p.EasyBonus
	default:
		mult = ease
	}

	grown := int(float64(state.Interval) * mult)
	// Guarantee forward progress of at least one day even when the
	// multiplier rounds away.
	if grown <= state.Interval {
		grown = state.Interval + 1
	}
	return capInterval(p, grown)
}

func clampEase(p *Params, ease float64) float64 {
	if ease < p.MinEase {
		return p.MinEase
	}
	if ease > p.MaxEase {
		return p.MaxEase
	}
	return ease
}

func capInterval(p *Params, days int) int {
	if days < 1 {
		return 1
	}
	if days > p.MaxInterval {
		return p.MaxInterval
	}
	return days
}
