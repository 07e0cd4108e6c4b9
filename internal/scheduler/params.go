package scheduler

import (
	"fmt"

	"github.com/colmryan/memodeck/internal/domain"
)

// Params holds every tunable constant of the scheduling algorithm.
// The engine deliberately exposes these as configuration instead of
// baking in any particular product's values.
type Params struct {
	// DefaultEase is the ease factor assigned to new cards.
	DefaultEase float64
	// MinEase is the hard floor for the ease factor.
	MinEase float64
	// MaxEase is the ceiling for the ease factor.
	MaxEase float64

	// EaseDelta is the per-grade adjustment applied to the ease factor
	// after each review.
	EaseDelta map[domain.Grade]float64

	// FirstInterval is the fixed interval in days assigned on the first
	// successful review, per passing grade. The multiplicative formula
	// only kicks in from the second pass onward.
	FirstInterval map[domain.Grade]int

	// RelearnInterval is the interval in days a card falls back to
	// after a failed review.
	RelearnInterval int

	// HardMultiplier replaces the ease factor as interval multiplier
	// for Hard answers.
	HardMultiplier float64
	// EasyBonus is an extra multiplier applied on Easy answers on top
	// of the ease factor.
	EasyBonus float64

	// MaxInterval caps the interval in days.
	MaxInterval int
}

// DefaultParams returns the stock SM-2-style constants: ease 2.5 with
// a 1.3 floor, one-day first interval for Good, ten-year interval cap.
func DefaultParams() *Params {
	return &Params{
		DefaultEase: 2.5,
		MinEase:     1.3,
		MaxEase:     3.0,
		EaseDelta: map[domain.Grade]float64{
			domain.GradeFail: -0.20,
			domain.GradeHard: -0.15,
			domain.GradeGood: 0.0,
			domain.GradeEasy: 0.15,
		},
		FirstInterval: map[domain.Grade]int{
			domain.GradeHard: 1,
			domain.GradeGood: 1,
			domain.GradeEasy: 2,
		},
		RelearnInterval: 1,
		HardMultiplier:  1.2,
		EasyBonus:       1.3,
		MaxInterval:     3650,
	}
}

// Validate checks the parameter set for values that would break the
// scheduler's invariants.
func (p *Params) Validate() error {
	if p.MinEase <= 1.0 {
		return fmt.Errorf("min ease %v must be greater than 1.0", p.MinEase)
	}
	if p.MaxEase < p.MinEase {
		return fmt.Errorf("max ease %v below min ease %v", p.MaxEase, p.MinEase)
	}
	if p.DefaultEase < p.MinEase || p.DefaultEase > p.MaxEase {
		return fmt.Errorf("default ease %v outside [%v, %v]", p.DefaultEase, p.MinEase, p.MaxEase)
	}
	if p.RelearnInterval < 0 {
		return fmt.Errorf("relearn interval %d must not be negative", p.RelearnInterval)
	}
	if p.HardMultiplier <= 0 || p.EasyBonus <= 0 {
		return fmt.Errorf("interval multipliers must be positive")
	}
	if p.MaxInterval < 1 {
		return fmt.Errorf("max interval %d must be at least one day", p.MaxInterval)
	}
	if p.EaseDelta[domain.GradeFail] > 0 {
		return fmt.Errorf("fail ease delta %v must not raise the ease factor", p.EaseDelta[domain.GradeFail])
	}
	for _, g := range []domain.Grade{domain.GradeHard, domain.GradeGood, domain.GradeEasy} {
		if p.FirstInterval[g] < 1 {
			return fmt.Errorf("first interval for %s must be at least one day", g)
		}
		// A pass after relearning must never shrink the interval.
		if p.FirstInterval[g] < p.RelearnInterval {
			return fmt.Errorf("first interval for %s below relearn interval %d", g, p.RelearnInterval)
		}
	}
	return nil
}
