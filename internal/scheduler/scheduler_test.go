package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colmryan/memodeck/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNewState(t *testing.T) {
	p := DefaultParams()
	state := NewState(p, t0)

	assert.Equal(t, p.DefaultEase, state.EaseFactor)
	assert.Equal(t, 0, state.Interval)
	assert.Equal(t, 0, state.Repetitions)
	assert.Equal(t, 0, state.Lapses)
	assert.Equal(t, t0, state.DueAt, "new cards are due immediately")
}

func TestNextRejectsInvalidGrade(t *testing.T) {
	p := DefaultParams()
	_, err := Next(p, NewState(p, t0), domain.Grade(0), t0)
	require.ErrorIs(t, err, ErrInvalidGrade)

	_, err = Next(p, NewState(p, t0), domain.Grade(5), t0)
	require.ErrorIs(t, err, ErrInvalidGrade)
}

// The concrete walkthrough: good at t0, good a day later, fail a day
// after that.
func TestReviewSequence(t *testing.T) {
	p := DefaultParams()
	state := NewState(p, t0)

	state, err := Next(p, state, domain.GradeGood, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Repetitions)
	assert.Equal(t, p.FirstInterval[domain.GradeGood], state.Interval)
	assert.Equal(t, t0.AddDate(0, 0, 1), state.DueAt)

	t1 := t0.AddDate(0, 0, 1)
	state, err = Next(p, state, domain.GradeGood, t1)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Repetitions)
	assert.Equal(t, 2, state.Interval, "1 day * ease 2.5 rounds down to 2")
	assert.Equal(t, t1.AddDate(0, 0, 2), state.DueAt)

	t2 := t0.AddDate(0, 0, 2)
	state, err = Next(p, state, domain.GradeFail, t2)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Repetitions)
	assert.Equal(t, 1, state.Lapses)
	assert.Equal(t, p.RelearnInterval, state.Interval)
	assert.Equal(t, t2.AddDate(0, 0, p.RelearnInterval), state.DueAt)
}

func TestFailAlwaysResetsAndCountsLapse(t *testing.T) {
	p := DefaultParams()
	state := domain.SchedulingState{
		EaseFactor:  2.1,
		Interval:    40,
		Repetitions: 7,
		Lapses:      2,
		DueAt:       t0,
	}

	next, err := Next(p, state, domain.GradeFail, t0)
	require.NoError(t, err)
	assert.Equal(t, 0, next.Repetitions)
	assert.Equal(t, 3, next.Lapses)
	assert.Equal(t, p.RelearnInterval, next.Interval)
	assert.InDelta(t, 1.9, next.EaseFactor, 1e-9)
}

func TestIntervalStrictlyGrowsOnPasses(t *testing.T) {
	p := DefaultParams()
	for _, grade := range []domain.Grade{domain.GradeHard, domain.GradeGood, domain.GradeEasy} {
		t.Run(grade.String(), func(t *testing.T) {
			state := NewState(p, t0)
			at := t0
			prev := 0
			for i := 0; i < 50; i++ {
				var err error
				state, err = Next(p, state, grade, at)
				require.NoError(t, err)
				if prev < p.MaxInterval {
					assert.Greater(t, state.Interval, prev, "pass %d must grow the interval", i)
				}
				assert.LessOrEqual(t, state.Interval, p.MaxInterval)
				prev = state.Interval
				at = at.AddDate(0, 0, state.Interval)
			}
		})
	}
}

func TestEaseFactorClamped(t *testing.T) {
	p := DefaultParams()

	t.Run("floor under repeated failures", func(t *testing.T) {
		state := NewState(p, t0)
		for i := 0; i < 100; i++ {
			var err error
			state, err = Next(p, state, domain.GradeFail, t0)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, state.EaseFactor, p.MinEase)
		}
		assert.Equal(t, p.MinEase, state.EaseFactor)
		assert.Equal(t, 100, state.Lapses)
	})

	t.Run("ceiling under repeated easy answers", func(t *testing.T) {
		state := NewState(p, t0)
		for i := 0; i < 100; i++ {
			var err error
			state, err = Next(p, state, domain.GradeEasy, t0)
			require.NoError(t, err)
			assert.LessOrEqual(t, state.EaseFactor, p.MaxEase)
		}
		assert.Equal(t, p.MaxEase, state.EaseFactor)
	})
}

func TestHardGrowsSlowerThanEasy(t *testing.T) {
	p := DefaultParams()
	base := domain.SchedulingState{EaseFactor: 2.5, Interval: 10, Repetitions: 3, DueAt: t0}

	hard, err := Next(p, base, domain.GradeHard, t0)
	require.NoError(t, err)
	good, err := Next(p, base, domain.GradeGood, t0)
	require.NoError(t, err)
	easy, err := Next(p, base, domain.GradeEasy, t0)
	require.NoError(t, err)

	assert.Less(t, hard.Interval, good.Interval)
	assert.Less(t, good.Interval, easy.Interval)
}

func TestDeterminism(t *testing.T) {
	p := DefaultParams()
	state := domain.SchedulingState{EaseFactor: 2.2, Interval: 6, Repetitions: 2, Lapses: 1, DueAt: t0}

	first, err := Next(p, state, domain.GradeGood, t0)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Next(p, state, domain.GradeGood, t0)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	// Input untouched.
	assert.Equal(t, 6, state.Interval)
	assert.Equal(t, 2, state.Repetitions)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := DefaultParams()
	bad.MinEase = 0.9
	require.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.MaxInterval = 0
	require.Error(t, bad.Validate())

	bad = DefaultParams()
	bad.FirstInterval[domain.GradeGood] = 0
	require.Error(t, bad.Validate())

	// Failing a card must never raise its ease.
	bad = DefaultParams()
	bad.EaseDelta[domain.GradeFail] = 0.1
	require.Error(t, bad.Validate())

	// A pass after relearning must never shrink the interval.
	bad = DefaultParams()
	bad.RelearnInterval = 3
	require.Error(t, bad.Validate())
}
