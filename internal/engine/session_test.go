package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colmryan/memodeck/internal/domain"
)

func startTestSession(t *testing.T, eng *Engine, n int) (*Session, []domain.Card) {
	t.Helper()
	ctx := context.Background()

	cards := make([]domain.Card, n)
	for i := range cards {
		card, err := eng.CreateCard(ctx, "front", "back")
		require.NoError(t, err)
		cards[i] = card
	}

	session, err := eng.StartSession(ctx, nil, 100)
	require.NoError(t, err)
	require.Equal(t, n, session.Remaining())
	return session, cards
}

func TestSessionGradesThroughTheQueue(t *testing.T) {
	eng, _, clock := newTestEngine(t)
	ctx := context.Background()
	session, _ := startTestSession(t, eng, 3)

	for i := 0; i < 3; i++ {
		card, err := session.Next()
		require.NoError(t, err)
		assert.NotEqual(t, domain.Card{}, card)

		res, err := session.Grade(ctx, domain.GradeGood)
		require.NoError(t, err)
		assert.False(t, res.Skipped)
		assert.Equal(t, 1, res.State.Repetitions)
		assert.Equal(t, clock.now.AddDate(0, 0, res.State.Interval), res.State.DueAt)
	}

	_, err := session.Next()
	assert.ErrorIs(t, err, ErrSessionDone)
	_, err = session.Grade(ctx, domain.GradeGood)
	assert.ErrorIs(t, err, ErrSessionDone)

	graded, skipped := session.Stats()
	assert.Equal(t, 3, graded)
	assert.Equal(t, 0, skipped)
}

func TestSessionSnapshotIsolation(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	session, _ := startTestSession(t, eng, 2)

	// A card becoming due mid-session is not injected.
	_, err := eng.CreateCard(ctx, "late arrival", "")
	require.NoError(t, err)
	assert.Equal(t, 2, session.Remaining())

	_, err = session.Grade(ctx, domain.GradeGood)
	require.NoError(t, err)
	_, err = session.Grade(ctx, domain.GradeGood)
	require.NoError(t, err)
	assert.Equal(t, 0, session.Remaining())
}

func TestSessionSkipsDeletedCard(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	session, cards := startTestSession(t, eng, 2)

	// The first queued card vanishes before it is graded.
	first, err := session.Next()
	require.NoError(t, err)
	require.NoError(t, eng.DeleteCard(ctx, first.ID))

	res, err := session.Grade(ctx, domain.GradeGood)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, first.ID, res.Card.ID)

	// The session continues with the remaining queue.
	res, err = session.Grade(ctx, domain.GradeGood)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	graded, skipped := session.Stats()
	assert.Equal(t, 1, graded)
	assert.Equal(t, 1, skipped)

	// Both original cards are accounted for.
	assert.Contains(t, []domain.CardID{cards[0].ID, cards[1].ID}, res.Card.ID)
}

func TestSessionRecoversFromOneConflict(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	ctx := context.Background()
	session, cards := startTestSession(t, eng, 1)

	// Another caller reviews the same card after the session took its
	// snapshot, making the session's version stamp stale.
	_, err := eng.GradeCard(ctx, cards[0].ID, domain.GradeGood, t0)
	require.NoError(t, err)

	// The session re-reads and recomputes once, then commits.
	res, err := session.Grade(ctx, domain.GradeGood)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.State.Repetitions, "recomputed from the fresh state, not the snapshot")

	rec, err := db.GetCard(ctx, cards[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Version, "create=1, external review=2, session review=3")

	log, err := db.ReviewLog(ctx, cards[0].ID)
	require.NoError(t, err)
	assert.Len(t, log, 2)
}

func TestSessionKeepsCardPresentedOnWriteFailure(t *testing.T) {
	eng, db, _ := newTestEngine(t)
	ctx := context.Background()
	session, cards := startTestSession(t, eng, 1)

	// The store goes away mid-session; the grade must not be swallowed.
	require.NoError(t, db.Close())

	_, err := session.Grade(ctx, domain.GradeGood)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionDone)

	// The card stays presented so the caller can retry or abort.
	assert.Equal(t, 1, session.Remaining())
	card, err := session.Next()
	require.NoError(t, err)
	assert.Equal(t, cards[0].ID, card.ID)

	graded, skipped := session.Stats()
	assert.Equal(t, 0, graded)
	assert.Equal(t, 0, skipped)
}

func TestSessionRejectsInvalidGrade(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	session, _ := startTestSession(t, eng, 1)

	_, err := session.Grade(context.Background(), domain.Grade(0))
	assert.ErrorIs(t, err, ErrInvalidGrade)
	assert.Equal(t, 1, session.Remaining(), "the card stays presented")
}
