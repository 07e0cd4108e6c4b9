package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/colmryan/memodeck/internal/domain"
	"github.com/colmryan/memodeck/internal/storage"
)

// ErrSessionDone is returned when there is no card left to present.
var ErrSessionDone = errors.New("session complete")

// Result is the outcome of grading one card in a session.
type Result struct {
	Card    domain.Card
	State   domain.SchedulingState
	Skipped bool // card vanished before the grade could be committed
}

// Session is a bounded review session over a queue of due cards
// snapshotted at start. Cards becoming due mid-session are not
// injected; the order presented at start is the order reviewed.
// Dropping a session loses nothing: ungraded cards have no pending
// writes.
//
// A Session is not safe for concurrent use; run one per caller.
type Session struct {
	engine  *Engine
	queue   []storage.CardRecord
	pos     int
	graded  int
	skipped int
	logger  *slog.Logger
}

// StartSession snapshots the due queue and returns a session over it.
// A nil deck means all decks; limit bounds the session length.
func (e *Engine) StartSession(ctx context.Context, deck *domain.DeckID, limit int) (*Session, error) {
	queue, err := e.db.DueCards(ctx, deck, e.clock.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	logger := e.logger.With(slog.String("component", "session"))
	logger.Info("session started", "queue", len(queue))
	return &Session{engine: e, queue: queue, logger: logger}, nil
}

// Next returns the card currently up for review without advancing the
// queue. ErrSessionDone means the session is complete.
func (s *Session) Next() (domain.Card, error) {
	if s.pos >= len(s.queue) {
		return domain.Card{}, ErrSessionDone
	}
	return s.queue[s.pos].Card, nil
}

// Remaining reports how many cards are still queued, including the one
// currently presented.
func (s *Session) Remaining() int {
	return len(s.queue) - s.pos
}

// Grade commits the given grade for the currently presented card and
// advances the queue.
//
// A version conflict (someone else reviewed the same card) is resolved
// by re-reading the card and recomputing the schedule once; a repeated
// conflict is surfaced as an error without advancing. A card deleted
// mid-session is skipped and the session continues. An I/O failure
// leaves the card presented so the caller can retry or abort without
// losing the grade silently.
func (s *Session) Grade(ctx context.Context, grade domain.Grade) (Result, error) {
	if s.pos >= len(s.queue) {
		return Result{}, ErrSessionDone
	}
	if !grade.Valid() {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidGrade, grade)
	}

	rec := s.queue[s.pos]
	reviewedAt := s.engine.clock.Now()

	state, err := s.engine.reviewOnce(ctx, rec, grade, reviewedAt)
	if storage.IsRetryable(err) {
		s.logger.Warn("review conflicted, recomputing from fresh state", "card_id", rec.Card.ID)
		var fresh storage.CardRecord
		fresh, err = s.engine.db.GetCard(ctx, rec.Card.ID)
		if err == nil {
			state, err = s.engine.reviewOnce(ctx, fresh, grade, reviewedAt)
		}
	}

	switch {
	case err == nil:
		s.pos++
		s.graded++
		return Result{Card: rec.Card, State: state}, nil
	case errors.Is(err, storage.ErrNotFound):
		// Deleted while the session was running; skip it.
		s.logger.Info("card vanished mid-session, skipping", "card_id", rec.Card.ID)
		s.pos++
		s.skipped++
		return Result{Card: rec.Card, Skipped: true}, nil
	default:
		// Conflict on retry or an I/O failure: the card stays
		// presented, the grade is not swallowed.
		return Result{}, fmt.Errorf("failed to commit review of %s: %w", rec.Card.ID, err)
	}
}

// Stats returns how many cards were graded and skipped so far.
func (s *Session) Stats() (graded, skipped int) {
	return s.graded, s.skipped
}
