// Package engine is the service layer over the card store and the
// scheduler. It exposes the operations the front end consumes and the
// review session controller. No scheduling math lives here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/colmryan/memodeck/internal/domain"
	"github.com/colmryan/memodeck/internal/scheduler"
	"github.com/colmryan/memodeck/internal/storage"
)

// Clock supplies the current instant. Injectable so tests can pin time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return ClockFunc(time.Now) }

var ErrInvalidGrade = errors.New("grade outside the recognized scale")

// Engine wires the store and scheduler parameters together.
type Engine struct {
	db     *storage.DB
	params *scheduler.Params
	clock  Clock
	logger *slog.Logger
}

// New creates an engine. A nil clock falls back to the system clock, a
// nil logger to slog.Default.
func New(db *storage.DB, params *scheduler.Params, clock Clock, logger *slog.Logger) (*Engine, error) {
	if db == nil {
		return nil, errors.New("engine: store cannot be nil")
	}
	if params == nil {
		params = scheduler.DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("engine: bad scheduler params: %w", err)
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:     db,
		params: params,
		clock:  clock,
		logger: logger.With(slog.String("component", "engine")),
	}, nil
}

// CreateCard creates a card that is immediately due.
func (e *Engine) CreateCard(ctx context.Context, front, back string) (domain.Card, error) {
	now := e.clock.Now()
	card, err := domain.NewCard(front, back, now)
	if err != nil {
		return domain.Card{}, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if err := e.db.CreateCard(ctx, card, scheduler.NewState(e.params, now)); err != nil {
		return domain.Card{}, err
	}
	e.logger.Info("card created", "card_id", card.ID)
	return card, nil
}

// EditCard replaces a card's content without touching its schedule.
func (e *Engine) EditCard(ctx context.Context, id domain.CardID, front, back string) error {
	return e.db.UpdateCardContent(ctx, id, front, back)
}

// DeleteCard removes a card and all its deck memberships. Review
// history stays unless PurgeHistory is called.
func (e *Engine) DeleteCard(ctx context.Context, id domain.CardID) error {
	if err := e.db.DeleteCard(ctx, id); err != nil {
		return err
	}
	e.logger.Info("card deleted", "card_id", id)
	return nil
}

// PurgeHistory drops the card's review log entries.
func (e *Engine) PurgeHistory(ctx context.Context, id domain.CardID) (int64, error) {
	return e.db.PurgeReviewLog(ctx, id)
}

// ListDue returns up to limit cards due as of asOf, oldest due first.
func (e *Engine) ListDue(ctx context.Context, deck *domain.DeckID, asOf time.Time, limit int) ([]storage.CardRecord, error) {
	return e.db.DueCards(ctx, deck, asOf, limit)
}

// GradeCard records a single review of a card: read the current state,
// compute the next one, commit. If the commit loses a race with a
// concurrent review of the same card, the schedule is recomputed once
// from the fresh state; a second conflict is surfaced to the caller.
func (e *Engine) GradeCard(ctx context.Context, id domain.CardID, grade domain.Grade, reviewedAt time.Time) (domain.SchedulingState, error) {
	if !grade.Valid() {
		return domain.SchedulingState{}, fmt.Errorf("%w: %d", ErrInvalidGrade, grade)
	}

	rec, err := e.db.GetCard(ctx, id)
	if err != nil {
		return domain.SchedulingState{}, err
	}

	state, err := e.reviewOnce(ctx, rec, grade, reviewedAt)
	if storage.IsRetryable(err) {
		e.logger.Warn("review conflicted, retrying once", "card_id", id)
		rec, err = e.db.GetCard(ctx, id)
		if err != nil {
			return domain.SchedulingState{}, err
		}
		state, err = e.reviewOnce(ctx, rec, grade, reviewedAt)
	}
	if err != nil {
		return domain.SchedulingState{}, err
	}

	e.logger.Info("card graded",
		"card_id", id,
		"grade", grade.String(),
		"interval_days", state.Interval,
		"due_at", state.DueAt,
	)
	return state, nil
}

// reviewOnce computes and commits one review against the snapshot rec.
func (e *Engine) reviewOnce(ctx context.Context, rec storage.CardRecord, grade domain.Grade, reviewedAt time.Time) (domain.SchedulingState, error) {
	next, err := scheduler.Next(e.params, rec.State, grade, reviewedAt)
	if err != nil {
		return domain.SchedulingState{}, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	entry := domain.ReviewLogEntry{
		CardID:            rec.Card.ID,
		ReviewedAt:        reviewedAt.UTC(),
		Grade:             grade,
		ResultingInterval: next.Interval,
	}
	if err := e.db.ApplyReview(ctx, rec.Card.ID, rec.Version, next, entry); err != nil {
		return domain.SchedulingState{}, err
	}
	return next, nil
}

// CreateDeck creates a new named deck.
func (e *Engine) CreateDeck(ctx context.Context, name string) (domain.Deck, error) {
	deck, err := domain.NewDeck(name)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if err := e.db.CreateDeck(ctx, deck); err != nil {
		return domain.Deck{}, err
	}
	return deck, nil
}

// AddToDeck adds a card to a deck.
func (e *Engine) AddToDeck(ctx context.Context, deckID domain.DeckID, cardID domain.CardID) error {
	return e.db.AddToDeck(ctx, deckID, cardID)
}

// RemoveFromDeck removes a card from a deck.
func (e *Engine) RemoveFromDeck(ctx context.Context, deckID domain.DeckID, cardID domain.CardID) error {
	return e.db.RemoveFromDeck(ctx, deckID, cardID)
}
