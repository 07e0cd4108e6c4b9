// Package storage is the durable card store: cards with their
// scheduling state, the append-only review log, deck memberships and
// import sources, all in a single sqlite database. Every mutating
// operation is a single transaction; concurrent writers to the same
// card are serialized by an optimistic version stamp.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/colmryan/memodeck/internal/content"
	"github.com/colmryan/memodeck/internal/domain"
)

// DB wraps the sqlite connection.
type DB struct {
	conn *sql.DB
}

// Pragmas travel in the DSN so that every connection in the
// database/sql pool carries them. busy_timeout in particular must be
// pool-wide: without it a writer losing the row lock race fails with
// SQLITE_BUSY instead of waiting and reporting ErrConflict.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Open opens the database at dsn and ensures the schema is in place.
func Open(dsn string) (*DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	conn, err := sql.Open("sqlite", dsn+sep+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CardRecord is a card with its scheduling state and the version stamp
// the row carried when it was read. The version must be handed back to
// ApplyReview unchanged.
type CardRecord struct {
	Card    domain.Card
	State   domain.SchedulingState
	Version int64
}

const cardColumns = `id, front, back, created_at, ease_factor, interval_days, repetitions, lapses, due_at, version`

func scanCard(row interface{ Scan(...any) error }) (CardRecord, error) {
	var (
		rec CardRecord
		id  string
	)
	err := row.Scan(
		&id,
		&rec.Card.Front,
		&rec.Card.Back,
		&rec.Card.CreatedAt,
		&rec.State.EaseFactor,
		&rec.State.Interval,
		&rec.State.Repetitions,
		&rec.State.Lapses,
		&rec.State.DueAt,
		&rec.Version,
	)
	if err != nil {
		return CardRecord{}, err
	}
	rec.Card.ID, err = uuid.Parse(id)
	if err != nil {
		return CardRecord{}, fmt.Errorf("corrupt card id %q: %w", id, err)
	}
	return rec, nil
}

// CreateCard writes a card and its initial scheduling state in one
// transaction. Nothing is visible if the write fails.
func (db *DB) CreateCard(ctx context.Context, card domain.Card, state domain.SchedulingState) error {
	if card.Front == "" {
		return fmt.Errorf("%w: %v", ErrInvalidInput, domain.ErrEmptyFront)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cards (id, front, back, content_hash, created_at, ease_factor, interval_days, repetitions, lapses, due_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		card.ID.String(),
		card.Front,
		card.Back,
		content.Hash(card.Front, card.Back),
		card.CreatedAt.UTC(),
		state.EaseFactor,
		state.Interval,
		state.Repetitions,
		state.Lapses,
		state.DueAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// GetCard returns the card with its current scheduling state and
// version stamp.
func (db *DB) GetCard(ctx context.Context, id domain.CardID) (CardRecord, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id.String())
	rec, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CardRecord{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return CardRecord{}, fmt.Errorf("failed to read card %s: %w", id, err)
	}
	return rec, nil
}

// FindCardByHash returns a card whose normalized content hash matches.
// Used by the importer to skip cards that already exist.
func (db *DB) FindCardByHash(ctx context.Context, hash string) (CardRecord, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE content_hash = ? LIMIT 1`, hash)
	rec, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CardRecord{}, fmt.Errorf("card with hash %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return CardRecord{}, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return rec, nil
}

// UpdateCardContent replaces the card's content. Scheduling columns
// and the version stamp are left alone: edits never reschedule a card
// and never conflict with an in-flight review.
func (db *DB) UpdateCardContent(ctx context.Context, id domain.CardID, front, back string) error {
	if front == "" {
		return fmt.Errorf("%w: %v", ErrInvalidInput, domain.ErrEmptyFront)
	}
	res, err := db.conn.ExecContext(ctx, `
		UPDATE cards SET front = ?, back = ?, content_hash = ? WHERE id = ?
	`, front, back, content.Hash(front, back), id.String())
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return nil
}

// DueCards returns cards due at or before asOf, oldest due first with
// card id breaking ties so the order is deterministic. A non-nil deck
// restricts the result to that deck's members.
func (db *DB) DueCards(ctx context.Context, deck *domain.DeckID, asOf time.Time, limit int) ([]CardRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE due_at <= ?`
	args := []any{asOf.UTC()}
	if deck != nil {
		query += ` AND id IN (SELECT card_id FROM deck_cards WHERE deck_id = ?)`
		args = append(args, deck.String())
	}
	query += ` ORDER BY due_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query due cards: %w", err)
	}
	defer rows.Close()

	var records []CardRecord
	for rows.Next() {
		rec, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due card: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due cards: %w", err)
	}
	return records, nil
}

// ApplyReview atomically replaces the card's scheduling state and
// appends the review log entry. The update only lands if the row still
// carries expectedVersion; otherwise the caller raced another review
// and gets ErrConflict, or the card is gone and gets ErrNotFound.
// Either both writes commit or neither does.
func (db *DB) ApplyReview(ctx context.Context, id domain.CardID, expectedVersion int64, state domain.SchedulingState, entry domain.ReviewLogEntry) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET ease_factor = ?, interval_days = ?, repetitions = ?, lapses = ?, due_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		state.EaseFactor,
		state.Interval,
		state.Repetitions,
		state.Lapses,
		state.DueAt.UTC(),
		id.String(),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update scheduling state for %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review update for %s: %w", id, err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, id.String()).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("card %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check card %s: %w", id, err)
		}
		return fmt.Errorf("card %s: %w", id, ErrConflict)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_log (card_id, reviewed_at, grade, resulting_interval)
		VALUES (?, ?, ?, ?)
	`,
		entry.CardID.String(),
		entry.ReviewedAt.UTC(),
		int(entry.Grade),
		entry.ResultingInterval,
	)
	if err != nil {
		return fmt.Errorf("failed to append review log for %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for %s: %w", id, err)
	}
	return nil
}

// DeleteCard removes the card, its scheduling state and all of its
// deck and source memberships in one transaction. The review log is
// kept as history; use PurgeReviewLog for an explicit purge.
func (db *DB) DeleteCard(ctx context.Context, id domain.CardID) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM deck_cards WHERE card_id = ?`,
		`DELETE FROM source_cards WHERE card_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id.String()); err != nil {
			return fmt.Errorf("failed to detach card %s: %w", id, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("card %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of %s: %w", id, err)
	}
	return nil
}

// ReviewLog returns the card's review history, oldest first.
func (db *DB) ReviewLog(ctx context.Context, id domain.CardID) ([]domain.ReviewLogEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id, reviewed_at, grade, resulting_interval
		FROM review_log WHERE card_id = ? ORDER BY reviewed_at ASC, id ASC
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query review log for %s: %w", id, err)
	}
	defer rows.Close()

	var entries []domain.ReviewLogEntry
	for rows.Next() {
		var (
			entry  domain.ReviewLogEntry
			cardID string
			grade  int
		)
		if err := rows.Scan(&cardID, &entry.ReviewedAt, &grade, &entry.ResultingInterval); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		entry.CardID, err = uuid.Parse(cardID)
		if err != nil {
			return nil, fmt.Errorf("corrupt review log card id %q: %w", cardID, err)
		}
		entry.Grade = domain.Grade(grade)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review log: %w", err)
	}
	return entries, nil
}

// PurgeReviewLog deletes the card's review history and returns how
// many entries were removed.
func (db *DB) PurgeReviewLog(ctx context.Context, id domain.CardID) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM review_log WHERE card_id = ?`, id.String())
	if err != nil {
		return 0, fmt.Errorf("failed to purge review log for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged entries for %s: %w", id, err)
	}
	return n, nil
}
