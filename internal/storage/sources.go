package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/colmryan/memodeck/internal/domain"
)

// Source is a registered origin of card files: a local directory or a
// git repository URL.
type Source struct {
	ID          int64
	Path        string
	Kind        string // "local" or "git"
	LastScanned sql.NullTime
}

// AddSource registers a new import source and returns its id.
func (db *DB) AddSource(ctx context.Context, path, kind string) (int64, error) {
	if path == "" {
		return 0, fmt.Errorf("%w: source path cannot be empty", ErrInvalidInput)
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, kind) VALUES (?, ?)
	`, path, kind)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("source %q: %w", path, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert source %q: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get id of source %q: %w", path, err)
	}
	return id, nil
}

// Sources returns all registered sources.
func (db *DB) Sources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, path, kind, last_scanned FROM sources ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Kind, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}

// TouchSource records when the source was last reconciled.
func (db *DB) TouchSource(ctx context.Context, id int64, when time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, when.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch source %d: %w", id, err)
	}
	return nil
}

// LinkSourceCard remembers that a card came from a source, so that a
// later reconciliation can prune it if it disappears upstream.
func (db *DB) LinkSourceCard(ctx context.Context, sourceID int64, cardID domain.CardID) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO source_cards (source_id, card_id) VALUES (?, ?)
	`, sourceID, cardID.String())
	if err != nil {
		return fmt.Errorf("failed to link card %s to source %d: %w", cardID, sourceID, err)
	}
	return nil
}

// SourceCards returns the ids of all cards attributed to a source.
func (db *DB) SourceCards(ctx context.Context, sourceID int64) ([]domain.CardID, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id FROM source_cards WHERE source_id = ? ORDER BY card_id ASC
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards of source %d: %w", sourceID, err)
	}
	defer rows.Close()

	var ids []domain.CardID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan source card row: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt card id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source cards: %w", err)
	}
	return ids, nil
}
