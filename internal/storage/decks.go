package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/colmryan/memodeck/internal/domain"
)

// CreateDeck inserts a new deck. Deck names are unique.
func (db *DB) CreateDeck(ctx context.Context, deck domain.Deck) error {
	if deck.Name == "" {
		return fmt.Errorf("%w: %v", ErrInvalidInput, domain.ErrEmptyDeckName)
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO decks (id, name) VALUES (?, ?)`, deck.ID.String(), deck.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("deck %q: %w", deck.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert deck %q: %w", deck.Name, err)
	}
	return nil
}

// DeckByName looks a deck up by its unique name.
func (db *DB) DeckByName(ctx context.Context, name string) (domain.Deck, error) {
	var id string
	err := db.conn.QueryRowContext(ctx, `SELECT id FROM decks WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deck{}, fmt.Errorf("deck %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return domain.Deck{}, fmt.Errorf("failed to find deck %q: %w", name, err)
	}
	deckID, err := uuid.Parse(id)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("corrupt deck id %q: %w", id, err)
	}
	return domain.Deck{ID: deckID, Name: name}, nil
}

// ListDecks returns all decks ordered by name.
func (db *DB) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM decks ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		deckID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt deck id %q: %w", id, err)
		}
		decks = append(decks, domain.Deck{ID: deckID, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decks: %w", err)
	}
	return decks, nil
}

// RenameDeck changes a deck's name.
func (db *DB) RenameDeck(ctx context.Context, id domain.DeckID, name string) error {
	if name == "" {
		return fmt.Errorf("%w: %v", ErrInvalidInput, domain.ErrEmptyDeckName)
	}
	res, err := db.conn.ExecContext(ctx, `UPDATE decks SET name = ? WHERE id = ?`, name, id.String())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("deck %q: %w", name, ErrDuplicate)
		}
		return fmt.Errorf("failed to rename deck %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteDeck removes the deck and its memberships. Cards are untouched.
func (db *DB) DeleteDeck(ctx context.Context, id domain.DeckID) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin deck delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to clear deck %s memberships: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// AddToDeck adds a card to a deck. Adding a card twice is a no-op.
func (db *DB) AddToDeck(ctx context.Context, deckID domain.DeckID, cardID domain.CardID) error {
	if err := db.requireDeck(ctx, deckID); err != nil {
		return err
	}
	if _, err := db.GetCard(ctx, cardID); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO deck_cards (deck_id, card_id) VALUES (?, ?)
	`, deckID.String(), cardID.String())
	if err != nil {
		return fmt.Errorf("failed to add card %s to deck %s: %w", cardID, deckID, err)
	}
	return nil
}

// RemoveFromDeck removes a card from a deck. The card itself stays.
func (db *DB) RemoveFromDeck(ctx context.Context, deckID domain.DeckID, cardID domain.CardID) error {
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM deck_cards WHERE deck_id = ? AND card_id = ?
	`, deckID.String(), cardID.String())
	if err != nil {
		return fmt.Errorf("failed to remove card %s from deck %s: %w", cardID, deckID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("membership of %s in %s: %w", cardID, deckID, ErrNotFound)
	}
	return nil
}

// DeckCards returns the ids of all cards in the deck.
func (db *DB) DeckCards(ctx context.Context, deckID domain.DeckID) ([]domain.CardID, error) {
	if err := db.requireDeck(ctx, deckID); err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id FROM deck_cards WHERE deck_id = ? ORDER BY card_id ASC
	`, deckID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list cards of deck %s: %w", deckID, err)
	}
	defer rows.Close()

	var ids []domain.CardID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt card id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return ids, nil
}

func (db *DB) requireDeck(ctx context.Context, id domain.DeckID) error {
	var one int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM decks WHERE id = ?`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check deck %s: %w", id, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
