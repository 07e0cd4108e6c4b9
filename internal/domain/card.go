package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CardID uniquely identifies a card.
type CardID = uuid.UUID

// DeckID uniquely identifies a deck.
type DeckID = uuid.UUID

// Card is a single memorization card. Front and Back are opaque text
// payloads; the engine never interprets them. Content edits do not
// affect the card's scheduling state.
type Card struct {
	ID        CardID
	Front     string
	Back      string
	CreatedAt time.Time
}

// Deck is a named set of cards. Membership only: a card may belong to
// any number of decks, and deleting a deck never deletes its cards.
type Deck struct {
	ID   DeckID
	Name string
}

var (
	ErrEmptyFront    = errors.New("card front cannot be empty")
	ErrEmptyDeckName = errors.New("deck name cannot be empty")
)

// NewCard creates a card with a fresh identifier.
func NewCard(front, back string, now time.Time) (Card, error) {
	if front == "" {
		return Card{}, ErrEmptyFront
	}
	return Card{
		ID:        uuid.New(),
		Front:     front,
		Back:      back,
		CreatedAt: now.UTC(),
	}, nil
}

// NewDeck creates a deck with a fresh identifier.
func NewDeck(name string) (Deck, error) {
	if name == "" {
		return Deck{}, ErrEmptyDeckName
	}
	return Deck{ID: uuid.New(), Name: name}, nil
}
