// Package deckfile moves a deck in and out of a portable ".deck" file:
// a gzipped tarball holding a JSON manifest of the deck's cards. It is
// a pure transform over store operations; scheduling state appears in
// the manifest only to allow optional seeding on import.
package deckfile

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/colmryan/memodeck/internal/domain"
	"github.com/colmryan/memodeck/internal/scheduler"
	"github.com/colmryan/memodeck/internal/storage"
)

// Ext is the deck file extension.
const Ext = ".deck"

const manifestName = "deck.json"

// Manifest is the serialized form of a deck.
type Manifest struct {
	Name       string    `json:"name"`
	ExportedAt time.Time `json:"exported_at"`
	Cards      []Card    `json:"cards"`
}

// Card is one card in a manifest. State is present only when the
// export included scheduling data.
type Card struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	State *State `json:"state,omitempty"`
}

// State is the portable scheduling snapshot of a card.
type State struct {
	EaseFactor  float64   `json:"ease_factor"`
	Interval    int       `json:"interval"`
	Repetitions int       `json:"repetitions"`
	Lapses      int       `json:"lapses"`
	DueAt       time.Time `json:"due_at"`
}

// Export writes the deck and its cards to w as a gzipped tarball.
// includeState carries each card's scheduling snapshot along so the
// importing side can pick up where this one left off.
func Export(ctx context.Context, db *storage.DB, deck domain.Deck, w io.Writer, includeState bool) error {
	ids, err := db.DeckCards(ctx, deck.ID)
	if err != nil {
		return fmt.Errorf("failed to collect deck %q: %w", deck.Name, err)
	}

	manifest := Manifest{Name: deck.Name, ExportedAt: time.Now().UTC()}
	for _, id := range ids {
		rec, err := db.GetCard(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read card %s: %w", id, err)
		}
		card := Card{Front: rec.Card.Front, Back: rec.Card.Back}
		if includeState {
			card.State = &State{
				EaseFactor:  rec.State.EaseFactor,
				Interval:    rec.State.Interval,
				Repetitions: rec.State.Repetitions,
				Lapses:      rec.State.Lapses,
				DueAt:       rec.State.DueAt,
			}
		}
		manifest.Cards = append(manifest.Cards, card)
	}

	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{
		Name:    manifestName,
		Mode:    0o644,
		Size:    int64(len(payload)),
		ModTime: manifest.ExportedAt,
	}); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	if _, err := tw.Write(payload); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish compression: %w", err)
	}
	return nil
}

// Read parses a deck file without touching the store.
func Read(r io.Reader) (Manifest, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to open deck file: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return Manifest{}, fmt.Errorf("deck file has no %s", manifestName)
		}
		if err != nil {
			return Manifest{}, fmt.Errorf("failed to read deck file: %w", err)
		}
		if hdr.Name != manifestName {
			continue
		}
		var manifest Manifest
		if err := json.NewDecoder(tr).Decode(&manifest); err != nil {
			return Manifest{}, fmt.Errorf("failed to decode manifest: %w", err)
		}
		return manifest, nil
	}
}

// Import reads a deck file and creates its deck and cards. Cards whose
// manifest carries scheduling state are seeded with it when seedState
// is set; everything else starts fresh and immediately due. The deck
// name is taken from the manifest; an existing deck with that name is
// reused.
func Import(ctx context.Context, db *storage.DB, params *scheduler.Params, r io.Reader, seedState bool, now time.Time) (domain.Deck, int, error) {
	manifest, err := Read(r)
	if err != nil {
		return domain.Deck{}, 0, err
	}
	if manifest.Name == "" {
		return domain.Deck{}, 0, fmt.Errorf("%w: deck file has no deck name", storage.ErrInvalidInput)
	}

	deck, err := db.DeckByName(ctx, manifest.Name)
	if errors.Is(err, storage.ErrNotFound) {
		deck, err = domain.NewDeck(manifest.Name)
		if err == nil {
			err = db.CreateDeck(ctx, deck)
		}
	}
	if err != nil {
		return domain.Deck{}, 0, fmt.Errorf("failed to resolve deck %q: %w", manifest.Name, err)
	}

	created := 0
	for _, mc := range manifest.Cards {
		card, err := domain.NewCard(mc.Front, mc.Back, now)
		if err != nil {
			return deck, created, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}

		state := scheduler.NewState(params, now)
		if seedState && mc.State != nil {
			state = domain.SchedulingState{
				EaseFactor:  mc.State.EaseFactor,
				Interval:    mc.State.Interval,
				Repetitions: mc.State.Repetitions,
				Lapses:      mc.State.Lapses,
				DueAt:       mc.State.DueAt,
			}
		}

		if err := db.CreateCard(ctx, card, state); err != nil {
			return deck, created, err
		}
		if err := db.AddToDeck(ctx, deck.ID, card.ID); err != nil {
			return deck, created, err
		}
		created++
	}
	return deck, created, nil
}
