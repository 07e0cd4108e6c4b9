package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/colmryan/memodeck/internal/config"
	"github.com/colmryan/memodeck/internal/deckfile"
	"github.com/colmryan/memodeck/internal/storage"
)

func doExport(ctx context.Context, db *storage.DB, deckName, out string, withState bool) error {
	deck, err := db.DeckByName(ctx, deckName)
	if err != nil {
		return err
	}
	if out == "" {
		out = strings.ReplaceAll(deckName, " ", "_") + deckfile.Ext
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	defer f.Close()

	if err := deckfile.Export(ctx, db, deck, f, withState); err != nil {
		return err
	}
	fmt.Printf("exported deck %q to %s\n", deckName, out)
	return nil
}

func doImport(ctx context.Context, db *storage.DB, cfg config.Config, path string, seedState bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	deck, created, err := deckfile.Import(ctx, db, cfg.SchedulerParams(), f, seedState, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("imported %d cards into deck %q\n", created, deck.Name)
	return nil
}
