// Package importer reconciles registered card sources, local
// directories or git repositories of card files, into the store. It is
// a pure consumer of the engine's operations: cards enter through
// CreateCard and leave through DeleteCard, scheduling state is never
// touched directly.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colmryan/memodeck/internal/content"
	"github.com/colmryan/memodeck/internal/domain"
	"github.com/colmryan/memodeck/internal/engine"
	"github.com/colmryan/memodeck/internal/gitsource"
	"github.com/colmryan/memodeck/internal/parser"
	"github.com/colmryan/memodeck/internal/storage"
)

// Importer syncs card sources into the store.
type Importer struct {
	db       *storage.DB
	engine   *engine.Engine
	reposDir string
	prune    bool
	logger   *slog.Logger
}

// Report summarizes one reconciliation run.
type Report struct {
	Sources  int
	Parsed   int
	Created  int
	Pruned   int
	Failures []error
}

// New creates an importer. reposDir is where git sources are checked
// out; prune controls whether cards that disappeared from their source
// are deleted.
func New(db *storage.DB, eng *engine.Engine, reposDir string, prune bool, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		db:       db,
		engine:   eng,
		reposDir: reposDir,
		prune:    prune,
		logger:   logger.With(slog.String("component", "importer")),
	}
}

// Run reconciles every registered source.
func (imp *Importer) Run(ctx context.Context) (Report, error) {
	sources, err := imp.db.Sources(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		imp.logger.Info("no sources registered")
		return Report{}, nil
	}

	if err := os.MkdirAll(imp.reposDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("failed to create repos dir: %w", err)
	}

	var report Report
	for _, source := range sources {
		report.Sources++
		if err := imp.syncSource(ctx, source, &report); err != nil {
			imp.logger.Error("source sync failed", "source", source.Path, "error", err)
			report.Failures = append(report.Failures, fmt.Errorf("source %s: %w", source.Path, err))
		}
	}
	imp.logger.Info("reconciliation complete",
		"sources", report.Sources,
		"parsed", report.Parsed,
		"created", report.Created,
		"pruned", report.Pruned,
		"failures", len(report.Failures),
	)
	return report, nil
}

func (imp *Importer) syncSource(ctx context.Context, source storage.Source, report *Report) error {
	dir := source.Path
	if source.Kind == "git" {
		local, err := gitsource.LocalPath(imp.reposDir, source.Path)
		if err != nil {
			return err
		}
		if err := gitsource.Sync(ctx, source.Path, local); err != nil {
			return err
		}
		dir = local
	}

	seen, err := imp.importDir(ctx, source, dir, report)
	if err != nil {
		return err
	}

	if imp.prune {
		if err := imp.pruneSource(ctx, source, seen, report); err != nil {
			return err
		}
	}

	return imp.db.TouchSource(ctx, source.ID, time.Now())
}

// importDir walks dir, parses every card file and creates cards the
// store has not seen yet. It returns the set of content hashes found.
func (imp *Importer) importDir(ctx context.Context, source storage.Source, dir string, report *Report) (map[string]bool, error) {
	seen := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, err := parser.ParseFile(path)
		if err != nil {
			report.Failures = append(report.Failures, fmt.Errorf("parsing %s: %w", path, err))
			return nil
		}
		for _, entry := range entries {
			report.Parsed++
			hash := content.Hash(entry.Front, entry.Back)
			seen[hash] = true

			existing, err := imp.db.FindCardByHash(ctx, hash)
			switch {
			case err == nil:
				// Already imported; keep the source link fresh.
				if err := imp.db.LinkSourceCard(ctx, source.ID, existing.Card.ID); err != nil {
					report.Failures = append(report.Failures, err)
				}
				continue
			case !errors.Is(err, storage.ErrNotFound):
				report.Failures = append(report.Failures, err)
				continue
			}

			card, err := imp.engine.CreateCard(ctx, entry.Front, entry.Back)
			if err != nil {
				report.Failures = append(report.Failures, fmt.Errorf("creating card from %s: %w", path, err))
				continue
			}
			report.Created++
			if err := imp.db.LinkSourceCard(ctx, source.ID, card.ID); err != nil {
				report.Failures = append(report.Failures, err)
			}
			if err := imp.fileIntoDecks(ctx, card.ID, entry.Decks); err != nil {
				report.Failures = append(report.Failures, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, walkErr)
	}
	return seen, nil
}

// pruneSource deletes cards attributed to the source whose content no
// longer appears in it.
func (imp *Importer) pruneSource(ctx context.Context, source storage.Source, seen map[string]bool, report *Report) error {
	ids, err := imp.db.SourceCards(ctx, source.ID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		rec, err := imp.db.GetCard(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if seen[content.Hash(rec.Card.Front, rec.Card.Back)] {
			continue
		}
		imp.logger.Info("pruning orphaned card", "card_id", id, "source", source.Path)
		if err := imp.engine.DeleteCard(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			report.Failures = append(report.Failures, err)
			continue
		}
		report.Pruned++
	}
	return nil
}

// fileIntoDecks puts the card into each named deck, creating decks on
// first use.
func (imp *Importer) fileIntoDecks(ctx context.Context, cardID domain.CardID, names []string) error {
	for _, name := range names {
		deck, err := imp.db.DeckByName(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			deck, err = imp.engine.CreateDeck(ctx, name)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve deck %q: %w", name, err)
		}
		if err := imp.engine.AddToDeck(ctx, deck.ID, cardID); err != nil {
			return fmt.Errorf("failed to file card into deck %q: %w", name, err)
		}
	}
	return nil
}
