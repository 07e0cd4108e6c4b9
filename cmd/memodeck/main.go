// Command memodeck is a thin front end over the engine's operations.
// It holds no scheduling logic of its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/colmryan/memodeck/internal/config"
	"github.com/colmryan/memodeck/internal/domain"
	"github.com/colmryan/memodeck/internal/engine"
	"github.com/colmryan/memodeck/internal/gitsource"
	"github.com/colmryan/memodeck/internal/importer"
	"github.com/colmryan/memodeck/internal/storage"
)

func main() {
	flags := pflag.NewFlagSet("memodeck", pflag.ExitOnError)

	defaults := config.Default()
	configPath := flags.String("config", "memodeck.yaml", "Path to the YAML config file")
	flags.String("database.path", defaults.Database.Path, "Path to the sqlite database file")
	flags.String("log.level", defaults.Log.Level, "Log level (debug, info, warn, error)")
	flags.Bool("import.prune", defaults.Import.Prune, "Delete cards that vanished from their source")

	addCard := flags.Bool("add-card", false, "Create a card from --front/--back")
	front := flags.String("front", "", "Card front for --add-card")
	back := flags.String("back", "", "Card back for --add-card")
	deleteCard := flags.String("delete-card", "", "Delete the card with this id")
	listDue := flags.Bool("list-due", false, "List cards due now")
	limit := flags.Int("limit", 20, "Maximum cards for --list-due")
	grade := flags.String("grade", "", "Grade a card: <card-id>:<fail|hard|good|easy>")
	deckName := flags.String("deck", "", "Deck name to filter or file into")
	addSource := flags.String("add-source", "", "Register a card source (directory or git URL)")
	runSync := flags.Bool("sync", false, "Reconcile all registered sources")
	exportDeck := flags.String("export-deck", "", "Export the named deck to --out")
	out := flags.String("out", "", "Output path for --export-deck")
	withState := flags.Bool("with-state", false, "Include scheduling state in the export")
	importDeck := flags.String("import-deck", "", "Import a deck file")
	seedState := flags.Bool("seed-state", false, "Seed scheduling state from the deck file")

	if err := flags.Parse(os.Args[1:]); err != nil {
		fatal(err)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	})))

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	eng, err := engine.New(db, cfg.SchedulerParams(), nil, slog.Default())
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()

	switch {
	case *addCard:
		card, err := eng.CreateCard(ctx, *front, *back)
		if err != nil {
			fatal(err)
		}
		if *deckName != "" {
			if err := fileIntoDeck(ctx, db, eng, card.ID, *deckName); err != nil {
				fatal(err)
			}
		}
		fmt.Println(card.ID)

	case *deleteCard != "":
		id, err := uuid.Parse(*deleteCard)
		if err != nil {
			fatal(fmt.Errorf("invalid card id: %w", err))
		}
		if err := eng.DeleteCard(ctx, id); err != nil {
			fatal(err)
		}

	case *listDue:
		deck, err := resolveDeck(ctx, db, *deckName)
		if err != nil {
			fatal(err)
		}
		records, err := eng.ListDue(ctx, deck, time.Now(), *limit)
		if err != nil {
			fatal(err)
		}
		for _, rec := range records {
			fmt.Printf("%s\t%s\t%s\n", rec.Card.ID, rec.State.DueAt.Format(time.RFC3339), rec.Card.Front)
		}

	case *grade != "":
		id, g, err := parseGrade(*grade)
		if err != nil {
			fatal(err)
		}
		state, err := eng.GradeCard(ctx, id, g, time.Now())
		if err != nil {
			fatal(err)
		}
		fmt.Printf("next review %s (interval %dd, ease %.2f)\n",
			state.DueAt.Format(time.RFC3339), state.Interval, state.EaseFactor)

	case *addSource != "":
		kind := "local"
		if gitsource.IsGitURL(*addSource) {
			kind = "git"
		}
		id, err := db.AddSource(ctx, *addSource, kind)
		if err != nil {
			fatal(err)
		}
		slog.Info("source registered", "id", id, "kind", kind, "path", *addSource)

	case *runSync:
		imp := importer.New(db, eng, cfg.Import.ReposDir, cfg.Import.Prune, slog.Default())
		report, err := imp.Run(ctx)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("parsed %d cards, created %d, pruned %d, %d failures\n",
			report.Parsed, report.Created, report.Pruned, len(report.Failures))

	case *exportDeck != "":
		if err := doExport(ctx, db, *exportDeck, *out, *withState); err != nil {
			fatal(err)
		}

	case *importDeck != "":
		if err := doImport(ctx, db, cfg, *importDeck, *seedState); err != nil {
			fatal(err)
		}

	default:
		flags.Usage()
		os.Exit(2)
	}
}

func resolveDeck(ctx context.Context, db *storage.DB, name string) (*domain.DeckID, error) {
	if name == "" {
		return nil, nil
	}
	deck, err := db.DeckByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return &deck.ID, nil
}

func fileIntoDeck(ctx context.Context, db *storage.DB, eng *engine.Engine, cardID domain.CardID, name string) error {
	deck, err := resolveDeck(ctx, db, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		d, err := eng.CreateDeck(ctx, name)
		if err != nil {
			return err
		}
		deck = &d.ID
	case err != nil:
		return err
	}
	return eng.AddToDeck(ctx, *deck, cardID)
}

func parseGrade(arg string) (domain.CardID, domain.Grade, error) {
	raw, name, ok := strings.Cut(arg, ":")
	if !ok {
		return uuid.Nil, 0, fmt.Errorf("expected <card-id>:<grade>, got %q", arg)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("invalid card id: %w", err)
	}
	switch name {
	case "fail":
		return id, domain.GradeFail, nil
	case "hard":
		return id, domain.GradeHard, nil
	case "good":
		return id, domain.GradeGood, nil
	case "easy":
		return id, domain.GradeEasy, nil
	default:
		return uuid.Nil, 0, fmt.Errorf("unknown grade %q", name)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "memodeck:", err)
	os.Exit(1)
}
