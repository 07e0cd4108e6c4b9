package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colmryan/memodeck/internal/engine"
	"github.com/colmryan/memodeck/internal/scheduler"
	"github.com/colmryan/memodeck/internal/storage"
)

func setup(t *testing.T, prune bool) (*Importer, *storage.DB, *engine.Engine, string) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "importer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng, err := engine.New(db, scheduler.DefaultParams(), nil, nil)
	require.NoError(t, err)

	srcDir := t.TempDir()
	imp := New(db, eng, t.TempDir(), prune, nil)
	return imp, db, eng, srcDir
}

func writeCards(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunImportsNewCards(t *testing.T) {
	imp, db, eng, srcDir := setup(t, false)
	ctx := context.Background()

	writeCards(t, srcDir, "cards.md", `
Q: What is a goroutine?
A: A lightweight thread managed by the Go runtime.
D: go

Q: What is a channel?
A: A typed conduit for communication between goroutines.
D: go
`)
	_, err := db.AddSource(ctx, srcDir, "local")
	require.NoError(t, err)

	report, err := imp.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 2, report.Created)
	assert.Empty(t, report.Failures)

	// Imported cards are immediately due and filed into their deck.
	deck, err := db.DeckByName(ctx, "go")
	require.NoError(t, err)
	due, err := eng.ListDue(ctx, &deck.ID, time.Now(), 10)
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestRunIsIdempotent(t *testing.T) {
	imp, db, _, srcDir := setup(t, false)
	ctx := context.Background()

	writeCards(t, srcDir, "cards.md", "Q: once\nA: only")
	_, err := db.AddSource(ctx, srcDir, "local")
	require.NoError(t, err)

	first, err := imp.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := imp.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Parsed)
	assert.Equal(t, 0, second.Created, "already imported cards are recognized by content hash")
}

func TestRunPrunesVanishedCards(t *testing.T) {
	imp, db, _, srcDir := setup(t, true)
	ctx := context.Background()

	writeCards(t, srcDir, "cards.md", "Q: keep\nA: kept\n---\nQ: drop\nA: dropped")
	sourceID, err := db.AddSource(ctx, srcDir, "local")
	require.NoError(t, err)

	first, err := imp.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, first.Created)

	// One card disappears from the source file.
	writeCards(t, srcDir, "cards.md", "Q: keep\nA: kept")

	second, err := imp.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Pruned)

	remaining, err := db.SourceCards(ctx, sourceID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestRunWithoutSources(t *testing.T) {
	imp, _, _, _ := setup(t, false)
	report, err := imp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sources)
}

func TestRunReportsParseTrouble(t *testing.T) {
	imp, db, _, srcDir := setup(t, false)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "nested"), 0o755))
	writeCards(t, srcDir, "good.md", "Q: fine\nA: card")
	writeCards(t, filepath.Join(srcDir, "nested"), "more.md", "Q: nested\nA: card")

	_, err := db.AddSource(ctx, srcDir, "local")
	require.NoError(t, err)

	report, err := imp.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created, "walk recurses into subdirectories")
}
