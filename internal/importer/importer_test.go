package importer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/engine"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/importer"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage/sqlite"
)

type recordingProcessor struct {
	inputs []engine.Input
	fail   map[string]bool
}

func (p *recordingProcessor) ProcessInput(ctx context.Context, in engine.Input) (*engine.Result, error) {
	p.inputs = append(p.inputs, in)
	if p.fail[in.SourceID] {
		return nil, errors.New("boom")
	}
	return &engine.Result{Processed: true, StickyCount: 1}, nil
}

func writeNote(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParseNote_Frontmatter(t *testing.T) {
	note, err := importer.ParseNote([]byte(`---
source_type: email
source_id: thread-77
company: BillCo Inc
contact_email: ana@billco.com
contact_name: Ana
owner: sales
tags: [q3, pipeline]
date: 2026-05-04
---
# Call with BillCo

They are raising $6M, see [[BillCo Deck|the deck]]. #funding
`), "calls/billco.md")
	require.NoError(t, err)

	assert.Equal(t, "email", note.SourceType)
	assert.Equal(t, "thread-77", note.SourceID)
	assert.Equal(t, "Call with BillCo", note.Title)
	assert.Contains(t, note.Body, "see the deck.")
	assert.NotContains(t, note.Body, "[[")
	assert.Equal(t, []string{"q3", "pipeline", "funding"}, note.Tags)
	assert.Equal(t, []string{"BillCo Deck"}, note.Links)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), note.Date.UTC())

	in := note.Input()
	assert.Equal(t, "email", in.SourceType)
	assert.Equal(t, "thread-77", in.SourceID)
	assert.Equal(t, "BillCo Inc", in.Metadata[engine.MetaCompany])
	assert.Equal(t, "ana@billco.com", in.Metadata[engine.MetaContactEmail])
	assert.Equal(t, "Ana", in.Metadata[engine.MetaContactName])
	assert.Equal(t, "sales", in.Metadata["fm_owner"])
	assert.Equal(t, []string{"BillCo Deck"}, in.Metadata["wiki_links"])
	assert.Equal(t, "calls/billco.md", in.Metadata["import_path"])
}

func TestParseNote_Defaults(t *testing.T) {
	note, err := importer.ParseNote([]byte("plain text, no heading"), "a/weekly_sync.md")
	require.NoError(t, err)

	assert.Equal(t, importer.DefaultSourceType, note.SourceType)
	assert.Equal(t, "a/weekly_sync.md", note.SourceID)
	assert.Equal(t, "weekly sync", note.Title)
	assert.Equal(t, "plain text, no heading", note.Body)
}

func TestParseNote_InvalidFrontmatter(t *testing.T) {
	_, err := importer.ParseNote([]byte("---\ntags: [unterminated\n---\nbody"), "x.md")
	assert.Error(t, err)
}

func TestImport_CountsOutcomes(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "first note")
	writeNote(t, dir, "sub/b.markdown", "second note")
	writeNote(t, dir, "sub/c.md", "third note")
	writeNote(t, dir, "empty.md", "   \n")
	writeNote(t, dir, "bad.md", "---\ntags: [oops\n---\n")
	writeNote(t, dir, "ignored.txt", "not markdown")
	writeNote(t, dir, ".obsidian/workspace.md", "hidden")

	proc := &recordingProcessor{fail: map[string]bool{"sub/c.md": true}}
	res, err := importer.NewImporter(proc).Import(context.Background(), dir)
	require.NoError(t, err)

	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 5, res.FilesFound)
	assert.Equal(t, 2, res.FilesProcessed)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 2, res.FilesFailed)
	assert.Equal(t, 2, res.StickiesCreated)
	assert.Len(t, res.Errors, 2)

	require.Len(t, proc.inputs, 3)
	for _, in := range proc.inputs {
		assert.Equal(t, res.BatchID, in.Metadata["import_batch"])
	}
}

func TestImport_RejectsMissingDir(t *testing.T) {
	_, err := importer.NewImporter(&recordingProcessor{}).Import(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestImport_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "first note")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &recordingProcessor{}
	res, err := importer.NewImporter(proc).Import(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, proc.inputs)
}

func TestImport_ThroughEngine(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	eng, err := engine.New(store, engine.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	dir := t.TempDir()
	writeNote(t, dir, "calls/billco.md", `---
company: BillCo Inc
---
We are raising $6M and closing soon.
`)
	writeNote(t, dir, "calls/standup.md", "Standup moved to Tuesday.")

	imp := importer.NewImporter(eng)
	first, err := imp.Import(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, first.FilesProcessed)
	assert.Equal(t, 1, first.StickiesCreated)

	notes, err := eng.Stickies().ListActive(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "BillCo Inc", notes[0].Company)

	second, err := imp.Import(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesProcessed)
	assert.Equal(t, 2, second.FilesSkipped)
}
