package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/engine"
)

// Processor runs one input through detection. *engine.Engine satisfies it.
type Processor interface {
	ProcessInput(ctx context.Context, in engine.Input) (*engine.Result, error)
}

// Result is the summary of one import run.
type Result struct {
	BatchID         string        `json:"batch_id"`
	FilesFound      int           `json:"files_found"`
	FilesProcessed  int           `json:"files_processed"`
	FilesSkipped    int           `json:"files_skipped"`
	FilesFailed     int           `json:"files_failed"`
	StickiesCreated int           `json:"stickies_created"`
	Errors          []string      `json:"errors,omitempty"`
	Duration        time.Duration `json:"duration_ms"`
}

// Importer walks a directory of Markdown notes and processes each one.
type Importer struct {
	proc Processor
}

// NewImporter creates an importer that hands every note to proc.
func NewImporter(proc Processor) *Importer {
	return &Importer{proc: proc}
}

// Import processes every .md / .markdown file under dirPath. Files whose
// content was already processed count as skipped. A cancelled context stops
// the walk and is returned alongside the partial result.
func (imp *Importer) Import(ctx context.Context, dirPath string) (*Result, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access directory %q: %w", dirPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dirPath)
	}

	start := time.Now()
	result := &Result{BatchID: uuid.New().String()}

	files, err := collectMarkdownFiles(dirPath)
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", dirPath, err)
	}
	result.FilesFound = len(files)

	for _, absPath := range files {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		rel, _ := filepath.Rel(dirPath, absPath)

		data, err := os.ReadFile(absPath)
		if err != nil {
			log.Printf("import: skip %s: read error: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: read error: %v", rel, err))
			continue
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			result.FilesSkipped++
			continue
		}

		note, err := ParseNote(data, rel)
		if err != nil {
			log.Printf("import: skip %s: parse error: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: parse error: %v", rel, err))
			continue
		}

		in := note.Input()
		in.Metadata["import_batch"] = result.BatchID

		res, err := imp.proc.ProcessInput(ctx, in)
		if err != nil {
			log.Printf("import: failed to process %s: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: process error: %v", rel, err))
			continue
		}
		if res.Reason == engine.ReasonAlreadyProcessed {
			result.FilesSkipped++
			continue
		}

		result.FilesProcessed++
		result.StickiesCreated += res.StickyCount
	}

	result.Duration = time.Since(start)
	log.Printf("import: batch %s processed %d/%d files, %d stickies",
		result.BatchID, result.FilesProcessed, result.FilesFound, result.StickiesCreated)
	return result, nil
}

// collectMarkdownFiles walks dirPath and returns all .md / .markdown files found.
// Hidden directories (e.g. .obsidian, .git) are skipped.
func collectMarkdownFiles(dirPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dirPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".md" || ext == ".markdown" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
