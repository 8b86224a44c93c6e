package walker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	internal "github.com/filekit/dupescan/dupescan"
	"github.com/filekit/dupescan/dupescan/scan"

	"github.com/armon/go-radix"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sourcegraph/conc/pool"
)

// Walker produces the candidate FileRecords for a scan by traversing one or
// more root directories breadth-first with a bounded worker pool. Only
// regular files are collected: symlinks, devices, and other special entries
// are skipped, and unreadable directories are logged and skipped rather than
// failing the walk.
type Walker struct {
	maxWorkers     int
	ignoreFileName string
}

// New creates a walker with the given pool size.
func New(maxWorkers int) *Walker {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &Walker{
		maxWorkers:     maxWorkers,
		ignoreFileName: internal.DefaultIgnoreFileName,
	}
}

// Walk traverses the given roots and returns one FileRecord per regular
// file, sorted by path so downstream output is deterministic. Roots nested
// under other roots are dropped up front, so no file is ever recorded twice.
func (w *Walker) Walk(ctx context.Context, roots []string) ([]*scan.FileRecord, error) {
	uniqueRoots, err := dedupeRoots(roots)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var records []*scan.FileRecord

	for _, root := range uniqueRoots {
		ignored := w.loadIgnoreFile(root)

		currentLevel := []string{root}
		for len(currentLevel) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			var nextLevel []string
			var nextLevelMu sync.Mutex

			levelPool := pool.New().WithMaxGoroutines(w.maxWorkers).WithContext(ctx)
			for _, dir := range currentLevel {
				dir := dir // per-iteration copy for Go <1.22 loop semantics
				levelPool.Go(func(ctx context.Context) error {
					subdirs, files := w.readDirectory(dir, ignored)

					nextLevelMu.Lock()
					nextLevel = append(nextLevel, subdirs...)
					nextLevelMu.Unlock()

					mu.Lock()
					records = append(records, files...)
					mu.Unlock()
					return nil
				})
			}
			// Join before descending: the next level is built from this one.
			_ = levelPool.Wait()

			currentLevel = nextLevel
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	slog.Info("Walk completed",
		"roots", len(uniqueRoots),
		"files", len(records))

	return records, nil
}

// readDirectory lists one directory, returning its subdirectories and the
// FileRecords for its regular files.
func (w *Walker) readDirectory(dir string, ignored *ignore.GitIgnore) ([]string, []*scan.FileRecord) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("Skipping unreadable directory",
			"path", dir,
			"error", err)
		return nil, nil
	}

	var subdirs []string
	var files []*scan.FileRecord
	for _, entry := range entries {
		childPath := filepath.Join(dir, entry.Name())

		if ignored != nil && ignored.MatchesPath(childPath) {
			slog.Debug("Ignoring path", "path", childPath)
			continue
		}

		if entry.IsDir() {
			subdirs = append(subdirs, childPath)
			continue
		}
		// Symlinks and other non-regular entries are out of scope.
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			slog.Warn("Error getting file info",
				"path", childPath,
				"error", err)
			continue
		}
		files = append(files, &scan.FileRecord{
			Path:    childPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return subdirs, files
}

// loadIgnoreFile compiles the root's ignore file if one exists.
func (w *Walker) loadIgnoreFile(root string) *ignore.GitIgnore {
	ignorePath := filepath.Join(root, w.ignoreFileName)
	if _, err := os.Stat(ignorePath); err != nil {
		return nil
	}
	ignored, err := ignore.CompileIgnoreFile(ignorePath)
	if err != nil {
		slog.Warn("Failed to compile ignore file",
			"path", ignorePath,
			"error", err)
		return nil
	}
	return ignored
}

// dedupeRoots resolves roots to absolute paths and drops any root nested
// under (or equal to) another, using a radix tree keyed by the
// separator-terminated path so /a/bc is never mistaken for a child of /a/b.
func dedupeRoots(roots []string) ([]string, error) {
	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve scan root %s: %w", root, err)
		}
		resolved = append(resolved, filepath.Clean(abs))
	}
	// Parents are always shorter than their children, so insert short first.
	sort.Slice(resolved, func(i, j int) bool { return len(resolved[i]) < len(resolved[j]) })

	sep := string(os.PathSeparator)
	tree := radix.New()
	kept := make([]string, 0, len(resolved))
	for _, root := range resolved {
		key := root
		if !strings.HasSuffix(key, sep) {
			key += sep
		}
		if enclosing, _, found := tree.LongestPrefix(key); found {
			slog.Debug("Skipping nested scan root",
				"root", root,
				"under", strings.TrimSuffix(enclosing, sep))
			continue
		}
		tree.Insert(key, root)
		kept = append(kept, root)
	}
	return kept, nil
}
