package scan

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

// HashFunc computes a fingerprint for a single file.
type HashFunc func(path string) (string, error)

// HashRunner executes a HashFunc over a batch of FileRecords using a bounded
// worker pool. Each record is dispatched to exactly one task, so fingerprint
// fields are written without locks. A failing file is logged at warning
// level and left without a fingerprint; the batch as a whole never fails.
type HashRunner struct {
	maxWorkers int
	progress   *Progress
}

// NewHashRunner creates a runner with the given pool size. The progress
// counters are optional.
func NewHashRunner(maxWorkers int, progress *Progress) *HashRunner {
	if maxWorkers <= 0 {
		maxWorkers = 4 // Default to 4 workers
	}
	return &HashRunner{maxWorkers: maxWorkers, progress: progress}
}

// Run computes a fingerprint for every record and writes it back through
// assign. It returns the number of records fingerprinted and the number
// skipped because hashing failed. Run blocks until the pool has fully
// drained; completion order across records is unspecified.
func (hr *HashRunner) Run(ctx context.Context, records []*FileRecord, fn HashFunc, assign func(*FileRecord, string), stage string) (hashed, skipped int) {
	var hashedCount, skippedCount atomic.Int64

	workers := pool.New().WithMaxGoroutines(hr.maxWorkers).WithContext(ctx)
	for _, record := range records {
		record := record // per-iteration copy for Go <1.22 loop semantics
		workers.Go(func(ctx context.Context) error {
			fingerprint, err := fn(record.Path)
			if err != nil {
				skippedCount.Add(1)
				if hr.progress != nil {
					hr.progress.Errors.Add(1)
				}
				slog.Warn("Hashing failed, excluding file from stage",
					"stage", stage,
					"path", record.Path,
					"error", err)
				return nil
			}
			assign(record, fingerprint)
			hashedCount.Add(1)
			return nil
		})
	}
	// Per-file errors are absorbed above; Wait only reports context
	// cancellation, in which case the unprocessed records simply keep
	// their empty fingerprints.
	_ = workers.Wait()

	return int(hashedCount.Load()), int(skippedCount.Load())
}
