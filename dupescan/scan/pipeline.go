package scan

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/filekit/dupescan/dupescan/config"
	"github.com/filekit/dupescan/dupescan/hasher"
)

// Fingerprinter computes partial and full content fingerprints for a file.
// *hasher.ChunkHasher is the production implementation.
type Fingerprinter interface {
	PartialFingerprint(path string) (string, error)
	FullFingerprint(path string) (string, error)
}

// Pipeline narrows a flat list of FileRecords down to confirmed duplicate
// groups with a three-stage filter: size, partial hash, full hash. Each
// hashing stage fans out to a bounded worker pool and fully drains it before
// the next stage starts, because each stage's candidate set depends on the
// previous stage's complete results. Per-file failures only ever exclude the
// affected file; Detect itself cannot fail.
type Pipeline struct {
	fingerprinter Fingerprinter
	runner        *HashRunner
	sink          ProgressSink
	progress      *Progress
	trace         *StageTrace
}

// NewPipeline builds a pipeline from a validated scan configuration. A
// malformed configuration is the only error that can surface here, and it
// surfaces before any file I/O begins.
func NewPipeline(cfg config.ScanConfig, sink ProgressSink) (*Pipeline, error) {
	algorithm, err := hasher.ParseAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	chunkHasher, err := hasher.NewChunkHasher(algorithm, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	progress := &Progress{}
	return &Pipeline{
		fingerprinter: chunkHasher,
		runner:        NewHashRunner(cfg.ParallelWorkers, progress),
		sink:          sink,
		progress:      progress,
	}, nil
}

// Progress returns the live counters for the current run.
func (p *Pipeline) Progress() *Progress {
	return p.progress
}

// EnableTrace turns on per-stage survivor tracking for the next Detect call
// and returns the trace that will be populated.
func (p *Pipeline) EnableTrace() *StageTrace {
	p.trace = newStageTrace()
	return p.trace
}

// Detect runs the staged filter over the input records and returns the
// confirmed duplicate groups. Group order follows the first appearance of
// each group's key in the input, so output is deterministic for a given
// input order. The progress counters and the trace are reset on entry, so a
// Pipeline can be reused across runs.
func (p *Pipeline) Detect(ctx context.Context, records []*FileRecord) []*DuplicateGroup {
	p.progress.reset()
	if p.trace != nil {
		p.trace.reset()
	}

	var indexOf map[*FileRecord]uint32
	if p.trace != nil {
		indexOf = make(map[*FileRecord]uint32, len(records))
		for i, record := range records {
			indexOf[record] = uint32(i)
		}
	}

	// Stage 1: partition by size. A file whose size is unique is eliminated
	// here without ever being opened.
	p.notify(StageSize, 0, len(records))
	sizeCandidates := flatten(keepDuplicates(groupRecords(records, sizeKey)))
	p.notify(StageSize, len(records), len(records))
	p.progress.CandidatesFound.Store(int64(len(sizeCandidates)))
	if p.trace != nil {
		p.trace.SizeSurvivors.mark(sizeCandidates, indexOf)
	}
	if len(sizeCandidates) == 0 {
		p.notify(StageComplete, 0, 0)
		return nil
	}

	// Stage 2: partial fingerprints over the size candidates.
	p.notify(StagePartialHash, 0, len(sizeCandidates))
	hashed, skipped := p.runner.Run(ctx, sizeCandidates, p.fingerprinter.PartialFingerprint,
		func(record *FileRecord, fingerprint string) { record.PartialHash = fingerprint },
		StagePartialHash)
	p.progress.PartialHashed.Add(int64(hashed))
	if skipped > 0 {
		slog.Warn("Excluded unreadable files from candidate set",
			"stage", StagePartialHash,
			"skipped", skipped)
	}
	p.notify(StagePartialHash, len(sizeCandidates), len(sizeCandidates))

	partialCandidates := flatten(keepDuplicates(groupRecords(withPartialHash(sizeCandidates), partialKey)))
	if p.trace != nil {
		p.trace.PartialSurvivors.mark(partialCandidates, indexOf)
	}
	if len(partialCandidates) == 0 {
		p.notify(StageComplete, 0, 0)
		return nil
	}

	// Stage 3: full fingerprints confirm byte equality.
	p.notify(StageFullHash, 0, len(partialCandidates))
	hashed, skipped = p.runner.Run(ctx, partialCandidates, p.fingerprinter.FullFingerprint,
		func(record *FileRecord, fingerprint string) { record.FullHash = fingerprint },
		StageFullHash)
	p.progress.FullHashed.Add(int64(hashed))
	if skipped > 0 {
		slog.Warn("Excluded unreadable files from candidate set",
			"stage", StageFullHash,
			"skipped", skipped)
	}
	p.notify(StageFullHash, len(partialCandidates), len(partialCandidates))

	confirmed := keepDuplicates(groupRecords(withFullHash(partialCandidates), fullKey))
	groups := make([]*DuplicateGroup, 0, len(confirmed))
	for _, members := range confirmed {
		groups = append(groups, NewDuplicateGroup(members))
	}
	if p.trace != nil {
		p.trace.FullSurvivors.mark(flatten(confirmed), indexOf)
	}
	p.progress.GroupsFound.Store(int64(len(groups)))
	p.notify(StageComplete, len(groups), len(groups))

	return groups
}

// notify forwards a stage notification to the sink. The sink is
// fire-and-forget: a panicking sink is logged and detection continues.
func (p *Pipeline) notify(stage string, processed, total int) {
	if p.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Progress sink panicked", "stage", stage, "panic", r)
		}
	}()
	p.sink.Notify(stage, processed, total)
}

// The partial and full keys keep the size as a prefix so files of different
// lengths that happen to share edge chunks (or a digest) never merge.
func sizeKey(record *FileRecord) string {
	return strconv.FormatInt(record.Size, 10)
}

func partialKey(record *FileRecord) string {
	return strconv.FormatInt(record.Size, 10) + ":" + record.PartialHash
}

func fullKey(record *FileRecord) string {
	return strconv.FormatInt(record.Size, 10) + ":" + record.FullHash
}

// groupRecords partitions records by key, preserving first-seen key order so
// the pipeline output is stable for a given input order.
func groupRecords(records []*FileRecord, key func(*FileRecord) string) [][]*FileRecord {
	byKey := make(map[string][]*FileRecord, len(records))
	order := make([]string, 0, len(records))
	for _, record := range records {
		k := key(record)
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], record)
	}
	groups := make([][]*FileRecord, 0, len(order))
	for _, k := range order {
		groups = append(groups, byKey[k])
	}
	return groups
}

// keepDuplicates discards partitions that cannot be duplicate groups.
func keepDuplicates(groups [][]*FileRecord) [][]*FileRecord {
	kept := groups[:0:0]
	for _, group := range groups {
		if len(group) >= 2 {
			kept = append(kept, group)
		}
	}
	return kept
}

func flatten(groups [][]*FileRecord) []*FileRecord {
	var out []*FileRecord
	for _, group := range groups {
		out = append(out, group...)
	}
	return out
}

func withPartialHash(records []*FileRecord) []*FileRecord {
	kept := records[:0:0]
	for _, record := range records {
		if record.PartialHash != "" {
			kept = append(kept, record)
		}
	}
	return kept
}

func withFullHash(records []*FileRecord) []*FileRecord {
	kept := records[:0:0]
	for _, record := range records {
		if record.FullHash != "" {
			kept = append(kept, record)
		}
	}
	return kept
}
