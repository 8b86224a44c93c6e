package scan

import "sync/atomic"

// Stage labels passed to the progress sink. Each hashing stage is notified
// once at start and once at end; StageComplete is sent exactly once with the
// final group count.
const (
	StageSize        = "size"
	StagePartialHash = "partial-hash"
	StageFullHash    = "full-hash"
	StageComplete    = "complete"
)

// ProgressSink receives stage notifications from the pipeline. It is always
// invoked from the coordinating goroutine, after the stage's worker pool has
// drained, so implementations need no synchronization. Sink failures never
// affect detection.
type ProgressSink interface {
	Notify(stage string, processed, total int)
}

// SinkFunc adapts a plain function to the ProgressSink interface.
type SinkFunc func(stage string, processed, total int)

func (f SinkFunc) Notify(stage string, processed, total int) {
	f(stage, processed, total)
}

// Progress holds live counters updated while a scan runs. The hashing
// counters are written from worker goroutines, so all fields are atomic and
// can be read by a UI without locks.
type Progress struct {
	CandidatesFound atomic.Int64 // records surviving the size stage
	PartialHashed   atomic.Int64
	FullHashed      atomic.Int64
	Errors          atomic.Int64 // per-file hashing failures across both stages
	GroupsFound     atomic.Int64
}

// reset zeroes the counters so a reused Pipeline reports only the current run.
func (p *Progress) reset() {
	p.CandidatesFound.Store(0)
	p.PartialHashed.Store(0)
	p.FullHashed.Store(0)
	p.Errors.Store(0)
	p.GroupsFound.Store(0)
}
