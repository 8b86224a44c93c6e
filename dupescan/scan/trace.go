package scan

import (
	roaring "github.com/RoaringBitmap/roaring"
)

// StageTrace records which input records survived each stage, as bitmaps of
// input indices. The candidate sets only ever narrow, so FullSurvivors is a
// subset of PartialSurvivors, which is a subset of SizeSurvivors. Results
// views use the trace to report where each file was eliminated.
type StageTrace struct {
	SizeSurvivors    *survivorSet
	PartialSurvivors *survivorSet
	FullSurvivors    *survivorSet
}

func newStageTrace() *StageTrace {
	return &StageTrace{
		SizeSurvivors:    &survivorSet{bm: roaring.New()},
		PartialSurvivors: &survivorSet{bm: roaring.New()},
		FullSurvivors:    &survivorSet{bm: roaring.New()},
	}
}

// reset empties the survivor sets so a reused Pipeline traces only the
// current run. Holders of the trace keep their pointer.
func (t *StageTrace) reset() {
	t.SizeSurvivors.bm.Clear()
	t.PartialSurvivors.bm.Clear()
	t.FullSurvivors.bm.Clear()
}

// survivorSet is a thin wrapper over a roaring bitmap of input indices.
type survivorSet struct {
	bm *roaring.Bitmap
}

func (s *survivorSet) mark(records []*FileRecord, indexOf map[*FileRecord]uint32) {
	for _, record := range records {
		s.bm.Add(indexOf[record])
	}
}

// Count returns the number of surviving records.
func (s *survivorSet) Count() int {
	return int(s.bm.GetCardinality())
}

// Contains reports whether the record at input index idx survived.
func (s *survivorSet) Contains(idx int) bool {
	return s.bm.Contains(uint32(idx))
}

// SubsetOf reports whether every survivor in s also survived in other.
func (s *survivorSet) SubsetOf(other *survivorSet) bool {
	return roaring.And(s.bm, other.bm).GetCardinality() == s.bm.GetCardinality()
}
