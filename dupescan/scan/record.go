package scan

import "time"

// FileRecord is the in-memory metadata for one candidate file. Records are
// created by the walker before detection runs; the hashing stages are the
// only code that mutates them, and each fingerprint field is written at most
// once. An empty fingerprint string means "not computed".
type FileRecord struct {
	Path        string
	Size        int64
	ModTime     time.Time
	PartialHash string
	FullHash    string
}

// Same reports whether two records refer to the same logical file.
// Fingerprints are derived annotations and take no part in identity.
func (fr *FileRecord) Same(other *FileRecord) bool {
	if other == nil {
		return false
	}
	return fr.Path == other.Path && fr.Size == other.Size && fr.ModTime.Equal(other.ModTime)
}

// DuplicateGroup is a finalized set of two or more byte-identical files.
// Groups are constructed only as pipeline output and are not mutated
// afterwards.
type DuplicateGroup struct {
	Files     []*FileRecord
	TotalSize int64
}

// NewDuplicateGroup builds a group and derives its total size, so the
// derived value can never go stale relative to the members.
func NewDuplicateGroup(files []*FileRecord) *DuplicateGroup {
	var total int64
	for _, file := range files {
		total += file.Size
	}
	return &DuplicateGroup{Files: files, TotalSize: total}
}
