package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func recordPaths(t *testing.T, roots ...string) []string {
	t.Helper()
	records, err := New(4).Walk(context.Background(), roots)
	require.NoError(t, err)
	paths := make([]string, 0, len(records))
	for _, record := range records {
		paths = append(paths, record.Path)
	}
	return paths
}

func TestWalkCollectsRegularFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.txt"), []byte("top"))
	writeFile(t, filepath.Join(root, "sub", "nested.txt"), []byte("nested"))
	writeFile(t, filepath.Join(root, "sub", "deep", "leaf.txt"), []byte("leaf"))

	records, err := New(4).Walk(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Output is sorted by path.
	assert.True(t, sort.SliceIsSorted(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	}))

	for _, record := range records {
		info, err := os.Stat(record.Path)
		require.NoError(t, err)
		assert.Equal(t, info.Size(), record.Size)
		assert.True(t, info.ModTime().Equal(record.ModTime))
		assert.Empty(t, record.PartialHash)
		assert.Empty(t, record.FullHash)
	}
}

func TestWalkSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.txt")
	writeFile(t, target, []byte("real"))
	if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	paths := recordPaths(t, root)
	assert.Equal(t, []string{target}, paths)
}

func TestWalkHonorsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".dupescanignore"), []byte("*.tmp\ncache\n"))
	writeFile(t, filepath.Join(root, "keep.txt"), []byte("keep"))
	writeFile(t, filepath.Join(root, "scratch.tmp"), []byte("scratch"))
	writeFile(t, filepath.Join(root, "cache", "blob"), []byte("blob"))

	paths := recordPaths(t, root)

	assert.Contains(t, paths, filepath.Join(root, "keep.txt"))
	assert.Contains(t, paths, filepath.Join(root, ".dupescanignore"))
	assert.NotContains(t, paths, filepath.Join(root, "scratch.tmp"))
	assert.NotContains(t, paths, filepath.Join(root, "cache", "blob"))
}

func TestWalkDedupesOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(root, "sub", "b.txt"), []byte("b"))

	baseline := recordPaths(t, root)
	overlapping := recordPaths(t, root, filepath.Join(root, "sub"), root)

	assert.Equal(t, baseline, overlapping, "nested and repeated roots must not duplicate records")
}

func TestWalkSkipsMissingRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), []byte("a"))

	records, err := New(4).Walk(context.Background(),
		[]string{root, filepath.Join(root, "does-not-exist")})
	require.NoError(t, err, "an unreadable root is skipped, not fatal")
	assert.Len(t, records, 1)
}

func TestWalkStopsOnCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(4).Walk(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedupeRoots(t *testing.T) {
	base := t.TempDir()
	sub := filepath.Join(base, "sub")
	sibling := filepath.Join(base, "sub-sibling")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.MkdirAll(sibling, 0o755))

	kept, err := dedupeRoots([]string{sub, base, sibling, base})
	require.NoError(t, err)

	// base swallows sub; sub-sibling shares a string prefix with sub but is
	// kept when base is absent.
	assert.Equal(t, []string{base}, kept)

	kept, err = dedupeRoots([]string{sub, sibling})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{sub, sibling}, kept)
}
