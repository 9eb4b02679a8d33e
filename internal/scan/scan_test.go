package scan_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	krfs "github.com/kr/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/folder-insight/internal/scan"
)

// tempRoot returns a fresh directory with symbolic links in its own path resolved.
func tempRoot(t *testing.T) string {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	return root
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644))
}

func symlink(t *testing.T, target, link string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("symbolic links require elevated privileges on windows")
	}

	require.NoError(t, os.Symlink(target, link))
}

type entry struct {
	Path      string
	Size      int64
	Extension string
}

// relative converts records to root-relative slash paths for comparison.
func relative(t *testing.T, root string, records []scan.FileRecord) []entry {
	t.Helper()

	out := make([]entry, 0, len(records))

	for _, r := range records {
		rel, err := filepath.Rel(root, r.Path)
		require.NoError(t, err)

		out = append(out, entry{Path: filepath.ToSlash(rel), Size: r.Size, Extension: r.Extension})
	}

	return out
}

func paths(t *testing.T, root string, records []scan.FileRecord) []string {
	t.Helper()

	out := make([]string, 0, len(records))
	for _, e := range relative(t, root, records) {
		out = append(out, e.Path)
	}

	return out
}

func TestScan_DefaultPolicy(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a.txt"), 100)
	writeFile(t, filepath.Join(root, "sub", "b.txt"), 200)
	writeFile(t, filepath.Join(root, "sub", ".hidden"), 10)
	writeFile(t, filepath.Join(root, "node_modules", "x.js"), 50)

	records, err := scan.Scan(context.Background(), root, scan.DefaultPolicy())
	require.NoError(t, err)

	assert.ElementsMatch(t, []entry{
		{Path: "a.txt", Size: 100, Extension: ".txt"},
		{Path: "sub/b.txt", Size: 200, Extension: ".txt"},
	}, relative(t, root, records))
}

func TestScan_RecordsAreAbsolute(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a.txt"), 1)

	t.Chdir(root)

	records, err := scan.Scan(context.Background(), ".", scan.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.True(t, filepath.IsAbs(records[0].Path))
	assert.Equal(t, filepath.Join(root, "a.txt"), records[0].Path)
}

func TestScan_HiddenIncluded(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, ".gitignore"), 3)
	writeFile(t, filepath.Join(root, ".config", "app.yaml"), 4)

	policy := scan.DefaultPolicy()
	policy.Hidden = true

	records, err := scan.Scan(context.Background(), root, policy)
	require.NoError(t, err)

	assert.ElementsMatch(t, []entry{
		{Path: ".gitignore", Size: 3, Extension: scan.NoExtension},
		{Path: ".config/app.yaml", Size: 4, Extension: ".yaml"},
	}, relative(t, root, records))
}

func TestScan_MaxDepth(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "d0.txt"), 1)
	writeFile(t, filepath.Join(root, "a", "d1.txt"), 1)
	writeFile(t, filepath.Join(root, "a", "b", "d2.txt"), 1)
	writeFile(t, filepath.Join(root, "a", "b", "c", "d3.txt"), 1)

	tests := []struct {
		name     string
		maxDepth int
		want     []string
	}{
		{name: "root only", maxDepth: 0, want: []string{"d0.txt"}},
		{name: "one level", maxDepth: 1, want: []string{"d0.txt", "a/d1.txt"}},
		{name: "two levels", maxDepth: 2, want: []string{"d0.txt", "a/d1.txt", "a/b/d2.txt"}},
		{name: "unlimited", maxDepth: scan.Unlimited, want: []string{"d0.txt", "a/d1.txt", "a/b/d2.txt", "a/b/c/d3.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := scan.DefaultPolicy()
			policy.MaxDepth = tt.maxDepth

			records, err := scan.Scan(context.Background(), root, policy)
			require.NoError(t, err)

			assert.ElementsMatch(t, tt.want, paths(t, root, records))
		})
	}
}

func TestScan_DepthSkipsAreReported(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a", "b", "deep.txt"), 1)

	policy := scan.DefaultPolicy()
	policy.MaxDepth = 0

	var skips []scan.Skip

	records, err := scan.New(policy, scan.WithObserver(func(s scan.Skip) {
		skips = append(skips, s)
	})).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, records)
	require.Len(t, skips, 1)
	assert.Equal(t, scan.ReasonDepth, skips[0].Reason)
	assert.Equal(t, filepath.Join(root, "a"), skips[0].Path)
}

func TestScan_IgnoreAtAnyDepth(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "keep.go"), 5)
	writeFile(t, filepath.Join(root, "node_modules", "top.js"), 5)
	writeFile(t, filepath.Join(root, "pkg", "node_modules", "dep", "index.js"), 5)
	writeFile(t, filepath.Join(root, "pkg", "main.go"), 5)

	policy := scan.Policy{MaxDepth: scan.Unlimited, Ignore: []string{"node_modules"}}

	records, err := scan.Scan(context.Background(), root, policy)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"keep.go", "pkg/main.go"}, paths(t, root, records))
}

func TestScan_IgnoreMatchesNamesNotPaths(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a", "b", "file.txt"), 1)

	policy := scan.Policy{MaxDepth: scan.Unlimited, Ignore: []string{"a/b"}}

	records, err := scan.Scan(context.Background(), root, policy)
	require.NoError(t, err)

	assert.Equal(t, []string{"a/b/file.txt"}, paths(t, root, records))
}

func TestScan_SymlinksNotFollowedByDefault(t *testing.T) {
	root := tempRoot(t)
	outside := tempRoot(t)

	writeFile(t, filepath.Join(root, "real.txt"), 10)
	writeFile(t, filepath.Join(outside, "target.txt"), 20)
	writeFile(t, filepath.Join(outside, "dir", "nested.txt"), 30)

	symlink(t, filepath.Join(outside, "target.txt"), filepath.Join(root, "file-link"))
	symlink(t, filepath.Join(outside, "dir"), filepath.Join(root, "dir-link"))

	records, err := scan.Scan(context.Background(), root, scan.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, []string{"real.txt"}, paths(t, root, records))
}

func TestScan_FollowSymlinksUsesRealPaths(t *testing.T) {
	root := tempRoot(t)
	outside := tempRoot(t)

	writeFile(t, filepath.Join(outside, "target.txt"), 20)
	writeFile(t, filepath.Join(outside, "dir", "nested.md"), 30)

	symlink(t, filepath.Join(outside, "target.txt"), filepath.Join(root, "file-link"))
	symlink(t, filepath.Join(outside, "dir"), filepath.Join(root, "dir-link"))

	policy := scan.DefaultPolicy()
	policy.FollowSymlinks = true

	records, err := scan.Scan(context.Background(), root, policy)
	require.NoError(t, err)

	assert.ElementsMatch(t, []scan.FileRecord{
		{Path: filepath.Join(outside, "target.txt"), Size: 20, Extension: ".txt"},
		{Path: filepath.Join(outside, "dir", "nested.md"), Size: 30, Extension: ".md"},
	}, records)
}

func TestScan_SymlinkCycleTerminates(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "top.txt"), 1)
	writeFile(t, filepath.Join(root, "a", "b", "leaf.txt"), 2)

	symlink(t, root, filepath.Join(root, "a", "b", "to-root"))
	symlink(t, filepath.Join(root, "a"), filepath.Join(root, "a", "b", "to-a"))

	policy := scan.DefaultPolicy()
	policy.FollowSymlinks = true

	var visited int

	records, err := scan.New(policy, scan.WithObserver(func(s scan.Skip) {
		if s.Reason == scan.ReasonVisited {
			visited++
		}
	})).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"top.txt", "a/b/leaf.txt"}, paths(t, root, records))
	assert.Equal(t, 2, visited)
}

func TestScan_SymlinkToOwnDirectory(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "file.txt"), 1)
	symlink(t, ".", filepath.Join(root, "self"))

	policy := scan.DefaultPolicy()
	policy.FollowSymlinks = true

	records, err := scan.Scan(context.Background(), root, policy)
	require.NoError(t, err)

	assert.Equal(t, []string{"file.txt"}, paths(t, root, records))
}

func TestScan_MultipleLinksToSameTarget(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "data", "blob.bin"), 64)

	symlink(t, filepath.Join(root, "data", "blob.bin"), filepath.Join(root, "a-link"))
	symlink(t, filepath.Join(root, "data", "blob.bin"), filepath.Join(root, "b-link"))
	symlink(t, filepath.Join(root, "data"), filepath.Join(root, "c-dir-link"))

	policy := scan.DefaultPolicy()
	policy.FollowSymlinks = true

	records, err := scan.Scan(context.Background(), root, policy)
	require.NoError(t, err)

	assert.Equal(t, []string{"data/blob.bin"}, paths(t, root, records))
}

func TestScan_BrokenSymlinkIsSkipped(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "ok.txt"), 1)
	symlink(t, filepath.Join(root, "missing"), filepath.Join(root, "dangling"))

	policy := scan.DefaultPolicy()
	policy.FollowSymlinks = true

	var skips []scan.Skip

	records, err := scan.New(policy, scan.WithObserver(func(s scan.Skip) {
		skips = append(skips, s)
	})).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.txt"}, paths(t, root, records))
	require.Len(t, skips, 1)
	assert.Equal(t, scan.ReasonUnresolved, skips[0].Reason)
	assert.True(t, skips[0].Reason.IsError())
	assert.Error(t, skips[0].Err)
}

func TestScan_FollowedLinkRespectsDepth(t *testing.T) {
	root := tempRoot(t)
	outside := tempRoot(t)
	writeFile(t, filepath.Join(outside, "far.txt"), 1)
	symlink(t, outside, filepath.Join(root, "link"))

	policy := scan.Policy{MaxDepth: 0, FollowSymlinks: true}

	records, err := scan.Scan(context.Background(), root, policy)
	require.NoError(t, err)

	assert.Empty(t, records)
}

func TestScan_DirectoryBeyondDepthReachableThroughLink(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a", "c", "x", "file.txt"), 7)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	symlink(t, filepath.Join(root, "a", "c", "x"), filepath.Join(root, "b", "link"))

	policy := scan.Policy{MaxDepth: 2, FollowSymlinks: true}

	var reasons []scan.Reason

	records, err := scan.New(policy, scan.WithObserver(func(s scan.Skip) {
		reasons = append(reasons, s.Reason)
	})).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"a/c/x/file.txt"}, paths(t, root, records))
	assert.Equal(t, []scan.Reason{scan.ReasonDepth}, reasons)
}

func TestScan_WalkRelativeReportsLinkLocation(t *testing.T) {
	root := tempRoot(t)
	outside := tempRoot(t)
	writeFile(t, filepath.Join(root, "own.txt"), 1)
	writeFile(t, filepath.Join(outside, "pkg", "far.go"), 2)
	symlink(t, outside, filepath.Join(root, "vendor"))

	policy := scan.DefaultPolicy()
	policy.FollowSymlinks = true

	got := map[string]string{}

	require.NoError(t, scan.New(policy).WalkRelative(context.Background(), root, func(rel string, r scan.FileRecord) {
		got[rel] = r.Path
	}))

	assert.Equal(t, map[string]string{
		"own.txt":           filepath.Join(root, "own.txt"),
		"vendor/pkg/far.go": filepath.Join(outside, "pkg", "far.go"),
	}, got)
}

func TestScanner_Resolve(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "real", "f.txt"), 1)
	symlink(t, filepath.Join(root, "real"), filepath.Join(root, "alias"))

	follow := scan.DefaultPolicy()
	follow.FollowSymlinks = true

	resolved, err := scan.New(follow).Resolve(filepath.Join(root, "alias"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "real"), resolved)

	resolved, err = scan.New(scan.DefaultPolicy()).Resolve(filepath.Join(root, "alias"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "alias"), resolved)

	_, err = scan.New(follow).Resolve(filepath.Join(root, "real", "f.txt"))
	require.ErrorIs(t, err, scan.ErrNotDirectory)
}

func TestScan_SizesMatchIndependentWalk(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a.txt"), 11)
	writeFile(t, filepath.Join(root, "x", "b.go"), 222)
	writeFile(t, filepath.Join(root, "x", "y", "c"), 3333)
	writeFile(t, filepath.Join(root, "x", "y", "z", "archive.tar.gz"), 44)
	writeFile(t, filepath.Join(root, ".dot", "d.md"), 5)

	policy := scan.Policy{MaxDepth: scan.Unlimited, Hidden: true}

	records, err := scan.Scan(context.Background(), root, policy)
	require.NoError(t, err)

	want := make(map[string]int64)

	walker := krfs.Walk(root)
	for walker.Step() {
		require.NoError(t, walker.Err())

		if walker.Stat().Mode().IsRegular() {
			want[walker.Path()] = walker.Stat().Size()
		}
	}

	got := make(map[string]int64, len(records))
	for _, r := range records {
		info, err := os.Stat(r.Path)
		require.NoError(t, err)
		assert.Equal(t, info.Size(), r.Size, r.Path)

		got[r.Path] = r.Size
	}

	assert.Len(t, records, len(want))
	assert.Equal(t, want, got)
}

func TestScan_Idempotent(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "one.txt"), 1)
	writeFile(t, filepath.Join(root, "b", "two.txt"), 2)
	writeFile(t, filepath.Join(root, "a", "three.txt"), 3)
	writeFile(t, filepath.Join(root, "a", "c", "four.txt"), 4)

	first, err := scan.Scan(context.Background(), root, scan.DefaultPolicy())
	require.NoError(t, err)

	second, err := scan.Scan(context.Background(), root, scan.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScan_DepthFirstOrder(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a", "a1.txt"), 1)
	writeFile(t, filepath.Join(root, "a", "aa", "a2.txt"), 1)
	writeFile(t, filepath.Join(root, "b", "b1.txt"), 1)
	writeFile(t, filepath.Join(root, "z.txt"), 1)

	records, err := scan.Scan(context.Background(), root, scan.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, []string{"z.txt", "a/a1.txt", "a/aa/a2.txt", "b/b1.txt"}, paths(t, root, records))
}

func TestScan_RootErrors(t *testing.T) {
	root := tempRoot(t)
	file := filepath.Join(root, "file.txt")
	writeFile(t, file, 1)

	_, err := scan.Scan(context.Background(), filepath.Join(root, "missing"), scan.DefaultPolicy())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = scan.Scan(context.Background(), file, scan.DefaultPolicy())
	require.Error(t, err)
	assert.ErrorIs(t, err, scan.ErrNotDirectory)
}

func TestScan_Cancelled(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a.txt"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := scan.Scan(ctx, root, scan.DefaultPolicy())
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, records)
}

// faultFS fails selected operations on top of the host filesystem.
type faultFS struct {
	scan.FS

	unreadable map[string]bool
	vanished   map[string]bool
}

var errInjected = errors.New("injected failure")

func (f faultFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if f.unreadable[name] {
		return nil, errInjected
	}

	return f.FS.ReadDir(name)
}

func (f faultFS) Lstat(name string) (fs.FileInfo, error) {
	if f.vanished[name] {
		return nil, fs.ErrNotExist
	}

	return f.FS.Lstat(name)
}

func TestScan_LocalFailuresAreAbsorbed(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "ok.txt"), 1)
	writeFile(t, filepath.Join(root, "locked", "secret.txt"), 1)
	writeFile(t, filepath.Join(root, "open", "gone.txt"), 1)
	writeFile(t, filepath.Join(root, "open", "here.txt"), 1)

	fsys := faultFS{
		FS:         scan.OS(),
		unreadable: map[string]bool{filepath.Join(root, "locked"): true},
		vanished:   map[string]bool{filepath.Join(root, "open", "gone.txt"): true},
	}

	reasons := make(map[scan.Reason]int)

	records, err := scan.New(scan.DefaultPolicy(),
		scan.WithFS(fsys),
		scan.WithObserver(func(s scan.Skip) { reasons[s.Reason]++ }),
	).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"ok.txt", "open/here.txt"}, paths(t, root, records))
	assert.Equal(t, map[scan.Reason]int{scan.ReasonUnreadable: 1, scan.ReasonLstat: 1}, reasons)
}

func TestScan_UnreadableRootIsEmpty(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "a.txt"), 1)

	fsys := faultFS{FS: scan.OS(), unreadable: map[string]bool{root: true}}

	records, err := scan.New(scan.DefaultPolicy(), scan.WithFS(fsys)).Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScan_ConcurrentScansAreIsolated(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, filepath.Join(root, "data", "f.txt"), 1)
	symlink(t, filepath.Join(root, "data"), filepath.Join(root, "link"))

	policy := scan.DefaultPolicy()
	policy.FollowSymlinks = true
	scanner := scan.New(policy)

	results := make(chan []scan.FileRecord, 4)

	for range 4 {
		go func() {
			records, err := scanner.Scan(context.Background(), root)
			assert.NoError(t, err)

			results <- records
		}()
	}

	for range 4 {
		assert.Equal(t, []string{"data/f.txt"}, paths(t, root, <-results))
	}
}
