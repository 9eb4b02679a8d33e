package dirstat

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/idelchi/folder-insight/internal/scan"
)

// btreeDegree is the branching factor of the top-N tree.
const btreeDegree = 8

// DefaultTopN is the number of top results tracked when none is requested.
const DefaultTopN = 20

// ExtStat represents statistics for a file extension.
type ExtStat struct {
	// Count is the number of files with this extension.
	Count int `json:"count" yaml:"count"`
	// Size is the cumulative size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// FileStat represents a single file path and size.
type FileStat struct {
	// Path is the file or directory path.
	Path string `json:"path" yaml:"path"`
	// Size is the size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// Stats holds aggregate statistics for a directory scan.
type Stats struct {
	// ScanID uniquely identifies the scan that produced these statistics.
	ScanID string `json:"scan_id" yaml:"scan_id"`
	// Root is the absolute path of the scanned directory.
	Root string `json:"root" yaml:"root"`
	// StartedAt is when the scan started.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	// FileCount is the total number of files or directories analyzed.
	FileCount int64 `json:"file_count" yaml:"file_count"`
	// TotalBytes is the cumulative size of all analyzed files.
	TotalBytes int64 `json:"total_bytes" yaml:"total_bytes"`
	// ExtStats maps file extensions to their statistics.
	ExtStats map[string]ExtStat `json:"ext_stats" yaml:"ext_stats"`
	// TopFiles contains the N largest files or directories, smallest first.
	TopFiles []FileStat `json:"top_files" yaml:"top_files"`
	// ErrorCount is the number of entries that could not be read.
	ErrorCount int64 `json:"error_count" yaml:"error_count"`
	// SkipCount is the number of entries skipped by policy.
	SkipCount int64 `json:"skip_count" yaml:"skip_count"`
	// Elapsed is the total time taken for analysis.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	// DirectoryMode indicates whether analyzing directories instead of files.
	DirectoryMode bool `json:"directory_mode" yaml:"directory_mode"`
	// TopN is the number of top results tracked.
	TopN int `json:"top_n" yaml:"top_n"`
}

// Options configures directory analysis and CLI behavior.
type Options struct {
	// Path is the directory to analyze.
	Path string
	// Extensions to include (empty = all). A '!' prefix excludes instead.
	Extensions []string
	// Excludes contains glob patterns matched against root-relative paths.
	Excludes []string
	// Ignore contains entry names skipped at every depth.
	Ignore []string
	// MinSize is the minimum file size in bytes.
	MinSize int64
	// TopN is the number of top results to track.
	TopN int
	// MaxDepth is the maximum traversal depth (root = 0, negative = unlimited).
	MaxDepth int
	// FollowSymlinks indicates whether symbolic links are resolved and traversed.
	FollowSymlinks bool
	// Hidden indicates whether dot files and directories are included.
	Hidden bool
	// DirsMode indicates whether to aggregate by directory instead of files.
	DirsMode bool
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Debug indicates whether debug output is enabled.
	Debug bool
	// Output represents output format (table, json, yaml or paths).
	Output string
	// Tree indicates whether to print a tree view after the report.
	Tree bool
	// TreeDepth is the depth of the tree view.
	TreeDepth int
	// Config is the path of the configuration file.
	Config string
	// Version indicates whether to show version and exit.
	Version bool
	// Integration indicates whether to output integration script.
	Integration bool
}

// Policy returns the traversal policy described by the options.
func (o Options) Policy() scan.Policy {
	return scan.Policy{
		MaxDepth:       o.MaxDepth,
		Ignore:         o.Ignore,
		FollowSymlinks: o.FollowSymlinks,
		Hidden:         o.Hidden,
	}
}

// bySize orders largest first, then by path for a stable result.
func bySize(a, b FileStat) bool {
	if a.Size != b.Size {
		return a.Size > b.Size
	}

	return a.Path < b.Path
}

// largest keeps the n largest entries it is given.
type largest struct {
	n    int
	tree *btree.BTreeG[FileStat]
}

func newLargest(n int) *largest {
	return &largest{n: n, tree: btree.NewG[FileStat](btreeDegree, bySize)}
}

func (l *largest) add(f FileStat) {
	l.tree.ReplaceOrInsert(f)

	if l.tree.Len() > l.n {
		l.tree.DeleteMax()
	}
}

// ascending returns the kept entries smallest first, for display.
func (l *largest) ascending() []FileStat {
	out := make([]FileStat, 0, l.tree.Len())

	l.tree.Descend(func(f FileStat) bool {
		out = append(out, f)

		return true
	})

	return out
}

// collector aggregates statistics from the walk. The progress reporter reads it
// from another goroutine, so access is protected by a mutex.
type collector struct {
	mu            sync.Mutex
	topN          int
	directoryMode bool
	extStats      map[string]ExtStat
	dirStats      map[string]ExtStat
	top           *largest
	fileCount     int64
	totalBytes    int64
	errorCount    int64
	skipCount     int64
}

// newCollector creates a collector with the requested configuration.
func newCollector(topN int, directoryMode bool) *collector {
	return &collector{
		topN:          topN,
		directoryMode: directoryMode,
		extStats:      make(map[string]ExtStat),
		dirStats:      make(map[string]ExtStat),
		top:           newLargest(topN),
	}
}

// addSkip counts an entry passed over by the walk.
func (c *collector) addSkip(failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if failed {
		c.errorCount++
	} else {
		c.skipCount++
	}
}

// add records a file. In directory mode, path is the containing directory and
// sizes accumulate per directory.
func (c *collector) add(path string, size int64, ext string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalBytes += size

	if c.directoryMode {
		stat := c.dirStats[path]
		if stat.Count == 0 {
			c.fileCount++
		}

		stat.Count++
		stat.Size += size
		c.dirStats[path] = stat

		return
	}

	c.fileCount++

	stat := c.extStats[ext]
	stat.Count++
	stat.Size += size
	c.extStats[ext] = stat

	c.top.add(FileStat{Path: path, Size: size})
}

// progress returns the running file count and byte total.
func (c *collector) progress() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fileCount, c.totalBytes
}

// finalize produces the final Stats from the collected data.
// Paths are converted to slash format for cross-platform consistency.
func (c *collector) finalize() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	extStats := c.extStats
	top := c.top

	if c.directoryMode {
		extStats = make(map[string]ExtStat)
		top = newLargest(c.topN)

		for dirPath, stat := range c.dirStats {
			top.add(FileStat{Path: dirPath, Size: stat.Size})
		}
	}

	topFiles := top.ascending()

	for i := range topFiles {
		topFiles[i].Path = filepath.ToSlash(topFiles[i].Path)
		topFiles[i].Path = strings.TrimPrefix(topFiles[i].Path, "./")
	}

	return &Stats{
		FileCount:     c.fileCount,
		TotalBytes:    c.totalBytes,
		ExtStats:      extStats,
		TopFiles:      topFiles,
		ErrorCount:    c.errorCount,
		SkipCount:     c.skipCount,
		DirectoryMode: c.directoryMode,
		TopN:          c.topN,
	}
}

// Summarize aggregates records that were already collected, keeping the topN largest files.
// Paths are reported as found in the records.
func Summarize(records []scan.FileRecord, topN int) *Stats {
	if topN <= 0 {
		topN = DefaultTopN
	}

	c := newCollector(topN, false)
	for _, r := range records {
		c.add(r.Path, r.Size, r.Extension)
	}

	return c.finalize()
}
