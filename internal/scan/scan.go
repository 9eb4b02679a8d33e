package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Option customizes a Scanner.
type Option func(*Scanner)

// WithFS replaces the host filesystem.
func WithFS(fsys FS) Option {
	return func(s *Scanner) {
		s.fs = fsys
	}
}

// WithObserver registers fn to receive every skipped entry.
func WithObserver(fn func(Skip)) Option {
	return func(s *Scanner) {
		s.observe = fn
	}
}

// Scanner walks directory trees under a fixed Policy.
// A Scanner holds no per-scan state and may run several scans concurrently.
type Scanner struct {
	fs      FS
	policy  Policy
	observe func(Skip)
}

// New creates a Scanner for policy.
func New(policy Policy, opts ...Option) *Scanner {
	s := &Scanner{
		fs:     OS(),
		policy: policy,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan walks root with policy on the host filesystem and returns the records found.
func Scan(ctx context.Context, root string, policy Policy) ([]FileRecord, error) {
	return New(policy).Scan(ctx, root)
}

// Scan walks root and returns the records found, in walk order.
func (s *Scanner) Scan(ctx context.Context, root string) ([]FileRecord, error) {
	records := make([]FileRecord, 0)

	if err := s.Walk(ctx, root, func(r FileRecord) {
		records = append(records, r)
	}); err != nil {
		return nil, err
	}

	return records, nil
}

// Walk traverses root depth first and calls fn for each regular file found.
// Directory entries are visited in the order the filesystem lists them.
//
// Walk returns an error only when root cannot be resolved or is not a directory,
// or when ctx is cancelled. Failures below the root are reported to the observer.
func (s *Scanner) Walk(ctx context.Context, root string, fn func(FileRecord)) error {
	return s.WalkRelative(ctx, root, func(_ string, r FileRecord) {
		fn(r)
	})
}

// WalkRelative is Walk with the location of each file: the slash separated path
// below root through which it was reached. The location differs from the record
// path when a followed link was crossed on the way.
func (s *Scanner) WalkRelative(ctx context.Context, root string, fn func(rel string, r FileRecord)) error {
	root, err := s.Resolve(root)
	if err != nil {
		return err
	}

	w := &walker{
		Scanner: s,
		ignore:  s.policy.ignoreSet(),
		emit:    fn,
	}

	if s.policy.FollowSymlinks {
		w.visited = map[string]struct{}{root: {}}
	}

	stack := []frame{{dir: root, rel: "", depth: 0}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		subdirs, err := w.visit(ctx, top)
		if err != nil {
			return err
		}

		// Push in reverse so subdirectories are explored in listing order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return nil
}

// Resolve returns the directory a walk of root starts from: absolute, canonical
// when following links. It fails when root is missing or not a directory.
func (s *Scanner) Resolve(root string) (string, error) {
	if root == "" {
		root = "."
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	if s.policy.FollowSymlinks {
		if abs, err = s.fs.RealPath(abs); err != nil {
			return "", fmt.Errorf("resolving real path of %q: %w", root, err)
		}
	}

	info, err := s.fs.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("accessing path %q: %w", root, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("path %q: %w", root, ErrNotDirectory)
	}

	return abs, nil
}

// frame is a pending directory on the work stack.
type frame struct {
	dir string
	// rel is the slash separated location of dir below the root.
	rel   string
	depth int
}

// action is what the walk does with a classified entry.
type action int

const (
	actionSkip action = iota
	actionRecord
	actionDescend
)

// outcome is the classification of a single directory entry.
type outcome struct {
	action action
	// path is the record path or the directory to descend into.
	path string
	rel  string
	size int64
	skip Skip
}

func skipped(path string, reason Reason, err error) outcome {
	return outcome{action: actionSkip, skip: Skip{Path: path, Reason: reason, Err: err}}
}

// walker holds the state of one scan.
type walker struct {
	*Scanner

	ignore map[string]struct{}
	// visited holds real paths already recorded or entered. Nil unless following symlinks.
	visited map[string]struct{}
	emit    func(string, FileRecord)
}

// visit lists one directory, emits its files and returns the subdirectories to explore.
func (w *walker) visit(ctx context.Context, f frame) ([]frame, error) {
	entries, err := w.fs.ReadDir(f.dir)
	if err != nil {
		w.report(Skip{Path: f.dir, Reason: ReasonUnreadable, Err: err})

		return nil, nil
	}

	var subdirs []frame

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := w.classify(f.dir, entry.Name(), f.depth)
		out.rel = path.Join(f.rel, entry.Name())

		switch out.action {
		case actionRecord:
			w.emit(out.rel, newRecord(out.path, out.size))
		case actionDescend:
			subdirs = append(subdirs, frame{dir: out.path, rel: out.rel, depth: f.depth + 1})
		case actionSkip:
			w.report(out.skip)
		}
	}

	return subdirs, nil
}

// classify decides what to do with the entry name found in dir at depth.
//
//nolint:cyclop // One branch per entry type.
func (w *walker) classify(dir, name string, depth int) outcome {
	path := filepath.Join(dir, name)

	switch {
	case name == "" || name == "." || name == "..":
		return skipped(path, ReasonHidden, nil)
	case w.ignored(name):
		return skipped(path, ReasonIgnored, nil)
	case !w.policy.Hidden && strings.HasPrefix(name, "."):
		return skipped(path, ReasonHidden, nil)
	}

	info, err := w.fs.Lstat(path)
	if err != nil {
		return skipped(path, ReasonLstat, err)
	}

	mode := info.Mode()

	switch {
	case mode&fs.ModeSymlink != 0:
		return w.classifyLink(path, depth)
	case mode.IsDir():
		return w.descend(path, depth)
	case mode.IsRegular():
		if !w.markVisited(path) {
			return skipped(path, ReasonVisited, nil)
		}

		return outcome{action: actionRecord, path: path, size: info.Size()}
	default:
		return skipped(path, ReasonUnsupported, nil)
	}
}

// classifyLink resolves the symbolic link at path and classifies its target.
func (w *walker) classifyLink(path string, depth int) outcome {
	if !w.policy.FollowSymlinks {
		return skipped(path, ReasonSymlink, nil)
	}

	resolved, err := w.fs.RealPath(path)
	if err != nil {
		return skipped(path, ReasonUnresolved, err)
	}

	target, err := w.fs.Stat(resolved)
	if err != nil {
		return skipped(resolved, ReasonUnresolved, err)
	}

	switch {
	case target.IsDir():
		return w.descend(resolved, depth)
	case target.Mode().IsRegular():
		if !w.markVisited(resolved) {
			return skipped(resolved, ReasonVisited, nil)
		}

		return outcome{action: actionRecord, path: resolved, size: target.Size()}
	default:
		return skipped(resolved, ReasonUnsupported, nil)
	}
}

// descend schedules dir, found at depth, unless listing it would exceed the depth limit
// or it was already entered. Only scheduled directories are marked visited, so a
// directory cut off by depth can still be entered through a shallower link.
func (w *walker) descend(dir string, depth int) outcome {
	if w.policy.exceeds(depth + 1) {
		return skipped(dir, ReasonDepth, nil)
	}

	if !w.markVisited(dir) {
		return skipped(dir, ReasonVisited, nil)
	}

	return outcome{action: actionDescend, path: dir}
}

func (w *walker) ignored(name string) bool {
	_, ok := w.ignore[name]

	return ok
}

// markVisited records path and reports whether it was new.
// It always succeeds when symlinks are not followed.
func (w *walker) markVisited(path string) bool {
	if w.visited == nil {
		return true
	}

	if _, seen := w.visited[path]; seen {
		return false
	}

	w.visited[path] = struct{}{}

	return true
}

func (w *walker) report(s Skip) {
	if w.observe != nil {
		w.observe(s)
	}
}
