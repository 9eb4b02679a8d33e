// Package tree renders a directory tree view.
//
// The tree is collected with fastwalk, whose callbacks run on several
// goroutines, and rendered afterwards in a fixed order: directories first,
// then names in lexical order.
package tree

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/charmbracelet/lipgloss"
	"github.com/valyala/bytebufferpool"
)

// DefaultDepth is the number of levels shown when no depth is requested.
const DefaultDepth = 3

const (
	branch     = "├── "
	lastBranch = "└── "
	pipe       = "│   "
	blank      = "    "
)

// Options configures the tree view.
type Options struct {
	// MaxDepth is the number of levels shown below the root (< 0 = DefaultDepth, 0 = root only).
	MaxDepth int
	// Ignore contains entry names left out of the tree, with everything below them.
	Ignore []string
	// Hidden includes entries whose name starts with a dot.
	Hidden bool
	// Color renders directory names in bold.
	Color bool
}

// entry is one listed child of a directory.
type entry struct {
	name string
	dir  bool
}

// collector gathers the children of each directory from concurrent fastwalk callbacks.
type collector struct {
	mu       sync.Mutex
	children map[string][]entry
}

func (c *collector) add(parent string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.children[parent] = append(c.children[parent], e)
}

// calculateDepth returns the depth of a path relative to the root.
func calculateDepth(path, root string) int {
	relPath := strings.TrimPrefix(path, root)

	relPath = strings.TrimPrefix(relPath, string(filepath.Separator))
	if relPath == "" {
		return 0
	}

	return strings.Count(relPath, string(filepath.Separator)) + 1
}

// Render writes the tree below root to w. The first line is the absolute root path.
// Directories that cannot be read are shown without children.
func Render(w io.Writer, root string, opt Options) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if info, err := os.Stat(root); err != nil {
		return fmt.Errorf("accessing path %q: %w", root, err)
	} else if !info.IsDir() {
		return fmt.Errorf("path %q is not a directory", root)
	}

	if opt.MaxDepth < 0 {
		opt.MaxDepth = DefaultDepth
	}

	ignore := make(map[string]struct{}, len(opt.Ignore))
	for _, name := range opt.Ignore {
		ignore[name] = struct{}{}
	}

	c := &collector{children: make(map[string][]entry)}

	conf := &fastwalk.Config{
		Follow: false,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == root {
			return nil // Unreadable entries render nothing below them
		}

		name := d.Name()
		_, ignored := ignore[name]

		if ignored || (!opt.Hidden && strings.HasPrefix(name, ".")) {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		depth := calculateDepth(path, root)
		if depth > opt.MaxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		c.add(filepath.Dir(path), entry{name: name, dir: d.IsDir()})

		if d.IsDir() && depth >= opt.MaxDepth {
			return filepath.SkipDir
		}

		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(root + "\n")

	r := renderer{children: c.children, buf: buf}
	if opt.Color {
		style := lipgloss.NewStyle().Bold(true)
		r.dirStyle = &style
	}

	r.render(root, "")

	_, err = buf.WriteTo(w)

	return err
}

type renderer struct {
	children map[string][]entry
	buf      *bytebufferpool.ByteBuffer
	dirStyle *lipgloss.Style
}

func (r renderer) label(e entry) string {
	if e.dir && r.dirStyle != nil {
		return r.dirStyle.Render(e.name)
	}

	return e.name
}

func (r renderer) render(dir, prefix string) {
	entries := r.children[dir]

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].dir != entries[j].dir {
			return entries[i].dir
		}

		return entries[i].name < entries[j].name
	})

	for i, e := range entries {
		connector, next := branch, pipe
		if i == len(entries)-1 {
			connector, next = lastBranch, blank
		}

		r.buf.WriteString(prefix + connector + r.label(e) + "\n")

		if e.dir {
			r.render(filepath.Join(dir, e.name), prefix+next)
		}
	}
}
