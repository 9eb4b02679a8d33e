package dirstat

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// filter decides which scanned files contribute to the statistics.
type filter struct {
	minSize    int64
	extInclude map[string]struct{}
	extExclude map[string]struct{}
	excludes   []string
}

// newFilter builds a filter from the extension list, exclusion globs and minimum size.
// Extensions prefixed with '!' are excluded. Surrounding quotes are stripped.
func newFilter(extensions, excludes []string, minSize int64) (*filter, error) {
	f := &filter{
		minSize:    minSize,
		extInclude: make(map[string]struct{}, len(extensions)),
		extExclude: make(map[string]struct{}, len(extensions)),
		excludes:   make([]string, 0, len(excludes)),
	}

	for _, e := range extensions { //nolint:varnamelen // e is standard for element in range
		e = strings.Trim(e, "'\"")

		if strings.HasPrefix(e, "!") {
			f.extExclude[strings.TrimPrefix(e, "!")] = struct{}{}
		} else if e != "" {
			f.extInclude[e] = struct{}{}
		}
	}

	for _, p := range excludes {
		p = strings.ToLower(p)

		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclusion pattern %q", p)
		}

		f.excludes = append(f.excludes, p)
	}

	return f, nil
}

// excluded returns the first exclusion pattern matching the slash separated,
// root-relative path, or "" when none does. Matching is case-insensitive.
func (f *filter) excluded(relPath string) string {
	relPath = strings.ToLower(relPath)

	for _, p := range f.excludes {
		if matched, err := doublestar.Match(p, relPath); err == nil && matched {
			return p
		}
	}

	return ""
}

// includeExtension checks if path should be included based on extension filters.
func (f *filter) includeExtension(path string) bool {
	// Check excludes first
	for ext := range f.extExclude {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}

	if len(f.extInclude) == 0 {
		return true
	}

	for ext := range f.extInclude {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

// includeSize reports whether size reaches the minimum.
func (f *filter) includeSize(size int64) bool {
	return size >= f.minSize
}
