package scan

import "strings"

// Unlimited disables the depth limit when used as Policy.MaxDepth.
const Unlimited = -1

// DefaultIgnore contains the entry names skipped when no ignore list is given.
//
//nolint:gochecknoglobals // Config constant
var DefaultIgnore = []string{"node_modules", ".git"}

// Policy configures a single scan. It is treated as immutable once the scan starts.
type Policy struct {
	// MaxDepth is the deepest directory level whose entries are listed.
	// The root is depth 0. A negative value means no limit.
	MaxDepth int
	// Ignore contains exact entry names to skip at every depth.
	Ignore []string
	// FollowSymlinks resolves symbolic links and descends into their targets.
	FollowSymlinks bool
	// Hidden includes entries whose name starts with a dot.
	Hidden bool
}

// DefaultPolicy returns the policy used when the caller specifies nothing.
func DefaultPolicy() Policy {
	return Policy{
		MaxDepth: Unlimited,
		Ignore:   append([]string(nil), DefaultIgnore...),
	}
}

// ParseIgnore splits a comma separated list of names, trimming blanks and
// dropping empty items.
func ParseIgnore(list string) []string {
	names := make([]string, 0)

	for name := range strings.SplitSeq(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// exceeds reports whether listing a directory at depth is beyond the limit.
func (p Policy) exceeds(depth int) bool {
	return p.MaxDepth >= 0 && depth > p.MaxDepth
}

// ignoreSet builds the lookup set for Ignore.
func (p Policy) ignoreSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Ignore))
	for _, name := range p.Ignore {
		set[name] = struct{}{}
	}

	return set
}
