package scan

import "fmt"

// Reason classifies why an entry was passed over without being recorded.
type Reason int

// Skip reasons. The first group is driven by the policy, the second by failures.
const (
	// ReasonHidden marks ".", "..", empty names and, unless Policy.Hidden is set, dot files.
	ReasonHidden Reason = iota
	// ReasonIgnored marks names listed in Policy.Ignore.
	ReasonIgnored
	// ReasonDepth marks directories whose children lie beyond Policy.MaxDepth.
	ReasonDepth
	// ReasonSymlink marks symbolic links while following is disabled.
	ReasonSymlink
	// ReasonVisited marks real paths already recorded or entered.
	ReasonVisited
	// ReasonUnsupported marks sockets, devices, pipes and other special files.
	ReasonUnsupported

	// ReasonLstat marks entries that could not be classified.
	ReasonLstat
	// ReasonUnresolved marks broken or inaccessible symbolic links.
	ReasonUnresolved
	// ReasonUnreadable marks directories whose entries could not be listed.
	ReasonUnreadable
)

//nolint:gochecknoglobals // Lookup table
var reasonNames = map[Reason]string{
	ReasonHidden:      "hidden",
	ReasonIgnored:     "ignored",
	ReasonDepth:       "depth exceeded",
	ReasonSymlink:     "symlink not followed",
	ReasonVisited:     "already visited",
	ReasonUnsupported: "unsupported type",
	ReasonLstat:       "stat failed",
	ReasonUnresolved:  "unresolved symlink",
	ReasonUnreadable:  "unreadable directory",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}

	return fmt.Sprintf("reason(%d)", int(r))
}

// IsError reports whether the reason stems from a filesystem failure rather than policy.
func (r Reason) IsError() bool {
	return r >= ReasonLstat
}

// Skip describes one entry the walk passed over.
type Skip struct {
	// Path is the path of the skipped entry.
	Path string
	// Reason is why the entry was skipped.
	Reason Reason
	// Err is the underlying failure for error reasons, nil otherwise.
	Err error
}

func (s Skip) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: %s: %v", s.Path, s.Reason, s.Err)
	}

	return fmt.Sprintf("%s: %s", s.Path, s.Reason)
}
