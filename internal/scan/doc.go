// Package scan implements the directory traversal engine.
//
// It walks a directory tree sequentially, depth first, and produces a flat
// list of FileRecord values under a Policy that controls the maximum depth,
// the names to ignore, whether hidden entries are included and whether
// symbolic links are followed. Symbolic link cycles are broken with a
// per-scan set of visited real paths.
//
// Failures below the root (unreadable directories, entries vanishing
// mid-scan, broken links) never abort a scan. They are reported to an
// optional observer as Skip values and the walk continues. Only an
// unusable root is returned as an error.
package scan
