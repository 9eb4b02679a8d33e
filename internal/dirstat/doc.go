// Package dirstat provides directory statistics collection and analysis.
//
// It walks directory trees with the sequential traversal engine in package
// scan, filters the resulting file records, aggregates them by extension,
// and identifies the largest files or directories.
package dirstat
