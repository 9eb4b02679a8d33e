// Command folder-insight scans a directory and prints size statistics.
package main

import (
	"os"

	"github.com/idelchi/folder-insight/internal/cli"
)

// version is set at build time.
//
//nolint:gochecknoglobals // Set by ldflags
var version = "unknown - unofficial & generated by unknown"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
