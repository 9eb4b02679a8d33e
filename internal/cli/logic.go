package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/idelchi/folder-insight/internal/dirstat"
	"github.com/idelchi/folder-insight/internal/logging"
	"github.com/idelchi/folder-insight/internal/tree"
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorEnabled reports whether styled output should be written to w.
func colorEnabled(w io.Writer) bool {
	_, noColor := os.LookupEnv("NO_COLOR")

	return !noColor && isTerminal(w)
}

// newSpinner creates the progress indicator shown on stderr while scanning.
func newSpinner(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Scanning…"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func logic(ctx context.Context, options dirstat.Options, stdout, stderr io.Writer) error {
	logger := logging.New(stderr, options.Debug)
	ctx = logger.WithContext(ctx)

	enableProgress := options.Output == "table" &&
		!options.Debug &&
		isTerminal(stderr)

	var (
		progressHook func(files, bytes int64)
		spinner      *progressbar.ProgressBar
	)

	if enableProgress {
		spinner = newSpinner(stderr)

		progressHook = func(files, bytes int64) {
			spinner.Describe(fmt.Sprintf("Scanning… %d files", files))
			_ = spinner.Set64(bytes)
		}
	}

	stats, err := dirstat.Run(ctx, options, progressHook)

	// Clear the status line
	if spinner != nil {
		_ = spinner.Finish()
	}

	if err != nil {
		return err
	}

	switch options.Output {
	case "json":
		return PrintJSON(stats, stdout)
	case "yaml":
		return PrintYAML(stats, stdout)
	case "paths":
		return PrintPaths(stats, stdout)
	case "table":
		color := colorEnabled(stdout)

		if err := PrintTable(stats, stdout, color); err != nil {
			return err
		}

		if options.Tree {
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, newStyles(color).title.Render("Tree View"))

			if err := tree.Render(stdout, options.Path, tree.Options{
				MaxDepth: options.TreeDepth,
				Ignore:   options.Ignore,
				Hidden:   options.Hidden,
				Color:    color,
			}); err != nil {
				return fmt.Errorf("rendering tree: %w", err)
			}
		}

		return nil
	default:
		return fmt.Errorf("unknown output format: %s", options.Output)
	}
}
