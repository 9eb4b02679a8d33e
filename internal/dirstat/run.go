package dirstat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/idelchi/folder-insight/internal/scan"
)

// pathMapper turns absolute record paths into display paths: relative to the working
// directory when the target lies inside it, absolute otherwise.
type pathMapper struct {
	cwd        string
	outsideCwd bool
}

func newPathMapper(root string) (pathMapper, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return pathMapper{}, fmt.Errorf("getting current directory: %w", err)
	}

	relToTarget, err := filepath.Rel(cwd, root)

	return pathMapper{
		cwd:        cwd,
		outsideCwd: err != nil || strings.HasPrefix(relToTarget, ".."),
	}, nil
}

// display returns the path shown to the user for path.
func (p pathMapper) display(path string) string {
	if p.outsideCwd {
		return path
	}

	rel, err := filepath.Rel(p.cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}

	return rel
}

// Run performs directory analysis and returns aggregated statistics.
// It walks the directory tree at opt.Path with the traversal engine, filters
// files based on opt.Extensions, opt.Excludes and opt.MinSize, and collects
// statistics about file sizes and extensions.
//
// If opt.DirsMode is true, it aggregates statistics by directory instead of
// individual files.
//
// The walk can be cancelled via ctx. Progress updates are sent to progressHook
// if provided. Debug output goes to the zerolog logger carried by ctx.
func Run(ctx context.Context, opt Options, progressHook func(int64, int64)) (*Stats, error) {
	log := zerolog.Ctx(ctx)

	if opt.Path == "" {
		opt.Path = "."
	}

	// filepath.Clean handles both separators and converts to native format
	opt.Path = filepath.Clean(opt.Path)

	rules, err := newFilter(opt.Extensions, opt.Excludes, opt.MinSize)
	if err != nil {
		return nil, err
	}

	if opt.TopN <= 0 {
		opt.TopN = DefaultTopN
	}

	collector := newCollector(opt.TopN, opt.DirsMode)
	policy := opt.Policy()

	scanner := scan.New(policy, scan.WithObserver(func(s scan.Skip) {
		collector.addSkip(s.Reason.IsError())

		event := log.Debug()
		if s.Reason.IsError() {
			event = event.Err(s.Err)
		}

		event.Str("path", s.Path).Stringer("reason", s.Reason).Msg("skipped")
	}))

	root, err := scanner.Resolve(opt.Path)
	if err != nil {
		return nil, err
	}

	paths, err := newPathMapper(root)
	if err != nil {
		return nil, err
	}

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(ctx, collector, progressHook, opt.ProgressInterval)

	log.Debug().
		Str("root", root).
		Int("max_depth", policy.MaxDepth).
		Strs("ignore", policy.Ignore).
		Bool("follow_symlinks", policy.FollowSymlinks).
		Bool("hidden", policy.Hidden).
		Strs("extensions", opt.Extensions).
		Strs("excludes", opt.Excludes).
		Int64("min_size", opt.MinSize).
		Msg("starting scan")

	start := time.Now()

	// Exclusions match the location below root, so files reached through a
	// followed link are matched by the link's path rather than their target's.
	walkErr := scanner.WalkRelative(ctx, root, func(rel string, r scan.FileRecord) {
		if pattern := rules.excluded(rel); pattern != "" {
			log.Debug().Str("path", r.Path).Str("pattern", pattern).Msg("excluding file")

			return
		}

		if !rules.includeSize(r.Size) {
			return
		}

		if !rules.includeExtension(r.Path) {
			log.Debug().Str("path", r.Path).Msg("excluding file (extension filter)")

			return
		}

		if opt.DirsMode {
			collector.add(paths.display(filepath.Dir(r.Path)), r.Size, r.Extension)
		} else {
			collector.add(paths.display(r.Path), r.Size, r.Extension)
		}
	})
	if walkErr != nil {
		return nil, walkErr
	}

	stats := collector.finalize()

	stats.ScanID = uuid.NewString()
	stats.Root = root
	stats.StartedAt = start
	stats.Elapsed = time.Since(start)

	log.Debug().
		Str("scan_id", stats.ScanID).
		Int64("files", stats.FileCount).
		Int64("bytes", stats.TotalBytes).
		Int64("errors", stats.ErrorCount).
		Dur("elapsed", stats.Elapsed).
		Msg("scan finished")

	return stats, nil
}
