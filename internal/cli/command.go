package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/folder-insight/internal/config"
	"github.com/idelchi/folder-insight/internal/dirstat"
	"github.com/idelchi/folder-insight/internal/integration"
	"github.com/idelchi/folder-insight/internal/scan"
	"github.com/idelchi/folder-insight/internal/tree"
)

// Name is the name of the binary.
const Name = "folder-insight"

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

//nolint:gochecknoglobals // Config constant
var allowedOutputs = []string{"table", "json", "yaml", "paths"}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command().Execute()
}

// Command builds the root command.
//
//nolint:funlen // Flag definitions
func (c CLI) Command() *cobra.Command {
	var (
		options    dirstat.Options
		minSizeStr string
	)

	cmd := &cobra.Command{
		Use:   Name + " [flags] [path]",
		Short: "Scan a directory and print size stats, breakdowns, and largest files",
		Long: heredoc.Doc(`
			folder-insight scans a directory tree and reports its total size, a breakdown
			by file extension and the largest files.

			Positional Arguments:
			  path                   Directory to analyze. Overrides --path when given.

			Modes:
			  Default mode analyzes individual files and reports statistics by extension.
			  Use --dirs to aggregate by directory instead of individual files.
			  Use --tree to print a tree view below the report.

			Configuration:
			  Flag defaults can be set in .folder-insight.yaml in the working directory,
			  or in the file named by --config or $FOLDER_INSIGHT_CONFIG. A .env file in
			  the working directory is loaded first. Flags given on the command line win.

			The '-I' flag is available if using the integration script for shell usage.
			It will then run an interactive mode where the output of the tool is piped to 'fzf'.
		`),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if options.Version {
				fmt.Fprintln(cmd.OutOrStdout(), c.version)

				return nil
			}

			if options.Integration {
				rendered, err := integration.Render(Name)
				if err != nil {
					return fmt.Errorf("rendering integration script: %w", err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), rendered)

				return nil
			}

			cfg, err := config.Resolve(options.Config)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			applyConfig(cmd.Flags(), cfg, &options, &minSizeStr)

			if len(args) > 0 {
				options.Path = args[0]
			}

			if err := finalize(cmd.Flags(), &options, minSizeStr); err != nil {
				return err
			}

			return logic(cmd.Context(), options, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false

	flags.StringVarP(&options.Path, "path", "p", ".", "Directory to scan")
	flags.IntVarP(&options.TopN, "top", "t", 10, "Number of top files to display")
	flags.BoolVar(&options.Tree, "tree", false, "Print a simple tree view")
	flags.IntVar(&options.TreeDepth, "tree-depth", tree.DefaultDepth, "Levels shown in the tree view (0=root only, defaults to --max-depth when set)")
	flags.IntVar(&options.MaxDepth, "max-depth", scan.Unlimited, "Limit recursion depth (root=0, negative=unlimited)")
	flags.StringSliceVar(&options.Ignore, "ignore", scan.DefaultIgnore, "Comma-separated names to ignore at any depth")
	flags.BoolVar(&options.FollowSymlinks, "follow-symlinks", false, "Follow symlinks")
	flags.BoolVar(&options.Hidden, "hidden", false, "Include dot files and directories")
	flags.StringSliceVarP(
		&options.Extensions,
		"ext",
		"x",
		[]string{},
		"File suffixes to include (e.g., .go,.md). Use '!' prefix to exclude (e.g., !.log,!_test.go)",
	)
	flags.StringSliceVarP(&options.Excludes, "exclude", "e", []string{}, "Glob patterns of root-relative paths to exclude (e.g., 'build/**')")
	flags.StringVar(&minSizeStr, "min-size", "0KB", "Minimum file size (e.g., 1KB)")
	flags.BoolVar(&options.DirsMode, "dirs", false, "Analyze directories instead of individual files")
	flags.StringVarP(&options.Output, "output", "o", "table", "Output format: "+strings.Join(allowedOutputs, ", "))
	flags.BoolVar(&options.Debug, "debug", false, "Enable debug output")
	flags.StringVar(&options.Config, "config", "", "Configuration file")
	flags.BoolVarP(&options.Integration, "init", "i", false, "Output init script for shell usage")
	flags.BoolVarP(&options.Version, "version", "v", false, "Show version and exit")

	return cmd
}

// applyConfig copies configuration values into options for flags not set on the command line.
//
//nolint:cyclop // One branch per setting
func applyConfig(flags *pflag.FlagSet, cfg *config.Config, options *dirstat.Options, minSize *string) {
	if cfg == nil {
		return
	}

	unset := func(name string) bool { return !flags.Changed(name) }

	if cfg.Top != nil && unset("top") {
		options.TopN = *cfg.Top
	}

	if cfg.MaxDepth != nil && unset("max-depth") {
		options.MaxDepth = *cfg.MaxDepth
	}

	if cfg.TreeDepth != nil && unset("tree-depth") {
		options.TreeDepth = *cfg.TreeDepth
	}

	if cfg.Ignore != nil && unset("ignore") {
		options.Ignore = cfg.Ignore
	}

	if cfg.FollowSymlinks != nil && unset("follow-symlinks") {
		options.FollowSymlinks = *cfg.FollowSymlinks
	}

	if cfg.Hidden != nil && unset("hidden") {
		options.Hidden = *cfg.Hidden
	}

	if cfg.Extensions != nil && unset("ext") {
		options.Extensions = cfg.Extensions
	}

	if cfg.Excludes != nil && unset("exclude") {
		options.Excludes = cfg.Excludes
	}

	if cfg.MinSize != "" && unset("min-size") {
		*minSize = cfg.MinSize
	}

	if cfg.Output != "" && unset("output") {
		options.Output = cfg.Output
	}
}

// finalize validates options and derives the values not set directly by flags.
func finalize(flags *pflag.FlagSet, options *dirstat.Options, minSizeStr string) error {
	options.Output = strings.ToLower(options.Output)

	if !slices.Contains(allowedOutputs, options.Output) {
		return fmt.Errorf("invalid output format %q: must be one of %v", options.Output, allowedOutputs)
	}

	if options.TopN <= 0 {
		return fmt.Errorf("top must be positive, got %d", options.TopN)
	}

	if options.Path == "" {
		options.Path = "."
	}

	options.Ignore = scan.ParseIgnore(strings.Join(options.Ignore, ","))

	if !flags.Changed("tree-depth") && options.TreeDepth == tree.DefaultDepth && options.MaxDepth >= 0 {
		options.TreeDepth = options.MaxDepth
	}

	// Parse minSize string to bytes
	if minSizeStr != "" {
		size, err := humanize.ParseBytes(minSizeStr)
		if err != nil {
			return fmt.Errorf("invalid min-size: %w", err)
		}

		options.MinSize = int64(size) //nolint:gosec // Size conversion from humanize is safe
	}

	return nil
}

// PrintError writes err to w in the format used for fatal errors.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", newStyles(colorEnabled(w)).err.Render("Error:"), err)
}
