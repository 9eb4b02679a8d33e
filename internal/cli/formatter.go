package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/idelchi/folder-insight/internal/dirstat"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
	// TimeFormat is the layout of the report timestamp.
	TimeFormat = "2006-01-02 15:04:05"
)

// styles holds the text styles of the table report. Zero styles render plain text.
type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	dim   lipgloss.Style
	err   lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()

		return styles{title: plain, label: plain, dim: plain, err: plain}
	}

	return styles{
		title: lipgloss.NewStyle().Bold(true),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		dim:   lipgloss.NewStyle().Faint(true),
		err:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// PrintJSON outputs statistics in JSON format.
func PrintJSON(stats *dirstat.Stats, writer io.Writer) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintYAML outputs statistics in YAML format.
func PrintYAML(stats *dirstat.Stats, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)

	if err := encoder.Encode(stats); err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}

	return encoder.Close()
}

// PrintPaths outputs the top file or directory paths, one per line, largest last.
func PrintPaths(stats *dirstat.Stats, writer io.Writer) error {
	for _, f := range stats.TopFiles {
		if _, err := fmt.Fprintln(writer, f.Path); err != nil {
			return err
		}
	}

	return nil
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}

	return 100.0 * float64(part) / float64(whole)
}

// PrintTable outputs statistics in human-readable table format.
//
//nolint:forbidigo,funlen // This function prints output to the console.
func PrintTable(stats *dirstat.Stats, writer io.Writer, color bool) error {
	style := newStyles(color)
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)

	fmt.Fprintf(w, "%s\n", style.title.Render(fmt.Sprintf("Folder Insight - %s - %s",
		style.label.Render(stats.Root), stats.StartedAt.Format(TimeFormat))))

	if !stats.DirectoryMode {
		// Extension statistics
		fmt.Fprintln(w, "\n"+style.title.Render("Top extensions:")+"\t\t")
		extList := make([]string, 0, len(stats.ExtStats))
		for ext := range stats.ExtStats {
			extList = append(extList, ext)
		}
		sort.Slice(extList, func(i, j int) bool {
			a, b := stats.ExtStats[extList[i]], stats.ExtStats[extList[j]]
			if a.Size != b.Size {
				return a.Size < b.Size
			}

			return extList[i] > extList[j]
		})

		startIdx := 0
		if len(extList) > stats.TopN {
			startIdx = len(extList) - stats.TopN
		}

		displayList := extList[startIdx:]
		for i, ext := range displayList {
			extStat := stats.ExtStats[ext]
			fmt.Fprintf(w, "  %d) %s:\t%d files, %s (%.1f%%)\n",
				len(displayList)-i, ext, extStat.Count,
				humanize.IBytes(uint64(extStat.Size)), //nolint:gosec // Sizes are never negative
				percent(extStat.Size, stats.TotalBytes))
		}
	}

	// Top files/directories
	if stats.DirectoryMode {
		fmt.Fprintln(w, "\n"+style.title.Render("Top directories:")+"\t\t")
	} else {
		fmt.Fprintln(w, "\n"+style.title.Render("Top files:")+"\t\t")
	}

	for i, f := range stats.TopFiles {
		fmt.Fprintf(w, "  %d) '%s'\t%s (%.1f%%)\n",
			len(stats.TopFiles)-i, f.Path,
			humanize.IBytes(uint64(f.Size)), //nolint:gosec // Sizes are never negative
			percent(f.Size, stats.TotalBytes))
	}

	// Stats summary
	fmt.Fprintln(w, "\n"+style.title.Render("Stats:")+"\t\t")
	if stats.DirectoryMode {
		fmt.Fprintf(w, "%s\t%d\n", style.label.Render("Total directories:"), stats.FileCount)
	} else {
		fmt.Fprintf(w, "%s\t%d\n", style.label.Render("Total files:"), stats.FileCount)
	}
	fmt.Fprintf(w, "%s\t%s (%d bytes)\n", style.label.Render("Total size:"),
		humanize.IBytes(uint64(stats.TotalBytes)), stats.TotalBytes) //nolint:gosec // Sizes are never negative
	fmt.Fprintf(w, "%s\t%d (%d errors)\n", style.label.Render("Skipped:"), stats.SkipCount+stats.ErrorCount, stats.ErrorCount)

	fmt.Fprintf(w, "\n%s\n", style.dim.Render(fmt.Sprintf("Scan finished in %.2fs", stats.Elapsed.Seconds())))

	return w.Flush()
}
