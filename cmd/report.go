package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/cq/internal/reports"
)

var reportMarkdown bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List and inspect persisted reports",
	Long: `Inspect review and checkpoint reports persisted by 'cq analyze --save'
and checkpoint validation. Reports are timestamped JSON files under the
configured reports directory.`,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted reports, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportListRun()
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show one report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportShowRun(args[0])
	},
}

func init() {
	reportShowCmd.Flags().BoolVar(&reportMarkdown, "markdown", false, "Render the report as Markdown instead of raw JSON")
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	rootCmd.AddCommand(reportCmd)
}

func reportListRun() error {
	w := getReports()
	infos, err := w.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		ui.Info("No reports found in %s", w.Dir())
		return nil
	}

	t := ui.Table([]string{"Type", "Artifact", "Timestamp", "File"})
	for _, info := range infos {
		t.Append([]string{
			info.ArtifactType,
			info.ArtifactID,
			info.Timestamp.Format("2006-01-02 15:04:05"),
			filepath.Base(info.Path),
		})
	}
	t.Render()
	return nil
}

func reportShowRun(name string) error {
	path := name
	if !strings.ContainsRune(name, os.PathSeparator) {
		// Bare filename: resolve against the reports directory.
		path = filepath.Join(getReports().Dir(), name)
	}

	if !reportMarkdown {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, strings.TrimSpace(string(data)))
		return nil
	}

	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, reports.TypeReview+"_"):
		s, err := reports.LoadReviewSummary(path)
		if err != nil {
			return err
		}
		fmt.Fprint(ui.Out, reports.RenderReviewSummary(s))
	case strings.HasPrefix(base, reports.TypeCheckpoint+"_"):
		cp, err := reports.LoadCheckpoint(path)
		if err != nil {
			return err
		}
		fmt.Fprint(ui.Out, reports.RenderCheckpoint(cp))
	default:
		return fmt.Errorf("unrecognized report type: %s", base)
	}
	return nil
}
