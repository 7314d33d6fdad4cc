package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/cq/internal/models"
	"github.com/joescharf/cq/internal/output"
	"github.com/joescharf/cq/internal/reports"
)

var (
	analyzeJSON     bool
	analyzeMarkdown bool
	analyzeSave     bool
	analyzeArtifact string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Analyze Go source files and render a review verdict",
	Long: `Analyze one or more Go source files: syntax metrics, security and
performance scans, maintainability scoring, and an approval verdict.

Exit code is 0 for approved, 1 for needs_revision or rejected, so the
command can gate CI pipelines directly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeRun(cmd.Context(), args)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit the raw review summary as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeMarkdown, "markdown", false, "Emit the review summary as Markdown")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Persist the summary to the reports directory")
	analyzeCmd.Flags().StringVar(&analyzeArtifact, "artifact", "code", "Artifact identifier used in saved report names")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeRun(ctx context.Context, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r := getReviewer()
	summary, err := r.ReviewFiles(ctx, paths)
	if err != nil {
		return err
	}

	if analyzeSave {
		w := getReports()
		if dryRun {
			ui.DryRunMsg("Would save review report under %s", w.Dir())
		} else {
			path, err := w.SaveReviewSummary(analyzeArtifact, summary)
			if err != nil {
				return fmt.Errorf("save report: %w", err)
			}
			ui.Success("Report saved: %s", path)
		}
	}

	switch {
	case analyzeJSON:
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, string(data))
	case analyzeMarkdown:
		fmt.Fprint(ui.Out, reports.RenderReviewSummary(summary))
	default:
		printSummary(summary)
	}

	if summary.ApprovalStatus != models.StatusApproved {
		return fmt.Errorf("review verdict: %s", summary.ApprovalStatus)
	}
	return nil
}

func printSummary(s *models.ReviewSummary) {
	fmt.Fprintf(ui.Out, "Status: %s\n", output.StatusColor(string(s.ApprovalStatus)))
	fmt.Fprintf(ui.Out, "Overall score: %s\n", output.ScoreColor(s.OverallScore))
	fmt.Fprintln(ui.Out)

	if m := s.Metrics; m != nil {
		t := ui.Table([]string{"Metric", "Value"})
		t.Append([]string{"Lines of code", fmt.Sprintf("%d", m.LinesOfCode)})
		t.Append([]string{"Comment lines", fmt.Sprintf("%d", m.CommentLines)})
		t.Append([]string{"Total complexity", fmt.Sprintf("%d", m.TotalComplexity())})
		t.Append([]string{"Security", fmt.Sprintf("%.1f", m.SecurityScore)})
		t.Append([]string{"Performance", fmt.Sprintf("%.1f", m.PerformanceScore)})
		t.Append([]string{"Maintainability", fmt.Sprintf("%.1f", m.MaintainabilityIndex)})
		t.Render()
		fmt.Fprintln(ui.Out)
	}

	if len(s.SecurityIssues) > 0 {
		t := ui.Table([]string{"Severity", "Category", "Location", "Description"})
		for _, issue := range s.SecurityIssues {
			t.Append([]string{
				output.SeverityColor(string(issue.Severity)),
				issue.Category,
				issue.Location,
				issue.Description,
			})
		}
		t.Render()
		fmt.Fprintln(ui.Out)
	}

	if len(s.PerformanceMetrics) > 0 {
		t := ui.Table([]string{"Status", "Category", "Location", "Recommendation"})
		for _, pm := range s.PerformanceMetrics {
			t.Append([]string{
				output.SeverityColor(string(pm.Status)),
				pm.Category,
				pm.Location,
				pm.Recommendation,
			})
		}
		t.Render()
		fmt.Fprintln(ui.Out)
	}

	if len(s.Recommendations) > 0 {
		fmt.Fprintln(ui.Out, "Recommendations:")
		for _, rec := range s.Recommendations {
			fmt.Fprintf(ui.Out, "  - %s\n", rec)
		}
	}
}
