// Package review runs the full quality-assessment pipeline for a set of
// code artifacts: static analysis, optional advisory findings, aggregation,
// and the approval verdict.
package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/joescharf/cq/internal/advisory"
	"github.com/joescharf/cq/internal/analysis"
	"github.com/joescharf/cq/internal/git"
	"github.com/joescharf/cq/internal/models"
	"github.com/joescharf/cq/internal/quality"
)

// Config holds reviewer configuration.
type Config struct {
	// UseAdvisory enables the LLM review pass merged into the summary.
	UseAdvisory bool
}

// DefaultConfig returns the default review config, reading from viper when
// available.
func DefaultConfig() Config {
	return Config{
		UseAdvisory: viper.GetBool("review.use_advisory"),
	}
}

// Reviewer orchestrates one review pass over code artifacts.
type Reviewer struct {
	advisory advisory.Reviewer
	git      git.Client
	cfg      Config
}

// NewReviewer creates a reviewer. The advisory reviewer may be nil, in which
// case only scanner findings feed the summary.
func NewReviewer(adv advisory.Reviewer, gc git.Client, cfg Config) *Reviewer {
	return &Reviewer{advisory: adv, git: gc, cfg: cfg}
}

// ReviewFiles analyzes the given Go source files and emits one summary.
// Unparsable input aborts the whole review; no partial scores are produced.
func (r *Reviewer) ReviewFiles(ctx context.Context, paths []string) (*models.ReviewSummary, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to review")
	}

	var (
		sources []string
		files   []string
	)
	for _, path := range paths {
		if filepath.Ext(path) != ".go" {
			return nil, fmt.Errorf("unsupported artifact type: %s (only Go sources are analyzed)", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		sources = append(sources, string(data))
		files = append(files, path)
	}

	return r.Review(ctx, files, sources)
}

// Review analyzes in-memory sources keyed by filename.
func (r *Reviewer) Review(ctx context.Context, files, sources []string) (*models.ReviewSummary, error) {
	combined, err := analyzeAll(files, sources)
	if err != nil {
		return nil, err
	}

	var external []models.ReviewFinding
	if r.cfg.UseAdvisory && r.advisory != nil {
		external, err = r.advisory.ReviewCode(ctx, strings.Join(sources, "\n\n"), files)
		if err != nil {
			return nil, fmt.Errorf("advisory review: %w", err)
		}
	}

	gc := r.gitContext(files)
	summary := quality.Aggregate(combined, external, files, gc.commit)
	summary.Branch = gc.branch
	summary.DirtyWorkTree = gc.dirty
	return summary, nil
}

// analyzeAll runs the analyzer per file and folds the results into one
// combined metrics set. Any parse failure is fatal for the whole review.
func analyzeAll(files, sources []string) (*analysis.Result, error) {
	if len(files) != len(sources) {
		return nil, fmt.Errorf("mismatched files and sources: %d vs %d", len(files), len(sources))
	}

	combined := &analysis.Result{
		Metrics: &models.CodeMetrics{Complexity: make(map[string]int)},
	}
	depSet := make(map[string]bool)

	for i, file := range files {
		result, err := analysis.Analyze(file, sources[i])
		if err != nil {
			return nil, err
		}

		m := result.Metrics
		combined.Metrics.LinesOfCode += m.LinesOfCode
		combined.Metrics.CommentLines += m.CommentLines
		for symbol, c := range m.Complexity {
			key := symbol
			if len(files) > 1 {
				key = filepath.Base(file) + ":" + symbol
			}
			combined.Metrics.Complexity[key] = c
		}
		for _, dep := range m.Dependencies {
			depSet[dep] = true
		}
		combined.SecurityIssues = append(combined.SecurityIssues, result.SecurityIssues...)
		combined.PerformanceIssues = append(combined.PerformanceIssues, result.PerformanceIssues...)
	}

	for dep := range depSet {
		combined.Metrics.Dependencies = append(combined.Metrics.Dependencies, dep)
	}
	sort.Strings(combined.Metrics.Dependencies)

	combined.Metrics.SecurityScore = analysis.SecurityScore(combined.SecurityIssues)
	combined.Metrics.PerformanceScore = analysis.PerformanceScore(combined.PerformanceIssues)
	combined.Metrics.MaintainabilityIndex = analysis.MaintainabilityIndex(
		combined.Metrics.LinesOfCode,
		combined.Metrics.CommentLines,
		combined.Metrics.TotalComplexity(),
	)

	return combined, nil
}

type repoContext struct {
	commit string
	branch string
	dirty  bool
}

// gitContext resolves repository context for the repo containing the first
// file, best effort. Files outside a work tree yield a zero context.
func (r *Reviewer) gitContext(files []string) repoContext {
	if r.git == nil || len(files) == 0 {
		return repoContext{}
	}
	dir := filepath.Dir(files[0])
	commit, err := r.git.HeadCommit(dir)
	if err != nil {
		return repoContext{}
	}
	gc := repoContext{commit: commit}
	if branch, err := r.git.CurrentBranch(dir); err == nil {
		gc.branch = branch
	}
	if dirty, err := r.git.IsDirty(dir); err == nil {
		gc.dirty = dirty
	}
	return gc
}
