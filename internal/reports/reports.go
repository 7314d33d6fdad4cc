// Package reports persists review summaries and checkpoint validations as
// write-once, timestamped JSON artifacts under a reports directory.
package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/cq/internal/models"
)

// Artifact types used in report filenames.
const (
	TypeReview     = "review"
	TypeCheckpoint = "checkpoint"
)

const timestampLayout = "20060102_150405"

// Writer persists reports under a single directory. Filenames embed the
// artifact type, id, and a second-resolution timestamp; files are never
// overwritten in place by the same run (append-by-filename).
type Writer struct {
	dir string
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the reports directory.
func (w *Writer) Dir() string { return w.dir }

// SaveReviewSummary persists a review summary and returns the file path.
func (w *Writer) SaveReviewSummary(artifactID string, summary *models.ReviewSummary) (string, error) {
	return w.save(TypeReview, artifactID, summary.Timestamp, summary)
}

// SaveCheckpoint persists a validated checkpoint and returns the file path.
func (w *Writer) SaveCheckpoint(cp *models.Checkpoint) (string, error) {
	return w.save(TypeCheckpoint, cp.ID, cp.Timestamp, cp)
}

func (w *Writer) save(artifactType, artifactID string, ts time.Time, v any) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}

	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	name := fmt.Sprintf("%s_%s_%s.json", artifactType, sanitizeID(artifactID), ts.Format(timestampLayout))
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// LoadReviewSummary reads a persisted review summary back.
func LoadReviewSummary(path string) (*models.ReviewSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var summary models.ReviewSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &summary, nil
}

// LoadCheckpoint reads a persisted checkpoint report back.
func LoadCheckpoint(path string) (*models.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &cp, nil
}

// Info describes one persisted report file.
type Info struct {
	Path         string
	ArtifactType string
	ArtifactID   string
	Timestamp    time.Time
}

// List enumerates persisted reports, newest first.
func (w *Writer) List() ([]Info, error) {
	entries, err := os.ReadDir(w.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, ok := parseReportName(entry.Name())
		if !ok {
			continue
		}
		info.Path = filepath.Join(w.dir, entry.Name())
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
	return infos, nil
}

// parseReportName splits "{type}_{id}_{yyyymmdd_HHMMSS}.json". The id may
// itself contain underscores, so the timestamp is taken from the end.
func parseReportName(name string) (Info, bool) {
	base := strings.TrimSuffix(name, ".json")
	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return Info{}, false
	}

	tsStr := parts[len(parts)-2] + "_" + parts[len(parts)-1]
	ts, err := time.Parse(timestampLayout, tsStr)
	if err != nil {
		return Info{}, false
	}

	return Info{
		ArtifactType: parts[0],
		ArtifactID:   strings.Join(parts[1:len(parts)-2], "_"),
		Timestamp:    ts,
	}, true
}

// sanitizeID keeps report filenames filesystem-safe.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '-'
	}, id)
}
