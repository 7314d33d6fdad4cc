package checkpoint

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/cq/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent validations.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	if cp.Status == "" {
		cp.Status = models.CheckpointPending
	}
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (id, stage, status, created_at) VALUES (?, ?, ?, ?)`,
		cp.ID, cp.Stage, string(cp.Status), cp.Timestamp,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: %s", ErrDuplicateCheckpoint, cp.ID)
		}
		return fmt.Errorf("create checkpoint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCheckpoint(ctx context.Context, id string) (*models.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, stage, status, validation_result, cross_validation_results, approved_by, blocking_issues, created_at
		FROM checkpoints WHERE id = ?`, id)

	cp, err := scanCheckpoint(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint: %w", err)
	}
	return cp, nil
}

func (s *SQLiteStore) ListCheckpoints(ctx context.Context, stage string) ([]*models.Checkpoint, error) {
	var rows *sql.Rows
	var err error
	if stage != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, stage, status, validation_result, cross_validation_results, approved_by, blocking_issues, created_at
			FROM checkpoints WHERE stage = ? ORDER BY created_at DESC`, stage)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, stage, status, validation_result, cross_validation_results, approved_by, blocking_issues, created_at
			FROM checkpoints ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checkpoints []*models.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

func (s *SQLiteStore) FinalizeCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	validationJSON, err := marshalNullable(cp.ValidationResult)
	if err != nil {
		return fmt.Errorf("encode validation result: %w", err)
	}
	crossJSON, err := marshalNullable(cp.CrossValidationResults)
	if err != nil {
		return fmt.Errorf("encode cross-validation results: %w", err)
	}
	approvedJSON, err := marshalNullable(cp.ApprovedBy)
	if err != nil {
		return fmt.Errorf("encode approved_by: %w", err)
	}
	blockingJSON, err := marshalNullable(cp.BlockingIssues)
	if err != nil {
		return fmt.Errorf("encode blocking issues: %w", err)
	}

	// The WHERE clause enforces the single pending -> terminal transition.
	result, err := s.db.ExecContext(ctx,
		`UPDATE checkpoints
		SET status=?, validation_result=?, cross_validation_results=?, approved_by=?, blocking_issues=?, finalized_at=?
		WHERE id=? AND status=?`,
		string(cp.Status), validationJSON, crossJSON, approvedJSON, blockingJSON,
		time.Now().UTC(), cp.ID, string(models.CheckpointPending),
	)
	if err != nil {
		return fmt.Errorf("finalize checkpoint: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		if _, err := s.GetCheckpoint(ctx, cp.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrFinalized, cp.ID)
	}
	return nil
}

// RecordReport indexes a persisted report file for later listing.
func (s *SQLiteStore) RecordReport(ctx context.Context, id, artifactType, artifactID, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, artifact_type, artifact_id, path, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, artifactType, artifactID, path, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record report: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*models.Checkpoint, error) {
	cp := &models.Checkpoint{}
	var status string
	var validationJSON, crossJSON, approvedJSON, blockingJSON sql.NullString

	err := row.Scan(&cp.ID, &cp.Stage, &status, &validationJSON, &crossJSON, &approvedJSON, &blockingJSON, &cp.Timestamp)
	if err != nil {
		return nil, err
	}
	cp.Status = models.CheckpointStatus(status)

	if err := unmarshalNullable(validationJSON, &cp.ValidationResult); err != nil {
		return nil, fmt.Errorf("decode validation result: %w", err)
	}
	if err := unmarshalNullable(crossJSON, &cp.CrossValidationResults); err != nil {
		return nil, fmt.Errorf("decode cross-validation results: %w", err)
	}
	if err := unmarshalNullable(approvedJSON, &cp.ApprovedBy); err != nil {
		return nil, fmt.Errorf("decode approved_by: %w", err)
	}
	if err := unmarshalNullable(blockingJSON, &cp.BlockingIssues); err != nil {
		return nil, fmt.Errorf("decode blocking issues: %w", err)
	}
	return cp, nil
}

// marshalNullable stores nil/empty values as SQL NULL instead of JSON "null".
func marshalNullable(v any) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	s := string(data)
	if s == "null" || s == "{}" || s == "[]" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func unmarshalNullable(s sql.NullString, v any) error {
	if !s.Valid {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}
