package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/cq/internal/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cq.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateCheckpoint_Defaults(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cp := &models.Checkpoint{ID: "spec-1", Stage: "product_specs"}
	require.NoError(t, s.CreateCheckpoint(ctx, cp))

	got, err := s.GetCheckpoint(ctx, "spec-1")
	require.NoError(t, err)
	assert.Equal(t, "spec-1", got.ID)
	assert.Equal(t, "product_specs", got.Stage)
	assert.Equal(t, models.CheckpointPending, got.Status)
	assert.False(t, got.Timestamp.IsZero())
	assert.Nil(t, got.ValidationResult)
	assert.Nil(t, got.CrossValidationResults)
}

func TestCreateCheckpoint_Duplicate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cp := &models.Checkpoint{ID: "spec-1", Stage: "product_specs"}
	require.NoError(t, s.CreateCheckpoint(ctx, cp))

	err := s.CreateCheckpoint(ctx, &models.Checkpoint{ID: "spec-1", Stage: "architecture"})
	assert.ErrorIs(t, err, ErrDuplicateCheckpoint)
}

func TestGetCheckpoint_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetCheckpoint(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinalizeCheckpoint_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cp := &models.Checkpoint{ID: "arch-1", Stage: "architecture"}
	require.NoError(t, s.CreateCheckpoint(ctx, cp))

	cp.Status = models.CheckpointApproved
	cp.ValidationResult = &models.ValidationResult{
		IsApproved:  true,
		Suggestions: []string{"document the failover path"},
	}
	cp.CrossValidationResults = map[models.Role]models.RoleFeedback{
		models.RoleArchitect: {Suggestions: []string{"split the gateway"}},
	}
	cp.ApprovedBy = []models.Role{models.RoleArchitect}
	require.NoError(t, s.FinalizeCheckpoint(ctx, cp))

	got, err := s.GetCheckpoint(ctx, "arch-1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckpointApproved, got.Status)
	require.NotNil(t, got.ValidationResult)
	assert.True(t, got.ValidationResult.IsApproved)
	assert.Equal(t, []models.Role{models.RoleArchitect}, got.ApprovedBy)
	require.Contains(t, got.CrossValidationResults, models.RoleArchitect)
	assert.Equal(t, []string{"split the gateway"}, got.CrossValidationResults[models.RoleArchitect].Suggestions)
	assert.Empty(t, got.BlockingIssues)
}

func TestFinalizeCheckpoint_OnlyOnce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cp := &models.Checkpoint{ID: "impl-1", Stage: "implementation"}
	require.NoError(t, s.CreateCheckpoint(ctx, cp))

	cp.Status = models.CheckpointRejected
	cp.BlockingIssues = []string{"missing tests"}
	require.NoError(t, s.FinalizeCheckpoint(ctx, cp))

	// Second transition attempt must fail; the record keeps its first verdict.
	cp.Status = models.CheckpointApproved
	err := s.FinalizeCheckpoint(ctx, cp)
	assert.ErrorIs(t, err, ErrFinalized)

	got, err := s.GetCheckpoint(ctx, "impl-1")
	require.NoError(t, err)
	assert.Equal(t, models.CheckpointRejected, got.Status)
	assert.Equal(t, []string{"missing tests"}, got.BlockingIssues)
}

func TestFinalizeCheckpoint_NotFound(t *testing.T) {
	s := testStore(t)

	cp := &models.Checkpoint{ID: "ghost", Status: models.CheckpointApproved}
	err := s.FinalizeCheckpoint(context.Background(), cp)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCheckpoints(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCheckpoint(ctx, &models.Checkpoint{ID: "a", Stage: "product_specs"}))
	require.NoError(t, s.CreateCheckpoint(ctx, &models.Checkpoint{ID: "b", Stage: "architecture"}))
	require.NoError(t, s.CreateCheckpoint(ctx, &models.Checkpoint{ID: "c", Stage: "architecture"}))

	all, err := s.ListCheckpoints(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	arch, err := s.ListCheckpoints(ctx, "architecture")
	require.NoError(t, err)
	require.Len(t, arch, 2)
	for _, cp := range arch {
		assert.Equal(t, "architecture", cp.Stage)
	}
}

func TestRecordReport(t *testing.T) {
	s := testStore(t)

	err := s.RecordReport(context.Background(), "rep-1", "checkpoint", "spec-1", "/tmp/checkpoint_spec-1.json")
	assert.NoError(t, err)
}
