package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/cq/internal/advisory"
	"github.com/joescharf/cq/internal/models"
	"github.com/joescharf/cq/internal/reports"
)

// DefaultRoleTimeout bounds each per-role cross-validation call. The
// timeout is treated identically to a failed call: folded into that role's
// concerns instead of leaving the join pending.
const DefaultRoleTimeout = 2 * time.Minute

// Orchestrator drives a checkpoint's lifecycle: primary validation, the
// concurrent per-role cross-validation fan-out, the join, and the single
// transition to a terminal state.
type Orchestrator struct {
	store       Store
	validator   advisory.Validator
	reports     *reports.Writer
	roleTimeout time.Duration

	// Serializes validations per checkpoint id; concurrent validations of
	// the same id are otherwise undefined.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrchestrator wires the orchestrator with its store, advisory validator,
// and report writer.
func NewOrchestrator(store Store, validator advisory.Validator, writer *reports.Writer) *Orchestrator {
	return &Orchestrator{
		store:       store,
		validator:   validator,
		reports:     writer,
		roleTimeout: DefaultRoleTimeout,
		locks:       make(map[string]*sync.Mutex),
	}
}

// SetRoleTimeout overrides the per-role cross-validation timeout.
func (o *Orchestrator) SetRoleTimeout(d time.Duration) {
	if d > 0 {
		o.roleTimeout = d
	}
}

// CreateCheckpoint registers a new pending checkpoint for a stage.
func (o *Orchestrator) CreateCheckpoint(ctx context.Context, id, stage string) (*models.Checkpoint, error) {
	cp := &models.Checkpoint{
		ID:        id,
		Stage:     stage,
		Status:    models.CheckpointPending,
		Timestamp: time.Now().UTC(),
	}
	if err := o.store.CreateCheckpoint(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// GetCheckpointStatus returns the current record for id.
func (o *Orchestrator) GetCheckpointStatus(ctx context.Context, id string) (*models.Checkpoint, error) {
	return o.store.GetCheckpoint(ctx, id)
}

// ValidateCheckpoint runs the full validation protocol for a pending
// checkpoint: the stage-specific primary validation, then cross-validation
// feedback from every role issued concurrently and joined before any state
// is read. The checkpoint is approved only when the primary validation
// approved and no role raised a concern; otherwise it is rejected with the
// flattened concerns as blocking issues. A failed or timed-out role call
// becomes that role's single concern rather than aborting the join.
func (o *Orchestrator) ValidateCheckpoint(ctx context.Context, id string, content map[string]any, roles []models.Role, extra map[string]any) (*models.Checkpoint, error) {
	lock := o.idLock(id)
	lock.Lock()
	defer lock.Unlock()

	cp, err := o.store.GetCheckpoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp.Status != models.CheckpointPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrFinalized, id, cp.Status)
	}

	primary := o.primaryValidation(ctx, cp.Stage, content, extra)

	// Fan out one cross-validation request per role; the join barrier below
	// guarantees every role has answered (or failed) before the transition.
	feedback := make([]models.RoleFeedback, len(roles))
	var wg sync.WaitGroup
	for i, role := range roles {
		wg.Add(1)
		go func(i int, role models.Role) {
			defer wg.Done()
			feedback[i] = o.crossValidate(ctx, role, content, extra)
		}(i, role)
	}
	wg.Wait()

	cp.ValidationResult = primary
	cp.CrossValidationResults = make(map[models.Role]models.RoleFeedback, len(roles))

	var blocking []string
	for i, role := range roles {
		cp.CrossValidationResults[role] = feedback[i]
		blocking = append(blocking, feedback[i].Concerns...)
	}
	cp.BlockingIssues = blocking

	if primary.IsApproved && len(blocking) == 0 {
		cp.Status = models.CheckpointApproved
		cp.ApprovedBy = roles
	} else {
		cp.Status = models.CheckpointRejected
	}

	if err := o.store.FinalizeCheckpoint(ctx, cp); err != nil {
		return nil, err
	}

	if o.reports != nil {
		path, err := o.reports.SaveCheckpoint(cp)
		if err != nil {
			return nil, fmt.Errorf("save validation report: %w", err)
		}
		if err := o.store.RecordReport(ctx, ulid.Make().String(), reports.TypeCheckpoint, cp.ID, path); err != nil {
			return nil, fmt.Errorf("index validation report: %w", err)
		}
	}

	return cp, nil
}

// primaryValidation delegates to the advisory service. A failed call is
// folded into a non-approved result carrying the error as its issue, so a
// rejection always names at least one concrete problem.
func (o *Orchestrator) primaryValidation(ctx context.Context, stage string, content, extra map[string]any) *models.ValidationResult {
	result, err := o.validator.Validate(ctx, stage, content, extra)
	if err != nil {
		return &models.ValidationResult{
			IsApproved:  false,
			Issues:      []string{fmt.Sprintf("validation error: %v", err)},
			Suggestions: []string{"Review the artifact format and retry the validation"},
		}
	}
	if !result.IsApproved && len(result.Issues) == 0 {
		result.Issues = []string{"primary validation did not approve the artifact"}
	}
	return result
}

// crossValidate requests one role's feedback under the bounded timeout.
// Failure and timeout both degrade to a blocking concern for that role,
// preserving the other roles' progress.
func (o *Orchestrator) crossValidate(ctx context.Context, role models.Role, content, extra map[string]any) models.RoleFeedback {
	roleCtx, cancel := context.WithTimeout(ctx, o.roleTimeout)
	defer cancel()

	feedback, err := o.validator.CrossValidate(roleCtx, role, content, extra)
	if err != nil {
		return models.RoleFeedback{
			Concerns:    []string{fmt.Sprintf("cross-validation error (%s): %v", role, err)},
			Suggestions: []string{"Retry the validation for this role"},
		}
	}
	return *feedback
}

func (o *Orchestrator) idLock(id string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[id] = lock
	}
	return lock
}
