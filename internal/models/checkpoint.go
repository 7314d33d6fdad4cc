package models

import (
	"fmt"
	"time"
)

// CheckpointStatus is the lifecycle state of a checkpoint.
// A checkpoint is created pending and transitions at most once.
type CheckpointStatus string

const (
	CheckpointPending  CheckpointStatus = "pending"
	CheckpointApproved CheckpointStatus = "approved"
	CheckpointRejected CheckpointStatus = "rejected"
)

// Role identifies a stakeholder perspective used for cross-validation.
type Role string

const (
	RoleArchitect      Role = "architect"
	RoleEngineer       Role = "engineer"
	RoleProductManager Role = "product_manager"
	RoleDevOps         Role = "devops"
	RoleQAEngineer     Role = "qa_engineer"
)

// ParseRole validates a role string against the known enumeration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleArchitect, RoleEngineer, RoleProductManager, RoleDevOps, RoleQAEngineer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// ValidationResult is the primary validation verdict from the advisory service.
type ValidationResult struct {
	IsApproved  bool     `json:"is_approved"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// RoleFeedback is per-role cross-validation output.
type RoleFeedback struct {
	Concerns    []string `json:"concerns"`
	Suggestions []string `json:"suggestions"`
}

// Checkpoint tracks the approval gate for one pipeline stage.
type Checkpoint struct {
	ID                     string                `json:"checkpoint_id"`
	Stage                  string                `json:"stage"`
	Status                 CheckpointStatus      `json:"status"`
	ValidationResult       *ValidationResult     `json:"validation_result,omitempty"`
	CrossValidationResults map[Role]RoleFeedback `json:"cross_validation_results,omitempty"`
	Timestamp              time.Time             `json:"timestamp"`
	ApprovedBy             []Role                `json:"approved_by,omitempty"`
	BlockingIssues         []string              `json:"blocking_issues,omitempty"`
}
