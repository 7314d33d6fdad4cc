package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/cq/internal/checkpoint"
	"github.com/joescharf/cq/internal/models"
	"github.com/joescharf/cq/internal/output"
	"github.com/joescharf/cq/internal/reports"
)

var (
	checkpointRoles   string
	checkpointContent string
	checkpointStage   string
	checkpointJSON    bool
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Create, validate, and inspect stage checkpoints",
	Long: `Manage development checkpoints. A checkpoint is created pending for a
pipeline stage, then validated exactly once: primary validation plus
cross-validation from the requested stakeholder roles decide whether it
ends up approved or rejected.`,
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Create a pending checkpoint for a stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkpointCreateRun(cmd, args[0])
	},
}

var checkpointValidateCmd = &cobra.Command{
	Use:   "validate <id>",
	Short: "Run primary and cross-role validation on a checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkpointValidateRun(cmd, args[0])
	},
}

var checkpointStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show a checkpoint's current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkpointStatusRun(cmd, args[0])
	},
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkpointListRun(cmd)
	},
}

func init() {
	checkpointCreateCmd.Flags().StringVar(&checkpointStage, "stage", "", "Pipeline stage the checkpoint gates (required)")
	_ = checkpointCreateCmd.MarkFlagRequired("stage")

	checkpointValidateCmd.Flags().StringVar(&checkpointRoles, "roles", "", "Comma-separated cross-validation roles (architect,engineer,product_manager,devops,qa_engineer)")
	checkpointValidateCmd.Flags().StringVar(&checkpointContent, "content", "", "Path to a JSON file with the artifact content ('-' for stdin)")

	checkpointStatusCmd.Flags().BoolVar(&checkpointJSON, "json", false, "Emit checkpoint state as JSON")
	checkpointListCmd.Flags().StringVar(&checkpointStage, "stage", "", "Filter by stage")

	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointValidateCmd)
	checkpointCmd.AddCommand(checkpointStatusCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	rootCmd.AddCommand(checkpointCmd)
}

func checkpointCreateRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create checkpoint %s for stage %s", id, checkpointStage)
		return nil
	}

	cp := models.Checkpoint{
		ID:     id,
		Stage:  checkpointStage,
		Status: models.CheckpointPending,
	}
	if err := s.CreateCheckpoint(cmd.Context(), &cp); err != nil {
		if errors.Is(err, checkpoint.ErrDuplicateCheckpoint) {
			return fmt.Errorf("checkpoint %s already exists", id)
		}
		return err
	}

	ui.Success("Checkpoint %s created (stage: %s)", id, checkpointStage)
	return nil
}

func checkpointValidateRun(cmd *cobra.Command, id string) error {
	o, err := getOrchestrator()
	if err != nil {
		return err
	}

	roles, err := parseRoles(checkpointRoles)
	if err != nil {
		return err
	}

	content, err := readContent(checkpointContent)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would validate checkpoint %s with %d cross-validation role(s)", id, len(roles))
		return nil
	}

	cp, err := o.ValidateCheckpoint(cmd.Context(), id, content, roles, nil)
	if err != nil {
		switch {
		case errors.Is(err, checkpoint.ErrNotFound):
			return fmt.Errorf("checkpoint %s not found", id)
		case errors.Is(err, checkpoint.ErrFinalized):
			return fmt.Errorf("checkpoint %s has already been validated", id)
		}
		return err
	}

	printCheckpoint(cp)
	if cp.Status != models.CheckpointApproved {
		return fmt.Errorf("checkpoint %s: %s", id, cp.Status)
	}
	return nil
}

func checkpointStatusRun(cmd *cobra.Command, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	cp, err := s.GetCheckpoint(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return fmt.Errorf("checkpoint %s not found", id)
		}
		return err
	}

	if checkpointJSON {
		data, err := json.MarshalIndent(cp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, string(data))
		return nil
	}

	printCheckpoint(cp)
	return nil
}

func checkpointListRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	cps, err := s.ListCheckpoints(cmd.Context(), checkpointStage)
	if err != nil {
		return err
	}
	if len(cps) == 0 {
		ui.Info("No checkpoints found.")
		return nil
	}

	t := ui.Table([]string{"ID", "Stage", "Status", "Created"})
	for _, cp := range cps {
		t.Append([]string{
			cp.ID,
			cp.Stage,
			output.StatusColor(string(cp.Status)),
			cp.Timestamp.Format("2006-01-02 15:04"),
		})
	}
	t.Render()
	return nil
}

func printCheckpoint(cp *models.Checkpoint) {
	fmt.Fprint(ui.Out, reports.RenderCheckpoint(cp))
}

// parseRoles splits a comma-separated role list and validates each entry.
func parseRoles(s string) ([]models.Role, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var roles []models.Role
	for _, part := range strings.Split(s, ",") {
		r, err := models.ParseRole(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// readContent loads the artifact content JSON from a file or stdin.
func readContent(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	var content map[string]any
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("parse content JSON: %w", err)
	}
	return content, nil
}
