package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/cq/internal/checkpoint"
	"github.com/joescharf/cq/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents query cq natively for code analysis, checkpoint
creation and validation, and persisted reports. Configure in your agent
with:

  {
    "mcpServers": {
      "cq": { "command": "cq", "args": ["serve"] }
    }
  }

Available tools: cq_analyze_code, cq_create_checkpoint,
cq_validate_checkpoint, cq_checkpoint_status, cq_list_checkpoints,
cq_list_reports`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		// The advisory client is optional: without an API key the server
		// still exposes analysis and checkpoint bookkeeping tools.
		var orch *checkpoint.Orchestrator
		if o, err := getOrchestrator(); err == nil {
			orch = o
		} else {
			ui.Warning("Checkpoint validation disabled: %v", err)
		}

		srv := mcp.NewServer(getReviewer(), orch, s, getReports())
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
