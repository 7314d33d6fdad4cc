// Package mcp exposes the quality gate as MCP tools so AI agents in the
// pipeline can analyze artifacts and drive checkpoints directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/cq/internal/checkpoint"
	"github.com/joescharf/cq/internal/models"
	"github.com/joescharf/cq/internal/reports"
	"github.com/joescharf/cq/internal/review"
)

// Server wraps the cq engine and exposes it as MCP tools.
type Server struct {
	reviewer     *review.Reviewer
	orchestrator *checkpoint.Orchestrator
	store        checkpoint.Store
	reports      *reports.Writer
}

// NewServer creates the MCP server wrapper with all required dependencies.
// The orchestrator may be nil when no advisory service is configured, in
// which case only analysis tools are registered.
func NewServer(r *review.Reviewer, o *checkpoint.Orchestrator, s checkpoint.Store, w *reports.Writer) *Server {
	return &Server{reviewer: r, orchestrator: o, store: s, reports: w}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("cq", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.analyzeCodeTool())
	srv.AddTool(s.listReportsTool())
	if s.store != nil {
		srv.AddTool(s.checkpointStatusTool())
		srv.AddTool(s.listCheckpointsTool())
	}
	if s.orchestrator != nil {
		srv.AddTool(s.createCheckpointTool())
		srv.AddTool(s.validateCheckpointTool())
	}

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// cq_analyze_code
func (s *Server) analyzeCodeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cq_analyze_code",
		mcp.WithDescription("Statically analyze Go source code and return the full review summary: metrics, security/performance findings, overall score, and the approval verdict."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Go source code to analyze")),
		mcp.WithString("filename", mcp.Description("Logical filename for the artifact (default artifact.go)")),
	)
	return tool, s.handleAnalyzeCode
}

func (s *Server) handleAnalyzeCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: code"), nil
	}
	filename := request.GetString("filename", "artifact.go")

	summary, err := s.reviewer.Review(ctx, []string{filename}, []string{code})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// cq_create_checkpoint
func (s *Server) createCheckpointTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cq_create_checkpoint",
		mcp.WithDescription("Create a new pending approval checkpoint for a pipeline stage."),
		mcp.WithString("checkpoint_id", mcp.Required(), mcp.Description("Unique checkpoint id")),
		mcp.WithString("stage", mcp.Required(), mcp.Description("Pipeline stage name (e.g. product_specs, architecture)")),
	)
	return tool, s.handleCreateCheckpoint
}

func (s *Server) handleCreateCheckpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("checkpoint_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: checkpoint_id"), nil
	}
	stage, err := request.RequireString("stage")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: stage"), nil
	}

	cp, err := s.orchestrator.CreateCheckpoint(ctx, id, stage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create checkpoint: %v", err)), nil
	}
	return checkpointResult(cp)
}

// cq_validate_checkpoint
func (s *Server) validateCheckpointTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cq_validate_checkpoint",
		mcp.WithDescription("Validate a pending checkpoint: runs the primary advisory validation plus concurrent cross-validation by the given roles, then transitions the checkpoint to approved or rejected."),
		mcp.WithString("checkpoint_id", mcp.Required(), mcp.Description("Checkpoint id to validate")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Artifact content as a JSON object")),
		mcp.WithString("roles", mcp.Required(), mcp.Description("Comma-separated validation roles (architect, engineer, product_manager, devops, qa_engineer)")),
		mcp.WithString("context", mcp.Description("Optional additional context as a JSON object")),
	)
	return tool, s.handleValidateCheckpoint
}

func (s *Server) handleValidateCheckpoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("checkpoint_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: checkpoint_id"), nil
	}
	contentStr, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}
	rolesStr, err := request.RequireString("roles")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: roles"), nil
	}

	var content map[string]any
	if err := json.Unmarshal([]byte(contentStr), &content); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("content is not a JSON object: %v", err)), nil
	}

	var extra map[string]any
	if ctxStr := request.GetString("context", ""); ctxStr != "" {
		if err := json.Unmarshal([]byte(ctxStr), &extra); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("context is not a JSON object: %v", err)), nil
		}
	}

	var roles []models.Role
	for _, raw := range strings.Split(rolesStr, ",") {
		role, err := models.ParseRole(strings.TrimSpace(raw))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		roles = append(roles, role)
	}

	cp, err := s.orchestrator.ValidateCheckpoint(ctx, id, content, roles, extra)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validation failed: %v", err)), nil
	}
	return checkpointResult(cp)
}

// cq_checkpoint_status
func (s *Server) checkpointStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cq_checkpoint_status",
		mcp.WithDescription("Get the current status of a checkpoint, including validation and cross-validation results once finalized."),
		mcp.WithString("checkpoint_id", mcp.Required(), mcp.Description("Checkpoint id")),
	)
	return tool, s.handleCheckpointStatus
}

func (s *Server) handleCheckpointStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("checkpoint_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: checkpoint_id"), nil
	}

	cp, err := s.store.GetCheckpoint(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("checkpoint lookup failed: %v", err)), nil
	}
	return checkpointResult(cp)
}

// cq_list_checkpoints
func (s *Server) listCheckpointsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cq_list_checkpoints",
		mcp.WithDescription("List tracked checkpoints, newest first, optionally filtered by pipeline stage."),
		mcp.WithString("stage", mcp.Description("Filter by stage name")),
	)
	return tool, s.handleListCheckpoints
}

func (s *Server) handleListCheckpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stage := request.GetString("stage", "")
	checkpoints, err := s.store.ListCheckpoints(ctx, stage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list checkpoints: %v", err)), nil
	}

	data, err := json.Marshal(checkpoints)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal checkpoints: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// cq_list_reports
func (s *Server) listReportsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("cq_list_reports",
		mcp.WithDescription("List persisted validation and review reports, newest first."),
	)
	return tool, s.handleListReports
}

func (s *Server) handleListReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := s.reports.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reports: %v", err)), nil
	}

	type reportOut struct {
		Path         string `json:"path"`
		ArtifactType string `json:"artifact_type"`
		ArtifactID   string `json:"artifact_id"`
		Timestamp    string `json:"timestamp"`
	}
	out := make([]reportOut, len(infos))
	for i, info := range infos {
		out[i] = reportOut{
			Path:         info.Path,
			ArtifactType: info.ArtifactType,
			ArtifactID:   info.ArtifactID,
			Timestamp:    info.Timestamp.Format("2006-01-02 15:04:05"),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal reports: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func checkpointResult(cp *models.Checkpoint) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal checkpoint: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
