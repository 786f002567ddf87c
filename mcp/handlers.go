package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/poiesic/medscribe/api"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/pipeline"
)

// Handlers implements the MCP tools.
type Handlers struct {
	svc    Service
	topK   int
	logger *slog.Logger
}

// QueryKnowledgeBase handles the query_knowledge_base tool.
func (h *Handlers) QueryKnowledgeBase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	k := request.GetInt("k", h.topK)

	matches, err := h.svc.QueryKnowledge(ctx, query, k)
	if err != nil {
		return h.toolError("knowledge base query failed", err), nil
	}
	return jsonResult(map[string]any{"results": api.MatchesFromCore(matches)})
}

// ExplainMedicalTerms handles the explain_medical_terms tool.
func (h *Handlers) ExplainMedicalTerms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	terms, ok := stringList(request.GetArguments()["terms"])
	if !ok || len(terms) == 0 {
		return mcp.NewToolResultError("terms argument is required and must be a list of strings"), nil
	}

	explanations, err := h.svc.ExplainTerms(ctx, terms)
	if err != nil {
		return h.toolError("term explanation failed", err), nil
	}
	return jsonResult(map[string]any{"explanations": api.ExplanationsFromCore(explanations)})
}

// ProcessText handles the process_text tool.
func (h *Handlers) ProcessText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	patient := &core.PatientContext{
		Name:      request.GetString("patient_name", ""),
		Age:       request.GetString("patient_age", ""),
		Physician: request.GetString("physician", ""),
	}
	if patient.IsZero() {
		patient = nil
	}

	result, err := h.svc.Process(ctx, pipeline.Input{Text: text, Patient: patient})
	if err != nil {
		return h.toolError("processing failed", err), nil
	}
	report := result.Report
	return jsonResult(map[string]any{
		"report_id": report.ID,
		"entities":  api.EntitiesFromCore(report.Entities),
		"summary":   report.Summary.Text,
		"report":    report.Document(),
		"degraded":  report.Degraded,
	})
}

// GetReport handles the get_report tool.
func (h *Handlers) GetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("report_id")
	if err != nil {
		return mcp.NewToolResultError("report_id argument is required and must be a string"), nil
	}
	report, err := h.svc.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("report %s not found", id)), nil
		}
		return h.toolError("report lookup failed", err), nil
	}
	return mcp.NewToolResultText(report.Document()), nil
}

func (h *Handlers) toolError(msg string, err error) *mcp.CallToolResult {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		h.logger.Warn(msg, "stage", stageErr.Stage, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s at stage %s: %v", msg, stageErr.Stage, stageErr.Err))
	}
	h.logger.Warn(msg, "err", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", msg, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringList accepts a JSON array of strings or one comma separated string.
// Blank entries are dropped.
func stringList(v any) ([]string, bool) {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			raw = append(raw, s)
		}
	default:
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}
