// Package mcp exposes medscribe operations as MCP tools over stdio.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/pipeline"
)

// ServerName identifies the server to MCP clients.
const ServerName = "medscribe"

// Service is the subset of medscribe operations offered as tools.
type Service interface {
	QueryKnowledge(ctx context.Context, query string, k int) ([]core.RetrievalMatch, error)
	ExplainTerms(ctx context.Context, terms []string) ([]core.TermExplanation, error)
	Process(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	GetReport(ctx context.Context, id string) (*core.Report, error)
}

// NewServer creates an MCP server with every medscribe tool registered.
func NewServer(svc Service, version string, logger *slog.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, version, mcpserver.WithToolCapabilities(false))
	RegisterTools(server, svc, logger)
	return server
}

// RegisterTools registers the medscribe tools with server.
func RegisterTools(server *mcpserver.MCPServer, svc Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	handlers := &Handlers{
		svc:    svc,
		topK:   pipeline.DefaultTopK,
		logger: logger.With("component", "mcp"),
	}

	server.AddTool(mcp.Tool{
		Name:        "query_knowledge_base",
		Description: "Search the medical knowledge base for the snippets most similar to a query, best match first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Free text to search for",
				},
				"k": map[string]any{
					"type":        "number",
					"description": "Maximum number of results (default: 3)",
					"default":     pipeline.DefaultTopK,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.QueryKnowledgeBase)

	server.AddTool(mcp.Tool{
		Name:        "explain_medical_terms",
		Description: "Explain medical terms in plain language.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"terms": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Terms to explain. A single comma separated string is also accepted.",
				},
			},
			Required: []string{"terms"},
		},
	}, handlers.ExplainMedicalTerms)

	server.AddTool(mcp.Tool{
		Name:        "process_text",
		Description: "Run a conversation transcript through entity extraction, summarization and report generation. Returns the stored report.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Transcript of the doctor-patient conversation",
				},
				"patient_name": map[string]any{
					"type":        "string",
					"description": "Optional patient name for the report header",
				},
				"patient_age": map[string]any{
					"type":        "string",
					"description": "Optional patient age",
				},
				"physician": map[string]any{
					"type":        "string",
					"description": "Optional attending physician",
				},
			},
			Required: []string{"text"},
		},
	}, handlers.ProcessText)

	server.AddTool(mcp.Tool{
		Name:        "get_report",
		Description: "Fetch a stored clinical report as markdown.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"report_id": map[string]any{
					"type":        "string",
					"description": "Report id returned by process_text",
				},
			},
			Required: []string{"report_id"},
		},
	}, handlers.GetReport)

	return handlers
}
