package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/medscribe"
	"github.com/poiesic/medscribe/api"
)

const coughText = "Patient reports persistent cough for two weeks and mild fever."

func newHandlers(t *testing.T) (*Handlers, *medscribe.Service) {
	t.Helper()
	svc, err := medscribe.NewService(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	server := NewServer(svc, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NotNil(t, server)
	return RegisterTools(server, svc, slog.New(slog.NewTextHandler(io.Discard, nil))), svc
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestQueryKnowledgeBase(t *testing.T) {
	h, svc := newHandlers(t)
	ctx := context.Background()

	_, err := svc.IngestKnowledge(ctx, []string{
		"Diabetes complications include neuropathy and retinopathy.",
		"Hypertension is persistently high blood pressure.",
		"Asthma causes wheezing.",
	}, nil)
	require.NoError(t, err)

	res, err := h.QueryKnowledgeBase(ctx, callRequest(map[string]any{"query": "diabetes complications", "k": 2}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var resp struct {
		Results []api.Match `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	require.Len(t, resp.Results, 2)
	assert.GreaterOrEqual(t, resp.Results[0].Score, resp.Results[1].Score)

	res, err = h.QueryKnowledgeBase(ctx, callRequest(map[string]any{"query": "asthma"}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	assert.Len(t, resp.Results, 3, "k defaults to 3")

	res, err = h.QueryKnowledgeBase(ctx, callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.QueryKnowledgeBase(ctx, callRequest(map[string]any{"query": "asthma", "k": -1}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestExplainMedicalTerms(t *testing.T) {
	h, _ := newHandlers(t)
	ctx := context.Background()

	for name, terms := range map[string]any{
		"array":  []any{"asthma", "fever"},
		"string": "asthma, fever",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := h.ExplainMedicalTerms(ctx, callRequest(map[string]any{"terms": terms}))
			require.NoError(t, err)
			require.False(t, res.IsError, resultText(t, res))

			var resp struct {
				Explanations []api.Explanation `json:"explanations"`
			}
			require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
			require.Len(t, resp.Explanations, 2)
			assert.Contains(t, resp.Explanations[0].Explanation, "airways")
		})
	}

	for _, bad := range []any{nil, 42, []any{"asthma", 7}, " , "} {
		res, err := h.ExplainMedicalTerms(ctx, callRequest(map[string]any{"terms": bad}))
		require.NoError(t, err)
		assert.True(t, res.IsError, "terms=%v", bad)
	}
}

func TestProcessTextAndGetReport(t *testing.T) {
	h, _ := newHandlers(t)
	ctx := context.Background()

	res, err := h.ProcessText(ctx, callRequest(map[string]any{
		"text":         coughText,
		"patient_name": "Jane Doe",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var resp struct {
		ReportID string       `json:"report_id"`
		Entities []api.Entity `json:"entities"`
		Report   string       `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resp))
	require.NotEmpty(t, resp.ReportID)
	assert.NotEmpty(t, resp.Entities)
	assert.Contains(t, resp.Report, "Jane Doe")

	res, err = h.GetReport(ctx, callRequest(map[string]any{"report_id": resp.ReportID}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, resp.Report, resultText(t, res))

	res, err = h.GetReport(ctx, callRequest(map[string]any{"report_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not found")

	res, err = h.ProcessText(ctx, callRequest(map[string]any{"text": "   "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestStringList(t *testing.T) {
	got, ok := stringList([]string{" a ", "", "b"})
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	_, ok = stringList(map[string]any{})
	assert.False(t, ok)
}
