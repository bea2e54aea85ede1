package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
)

type queryServiceFake struct {
	resp *domain.QueryResponse
	err  error
	last domain.QueryRequest
}

func (f *queryServiceFake) Answer(_ context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	f.last = req
	return f.resp, f.err
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = ToolAskGrounded
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestAskGrounded(t *testing.T) {
	answer := "Ten days [ID: leave_0]."
	confidence := 0.74

	tests := []struct {
		name      string
		args      map[string]any
		fake      *queryServiceFake
		wantError bool
		validate  func(t *testing.T, fake *queryServiceFake, text string)
	}{
		{
			name: "answered response is returned as json",
			args: map[string]any{"question": "How much leave?", "top_k": float64(2)},
			fake: &queryServiceFake{resp: &domain.QueryResponse{
				Answer:     &answer,
				Sources:    []domain.SourceRef{{ID: "leave_0", Source: "leave.txt", Score: 0.7}},
				ModelUsed:  "mistral:7b-instruct",
				Confidence: &confidence,
				Latency:    90,
				Outcome:    domain.OutcomeAnswered,
			}},
			validate: func(t *testing.T, fake *queryServiceFake, text string) {
				require.NotNil(t, fake.last.TopK)
				assert.Equal(t, 2, *fake.last.TopK)

				var body map[string]any
				require.NoError(t, json.Unmarshal([]byte(text), &body))
				assert.Equal(t, answer, body["answer"])
				assert.Equal(t, confidence, body["confidence"])
			},
		},
		{
			name: "refusal keeps null answer",
			args: map[string]any{"question": "What is for lunch?"},
			fake: &queryServiceFake{resp: &domain.QueryResponse{
				Reason:  domain.ReasonInsufficientGrounding,
				Sources: []domain.SourceRef{},
				Outcome: domain.OutcomeRefused,
			}},
			validate: func(t *testing.T, fake *queryServiceFake, text string) {
				assert.Nil(t, fake.last.TopK)
				assert.JSONEq(t, `{"answer":null,"reason":"INSUFFICIENT_POLICY_GROUNDING","sources":[],"model_used":"","confidence":null,"latency":0}`, text)
			},
		},
		{
			name:      "missing question is a tool error",
			args:      map[string]any{},
			fake:      &queryServiceFake{},
			wantError: true,
		},
		{
			name:      "fractional top_k is a tool error",
			args:      map[string]any{"question": "q", "top_k": 1.5},
			fake:      &queryServiceFake{},
			wantError: true,
		},
		{
			name:      "pipeline failure is a tool error",
			args:      map[string]any{"question": "q"},
			fake:      &queryServiceFake{err: domain.WrapError(domain.ErrRetrieval, "retrieve chunks", errors.New("index missing"))},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(tt.fake)
			result, err := srv.AskGrounded(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			require.NotNil(t, result)

			if tt.wantError {
				assert.True(t, result.IsError)
				return
			}
			assert.False(t, result.IsError)
			tt.validate(t, tt.fake, resultText(t, result))
		})
	}
}
