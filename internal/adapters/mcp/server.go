// Package mcpadapter exposes guarded question answering as an MCP tool so
// assistants can ask the policy corpus directly.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kpkavin04/VerifAI/internal/core/domain"
	"github.com/kpkavin04/VerifAI/internal/core/ports"
)

const (
	ServerName    = "verifai"
	ServerVersion = "1.0.0"

	ToolAskGrounded = "ask_grounded"
)

// AskGroundedTool describes the ask_grounded tool.
var AskGroundedTool = mcp.NewTool(ToolAskGrounded,
	mcp.WithDescription("Answer a question from the indexed policy documents. "+
		"The answer is withheld (answer is null, reason is set) when the retrieved "+
		"evidence is too weak to ground it. Every call is written to the audit log."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer."),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Number of chunks to retrieve. Defaults to the server setting."),
		mcp.Min(1),
	),
)

type Server struct {
	queryService ports.QueryService
	mcp          *server.MCPServer
}

func NewServer(queryService ports.QueryService) *Server {
	s := &Server{queryService: queryService}
	s.mcp = server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false))
	s.mcp.AddTool(AskGroundedTool, s.AskGrounded)
	return s
}

// ServeStdio blocks serving the MCP protocol on the given streams until ctx
// is done or stdin closes.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, stdin, stdout)
}

// AskGrounded runs one query and returns the response JSON as text. Invalid
// input and pipeline failures come back as tool errors, not protocol errors.
func (s *Server) AskGrounded(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := domain.QueryRequest{Question: question}
	if raw, ok := request.GetArguments()["top_k"]; ok && raw != nil {
		topK, err := toInt(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		req.TopK = &topK
	}

	resp, err := s.queryService.Answer(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal query response: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func toInt(v any) (int, error) {
	f, ok := v.(float64)
	if !ok {
		if n, isInt := v.(int); isInt {
			return n, nil
		}
		return 0, fmt.Errorf("top_k must be a number")
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("top_k must be an integer, got %v", f)
	}
	return int(f), nil
}
