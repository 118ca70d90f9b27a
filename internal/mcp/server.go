// ABOUTME: MCP server initialization and configuration for sociality.
// ABOUTME: Sets up account and social tools so AI agents can use a Sociality account.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/2389-research/sociality/internal/api"
	"github.com/2389-research/sociality/internal/auth"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with the account service and API client.
type Server struct {
	mcp      *gomcp.Server
	auth     *auth.Service
	client   *api.Client
	log      *zap.Logger
	pageSize int
	handlers map[string]gomcp.ToolHandler
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithPageSize sets the default page size for list tools.
func WithPageSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the logger for tool calls.
func WithLogger(log *zap.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates an MCP server with account and social capabilities.
func NewServer(svc *auth.Service, client *api.Client, opts ...ServerOption) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if client == nil {
		return nil, fmt.Errorf("api client is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "sociality",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		auth:     svc,
		client:   client,
		log:      zap.NewNop(),
		pageSize: 10,
		handlers: make(map[string]gomcp.ToolHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.registerAccountTools()
	s.registerSocialTools()

	return s, nil
}

// addTool registers a tool with the MCP server and keeps the handler for
// direct dispatch.
func (s *Server) addTool(tool *gomcp.Tool, h gomcp.ToolHandler) {
	s.handlers[tool.Name] = h
	s.mcp.AddTool(tool, h)
}

// authed wraps a handler with the authentication guard.
func (s *Server) authed(h gomcp.ToolHandler) gomcp.ToolHandler {
	return func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		if err := s.auth.Guard().Require(); err != nil {
			return toolError("%v", err), nil
		}
		return h(ctx, req)
	}
}

// Tools returns the registered tool names.
func (s *Server) Tools() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	return names
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolText(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
