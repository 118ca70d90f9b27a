// ABOUTME: MCP tool implementations for the account: login, logout, and whoami.
// ABOUTME: Login writes through the session store so the CLI and TUI see the same credential.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/2389-research/sociality/internal/auth"
	"github.com/2389-research/sociality/internal/models"
)

func (s *Server) registerAccountTools() {
	s.addTool(&gomcp.Tool{
		Name:        "login",
		Description: "Sign in to Sociality with email and password. The session is shared with the sociality CLI.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"email": {"type": "string", "description": "Account email address.", "minLength": 1},
				"password": {"type": "string", "description": "Account password.", "minLength": 1}
			},
			"required": ["email", "password"]
		}`),
	}, s.handleLogin)

	s.addTool(&gomcp.Tool{
		Name:        "logout",
		Description: "Sign out and forget the stored session.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleLogout)

	s.addTool(&gomcp.Tool{
		Name:        "whoami",
		Description: "Show the signed-in user's profile.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.authed(s.handleWhoami))
}

func (s *Server) handleLogin(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(args.Email) == "" || args.Password == "" {
		return toolError("email and password are required"), nil
	}

	user, err := s.auth.Login(ctx, args.Email, args.Password)
	if err != nil {
		s.log.Warn("mcp login failed", zap.Error(err))
		return toolError("%v", err), nil
	}
	name := args.Email
	if user != nil {
		name = user.Handle()
	}
	return toolText("Logged in as %s", name), nil
}

func (s *Server) handleLogout(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	s.auth.Logout()
	return toolText("Logged out"), nil
}

func (s *Server) handleWhoami(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	u, err := s.auth.RefreshProfile(ctx)
	if err != nil {
		if auth.IsAuthError(err) {
			return toolError("%v", err), nil
		}
		return toolError("failed to fetch profile: %v", err), nil
	}
	return toolText("%s", formatUser(u)), nil
}

func formatUser(u *models.User) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s)\n", u.Name, u.Handle()))
	if u.Email != "" {
		sb.WriteString(fmt.Sprintf("email: %s\n", u.Email))
	}
	if u.Bio != "" {
		sb.WriteString(fmt.Sprintf("bio: %s\n", u.Bio))
	}
	sb.WriteString(fmt.Sprintf("followers: %d  following: %d  posts: %d\n", u.Followers, u.Following, u.Posts))
	if u.FollowedByMe() {
		sb.WriteString("you follow this user\n")
	}
	return sb.String()
}
