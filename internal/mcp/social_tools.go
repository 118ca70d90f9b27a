// ABOUTME: MCP tool implementations for social operations against the Sociality API.
// ABOUTME: Registers feed, post, engagement, comment, and user tools; all require a session.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/sociality/internal/models"
)

const pageSchema = `
				"page": {"type": "number", "description": "Page number starting at 1 (default 1)"},
				"limit": {"type": "number", "description": "Items per page (default 10)"}`

func (s *Server) registerSocialTools() {
	s.addTool(&gomcp.Tool{
		Name:        "read_feed",
		Description: "Read one page of the home feed.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {` + pageSchema + `}}`),
	}, s.authed(s.handleReadFeed))

	s.addTool(&gomcp.Tool{
		Name:        "read_saved",
		Description: "Read one page of your saved posts.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {` + pageSchema + `}}`),
	}, s.authed(s.handleReadSaved))

	s.addTool(&gomcp.Tool{
		Name:        "read_post",
		Description: "Read a single post by ID.",
		InputSchema: postIDSchema(""),
	}, s.authed(s.handleReadPost))

	for _, e := range []struct {
		name, desc string
		fn         func(context.Context, int64) error
		done       string
	}{
		{"like_post", "Like a post.", s.client.LikePost, "Liked"},
		{"unlike_post", "Remove your like from a post.", s.client.UnlikePost, "Unliked"},
		{"save_post", "Save a post to your collection.", s.client.SavePost, "Saved"},
		{"unsave_post", "Remove a post from your saved collection.", s.client.UnsavePost, "Unsaved"},
	} {
		s.addTool(&gomcp.Tool{
			Name:        e.name,
			Description: e.desc,
			InputSchema: postIDSchema(""),
		}, s.authed(s.postAction(e.fn, e.done)))
	}

	s.addTool(&gomcp.Tool{
		Name:        "read_comments",
		Description: "Read comments on a post.",
		InputSchema: postIDSchema("," + pageSchema),
	}, s.authed(s.handleReadComments))

	s.addTool(&gomcp.Tool{
		Name:        "add_comment",
		Description: "Comment on a post.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"post_id": {"type": "number", "description": "ID of the post."},
				"text": {"type": "string", "description": "Comment text.", "minLength": 1}
			},
			"required": ["post_id", "text"]
		}`),
	}, s.authed(s.handleAddComment))

	s.addTool(&gomcp.Tool{
		Name:        "view_user",
		Description: "View a user's profile with follower counts and recent posts.",
		InputSchema: usernameSchema(),
	}, s.authed(s.handleViewUser))

	s.addTool(&gomcp.Tool{
		Name:        "follow_user",
		Description: "Follow a user.",
		InputSchema: usernameSchema(),
	}, s.authed(s.userAction(s.client.Follow, "Now following")))

	s.addTool(&gomcp.Tool{
		Name:        "unfollow_user",
		Description: "Stop following a user.",
		InputSchema: usernameSchema(),
	}, s.authed(s.userAction(s.client.Unfollow, "No longer following")))

	s.addTool(&gomcp.Tool{
		Name:        "search_users",
		Description: "Search users by name or username.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search text.", "minLength": 1},` + pageSchema + `
			},
			"required": ["query"]
		}`),
	}, s.authed(s.handleSearchUsers))
}

func postIDSchema(extra string) json.RawMessage {
	return json.RawMessage(`{
			"type": "object",
			"properties": {
				"post_id": {"type": "number", "description": "ID of the post."}` + extra + `
			},
			"required": ["post_id"]
		}`)
}

func usernameSchema() json.RawMessage {
	return json.RawMessage(`{
			"type": "object",
			"properties": {
				"username": {"type": "string", "description": "Username, with or without @.", "minLength": 1}
			},
			"required": ["username"]
		}`)
}

type pageArgs struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (s *Server) normalize(p pageArgs) (int, int) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = s.pageSize
	}
	return p.Page, p.Limit
}

func (s *Server) handleReadFeed(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args pageArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	page, limit := s.normalize(args)
	p, err := s.client.Feed(ctx, page, limit)
	if err != nil {
		return toolError("failed to read feed: %v", err), nil
	}
	return toolText("%s", formatPosts(p.Items)), nil
}

func (s *Server) handleReadSaved(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args pageArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	page, limit := s.normalize(args)
	p, err := s.client.Saved(ctx, page, limit)
	if err != nil {
		return toolError("failed to read saved posts: %v", err), nil
	}
	return toolText("%s", formatPosts(p.Items)), nil
}

type postArgs struct {
	PostID int64 `json:"post_id"`
}

func parsePostArgs(req *gomcp.CallToolRequest) (int64, *gomcp.CallToolResult) {
	var args postArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return 0, toolError("invalid arguments: %v", err)
	}
	if args.PostID <= 0 {
		return 0, toolError("post_id is required")
	}
	return args.PostID, nil
}

func (s *Server) handleReadPost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	id, bad := parsePostArgs(req)
	if bad != nil {
		return bad, nil
	}
	p, err := s.client.Post(ctx, id)
	if err != nil {
		return toolError("failed to read post %d: %v", id, err), nil
	}
	return toolText("%s", formatPosts([]models.Post{*p})), nil
}

func (s *Server) postAction(fn func(context.Context, int64) error, done string) gomcp.ToolHandler {
	return func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		id, bad := parsePostArgs(req)
		if bad != nil {
			return bad, nil
		}
		if err := fn(ctx, id); err != nil {
			return toolError("failed on post %d: %v", id, err), nil
		}
		return toolText("%s post %d", done, id), nil
	}
}

func (s *Server) handleReadComments(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		PostID int64 `json:"post_id"`
		pageArgs
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.PostID <= 0 {
		return toolError("post_id is required"), nil
	}
	page, limit := s.normalize(args.pageArgs)
	p, err := s.client.Comments(ctx, args.PostID, page, limit)
	if err != nil {
		return toolError("failed to read comments: %v", err), nil
	}
	if len(p.Items) == 0 {
		return toolText("No comments."), nil
	}
	var sb strings.Builder
	for _, c := range p.Items {
		sb.WriteString(fmt.Sprintf("---\n@%s [%s] (comment %d)\n%s\n",
			c.Author.Username, c.CreatedAt.Format("2006-01-02 15:04:05"), c.ID, c.Text))
	}
	return toolText("%s", sb.String()), nil
}

func (s *Server) handleAddComment(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		PostID int64  `json:"post_id"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.PostID <= 0 {
		return toolError("post_id is required"), nil
	}
	c, err := s.client.AddComment(ctx, args.PostID, strings.TrimSpace(args.Text))
	if err != nil {
		return toolError("failed to add comment: %v", err), nil
	}
	return toolText("Comment added (ID: %d)", c.ID), nil
}

func parseUsername(req *gomcp.CallToolRequest) (string, *gomcp.CallToolResult) {
	var args struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return "", toolError("invalid arguments: %v", err)
	}
	name := strings.TrimPrefix(strings.TrimSpace(args.Username), "@")
	if name == "" {
		return "", toolError("username is required")
	}
	return name, nil
}

func (s *Server) handleViewUser(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	name, bad := parseUsername(req)
	if bad != nil {
		return bad, nil
	}
	ov, err := s.client.ProfileOverview(ctx, name)
	if err != nil {
		return toolError("failed to load @%s: %v", name, err), nil
	}
	u := *ov.User
	u.Followers, u.Following = ov.FollowerCount, ov.FollowingCount
	u.Posts = len(ov.Posts)

	var sb strings.Builder
	sb.WriteString(formatUser(&u))
	if len(ov.Posts) > 0 {
		sb.WriteString("\nRecent posts:\n")
		sb.WriteString(formatPosts(ov.Posts))
	}
	return toolText("%s", sb.String()), nil
}

func (s *Server) userAction(fn func(context.Context, string) error, done string) gomcp.ToolHandler {
	return func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		name, bad := parseUsername(req)
		if bad != nil {
			return bad, nil
		}
		if err := fn(ctx, name); err != nil {
			return toolError("failed on @%s: %v", name, err), nil
		}
		return toolText("%s @%s", done, name), nil
	}
}

func (s *Server) handleSearchUsers(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		pageArgs
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	q := strings.TrimSpace(args.Query)
	if q == "" {
		return toolError("query is required"), nil
	}
	page, limit := s.normalize(args.pageArgs)
	p, err := s.client.SearchUsers(ctx, q, page, limit)
	if err != nil {
		return toolError("search failed: %v", err), nil
	}
	if len(p.Items) == 0 {
		return toolText("No users found."), nil
	}
	var sb strings.Builder
	for _, u := range p.Items {
		sb.WriteString(fmt.Sprintf("%s  %s\n", u.Handle(), u.Name))
	}
	return toolText("%s", sb.String()), nil
}

func formatPosts(posts []models.Post) string {
	if len(posts) == 0 {
		return "No posts found."
	}
	var sb strings.Builder
	for _, p := range posts {
		sb.WriteString(fmt.Sprintf("---\n@%s [%s] (post %d)\n", p.Author.Username, p.CreatedAt.Format("2006-01-02 15:04:05"), p.ID))
		if p.Caption != "" {
			sb.WriteString(p.Caption)
			sb.WriteString("\n")
		}
		flags := fmt.Sprintf("likes: %d  comments: %d", p.LikeCount, p.CommentCount)
		if p.LikedByMe {
			flags += "  liked"
		}
		if p.SavedByMe {
			flags += "  saved"
		}
		sb.WriteString(flags)
		sb.WriteString("\n")
	}
	return sb.String()
}
