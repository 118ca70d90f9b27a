// ABOUTME: Tests for MCP server creation and the shared tool-call helpers.
// ABOUTME: Servers are wired to a fake Sociality API and an in-memory session.
package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/sociality/internal/api"
	"github.com/2389-research/sociality/internal/apitest"
	"github.com/2389-research/sociality/internal/auth"
	"github.com/2389-research/sociality/internal/models"
	"github.com/2389-research/sociality/internal/session"
	"github.com/2389-research/sociality/internal/storage"
)

type fixture struct {
	server *Server
	api    *apitest.Server
	sess   *session.Session
}

var ada = models.User{Name: "Ada Lovelace", Username: "ada", Email: "ada@example.com"}

// makeServer returns a server whose fake API knows ada (password "secret").
// When loggedIn is set the session already holds ada's token.
func makeServer(t *testing.T, loggedIn bool) *fixture {
	t.Helper()
	fake := apitest.NewServer(t.Cleanup)
	token := fake.AddUser(ada, "secret")

	sess := session.Open(storage.NewMemoryKV(), nil)
	if loggedIn {
		u := ada
		sess.SetCredentials(token, &u)
	}
	client := api.NewClient(fake.URL, sess)
	server, err := NewServer(auth.NewService(client, sess, nil), client, WithPageSize(5))
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	return &fixture{server: server, api: fake, sess: sess}
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *gomcp.CallToolResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}
	h, ok := s.handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	req := &gomcp.CallToolRequest{
		Params: &gomcp.CallToolParamsRaw{
			Name:      name,
			Arguments: argsJSON,
		},
	}
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func getTextContent(result *gomcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*gomcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestNewServerRequiresAuthService(t *testing.T) {
	client := api.NewClient("http://localhost", api.StaticToken(""))
	if _, err := NewServer(nil, client); err == nil {
		t.Error("expected error when auth service is nil")
	}
}

func TestNewServerRequiresClient(t *testing.T) {
	sess := session.Open(storage.NewMemoryKV(), nil)
	client := api.NewClient("http://localhost", sess)
	if _, err := NewServer(auth.NewService(client, sess, nil), nil); err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	f := makeServer(t, false)
	got := f.server.Tools()
	sort.Strings(got)

	want := []string{
		"add_comment", "follow_user", "like_post", "login", "logout",
		"read_comments", "read_feed", "read_post", "read_saved", "save_post",
		"search_users", "unfollow_user", "unlike_post", "unsave_post",
		"view_user", "whoami",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d tools, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tool %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestWithPageSize(t *testing.T) {
	f := makeServer(t, false)
	if f.server.pageSize != 5 {
		t.Errorf("expected page size 5, got %d", f.server.pageSize)
	}
	WithPageSize(0)(f.server)
	if f.server.pageSize != 5 {
		t.Error("expected non-positive page size to be ignored")
	}
}
