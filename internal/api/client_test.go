// ABOUTME: Tests for the Sociality API client against httptest and the in-memory fake API.
// ABOUTME: Covers signing, envelope decoding, error taxonomy, the breaker, and every endpoint group.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/2389-research/sociality/internal/apitest"
	"github.com/2389-research/sociality/internal/models"
)

// mutableToken is a TokenSource whose value changes between requests.
type mutableToken struct {
	mu    sync.Mutex
	value string
}

func (m *mutableToken) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

func (m *mutableToken) set(v string) {
	m.mu.Lock()
	m.value = v
	m.mu.Unlock()
}

func newFake(t *testing.T) (*apitest.Server, string) {
	t.Helper()
	srv := apitest.NewServer(t.Cleanup)
	token := srv.AddUser(models.User{Name: "Ada Lovelace", Username: "ada", Email: "ada@example.com"}, "secret1")
	return srv, token
}

func TestClientSignsRequests(t *testing.T) {
	srv, token := newFake(t)
	client := NewClient(srv.URL, StaticToken(token))

	me, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me error: %v", err)
	}
	if me.Username != "ada" {
		t.Errorf("expected username 'ada', got %q", me.Username)
	}

	last := srv.LastRequest()
	if last.Path != "/api/me" {
		t.Errorf("expected path /api/me, got %s", last.Path)
	}
	if last.Authorization != "Bearer "+token {
		t.Errorf("expected bearer header, got %q", last.Authorization)
	}
	if last.RequestID == "" {
		t.Error("expected X-Request-ID to be set")
	}
}

func TestClientUnsignedWithoutToken(t *testing.T) {
	srv, _ := newFake(t)
	client := NewClient(srv.URL, StaticToken(""))

	_, err := client.Feed(context.Background(), 1, 10)
	if !IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if got := srv.LastRequest().Authorization; got != "" {
		t.Errorf("expected no Authorization header, got %q", got)
	}
}

func TestClientReadsTokenOnEveryRequest(t *testing.T) {
	srv, token := newFake(t)
	src := &mutableToken{}
	client := NewClient(srv.URL, src)

	if _, err := client.Me(context.Background()); !IsUnauthorized(err) {
		t.Fatalf("expected 401 before login, got %v", err)
	}
	src.set(token)
	if _, err := client.Me(context.Background()); err != nil {
		t.Fatalf("expected success after token change, got %v", err)
	}
	src.set("")
	if _, err := client.Me(context.Background()); !IsUnauthorized(err) {
		t.Fatalf("expected 401 after logout, got %v", err)
	}
}

func TestClientRequestIDsAreUnique(t *testing.T) {
	srv, token := newFake(t)
	client := NewClient(srv.URL, StaticToken(token))

	for i := 0; i < 3; i++ {
		if _, err := client.Me(context.Background()); err != nil {
			t.Fatalf("Me error: %v", err)
		}
	}
	seen := map[string]bool{}
	for _, r := range srv.Requests() {
		if seen[r.RequestID] {
			t.Errorf("duplicate request id %q", r.RequestID)
		}
		seen[r.RequestID] = true
	}
}

func TestNewClientNormalizesBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com", "https://example.com"},
		{"https://example.com/", "https://example.com"},
		{"https://example.com/api", "https://example.com"},
		{"https://example.com/api/", "https://example.com"},
		{"", DefaultBaseURL},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NewClient(tt.in, nil).BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"envelope failure on 200", 200, `{"success":false,"message":"Post not available"}`, "Post not available"},
		{"envelope message on 404", 404, `{"success":false,"message":"Post not found"}`, "Post not found"},
		{"plain text 500", 500, "internal error", "internal error"},
		{"empty 502", 502, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, nil).Post(context.Background(), 7)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, apiErr.Message)
			}
			if apiErr.Path != "/posts/7" {
				t.Errorf("expected path /posts/7, got %q", apiErr.Path)
			}
		})
	}
}

func TestClientDecodesEnvelopeData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":7,"caption":"sunset","likeCount":5,"likedByMe":false,"author":{"id":1,"username":"ada"}}}`))
	}))
	defer server.Close()

	post, err := NewClient(server.URL, nil).Post(context.Background(), 7)
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	want := &models.Post{ID: 7, Caption: "sunset", LikeCount: 5, Author: models.Author{ID: 1, Username: "ada"}}
	if diff := cmp.Diff(want, post); diff != "" {
		t.Errorf("post mismatch (-want +got):\n%s", diff)
	}
}

func TestClientMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil).Me(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, nil, WithTimeout(time.Second)).Me(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestMeAcceptsProfileWrapper(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"flat", `{"success":true,"data":{"id":3,"username":"ada","counts":{"followers":4}}}`},
		{"wrapped", `{"success":true,"data":{"profile":{"id":3,"username":"ada","counts":{"followers":4}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/me" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			u, err := NewClient(server.URL, nil).Me(context.Background())
			if err != nil {
				t.Fatalf("Me error: %v", err)
			}
			if u.ID != 3 || u.Username != "ada" || u.Followers != 4 {
				t.Errorf("unexpected user %+v", u)
			}
		})
	}
}

func TestClientBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithBreaker(BreakerConfig{
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}))

	for i := 0; i < 2; i++ {
		var apiErr *APIError
		if _, err := client.Me(context.Background()); !errors.As(err, &apiErr) {
			t.Fatalf("call %d: expected *APIError, got %v", i, err)
		}
	}
	_, err := client.Me(context.Background())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected open breaker to surface ErrTransport, got %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected 2 requests to reach the server, got %d", got)
	}
}

func TestClientBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithBreaker(BreakerConfig{
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}))
	for i := 0; i < 5; i++ {
		if _, err := client.Me(context.Background()); !IsNotFound(err) {
			t.Fatalf("call %d: expected 404, got %v", i, err)
		}
	}
	if got := hits.Load(); got != 5 {
		t.Errorf("expected all 5 requests to reach the server, got %d", got)
	}
}

func TestClientBreakerIgnoresCallerCancellation(t *testing.T) {
	var hits atomic.Int32
	var slow atomic.Bool
	slow.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if slow.Load() {
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":1}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithBreaker(BreakerConfig{
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}))

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := client.Me(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("call %d: expected context.DeadlineExceeded, got %v", i, err)
		}
		if errors.Is(err, ErrTransport) {
			t.Fatalf("call %d: caller timeout must not be reported as ErrTransport: %v", i, err)
		}
	}

	slow.Store(false)
	u, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("expected breaker to stay closed after caller timeouts, got %v", err)
	}
	if u.ID != 1 {
		t.Errorf("expected user 1, got %d", u.ID)
	}
	if got := hits.Load(); got != 4 {
		t.Errorf("expected 4 requests to reach the server, got %d", got)
	}
}

func TestCountsAsFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &APIError{StatusCode: 502}, true},
		{"client error", &APIError{StatusCode: 409}, false},
		{"validation", &ValidationError{Fields: []string{"x"}}, false},
		{"transport", ErrTransport, true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"decode", errors.New("failed to decode response"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countsAsFailure(tt.err); got != tt.want {
				t.Errorf("countsAsFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClientValidationNeverSends(t *testing.T) {
	srv, token := newFake(t)
	client := NewClient(srv.URL, StaticToken(token))

	_, _, err := client.Login(context.Background(), LoginRequest{Email: "not-an-email", Password: ""})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{"email must be a valid email", "password is required"}
	if diff := cmp.Diff(want, vErr.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}

	_, err = client.AddComment(context.Background(), 1, "")
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError for empty comment, got %v", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("expected no requests to be sent, got %d", n)
	}
}

func TestClientLoginAndRegister(t *testing.T) {
	srv, _ := newFake(t)
	client := NewClient(srv.URL, nil)

	token, user, err := client.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if token != "token-ada" || user == nil || user.Username != "ada" {
		t.Errorf("unexpected login result %q %+v", token, user)
	}

	_, _, err = client.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong"})
	if !IsUnauthorized(err) {
		t.Errorf("expected 401 for wrong password, got %v", err)
	}

	msg, err := client.Register(context.Background(), RegisterRequest{
		Name: "Grace Hopper", Username: "grace", Email: "grace@example.com", Password: "cobol60",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if msg != "Registration successful" {
		t.Errorf("expected server message, got %q", msg)
	}
	if _, _, err := client.Login(context.Background(), LoginRequest{Email: "grace@example.com", Password: "cobol60"}); err != nil {
		t.Errorf("expected new account to log in, got %v", err)
	}
}

func TestClientLoginWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":1}}}`))
	}))
	defer server.Close()

	_, _, err := NewClient(server.URL, nil).Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "x"})
	if err == nil || !strings.Contains(err.Error(), "did not include a token") {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestClientUpdateMeMultipart(t *testing.T) {
	srv, token := newFake(t)
	client := NewClient(srv.URL, StaticToken(token))

	u, err := client.UpdateMe(context.Background(), ProfileUpdate{
		Bio:        "first programmer",
		Avatar:     strings.NewReader("png-bytes"),
		AvatarName: "/tmp/me.png",
		AvatarURL:  "https://ignored.example/a.png",
	})
	if err != nil {
		t.Fatalf("UpdateMe error: %v", err)
	}
	if u.Bio != "first programmer" {
		t.Errorf("expected bio to be updated, got %q", u.Bio)
	}
	if u.AvatarURL != "https://img.example/avatars/me.png" {
		t.Errorf("expected uploaded avatar to win, got %q", u.AvatarURL)
	}
	last := srv.LastRequest()
	if last.Method != http.MethodPatch || !strings.HasPrefix(last.ContentType, "multipart/form-data") {
		t.Errorf("expected multipart PATCH, got %s %s", last.Method, last.ContentType)
	}
}

func TestClientPostLifecycle(t *testing.T) {
	srv, token := newFake(t)
	client := NewClient(srv.URL, StaticToken(token))
	ctx := context.Background()

	if _, err := client.CreatePost(ctx, NewPost{Caption: "no image"}); err == nil {
		t.Fatal("expected error without an image")
	}

	post, err := client.CreatePost(ctx, NewPost{Caption: "sunset", Image: strings.NewReader("jpg"), ImageName: "sunset.jpg"})
	if err != nil {
		t.Fatalf("CreatePost error: %v", err)
	}
	if post.Caption != "sunset" || post.Author.Username != "ada" {
		t.Errorf("unexpected post %+v", post)
	}

	if err := client.LikePost(ctx, post.ID); err != nil {
		t.Fatalf("LikePost error: %v", err)
	}
	if err := client.SavePost(ctx, post.ID); err != nil {
		t.Fatalf("SavePost error: %v", err)
	}
	got, err := client.Post(ctx, post.ID)
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if !got.LikedByMe || got.LikeCount != 1 || !got.SavedByMe {
		t.Errorf("expected liked and saved post, got %+v", got)
	}

	saved, err := client.Saved(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Saved error: %v", err)
	}
	if len(saved.Items) != 1 || saved.Items[0].ID != post.ID {
		t.Errorf("expected saved post, got %+v", saved.Items)
	}

	likers, err := client.PostLikes(ctx, post.ID, 1, 10)
	if err != nil {
		t.Fatalf("PostLikes error: %v", err)
	}
	if len(likers.Items) != 1 || likers.Items[0].Username != "ada" {
		t.Errorf("expected ada to be listed, got %+v", likers.Items)
	}

	if err := client.UnlikePost(ctx, post.ID); err != nil {
		t.Fatalf("UnlikePost error: %v", err)
	}
	if err := client.UnsavePost(ctx, post.ID); err != nil {
		t.Fatalf("UnsavePost error: %v", err)
	}
	if srv.Liked(post.ID, "ada") || srv.Saved(post.ID, "ada") {
		t.Error("expected like and save to be removed")
	}

	if err := client.DeletePost(ctx, post.ID); err != nil {
		t.Fatalf("DeletePost error: %v", err)
	}
	if _, err := client.Post(ctx, post.ID); !IsNotFound(err) {
		t.Errorf("expected 404 after delete, got %v", err)
	}
}

func TestClientFeedPages(t *testing.T) {
	srv, token := newFake(t)
	for _, caption := range []string{"one", "two", "three"} {
		srv.AddPost("ada", caption)
	}
	client := NewClient(srv.URL, StaticToken(token))

	var captions []string
	for page := 1; page <= 3; page++ {
		p, err := client.Feed(context.Background(), page, 2)
		if err != nil {
			t.Fatalf("Feed page %d error: %v", page, err)
		}
		for _, post := range p.Items {
			captions = append(captions, post.Caption)
		}
		if page == 3 && len(p.Items) != 0 {
			t.Errorf("expected empty third page, got %d items", len(p.Items))
		}
	}
	if diff := cmp.Diff([]string{"three", "two", "one"}, captions); diff != "" {
		t.Errorf("feed mismatch (-want +got):\n%s", diff)
	}
	if q := srv.LastRequest().Query; q != "limit=2&page=3" {
		t.Errorf("expected paging query, got %q", q)
	}
}

func TestClientComments(t *testing.T) {
	srv, token := newFake(t)
	postID := srv.AddPost("ada", "hello")
	client := NewClient(srv.URL, StaticToken(token))
	ctx := context.Background()

	c, err := client.AddComment(ctx, postID, "nice")
	if err != nil {
		t.Fatalf("AddComment error: %v", err)
	}
	list, err := client.Comments(ctx, postID, 1, 10)
	if err != nil {
		t.Fatalf("Comments error: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Text != "nice" {
		t.Fatalf("expected one comment, got %+v", list.Items)
	}
	if err := client.DeleteComment(ctx, c.ID); err != nil {
		t.Fatalf("DeleteComment error: %v", err)
	}
	list, _ = client.Comments(ctx, postID, 1, 10)
	if len(list.Items) != 0 {
		t.Errorf("expected comment to be gone, got %+v", list.Items)
	}
}

func TestClientFollowGraph(t *testing.T) {
	srv, token := newFake(t)
	srv.AddUser(models.User{Name: "Grace", Username: "grace", Email: "grace@example.com"}, "pw1234")
	client := NewClient(srv.URL, StaticToken(token))
	ctx := context.Background()

	if err := client.Follow(ctx, "@grace"); err != nil {
		t.Fatalf("Follow error: %v", err)
	}
	if !srv.Follows("ada", "grace") {
		t.Fatal("expected ada to follow grace")
	}
	grace, err := client.User(ctx, "grace")
	if err != nil {
		t.Fatalf("User error: %v", err)
	}
	if !grace.FollowedByMe() {
		t.Error("expected isFollowing on grace's profile")
	}
	followers, err := client.UserFollowers(ctx, "grace", 1, 10)
	if err != nil {
		t.Fatalf("UserFollowers error: %v", err)
	}
	if len(followers.Items) != 1 || followers.Items[0].Username != "ada" {
		t.Errorf("expected ada as follower, got %+v", followers.Items)
	}
	following, err := client.UserFollowing(ctx, "ada", 1, 10)
	if err != nil {
		t.Fatalf("UserFollowing error: %v", err)
	}
	if len(following.Items) != 1 || following.Items[0].Username != "grace" {
		t.Errorf("expected grace in following, got %+v", following.Items)
	}

	if err := client.Unfollow(ctx, "grace"); err != nil {
		t.Fatalf("Unfollow error: %v", err)
	}
	if srv.Follows("ada", "grace") {
		t.Error("expected unfollow to stick")
	}
	if err := client.Follow(ctx, "nobody"); !IsNotFound(err) {
		t.Errorf("expected 404 following unknown user, got %v", err)
	}
}

func TestSearchUsersResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bare array", `[{"id":1,"username":"ada"}]`},
		{"users key", `{"users":[{"id":1,"username":"ada"}]}`},
		{"items key", `{"items":[{"id":1,"username":"ada"}],"pagination":{"page":1,"limit":10,"total":1,"totalPages":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query().Get("q")
				_, _ = w.Write([]byte(`{"success":true,"data":` + tt.data + `}`))
			}))
			defer server.Close()

			page, err := NewClient(server.URL, nil).SearchUsers(context.Background(), "ad a", 1, 10)
			if err != nil {
				t.Fatalf("SearchUsers error: %v", err)
			}
			if gotQuery != "ad a" {
				t.Errorf("expected query to round-trip, got %q", gotQuery)
			}
			if len(page.Items) != 1 || page.Items[0].Username != "ada" {
				t.Errorf("unexpected items %+v", page.Items)
			}
		})
	}
}

func TestSearchUsersEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":null}`))
	}))
	defer server.Close()

	page, err := NewClient(server.URL, nil).SearchUsers(context.Background(), "x", 1, 10)
	if err != nil {
		t.Fatalf("SearchUsers error: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("expected empty non-nil items, got %#v", page.Items)
	}
}

func TestProfileOverview(t *testing.T) {
	srv, token := newFake(t)
	srv.AddUser(models.User{Username: "grace", Email: "grace@example.com"}, "pw1234")
	srv.AddUser(models.User{Username: "linus", Email: "linus@example.com"}, "pw1234")
	srv.SetFollowing("grace", "ada")
	srv.SetFollowing("linus", "ada")
	srv.SetFollowing("ada", "grace")
	own := srv.AddPost("ada", "mine")
	other := srv.AddPost("grace", "theirs")
	srv.SetLiked(other, "ada")

	client := NewClient(srv.URL, StaticToken(token))
	ov, err := client.ProfileOverview(context.Background(), "ada")
	if err != nil {
		t.Fatalf("ProfileOverview error: %v", err)
	}
	if ov.User == nil || ov.User.Username != "ada" {
		t.Fatalf("expected ada's profile, got %+v", ov.User)
	}
	if ov.FollowerCount != 2 || ov.FollowingCount != 1 {
		t.Errorf("expected 2 followers / 1 following, got %d / %d", ov.FollowerCount, ov.FollowingCount)
	}
	if len(ov.Posts) != 1 || ov.Posts[0].ID != own {
		t.Errorf("expected own post, got %+v", ov.Posts)
	}
	if len(ov.Liked) != 1 || ov.Liked[0].ID != other {
		t.Errorf("expected liked post, got %+v", ov.Liked)
	}
}

func TestProfileOverviewFailsWhole(t *testing.T) {
	srv, token := newFake(t)
	srv.FailNext(http.MethodGet, "/api/users/ada/likes", http.StatusInternalServerError)

	_, err := NewClient(srv.URL, StaticToken(token)).ProfileOverview(context.Background(), "ada")
	if err == nil || !strings.Contains(err.Error(), "liked posts") {
		t.Fatalf("expected liked posts failure, got %v", err)
	}
}
