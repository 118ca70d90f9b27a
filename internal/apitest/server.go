// ABOUTME: In-memory fake of the Sociality API for package tests.
// ABOUTME: A chi router over httptest with users, posts, likes, saves, follows, and comments.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/sociality/internal/models"
)

// Request is a recorded incoming request.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
	ContentType   string
}

// Server is a fake Sociality API.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	nextID    int64
	users     map[string]*models.User // by username
	passwords map[string]string       // email -> password
	tokens    map[string]string       // token -> username
	posts     map[int64]*models.Post
	likes     map[int64]map[string]bool
	saves     map[int64]map[string]bool
	follows   map[string]map[string]bool // follower -> followee
	comments  map[int64][]commentRow
	requests  []Request
	failures  map[string]int // "METHOD /path" -> status
}

type commentRow struct {
	models.Comment
	postID int64
	by     string
}

// NewServer starts a fake API. It is closed automatically via t.Cleanup when
// a cleanup function is supplied.
func NewServer(cleanup func(func())) *Server {
	s := &Server{
		nextID:    100,
		users:     make(map[string]*models.User),
		passwords: make(map[string]string),
		tokens:    make(map[string]string),
		posts:     make(map[int64]*models.Post),
		likes:     make(map[int64]map[string]bool),
		saves:     make(map[int64]map[string]bool),
		follows:   make(map[string]map[string]bool),
		comments:  make(map[int64][]commentRow),
		failures:  make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	if cleanup != nil {
		cleanup(s.Close)
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.inject)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/me", s.handleMe)
			r.Patch("/me", s.handleUpdateMe)
			r.Get("/me/saved", s.handleSaved)
			r.Get("/feed", s.handleFeed)

			r.Post("/posts", s.handleCreatePost)
			r.Get("/posts/{id}", s.handleGetPost)
			r.Delete("/posts/{id}", s.handleDeletePost)
			r.Post("/posts/{id}/like", s.toggle(s.likes, true))
			r.Delete("/posts/{id}/like", s.toggle(s.likes, false))
			r.Post("/posts/{id}/save", s.toggle(s.saves, true))
			r.Delete("/posts/{id}/save", s.toggle(s.saves, false))
			r.Get("/posts/{id}/likes", s.handlePostLikes)
			r.Get("/posts/{id}/comments", s.handleComments)
			r.Post("/posts/{id}/comments", s.handleAddComment)
			r.Delete("/comments/{id}", s.handleDeleteComment)

			r.Get("/users/search", s.handleSearch)
			r.Get("/users/{username}", s.handleUser)
			r.Get("/users/{username}/posts", s.handleUserPosts)
			r.Get("/users/{username}/likes", s.handleUserLikes)
			r.Get("/users/{username}/followers", s.handleFollowers)
			r.Get("/users/{username}/following", s.handleFollowing)
			r.Post("/follow/{username}", s.handleFollow(true))
			r.Delete("/follow/{username}", s.handleFollow(false))
		})
	})
	return r
}

// --- seeding and inspection ---

// AddUser registers an account and returns a token that is already logged in.
func (s *Server) AddUser(u models.User, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	}
	stored := u
	s.users[u.Username] = &stored
	s.passwords[u.Email] = password
	token := "token-" + u.Username
	s.tokens[token] = u.Username
	return token
}

// AddPost stores a post authored by username and returns its ID.
func (s *Server) AddPost(username, caption string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addPostLocked(username, caption)
}

func (s *Server) addPostLocked(username, caption string) int64 {
	s.nextID++
	u := s.users[username]
	p := &models.Post{
		ID:        s.nextID,
		ImageURL:  fmt.Sprintf("https://img.example/%d.jpg", s.nextID),
		Caption:   caption,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.nextID) * time.Minute),
	}
	if u != nil {
		p.Author = models.Author{ID: u.ID, Username: u.Username, Name: u.Name, AvatarURL: u.AvatarURL}
	}
	s.posts[p.ID] = p
	return p.ID
}

// SetLiked marks postID as liked by username.
func (s *Server) SetLiked(postID int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setMember(s.likes, postID, username, true)
}

// SetFollowing makes follower follow followee.
func (s *Server) SetFollowing(follower, followee string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.follows[follower] == nil {
		s.follows[follower] = make(map[string]bool)
	}
	s.follows[follower][followee] = true
}

// Liked reports whether username likes postID.
func (s *Server) Liked(postID int64, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes[postID][username]
}

// Saved reports whether username saved postID.
func (s *Server) Saved(postID int64, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[postID][username]
}

// Follows reports whether follower follows followee.
func (s *Server) Follows(follower, followee string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follows[follower][followee]
}

// FailNext makes every request matching "METHOD /api/path" answer with status
// until cleared with status 0.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// Requests returns a copy of every request seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() Request {
	reqs := s.Requests()
	if len(reqs) == 0 {
		return Request{}
	}
	return reqs[len(reqs)-1]
}

// --- middleware ---

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			ContentType:   r.Header.Get("Content-Type"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			fail(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		username, ok := s.tokens[token]
		s.mu.Unlock()
		if token == "" || !ok {
			fail(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		r.Header.Set("X-Viewer", username)
		next.ServeHTTP(w, r)
	})
}

func viewer(r *http.Request) string {
	return r.Header.Get("X-Viewer")
}

// --- handlers ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, "bad json")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pw, ok := s.passwords[body.Email]
	if !ok || pw != body.Password {
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	for _, u := range s.users {
		if u.Email == body.Email {
			token := "token-" + u.Username
			s.tokens[token] = u.Username
			ok200(w, "Login successful", map[string]any{"token": token, "user": u})
			return
		}
	}
	fail(w, http.StatusUnauthorized, "Invalid credentials")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, "bad json")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[body.Username]; taken {
		fail(w, http.StatusConflict, "Username already taken")
		return
	}
	s.nextID++
	s.users[body.Username] = &models.User{ID: s.nextID, Name: body.Name, Username: body.Username, Email: body.Email, Phone: body.Phone}
	s.passwords[body.Email] = body.Password
	ok200(w, "Registration successful", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok200(w, "", s.users[viewer(r)])
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		fail(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := viewer(r)
	u := s.users[name]
	if v := r.FormValue("name"); v != "" {
		u.Name = v
	}
	if v := r.FormValue("phone"); v != "" {
		u.Phone = v
	}
	if v := r.FormValue("bio"); v != "" {
		u.Bio = v
	}
	if v := r.FormValue("avatarUrl"); v != "" {
		u.AvatarURL = v
	}
	if f, hdr, err := r.FormFile("avatar"); err == nil {
		_, _ = io.Copy(io.Discard, f)
		_ = f.Close()
		u.AvatarURL = "https://img.example/avatars/" + hdr.Filename
	}
	if v := r.FormValue("username"); v != "" && v != name {
		delete(s.users, name)
		u.Username = v
		s.users[v] = u
		for tok, owner := range s.tokens {
			if owner == name {
				s.tokens[tok] = v
			}
		}
	}
	ok200(w, "Profile updated", u)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.sortedPostsLocked(func(*models.Post) bool { return true })
	page, limit := paging(r)
	ok200(w, "", map[string]any{"items": s.decorateLocked(pageOf(posts, page, limit), viewer(r))})
}

func (s *Server) handleSaved(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	me := viewer(r)
	posts := s.sortedPostsLocked(func(p *models.Post) bool { return s.saves[p.ID][me] })
	page, limit := paging(r)
	ok200(w, "", map[string]any{"posts": s.decorateLocked(pageOf(posts, page, limit), me)})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		fail(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	f, _, err := r.FormFile("image")
	if err != nil {
		fail(w, http.StatusBadRequest, "image is required")
		return
	}
	_ = f.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.addPostLocked(viewer(r), r.FormValue("caption"))
	ok200(w, "Post created", s.decorateLocked([]*models.Post{s.posts[id]}, viewer(r))[0])
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postLocked(w, r)
	if !ok {
		return
	}
	ok200(w, "", s.decorateLocked([]*models.Post{p}, viewer(r))[0])
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postLocked(w, r)
	if !ok {
		return
	}
	if p.Author.Username != viewer(r) {
		fail(w, http.StatusForbidden, "Not your post")
		return
	}
	delete(s.posts, p.ID)
	ok200(w, "Post deleted", nil)
}

func (s *Server) toggle(set map[int64]map[string]bool, on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.postLocked(w, r)
		if !ok {
			return
		}
		setMember(set, p.ID, viewer(r), on)
		ok200(w, "", nil)
	}
}

func (s *Server) handlePostLikes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postLocked(w, r)
	if !ok {
		return
	}
	var users []*models.User
	for _, name := range sortedKeys(s.likes[p.ID]) {
		users = append(users, s.relatedLocked(name, viewer(r)))
	}
	page, limit := paging(r)
	ok200(w, "", map[string]any{"users": pageOf(users, page, limit)})
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postLocked(w, r)
	if !ok {
		return
	}
	var out []models.Comment
	for _, c := range s.comments[p.ID] {
		out = append(out, c.Comment)
	}
	page, limit := paging(r)
	ok200(w, "", map[string]any{"comments": pageOf(out, page, limit)})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		fail(w, http.StatusBadRequest, "text is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postLocked(w, r)
	if !ok {
		return
	}
	s.nextID++
	u := s.users[viewer(r)]
	c := commentRow{
		Comment: models.Comment{
			ID:        s.nextID,
			Text:      body.Text,
			CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Author:    models.Author{ID: u.ID, Username: u.Username, Name: u.Name},
		},
		postID: p.ID,
		by:     u.Username,
	}
	s.comments[p.ID] = append(s.comments[p.ID], c)
	ok200(w, "Comment added", c.Comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	for postID, list := range s.comments {
		for i, c := range list {
			if c.ID != id {
				continue
			}
			if c.by != viewer(r) {
				fail(w, http.StatusForbidden, "Not your comment")
				return
			}
			s.comments[postID] = append(list[:i], list[i+1:]...)
			ok200(w, "Comment deleted", nil)
			return
		}
	}
	fail(w, http.StatusNotFound, "Comment not found")
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []*models.User
	for _, name := range sortedKeys(s.usersSetLocked()) {
		u := s.users[name]
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Name), q) {
			users = append(users, s.relatedLocked(name, viewer(r)))
		}
	}
	page, limit := paging(r)
	ok200(w, "", map[string]any{"users": pageOf(users, page, limit)})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "username")
	if s.users[name] == nil {
		fail(w, http.StatusNotFound, "User not found")
		return
	}
	// Profiles carry their counters nested, unlike list entries.
	u := s.relatedLocked(name, viewer(r))
	posts := 0
	for _, p := range s.posts {
		if p.Author.Username == name {
			posts++
		}
	}
	likes := 0
	for _, set := range s.likes {
		if set[name] {
			likes++
		}
	}
	u.Counts = models.UserCounts{Posts: posts, Followers: u.Followers, Following: u.Following, Likes: likes}
	u.Followers, u.Following = 0, 0
	ok200(w, "", u)
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "username")
	posts := s.sortedPostsLocked(func(p *models.Post) bool { return p.Author.Username == name })
	page, limit := paging(r)
	ok200(w, "", map[string]any{
		"posts":      s.decorateLocked(pageOf(posts, page, limit), viewer(r)),
		"pagination": models.Pagination{Page: page, Limit: limit, Total: len(posts)},
	})
}

func (s *Server) handleUserLikes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "username")
	posts := s.sortedPostsLocked(func(p *models.Post) bool { return s.likes[p.ID][name] })
	page, limit := paging(r)
	ok200(w, "", map[string]any{"posts": s.decorateLocked(pageOf(posts, page, limit), viewer(r))})
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "username")
	var users []*models.User
	for _, follower := range sortedKeys(s.usersSetLocked()) {
		if s.follows[follower][name] {
			users = append(users, s.relatedLocked(follower, viewer(r)))
		}
	}
	s.writeUserPage(w, r, users)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := chi.URLParam(r, "username")
	var users []*models.User
	for _, followee := range sortedKeys(s.follows[name]) {
		if s.follows[name][followee] {
			users = append(users, s.relatedLocked(followee, viewer(r)))
		}
	}
	s.writeUserPage(w, r, users)
}

func (s *Server) writeUserPage(w http.ResponseWriter, r *http.Request, users []*models.User) {
	page, limit := paging(r)
	ok200(w, "", map[string]any{
		"users":      pageOf(users, page, limit),
		"pagination": models.Pagination{Page: page, Limit: limit, Total: len(users)},
	})
}

func (s *Server) handleFollow(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		name := chi.URLParam(r, "username")
		if s.users[name] == nil {
			fail(w, http.StatusNotFound, "User not found")
			return
		}
		me := viewer(r)
		if s.follows[me] == nil {
			s.follows[me] = make(map[string]bool)
		}
		if on {
			s.follows[me][name] = true
		} else {
			delete(s.follows[me], name)
		}
		ok200(w, "", nil)
	}
}

// --- helpers ---

func (s *Server) postLocked(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		fail(w, http.StatusBadRequest, "bad post id")
		return nil, false
	}
	p, ok := s.posts[id]
	if !ok {
		fail(w, http.StatusNotFound, "Post not found")
		return nil, false
	}
	return p, true
}

func (s *Server) sortedPostsLocked(keep func(*models.Post) bool) []*models.Post {
	var out []*models.Post
	for _, p := range s.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Server) decorateLocked(posts []*models.Post, me string) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		d := *p
		d.LikeCount = len(s.likes[p.ID])
		d.CommentCount = len(s.comments[p.ID])
		d.LikedByMe = s.likes[p.ID][me]
		d.SavedByMe = s.saves[p.ID][me]
		out = append(out, d)
	}
	return out
}

func (s *Server) relatedLocked(name, me string) *models.User {
	u := *s.users[name]
	u.IsFollowing = s.follows[me][name]
	followers := 0
	for _, set := range s.follows {
		if set[name] {
			followers++
		}
	}
	u.Followers = followers
	u.Following = len(s.follows[name])
	return &u
}

func (s *Server) usersSetLocked() map[string]bool {
	set := make(map[string]bool, len(s.users))
	for name := range s.users {
		set[name] = true
	}
	return set
}

func setMember(set map[int64]map[string]bool, id int64, name string, on bool) {
	if set[id] == nil {
		set[id] = make(map[string]bool)
	}
	if on {
		set[id][name] = true
	} else {
		delete(set[id], name)
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func paging(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}

func pageOf[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func ok200(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message, "data": data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
