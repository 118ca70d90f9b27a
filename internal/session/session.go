// ABOUTME: Session store holding the bearer token and profile of the logged-in user.
// ABOUTME: Persists both to durable storage and is the single source of signing state.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/2389-research/sociality/internal/models"
	"github.com/2389-research/sociality/internal/storage"
)

// Durable storage keys.
const (
	TokenKey   = "token"
	ProfileKey = "user"
)

// State is a point-in-time copy of the session.
type State struct {
	Token   string
	Profile *models.User
}

// LoggedIn reports whether a credential is present.
func (s State) LoggedIn() bool {
	return s.Token != ""
}

// Session holds at most one (token, profile) pair and mirrors it to a KV store.
type Session struct {
	mu        sync.RWMutex
	kv        storage.KV
	log       *zap.Logger
	token     string
	profile   *models.User
	listeners []func(State)
}

// Open restores a previously persisted session. Missing or corrupt entries
// degrade to an empty session; Open never fails.
func Open(kv storage.KV, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{kv: kv, log: log}
	s.token, s.profile = s.load()
	return s
}

// load reads the persisted pair without touching in-memory state.
func (s *Session) load() (string, *models.User) {
	raw, ok, err := s.kv.Get(TokenKey)
	if err != nil {
		s.log.Warn("failed to read persisted token", zap.Error(err))
		return "", nil
	}
	token := strings.TrimSpace(raw)
	if !ok || isEmptyValue(token) {
		return "", nil
	}

	raw, ok, err = s.kv.Get(ProfileKey)
	if err != nil {
		s.log.Warn("failed to read persisted profile", zap.Error(err))
		return token, nil
	}
	if !ok || isEmptyValue(strings.TrimSpace(raw)) {
		return token, nil
	}

	var profile models.User
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		s.log.Warn("discarding corrupt persisted profile", zap.Error(err))
		return token, nil
	}
	return token, &profile
}

// isEmptyValue treats the serialized forms of absent JS values as empty.
func isEmptyValue(v string) bool {
	return v == "" || v == "undefined" || v == "null"
}

// Token returns the current bearer credential, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile returns a copy of the current profile, or nil.
func (s *Session) Profile() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.profile)
}

// Snapshot returns a copy of the whole session.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Token: s.token, Profile: cloneUser(s.profile)}
}

// SetCredentials replaces the session and persists it. Persistence failures
// are logged, never returned.
func (s *Session) SetCredentials(token string, profile *models.User) {
	token = strings.TrimSpace(token)
	if token == "" {
		profile = nil
	}

	s.mu.Lock()
	s.token = token
	s.profile = cloneUser(profile)
	s.persistLocked()
	state := s.stateLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.log.Debug("session credentials set", zap.Bool("has_profile", profile != nil))
	notify(listeners, state)
}

// UpdateProfile replaces the profile, keeping the token, and re-persists it.
// Without a token there is no session to update and the call is ignored.
func (s *Session) UpdateProfile(profile *models.User) {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		s.log.Warn("ignoring profile update without a session")
		return
	}
	s.profile = cloneUser(profile)
	s.persistLocked()
	state := s.stateLocked()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, state)
}

// Logout clears the session from memory and durable storage. Idempotent.
func (s *Session) Logout() {
	s.mu.Lock()
	s.token = ""
	s.profile = nil
	s.persistLocked()
	state := s.stateLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.log.Debug("session cleared")
	notify(listeners, state)
}

// Reload re-reads durable storage, picking up changes made by another process.
func (s *Session) Reload() {
	token, profile := s.load()

	s.mu.Lock()
	if token == s.token && sameUser(profile, s.profile) {
		s.mu.Unlock()
		return
	}
	s.token = token
	s.profile = profile
	state := s.stateLocked()
	listeners := s.listeners
	s.mu.Unlock()

	s.log.Info("session reloaded from storage", zap.Bool("logged_in", token != ""))
	notify(listeners, state)
}

// Subscribe registers fn to be called after every session change.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Watch reloads the session whenever w reports a change to a session key.
// It blocks until ctx is done.
func (s *Session) Watch(ctx context.Context, w storage.Watcher) error {
	return w.Watch(ctx, func(key string) {
		if key == TokenKey || key == ProfileKey {
			s.Reload()
		}
	})
}

// persistLocked mirrors in-memory state to the KV store. Caller holds s.mu.
func (s *Session) persistLocked() {
	if s.token == "" {
		s.remove(TokenKey)
	} else if err := s.kv.Set(TokenKey, s.token); err != nil {
		s.log.Error("failed to persist token", zap.Error(err))
	}

	if s.token == "" || s.profile == nil {
		s.remove(ProfileKey)
		return
	}
	data, err := json.Marshal(s.profile)
	if err != nil {
		s.log.Error("failed to encode profile", zap.Error(err))
		s.remove(ProfileKey)
		return
	}
	if err := s.kv.Set(ProfileKey, string(data)); err != nil {
		s.log.Error("failed to persist profile", zap.Error(err))
	}
}

func (s *Session) remove(key string) {
	if err := s.kv.Delete(key); err != nil {
		s.log.Error("failed to remove persisted entry", zap.String("key", key), zap.Error(err))
	}
}

func (s *Session) stateLocked() State {
	return State{Token: s.token, Profile: cloneUser(s.profile)}
}

func notify(listeners []func(State), state State) {
	for _, fn := range listeners {
		fn(state)
	}
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func sameUser(a, b *models.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
