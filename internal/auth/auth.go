// ABOUTME: Login/logout flows and the single guard every credential-requiring entry point checks.
// ABOUTME: The session store stays the only owner of the token; this package only writes through it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/2389-research/sociality/internal/api"
	"github.com/2389-research/sociality/internal/models"
	"github.com/2389-research/sociality/internal/session"
)

var (
	// ErrAuthRequired means no credential is stored.
	ErrAuthRequired = errors.New("not logged in: run 'sociality login' first")
	// ErrTokenExpired means the stored JWT is past its exp claim.
	ErrTokenExpired = errors.New("session expired: run 'sociality login' again")
)

// Client is the subset of the API client the auth flows need.
type Client interface {
	Login(ctx context.Context, req api.LoginRequest) (string, *models.User, error)
	Register(ctx context.Context, req api.RegisterRequest) (string, error)
	Me(ctx context.Context) (*models.User, error)
	UpdateMe(ctx context.Context, upd api.ProfileUpdate) (*models.User, error)
}

var _ Client = (*api.Client)(nil)

// Service runs the account flows against the API and records the outcome in
// the session.
type Service struct {
	client  Client
	session *session.Session
	log     *zap.Logger
	now     func() time.Time
}

// NewService wires an API client to a session.
func NewService(client Client, sess *session.Session, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, session: sess, log: log, now: time.Now}
}

// Login authenticates and stores the token and profile. On failure the
// session is left untouched.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	token, user, err := s.client.Login(ctx, api.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	s.session.SetCredentials(token, user)
	s.log.Info("logged in", zap.String("username", usernameOf(user)))
	return user, nil
}

// Register creates an account. It does not log in.
func (s *Service) Register(ctx context.Context, req api.RegisterRequest) (string, error) {
	msg, err := s.client.Register(ctx, req)
	if err != nil {
		return "", fmt.Errorf("registration failed: %w", err)
	}
	return msg, nil
}

// Logout clears the session.
func (s *Service) Logout() {
	s.session.Logout()
	s.log.Info("logged out")
}

// RefreshProfile re-fetches the current user and stores it. A 401 clears the
// session since the server no longer accepts the token.
func (s *Service) RefreshProfile(ctx context.Context) (*models.User, error) {
	if err := s.Guard().Require(); err != nil {
		return nil, err
	}
	u, err := s.client.Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.log.Warn("token rejected, clearing session")
			s.session.Logout()
			return nil, ErrAuthRequired
		}
		return nil, err
	}
	s.session.UpdateProfile(u)
	return u, nil
}

// UpdateProfile patches the profile and stores the server's copy.
func (s *Service) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*models.User, error) {
	if err := s.Guard().Require(); err != nil {
		return nil, err
	}
	u, err := s.client.UpdateMe(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("profile update failed: %w", err)
	}
	s.session.UpdateProfile(u)
	return u, nil
}

// Guard returns the guard bound to this service's session.
func (s *Service) Guard() *Guard {
	return &Guard{session: s.session, now: s.now}
}

func usernameOf(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
