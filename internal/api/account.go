// ABOUTME: Account endpoints: login, registration, and the current user's profile.
// ABOUTME: Profile updates are sent as multipart so an avatar file can ride along.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/2389-research/sociality/internal/models"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// loginData is the data block of a successful login.
type loginData struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=6,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProfileUpdate carries the editable profile fields. Empty fields are left
// unchanged. Avatar takes precedence over AvatarURL.
type ProfileUpdate struct {
	Name       string    `json:"name" validate:"omitempty,max=100"`
	Username   string    `json:"username" validate:"omitempty,min=3,max=30"`
	Phone      string    `json:"phone" validate:"omitempty,min=6,max=20"`
	Bio        string    `json:"bio" validate:"omitempty,max=300"`
	AvatarURL  string    `json:"avatarUrl" validate:"omitempty,url"`
	Avatar     io.Reader `json:"-" validate:"-"`
	AvatarName string    `json:"-" validate:"-"`
}

// Login exchanges credentials for a bearer token and the user's profile.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, *models.User, error) {
	if err := c.check(req); err != nil {
		return "", nil, err
	}
	var data loginData
	if _, err := c.sendJSON(ctx, http.MethodPost, "/auth/login", req, &data); err != nil {
		return "", nil, err
	}
	if data.Token == "" {
		return "", nil, fmt.Errorf("login response did not include a token")
	}
	return data.Token, data.User, nil
}

// Register creates an account and returns the server's message.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if err := c.check(req); err != nil {
		return "", err
	}
	return c.sendJSON(ctx, http.MethodPost, "/auth/register", req, nil)
}

// Me fetches the current user's profile. Some API builds wrap it as
// data.profile; both shapes decode.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/me", nil, &raw); err != nil {
		return nil, err
	}
	return decodeProfile(raw)
}

func decodeProfile(raw json.RawMessage) (*models.User, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return &models.User{}, nil
	}
	var wrapped struct {
		Profile json.RawMessage `json:"profile"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if p := bytes.TrimSpace(wrapped.Profile); len(p) > 0 && p[0] == '{' {
		raw = p
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &u, nil
}

// UpdateMe patches the current user's profile.
func (c *Client) UpdateMe(ctx context.Context, upd ProfileUpdate) (*models.User, error) {
	if err := c.check(upd); err != nil {
		return nil, err
	}

	form := newForm()
	form.field("name", upd.Name)
	form.field("username", upd.Username)
	form.field("phone", upd.Phone)
	form.field("bio", upd.Bio)
	if upd.Avatar != nil {
		name := upd.AvatarName
		if name == "" {
			name = "avatar"
		}
		form.file("avatar", filepath.Base(name), upd.Avatar)
	} else {
		form.field("avatarUrl", upd.AvatarURL)
	}
	body, contentType, err := form.finish()
	if err != nil {
		return nil, err
	}

	var u models.User
	if _, err := c.do(ctx, request{method: http.MethodPatch, path: "/me", body: body, contentType: contentType}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// form builds a multipart body, remembering the first error.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

// field writes a text part, skipping empty values.
func (f *form) field(name, value string) {
	if f.err != nil || value == "" {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) file(name, filename string, r io.Reader) {
	if f.err != nil {
		return
	}
	part, err := f.w.CreateFormFile(name, filename)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = io.Copy(part, r)
}

func (f *form) finish() ([]byte, string, error) {
	if f.err != nil {
		return nil, "", fmt.Errorf("failed to build form: %w", f.err)
	}
	if err := f.w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to build form: %w", err)
	}
	return f.buf.Bytes(), f.w.FormDataContentType(), nil
}
