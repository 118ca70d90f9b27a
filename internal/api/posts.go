// ABOUTME: Post endpoints: feed, post CRUD, likes, saves, and comments.
// ABOUTME: List responses are decoded from whichever collection key the endpoint uses.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/2389-research/sociality/internal/models"
)

// listData accepts the collection keys the API uses across list endpoints.
type listData[T any] struct {
	Items      []T                `json:"items"`
	Users      []T                `json:"users"`
	Posts      []T                `json:"posts"`
	Comments   []T                `json:"comments"`
	Pagination *models.Pagination `json:"pagination"`
}

func (d listData[T]) page() models.Page[T] {
	var items []T
	switch {
	case d.Items != nil:
		items = d.Items
	case d.Users != nil:
		items = d.Users
	case d.Posts != nil:
		items = d.Posts
	case d.Comments != nil:
		items = d.Comments
	}
	if items == nil {
		items = []T{}
	}
	return models.Page[T]{Items: items, Pagination: d.Pagination}
}

func listPage[T any](ctx context.Context, c *Client, path string, page, limit int) (models.Page[T], error) {
	var data listData[T]
	if err := c.getJSON(ctx, path, pageQuery(page, limit), &data); err != nil {
		return models.Page[T]{}, err
	}
	return data.page(), nil
}

// Feed returns one page of the home feed.
func (c *Client) Feed(ctx context.Context, page, limit int) (models.Page[models.Post], error) {
	return listPage[models.Post](ctx, c, "/feed", page, limit)
}

// Saved returns one page of the current user's saved posts.
func (c *Client) Saved(ctx context.Context, page, limit int) (models.Page[models.Post], error) {
	return listPage[models.Post](ctx, c, "/me/saved", page, limit)
}

// Post fetches a single post.
func (c *Client) Post(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	if err := c.getJSON(ctx, postPath(id, ""), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// NewPost is an image upload with caption.
type NewPost struct {
	Caption   string    `json:"caption" validate:"max=2200"`
	Image     io.Reader `json:"-" validate:"-"`
	ImageName string    `json:"-" validate:"-"`
}

// CreatePost uploads a new image post.
func (c *Client) CreatePost(ctx context.Context, np NewPost) (*models.Post, error) {
	if np.Image == nil {
		return nil, &ValidationError{Fields: []string{"image is required"}}
	}
	if err := c.check(np); err != nil {
		return nil, err
	}
	name := np.ImageName
	if name == "" {
		name = "image"
	}

	form := newForm()
	form.file("image", filepath.Base(name), np.Image)
	form.field("caption", np.Caption)
	body, contentType, err := form.finish()
	if err != nil {
		return nil, err
	}

	var p models.Post
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/posts", body: body, contentType: contentType}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost removes one of the current user's posts.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	_, err := c.sendJSON(ctx, http.MethodDelete, postPath(id, ""), nil, nil)
	return err
}

// LikePost marks a post as liked by the current user.
func (c *Client) LikePost(ctx context.Context, id int64) error {
	_, err := c.sendJSON(ctx, http.MethodPost, postPath(id, "/like"), nil, nil)
	return err
}

// UnlikePost removes the current user's like.
func (c *Client) UnlikePost(ctx context.Context, id int64) error {
	_, err := c.sendJSON(ctx, http.MethodDelete, postPath(id, "/like"), nil, nil)
	return err
}

// SavePost bookmarks a post.
func (c *Client) SavePost(ctx context.Context, id int64) error {
	_, err := c.sendJSON(ctx, http.MethodPost, postPath(id, "/save"), nil, nil)
	return err
}

// UnsavePost removes a bookmark.
func (c *Client) UnsavePost(ctx context.Context, id int64) error {
	_, err := c.sendJSON(ctx, http.MethodDelete, postPath(id, "/save"), nil, nil)
	return err
}

// PostLikes lists the users who liked a post.
func (c *Client) PostLikes(ctx context.Context, id int64, page, limit int) (models.Page[models.User], error) {
	return listPage[models.User](ctx, c, postPath(id, "/likes"), page, limit)
}

// Comments lists one page of comments on a post.
func (c *Client) Comments(ctx context.Context, id int64, page, limit int) (models.Page[models.Comment], error) {
	return listPage[models.Comment](ctx, c, postPath(id, "/comments"), page, limit)
}

// CommentRequest is the body of POST /api/posts/:id/comments.
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// AddComment posts a comment and returns it as stored.
func (c *Client) AddComment(ctx context.Context, postID int64, text string) (*models.Comment, error) {
	req := CommentRequest{Text: text}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var cm models.Comment
	if _, err := c.sendJSON(ctx, http.MethodPost, postPath(postID, "/comments"), req, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// DeleteComment removes one of the current user's comments.
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	_, err := c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d", id), nil, nil)
	return err
}

func postPath(id int64, suffix string) string {
	return fmt.Sprintf("/posts/%d%s", id, suffix)
}
