// ABOUTME: User endpoints: profiles, follow graph, user search, and the profile overview.
// ABOUTME: ProfileOverview fans out the profile screen's requests in parallel with errgroup.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/2389-research/sociality/internal/models"
)

// User fetches a public profile by username.
func (c *Client) User(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := c.getJSON(ctx, userPath(username, ""), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UserPosts lists a user's posts.
func (c *Client) UserPosts(ctx context.Context, username string, page, limit int) (models.Page[models.Post], error) {
	return listPage[models.Post](ctx, c, userPath(username, "/posts"), page, limit)
}

// UserLikes lists the posts a user has liked.
func (c *Client) UserLikes(ctx context.Context, username string, page, limit int) (models.Page[models.Post], error) {
	return listPage[models.Post](ctx, c, userPath(username, "/likes"), page, limit)
}

// UserFollowers lists a user's followers.
func (c *Client) UserFollowers(ctx context.Context, username string, page, limit int) (models.Page[models.User], error) {
	return listPage[models.User](ctx, c, userPath(username, "/followers"), page, limit)
}

// UserFollowing lists the accounts a user follows.
func (c *Client) UserFollowing(ctx context.Context, username string, page, limit int) (models.Page[models.User], error) {
	return listPage[models.User](ctx, c, userPath(username, "/following"), page, limit)
}

// Follow starts following username.
func (c *Client) Follow(ctx context.Context, username string) error {
	_, err := c.sendJSON(ctx, http.MethodPost, followPath(username), nil, nil)
	return err
}

// Unfollow stops following username.
func (c *Client) Unfollow(ctx context.Context, username string) error {
	_, err := c.sendJSON(ctx, http.MethodDelete, followPath(username), nil, nil)
	return err
}

// SearchUsers finds users matching q. Depending on the API build the result
// list arrives as data.users, data.items, or data itself.
func (c *Client) SearchUsers(ctx context.Context, q string, page, limit int) (models.Page[models.User], error) {
	query := pageQuery(page, limit)
	query.Set("q", q)

	var raw json.RawMessage
	if err := c.getJSON(ctx, "/users/search", query, &raw); err != nil {
		return models.Page[models.User]{}, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return models.Page[models.User]{Items: []models.User{}}, nil
	}
	if trimmed[0] == '[' {
		var users []models.User
		if err := json.Unmarshal(trimmed, &users); err != nil {
			return models.Page[models.User]{}, fmt.Errorf("failed to decode response: %w", err)
		}
		return models.Page[models.User]{Items: users}, nil
	}
	var data listData[models.User]
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return models.Page[models.User]{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return data.page(), nil
}

// OverviewPageSize is how many posts the profile overview loads per tab.
const OverviewPageSize = 20

// ProfileOverview loads a profile with its follower/following totals, posts,
// and liked posts. The five requests run concurrently; the first failure
// cancels the rest.
func (c *Client) ProfileOverview(ctx context.Context, username string) (*models.ProfileOverview, error) {
	ov := &models.ProfileOverview{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		u, err := c.User(gctx, username)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		ov.User = u
		return nil
	})
	g.Go(func() error {
		p, err := c.UserFollowers(gctx, username, 1, 1)
		if err != nil {
			return fmt.Errorf("followers: %w", err)
		}
		ov.FollowerCount = p.Total()
		return nil
	})
	g.Go(func() error {
		p, err := c.UserFollowing(gctx, username, 1, 1)
		if err != nil {
			return fmt.Errorf("following: %w", err)
		}
		ov.FollowingCount = p.Total()
		return nil
	})
	g.Go(func() error {
		p, err := c.UserPosts(gctx, username, 1, OverviewPageSize)
		if err != nil {
			return fmt.Errorf("posts: %w", err)
		}
		ov.Posts = p.Items
		return nil
	})
	g.Go(func() error {
		p, err := c.UserLikes(gctx, username, 1, OverviewPageSize)
		if err != nil {
			return fmt.Errorf("liked posts: %w", err)
		}
		ov.Liked = p.Items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}

func userPath(username, suffix string) string {
	return "/users/" + url.PathEscape(strings.TrimPrefix(username, "@")) + suffix
}

func followPath(username string) string {
	return "/follow/" + url.PathEscape(strings.TrimPrefix(username, "@"))
}
