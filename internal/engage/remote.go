// ABOUTME: Maps engagement keys onto the API client's create/delete endpoints.
// ABOUTME: Also converts fetched posts and users into seed states.
package engage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/2389-research/sociality/internal/api"
	"github.com/2389-research/sociality/internal/models"
)

// Client is the subset of the API client the toggler talks to.
type Client interface {
	LikePost(ctx context.Context, id int64) error
	UnlikePost(ctx context.Context, id int64) error
	SavePost(ctx context.Context, id int64) error
	UnsavePost(ctx context.Context, id int64) error
	Follow(ctx context.Context, username string) error
	Unfollow(ctx context.Context, username string) error
}

var _ Client = (*api.Client)(nil)

// ClientRemote adapts an API client into a Remote.
func ClientRemote(c Client) Remote {
	return func(ctx context.Context, key Key, active bool) error {
		if key.Kind == KindFollow {
			if active {
				return c.Follow(ctx, key.ID)
			}
			return c.Unfollow(ctx, key.ID)
		}

		id, err := strconv.ParseInt(key.ID, 10, 64)
		if err != nil {
			return fmt.Errorf("bad post id %q: %w", key.ID, err)
		}
		switch key.Kind {
		case KindLike:
			if active {
				return c.LikePost(ctx, id)
			}
			return c.UnlikePost(ctx, id)
		case KindSave:
			if active {
				return c.SavePost(ctx, id)
			}
			return c.UnsavePost(ctx, id)
		}
		return fmt.Errorf("unknown engagement kind %q", key.Kind)
	}
}

// LikeKey returns the like key for a post.
func LikeKey(p *models.Post) Key { return Key{Kind: KindLike, ID: p.Key()} }

// SaveKey returns the save key for a post.
func SaveKey(p *models.Post) Key { return Key{Kind: KindSave, ID: p.Key()} }

// FollowKey returns the follow key for a username.
func FollowKey(username string) Key { return Key{Kind: KindFollow, ID: username} }

// TrackPost seeds like and save state from a fetched post.
func (t *Toggler) TrackPost(p *models.Post) {
	t.Track(LikeKey(p), State{Active: p.LikedByMe, Count: p.LikeCount})
	t.Track(SaveKey(p), State{Active: p.SavedByMe})
}

// TrackUser seeds follow state from a fetched profile.
func (t *Toggler) TrackUser(u *models.User) {
	t.Track(FollowKey(u.Username), State{Active: u.FollowedByMe(), Count: u.Followers})
}

// ApplyPost copies the displayed like and save state onto p. Untracked
// keys leave p unchanged.
func (t *Toggler) ApplyPost(p *models.Post) {
	if like, ok := t.lookup(LikeKey(p)); ok {
		p.LikedByMe, p.LikeCount = like.Active, like.Count
	}
	if save, ok := t.lookup(SaveKey(p)); ok {
		p.SavedByMe = save.Active
	}
}
