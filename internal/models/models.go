// ABOUTME: Core data models for users, posts, comments, and pagination.
// ABOUTME: Mirrors the JSON shapes returned by the Sociality API.
package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// User is a Sociality account as returned by /me and /users endpoints.
// The logged-in user's copy doubles as the session profile.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Photo     string `json:"photo,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`

	Followers int `json:"followers,omitempty"`
	Following int `json:"following,omitempty"`
	Likes     int `json:"likes,omitempty"`
	Posts     int `json:"posts,omitempty"`

	// Counts is how GET /users/:username reports the counters.
	Counts UserCounts `json:"counts,omitzero"`

	IsFollowing    bool `json:"isFollowing,omitempty"`
	IsFollowedByMe bool `json:"isFollowedByMe,omitempty"`
}

// UserCounts is the nested counter block on profile responses.
type UserCounts struct {
	Posts     int `json:"post"`
	Followers int `json:"followers"`
	Following int `json:"following"`
	Likes     int `json:"likes"`
}

// UnmarshalJSON decodes a user and fills absent flat counters from counts.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = User(p)
	if c := u.Counts; c != (UserCounts{}) {
		if u.Posts == 0 {
			u.Posts = c.Posts
		}
		if u.Followers == 0 {
			u.Followers = c.Followers
		}
		if u.Following == 0 {
			u.Following = c.Following
		}
		if u.Likes == 0 {
			u.Likes = c.Likes
		}
	}
	return nil
}

// FollowedByMe reports whether the current session follows this user.
// Older API builds send isFollowedByMe instead of isFollowing.
func (u *User) FollowedByMe() bool {
	return u.IsFollowing || u.IsFollowedByMe
}

// Avatar returns the best available avatar reference.
func (u *User) Avatar() string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	return u.Photo
}

// Handle returns "@username", falling back to the display name.
func (u *User) Handle() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.Name
}

// Author is the embedded author summary on posts and comments.
type Author struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Post is a single image post with its engagement flags.
type Post struct {
	ID           int64     `json:"id"`
	ImageURL     string    `json:"imageUrl"`
	Caption      string    `json:"caption"`
	CreatedAt    time.Time `json:"createdAt"`
	Author       Author    `json:"author"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	LikedByMe    bool      `json:"likedByMe"`
	SavedByMe    bool      `json:"savedByMe"`
}

// Key returns the post ID in the string form used by engagement keys.
func (p *Post) Key() string {
	return strconv.FormatInt(p.ID, 10)
}

// Comment is a comment on a post.
type Comment struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"author"`
}

// Pagination is the optional paging block on list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is one page of a paginated list.
type Page[T any] struct {
	Items      []T
	Pagination *Pagination
}

// Total returns the server-reported total, or the page length when absent.
func (p Page[T]) Total() int {
	if p.Pagination != nil {
		return p.Pagination.Total
	}
	return len(p.Items)
}

// ProfileOverview aggregates everything the profile screen shows.
type ProfileOverview struct {
	User           *User
	FollowerCount  int
	FollowingCount int
	Posts          []Post
	Liked          []Post
}
