// ABOUTME: Plain-text rendering of posts, users, and comments for CLI output.
// ABOUTME: Also parses post IDs, usernames, and file paths from arguments.
package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/2389-research/sociality/internal/config"
	"github.com/2389-research/sociality/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

func printPosts(w io.Writer, posts []models.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts found.")
		return
	}
	for i := range posts {
		printPost(w, &posts[i])
	}
}

func printPost(w io.Writer, p *models.Post) {
	fmt.Fprintf(w, "--- #%d @%s [%s]\n", p.ID, p.Author.Username, p.CreatedAt.Local().Format(timeLayout))
	if p.Caption != "" {
		fmt.Fprintln(w, p.Caption)
	}
	if p.ImageURL != "" {
		fmt.Fprintln(w, p.ImageURL)
	}
	heart := "♡"
	if p.LikedByMe {
		heart = "♥"
	}
	saved := ""
	if p.SavedByMe {
		saved = "  saved"
	}
	fmt.Fprintf(w, "%s %d  comments %d%s\n\n", heart, p.LikeCount, p.CommentCount, saved)
}

func printUser(w io.Writer, u *models.User) {
	fmt.Fprintf(w, "%s (%s)\n", u.Name, u.Handle())
	if u.Email != "" {
		fmt.Fprintf(w, "email: %s\n", u.Email)
	}
	if u.Bio != "" {
		fmt.Fprintf(w, "bio: %s\n", u.Bio)
	}
	if a := u.Avatar(); a != "" {
		fmt.Fprintf(w, "avatar: %s\n", a)
	}
	fmt.Fprintf(w, "followers: %d  following: %d  posts: %d\n", u.Followers, u.Following, u.Posts)
	if u.FollowedByMe() {
		fmt.Fprintln(w, "you follow this user")
	}
}

func printUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}
	for i := range users {
		u := &users[i]
		mark := ""
		if u.FollowedByMe() {
			mark = "  (following)"
		}
		fmt.Fprintf(w, "%-20s %s%s\n", u.Handle(), u.Name, mark)
	}
}

func printComments(w io.Writer, comments []models.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments.")
		return
	}
	for _, c := range comments {
		fmt.Fprintf(w, "--- #%d @%s [%s]\n%s\n\n", c.ID, c.Author.Username, c.CreatedAt.Local().Format(timeLayout), c.Text)
	}
}

func printMore(w io.Writer, page, shown, limit int) {
	if shown >= limit {
		fmt.Fprintf(w, "(more available: --page %d)\n", page+1)
	}
}

// parseID accepts "42" or "#42".
func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q", kind, s)
	}
	return id, nil
}

// parseUsername accepts "ada" or "@ada".
func parseUsername(s string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(s), "@")
	if name == "" {
		return "", fmt.Errorf("username is required")
	}
	return name, nil
}

func expandFile(path string) (string, error) {
	return config.ExpandPath(path)
}
