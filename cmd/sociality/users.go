// ABOUTME: CLI commands for people: profiles, timelines, follow lists, follow/unfollow, and explore.
// ABOUTME: Profiles load through the parallel overview call; follows go through the toggler.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/sociality/internal/engage"
	"github.com/2389-research/sociality/internal/models"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "View profiles and follow lists",
}

var userShowCmd = &cobra.Command{
	Use:         "show [username]",
	Short:       "Show a profile (defaults to you)",
	Args:        cobra.MaximumNArgs(1),
	Annotations: requiresAuth,
	RunE:        runUserShow,
}

var followCmd = &cobra.Command{
	Use:         "follow <username>",
	Short:       "Follow a user",
	Args:        cobra.ExactArgs(1),
	Annotations: requiresAuth,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFollow(cmd, args[0], true)
	},
}

var unfollowCmd = &cobra.Command{
	Use:         "unfollow <username>",
	Short:       "Stop following a user",
	Args:        cobra.ExactArgs(1),
	Annotations: requiresAuth,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFollow(cmd, args[0], false)
	},
}

var exploreCmd = &cobra.Command{
	Use:         "explore [query]",
	Short:       "Search people, or browse recent posts when no query is given",
	Annotations: requiresAuth,
	RunE:        runExplore,
}

// userList describes a paged list subcommand of "user".
type userList struct {
	name, short string
	posts       func(cmd *cobra.Command, username string, page, limit int) ([]models.Post, error)
	users       func(cmd *cobra.Command, username string, page, limit int) ([]models.User, error)
}

var userLists = []userList{
	{name: "posts", short: "List a user's posts", posts: func(cmd *cobra.Command, u string, page, limit int) ([]models.Post, error) {
		p, err := globalClient.UserPosts(cmd.Context(), u, page, limit)
		return p.Items, err
	}},
	{name: "likes", short: "List posts a user liked", posts: func(cmd *cobra.Command, u string, page, limit int) ([]models.Post, error) {
		p, err := globalClient.UserLikes(cmd.Context(), u, page, limit)
		return p.Items, err
	}},
	{name: "followers", short: "List a user's followers", users: func(cmd *cobra.Command, u string, page, limit int) ([]models.User, error) {
		p, err := globalClient.UserFollowers(cmd.Context(), u, page, limit)
		return p.Items, err
	}},
	{name: "following", short: "List who a user follows", users: func(cmd *cobra.Command, u string, page, limit int) ([]models.User, error) {
		p, err := globalClient.UserFollowing(cmd.Context(), u, page, limit)
		return p.Items, err
	}},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userShowCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(unfollowCmd)
	rootCmd.AddCommand(exploreCmd)
	addPageFlags(exploreCmd)

	for _, l := range userLists {
		l := l
		c := &cobra.Command{
			Use:         l.name + " [username]",
			Short:       l.short + " (defaults to you)",
			Args:        cobra.MaximumNArgs(1),
			Annotations: requiresAuth,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runUserList(cmd, args, l)
			},
		}
		addPageFlags(c)
		userCmd.AddCommand(c)
	}
}

// targetUser resolves an optional username argument, falling back to the
// signed-in user.
func targetUser(args []string) (string, error) {
	if len(args) == 1 {
		return parseUsername(args[0])
	}
	if p := globalSession.Profile(); p != nil && p.Username != "" {
		return p.Username, nil
	}
	return "", fmt.Errorf("no username given and the stored profile has none; run 'sociality whoami' to refresh it")
}

func runUserShow(cmd *cobra.Command, args []string) error {
	name, err := targetUser(args)
	if err != nil {
		return err
	}
	ov, err := globalClient.ProfileOverview(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to load @%s: %w", name, err)
	}

	u := *ov.User
	u.Followers, u.Following = ov.FollowerCount, ov.FollowingCount
	u.Posts = len(ov.Posts)
	printUser(os.Stdout, &u)
	fmt.Printf("liked posts: %d\n\n", len(ov.Liked))

	if len(ov.Posts) > 0 {
		fmt.Println("Recent posts:")
		printPosts(os.Stdout, ov.Posts)
	}
	return nil
}

func runUserList(cmd *cobra.Command, args []string, l userList) error {
	name, err := targetUser(args)
	if err != nil {
		return err
	}
	page, limit := pageArgs()
	var n int
	if l.posts != nil {
		items, err := l.posts(cmd, name, page, limit)
		if err != nil {
			return fmt.Errorf("failed to load %s of @%s: %w", l.name, name, err)
		}
		printPosts(os.Stdout, items)
		n = len(items)
	} else {
		items, err := l.users(cmd, name, page, limit)
		if err != nil {
			return fmt.Errorf("failed to load %s of @%s: %w", l.name, name, err)
		}
		printUsers(os.Stdout, items)
		n = len(items)
	}
	printMore(os.Stdout, page, n, limit)
	return nil
}

func runFollow(cmd *cobra.Command, arg string, want bool) error {
	name, err := parseUsername(arg)
	if err != nil {
		return err
	}
	if p := globalSession.Profile(); p != nil && strings.EqualFold(p.Username, name) {
		return fmt.Errorf("you cannot follow yourself")
	}
	ctx := cmd.Context()
	u, err := globalClient.User(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load @%s: %w", name, err)
	}

	toggler := engage.New(engage.ClientRemote(globalClient), engage.WithLogger(globalLogger.Named("engage")))
	toggler.TrackUser(u)
	key := engage.FollowKey(u.Username)
	if toggler.State(key).Active == want {
		if want {
			fmt.Printf("Already following @%s\n", name)
		} else {
			fmt.Printf("Not following @%s\n", name)
		}
		return nil
	}

	if _, err := toggler.Toggle(ctx, key); err != nil {
		return err
	}
	if err := settle(toggler, key); err != nil {
		return fmt.Errorf("failed to update follow for @%s: %w", name, err)
	}
	if want {
		fmt.Printf("Now following @%s (%d followers)\n", name, toggler.State(key).Count)
	} else {
		fmt.Printf("No longer following @%s (%d followers)\n", name, toggler.State(key).Count)
	}
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	page, limit := pageArgs()
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		p, err := globalClient.Feed(cmd.Context(), page, limit)
		if err != nil {
			return fmt.Errorf("failed to load posts: %w", err)
		}
		printPosts(os.Stdout, p.Items)
		printMore(os.Stdout, page, len(p.Items), limit)
		return nil
	}

	p, err := globalClient.SearchUsers(cmd.Context(), q, page, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	printUsers(os.Stdout, p.Items)
	printMore(os.Stdout, page, len(p.Items), limit)
	return nil
}
