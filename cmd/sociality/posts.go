// ABOUTME: CLI commands for posts: feed, saved, create/show/delete, engagement, and comments.
// ABOUTME: Like and save go through the optimistic toggler so failures report the rolled-back state.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389-research/sociality/internal/api"
	"github.com/2389-research/sociality/internal/engage"
	"github.com/2389-research/sociality/internal/models"
)

var feedCmd = &cobra.Command{
	Use:         "feed",
	Short:       "Read one page of your feed",
	Annotations: requiresAuth,
	RunE:        runFeed,
}

var savedCmd = &cobra.Command{
	Use:         "saved",
	Short:       "List your saved posts",
	Annotations: requiresAuth,
	RunE:        runSaved,
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create, show, and delete posts",
}

var postCreateCmd = &cobra.Command{
	Use:         "create <image>",
	Short:       "Upload an image post",
	Args:        cobra.ExactArgs(1),
	Annotations: requiresAuth,
	RunE:        runPostCreate,
}

var postShowCmd = &cobra.Command{
	Use:         "show <post-id>",
	Short:       "Show a post and its first page of comments",
	Args:        cobra.ExactArgs(1),
	Annotations: requiresAuth,
	RunE:        runPostShow,
}

var postDeleteCmd = &cobra.Command{
	Use:         "delete <post-id>",
	Short:       "Delete one of your posts",
	Args:        cobra.ExactArgs(1),
	Annotations: requiresAuth,
	RunE:        runPostDelete,
}

var likesCmd = &cobra.Command{
	Use:         "likes <post-id>",
	Short:       "List who liked a post",
	Args:        cobra.ExactArgs(1),
	Annotations: requiresAuth,
	RunE:        runLikes,
}

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Read and write comments",
}

var commentsListCmd = &cobra.Command{
	Use:         "list <post-id>",
	Short:       "List comments on a post",
	Args:        cobra.ExactArgs(1),
	Annotations: requiresAuth,
	RunE:        runCommentsList,
}

var commentsAddCmd = &cobra.Command{
	Use:         "add <post-id> <text>",
	Short:       "Comment on a post",
	Args:        cobra.MinimumNArgs(2),
	Annotations: requiresAuth,
	RunE:        runCommentsAdd,
}

var commentsDeleteCmd = &cobra.Command{
	Use:         "delete <comment-id>",
	Short:       "Delete one of your comments",
	Args:        cobra.ExactArgs(1),
	Annotations: requiresAuth,
	RunE:        runCommentsDelete,
}

// postAction describes one engagement command.
type postAction struct {
	use, short string
	key        func(*models.Post) engage.Key
	want       bool
	done, same string
}

var postActions = []postAction{
	{"like <post-id>", "Like a post", engage.LikeKey, true, "Liked", "already liked"},
	{"unlike <post-id>", "Remove your like from a post", engage.LikeKey, false, "Unliked", "not liked"},
	{"save <post-id>", "Save a post", engage.SaveKey, true, "Saved", "already saved"},
	{"unsave <post-id>", "Remove a post from your saved posts", engage.SaveKey, false, "Unsaved", "not saved"},
}

// Flags
var (
	listPage     int
	listLimit    int
	postCaption  string
	showComments bool
)

func init() {
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(postCmd)
	postCmd.AddCommand(postCreateCmd)
	postCmd.AddCommand(postShowCmd)
	postCmd.AddCommand(postDeleteCmd)
	rootCmd.AddCommand(likesCmd)
	rootCmd.AddCommand(commentsCmd)
	commentsCmd.AddCommand(commentsListCmd)
	commentsCmd.AddCommand(commentsAddCmd)
	commentsCmd.AddCommand(commentsDeleteCmd)

	for _, a := range postActions {
		a := a
		rootCmd.AddCommand(&cobra.Command{
			Use:         a.use,
			Short:       a.short,
			Args:        cobra.ExactArgs(1),
			Annotations: requiresAuth,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPostAction(cmd, args[0], a)
			},
		})
	}

	for _, c := range []*cobra.Command{feedCmd, savedCmd, likesCmd, commentsListCmd} {
		addPageFlags(c)
	}
	postCreateCmd.Flags().StringVarP(&postCaption, "caption", "c", "", "Post caption")
	postShowCmd.Flags().BoolVar(&showComments, "comments", true, "Include the first page of comments")
}

func addPageFlags(c *cobra.Command) {
	c.Flags().IntVar(&listPage, "page", 1, "Page number")
	c.Flags().IntVar(&listLimit, "limit", 0, "Items per page (default from config)")
}

func pageArgs() (int, int) {
	page, limit := listPage, listLimit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = pageSize()
	}
	return page, limit
}

func runFeed(cmd *cobra.Command, args []string) error {
	page, limit := pageArgs()
	p, err := globalClient.Feed(cmd.Context(), page, limit)
	if err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}
	printPosts(os.Stdout, p.Items)
	printMore(os.Stdout, page, len(p.Items), limit)
	return nil
}

func runSaved(cmd *cobra.Command, args []string) error {
	page, limit := pageArgs()
	p, err := globalClient.Saved(cmd.Context(), page, limit)
	if err != nil {
		return fmt.Errorf("failed to load saved posts: %w", err)
	}
	printPosts(os.Stdout, p.Items)
	printMore(os.Stdout, page, len(p.Items), limit)
	return nil
}

func runPostCreate(cmd *cobra.Command, args []string) error {
	path, err := expandFile(args[0])
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	p, err := globalClient.CreatePost(cmd.Context(), api.NewPost{
		Caption:   strings.TrimSpace(postCaption),
		Image:     f,
		ImageName: filepath.Base(path),
	})
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	fmt.Printf("Post created (ID: %d)\n", p.ID)
	return nil
}

func runPostShow(cmd *cobra.Command, args []string) error {
	id, err := parseID("post", args[0])
	if err != nil {
		return err
	}
	p, err := globalClient.Post(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load post %d: %w", id, err)
	}
	printPost(os.Stdout, p)
	if !showComments || p.CommentCount == 0 {
		return nil
	}
	comments, err := globalClient.Comments(cmd.Context(), id, 1, pageSize())
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	printComments(os.Stdout, comments.Items)
	return nil
}

func runPostDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID("post", args[0])
	if err != nil {
		return err
	}
	if err := globalClient.DeletePost(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	fmt.Printf("Deleted post %d\n", id)
	return nil
}

func runPostAction(cmd *cobra.Command, arg string, a postAction) error {
	id, err := parseID("post", arg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	p, err := globalClient.Post(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load post %d: %w", id, err)
	}

	toggler := engage.New(engage.ClientRemote(globalClient), engage.WithLogger(globalLogger.Named("engage")))
	toggler.TrackPost(p)
	key := a.key(p)
	if toggler.State(key).Active == a.want {
		fmt.Printf("Post %d is %s.\n", id, a.same)
		return nil
	}

	optimistic, err := toggler.Toggle(ctx, key)
	if err != nil {
		return err
	}
	globalLogger.Debug("optimistic state", zap.String("key", key.ID), zap.Bool("active", optimistic.Active), zap.Int("count", optimistic.Count))
	if err := settle(toggler, key); err != nil {
		return fmt.Errorf("failed to update post %d: %w", id, err)
	}

	final := toggler.State(key)
	if key.Kind.Counted() {
		fmt.Printf("%s post %d (%d likes)\n", a.done, id, final.Count)
	} else {
		fmt.Printf("%s post %d\n", a.done, id)
	}
	return nil
}

// settle waits for the key's request and returns the error that caused a
// rollback, if any.
func settle(t *engage.Toggler, key engage.Key) error {
	t.Wait()
	for {
		select {
		case c := <-t.Changes():
			if c.Key == key && c.Err != nil {
				return c.Err
			}
		default:
			return nil
		}
	}
}

func runLikes(cmd *cobra.Command, args []string) error {
	id, err := parseID("post", args[0])
	if err != nil {
		return err
	}
	page, limit := pageArgs()
	p, err := globalClient.PostLikes(cmd.Context(), id, page, limit)
	if err != nil {
		return fmt.Errorf("failed to load likes: %w", err)
	}
	printUsers(os.Stdout, p.Items)
	printMore(os.Stdout, page, len(p.Items), limit)
	return nil
}

func runCommentsList(cmd *cobra.Command, args []string) error {
	id, err := parseID("post", args[0])
	if err != nil {
		return err
	}
	page, limit := pageArgs()
	p, err := globalClient.Comments(cmd.Context(), id, page, limit)
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	printComments(os.Stdout, p.Items)
	printMore(os.Stdout, page, len(p.Items), limit)
	return nil
}

func runCommentsAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID("post", args[0])
	if err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	c, err := globalClient.AddComment(cmd.Context(), id, text)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	fmt.Printf("Comment added (ID: %d)\n", c.ID)
	return nil
}

func runCommentsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID("comment", args[0])
	if err != nil {
		return err
	}
	if err := globalClient.DeleteComment(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete comment %d: %w", id, err)
	}
	fmt.Printf("Deleted comment %d\n", id)
	return nil
}
