// ABOUTME: Full-screen post browser over the feed, saved posts, or a user's timeline.
// ABOUTME: Pages load as the cursor nears the end; likes and saves toggle optimistically.
package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389-research/sociality/internal/engage"
	"github.com/2389-research/sociality/internal/models"
	"github.com/2389-research/sociality/internal/paging"
	"github.com/2389-research/sociality/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:         "browse",
	Short:       "Browse posts interactively",
	Long:        "Scroll through your feed (default), saved posts, or a user's posts. Press l to like, s to save, r to refresh.",
	Annotations: interactiveAuthed,
	RunE:        runBrowse,
}

var (
	browseSaved bool
	browseUser  string
)

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().BoolVar(&browseSaved, "saved", false, "Browse your saved posts")
	browseCmd.Flags().StringVar(&browseUser, "user", "", "Browse a user's posts")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	title, fetch, err := browseSource()
	if err != nil {
		return err
	}

	// Pick up logins and logouts made from other processes.
	go func() {
		if err := globalSession.Watch(ctx, globalStore); err != nil {
			globalLogger.Warn("session watch stopped", zap.Error(err))
		}
	}()

	loader := paging.New(fetch, pageSize(), globalLogger.Named("paging"))
	toggler := engage.New(engage.ClientRemote(globalClient), engage.WithLogger(globalLogger.Named("engage")))

	var opts []tui.FeedOption
	if browseSaved {
		opts = append(opts, tui.WithDropUnsaved())
	}
	p := tea.NewProgram(tui.NewFeedModel(ctx, title, loader, toggler, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	toggler.Wait()
	return nil
}

func browseSource() (string, paging.FetchFunc[models.Post], error) {
	switch {
	case browseSaved && browseUser != "":
		return "", nil, fmt.Errorf("--saved and --user cannot be combined")
	case browseSaved:
		return "Saved", paging.FromPages(globalClient.Saved), nil
	case browseUser != "":
		name, err := parseUsername(browseUser)
		if err != nil {
			return "", nil, err
		}
		return "@" + name, paging.FromPages(func(ctx context.Context, page, limit int) (models.Page[models.Post], error) {
			return globalClient.UserPosts(ctx, name, page, limit)
		}), nil
	default:
		return "Feed", paging.FromPages(globalClient.Feed), nil
	}
}
