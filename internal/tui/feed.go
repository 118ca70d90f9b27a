// ABOUTME: Scrollable post browser for the feed, saved posts, and user timelines.
// ABOUTME: Loads pages as the cursor nears the end and toggles likes/saves optimistically.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/sociality/internal/engage"
	"github.com/2389-research/sociality/internal/models"
	"github.com/2389-research/sociality/internal/paging"
)

// loadThreshold is how many rows from the end the next page is requested.
const loadThreshold = 3

// rowsPerPost is the rendered height of one post.
const rowsPerPost = 4

type pageMsg struct {
	items []models.Post
	err   error
}

type changeMsg engage.Change

var (
	authorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	likedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// FeedModel is the bubbletea model for browsing a list of posts.
type FeedModel struct {
	title   string
	loader  *paging.Loader[models.Post]
	toggler *engage.Toggler
	ctx     context.Context
	cancel  context.CancelFunc
	spinner spinner.Model

	cursor   int
	offset   int
	height   int
	width    int
	status   string
	loadErr  error
	loaded   bool
	quitting bool

	dropUnsaved bool
}

// FeedOption configures a FeedModel.
type FeedOption func(*FeedModel)

// WithDropUnsaved removes a post from the list once its unsave is confirmed,
// for browsing the saved collection.
func WithDropUnsaved() FeedOption {
	return func(m *FeedModel) {
		m.dropUnsaved = true
	}
}

// NewFeedModel creates a browser over loader. The toggler must be the one
// whose Changes channel nobody else drains.
func NewFeedModel(ctx context.Context, title string, loader *paging.Loader[models.Post], toggler *engage.Toggler, opts ...FeedOption) FeedModel {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot
	m := FeedModel{
		title:   title,
		loader:  loader,
		toggler: toggler,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
		height:  24,
		width:   80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init implements tea.Model.
func (m FeedModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(false), m.waitForChange())
}

func (m FeedModel) fetch(refresh bool) tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		var items []models.Post
		var err error
		if refresh {
			items, err = loader.Refresh(ctx)
		} else {
			items, err = loader.Next(ctx)
		}
		return pageMsg{items: items, err: err}
	}
}

func (m FeedModel) waitForChange() tea.Cmd {
	ch, ctx := m.toggler.Changes(), m.ctx
	return func() tea.Msg {
		select {
		case c := <-ch:
			return changeMsg(c)
		case <-ctx.Done():
			return nil
		}
	}
}

// Update implements tea.Model.
func (m FeedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height, m.width = msg.Height, msg.Width
		m.clampOffset()
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case pageMsg:
		return m.updatePage(msg)

	case changeMsg:
		m.updateChange(engage.Change(msg))
		return m, m.waitForChange()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m FeedModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		m.cancel()
		return m, tea.Quit
	case "j", "down":
		if m.cursor < m.loader.Len()-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		if n := m.loader.Len(); n > 0 {
			m.cursor = n - 1
		}
	case "l":
		m.toggle(engage.LikeKey)
		return m, nil
	case "s":
		m.toggle(engage.SaveKey)
		return m, nil
	case "r":
		m.cursor, m.offset = 0, 0
		m.status = ""
		m.loadErr = nil
		return m, m.fetch(true)
	default:
		return m, nil
	}
	m.clampOffset()
	return m, m.maybeLoadMore()
}

func (m *FeedModel) toggle(keyFor func(*models.Post) engage.Key) {
	items := m.loader.Items()
	if m.cursor >= len(items) {
		return
	}
	m.status = ""
	if _, err := m.toggler.Toggle(m.ctx, keyFor(&items[m.cursor])); err != nil {
		m.status = err.Error()
	}
}

// updateChange folds a settled toggle into the loaded posts.
func (m *FeedModel) updateChange(c engage.Change) {
	if c.Err != nil {
		m.status = fmt.Sprintf("could not %s: %v", describeKey(c.Key, c.State), c.Err)
		return
	}
	if c.Key.Kind != engage.KindLike && c.Key.Kind != engage.KindSave {
		return
	}
	if m.dropUnsaved && c.Key.Kind == engage.KindSave && !c.State.Active {
		m.loader.Remove(func(p models.Post) bool { return p.Key() == c.Key.ID })
		if n := m.loader.Len(); m.cursor >= n {
			m.cursor = max(n-1, 0)
		}
		m.clampOffset()
		return
	}
	m.loader.Update(func(items []models.Post) {
		for i := range items {
			if items[i].Key() == c.Key.ID {
				m.toggler.ApplyPost(&items[i])
			}
		}
	})
}

func (m FeedModel) updatePage(msg pageMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.loaded = true
		m.loadErr = nil
		for i := range msg.items {
			m.toggler.TrackPost(&msg.items[i])
		}
		if n := m.loader.Len(); m.cursor >= n && n > 0 {
			m.cursor = n - 1
		}
		m.clampOffset()
	case errors.Is(msg.err, paging.ErrBusy), errors.Is(msg.err, paging.ErrStale):
	case errors.Is(msg.err, paging.ErrExhausted):
		m.loaded = true
	case errors.Is(msg.err, context.Canceled):
	default:
		m.loaded = true
		m.loadErr = msg.err
		m.status = fmt.Sprintf("failed to load posts: %v (press r to retry, j to try the next page again)", msg.err)
	}
	return m, nil
}

func (m FeedModel) maybeLoadMore() tea.Cmd {
	if !m.loader.HasMore() || m.loader.Fetching() {
		return nil
	}
	if !paging.NearBottom(m.cursor, 1, m.loader.Len(), loadThreshold) {
		return nil
	}
	return m.fetch(false)
}

func (m FeedModel) visiblePosts() int {
	n := (m.height - 4) / rowsPerPost
	if n < 1 {
		n = 1
	}
	return n
}

func (m *FeedModel) clampOffset() {
	visible := m.visiblePosts()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View implements tea.Model.
func (m FeedModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	items := m.loader.Items()
	switch {
	case len(items) == 0 && !m.loaded:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading...\n")
	case len(items) == 0 && m.loadErr == nil:
		b.WriteString(mutedStyle.Render("No posts yet."))
		b.WriteString("\n")
	}

	end := m.offset + m.visiblePosts()
	if end > len(items) {
		end = len(items)
	}
	for i := m.offset; i < end; i++ {
		p := items[i]
		m.toggler.ApplyPost(&p)
		b.WriteString(m.renderPost(&p, i == m.cursor))
	}

	if len(items) > 0 && m.loader.Fetching() {
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading more...\n")
	} else if len(items) > 0 && !m.loader.HasMore() {
		b.WriteString(mutedStyle.Render("  · end ·"))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(promptStyle.Render("j/k move · l like · s save · r refresh · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m FeedModel) renderPost(p *models.Post, selected bool) string {
	marker := "  "
	if selected {
		marker = selectedStyle.Render("▸ ")
	}

	heart := "♡"
	if p.LikedByMe {
		heart = likedStyle.Render("♥")
	}
	saved := ""
	if p.SavedByMe {
		saved = "  " + successStyle.Render("saved")
	}
	pending := ""
	if m.toggler.Pending(engage.LikeKey(p)) || m.toggler.Pending(engage.SaveKey(p)) {
		pending = " " + mutedStyle.Render("…")
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(authorStyle.Render("@" + p.Author.Username))
	if !p.CreatedAt.IsZero() {
		b.WriteString(mutedStyle.Render(" · " + Ago(p.CreatedAt, time.Now())))
	}
	b.WriteString("\n")
	b.WriteString("  ")
	b.WriteString(truncate(oneLine(p.Caption), m.width-4))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %d   comments %d%s%s\n\n", heart, p.LikeCount, p.CommentCount, saved, pending))
	return b.String()
}

// Status returns the current status line.
func (m FeedModel) Status() string {
	return m.status
}

// Cursor returns the selected index.
func (m FeedModel) Cursor() int {
	return m.cursor
}

// Ago renders a coarse relative time.
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func describeKey(k engage.Key, rolledBack engage.State) string {
	verb := string(k.Kind)
	if rolledBack.Active {
		verb = "un" + verb
	}
	return verb + " " + k.ID
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if n <= 1 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
