// ABOUTME: Interactive TUI wizard for signing in to a Sociality account.
// ABOUTME: 2-step bubbletea model collecting email and password, then authenticating.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/sociality/internal/models"
)

// Step represents the current wizard step.
type Step int

const (
	StepEmail Step = iota
	StepPassword
	StepAuthenticating
	StepDone
	StepFailed
)

// loginResultMsg carries the result of an async login attempt.
type loginResultMsg struct {
	user *models.User
	err  error
}

// LoginFn performs the login and records the session.
type LoginFn func(ctx context.Context, email, password string) (*models.User, error)

// cancelHolder shares a cancel function across bubbletea model copies.
// This MUST be stored as a pointer field on the model so that value-receiver
// methods (required by tea.Model) can store the cancel func and have it
// visible to all copies of the model.
type cancelHolder struct {
	cancel context.CancelFunc
}

// LoginModel is the bubbletea model for the login wizard.
type LoginModel struct {
	step      Step
	inputs    [2]textinput.Model
	spinner   spinner.Model
	loginFn   LoginFn
	cancelCtx *cancelHolder
	loginErr  error
	user      *models.User
	quitting  bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NewLoginModel creates a login wizard, pre-filling the email if known.
func NewLoginModel(email string, fn LoginFn) LoginModel {
	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.Focus()
	emailInput.Width = 50
	if email != "" {
		emailInput.SetValue(email)
	}

	passwordInput := textinput.New()
	passwordInput.Placeholder = "password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.Width = 50

	s := spinner.New()
	s.Spinner = spinner.Dot

	return LoginModel{
		step:      StepEmail,
		inputs:    [2]textinput.Model{emailInput, passwordInput},
		spinner:   s,
		loginFn:   fn,
		cancelCtx: &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		}

		switch m.step {
		case StepEmail, StepPassword:
			return m.updateInput(msg)
		case StepFailed:
			return m.updateFailed(msg)
		}

	case loginResultMsg:
		m.cancelCtx.cancel = nil
		if msg.err == nil {
			m.user = msg.user
			m.step = StepDone
			return m, tea.Quit
		}
		m.loginErr = msg.err
		m.step = StepFailed
		return m, nil

	case spinner.TickMsg:
		if m.step == StepAuthenticating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m LoginModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		idx := int(m.step)
		m.inputs[idx].SetValue(strings.TrimSpace(m.inputs[idx].Value()))

		// Don't advance on empty fields
		if m.inputs[idx].Value() == "" {
			return m, nil
		}
		if m.step == StepEmail && !strings.Contains(m.inputs[0].Value(), "@") {
			return m, nil
		}

		m.inputs[idx].Blur()

		switch m.step {
		case StepEmail:
			m.step = StepPassword
			m.inputs[1].Focus()
			return m, textinput.Blink
		case StepPassword:
			m.step = StepAuthenticating
			return m, tea.Batch(m.startLogin(), m.spinner.Tick)
		}
	}

	// Forward to the active input
	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m LoginModel) updateFailed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes {
		switch msg.Runes[0] {
		case 'r':
			m.step = StepAuthenticating
			m.loginErr = nil
			return m, tea.Batch(m.startLogin(), m.spinner.Tick)
		case 'e':
			m.step = StepEmail
			m.loginErr = nil
			m.inputs[1].SetValue("")
			m.inputs[0].Focus()
			return m, textinput.Blink
		case 'q':
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m LoginModel) startLogin() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelCtx.cancel = cancel
	email := m.inputs[0].Value()
	password := m.inputs[1].Value()
	fn := m.loginFn
	return func() tea.Msg {
		user, err := fn(ctx, email, password)
		return loginResultMsg{user: user, err: err}
	}
}

// View implements tea.Model.
func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   SOCIALITY"))
	b.WriteString(titleStyle.Render(" - Sign in"))
	b.WriteString("\n\n")

	switch m.step {
	case StepEmail:
		b.WriteString(stepStyle.Render("Step 1 of 2: Email"))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case StepPassword:
		b.WriteString(fmt.Sprintf("  Email: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 2: Password"))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case StepAuthenticating:
		b.WriteString(fmt.Sprintf("  Email: %s\n\n", m.inputs[0].Value()))
		b.WriteString(m.spinner.View())
		b.WriteString(" Signing in...")
		b.WriteString("\n")

	case StepDone:
		name := ""
		if m.user != nil {
			name = " as " + m.user.Handle()
		}
		b.WriteString(successStyle.Render("✓ Signed in" + name))
		b.WriteString("\n")

	case StepFailed:
		errMsg := "unknown error"
		if m.loginErr != nil {
			errMsg = m.loginErr.Error()
		}
		b.WriteString(errorStyle.Render(fmt.Sprintf("✗ Login failed: %s", errMsg)))
		b.WriteString("\n\n")
		b.WriteString(promptStyle.Render("[r]etry  [e]dit  [q]uit"))
		b.WriteString("\n")
	}

	return b.String()
}

// User returns the signed-in user, or nil if the wizard did not succeed.
func (m LoginModel) User() *models.User {
	if m.step != StepDone || m.quitting {
		return nil
	}
	return m.user
}

// Succeeded reports whether the login completed and was not cancelled.
func (m LoginModel) Succeeded() bool {
	return m.step == StepDone && !m.quitting
}
