// internal/tui/chat.go
//
// Interactive chat over the council. It uses bubbletea, which follows The
// Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// Each submitted question fans out to the council in the background; the
// view keeps accepting input and shows a spinner until the deliberation
// settles.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/magi-council/internal/council"
	"github.com/kingrea/magi-council/internal/judge"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	memberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Asker is the slice of the council the chat needs. Implemented by
// *council.System.
type Asker interface {
	Ask(ctx context.Context, sessionID, query string) (council.Result, error)
	Size() int
}

type deliberationMsg struct {
	result council.Result
	err    error
}

// Chat is the bubbletea model for the interactive council session.
type Chat struct {
	system    Asker
	sessionID string
	onResult  func(council.Result)

	input    textinput.Model
	view     viewport.Model
	spin     spinner.Model
	lines    []string
	thinking bool
	ready    bool
	width    int
	height   int
}

// ChatOption customizes the chat model.
type ChatOption func(*Chat)

// WithResultSink registers a callback invoked for every completed
// deliberation, e.g. to auto-save results.
func WithResultSink(sink func(council.Result)) ChatOption {
	return func(c *Chat) { c.onResult = sink }
}

// NewChat builds the chat model for one session.
func NewChat(system Asker, sessionID string, opts ...ChatOption) *Chat {
	input := textinput.New()
	input.Placeholder = "Ask the council..."
	input.Focus()
	input.CharLimit = 2000

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	chat := &Chat{
		system:    system,
		sessionID: sessionID,
		input:     input,
		spin:      spin,
		lines: []string{
			titleStyle.Render("MAGI COUNCIL") + helpStyle.Render(fmt.Sprintf("  %d members · session %s", system.Size(), sessionID)),
			helpStyle.Render("Type a question and press enter. Esc or ctrl+c quits."),
			"",
		},
	}
	for _, opt := range opts {
		opt(chat)
	}
	return chat
}

// Init starts the spinner ticking.
func (c *Chat) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, c.spin.Tick)
}

// Update handles one message and returns the next model state.
func (c *Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		viewHeight := msg.Height - 4
		if viewHeight < 3 {
			viewHeight = 3
		}
		if !c.ready {
			c.view = viewport.New(msg.Width, viewHeight)
			c.ready = true
		} else {
			c.view.Width = msg.Width
			c.view.Height = viewHeight
		}
		c.input.Width = msg.Width - 4
		c.refresh()
		return c, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return c, tea.Quit
		case tea.KeyEnter:
			query := strings.TrimSpace(c.input.Value())
			if query == "" || c.thinking {
				return c, nil
			}
			c.input.Reset()
			c.thinking = true
			c.appendLine(questionStyle.Render("You: ") + query)
			c.appendLine("")
			return c, tea.Batch(c.deliberate(query), c.spin.Tick)
		}

	case deliberationMsg:
		c.thinking = false
		if msg.err != nil {
			c.appendLine(errorStyle.Render("council error: ") + msg.err.Error())
		}
		c.renderResult(msg.result)
		if c.onResult != nil && msg.err == nil {
			c.onResult(msg.result)
		}
		return c, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		c.spin, cmd = c.spin.Update(msg)
		return c, cmd
	}

	var inputCmd, viewCmd tea.Cmd
	c.input, inputCmd = c.input.Update(msg)
	c.view, viewCmd = c.view.Update(msg)
	return c, tea.Batch(inputCmd, viewCmd)
}

// View renders the transcript, status line, and input prompt.
func (c *Chat) View() string {
	if !c.ready {
		return "starting..."
	}
	status := ""
	if c.thinking {
		status = c.spin.View() + memberStyle.Render(" the council is deliberating...")
	}
	return fmt.Sprintf("%s\n%s\n%s", c.view.View(), status, c.input.View())
}

func (c *Chat) deliberate(query string) tea.Cmd {
	return func() tea.Msg {
		result, err := c.system.Ask(context.Background(), c.sessionID, query)
		return deliberationMsg{result: result, err: err}
	}
}

func (c *Chat) renderResult(result council.Result) {
	for _, score := range result.Evaluation.Scores {
		c.appendLine(memberStyle.Render(fmt.Sprintf("  %s · %d/%d · %s", score.Agent, score.Score, judge.MaxScore, score.Rationale)))
	}
	for _, resp := range result.Responses {
		if !resp.Success {
			c.appendLine(memberStyle.Render(fmt.Sprintf("  %s · failed · %s", resp.Agent, resp.Err)))
		}
	}
	if result.FinalAnswer != "" {
		c.appendLine("")
		c.appendLine(answerStyle.Render(result.FinalAnswer))
	}
	c.appendLine("")
}

func (c *Chat) appendLine(line string) {
	c.lines = append(c.lines, line)
	c.refresh()
}

func (c *Chat) refresh() {
	if !c.ready {
		return
	}
	c.view.SetContent(strings.Join(c.lines, "\n"))
	c.view.GotoBottom()
}
