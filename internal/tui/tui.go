package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/dice"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/pacing"
)

type sessionState int

const (
	stateInputHint sessionState = iota
	stateLoading
	statePlaying
	stateError
)

// Game is what the play screen needs from the engine.
type Game interface {
	Initialize(ctx context.Context, sessionID string, setting models.Setting) (engine.TurnResult, error)
	ExecuteTurn(ctx context.Context, sessionID string, snap checkpoint.Snapshot, input string) (engine.TurnResult, error)
}

type model struct {
	state       sessionState
	game        Game
	roller      *dice.Roller
	sessionID   string
	setting     models.Setting
	snap        checkpoint.Snapshot
	suggestions []string
	textInput   textinput.Model
	viewport    viewport.Model
	err         error
	gameLog     string
	width       int
	height      int
	busy        bool
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	mechanicsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AFAF"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF5F")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

// Options configures the play screen.
type Options struct {
	SessionID string
	Setting   models.Setting

	// Resumed, when set, skips the hint prompt and continues Resumed.Snapshot.
	Resumed *engine.TurnResult
	Roller  *dice.Roller
}

func newModel(game Game, opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter a hint or 'random'..."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	roller := opts.Roller
	if roller == nil {
		roller = dice.NewRoller(nil)
	}
	m := model{
		state:     stateInputHint,
		game:      game,
		roller:    roller,
		sessionID: opts.SessionID,
		setting:   opts.Setting,
		textInput: ti,
		viewport:  viewport.New(80, 20),
	}
	if opts.Resumed != nil {
		m = m.begin(*opts.Resumed, "Welcome back.")
	}
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type sessionReadyMsg struct {
	result engine.TurnResult
	err    error
}

type turnProcessedMsg struct {
	result engine.TurnResult
	err    error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.state == stateInputHint {
				hint := strings.TrimSpace(m.textInput.Value())
				if hint == "" {
					hint = "random"
				}
				m.setting.Hint = hint
				m.state = stateLoading
				m.textInput.Reset()
				return m, m.initialize()
			}
			if m.state == statePlaying && !m.busy {
				return m.submit(m.textInput.Value())
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		if m.state == statePlaying {
			m.viewport.SetContent(m.gameLog)
		}

	case sessionReadyMsg:
		if msg.err != nil && !engine.IsWarning(msg.err) {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m = m.begin(msg.result, "")
		if msg.err != nil {
			m.appendLog(warnStyle.Render(engine.Explain(msg.err)))
		}
		return m, nil

	case turnProcessedMsg:
		m.busy = false
		if msg.err != nil && !engine.IsWarning(msg.err) {
			m.appendLog(warnStyle.Width(m.logWidth()).Render(engine.Explain(msg.err)))
			return m, nil
		}
		m.snap = msg.result.Snapshot
		m.suggestions = msg.result.Metrics.Suggestions
		if line := mechanics(msg.result.Metrics); line != "" {
			m.appendLog(mechanicsStyle.Width(m.logWidth()).Render(line))
		}
		m.appendLog(gameStyle.Width(m.logWidth()).Render(msg.result.Metrics.Narrative))
		if msg.err != nil {
			m.appendLog(warnStyle.Render(engine.Explain(msg.err)))
		}
		if msg.result.Metrics.ExitRequested {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.state == stateInputHint || m.state == statePlaying {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// submit handles one line typed while playing.
func (m model) submit(action string) (tea.Model, tea.Cmd) {
	action = strings.TrimSpace(action)
	m.textInput.Reset()

	switch {
	case action == "/quit":
		return m, tea.Quit
	case action == "/restart":
		m.state = stateInputHint
		m.gameLog = ""
		m.suggestions = nil
		m.textInput.Placeholder = "Enter a hint or 'random'..."
		return m, nil
	case strings.HasPrefix(action, "/roll"):
		expr := strings.TrimSpace(strings.TrimPrefix(action, "/roll"))
		if expr == "" {
			expr = "1d20"
		}
		res, err := m.roller.RollExpression(expr)
		if err != nil {
			m.appendLog(warnStyle.Render(err.Error()))
		} else {
			m.appendLog(mechanicsStyle.Render(res.String()))
		}
		return m, nil
	}

	if n, err := strconv.Atoi(action); err == nil && n >= 1 && n <= len(m.suggestions) {
		action = m.suggestions[n-1]
	}
	shown := action
	if shown == "" {
		shown = engine.IdleInput
	}
	m.appendLog(userStyle.Width(m.logWidth()).Render("> " + shown))
	m.busy = true
	return m, m.processTurn(action)
}

// begin switches to the play screen with result's snapshot.
func (m model) begin(result engine.TurnResult, greeting string) model {
	m.snap = result.Snapshot
	m.suggestions = result.Metrics.Suggestions
	m.state = statePlaying

	header := ""
	if n := m.snap.State.Narrative; n != nil {
		header = gameStyle.Bold(true).Render(n.Title) + "\n\n"
	}
	m.gameLog = header
	if greeting != "" {
		m.gameLog += helpStyle.Render(greeting) + "\n\n"
	}
	m.gameLog += gameStyle.Width(m.logWidth()).Render(result.Metrics.Narrative) + "\n\n"

	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
	m.textInput.Placeholder = "What do you do?"
	m.textInput.Reset()
	return m
}

func (m *model) appendLog(s string) {
	m.gameLog += s + "\n\n"
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.70)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateInputHint:
		s = fmt.Sprintf(
			"Welcome to Dungeon Master!\n\n%s\n\n%s",
			"Give me a hint about the adventure you want to play:",
			m.textInput.View(),
		)

	case stateLoading:
		s = "\n  Building your world... please wait.\n"

	case statePlaying:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		help := helpStyle.Render("Commands: /roll 2d6, /restart, /quit, a suggestion number, or just type what you want to do.")
		if m.busy {
			help = helpStyle.Render("The dice are rolling...")
		}
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.textInput.View(),
			"\n"+help,
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %s\n\n  %v\n\nPress Esc to quit.", engine.Explain(m.err), m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	state := m.snap.State
	var b strings.Builder

	player, ok := state.ActivePlayer()
	if loc, found := state.Location(playerLocation(player, ok)); found {
		b.WriteString(titleStyle.Render("LOCATION") + "\n" + loc.Name + "\n\n")
	}

	b.WriteString(titleStyle.Render("SCENE") + "\n")
	fmt.Fprintf(&b, "%s (turn %d)\n", state.Metadata.SceneID, state.Metadata.Turn)
	if n := len(m.snap.Pacing.Trajectory); n > 0 {
		b.WriteString(pacing.Band(m.snap.Pacing.Trajectory[n-1]) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("PARTY") + "\n")
	for _, p := range state.Players {
		fmt.Fprintf(&b, "%s the %s %d/%d\n", p.Name, p.Class, p.CurrentHP, p.MaxHP)
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("INVENTORY") + "\n")
	if !ok || len(player.Inventory) == 0 {
		b.WriteString("(empty)\n")
	} else {
		for _, item := range player.Inventory {
			b.WriteString("- " + item + "\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("SUGGESTIONS") + "\n")
	for i, s := range m.suggestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}

	stateWidth := int(float64(m.width) * 0.27)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(b.String())
}

func playerLocation(p *models.Player, ok bool) string {
	if !ok {
		return ""
	}
	return p.LocationID
}

// mechanics renders the roll line shown above the narration.
func mechanics(tm engine.TurnMetrics) string {
	var parts []string
	if tm.Outcome != nil {
		parts = append(parts, tm.Outcome.Summary)
	}
	for _, c := range tm.Changes {
		parts = append(parts, fmt.Sprintf("%s %s: %s -> %s", c.Type, c.TargetID, c.OldValue, c.NewValue))
	}
	if tm.Trigger.ConditionMet {
		parts = append(parts, "scene ends: "+tm.Trigger.Reason)
	}
	return strings.Join(parts, "\n")
}

func (m model) initialize() tea.Cmd {
	return func() tea.Msg {
		result, err := m.game.Initialize(context.Background(), m.sessionID, m.setting)
		return sessionReadyMsg{result, err}
	}
}

func (m model) processTurn(action string) tea.Cmd {
	snap := m.snap
	return func() tea.Msg {
		result, err := m.game.ExecuteTurn(context.Background(), m.sessionID, snap, action)
		return turnProcessedMsg{result, err}
	}
}

// Run starts the play screen and blocks until the player quits.
func Run(game Game, opts Options) error {
	p := tea.NewProgram(newModel(game, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
