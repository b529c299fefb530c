package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/CaptShanks/redroll/internal/dice"
	"github.com/CaptShanks/redroll/internal/updater"
)

// maxLogResults bounds the in-memory roll log
const maxLogResults = 1000

// Options configures the interactive roller
type Options struct {
	Version            string
	CacheDir           string // where the update check cache lives
	UpdateIntervalDays int
	SkipUpdateCheck    bool

	// Record is called after every successful roll (e.g. to save history)
	Record func(dice.Result) error
}

// Model represents the TUI state
type Model struct {
	roller   *dice.Roller
	opts     Options
	input    textinput.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int

	results    []dice.Result
	maxResults int      // log size before the oldest rolls are dropped
	dropped    int      // rolls dropped from the front of the log, keeps numbering stable
	notations  []string // entered notations, oldest first
	recallIdx  int      // position in notations while recalling; len(notations) = not recalling
	errMsg     string   // last invalid notation error
	recordErr  string   // last failure from opts.Record
	quitting   bool

	updateAvailable string // non-empty when newer version available
}

// UpdateAvailableMsg is sent when an update check finds a newer version.
type UpdateAvailableMsg struct {
	Version string
}

// NewModel creates a new interactive roller
func NewModel(roller *dice.Roller, opts Options) Model {
	if roller == nil {
		roller = dice.NewRoller(nil)
	}

	ti := textinput.New()
	ti.Placeholder = "2d6+3"
	ti.Prompt = "roll ❯ "
	ti.CharLimit = 32
	ti.Width = 24
	ti.Focus()

	return Model{
		roller:     roller,
		opts:       opts,
		input:      ti,
		maxResults: maxLogResults,
	}
}

// Results returns the rolls made in this session, oldest first
func (m Model) Results() []dice.Result {
	return m.results
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	if m.opts.Version == "" || m.opts.SkipUpdateCheck {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, checkUpdateCmd(m.opts))
}

// checkUpdateCmd runs an async update check and sends UpdateAvailableMsg if an update is available.
func checkUpdateCmd(opts Options) tea.Cmd {
	return func() tea.Msg {
		latest, hasUpdate, err := updater.CheckLatestWithCache(opts.Version, opts.UpdateIntervalDays, opts.CacheDir)
		if err != nil || !hasUpdate {
			return nil
		}
		return UpdateAvailableMsg{Version: latest}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case UpdateAvailableMsg:
		m.updateAvailable = msg.Version
		m.resize()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, 1)
			m.ready = true
		}
		m.resize()
		m.updateViewportContent()
		return m, nil

	case tea.KeyMsg:
		for _, kh := range keyHandlers {
			if key.Matches(msg, kh.binding) {
				var next Model
				next, cmd = kh.handle(m)
				return next, cmd
			}
		}
		m.input, cmd = m.input.Update(msg)
		m.errMsg = ""
		return m, cmd

	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

var (
	keyRoll       = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "roll (empty repeats last)"))
	keyQuit       = key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit"))
	keyRecallPrev = key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "recall"))
	keyRecallNext = key.NewBinding(key.WithKeys("down"))
	keyClearLog   = key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear"))
	keyPageUp     = key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup/pgdn", "scroll"))
	keyPageDown   = key.NewBinding(key.WithKeys("pgdown"))
)

// keyHandler pairs a binding with the action it triggers
type keyHandler struct {
	binding key.Binding
	handle  func(m Model) (Model, tea.Cmd)
}

var keyHandlers = []keyHandler{
	{keyRoll, handleKeyRoll},
	{keyQuit, handleKeyQuit},
	{keyRecallPrev, handleKeyRecallPrev},
	{keyRecallNext, handleKeyRecallNext},
	{keyClearLog, handleKeyClear},
	{keyPageUp, handleKeyPgUp},
	{keyPageDown, handleKeyPgDown},
}

// helpBindings are shown in the footer, in order
var helpBindings = []key.Binding{keyRoll, keyRecallPrev, keyPageUp, keyClearLog, keyQuit}

func handleKeyQuit(m Model) (Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

// handleKeyRoll rolls the typed notation, or repeats the last one when empty
func handleKeyRoll(m Model) (Model, tea.Cmd) {
	notation := m.input.Value()
	if notation == "" {
		if len(m.notations) == 0 {
			return m, nil
		}
		notation = m.notations[len(m.notations)-1]
	}

	result, err := m.roller.Roll(notation)
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}

	m.errMsg = ""
	m.results = append(m.results, result)
	if over := len(m.results) - m.maxResults; m.maxResults > 0 && over > 0 {
		m.results = m.results[over:]
		m.dropped += over
	}
	if len(m.notations) == 0 || m.notations[len(m.notations)-1] != notation {
		m.notations = append(m.notations, notation)
	}
	m.recallIdx = len(m.notations)
	m.input.SetValue("")

	m.recordErr = ""
	if m.opts.Record != nil {
		if err := m.opts.Record(result); err != nil {
			m.recordErr = err.Error()
		}
	}

	m.updateViewportContent()
	m.viewport.GotoBottom()
	return m, nil
}

func handleKeyRecallPrev(m Model) (Model, tea.Cmd) {
	if m.recallIdx > 0 {
		m.recallIdx--
		m.input.SetValue(m.notations[m.recallIdx])
		m.input.CursorEnd()
	}
	return m, nil
}

func handleKeyRecallNext(m Model) (Model, tea.Cmd) {
	if m.recallIdx < len(m.notations)-1 {
		m.recallIdx++
		m.input.SetValue(m.notations[m.recallIdx])
		m.input.CursorEnd()
	} else {
		m.recallIdx = len(m.notations)
		m.input.SetValue("")
	}
	return m, nil
}

func handleKeyClear(m Model) (Model, tea.Cmd) {
	m.results = nil
	m.dropped = 0
	m.errMsg = ""
	m.updateViewportContent()
	return m, nil
}

func handleKeyPgUp(m Model) (Model, tea.Cmd) {
	m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.Height/2)
	return m, nil
}

func handleKeyPgDown(m Model) (Model, tea.Cmd) {
	m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height/2)
	return m, nil
}

// resize fits the viewport between the header and the input/footer lines
func (m *Model) resize() {
	if !m.ready {
		return
	}
	headerHeight := 4 // Padding + title + blank line
	footerHeight := 6 // Input + status + help + padding
	if m.updateAvailable != "" {
		footerHeight++
	}
	m.viewport.Width = m.width - 4
	m.viewport.Height = max(m.height-headerHeight-footerHeight, 1)
}

func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderLog())
}

// renderLog renders every roll, numbered, wrapped to the viewport width
func (m Model) renderLog() string {
	if len(m.results) == 0 {
		return mutedColor.Render("No rolls yet. Type dice notation like 2d6+3 and press enter.")
	}

	var b strings.Builder
	for i, r := range m.results {
		line := fmt.Sprintf("%s %s", mutedColor.Render(fmt.Sprintf("%3d.", m.dropped+i+1)), RenderRollLine(r))
		if m.viewport.Width > 0 {
			line = wordwrap.String(line, m.viewport.Width)
		}
		b.WriteString(line)
		if i < len(m.results)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// viewIndicator shows whether the current input is valid notation
func (m Model) viewIndicator() string {
	value := m.input.Value()
	switch {
	case value == "":
		return ""
	case dice.Validate(value):
		f := dice.MustParse(value)
		return validStyle.Render(fmt.Sprintf(" ✓ %s (%d-%d)", f, f.Min(), f.Max()))
	default:
		return invalidStyle.Render(" ✗ invalid")
	}
}

func (m Model) viewStatus() string {
	switch {
	case m.errMsg != "":
		return invalidStyle.Render(m.errMsg)
	case m.recordErr != "":
		return invalidStyle.Render("history: " + m.recordErr)
	case len(m.results) > 0:
		last := m.results[len(m.results)-1]
		return statusBarStyle.Render(fmt.Sprintf("%d rolls  last total %d", m.dropped+len(m.results), last.Total()))
	default:
		return ""
	}
}

func (m Model) viewUpdateNudge() string {
	if m.updateAvailable == "" {
		return ""
	}
	return "\n" + mutedColor.Render(fmt.Sprintf("Update available: v%s. Run 'redroll upgrade' to update.", m.updateAvailable))
}

// View renders the model
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("🎲 redroll - Dice Roller"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString(m.viewIndicator())
	b.WriteString("\n")
	b.WriteString(m.viewStatus())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(helpLine()))
	b.WriteString(m.viewUpdateNudge())
	return appStyle.Render(b.String())
}

// helpLine renders the footer from the key bindings
func helpLine() string {
	parts := make([]string, len(helpBindings))
	for i, b := range helpBindings {
		h := b.Help()
		parts[i] = h.Key + ": " + h.Desc
	}
	return strings.Join(parts, "  ")
}

// Run starts the interactive roller and returns the final model
func Run(roller *dice.Roller, opts Options) (Model, error) {
	p := tea.NewProgram(NewModel(roller, opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return Model{}, err
	}
	return finalModel.(Model), nil
}
