package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CaptShanks/redroll/internal/history"
)

// PickerModel is a TUI for selecting a history entry to re-roll
type PickerModel struct {
	allEntries []history.Entry // Original unfiltered list
	filtered   []history.Entry // Filtered list based on search
	cursor     int
	selected   *history.Entry
	quitting   bool
	height     int
	width      int

	// Search state
	searching   bool
	searchQuery string
}

var (
	keySearch = key.NewBinding(key.WithKeys("/"))
	keyCancel = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	keyEsc    = key.NewBinding(key.WithKeys("esc"))
	keySelect = key.NewBinding(key.WithKeys("enter", " "))
	keyDown   = key.NewBinding(key.WithKeys("j", "down"))
	keyUp     = key.NewBinding(key.WithKeys("k", "up"))
	keyTop    = key.NewBinding(key.WithKeys("g"))
	keyBottom = key.NewBinding(key.WithKeys("G"))
)

// NewPickerModel creates a new history picker
func NewPickerModel(entries []history.Entry) PickerModel {
	return PickerModel{
		allEntries: entries,
		filtered:   entries,
	}
}

// Selected returns the chosen entry, or false if the picker was cancelled
func (m PickerModel) Selected() (history.Entry, bool) {
	if m.selected == nil {
		return history.Entry{}, false
	}
	return *m.selected, true
}

func (m PickerModel) Init() tea.Cmd {
	return nil
}

// searchableText builds the lowercase text an entry is matched against
func searchableText(e history.Entry) string {
	return strings.ToLower(
		e.Notation + " " +
			e.Source + " " +
			strconv.Itoa(e.Total) + " " +
			e.Timestamp.Format("2006-01-02 15:04") + " " +
			e.Line(),
	)
}

// filterEntries filters entries based on search query
// Supports fzf-style multi-term matching: "2d6 tui" matches all terms (AND)
func (m *PickerModel) filterEntries() {
	terms := strings.Fields(strings.ToLower(m.searchQuery))
	if len(terms) == 0 {
		m.filtered = m.allEntries
		return
	}

	var results []history.Entry
	for _, entry := range m.allEntries {
		searchable := searchableText(entry)

		allMatch := true
		for _, term := range terms {
			if !strings.Contains(searchable, term) {
				allMatch = false
				break
			}
		}
		if allMatch {
			results = append(results, entry)
		}
	}

	m.filtered = results
	// Reset cursor if out of bounds
	if m.cursor >= len(m.filtered) {
		m.cursor = max(len(m.filtered)-1, 0)
	}
}

func (m PickerModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.searchQuery = ""
		m.filterEntries()
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyBackspace:
		if len(m.searchQuery) > 0 {
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
			m.filterEntries()
		}
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
		m.filterEntries()
	case tea.KeySpace:
		m.searchQuery += " "
		m.filterEntries()
	}
	return m, nil
}

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}

		switch {
		case key.Matches(msg, keySearch):
			m.searching = true

		case key.Matches(msg, keyCancel):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keyEsc):
			if m.searchQuery != "" {
				m.searchQuery = ""
				m.filterEntries()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keySelect):
			if len(m.filtered) > 0 {
				e := m.filtered[m.cursor]
				m.selected = &e
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keyDown):
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}

		case key.Matches(msg, keyUp):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, keyTop):
			m.cursor = 0

		case key.Matches(msg, keyBottom):
			if len(m.filtered) > 0 {
				m.cursor = len(m.filtered) - 1
			}
		}
	}
	return m, nil
}

func (m PickerModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render("Select a roll to repeat"))
	b.WriteString("\n")

	columnStyle := lipgloss.NewStyle().
		Foreground(current.mutedColorVal).
		Bold(true)
	b.WriteString(columnStyle.Render("     TIMESTAMP            NOTATION        FROM   TOTAL  ROLL"))
	b.WriteString("\n")
	b.WriteString(columnStyle.Render(strings.Repeat("─", 75)))
	b.WriteString("\n")

	if len(m.filtered) == 0 {
		noResultStyle := mutedColor.Italic(true)
		if m.searchQuery != "" {
			b.WriteString(noResultStyle.Render(fmt.Sprintf("  No results for '%s'", m.searchQuery)))
		} else {
			b.WriteString(noResultStyle.Render("  No history entries"))
		}
		b.WriteString("\n")
	}

	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		entry := m.filtered[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%2d  %s  %s", cursor, i+1, history.FormatEntry(entry), entry.Line())
		if i == m.cursor {
			if len(line) < 75 {
				line += strings.Repeat(" ", 75-len(line))
			}
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.searching:
		b.WriteString(searchStyle.Render("/ "))
		b.WriteString(m.searchQuery)
		b.WriteString("█") // Cursor
	case m.searchQuery != "":
		b.WriteString(searchStyle.Render(fmt.Sprintf("Filter: %s", m.searchQuery)))
		b.WriteString(mutedColor.Render(fmt.Sprintf("  (%d/%d)", len(m.filtered), len(m.allEntries))))
		b.WriteString("\n")
		b.WriteString(mutedColor.Render("j/k: navigate  enter: re-roll  esc: clear filter  q: cancel"))
	default:
		b.WriteString(mutedColor.Render("j/k: navigate  /: search  enter: re-roll  q: cancel"))
	}

	return sectionBorderStyle.Render(b.String())
}

// pickerChrome is the number of lines View draws around the entry rows:
// border (2), title and its margin (2), column header and rule (2), the
// blank line before the footer (1) and at most two footer lines.
const pickerChrome = 9

// visibleRange returns the slice of filtered entries that fits the window,
// scrolled so the cursor stays on screen. Before the first WindowSizeMsg
// every entry is shown.
func (m PickerModel) visibleRange() (start, end int) {
	n := len(m.filtered)
	if m.height <= 0 {
		return 0, n
	}
	rows := max(m.height-pickerChrome, 1)
	if n <= rows {
		return 0, n
	}
	start = max(m.cursor-rows+1, 0)
	return start, start + rows
}

// RunPicker runs the interactive history picker and returns the selected entry
func RunPicker(entries []history.Entry) (history.Entry, bool, error) {
	p := tea.NewProgram(NewPickerModel(entries))

	finalModel, err := p.Run()
	if err != nil {
		return history.Entry{}, false, err
	}

	e, ok := finalModel.(PickerModel).Selected()
	return e, ok, nil
}
