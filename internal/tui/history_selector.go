package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/billmal071/mangadl/internal/db"
)

const maxTitleWidth = 70

// HistoryItem wraps a chapter record for the list component
type HistoryItem struct {
	Chapter *db.Chapter
}

func (h HistoryItem) Title() string { return h.Chapter.Manga + " - " + h.Chapter.Label }

func (h HistoryItem) Description() string {
	parts := []string{string(h.Chapter.Status)}
	if h.Chapter.Site != "" {
		parts = append(parts, h.Chapter.Site)
	}
	if h.Chapter.Pages > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", h.Chapter.Pages))
	}
	if h.Chapter.Archive {
		parts = append(parts, "cbz")
	}
	parts = append(parts, h.Chapter.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return strings.Join(parts, " | ")
}

func (h HistoryItem) FilterValue() string { return h.Title() + " " + h.Chapter.URL }

// HistoryDelegate handles rendering of history items
type HistoryDelegate struct{}

func (d HistoryDelegate) Height() int                             { return 2 }
func (d HistoryDelegate) Spacing() int                            { return 1 }
func (d HistoryDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d HistoryDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	history, ok := item.(HistoryItem)
	if !ok {
		return
	}

	title := truncate(history.Title(), maxTitleWidth)

	var str string
	if index == m.Index() {
		str = SelectedStyle.Render(fmt.Sprintf("  ➤ %d. %s", index+1, title))
	} else {
		str = NormalStyle.Render(fmt.Sprintf("    %d. %s", index+1, title))
	}
	str += "\n" + DimStyle.Render(fmt.Sprintf("      %s", history.Description()))

	fmt.Fprint(w, str)
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// HistorySelectorModel is the Bubble Tea model for picking a chapter from history
type HistorySelectorModel struct {
	list     list.Model
	selected *db.Chapter
	quitting bool
}

// NewHistorySelector creates a new history selector TUI
func NewHistorySelector(chapters []*db.Chapter) HistorySelectorModel {
	items := make([]list.Item, len(chapters))
	for i, c := range chapters {
		items[i] = HistoryItem{Chapter: c}
	}

	l := list.New(items, HistoryDelegate{}, 80, 20)
	l.Title = "Download History"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.Styles.Title = TitleStyle

	return HistorySelectorModel{
		list: l,
	}
}

func (m HistorySelectorModel) Init() tea.Cmd {
	return nil
}

func (m HistorySelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// keys go to the filter input while filtering
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(HistoryItem); ok {
				m.selected = item.Chapter
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m HistorySelectorModel) View() string {
	if m.selected != nil {
		return SuccessStyle.Render(fmt.Sprintf("\n  ✓ Selected: %s - %s\n", m.selected.Manga, m.selected.Label))
	}

	if m.quitting {
		return DimStyle.Render("\n  Cancelled.\n")
	}

	help := HelpStyle.Render("  ↑/↓: navigate • enter: download again • /: filter • q: cancel")

	var view strings.Builder
	view.WriteString("\n")
	view.WriteString(m.list.View())
	view.WriteString("\n")
	view.WriteString(help)

	return view.String()
}

// Selected returns the selected chapter, nil if the picker was cancelled
func (m HistorySelectorModel) Selected() *db.Chapter {
	return m.selected
}

// RunHistorySelector displays the picker and returns the selected chapter
func RunHistorySelector(chapters []*db.Chapter) (*db.Chapter, error) {
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no download history available")
	}

	p := tea.NewProgram(NewHistorySelector(chapters))

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	return finalModel.(HistorySelectorModel).Selected(), nil
}
