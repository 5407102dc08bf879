package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"persona/internal/config"
	"persona/internal/roster"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	tabStyle      = lipgloss.NewStyle().Padding(0, 1)
	activeTab     = lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	heroStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	villainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Persona"))
	b.WriteString("  ")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.tab == tabCharacters {
		b.WriteString(m.renderCharacters())
	} else {
		b.WriteString(m.renderTasks())
	}

	b.WriteString("\n---\n")

	switch {
	case m.form != nil:
		b.WriteString(m.form.title())
		b.WriteString("\n\n")
		b.WriteString(panelStyle.Render(strings.TrimRight(m.form.render(), "\n")))
		b.WriteString("\n")
		b.WriteString("Field: " + m.form.currentLabel())
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case m.mode != modeList:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	if m.tab == tabCharacters {
		b.WriteString(helpStyle.Render(renderCharacterHelp(m.cfg.Keys)))
	} else {
		b.WriteString(helpStyle.Render(renderHelp(m.cfg.Keys)))
	}
	return b.String()
}

func (m Model) renderTabs() string {
	tasks, chars := tabStyle, tabStyle
	if m.tab == tabTasks {
		tasks = activeTab
	} else {
		chars = activeTab
	}
	return tasks.Render("Tasks") + chars.Render("Characters")
}

func (m Model) renderTasks() string {
	var b strings.Builder
	st := m.listing.Stats
	b.WriteString(fmt.Sprintf("%s  %d%%  active %d • done %d\n",
		progressBar(st.Completed, st.Total, 20), st.Percent(), st.Active, st.Completed))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("filter %s • sort %s %s • backend %s",
		m.query.Filter, m.query.SortBy, m.query.Order, m.tasks.Active())))
	if m.query.Search != "" {
		b.WriteString(mutedStyle.Render(" • search " + m.query.Search))
	}
	b.WriteString("\n\n")

	if len(m.listing.Tasks) == 0 {
		if st.Total == 0 {
			b.WriteString(fmt.Sprintf("No tasks yet. Press '%s' to add one.\n", m.cfg.Keys.Add))
		} else {
			b.WriteString("No tasks match.\n")
		}
		return b.String()
	}
	b.WriteString(m.renderTaskList())
	return b.String()
}

func (m Model) renderTaskList() string {
	today := m.now().Format("2006-01-02")
	var b strings.Builder
	for i, t := range m.listing.Tasks {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}

		checkbox := "[ ]"
		if t.Completed {
			checkbox = "[x]"
		}

		title := t.Title
		if t.Completed {
			title = doneStyle.Render(title)
		}
		body := fmt.Sprintf("%s %s %s", cursor, checkbox, title)
		if t.Due != nil {
			due := "due " + *t.Due
			if !t.Completed && *t.Due < today {
				due = overdueStyle.Render(due + " overdue")
			} else {
				due = mutedStyle.Render(due)
			}
			body += "  " + due
		}
		if m.cursor == i && m.mode == modeList {
			body = selectedStyle.Render(body)
		}
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCharacters() string {
	g := m.roster.Groups(m.charQuery)
	var b strings.Builder
	if m.charQuery != "" {
		b.WriteString(mutedStyle.Render("search " + m.charQuery))
		b.WriteString("\n\n")
	}
	if len(g.Heroes)+len(g.Villains) == 0 {
		if len(m.roster.All()) == 0 {
			b.WriteString(fmt.Sprintf("No characters yet. Press '%s' to add one.\n", m.cfg.Keys.Add))
		} else {
			b.WriteString("No characters match.\n")
		}
		return b.String()
	}

	b.WriteString(heroStyle.Render(fmt.Sprintf("Heroes & allies (%d)", len(g.Heroes))))
	b.WriteString("\n")
	for i, c := range g.Heroes {
		b.WriteString(m.renderCharacter(i, c))
	}
	b.WriteString("\n")
	b.WriteString(villainStyle.Render(fmt.Sprintf("Villains (%d)", len(g.Villains))))
	b.WriteString("\n")
	for i, c := range g.Villains {
		b.WriteString(m.renderCharacter(len(g.Heroes)+i, c))
	}
	return b.String()
}

func (m Model) renderCharacter(i int, c roster.Character) string {
	cursor := " "
	if m.charCursor == i && m.form == nil && m.mode == modeList {
		cursor = ">"
	}
	line := fmt.Sprintf("%s %s", cursor, c.Name)
	if c.Alias != "" {
		line += " (" + c.Alias + ")"
	}
	line += mutedStyle.Render(" • " + string(c.Role))
	if cursor == ">" {
		line = selectedStyle.Render(line)
	}
	return line + "\n"
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s toggle • %s delete • %s rename • %s due • %s search • %s filter • %s sort • %s order • %s backend • %s all done • %s clear done • %s clear all • %s characters • %s quit",
		k.Up, k.Down, k.Add, k.Toggle, k.Delete, k.Edit, k.Due, k.Search, k.Filter, k.Sort, k.Order,
		k.Backend, k.MarkAll, k.ClearCompleted, k.ClearAll, k.Tab, k.Quit)
}

func renderCharacterHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s edit • %s delete • %s search • %s tasks • %s quit",
		k.Up, k.Down, k.Add, k.Edit, k.Delete, k.Search, k.Tab, k.Quit)
}

func progressBar(done, total, width int) string {
	if total == 0 {
		total = 1
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}
