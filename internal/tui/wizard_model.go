package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/limbo/routinewidget/internal/codec"
	"github.com/limbo/routinewidget/internal/widget"
	"github.com/limbo/routinewidget/internal/wizard"
	"github.com/limbo/routinewidget/pkg/entity"
)

type connectDoneMsg struct{ err error }

type previewMsg struct{ url string }

type actionDoneMsg struct {
	action string
	err    error
}

type databaseItem struct {
	db entity.DatabaseSummary
}

func (i databaseItem) FilterValue() string { return i.db.Title }
func (i databaseItem) Title() string {
	if i.db.Title == "" {
		return "(untitled)"
	}
	return i.db.Title
}
func (i databaseItem) Description() string { return i.db.ID }

type wizardModel struct {
	wiz      *wizard.Wizard
	previews chan string

	tokenInput   textinput.Model
	routineInput textinput.Model
	editing      bool
	dbList       list.Model
	routineIdx   int
	variantIdx   int
	status       string
	busy         bool

	copy func(string) error
	open func(string) error
}

func newWizardModel(lister wizard.DatabaseLister, baseURL string, clock widget.Clock) *wizardModel {
	m := &wizardModel{
		previews: make(chan string, 1),
		copy:     copyToClipboard,
		open:     openInBrowser,
	}
	m.wiz = wizard.New(wizard.Options{
		Lister:  lister,
		BaseURL: baseURL,
		Clock:   clock,
		OnPreview: func(u string) {
			select {
			case m.previews <- u:
			default:
				select {
				case <-m.previews:
				default:
				}
				m.previews <- u
			}
		},
	})

	m.tokenInput = textinput.New()
	m.tokenInput.Placeholder = "ntn_..."
	m.tokenInput.EchoMode = textinput.EchoPassword
	m.tokenInput.CharLimit = 200
	m.tokenInput.Width = 50
	m.tokenInput.Focus()

	m.routineInput = textinput.New()
	m.routineInput.Placeholder = "name minutes [emoji]"
	m.routineInput.CharLimit = 80
	m.routineInput.Width = 40

	m.dbList = list.New(nil, list.NewDefaultDelegate(), 50, 12)
	m.dbList.Title = "Databases"
	m.dbList.SetShowHelp(false)
	m.dbList.SetFilteringEnabled(false)
	return m
}

func (m *wizardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitPreview())
}

func (m *wizardModel) waitPreview() tea.Cmd {
	ch := m.previews
	return func() tea.Msg {
		return previewMsg{url: <-ch}
	}
}

func (m *wizardModel) connect(token string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return connectDoneMsg{err: m.wiz.ConnectToken(ctx, token)}
	}
}

func (m *wizardModel) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn()}
	}
}

func (m *wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.dbList.SetSize(msg.Width-4, max(msg.Height/2, 6))
		return m, nil
	case connectDoneMsg:
		m.busy = false
		st := m.wiz.State()
		if msg.err != nil {
			m.status = st.Err
			return m, nil
		}
		items := make([]list.Item, 0, len(st.Databases))
		for _, db := range st.Databases {
			items = append(items, databaseItem{db: db})
		}
		m.status = fmt.Sprintf("%d databases found", len(items))
		m.tokenInput.Blur()
		return m, m.dbList.SetItems(items)
	case previewMsg:
		return m, m.waitPreview()
	case actionDoneMsg:
		if msg.err != nil {
			m.status = msg.action + " failed: " + msg.err.Error()
		} else {
			m.status = msg.action + " done"
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.wiz.State().Step {
		case wizard.StepToken:
			return m.updateToken(msg)
		case wizard.StepConfigure:
			return m.updateConfigure(msg)
		case wizard.StepResult:
			return m.updateResult(msg)
		}
	}
	return m, nil
}

func (m *wizardModel) updateToken(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "connecting..."
		return m, m.connect(m.tokenInput.Value())
	case "esc":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.tokenInput, cmd = m.tokenInput.Update(msg)
	return m, cmd
}

func (m *wizardModel) updateConfigure(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			r, err := parseRoutine(m.routineInput.Value())
			if err == nil {
				err = m.wiz.AddRoutine(r)
			}
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.routineInput.Reset()
			m.routineIdx = len(m.wiz.State().Routines) - 1
			m.status = "routine added"
			return m, nil
		case "esc":
			m.editing = false
			m.routineInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.routineInput, cmd = m.routineInput.Update(msg)
		return m, cmd
	}

	st := m.wiz.State()
	switch msg.String() {
	case "enter":
		if item, ok := m.dbList.SelectedItem().(databaseItem); ok {
			if err := m.wiz.SelectDatabase(item.db.ID); err != nil {
				m.status = err.Error()
			} else {
				m.status = "selected " + item.Title()
			}
		}
		return m, nil
	case "t":
		_ = m.wiz.SetTheme(st.Theme.Next())
		return m, nil
	case "n":
		m.editing = true
		return m, m.routineInput.Focus()
	case "[":
		if m.routineIdx > 0 {
			m.routineIdx--
		}
		return m, nil
	case "]":
		if m.routineIdx < len(st.Routines)-1 {
			m.routineIdx++
		}
		return m, nil
	case "x":
		if err := m.wiz.RemoveRoutine(m.routineIdx); err == nil && m.routineIdx > 0 && m.routineIdx >= len(st.Routines)-1 {
			m.routineIdx--
		}
		return m, nil
	case "K":
		if m.wiz.MoveRoutine(m.routineIdx, m.routineIdx-1) == nil {
			m.routineIdx--
		}
		return m, nil
	case "J":
		if m.wiz.MoveRoutine(m.routineIdx, m.routineIdx+1) == nil {
			m.routineIdx++
		}
		return m, nil
	case "g":
		if _, err := m.wiz.Generate(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.variantIdx = 0
		m.status = "widget URLs ready"
		return m, nil
	case "esc":
		m.wiz.Back()
		m.tokenInput.SetValue(m.wiz.State().Token)
		m.status = ""
		return m, m.tokenInput.Focus()
	}
	var cmd tea.Cmd
	m.dbList, cmd = m.dbList.Update(msg)
	return m, cmd
}

func (m *wizardModel) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected := m.wiz.State().URLs[codec.Variants[m.variantIdx]]
	switch msg.String() {
	case "up", "k":
		if m.variantIdx > 0 {
			m.variantIdx--
		}
	case "down", "j":
		if m.variantIdx < len(codec.Variants)-1 {
			m.variantIdx++
		}
	case "c":
		return m, m.run("copy", func() error { return m.copy(selected) })
	case "o":
		return m, m.run("open", func() error { return m.open(selected) })
	case "esc":
		m.wiz.Back()
	case "r":
		m.wiz.Reset()
		m.tokenInput.Reset()
		m.routineIdx = 0
		m.status = ""
		return m, m.tokenInput.Focus()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// parseRoutine reads "name minutes [emoji]"; the name may contain spaces.
func parseRoutine(s string) (entity.Routine, error) {
	fields := strings.Fields(s)
	for i := len(fields) - 1; i > 0; i-- {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			continue
		}
		r := entity.Routine{Name: strings.Join(fields[:i], " "), Duration: n}
		if i+1 < len(fields) {
			r.Emoji = strings.Join(fields[i+1:], " ")
		}
		return r, nil
	}
	return entity.Routine{}, fmt.Errorf("expected \"name minutes [emoji]\"")
}

func (m *wizardModel) View() string {
	st := m.wiz.State()
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Notion widget setup · step %d/3", st.Step)))
	b.WriteString("\n\n")

	switch st.Step {
	case wizard.StepToken:
		b.WriteString("Notion integration token\n")
		b.WriteString(m.tokenInput.View())
		b.WriteString("\n\n")
		b.WriteString(faintStyle.Render("enter: connect  esc: quit"))
	case wizard.StepConfigure:
		b.WriteString(m.dbList.View())
		b.WriteString("\n")
		b.WriteString("Theme: " + accentStyle(st.Theme).Render(string(st.Theme)) + "\n")
		b.WriteString("Routines:\n")
		for i, r := range st.Routines {
			cursor := "  "
			if i == m.routineIdx {
				cursor = "> "
			}
			fmt.Fprintf(&b, "%s%s %s (%dm)\n", cursor, r.Emoji, r.Name, r.Duration)
		}
		if m.editing {
			b.WriteString(m.routineInput.View() + "\n")
		}
		if st.PreviewURL != "" {
			b.WriteString("\nPreview: " + faintStyle.Render(st.PreviewURL) + "\n")
		}
		b.WriteString("\n" + faintStyle.Render("enter: select db  t: theme  n: new routine  [ ]: pick  x: remove  K/J: move  g: generate  esc: back"))
	case wizard.StepResult:
		lines := make([]string, 0, len(codec.Variants))
		for i, v := range codec.Variants {
			line := fmt.Sprintf("%-16s %s", v, st.URLs[v])
			if i == m.variantIdx {
				line = accentStyle(st.Theme).Render("> " + line)
			} else {
				line = "  " + line
			}
			lines = append(lines, line)
		}
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, lines...))
		b.WriteString("\n\nNotion: type /embed, paste the URL, resize to about 350x450.\n\n")
		b.WriteString(faintStyle.Render("c: copy  o: open  esc: back  r: new widget  q: quit"))
	}
	if m.status != "" {
		b.WriteString("\n\n")
		if strings.Contains(m.status, "failed") || st.Err != "" && m.status == st.Err {
			b.WriteString(errStyle.Render(m.status))
		} else {
			b.WriteString(m.status)
		}
	}
	return b.String()
}
