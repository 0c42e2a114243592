package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/limbo/routinewidget/internal/codec"
	"github.com/limbo/routinewidget/internal/routine"
	"github.com/limbo/routinewidget/internal/widget"
	"github.com/limbo/routinewidget/pkg/entity"
)

// Notifier turns loop change callbacks into bubbletea messages. Bursts of
// changes collapse into one redraw.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify is meant for widget.Options.OnChange.
func (n *Notifier) Notify(widget.Snapshot) {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

func (n *Notifier) wait() tea.Cmd {
	return func() tea.Msg {
		<-n.ch
		return loopChangedMsg{}
	}
}

type loopChangedMsg struct{}

type secondTickMsg time.Time

type praiseDoneMsg struct{ err error }

type saveDoneMsg struct{ err error }

type widgetModel struct {
	loop     *widget.Loop
	notifier *Notifier
	snap     widget.Snapshot

	longPress time.Duration
	now       func() time.Time
	pressAt   time.Time
	pressing  bool

	askMood bool
	saved   bool
	status  string
}

func newWidgetModel(loop *widget.Loop, n *Notifier) *widgetModel {
	return &widgetModel{
		loop:      loop,
		notifier:  n,
		snap:      loop.Snapshot(),
		longPress: widget.DefaultLongPress,
		now:       time.Now,
	}
}

func tickEverySecond() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return secondTickMsg(t) })
}

func (m *widgetModel) Init() tea.Cmd {
	return tea.Batch(m.notifier.wait(), tickEverySecond())
}

func (m *widgetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loopChangedMsg:
		m.snap = m.loop.Snapshot()
		return m, m.notifier.wait()
	case secondTickMsg:
		return m, tickEverySecond()
	case praiseDoneMsg:
		if msg.err != nil {
			m.status = "praise unavailable"
		}
		m.snap = m.loop.Snapshot()
		return m, nil
	case saveDoneMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
			return m, nil
		}
		m.saved = true
		m.status = "routine saved to Notion"
		return m, nil
	case tea.MouseMsg:
		return m.updateMouse(msg)
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

// updateMouse maps a left button press and release to the touch gestures:
// a short press taps, a press held past the long-press delay only toggles
// the debug overlay.
func (m *widgetModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseButtonLeft && msg.Action != tea.MouseActionMotion {
		return m, nil
	}
	switch msg.Action {
	case tea.MouseActionPress:
		m.pressing = true
		m.pressAt = m.now()
		m.loop.PressStart()
	case tea.MouseActionMotion:
		if m.pressing {
			m.pressing = false
			m.loop.PressMove()
		}
	case tea.MouseActionRelease:
		if !m.pressing {
			return m, nil
		}
		m.pressing = false
		m.loop.PressEnd()
		if m.now().Sub(m.pressAt) < m.longPress {
			m.loop.Tap()
		}
	}
	m.snap = m.loop.Snapshot()
	return m, nil
}

func (m *widgetModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.askMood {
		switch key {
		case "1", "2", "3", "4", "5":
			m.askMood = false
			m.status = "saving..."
			return m, m.finish(key)
		case "esc":
			m.askMood = false
		}
		return m, nil
	}

	switch key {
	case "q", "ctrl+c":
		m.loop.Unmount()
		return m, tea.Quit
	case " ", "t":
		m.loop.Tap()
	case "r":
		m.loop.Refresh()
	case "d":
		m.loop.ToggleDebug()
	case "n":
		if m.snap.Variant == codec.VariantDialogue {
			return m, m.nextPraise()
		}
	case "s", "c", "k", "f":
		return m.updateRoutine(key)
	}
	m.snap = m.loop.Snapshot()
	return m, nil
}

func (m *widgetModel) updateRoutine(key string) (tea.Model, tea.Cmd) {
	p := m.loop.Player()
	if p == nil {
		return m, nil
	}
	var err error
	switch key {
	case "s":
		err = p.Start()
	case "c":
		err = p.Complete()
	case "k":
		err = p.Skip()
	case "f":
		if !m.saved {
			m.askMood = true
		}
		return m, nil
	}
	if err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
	}
	if p.Done() && !m.saved {
		m.askMood = true
	}
	return m, nil
}

func (m *widgetModel) nextPraise() tea.Cmd {
	return func() tea.Msg {
		_, err := m.loop.NextPraise(context.Background())
		return praiseDoneMsg{err: err}
	}
}

func (m *widgetModel) finish(mood string) tea.Cmd {
	p := m.loop.Player()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return saveDoneMsg{err: p.Finish(ctx, mood)}
	}
}

func (m *widgetModel) View() string {
	s := m.snap
	theme := entity.ThemePink
	if s.Config != nil {
		theme = s.Config.Theme
	}
	var body string
	switch s.State {
	case widget.Decoding:
		body = "..."
	case widget.ConfigInvalid:
		return errStyle.Render(s.Err) + "\n"
	case widget.Loading:
		if s.Data == nil {
			body = "Loading..."
		} else {
			body = m.renderData(s, theme)
		}
	case widget.Error:
		body = errStyle.Render(s.Err) + "\n" + faintStyle.Render("retrying on next poll, r to retry now")
	case widget.Ready:
		body = m.renderData(s, theme)
	}

	parts := []string{cardStyle(theme).Render(body)}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if m.askMood {
		parts = append(parts, "오늘의 루틴 만족도는? (1-5, esc: cancel)")
	}
	if s.DebugVisible {
		parts = append(parts, m.renderDebug(s))
	}
	parts = append(parts, faintStyle.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *widgetModel) help() string {
	base := "click/space: theme  hold: debug  r: refresh  q: quit"
	switch m.snap.Variant {
	case codec.VariantDialogue:
		return "n: next praise  " + base
	case codec.VariantRoutine:
		return "s: start  c: complete  k: skip  f: finish  " + base
	}
	return base
}

func (m *widgetModel) renderData(s widget.Snapshot, theme entity.Theme) string {
	accent := accentStyle(theme)
	d := s.Data
	switch s.Variant {
	case codec.VariantDialogue:
		return accent.Render(d.Name) + "\n\n💬 " + s.Praise
	case codec.VariantRoutine:
		return accent.Render(d.Name) + "\n\n" + m.renderRoutine()
	}
	var b strings.Builder
	b.WriteString(accent.Render(d.Name) + "\n")
	if d.ProfileImage != nil {
		b.WriteString(faintStyle.Render(*d.ProfileImage) + "\n")
	}
	fmt.Fprintf(&b, "\n😴 %s   ⚡ %s\n\n%s", d.Sleep, energyBar(d.Energy), d.MainText)
	return b.String()
}

func energyBar(e float64) string {
	n := int(e)
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("■", n) + strings.Repeat("□", 5-n)
}

func (m *widgetModel) renderRoutine() string {
	p := m.loop.Player()
	if p == nil {
		return ""
	}
	steps := p.Steps()
	if len(steps) == 0 {
		return faintStyle.Render("no routines configured")
	}
	var b strings.Builder
	for _, st := range steps {
		mark := "○"
		switch st.Status {
		case routine.Active:
			mark = "▶"
		case routine.Completed:
			mark = "✔"
		case routine.Skipped:
			mark = "–"
		}
		fmt.Fprintf(&b, "%s %s %s (%dm)\n", mark, st.Routine.Emoji, st.Routine.Name, st.Routine.Duration)
	}
	if cur, ok := p.Current(); ok && cur.Status == routine.Active {
		left := p.Remaining(m.now()).Round(time.Second)
		fmt.Fprintf(&b, "\n⏱ %s left", left)
	}
	done, total := p.Counts()
	fmt.Fprintf(&b, "\n%d/%d done", done, total)
	return b.String()
}

func (m *widgetModel) renderDebug(s widget.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UA: %s\nViewport: %s\n", s.UserAgent, s.Viewport)
	if len(s.Logs) == 0 {
		b.WriteString("(no logs, start with --debug)")
	}
	for _, e := range s.Logs {
		ts := time.UnixMilli(e.Timestamp).Format("15:04:05")
		fmt.Fprintf(&b, "%s %-5s %s\n", ts, e.Level, e.Message)
	}
	return debugStyle.Render(strings.TrimRight(b.String(), "\n"))
}
