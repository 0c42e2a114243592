package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/limbo/routinewidget/internal/codec"
	"github.com/limbo/routinewidget/internal/widget"
	"github.com/limbo/routinewidget/internal/wizard"
	"github.com/limbo/routinewidget/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listerStub struct {
	dbs []entity.DatabaseSummary
	err error
}

func (l listerStub) ListDatabases(context.Context, string) ([]entity.DatabaseSummary, error) {
	return l.dbs, l.err
}

type heldTimer struct{ fn func() }

func (t *heldTimer) Stop() bool { return true }

type heldClock struct{ timers []*heldTimer }

func (c *heldClock) Now() time.Time { return time.Time{} }

func (c *heldClock) AfterFunc(_ time.Duration, fn func()) widget.Timer {
	t := &heldTimer{fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m *wizardModel, s string) {
	t.Helper()
	for _, r := range s {
		_, _ = m.Update(keyRunes(string(r)))
	}
}

// runCmd executes cmd and feeds its message back, the way the program loop would.
func runCmd(t *testing.T, m *wizardModel, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	_, _ = m.Update(cmd())
}

func TestWizardModelFlow(t *testing.T) {
	clock := &heldClock{}
	m := newWizardModel(listerStub{dbs: []entity.DatabaseSummary{{ID: "db1", Title: "Daily"}}}, "https://w.example.com", clock)
	var copied string
	m.copy = func(s string) error {
		copied = s
		return nil
	}

	typeText(t, m, "ntn_abc")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, m, cmd)
	require.Equal(t, wizard.StepConfigure, m.wiz.State().Step)
	assert.Equal(t, "1 databases found", m.status)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "db1", m.wiz.State().DatabaseID)

	_, _ = m.Update(keyRunes("t"))
	assert.Equal(t, entity.ThemePurple, m.wiz.State().Theme)

	_, _ = m.Update(keyRunes("n"))
	require.True(t, m.editing)
	typeText(t, m, "morning walk 15 🚶")
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []entity.Routine{{Name: "morning walk", Duration: 15, Emoji: "🚶"}}, m.wiz.State().Routines)
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.editing)

	clock.timers[len(clock.timers)-1].fn()
	assert.NotEmpty(t, m.wiz.State().PreviewURL)

	_, _ = m.Update(keyRunes("g"))
	require.Equal(t, wizard.StepResult, m.wiz.State().Step)
	assert.Contains(t, m.View(), "widget-dialogue")

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = m.Update(keyRunes("c"))
	runCmd(t, m, cmd)
	assert.Equal(t, m.wiz.State().URLs[codec.VariantDialogue], copied)
	assert.Equal(t, "copy done", m.status)

	_, _ = m.Update(keyRunes("r"))
	assert.Equal(t, wizard.StepToken, m.wiz.State().Step)
	assert.Empty(t, m.tokenInput.Value())
}

func TestWizardModelConnectError(t *testing.T) {
	m := newWizardModel(listerStub{err: errors.New("gateway: 500: boom")}, "https://w.example.com", &heldClock{})
	typeText(t, m, "ntn_abc")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, m, cmd)
	assert.Equal(t, wizard.StepToken, m.wiz.State().Step)
	assert.Equal(t, "데이터베이스를 불러올 수 없습니다. 토큰을 확인해주세요.", m.status)
	assert.Contains(t, m.View(), "step 1/3")
}

func TestWizardModelBackKeepsToken(t *testing.T) {
	m := newWizardModel(listerStub{dbs: []entity.DatabaseSummary{{ID: "db1"}}}, "https://w.example.com", &heldClock{})
	typeText(t, m, "ntn_abc")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, m, cmd)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, wizard.StepToken, m.wiz.State().Step)
	assert.Equal(t, "ntn_abc", m.tokenInput.Value())
}

func TestParseRoutine(t *testing.T) {
	testCases := []struct {
		In      string
		Want    entity.Routine
		WantErr bool
	}{
		{In: "read 20", Want: entity.Routine{Name: "read", Duration: 20}},
		{In: "deep work 50 💻", Want: entity.Routine{Name: "deep work", Duration: 50, Emoji: "💻"}},
		{In: "read", WantErr: true},
		{In: "20", WantErr: true},
	}
	for _, tc := range testCases {
		r, err := parseRoutine(tc.In)
		if tc.WantErr {
			assert.Error(t, err, tc.In)
			continue
		}
		require.NoError(t, err, tc.In)
		assert.Equal(t, tc.Want, r)
	}
}
