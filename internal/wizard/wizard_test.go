package wizard_test

import (
	"context"
	"errors"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/limbo/routinewidget/internal/codec"
	errorvalues "github.com/limbo/routinewidget/internal/error_values"
	"github.com/limbo/routinewidget/internal/widget"
	"github.com/limbo/routinewidget/internal/wizard"
	"github.com/limbo/routinewidget/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listerStub struct {
	tokens []string
	dbs    []entity.DatabaseSummary
	err    error
}

func (l *listerStub) ListDatabases(_ context.Context, token string) ([]entity.DatabaseSummary, error) {
	l.tokens = append(l.tokens, token)
	return l.dbs, l.err
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.stopped = true
	return true
}

type manualClock struct {
	timers []*manualTimer
	delays []time.Duration
}

func (c *manualClock) Now() time.Time { return time.Time{} }

func (c *manualClock) AfterFunc(d time.Duration, fn func()) widget.Timer {
	t := &manualTimer{fn: fn}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

// fireAll runs every timer, stopped or not, the way a late timer would.
func (c *manualClock) fireAll() {
	for _, t := range c.timers {
		t.fn()
	}
}

const base = "https://widgets.example.com"

func newWizard(lister *listerStub) (*wizard.Wizard, *manualClock, *[]string) {
	clock := &manualClock{}
	previews := &[]string{}
	w := wizard.New(wizard.Options{
		Lister:    lister,
		BaseURL:   base,
		Clock:     clock,
		OnPreview: func(u string) { *previews = append(*previews, u) },
	})
	return w, clock, previews
}

func decodeURL(t *testing.T, raw string) entity.WidgetConfig {
	u, err := url.Parse(raw)
	require.NoError(t, err)
	cfg, err := codec.FromQuery(u.Query())
	require.NoError(t, err)
	return cfg
}

func dbs() []entity.DatabaseSummary {
	return []entity.DatabaseSummary{{ID: "db1", Title: "Daily"}, {ID: "db2", Title: "Habits"}}
}

func TestConnectToken(t *testing.T) {
	testCases := []struct {
		Name     string
		Token    string
		Lister   *listerStub
		WantStep wizard.Step
		WantErr  bool
		WantCall bool
	}{
		{Name: "bad prefix", Token: "abc", Lister: &listerStub{}, WantStep: wizard.StepToken, WantErr: true},
		{Name: "empty", Token: "  ", Lister: &listerStub{}, WantStep: wizard.StepToken, WantErr: true},
		{Name: "listing fails", Token: "ntn_abc", Lister: &listerStub{err: errors.New("gateway: 500: x")}, WantStep: wizard.StepToken, WantErr: true, WantCall: true},
		{Name: "ok", Token: " ntn_abc ", Lister: &listerStub{dbs: dbs()}, WantStep: wizard.StepConfigure, WantCall: true},
		{Name: "legacy prefix", Token: "secret_abc", Lister: &listerStub{dbs: dbs()}, WantStep: wizard.StepConfigure, WantCall: true},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			w, _, _ := newWizard(tc.Lister)
			err := w.ConnectToken(context.Background(), tc.Token)
			if tc.WantErr {
				assert.Error(t, err)
				assert.NotEmpty(t, w.State().Err)
			} else {
				assert.NoError(t, err)
				assert.Empty(t, w.State().Err)
			}
			assert.Equal(t, tc.WantStep, w.State().Step)
			assert.Equal(t, tc.WantCall, len(tc.Lister.tokens) == 1)
		})
	}

	w, _, _ := newWizard(&listerStub{})
	err := w.ConnectToken(context.Background(), "abc")
	assert.True(t, errors.Is(err, errorvalues.ErrValidation))
}

func TestPreviewDebounce(t *testing.T) {
	w, clock, previews := newWizard(&listerStub{dbs: dbs()})
	require.NoError(t, w.ConnectToken(context.Background(), "ntn_abc"))
	require.NoError(t, w.SelectDatabase("db2"))
	require.NoError(t, w.AddRoutine(entity.Routine{Name: "stretch", Duration: 5}))
	require.NoError(t, w.SetTheme(entity.ThemeMono))

	require.Len(t, clock.timers, 4)
	for _, d := range clock.delays {
		assert.Equal(t, 300*time.Millisecond, d)
	}
	for _, tm := range clock.timers[:3] {
		assert.True(t, tm.stopped)
	}

	clock.fireAll()
	require.Len(t, *previews, 1)
	preview := (*previews)[0]
	assert.True(t, strings.HasPrefix(preview, base+"/widget?config="))
	assert.Equal(t, preview, w.State().PreviewURL)

	cfg := decodeURL(t, preview)
	assert.True(t, cfg.IsPreview)
	assert.Equal(t, "db2", cfg.DatabaseID)
	assert.Equal(t, entity.ThemeMono, cfg.Theme)
	assert.Equal(t, []entity.Routine{{Name: "stretch", Duration: 5}}, cfg.Routines)
}

func TestRoutineEditing(t *testing.T) {
	w, _, _ := newWizard(&listerStub{dbs: dbs()})
	assert.ErrorIs(t, w.AddRoutine(entity.Routine{Name: "a", Duration: 1}), errorvalues.ErrWizardStep)
	require.NoError(t, w.ConnectToken(context.Background(), "ntn_abc"))

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, w.AddRoutine(entity.Routine{Name: name, Duration: 1}))
	}
	names := func() string {
		var out []string
		for _, r := range w.State().Routines {
			out = append(out, r.Name)
		}
		return strings.Join(out, ",")
	}

	require.NoError(t, w.MoveRoutine(0, 2))
	assert.Equal(t, "b,c,a", names())
	require.NoError(t, w.MoveRoutine(2, 0))
	assert.Equal(t, "a,b,c", names())
	require.NoError(t, w.UpdateRoutine(1, entity.Routine{Name: "B", Duration: 10, Emoji: "📚"}))
	assert.Equal(t, "a,B,c", names())
	require.NoError(t, w.RemoveRoutine(0))
	assert.Equal(t, "B,c", names())

	assert.ErrorIs(t, w.RemoveRoutine(5), errorvalues.ErrRoutineIndex)
	assert.ErrorIs(t, w.MoveRoutine(0, 2), errorvalues.ErrRoutineIndex)
	assert.ErrorIs(t, w.UpdateRoutine(-1, entity.Routine{Name: "x", Duration: 1}), errorvalues.ErrRoutineIndex)

	var verr *errorvalues.ValidationError
	require.True(t, errors.As(w.AddRoutine(entity.Routine{Duration: 1}), &verr))
	assert.Equal(t, "name", verr.Field)
	require.True(t, errors.As(w.AddRoutine(entity.Routine{Name: "x"}), &verr))
	assert.Equal(t, "duration", verr.Field)
	require.True(t, errors.As(w.SetTheme("neon"), &verr))
	assert.Equal(t, "theme", verr.Field)
	require.True(t, errors.As(w.SelectDatabase("nope"), &verr))
	assert.Equal(t, "databaseId", verr.Field)
}

func TestGenerateBackReset(t *testing.T) {
	w, clock, previews := newWizard(&listerStub{dbs: dbs()})
	require.NoError(t, w.ConnectToken(context.Background(), "ntn_abc"))

	_, err := w.Generate()
	assert.ErrorIs(t, err, errorvalues.ErrNoDatabaseSelected)

	require.NoError(t, w.SelectDatabase("db1"))
	urls, err := w.Generate()
	require.NoError(t, err)
	require.Len(t, urls, 3)
	assert.Equal(t, wizard.StepResult, w.State().Step)
	for _, v := range codec.Variants {
		assert.True(t, strings.HasPrefix(urls[v], base+"/"+string(v)+"?config="))
		cfg := decodeURL(t, urls[v])
		assert.False(t, cfg.IsPreview)
		assert.Equal(t, "db1", cfg.DatabaseID)
		assert.Equal(t, entity.ThemePink, cfg.Theme)
	}
	// a pending preview does not fire after generation
	clock.fireAll()
	assert.Empty(t, *previews)

	w.Back()
	assert.Equal(t, wizard.StepConfigure, w.State().Step)
	assert.Nil(t, w.State().URLs)
	assert.Equal(t, "db1", w.State().DatabaseID)

	w.Back()
	st := w.State()
	assert.Equal(t, wizard.StepToken, st.Step)
	assert.Equal(t, "ntn_abc", st.Token)
	assert.Empty(t, st.Databases)
	assert.Empty(t, st.DatabaseID)

	require.NoError(t, w.ConnectToken(context.Background(), st.Token))
	require.NoError(t, w.AddRoutine(entity.Routine{Name: "a", Duration: 1}))
	w.Reset()
	st = w.State()
	assert.Equal(t, wizard.StepToken, st.Step)
	assert.Empty(t, st.Token)
	assert.Empty(t, st.Routines)
	assert.Equal(t, entity.ThemePink, st.Theme)
	clock.fireAll()
	assert.Empty(t, *previews)
}

func TestNewExitsOnNilLister(t *testing.T) {
	if os.Getenv("WIZARD_NIL_LISTER") == "1" {
		wizard.New(wizard.Options{})
		return
	}
	cmd := exec.Command(os.Args[0], "-test.run=^TestNewExitsOnNilLister$")
	cmd.Env = append(os.Environ(), "WIZARD_NIL_LISTER=1")
	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(out), "provided nil database lister")
}
