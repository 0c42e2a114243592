// Package wizard holds the setup flow state: connect a token, pick a
// database and routines, then hand out the widget URLs.
package wizard

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/limbo/routinewidget/internal/codec"
	errorvalues "github.com/limbo/routinewidget/internal/error_values"
	"github.com/limbo/routinewidget/internal/service"
	"github.com/limbo/routinewidget/internal/widget"
	"github.com/limbo/routinewidget/pkg/entity"
)

type Step int

const (
	StepToken Step = iota + 1
	StepConfigure
	StepResult
)

const DefaultDebounce = 300 * time.Millisecond

const (
	msgTokenFormat   = "올바른 Notion API 토큰을 입력해주세요"
	msgListDatabases = "데이터베이스를 불러올 수 없습니다. 토큰을 확인해주세요."
)

type DatabaseLister interface {
	ListDatabases(ctx context.Context, token string) ([]entity.DatabaseSummary, error)
}

type Options struct {
	Lister  DatabaseLister
	BaseURL string
	// Debounce delays preview rebuilds after an edit. Defaults to 300ms.
	Debounce time.Duration
	Clock    widget.Clock
	// OnPreview receives every rebuilt preview URL.
	OnPreview func(url string)
	Logger    *slog.Logger
}

// State is a copy of the wizard for rendering.
type State struct {
	Step       Step
	Token      string
	Databases  []entity.DatabaseSummary
	DatabaseID string
	Theme      entity.Theme
	Routines   []entity.Routine
	PreviewURL string
	URLs       map[codec.Variant]string
	Err        string
}

type Wizard struct {
	opts Options

	mu         sync.Mutex
	step       Step
	token      string
	databases  []entity.DatabaseSummary
	databaseID string
	theme      entity.Theme
	routines   []entity.Routine
	previewURL string
	urls       map[codec.Variant]string
	errMsg     string

	previewTimer widget.Timer
	previewGen   uint64
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func routineValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

func New(opts Options) *Wizard {
	if opts.Lister == nil {
		log.Fatal("provided nil database lister")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = widget.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Wizard{opts: opts, step: StepToken, theme: entity.ThemePink}
}

// ConnectToken checks the token format, then lists the databases it can see.
// The wizard only moves on when listing succeeds.
func (w *Wizard) ConnectToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	w.mu.Lock()
	if w.step != StepToken {
		w.mu.Unlock()
		return errorvalues.ErrWizardStep
	}
	w.token = token
	if !service.HasTokenPrefix(token) {
		w.errMsg = msgTokenFormat
		w.mu.Unlock()
		return &errorvalues.ValidationError{Field: "token", Reason: "invalid token format"}
	}
	w.errMsg = ""
	w.mu.Unlock()

	dbs, err := w.opts.Lister.ListDatabases(ctx, token)

	w.mu.Lock()
	if w.step != StepToken || w.token != token {
		w.mu.Unlock()
		return errorvalues.ErrWizardStep
	}
	if err != nil {
		w.errMsg = msgListDatabases
		w.mu.Unlock()
		w.opts.Logger.Warn("listing databases failed", slog.String("error", err.Error()))
		return err
	}
	w.databases = dbs
	w.step = StepConfigure
	w.mu.Unlock()
	w.opts.Logger.Info("token connected", slog.Int("databases", len(dbs)))
	w.schedulePreview()
	return nil
}

func (w *Wizard) SelectDatabase(id string) error {
	w.mu.Lock()
	if w.step != StepConfigure {
		w.mu.Unlock()
		return errorvalues.ErrWizardStep
	}
	found := false
	for _, db := range w.databases {
		if db.ID == id {
			found = true
			break
		}
	}
	if !found {
		w.mu.Unlock()
		return &errorvalues.ValidationError{Field: "databaseId", Reason: "unknown database"}
	}
	w.databaseID = id
	w.mu.Unlock()
	w.schedulePreview()
	return nil
}

func (w *Wizard) SetTheme(th entity.Theme) error {
	valid := false
	for _, t := range entity.Themes {
		if t == th {
			valid = true
		}
	}
	if !valid {
		return &errorvalues.ValidationError{Field: "theme", Reason: "unknown theme"}
	}
	return w.edit(func() error {
		w.theme = th
		return nil
	})
}

func (w *Wizard) AddRoutine(r entity.Routine) error {
	if err := checkRoutine(r); err != nil {
		return err
	}
	return w.edit(func() error {
		w.routines = append(w.routines, r)
		return nil
	})
}

func (w *Wizard) UpdateRoutine(i int, r entity.Routine) error {
	if err := checkRoutine(r); err != nil {
		return err
	}
	return w.edit(func() error {
		if i < 0 || i >= len(w.routines) {
			return errorvalues.ErrRoutineIndex
		}
		w.routines[i] = r
		return nil
	})
}

func (w *Wizard) RemoveRoutine(i int) error {
	return w.edit(func() error {
		if i < 0 || i >= len(w.routines) {
			return errorvalues.ErrRoutineIndex
		}
		w.routines = append(w.routines[:i], w.routines[i+1:]...)
		return nil
	})
}

// MoveRoutine moves the routine at from so that it ends up at index to.
func (w *Wizard) MoveRoutine(from, to int) error {
	return w.edit(func() error {
		n := len(w.routines)
		if from < 0 || from >= n || to < 0 || to >= n {
			return errorvalues.ErrRoutineIndex
		}
		r := w.routines[from]
		w.routines = append(w.routines[:from], w.routines[from+1:]...)
		w.routines = append(w.routines[:to], append([]entity.Routine{r}, w.routines[to:]...)...)
		return nil
	})
}

func checkRoutine(r entity.Routine) error {
	err := routineValidator().Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Tag() == "required" {
			return &errorvalues.ValidationError{Field: "name"}
		}
		return &errorvalues.ValidationError{Field: "duration", Reason: "must be at least 1"}
	}
	return err
}

// edit applies fn during the configure step and schedules a preview rebuild.
func (w *Wizard) edit(fn func() error) error {
	w.mu.Lock()
	if w.step != StepConfigure {
		w.mu.Unlock()
		return errorvalues.ErrWizardStep
	}
	if err := fn(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	w.schedulePreview()
	return nil
}

func (w *Wizard) config(preview bool) entity.WidgetConfig {
	cfg := entity.WidgetConfig{
		Token:      w.token,
		DatabaseID: w.databaseID,
		Theme:      w.theme,
		IsPreview:  preview,
	}
	if len(w.routines) > 0 {
		cfg.Routines = append([]entity.Routine(nil), w.routines...)
	}
	return cfg
}

func (w *Wizard) schedulePreview() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.previewTimer != nil {
		w.previewTimer.Stop()
	}
	w.previewGen++
	gen := w.previewGen
	w.previewTimer = w.opts.Clock.AfterFunc(w.opts.Debounce, func() { w.buildPreview(gen) })
}

func (w *Wizard) buildPreview(gen uint64) {
	w.mu.Lock()
	if gen != w.previewGen || w.step != StepConfigure {
		w.mu.Unlock()
		return
	}
	token, err := codec.EncodeConfig(w.config(true))
	if err != nil {
		w.mu.Unlock()
		w.opts.Logger.Error("encoding preview config failed", slog.String("error", err.Error()))
		return
	}
	url := codec.WidgetURL(w.opts.BaseURL, codec.VariantProfile, token)
	w.previewURL = url
	w.previewTimer = nil
	w.mu.Unlock()
	if w.opts.OnPreview != nil {
		w.opts.OnPreview(url)
	}
}

// Generate builds the final URL of every variant and moves to the result step.
func (w *Wizard) Generate() (map[codec.Variant]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepConfigure {
		return nil, errorvalues.ErrWizardStep
	}
	if w.databaseID == "" {
		return nil, errorvalues.ErrNoDatabaseSelected
	}
	urls, err := codec.WidgetURLs(w.opts.BaseURL, w.config(false))
	if err != nil {
		return nil, err
	}
	if w.previewTimer != nil {
		w.previewTimer.Stop()
		w.previewTimer = nil
	}
	w.urls = urls
	w.step = StepResult
	return copyURLs(urls), nil
}

// Back returns to the previous step. Leaving the configure step keeps the
// token and drops everything listed with it.
func (w *Wizard) Back() {
	w.mu.Lock()
	switch w.step {
	case StepResult:
		w.step = StepConfigure
		w.urls = nil
		w.mu.Unlock()
		w.schedulePreview()
		return
	case StepConfigure:
		w.step = StepToken
		w.databases = nil
		w.databaseID = ""
		w.previewURL = ""
		w.previewGen++
		if w.previewTimer != nil {
			w.previewTimer.Stop()
			w.previewTimer = nil
		}
	}
	w.mu.Unlock()
}

func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.previewTimer != nil {
		w.previewTimer.Stop()
		w.previewTimer = nil
	}
	w.previewGen++
	w.step = StepToken
	w.token = ""
	w.databases = nil
	w.databaseID = ""
	w.theme = entity.ThemePink
	w.routines = nil
	w.previewURL = ""
	w.urls = nil
	w.errMsg = ""
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Step:       w.step,
		Token:      w.token,
		Databases:  append([]entity.DatabaseSummary(nil), w.databases...),
		DatabaseID: w.databaseID,
		Theme:      w.theme,
		Routines:   append([]entity.Routine(nil), w.routines...),
		PreviewURL: w.previewURL,
		URLs:       copyURLs(w.urls),
		Err:        w.errMsg,
	}
}

func copyURLs(in map[codec.Variant]string) map[codec.Variant]string {
	if in == nil {
		return nil
	}
	out := make(map[codec.Variant]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
