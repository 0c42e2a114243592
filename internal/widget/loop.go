// Package widget drives one embedded widget instance: it decodes the config
// from the URL, keeps the last good config in the key-value store, polls the
// gateway and tracks the small amount of UI state the views need.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/limbo/routinewidget/internal/codec"
	"github.com/limbo/routinewidget/internal/kvstore"
	"github.com/limbo/routinewidget/internal/routine"
	"github.com/limbo/routinewidget/pkg/entity"
)

const (
	DefaultPollInterval  = 5 * time.Minute
	DefaultLongPress     = 2 * time.Second
	DefaultPraiseTimeout = 3 * time.Second

	// ConfigInvalidMessage is shown for a missing or malformed config parameter.
	ConfigInvalidMessage = "위젯 설정이 올바르지 않습니다. 설정 페이지에서 위젯 URL을 다시 만들어 주세요."
)

type State int

const (
	Decoding State = iota
	ConfigInvalid
	Loading
	Error
	Ready
)

func (s State) String() string {
	switch s {
	case ConfigInvalid:
		return "config-invalid"
	case Loading:
		return "loading"
	case Error:
		return "error"
	case Ready:
		return "ready"
	default:
		return "decoding"
	}
}

type Gateway interface {
	WidgetData(ctx context.Context, token, databaseID string) (*entity.WidgetData, error)
	RandomPraise(ctx context.Context, token, databaseID, exclude string) (string, error)
}

type Options struct {
	Variant   codec.Variant
	Store     *kvstore.Store
	Gateway   Gateway
	Scheduler Scheduler
	Clock     Clock
	// Saver receives routine summaries of the routine variant. The gateway
	// client satisfies it.
	Saver routine.Saver

	PollInterval  time.Duration
	LongPress     time.Duration
	PraiseTimeout time.Duration

	// Debug turns on the log buffer. RemoteLog is only used when Debug is set.
	Debug     bool
	RemoteLog LogSender

	UserAgent string
	Viewport  string
	Logger    *slog.Logger
	// OnChange is called with a fresh snapshot after every state change,
	// outside the loop lock.
	OnChange func(Snapshot)
}

// Snapshot is a consistent copy of the loop state for rendering.
type Snapshot struct {
	Variant      codec.Variant
	State        State
	Config       *entity.WidgetConfig
	Data         *entity.WidgetData
	Praise       string
	Err          string
	DebugVisible bool
	Logs         []entity.LogEntry
	UserAgent    string
	Viewport     string
}

type Loop struct {
	opts   Options
	logger *slog.Logger
	logs   *LogBuffer

	mu     sync.Mutex
	state  State
	cfg    *entity.WidgetConfig
	data   *entity.WidgetData
	praise string
	errMsg string
	debug  bool
	player *routine.Player

	gen      uint64
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	poll     Task

	pressID    string
	pressTimer Timer
}

func New(opts Options) *Loop {
	if opts.Variant == "" {
		opts.Variant = codec.VariantProfile
	}
	if opts.Store == nil {
		opts.Store = kvstore.NewMemory()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = CronScheduler{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.LongPress <= 0 {
		opts.LongPress = DefaultLongPress
	}
	if opts.PraiseTimeout <= 0 {
		opts.PraiseTimeout = DefaultPraiseTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var send LogSender
	if opts.Debug {
		send = opts.RemoteLog
	}
	return &Loop{
		opts:   opts,
		logger: opts.Logger.With(slog.String("variant", string(opts.Variant))),
		logs:   NewLogBuffer(opts.Debug, send),
		state:  Decoding,
	}
}

// Mount decodes the config parameter once. On success the config is
// persisted, a fetch starts and polling is scheduled.
func (l *Loop) Mount(q url.Values) error {
	cfg, err := codec.FromQuery(q)
	if err != nil {
		l.logger.Warn("widget config rejected", slog.String("error", err.Error()))
		l.logs.Add(entity.LevelError, "config decode failed", map[string]any{"error": err.Error()})
		l.mu.Lock()
		l.state = ConfigInvalid
		l.errMsg = ConfigInvalidMessage
		l.mu.Unlock()
		l.notify()
		return err
	}
	l.apply(cfg)
	return nil
}

// Restore mounts the config persisted by the last successful Mount.
func (l *Loop) Restore() error {
	raw, ok := l.opts.Store.Get(kvstore.KeyLastConfig)
	if !ok {
		return l.Mount(url.Values{})
	}
	cfg, err := codec.UnmarshalConfig([]byte(raw))
	if err != nil {
		l.logger.Warn("stored widget config rejected", slog.String("error", err.Error()))
		l.mu.Lock()
		l.state = ConfigInvalid
		l.errMsg = ConfigInvalidMessage
		l.mu.Unlock()
		l.notify()
		return err
	}
	l.logs.Add(entity.LevelInfo, "config restored", nil)
	l.apply(cfg)
	return nil
}

func (l *Loop) apply(cfg entity.WidgetConfig) {
	l.persist(cfg)
	l.mu.Lock()
	if l.poll != nil {
		l.poll.Stop()
	}
	l.cfg = &cfg
	l.data = nil
	l.praise = ""
	l.errMsg = ""
	if l.opts.Variant == codec.VariantRoutine {
		l.player = routine.NewPlayer(cfg, l.opts.Saver, routine.WithLogger(l.logger))
	}
	l.poll = l.opts.Scheduler.Every(l.opts.PollInterval, l.Refresh)
	l.mu.Unlock()
	l.logs.Add(entity.LevelInfo, "config mounted", map[string]any{"theme": string(cfg.Theme), "preview": cfg.IsPreview})
	l.Refresh()
}

func (l *Loop) persist(cfg entity.WidgetConfig) {
	raw, err := codec.MarshalConfig(cfg)
	if err != nil {
		l.logger.Error("encoding widget config failed", slog.String("error", err.Error()))
		return
	}
	l.opts.Store.Set(kvstore.KeyLastConfig, raw)
}

// Refresh starts a fetch, cancelling the one in flight. It is also the poll job.
func (l *Loop) Refresh() {
	l.mu.Lock()
	if l.cfg == nil {
		l.mu.Unlock()
		return
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	gen := l.gen
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	cfg := *l.cfg
	l.state = Loading
	l.inflight.Add(1)
	l.mu.Unlock()
	l.notify()

	go func() {
		defer l.inflight.Done()
		defer cancel()
		l.fetch(ctx, gen, cfg)
	}()
}

func (l *Loop) fetch(ctx context.Context, gen uint64, cfg entity.WidgetConfig) {
	data, err := l.opts.Gateway.WidgetData(ctx, cfg.Token, cfg.DatabaseID)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			l.mu.Unlock()
			return
		}
		l.state = Error
		l.errMsg = err.Error()
		l.mu.Unlock()
		l.logger.Warn("widget data fetch failed", slog.String("error", err.Error()))
		l.logs.Add(entity.LevelError, "fetch failed", map[string]any{"error": err.Error()})
		l.notify()
		return
	}
	l.state = Ready
	l.errMsg = ""
	l.data = data
	if l.opts.Variant == codec.VariantDialogue {
		l.praise = dialogueText(data)
	}
	l.mu.Unlock()
	l.logs.Add(entity.LevelInfo, "data loaded", map[string]any{"name": data.Name})
	l.notify()
}

// dialogueText picks the line the dialogue shows: the praise, else the main
// text, else the default praise.
func dialogueText(data *entity.WidgetData) string {
	if data.Praise != "" {
		return data.Praise
	}
	if data.MainText != "" {
		return data.MainText
	}
	return entity.DefaultPraise
}

// Wait blocks until every started fetch has returned.
func (l *Loop) Wait() {
	l.inflight.Wait()
}

// Tap cycles the theme and persists the new config. The data is not refetched.
func (l *Loop) Tap() {
	l.mu.Lock()
	if l.cfg == nil {
		l.mu.Unlock()
		return
	}
	next := l.cfg.WithTheme(l.cfg.Theme.Next())
	l.cfg = &next
	l.mu.Unlock()
	l.persist(next)
	l.logs.Add(entity.LevelInfo, "theme changed", map[string]any{"theme": string(next.Theme)})
	l.notify()
}

// PressStart arms the long-press timer. Firing it toggles the debug overlay.
func (l *Loop) PressStart() {
	id := uuid.NewString()
	l.mu.Lock()
	if l.pressTimer != nil {
		l.pressTimer.Stop()
	}
	l.pressID = id
	l.pressTimer = l.opts.Clock.AfterFunc(l.opts.LongPress, func() { l.longPress(id) })
	l.mu.Unlock()
	l.opts.Store.Set(kvstore.KeyDebugTouchTimer, id)
}

func (l *Loop) PressMove() {
	l.cancelPress()
}

func (l *Loop) PressEnd() {
	l.cancelPress()
}

func (l *Loop) cancelPress() {
	l.mu.Lock()
	if l.pressTimer == nil {
		l.mu.Unlock()
		return
	}
	l.pressTimer.Stop()
	l.pressTimer = nil
	l.pressID = ""
	l.mu.Unlock()
	l.opts.Store.Remove(kvstore.KeyDebugTouchTimer)
}

func (l *Loop) longPress(id string) {
	l.mu.Lock()
	if l.pressID != id {
		l.mu.Unlock()
		return
	}
	l.pressID = ""
	l.pressTimer = nil
	l.debug = !l.debug
	visible := l.debug
	l.mu.Unlock()
	l.opts.Store.Remove(kvstore.KeyDebugTouchTimer)
	l.logger.Debug("debug overlay toggled", slog.Bool("visible", visible))
	l.notify()
}

// ToggleDebug flips the overlay without a press gesture.
func (l *Loop) ToggleDebug() {
	l.mu.Lock()
	l.debug = !l.debug
	l.mu.Unlock()
	l.notify()
}

// NextPraise replaces the dialogue praise with a different one. On failure
// the current text stays and the error is returned.
func (l *Loop) NextPraise(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.cfg == nil {
		l.mu.Unlock()
		return "", nil
	}
	cfg := *l.cfg
	current := l.praise
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.opts.PraiseTimeout)
	defer cancel()
	praise, err := l.opts.Gateway.RandomPraise(ctx, cfg.Token, cfg.DatabaseID, current)
	if err != nil {
		l.logger.Warn("next praise failed", slog.String("error", err.Error()))
		l.logs.Add(entity.LevelWarn, "next praise failed", map[string]any{"error": err.Error()})
		return current, err
	}
	l.mu.Lock()
	l.praise = praise
	l.mu.Unlock()
	l.notify()
	return praise, nil
}

// Player returns the routine player of the routine variant, nil otherwise.
func (l *Loop) Player() *routine.Player {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.player
}

// Unmount stops polling, cancels the fetch in flight and disarms the press timer.
func (l *Loop) Unmount() {
	l.mu.Lock()
	if l.poll != nil {
		l.poll.Stop()
		l.poll = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	if l.pressTimer != nil {
		l.pressTimer.Stop()
		l.pressTimer = nil
		l.pressID = ""
	}
	l.mu.Unlock()
}

func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := Snapshot{
		Variant:      l.opts.Variant,
		State:        l.state,
		Praise:       l.praise,
		Err:          l.errMsg,
		DebugVisible: l.debug,
		UserAgent:    l.opts.UserAgent,
		Viewport:     l.opts.Viewport,
	}
	if l.cfg != nil {
		cfg := l.cfg.WithTheme(l.cfg.Theme)
		snap.Config = &cfg
	}
	if l.data != nil {
		data := *l.data
		snap.Data = &data
	}
	if l.debug {
		snap.Logs = l.logs.Entries()
	}
	return snap
}

func (l *Loop) Logs() *LogBuffer {
	return l.logs
}

func (l *Loop) notify() {
	if l.opts.OnChange != nil {
		l.opts.OnChange(l.Snapshot())
	}
}
