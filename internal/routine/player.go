// Package routine plays a widget's routine list one step at a time and
// reports the outcome to the gateway when the run is over.
package routine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	errorvalues "github.com/limbo/routinewidget/internal/error_values"
	"github.com/limbo/routinewidget/pkg/entity"
)

type Saver interface {
	SaveRoutine(ctx context.Context, token string, s entity.RoutineSummary) error
}

type Status int

const (
	Pending Status = iota
	Active
	Completed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Skipped:
		return "skipped"
	default:
		return "pending"
	}
}

type Step struct {
	Routine   entity.Routine
	Status    Status
	StartedAt time.Time
}

// Length is the planned duration; Routine.Duration is in minutes.
func (s Step) Length() time.Duration {
	return time.Duration(s.Routine.Duration) * time.Minute
}

type Player struct {
	mu         sync.Mutex
	steps      []Step
	current    int
	token      string
	databaseID string
	saver      Saver
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Player)

func WithLocation(loc *time.Location) Option {
	return func(p *Player) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Player) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPlayer(cfg entity.WidgetConfig, saver Saver, opts ...Option) *Player {
	p := &Player{
		steps:      make([]Step, len(cfg.Routines)),
		token:      cfg.Token,
		databaseID: cfg.DatabaseID,
		saver:      saver,
		loc:        time.Local,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for i, r := range cfg.Routines {
		p.steps[i] = Step{Routine: r}
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start activates the current step. Starting an already active step is a no-op.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.steps) == 0 {
		return errorvalues.ErrNoRoutines
	}
	if p.current >= len(p.steps) {
		return errorvalues.ErrRoutineFinished
	}
	if p.steps[p.current].Status == Pending {
		p.steps[p.current].Status = Active
		p.steps[p.current].StartedAt = p.now()
	}
	return nil
}

func (p *Player) Complete() error {
	return p.advance(Completed)
}

func (p *Player) Skip() error {
	return p.advance(Skipped)
}

// advance closes the active step with st and starts the next one right away.
func (p *Player) advance(st Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current >= len(p.steps) {
		return errorvalues.ErrRoutineFinished
	}
	if p.steps[p.current].Status != Active {
		return errorvalues.ErrRoutineNotStarted
	}
	p.steps[p.current].Status = st
	p.current++
	if p.current < len(p.steps) {
		p.steps[p.current].Status = Active
		p.steps[p.current].StartedAt = p.now()
	}
	return nil
}

// Current returns the active or next pending step.
func (p *Player) Current() (Step, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current >= len(p.steps) {
		return Step{}, false
	}
	return p.steps[p.current], true
}

// Remaining is the time left on the active step at now, never negative.
// A pending step reports its full length.
func (p *Player) Remaining(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current >= len(p.steps) {
		return 0
	}
	step := p.steps[p.current]
	if step.Status != Active {
		return step.Length()
	}
	left := step.Length() - now.Sub(step.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (p *Player) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current >= len(p.steps)
}

func (p *Player) Steps() []Step {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Step(nil), p.steps...)
}

func (p *Player) Counts() (completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.steps {
		if s.Status == Completed {
			completed++
		}
	}
	return completed, len(p.steps)
}

// Finish reports the run for today's date. It can be called before every step
// is closed; open steps count as not completed.
func (p *Player) Finish(ctx context.Context, mood string) error {
	if p.saver == nil {
		return fmt.Errorf("routine player has no saver")
	}
	completed, total := p.Counts()
	summary := entity.RoutineSummary{
		DatabaseID:     p.databaseID,
		Date:           p.now().In(p.loc),
		CompletedCount: completed,
		TotalCount:     total,
		Mood:           strings.TrimSpace(mood),
	}
	if err := p.saver.SaveRoutine(ctx, p.token, summary); err != nil {
		p.logger.Error("saving routine failed", slog.String("error", err.Error()))
		return err
	}
	p.logger.Info("routine saved", slog.Int("completed", completed), slog.Int("total", total))
	return nil
}
