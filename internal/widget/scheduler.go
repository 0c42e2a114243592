package widget

import (
	"time"

	"github.com/robfig/cron"
)

// Task is a running periodic job.
type Task interface {
	Stop()
}

type Scheduler interface {
	Every(d time.Duration, fn func()) Task
}

// CronScheduler runs each job on its own cron instance so stopping one poll
// never affects another widget.
type CronScheduler struct{}

func (CronScheduler) Every(d time.Duration, fn func()) Task {
	c := cron.New()
	c.Schedule(cron.Every(d), cron.FuncJob(fn))
	c.Start()
	return c
}

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock schedules one-shot callbacks. cron only has second resolution and no
// one-shot jobs, so the long-press timer goes through here.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
