package widget

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/limbo/routinewidget/pkg/entity"
)

const LogCapacity = 50

// LogSender ships one entry to a remote sink.
type LogSender func(ctx context.Context, entry entity.LogEntry) error

// LogBuffer keeps the most recent entries of one widget instance. Add is a
// no-op unless the buffer was created enabled.
type LogBuffer struct {
	mu      sync.Mutex
	enabled bool
	entries []entity.LogEntry
	next    int
	full    bool
	send    LogSender
	now     func() time.Time
}

func NewLogBuffer(enabled bool, send LogSender) *LogBuffer {
	return &LogBuffer{
		enabled: enabled,
		entries: make([]entity.LogEntry, LogCapacity),
		send:    send,
		now:     time.Now,
	}
}

func (b *LogBuffer) Enabled() bool {
	return b.enabled
}

func (b *LogBuffer) Add(level entity.LogLevel, message string, meta map[string]any) {
	if !b.enabled {
		return
	}
	entry := entity.LogEntry{
		ID:        uuid.NewString(),
		Timestamp: b.now().UnixMilli(),
		Level:     level,
		Message:   message,
		Meta:      meta,
	}
	b.mu.Lock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % LogCapacity
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()

	if b.send != nil {
		// failures are dropped; reporting them would feed the buffer again
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = b.send(ctx, entry)
		}()
	}
}

// Entries returns the buffered entries, oldest first.
func (b *LogBuffer) Entries() []entity.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		return append([]entity.LogEntry(nil), b.entries[:b.next]...)
	}
	out := make([]entity.LogEntry, 0, LogCapacity)
	out = append(out, b.entries[b.next:]...)
	return append(out, b.entries[:b.next]...)
}

type LogShipper interface {
	SendLog(ctx context.Context, userAgent string, entry entity.LogEntry) error
}

// RemoteSender adapts a gateway client to a LogSender.
func RemoteSender(s LogShipper, userAgent string) LogSender {
	return func(ctx context.Context, entry entity.LogEntry) error {
		return s.SendLog(ctx, userAgent, entry)
	}
}
