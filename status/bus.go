package status

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wu-yy/logtest/anchor"
	"go.uber.org/zap/zapcore"
)

// Listener receives every published message at or above its Level. Log may be
// called from any goroutine.
type Listener interface {
	Log(msg Message)
	Level() zapcore.Level
}

type subscription struct {
	l Listener
}

// Bus fans messages out to the subscribed listeners. The listener set is
// copy-on-write, publishing never waits for Subscribe or unsubscribe.
type Bus struct {
	mu        sync.Mutex
	listeners atomic.Pointer[[]*subscription]
	now       func() time.Time
}

var defaultBus = NewBus()

// Default returns the process-wide bus.
func Default() *Bus {
	return defaultBus
}

func NewBus() *Bus {
	b := &Bus{now: time.Now}
	b.listeners.Store(&[]*subscription{})
	return b
}

// Subscribe registers l and returns the function removing it again. Calling
// the returned function more than once is harmless.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	sub := &subscription{l: l}

	b.mu.Lock()
	curr := *b.listeners.Load()
	next := make([]*subscription, 0, len(curr)+1)
	next = append(next, curr...)
	next = append(next, sub)
	b.listeners.Store(&next)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(func(s *subscription) bool { return s == sub })
		})
	}
}

// Remove unsubscribes every listener matching fn and returns how many were
// removed.
func (b *Bus) Remove(fn func(Listener) bool) int {
	return b.remove(func(s *subscription) bool { return fn(s.l) })
}

func (b *Bus) remove(match func(*subscription) bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	curr := *b.listeners.Load()
	next := make([]*subscription, 0, len(curr))
	for i := 0; i < len(curr); i++ {
		if match(curr[i]) {
			continue
		}
		next = append(next, curr[i])
	}
	b.listeners.Store(&next)

	return len(curr) - len(next)
}

// Listeners returns a snapshot of the subscribed listeners.
func (b *Bus) Listeners() []Listener {
	curr := *b.listeners.Load()
	out := make([]Listener, len(curr))
	for i := 0; i < len(curr); i++ {
		out[i] = curr[i].l
	}
	return out
}

// Emit formats and publishes a message tagged with the scope carried by ctx.
func (b *Bus) Emit(ctx context.Context, level zapcore.Level, logger string, format string, args ...any) {
	b.publish(ctx, level, logger, nil, format, args...)
}

// EmitError is Emit with an attached cause.
func (b *Bus) EmitError(ctx context.Context, logger string, err error, format string, args ...any) {
	b.publish(ctx, zapcore.ErrorLevel, logger, err, format, args...)
}

func (b *Bus) publish(ctx context.Context, level zapcore.Level, logger string, err error, format string, args ...any) {
	msg := Message{
		Level:  level,
		Logger: logger,
		Time:   b.now().UTC(),
		Err:    err,
	}
	if len(args) > 0 {
		msg.Text = fmt.Sprintf(format, args...)
	} else {
		msg.Text = format
	}
	if s, ok := anchor.FromContext(ctx); ok {
		msg.ScopeID = s.ID()
	}

	b.Publish(msg)
}

// Publish delivers msg as is.
func (b *Bus) Publish(msg Message) {
	curr := *b.listeners.Load()
	for i := 0; i < len(curr); i++ {
		if msg.Level < curr[i].l.Level() {
			continue
		}
		curr[i].l.Log(msg)
	}
}
