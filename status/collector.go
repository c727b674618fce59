package status

import (
	"context"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/wu-yy/logtest/anchor"
	"go.uber.org/zap/zapcore"
)

// CollectorKey resolves the collector attached to a scope.
var CollectorKey = anchor.NewKey[*Collector]("status.collector")

var _ Listener = (*Collector)(nil)

// Collector buffers the messages that originate from one scope.
type Collector struct {
	scope *anchor.Scope

	mu       sync.Mutex
	messages []Message
}

// Attach subscribes a collector for scope on bus. The subscription is released
// when the scope exits.
func Attach(reg *anchor.Registry, bus *Bus, scope *anchor.Scope) (*Collector, error) {
	c := &Collector{scope: scope}

	unsubscribe := bus.Subscribe(c)
	_, err := anchor.Attach(reg, scope, CollectorKey, c, func(context.Context) error {
		unsubscribe()
		return nil
	})
	if err != nil {
		unsubscribe()
		return nil, err
	}

	return c, nil
}

// FromScope returns the collector attached to scope or one of its ancestors.
func FromScope(a anchor.Attributes, scope *anchor.Scope) (*Collector, bool) {
	return anchor.Get(a, scope, CollectorKey)
}

func (c *Collector) Scope() *anchor.Scope {
	return c.scope
}

// Log keeps msg only when it was emitted under the collector's scope.
func (c *Collector) Log(msg Message) {
	if msg.ScopeID != c.scope.ID() {
		return
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

func (c *Collector) Level() zapcore.Level {
	return zapcore.DebugLevel
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// snapshot returns the current prefix. Later appends never touch it.
func (c *Collector) snapshot() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[:len(c.messages):len(c.messages)]
}

// Messages yields the captured messages in arrival order. Every iteration
// starts over and sees the messages captured up to that point.
func (c *Collector) Messages() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for _, m := range c.snapshot() {
			if !yield(m) {
				return
			}
		}
	}
}

// Find yields the messages of the given level whose text contains substr.
func (c *Collector) Find(level zapcore.Level, substr string) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for m := range c.Messages() {
			if m.Level != level || !strings.Contains(m.Text, substr) {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

// First returns the first message matching Find.
func (c *Collector) First(level zapcore.Level, substr string) (Message, bool) {
	for m := range c.Find(level, substr) {
		return m, true
	}
	return Message{}, false
}

// WriteJSON writes the captured messages as JSON lines.
func (c *Collector) WriteJSON(w io.Writer) error {
	return writeJSON(w, c.snapshot())
}
