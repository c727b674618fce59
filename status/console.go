package status

import (
	"iter"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Listener = (*ConsoleListener)(nil)

// ConsoleListener prints messages through a zap logger.
type ConsoleListener struct {
	log   *zap.Logger
	level zapcore.Level
}

func NewConsoleListener(log *zap.Logger, level zapcore.Level) *ConsoleListener {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConsoleListener{log: log, level: level}
}

func (c *ConsoleListener) Level() zapcore.Level {
	return c.level
}

func (c *ConsoleListener) Log(msg Message) {
	write(c.log, msg)
}

// Replay prints every message regardless of level and returns how many were
// printed.
func Replay(log *zap.Logger, messages iter.Seq[Message]) int {
	n := 0
	for m := range messages {
		write(log, m)
		n++
	}
	return n
}

func write(log *zap.Logger, msg Message) {
	level := msg.Level
	// zap panics or exits on write above error
	if level > zapcore.ErrorLevel {
		level = zapcore.ErrorLevel
	}

	ce := log.Check(level, msg.Text)
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, 4)
	if msg.Logger != "" {
		fields = append(fields, zap.String("logger", msg.Logger))
	}
	if msg.ScopeID != "" {
		fields = append(fields, zap.String("scope_id", msg.ScopeID))
	}
	if !msg.Time.IsZero() {
		fields = append(fields, zap.Time("time", msg.Time))
	}
	if msg.Err != nil {
		fields = append(fields, zap.Error(msg.Err))
	}
	ce.Write(fields...)
}

type nopConsole struct{}

func (nopConsole) Log(Message) {}

func (nopConsole) Level() zapcore.Level {
	return zapcore.InvalidLevel
}

// DisableConsole replaces the console listeners subscribed on bus with a
// listener that drops everything. It returns how many were replaced.
func DisableConsole(bus *Bus) int {
	n := bus.Remove(func(l Listener) bool {
		switch l.(type) {
		case *ConsoleListener, nopConsole:
			return true
		default:
			return false
		}
	})
	bus.Subscribe(nopConsole{})
	return n
}
