package status

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wu-yy/logtest/anchor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu    sync.Mutex
	level zapcore.Level
	got   []Message
}

func (r *recorder) Log(msg Message) {
	r.mu.Lock()
	r.got = append(r.got, msg)
	r.mu.Unlock()
}

func (r *recorder) Level() zapcore.Level {
	return r.level
}

func TestBusRespectsListenerLevel(t *testing.T) {
	bus := NewBus()
	warn := &recorder{level: zapcore.WarnLevel}
	all := &recorder{level: zapcore.DebugLevel}
	bus.Subscribe(warn)
	bus.Subscribe(all)

	bus.Emit(context.Background(), zapcore.InfoLevel, "", "info")
	bus.Emit(context.Background(), zapcore.ErrorLevel, "", "error")

	require.Len(t, warn.got, 1)
	require.Equal(t, "error", warn.got[0].Text)
	require.Len(t, all.got, 2)
}

func TestBusUnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	r1 := &recorder{}
	r2 := &recorder{}

	un1 := bus.Subscribe(r1)
	bus.Subscribe(r2)

	un1()
	un1()
	require.Equal(t, []Listener{r2}, bus.Listeners())

	bus.Emit(context.Background(), zapcore.InfoLevel, "", "after")
	require.Empty(t, r1.got)
	require.Len(t, r2.got, 1)
}

func TestBusTagsMessagesWithScope(t *testing.T) {
	bus := NewBus()
	r := &recorder{level: zapcore.DebugLevel}
	bus.Subscribe(r)

	s := anchor.NewScope("unit", nil)
	bus.Emit(anchor.WithScope(context.Background(), s), zapcore.InfoLevel, "core", "%s=%d", "answer", 42)

	require.Len(t, r.got, 1)
	assert.Equal(t, s.ID(), r.got[0].ScopeID)
	assert.Equal(t, "answer=42", r.got[0].Text)
	assert.Equal(t, "core", r.got[0].Logger)
	assert.False(t, r.got[0].Time.IsZero())
}

func TestConsoleListener(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	bus := NewBus()
	bus.Subscribe(NewConsoleListener(zap.New(core), zapcore.WarnLevel))

	bus.Emit(context.Background(), zapcore.InfoLevel, "core", "quiet")
	bus.Emit(context.Background(), zapcore.WarnLevel, "core", "loud")
	bus.Publish(Message{Level: zapcore.FatalLevel, Text: "fatal status"})

	require.Equal(t, 0, logs.FilterMessage("quiet").Len())
	require.Equal(t, 1, logs.FilterMessage("loud").Len())
	require.Equal(t, 1, logs.FilterField(zap.String("logger", "core")).Len())

	// fatal status messages are printed, never acted upon
	fatal := logs.FilterMessage("fatal status").All()
	require.Len(t, fatal, 1)
	require.Equal(t, zapcore.ErrorLevel, fatal[0].Level)
}

func TestDisableConsole(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	bus := NewBus()
	bus.Subscribe(NewConsoleListener(zap.New(core), zapcore.DebugLevel))
	other := &recorder{level: zapcore.DebugLevel}
	bus.Subscribe(other)

	require.Equal(t, 1, DisableConsole(bus))
	require.Len(t, bus.Listeners(), 2)

	bus.Emit(context.Background(), zapcore.ErrorLevel, "", "dropped")
	require.Equal(t, 0, logs.Len())
	require.Len(t, other.got, 1)

	// disabling twice keeps a single no-op listener
	DisableConsole(bus)
	require.Len(t, bus.Listeners(), 2)
}

func TestReplay(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	msgs := []Message{
		{Level: zapcore.DebugLevel, Text: "one"},
		{Level: zapcore.ErrorLevel, Text: "two"},
	}
	require.Equal(t, 2, Replay(zap.New(core), slices.Values(msgs)))
	require.Equal(t, 2, logs.Len())
}
