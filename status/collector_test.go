package status

import (
	"bufio"
	"bytes"
	"context"
	stderr "errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wu-yy/logtest/anchor"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

type runner string

func (r runner) Name() string {
	return string(r)
}

func enter(t *testing.T, reg *anchor.Registry, name string, parent *anchor.Scope) *anchor.Scope {
	t.Helper()
	s := anchor.NewScope(name, parent)
	require.NoError(t, reg.Enter(runner(name), s))
	return s
}

func TestCollectorFiltersByScope(t *testing.T) {
	reg := anchor.NewRegistry(nil)
	bus := NewBus()

	a := enter(t, reg, "a", nil)
	b := enter(t, reg, "b", nil)

	ca, err := Attach(reg, bus, a)
	require.NoError(t, err)
	cb, err := Attach(reg, bus, b)
	require.NoError(t, err)

	bus.Emit(anchor.WithScope(context.Background(), a), zapcore.ErrorLevel, "", "x")
	bus.Emit(anchor.WithScope(context.Background(), b), zapcore.InfoLevel, "", "y")
	bus.Emit(context.Background(), zapcore.WarnLevel, "", "untagged")

	got := slices.Collect(ca.Messages())
	require.Len(t, got, 1)
	assert.Equal(t, zapcore.ErrorLevel, got[0].Level)
	assert.Equal(t, "x", got[0].Text)
	assert.Equal(t, a.ID(), got[0].ScopeID)

	got = slices.Collect(cb.Messages())
	require.Len(t, got, 1)
	assert.Equal(t, "y", got[0].Text)
}

func TestCollectorDetachesOnExit(t *testing.T) {
	reg := anchor.NewRegistry(nil)
	bus := NewBus()
	a := enter(t, reg, "a", nil)

	c, err := Attach(reg, bus, a)
	require.NoError(t, err)
	require.Len(t, bus.Listeners(), 1)

	found, ok := FromScope(reg, a)
	require.True(t, ok)
	require.Same(t, c, found)

	require.NoError(t, reg.Exit(context.Background(), a))
	require.Empty(t, bus.Listeners())

	// what was captured stays readable after the scope is gone
	bus.Publish(Message{Level: zapcore.ErrorLevel, Text: "late", ScopeID: a.ID()})
	require.Equal(t, 0, c.Len())
}

func TestCollectorAttachToDeadScope(t *testing.T) {
	reg := anchor.NewRegistry(nil)
	bus := NewBus()

	_, err := Attach(reg, bus, anchor.NewScope("never-entered", nil))
	require.ErrorIs(t, err, anchor.ErrScopeNotLive)
	require.Empty(t, bus.Listeners())
}

func TestMessagesIsRestartable(t *testing.T) {
	reg := anchor.NewRegistry(nil)
	bus := NewBus()
	a := enter(t, reg, "a", nil)
	ctx := anchor.WithScope(context.Background(), a)

	c, err := Attach(reg, bus, a)
	require.NoError(t, err)

	bus.Emit(ctx, zapcore.InfoLevel, "core", "first")
	seq := c.Messages()
	require.Len(t, slices.Collect(seq), 1)

	bus.Emit(ctx, zapcore.InfoLevel, "core", "second %d", 2)
	texts := make([]string, 0, 2)
	for m := range seq {
		texts = append(texts, m.Text)
	}
	require.Equal(t, []string{"first", "second 2"}, texts)

	// early break
	for range seq {
		break
	}
}

func TestConcurrentEmitNeverLosesMessages(t *testing.T) {
	reg := anchor.NewRegistry(nil)
	bus := NewBus()
	a := enter(t, reg, "a", nil)
	b := enter(t, reg, "b", nil)

	ca, err := Attach(reg, bus, a)
	require.NoError(t, err)
	cb, err := Attach(reg, bus, b)
	require.NoError(t, err)

	const emitters, perEmitter = 8, 250
	var g errgroup.Group
	for i := 0; i < emitters; i++ {
		scope := a
		if i%2 == 1 {
			scope = b
		}
		ctx := anchor.WithScope(context.Background(), scope)
		g.Go(func() error {
			for j := 0; j < perEmitter; j++ {
				bus.Emit(ctx, zapcore.DebugLevel, "worker", "message %d-%d", i, j)
			}
			return nil
		})
	}

	// reads while appending must only ever observe a growing prefix
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := 0
		for k := 0; k < 100; k++ {
			n := len(slices.Collect(ca.Messages()))
			assert.GreaterOrEqual(t, n, last)
			last = n
		}
	}()

	require.NoError(t, g.Wait())
	wg.Wait()

	require.Equal(t, emitters/2*perEmitter, ca.Len())
	require.Equal(t, emitters/2*perEmitter, cb.Len())
}

func TestFind(t *testing.T) {
	reg := anchor.NewRegistry(nil)
	bus := NewBus()
	a := enter(t, reg, "a", nil)
	ctx := anchor.WithScope(context.Background(), a)

	c, err := Attach(reg, bus, a)
	require.NoError(t, err)

	bus.Emit(ctx, zapcore.DebugLevel, "config", "Building Plugin[name=RollingRandomAccessFile]")
	bus.EmitError(ctx, "config", stderr.New("incompatible appenders"), "Could not configure plugin element RollingRandomAccessFile")
	bus.Emit(ctx, zapcore.ErrorLevel, "config", "Unable to invoke factory method")

	m, ok := c.First(zapcore.ErrorLevel, "RollingRandomAccessFile")
	require.True(t, ok)
	require.Equal(t, "Could not configure plugin element RollingRandomAccessFile", m.Text)
	require.EqualError(t, m.Err, "incompatible appenders")
	require.Equal(t, "ERROR config: Could not configure plugin element RollingRandomAccessFile: incompatible appenders", m.String())

	require.Len(t, slices.Collect(c.Find(zapcore.ErrorLevel, "")), 2)
	_, ok = c.First(zapcore.WarnLevel, "RollingRandomAccessFile")
	require.False(t, ok)
}

func TestWriteJSON(t *testing.T) {
	reg := anchor.NewRegistry(nil)
	bus := NewBus()
	a := enter(t, reg, "a", nil)
	ctx := anchor.WithScope(context.Background(), a)

	c, err := Attach(reg, bus, a)
	require.NoError(t, err)

	bus.Emit(ctx, zapcore.WarnLevel, "core", "first")
	bus.EmitError(ctx, "core", fmt.Errorf("cause"), "second")

	var buf bytes.Buffer
	require.NoError(t, c.WriteJSON(&buf))

	var lines []map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		lines = append(lines, line)
	}

	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "first", lines[0]["message"])
	assert.Equal(t, a.ID(), lines[0]["scope_id"])
	assert.NotContains(t, lines[0], "error")
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "cause", lines[1]["error"])
}
