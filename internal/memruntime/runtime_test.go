package memruntime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wu-yy/logtest/anchor"
	"github.com/wu-yy/logtest/status"
	"go.uber.org/zap/zapcore"
)

type runner string

func (r runner) Name() string { return string(r) }

func TestCreateRejectsInvalidLocation(t *testing.T) {
	f := NewFactory(status.NewBus(), nil)

	_, err := f.Create("suite", "log4j2.invalid")
	require.Error(t, err)
	assert.ErrorContains(t, err, "log4j2.invalid")
	assert.Empty(t, f.Created())
}

func TestStartReportsIncompatibleElement(t *testing.T) {
	bus := status.NewBus()
	reg := anchor.NewRegistry(nil)
	scope := anchor.NewScope("unit", nil)
	require.NoError(t, reg.Enter(runner("unit"), scope))

	c, err := status.Attach(reg, bus, scope)
	require.NoError(t, err)

	res, err := NewFactory(bus, nil).Create("unit", "incompatible.yaml")
	require.NoError(t, err)

	ctx := anchor.WithScope(context.Background(), scope)
	require.NoError(t, res.Start(ctx))
	require.NoError(t, res.Reconfigure(ctx))

	msg, ok := c.First(zapcore.ErrorLevel, "Could not configure plugin element incompatible")
	require.True(t, ok)
	assert.Equal(t, "memruntime", msg.Logger)

	_, ok = c.First(zapcore.DebugLevel, "Reconfiguration 1 started for context unit")
	assert.True(t, ok)

	rt := res.(*Runtime)
	assert.EqualValues(t, 1, rt.Starts())
	assert.EqualValues(t, 1, rt.Reconfigures())

	require.NoError(t, reg.Exit(context.Background(), scope))
}

func TestStopHonorsDeadline(t *testing.T) {
	f := NewFactory(status.NewBus(), nil)
	f.StopDelay = time.Minute

	res, err := f.Create("suite", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, res.Stop(ctx))

	f.StopDelay = 0
	quick, err := f.Create("suite", "")
	require.NoError(t, err)
	assert.True(t, quick.Stop(context.Background()))

	require.Len(t, f.Created(), 2)
}

func TestLinesRecordTransitions(t *testing.T) {
	res, err := NewFactory(status.NewBus(), nil).Create("unit", "")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, res.Start(ctx))
	require.NoError(t, res.Reconfigure(ctx))
	require.True(t, res.Stop(ctx))

	rt := res.(*Runtime)
	lines := rt.Lines()
	assert.Equal(t, []string{"started Default@unit", "reconfigured 1", "stopped Default@unit"}, lines)

	lines[0] = "changed"
	assert.Equal(t, "started Default@unit", rt.Lines()[0])
}
