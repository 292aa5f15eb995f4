package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/api"
)

// fakeClock advances by step on every reading.
type fakeClock struct {
	now  time.Time
	cpu  time.Duration
	step time.Duration
}

func (f *fakeClock) Wall() time.Time {
	t := f.now
	f.now = f.now.Add(f.step)
	return t
}

func (f *fakeClock) CPU() time.Duration {
	d := f.cpu
	f.cpu += f.step / 2
	return d
}

func newFake() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0), step: time.Millisecond}
}

func TestBeginEndAppendsOrderedEvents(t *testing.T) {
	c := NewCollector(WithClock(newFake()))

	for i := 0; i < 3; i++ {
		tok, err := c.Begin("Operation", "operation")
		require.NoError(t, err)
		e, err := c.End(tok)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), e.EventID)
		assert.Equal(t, time.Millisecond, e.Wall())
		assert.Equal(t, uint64(1), e.Iterations)
	}

	events := c.Events()
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].EventID, events[i-1].EventID)
		assert.GreaterOrEqual(t, events[i].WallStart, events[i-1].WallEnd)
	}
	assert.Equal(t, 3, c.Count("operation"))
}

func TestNestedEventsAreIndependent(t *testing.T) {
	c := NewCollector(WithClock(newFake()))

	outer, err := c.Begin("outer", "decode")
	require.NoError(t, err)
	inner, err := c.Begin("inner", "decode/validate")
	require.NoError(t, err)

	innerEvent, err := c.End(inner)
	require.NoError(t, err)
	outerEvent, err := c.End(outer)
	require.NoError(t, err)

	assert.Equal(t, time.Millisecond, innerEvent.Wall())
	assert.Equal(t, 3*time.Millisecond, outerEvent.Wall())
	assert.Equal(t, uint64(0), innerEvent.EventID)
	assert.Equal(t, uint64(1), outerEvent.EventID)

	types := c.EventTypes()
	require.Len(t, types, 2)
	assert.Equal(t, "decode/validate", types[0].Name)
	assert.Equal(t, uint32(1), types[1].ID)
}

func TestEndUnknownTokenIsStateError(t *testing.T) {
	c := NewCollector(WithClock(newFake()))

	_, err := c.End(Token{id: 99})
	assert.ErrorIs(t, err, api.ErrState)

	tok, err := c.Begin("x", "x")
	require.NoError(t, err)
	_, err = c.End(tok)
	require.NoError(t, err)
	_, err = c.End(tok)
	assert.ErrorIs(t, err, api.ErrState)
}

func TestFreeze(t *testing.T) {
	c := NewCollector(WithClock(newFake()))
	require.NoError(t, c.Measure("op", "operation", func() error { return nil }))

	c.Freeze()
	assert.True(t, c.Frozen())
	_, err := c.Begin("late", "operation")
	assert.ErrorIs(t, err, api.ErrState)
	assert.Len(t, c.Events(), 1)
}

func TestMeasureFailureRecordsNothing(t *testing.T) {
	c := NewCollector(WithClock(newFake()))
	err := c.Measure("op", "operation", func() error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, c.Events())

	require.NoError(t, c.MeasureN("batch", "operation", 8, func() error { return nil }))
	assert.Equal(t, uint64(8), c.Events()[0].Iterations)

	_, err = c.BeginN("empty", "operation", 0)
	assert.ErrorIs(t, err, api.ErrState)
}

func TestEventsReturnsCopy(t *testing.T) {
	c := NewCollector(WithClock(newFake()))
	require.NoError(t, c.Measure("op", "operation", func() error { return nil }))

	events := c.Events()
	events[0].Name = "mutated"
	assert.Equal(t, "op", c.Events()[0].Name)
}

func TestOfTypeAndTypes(t *testing.T) {
	events := []TimingEvent{
		{EventID: 0, EventType: "encode/pack-0"},
		{EventID: 1, EventType: "operation"},
		{EventID: 2, EventType: "operation"},
	}
	assert.Len(t, OfType(events, "operation"), 2)
	types := Types(events)
	require.Len(t, types, 2)
	assert.Equal(t, "encode/pack-0", types[0].Name)
}

func TestDisplayNameAndTree(t *testing.T) {
	assert.Equal(t, "Encoding > Pack 0", DisplayName("encode/pack-0"))
	assert.Equal(t, "Operation", DisplayName("operation"))
	assert.Equal(t, "Custom Step", DisplayName("custom-step"))

	out := Tree("run", []string{"encode/pack-0", "encode/pack-1", "operation"})
	assert.Contains(t, out, "run")
	assert.Contains(t, out, "Encoding")
	assert.Contains(t, out, "Pack 1")
	assert.Contains(t, out, "Operation")
}
