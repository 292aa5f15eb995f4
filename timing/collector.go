// Package timing - Records ordered, immutable timing events for one benchmark run.
package timing

import (
	"fmt"
	"time"

	"github.com/nvr-ai/go-hebench/api"
)

// TimingEvent is one completed measurement. Wall times are offsets from the collector's
// epoch; CPU times are process CPU readings.
type TimingEvent struct {
	EventID    uint64        `json:"event_id"   yaml:"event_id"   cbor:"event_id"`
	Name       string        `json:"name"       yaml:"name"       cbor:"name"`
	EventType  string        `json:"event_type" yaml:"event_type" cbor:"event_type"`
	WallStart  time.Duration `json:"wall_start" yaml:"wall_start" cbor:"wall_start"`
	WallEnd    time.Duration `json:"wall_end"   yaml:"wall_end"   cbor:"wall_end"`
	CPUStart   time.Duration `json:"cpu_start"  yaml:"cpu_start"  cbor:"cpu_start"`
	CPUEnd     time.Duration `json:"cpu_end"    yaml:"cpu_end"    cbor:"cpu_end"`
	Iterations uint64        `json:"iterations" yaml:"iterations" cbor:"iterations"`
}

// Wall returns the elapsed wall time.
func (e TimingEvent) Wall() time.Duration {
	return e.WallEnd - e.WallStart
}

// CPU returns the elapsed CPU time.
func (e TimingEvent) CPU() time.Duration {
	return e.CPUEnd - e.CPUStart
}

// EventType is a distinct event type seen by the collector, numbered in first-seen order.
type EventType struct {
	ID   uint32 `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Token identifies an event that has begun but not ended.
type Token struct {
	id uint64
}

type pending struct {
	name       string
	eventType  string
	iterations uint64
	wallStart  time.Duration
	cpuStart   time.Duration
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(c *Collector) {
		c.clock = clock
	}
}

// Collector accumulates the events of one run. It is owned by a single run and is not
// safe for concurrent use; no operation blocks.
type Collector struct {
	clock   Clock
	epoch   time.Time
	tokens  uint64
	open    map[uint64]pending
	events  []TimingEvent
	types   []EventType
	typeIDs map[string]uint32
	frozen  bool
}

// NewCollector creates a collector whose wall offsets start now.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		clock:   SystemClock{},
		open:    make(map[uint64]pending),
		typeIDs: make(map[string]uint32),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.epoch = c.clock.Wall()
	return c
}

// Begin starts a single-iteration event.
func (c *Collector) Begin(name, eventType string) (Token, error) {
	return c.BeginN(name, eventType, 1)
}

// BeginN starts an event that covers iterations input samples.
//
// Arguments:
//   - name: Description of this particular measurement.
//   - eventType: The type the event is aggregated under.
//   - iterations: Number of input samples the measured interval processes.
//
// Returns:
//   - Token: Passed to End to complete the event.
//   - error: A StateError if the collector is frozen or iterations is zero.
func (c *Collector) BeginN(name, eventType string, iterations uint64) (Token, error) {
	if c.frozen {
		return Token{}, &api.StateError{Op: "Begin", State: "frozen", Message: "collector no longer accepts events"}
	}
	if iterations == 0 {
		return Token{}, &api.StateError{Op: "Begin", Message: "iterations must be positive"}
	}

	c.tokens++
	c.open[c.tokens] = pending{
		name:       name,
		eventType:  eventType,
		iterations: iterations,
		wallStart:  c.clock.Wall().Sub(c.epoch),
		cpuStart:   c.clock.CPU(),
	}
	return Token{id: c.tokens}, nil
}

// End completes the event and appends it with the next event id.
//
// Returns:
//   - TimingEvent: The recorded event.
//   - error: A StateError if the token was never begun or was already ended.
func (c *Collector) End(token Token) (TimingEvent, error) {
	wallEnd := c.clock.Wall().Sub(c.epoch)
	cpuEnd := c.clock.CPU()

	if c.frozen {
		return TimingEvent{}, &api.StateError{Op: "End", State: "frozen", Message: "collector no longer accepts events"}
	}
	p, ok := c.open[token.id]
	if !ok {
		return TimingEvent{}, &api.StateError{Op: "End", Message: fmt.Sprintf("token %d was never begun or already ended", token.id)}
	}
	delete(c.open, token.id)

	if _, seen := c.typeIDs[p.eventType]; !seen {
		id := uint32(len(c.types))
		c.typeIDs[p.eventType] = id
		c.types = append(c.types, EventType{ID: id, Name: p.eventType})
	}

	e := TimingEvent{
		EventID:    uint64(len(c.events)),
		Name:       p.name,
		EventType:  p.eventType,
		WallStart:  p.wallStart,
		WallEnd:    wallEnd,
		CPUStart:   p.cpuStart,
		CPUEnd:     cpuEnd,
		Iterations: p.iterations,
	}
	c.events = append(c.events, e)
	return e, nil
}

// Measure records fn as one event. The event is recorded only if fn succeeds.
func (c *Collector) Measure(name, eventType string, fn func() error) error {
	return c.MeasureN(name, eventType, 1, fn)
}

// MeasureN records fn as one event covering iterations input samples.
func (c *Collector) MeasureN(name, eventType string, iterations uint64, fn func() error) error {
	token, err := c.BeginN(name, eventType, iterations)
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		delete(c.open, token.id)
		return err
	}
	_, err = c.End(token)
	return err
}

// Freeze closes the collector. Pending events are discarded.
func (c *Collector) Freeze() {
	c.frozen = true
	c.open = make(map[uint64]pending)
}

// Frozen reports whether the collector is closed.
func (c *Collector) Frozen() bool {
	return c.frozen
}

// Epoch returns the wall time that event offsets are measured from.
func (c *Collector) Epoch() time.Time {
	return c.epoch
}

// Events returns a copy of the recorded events ordered by id.
func (c *Collector) Events() []TimingEvent {
	out := make([]TimingEvent, len(c.events))
	copy(out, c.events)
	return out
}

// EventTypes returns the event types in first-seen order.
func (c *Collector) EventTypes() []EventType {
	out := make([]EventType, len(c.types))
	copy(out, c.types)
	return out
}

// Count returns the number of recorded events of one type.
func (c *Collector) Count(eventType string) int {
	n := 0
	for _, e := range c.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

// OfType filters events by type, preserving order.
func OfType(events []TimingEvent, eventType string) []TimingEvent {
	var out []TimingEvent
	for _, e := range events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Types lists the distinct event types of events in first-seen order.
func Types(events []TimingEvent) []EventType {
	seen := make(map[string]bool)
	var out []EventType
	for _, e := range events {
		if seen[e.EventType] {
			continue
		}
		seen[e.EventType] = true
		out = append(out, EventType{ID: uint32(len(out)), Name: e.EventType})
	}
	return out
}
