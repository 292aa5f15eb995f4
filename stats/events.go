package stats

import (
	"github.com/nvr-ai/go-hebench/timing"
)

// EventTypeStatistics summarizes every event of one type. Samples are seconds per input
// sample: an event covering k iterations contributes k samples of elapsed/k.
type EventTypeStatistics struct {
	EventType        string  `json:"event_type"         yaml:"event_type"         cbor:"event_type"`
	Name             string  `json:"name"               yaml:"name"               cbor:"name"`
	EventCount       int     `json:"event_count"        yaml:"event_count"        cbor:"event_count"`
	InputSampleCount uint64  `json:"input_sample_count" yaml:"input_sample_count" cbor:"input_sample_count"`
	Wall             Summary `json:"wall"               yaml:"wall"               cbor:"wall"`
	CPU              Summary `json:"cpu"                yaml:"cpu"                cbor:"cpu"`
}

// ForEventType computes wall and CPU statistics over the events of eventType.
//
// Arguments:
//   - events: The events of a run in any order.
//   - eventType: The event type to aggregate.
//
// Returns:
//   - EventTypeStatistics: Zero summaries when no event matches.
func ForEventType(events []timing.TimingEvent, eventType string) EventTypeStatistics {
	result := EventTypeStatistics{EventType: eventType, Name: timing.DisplayName(eventType)}

	var wall, cpu []float64
	for _, e := range timing.OfType(events, eventType) {
		iterations := e.Iterations
		if iterations == 0 {
			iterations = 1
		}
		w := e.Wall().Seconds() / float64(iterations)
		c := e.CPU().Seconds() / float64(iterations)
		for i := uint64(0); i < iterations; i++ {
			wall = append(wall, w)
			cpu = append(cpu, c)
		}
		result.EventCount++
		result.InputSampleCount += iterations
	}

	result.Wall = Compute(wall)
	result.CPU = Compute(cpu)
	return result
}

// ForAllEventTypes computes statistics for every event type in first-seen order.
func ForAllEventTypes(events []timing.TimingEvent) []EventTypeStatistics {
	types := timing.Types(events)
	out := make([]EventTypeStatistics, 0, len(types))
	for _, t := range types {
		out = append(out, ForEventType(events, t.Name))
	}
	return out
}
