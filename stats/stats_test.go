package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/timing"
)

func oneToTen() []float64 {
	return []float64{7, 3, 10, 1, 5, 9, 2, 8, 4, 6}
}

func TestComputeOneToTen(t *testing.T) {
	s := Compute(oneToTen())

	assert.Equal(t, uint64(10), s.Count)
	assert.InDelta(t, 55, s.Total, 1e-9)
	assert.InDelta(t, 5.5, s.Ave, 1e-9)
	assert.InDelta(t, 55.0/6.0, s.Variance, 1e-9)
	assert.InDelta(t, 1, s.Min, 1e-9)
	assert.InDelta(t, 10, s.Max, 1e-9)
	assert.InDelta(t, 5.5, s.Median, 1e-9)
	assert.InDelta(t, 1.9, s.P10, 1e-9)
	assert.InDelta(t, 9.1, s.P90, 1e-9)
	assert.InDelta(t, 1.09, s.P1, 1e-9)
	assert.InDelta(t, 9.91, s.P99, 1e-9)
	assert.InDelta(t, 10.0/55.0, s.OpsPerSec, 1e-9)

	assert.Equal(t, uint64(8), s.CountTrim)
	assert.InDelta(t, 5.5, s.AveTrim, 1e-9)
	assert.InDelta(t, 2, s.MinTrim, 1e-9)
	assert.InDelta(t, 9, s.MaxTrim, 1e-9)
	assert.InDelta(t, 44, s.TotalTrim, 1e-9)
	assert.InDelta(t, 8.0/44.0, s.OpsPerSecTrim, 1e-9)
}

func TestComputeIsIdempotentAndDoesNotMutate(t *testing.T) {
	samples := oneToTen()
	first := Compute(samples)
	second := Compute(samples)

	assert.Equal(t, first, second)
	assert.Equal(t, oneToTen(), samples)
}

func TestComputeEdgeCases(t *testing.T) {
	assert.Equal(t, Summary{}, Compute(nil))

	single := Compute([]float64{2})
	assert.Equal(t, uint64(1), single.Count)
	assert.Zero(t, single.Variance)
	assert.InDelta(t, 2, single.Ave, 1e-9)
	assert.InDelta(t, 0.5, single.OpsPerSec, 1e-9)

	constant := Compute([]float64{3, 3, 3, 3})
	assert.Equal(t, uint64(4), constant.CountTrim)
	assert.InDelta(t, 3, constant.AveTrim, 1e-9)

	zeros := Compute([]float64{0, 0})
	assert.Zero(t, zeros.OpsPerSec)
	assert.Zero(t, zeros.OpsPerSecTrim)
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{name: "min", p: 0, want: 1},
		{name: "max", p: 1, want: 10},
		{name: "median", p: 0.5, want: 5.5},
		{name: "exact index", p: 1.0 / 9.0, want: 2},
		{name: "p90", p: 0.9, want: 9.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(sorted, tt.p), 1e-9)
		})
	}
	assert.Zero(t, Percentile(nil, 0.5))
}

func TestForEventTypeSpreadsIterations(t *testing.T) {
	events := []timing.TimingEvent{
		{EventID: 0, EventType: "encode/pack-0", WallEnd: time.Second, Iterations: 1},
		{EventID: 1, EventType: "operation", WallStart: 0, WallEnd: 4 * time.Second, CPUEnd: 2 * time.Second, Iterations: 4},
		{EventID: 2, EventType: "operation", WallStart: 0, WallEnd: 2 * time.Second, CPUEnd: time.Second, Iterations: 1},
	}

	s := ForEventType(events, "operation")
	assert.Equal(t, "Operation", s.Name)
	assert.Equal(t, 2, s.EventCount)
	assert.Equal(t, uint64(5), s.InputSampleCount)
	assert.Equal(t, uint64(5), s.Wall.Count)
	assert.InDelta(t, 6, s.Wall.Total, 1e-9)
	assert.InDelta(t, 1, s.Wall.Min, 1e-9)
	assert.InDelta(t, 2, s.Wall.Max, 1e-9)
	assert.InDelta(t, 3, s.CPU.Total, 1e-9)

	missing := ForEventType(events, "decrypt")
	assert.Zero(t, missing.InputSampleCount)
	assert.Equal(t, Summary{}, missing.Wall)

	all := ForAllEventTypes(events)
	require.Len(t, all, 2)
	assert.Equal(t, "encode/pack-0", all[0].EventType)
}
