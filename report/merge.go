package report

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nvr-ai/go-hebench/stats"
)

// SessionEntry is the merged statistics of one event type of one benchmark across runs.
type SessionEntry struct {
	Benchmark string                    `json:"benchmark" yaml:"benchmark" cbor:"benchmark"`
	Name      string                    `json:"name"      yaml:"name"      cbor:"name"`
	Main      bool                      `json:"main"      yaml:"main"      cbor:"main"`
	Runs      int                       `json:"runs"      yaml:"runs"      cbor:"runs"`
	Stats     stats.EventTypeStatistics `json:"stats"     yaml:"stats"     cbor:"stats"`
}

// Session is the combination of several reports.
//
// Counts and totals are exact. Means are count-weighted and variances pooled. Medians and
// percentiles are count-weighted averages of the per-run values and only approximate the
// percentiles of the combined samples.
type Session struct {
	ID        string         `json:"id"         yaml:"id"         cbor:"id"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at" cbor:"created_at"`
	Runs      []Header       `json:"runs"       yaml:"runs"       cbor:"runs"`
	Entries   []SessionEntry `json:"entries"    yaml:"entries"    cbor:"entries"`
}

// Merge combines reports into a session. Entries are grouped by backend, benchmark,
// workload parameters and event type in first-seen order.
//
// Arguments:
//   - reports: The reports to merge. Each run id may appear once.
//
// Returns:
//   - *Session: The merged session.
//   - error: If no report is given or a run id repeats.
func Merge(reports ...*Report) (*Session, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("no reports to merge")
	}

	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	seen := make(map[string]bool)
	index := make(map[string]int)

	for _, r := range reports {
		if r == nil {
			return nil, fmt.Errorf("nil report")
		}
		if seen[r.RunID()] {
			return nil, fmt.Errorf("run %s merged twice", r.RunID())
		}
		seen[r.RunID()] = true
		session.Runs = append(session.Runs, r.Header())

		benchmark := sessionBenchmark(r.header)
		group := r.header.Backend + "\x00" + r.header.Descriptor.Key() + "\x00" + r.header.WorkloadParams.String()
		for _, e := range r.entries {
			key := group + "\x00" + e.Stats.EventType
			i, ok := index[key]
			if !ok {
				index[key] = len(session.Entries)
				session.Entries = append(session.Entries, SessionEntry{
					Benchmark: benchmark,
					Name:      e.Name,
					Main:      e.Main,
					Runs:      1,
					Stats:     e.Stats,
				})
				continue
			}
			merged := &session.Entries[i]
			merged.Runs++
			merged.Stats = mergeEventStats(merged.Stats, e.Stats)
		}
	}
	return session, nil
}

// sessionBenchmark names the benchmark of h. Runs share an entry only when backend,
// descriptor and workload parameters all agree.
func sessionBenchmark(h Header) string {
	name := fmt.Sprintf("%s %s", h.Backend, h.Descriptor)
	if h.Descriptor.Other != 0 {
		name += fmt.Sprintf("/other=%d", h.Descriptor.Other)
	}
	return fmt.Sprintf("%s [%s]", name, h.WorkloadParams)
}

func mergeEventStats(a, b stats.EventTypeStatistics) stats.EventTypeStatistics {
	a.EventCount += b.EventCount
	a.InputSampleCount += b.InputSampleCount
	a.Wall = mergeSummary(a.Wall, b.Wall)
	a.CPU = mergeSummary(a.CPU, b.CPU)
	return a
}

func mergeSummary(a, b stats.Summary) stats.Summary {
	var out stats.Summary

	full := mergeMoments(
		moments{a.Count, a.Total, a.Ave, a.Variance, a.Min, a.Max},
		moments{b.Count, b.Total, b.Ave, b.Variance, b.Min, b.Max},
	)
	out.Count, out.Total, out.Ave, out.Variance, out.Min, out.Max = full.count, full.total, full.ave, full.variance, full.min, full.max
	out.Median = weighted(a.Count, a.Median, b.Count, b.Median)
	out.P1 = weighted(a.Count, a.P1, b.Count, b.P1)
	out.P10 = weighted(a.Count, a.P10, b.Count, b.P10)
	out.P90 = weighted(a.Count, a.P90, b.Count, b.P90)
	out.P99 = weighted(a.Count, a.P99, b.Count, b.P99)
	out.OpsPerSec = rate(out.Count, out.Total)

	trim := mergeMoments(
		moments{a.CountTrim, a.TotalTrim, a.AveTrim, a.VarianceTrim, a.MinTrim, a.MaxTrim},
		moments{b.CountTrim, b.TotalTrim, b.AveTrim, b.VarianceTrim, b.MinTrim, b.MaxTrim},
	)
	out.CountTrim, out.TotalTrim, out.AveTrim, out.VarianceTrim, out.MinTrim, out.MaxTrim = trim.count, trim.total, trim.ave, trim.variance, trim.min, trim.max
	out.MedianTrim = weighted(a.CountTrim, a.MedianTrim, b.CountTrim, b.MedianTrim)
	out.P1Trim = weighted(a.CountTrim, a.P1Trim, b.CountTrim, b.P1Trim)
	out.P10Trim = weighted(a.CountTrim, a.P10Trim, b.CountTrim, b.P10Trim)
	out.P90Trim = weighted(a.CountTrim, a.P90Trim, b.CountTrim, b.P90Trim)
	out.P99Trim = weighted(a.CountTrim, a.P99Trim, b.CountTrim, b.P99Trim)
	out.OpsPerSecTrim = rate(out.CountTrim, out.TotalTrim)

	return out
}

type moments struct {
	count                          uint64
	total, ave, variance, min, max float64
}

// mergeMoments pools two sample groups. Variances are sample variances (N-1).
func mergeMoments(a, b moments) moments {
	switch {
	case a.count == 0:
		return b
	case b.count == 0:
		return a
	}

	n := a.count + b.count
	na, nb := float64(a.count), float64(b.count)
	mean := (na*a.ave + nb*b.ave) / float64(n)

	ss := (na-1)*a.variance + (nb-1)*b.variance +
		na*(a.ave-mean)*(a.ave-mean) + nb*(b.ave-mean)*(b.ave-mean)

	return moments{
		count:    n,
		total:    a.total + b.total,
		ave:      mean,
		variance: ss / float64(n-1),
		min:      math.Min(a.min, b.min),
		max:      math.Max(a.max, b.max),
	}
}

func weighted(na uint64, a float64, nb uint64, b float64) float64 {
	if na+nb == 0 {
		return 0
	}
	return (float64(na)*a + float64(nb)*b) / float64(na+nb)
}

func rate(count uint64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / total
}
