// Package stats - Percentile and trimmed statistics over timing samples.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the statistics of one sample set. Fields suffixed Trim are computed only
// over samples within [P10, P90].
type Summary struct {
	Count     uint64  `json:"count"       yaml:"count"       cbor:"count"`
	Total     float64 `json:"total"       yaml:"total"       cbor:"total"`
	Ave       float64 `json:"ave"         yaml:"ave"         cbor:"ave"`
	Variance  float64 `json:"variance"    yaml:"variance"    cbor:"variance"`
	Min       float64 `json:"min"         yaml:"min"         cbor:"min"`
	Max       float64 `json:"max"         yaml:"max"         cbor:"max"`
	Median    float64 `json:"median"      yaml:"median"      cbor:"median"`
	P1        float64 `json:"pct_1"       yaml:"pct_1"       cbor:"pct_1"`
	P10       float64 `json:"pct_10"      yaml:"pct_10"      cbor:"pct_10"`
	P90       float64 `json:"pct_90"      yaml:"pct_90"      cbor:"pct_90"`
	P99       float64 `json:"pct_99"      yaml:"pct_99"      cbor:"pct_99"`
	OpsPerSec float64 `json:"ops_per_sec" yaml:"ops_per_sec" cbor:"ops_per_sec"`

	CountTrim     uint64  `json:"count_trim"       yaml:"count_trim"       cbor:"count_trim"`
	TotalTrim     float64 `json:"total_trim"       yaml:"total_trim"       cbor:"total_trim"`
	AveTrim       float64 `json:"ave_trim"         yaml:"ave_trim"         cbor:"ave_trim"`
	VarianceTrim  float64 `json:"variance_trim"    yaml:"variance_trim"    cbor:"variance_trim"`
	MinTrim       float64 `json:"min_trim"         yaml:"min_trim"         cbor:"min_trim"`
	MaxTrim       float64 `json:"max_trim"         yaml:"max_trim"         cbor:"max_trim"`
	MedianTrim    float64 `json:"median_trim"      yaml:"median_trim"      cbor:"median_trim"`
	P1Trim        float64 `json:"pct_1_trim"       yaml:"pct_1_trim"       cbor:"pct_1_trim"`
	P10Trim       float64 `json:"pct_10_trim"      yaml:"pct_10_trim"      cbor:"pct_10_trim"`
	P90Trim       float64 `json:"pct_90_trim"      yaml:"pct_90_trim"      cbor:"pct_90_trim"`
	P99Trim       float64 `json:"pct_99_trim"      yaml:"pct_99_trim"      cbor:"pct_99_trim"`
	OpsPerSecTrim float64 `json:"ops_per_sec_trim" yaml:"ops_per_sec_trim" cbor:"ops_per_sec_trim"`
}

// basic is the untrimmed half of a Summary.
type basic struct {
	count                            uint64
	total, ave, variance, min, max   float64
	median, p1, p10, p90, p99, opsPS float64
}

// Compute derives a Summary from samples. samples is not modified.
//
// Arguments:
//   - samples: Measurements in any unit; ops/sec assumes seconds.
//
// Returns:
//   - Summary: Zero-valued when samples is empty.
func Compute(samples []float64) Summary {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	full := describe(sorted)

	var trimmed []float64
	for _, v := range sorted {
		if v >= full.p10 && v <= full.p90 {
			trimmed = append(trimmed, v)
		}
	}
	trim := describe(trimmed)

	return Summary{
		Count:     full.count,
		Total:     full.total,
		Ave:       full.ave,
		Variance:  full.variance,
		Min:       full.min,
		Max:       full.max,
		Median:    full.median,
		P1:        full.p1,
		P10:       full.p10,
		P90:       full.p90,
		P99:       full.p99,
		OpsPerSec: full.opsPS,

		CountTrim:     trim.count,
		TotalTrim:     trim.total,
		AveTrim:       trim.ave,
		VarianceTrim:  trim.variance,
		MinTrim:       trim.min,
		MaxTrim:       trim.max,
		MedianTrim:    trim.median,
		P1Trim:        trim.p1,
		P10Trim:       trim.p10,
		P90Trim:       trim.p90,
		P99Trim:       trim.p99,
		OpsPerSecTrim: trim.opsPS,
	}
}

// describe computes the untrimmed statistics of already sorted samples.
func describe(sorted []float64) basic {
	n := len(sorted)
	if n == 0 {
		return basic{}
	}

	b := basic{
		count:  uint64(n),
		total:  floats.Sum(sorted),
		min:    sorted[0],
		max:    sorted[n-1],
		median: Percentile(sorted, 0.5),
		p1:     Percentile(sorted, 0.01),
		p10:    Percentile(sorted, 0.10),
		p90:    Percentile(sorted, 0.90),
		p99:    Percentile(sorted, 0.99),
	}
	if n > 1 {
		b.ave, b.variance = stat.MeanVariance(sorted, nil)
	} else {
		b.ave = sorted[0]
	}
	if b.total > 0 {
		b.opsPS = float64(n) / b.total
	}
	return b
}

// Percentile returns the p-th quantile (0 <= p <= 1) of sorted data by interpolating
// between the order statistics at floor and ceil of p*(n-1).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	index := p * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower] + weight*(sorted[upper]-sorted[lower])
}
