package benchmark

import (
	"fmt"
	"log/slog"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/report"
)

// maxMismatches bounds the mismatches kept in a report; Failed still counts every failed sample.
const maxMismatches = 64

// validator compares decoded results to the data loader's ground truth. Results are
// associated with inputs by sample index, never by position.
type validator struct {
	enabled bool
	loader  dataloader.Loader
	pct     float64
	logger  *slog.Logger
	result  report.Validation
	batches uint64
}

func newValidator(enabled bool, loader dataloader.Loader, logger *slog.Logger) *validator {
	return &validator{
		enabled: enabled,
		loader:  loader,
		pct:     dataloader.DefaultTolerance,
		logger:  logger,
		result:  report.Validation{Enabled: enabled},
	}
}

// check validates one decoded batch that must hold exactly one result for every sample
// in [0, samples). Each expected sample is checked once and fails at most once; a result
// naming no expected sample is recorded as a mismatch without failing any sample.
// Mismatches carry the batch number, the latency repetition, as Result.
func (v *validator) check(results []api.ResultData, samples uint64) {
	if !v.enabled {
		return
	}
	batch := v.batches
	v.batches++

	seen := make(map[uint64]bool, len(results))
	failed := make(map[uint64]bool)
	fail := func(sample uint64, msg string) {
		if !failed[sample] {
			failed[sample] = true
			v.result.Failed++
		}
		v.record(sample, batch, msg)
	}

	for _, r := range results {
		switch {
		case r.SampleIndex >= samples:
			v.record(r.SampleIndex, batch, fmt.Sprintf("sample index out of range [0, %d)", samples))
			continue
		case seen[r.SampleIndex]:
			fail(r.SampleIndex, "duplicate result for sample")
			continue
		}
		seen[r.SampleIndex] = true

		ok, msg := dataloader.Check(v.loader, r.SampleIndex, r.Values, v.pct)
		if !ok {
			fail(r.SampleIndex, msg)
		}
	}
	for s := uint64(0); s < samples; s++ {
		if !seen[s] {
			fail(s, "missing result for sample")
		}
	}
	v.result.Checked += samples
}

func (v *validator) record(sample, result uint64, msg string) {
	m := api.ValidationMismatch{SampleIndex: sample, Result: result, Message: msg}
	if len(v.result.Mismatches) < maxMismatches {
		v.result.Mismatches = append(v.result.Mismatches, m)
	}
	v.logger.Warn("validation mismatch", "sample", sample, "result", result, "error", m.Message)
}

func (v *validator) summary() report.Validation {
	out := v.result
	out.Mismatches = append([]api.ValidationMismatch(nil), v.result.Mismatches...)
	return out
}
