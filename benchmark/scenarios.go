package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-hebench/api"
)

// RunBuilder helps build run requests with fluent API
type RunBuilder struct {
	req RunRequest
}

// NewRunBuilder creates a builder for a latency run with the default counts.
func NewRunBuilder(name string) *RunBuilder {
	return &RunBuilder{
		req: RunRequest{
			Name:     name,
			Category: api.CategoryLatency,
			Scheme:   api.SchemePlain,
			DataType: api.DataTypeFloat64,
		},
	}
}

// WithWorkload sets the workload and its parameter values.
func (rb *RunBuilder) WithWorkload(w api.Workload, params ...float64) *RunBuilder {
	rb.req.Workload = w
	rb.req.Params = append([]float64(nil), params...)
	return rb
}

// WithDataType sets the operand element type.
func (rb *RunBuilder) WithDataType(dt api.DataType) *RunBuilder {
	rb.req.DataType = dt
	return rb
}

// WithScheme sets the encryption scheme and security level.
func (rb *RunBuilder) WithScheme(scheme api.Scheme, security int) *RunBuilder {
	rb.req.Scheme = scheme
	rb.req.Security = security
	return rb
}

// WithCipherMask sets which operands are encrypted.
func (rb *RunBuilder) WithCipherMask(mask uint32) *RunBuilder {
	rb.req.CipherParamMask = mask
	return rb
}

// Latency selects the latency category.
func (rb *RunBuilder) Latency(warmup, repetitions uint64) *RunBuilder {
	rb.req.Category = api.CategoryLatency
	rb.req.Latency = &api.LatencyParams{WarmupIterations: warmup, Repetitions: repetitions}
	rb.req.Offline = nil
	return rb
}

// Offline selects the offline category.
func (rb *RunBuilder) Offline(samples uint64) *RunBuilder {
	rb.req.Category = api.CategoryOffline
	rb.req.Offline = &api.OfflineParams{SampleCount: samples}
	rb.req.Latency = nil
	return rb
}

// Build returns the configured run request
func (rb *RunBuilder) Build() RunRequest {
	req := rb.req
	req.Params = append([]float64(nil), rb.req.Params...)
	return req
}

// RunSet represents a collection of runs against one backend.
type RunSet struct {
	Name        string       `json:"name"                 yaml:"name"`
	Description string       `json:"description"          yaml:"description"`
	Backend     string       `json:"backend"              yaml:"backend"`
	OutputDir   string       `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Config      RunConfig    `json:"config"               yaml:"config"`
	Runs        []RunRequest `json:"runs"                 yaml:"runs"`
}

// Validate checks that the set names a backend and every run names a workload and category.
func (rs *RunSet) Validate() error {
	if rs.Backend == "" {
		return fmt.Errorf("run set %q has no backend", rs.Name)
	}
	if len(rs.Runs) == 0 {
		return fmt.Errorf("run set %q has no runs", rs.Name)
	}
	for i, r := range rs.Runs {
		if r.Workload == "" {
			return fmt.Errorf("run %d has no workload", i)
		}
		if r.Category != api.CategoryLatency && r.Category != api.CategoryOffline {
			return fmt.Errorf("run %d has unsupported category %q", i, r.Category)
		}
	}
	return nil
}

// DefaultRunSet returns a quick sweep of the cleartext backend.
func DefaultRunSet() *RunSet {
	plain := func(name string, w api.Workload, dt api.DataType, mask uint32) *RunBuilder {
		return NewRunBuilder(name).WithWorkload(w).WithDataType(dt).WithCipherMask(mask)
	}
	return &RunSet{
		Name:        "Quick",
		Description: "Latency and offline sweep of the cleartext reference backend",
		Backend:     "builtin:cleartext",
		OutputDir:   "./benchmark_results",
		Config:      RunConfig{ValidateResults: true, TimeUnit: DefaultTimeUnit},
		Runs: []RunRequest{
			plain("add-latency", api.WorkloadEltwiseAdd, api.DataTypeFloat64, 0).
				Latency(DefaultWarmupIterations, DefaultRepetitions).Build(),
			plain("add-offline", api.WorkloadEltwiseAdd, api.DataTypeInt64, 0).
				Offline(DefaultSampleCount).Build(),
			plain("mul-offline", api.WorkloadEltwiseMultiply, api.DataTypeFloat32, 3).
				Offline(DefaultSampleCount).Build(),
			plain("dot-latency", api.WorkloadDotProduct, api.DataTypeInt32, 3).
				Latency(DefaultWarmupIterations, DefaultRepetitions).Build(),
			plain("matmul-latency", api.WorkloadMatrixMultiply, api.DataTypeFloat64, 0).
				Latency(DefaultWarmupIterations, DefaultRepetitions).Build(),
			plain("logreg-offline", api.WorkloadLogisticRegression, api.DataTypeFloat64, 0).
				Offline(DefaultSampleCount).Build(),
		},
	}
}

// VectorSweep compares one vector workload across lengths under both categories.
func VectorSweep(backend string, base *RunBuilder, w api.Workload, sizes ...uint64) *RunSet {
	proto := base.Build()
	set := &RunSet{
		Name:        fmt.Sprintf("%s sweep", w),
		Description: fmt.Sprintf("Compares %s %s over vector lengths %v", w, proto.Scheme, sizes),
		Backend:     backend,
		Config:      RunConfig{ValidateResults: true, TimeUnit: DefaultTimeUnit},
	}
	for _, n := range sizes {
		latency := *base
		latency.req.Name = fmt.Sprintf("%s-%d-latency", w, n)
		set.Runs = append(set.Runs, latency.WithWorkload(w, float64(n)).
			Latency(DefaultWarmupIterations, DefaultRepetitions).Build())

		offline := *base
		offline.req.Name = fmt.Sprintf("%s-%d-offline", w, n)
		set.Runs = append(set.Runs, offline.WithWorkload(w, float64(n)).
			Offline(DefaultSampleCount).Build())
	}
	return set
}

func isYAML(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// SaveRunSet saves a run set as YAML or JSON, chosen by file extension.
func SaveRunSet(set *RunSet, filename string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(filename) {
		data, err = yaml.Marshal(set)
	} else {
		data, err = json.MarshalIndent(set, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal run set: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run set file: %w", err)
	}

	return nil
}

// LoadRunSet loads and validates a run set from a YAML or JSON file.
func LoadRunSet(filename string) (*RunSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read run set file: %w", err)
	}

	var set RunSet
	if isYAML(filename) {
		err = yaml.Unmarshal(data, &set)
	} else {
		err = json.Unmarshal(data, &set)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run set: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	return &set, nil
}
