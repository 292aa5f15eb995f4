// Package benchmark - Resolves, executes and reports benchmark runs against a loaded backend.
package benchmark

import (
	"fmt"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/catalog"
	"github.com/nvr-ai/go-hebench/registry"
)

// Event types recorded by a run. Encoding events are suffixed per pack, e.g. "encode/pack-0".
const (
	EventEncode    = "encode"
	EventEncrypt   = "encrypt"
	EventLoad      = "load"
	EventOperation = "operation"
	EventStore     = "store"
	EventDecrypt   = "decrypt"
	EventDecode    = "decode"
)

// Defaults applied to run requests that leave category parameters unset.
const (
	DefaultWarmupIterations uint64 = 2
	DefaultRepetitions      uint64 = 5
	DefaultSampleCount      uint64 = 8
	DefaultTimeUnit                = "ms"
)

// RunRequest selects one benchmark and how to execute it.
type RunRequest struct {
	// Name labels the run in logs; optional.
	Name            string       `json:"name,omitempty"    yaml:"name,omitempty"`
	Workload        api.Workload `json:"workload"          yaml:"workload"`
	Category        api.Category `json:"category"          yaml:"category"`
	DataType        api.DataType `json:"data_type"         yaml:"data_type"`
	Scheme          api.Scheme   `json:"scheme"            yaml:"scheme"`
	Security        int          `json:"security"          yaml:"security"`
	CipherParamMask uint32       `json:"cipher_param_mask" yaml:"cipher_param_mask"`
	// Params are the workload parameter values in declaration order. Empty selects the
	// first default set the backend offers.
	Params []float64 `json:"params,omitempty" yaml:"params,omitempty"`
	// Latency applies to latency runs.
	Latency *api.LatencyParams `json:"latency,omitempty" yaml:"latency,omitempty"`
	// Offline applies to offline runs.
	Offline *api.OfflineParams `json:"offline,omitempty" yaml:"offline,omitempty"`
}

// String renders the request for logs and errors.
func (r RunRequest) String() string {
	if r.Name != "" {
		return r.Name
	}
	return r.catalogRequest().String()
}

func (r RunRequest) catalogRequest() catalog.Request {
	return catalog.Request{
		Workload:        r.Workload,
		Category:        r.Category,
		DataType:        r.DataType,
		Scheme:          r.Scheme,
		Security:        r.Security,
		CipherParamMask: r.CipherParamMask,
		Params:          r.Params,
	}
}

// identifies reports whether d has the identity the request asks for.
func (r RunRequest) identifies(d api.BenchmarkDescriptor) bool {
	return d.Workload == r.Workload &&
		d.Category == r.Category &&
		d.DataType == r.DataType &&
		d.Scheme == r.Scheme &&
		d.Security == r.Security &&
		d.CipherParamMask == r.CipherParamMask
}

// CategoryParams returns the execution policy of the request, filling unset counts with
// the package defaults.
func (r RunRequest) CategoryParams() api.CategoryParams {
	switch r.Category {
	case api.CategoryLatency:
		p := api.LatencyParams{WarmupIterations: DefaultWarmupIterations, Repetitions: DefaultRepetitions}
		if r.Latency != nil {
			p.WarmupIterations = r.Latency.WarmupIterations
			if r.Latency.Repetitions > 0 {
				p.Repetitions = r.Latency.Repetitions
			}
		}
		return api.NewLatencyParams(p.WarmupIterations, p.Repetitions)
	case api.CategoryOffline:
		samples := DefaultSampleCount
		if r.Offline != nil && r.Offline.SampleCount > 0 {
			samples = r.Offline.SampleCount
		}
		return api.NewOfflineParams(samples)
	default:
		return api.CategoryParams{Category: r.Category}
	}
}

// RunConfig holds execution-time switches that are not persisted.
type RunConfig struct {
	// ValidateResults compares every result against the data loader's ground truth.
	ValidateResults bool `json:"validate_results" yaml:"validate_results"`
	// TimeUnit is the unit reports are rendered in: s, ms, us or ns. Empty means ms.
	TimeUnit string `json:"time_unit,omitempty" yaml:"time_unit,omitempty"`
}

// Implementation is the catalog factory of one subscribed benchmark. It is bound to the
// backend's descriptor handle.
type Implementation struct {
	// Defaults are the workload parameter sets the backend offers.
	Defaults []api.WorkloadParams

	desc     *registry.Handle
	registry *registry.Registry
}

// Create instantiates the benchmark with concrete workload parameters.
func (i *Implementation) Create(params api.WorkloadParams) (*registry.Handle, error) {
	if i.registry == nil {
		return nil, &api.StateError{Op: "Create", Message: "implementation is not bound to a backend"}
	}
	return i.registry.CreateBenchmark(i.desc, params)
}

// resolveParams names the request values after the descriptor's ranges, or falls back to
// the first default set when the request has none.
func resolveParams(desc api.BenchmarkDescriptor, impl *Implementation, values []float64) (api.WorkloadParams, error) {
	if len(values) == 0 {
		if len(desc.ParamRanges) == 0 {
			return nil, nil
		}
		if impl == nil || len(impl.Defaults) == 0 {
			return nil, fmt.Errorf("%s has no default workload parameters", desc)
		}
		return append(api.WorkloadParams(nil), impl.Defaults[0]...), nil
	}
	if len(values) != len(desc.ParamRanges) {
		return nil, fmt.Errorf("%s expects %d workload parameters, got %d", desc, len(desc.ParamRanges), len(values))
	}
	params := make(api.WorkloadParams, len(values))
	for i, v := range values {
		params[i] = api.WorkloadParam{Name: desc.ParamRanges[i].Name, Type: desc.ParamRanges[i].Type, Value: v}
	}
	return params, nil
}
