// Package api - The backend operation contract and the plain data it exchanges.
package api

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Handle is an opaque reference to backend-owned state.
type Handle struct {
	Ptr  uint64 `json:"ptr"  yaml:"ptr"`
	Size uint64 `json:"size" yaml:"size"`
	Tag  int64  `json:"tag"  yaml:"tag"`
}

// IsZero reports whether the handle references nothing.
func (h Handle) IsZero() bool {
	return h.Ptr == 0
}

// Workload identifies a computational kernel under test.
type Workload string

const (
	WorkloadMatrixMultiply           Workload = "MatrixMultiply"
	WorkloadEltwiseAdd               Workload = "EltwiseAdd"
	WorkloadEltwiseMultiply          Workload = "EltwiseMultiply"
	WorkloadDotProduct               Workload = "DotProduct"
	WorkloadLogisticRegression       Workload = "LogisticRegression"
	WorkloadLogisticRegressionPolyD3 Workload = "LogisticRegression_PolyD3"
	WorkloadLogisticRegressionPolyD5 Workload = "LogisticRegression_PolyD5"
	WorkloadLogisticRegressionPolyD7 Workload = "LogisticRegression_PolyD7"
	WorkloadSimpleSetIntersection    Workload = "SimpleSetIntersection"
	WorkloadGeneric                  Workload = "Generic"
)

// Category is the execution discipline of a benchmark.
type Category string

const (
	CategoryLatency Category = "Latency"
	CategoryOffline Category = "Offline"
)

// DataType is the element type of workload operands.
type DataType string

const (
	DataTypeInt32   DataType = "Int32"
	DataTypeInt64   DataType = "Int64"
	DataTypeFloat32 DataType = "Float32"
	DataTypeFloat64 DataType = "Float64"
)

// Size returns the size in bytes of one element, or 0 for an unknown type.
func (d DataType) Size() int {
	switch d {
	case DataTypeInt32, DataTypeFloat32:
		return 4
	case DataTypeInt64, DataTypeFloat64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether the data type is a floating point type.
func (d DataType) IsFloat() bool {
	return d == DataTypeFloat32 || d == DataTypeFloat64
}

// Scheme is the encryption scheme a backend benchmark runs under.
type Scheme string

const (
	SchemeBFV   Scheme = "BFV"
	SchemeBGV   Scheme = "BGV"
	SchemeCKKS  Scheme = "CKKS"
	SchemePlain Scheme = "Plain"
)

// ParamType is the numeric type of a workload parameter.
type ParamType string

const (
	ParamTypeInt64   ParamType = "Int64"
	ParamTypeUInt64  ParamType = "UInt64"
	ParamTypeFloat64 ParamType = "Float64"
)

// WorkloadParam is a single named numeric workload argument.
type WorkloadParam struct {
	Name  string    `json:"name"  yaml:"name"`
	Type  ParamType `json:"type"  yaml:"type"`
	Value float64   `json:"value" yaml:"value"`
}

// WorkloadParams is the ordered argument list of a workload.
type WorkloadParams []WorkloadParam

// Values returns the numeric values in order.
func (w WorkloadParams) Values() []float64 {
	out := make([]float64, len(w))
	for i, p := range w {
		out[i] = p.Value
	}
	return out
}

// Uint returns parameter i as an unsigned integer, or 0 if i is out of range.
func (w WorkloadParams) Uint(i int) uint64 {
	if i < 0 || i >= len(w) || w[i].Value < 0 {
		return 0
	}
	return uint64(w[i].Value)
}

// String renders the parameters as name=value pairs.
func (w WorkloadParams) String() string {
	parts := make([]string, len(w))
	for i, p := range w {
		parts[i] = fmt.Sprintf("%s=%g", p.Name, p.Value)
	}
	return strings.Join(parts, ",")
}

// ParamRange declares the closed interval a workload parameter may take.
type ParamRange struct {
	Name string    `json:"name" yaml:"name"`
	Type ParamType `json:"type" yaml:"type"`
	Min  float64   `json:"min"  yaml:"min"`
	Max  float64   `json:"max"  yaml:"max"`
}

// Contains reports whether v lies within the range.
func (r ParamRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Accepts reports whether v lies within the range and is representable in its type.
// Int64 and UInt64 parameters take integral values only.
func (r ParamRange) Accepts(v float64) bool {
	if !r.Contains(v) {
		return false
	}
	switch r.Type {
	case ParamTypeInt64, ParamTypeUInt64:
		return v == math.Trunc(v)
	default:
		return true
	}
}

// Overlaps reports whether two ranges share at least one value.
func (r ParamRange) Overlaps(o ParamRange) bool {
	return r.Min <= o.Max && o.Min <= r.Max
}

// LatencyParams configures the latency protocol.
type LatencyParams struct {
	WarmupIterations uint64 `json:"warmup_iterations" yaml:"warmup_iterations"`
	Repetitions      uint64 `json:"repetitions"       yaml:"repetitions"`
}

// OfflineParams configures the offline protocol.
type OfflineParams struct {
	SampleCount uint64 `json:"sample_count" yaml:"sample_count"`
}

// CategoryParams is the execution policy of a run. Exactly one of Latency or Offline is
// set, matching Category.
type CategoryParams struct {
	Category Category       `json:"category"          yaml:"category"`
	Latency  *LatencyParams `json:"latency,omitempty" yaml:"latency,omitempty"`
	Offline  *OfflineParams `json:"offline,omitempty" yaml:"offline,omitempty"`
}

// NewLatencyParams returns latency category parameters.
func NewLatencyParams(warmup, repetitions uint64) CategoryParams {
	return CategoryParams{
		Category: CategoryLatency,
		Latency:  &LatencyParams{WarmupIterations: warmup, Repetitions: repetitions},
	}
}

// NewOfflineParams returns offline category parameters.
func NewOfflineParams(samples uint64) CategoryParams {
	return CategoryParams{
		Category: CategoryOffline,
		Offline:  &OfflineParams{SampleCount: samples},
	}
}

// Validate checks that the discriminant and its payload agree.
func (c CategoryParams) Validate() error {
	switch c.Category {
	case CategoryLatency:
		if c.Latency == nil || c.Offline != nil {
			return fmt.Errorf("latency category requires latency params only")
		}
		if c.Latency.Repetitions == 0 {
			return fmt.Errorf("latency repetitions must be positive")
		}
	case CategoryOffline:
		if c.Offline == nil || c.Latency != nil {
			return fmt.Errorf("offline category requires offline params only")
		}
		if c.Offline.SampleCount == 0 {
			return fmt.Errorf("offline sample count must be positive")
		}
	default:
		return fmt.Errorf("unknown category %q", c.Category)
	}
	return nil
}

// BenchmarkDescriptor is the identity of one benchmark implementation offered by a backend.
type BenchmarkDescriptor struct {
	Workload        Workload     `json:"workload"          yaml:"workload"`
	Category        Category     `json:"category"          yaml:"category"`
	DataType        DataType     `json:"data_type"         yaml:"data_type"`
	CipherParamMask uint32       `json:"cipher_param_mask" yaml:"cipher_param_mask"`
	Scheme          Scheme       `json:"scheme"            yaml:"scheme"`
	Security        int          `json:"security"          yaml:"security"`
	ParamRanges     []ParamRange `json:"param_ranges"      yaml:"param_ranges"`
	Other           int64        `json:"other"             yaml:"other"`
}

// SameIdentity reports whether two descriptors agree on every identity field, ignoring
// parameter ranges.
func (d BenchmarkDescriptor) SameIdentity(o BenchmarkDescriptor) bool {
	return d.Workload == o.Workload &&
		d.Category == o.Category &&
		d.DataType == o.DataType &&
		d.CipherParamMask == o.CipherParamMask &&
		d.Scheme == o.Scheme &&
		d.Security == o.Security &&
		d.Other == o.Other
}

// Equal reports structural equality.
func (d BenchmarkDescriptor) Equal(o BenchmarkDescriptor) bool {
	if !d.SameIdentity(o) || len(d.ParamRanges) != len(o.ParamRanges) {
		return false
	}
	for i := range d.ParamRanges {
		if d.ParamRanges[i] != o.ParamRanges[i] {
			return false
		}
	}
	return true
}

// Encrypted reports whether operand i is encrypted under the cipher mask.
func (d BenchmarkDescriptor) Encrypted(operand int) bool {
	return operand < 32 && d.CipherParamMask&(1<<uint(operand)) != 0
}

// Key returns a stable sort key for the descriptor.
func (d BenchmarkDescriptor) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s|%d|%d|%d",
		d.Workload, d.Category, d.DataType, d.Scheme, d.Security, d.CipherParamMask, d.Other)
	for _, r := range d.ParamRanges {
		fmt.Fprintf(&b, "|%s[%g,%g]", r.Name, r.Min, r.Max)
	}
	return b.String()
}

// String returns a human readable form of the descriptor.
func (d BenchmarkDescriptor) String() string {
	return fmt.Sprintf("%s/%s/%s/%s-%d/mask=%b", d.Workload, d.Category, d.DataType, d.Scheme, d.Security, d.CipherParamMask)
}

// SortDescriptors orders descriptors by Key.
func SortDescriptors(ds []BenchmarkDescriptor) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Key() < ds[j].Key() })
}

// NativeDataBuffer is a raw little-endian element buffer.
type NativeDataBuffer struct {
	Data []byte `json:"data" yaml:"data"`
	Tag  int64  `json:"tag"  yaml:"tag"`
}

// DataPack holds every sample of one operand. Buffers[i] is sample i.
type DataPack struct {
	ParamPosition uint64             `json:"param_position" yaml:"param_position"`
	Buffers       []NativeDataBuffer `json:"buffers"        yaml:"buffers"`
}

// ResultData is one decoded result, tagged with the input sample it belongs to.
type ResultData struct {
	SampleIndex uint64             `json:"sample_index" yaml:"sample_index"`
	Values      []NativeDataBuffer `json:"values"       yaml:"values"`
}

// ParameterIndexer selects the samples of one operand an operation consumes.
type ParameterIndexer struct {
	ValueIndex uint64 `json:"value_index" yaml:"value_index"`
	BatchSize  uint64 `json:"batch_size"  yaml:"batch_size"`
}
