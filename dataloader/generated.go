package dataloader

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/nvr-ai/go-hebench/api"
)

// DefaultSeed seeds NewGenerated.
const DefaultSeed int64 = 0x4845

// Generated is a synthetic dataset with ground truth computed in float64.
type Generated struct {
	dataType api.DataType
	layout   Layout
	// itemSize is k for set intersection results, 0 for ordered results.
	itemSize int
	// inputs[operand][sample]
	inputs [][]api.NativeDataBuffer
	// expected[sample][component]
	expected [][]api.NativeDataBuffer
}

// NewGenerated is a Factory producing a seeded synthetic dataset.
func NewGenerated(desc api.BenchmarkDescriptor, params api.WorkloadParams, samples uint64) (Loader, error) {
	return Generate(desc, params, samples, DefaultSeed)
}

// GeneratedFactory returns a Factory producing datasets from seed.
func GeneratedFactory(seed int64) Factory {
	return func(desc api.BenchmarkDescriptor, params api.WorkloadParams, samples uint64) (Loader, error) {
		return Generate(desc, params, samples, seed)
	}
}

// Generate builds a dataset of samples inputs for the descriptor's workload.
//
// Arguments:
//   - desc: The benchmark the data is for; workload and data type are used.
//   - params: The workload parameters.
//   - samples: Samples per operand; at least one.
//   - seed: The random source seed.
//
// Returns:
//   - *Generated: The dataset with its ground truth.
//   - error: If the workload or data type is unsupported.
func Generate(desc api.BenchmarkDescriptor, params api.WorkloadParams, samples uint64, seed int64) (*Generated, error) {
	if samples == 0 {
		return nil, errors.New("sample count must be positive")
	}
	if desc.DataType.Size() == 0 {
		return nil, errors.Errorf("unsupported data type %q", desc.DataType)
	}
	layout, err := LayoutFor(desc.Workload, params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lay out workload data")
	}

	rng := rand.New(rand.NewSource(seed))
	g := &Generated{
		dataType: desc.DataType,
		layout:   layout,
		inputs:   make([][]api.NativeDataBuffer, len(layout.Operands)),
		expected: make([][]api.NativeDataBuffer, samples),
	}
	if desc.Workload == api.WorkloadSimpleSetIntersection {
		g.itemSize = int(params.Uint(2))
	}

	for s := uint64(0); s < samples; s++ {
		operands := make([][]float64, len(layout.Operands))
		for i, n := range layout.Operands {
			operands[i] = randomValues(rng, desc.Workload, desc.DataType, n)
		}
		if g.itemSize > 0 {
			shareItems(rng, operands[0], operands[1], g.itemSize)
		}
		for i := range operands {
			buf, err := api.EncodeFloat64(desc.DataType, operands[i])
			if err != nil {
				return nil, errors.Wrapf(err, "failed to encode operand %d", i)
			}
			g.inputs[i] = append(g.inputs[i], buf)
		}

		results, err := Oracle(desc.Workload, params, operands)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compute ground truth for sample %d", s)
		}
		for _, r := range results {
			buf, err := api.EncodeFloat64(desc.DataType, r)
			if err != nil {
				return nil, errors.Wrap(err, "failed to encode ground truth")
			}
			g.expected[s] = append(g.expected[s], buf)
		}
	}
	return g, nil
}

// randomValues draws n values representable in dataType. Integers come from [-50, 50].
// Floating point values come from [0.5, 2) so relative comparison stays meaningful, or
// from [-1, 1) for logistic regression. Set items come from [-16384, 16384] so distinct
// items rarely collide.
func randomValues(rng *rand.Rand, workload api.Workload, dataType api.DataType, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		switch {
		case workload == api.WorkloadSimpleSetIntersection && dataType.IsFloat():
			out[i] = rng.Float64()*32768 - 16384
		case workload == api.WorkloadSimpleSetIntersection:
			out[i] = float64(rng.Intn(32769) - 16384)
		case !dataType.IsFloat():
			out[i] = float64(rng.Intn(101) - 50)
		case IsLogistic(workload):
			out[i] = rng.Float64()*2 - 1
		default:
			out[i] = 0.5 + rng.Float64()*1.5
		}
		if dataType == api.DataTypeFloat32 {
			out[i] = float64(float32(out[i]))
		}
	}
	return out
}

// shareItems copies a random number of distinct items of x into distinct positions of y
// so the two sets intersect.
func shareItems(rng *rand.Rand, x, y []float64, k int) {
	n, m := len(x)/k, len(y)/k
	shared := rng.Intn(min(n, m) + 1)
	from, to := rng.Perm(n)[:shared], rng.Perm(m)[:shared]
	for i := 0; i < shared; i++ {
		copy(y[to[i]*k:(to[i]+1)*k], x[from[i]*k:(from[i]+1)*k])
	}
}

// Intersect returns the items of x that are also in y, without repeats, zero padded to
// min(n, m) items. Items are k consecutive elements. The larger set is scanned in order,
// so the result order follows it.
func Intersect(x, y []float64, k int) []float64 {
	n, m := len(x)/k, len(y)/k
	outer, inner := x, y
	if n <= m {
		outer, inner = y, x
	}
	out := make([]float64, min(n, m)*k)
	found := 0
	for i := 0; i+k <= len(outer); i += k {
		item := outer[i : i+k]
		if containsItem(inner, item) && !containsItem(out[:found*k], item) {
			copy(out[found*k:], item)
			found++
		}
	}
	return out
}

func containsItem(set, item []float64) bool {
	k := len(item)
	for i := 0; i+k <= len(set); i += k {
		if floats.Equal(set[i:i+k], item) {
			return true
		}
	}
	return false
}

// Oracle computes the ground truth of a workload over float64 operands.
func Oracle(workload api.Workload, params api.WorkloadParams, operands [][]float64) ([][]float64, error) {
	layout, err := LayoutFor(workload, params)
	if err != nil {
		return nil, err
	}
	if len(operands) != len(layout.Operands) {
		return nil, errors.Errorf("%s takes %d operands, got %d", workload, len(layout.Operands), len(operands))
	}
	for i, n := range layout.Operands {
		if len(operands[i]) != n {
			return nil, errors.Errorf("operand %d has %d elements, want %d", i, len(operands[i]), n)
		}
	}

	switch workload {
	case api.WorkloadEltwiseAdd:
		dst := make([]float64, layout.Results[0])
		floats.AddTo(dst, operands[0], operands[1])
		return [][]float64{dst}, nil

	case api.WorkloadEltwiseMultiply:
		dst := make([]float64, layout.Results[0])
		floats.MulTo(dst, operands[0], operands[1])
		return [][]float64{dst}, nil

	case api.WorkloadDotProduct:
		return [][]float64{{floats.Dot(operands[0], operands[1])}}, nil

	case api.WorkloadMatrixMultiply:
		rows, inner, cols := int(params.Uint(0)), int(params.Uint(1)), int(params.Uint(2))
		a := mat.NewDense(rows, inner, operands[0])
		b := mat.NewDense(inner, cols, operands[1])
		var c mat.Dense
		c.Mul(a, b)
		dst := make([]float64, 0, rows*cols)
		for r := 0; r < rows; r++ {
			dst = append(dst, c.RawRowView(r)...)
		}
		return [][]float64{dst}, nil

	case api.WorkloadLogisticRegression:
		z := floats.Dot(operands[0], operands[2]) + operands[1][0]
		return [][]float64{{1 / (1 + math.Exp(-z))}}, nil

	case api.WorkloadLogisticRegressionPolyD3, api.WorkloadLogisticRegressionPolyD5, api.WorkloadLogisticRegressionPolyD7:
		z := floats.Dot(operands[0], operands[2]) + operands[1][0]
		return [][]float64{{Horner(SigmoidPolynomial(workload), z)}}, nil

	case api.WorkloadSimpleSetIntersection:
		return [][]float64{Intersect(operands[0], operands[1], int(params.Uint(2)))}, nil

	default:
		return nil, errors.Errorf("no oracle for workload %s", workload)
	}
}

// DataType implements Loader.
func (g *Generated) DataType() api.DataType { return g.dataType }

// ParameterCount implements Loader.
func (g *Generated) ParameterCount() int { return len(g.layout.Operands) }

// SampleCount implements Loader.
func (g *Generated) SampleCount() uint64 { return uint64(len(g.expected)) }

// ResultCount implements Loader.
func (g *Generated) ResultCount() int { return len(g.layout.Results) }

// SetElementSize returns k when results are unordered sets of k-element items, or 0 when
// results are compared element by element.
func (g *Generated) SetElementSize() int { return g.itemSize }

// Layout returns the element counts of operands and results.
func (g *Generated) Layout() Layout { return g.layout }

// Input implements Loader. Out of range requests return an empty buffer.
func (g *Generated) Input(sample uint64, operand int) api.NativeDataBuffer {
	if operand < 0 || operand >= len(g.inputs) || sample >= uint64(len(g.inputs[operand])) {
		return api.NativeDataBuffer{}
	}
	return g.inputs[operand][sample]
}

// Expected implements Loader.
func (g *Generated) Expected(sample uint64) []api.NativeDataBuffer {
	if sample >= uint64(len(g.expected)) {
		return nil
	}
	return append([]api.NativeDataBuffer(nil), g.expected[sample]...)
}
