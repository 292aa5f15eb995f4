// Package dataloader - Supplies workload inputs and expected outputs to benchmark runs.
package dataloader

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-hebench/api"
)

// Loader provides the input samples of every operand and the ground truth for each
// sample. Operands share one sample count; sample i of every operand forms one input.
type Loader interface {
	// DataType is the element type of every buffer.
	DataType() api.DataType
	// ParameterCount is the number of operands.
	ParameterCount() int
	// SampleCount is the number of samples per operand.
	SampleCount() uint64
	// ResultCount is the number of result components per sample.
	ResultCount() int
	// Input returns sample of operand.
	Input(sample uint64, operand int) api.NativeDataBuffer
	// Expected returns the ground truth components of sample.
	Expected(sample uint64) []api.NativeDataBuffer
}

// Factory creates the loader bound to one benchmark.
type Factory func(desc api.BenchmarkDescriptor, params api.WorkloadParams, samples uint64) (Loader, error)

// Layout describes the element counts of a workload's operands and results.
type Layout struct {
	// Operands holds the element count of each operand.
	Operands []int
	// Results holds the element count of each result component.
	Results []int
}

// LayoutFor computes the operand and result sizes of a workload.
//
// Arguments:
//   - workload: The workload.
//   - params: Its workload parameters, in declaration order.
//
// Returns:
//   - Layout: Element counts.
//   - error: If the workload is unsupported or a size parameter is missing or zero.
func LayoutFor(workload api.Workload, params api.WorkloadParams) (Layout, error) {
	size := func(i int) (int, error) {
		if i >= len(params) {
			return 0, errors.Errorf("%s requires %d workload parameters, got %d", workload, i+1, len(params))
		}
		v := params.Uint(i)
		if v == 0 {
			return 0, errors.Errorf("%s parameter %q must be positive", workload, params[i].Name)
		}
		return int(v), nil
	}

	switch workload {
	case api.WorkloadEltwiseAdd, api.WorkloadEltwiseMultiply:
		n, err := size(0)
		if err != nil {
			return Layout{}, err
		}
		return Layout{Operands: []int{n, n}, Results: []int{n}}, nil

	case api.WorkloadDotProduct:
		n, err := size(0)
		if err != nil {
			return Layout{}, err
		}
		return Layout{Operands: []int{n, n}, Results: []int{1}}, nil

	case api.WorkloadMatrixMultiply:
		rows, err := size(0)
		if err != nil {
			return Layout{}, err
		}
		inner, err := size(1)
		if err != nil {
			return Layout{}, err
		}
		cols, err := size(2)
		if err != nil {
			return Layout{}, err
		}
		return Layout{Operands: []int{rows * inner, inner * cols}, Results: []int{rows * cols}}, nil

	case api.WorkloadLogisticRegression, api.WorkloadLogisticRegressionPolyD3,
		api.WorkloadLogisticRegressionPolyD5, api.WorkloadLogisticRegressionPolyD7:
		n, err := size(0)
		if err != nil {
			return Layout{}, err
		}
		// weights, bias, features
		return Layout{Operands: []int{n, 1, n}, Results: []int{1}}, nil

	case api.WorkloadSimpleSetIntersection:
		n, err := size(0)
		if err != nil {
			return Layout{}, err
		}
		m, err := size(1)
		if err != nil {
			return Layout{}, err
		}
		k, err := size(2)
		if err != nil {
			return Layout{}, err
		}
		// the result holds up to min(n, m) items, zero padded
		return Layout{Operands: []int{n * k, m * k}, Results: []int{min(n, m) * k}}, nil

	default:
		return Layout{}, errors.Errorf("no data layout for workload %s", workload)
	}
}

// VectorParams returns the single vector length parameter used by the element-wise, dot
// product and logistic regression workloads.
func VectorParams(n uint64) api.WorkloadParams {
	return api.WorkloadParams{{Name: "n", Type: api.ParamTypeUInt64, Value: float64(n)}}
}

// SetParams returns the parameters of an intersection of an n-item set with an m-item
// set whose items have k elements each.
func SetParams(n, m, k uint64) api.WorkloadParams {
	return api.WorkloadParams{
		{Name: "n", Type: api.ParamTypeUInt64, Value: float64(n)},
		{Name: "m", Type: api.ParamTypeUInt64, Value: float64(m)},
		{Name: "k", Type: api.ParamTypeUInt64, Value: float64(k)},
	}
}

// Sigmoid polynomial approximations in ascending powers of z. They approximate the
// logistic function on [-8, 8].
var (
	sigmoidPolyD3 = []float64{0.5, 0.15012, 0, -0.0015930078125}
	sigmoidPolyD5 = []float64{0.5, 0.19131, 0, -0.0045963, 0, 0.0000412332000732421875}
	sigmoidPolyD7 = []float64{0.5, 0.21687, 0, -0.00819154296875, 0, 0.0001658331298828125, 0, -0.00000119561672210693359375}
)

// IsLogistic reports whether w is logistic regression inference, exact or polynomial.
func IsLogistic(w api.Workload) bool {
	switch w {
	case api.WorkloadLogisticRegression, api.WorkloadLogisticRegressionPolyD3,
		api.WorkloadLogisticRegressionPolyD5, api.WorkloadLogisticRegressionPolyD7:
		return true
	default:
		return false
	}
}

// SigmoidPolynomial returns the coefficients, lowest power first, of the sigmoid
// approximation used by w, or nil when w uses the exact logistic function.
func SigmoidPolynomial(w api.Workload) []float64 {
	switch w {
	case api.WorkloadLogisticRegressionPolyD3:
		return append([]float64(nil), sigmoidPolyD3...)
	case api.WorkloadLogisticRegressionPolyD5:
		return append([]float64(nil), sigmoidPolyD5...)
	case api.WorkloadLogisticRegressionPolyD7:
		return append([]float64(nil), sigmoidPolyD7...)
	default:
		return nil
	}
}

// Horner evaluates the polynomial coeffs, lowest power first, at x.
func Horner(coeffs []float64, x float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	y := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		y = y*x + coeffs[i]
	}
	return y
}

// MatrixParams returns the parameters of a rows x inner by inner x cols product.
func MatrixParams(rows, inner, cols uint64) api.WorkloadParams {
	return api.WorkloadParams{
		{Name: "rows_a", Type: api.ParamTypeUInt64, Value: float64(rows)},
		{Name: "cols_a", Type: api.ParamTypeUInt64, Value: float64(inner)},
		{Name: "cols_b", Type: api.ParamTypeUInt64, Value: float64(cols)},
	}
}
