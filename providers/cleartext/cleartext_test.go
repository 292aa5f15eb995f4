package cleartext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/providers/conformance"
)

func TestWorkloadsMatchGroundTruth(t *testing.T) {
	tests := []struct {
		name     string
		workload api.Workload
		dataType api.DataType
		mask     uint32
		params   api.WorkloadParams
	}{
		{"add int32 plain", api.WorkloadEltwiseAdd, api.DataTypeInt32, 0, dataloader.VectorParams(7)},
		{"add float64 encrypted", api.WorkloadEltwiseAdd, api.DataTypeFloat64, 3, dataloader.VectorParams(16)},
		{"mul int64", api.WorkloadEltwiseMultiply, api.DataTypeInt64, 3, dataloader.VectorParams(5)},
		{"dot float32", api.WorkloadDotProduct, api.DataTypeFloat32, 0, dataloader.VectorParams(32)},
		{"matmul float64", api.WorkloadMatrixMultiply, api.DataTypeFloat64, 3, dataloader.MatrixParams(3, 4, 2)},
		{"matmul float32", api.WorkloadMatrixMultiply, api.DataTypeFloat32, 0, dataloader.MatrixParams(2, 2, 5)},
		{"logistic", api.WorkloadLogisticRegression, api.DataTypeFloat64, 7, dataloader.VectorParams(8)},
		{"logistic poly d3", api.WorkloadLogisticRegressionPolyD3, api.DataTypeFloat64, 0, dataloader.VectorParams(8)},
		{"logistic poly d5", api.WorkloadLogisticRegressionPolyD5, api.DataTypeFloat64, 7, dataloader.VectorParams(12)},
		{"logistic poly d7", api.WorkloadLogisticRegressionPolyD7, api.DataTypeFloat64, 7, dataloader.VectorParams(16)},
		{"set intersection int32", api.WorkloadSimpleSetIntersection, api.DataTypeInt32, 3, dataloader.SetParams(20, 12, 2)},
		{"set intersection int64 small x", api.WorkloadSimpleSetIntersection, api.DataTypeInt64, 0, dataloader.SetParams(5, 9, 1)},
		{"set intersection float32", api.WorkloadSimpleSetIntersection, api.DataTypeFloat32, 0, dataloader.SetParams(16, 16, 3)},
		{"set intersection float64", api.WorkloadSimpleSetIntersection, api.DataTypeFloat64, 3, dataloader.SetParams(30, 10, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			engine, code := b.InitEngine()
			require.Equal(t, api.Success, code)

			h, desc := conformance.Find(t, b, engine, conformance.Matching(tt.workload, api.CategoryOffline, tt.dataType, tt.mask))
			loader, err := dataloader.Generate(desc, tt.params, 4, 11)
			require.NoError(t, err)

			results := conformance.Run(t, b, engine, h, desc, tt.params, loader)
			conformance.Check(t, loader, results)
		})
	}
}

func TestSealedResultsCannotBeDecoded(t *testing.T) {
	b := New()
	engine, _ := b.InitEngine()
	h, desc := conformance.Find(t, b, engine, conformance.Matching(api.WorkloadEltwiseAdd, api.CategoryLatency, api.DataTypeInt32, 3))
	params := dataloader.VectorParams(3)

	bench, code := b.CreateBenchmark(engine, h, params)
	require.Equal(t, api.Success, code)
	require.Equal(t, api.Success, b.InitBenchmark(bench, desc))

	loader, err := dataloader.Generate(desc, params, 1, 1)
	require.NoError(t, err)
	plain, code := b.Encode(bench, []api.DataPack{
		{ParamPosition: 0, Buffers: []api.NativeDataBuffer{loader.Input(0, 0)}},
		{ParamPosition: 1, Buffers: []api.NativeDataBuffer{loader.Input(0, 1)}},
	})
	require.Equal(t, api.Success, code)
	cipher, code := b.Encrypt(bench, plain)
	require.Equal(t, api.Success, code)
	remote, code := b.Load(bench, []api.Handle{cipher})
	require.Equal(t, api.Success, code)
	result, code := b.Operate(bench, remote, []api.ParameterIndexer{{BatchSize: 1}, {BatchSize: 1}})
	require.Equal(t, api.Success, code)
	locals, code := b.Store(bench, result)
	require.Equal(t, api.Success, code)

	_, code = b.Decode(bench, locals[0])
	assert.Equal(t, api.CriticalError, code)
	assert.Contains(t, b.LastErrorDescription(engine), "value is encrypted")
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	b := New()
	engine, _ := b.InitEngine()
	h, desc := conformance.Find(t, b, engine, conformance.Matching(api.WorkloadDotProduct, api.CategoryLatency, api.DataTypeInt64, 0))

	bench, code := b.CreateBenchmark(engine, h, dataloader.VectorParams(4))
	require.Equal(t, api.Success, code)
	require.Equal(t, api.Success, b.InitBenchmark(bench, desc))

	_, code = b.Encode(bench, []api.DataPack{{Buffers: []api.NativeDataBuffer{api.EncodeValues([]int64{1, 2})}}})
	assert.Equal(t, api.CriticalError, code)
}

func TestDescriptionsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range Descriptions() {
		key := d.Descriptor.Key()
		assert.False(t, seen[key], "duplicate %s", d.Descriptor)
		seen[key] = true
		assert.NotEmpty(t, d.Defaults)
	}
}

func TestKernels(t *testing.T) {
	out, err := dotProduct([][]int32{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{32}}, out)

	m, err := matMul[float64](2, 3, 2)([][]float64{{1, 2, 3, 4, 5, 6}, {7, 8, 9, 10, 11, 12}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{58, 64, 139, 154}}, m)

	l, err := newLogistic(2, nil)
	require.NoError(t, err)
	y, err := l.eval([][]float64{{0, 0}, {0}, {1, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, y[0][0], 1e-12)

	// the tape machine is reusable
	y, err = l.eval([][]float64{{1, 1}, {0}, {1, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.8807970779778823, y[0][0], 1e-9)
}

func TestPolynomialLogistic(t *testing.T) {
	for _, w := range []api.Workload{
		api.WorkloadLogisticRegressionPolyD3,
		api.WorkloadLogisticRegressionPolyD5,
		api.WorkloadLogisticRegressionPolyD7,
	} {
		t.Run(string(w), func(t *testing.T) {
			poly := dataloader.SigmoidPolynomial(w)
			l, err := newLogistic(2, poly)
			require.NoError(t, err)

			y, err := l.eval([][]float64{{0, 0}, {0}, {1, 1}})
			require.NoError(t, err)
			assert.InDelta(t, 0.5, y[0][0], 1e-12)

			// z = 1.5 + 0.5 + 0.25
			y, err = l.eval([][]float64{{1.5, 0.5}, {0.25}, {1, 1}})
			require.NoError(t, err)
			assert.InDelta(t, dataloader.Horner(poly, 2.25), y[0][0], 1e-12)
			assert.InDelta(t, 0.9046505351008906, y[0][0], 0.1, "close to the exact sigmoid")
		})
	}
}

func TestSetIntersectionKernel(t *testing.T) {
	x := []int64{1, 1, 2, 2, 3, 3, 4, 4}
	y := []int64{3, 3, 9, 9, 1, 1}

	out, err := setIntersection[int64](4, 3, 2)([][]int64{x, y})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 1, 3, 3, 0, 0}}, out)

	// the larger set drives the order
	out, err = setIntersection[int64](3, 4, 2)([][]int64{y, x})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 1, 3, 3, 0, 0}}, out)

	_, err = setIntersection[int64](4, 4, 2)([][]int64{x, y})
	assert.Error(t, err)
}
