package dataloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/api"
)

func descriptor(w api.Workload, dt api.DataType) api.BenchmarkDescriptor {
	return api.BenchmarkDescriptor{Workload: w, Category: api.CategoryOffline, DataType: dt, Scheme: api.SchemePlain}
}

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		name     string
		workload api.Workload
		params   api.WorkloadParams
		want     Layout
		wantErr  bool
	}{
		{name: "eltwise", workload: api.WorkloadEltwiseAdd, params: VectorParams(8), want: Layout{Operands: []int{8, 8}, Results: []int{8}}},
		{name: "dot", workload: api.WorkloadDotProduct, params: VectorParams(4), want: Layout{Operands: []int{4, 4}, Results: []int{1}}},
		{name: "matmul", workload: api.WorkloadMatrixMultiply, params: MatrixParams(2, 3, 4), want: Layout{Operands: []int{6, 12}, Results: []int{8}}},
		{name: "logistic", workload: api.WorkloadLogisticRegression, params: VectorParams(5), want: Layout{Operands: []int{5, 1, 5}, Results: []int{1}}},
		{name: "missing param", workload: api.WorkloadMatrixMultiply, params: VectorParams(2), wantErr: true},
		{name: "zero size", workload: api.WorkloadEltwiseAdd, params: VectorParams(0), wantErr: true},
		{name: "logistic poly", workload: api.WorkloadLogisticRegressionPolyD5, params: VectorParams(3), want: Layout{Operands: []int{3, 1, 3}, Results: []int{1}}},
		{name: "set intersection", workload: api.WorkloadSimpleSetIntersection, params: SetParams(6, 4, 2), want: Layout{Operands: []int{12, 8}, Results: []int{8}}},
		{name: "set intersection missing k", workload: api.WorkloadSimpleSetIntersection, params: VectorParams(2), wantErr: true},
		{name: "unsupported", workload: api.WorkloadGeneric, params: VectorParams(2), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LayoutFor(tt.workload, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOracle(t *testing.T) {
	out, err := Oracle(api.WorkloadMatrixMultiply, MatrixParams(2, 3, 2), [][]float64{
		{1, 2, 3, 4, 5, 6},
		{7, 8, 9, 10, 11, 12},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{58, 64, 139, 154}}, out)

	out, err = Oracle(api.WorkloadLogisticRegression, VectorParams(2), [][]float64{{1, -1}, {0}, {2, 2}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out[0][0], 1e-12)

	out, err = Oracle(api.WorkloadDotProduct, VectorParams(3), [][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 32.0, out[0][0])

	out, err = Oracle(api.WorkloadLogisticRegressionPolyD3, VectorParams(2), [][]float64{{1, 1}, {0}, {1, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5+0.15012*2-0.0015930078125*8, out[0][0], 1e-12)

	out, err = Oracle(api.WorkloadSimpleSetIntersection, SetParams(3, 2, 1), [][]float64{{5, 7, 9}, {9, 5}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{5, 9}}, out)

	_, err = Oracle(api.WorkloadEltwiseAdd, VectorParams(3), [][]float64{{1, 2, 3}})
	assert.Error(t, err)
}

func TestSigmoidPolynomial(t *testing.T) {
	assert.Nil(t, SigmoidPolynomial(api.WorkloadLogisticRegression))
	assert.Len(t, SigmoidPolynomial(api.WorkloadLogisticRegressionPolyD3), 4)
	assert.Len(t, SigmoidPolynomial(api.WorkloadLogisticRegressionPolyD5), 6)
	assert.Len(t, SigmoidPolynomial(api.WorkloadLogisticRegressionPolyD7), 8)
	assert.True(t, IsLogistic(api.WorkloadLogisticRegressionPolyD7))
	assert.False(t, IsLogistic(api.WorkloadDotProduct))

	for _, w := range []api.Workload{api.WorkloadLogisticRegressionPolyD3, api.WorkloadLogisticRegressionPolyD5, api.WorkloadLogisticRegressionPolyD7} {
		poly := SigmoidPolynomial(w)
		assert.Equal(t, 0.5, Horner(poly, 0))
		// odd around one half
		assert.InDelta(t, 1-Horner(poly, 3), Horner(poly, -3), 1e-12)
	}
	assert.Equal(t, 0.0, Horner(nil, 2))
}

func TestIntersect(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{5, 6, 1, 2, 5, 6, 7, 8}

	// y is larger, so it drives the order and repeats are dropped
	assert.Equal(t, []float64{5, 6, 1, 2, 0, 0}, Intersect(x, y, 2))
	assert.Equal(t, []float64{0, 0}, Intersect([]float64{1, 1}, []float64{2, 2, 3, 3}, 2))
}

func TestGeneratedSetIntersection(t *testing.T) {
	desc := descriptor(api.WorkloadSimpleSetIntersection, api.DataTypeInt32)
	g, err := Generate(desc, SetParams(40, 30, 2), 6, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, g.SetElementSize())

	shared := 0
	for s := uint64(0); s < g.SampleCount(); s++ {
		x, err := api.DecodeFloat64(api.DataTypeInt32, g.Input(s, 0))
		require.NoError(t, err)
		y, err := api.DecodeFloat64(api.DataTypeInt32, g.Input(s, 1))
		require.NoError(t, err)

		want := Intersect(x, y, 2)
		expected, err := api.DecodeFloat64(api.DataTypeInt32, g.Expected(s)[0])
		require.NoError(t, err)
		assert.Equal(t, want, expected)
		for i := 0; i < len(want); i += 2 {
			if want[i] != 0 || want[i+1] != 0 {
				shared++
			}
		}

		// item order within the result does not matter
		reversed := make([]float64, len(want))
		for i := 0; i < len(want); i += 2 {
			copy(reversed[len(want)-2-i:], want[i:i+2])
		}
		buf, err := api.EncodeFloat64(api.DataTypeInt32, reversed)
		require.NoError(t, err)
		ok, msg := Check(g, s, []api.NativeDataBuffer{buf}, DefaultTolerance)
		assert.True(t, ok, msg)
	}
	assert.Positive(t, shared, "generated sets intersect")
}

func TestCompareSet(t *testing.T) {
	want := api.EncodeValues([]int64{1, 2, 3, 4, 0, 0})

	ok, msg := CompareSet(api.DataTypeInt64, 2, want, api.EncodeValues([]int64{3, 4, 0, 0, 1, 2}), DefaultTolerance)
	assert.True(t, ok, msg)

	ok, msg = CompareSet(api.DataTypeInt64, 2, want, api.EncodeValues([]int64{3, 4, 1, 3, 0, 0}), DefaultTolerance)
	assert.False(t, ok)
	assert.Contains(t, msg, "1 of 3 set items have no match")

	ok, _ = CompareSet(api.DataTypeInt64, 2, want, api.EncodeValues([]int64{1, 2, 3, 4, 1, 2}), DefaultTolerance)
	assert.False(t, ok, "padding must match too")

	ok, msg = CompareSet(api.DataTypeInt64, 2, want, api.EncodeValues([]int64{1, 2}), DefaultTolerance)
	assert.False(t, ok)
	assert.Contains(t, msg, "expected at least")

	ok, _ = CompareSet(api.DataTypeFloat64, 1, api.EncodeValues([]float64{10, 20}), api.EncodeValues([]float64{20.4, 10.1}), DefaultTolerance)
	assert.True(t, ok)
}

func TestGenerateIsSeeded(t *testing.T) {
	desc := descriptor(api.WorkloadEltwiseAdd, api.DataTypeInt64)
	a, err := Generate(desc, VectorParams(16), 3, 7)
	require.NoError(t, err)
	b, err := Generate(desc, VectorParams(16), 3, 7)
	require.NoError(t, err)
	c, err := Generate(desc, VectorParams(16), 3, 8)
	require.NoError(t, err)

	assert.Equal(t, a.Input(2, 1), b.Input(2, 1))
	assert.NotEqual(t, a.Input(2, 1), c.Input(2, 1))
	assert.Equal(t, 2, a.ParameterCount())
	assert.Equal(t, uint64(3), a.SampleCount())
	assert.Equal(t, 1, a.ResultCount())
}

func TestGeneratedGroundTruth(t *testing.T) {
	for _, dt := range []api.DataType{api.DataTypeInt32, api.DataTypeInt64, api.DataTypeFloat32, api.DataTypeFloat64} {
		t.Run(string(dt), func(t *testing.T) {
			g, err := NewGenerated(descriptor(api.WorkloadEltwiseMultiply, dt), VectorParams(32), 2)
			require.NoError(t, err)

			for s := uint64(0); s < g.SampleCount(); s++ {
				x, err := api.DecodeFloat64(dt, g.Input(s, 0))
				require.NoError(t, err)
				y, err := api.DecodeFloat64(dt, g.Input(s, 1))
				require.NoError(t, err)
				product := make([]float64, len(x))
				for i := range x {
					product[i] = x[i] * y[i]
				}
				got, err := api.EncodeFloat64(dt, product)
				require.NoError(t, err)

				ok, msg := CompareResults(dt, g.Expected(s), []api.NativeDataBuffer{got}, DefaultTolerance)
				assert.True(t, ok, msg)
			}
		})
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	_, err := Generate(descriptor(api.WorkloadEltwiseAdd, api.DataTypeInt32), VectorParams(4), 0, 1)
	assert.Error(t, err)
	_, err = Generate(descriptor(api.WorkloadEltwiseAdd, "Int8"), VectorParams(4), 1, 1)
	assert.Error(t, err)
	_, err = Generate(descriptor(api.WorkloadGeneric, api.DataTypeInt32), VectorParams(4), 1, 1)
	assert.Error(t, err)

	g, err := Generate(descriptor(api.WorkloadEltwiseAdd, api.DataTypeInt32), VectorParams(4), 1, 1)
	require.NoError(t, err)
	assert.Empty(t, g.Input(5, 0).Data)
	assert.Nil(t, g.Expected(5))
}

func TestAlmostEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want bool
	}{
		{name: "equal", a: 3, b: 3, want: true},
		{name: "within relative", a: 1, b: 1.04, want: true},
		{name: "outside relative", a: 1, b: 1.06, want: false},
		{name: "negative within", a: -100, b: -96, want: true},
		{name: "zero within", a: 0, b: 0.04, want: true},
		{name: "zero outside", a: 0, b: 0.06, want: false},
		{name: "opposite signs near zero", a: -0.01, b: 0.02, want: true},
		{name: "opposite signs far", a: -1, b: 1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AlmostEqual(tt.a, tt.b, DefaultTolerance))
			assert.Equal(t, tt.want, AlmostEqual32(float32(tt.a), float32(tt.b), DefaultTolerance))
		})
	}
}

func TestCompare(t *testing.T) {
	ints := api.EncodeValues([]int32{1, 2, 3})
	off := api.EncodeValues([]int32{1, 2, 4})
	ok, msg := Compare(api.DataTypeInt32, ints, ints, DefaultTolerance)
	assert.True(t, ok)
	assert.Empty(t, msg)

	ok, msg = Compare(api.DataTypeInt32, ints, off, DefaultTolerance)
	assert.False(t, ok)
	assert.Contains(t, msg, "1 of 3 elements differ")

	ok, msg = Compare(api.DataTypeInt32, ints, api.EncodeValues([]int32{1}), DefaultTolerance)
	assert.False(t, ok)
	assert.Contains(t, msg, "expected at least")

	ok, _ = Compare(api.DataTypeFloat64, api.EncodeValues([]float64{10}), api.EncodeValues([]float64{10.3}), DefaultTolerance)
	assert.True(t, ok)

	ok, _ = CompareResults(api.DataTypeInt32, []api.NativeDataBuffer{ints}, nil, DefaultTolerance)
	assert.False(t, ok)
}
