package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferRoundTrip(t *testing.T) {
	in := []float32{1.5, -2, 3.25}
	buf := EncodeValues(in)
	assert.Len(t, buf.Data, 12)

	out, err := DecodeValues[float32](buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeValues[int64](NativeDataBuffer{Data: []byte{1, 2, 3}})
	assert.Error(t, err)
}

func TestEncodeFloat64Narrowing(t *testing.T) {
	buf, err := EncodeFloat64(DataTypeInt32, []float64{1, 2, -7})
	require.NoError(t, err)

	got, err := DecodeFloat64(DataTypeInt32, buf)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, -7}, got)

	_, err = EncodeFloat64(DataType("Complex"), nil)
	assert.Error(t, err)
}

func TestDescriptorEquality(t *testing.T) {
	a := BenchmarkDescriptor{
		Workload:        WorkloadEltwiseAdd,
		Category:        CategoryLatency,
		DataType:        DataTypeFloat64,
		CipherParamMask: 3,
		Scheme:          SchemeCKKS,
		Security:        128,
		ParamRanges:     []ParamRange{{Name: "n", Type: ParamTypeUInt64, Min: 1, Max: 16}},
	}
	b := a
	b.ParamRanges = []ParamRange{{Name: "n", Type: ParamTypeUInt64, Min: 1, Max: 16}}
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())

	b.ParamRanges[0].Max = 32
	assert.False(t, a.Equal(b))
	assert.True(t, a.SameIdentity(b))

	assert.True(t, a.Encrypted(0))
	assert.True(t, a.Encrypted(1))
	assert.False(t, a.Encrypted(2))
}

func TestCategoryParamsValidate(t *testing.T) {
	assert.NoError(t, NewLatencyParams(2, 5).Validate())
	assert.NoError(t, NewOfflineParams(8).Validate())
	assert.Error(t, NewLatencyParams(2, 0).Validate())
	assert.Error(t, NewOfflineParams(0).Validate())
	assert.Error(t, CategoryParams{Category: CategoryLatency}.Validate())
	assert.Error(t, CategoryParams{Category: "Streaming"}.Validate())
}

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&LoadError{Path: "x.so", Reason: "missing NewBackend"}, ErrLoad},
		{&DuplicateDescriptorError{}, ErrDuplicateDescriptor},
		{&NoMatchError{Request: "r"}, ErrNoMatch},
		{&BackendCallError{Operation: "encode", Code: CriticalError}, ErrBackendCall},
		{&ValidationMismatch{SampleIndex: 3}, ErrValidationMismatch},
		{&StateError{Op: "End", Message: "unknown token"}, ErrState},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("run failed: %w", tc.err)
		assert.True(t, errors.Is(wrapped, tc.sentinel), tc.err.Error())
	}

	var callErr *BackendCallError
	require.True(t, errors.As(fmt.Errorf("x: %w", &BackendCallError{Operation: "operate", Code: -2}), &callErr))
	assert.Equal(t, "operate", callErr.Operation)
	assert.Equal(t, CriticalError, callErr.Code)
}
