package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/api"
)

// echo passes values through every stage and returns one empty result per Operate.
type echo struct {
	failOperate bool
	inited      bool
}

func (e *echo) Encode(packs []api.DataPack) (any, error) { return packs, nil }

func (e *echo) Decode(any) ([]api.ResultData, error) {
	return []api.ResultData{{SampleIndex: 0}}, nil
}

func (e *echo) Encrypt(plain any) (any, error) { return plain, nil }

func (e *echo) Decrypt(cipher any) (any, error) { return cipher, nil }

func (e *echo) Load(locals []any) (any, error) { return locals, nil }

func (e *echo) Store(remote any) ([]any, error) { return []any{remote, remote}, nil }

func (e *echo) Init(api.BenchmarkDescriptor) error {
	e.inited = true
	return nil
}

func (e *echo) Operate(remote any, _ []api.ParameterIndexer) (any, error) {
	if e.failOperate {
		return nil, errors.New("boom")
	}
	return remote, nil
}

func newEchoEngine(w *echo) *Engine {
	return NewEngine("echo", []Description{{
		Descriptor: api.BenchmarkDescriptor{
			Workload:    api.WorkloadEltwiseAdd,
			Category:    api.CategoryLatency,
			DataType:    api.DataTypeInt32,
			ParamRanges: []api.ParamRange{{Name: "n", Type: api.ParamTypeUInt64, Min: 1, Max: 10}},
		},
		Defaults: []api.WorkloadParams{{{Name: "n", Type: api.ParamTypeUInt64, Value: 4}}},
		New: func(api.BenchmarkDescriptor, api.WorkloadParams) (Workload, error) {
			return w, nil
		},
	}})
}

func n(v float64) api.WorkloadParams {
	return api.WorkloadParams{{Name: "n", Type: api.ParamTypeUInt64, Value: v}}
}

func TestEngineProtocol(t *testing.T) {
	w := &echo{}
	e := newEchoEngine(w)

	engine, code := e.InitEngine()
	require.Equal(t, api.Success, code)
	descs, code := e.SubscribeBenchmarks(engine)
	require.Equal(t, api.Success, code)
	require.Len(t, descs, 1)

	desc, defaults, code := e.DescribeBenchmark(engine, descs[0])
	require.Equal(t, api.Success, code)
	assert.Equal(t, api.WorkloadEltwiseAdd, desc.Workload)
	require.Len(t, defaults, 1)

	bench, code := e.CreateBenchmark(engine, descs[0], defaults[0])
	require.Equal(t, api.Success, code)
	require.Equal(t, api.Success, e.InitBenchmark(bench, desc))
	assert.True(t, w.inited)

	plain, code := e.Encode(bench, nil)
	require.Equal(t, api.Success, code)
	cipher, code := e.Encrypt(bench, plain)
	require.Equal(t, api.Success, code)
	remote, code := e.Load(bench, []api.Handle{cipher})
	require.Equal(t, api.Success, code)
	result, code := e.Operate(bench, remote, nil)
	require.Equal(t, api.Success, code)
	locals, code := e.Store(bench, result)
	require.Equal(t, api.Success, code)
	require.Len(t, locals, 2)

	decrypted, code := e.Decrypt(bench, locals[0])
	require.Equal(t, api.Success, code)
	decoded, code := e.Decode(bench, decrypted)
	require.Equal(t, api.Success, code)
	assert.Len(t, decoded, 1)

	before := e.Live()
	require.Equal(t, api.Success, e.DestroyHandle(locals[1]))
	assert.Equal(t, before-1, e.Live())
	assert.Equal(t, api.InvalidArgs, e.DestroyHandle(locals[1]))
}

func TestEngineRejectsUnknownAndMistypedHandles(t *testing.T) {
	e := newEchoEngine(&echo{})
	engine, _ := e.InitEngine()
	descs, _ := e.SubscribeBenchmarks(engine)

	_, code := e.SubscribeBenchmarks(api.Handle{Ptr: 999})
	assert.Equal(t, api.InvalidArgs, code)
	assert.Contains(t, e.LastErrorDescription(engine), "unknown engine handle 999")

	_, code = e.Encode(api.Handle{Ptr: 999}, nil)
	assert.Equal(t, api.InvalidArgs, code)

	bench, code := e.CreateBenchmark(engine, descs[0], n(3))
	require.Equal(t, api.Success, code)

	// a descriptor handle is not a plaintext
	_, code = e.Encrypt(bench, descs[0])
	assert.Equal(t, api.InvalidArgs, code)
	_, code = e.Load(bench, []api.Handle{descs[0]})
	assert.Equal(t, api.InvalidArgs, code)
}

func TestEngineCreateBenchmarkChecksParams(t *testing.T) {
	e := newEchoEngine(&echo{})
	engine, _ := e.InitEngine()
	descs, _ := e.SubscribeBenchmarks(engine)

	_, code := e.CreateBenchmark(engine, descs[0], n(11))
	assert.Equal(t, api.InvalidArgs, code)
	assert.Contains(t, e.LastErrorDescription(engine), "outside UInt64 [1, 10]")

	_, code = e.CreateBenchmark(engine, descs[0], n(2.5))
	assert.Equal(t, api.InvalidArgs, code)

	_, code = e.CreateBenchmark(engine, descs[0], nil)
	assert.Equal(t, api.InvalidArgs, code)
	assert.Contains(t, e.LastErrorDescription(engine), "expects 1 workload parameters")
}

func TestEngineInitBenchmarkChecksIdentity(t *testing.T) {
	e := newEchoEngine(&echo{})
	engine, _ := e.InitEngine()
	descs, _ := e.SubscribeBenchmarks(engine)
	desc, _, _ := e.DescribeBenchmark(engine, descs[0])
	bench, _ := e.CreateBenchmark(engine, descs[0], n(2))

	other := desc
	other.Category = api.CategoryOffline
	assert.Equal(t, api.InvalidArgs, e.InitBenchmark(bench, other))
}

func TestEngineWorkloadFailureIsCritical(t *testing.T) {
	e := newEchoEngine(&echo{failOperate: true})
	engine, _ := e.InitEngine()
	descs, _ := e.SubscribeBenchmarks(engine)
	bench, _ := e.CreateBenchmark(engine, descs[0], n(2))
	plain, _ := e.Encode(bench, nil)
	remote, _ := e.Load(bench, []api.Handle{plain})

	_, code := e.Operate(bench, remote, nil)
	assert.Equal(t, api.CriticalError, code)
	assert.Equal(t, "operate: boom", e.LastErrorDescription(engine))
	assert.Equal(t, "critical error", e.ErrorDescription(code))
	assert.Equal(t, "unknown error code 7", e.ErrorDescription(7))
}

func TestBatch(t *testing.T) {
	first, size, err := Batch([]api.ParameterIndexer{{ValueIndex: 1, BatchSize: 2}, {ValueIndex: 0, BatchSize: 2}}, []int{3, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 0}, first)
	assert.Equal(t, uint64(2), size)

	_, _, err = Batch([]api.ParameterIndexer{{ValueIndex: 2, BatchSize: 2}}, []int{3})
	assert.Error(t, err)
	_, _, err = Batch([]api.ParameterIndexer{{BatchSize: 1}, {BatchSize: 2}}, []int{3, 3})
	assert.Error(t, err)
	_, _, err = Batch([]api.ParameterIndexer{{BatchSize: 0}}, []int{3})
	assert.Error(t, err)
	_, _, err = Batch(nil, []int{3})
	assert.Error(t, err)
}

func TestOperandsMergeAndOrder(t *testing.T) {
	packs := []api.DataPack{{ParamPosition: 1, Buffers: []api.NativeDataBuffer{api.EncodeValues([]int32{1, 2})}}}
	a, err := DecodePacks[int32](packs)
	require.NoError(t, err)

	_, err = a.Ordered(2)
	assert.Error(t, err)

	b := Operands[int32]{0: {{7}}}
	require.NoError(t, a.Merge(b))
	assert.Error(t, a.Merge(b))

	ordered, err := a.Ordered(2)
	require.NoError(t, err)
	assert.Equal(t, [][][]int32{{{7}}, {{1, 2}}}, ordered)

	_, err = DecodePacks[int32](append(packs, packs[0]))
	assert.Error(t, err)
}
