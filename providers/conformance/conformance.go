// Package conformance - Drives a backend through the full operation protocol in tests.
package conformance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/dataloader"
)

// Find returns the descriptor handle of the first benchmark accepted by match.
func Find(t testing.TB, b api.Backend, engine api.Handle, match func(api.BenchmarkDescriptor) bool) (api.Handle, api.BenchmarkDescriptor) {
	t.Helper()

	handles, code := b.SubscribeBenchmarks(engine)
	require.Equal(t, api.Success, code, b.LastErrorDescription(engine))
	for _, h := range handles {
		desc, _, code := b.DescribeBenchmark(engine, h)
		require.Equal(t, api.Success, code)
		if match(desc) {
			return h, desc
		}
	}
	require.FailNow(t, "no matching benchmark", "backend %s", b.Name())
	return api.Handle{}, api.BenchmarkDescriptor{}
}

// Matching returns a matcher on the identity fields of a descriptor.
func Matching(w api.Workload, c api.Category, dt api.DataType, mask uint32) func(api.BenchmarkDescriptor) bool {
	return func(d api.BenchmarkDescriptor) bool {
		return d.Workload == w && d.Category == c && d.DataType == dt && d.CipherParamMask == mask
	}
}

// Run creates the benchmark, packs every sample of loader, operates once over all of
// them and returns the decoded results.
func Run(t testing.TB, b api.Backend, engine, descHandle api.Handle, desc api.BenchmarkDescriptor,
	params api.WorkloadParams, loader dataloader.Loader,
) []api.ResultData {
	t.Helper()

	bench, code := b.CreateBenchmark(engine, descHandle, params)
	require.Equal(t, api.Success, code, b.LastErrorDescription(engine))
	require.Equal(t, api.Success, b.InitBenchmark(bench, desc), b.LastErrorDescription(engine))

	var cipherPacks, plainPacks []api.DataPack
	for k := 0; k < loader.ParameterCount(); k++ {
		pack := api.DataPack{ParamPosition: uint64(k)}
		for s := uint64(0); s < loader.SampleCount(); s++ {
			pack.Buffers = append(pack.Buffers, loader.Input(s, k))
		}
		if desc.Encrypted(k) {
			cipherPacks = append(cipherPacks, pack)
		} else {
			plainPacks = append(plainPacks, pack)
		}
	}

	var locals []api.Handle
	if len(cipherPacks) > 0 {
		plain, code := b.Encode(bench, cipherPacks)
		require.Equal(t, api.Success, code, b.LastErrorDescription(engine))
		cipher, code := b.Encrypt(bench, plain)
		require.Equal(t, api.Success, code, b.LastErrorDescription(engine))
		locals = append(locals, cipher)
	}
	if len(plainPacks) > 0 {
		plain, code := b.Encode(bench, plainPacks)
		require.Equal(t, api.Success, code, b.LastErrorDescription(engine))
		locals = append(locals, plain)
	}

	remote, code := b.Load(bench, locals)
	require.Equal(t, api.Success, code, b.LastErrorDescription(engine))

	indexers := make([]api.ParameterIndexer, loader.ParameterCount())
	for k := range indexers {
		indexers[k] = api.ParameterIndexer{BatchSize: loader.SampleCount()}
	}
	result, code := b.Operate(bench, remote, indexers)
	require.Equal(t, api.Success, code, b.LastErrorDescription(engine))

	stored, code := b.Store(bench, result)
	require.Equal(t, api.Success, code, b.LastErrorDescription(engine))
	require.NotEmpty(t, stored)

	out := stored[0]
	if desc.CipherParamMask != 0 {
		out, code = b.Decrypt(bench, out)
		require.Equal(t, api.Success, code, b.LastErrorDescription(engine))
	}
	decoded, code := b.Decode(bench, out)
	require.Equal(t, api.Success, code, b.LastErrorDescription(engine))
	return decoded
}

// Check asserts that every sample has a result matching the loader's ground truth.
func Check(t testing.TB, loader dataloader.Loader, results []api.ResultData) {
	t.Helper()

	require.Len(t, results, int(loader.SampleCount()))
	seen := make(map[uint64]bool, len(results))
	for _, r := range results {
		require.Less(t, r.SampleIndex, loader.SampleCount())
		require.False(t, seen[r.SampleIndex], "sample %d returned twice", r.SampleIndex)
		seen[r.SampleIndex] = true

		ok, msg := dataloader.Check(loader, r.SampleIndex, r.Values, dataloader.DefaultTolerance)
		require.True(t, ok, "sample %d: %s", r.SampleIndex, msg)
	}
}
