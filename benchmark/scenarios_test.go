package benchmark

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/api"
)

func TestRunBuilder(t *testing.T) {
	req := NewRunBuilder("test_run").
		WithWorkload(api.WorkloadMatrixMultiply, 4, 3, 2).
		WithDataType(api.DataTypeFloat32).
		WithScheme(api.SchemeCKKS, 128).
		WithCipherMask(1).
		Latency(5, 50).
		Build()

	assert.Equal(t, "test_run", req.Name)
	assert.Equal(t, api.WorkloadMatrixMultiply, req.Workload)
	assert.Equal(t, []float64{4, 3, 2}, req.Params)
	assert.Equal(t, api.DataTypeFloat32, req.DataType)
	assert.Equal(t, api.SchemeCKKS, req.Scheme)
	assert.Equal(t, 128, req.Security)
	assert.Equal(t, uint32(1), req.CipherParamMask)
	assert.Equal(t, api.CategoryLatency, req.Category)
	assert.Equal(t, &api.LatencyParams{WarmupIterations: 5, Repetitions: 50}, req.Latency)
	assert.Nil(t, req.Offline)

	req = NewRunBuilder("switch").Latency(1, 1).Offline(9).Build()
	assert.Equal(t, api.CategoryOffline, req.Category)
	assert.Nil(t, req.Latency)
	assert.Equal(t, uint64(9), req.Offline.SampleCount)
}

func TestRunSet_SaveLoad(t *testing.T) {
	for _, name := range []string{"runs.yaml", "runs.yml", "runs.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := DefaultRunSet()

			require.NoError(t, SaveRunSet(want, path))
			got, err := LoadRunSet(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadRunSet_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.yaml")
	doc := `name: ckks
backend: builtin:ckks
config:
  validate_results: true
runs:
  - workload: EltwiseAdd
    category: Offline
    data_type: Float64
    scheme: CKKS
    security: 128
    cipher_param_mask: 1
    params: [64]
    offline:
      sample_count: 4
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	set, err := LoadRunSet(path)
	require.NoError(t, err)
	assert.Equal(t, "builtin:ckks", set.Backend)
	assert.True(t, set.Config.ValidateResults)
	require.Len(t, set.Runs, 1)

	run := set.Runs[0]
	assert.Equal(t, api.WorkloadEltwiseAdd, run.Workload)
	assert.Equal(t, api.SchemeCKKS, run.Scheme)
	assert.Equal(t, []float64{64}, run.Params)
	assert.Equal(t, api.NewOfflineParams(4), run.CategoryParams())
}

func TestLoadRunSet_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"no-backend.yaml":   "name: x\nruns:\n  - workload: EltwiseAdd\n    category: Latency\n",
		"no-runs.yaml":      "name: x\nbackend: builtin:cleartext\n",
		"no-workload.yaml":  "name: x\nbackend: builtin:cleartext\nruns:\n  - category: Latency\n",
		"bad-category.yaml": "name: x\nbackend: builtin:cleartext\nruns:\n  - workload: EltwiseAdd\n    category: Throughput\n",
		"garbage.json":      "{",
	}
	for name, doc := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
		_, err := LoadRunSet(path)
		assert.Error(t, err, name)
	}

	_, err := LoadRunSet(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultRunSet_RunsOnCleartext(t *testing.T) {
	set := DefaultRunSet()
	require.NoError(t, set.Validate())

	e := openCleartext(t)
	suite := NewSuite(SuiteArgs{Engine: e.Engine, Config: set.Config})
	suite.AddRunSet(set)

	failed, err := suite.RunAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, failed)
	for _, r := range suite.Results() {
		assert.True(t, r.Validation().Passed(), r.Header().Title())
	}
}

func TestVectorSweep(t *testing.T) {
	base := NewRunBuilder("").WithScheme(api.SchemeCKKS, 128).WithCipherMask(1)
	set := VectorSweep("builtin:ckks", base, api.WorkloadDotProduct, 16, 256)

	require.NoError(t, set.Validate())
	require.Len(t, set.Runs, 4)
	assert.Equal(t, "DotProduct-16-latency", set.Runs[0].Name)
	assert.Equal(t, []float64{256}, set.Runs[3].Params)
	assert.Equal(t, api.CategoryOffline, set.Runs[3].Category)
	for _, r := range set.Runs {
		assert.Equal(t, uint32(1), r.CipherParamMask)
		assert.Equal(t, api.SchemeCKKS, r.Scheme)
	}
	assert.Empty(t, base.Build().Name, "the base builder is left untouched")
}
