package benchmark

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/archive"
	"github.com/nvr-ai/go-hebench/util"
)

func TestNewSuite(t *testing.T) {
	suite := NewSuite(SuiteArgs{OutputDir: "./test_output"})

	assert.NotNil(t, suite)
	assert.Equal(t, "./test_output", suite.outputDir)
	assert.Empty(t, suite.runs)
	assert.Empty(t, suite.Results())
}

func TestSuite_AddRun(t *testing.T) {
	suite := NewSuite(SuiteArgs{})
	suite.AddRun(addRequest().Build())
	suite.AddRunSet(DefaultRunSet())

	assert.Len(t, suite.runs, 1+len(DefaultRunSet().Runs))
	assert.Equal(t, "add", suite.runs[0].Name)
}

func TestSuite_RunAllContinuesPastFailures(t *testing.T) {
	e := openCleartext(t)
	store, err := archive.Open("")
	require.NoError(t, err)
	defer store.Close()

	suite := NewSuite(SuiteArgs{Engine: e.Engine, Config: validate, Archive: store})
	suite.AddRun(addRequest().Latency(0, 2).Build())
	suite.AddRun(addRequest().WithScheme(api.SchemeCKKS, 128).Build())
	suite.AddRun(addRequest().Offline(3).Build())

	failed, err := suite.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	results := suite.Results()
	require.Len(t, results, 2)
	assert.Equal(t, api.CategoryLatency, results[0].Header().Descriptor.Category)
	assert.Equal(t, api.CategoryOffline, results[1].Header().Descriptor.Category)

	archived, err := store.List()
	require.NoError(t, err)
	assert.Len(t, archived, 2)
}

func TestSuite_RunAllCancelled(t *testing.T) {
	e := openCleartext(t)
	suite := NewSuite(SuiteArgs{Engine: e.Engine})
	suite.AddRun(addRequest().Build())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	failed, err := suite.RunAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, failed)
	assert.Empty(t, suite.Results())
}

func TestSuite_SaveResults(t *testing.T) {
	e := openCleartext(t)
	dir := filepath.Join(t.TempDir(), "results")

	suite := NewSuite(SuiteArgs{Engine: e.Engine, OutputDir: dir, Config: validate})
	suite.AddRun(addRequest().Latency(1, 2).Build())
	suite.AddRun(addRequest().Offline(2).Build())
	_, err := suite.RunAll(context.Background())
	require.NoError(t, err)

	session, err := suite.SaveResults()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Runs, 2)

	for _, r := range suite.Results() {
		for _, suffix := range []string{".json", ".cbor", "_summary.csv", "_stats.csv"} {
			assert.FileExists(t, filepath.Join(dir, r.RunID()+suffix))
		}
	}
	assert.FileExists(t, filepath.Join(dir, "overview.csv"))
	assert.FileExists(t, filepath.Join(dir, SessionDir, session.ID+".json"))

	files, err := util.LoadReportFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 4)

	overview, err := os.ReadFile(filepath.Join(dir, "overview.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(overview), string(api.WorkloadEltwiseAdd))
}

func TestSuite_SaveResultsEmpty(t *testing.T) {
	suite := NewSuite(SuiteArgs{OutputDir: t.TempDir()})
	session, err := suite.SaveResults()
	assert.NoError(t, err)
	assert.Nil(t, session)
}
