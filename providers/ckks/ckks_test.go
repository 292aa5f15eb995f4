package ckks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/providers/conformance"
)

func TestWorkloadsWithinTolerance(t *testing.T) {
	if testing.Short() {
		t.Skip("key generation is slow")
	}

	tests := []struct {
		name     string
		workload api.Workload
		mask     uint32
		n        uint64
	}{
		{"add both encrypted", api.WorkloadEltwiseAdd, 3, 16},
		{"add plain operand", api.WorkloadEltwiseAdd, 1, 16},
		{"mul both encrypted", api.WorkloadEltwiseMultiply, 3, 10},
		{"mul plain operand", api.WorkloadEltwiseMultiply, 1, 10},
		{"dot power of two", api.WorkloadDotProduct, 3, 8},
		{"dot odd length", api.WorkloadDotProduct, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			engine, code := b.InitEngine()
			require.Equal(t, api.Success, code)

			h, desc := conformance.Find(t, b, engine, conformance.Matching(tt.workload, api.CategoryOffline, api.DataTypeFloat64, tt.mask))
			params := dataloader.VectorParams(tt.n)
			loader, err := dataloader.Generate(desc, params, 3, 5)
			require.NoError(t, err)

			results := conformance.Run(t, b, engine, h, desc, params, loader)
			conformance.Check(t, loader, results)
		})
	}
}

func TestDescriptions(t *testing.T) {
	descs := Descriptions(DefaultParameters)
	assert.Len(t, descs, 12)
	for _, d := range descs {
		assert.Equal(t, api.SchemeCKKS, d.Descriptor.Scheme)
		assert.Equal(t, Security, d.Descriptor.Security)
		assert.Equal(t, float64(4096), d.Descriptor.ParamRanges[0].Max)
		assert.NotZero(t, d.Descriptor.CipherParamMask&1)
	}
}

func TestOversizedVectorRejected(t *testing.T) {
	b := New()
	engine, _ := b.InitEngine()
	h, _ := conformance.Find(t, b, engine, conformance.Matching(api.WorkloadEltwiseAdd, api.CategoryLatency, api.DataTypeFloat64, 3))

	_, code := b.CreateBenchmark(engine, h, dataloader.VectorParams(5000))
	assert.Equal(t, api.InvalidArgs, code)
}

func TestPlainFirstOperandRejected(t *testing.T) {
	desc := Descriptions(DefaultParameters)[0].Descriptor
	desc.CipherParamMask = 2
	_, err := newWorkload(DefaultParameters, desc, dataloader.VectorParams(4))
	assert.Error(t, err)
}
