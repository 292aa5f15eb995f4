package cleartext

import (
	"fmt"
	"log/slog"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/providers"
)

// Vector length and matrix dimension limits.
const (
	MaxVectorLength = 16384
	MaxMatrixDim    = 256
	MaxSetSize      = 1024
	MaxSetItemSize  = 16
)

var (
	categories = []api.Category{api.CategoryLatency, api.CategoryOffline}
	dataTypes  = []api.DataType{api.DataTypeInt32, api.DataTypeInt64, api.DataTypeFloat32, api.DataTypeFloat64}
)

// New returns the cleartext backend.
func New() api.Backend {
	return NewWithLogger(nil)
}

// NewWithLogger returns the cleartext backend logging to logger.
func NewWithLogger(logger *slog.Logger) *providers.Engine {
	return providers.NewEngine(Name, Descriptions(), providers.WithLogger(logger))
}

// Descriptions lists every benchmark the backend offers.
func Descriptions() []providers.Description {
	var out []providers.Description

	vector := []api.ParamRange{{Name: "n", Type: api.ParamTypeUInt64, Min: 1, Max: MaxVectorLength}}
	for _, w := range []api.Workload{api.WorkloadEltwiseAdd, api.WorkloadEltwiseMultiply, api.WorkloadDotProduct} {
		for _, dt := range dataTypes {
			for _, c := range categories {
				for _, mask := range []uint32{0, 3} {
					out = append(out, providers.Description{
						Descriptor: descriptor(w, c, dt, mask, vector),
						Defaults:   []api.WorkloadParams{dataloader.VectorParams(100)},
						New:        newWorkload,
					})
				}
			}
		}
	}

	matrix := []api.ParamRange{
		{Name: "rows_a", Type: api.ParamTypeUInt64, Min: 1, Max: MaxMatrixDim},
		{Name: "cols_a", Type: api.ParamTypeUInt64, Min: 1, Max: MaxMatrixDim},
		{Name: "cols_b", Type: api.ParamTypeUInt64, Min: 1, Max: MaxMatrixDim},
	}
	for _, dt := range []api.DataType{api.DataTypeFloat32, api.DataTypeFloat64} {
		for _, c := range categories {
			for _, mask := range []uint32{0, 3} {
				out = append(out, providers.Description{
					Descriptor: descriptor(api.WorkloadMatrixMultiply, c, dt, mask, matrix),
					Defaults:   []api.WorkloadParams{dataloader.MatrixParams(10, 9, 8)},
					New:        newWorkload,
				})
			}
		}
	}

	logistic := []api.Workload{
		api.WorkloadLogisticRegression,
		api.WorkloadLogisticRegressionPolyD3,
		api.WorkloadLogisticRegressionPolyD5,
		api.WorkloadLogisticRegressionPolyD7,
	}
	for _, w := range logistic {
		for _, c := range categories {
			for _, mask := range []uint32{0, 7} {
				out = append(out, providers.Description{
					Descriptor: descriptor(w, c, api.DataTypeFloat64, mask, vector),
					Defaults:   []api.WorkloadParams{dataloader.VectorParams(16)},
					New:        newWorkload,
				})
			}
		}
	}

	sets := []api.ParamRange{
		{Name: "n", Type: api.ParamTypeUInt64, Min: 1, Max: MaxSetSize},
		{Name: "m", Type: api.ParamTypeUInt64, Min: 1, Max: MaxSetSize},
		{Name: "k", Type: api.ParamTypeUInt64, Min: 1, Max: MaxSetItemSize},
	}
	for _, dt := range dataTypes {
		for _, c := range categories {
			for _, mask := range []uint32{0, 3} {
				out = append(out, providers.Description{
					Descriptor: descriptor(api.WorkloadSimpleSetIntersection, c, dt, mask, sets),
					Defaults:   []api.WorkloadParams{dataloader.SetParams(100, 50, 4)},
					New:        newWorkload,
				})
			}
		}
	}
	return out
}

func descriptor(w api.Workload, c api.Category, dt api.DataType, mask uint32, ranges []api.ParamRange) api.BenchmarkDescriptor {
	return api.BenchmarkDescriptor{
		Workload:        w,
		Category:        c,
		DataType:        dt,
		CipherParamMask: mask,
		Scheme:          api.SchemePlain,
		ParamRanges:     append([]api.ParamRange(nil), ranges...),
	}
}

// newWorkload instantiates the kernel for a descriptor's workload and data type.
func newWorkload(desc api.BenchmarkDescriptor, params api.WorkloadParams) (providers.Workload, error) {
	layout, err := dataloader.LayoutFor(desc.Workload, params)
	if err != nil {
		return nil, err
	}

	if desc.Workload == api.WorkloadSimpleSetIntersection {
		return setWorkload(desc.DataType, layout, params)
	}

	switch desc.DataType {
	case api.DataTypeInt32:
		return vectorWorkload[int32](desc.Workload, layout)
	case api.DataTypeInt64:
		return vectorWorkload[int64](desc.Workload, layout)
	case api.DataTypeFloat32:
		if desc.Workload == api.WorkloadMatrixMultiply {
			return &workload[float32]{layout: layout, kernel: matMul[float32](matrixDims(params))}, nil
		}
		return vectorWorkload[float32](desc.Workload, layout)
	case api.DataTypeFloat64:
		switch desc.Workload {
		case api.WorkloadMatrixMultiply:
			return &workload[float64]{layout: layout, kernel: matMul[float64](matrixDims(params))}, nil
		case api.WorkloadLogisticRegression, api.WorkloadLogisticRegressionPolyD3,
			api.WorkloadLogisticRegressionPolyD5, api.WorkloadLogisticRegressionPolyD7:
			l, err := newLogistic(layout.Operands[0], dataloader.SigmoidPolynomial(desc.Workload))
			if err != nil {
				return nil, err
			}
			return &workload[float64]{layout: layout, kernel: l.eval}, nil
		}
		return vectorWorkload[float64](desc.Workload, layout)
	default:
		return nil, fmt.Errorf("unsupported data type %q", desc.DataType)
	}
}

func vectorWorkload[T api.Number](w api.Workload, layout dataloader.Layout) (providers.Workload, error) {
	var k kernel[T]
	switch w {
	case api.WorkloadEltwiseAdd:
		k = eltwiseAdd[T]
	case api.WorkloadEltwiseMultiply:
		k = eltwiseMultiply[T]
	case api.WorkloadDotProduct:
		k = dotProduct[T]
	default:
		return nil, fmt.Errorf("workload %s is not available for this data type", w)
	}
	return &workload[T]{layout: layout, kernel: k}, nil
}

func setWorkload(dt api.DataType, layout dataloader.Layout, params api.WorkloadParams) (providers.Workload, error) {
	n, m, k := int(params.Uint(0)), int(params.Uint(1)), int(params.Uint(2))
	switch dt {
	case api.DataTypeInt32:
		return &workload[int32]{layout: layout, kernel: setIntersection[int32](n, m, k)}, nil
	case api.DataTypeInt64:
		return &workload[int64]{layout: layout, kernel: setIntersection[int64](n, m, k)}, nil
	case api.DataTypeFloat32:
		return &workload[float32]{layout: layout, kernel: setIntersection[float32](n, m, k)}, nil
	case api.DataTypeFloat64:
		return &workload[float64]{layout: layout, kernel: setIntersection[float64](n, m, k)}, nil
	default:
		return nil, fmt.Errorf("unsupported data type %q", dt)
	}
}

func matrixDims(params api.WorkloadParams) (int, int, int) {
	return int(params.Uint(0)), int(params.Uint(1)), int(params.Uint(2))
}
