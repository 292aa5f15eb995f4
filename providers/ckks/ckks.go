// Package ckks - An HE backend running approximate arithmetic workloads on lattigo CKKS.
package ckks

import (
	"fmt"
	"log/slog"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/providers"
)

// Name is the backend display name.
const Name = "ckks"

// Security is the security level in bits the default parameters provide.
const Security = 128

// Parameters selects the CKKS ring and modulus chain.
type Parameters struct {
	LogN            int   `json:"log_n"             yaml:"log_n"`
	LogQ            []int `json:"log_q"             yaml:"log_q"`
	LogP            []int `json:"log_p"             yaml:"log_p"`
	LogDefaultScale int   `json:"log_default_scale" yaml:"log_default_scale"`
}

// DefaultParameters gives 4096 slots, one multiplicative level with headroom and
// 128-bit security.
var DefaultParameters = Parameters{
	LogN:            13,
	LogQ:            []int{55, 40, 40},
	LogP:            []int{61},
	LogDefaultScale: 40,
}

// MaxVectorLength returns the slot count of p.
func (p Parameters) MaxVectorLength() int {
	return 1 << (p.LogN - 1)
}

// New returns the CKKS backend with default parameters.
func New() api.Backend {
	return NewWithParameters(DefaultParameters, nil)
}

// NewWithParameters returns the CKKS backend using params.
//
// Arguments:
//   - params: The CKKS parameters every benchmark instance uses.
//   - logger: Optional logger; slog.Default() when nil.
//
// Returns:
//   - *providers.Engine: The backend.
func NewWithParameters(params Parameters, logger *slog.Logger) *providers.Engine {
	return providers.NewEngine(Name, Descriptions(params), providers.WithLogger(logger))
}

// Descriptions lists the benchmarks offered under params. Operand 0 is always
// encrypted; operand 1 is encrypted under mask 3 and plain under mask 1.
func Descriptions(params Parameters) []providers.Description {
	vector := []api.ParamRange{{Name: "n", Type: api.ParamTypeUInt64, Min: 1, Max: float64(params.MaxVectorLength())}}

	var out []providers.Description
	for _, w := range []api.Workload{api.WorkloadEltwiseAdd, api.WorkloadEltwiseMultiply, api.WorkloadDotProduct} {
		for _, c := range []api.Category{api.CategoryLatency, api.CategoryOffline} {
			for _, mask := range []uint32{1, 3} {
				out = append(out, providers.Description{
					Descriptor: api.BenchmarkDescriptor{
						Workload:        w,
						Category:        c,
						DataType:        api.DataTypeFloat64,
						CipherParamMask: mask,
						Scheme:          api.SchemeCKKS,
						Security:        Security,
						ParamRanges:     append([]api.ParamRange(nil), vector...),
					},
					Defaults: []api.WorkloadParams{dataloader.VectorParams(256)},
					New: func(desc api.BenchmarkDescriptor, wp api.WorkloadParams) (providers.Workload, error) {
						return newWorkload(params, desc, wp)
					},
				})
			}
		}
	}
	return out
}

// keyring holds the keys and evaluators of one benchmark instance.
type keyring struct {
	params    ckks.Parameters
	encoder   *ckks.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	evaluator *ckks.Evaluator
}

// newKeyring generates keys. Rotation keys are generated for the power-of-two steps
// below rotateUpTo.
func newKeyring(p Parameters, rotateUpTo int) (*keyring, error) {
	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            p.LogN,
		LogQ:            p.LogQ,
		LogP:            p.LogP,
		LogDefaultScale: p.LogDefaultScale,
		Xs:              rlwe.DefaultXs,
		Xe:              rlwe.DefaultXe,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create CKKS parameters: %w", err)
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)
	rlk := kgen.GenRelinearizationKeyNew(sk)

	var galEls []uint64
	for step := 1; step < rotateUpTo; step *= 2 {
		galEls = append(galEls, params.GaloisElementForRotation(step))
	}
	galKeys := kgen.GenGaloisKeysNew(galEls, sk)
	evk := rlwe.NewMemEvaluationKeySet(rlk, galKeys...)

	return &keyring{
		params:    params,
		encoder:   ckks.NewEncoder(params),
		encryptor: rlwe.NewEncryptor(params, pk),
		decryptor: rlwe.NewDecryptor(params, sk),
		evaluator: ckks.NewEvaluator(params, evk),
	}, nil
}
