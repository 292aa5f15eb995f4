// Package cleartext - A reference backend that runs every workload on unencrypted data.
//
// Encryption is simulated: a ciphertext is a sealed plaintext, so the harness protocol
// (encrypt before load, decrypt before decode) is still enforced.
package cleartext

import (
	"errors"
	"fmt"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/providers"
)

// Name is the backend display name.
const Name = "cleartext"

// errSealed is returned when a sealed value reaches a call that needs a plaintext.
var errSealed = errors.New("value is encrypted")

// sealed stands in for a ciphertext.
type sealed struct {
	value any
}

type loaded[T api.Number] struct {
	operands  [][][]T
	encrypted bool
}

type computed[T api.Number] struct {
	results   []providers.Result[T]
	encrypted bool
}

// workload implements providers.Workload for element type T.
type workload[T api.Number] struct {
	layout dataloader.Layout
	kernel kernel[T]
}

func (w *workload[T]) Encode(packs []api.DataPack) (any, error) {
	operands, err := providers.DecodePacks[T](packs)
	if err != nil {
		return nil, err
	}
	for pos, samples := range operands {
		if pos >= uint64(len(w.layout.Operands)) {
			return nil, fmt.Errorf("operand %d out of range", pos)
		}
		for i, s := range samples {
			if len(s) != w.layout.Operands[pos] {
				return nil, fmt.Errorf("operand %d sample %d has %d elements, want %d", pos, i, len(s), w.layout.Operands[pos])
			}
		}
	}
	return operands, nil
}

func (w *workload[T]) Decode(plain any) ([]api.ResultData, error) {
	switch v := plain.(type) {
	case []providers.Result[T]:
		return providers.EncodeResults(v), nil
	case sealed:
		return nil, fmt.Errorf("cannot decode: %w", errSealed)
	default:
		return nil, fmt.Errorf("cannot decode %T", plain)
	}
}

func (w *workload[T]) Encrypt(plain any) (any, error) {
	if _, ok := plain.(providers.Operands[T]); !ok {
		return nil, fmt.Errorf("cannot encrypt %T", plain)
	}
	return sealed{value: plain}, nil
}

func (w *workload[T]) Decrypt(cipher any) (any, error) {
	s, ok := cipher.(sealed)
	if !ok {
		return nil, fmt.Errorf("cannot decrypt %T", cipher)
	}
	return s.value, nil
}

func (w *workload[T]) Load(locals []any) (any, error) {
	all := make(providers.Operands[T])
	encrypted := false
	for _, l := range locals {
		if s, ok := l.(sealed); ok {
			encrypted = true
			l = s.value
		}
		operands, ok := l.(providers.Operands[T])
		if !ok {
			return nil, fmt.Errorf("cannot load %T", l)
		}
		if err := all.Merge(operands); err != nil {
			return nil, err
		}
	}
	ordered, err := all.Ordered(len(w.layout.Operands))
	if err != nil {
		return nil, err
	}
	return &loaded[T]{operands: ordered, encrypted: encrypted}, nil
}

func (w *workload[T]) Operate(remote any, indexers []api.ParameterIndexer) (any, error) {
	in, ok := remote.(*loaded[T])
	if !ok {
		return nil, fmt.Errorf("cannot operate on %T", remote)
	}
	available := make([]int, len(in.operands))
	for k, samples := range in.operands {
		available[k] = len(samples)
	}
	first, size, err := providers.Batch(indexers, available)
	if err != nil {
		return nil, err
	}

	out := &computed[T]{results: make([]providers.Result[T], 0, size), encrypted: in.encrypted}
	args := make([][]T, len(in.operands))
	for i := uint64(0); i < size; i++ {
		for k := range in.operands {
			args[k] = in.operands[k][first[k]+i]
		}
		components, err := w.kernel(args)
		if err != nil {
			return nil, err
		}
		out.results = append(out.results, providers.Result[T]{SampleIndex: first[0] + i, Components: components})
	}
	return out, nil
}

func (w *workload[T]) Store(remote any) ([]any, error) {
	c, ok := remote.(*computed[T])
	if !ok {
		return nil, fmt.Errorf("cannot store %T", remote)
	}
	if c.encrypted {
		return []any{sealed{value: c.results}}, nil
	}
	return []any{c.results}, nil
}
