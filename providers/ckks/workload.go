package ckks

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/providers"
)

// encoded holds one plaintext per sample, per operand position.
type encoded map[uint64][]*rlwe.Plaintext

// encrypted holds one ciphertext per sample, per operand position.
type encrypted map[uint64][]*rlwe.Ciphertext

// operand is a loaded operand; exactly one of cts and pts is set.
type operand struct {
	cts []*rlwe.Ciphertext
	pts []*rlwe.Plaintext
}

func (o operand) len() int {
	if o.cts != nil {
		return len(o.cts)
	}
	return len(o.pts)
}

func (o operand) at(i uint64) any {
	if o.cts != nil {
		return o.cts[i]
	}
	return o.pts[i]
}

type indexed[V any] struct {
	sampleIndex uint64
	value       V
}

// workload runs one vector operation over CKKS ciphertexts.
type workload struct {
	ctx      *keyring
	op       api.Workload
	n        int
	operands int
}

func newWorkload(p Parameters, desc api.BenchmarkDescriptor, params api.WorkloadParams) (providers.Workload, error) {
	if desc.CipherParamMask&1 == 0 {
		return nil, fmt.Errorf("operand 0 must be encrypted, mask %d", desc.CipherParamMask)
	}
	layout, err := dataloader.LayoutFor(desc.Workload, params)
	if err != nil {
		return nil, err
	}
	n := layout.Operands[0]
	if n > p.MaxVectorLength() {
		return nil, fmt.Errorf("vector length %d exceeds %d slots", n, p.MaxVectorLength())
	}

	rotateUpTo := 0
	if desc.Workload == api.WorkloadDotProduct {
		rotateUpTo = n
	}
	ctx, err := newKeyring(p, rotateUpTo)
	if err != nil {
		return nil, err
	}
	return &workload{ctx: ctx, op: desc.Workload, n: n, operands: len(layout.Operands)}, nil
}

func (w *workload) Encode(packs []api.DataPack) (any, error) {
	operands, err := providers.DecodePacks[float64](packs)
	if err != nil {
		return nil, err
	}
	out := make(encoded, len(operands))
	for pos, samples := range operands {
		if pos >= uint64(w.operands) {
			return nil, fmt.Errorf("operand %d out of range", pos)
		}
		pts := make([]*rlwe.Plaintext, len(samples))
		for i, s := range samples {
			if len(s) != w.n {
				return nil, fmt.Errorf("operand %d sample %d has %d elements, want %d", pos, i, len(s), w.n)
			}
			pt := ckks.NewPlaintext(w.ctx.params, w.ctx.params.MaxLevel())
			if err := w.ctx.encoder.Encode(s, pt); err != nil {
				return nil, fmt.Errorf("failed to encode operand %d sample %d: %w", pos, i, err)
			}
			pts[i] = pt
		}
		out[pos] = pts
	}
	return out, nil
}

func (w *workload) Encrypt(plain any) (any, error) {
	in, ok := plain.(encoded)
	if !ok {
		return nil, fmt.Errorf("cannot encrypt %T", plain)
	}
	out := make(encrypted, len(in))
	for pos, pts := range in {
		cts := make([]*rlwe.Ciphertext, len(pts))
		for i, pt := range pts {
			ct, err := w.ctx.encryptor.EncryptNew(pt)
			if err != nil {
				return nil, fmt.Errorf("failed to encrypt operand %d sample %d: %w", pos, i, err)
			}
			cts[i] = ct
		}
		out[pos] = cts
	}
	return out, nil
}

func (w *workload) Load(locals []any) (any, error) {
	loaded := make([]operand, w.operands)
	seen := make([]bool, w.operands)
	claim := func(pos uint64) error {
		if pos >= uint64(w.operands) {
			return fmt.Errorf("operand %d out of range", pos)
		}
		if seen[pos] {
			return fmt.Errorf("operand %d loaded twice", pos)
		}
		seen[pos] = true
		return nil
	}

	for _, l := range locals {
		switch v := l.(type) {
		case encrypted:
			for pos, cts := range v {
				if err := claim(pos); err != nil {
					return nil, err
				}
				loaded[pos].cts = cts
			}
		case encoded:
			for pos, pts := range v {
				if err := claim(pos); err != nil {
					return nil, err
				}
				loaded[pos].pts = pts
			}
		default:
			return nil, fmt.Errorf("cannot load %T", l)
		}
	}
	for pos, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("operand %d was not loaded", pos)
		}
	}
	if loaded[0].cts == nil {
		return nil, fmt.Errorf("operand 0 must be encrypted")
	}
	return loaded, nil
}

func (w *workload) Operate(remote any, indexers []api.ParameterIndexer) (any, error) {
	in, ok := remote.([]operand)
	if !ok {
		return nil, fmt.Errorf("cannot operate on %T", remote)
	}
	available := make([]int, len(in))
	for k, o := range in {
		available[k] = o.len()
	}
	first, size, err := providers.Batch(indexers, available)
	if err != nil {
		return nil, err
	}

	out := make([]indexed[*rlwe.Ciphertext], 0, size)
	for i := uint64(0); i < size; i++ {
		ct, err := w.apply(in[0].cts[first[0]+i], in[1].at(first[1]+i))
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", first[0]+i, err)
		}
		out = append(out, indexed[*rlwe.Ciphertext]{sampleIndex: first[0] + i, value: ct})
	}
	return out, nil
}

func (w *workload) apply(a *rlwe.Ciphertext, b any) (*rlwe.Ciphertext, error) {
	eval := w.ctx.evaluator
	switch w.op {
	case api.WorkloadEltwiseAdd:
		return eval.AddNew(a, b)
	case api.WorkloadEltwiseMultiply:
		return w.multiply(a, b)
	case api.WorkloadDotProduct:
		acc, err := w.multiply(a, b)
		if err != nil {
			return nil, err
		}
		// slots past n are zero, so rotations up to the next power of two fold
		// every product into slot 0
		for step := 1; step < w.n; step *= 2 {
			rot, err := eval.RotateNew(acc, step)
			if err != nil {
				return nil, fmt.Errorf("rotate by %d: %w", step, err)
			}
			if acc, err = eval.AddNew(acc, rot); err != nil {
				return nil, err
			}
		}
		return acc, nil
	default:
		return nil, fmt.Errorf("unsupported workload %s", w.op)
	}
}

func (w *workload) multiply(a *rlwe.Ciphertext, b any) (*rlwe.Ciphertext, error) {
	eval := w.ctx.evaluator
	ct, err := eval.MulNew(a, b)
	if err != nil {
		return nil, fmt.Errorf("multiply: %w", err)
	}
	if ct.Degree() > 1 {
		if ct, err = eval.RelinearizeNew(ct); err != nil {
			return nil, fmt.Errorf("relinearize: %w", err)
		}
	}
	if err := eval.Rescale(ct, ct); err != nil {
		return nil, fmt.Errorf("rescale: %w", err)
	}
	return ct, nil
}

func (w *workload) Store(remote any) ([]any, error) {
	results, ok := remote.([]indexed[*rlwe.Ciphertext])
	if !ok {
		return nil, fmt.Errorf("cannot store %T", remote)
	}
	return []any{results}, nil
}

func (w *workload) Decrypt(cipher any) (any, error) {
	results, ok := cipher.([]indexed[*rlwe.Ciphertext])
	if !ok {
		return nil, fmt.Errorf("cannot decrypt %T", cipher)
	}
	out := make([]indexed[*rlwe.Plaintext], len(results))
	for i, r := range results {
		out[i] = indexed[*rlwe.Plaintext]{sampleIndex: r.sampleIndex, value: w.ctx.decryptor.DecryptNew(r.value)}
	}
	return out, nil
}

func (w *workload) Decode(plain any) ([]api.ResultData, error) {
	results, ok := plain.([]indexed[*rlwe.Plaintext])
	if !ok {
		return nil, fmt.Errorf("cannot decode %T", plain)
	}
	width := w.n
	if w.op == api.WorkloadDotProduct {
		width = 1
	}
	slots := make([]float64, w.ctx.params.MaxSlots())
	out := make([]api.ResultData, len(results))
	for i, r := range results {
		if err := w.ctx.encoder.Decode(r.value, slots); err != nil {
			return nil, fmt.Errorf("failed to decode sample %d: %w", r.sampleIndex, err)
		}
		out[i] = api.ResultData{
			SampleIndex: r.sampleIndex,
			Values:      []api.NativeDataBuffer{api.EncodeValues(append([]float64(nil), slots[:width]...))},
		}
	}
	return out, nil
}
