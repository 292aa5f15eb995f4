package registry

import (
	"github.com/nvr-ai/go-hebench/api"
)

// Subscribe returns one wrapped descriptor handle per benchmark the backend offers.
func (r *Registry) Subscribe() ([]*Handle, error) {
	if err := r.check("Subscribe"); err != nil {
		return nil, err
	}
	backend, engine := r.loaded()

	natives, code := backend.SubscribeBenchmarks(engine)
	if !api.Succeeded(code) {
		return nil, r.callError("subscribeBenchmarks", code, nil)
	}

	out := make([]*Handle, len(natives))
	for i, native := range natives {
		out[i] = r.Wrap(native, TagDescriptor)
	}
	return out, nil
}

// Describe returns the descriptor and default parameter sets behind a descriptor handle.
// The descriptor's text becomes the handle's label, inherited by benchmarks created from it.
func (r *Registry) Describe(desc *Handle) (api.BenchmarkDescriptor, []api.WorkloadParams, error) {
	if err := r.check("Describe", desc); err != nil {
		return api.BenchmarkDescriptor{}, nil, err
	}
	backend, engine := r.loaded()

	descriptor, defaults, code := backend.DescribeBenchmark(engine, desc.nativeHandle())
	if !api.Succeeded(code) {
		return api.BenchmarkDescriptor{}, nil, r.callError("describeBenchmark", code, desc)
	}

	desc.mu.Lock()
	desc.label = descriptor.String()
	desc.mu.Unlock()
	return descriptor, defaults, nil
}

// CreateBenchmark instantiates the benchmark behind desc with concrete workload parameters.
func (r *Registry) CreateBenchmark(desc *Handle, params api.WorkloadParams) (*Handle, error) {
	if err := r.check("CreateBenchmark", desc); err != nil {
		return nil, err
	}
	backend, engine := r.loaded()

	native, code := backend.CreateBenchmark(engine, desc.nativeHandle(), params)
	if !api.Succeeded(code) {
		return nil, r.callError("createBenchmark", code, desc)
	}

	bench := r.Wrap(native, TagBenchmark)
	bench.label = desc.Label()
	return bench, nil
}

// InitBenchmark finalizes a created benchmark for the concrete descriptor being run.
func (r *Registry) InitBenchmark(bench *Handle, concrete api.BenchmarkDescriptor) error {
	if err := r.check("InitBenchmark", bench); err != nil {
		return err
	}
	backend, _ := r.loaded()

	if code := backend.InitBenchmark(bench.nativeHandle(), concrete); !api.Succeeded(code) {
		return r.callError("initBenchmark", code, bench)
	}
	return nil
}

// Encode converts raw operand packs into a backend plaintext.
func (r *Registry) Encode(bench *Handle, packs []api.DataPack) (*Handle, error) {
	if err := r.check("Encode", bench); err != nil {
		return nil, err
	}
	backend, _ := r.loaded()

	native, code := backend.Encode(bench.nativeHandle(), packs)
	if !api.Succeeded(code) {
		return nil, r.callError("encode", code, bench)
	}
	return r.Wrap(native, TagPlaintext), nil
}

// Decode converts a backend plaintext into raw results.
func (r *Registry) Decode(bench, plain *Handle) ([]api.ResultData, error) {
	if err := r.check("Decode", bench, plain); err != nil {
		return nil, err
	}
	backend, _ := r.loaded()

	results, code := backend.Decode(bench.nativeHandle(), plain.nativeHandle())
	if !api.Succeeded(code) {
		return nil, r.callError("decode", code, bench)
	}
	return results, nil
}

// Encrypt converts a plaintext into a ciphertext.
func (r *Registry) Encrypt(bench, plain *Handle) (*Handle, error) {
	if err := r.check("Encrypt", bench, plain); err != nil {
		return nil, err
	}
	backend, _ := r.loaded()

	native, code := backend.Encrypt(bench.nativeHandle(), plain.nativeHandle())
	if !api.Succeeded(code) {
		return nil, r.callError("encrypt", code, bench)
	}
	return r.Wrap(native, TagCiphertext), nil
}

// Decrypt converts a ciphertext into a plaintext.
func (r *Registry) Decrypt(bench, cipher *Handle) (*Handle, error) {
	if err := r.check("Decrypt", bench, cipher); err != nil {
		return nil, err
	}
	backend, _ := r.loaded()

	native, code := backend.Decrypt(bench.nativeHandle(), cipher.nativeHandle())
	if !api.Succeeded(code) {
		return nil, r.callError("decrypt", code, bench)
	}
	return r.Wrap(native, TagPlaintext), nil
}

// LoadInputs moves local handles into the backend's remote space.
func (r *Registry) LoadInputs(bench *Handle, locals []*Handle) (*Handle, error) {
	if err := r.check("LoadInputs", append([]*Handle{bench}, locals...)...); err != nil {
		return nil, err
	}
	backend, _ := r.loaded()

	natives := make([]api.Handle, len(locals))
	for i, h := range locals {
		natives[i] = h.nativeHandle()
	}
	native, code := backend.Load(bench.nativeHandle(), natives)
	if !api.Succeeded(code) {
		return nil, r.callError("load", code, bench)
	}
	return r.Wrap(native, TagRemote), nil
}

// Store retrieves a remote result into local handles.
func (r *Registry) Store(bench, remote *Handle) ([]*Handle, error) {
	if err := r.check("Store", bench, remote); err != nil {
		return nil, err
	}
	backend, _ := r.loaded()

	natives, code := backend.Store(bench.nativeHandle(), remote.nativeHandle())
	if !api.Succeeded(code) {
		return nil, r.callError("store", code, bench)
	}
	out := make([]*Handle, len(natives))
	for i, native := range natives {
		out[i] = r.Wrap(native, TagLocal)
	}
	return out, nil
}

// Operate executes the workload over loaded inputs.
func (r *Registry) Operate(bench, remote *Handle, indexers []api.ParameterIndexer) (*Handle, error) {
	if err := r.check("Operate", bench, remote); err != nil {
		return nil, err
	}
	backend, _ := r.loaded()

	native, code := backend.Operate(bench.nativeHandle(), remote.nativeHandle(), indexers)
	if !api.Succeeded(code) {
		return nil, r.callError("operate", code, bench)
	}
	return r.Wrap(native, TagResult), nil
}
