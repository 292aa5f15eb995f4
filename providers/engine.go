// Package providers - Backend-side helpers that turn workload kernels into an api.Backend.
package providers

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nvr-ai/go-hebench/api"
)

// Handle tags issued by Engine.
const (
	TagEngine int64 = iota + 1
	TagDescriptor
	TagBenchmark
	TagPlaintext
	TagCiphertext
	TagRemote
	TagLocal
)

// Workload is one instantiated benchmark. Values flowing between calls are opaque to the
// engine; a workload type-asserts what it produced earlier.
type Workload interface {
	// Encode converts operand packs into a plaintext value.
	Encode(packs []api.DataPack) (any, error)
	// Decode converts a plaintext result into raw results tagged with sample indices.
	Decode(plain any) ([]api.ResultData, error)
	// Encrypt converts a plaintext into a ciphertext.
	Encrypt(plain any) (any, error)
	// Decrypt converts a ciphertext into a plaintext.
	Decrypt(cipher any) (any, error)
	// Load gathers plaintexts and ciphertexts into the operand set of an operation.
	Load(locals []any) (any, error)
	// Store retrieves the results of an operation.
	Store(remote any) ([]any, error)
	// Operate runs the workload over the samples the indexers select.
	Operate(remote any, indexers []api.ParameterIndexer) (any, error)
}

// Initializer is implemented by workloads that prepare state once the concrete
// descriptor is known.
type Initializer interface {
	Init(concrete api.BenchmarkDescriptor) error
}

// Description is one benchmark a backend offers.
type Description struct {
	// Descriptor is the benchmark identity and its parameter ranges.
	Descriptor api.BenchmarkDescriptor
	// Defaults are the workload parameter sets offered when a run names none.
	Defaults []api.WorkloadParams
	// New instantiates the workload for concrete parameters.
	New func(desc api.BenchmarkDescriptor, params api.WorkloadParams) (Workload, error)
}

type object struct {
	tag   int64
	value any
}

type benchmark struct {
	description *Description
	params      api.WorkloadParams
	workload    Workload
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine implements api.Backend over a table of handles. Backends supply descriptions
// and workload kernels; the engine owns handle bookkeeping and error reporting.
type Engine struct {
	name         string
	descriptions []Description
	logger       *slog.Logger

	mu      sync.Mutex
	next    uint64
	objects map[uint64]object
	lastErr string
}

// NewEngine creates a backend named name offering descriptions.
//
// Arguments:
//   - name: The backend display name.
//   - descriptions: The benchmarks the backend subscribes.
//   - opts: Engine options.
//
// Returns:
//   - *Engine: The backend.
func NewEngine(name string, descriptions []Description, opts ...EngineOption) *Engine {
	e := &Engine{
		name:         name,
		descriptions: descriptions,
		objects:      make(map[uint64]object),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Name implements api.Backend.
func (e *Engine) Name() string {
	return e.name
}

// Live returns the number of handles not yet destroyed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.objects)
}

func (e *Engine) issue(tag int64, value any) api.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.objects[e.next] = object{tag: tag, value: value}
	return api.Handle{Ptr: e.next, Tag: tag}
}

func (e *Engine) lookup(h api.Handle, tags ...int64) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[h.Ptr]
	if !ok {
		return nil, false
	}
	if len(tags) == 0 {
		return obj.value, true
	}
	for _, t := range tags {
		if obj.tag == t {
			return obj.value, true
		}
	}
	return nil, false
}

func (e *Engine) fail(code api.ErrorCode, format string, args ...any) api.ErrorCode {
	msg := fmt.Sprintf(format, args...)
	e.mu.Lock()
	e.lastErr = msg
	e.mu.Unlock()
	e.logger.Debug("backend call failed", "backend", e.name, "code", int32(code), "error", msg)
	return code
}

func (e *Engine) benchmark(h api.Handle) (*benchmark, api.ErrorCode) {
	v, ok := e.lookup(h, TagBenchmark)
	if !ok {
		return nil, e.fail(api.InvalidArgs, "unknown benchmark handle %d", h.Ptr)
	}
	return v.(*benchmark), api.Success
}

// InitEngine implements api.Backend.
func (e *Engine) InitEngine() (api.Handle, api.ErrorCode) {
	return e.issue(TagEngine, e), api.Success
}

// SubscribeBenchmarks implements api.Backend.
func (e *Engine) SubscribeBenchmarks(engine api.Handle) ([]api.Handle, api.ErrorCode) {
	if _, ok := e.lookup(engine, TagEngine); !ok {
		return nil, e.fail(api.InvalidArgs, "unknown engine handle %d", engine.Ptr)
	}
	out := make([]api.Handle, len(e.descriptions))
	for i := range e.descriptions {
		out[i] = e.issue(TagDescriptor, &e.descriptions[i])
	}
	return out, api.Success
}

// DescribeBenchmark implements api.Backend.
func (e *Engine) DescribeBenchmark(engine, desc api.Handle) (api.BenchmarkDescriptor, []api.WorkloadParams, api.ErrorCode) {
	if _, ok := e.lookup(engine, TagEngine); !ok {
		return api.BenchmarkDescriptor{}, nil, e.fail(api.InvalidArgs, "unknown engine handle %d", engine.Ptr)
	}
	v, ok := e.lookup(desc, TagDescriptor)
	if !ok {
		return api.BenchmarkDescriptor{}, nil, e.fail(api.InvalidArgs, "unknown descriptor handle %d", desc.Ptr)
	}
	d := v.(*Description)
	defaults := make([]api.WorkloadParams, len(d.Defaults))
	for i, p := range d.Defaults {
		defaults[i] = append(api.WorkloadParams(nil), p...)
	}
	descriptor := d.Descriptor
	descriptor.ParamRanges = append([]api.ParamRange(nil), d.Descriptor.ParamRanges...)
	return descriptor, defaults, api.Success
}

// CreateBenchmark implements api.Backend.
func (e *Engine) CreateBenchmark(engine, desc api.Handle, params api.WorkloadParams) (api.Handle, api.ErrorCode) {
	if _, ok := e.lookup(engine, TagEngine); !ok {
		return api.Handle{}, e.fail(api.InvalidArgs, "unknown engine handle %d", engine.Ptr)
	}
	v, ok := e.lookup(desc, TagDescriptor)
	if !ok {
		return api.Handle{}, e.fail(api.InvalidArgs, "unknown descriptor handle %d", desc.Ptr)
	}
	d := v.(*Description)

	if len(params) != len(d.Descriptor.ParamRanges) {
		return api.Handle{}, e.fail(api.InvalidArgs, "%s expects %d workload parameters, got %d",
			d.Descriptor.Workload, len(d.Descriptor.ParamRanges), len(params))
	}
	for i, r := range d.Descriptor.ParamRanges {
		if !r.Accepts(params[i].Value) {
			return api.Handle{}, e.fail(api.InvalidArgs, "parameter %s=%g outside %s [%g, %g]", r.Name, params[i].Value, r.Type, r.Min, r.Max)
		}
	}

	workload, err := d.New(d.Descriptor, params)
	if err != nil {
		return api.Handle{}, e.fail(api.CriticalError, "failed to create %s: %v", d.Descriptor, err)
	}
	return e.issue(TagBenchmark, &benchmark{description: d, params: params, workload: workload}), api.Success
}

// InitBenchmark implements api.Backend.
func (e *Engine) InitBenchmark(bench api.Handle, concrete api.BenchmarkDescriptor) api.ErrorCode {
	b, code := e.benchmark(bench)
	if code != api.Success {
		return code
	}
	if !b.description.Descriptor.SameIdentity(concrete) {
		return e.fail(api.InvalidArgs, "concrete descriptor %s does not match %s", concrete, b.description.Descriptor)
	}
	if init, ok := b.workload.(Initializer); ok {
		if err := init.Init(concrete); err != nil {
			return e.fail(api.CriticalError, "failed to initialize %s: %v", concrete, err)
		}
	}
	return api.Success
}

// Encode implements api.Backend.
func (e *Engine) Encode(bench api.Handle, packs []api.DataPack) (api.Handle, api.ErrorCode) {
	b, code := e.benchmark(bench)
	if code != api.Success {
		return api.Handle{}, code
	}
	plain, err := b.workload.Encode(packs)
	if err != nil {
		return api.Handle{}, e.fail(api.CriticalError, "encode: %v", err)
	}
	return e.issue(TagPlaintext, plain), api.Success
}

// Decode implements api.Backend.
func (e *Engine) Decode(bench, plain api.Handle) ([]api.ResultData, api.ErrorCode) {
	b, code := e.benchmark(bench)
	if code != api.Success {
		return nil, code
	}
	v, ok := e.lookup(plain, TagPlaintext, TagLocal)
	if !ok {
		return nil, e.fail(api.InvalidArgs, "unknown plaintext handle %d", plain.Ptr)
	}
	results, err := b.workload.Decode(v)
	if err != nil {
		return nil, e.fail(api.CriticalError, "decode: %v", err)
	}
	return results, api.Success
}

// Encrypt implements api.Backend.
func (e *Engine) Encrypt(bench, plain api.Handle) (api.Handle, api.ErrorCode) {
	b, code := e.benchmark(bench)
	if code != api.Success {
		return api.Handle{}, code
	}
	v, ok := e.lookup(plain, TagPlaintext)
	if !ok {
		return api.Handle{}, e.fail(api.InvalidArgs, "unknown plaintext handle %d", plain.Ptr)
	}
	cipher, err := b.workload.Encrypt(v)
	if err != nil {
		return api.Handle{}, e.fail(api.CriticalError, "encrypt: %v", err)
	}
	return e.issue(TagCiphertext, cipher), api.Success
}

// Decrypt implements api.Backend.
func (e *Engine) Decrypt(bench, cipher api.Handle) (api.Handle, api.ErrorCode) {
	b, code := e.benchmark(bench)
	if code != api.Success {
		return api.Handle{}, code
	}
	v, ok := e.lookup(cipher, TagCiphertext, TagLocal)
	if !ok {
		return api.Handle{}, e.fail(api.InvalidArgs, "unknown ciphertext handle %d", cipher.Ptr)
	}
	plain, err := b.workload.Decrypt(v)
	if err != nil {
		return api.Handle{}, e.fail(api.CriticalError, "decrypt: %v", err)
	}
	return e.issue(TagPlaintext, plain), api.Success
}

// Load implements api.Backend.
func (e *Engine) Load(bench api.Handle, locals []api.Handle) (api.Handle, api.ErrorCode) {
	b, code := e.benchmark(bench)
	if code != api.Success {
		return api.Handle{}, code
	}
	values := make([]any, len(locals))
	for i, h := range locals {
		v, ok := e.lookup(h, TagPlaintext, TagCiphertext)
		if !ok {
			return api.Handle{}, e.fail(api.InvalidArgs, "unknown local handle %d", h.Ptr)
		}
		values[i] = v
	}
	remote, err := b.workload.Load(values)
	if err != nil {
		return api.Handle{}, e.fail(api.CriticalError, "load: %v", err)
	}
	return e.issue(TagRemote, remote), api.Success
}

// Store implements api.Backend.
func (e *Engine) Store(bench, remote api.Handle) ([]api.Handle, api.ErrorCode) {
	b, code := e.benchmark(bench)
	if code != api.Success {
		return nil, code
	}
	v, ok := e.lookup(remote, TagRemote)
	if !ok {
		return nil, e.fail(api.InvalidArgs, "unknown remote handle %d", remote.Ptr)
	}
	locals, err := b.workload.Store(v)
	if err != nil {
		return nil, e.fail(api.CriticalError, "store: %v", err)
	}
	out := make([]api.Handle, len(locals))
	for i, l := range locals {
		out[i] = e.issue(TagLocal, l)
	}
	return out, api.Success
}

// Operate implements api.Backend.
func (e *Engine) Operate(bench, remote api.Handle, indexers []api.ParameterIndexer) (api.Handle, api.ErrorCode) {
	b, code := e.benchmark(bench)
	if code != api.Success {
		return api.Handle{}, code
	}
	v, ok := e.lookup(remote, TagRemote)
	if !ok {
		return api.Handle{}, e.fail(api.InvalidArgs, "unknown remote handle %d", remote.Ptr)
	}
	result, err := b.workload.Operate(v, indexers)
	if err != nil {
		return api.Handle{}, e.fail(api.CriticalError, "operate: %v", err)
	}
	return e.issue(TagRemote, result), api.Success
}

// DestroyHandle implements api.Backend.
func (e *Engine) DestroyHandle(h api.Handle) api.ErrorCode {
	e.mu.Lock()
	_, ok := e.objects[h.Ptr]
	delete(e.objects, h.Ptr)
	e.mu.Unlock()
	if !ok {
		return e.fail(api.InvalidArgs, "unknown handle %d", h.Ptr)
	}
	return api.Success
}

// ErrorDescription implements api.Backend.
func (e *Engine) ErrorDescription(code api.ErrorCode) string {
	switch code {
	case api.Success:
		return "success"
	case api.InvalidArgs:
		return "invalid arguments"
	case api.CriticalError:
		return "critical error"
	default:
		return fmt.Sprintf("unknown error code %d", code)
	}
}

// LastErrorDescription implements api.Backend.
func (e *Engine) LastErrorDescription(api.Handle) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}
