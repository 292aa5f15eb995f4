package api

// ErrorCode is the integer status every backend call returns.
type ErrorCode int32

const (
	// Success is returned by a call that completed.
	Success ErrorCode = 0
	// InvalidArgs is returned when a call receives an unknown handle or malformed data.
	InvalidArgs ErrorCode = -1
	// CriticalError is returned when the backend failed internally.
	CriticalError ErrorCode = -2
)

// Succeeded reports whether code signals success.
func Succeeded(code ErrorCode) bool {
	return code == Success
}

// Backend is the operation contract a loadable backend module implements.
//
// Every call returns an ErrorCode. Handles returned by a call are owned by the caller and
// must be released with DestroyHandle exactly once.
type Backend interface {
	// Name returns the backend's display name.
	Name() string

	// InitEngine performs the backend's global initialization and returns the engine handle.
	InitEngine() (Handle, ErrorCode)

	// SubscribeBenchmarks returns one descriptor handle per benchmark the backend offers.
	SubscribeBenchmarks(engine Handle) ([]Handle, ErrorCode)

	// DescribeBenchmark returns the descriptor and default workload parameter sets behind a
	// descriptor handle.
	DescribeBenchmark(engine, desc Handle) (BenchmarkDescriptor, []WorkloadParams, ErrorCode)

	// CreateBenchmark instantiates the benchmark behind desc with concrete parameters.
	CreateBenchmark(engine, desc Handle, params WorkloadParams) (Handle, ErrorCode)

	// InitBenchmark finalizes a created benchmark for the concrete descriptor the harness runs.
	InitBenchmark(bench Handle, concrete BenchmarkDescriptor) ErrorCode

	// Encode converts raw operand packs into a backend plaintext.
	Encode(bench Handle, packs []DataPack) (Handle, ErrorCode)

	// Decode converts a backend plaintext into raw results.
	Decode(bench, plain Handle) ([]ResultData, ErrorCode)

	// Encrypt converts a plaintext into a ciphertext.
	Encrypt(bench, plain Handle) (Handle, ErrorCode)

	// Decrypt converts a ciphertext into a plaintext.
	Decrypt(bench, cipher Handle) (Handle, ErrorCode)

	// Load moves local handles into the backend's remote execution space.
	Load(bench Handle, locals []Handle) (Handle, ErrorCode)

	// Store retrieves a remote result back into local handles.
	Store(bench, remote Handle) ([]Handle, ErrorCode)

	// Operate executes the workload over the loaded inputs.
	Operate(bench, remote Handle, indexers []ParameterIndexer) (Handle, ErrorCode)

	// DestroyHandle releases any handle returned by the backend.
	DestroyHandle(h Handle) ErrorCode

	// ErrorDescription describes an error code.
	ErrorDescription(code ErrorCode) string

	// LastErrorDescription describes the most recent failure seen by the engine.
	LastErrorDescription(engine Handle) string
}
