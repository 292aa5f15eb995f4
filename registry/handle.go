package registry

import (
	"sync"

	"github.com/nvr-ai/go-hebench/api"
)

// Tags attached to wrapped handles.
const (
	TagEngine     = "engine"
	TagDescriptor = "descriptor"
	TagBenchmark  = "benchmark"
	TagPlaintext  = "plaintext"
	TagCiphertext = "ciphertext"
	TagRemote     = "remote"
	TagResult     = "result"
	TagLocal      = "local"
)

// noCopy lets `go vet` flag copies of a Handle.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Handle exclusively owns one native backend handle.
//
// A Handle is only ever used through a pointer handed out by the Registry that created it.
// Destroy releases the native handle exactly once; Move transfers ownership to a new
// wrapper and empties this one.
type Handle struct {
	_ noCopy

	mu        sync.Mutex
	owner     *Registry
	native    api.Handle
	tag       string
	label     string
	seq       uint64
	destroyed bool
}

// Tag returns the kind of state the handle refers to.
func (h *Handle) Tag() string {
	return h.tag
}

// Label returns the descriptor label inherited by benchmark handles.
func (h *Handle) Label() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.label
}

// Alive reports whether the handle still owns native state.
func (h *Handle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.destroyed
}

// Destroy releases the native handle. Calls after the first are no-ops.
//
// Returns:
//   - error: A BackendCallError if the backend rejected the release.
func (h *Handle) Destroy() error {
	if h == nil || h.owner == nil {
		return nil
	}
	return h.owner.destroy(h)
}

// Move transfers ownership of the native handle to a new wrapper. The receiver is left
// destroyed without releasing anything.
//
// Returns:
//   - *Handle: The new owner.
//   - error: A StateError if the receiver no longer owns a handle.
func (h *Handle) Move() (*Handle, error) {
	if h == nil || h.owner == nil {
		return nil, &api.StateError{Op: "Move", Message: "handle has no owner"}
	}
	return h.owner.move(h)
}

// Release transfers ownership out of the registry. The native handle is returned and the
// caller becomes responsible for destroying it; the wrapper is left empty.
func (h *Handle) Release() (api.Handle, error) {
	if h == nil || h.owner == nil {
		return api.Handle{}, &api.StateError{Op: "Release", Message: "handle has no owner"}
	}
	return h.owner.release(h)
}

func (h *Handle) nativeHandle() api.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.native
}
