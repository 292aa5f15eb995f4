// Package registry - Loads backend modules and owns every native handle they return.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nvr-ai/go-hebench/api"
)

var registryIDs atomic.Uint64

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used by the registry.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry loads one backend module and is the only gateway to it. Every handle the
// backend returns is wrapped in a Handle owned by this registry, and handles from other
// registries are rejected.
type Registry struct {
	id     uint64
	opener Opener
	logger *slog.Logger

	mu      sync.Mutex
	backend api.Backend
	path    string
	engine  *Handle
	live    []*Handle
	seq     uint64
	closed  bool
}

// New creates a registry that opens modules with opener.
//
// Arguments:
//   - opener: Resolves module paths to backends.
//   - opts: Optional configuration.
//
// Returns:
//   - *Registry: An empty registry with no module loaded.
func New(opener Opener, opts ...Option) *Registry {
	r := &Registry{
		id:     registryIDs.Add(1),
		opener: opener,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the registry's process-unique identifier.
func (r *Registry) ID() uint64 {
	return r.id
}

// Backend returns the loaded backend's name, or "" before Load.
func (r *Registry) Backend() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backend == nil {
		return ""
	}
	return r.backend.Name()
}

// ModulePath returns the path the module was loaded from.
func (r *Registry) ModulePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Load opens the backend module and performs its global initialization once.
//
// Arguments:
//   - modulePath: The module to open, e.g. "builtin:ckks" or "./backend.so".
//
// Returns:
//   - error: A LoadError if the module cannot be opened, lacks its entry point, or fails to
//     initialize; a StateError if a module is already loaded or the registry is closed.
func (r *Registry) Load(modulePath string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return &api.StateError{Op: "Load", State: "closed", Message: "registry is closed"}
	}
	if r.backend != nil {
		r.mu.Unlock()
		return &api.StateError{Op: "Load", State: "loaded", Message: "module " + r.path + " already loaded"}
	}
	r.mu.Unlock()

	if r.opener == nil {
		return &api.LoadError{Path: modulePath, Reason: "no opener configured"}
	}

	backend, err := r.opener.Open(modulePath)
	if err != nil {
		var loadErr *api.LoadError
		if errors.As(err, &loadErr) {
			return err
		}
		return &api.LoadError{Path: modulePath, Reason: "cannot open module", Cause: err}
	}
	if backend == nil {
		return &api.LoadError{Path: modulePath, Reason: "opener returned nil backend"}
	}

	native, code := backend.InitEngine()
	if !api.Succeeded(code) {
		return &api.LoadError{
			Path:   modulePath,
			Reason: "engine initialization failed",
			Cause: &api.BackendCallError{
				Operation:   "initEngine",
				Code:        code,
				Description: backend.ErrorDescription(code),
			},
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		backend.DestroyHandle(native)
		return &api.StateError{Op: "Load", State: "closed", Message: "registry closed during load"}
	}
	r.seq++
	engine := &Handle{owner: r, native: native, tag: TagEngine, seq: r.seq}
	r.live = append(r.live, engine)
	r.backend = backend
	r.path = modulePath
	r.engine = engine
	r.mu.Unlock()

	r.logger.Info("backend loaded", "backend", backend.Name(), "module", modulePath, "registry", r.id)
	return nil
}

// Wrap takes ownership of a native handle returned by the loaded backend.
//
// Arguments:
//   - native: The raw handle.
//   - tag: The kind of state it refers to.
//
// Returns:
//   - *Handle: The owning wrapper, registered for teardown in creation order. After Close
//     the native handle is destroyed at once and the returned wrapper is already dead.
func (r *Registry) Wrap(native api.Handle, tag string) *Handle {
	r.mu.Lock()
	r.seq++
	h := &Handle{owner: r, native: native, tag: tag, seq: r.seq}
	if !r.closed {
		r.live = append(r.live, h)
		r.mu.Unlock()
		return h
	}
	backend := r.backend
	r.mu.Unlock()

	h.destroyed = true
	h.native = api.Handle{}
	if backend != nil && !native.IsZero() {
		if code := backend.DestroyHandle(native); !api.Succeeded(code) {
			r.logger.Warn("failed to release handle wrapped after close", "tag", tag, "code", int32(code))
		}
	}
	return h
}

// Live returns the number of handles not yet destroyed, including the engine.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close destroys every live handle in reverse creation order, ending with the engine.
// Closing twice is a no-op.
//
// Returns:
//   - error: The first release failure, if any. Teardown continues past failures.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	live := make([]*Handle, len(r.live))
	copy(live, r.live)
	r.mu.Unlock()

	var first error
	for i := len(live) - 1; i >= 0; i-- {
		if err := r.destroy(live[i]); err != nil && first == nil {
			first = err
		}
	}

	r.mu.Lock()
	r.closed = true
	r.engine = nil
	name := ""
	if r.backend != nil {
		name = r.backend.Name()
	}
	r.mu.Unlock()

	r.logger.Info("backend unloaded", "backend", name, "registry", r.id)
	return first
}

func (r *Registry) destroy(h *Handle) error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	native := h.native
	h.mu.Unlock()

	r.forget(h)

	r.mu.Lock()
	backend := r.backend
	r.mu.Unlock()
	if backend == nil || native.IsZero() {
		return nil
	}

	if code := backend.DestroyHandle(native); !api.Succeeded(code) {
		return r.callError("destroyHandle", code, h)
	}
	return nil
}

func (r *Registry) move(h *Handle) (*Handle, error) {
	if err := r.check("Move", h); err != nil {
		return nil, err
	}
	h.mu.Lock()
	native, tag, label := h.native, h.tag, h.label
	h.destroyed = true
	h.native = api.Handle{}
	h.mu.Unlock()
	r.forget(h)

	moved := r.Wrap(native, tag)
	moved.label = label
	return moved, nil
}

func (r *Registry) release(h *Handle) (api.Handle, error) {
	if err := r.check("Release", h); err != nil {
		return api.Handle{}, err
	}
	h.mu.Lock()
	native := h.native
	h.destroyed = true
	h.native = api.Handle{}
	h.mu.Unlock()
	r.forget(h)
	return native, nil
}

func (r *Registry) forget(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, live := range r.live {
		if live == h {
			r.live = append(r.live[:i], r.live[i+1:]...)
			return
		}
	}
}

// check verifies the registry is usable and h is a live handle it owns.
func (r *Registry) check(op string, handles ...*Handle) error {
	r.mu.Lock()
	closed, loaded := r.closed, r.backend != nil
	r.mu.Unlock()

	if closed {
		return &api.StateError{Op: op, State: "closed", Message: "registry is closed"}
	}
	if !loaded {
		return &api.StateError{Op: op, State: "empty", Message: "no backend module loaded"}
	}
	for _, h := range handles {
		if h == nil {
			return &api.StateError{Op: op, Message: "nil handle"}
		}
		if h.owner != r {
			return &api.StateError{Op: op, Message: fmt.Sprintf("handle %q belongs to another registry", h.tag)}
		}
		if !h.Alive() {
			return &api.StateError{Op: op, Message: fmt.Sprintf("handle %q already destroyed", h.tag)}
		}
	}
	return nil
}

func (r *Registry) callError(op string, code api.ErrorCode, h *Handle) error {
	r.mu.Lock()
	backend, engine := r.backend, r.engine
	r.mu.Unlock()

	description := backend.ErrorDescription(code)
	if engine != nil && engine.Alive() {
		if last := backend.LastErrorDescription(engine.nativeHandle()); last != "" && last != description {
			description += ": " + last
		}
	}
	callErr := &api.BackendCallError{Operation: op, Code: code, Description: description}
	if h != nil {
		callErr.Descriptor = h.Label()
	}
	r.logger.Error("backend call failed", "op", op, "code", int32(code), "error", description)
	return callErr
}

func (r *Registry) loaded() (api.Backend, api.Handle) {
	r.mu.Lock()
	backend, engine := r.backend, r.engine
	r.mu.Unlock()
	if engine == nil {
		return backend, api.Handle{}
	}
	return backend, engine.nativeHandle()
}
