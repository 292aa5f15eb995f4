package benchmark

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/catalog"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/registry"
	"github.com/nvr-ai/go-hebench/report"
	"github.com/nvr-ai/go-hebench/timing"
)

// EngineArgs are the explicit dependencies of an Engine.
type EngineArgs struct {
	// Registry is the gateway the backend is loaded into. Required.
	Registry *registry.Registry
	// Catalog receives the subscribed benchmarks; a new catalog when nil.
	Catalog *catalog.Catalog[*Implementation]
	// Loaders binds data loaders; dataloader.NewGenerated when nil.
	Loaders dataloader.Factory
	// Metrics records run outcomes; optional.
	Metrics *Metrics
	// Clock replaces the system clock; optional.
	Clock timing.Clock
	// Logger is optional; slog.Default() when nil.
	Logger *slog.Logger
}

// Engine resolves run requests against one backend and executes them one at a time.
type Engine struct {
	registry *registry.Registry
	catalog  *catalog.Catalog[*Implementation]
	loaders  dataloader.Factory
	metrics  *Metrics
	clock    timing.Clock
	logger   *slog.Logger
	running  atomic.Bool
}

// NewEngine creates an engine with no backend open.
//
// Arguments:
//   - args: The engine's dependencies.
//
// Returns:
//   - *Engine: The engine.
func NewEngine(args EngineArgs) *Engine {
	e := &Engine{
		registry: args.Registry,
		catalog:  args.Catalog,
		loaders:  args.Loaders,
		metrics:  args.Metrics,
		clock:    args.Clock,
		logger:   args.Logger,
	}
	if e.catalog == nil {
		e.catalog = catalog.New[*Implementation]()
	}
	if e.loaders == nil {
		e.loaders = dataloader.NewGenerated
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Open loads the backend module and registers every benchmark it subscribes.
//
// Arguments:
//   - modulePath: The module to load, e.g. "builtin:cleartext" or a plugin path.
//
// Returns:
//   - error: A LoadError, a BackendCallError, or a DuplicateDescriptorError if the backend
//     offers ambiguous benchmarks.
func (e *Engine) Open(modulePath string) error {
	if e.registry == nil {
		return &api.StateError{Op: "Open", Message: "engine has no registry"}
	}
	if err := e.registry.Load(modulePath); err != nil {
		return err
	}

	descs, err := e.registry.Subscribe()
	if err != nil {
		return err
	}
	for _, h := range descs {
		descriptor, defaults, err := e.registry.Describe(h)
		if err != nil {
			return err
		}
		impl := &Implementation{Defaults: defaults, desc: h, registry: e.registry}
		if err := e.catalog.Register(descriptor, impl); err != nil {
			return fmt.Errorf("backend %s: %w", e.registry.Backend(), err)
		}
	}

	e.logger.Info("benchmarks subscribed", "backend", e.registry.Backend(), "count", len(descs))
	return nil
}

// Backend returns the loaded backend's name.
func (e *Engine) Backend() string {
	return e.registry.Backend()
}

// Descriptors returns the registered descriptors ordered by key.
func (e *Engine) Descriptors() []api.BenchmarkDescriptor {
	entries := e.catalog.Entries()
	out := make([]api.BenchmarkDescriptor, len(entries))
	for i, entry := range entries {
		out[i] = entry.Descriptor
	}
	return out
}

// Defaults returns the default workload parameter sets of a descriptor.
func (e *Engine) Defaults(desc api.BenchmarkDescriptor) []api.WorkloadParams {
	for _, entry := range e.catalog.Entries() {
		if entry.Descriptor.Equal(desc) {
			return append([]api.WorkloadParams(nil), entry.Factory.Defaults...)
		}
	}
	return nil
}

// Match resolves a request to its catalog entry. A request without parameters matches
// the first entry of its identity that offers defaults.
func (e *Engine) Match(req RunRequest) (catalog.Entry[*Implementation], error) {
	if len(req.Params) == 0 {
		for _, entry := range e.catalog.Entries() {
			if !req.identifies(entry.Descriptor) {
				continue
			}
			if len(entry.Descriptor.ParamRanges) == 0 {
				return entry, nil
			}
			if len(entry.Factory.Defaults) > 0 {
				resolved := req
				resolved.Params = entry.Factory.Defaults[0].Values()
				return e.catalog.Match(resolved.catalogRequest())
			}
		}
	}
	return e.catalog.Match(req.catalogRequest())
}

// Run executes one request. At most one run is active per engine.
//
// Arguments:
//   - req: The benchmark to run.
//   - cfg: Execution-time switches.
//
// Returns:
//   - *report.Report: The report of the completed run.
//   - error: A StateError if another run is active; a NoMatchError, BackendCallError or
//     data loader failure otherwise. No report is produced on failure.
func (e *Engine) Run(req RunRequest, cfg RunConfig) (*report.Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, &api.StateError{Op: "Run", State: "running", Message: "another run is active on this engine"}
	}
	defer e.running.Store(false)

	entry, err := e.Match(req)
	if err != nil {
		e.metrics.observeOutcome(req.Category, outcomeNoMatch)
		return nil, err
	}
	if len(req.Params) == 0 && len(entry.Descriptor.ParamRanges) > 0 {
		req.Params = entry.Factory.Defaults[0].Values()
	}

	x := NewExecution(ExecutionArgs{
		Registry: e.registry,
		Entry:    entry,
		Request:  req,
		Config:   cfg,
		Loaders:  e.loaders,
		Clock:    e.clock,
		Logger:   e.logger,
	})
	if err := x.Initialize(); err != nil {
		e.metrics.observeOutcome(req.Category, outcomeFailed)
		return nil, err
	}
	r, err := x.Run()
	if err != nil {
		e.metrics.observeOutcome(req.Category, outcomeFailed)
		return nil, err
	}
	e.metrics.observeReport(r)
	return r, nil
}

// Close releases every handle and unloads the backend.
func (e *Engine) Close() error {
	if e.registry == nil {
		return nil
	}
	return e.registry.Close()
}
