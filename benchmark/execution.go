package benchmark

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/catalog"
	"github.com/nvr-ai/go-hebench/dataloader"
	"github.com/nvr-ai/go-hebench/registry"
	"github.com/nvr-ai/go-hebench/report"
	"github.com/nvr-ai/go-hebench/timing"
)

// State is the lifecycle stage of an Execution.
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateLatencyRun
	StateOfflineRun
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateInitialized:
		return "Initialized"
	case StateLatencyRun:
		return "LatencyRun"
	case StateOfflineRun:
		return "OfflineRun"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// protocol is the category-specific part of a run.
type protocol interface {
	// state is the running state of the protocol.
	state() State
	// samples is the number of input samples the protocol consumes.
	samples() uint64
	// run drives the backend once the benchmark is initialized.
	run(x *Execution) error
}

// ExecutionArgs are the collaborators of one run.
type ExecutionArgs struct {
	// Registry is the gateway to the loaded backend.
	Registry *registry.Registry
	// Entry is the matched catalog entry.
	Entry catalog.Entry[*Implementation]
	// Request is the run as requested.
	Request RunRequest
	// Config holds the execution-time switches.
	Config RunConfig
	// Loaders binds the data loader; dataloader.NewGenerated when nil.
	Loaders dataloader.Factory
	// Clock replaces the system clock of the timing collector; optional.
	Clock timing.Clock
	// Logger is optional; slog.Default() when nil.
	Logger *slog.Logger
}

// Execution runs one benchmark through Created, Initialized, LatencyRun or OfflineRun,
// then Completed or Failed. It is single-use and not safe for concurrent use.
type Execution struct {
	registry *registry.Registry
	entry    catalog.Entry[*Implementation]
	request  RunRequest
	config   RunConfig
	loaders  dataloader.Factory
	logger   *slog.Logger

	state     State
	params    api.WorkloadParams
	category  api.CategoryParams
	protocol  protocol
	loader    dataloader.Loader
	bench     *registry.Handle
	owned     []*registry.Handle
	collector *timing.Collector
	validator *validator
	started   time.Time
	clock     timing.Clock
}

// NewExecution creates an execution in the Created state.
func NewExecution(args ExecutionArgs) *Execution {
	x := &Execution{
		registry: args.Registry,
		entry:    args.Entry,
		request:  args.Request,
		config:   args.Config,
		loaders:  args.Loaders,
		logger:   args.Logger,
		clock:    args.Clock,
		state:    StateCreated,
	}
	if x.loaders == nil {
		x.loaders = dataloader.NewGenerated
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}
	if x.clock == nil {
		x.clock = timing.SystemClock{}
	}
	x.logger = x.logger.With(
		"backend", args.Registry.Backend(),
		"workload", string(args.Entry.Descriptor.Workload),
		"category", string(args.Entry.Descriptor.Category),
	)
	return x
}

// State returns the current lifecycle stage.
func (x *Execution) State() State {
	return x.state
}

// Descriptor returns the matched benchmark descriptor.
func (x *Execution) Descriptor() api.BenchmarkDescriptor {
	return x.entry.Descriptor
}

// Params returns the resolved workload parameters; nil before Initialize.
func (x *Execution) Params() api.WorkloadParams {
	return append(api.WorkloadParams(nil), x.params...)
}

// Initialize resolves the workload parameters, creates and initializes the backend
// benchmark, and binds the data loader.
//
// Returns:
//   - error: A StateError outside the Created state; otherwise any resolution, backend or
//     data loader failure, after which the execution is Failed.
func (x *Execution) Initialize() error {
	if x.state != StateCreated {
		return &api.StateError{Op: "Initialize", State: x.state.String(), Message: "execution already initialized"}
	}
	if err := x.initialize(); err != nil {
		x.fail()
		return err
	}
	x.state = StateInitialized
	return nil
}

func (x *Execution) initialize() error {
	desc := x.entry.Descriptor

	x.category = x.request.CategoryParams()
	if err := x.category.Validate(); err != nil {
		return fmt.Errorf("invalid category parameters for %s: %w", desc, err)
	}
	if x.category.Category != desc.Category {
		return fmt.Errorf("category parameters for %s do not match %s", x.category.Category, desc)
	}
	switch desc.Category {
	case api.CategoryLatency:
		x.protocol = latency{params: *x.category.Latency}
	case api.CategoryOffline:
		x.protocol = offline{params: *x.category.Offline}
	default:
		return fmt.Errorf("unsupported category %q", desc.Category)
	}

	params, err := resolveParams(desc, x.entry.Factory, x.request.Params)
	if err != nil {
		return err
	}
	x.params = params

	if x.entry.Factory == nil {
		return &api.StateError{Op: "Initialize", Message: "catalog entry has no implementation"}
	}
	bench, err := x.entry.Factory.Create(params)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", desc, err)
	}
	x.own(bench)
	x.bench = bench
	if err := x.registry.InitBenchmark(bench, desc); err != nil {
		return fmt.Errorf("failed to initialize %s: %w", desc, err)
	}

	loader, err := x.loaders(desc, params, x.protocol.samples())
	if err != nil {
		return fmt.Errorf("failed to load data for %s: %w", desc, err)
	}
	if loader.SampleCount() < x.protocol.samples() {
		return fmt.Errorf("data loader offers %d samples, %s needs %d", loader.SampleCount(), desc, x.protocol.samples())
	}
	x.loader = loader
	x.validator = newValidator(x.config.ValidateResults, loader, x.logger)

	x.logger.Info("benchmark initialized", "params", params.String())
	return nil
}

// Run executes the category protocol and assembles the report.
//
// Returns:
//   - *report.Report: The report of a completed run.
//   - error: A StateError unless Initialized; otherwise the first backend failure, after
//     which the execution is Failed and no report exists.
func (x *Execution) Run() (*report.Report, error) {
	if x.state != StateInitialized {
		return nil, &api.StateError{Op: "Run", State: x.state.String(), Message: "execution is not initialized"}
	}

	x.state = x.protocol.state()
	x.collector = timing.NewCollector(timing.WithClock(x.clock))
	x.started = x.clock.Wall()

	if err := x.protocol.run(x); err != nil {
		x.fail()
		return nil, err
	}
	x.collector.Freeze()
	finished := x.clock.Wall()

	r, err := x.assemble(finished)
	x.releaseAll()
	if err != nil {
		x.state = StateFailed
		return nil, err
	}
	x.state = StateCompleted

	main, _ := r.Main()
	x.logger.Info("benchmark completed",
		"run_id", r.RunID(),
		"operations", main.Stats.EventCount,
		"validation_failed", r.Validation().Failed,
	)
	return r, nil
}

func (x *Execution) assemble(finished time.Time) (*report.Report, error) {
	unit := x.config.TimeUnit
	if unit == "" {
		unit = DefaultTimeUnit
	}
	header := report.Header{
		RunID:          report.NewRunID(),
		Backend:        x.registry.Backend(),
		ModulePath:     x.registry.ModulePath(),
		Descriptor:     x.entry.Descriptor,
		WorkloadParams: x.Params(),
		CategoryParams: x.category,
		StartedAt:      x.started,
		FinishedAt:     finished,
		TimeUnit:       unit,
		Host:           report.CurrentHost(),
	}
	return report.Assemble(header, x.collector.Events(),
		report.WithValidation(x.validator.summary()),
		report.WithFooter(x.footer()...),
	)
}

func (x *Execution) footer() []string {
	desc := x.entry.Descriptor
	lines := []string{fmt.Sprintf("Workload parameters: %s", x.params)}
	switch desc.Category {
	case api.CategoryLatency:
		lines = append(lines, fmt.Sprintf("Latency: %d warmup iterations, %d timed repetitions",
			x.category.Latency.WarmupIterations, x.category.Latency.Repetitions))
	case api.CategoryOffline:
		lines = append(lines, fmt.Sprintf("Offline: one batched operation over %d samples", x.category.Offline.SampleCount))
	}
	return lines
}

// fail moves to Failed and releases every handle the run created.
func (x *Execution) fail() {
	x.state = StateFailed
	if x.collector != nil {
		x.collector.Freeze()
	}
	x.releaseAll()
}

// own records a handle for release at the end of the run.
func (x *Execution) own(h *registry.Handle) *registry.Handle {
	x.owned = append(x.owned, h)
	return h
}

// releaseAll destroys owned handles in reverse creation order.
func (x *Execution) releaseAll() {
	for i := len(x.owned) - 1; i >= 0; i-- {
		if err := x.owned[i].Destroy(); err != nil {
			x.logger.Warn("failed to release handle", "tag", x.owned[i].Tag(), "error", err)
		}
	}
	x.owned = nil
}

// measure times fn as one event of eventType covering iterations samples.
func (x *Execution) measure(eventType string, iterations uint64, fn func() error) error {
	return x.collector.MeasureN(eventType, eventType, iterations, fn)
}
