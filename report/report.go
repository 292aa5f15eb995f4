// Package report - Assembles immutable benchmark reports from timing events.
package report

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/stats"
	"github.com/nvr-ai/go-hebench/timing"
)

// MainEventType is the event type whose statistics headline a report.
const MainEventType = "operation"

// DocumentVersion is the version of the persisted report layout.
const DocumentVersion = 1

// Host describes the machine a run executed on.
type Host struct {
	GOOS      string `json:"goos"       yaml:"goos"       cbor:"goos"`
	GOARCH    string `json:"goarch"     yaml:"goarch"     cbor:"goarch"`
	NumCPU    int    `json:"num_cpu"    yaml:"num_cpu"    cbor:"num_cpu"`
	GoVersion string `json:"go_version" yaml:"go_version" cbor:"go_version"`
}

// CurrentHost returns the description of the running machine.
func CurrentHost() Host {
	return Host{
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
}

// Header identifies the run a report describes.
type Header struct {
	RunID          string                  `json:"run_id"          yaml:"run_id"          cbor:"run_id"`
	Backend        string                  `json:"backend"         yaml:"backend"         cbor:"backend"`
	ModulePath     string                  `json:"module_path"     yaml:"module_path"     cbor:"module_path"`
	Descriptor     api.BenchmarkDescriptor `json:"descriptor"      yaml:"descriptor"      cbor:"descriptor"`
	WorkloadParams api.WorkloadParams      `json:"workload_params" yaml:"workload_params" cbor:"workload_params"`
	CategoryParams api.CategoryParams      `json:"category_params" yaml:"category_params" cbor:"category_params"`
	StartedAt      time.Time               `json:"started_at"      yaml:"started_at"      cbor:"started_at"`
	FinishedAt     time.Time               `json:"finished_at"     yaml:"finished_at"     cbor:"finished_at"`
	TimeUnit       string                  `json:"time_unit"       yaml:"time_unit"       cbor:"time_unit"`
	Host           Host                    `json:"host"            yaml:"host"            cbor:"host"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Title returns a one-line description of the run.
func (h Header) Title() string {
	return fmt.Sprintf("%s %s [%s]", h.Backend, h.Descriptor, h.WorkloadParams)
}

// Entry is the statistics of one event type.
type Entry struct {
	EventTypeID uint32                    `json:"event_type_id" yaml:"event_type_id" cbor:"event_type_id"`
	Name        string                    `json:"name"          yaml:"name"          cbor:"name"`
	Main        bool                      `json:"main"          yaml:"main"          cbor:"main"`
	Stats       stats.EventTypeStatistics `json:"stats"         yaml:"stats"         cbor:"stats"`
}

// Validation summarizes result checking for a run.
type Validation struct {
	Enabled    bool                     `json:"enabled"    yaml:"enabled"    cbor:"enabled"`
	Checked    uint64                   `json:"checked"    yaml:"checked"    cbor:"checked"`
	Failed     uint64                   `json:"failed"     yaml:"failed"     cbor:"failed"`
	Mismatches []api.ValidationMismatch `json:"mismatches" yaml:"mismatches" cbor:"mismatches"`
}

// Passed reports whether validation ran and found no mismatch.
func (v Validation) Passed() bool {
	return v.Enabled && v.Failed == 0
}

// Report is the immutable outcome of one successful run.
type Report struct {
	header     Header
	entries    []Entry
	events     []timing.TimingEvent
	validation Validation
	footer     []string
}

// Option configures Assemble.
type Option func(*assembly)

type assembly struct {
	mainEventType string
	validation    Validation
	footer        []string
}

// WithValidation attaches the validation summary.
func WithValidation(v Validation) Option {
	return func(a *assembly) {
		a.validation = v
	}
}

// WithFooter appends free-form footer lines.
func WithFooter(lines ...string) Option {
	return func(a *assembly) {
		a.footer = append(a.footer, lines...)
	}
}

// WithMainEventType overrides the main event type.
func WithMainEventType(eventType string) Option {
	return func(a *assembly) {
		a.mainEventType = eventType
	}
}

// Assemble builds a report from a run's header and events.
//
// Arguments:
//   - header: The run identity. A missing RunID or TimeUnit is filled in.
//   - events: The run's timing events, ordered by EventID.
//   - opts: Validation summary, footer lines, main event override.
//
// Returns:
//   - *Report: One entry per event type in first-seen order.
//   - error: If event ids are not strictly increasing or the run ends before it starts.
func Assemble(header Header, events []timing.TimingEvent, opts ...Option) (*Report, error) {
	a := assembly{mainEventType: MainEventType}
	for _, opt := range opts {
		opt(&a)
	}

	for i := 1; i < len(events); i++ {
		if events[i].EventID <= events[i-1].EventID {
			return nil, fmt.Errorf("event %d out of order after event %d", events[i].EventID, events[i-1].EventID)
		}
	}
	if !header.FinishedAt.IsZero() && header.FinishedAt.Before(header.StartedAt) {
		return nil, fmt.Errorf("run finished at %s before it started at %s", header.FinishedAt, header.StartedAt)
	}

	if header.RunID == "" {
		header.RunID = NewRunID()
	}
	if header.TimeUnit == "" {
		header.TimeUnit = "ms"
	}
	header.StartedAt = header.StartedAt.UTC()
	header.FinishedAt = header.FinishedAt.UTC()

	var entries []Entry
	for _, t := range timing.Types(events) {
		entries = append(entries, Entry{
			EventTypeID: t.ID,
			Name:        timing.DisplayName(t.Name),
			Main:        t.Name == a.mainEventType,
			Stats:       stats.ForEventType(events, t.Name),
		})
	}

	footer := a.footer
	if !a.validation.Enabled {
		footer = append([]string{"Validation skipped"}, footer...)
	}

	r := &Report{
		header:     header,
		entries:    entries,
		events:     append([]timing.TimingEvent(nil), events...),
		validation: copyValidation(a.validation),
		footer:     footer,
	}
	return r, nil
}

// Header returns the run header.
func (r *Report) Header() Header {
	h := r.header
	h.WorkloadParams = append(api.WorkloadParams(nil), h.WorkloadParams...)
	h.Descriptor.ParamRanges = append([]api.ParamRange(nil), h.Descriptor.ParamRanges...)
	return h
}

// RunID returns the run identifier.
func (r *Report) RunID() string {
	return r.header.RunID
}

// Entries returns a copy of the per-event-type statistics in first-seen order.
func (r *Report) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Entry returns the statistics of one event type.
func (r *Report) Entry(eventType string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Stats.EventType == eventType {
			return e, true
		}
	}
	return Entry{}, false
}

// Main returns the main event entry.
func (r *Report) Main() (Entry, bool) {
	for _, e := range r.entries {
		if e.Main {
			return e, true
		}
	}
	return Entry{}, false
}

// Events returns a copy of the raw timing events.
func (r *Report) Events() []timing.TimingEvent {
	return append([]timing.TimingEvent(nil), r.events...)
}

// Validation returns the validation summary.
func (r *Report) Validation() Validation {
	return copyValidation(r.validation)
}

// Footer returns a copy of the footer lines.
func (r *Report) Footer() []string {
	return append([]string(nil), r.footer...)
}

func copyValidation(v Validation) Validation {
	if v.Mismatches != nil {
		v.Mismatches = append([]api.ValidationMismatch{}, v.Mismatches...)
	}
	return v
}
