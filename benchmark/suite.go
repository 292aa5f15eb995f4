package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/nvr-ai/go-hebench/archive"
	"github.com/nvr-ai/go-hebench/report"
)

// SessionDir is the subdirectory of an output directory that holds session summaries.
const SessionDir = "session"

// Suite queues run requests and executes them against one engine.
type Suite struct {
	engine    *Engine
	outputDir string
	config    RunConfig
	archive   *archive.Archive
	logger    *slog.Logger
	mu        sync.RWMutex
	runs      []RunRequest
	results   []*report.Report
}

// SuiteArgs represents the arguments for creating a new benchmark suite.
type SuiteArgs struct {
	// Engine has the backend open. Required.
	Engine *Engine
	// OutputDir receives reports and the session summary; nothing is written when empty.
	OutputDir string
	// Config applies to every run.
	Config RunConfig
	// Archive stores every completed report; optional.
	Archive *archive.Archive
	// Logger is optional; slog.Default() when nil.
	Logger *slog.Logger
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - args: The arguments for creating a new benchmark suite.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(args SuiteArgs) *Suite {
	logger := args.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Suite{
		engine:    args.Engine,
		outputDir: args.OutputDir,
		config:    args.Config,
		archive:   args.Archive,
		logger:    logger,
		runs:      make([]RunRequest, 0),
		results:   make([]*report.Report, 0),
	}
}

// AddRun queues a run request.
func (s *Suite) AddRun(req RunRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, req)
}

// AddRunSet queues every run of a run set.
func (s *Suite) AddRunSet(set *RunSet) {
	for _, req := range set.Runs {
		s.AddRun(req)
	}
}

// RunAll executes the queued runs in order. A failed run is logged and skipped; ctx is
// checked between runs only.
//
// Arguments:
//   - ctx: Cancels the remaining queue.
//
// Returns:
//   - int: The number of failed runs.
//   - error: ctx.Err() if the queue was cancelled.
func (s *Suite) RunAll(ctx context.Context) (int, error) {
	s.mu.RLock()
	runs := append([]RunRequest(nil), s.runs...)
	s.mu.RUnlock()

	failed := 0
	for i, req := range runs {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		s.logger.Info("starting run", "index", i, "run", req.String())
		r, err := s.engine.Run(req, s.config)
		if err != nil {
			failed++
			s.logger.Error("run failed", "index", i, "run", req.String(), "error", err)
			continue
		}

		s.mu.Lock()
		s.results = append(s.results, r)
		s.mu.Unlock()

		if s.archive != nil {
			if err := s.archive.Put(r); err != nil {
				s.logger.Error("failed to archive report", "run_id", r.RunID(), "error", err)
			}
		}
	}
	return failed, nil
}

// Results returns the completed reports in run order.
func (s *Suite) Results() []*report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*report.Report(nil), s.results...)
}

// SaveResults writes every report and the session summary to the output directory.
//
// Returns:
//   - *report.Session: The merged session; nil when there are no results.
//   - error: If a file cannot be written.
func (s *Suite) SaveResults() (*report.Session, error) {
	results := s.Results()
	if len(results) == 0 || s.outputDir == "" {
		return nil, nil
	}
	return WriteReports(s.outputDir, results)
}

// WriteReports writes each report as JSON, CBOR, summary CSV and stats CSV, then the
// overview CSV of all of them and their merged session under SessionDir.
//
// Arguments:
//   - dir: The output directory, created if missing.
//   - reports: The reports to write.
//
// Returns:
//   - *report.Session: The merged session.
//   - error: If a file cannot be written or the reports cannot be merged.
func WriteReports(dir string, reports []*report.Report) (*report.Session, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, r := range reports {
		base := filepath.Join(dir, r.RunID())
		if err := writeFile(base+".json", r.WriteJSON); err != nil {
			return nil, err
		}
		data, err := r.EncodeCBOR()
		if err != nil {
			return nil, fmt.Errorf("failed to encode report %s: %w", r.RunID(), err)
		}
		if err := os.WriteFile(base+".cbor", data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write report %s: %w", r.RunID(), err)
		}
		if err := writeFile(base+"_summary.csv", r.WriteSummaryCSV); err != nil {
			return nil, err
		}
		if err := writeFile(base+"_stats.csv", r.WriteStatsCSV); err != nil {
			return nil, err
		}
	}

	err := writeFile(filepath.Join(dir, "overview.csv"), func(w io.Writer) error {
		return report.WriteOverviewCSV(w, reports)
	})
	if err != nil {
		return nil, err
	}

	session, err := report.Merge(reports...)
	if err != nil {
		return nil, fmt.Errorf("failed to merge reports: %w", err)
	}
	sessionDir := filepath.Join(dir, SessionDir)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := writeFile(filepath.Join(sessionDir, session.ID+".json"), session.WriteJSON); err != nil {
		return nil, err
	}
	return session, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
