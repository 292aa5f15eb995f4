package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-hebench/archive"
	"github.com/nvr-ai/go-hebench/benchmark"
	"github.com/nvr-ai/go-hebench/report"
	"github.com/nvr-ai/go-hebench/timing"
	"github.com/nvr-ai/go-hebench/util"
)

var (
	configFile  string
	backendPath string
	outputDir   string
	archiveDir  string
	metricsFile string
	timeUnit    string
	noValidate  bool

	compileOutput  string
	compileArchive string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the benchmarks of a run set and write their reports",
		Args:  cobra.NoArgs,
		RunE:  runBenchmarks,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the benchmarks a backend offers",
		Args:  cobra.NoArgs,
		RunE:  listBenchmarks,
	}

	compileCmd = &cobra.Command{
		Use:   "compile [report files or directories...]",
		Short: "Merge saved reports into CSV summaries and a session",
		RunE:  compileReports,
	}

	treeCmd = &cobra.Command{
		Use:   "tree [report file]",
		Short: "Print the event type hierarchy of a report",
		Args:  cobra.ExactArgs(1),
		RunE:  printTree,
	}
)

func runBenchmarks(cmd *cobra.Command, args []string) error {
	set := benchmark.DefaultRunSet()
	if configFile != "" {
		var err error
		if set, err = benchmark.LoadRunSet(configFile); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("backend") {
		set.Backend = backendPath
	}
	if cmd.Flags().Changed("output") || set.OutputDir == "" {
		set.OutputDir = outputDir
	}
	if noValidate {
		set.Config.ValidateResults = false
	}
	if timeUnit != "" {
		set.Config.TimeUnit = timeUnit
	}

	metrics := benchmark.NewMetrics(nil)
	engine := benchmark.NewEngine(benchmark.EngineArgs{
		Registry: newRegistry(),
		Metrics:  metrics,
		Logger:   logger,
	})
	if err := engine.Open(set.Backend); err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("failed to unload backend", "error", err)
		}
	}()

	var store *archive.Archive
	if archiveDir != "" {
		var err error
		if store, err = archive.Open(archiveDir); err != nil {
			return err
		}
		defer store.Close()
	}

	suite := benchmark.NewSuite(benchmark.SuiteArgs{
		Engine:    engine,
		OutputDir: set.OutputDir,
		Config:    set.Config,
		Archive:   store,
		Logger:    logger,
	})
	suite.AddRunSet(set)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting run set", "name", set.Name, "backend", set.Backend, "runs", len(set.Runs))
	failed, runErr := suite.RunAll(ctx)

	session, err := suite.SaveResults()
	if err != nil {
		return err
	}
	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	results := suite.Results()
	printSummary(cmd.OutOrStdout(), results)
	if session != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\nResults saved to: %s (session %s)\n", set.OutputDir, session.ID)
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(set.Runs))
	}
	return nil
}

func printSummary(w io.Writer, results []*report.Report) {
	fmt.Fprintf(w, "\n=== BENCHMARK RESULTS SUMMARY ===\n")
	fmt.Fprintf(w, "Completed runs: %d\n", len(results))
	for _, r := range results {
		op, ok := r.Main()
		if !ok {
			continue
		}
		v := r.Validation()
		status := "skipped"
		if v.Enabled {
			status = fmt.Sprintf("%d/%d failed", v.Failed, v.Checked)
		}
		fmt.Fprintf(w, "  %s\n    %.6f ms/op (%.2f ops/s), validation %s\n",
			r.Header().Title(),
			op.Stats.Wall.Ave*1e3,
			op.Stats.Wall.OpsPerSec,
			status)
	}
}

func listBenchmarks(cmd *cobra.Command, args []string) error {
	engine := benchmark.NewEngine(benchmark.EngineArgs{Registry: newRegistry(), Logger: logger})
	if err := engine.Open(backendPath); err != nil {
		return err
	}
	defer engine.Close()

	out := cmd.OutOrStdout()
	descs := engine.Descriptors()
	fmt.Fprintf(out, "%s offers %d benchmarks\n", engine.Backend(), len(descs))
	for i, d := range descs {
		fmt.Fprintf(out, "%3d. %s\n", i, describe(d, engine.Defaults(d)))
	}
	return nil
}

func compileReports(cmd *cobra.Command, args []string) error {
	if compileOutput == "" {
		return fmt.Errorf("--output is required")
	}

	var reports []*report.Report
	seen := make(map[string]bool)
	add := func(r *report.Report) {
		if seen[r.RunID()] {
			return
		}
		seen[r.RunID()] = true
		reports = append(reports, r)
	}

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			files, err := util.LoadReportFiles(path)
			if err != nil {
				return err
			}
			for _, f := range files {
				add(f.Report)
			}
			continue
		}
		r, err := util.LoadReportFile(path)
		if err != nil {
			return err
		}
		add(r)
	}

	if compileArchive != "" {
		store, err := archive.Open(compileArchive)
		if err != nil {
			return err
		}
		defer store.Close()
		archived, err := store.List()
		if err != nil {
			return err
		}
		for _, r := range archived {
			add(r)
		}
	}

	if len(reports) == 0 {
		return fmt.Errorf("no reports found")
	}
	session, err := benchmark.WriteReports(compileOutput, reports)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Compiled %d reports into %s (session %s)\n", len(reports), compileOutput, session.ID)
	return nil
}

func printTree(cmd *cobra.Command, args []string) error {
	r, err := util.LoadReportFile(args[0])
	if err != nil {
		return err
	}
	var names []string
	for _, t := range timing.Types(r.Events()) {
		names = append(names, t.Name)
	}
	fmt.Fprint(cmd.OutOrStdout(), timing.Tree(r.Header().Title(), names))
	return nil
}

func init() {
	runCmd.Flags().StringVar(&configFile, "config", "", "Run set file (YAML or JSON); the builtin quick set when empty")
	runCmd.Flags().StringVar(&backendPath, "backend", "builtin:cleartext", "Backend module, overriding the run set")
	runCmd.Flags().StringVar(&outputDir, "output", "./benchmark_results", "Output directory for reports")
	runCmd.Flags().StringVar(&archiveDir, "archive", "", "Report archive directory")
	runCmd.Flags().StringVar(&metricsFile, "metrics", "", "Write Prometheus metrics to this textfile")
	runCmd.Flags().StringVar(&timeUnit, "time-unit", "", "Report time unit: s, ms, us or ns")
	runCmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip result validation")

	listCmd.Flags().StringVar(&backendPath, "backend", "builtin:cleartext", "Backend module")

	compileCmd.Flags().StringVar(&compileArchive, "archive", "", "Include every report of this archive")
	compileCmd.Flags().StringVar(&compileOutput, "output", "", "Output directory for the compiled reports")
}
