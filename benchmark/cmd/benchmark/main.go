package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/providers/ckks"
	"github.com/nvr-ai/go-hebench/providers/cleartext"
	"github.com/nvr-ai/go-hebench/registry"
)

var (
	logFormat string
	logLevel  string
	logger    *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "benchmark",
		Short: "Benchmark homomorphic encryption backends",
		Long: `benchmark loads an HE backend module, runs its workloads under the latency
or offline protocol, validates the results and writes timing reports.

Backends are builtin (builtin:cleartext, builtin:ckks) or Go plugins exporting
NewBackend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logFormat, logLevel)
			if err != nil {
				return err
			}
			logger = l
			slog.SetDefault(l)
			return nil
		},
	}
)

// builtins are the backends compiled into the binary.
var builtins = registry.Builtins{
	cleartext.Name: cleartext.New,
	ckks.Name:      ckks.New,
}

func newLogger(format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q, want text or json", format)
	}
}

// newRegistry returns a registry that opens builtin and plugin backends.
func newRegistry() *registry.Registry {
	return registry.New(
		registry.MultiOpener{Builtin: builtins, Plugin: registry.PluginOpener{}},
		registry.WithLogger(logger),
	)
}

func describe(d api.BenchmarkDescriptor, defaults []api.WorkloadParams) string {
	var b strings.Builder
	b.WriteString(d.String())
	for _, p := range defaults {
		fmt.Fprintf(&b, "\n    default: %s", p)
	}
	return b.String()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd, listCmd, compileCmd, treeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
