package main

import (
	"fmt"
	"log"

	"github.com/nvr-ai/go-hebench/api"
	"github.com/nvr-ai/go-hebench/benchmark"
	"github.com/nvr-ai/go-hebench/providers/ckks"
)

// Example program to create and save benchmark run sets
func main() {
	quick := benchmark.DefaultRunSet()
	if err := benchmark.SaveRunSet(quick, "quick_runs.yaml"); err != nil {
		log.Fatalf("Failed to save quick runs: %v", err)
	}
	fmt.Printf("Saved %d quick runs\n", len(quick.Runs))

	encrypted := benchmark.NewRunBuilder("").
		WithScheme(api.SchemeCKKS, ckks.Security).
		WithCipherMask(1)
	for _, w := range []api.Workload{api.WorkloadEltwiseAdd, api.WorkloadEltwiseMultiply, api.WorkloadDotProduct} {
		sweep := benchmark.VectorSweep("builtin:ckks", encrypted, w, 64, 512, 4096)
		filename := fmt.Sprintf("ckks_%s_runs.yaml", w)
		if err := benchmark.SaveRunSet(sweep, filename); err != nil {
			log.Fatalf("Failed to save %s sweep: %v", w, err)
		}
		fmt.Printf("Saved %d %s runs\n", len(sweep.Runs), w)
	}

	custom := &benchmark.RunSet{
		Name:        "Custom matrix product",
		Description: "Offline 64x64 float32 matrix products with both operands encrypted",
		Backend:     "builtin:cleartext",
		Config:      benchmark.RunConfig{ValidateResults: true, TimeUnit: "us"},
		Runs: []benchmark.RunRequest{
			benchmark.NewRunBuilder("matmul-64").
				WithWorkload(api.WorkloadMatrixMultiply, 64, 64, 64).
				WithDataType(api.DataTypeFloat32).
				WithCipherMask(3).
				Offline(16).
				Build(),
		},
	}
	if err := benchmark.SaveRunSet(custom, "custom_runs.json"); err != nil {
		log.Fatalf("Failed to save custom runs: %v", err)
	}
	fmt.Printf("Saved %d custom runs\n", len(custom.Runs))

	fmt.Println("All run set files created successfully!")
}
