package main

import (
	"log/slog"

	"github.com/klauspost/cpuid/v2"
)

// defaultWorkers is the accumulation parallelism when the config leaves
// it unset.
func defaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return 1
}

func logCPU(log *slog.Logger) {
	log.Info("cpu",
		"brand", cpuid.CPU.BrandName,
		"physical", cpuid.CPU.PhysicalCores,
		"logical", cpuid.CPU.LogicalCores,
		"avx2", cpuid.CPU.Supports(cpuid.AVX2),
	)
}
