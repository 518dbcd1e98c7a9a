// Package device reports host compute capabilities.
package device

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Info describes the CPU the training loop runs on.
type Info struct {
	Brand        string
	LogicalCores int
	Vector       string
}

// Detect probes the host CPU once per call.
func Detect() Info {
	return Info{
		Brand:        cpuid.CPU.BrandName,
		LogicalCores: cpuid.CPU.LogicalCores,
		Vector:       widestVector(),
	}
}

func widestVector() string {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ):
		return "avx512"
	case cpuid.CPU.Supports(cpuid.AVX2):
		return "avx2"
	case cpuid.CPU.Supports(cpuid.AVX):
		return "avx"
	case cpuid.CPU.Supports(cpuid.SSE4):
		return "sse4"
	case cpuid.CPU.Supports(cpuid.ASIMD):
		return "neon"
	default:
		return "scalar"
	}
}

func (i Info) String() string {
	brand := i.Brand
	if brand == "" {
		brand = runtime.GOARCH
	}
	return fmt.Sprintf("%s (%d cores, %s)", brand, i.LogicalCores, i.Vector)
}
