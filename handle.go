package batched

import (
	"fmt"
	"log"
)

// Algo identifies a batched GEMM algorithm.
type Algo int

const (
	// Reference kernels
	AlgoSerial Algo = iota
	AlgoSerialRank0
	AlgoSerialShmem
	AlgoTeam
	AlgoTeamVector
	AlgoSerialSIMD
	AlgoTeamSIMD
	AlgoDblBuf

	// Heuristics
	AlgoSquare
	AlgoTall
	AlgoWide

	// Vendor libraries
	AlgoVendor
	AlgoMKL
	AlgoCuBLAS
	AlgoMAGMA
)

var algoNames = map[Algo]string{
	AlgoSerial:      "SERIAL",
	AlgoSerialRank0: "SERIAL_RANK0",
	AlgoSerialShmem: "SERIAL_SHMEM",
	AlgoTeam:        "TEAM",
	AlgoTeamVector:  "TEAMVECTOR",
	AlgoSerialSIMD:  "SERIALSIMD",
	AlgoTeamSIMD:    "TEAMSIMD",
	AlgoDblBuf:      "DBLBUF",
	AlgoSquare:      "SQUARE",
	AlgoTall:        "TALL",
	AlgoWide:        "WIDE",
	AlgoVendor:      "VENDOR",
	AlgoMKL:         "MKL",
	AlgoCuBLAS:      "CUBLAS",
	AlgoMAGMA:       "MAGMA",
}

func (a Algo) String() string {
	if name, ok := algoNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Algo(%d)", int(a))
}

// ParseAlgo returns the algorithm with the given name.
func ParseAlgo(name string) (Algo, error) {
	for a, n := range algoNames {
		if n == name {
			return a, nil
		}
	}
	return 0, NewInvalidArgError("ParseAlgo", fmt.Sprintf("unknown algorithm %q", name))
}

// AlgoNames returns the names of every known algorithm identifier.
func AlgoNames() map[Algo]string {
	names := make(map[Algo]string, len(algoNames))
	for a, n := range algoNames {
		names[a] = n
	}
	return names
}

// VendorParams are side parameters for the vendor-library path.
type VendorParams struct {
	// Interleave is the number of matrices handed to the library per task.
	// It must divide the batch count. Zero means DefaultInterleave.
	Interleave int
}

// Handle specifies how to invoke a batched GEMM. It owns no matrix data and
// is not retained by the kernels.
type Handle struct {
	Algo Algo

	// Debug logs the derived tuning decisions. It never changes which
	// kernel runs.
	Debug  bool
	Logger *log.Logger

	// Target overrides the detected execution target.
	Target *Target

	// TeamSize and VecLen report the thread-group shape of the last tiled
	// plan Select accepted. The kernel takes its shape from the Plan.
	TeamSize int
	VecLen   int

	Vendor *VendorParams
}

// NewHandle returns a handle requesting algo.
func NewHandle(algo Algo) *Handle {
	return &Handle{Algo: algo}
}

func (h *Handle) target() *Target {
	if h.Target != nil {
		return h.Target
	}
	return DefaultTarget()
}

func (h *Handle) interleave() int {
	if h.Vendor == nil || h.Vendor.Interleave == 0 {
		return DefaultInterleave
	}
	return h.Vendor.Interleave
}

func (h *Handle) debugf(format string, args ...interface{}) {
	if !h.Debug {
		return
	}
	logger := h.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
