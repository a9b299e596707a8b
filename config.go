// Package batched configuration constants
package batched

// Double-buffered tile dimensions for device targets
const (
	// Rows of C (and A) in each tile
	DblBufTileM = 32

	// Columns of C (and B) in each tile
	DblBufTileN = 32

	// Depth of each staged slice of A and B
	DblBufTileK = 8

	// Depth on register-constrained targets
	DblBufTileKConstrained = 16
)

// Thread and block dimensions
const (
	// Team rows and vector length used by the square heuristic on device
	// targets
	DblBufTeamSize = 8
	DblBufVecLen   = 8

	// Maximum threads per block (CUDA compatibility)
	MaxThreadsPerBlock = 1024
)

// Heuristic thresholds for the square heuristic on device targets.
// These were tuned on specific hardware generations; override them through
// Tuning rather than treating them as invariants.
const (
	// Column-major problems take the tiled kernel from this size up
	LayoutLeftMinM = 16

	// Row-major problems take the tiled kernel inside [RightBandMin,
	// RightBandMax] and from RightMinM up
	LayoutRightBandMin = 24
	LayoutRightBandMax = 32
	LayoutRightMinM    = 40

	// Alpha moves into the fused multiply-add at this size
	AlphaInFMAThreshold = 64

	// Lower threshold for builds that are register-constrained
	AlphaInFMAThresholdConstrained = 24
)

// Reference kernel parameters
const (
	// Register block of the blocked serial micro-kernel
	SerialBlockM = 4
	SerialBlockN = 4

	// Interleave factor used by the vendor path when none is given
	DefaultInterleave = 1
)
