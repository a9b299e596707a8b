package batched

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sys/cpu"
)

// Tuning holds the empirically tuned parameters of the square heuristic.
// The defaults come from specific hardware generations and should be
// replaced rather than assumed to carry over to new hardware.
type Tuning struct {
	// Tile shape of the double-buffered kernel
	TileM, TileN, TileK int

	// Thread-group shape of the double-buffered kernel
	TeamSize, VecLen int

	// Alpha is folded into the fused multiply-add from this m up
	AlphaInFMAThreshold int

	// Size window in which the tiled kernel beats the reference kernel
	LeftMinM     int
	RightBandMin int
	RightBandMax int
	RightMinM    int
}

// DefaultTuning returns the stock tuning. Register-constrained targets get
// a deeper k-slice and a lower alpha-in-FMA threshold.
func DefaultTuning(registerConstrained bool) Tuning {
	t := Tuning{
		TileM:               DblBufTileM,
		TileN:               DblBufTileN,
		TileK:               DblBufTileK,
		TeamSize:            DblBufTeamSize,
		VecLen:              DblBufVecLen,
		AlphaInFMAThreshold: AlphaInFMAThreshold,
		LeftMinM:            LayoutLeftMinM,
		RightBandMin:        LayoutRightBandMin,
		RightBandMax:        LayoutRightBandMax,
		RightMinM:           LayoutRightMinM,
	}
	if registerConstrained {
		t.TileK = DblBufTileKConstrained
		t.AlphaInFMAThreshold = AlphaInFMAThresholdConstrained
	}
	return t
}

// TiledRange reports whether an m x m problem falls in the window where the
// tiled kernel outperforms the reference kernel.
func (t Tuning) TiledRange(layout Layout, m int) bool {
	if layout == LayoutLeft {
		return m >= t.LeftMinM
	}
	return (m >= t.RightBandMin && m <= t.RightBandMax) || m >= t.RightMinM
}

// Target describes the capabilities of an execution target.
type Target struct {
	Name string

	// GPULike targets launch wide thread teams with block-local scratch
	GPULike bool

	// Host CPU families the heuristic distinguishes
	X86_64 bool
	A64FX  bool

	// LaneWidth is the number of float64 lanes in one SIMD register
	LaneWidth int

	// MaxTeamSize bounds the threads of one team
	MaxTeamSize int

	// RegisterConstrained builds get smaller per-thread register blocks
	RegisterConstrained bool

	// Workers bounds concurrently executing teams. Zero means GOMAXPROCS.
	Workers int

	Tuning Tuning
}

func (t *Target) String() string {
	var flags []string
	if t.GPULike {
		flags = append(flags, "gpu")
	}
	if t.X86_64 {
		flags = append(flags, "x86_64")
	}
	if t.A64FX {
		flags = append(flags, "a64fx")
	}
	if t.RegisterConstrained {
		flags = append(flags, "register-constrained")
	}
	return fmt.Sprintf("%s [%s] lanes=%d max_team=%d",
		t.Name, strings.Join(flags, ","), t.LaneWidth, t.MaxTeamSize)
}

// DeviceTarget returns a GPU-like target: teams of up to MaxThreadsPerBlock
// threads sharing block-local scratch memory.
func DeviceTarget() *Target {
	return &Target{
		Name:        "device",
		GPULike:     true,
		LaneWidth:   1,
		MaxTeamSize: MaxThreadsPerBlock,
		Tuning:      DefaultTuning(false),
	}
}

// ConstrainedDeviceTarget returns a GPU-like target built with fewer
// registers per thread.
func ConstrainedDeviceTarget() *Target {
	t := DeviceTarget()
	t.Name = "device-constrained"
	t.RegisterConstrained = true
	t.Tuning = DefaultTuning(true)
	return t
}

// HostTarget returns a CPU target with the given capabilities. Host teams
// are a single thread.
func HostTarget(name string, x86 bool, a64fx bool, laneWidth int) *Target {
	return &Target{
		Name:        name,
		X86_64:      x86,
		A64FX:       a64fx,
		LaneWidth:   laneWidth,
		MaxTeamSize: 1,
		Tuning:      DefaultTuning(false),
	}
}

// DetectTarget describes the host CPU.
func DetectTarget() *Target {
	switch runtime.GOARCH {
	case "amd64":
		return HostTarget("host-amd64", true, false, x86LaneWidth())
	case "arm64":
		// SVE-class cores (A64FX) prefer the unblocked serial kernel.
		if cpu.ARM64.HasSVE {
			return HostTarget("host-arm64-sve", false, true, 8)
		}
		return HostTarget("host-arm64", false, false, 2)
	default:
		return HostTarget("host-"+runtime.GOARCH, false, false, 1)
	}
}

func x86LaneWidth() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 8
	case cpu.X86.HasAVX2 || cpu.X86.HasAVX:
		return 4
	case cpu.X86.HasSSE2:
		return 2
	default:
		return 1
	}
}

var (
	defaultTarget     *Target
	defaultTargetOnce sync.Once
)

// DefaultTarget returns the detected host target. Detection runs once.
func DefaultTarget() *Target {
	defaultTargetOnce.Do(func() {
		defaultTarget = DetectTarget()
	})
	return defaultTarget
}

// TargetByName returns a preset target: "device", "device-constrained",
// "x86_64", "a64fx", "generic" or "host" (detected).
func TargetByName(name string) (*Target, error) {
	switch name {
	case "device":
		return DeviceTarget(), nil
	case "device-constrained":
		return ConstrainedDeviceTarget(), nil
	case "x86_64":
		return HostTarget("x86_64", true, false, 4), nil
	case "a64fx":
		return HostTarget("a64fx", false, true, 8), nil
	case "generic":
		return HostTarget("generic", false, false, 1), nil
	case "host", "":
		return DefaultTarget(), nil
	default:
		return nil, NewInvalidArgError("TargetByName", fmt.Sprintf("unknown target %q", name))
	}
}
