// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command batchgemm runs and times batched GEMM with a chosen algorithm and
// execution target.
//
// Usage:
//
//	batchgemm run --m 32 --n 32 --k 32 --batch 1024 --algo SQUARE --target device --verify
//	batchgemm algos
//	batchgemm target
//	batchgemm version
package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/LynnColeArt/batched"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "batchgemm",
		Short:        "Run batched GEMM kernels",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newAlgosCmd(), newTargetCmd(), newVersionCmd())
	return root
}

// transFlag parses N, T or C.
type transFlag struct {
	t batched.Trans
}

var _ pflag.Value = (*transFlag)(nil)

func (f *transFlag) String() string {
	switch f.t {
	case batched.Transpose:
		return "T"
	case batched.ConjTranspose:
		return "C"
	default:
		return "N"
	}
}

func (f *transFlag) Set(s string) error {
	switch strings.ToUpper(s) {
	case "N":
		f.t = batched.NoTranspose
	case "T":
		f.t = batched.Transpose
	case "C":
		f.t = batched.ConjTranspose
	default:
		return errors.Errorf("transpose must be N, T or C, got %q", s)
	}
	return nil
}

func (f *transFlag) Type() string { return "trans" }

// layoutFlag parses left or right.
type layoutFlag struct {
	l batched.Layout
}

var _ pflag.Value = (*layoutFlag)(nil)

func (f *layoutFlag) String() string {
	if f.l == batched.LayoutLeft {
		return "left"
	}
	return "right"
}

func (f *layoutFlag) Set(s string) error {
	switch strings.ToLower(s) {
	case "left":
		f.l = batched.LayoutLeft
	case "right":
		f.l = batched.LayoutRight
	default:
		return errors.Errorf("layout must be left or right, got %q", s)
	}
	return nil
}

func (f *layoutFlag) Type() string { return "layout" }

func newRunCmd() *cobra.Command {
	opts := runOptions{
		m: 32, n: 32, k: 32,
		batch:  256,
		lanes:  1,
		algo:   "SQUARE",
		dtype:  "float64",
		target: "host",
		alpha:  1,
		beta:   0,
		iters:  10,
		layout: layoutFlag{l: batched.LayoutRight},
	}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batched GEMM configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(cmd.ErrOrStderr(), "batchgemm: ", 0)
			switch opts.dtype {
			case "float64":
				return run[float64](cmd, opts, logger)
			case "float32":
				return run[float32](cmd, opts, logger)
			default:
				return errors.Errorf("unknown dtype %q (float32, float64)", opts.dtype)
			}
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&opts.m, "m", opts.m, "rows of C")
	fs.IntVar(&opts.n, "n", opts.n, "columns of C")
	fs.IntVar(&opts.k, "k", opts.k, "inner dimension")
	fs.IntVar(&opts.batch, "batch", opts.batch, "number of matrices")
	fs.IntVar(&opts.lanes, "lanes", opts.lanes, "vector lanes per element")
	fs.StringVar(&opts.algo, "algo", opts.algo, "algorithm identifier (see 'batchgemm algos')")
	fs.Var(&opts.layout, "layout", "memory layout: left (column-major) or right (row-major)")
	fs.Var(&opts.transA, "trans-a", "op(A): N, T or C")
	fs.Var(&opts.transB, "trans-b", "op(B): N, T or C")
	fs.StringVar(&opts.dtype, "dtype", opts.dtype, "element type: float32 or float64")
	fs.StringVar(&opts.target, "target", opts.target, "execution target: "+strings.Join(targetNames, ", "))
	fs.Float64Var(&opts.alpha, "alpha", opts.alpha, "alpha")
	fs.Float64Var(&opts.beta, "beta", opts.beta, "beta")
	fs.IntVar(&opts.iters, "iters", opts.iters, "timed iterations")
	fs.IntVar(&opts.interleave, "interleave", 0, "matrices per vendor task (0 for the default)")
	fs.IntVar(&opts.workers, "workers", 0, "concurrent teams (0 for GOMAXPROCS)")
	fs.BoolVar(&opts.verify, "verify", false, "check the result against the reference GEMM")
	fs.BoolVar(&opts.debug, "debug", false, "log the dispatcher's decisions")
	return cmd
}

var targetNames = []string{"host", "device", "device-constrained", "x86_64", "a64fx", "generic"}

func newAlgosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algos",
		Short: "List algorithm identifiers and whether the dispatcher runs them",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := batched.AlgoNames()
			algos := lo.Keys(names)
			sort.Slice(algos, func(i, j int) bool { return algos[i] < algos[j] })

			probe := batched.Problem{
				M: 32, N: 32, K: 32, Batch: 1, Lanes: 1,
				Layout:      batched.LayoutRight,
				BatchLayout: batched.BatchLeft,
				ElemType:    "float64",
			}
			rows := lo.Map(algos, func(a batched.Algo, _ int) string {
				status := "supported"
				if _, err := batched.Select(batched.NewHandle(a), probe, batched.DeviceTarget()); err != nil {
					status = "unsupported"
				}
				return fmt.Sprintf("%-14s %s", names[a], status)
			})
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(rows, "\n"))
			return nil
		},
	}
}

func newTargetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "target [name...]",
		Short: "Describe the detected host or the named targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"host"}
			}
			for _, name := range lo.Uniq(args) {
				t, err := batched.TargetByName(name)
				if err != nil {
					return err
				}
				tu := t.Tuning
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n  tile %dx%dx%d team %dx%d alpha-in-fma m>=%d\n",
					t, tu.TileM, tu.TileN, tu.TileK, tu.TeamSize, tu.VecLen, tu.AlphaInFMAThreshold)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the batched module version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, sum := batched.Version()
			if version == "" {
				version = "unknown"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batchgemm %s %s/%s %s\n",
				version, runtime.GOOS, runtime.GOARCH, runtime.Version())
			if sum != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "sum %s\n", sum)
			}
			return nil
		},
	}
}
