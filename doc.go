// Copyright ©2019 The Gonum Authors. All rights reserved.
// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package batched computes many small independent matrix products
//
//	C[b] = alpha*op(A[b])*op(B[b]) + beta*C[b]
//
// as one batched operation.
//
// A Handle names the requested algorithm. Gemm validates the views
// (Analyze), picks a kernel and its parameters (Select) and runs it:
//   - the serial reference kernels, one work item per element, row or matrix
//   - the double-buffered tiled kernel, where a team of threads computes one
//     tile of C while staging the next slices of A and B through team scratch
//   - gonum's BLAS for float32 and float64 scalars
//
// The SQUARE heuristic chooses between the reference and tiled kernels from
// the matrix size, the memory layout and the execution Target. Its
// thresholds live in Tuning and should be re-tuned for new hardware.
//
// Views pair LayoutLeft (column-major) with BatchRight and LayoutRight
// (row-major) with BatchLeft, so each matrix of the batch is contiguous.
// Vector views carry a trailing lane axis; each lane is an independent
// problem.
//
// Every failure is detected before C is written. Status converts an error
// into a status code, zero meaning success.
package batched
