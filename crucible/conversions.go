// Copyright 2025 The Crucible Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crucible

import "math"

// saturateF64ToI32 truncates toward zero with saturation: NaN maps to 0,
// values above math.MaxInt32 clamp to MaxInt32, values below math.MinInt32
// clamp to MinInt32. This is spec.md §9's resolved Open Question — the
// source left float-to-int overflow behavior unspecified; determinism here
// is chosen over trapping.
func saturateF64ToI32(f float64) int32 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	switch {
	case t >= math.MaxInt32:
		return math.MaxInt32
	case t <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(t)
	}
}

func saturateF32ToI32(f float32) int32 {
	return saturateF64ToI32(float64(f))
}

// saturateF64ToI64 is the 64-bit counterpart. The upper/lower float bounds
// are not exactly representable as int64, so the comparison uses the
// nearest representable float64 boundary on each side, matching the
// conventional saturating-cast idiom.
func saturateF64ToI64(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	switch {
	case t >= 9223372036854775807.0:
		return math.MaxInt64
	case t <= -9223372036854775808.0:
		return math.MinInt64
	default:
		return int64(t)
	}
}

func signExtend32to64(v int32) int64  { return int64(v) }
func zeroExtend32to64(v uint32) int64 { return int64(uint64(v)) }
func truncate64to32(v int64) int32    { return int32(uint32(uint64(v))) }

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
