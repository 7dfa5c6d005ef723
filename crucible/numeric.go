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

import "math/bits"

// clz32/ctz32/popcnt32 and their 64-bit counterparts wrap math/bits, which
// already returns the width (32 or 64) for an all-zero input — exactly the
// behavior spec.md §4.2 mandates for CLZ/CTZ of zero, so no special-casing
// is required here.
func clz32(v uint32) uint32    { return uint32(bits.LeadingZeros32(v)) }
func ctz32(v uint32) uint32    { return uint32(bits.TrailingZeros32(v)) }
func popcnt32(v uint32) uint32 { return uint32(bits.OnesCount32(v)) }

func clz64(v uint64) uint64    { return uint64(bits.LeadingZeros64(v)) }
func ctz64(v uint64) uint64    { return uint64(bits.TrailingZeros64(v)) }
func popcnt64(v uint64) uint64 { return uint64(bits.OnesCount64(v)) }

// divS32/remS32 implement signed i32 division/remainder. Go's native "/"
// and "%" on int32 already wrap MinInt32/-1 to MinInt32 without panicking
// (two's-complement truncating division never produces an unrepresentable
// quotient in that one case), so the only explicit guard needed is the
// zero-divisor trap spec.md §4.2 requires.
func divS32(a, b int32) (int32, *Fault) {
	if b == 0 {
		return 0, fault(DIVZERO, "i32 division by zero")
	}
	return a / b, nil
}

func remS32(a, b int32) (int32, *Fault) {
	if b == 0 {
		return 0, fault(DIVZERO, "i32 remainder by zero")
	}
	return a % b, nil
}

func divU32(a, b uint32) (uint32, *Fault) {
	if b == 0 {
		return 0, fault(DIVZERO, "u32 division by zero")
	}
	return a / b, nil
}

func remU32(a, b uint32) (uint32, *Fault) {
	if b == 0 {
		return 0, fault(DIVZERO, "u32 remainder by zero")
	}
	return a % b, nil
}

func divS64(a, b int64) (int64, *Fault) {
	if b == 0 {
		return 0, fault(DIVZERO, "i64 division by zero")
	}
	return a / b, nil
}

func remS64(a, b int64) (int64, *Fault) {
	if b == 0 {
		return 0, fault(DIVZERO, "i64 remainder by zero")
	}
	return a % b, nil
}

func divU64(a, b uint64) (uint64, *Fault) {
	if b == 0 {
		return 0, fault(DIVZERO, "u64 division by zero")
	}
	return a / b, nil
}

func remU64(a, b uint64) (uint64, *Fault) {
	if b == 0 {
		return 0, fault(DIVZERO, "u64 remainder by zero")
	}
	return a % b, nil
}

// shiftAmount32/64 mask a shift count to the operand width, since Go (unlike
// the source this spec distills) does not auto-mask oversized shift counts
// of a native integer type.
func shiftAmount32(v uint32) uint { return uint(v & 31) }
func shiftAmount64(v uint64) uint { return uint(v & 63) }
