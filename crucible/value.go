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

// ValueKind tags the concrete type carried by a Value.
type ValueKind uint8

const (
	KindVoid ValueKind = iota
	KindI32
	KindI64
	KindF32
	KindF64
	KindBool
	// KindPtr is semantically a 32-bit offset into linear memory; on the
	// wire and in registers it is indistinguishable from KindI32.
	KindPtr
)

func (k ValueKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindBool:
		return "bool"
	case KindPtr:
		return "ptr"
	default:
		return "unknown"
	}
}

// Value is the tagged union every register, global, and argument slot holds.
// The 64-bit payload is reinterpreted according to Kind; the interpreter
// never cross-checks the tag against the opcode being executed (spec.md
// §4.4: structural validation only, no bytecode type-checker), so reading
// the "wrong" field of a Value produced by mismatched producer code yields
// undefined integer bits but can never escape the sandbox.
type Value struct {
	Kind ValueKind
	bits uint64
}

// Void is the zero Value, used as the result of calls with no return value.
var Void = Value{Kind: KindVoid}

func I32(v int32) Value { return Value{Kind: KindI32, bits: uint64(uint32(v))} }
func I64(v int64) Value { return Value{Kind: KindI64, bits: uint64(v)} }
func F32(v float32) Value {
	return Value{Kind: KindF32, bits: uint64(math.Float32bits(v))}
}
func F64(v float64) Value { return Value{Kind: KindF64, bits: math.Float64bits(v)} }
func Bool(v bool) Value {
	if v {
		return Value{Kind: KindBool, bits: 1}
	}
	return Value{Kind: KindBool, bits: 0}
}
func Ptr(v uint32) Value { return Value{Kind: KindPtr, bits: uint64(v)} }

func (v Value) I32() int32     { return int32(uint32(v.bits)) }
func (v Value) U32() uint32    { return uint32(v.bits) }
func (v Value) I64() int64     { return int64(v.bits) }
func (v Value) F32() float32   { return math.Float32frombits(uint32(v.bits)) }
func (v Value) F64() float64   { return math.Float64frombits(v.bits) }
func (v Value) Bool() bool     { return v.bits != 0 }
func (v Value) Ptr() uint32    { return uint32(v.bits) }
func (v Value) Bits() uint64   { return v.bits }
func (v Value) IsVoid() bool   { return v.Kind == KindVoid }

// isZero reports whether v is "falsy" for JZ/JNZ's numeric coercion rule:
// bool as !b, i32/i64 as ==0. Any other kind (f32/f64/ptr/void) coerces
// through its raw bit pattern being zero, which matches how a producer
// would stage a conditional computed as an integer in the first place.
func (v Value) isZero() bool {
	switch v.Kind {
	case KindBool:
		return !v.Bool()
	default:
		return v.bits == 0
	}
}

// defaultValueForType returns the zero Value of the given ValueKind, used to
// fill parameter registers a producer never staged via ARG (spec.md §9's
// Open Question: zero-initialized, not undefined, chosen for determinism).
func defaultValueForType(k ValueKind) Value {
	switch k {
	case KindI32:
		return I32(0)
	case KindI64:
		return I64(0)
	case KindF32:
		return F32(0)
	case KindF64:
		return F64(0)
	case KindBool:
		return Bool(false)
	case KindPtr:
		return Ptr(0)
	default:
		return Void
	}
}
