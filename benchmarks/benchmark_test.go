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

// Package benchmarks holds perf tests for the interpreter's call overhead
// and a tight arithmetic loop, grounded on the teacher's own
// build-module-once/loop-b.N shape (benchmarks/benchmark_test.go), adapted
// from WASM fixture files to Crucible's hand-assembled bytecode, since the
// bytecode assembler is an external collaborator (spec.md §1).
package benchmarks

import (
	"testing"

	"github.com/crucible-run/crucible/crucible"
)

func mustVM(tb testing.TB, raw []byte) *crucible.VM {
	tb.Helper()
	rt := crucible.NewRuntime()
	m, err := rt.LoadModule(raw)
	if err != nil {
		tb.Fatalf("LoadModule: %v", err)
	}
	vm, err := rt.NewVM(m, crucible.DefaultConfig())
	if err != nil {
		tb.Fatalf("NewVM: %v", err)
	}
	if err := vm.Init(); err != nil {
		tb.Fatalf("Init: %v", err)
	}
	return vm
}

// BenchmarkAddCallOverhead measures the cost of one exported-function call:
// frame push, argument staging, one ADD32, RET, frame pop.
func BenchmarkAddCallOverhead(b *testing.B) {
	vm := mustVM(b, buildAddModule())
	args := []crucible.Value{crucible.I32(17), crucible.I32(25)}
	for i := 0; i < b.N; i++ {
		if _, err := vm.Call("add", args); err != nil {
			b.Fatalf("add: %v", err)
		}
	}
}

// BenchmarkFactorialIterative measures a tight single-frame loop: JZ/JMP
// branch dispatch plus MUL32/SUB32 on every iteration, no call overhead.
func BenchmarkFactorialIterative(b *testing.B) {
	vm := mustVM(b, buildFactorialIterativeModule())
	args := []crucible.Value{crucible.I32(25)}
	for i := 0; i < b.N; i++ {
		if _, err := vm.Call("fac_iterative", args); err != nil {
			b.Fatalf("fac_iterative: %v", err)
		}
	}
}
