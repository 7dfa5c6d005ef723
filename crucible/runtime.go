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

// Package crucible is an embeddable plugin runtime: it loads a compact
// bytecode container, validates it, and executes its exported functions in
// a register-based interpreter behind a bounded linear-memory sandbox.
package crucible

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Runtime is a container-of-modules handle. It carries no state beyond
// lifetime bookkeeping; modules it loads are independent of one another and
// of any other Runtime.
type Runtime struct {
	logger *zap.Logger
}

// NewRuntime creates a Runtime. Its Free method is a no-op: Go's garbage
// collector reclaims a Runtime once it becomes unreachable, so Free exists
// for parity with the embedding operations spec.md §4.5 enumerates rather
// than out of a manual-memory necessity.
func NewRuntime() *Runtime {
	return &Runtime{logger: Logger()}
}

// Free is a lifetime-bookkeeping no-op: a Runtime carries no state the
// caller must explicitly release (spec.md §4.5).
func (rt *Runtime) Free() error { return nil }

// LoadModule parses and validates bytecode bytes into a Module. It copies
// the input so the caller's buffer may be reused or modified afterward, and
// never executes guest code.
func (rt *Runtime) LoadModule(data []byte) (*Module, error) {
	owned := make([]byte, len(data))
	copy(owned, data)

	m, f := parseModule(owned)
	if f != nil {
		rt.logger.Warn("module load failed", zap.String("status", f.Status.String()), zap.String("detail", f.Message))
		return nil, f
	}
	rt.logger.Info("module loaded",
		zap.String("id", m.ID().String()),
		zap.Uint64("content_hash", m.ContentHash()),
		zap.Int("functions", len(m.Funcs)),
		zap.Int("exports", len(m.Exports)),
	)
	return m, nil
}

// NewVM allocates a VM bound to m: its frame array and host table, sized
// per cfg. Linear memory is not allocated until Init.
func (rt *Runtime) NewVM(m *Module, cfg Config) (*VM, error) {
	if cfg.Logger == nil {
		cfg.Logger = rt.logger
	}
	atomic.AddInt32(&m.refs, 1)
	return newVM(m, cfg), nil
}

// MemoryBase returns the live backing slice for the VM's linear memory.
// Per spec.md §5, the host must not retain this slice across a call to
// MemoryGrow, which reallocates the underlying buffer.
func (vm *VM) MemoryBase() ([]byte, error) {
	mem, f := vm.mustMemory()
	if f != nil {
		return nil, f
	}
	return mem.base(), nil
}

// MemorySize returns the current page count.
func (vm *VM) MemorySize() (uint32, error) {
	mem, f := vm.mustMemory()
	if f != nil {
		return 0, f
	}
	return mem.size(), nil
}

// MemoryGrow adds delta pages, returning the previous page count, or -1 if
// the request would exceed the module's max_pages.
func (vm *VM) MemoryGrow(delta uint32) (int64, error) {
	mem, f := vm.mustMemory()
	if f != nil {
		return 0, f
	}
	return mem.grow(delta), nil
}

// MemoryRead copies len(dst) bytes starting at off into dst.
func (vm *VM) MemoryRead(off uint32, dst []byte) error {
	mem, f := vm.mustMemory()
	if f != nil {
		return f
	}
	src, f := mem.read(off, uint32(len(dst)))
	if f != nil {
		return f
	}
	copy(dst, src)
	return nil
}

// MemoryWrite copies src into linear memory starting at off.
func (vm *VM) MemoryWrite(off uint32, src []byte) error {
	mem, f := vm.mustMemory()
	if f != nil {
		return f
	}
	return mem.write(off, src)
}

// ID identifies this VM's module for logging/correlation purposes.
func (vm *VM) ID() string { return vm.module.ID().String() }

// Free releases this VM's reference to its Module, per spec.md §4.5. It is
// idempotent: calling it more than once decrements the module's refcount
// only on the first call.
func (vm *VM) Free() error {
	if vm.freed {
		return nil
	}
	vm.freed = true
	atomic.AddInt32(&vm.module.refs, -1)
	return nil
}
