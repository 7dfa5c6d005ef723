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

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const (
	magicBytes    = "CRBL"
	containerVersion = 1
	headerSize    = 20
)

const (
	sectionType = iota
	sectionImport
	sectionFunc
	sectionMemory
	sectionGlobal
	sectionExport
	sectionCode
	sectionData
)

const (
	maxParams   = 16
	maxFuncs    = 1 << 20
	maxRegs     = 256
)

// Module is a validated, read-only parsed container produced from bytecode
// bytes (spec.md GLOSSARY). It owns the raw byte buffer so that code slices
// handed out to frames remain valid for the module's entire lifetime,
// following epsilon/module.go's owning-buffer design.
type Module struct {
	raw []byte

	Types   []FunctionType
	Imports []Import
	Funcs   []function
	Memory  memoryLimits
	HasMemory bool
	Globals []Global
	Exports []Export
	Data    []DataSegment

	// InitFunc is the unified function index of the export named "_init",
	// or -1 if the module declares none.
	InitFunc int

	exportsByName map[string]Export

	id          uuid.UUID
	contentHash uint64
	refs        int32
}

// ID is a process-local, per-load identity for this Module — distinct from
// ContentHash, which is stable across repeated loads of identical bytes.
func (m *Module) ID() uuid.UUID { return m.id }

// ContentHash is an xxhash64 digest of the module's raw bytes, useful for an
// embedder's module cache keyed by content rather than load identity.
func (m *Module) ContentHash() uint64 { return m.contentHash }

// Export looks up a module-level export by name.
func (m *Module) Export(name string) (Export, bool) {
	e, ok := m.exportsByName[name]
	return e, ok
}

// NumFunctions returns the size of the unified function index space
// (imports followed by bodies).
func (m *Module) NumFunctions() int { return len(m.Funcs) }

// Free asserts that no VM still references this Module, per spec.md §4.5
// ("module_free: invalid if any VM still references the module"). Go's
// garbage collector reclaims the underlying memory regardless of whether
// Free is ever called; this method exists so a host that wants the same
// deterministic teardown check the opaque-handle ABI offers can get it.
func (m *Module) Free() error {
	if n := atomic.LoadInt32(&m.refs); n > 0 {
		return fmt.Errorf("module_free: %d VM(s) still reference this module", n)
	}
	return nil
}

func newModule(raw []byte) *Module {
	return &Module{
		raw:         raw,
		InitFunc:    -1,
		id:          uuid.New(),
		contentHash: xxhash.Sum64(raw),
	}
}

func (m *Module) finalize() {
	m.exportsByName = make(map[string]Export, len(m.Exports))
	for _, e := range m.Exports {
		m.exportsByName[e.Name] = e
		if e.Kind == ExportFunc && e.Name == "_init" {
			m.InitFunc = int(e.Idx)
		}
	}
}
