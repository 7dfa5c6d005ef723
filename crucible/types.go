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

// FunctionType is a signature: parameter kinds plus a single result kind
// (KindVoid for no result). Grounded on epsilon/types.go's ValueType vector
// signatures, collapsed to Crucible's single-result calling convention.
type FunctionType struct {
	Params []ValueKind
	Result ValueKind
}

// ImportKind tags what an Import entry binds to. Crucible only ever imports
// functions, per spec.md §4.1/§4.5, but the type exists for symmetry with
// ExportKind and future growth.
type ImportKind byte

const (
	ImportFunc ImportKind = iota
)

// ExportKind tags what an Export entry refers to.
type ExportKind byte

const (
	ExportFunc ExportKind = iota
	ExportGlobal
	ExportMemory
)

func (k ExportKind) String() string {
	switch k {
	case ExportFunc:
		return "func"
	case ExportGlobal:
		return "global"
	case ExportMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Import is an unresolved external dependency a module declares.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
	Kind    ImportKind
}

// function is one entry in the unified function index space: imports occupy
// the low indices, module-defined bodies follow, mirroring epsilon's
// import-then-local function numbering in epsilon/instance.go.
type function struct {
	TypeIdx   uint32
	IsImport  bool
	ImportIdx int    // index into Module.Imports, valid iff IsImport
	Code      []byte // raw word-aligned instruction stream, valid iff !IsImport
	RegCount  int    // size of the register window this body expects, <=256
	NumLocals int     // register slots beyond the parameters the body expects to use
}

// Global describes one mutable or immutable module-level storage slot and
// its initial value.
type Global struct {
	Kind    ValueKind
	Mutable bool
	Init    Value
}

// memoryLimits carries the module-declared initial/maximum page counts.
// Crucible supports at most one memory per module (spec.md §4.4).
type memoryLimits struct {
	InitialPages uint32
	MaxPages     uint32
}

// DataSegment is a byte-copy applied once at instantiation into linear
// memory at a fixed offset (spec.md GLOSSARY).
type DataSegment struct {
	MemIdx uint8
	Offset uint32
	Bytes  []byte
}

// Export is a named, publicly reachable module member.
type Export struct {
	Name string
	Kind ExportKind
	Idx  uint32
}
