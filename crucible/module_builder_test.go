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
	"bytes"
	"encoding/binary"
)

// The bytecode assembler is an out-of-scope external collaborator (spec.md
// §1), so tests hand-assemble tiny containers directly, the same way
// epsilon/runtime_test.go hand-built WASM fixtures before wabt.Wat2Wasm
// existed as a shortcut — here there is no such shortcut, so the builder
// below is the only path.
type testModuleBuilder struct {
	types   []FunctionType
	imports []Import
	funcs   []testFuncDef
	mem     *memoryLimits
	globals []Global
	exports []Export
	data    []DataSegment
}

type testFuncDef struct {
	typeIdx  uint16
	regCount byte
	code     []uint32
}

func newTestModule() *testModuleBuilder { return &testModuleBuilder{} }

func (b *testModuleBuilder) addType(params []ValueKind, result ValueKind) uint16 {
	b.types = append(b.types, FunctionType{Params: params, Result: result})
	return uint16(len(b.types) - 1)
}

func (b *testModuleBuilder) addImport(module, name string, typeIdx uint16) uint32 {
	b.imports = append(b.imports, Import{Module: module, Name: name, TypeIdx: uint32(typeIdx)})
	return uint32(len(b.imports) - 1)
}

// addFunc appends a body and returns its unified function index (imports
// occupy the low indices, so this is only final once no more imports are
// added — tests call addImport before addFunc for this reason).
func (b *testModuleBuilder) addFunc(typeIdx uint16, regCount byte, code ...uint32) uint32 {
	b.funcs = append(b.funcs, testFuncDef{typeIdx: typeIdx, regCount: regCount, code: code})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

func (b *testModuleBuilder) setMemory(initial, max uint16) {
	b.mem = &memoryLimits{InitialPages: uint32(initial), MaxPages: uint32(max)}
}

func (b *testModuleBuilder) addGlobal(kind ValueKind, mutable bool, init Value) uint32 {
	b.globals = append(b.globals, Global{Kind: kind, Mutable: mutable, Init: init})
	return uint32(len(b.globals) - 1)
}

func (b *testModuleBuilder) addExport(name string, kind ExportKind, idx uint32) {
	b.exports = append(b.exports, Export{Name: name, Kind: kind, Idx: idx})
}

func (b *testModuleBuilder) addData(offset uint32, data []byte) {
	b.data = append(b.data, DataSegment{Offset: offset, Bytes: data})
}

func (b *testModuleBuilder) build() []byte {
	var typeSec bytes.Buffer
	u32(&typeSec, uint32(len(b.types)))
	for _, t := range b.types {
		typeSec.WriteByte(byte(len(t.Params)))
		if t.Result == KindVoid {
			typeSec.WriteByte(0)
		} else {
			typeSec.WriteByte(1)
		}
		for _, p := range t.Params {
			typeSec.WriteByte(byte(p))
		}
		if t.Result != KindVoid {
			typeSec.WriteByte(byte(t.Result))
		}
	}

	var importSec bytes.Buffer
	u32(&importSec, uint32(len(b.imports)))
	for _, imp := range b.imports {
		str8(&importSec, imp.Module)
		str8(&importSec, imp.Name)
		u16(&importSec, uint16(imp.TypeIdx))
	}

	var funcSec bytes.Buffer
	u32(&funcSec, uint32(len(b.funcs)))
	for _, fn := range b.funcs {
		u16(&funcSec, fn.typeIdx)
		funcSec.WriteByte(fn.regCount)
		funcSec.WriteByte(0)
	}

	var codeSec bytes.Buffer
	u32(&codeSec, uint32(len(b.funcs)))
	for _, fn := range b.funcs {
		var body bytes.Buffer
		for _, w := range fn.code {
			u32(&body, w)
		}
		u32(&codeSec, uint32(body.Len()))
		codeSec.Write(body.Bytes())
	}

	var out bytes.Buffer
	writeTestSection(&out, sectionType, typeSec.Bytes())
	writeTestSection(&out, sectionImport, importSec.Bytes())
	writeTestSection(&out, sectionFunc, funcSec.Bytes())
	if b.mem != nil {
		var memSec bytes.Buffer
		u16(&memSec, uint16(b.mem.InitialPages))
		u16(&memSec, uint16(b.mem.MaxPages))
		writeTestSection(&out, sectionMemory, memSec.Bytes())
	}
	if len(b.globals) > 0 {
		var globalSec bytes.Buffer
		u32(&globalSec, uint32(len(b.globals)))
		for _, g := range b.globals {
			globalSec.WriteByte(byte(g.Kind))
			if g.Mutable {
				globalSec.WriteByte(1)
			} else {
				globalSec.WriteByte(0)
			}
			u64(&globalSec, g.Init.Bits())
		}
		writeTestSection(&out, sectionGlobal, globalSec.Bytes())
	}
	var exportSec bytes.Buffer
	u32(&exportSec, uint32(len(b.exports)))
	for _, e := range b.exports {
		exportSec.WriteByte(byte(e.Kind))
		u32(&exportSec, e.Idx)
		str8(&exportSec, e.Name)
	}
	writeTestSection(&out, sectionExport, exportSec.Bytes())
	writeTestSection(&out, sectionCode, codeSec.Bytes())
	if len(b.data) > 0 {
		var dataSec bytes.Buffer
		u32(&dataSec, uint32(len(b.data)))
		for _, d := range b.data {
			dataSec.WriteByte(d.MemIdx)
			u32(&dataSec, d.Offset)
			u32(&dataSec, uint32(len(d.Bytes)))
			dataSec.Write(d.Bytes)
		}
		writeTestSection(&out, sectionData, dataSec.Bytes())
	}

	var container bytes.Buffer
	container.WriteString(magicBytes)
	u32(&container, containerVersion)
	u32(&container, 0)
	u32(&container, 0)
	u32(&container, checksum(out.Bytes()))
	container.Write(out.Bytes())
	return container.Bytes()
}

func writeTestSection(buf *bytes.Buffer, id byte, body []byte) {
	buf.WriteByte(id)
	u32(buf, uint32(len(body)))
	buf.Write(body)
}

func u16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }
func u32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func u64(buf *bytes.Buffer, v uint64) { binary.Write(buf, binary.LittleEndian, v) }
func str8(buf *bytes.Buffer, s string) {
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
}

// ins assembles one 32-bit instruction word.
func ins(op opcode, dst, s1, s2 byte) uint32 {
	return uint32(op) | uint32(dst)<<8 | uint32(s1)<<16 | uint32(s2)<<24
}

func splitImm64(v uint64) (uint32, uint32) {
	return uint32(v), uint32(v >> 32)
}
