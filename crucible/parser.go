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

import "bytes"

// parseModule decodes a complete container: header, CRC, then the
// section stream. It performs structural decoding only; cross-referential
// checks (index bounds, fit-in-memory, etc.) happen in validateModule.
//
// Grounded on epsilon/decoder.go's top-level decode loop, generalized from
// epsilon's WASM-module section IDs to spec.md's TYPE/IMPORT/FUNC/MEMORY/
// GLOBAL/EXPORT/CODE/DATA layout.
func parseModule(raw []byte) (*Module, *Fault) {
	if len(raw) < headerSize {
		return nil, fault(BADMODULE, "container shorter than header (%d bytes)", len(raw))
	}

	if !bytes.Equal(raw[0:4], []byte(magicBytes)) {
		return nil, fault(BADMAGIC, "expected magic %q, got %q", magicBytes, raw[0:4])
	}

	hr := newByteReader(raw[4:headerSize])
	version, _ := hr.u32()
	_, _ = hr.u32() // flags, reserved for future use
	_, _ = hr.u32()
	wantCRC, _ := hr.u32()

	if version != containerVersion {
		return nil, fault(VERSION, "unsupported container version %d", version)
	}

	body := raw[headerSize:]
	if got := checksum(body); got != wantCRC {
		return nil, fault(BADMODULE, "crc mismatch: header says %#08x, computed %#08x", wantCRC, got)
	}

	m := newModule(raw)

	var funcDefs []function
	var codeBodies [][]byte
	sawMemory := false
	memSections := 0

	r := newByteReader(body)
	for r.remaining() > 0 {
		id, ok := r.u8()
		if !ok {
			return nil, fault(BADMODULE, "truncated section header at offset %d", r.pos)
		}
		size, ok := r.u32()
		if !ok {
			return nil, fault(BADMODULE, "truncated section size at offset %d", r.pos)
		}
		sec, ok := r.bytes(int(size))
		if !ok {
			return nil, fault(BADMODULE, "section %d declares size %d past end of container", id, size)
		}

		sr := newByteReader(sec)
		var perr *Fault
		switch id {
		case sectionType:
			perr = parseTypeSection(sr, m)
		case sectionImport:
			perr = parseImportSection(sr, m)
		case sectionFunc:
			funcDefs, perr = parseFuncSection(sr)
		case sectionMemory:
			memSections++
			if memSections > 1 {
				return nil, fault(BADMODULE, "container declares more than one MEMORY section")
			}
			perr = parseMemorySection(sr, m)
			sawMemory = true
		case sectionGlobal:
			perr = parseGlobalSection(sr, m)
		case sectionExport:
			perr = parseExportSection(sr, m)
		case sectionCode:
			codeBodies, perr = parseCodeSection(sr)
		case sectionData:
			perr = parseDataSection(sr, m)
		default:
			// Unknown section IDs are skipped for forward compatibility
			// (spec.md §4.1); the size-prefixed body has already been
			// consumed above regardless of content.
		}
		if perr != nil {
			return nil, perr
		}
	}
	m.HasMemory = sawMemory

	if len(funcDefs) != len(codeBodies) {
		return nil, fault(BADMODULE, "func section declares %d bodies, code section has %d", len(funcDefs), len(codeBodies))
	}

	m.Funcs = make([]function, 0, len(m.Imports)+len(funcDefs))
	for i := range m.Imports {
		m.Funcs = append(m.Funcs, function{IsImport: true, ImportIdx: i, TypeIdx: m.Imports[i].TypeIdx})
	}
	for i, fd := range funcDefs {
		fd.Code = codeBodies[i]
		m.Funcs = append(m.Funcs, fd)
	}

	m.finalize()

	if f := validateModule(m); f != nil {
		return nil, f
	}
	return m, nil
}

func parseTypeSection(r *byteReader, m *Module) *Fault {
	count, ok := r.u32()
	if !ok {
		return fault(BADMODULE, "truncated TYPE section count")
	}
	m.Types = make([]FunctionType, 0, count)
	for i := uint32(0); i < count; i++ {
		pc, ok1 := r.u8()
		rc, ok2 := r.u8()
		if !ok1 || !ok2 {
			return fault(BADMODULE, "truncated TYPE entry %d", i)
		}
		if pc > maxParams {
			return fault(BADMODULE, "type %d has %d params, exceeds limit %d", i, pc, maxParams)
		}
		if rc > 1 {
			return fault(BADMODULE, "type %d declares %d results, multi-result not supported", i, rc)
		}
		params := make([]ValueKind, pc)
		for j := byte(0); j < pc; j++ {
			b, ok := r.u8()
			if !ok {
				return fault(BADMODULE, "truncated TYPE params in entry %d", i)
			}
			params[j] = ValueKind(b)
		}
		result := KindVoid
		for j := byte(0); j < rc; j++ {
			b, ok := r.u8()
			if !ok {
				return fault(BADMODULE, "truncated TYPE returns in entry %d", i)
			}
			result = ValueKind(b)
		}
		m.Types = append(m.Types, FunctionType{Params: params, Result: result})
	}
	return nil
}

func parseImportSection(r *byteReader, m *Module) *Fault {
	count, ok := r.u32()
	if !ok {
		return fault(BADMODULE, "truncated IMPORT section count")
	}
	m.Imports = make([]Import, 0, count)
	for i := uint32(0); i < count; i++ {
		mod, ok1 := r.str8()
		name, ok2 := r.str8()
		typeIdx, ok3 := r.u16()
		if !ok1 || !ok2 || !ok3 {
			return fault(BADMODULE, "truncated IMPORT entry %d", i)
		}
		m.Imports = append(m.Imports, Import{Module: mod, Name: name, TypeIdx: uint32(typeIdx), Kind: ImportFunc})
	}
	return nil
}

func parseFuncSection(r *byteReader) ([]function, *Fault) {
	count, ok := r.u32()
	if !ok {
		return nil, fault(BADMODULE, "truncated FUNC section count")
	}
	if count > maxFuncs {
		return nil, fault(BADMODULE, "FUNC section declares %d bodies, exceeds limit", count)
	}
	defs := make([]function, 0, count)
	for i := uint32(0); i < count; i++ {
		typeIdx, ok1 := r.u16()
		regCount, ok2 := r.u8()
		localCount, ok3 := r.u8()
		if !ok1 || !ok2 || !ok3 {
			return nil, fault(BADMODULE, "truncated FUNC entry %d", i)
		}
		if int(regCount) > maxRegs {
			return nil, fault(BADMODULE, "func %d declares %d registers, exceeds limit %d", i, regCount, maxRegs)
		}
		defs = append(defs, function{TypeIdx: uint32(typeIdx), RegCount: int(regCount), NumLocals: int(localCount)})
	}
	return defs, nil
}

func parseMemorySection(r *byteReader, m *Module) *Fault {
	initial, ok1 := r.u16()
	max, ok2 := r.u16()
	if !ok1 || !ok2 {
		return fault(BADMODULE, "truncated MEMORY section")
	}
	if max == 0 {
		max = initial
	}
	m.Memory = memoryLimits{InitialPages: uint32(initial), MaxPages: uint32(max)}
	return nil
}

func parseGlobalSection(r *byteReader, m *Module) *Fault {
	count, ok := r.u32()
	if !ok {
		return fault(BADMODULE, "truncated GLOBAL section count")
	}
	m.Globals = make([]Global, 0, count)
	for i := uint32(0); i < count; i++ {
		kindB, ok1 := r.u8()
		mutB, ok2 := r.u8()
		raw, ok3 := r.u64()
		if !ok1 || !ok2 || !ok3 {
			return fault(BADMODULE, "truncated GLOBAL entry %d", i)
		}
		kind := ValueKind(kindB)
		var init Value
		switch kind {
		case KindI32:
			init = I32(int32(uint32(raw)))
		case KindI64:
			init = I64(int64(raw))
		case KindF32:
			init = Value{Kind: KindF32, bits: raw & 0xffffffff}
		case KindF64:
			init = Value{Kind: KindF64, bits: raw}
		case KindBool:
			init = Bool(raw != 0)
		case KindPtr:
			init = Ptr(uint32(raw))
		default:
			return fault(BADMODULE, "global %d has unknown type tag %d", i, kindB)
		}
		m.Globals = append(m.Globals, Global{Kind: kind, Mutable: mutB != 0, Init: init})
	}
	return nil
}

func parseExportSection(r *byteReader, m *Module) *Fault {
	count, ok := r.u32()
	if !ok {
		return fault(BADMODULE, "truncated EXPORT section count")
	}
	m.Exports = make([]Export, 0, count)
	for i := uint32(0); i < count; i++ {
		kindB, ok1 := r.u8()
		idx, ok2 := r.u32()
		name, ok3 := r.str8()
		if !ok1 || !ok2 || !ok3 {
			return fault(BADMODULE, "truncated EXPORT entry %d", i)
		}
		m.Exports = append(m.Exports, Export{Name: name, Kind: ExportKind(kindB), Idx: idx})
	}
	return nil
}

func parseCodeSection(r *byteReader) ([][]byte, *Fault) {
	count, ok := r.u32()
	if !ok {
		return nil, fault(BADMODULE, "truncated CODE section count")
	}
	bodies := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		size, ok := r.u32()
		if !ok {
			return nil, fault(BADMODULE, "truncated CODE entry %d size", i)
		}
		if size%4 != 0 {
			return nil, fault(BADMODULE, "code body %d size %d is not word-aligned", i, size)
		}
		b, ok := r.bytes(int(size))
		if !ok {
			return nil, fault(BADMODULE, "code body %d declares size %d past section end", i, size)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func parseDataSection(r *byteReader, m *Module) *Fault {
	count, ok := r.u32()
	if !ok {
		return fault(BADMODULE, "truncated DATA section count")
	}
	m.Data = make([]DataSegment, 0, count)
	for i := uint32(0); i < count; i++ {
		memIdx, ok1 := r.u8()
		offset, ok2 := r.u32()
		size, ok3 := r.u32()
		if !ok1 || !ok2 || !ok3 {
			return fault(BADMODULE, "truncated DATA entry %d header", i)
		}
		b, ok := r.bytes(int(size))
		if !ok {
			return fault(BADMODULE, "data segment %d declares size %d past section end", i, size)
		}
		m.Data = append(m.Data, DataSegment{MemIdx: memIdx, Offset: offset, Bytes: b})
	}
	return nil
}
