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

package benchmarks

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// Benchmarks live outside the crucible package (they exercise it as a
// black-box embedder would), so they cannot reach crucible's unexported
// opcode table directly. These numeric opcode values mirror crucible's
// internal ordering one-for-one (see crucible/opcodes.go) — the same
// constraint example/plugin/module.go already lives under.
const (
	opRet     = 2
	opJmp     = 3
	opJz      = 4
	opLdI32   = 11
	opMov     = 19
	opAdd32   = 20
	opSub32   = 21
	opMul32   = 22

	kindI32 = 1

	sectionType   = 0
	sectionFunc   = 2
	sectionExport = 5
	sectionCode   = 6

	exportFuncKind = 0
)

func word(op, dst, s1, s2 byte) uint32 {
	return uint32(op) | uint32(dst)<<8 | uint32(s1)<<16 | uint32(s2)<<24
}

func u32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func u16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }
func str8(buf *bytes.Buffer, s string) {
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
}

func writeSection(buf *bytes.Buffer, id byte, body []byte) {
	buf.WriteByte(id)
	u32(buf, uint32(len(body)))
	buf.Write(body)
}

// assembleSingleFuncModule wraps one function body (no imports, no memory)
// as a complete container: one type (params->i32), one export under name,
// exported at the unified function index 0.
func assembleSingleFuncModule(name string, paramCount int, code []uint32) []byte {
	var typeSec bytes.Buffer
	u32(&typeSec, 1)
	typeSec.WriteByte(byte(paramCount))
	typeSec.WriteByte(1)
	for i := 0; i < paramCount; i++ {
		typeSec.WriteByte(kindI32)
	}
	typeSec.WriteByte(kindI32)

	var funcSec bytes.Buffer
	u32(&funcSec, 1)
	u16(&funcSec, 0) // type_idx
	funcSec.WriteByte(16) // reg_count, generous for any fixture below
	funcSec.WriteByte(0)  // local_count

	var body bytes.Buffer
	for _, w := range code {
		u32(&body, w)
	}
	var codeSec bytes.Buffer
	u32(&codeSec, 1)
	u32(&codeSec, uint32(body.Len()))
	codeSec.Write(body.Bytes())

	var exportSec bytes.Buffer
	u32(&exportSec, 1)
	exportSec.WriteByte(exportFuncKind)
	u32(&exportSec, 0)
	str8(&exportSec, name)

	var sections bytes.Buffer
	writeSection(&sections, sectionType, typeSec.Bytes())
	writeSection(&sections, sectionFunc, funcSec.Bytes())
	writeSection(&sections, sectionExport, exportSec.Bytes())
	writeSection(&sections, sectionCode, codeSec.Bytes())

	var out bytes.Buffer
	out.WriteString("CRBL")
	u32(&out, 1) // version
	u32(&out, 0) // flags
	u32(&out, 0) // reserved
	u32(&out, crc32.ChecksumIEEE(sections.Bytes()))
	out.Write(sections.Bytes())
	return out.Bytes()
}

// buildAddModule: add(a, b) = a + b.
//   ADD32 R0, R0, R1
//   RET
func buildAddModule() []byte {
	return assembleSingleFuncModule("add", 2, []uint32{
		word(opAdd32, 0, 0, 1),
		word(opRet, 0, 0, 0),
	})
}

// buildFactorialIterativeModule: fac_iterative(n) = n! computed with a
// countdown loop, no recursion:
//
//	R0 = n (arg)            R1 = running product      R2 = loop-decrement scratch
//
//	LDI32 R1, 1
//	[loop] JZ R0, end
//	MUL32  R1, R1, R0
//	LDI32  R2, 1
//	SUB32  R0, R0, R2
//	JMP    loop
//	[end] MOV R0, R1
//	RET
func buildFactorialIterativeModule() []byte {
	code := []uint32{
		word(opLdI32, 1, 0, 0), // idx0
		1,                      // idx1
		word(opJz, 0, 0, 0),    // idx2 [loop_top]
		0,                      // idx3 (patched below)
		word(opMul32, 1, 1, 0), // idx4
		word(opLdI32, 2, 0, 0), // idx5
		1,                      // idx6
		word(opSub32, 0, 0, 2), // idx7
		word(opJmp, 0, 0, 0),   // idx8
		0,                      // idx9 (patched below)
		word(opMov, 0, 1, 0),   // idx10 [end]
		word(opRet, 0, 0, 0),   // idx11
	}
	const loopTop = 2
	const end = 10
	jzOffset := int32(end - 4)
	jmpOffset := int32(loopTop - 10)
	code[3] = uint32(jzOffset) // JZ at idx2, imm idx3, next idx4
	code[9] = uint32(jmpOffset) // JMP at idx8, imm idx9, next idx10
	return assembleSingleFuncModule("fac_iterative", 1, code)
}
