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

package main

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// The bytecode assembler is explicitly out of scope for this module (it is
// an external collaborator, per spec.md §1), so this demo hand-assembles a
// tiny container the same way a test fixture would: one import, one
// exported function, one page of memory.
//
// greet(x i32) -> i32:
//   ARG      0, R0        ; stage x
//   CALL_HOST R1, #0      ; env::log(x)
//   LDI32    R2, 1
//   ADD32    R0, R0, R2   ; R0 = x + 1
//   LDI32    R3, 0
//   STORE32  R0, R3, 0    ; mem[0] = R0
//   RET
const (
	opCallHost = 9
	opArg      = 10
	opLdI32    = 11
	opAdd32    = 20
	opStore32  = 127
	opRet      = 2

	kindI32 = 1

	sectionType   = 0
	sectionImport = 1
	sectionFunc   = 2
	sectionMemory = 3
	sectionExport = 5
	sectionCode   = 6

	exportFuncKind = 0
)

func word(op, dst, s1, s2 byte) uint32 {
	return uint32(op) | uint32(dst)<<8 | uint32(s1)<<16 | uint32(s2)<<24
}

func appendU32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.LittleEndian, v) }
func appendU16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }
func appendStr8(buf *bytes.Buffer, s string) {
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
}

func buildDemoModule() []byte {
	var code bytes.Buffer
	appendU32(&code, word(opArg, 0, 0, 0))
	appendU32(&code, word(opCallHost, 1, 0, 0))
	appendU32(&code, 0)
	appendU32(&code, word(opLdI32, 2, 0, 0))
	appendU32(&code, 1)
	appendU32(&code, word(opAdd32, 0, 0, 2))
	appendU32(&code, word(opLdI32, 3, 0, 0))
	appendU32(&code, 0)
	appendU32(&code, word(opStore32, 0, 3, 0))
	appendU32(&code, 0)
	appendU32(&code, word(opRet, 0, 0, 0))

	var typeSec bytes.Buffer
	appendU32(&typeSec, 2)
	typeSec.WriteByte(1) // param_count
	typeSec.WriteByte(0) // return_count
	typeSec.WriteByte(kindI32)
	typeSec.WriteByte(1)
	typeSec.WriteByte(1)
	typeSec.WriteByte(kindI32)
	typeSec.WriteByte(kindI32)

	var importSec bytes.Buffer
	appendU32(&importSec, 1)
	appendStr8(&importSec, "env")
	appendStr8(&importSec, "log")
	appendU16(&importSec, 0)

	var funcSec bytes.Buffer
	appendU32(&funcSec, 1)
	appendU16(&funcSec, 1) // type_idx
	funcSec.WriteByte(4)   // reg_count
	funcSec.WriteByte(0)   // local_count

	var memSec bytes.Buffer
	appendU16(&memSec, 1)
	appendU16(&memSec, 1)

	var exportSec bytes.Buffer
	appendU32(&exportSec, 1)
	exportSec.WriteByte(exportFuncKind)
	appendU32(&exportSec, 1) // unified index: 1 import + func 0
	appendStr8(&exportSec, "greet")

	var codeSec bytes.Buffer
	appendU32(&codeSec, 1)
	appendU32(&codeSec, uint32(code.Len()))
	codeSec.Write(code.Bytes())

	var body bytes.Buffer
	writeSection(&body, sectionType, typeSec.Bytes())
	writeSection(&body, sectionImport, importSec.Bytes())
	writeSection(&body, sectionFunc, funcSec.Bytes())
	writeSection(&body, sectionMemory, memSec.Bytes())
	writeSection(&body, sectionExport, exportSec.Bytes())
	writeSection(&body, sectionCode, codeSec.Bytes())

	var out bytes.Buffer
	out.WriteString("CRBL")
	appendU32(&out, 1) // version
	appendU32(&out, 0) // flags
	appendU32(&out, 0) // reserved
	appendU32(&out, crc32.ChecksumIEEE(body.Bytes()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeSection(buf *bytes.Buffer, id byte, body []byte) {
	buf.WriteByte(id)
	appendU32(buf, uint32(len(body)))
	buf.Write(body)
}
