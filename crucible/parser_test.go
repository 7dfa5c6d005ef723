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
	"errors"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	b := newTestModule()
	i32 := KindI32
	ty := b.addType([]ValueKind{i32, i32}, i32)
	fn := b.addFunc(ty, 2,
		ins(opAdd32, 0, 0, 1),
		ins(opRet, 0, 0, 0),
	)
	b.addExport("add", ExportFunc, fn)
	b.addData(0, []byte{1, 2, 3, 4})
	b.setMemory(1, 2)

	m, f := parseModule(b.build())
	if f != nil {
		t.Fatalf("parseModule: %v", f)
	}
	if len(m.Types) != 1 {
		t.Fatalf("types = %d, want 1", len(m.Types))
	}
	if got := m.Types[0]; len(got.Params) != 2 || got.Params[0] != i32 || got.Result != i32 {
		t.Fatalf("type[0] = %+v, want params [i32,i32] result i32", got)
	}
	if m.NumFunctions() != 1 {
		t.Fatalf("NumFunctions = %d, want 1", m.NumFunctions())
	}
	exp, ok := m.Export("add")
	if !ok {
		t.Fatal("export \"add\" not found")
	}
	if exp.Kind != ExportFunc || exp.Idx != fn {
		t.Fatalf("export add = %+v, want kind=func idx=%d", exp, fn)
	}
	if !m.HasMemory || m.Memory.InitialPages != 1 || m.Memory.MaxPages != 2 {
		t.Fatalf("memory = %+v, want initial=1 max=2", m.Memory)
	}
	if len(m.Data) != 1 || len(m.Data[0].Bytes) != 4 {
		t.Fatalf("data = %+v, want one 4-byte segment", m.Data)
	}
	if m.ID().String() == "" {
		t.Error("module ID is empty")
	}
	if m.ContentHash() == 0 {
		t.Error("content hash is zero")
	}
}

func TestParseBadMagic(t *testing.T) {
	b := newTestModule()
	ty := b.addType(nil, KindVoid)
	b.addFunc(ty, 1, ins(opRet, 0, 0, 0))
	raw := b.build()
	raw[0] = 'X'

	_, f := parseModule(raw)
	if f == nil || f.Status != BADMAGIC {
		t.Fatalf("parseModule with corrupt magic = %v, want BADMAGIC", f)
	}
}

func TestParseCRCMismatch(t *testing.T) {
	b := newTestModule()
	ty := b.addType(nil, KindVoid)
	b.addFunc(ty, 1, ins(opRet, 0, 0, 0))
	raw := b.build()
	raw[len(raw)-1] ^= 0xff // flip every bit of the last section-stream byte, header CRC now stale

	_, f := parseModule(raw)
	if f == nil || f.Status != BADMODULE {
		t.Fatalf("parseModule with flipped body bit = %v, want BADMODULE", f)
	}
}

func TestParseUnsupportedVersion(t *testing.T) {
	b := newTestModule()
	ty := b.addType(nil, KindVoid)
	b.addFunc(ty, 1, ins(opRet, 0, 0, 0))
	raw := b.build()
	raw[4] = 99 // version field is the first byte after the 4-byte magic

	_, f := parseModule(raw)
	if f == nil || f.Status != VERSION {
		t.Fatalf("parseModule with bad version = %v, want VERSION", f)
	}
}

func TestParseTruncatedHeader(t *testing.T) {
	_, f := parseModule([]byte("CRBL"))
	if f == nil || f.Status != BADMODULE {
		t.Fatalf("parseModule with truncated header = %v, want BADMODULE", f)
	}
}

func TestLoadModuleWrapsFault(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.LoadModule([]byte("not a module"))
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("LoadModule error = %v, want *Fault", err)
	}
}
