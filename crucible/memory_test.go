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

import "testing"

// TestMemoryGrowMonotonicity exercises spec.md §8: grow either increases
// memory_pages by exactly the requested delta, or leaves it unchanged and
// returns -1.
func TestMemoryGrowMonotonicity(t *testing.T) {
	m := newLinearMemory(1, 4)

	prev := m.grow(2)
	if prev != 1 {
		t.Fatalf("grow(2) returned previous pages = %d, want 1", prev)
	}
	if m.size() != 3 {
		t.Fatalf("pages after grow(2) = %d, want 3", m.size())
	}

	prev = m.grow(5) // would take pages to 8, exceeds maxPages=4
	if prev != -1 {
		t.Fatalf("grow(5) past max = %d, want -1", prev)
	}
	if m.size() != 3 {
		t.Fatalf("pages after rejected grow = %d, want unchanged 3", m.size())
	}
}

// TestMemoryGrowZeroesOnlyNewPages confirms spec.md §9's resolved Open
// Question: existing bytes survive a grow, and the newly appended region
// reads back as zero.
func TestMemoryGrowZeroesOnlyNewPages(t *testing.T) {
	m := newLinearMemory(1, 2)
	if f := m.storeU32(100, 0xdeadbeef); f != nil {
		t.Fatalf("storeU32: %v", f)
	}

	if prev := m.grow(1); prev != 1 {
		t.Fatalf("grow(1) = %d, want 1", prev)
	}

	v, f := m.loadU32(100)
	if f != nil || v != 0xdeadbeef {
		t.Fatalf("loadU32(100) after grow = (%#x, %v), want (0xdeadbeef, nil)", v, f)
	}
	tail, f := m.loadU32(pageSize + 100)
	if f != nil || tail != 0 {
		t.Fatalf("loadU32 in newly grown page = (%d, %v), want (0, nil)", tail, f)
	}
}

// TestMemoryBoundsSafety checks spec.md §8's bounds-safety property: every
// access straddling the end of the current page range traps with BOUNDS,
// for reads, writes, and the byte just past the valid range.
func TestMemoryBoundsSafety(t *testing.T) {
	m := newLinearMemory(1, 1)

	if _, f := m.loadU32(pageSize - 4); f != nil {
		t.Fatalf("loadU32 at last valid word: %v", f)
	}
	if _, f := m.loadU32(pageSize - 3); f == nil || f.Status != BOUNDS {
		t.Fatalf("loadU32 straddling page end = %v, want BOUNDS", f)
	}
	if f := m.storeU8(pageSize, 1); f == nil || f.Status != BOUNDS {
		t.Fatalf("storeU8 one byte past end = %v, want BOUNDS", f)
	}
	if _, f := m.loadU8(pageSize); f == nil || f.Status != BOUNDS {
		t.Fatalf("loadU8 one byte past end = %v, want BOUNDS", f)
	}
}

// TestMemoryBoundsSafetyOverflow guards against the offset+length addition
// itself wrapping around uint32 and falsely appearing in-bounds.
func TestMemoryBoundsSafetyOverflow(t *testing.T) {
	m := newLinearMemory(1, 1)
	if _, f := m.read(0xfffffff0, 32); f == nil || f.Status != BOUNDS {
		t.Fatalf("read with overflowing offset+length = %v, want BOUNDS", f)
	}
}

func TestMemoryCopyAndFillBounds(t *testing.T) {
	m := newLinearMemory(1, 1)
	if f := m.fill(0, 0xff, pageSize); f != nil {
		t.Fatalf("fill whole page: %v", f)
	}
	if f := m.fill(0, 0, pageSize+1); f == nil || f.Status != BOUNDS {
		t.Fatalf("fill past page end = %v, want BOUNDS", f)
	}
	if f := m.copyWithin(10, 0, 100); f != nil {
		t.Fatalf("copyWithin in bounds: %v", f)
	}
	if f := m.copyWithin(pageSize-10, 0, 100); f == nil || f.Status != BOUNDS {
		t.Fatalf("copyWithin dest past page end = %v, want BOUNDS", f)
	}
}

// TestCRCBitFlipRejected exercises spec.md §8's CRC-integrity property
// through parseModule: flipping each single bit of the first byte after the
// header, one at a time, makes the load fail with BADMODULE.
func TestCRCBitFlipRejected(t *testing.T) {
	b := newTestModule()
	ty := b.addType(nil, KindVoid)
	b.addFunc(ty, 1, ins(opRet, 0, 0, 0))
	raw := b.build()

	for bit := 0; bit < 8; bit++ {
		flipped := append([]byte(nil), raw...)
		flipped[headerSize] ^= 1 << bit
		_, f := parseModule(flipped)
		if f == nil || f.Status != BADMODULE {
			t.Fatalf("parseModule with bit %d flipped in body = %v, want BADMODULE", bit, f)
		}
	}
}
