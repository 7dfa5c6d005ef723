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

import "encoding/binary"

// pageSize is one linear-memory page: 64 KiB, per spec.md GLOSSARY.
const pageSize = 65536

// linearMemory is the VM's paged, bounds-checked byte buffer. Grounded on
// epsilon/memory.go's Memory type (Grow/Set/Get/Init/Copy/Fill), generalized
// to a maxPages ceiling taken from both the module descriptor and the
// embedder's Config.MemoryLimitBytes.
type linearMemory struct {
	buf      []byte
	pages    uint32
	maxPages uint32
}

func newLinearMemory(initialPages, maxPages uint32) *linearMemory {
	return &linearMemory{
		buf:      make([]byte, uint64(initialPages)*pageSize),
		pages:    initialPages,
		maxPages: maxPages,
	}
}

func (m *linearMemory) size() uint32 { return m.pages }

func (m *linearMemory) base() []byte { return m.buf }

// grow adds delta pages, zeroing only the newly added region (spec.md §9's
// resolved Open Question). Returns the previous page count, or -1 if the
// requested growth would exceed maxPages.
func (m *linearMemory) grow(delta uint32) int64 {
	if delta == 0 {
		return int64(m.pages)
	}
	newPages := uint64(m.pages) + uint64(delta)
	if newPages > uint64(m.maxPages) {
		return -1
	}
	prev := m.pages
	newBuf := make([]byte, newPages*pageSize)
	copy(newBuf, m.buf)
	m.buf = newBuf
	m.pages = uint32(newPages)
	return int64(prev)
}

func (m *linearMemory) inBounds(off, length uint64) bool {
	return off+length >= off && off+length <= uint64(m.pages)*pageSize
}

func (m *linearMemory) read(off uint32, length uint32) ([]byte, *Fault) {
	if !m.inBounds(uint64(off), uint64(length)) {
		return nil, fault(BOUNDS, "read [%d,%d) exceeds memory size %d", off, uint64(off)+uint64(length), uint64(m.pages)*pageSize)
	}
	return m.buf[off : off+length], nil
}

func (m *linearMemory) write(off uint32, data []byte) *Fault {
	if !m.inBounds(uint64(off), uint64(len(data))) {
		return fault(BOUNDS, "write [%d,%d) exceeds memory size %d", off, uint64(off)+uint64(len(data)), uint64(m.pages)*pageSize)
	}
	copy(m.buf[off:], data)
	return nil
}

func (m *linearMemory) loadU8(off uint32) (byte, *Fault) {
	b, f := m.read(off, 1)
	if f != nil {
		return 0, f
	}
	return b[0], nil
}

func (m *linearMemory) loadU16(off uint32) (uint16, *Fault) {
	b, f := m.read(off, 2)
	if f != nil {
		return 0, f
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *linearMemory) loadU32(off uint32) (uint32, *Fault) {
	b, f := m.read(off, 4)
	if f != nil {
		return 0, f
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *linearMemory) loadU64(off uint32) (uint64, *Fault) {
	b, f := m.read(off, 8)
	if f != nil {
		return 0, f
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *linearMemory) storeU8(off uint32, v byte) *Fault {
	return m.write(off, []byte{v})
}

func (m *linearMemory) storeU16(off uint32, v uint16) *Fault {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return m.write(off, b[:])
}

func (m *linearMemory) storeU32(off uint32, v uint32) *Fault {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.write(off, b[:])
}

func (m *linearMemory) storeU64(off uint32, v uint64) *Fault {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return m.write(off, b[:])
}

// copyWithin implements MEM_COPY: copying len bytes from src to dst, both
// bounds-checked, using Go's overlap-safe copy builtin.
func (m *linearMemory) copyWithin(dst, src, length uint32) *Fault {
	if !m.inBounds(uint64(src), uint64(length)) {
		return fault(BOUNDS, "mem_copy source [%d,%d) exceeds memory size", src, uint64(src)+uint64(length))
	}
	if !m.inBounds(uint64(dst), uint64(length)) {
		return fault(BOUNDS, "mem_copy dest [%d,%d) exceeds memory size", dst, uint64(dst)+uint64(length))
	}
	copy(m.buf[dst:uint64(dst)+uint64(length)], m.buf[src:uint64(src)+uint64(length)])
	return nil
}

func (m *linearMemory) fill(dst uint32, value byte, length uint32) *Fault {
	if !m.inBounds(uint64(dst), uint64(length)) {
		return fault(BOUNDS, "mem_fill [%d,%d) exceeds memory size", dst, uint64(dst)+uint64(length))
	}
	region := m.buf[dst : uint64(dst)+uint64(length)]
	for i := range region {
		region[i] = value
	}
	return nil
}
