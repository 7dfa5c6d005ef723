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
	"encoding/binary"
	"hash/crc32"
)

// byteReader is a cursor over a module's raw bytes with bounds-checked,
// little-endian primitive decoding. Every read advances the cursor only on
// success, so a caller can report the cursor position in error messages.
//
// Grounded on epsilon/decoder.go's cursor-advancing, bounds-checked decode
// style and epsilon/leb128.go's sentinel-error-on-truncation discipline.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) remaining() int { return len(r.data) - r.pos }

func (r *byteReader) u8() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	b := r.data[r.pos]
	r.pos++
	return b, true
}

func (r *byteReader) u16() (uint16, bool) {
	if r.remaining() < 2 {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, true
}

func (r *byteReader) u32() (uint32, bool) {
	if r.remaining() < 4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, true
}

func (r *byteReader) u64() (uint64, bool) {
	if r.remaining() < 8 {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, true
}

// bytes returns a slice of n bytes borrowed directly from the reader's
// backing array (no copy) — the Module that owns this reader keeps the
// whole buffer alive for as long as any slice into it is reachable, which
// is how Go realizes spec.md §3's "code slices borrowed by frames never
// outlive the Module" without needing an explicit lifetime type.
func (r *byteReader) bytes(n int) ([]byte, bool) {
	if n < 0 || r.remaining() < n {
		return nil, false
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

// str8 decodes a len:u8, bytes length-prefixed string.
func (r *byteReader) str8() (string, bool) {
	n, ok := r.u8()
	if !ok {
		return "", false
	}
	b, ok := r.bytes(int(n))
	if !ok {
		return "", false
	}
	return string(b), true
}

// checksum computes the container's integrity CRC: ISO-3309 reflected,
// polynomial 0xEDB88320 — exactly Go's built-in crc32.IEEE table, hence the
// stdlib implementation rather than a hand-rolled or third-party one (see
// DESIGN.md).
func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
