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

import "go.uber.org/zap"

// Config controls the resource limits and behavior of a VM. See spec.md §6.
type Config struct {
	// StackSize is the maximum call depth. Default: 512.
	StackSize int

	// MemoryLimitBytes is a hard cap on linear memory, in bytes. A module
	// whose max_pages*64KiB exceeds this fails Init with OOM. Default: 64 MiB.
	MemoryLimitBytes uint64

	// FuelLimit is the instruction budget. 0 disables metering. The count
	// is not reset between calls: it accumulates over _init and every Call
	// until VM.Refuel resets it.
	FuelLimit uint64

	// Logger receives structured diagnostics for this VM. When nil,
	// Runtime.NewVM fills in the logger its Runtime captured at creation
	// (the package default, a nop logger unless SetLogger was called; see
	// logging.go), so embedding a VM never forces log output by default.
	Logger *zap.Logger
}

const (
	defaultStackSize        = 512
	defaultMemoryLimitBytes = 64 * 1024 * 1024
	registerWindowSize      = 256
	argBufferSize           = 16
)

// DefaultConfig returns a Config with the defaults spec.md §6 documents.
func DefaultConfig() Config {
	return Config{
		StackSize:        defaultStackSize,
		MemoryLimitBytes: defaultMemoryLimitBytes,
		FuelLimit:        0,
	}
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return Logger()
}
