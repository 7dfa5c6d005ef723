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

// HostFunc is the signature a host application implements to satisfy a
// guest import. args is the staged argument vector; result receives the
// callee's single return value (left Void for a void-typed import). A
// non-OK return aborts the current call chain, and the returned Status
// itself becomes the status of the resulting Fault, per spec.md §4.3
// ("its return code is propagated").
//
// Grounded on epsilon/imports.go's ResolveImports callback shape,
// generalized with an explicit user pointer to mirror original_source/rune.h's
// RuneHostFn(ctx, args, nargs, result, user).
type HostFunc func(vm *VM, args []Value, result *Value, user any) Status

type hostEntry struct {
	fn   HostFunc
	user any
}

// hostTable is a per-VM (module,name) → callback registry. Registration is
// rejected once the VM is initialized (spec.md §5: "the host function table
// is read-only during execution").
type hostTable struct {
	entries map[string]hostEntry
	frozen  bool
}

func newHostTable() *hostTable {
	return &hostTable{entries: make(map[string]hostEntry)}
}

func hostKey(module, name string) string { return module + "\x00" + name }

// register records fn for (module,name). A later call with the same key
// replaces the earlier one — "last registration wins" per spec.md §4.5.
func (t *hostTable) register(module, name string, fn HostFunc, user any) *Fault {
	if t.frozen {
		return fault(HOST_ERROR, "cannot register %s::%s after init", module, name)
	}
	t.entries[hostKey(module, name)] = hostEntry{fn: fn, user: user}
	return nil
}

func (t *hostTable) lookup(module, name string) (hostEntry, bool) {
	e, ok := t.entries[hostKey(module, name)]
	return e, ok
}

func (t *hostTable) freeze() { t.frozen = true }
