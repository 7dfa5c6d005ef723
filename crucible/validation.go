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

// validateModule performs the structural checks spec.md §4.4 requires at
// load time. It never inspects operand types inside a code body — only that
// every index a section refers to actually exists and that byte counts are
// internally consistent. Grounded on epsilon/runtime.go's post-decode
// consistency checks, generalized to this container's section set.
func validateModule(m *Module) *Fault {
	for i, t := range m.Types {
		if len(t.Params) > maxParams {
			return fault(BADMODULE, "type %d exceeds max param count", i)
		}
	}

	for i, imp := range m.Imports {
		if imp.TypeIdx >= uint32(len(m.Types)) {
			return fault(BADMODULE, "import %d (%s::%s) references undefined type %d", i, imp.Module, imp.Name, imp.TypeIdx)
		}
	}

	for i, fn := range m.Funcs {
		if fn.IsImport {
			continue
		}
		if fn.TypeIdx >= uint32(len(m.Types)) {
			return fault(BADMODULE, "function %d references undefined type %d", i, fn.TypeIdx)
		}
		if len(fn.Code)%4 != 0 {
			return fault(BADMODULE, "function %d code is not word-aligned", i)
		}
	}

	seenFuncExport := map[string]bool{}
	seenGlobalExport := map[string]bool{}
	seenMemExport := map[string]bool{}
	for i, e := range m.Exports {
		switch e.Kind {
		case ExportFunc:
			if e.Idx >= uint32(len(m.Funcs)) {
				return fault(BADMODULE, "export %d (%s) references undefined function %d", i, e.Name, e.Idx)
			}
			if seenFuncExport[e.Name] {
				return fault(BADMODULE, "duplicate function export name %q", e.Name)
			}
			seenFuncExport[e.Name] = true
		case ExportGlobal:
			if e.Idx >= uint32(len(m.Globals)) {
				return fault(BADMODULE, "export %d (%s) references undefined global %d", i, e.Name, e.Idx)
			}
			if seenGlobalExport[e.Name] {
				return fault(BADMODULE, "duplicate global export name %q", e.Name)
			}
			seenGlobalExport[e.Name] = true
		case ExportMemory:
			if !m.HasMemory || e.Idx != 0 {
				return fault(BADMODULE, "export %d (%s) references undefined memory %d", i, e.Name, e.Idx)
			}
			if seenMemExport[e.Name] {
				return fault(BADMODULE, "duplicate memory export name %q", e.Name)
			}
			seenMemExport[e.Name] = true
		default:
			return fault(BADMODULE, "export %d (%s) has unknown kind %d", i, e.Name, e.Kind)
		}
	}

	initialBytes := uint64(m.Memory.InitialPages) * pageSize
	for i, d := range m.Data {
		if !m.HasMemory {
			return fault(BADMODULE, "data segment %d present but module declares no memory", i)
		}
		if d.MemIdx != 0 {
			return fault(BADMODULE, "data segment %d references undefined memory %d", i, d.MemIdx)
		}
		end := uint64(d.Offset) + uint64(len(d.Bytes))
		if end > initialBytes {
			return fault(BADMODULE, "data segment %d [%d,%d) exceeds initial memory size %d", i, d.Offset, end, initialBytes)
		}
	}

	if m.HasMemory && m.Memory.MaxPages < m.Memory.InitialPages {
		return fault(BADMODULE, "memory max_pages %d is less than initial_pages %d", m.Memory.MaxPages, m.Memory.InitialPages)
	}

	if m.InitFunc >= 0 {
		if m.InitFunc >= len(m.Funcs) {
			return fault(BADMODULE, "_init export references undefined function %d", m.InitFunc)
		}
		if m.Funcs[m.InitFunc].IsImport {
			return fault(BADMODULE, "_init export must not resolve to an imported function")
		}
	}

	return nil
}
