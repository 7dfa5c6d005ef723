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
	"errors"

	"github.com/crucible-run/crucible/crucible"
)

// exitCodeFor maps a returned error to the process exit code spec.md §6
// defines: 0 ok, 1 load error, 2 unresolved import or export, or init
// error, 3 trap.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var f *crucible.Fault
	if !errors.As(err, &f) {
		return 1
	}
	switch f.Status {
	case crucible.BADMODULE, crucible.BADMAGIC, crucible.VERSION:
		return 1
	case crucible.NOIMPORT, crucible.OOM, crucible.NOEXPORT:
		return 2
	case crucible.BOUNDS, crucible.DIVZERO, crucible.TYPE, crucible.TRAP, crucible.BADOPCODE,
		crucible.STACKOVERFLOW, crucible.FUEL, crucible.HOST_ERROR:
		return 3
	default:
		return 1
	}
}
