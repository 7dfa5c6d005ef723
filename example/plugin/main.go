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
	"encoding/binary"
	"fmt"

	"github.com/crucible-run/crucible/crucible"
)

func main() {
	rt := crucible.NewRuntime()

	m, err := rt.LoadModule(buildDemoModule())
	if err != nil {
		fmt.Println("load error:", err)
		return
	}
	defer m.Free()

	vm, err := rt.NewVM(m, crucible.DefaultConfig())
	if err != nil {
		fmt.Println("vm error:", err)
		return
	}
	defer vm.Free()

	if err := vm.Register("env", "log", func(vm *crucible.VM, args []crucible.Value, result *crucible.Value, user any) crucible.Status {
		fmt.Println("guest log:", args[0].I32())
		return crucible.OK
	}, nil); err != nil {
		fmt.Println("register error:", err)
		return
	}

	if err := vm.Init(); err != nil {
		fmt.Println("init error:", err)
		return
	}

	result, err := vm.Call("greet", []crucible.Value{crucible.I32(41)})
	if err != nil {
		fmt.Println("call error:", err)
		return
	}
	fmt.Println("greet(41) =", result.I32())

	var buf [4]byte
	if err := vm.MemoryRead(0, buf[:]); err != nil {
		fmt.Println("memory read error:", err)
		return
	}
	fmt.Println("mem[0:4] =", binary.LittleEndian.Uint32(buf[:]))
}
