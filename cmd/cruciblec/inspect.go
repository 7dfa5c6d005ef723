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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crucible-run/crucible/crucible"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print a module's imports, exports, and memory limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}
}

func runInspect(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	rt := crucible.NewRuntime()
	m, err := rt.LoadModule(data)
	if err != nil {
		return err
	}

	fmt.Printf("module %s (content hash %#016x)\n", m.ID(), m.ContentHash())
	fmt.Printf("types: %d, functions: %d, globals: %d, data segments: %d\n",
		len(m.Types), m.NumFunctions(), len(m.Globals), len(m.Data))

	if m.HasMemory {
		fmt.Printf("memory: initial=%d pages max=%d pages\n", m.Memory.InitialPages, m.Memory.MaxPages)
	} else {
		fmt.Println("memory: none")
	}

	fmt.Println("imports:")
	for i, imp := range m.Imports {
		fmt.Printf("  [%d] %s::%s (type %d)\n", i, imp.Module, imp.Name, imp.TypeIdx)
	}

	fmt.Println("exports:")
	for _, e := range m.Exports {
		fmt.Printf("  %s -> %s #%d\n", e.Name, e.Kind, e.Idx)
	}

	if m.InitFunc >= 0 {
		fmt.Printf("init function: #%d\n", m.InitFunc)
	}
	return nil
}
