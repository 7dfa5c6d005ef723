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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crucible-run/crucible/crucible"
)

func runCmd() *cobra.Command {
	var fuelLimit uint64

	cmd := &cobra.Command{
		Use:   "run <file> <export> [args...]",
		Short: "Load a module, instantiate a VM, and call an exported function",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args[0], args[1], args[2:], fuelLimit)
		},
	}
	cmd.Flags().Uint64Var(&fuelLimit, "fuel", 0, "instruction budget shared by the module's _init and the call; 0 disables metering")
	return cmd
}

func runRun(path, export string, rawArgs []string, fuelLimit uint64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	rt := crucible.NewRuntime()
	m, err := rt.LoadModule(data)
	if err != nil {
		return err
	}

	cfg := crucible.DefaultConfig()
	cfg.FuelLimit = fuelLimit
	vm, err := rt.NewVM(m, cfg)
	if err != nil {
		return err
	}
	if err := vm.Init(); err != nil {
		return err
	}

	callArgs := make([]crucible.Value, 0, len(rawArgs))
	for _, a := range rawArgs {
		n, perr := strconv.ParseInt(a, 10, 32)
		if perr != nil {
			return fmt.Errorf("argument %q is not a valid i32: %w", a, perr)
		}
		callArgs = append(callArgs, crucible.I32(int32(n)))
	}

	result, err := vm.Call(export, callArgs)
	if err != nil {
		return err
	}

	fmt.Printf("%s(%v) = %s\n", export, rawArgs, formatResult(result))
	return nil
}

func formatResult(v crucible.Value) string {
	switch v.Kind {
	case crucible.KindVoid:
		return "void"
	case crucible.KindI32:
		return fmt.Sprintf("i32:%d", v.I32())
	case crucible.KindI64:
		return fmt.Sprintf("i64:%d", v.I64())
	case crucible.KindF32:
		return fmt.Sprintf("f32:%g", v.F32())
	case crucible.KindF64:
		return fmt.Sprintf("f64:%g", v.F64())
	case crucible.KindBool:
		return fmt.Sprintf("bool:%t", v.Bool())
	case crucible.KindPtr:
		return fmt.Sprintf("ptr:%d", v.Ptr())
	default:
		return "?"
	}
}
