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
	"math"

	"go.uber.org/zap"
)

// VM is a mutable execution context bound to one Module: it owns linear
// memory, globals, the host function table, and a bounded call stack. It is
// not safe for concurrent use from multiple goroutines (spec.md §5:
// single-threaded cooperative per VM); independent VMs share nothing but
// their read-only Module.
//
// The dispatch loop in run() is grounded on epsilon/vm.go's fetch-decode-
// switch structure, adapted from a stack machine to the register-window
// model spec.md §4.3 describes.
type VM struct {
	module *Module
	config Config
	logger *zap.Logger

	memory    *linearMemory
	globals   []Value
	hostTable *hostTable
	stack     *callStack

	argBuf   [argBufferSize]Value
	argCount int

	fuelUsed   uint64
	fuelBudget uint64

	initialized bool
	freed       bool
	lastError   *Fault
}

func newVM(m *Module, cfg Config) *VM {
	if cfg.StackSize <= 0 {
		cfg.StackSize = defaultStackSize
	}
	if cfg.MemoryLimitBytes == 0 {
		cfg.MemoryLimitBytes = defaultMemoryLimitBytes
	}
	return &VM{
		module:     m,
		config:     cfg,
		logger:     cfg.logger(),
		hostTable:  newHostTable(),
		stack:      newCallStack(cfg.StackSize),
		fuelBudget: cfg.FuelLimit,
	}
}

// Register binds a host callback to a (module,name) import pair. Valid only
// before Init; later calls with the same key replace the earlier binding.
func (vm *VM) Register(module, name string, fn HostFunc, user any) error {
	if err := vm.hostTable.register(module, name, fn, user); err != nil {
		return err
	}
	vm.logger.Debug("host function registered", zap.String("module", module), zap.String("name", name))
	return nil
}

// Refuel resets the instruction counter and installs a new fuel budget;
// 0 disables metering. See spec.md §5.
func (vm *VM) Refuel(budget uint64) {
	vm.fuelUsed = 0
	vm.fuelBudget = budget
}

// LastError returns the most recent Fault recorded by Init or Call.
func (vm *VM) LastError() *Fault { return vm.lastError }

// FrameCount reports the current call depth, primarily for tests asserting
// the stack-discipline invariant (spec.md §8).
func (vm *VM) FrameCount() int { return vm.stack.depth }

// Init resolves every import against the host table, allocates linear
// memory, applies data segments, copies globals, freezes the host table,
// and — if the module declares one — invokes its "_init" export.
func (vm *VM) Init() error {
	for i, imp := range vm.module.Imports {
		if _, ok := vm.hostTable.lookup(imp.Module, imp.Name); !ok {
			f := fault(NOIMPORT, "import %d (%s::%s) has no registered host function", i, imp.Module, imp.Name)
			vm.lastError = f
			return f
		}
	}

	if vm.module.HasMemory {
		limitPages := uint32(vm.config.MemoryLimitBytes / pageSize)
		maxPages := vm.module.Memory.MaxPages
		if maxPages > limitPages {
			f := fault(OOM, "module max_pages %d * 64KiB exceeds memory_limit %d bytes", maxPages, vm.config.MemoryLimitBytes)
			vm.lastError = f
			return f
		}
		vm.memory = newLinearMemory(vm.module.Memory.InitialPages, maxPages)
		for i, d := range vm.module.Data {
			if f := vm.memory.write(d.Offset, d.Bytes); f != nil {
				vm.lastError = fault(OOM, "data segment %d failed to apply: %s", i, f.Error())
				return vm.lastError
			}
		}
	}

	vm.globals = make([]Value, len(vm.module.Globals))
	for i, g := range vm.module.Globals {
		vm.globals[i] = g.Init
	}

	vm.hostTable.freeze()
	vm.initialized = true

	if vm.module.InitFunc >= 0 {
		if _, f := vm.execute(vm.module.InitFunc); f != nil {
			vm.lastError = f
			return f
		}
	}

	vm.logger.Info("vm initialized", zap.String("module", vm.module.ID().String()))
	return nil
}

// Call locates an exported function by name and executes it with args,
// returning its single result value.
func (vm *VM) Call(name string, args []Value) (Value, error) {
	if !vm.initialized {
		return Void, fault(BADMODULE, "vm not initialized")
	}
	exp, ok := vm.module.Export(name)
	if !ok || exp.Kind != ExportFunc {
		f := fault(NOEXPORT, "no exported function named %q", name)
		vm.lastError = f
		return Void, f
	}

	vm.stageArgs(args)
	before := vm.stack.depth
	res, f := vm.execute(int(exp.Idx))
	vm.stack.depth = before // guarantee stack discipline even on a mid-call trap

	if f != nil {
		vm.lastError = f
		return Void, f
	}
	return res, nil
}

func (vm *VM) stageArgs(args []Value) {
	vm.clearArgs()
	n := len(args)
	if n > argBufferSize {
		n = argBufferSize
	}
	copy(vm.argBuf[:n], args[:n])
	vm.argCount = n
}

func (vm *VM) clearArgs() {
	vm.argBuf = [argBufferSize]Value{}
	vm.argCount = 0
}

// execute runs one function activation to completion: RET, implicit
// fall-through, or a trap. It always pops the frame it pushed, so a trap
// partway through never leaves a stale frame on the stack.
func (vm *VM) execute(funcIdx int) (Value, *Fault) {
	if funcIdx < 0 || funcIdx >= len(vm.module.Funcs) {
		return Void, fault(TRAP, "call to undefined function index %d", funcIdx)
	}
	fn := vm.module.Funcs[funcIdx]
	if fn.IsImport {
		return vm.dispatchHostCall(fn.ImportIdx)
	}

	fr, ferr := vm.stack.push(funcIdx)
	if ferr != nil {
		return Void, ferr
	}
	defer vm.stack.pop()

	staged := vm.argCount
	for i := 0; i < staged; i++ {
		fr.regs[i] = vm.argBuf[i]
	}
	params := vm.module.Types[fn.TypeIdx].Params
	for i := staged; i < len(params); i++ {
		fr.regs[i] = defaultValueForType(params[i])
	}
	vm.clearArgs()

	return vm.run(fr, fn.Code)
}

func (vm *VM) dispatchCall(funcIdx int) (Value, *Fault) {
	if funcIdx < 0 || funcIdx >= len(vm.module.Funcs) {
		return Void, fault(TRAP, "call to undefined function index %d", funcIdx)
	}
	fn := vm.module.Funcs[funcIdx]
	if fn.IsImport {
		return vm.dispatchHostCall(fn.ImportIdx)
	}
	return vm.execute(funcIdx)
}

func (vm *VM) dispatchHostCall(importIdx int) (Value, *Fault) {
	if importIdx < 0 || importIdx >= len(vm.module.Imports) {
		return Void, fault(TRAP, "host call to undefined import %d", importIdx)
	}
	imp := vm.module.Imports[importIdx]
	entry, ok := vm.hostTable.lookup(imp.Module, imp.Name)
	if !ok {
		return Void, fault(NOIMPORT, "import %s::%s has no registered host function", imp.Module, imp.Name)
	}
	args := append([]Value(nil), vm.argBuf[:vm.argCount]...)
	vm.clearArgs()

	result := Void
	status := entry.fn(vm, args, &result, entry.user)
	if status != OK {
		return Void, fault(status, "host function %s::%s returned %s", imp.Module, imp.Name, status)
	}
	return result, nil
}

func (vm *VM) checkFuel() *Fault {
	if vm.fuelBudget == 0 {
		return nil
	}
	vm.fuelUsed++
	if vm.fuelUsed > vm.fuelBudget {
		return fault(FUEL, "fuel budget %d exhausted", vm.fuelBudget)
	}
	return nil
}

func (vm *VM) mustMemory() (*linearMemory, *Fault) {
	if vm.memory == nil {
		return nil, fault(BOUNDS, "module declares no memory")
	}
	return vm.memory, nil
}

func (vm *VM) globalSlot(idx uint32) (*Value, *Fault) {
	if int(idx) >= len(vm.globals) {
		return nil, fault(TRAP, "reference to undefined global %d", idx)
	}
	return &vm.globals[idx], nil
}

// run is the fetch/decode/dispatch loop for one frame's code. PC is word-
// indexed per spec.md §4.2; fetching past the end of the code slice is an
// implicit return of R0, matching an explicit RET.
func (vm *VM) run(fr *frame, code []byte) (Value, *Fault) {
	words := len(code) / 4

	fetchImm := func() (uint32, *Fault) {
		if fr.pc >= words {
			return 0, fault(BADMODULE, "truncated instruction stream: missing immediate")
		}
		v := binary.LittleEndian.Uint32(code[fr.pc*4:])
		fr.pc++
		return v, nil
	}

	for {
		if fr.pc >= words {
			return fr.regs[0], nil
		}
		word := binary.LittleEndian.Uint32(code[fr.pc*4:])
		fr.pc++
		instr := decodeInstrWord(word)
		if !instr.op.valid() {
			return Void, fault(BADOPCODE, "unknown opcode %d", word&0xff)
		}
		if f := vm.checkFuel(); f != nil {
			return Void, f
		}

		var imm1, imm2 uint32
		switch instr.op.immCount() {
		case 1:
			v, f := fetchImm()
			if f != nil {
				return Void, f
			}
			imm1 = v
		case 2:
			v1, f := fetchImm()
			if f != nil {
				return Void, f
			}
			v2, f := fetchImm()
			if f != nil {
				return Void, f
			}
			imm1, imm2 = v1, v2
		}

		r := fr.regs[:]

		switch instr.op {
		case opNop:
		case opTrap:
			return Void, fault(TRAP, "explicit trap instruction")
		case opRet:
			return r[0], nil

		case opJmp:
			fr.pc += int(int32(imm1))
		case opJz:
			if r[instr.dst].isZero() {
				fr.pc += int(int32(imm1))
			}
		case opJnz:
			if !r[instr.dst].isZero() {
				fr.pc += int(int32(imm1))
			}
		case opJlt:
			if r[instr.dst].I32() < r[instr.s1].I32() {
				fr.pc += int(int32(imm1))
			}
		case opJle:
			if r[instr.dst].I32() <= r[instr.s1].I32() {
				fr.pc += int(int32(imm1))
			}

		case opCall:
			res, f := vm.dispatchCall(int(imm1))
			if f != nil {
				return Void, f
			}
			r[instr.dst] = res
		case opCallHost:
			res, f := vm.dispatchHostCall(int(imm1))
			if f != nil {
				return Void, f
			}
			r[instr.dst] = res
		case opArg:
			if int(instr.dst) >= argBufferSize {
				return Void, fault(TRAP, "ARG slot %d exceeds argument buffer size %d", instr.dst, argBufferSize)
			}
			vm.argBuf[instr.dst] = r[instr.s1]
			if int(instr.dst)+1 > vm.argCount {
				vm.argCount = int(instr.dst) + 1
			}

		case opLdI32:
			r[instr.dst] = I32(int32(imm1))
		case opLdI64:
			r[instr.dst] = I64(int64(uint64(imm1) | uint64(imm2)<<32))
		case opLdF32:
			r[instr.dst] = Value{Kind: KindF32, bits: uint64(imm1)}
		case opLdF64:
			r[instr.dst] = Value{Kind: KindF64, bits: uint64(imm1) | uint64(imm2)<<32}
		case opLdTrue:
			r[instr.dst] = Bool(true)
		case opLdFalse:
			r[instr.dst] = Bool(false)
		case opLdGlobal:
			g, f := vm.globalSlot(imm1)
			if f != nil {
				return Void, f
			}
			r[instr.dst] = *g
		case opStGlobal:
			g, f := vm.globalSlot(imm1)
			if f != nil {
				return Void, f
			}
			*g = r[instr.dst]
		case opMov:
			r[instr.dst] = r[instr.s1]

		case opAdd32:
			r[instr.dst] = I32(int32(uint32(r[instr.s1].I32()) + uint32(r[instr.s2].I32())))
		case opSub32:
			r[instr.dst] = I32(int32(uint32(r[instr.s1].I32()) - uint32(r[instr.s2].I32())))
		case opMul32:
			r[instr.dst] = I32(int32(uint32(r[instr.s1].I32()) * uint32(r[instr.s2].I32())))
		case opDiv32:
			v, f := divS32(r[instr.s1].I32(), r[instr.s2].I32())
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I32(v)
		case opDivU32:
			v, f := divU32(r[instr.s1].U32(), r[instr.s2].U32())
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I32(int32(v))
		case opRem32:
			v, f := remS32(r[instr.s1].I32(), r[instr.s2].I32())
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I32(v)
		case opRemU32:
			v, f := remU32(r[instr.s1].U32(), r[instr.s2].U32())
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I32(int32(v))
		case opNeg32:
			r[instr.dst] = I32(-r[instr.s1].I32())
		case opAnd32:
			r[instr.dst] = I32(int32(r[instr.s1].U32() & r[instr.s2].U32()))
		case opOr32:
			r[instr.dst] = I32(int32(r[instr.s1].U32() | r[instr.s2].U32()))
		case opXor32:
			r[instr.dst] = I32(int32(r[instr.s1].U32() ^ r[instr.s2].U32()))
		case opShl32:
			r[instr.dst] = I32(int32(r[instr.s1].U32() << shiftAmount32(r[instr.s2].U32())))
		case opShr32:
			r[instr.dst] = I32(r[instr.s1].I32() >> shiftAmount32(r[instr.s2].U32()))
		case opShrU32:
			r[instr.dst] = I32(int32(r[instr.s1].U32() >> shiftAmount32(r[instr.s2].U32())))
		case opNot32:
			r[instr.dst] = I32(int32(^r[instr.s1].U32()))
		case opClz32:
			r[instr.dst] = I32(int32(clz32(r[instr.s1].U32())))
		case opCtz32:
			r[instr.dst] = I32(int32(ctz32(r[instr.s1].U32())))
		case opPopcnt32:
			r[instr.dst] = I32(int32(popcnt32(r[instr.s1].U32())))

		case opAdd64:
			r[instr.dst] = I64(int64(uint64(r[instr.s1].I64()) + uint64(r[instr.s2].I64())))
		case opSub64:
			r[instr.dst] = I64(int64(uint64(r[instr.s1].I64()) - uint64(r[instr.s2].I64())))
		case opMul64:
			r[instr.dst] = I64(int64(uint64(r[instr.s1].I64()) * uint64(r[instr.s2].I64())))
		case opDiv64:
			v, f := divS64(r[instr.s1].I64(), r[instr.s2].I64())
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I64(v)
		case opDivU64:
			v, f := divU64(uint64(r[instr.s1].I64()), uint64(r[instr.s2].I64()))
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I64(int64(v))
		case opRem64:
			v, f := remS64(r[instr.s1].I64(), r[instr.s2].I64())
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I64(v)
		case opRemU64:
			v, f := remU64(uint64(r[instr.s1].I64()), uint64(r[instr.s2].I64()))
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I64(int64(v))
		case opNeg64:
			r[instr.dst] = I64(-r[instr.s1].I64())
		case opAnd64:
			r[instr.dst] = I64(int64(uint64(r[instr.s1].I64()) & uint64(r[instr.s2].I64())))
		case opOr64:
			r[instr.dst] = I64(int64(uint64(r[instr.s1].I64()) | uint64(r[instr.s2].I64())))
		case opXor64:
			r[instr.dst] = I64(int64(uint64(r[instr.s1].I64()) ^ uint64(r[instr.s2].I64())))
		case opShl64:
			r[instr.dst] = I64(int64(uint64(r[instr.s1].I64()) << shiftAmount64(uint64(r[instr.s2].I64()))))
		case opShr64:
			r[instr.dst] = I64(r[instr.s1].I64() >> shiftAmount64(uint64(r[instr.s2].I64())))
		case opShrU64:
			r[instr.dst] = I64(int64(uint64(r[instr.s1].I64()) >> shiftAmount64(uint64(r[instr.s2].I64()))))
		case opNot64:
			r[instr.dst] = I64(^r[instr.s1].I64())
		case opClz64:
			r[instr.dst] = I64(int64(clz64(uint64(r[instr.s1].I64()))))
		case opCtz64:
			r[instr.dst] = I64(int64(ctz64(uint64(r[instr.s1].I64()))))
		case opPopcnt64:
			r[instr.dst] = I64(int64(popcnt64(uint64(r[instr.s1].I64()))))

		case opFAdd32:
			r[instr.dst] = F32(r[instr.s1].F32() + r[instr.s2].F32())
		case opFSub32:
			r[instr.dst] = F32(r[instr.s1].F32() - r[instr.s2].F32())
		case opFMul32:
			r[instr.dst] = F32(r[instr.s1].F32() * r[instr.s2].F32())
		case opFDiv32:
			r[instr.dst] = F32(r[instr.s1].F32() / r[instr.s2].F32())
		case opFAbs32:
			r[instr.dst] = F32(float32(math.Abs(float64(r[instr.s1].F32()))))
		case opFNeg32:
			r[instr.dst] = F32(-r[instr.s1].F32())
		case opFSqrt32:
			r[instr.dst] = F32(float32(math.Sqrt(float64(r[instr.s1].F32()))))
		case opFMin32:
			r[instr.dst] = F32(float32(math.Min(float64(r[instr.s1].F32()), float64(r[instr.s2].F32()))))
		case opFMax32:
			r[instr.dst] = F32(float32(math.Max(float64(r[instr.s1].F32()), float64(r[instr.s2].F32()))))
		case opFFloor32:
			r[instr.dst] = F32(float32(math.Floor(float64(r[instr.s1].F32()))))
		case opFCeil32:
			r[instr.dst] = F32(float32(math.Ceil(float64(r[instr.s1].F32()))))
		case opFRound32:
			r[instr.dst] = F32(float32(math.Round(float64(r[instr.s1].F32()))))

		case opFAdd64:
			r[instr.dst] = F64(r[instr.s1].F64() + r[instr.s2].F64())
		case opFSub64:
			r[instr.dst] = F64(r[instr.s1].F64() - r[instr.s2].F64())
		case opFMul64:
			r[instr.dst] = F64(r[instr.s1].F64() * r[instr.s2].F64())
		case opFDiv64:
			r[instr.dst] = F64(r[instr.s1].F64() / r[instr.s2].F64())
		case opFAbs64:
			r[instr.dst] = F64(math.Abs(r[instr.s1].F64()))
		case opFNeg64:
			r[instr.dst] = F64(-r[instr.s1].F64())
		case opFSqrt64:
			r[instr.dst] = F64(math.Sqrt(r[instr.s1].F64()))
		case opFMin64:
			r[instr.dst] = F64(math.Min(r[instr.s1].F64(), r[instr.s2].F64()))
		case opFMax64:
			r[instr.dst] = F64(math.Max(r[instr.s1].F64(), r[instr.s2].F64()))
		case opFFloor64:
			r[instr.dst] = F64(math.Floor(r[instr.s1].F64()))
		case opFCeil64:
			r[instr.dst] = F64(math.Ceil(r[instr.s1].F64()))
		case opFRound64:
			r[instr.dst] = F64(math.Round(r[instr.s1].F64()))

		case opEq32:
			r[instr.dst] = Bool(r[instr.s1].I32() == r[instr.s2].I32())
		case opNe32:
			r[instr.dst] = Bool(r[instr.s1].I32() != r[instr.s2].I32())
		case opLt32:
			r[instr.dst] = Bool(r[instr.s1].I32() < r[instr.s2].I32())
		case opLe32:
			r[instr.dst] = Bool(r[instr.s1].I32() <= r[instr.s2].I32())
		case opGt32:
			r[instr.dst] = Bool(r[instr.s1].I32() > r[instr.s2].I32())
		case opGe32:
			r[instr.dst] = Bool(r[instr.s1].I32() >= r[instr.s2].I32())
		case opLtU32:
			r[instr.dst] = Bool(r[instr.s1].U32() < r[instr.s2].U32())
		case opLeU32:
			r[instr.dst] = Bool(r[instr.s1].U32() <= r[instr.s2].U32())
		case opGtU32:
			r[instr.dst] = Bool(r[instr.s1].U32() > r[instr.s2].U32())
		case opGeU32:
			r[instr.dst] = Bool(r[instr.s1].U32() >= r[instr.s2].U32())

		case opEq64:
			r[instr.dst] = Bool(r[instr.s1].I64() == r[instr.s2].I64())
		case opNe64:
			r[instr.dst] = Bool(r[instr.s1].I64() != r[instr.s2].I64())
		case opLt64:
			r[instr.dst] = Bool(r[instr.s1].I64() < r[instr.s2].I64())
		case opLe64:
			r[instr.dst] = Bool(r[instr.s1].I64() <= r[instr.s2].I64())
		case opGt64:
			r[instr.dst] = Bool(r[instr.s1].I64() > r[instr.s2].I64())
		case opGe64:
			r[instr.dst] = Bool(r[instr.s1].I64() >= r[instr.s2].I64())
		case opLtU64:
			r[instr.dst] = Bool(uint64(r[instr.s1].I64()) < uint64(r[instr.s2].I64()))
		case opLeU64:
			r[instr.dst] = Bool(uint64(r[instr.s1].I64()) <= uint64(r[instr.s2].I64()))
		case opGtU64:
			r[instr.dst] = Bool(uint64(r[instr.s1].I64()) > uint64(r[instr.s2].I64()))
		case opGeU64:
			r[instr.dst] = Bool(uint64(r[instr.s1].I64()) >= uint64(r[instr.s2].I64()))

		case opFEq32:
			r[instr.dst] = Bool(r[instr.s1].F32() == r[instr.s2].F32())
		case opFLt32:
			r[instr.dst] = Bool(r[instr.s1].F32() < r[instr.s2].F32())
		case opFEq64:
			r[instr.dst] = Bool(r[instr.s1].F64() == r[instr.s2].F64())
		case opFLt64:
			r[instr.dst] = Bool(r[instr.s1].F64() < r[instr.s2].F64())

		case opI32ToI64:
			r[instr.dst] = I64(signExtend32to64(r[instr.s1].I32()))
		case opU32ToI64:
			r[instr.dst] = I64(zeroExtend32to64(r[instr.s1].U32()))
		case opI64ToI32:
			r[instr.dst] = I32(truncate64to32(r[instr.s1].I64()))
		case opI32ToF32:
			r[instr.dst] = F32(float32(r[instr.s1].I32()))
		case opI32ToF64:
			r[instr.dst] = F64(float64(r[instr.s1].I32()))
		case opF32ToI32:
			r[instr.dst] = I32(saturateF32ToI32(r[instr.s1].F32()))
		case opF64ToI32:
			r[instr.dst] = I32(saturateF64ToI32(r[instr.s1].F64()))
		case opF32ToF64:
			r[instr.dst] = F64(float64(r[instr.s1].F32()))
		case opF64ToF32:
			r[instr.dst] = F32(float32(r[instr.s1].F64()))
		case opI64ToF64:
			r[instr.dst] = F64(float64(r[instr.s1].I64()))
		case opF64ToI64:
			r[instr.dst] = I64(saturateF64ToI64(r[instr.s1].F64()))
		case opBoolToI32:
			r[instr.dst] = I32(boolToI32(r[instr.s1].Bool()))

		case opLoad8, opLoad8S, opLoad16, opLoad16S, opLoad32, opLoad32S, opLoad64, opLoadF32, opLoadF64:
			mem, f := vm.mustMemory()
			if f != nil {
				return Void, f
			}
			addr := r[instr.s1].U32() + imm1
			switch instr.op {
			case opLoad8:
				v, f := mem.loadU8(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = I32(int32(v))
			case opLoad8S:
				v, f := mem.loadU8(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = I32(int32(int8(v)))
			case opLoad16:
				v, f := mem.loadU16(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = I32(int32(v))
			case opLoad16S:
				v, f := mem.loadU16(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = I32(int32(int16(v)))
			case opLoad32:
				v, f := mem.loadU32(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = I32(int32(v))
			case opLoad32S:
				v, f := mem.loadU32(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = I64(int64(int32(v)))
			case opLoad64:
				v, f := mem.loadU64(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = I64(int64(v))
			case opLoadF32:
				v, f := mem.loadU32(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = Value{Kind: KindF32, bits: uint64(v)}
			case opLoadF64:
				v, f := mem.loadU64(addr)
				if f != nil {
					return Void, f
				}
				r[instr.dst] = Value{Kind: KindF64, bits: v}
			}

		case opStore8, opStore16, opStore32, opStore64, opStoreF32, opStoreF64:
			mem, f := vm.mustMemory()
			if f != nil {
				return Void, f
			}
			addr := r[instr.s1].U32() + imm1
			var werr *Fault
			switch instr.op {
			case opStore8:
				werr = mem.storeU8(addr, byte(r[instr.dst].U32()))
			case opStore16:
				werr = mem.storeU16(addr, uint16(r[instr.dst].U32()))
			case opStore32:
				werr = mem.storeU32(addr, r[instr.dst].U32())
			case opStore64:
				werr = mem.storeU64(addr, uint64(r[instr.dst].I64()))
			case opStoreF32:
				werr = mem.storeU32(addr, uint32(r[instr.dst].Bits()))
			case opStoreF64:
				werr = mem.storeU64(addr, r[instr.dst].Bits())
			}
			if werr != nil {
				return Void, werr
			}

		case opMemSize:
			mem, f := vm.mustMemory()
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I32(int32(mem.size()))
		case opMemGrow:
			mem, f := vm.mustMemory()
			if f != nil {
				return Void, f
			}
			r[instr.dst] = I32(int32(mem.grow(r[instr.s1].U32())))
		case opMemCopy:
			mem, f := vm.mustMemory()
			if f != nil {
				return Void, f
			}
			if werr := mem.copyWithin(r[instr.dst].U32(), r[instr.s1].U32(), r[instr.s2].U32()); werr != nil {
				return Void, werr
			}
		case opMemFill:
			mem, f := vm.mustMemory()
			if f != nil {
				return Void, f
			}
			if werr := mem.fill(r[instr.dst].U32(), byte(r[instr.s1].U32()), r[instr.s2].U32()); werr != nil {
				return Void, werr
			}

		default:
			return Void, fault(BADOPCODE, "opcode %d not implemented in dispatch", instr.op)
		}
	}
}
