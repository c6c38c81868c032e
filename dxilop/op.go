// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package dxilop

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// Named types shared by DXIL operations.
const (
	HandleTypeName = "dx.types.Handle"
	resRetPrefix   = "dx.types.ResRet."
)

type funcKey struct {
	op       OpCode
	overload string
}

// OP hands out DXIL operation declarations for one module.
type OP struct {
	module *ir.Module
	funcs  map[funcKey]*ir.Func
	named  map[string]types.Type
}

// New creates the operation table of m. Declarations already present in m,
// for instance after a reload, are reused.
func New(m *ir.Module) *OP {
	return &OP{
		module: m,
		funcs:  make(map[funcKey]*ir.Func),
		named:  make(map[string]types.Type),
	}
}

// Module returns the module the declarations are added to.
func (op *OP) Module() *ir.Module { return op.module }

// OverloadName returns the function name suffix for t ("i32", "f32", ...).
// Void yields the empty string.
func OverloadName(t types.Type) string {
	switch t := t.(type) {
	case *types.VoidType:
		return ""
	case *types.IntType:
		return fmt.Sprintf("i%d", t.BitSize)
	case *types.FloatType:
		switch t.Kind {
		case types.FloatKindHalf:
			return "f16"
		case types.FloatKindFloat:
			return "f32"
		case types.FloatKindDouble:
			return "f64"
		}
	}
	panic(fmt.Sprintf("dxilop: no overload name for type %v", t))
}

// Func returns the declaration of code specialised for overload, creating
// it on first use.
func (op *OP) Func(code OpCode, overload types.Type) *ir.Func {
	if _, ok := opTable[code]; !ok {
		panic(fmt.Sprintf("dxilop: unknown opcode %d", uint32(code)))
	}
	suffix := OverloadName(overload)
	key := funcKey{op: code, overload: suffix}
	if f, ok := op.funcs[key]; ok {
		return f
	}

	name := FuncPrefix + code.String()
	if code.IsOverloaded() {
		if suffix == "" {
			panic(fmt.Sprintf("dxilop: %s requires an overload type", code))
		}
		name += "." + suffix
	}

	f := op.lookupFunc(name)
	if f == nil {
		ret, params := op.signature(code, overload)
		ps := make([]*ir.Param, len(params))
		for i, p := range params {
			ps[i] = ir.NewParam("", p)
		}
		f = op.module.NewFunc(name, ret, ps...)
	}
	op.funcs[key] = f
	return f
}

func (op *OP) lookupFunc(name string) *ir.Func {
	for _, f := range op.module.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// signature derives the callee type of code for overload.
func (op *OP) signature(code OpCode, overload types.Type) (types.Type, []types.Type) {
	i32 := types.I32
	switch code {
	case OpLoadInput:
		// opcode, input id, row, column, vertex index
		return overload, []types.Type{i32, i32, i32, types.I8, i32}
	case OpStoreOutput:
		// opcode, output id, row, column, value
		return types.Void, []types.Type{i32, i32, i32, types.I8, overload}
	case OpCreateHandle:
		// opcode, resource class, range id, index, non-uniform
		return op.HandleType(), []types.Type{i32, types.I8, i32, i32, types.I1}
	case OpBufferLoad:
		// opcode, handle, index, byte offset
		return op.ResRetType(overload), []types.Type{i32, op.HandleType(), i32, i32}
	case OpBufferStore:
		// opcode, handle, index, byte offset, four values, write mask
		return types.Void, []types.Type{i32, op.HandleType(), i32, i32,
			overload, overload, overload, overload, types.I8}
	case OpAtomicBinOp:
		// opcode, handle, atomic op, three coordinates, value
		return overload, []types.Type{i32, op.HandleType(), i32, i32, i32, i32, overload}
	}
	panic(fmt.Sprintf("dxilop: no signature for %s", code))
}

// HandleType returns %dx.types.Handle, the opaque resource handle type.
func (op *OP) HandleType() types.Type {
	return op.namedStruct(HandleTypeName, types.I8Ptr)
}

// ResRetType returns %dx.types.ResRet.<elem>: four values and a status word.
func (op *OP) ResRetType(elem types.Type) types.Type {
	return op.namedStruct(resRetPrefix+OverloadName(elem), elem, elem, elem, elem, types.I32)
}

func (op *OP) namedStruct(name string, fields ...types.Type) types.Type {
	if t, ok := op.named[name]; ok {
		return t
	}
	for _, t := range op.module.TypeDefs {
		if t.Name() == name {
			op.named[name] = t
			return t
		}
	}
	t := op.module.NewTypeDef(name, types.NewStruct(fields...))
	op.named[name] = t
	return t
}

// I32 returns an i32 constant.
func I32(v uint32) *constant.Int { return constant.NewInt(types.I32, int64(v)) }

// I8 returns an i8 constant.
func I8(v uint8) *constant.Int { return constant.NewInt(types.I8, int64(v)) }

// I1 returns an i1 constant.
func I1(v bool) *constant.Int { return constant.NewBool(v) }

// Opcode returns the first argument of every call to code.
func Opcode(code OpCode) *constant.Int { return I32(uint32(code)) }

// IsOpFunc reports whether f is a DXIL operation declaration.
func IsOpFunc(f *ir.Func) bool {
	return strings.HasPrefix(f.Name(), FuncPrefix)
}

// OpCodeOf returns the opcode of a call to a DXIL operation.
func OpCodeOf(call *ir.InstCall) (OpCode, bool) {
	f, ok := call.Callee.(*ir.Func)
	if !ok || !IsOpFunc(f) || len(call.Args) == 0 {
		return 0, false
	}
	c, ok := call.Args[0].(*constant.Int)
	if !ok {
		return 0, false
	}
	return OpCode(c.X.Uint64()), true
}
