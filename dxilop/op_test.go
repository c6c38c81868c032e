// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package dxilop

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

func TestOP_FuncNames(t *testing.T) {
	tests := []struct {
		name     string
		code     OpCode
		overload types.Type
		want     string
	}{
		{"load input f32", OpLoadInput, types.Float, "dx.op.loadInput.f32"},
		{"load input i32", OpLoadInput, types.I32, "dx.op.loadInput.i32"},
		{"create handle", OpCreateHandle, types.Void, "dx.op.createHandle"},
		{"atomic i32", OpAtomicBinOp, types.I32, "dx.op.atomicBinOp.i32"},
		{"buffer load i32", OpBufferLoad, types.I32, "dx.op.bufferLoad.i32"},
		{"store output f16", OpStoreOutput, types.Half, "dx.op.storeOutput.f16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := New(ir.NewModule())
			f := op.Func(tt.code, tt.overload)
			if f.Name() != tt.want {
				t.Errorf("Func() name = %q, want %q", f.Name(), tt.want)
			}
			if !IsOpFunc(f) {
				t.Errorf("IsOpFunc(%s) = false", f.Name())
			}
		})
	}
}

func TestOP_FuncCached(t *testing.T) {
	m := ir.NewModule()
	op := New(m)

	a := op.Func(OpLoadInput, types.Float)
	b := op.Func(OpLoadInput, types.Float)
	c := op.Func(OpLoadInput, types.I32)
	if a != b {
		t.Errorf("same (opcode, overload) produced two declarations")
	}
	if a == c {
		t.Errorf("different overloads share a declaration")
	}
	if len(m.Funcs) != 2 {
		t.Errorf("module has %d functions, want 2", len(m.Funcs))
	}

	// A fresh table over the same module reuses the declarations.
	op2 := New(m)
	if op2.Func(OpLoadInput, types.Float) != a {
		t.Errorf("existing declaration not reused")
	}
	if len(m.Funcs) != 2 {
		t.Errorf("module has %d functions after reuse, want 2", len(m.Funcs))
	}
}

func TestOP_Signatures(t *testing.T) {
	op := New(ir.NewModule())

	h := op.Func(OpCreateHandle, types.Void)
	if got := len(h.Params); got != 5 {
		t.Errorf("createHandle params = %d, want 5", got)
	}
	if h.Sig.RetType != op.HandleType() {
		t.Errorf("createHandle returns %v, want handle", h.Sig.RetType)
	}

	a := op.Func(OpAtomicBinOp, types.I32)
	if got := len(a.Params); got != 7 {
		t.Errorf("atomicBinOp params = %d, want 7", got)
	}

	l := op.Func(OpBufferLoad, types.I32)
	st, ok := l.Sig.RetType.(*types.StructType)
	if !ok || len(st.Fields) != 5 {
		t.Errorf("bufferLoad return type = %v, want 5-field ResRet", l.Sig.RetType)
	}
	if op.ResRetType(types.I32) != l.Sig.RetType {
		t.Errorf("ResRetType not shared")
	}
}

func TestOP_OpCodeOf(t *testing.T) {
	m := ir.NewModule()
	op := New(m)
	fn := m.NewFunc("main", types.Void)
	b := fn.NewBlock("")
	call := b.NewCall(op.Func(OpLoadInput, types.Float),
		Opcode(OpLoadInput), I32(0), I32(0), I8(0), I32(0))
	b.NewRet(nil)

	code, ok := OpCodeOf(call)
	if !ok || code != OpLoadInput {
		t.Errorf("OpCodeOf() = %v, %v; want loadInput", code, ok)
	}
}

func TestOP_OverloadRequired(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("overloaded opcode with void overload did not panic")
		}
	}()
	New(ir.NewModule()).Func(OpAtomicBinOp, types.Void)
}

func TestOpCode_String(t *testing.T) {
	if got := OpAtomicBinOp.String(); got != "atomicBinOp" {
		t.Errorf("String() = %q", got)
	}
	if got := OpCode(9999).String(); got != "OpCode(9999)" {
		t.Errorf("String() = %q", got)
	}
}
