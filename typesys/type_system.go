// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package typesys attaches layout and semantic annotations to aggregate
// types and function signatures of an LLVM module.
//
// The annotations live beside the graph rather than inside it: a struct
// annotation is keyed by the *types.StructType it describes and a function
// annotation by its *ir.Func. Both keys are non-owning; an annotation never
// outlives the module that owns the annotated type or function.
//
// Contract violations (adding an annotation twice, erasing one that does not
// exist) panic. Lookups that miss return nil.
package typesys

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// StructAnnotation describes the fields of one aggregate type.
type StructAnnotation struct {
	structType  *types.StructType
	fields      []FieldAnnotation
	cbufferSize uint32
}

// StructType returns the annotated aggregate.
func (a *StructAnnotation) StructType() *types.StructType { return a.structType }

// NumFields returns the number of field annotations.
func (a *StructAnnotation) NumFields() int { return len(a.fields) }

// Field returns the annotation of field i.
func (a *StructAnnotation) Field(i int) *FieldAnnotation { return &a.fields[i] }

// CBufferSize returns the size of the struct in a constant buffer.
func (a *StructAnnotation) CBufferSize() uint32 { return a.cbufferSize }

// SetCBufferSize records the size of the struct in a constant buffer.
func (a *StructAnnotation) SetCBufferSize(n uint32) { a.cbufferSize = n }

// MarkEmptyStruct drops every field annotation. Used for structs that carry
// no data in the constant buffer layout.
func (a *StructAnnotation) MarkEmptyStruct() { a.fields = a.fields[:0] }

// IsEmptyStruct reports whether MarkEmptyStruct was applied.
func (a *StructAnnotation) IsEmptyStruct() bool { return len(a.fields) == 0 }

// FunctionAnnotation describes the parameters and return value of one function.
type FunctionAnnotation struct {
	function *ir.Func
	params   []ParameterAnnotation
	ret      ParameterAnnotation
	fpFlag   FPFlag
}

// Function returns the annotated function.
func (a *FunctionAnnotation) Function() *ir.Func { return a.function }

// NumParameters returns the number of parameter annotations.
func (a *FunctionAnnotation) NumParameters() int { return len(a.params) }

// Parameter returns the annotation of parameter i.
func (a *FunctionAnnotation) Parameter(i int) *ParameterAnnotation { return &a.params[i] }

// Return returns the annotation of the return value.
func (a *FunctionAnnotation) Return() *ParameterAnnotation { return &a.ret }

// FPFlag returns the floating-point denormal flags of the function.
func (a *FunctionAnnotation) FPFlag() FPFlag { return a.fpFlag }

// SetFPFlag replaces the floating-point denormal flags of the function.
func (a *FunctionAnnotation) SetFPFlag(f FPFlag) { a.fpFlag = f }

// TypeSystem owns the struct and function annotations of one module.
// Iteration order is insertion order.
type TypeSystem struct {
	structs     map[*types.StructType]*StructAnnotation
	structOrder []*types.StructType
	funcs       map[*ir.Func]*FunctionAnnotation
	funcOrder   []*ir.Func
}

// New creates an empty type system.
func New() *TypeSystem {
	return &TypeSystem{
		structs: make(map[*types.StructType]*StructAnnotation),
		funcs:   make(map[*ir.Func]*FunctionAnnotation),
	}
}

// AddStructAnnotation creates the annotation for st, sized to its field count.
// It panics if st is already annotated.
func (ts *TypeSystem) AddStructAnnotation(st *types.StructType) *StructAnnotation {
	if _, ok := ts.structs[st]; ok {
		panic(fmt.Sprintf("typesys: struct %s already annotated", st.Name()))
	}
	a := &StructAnnotation{
		structType: st,
		fields:     make([]FieldAnnotation, len(st.Fields)),
	}
	for i := range a.fields {
		a.fields[i] = NewFieldAnnotation()
	}
	ts.structs[st] = a
	ts.structOrder = append(ts.structOrder, st)
	return a
}

// GetStructAnnotation returns the annotation of st, or nil.
func (ts *TypeSystem) GetStructAnnotation(st *types.StructType) *StructAnnotation {
	return ts.structs[st]
}

// EraseStructAnnotation removes the annotation of st. It panics if absent.
func (ts *TypeSystem) EraseStructAnnotation(st *types.StructType) {
	if _, ok := ts.structs[st]; !ok {
		panic(fmt.Sprintf("typesys: struct %s has no annotation", st.Name()))
	}
	delete(ts.structs, st)
	for i, k := range ts.structOrder {
		if k == st {
			ts.structOrder = append(ts.structOrder[:i], ts.structOrder[i+1:]...)
			break
		}
	}
}

// StructAnnotations returns every struct annotation in insertion order.
func (ts *TypeSystem) StructAnnotations() []*StructAnnotation {
	out := make([]*StructAnnotation, 0, len(ts.structOrder))
	for _, st := range ts.structOrder {
		out = append(out, ts.structs[st])
	}
	return out
}

// AddFunctionAnnotation creates the annotation for f with an all-IEEE
// floating point flag. It panics if f is already annotated.
func (ts *TypeSystem) AddFunctionAnnotation(f *ir.Func) *FunctionAnnotation {
	return ts.AddFunctionAnnotationWithFPFlag(f, 0)
}

// AddFunctionAnnotationWithFPFlag is AddFunctionAnnotation with an explicit
// denormal flag.
func (ts *TypeSystem) AddFunctionAnnotationWithFPFlag(f *ir.Func, flag FPFlag) *FunctionAnnotation {
	if _, ok := ts.funcs[f]; ok {
		panic(fmt.Sprintf("typesys: function %s already annotated", f.Name()))
	}
	a := &FunctionAnnotation{
		function: f,
		params:   make([]ParameterAnnotation, len(f.Params)),
		ret:      NewParameterAnnotation(),
		fpFlag:   flag,
	}
	for i := range a.params {
		a.params[i] = NewParameterAnnotation()
	}
	ts.funcs[f] = a
	ts.funcOrder = append(ts.funcOrder, f)
	return a
}

// GetFunctionAnnotation returns the annotation of f, or nil.
func (ts *TypeSystem) GetFunctionAnnotation(f *ir.Func) *FunctionAnnotation {
	return ts.funcs[f]
}

// EraseFunctionAnnotation removes the annotation of f. It panics if absent.
func (ts *TypeSystem) EraseFunctionAnnotation(f *ir.Func) {
	if _, ok := ts.funcs[f]; !ok {
		panic(fmt.Sprintf("typesys: function %s has no annotation", f.Name()))
	}
	delete(ts.funcs, f)
	for i, k := range ts.funcOrder {
		if k == f {
			ts.funcOrder = append(ts.funcOrder[:i], ts.funcOrder[i+1:]...)
			break
		}
	}
}

// FunctionAnnotations returns every function annotation in insertion order.
func (ts *TypeSystem) FunctionAnnotations() []*FunctionAnnotation {
	out := make([]*FunctionAnnotation, 0, len(ts.funcOrder))
	for _, f := range ts.funcOrder {
		out = append(out, ts.funcs[f])
	}
	return out
}

// CopyTypeAnnotation copies the annotation of the aggregate underlying t
// from src, together with the annotations of its nested field types.
// Pointer, array and vector wrappers are looked through. Types already
// annotated in ts are left alone.
func (ts *TypeSystem) CopyTypeAnnotation(t types.Type, src *TypeSystem) {
	if pt, ok := t.(*types.PointerType); ok {
		t = pt.ElemType
	}
	for {
		switch wrapped := t.(type) {
		case *types.ArrayType:
			t = wrapped.ElemType
			continue
		case *types.VectorType:
			t = wrapped.ElemType
			continue
		}
		break
	}

	st, ok := t.(*types.StructType)
	if !ok {
		return
	}
	if ts.GetStructAnnotation(st) != nil {
		return
	}
	srcAnnot := src.GetStructAnnotation(st)
	if srcAnnot == nil {
		return
	}

	dst := ts.AddStructAnnotation(st)
	dst.cbufferSize = srcAnnot.cbufferSize
	dst.fields = append(dst.fields[:0], srcAnnot.fields...)

	for _, field := range st.Fields {
		ts.CopyTypeAnnotation(field, src)
	}
}

// CopyFunctionAnnotation copies the annotation of srcFn in src to dstFn in
// ts, along with the annotations of every aggregate its signature reaches.
// Nothing happens if src has no annotation for srcFn or ts already has one
// for dstFn.
func (ts *TypeSystem) CopyFunctionAnnotation(dstFn, srcFn *ir.Func, src *TypeSystem) {
	srcAnnot := src.GetFunctionAnnotation(srcFn)
	if srcAnnot == nil {
		return
	}
	if ts.GetFunctionAnnotation(dstFn) != nil {
		return
	}

	dst := ts.AddFunctionAnnotationWithFPFlag(dstFn, srcAnnot.fpFlag)
	dst.ret = srcAnnot.ret.clone()
	dst.params = dst.params[:0]
	for _, p := range srcAnnot.params {
		dst.params = append(dst.params, p.clone())
	}

	ts.CopyTypeAnnotation(srcFn.Sig.RetType, src)
	for _, p := range srcFn.Params {
		ts.CopyTypeAnnotation(p.Typ, src)
	}
}
