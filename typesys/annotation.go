// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package typesys

import (
	"math"

	"github.com/llir/llvm/ir/metadata"
)

// CompType is the semantic scalar kind of a field or signature element.
type CompType uint8

const (
	CompInvalid CompType = iota
	CompI1
	CompI16
	CompU16
	CompI32
	CompU32
	CompI64
	CompU64
	CompF16
	CompF32
	CompF64
	CompSNormF16
	CompUNormF16
	CompSNormF32
	CompUNormF32
	CompSNormF64
	CompUNormF64
)

// InterpolationMode selects how a pixel shader input is interpolated.
type InterpolationMode uint8

const (
	InterpUndefined InterpolationMode = iota
	InterpConstant
	InterpLinear
	InterpLinearCentroid
	InterpLinearNoperspective
	InterpLinearNoperspectiveCentroid
	InterpLinearSample
	InterpLinearNoperspectiveSample
	InterpInvalid
)

// MatrixOrientation is the storage order of a matrix field.
type MatrixOrientation uint8

const (
	MatrixUndefined MatrixOrientation = iota
	MatrixRowMajor
	MatrixColumnMajor
)

// MatrixAnnotation records the shape of a matrix-typed field or parameter.
type MatrixAnnotation struct {
	Rows        uint32
	Cols        uint32
	Orientation MatrixOrientation
}

// InputQualifier is the HLSL parameter qualifier of a function argument.
type InputQualifier uint8

const (
	QualIn InputQualifier = iota
	QualOut
	QualInout
	QualInputPatch
	QualOutputPatch
	QualOutStream0
	QualOutStream1
	QualOutStream2
	QualOutStream3
	QualInputPrimitive
)

// noOffset marks an unset cbuffer offset.
const noOffset = math.MaxUint32

// FieldAnnotation carries layout and semantic information for one
// aggregate field. The zero value is not ready for use; NewFieldAnnotation
// returns an annotation with every property unset.
type FieldAnnotation struct {
	precise       bool
	resAttr       *metadata.Tuple
	cbufferOffset uint32
	compType      CompType
	semantic      string
	interpMode    InterpolationMode
	fieldName     string
	matrix        MatrixAnnotation
}

// NewFieldAnnotation returns an annotation with all properties unset.
func NewFieldAnnotation() FieldAnnotation {
	return FieldAnnotation{
		cbufferOffset: noOffset,
		interpMode:    InterpInvalid,
	}
}

// IsPrecise reports whether the field is marked precise.
func (a *FieldAnnotation) IsPrecise() bool { return a.precise }

// SetPrecise marks the field precise.
func (a *FieldAnnotation) SetPrecise(b bool) { a.precise = b }

// HasMatrix reports whether the field carries a matrix layout.
func (a *FieldAnnotation) HasMatrix() bool { return a.matrix.Orientation != MatrixUndefined }

// Matrix returns the matrix layout of the field.
func (a *FieldAnnotation) Matrix() MatrixAnnotation { return a.matrix }

// SetMatrix records the matrix layout of the field.
func (a *FieldAnnotation) SetMatrix(m MatrixAnnotation) { a.matrix = m }

// HasResourceAttribute reports whether the field denotes a resource.
func (a *FieldAnnotation) HasResourceAttribute() bool { return a.resAttr != nil }

// ResourceAttribute returns the opaque resource description node, or nil.
func (a *FieldAnnotation) ResourceAttribute() *metadata.Tuple { return a.resAttr }

// SetResourceAttribute attaches the resource description node.
func (a *FieldAnnotation) SetResourceAttribute(node *metadata.Tuple) { a.resAttr = node }

// HasCBufferOffset reports whether a constant buffer offset was set.
func (a *FieldAnnotation) HasCBufferOffset() bool { return a.cbufferOffset != noOffset }

// CBufferOffset returns the byte offset in the constant buffer.
func (a *FieldAnnotation) CBufferOffset() uint32 { return a.cbufferOffset }

// SetCBufferOffset records the byte offset in the constant buffer.
func (a *FieldAnnotation) SetCBufferOffset(o uint32) { a.cbufferOffset = o }

// HasCompType reports whether a component type was set.
func (a *FieldAnnotation) HasCompType() bool { return a.compType != CompInvalid }

// CompType returns the component type of the field.
func (a *FieldAnnotation) CompType() CompType { return a.compType }

// SetCompType records the component type of the field.
func (a *FieldAnnotation) SetCompType(c CompType) { a.compType = c }

// HasSemanticString reports whether the field has a semantic.
func (a *FieldAnnotation) HasSemanticString() bool { return a.semantic != "" }

// SemanticString returns the semantic, such as "SV_Position".
func (a *FieldAnnotation) SemanticString() string { return a.semantic }

// SetSemanticString records the semantic of the field.
func (a *FieldAnnotation) SetSemanticString(s string) { a.semantic = s }

// HasInterpolationMode reports whether an interpolation mode was set.
func (a *FieldAnnotation) HasInterpolationMode() bool { return a.interpMode != InterpInvalid }

// InterpolationMode returns the interpolation mode of the field.
func (a *FieldAnnotation) InterpolationMode() InterpolationMode { return a.interpMode }

// SetInterpolationMode records the interpolation mode of the field.
func (a *FieldAnnotation) SetInterpolationMode(m InterpolationMode) { a.interpMode = m }

// HasFieldName reports whether the field has a name.
func (a *FieldAnnotation) HasFieldName() bool { return a.fieldName != "" }

// FieldName returns the source name of the field.
func (a *FieldAnnotation) FieldName() string { return a.fieldName }

// SetFieldName records the source name of the field.
func (a *FieldAnnotation) SetFieldName(n string) { a.fieldName = n }

// ParameterAnnotation extends FieldAnnotation with the argument qualifier
// and the semantic indices of a function parameter or return value.
type ParameterAnnotation struct {
	FieldAnnotation
	inputQual       InputQualifier
	semanticIndices []uint32
}

// NewParameterAnnotation returns an "in" parameter with all properties unset.
func NewParameterAnnotation() ParameterAnnotation {
	return ParameterAnnotation{FieldAnnotation: NewFieldAnnotation()}
}

// InputQualifier returns how the argument is passed, such as in or out.
func (a *ParameterAnnotation) InputQualifier() InputQualifier { return a.inputQual }

// SetInputQualifier records how the argument is passed.
func (a *ParameterAnnotation) SetInputQualifier(q InputQualifier) { a.inputQual = q }

// SemanticIndices returns the semantic index list. The slice is owned by
// the annotation.
func (a *ParameterAnnotation) SemanticIndices() []uint32 { return a.semanticIndices }

// SetSemanticIndices replaces the semantic index list with a copy of idx.
func (a *ParameterAnnotation) SetSemanticIndices(idx []uint32) {
	a.semanticIndices = append([]uint32(nil), idx...)
}

// AppendSemanticIndex adds idx to the end of the semantic index list.
func (a *ParameterAnnotation) AppendSemanticIndex(idx uint32) {
	a.semanticIndices = append(a.semanticIndices, idx)
}

// clone returns a copy that shares no slice storage with a.
func (a ParameterAnnotation) clone() ParameterAnnotation {
	a.semanticIndices = append([]uint32(nil), a.semanticIndices...)
	return a
}
