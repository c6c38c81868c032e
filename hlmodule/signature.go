// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"github.com/gogpu/dxil/shadermodel"
	"github.com/gogpu/dxil/typesys"
)

// SemanticKind identifies system-value semantics. Arbitrary covers every
// user-defined semantic.
type SemanticKind uint8

const (
	SemanticArbitrary SemanticKind = iota
	SemanticVertexID
	SemanticInstanceID
	SemanticPosition
	SemanticRenderTargetArrayIndex
	SemanticViewPortArrayIndex
	SemanticClipDistance
	SemanticCullDistance
	SemanticOutputControlPointID
	SemanticDomainLocation
	SemanticPrimitiveID
	SemanticGSInstanceID
	SemanticSampleIndex
	SemanticIsFrontFace
	SemanticCoverage
	SemanticInnerCoverage
	SemanticTarget
	SemanticDepth
	SemanticDepthLessEqual
	SemanticDepthGreaterEqual
	SemanticStencilRef
	SemanticDispatchThreadID
	SemanticGroupID
	SemanticGroupIndex
	SemanticGroupThreadID
	SemanticTessFactor
	SemanticInsideTessFactor
	SemanticViewID
	SemanticBarycentrics
	SemanticInvalid
)

// SignatureElement is one input or output slot of an entry point.
type SignatureElement struct {
	// ID is the element's position in its signature.
	ID uint32

	// Name is the semantic name, e.g. "SV_Position" or "TEXCOORD".
	Name          string
	SemanticIndex []uint32
	Kind          SemanticKind
	CompType      typesys.CompType
	Interpolation typesys.InterpolationMode
	SigPoint      typesys.SigPointKind

	Rows uint32
	Cols uint32

	// StartRow is -1 until the element has been packed.
	StartRow int32
	StartCol int32
}

// Signature is an ordered list of elements.
type Signature struct {
	Elements []*SignatureElement
}

// AppendElement adds e to the signature and returns its id.
func (s *Signature) AppendElement(e *SignatureElement) uint32 {
	e.ID = uint32(len(s.Elements))
	s.Elements = append(s.Elements, e)
	return e.ID
}

// FindKind returns the first element with the given semantic kind, or nil.
func (s *Signature) FindKind(kind SemanticKind) *SignatureElement {
	for _, e := range s.Elements {
		if e.Kind == kind {
			return e
		}
	}
	return nil
}

// Len returns the number of elements.
func (s *Signature) Len() int { return len(s.Elements) }

type sigKind uint8

const (
	sigInput sigKind = iota
	sigOutput
	sigPatchConstant
)

var stageSigPoints = map[shadermodel.Kind][3]typesys.SigPointKind{
	shadermodel.KindVertex:   {typesys.SigPointVSIn, typesys.SigPointVSOut, typesys.SigPointInvalid},
	shadermodel.KindPixel:    {typesys.SigPointPSIn, typesys.SigPointPSOut, typesys.SigPointInvalid},
	shadermodel.KindGeometry: {typesys.SigPointGSVIn, typesys.SigPointGSOut, typesys.SigPointInvalid},
	shadermodel.KindHull:     {typesys.SigPointHSCPIn, typesys.SigPointHSCPOut, typesys.SigPointPCOut},
	shadermodel.KindDomain:   {typesys.SigPointDSCPIn, typesys.SigPointDSOut, typesys.SigPointDSIn},
	shadermodel.KindCompute:  {typesys.SigPointCSIn, typesys.SigPointInvalid, typesys.SigPointInvalid},
}

// sigPointOf returns where a signature of the given kind lives for a stage.
func sigPointOf(stage shadermodel.Kind, which sigKind) typesys.SigPointKind {
	if points, ok := stageSigPoints[stage]; ok {
		return points[which]
	}
	return typesys.SigPointInvalid
}
