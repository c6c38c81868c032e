// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"github.com/llir/llvm/ir"

	"github.com/gogpu/dxil/shadermodel"
)

// InputPrimitive is the primitive a geometry shader consumes.
type InputPrimitive uint32

const (
	InputPrimitiveUndefined InputPrimitive = iota
	InputPrimitivePoint
	InputPrimitiveLine
	InputPrimitiveTriangle
	InputPrimitiveLineWithAdjacency
	InputPrimitiveTriangleWithAdjacency
)

// PrimitiveTopology is the output topology of a geometry stream.
type PrimitiveTopology uint32

const (
	TopologyUndefined     PrimitiveTopology = 0
	TopologyPointList     PrimitiveTopology = 1
	TopologyLineStrip     PrimitiveTopology = 3
	TopologyTriangleStrip PrimitiveTopology = 5
)

// TessDomain is the patch domain of hull and domain shaders.
type TessDomain uint32

const (
	DomainUndefined TessDomain = iota
	DomainIsoLine
	DomainTri
	DomainQuad
)

// TessPartitioning is the tessellator partitioning mode.
type TessPartitioning uint32

const (
	PartitionUndefined TessPartitioning = iota
	PartitionInteger
	PartitionPow2
	PartitionFractionalOdd
	PartitionFractionalEven
)

// TessOutputPrimitive is the primitive produced by the tessellator.
type TessOutputPrimitive uint32

const (
	TessOutputUndefined TessOutputPrimitive = iota
	TessOutputPoint
	TessOutputLine
	TessOutputTriangleCW
	TessOutputTriangleCCW
)

// FunctionProps holds the stage-specific properties of a shader function.
// Only the block matching Kind is meaningful.
type FunctionProps struct {
	Kind shadermodel.Kind

	CS struct {
		NumThreads [3]uint32
	}
	GS struct {
		InputPrimitive InputPrimitive
		MaxVertexCount uint32
		InstanceCount  uint32
		StreamTopology [4]PrimitiveTopology
	}
	HS struct {
		PatchConstantFunc   *ir.Func
		Domain              TessDomain
		Partition           TessPartitioning
		OutputPrimitive     TessOutputPrimitive
		InputControlPoints  uint32
		OutputControlPoints uint32
		MaxTessFactor       float32
	}
	DS struct {
		Domain             TessDomain
		InputControlPoints uint32
	}
	PS struct {
		EarlyDepthStencil bool
	}
}

// entryProps returns the properties of the entry function, creating them
// for the module's stage on first use.
func (hm *Module) entryProps() *FunctionProps {
	if p := hm.fnProps[hm.entry]; p != nil {
		return p
	}
	p := &FunctionProps{Kind: hm.sm.Kind()}
	hm.SetFunctionProps(hm.entry, p)
	return p
}

// SetEarlyDepthStencil forces early depth and stencil testing for a pixel
// entry point.
func (hm *Module) SetEarlyDepthStencil() {
	hm.flags |= FlagForceEarlyDepthStencil
	if hm.entry != nil && hm.sm != nil && hm.sm.IsPS() {
		hm.entryProps().PS.EarlyDepthStencil = true
	}
}
