// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"github.com/llir/llvm/ir/value"

	"github.com/gogpu/dxil/typesys"
)

// ResourceClass is the binding class of a resource. The order matches the
// DXIL encoding used by createHandle.
type ResourceClass uint8

const (
	ClassSRV ResourceClass = iota
	ClassUAV
	ClassCBuffer
	ClassSampler
	ClassInvalid
)

// String returns the class name.
func (c ResourceClass) String() string {
	switch c {
	case ClassSRV:
		return "SRV"
	case ClassUAV:
		return "UAV"
	case ClassCBuffer:
		return "CBuffer"
	case ClassSampler:
		return "Sampler"
	default:
		return "Invalid"
	}
}

// RegisterPrefix returns the HLSL register letter of the class.
func (c ResourceClass) RegisterPrefix() string {
	switch c {
	case ClassSRV:
		return "t"
	case ClassUAV:
		return "u"
	case ClassCBuffer:
		return "b"
	case ClassSampler:
		return "s"
	default:
		return "?"
	}
}

// ResourceKind is the shape of a resource.
type ResourceKind uint8

const (
	KindInvalid ResourceKind = iota
	KindTexture1D
	KindTexture2D
	KindTexture2DMS
	KindTexture3D
	KindTextureCube
	KindTexture1DArray
	KindTexture2DArray
	KindTexture2DMSArray
	KindTextureCubeArray
	KindTypedBuffer
	KindRawBuffer
	KindStructuredBuffer
	KindCBuffer
	KindSampler
	KindTBuffer
)

// IsStructuredBuffer reports whether k is a structured buffer.
func (k ResourceKind) IsStructuredBuffer() bool { return k == KindStructuredBuffer }

// IsTexture reports whether k is one of the texture kinds.
func (k ResourceKind) IsTexture() bool {
	return k >= KindTexture1D && k <= KindTextureCubeArray
}

// SamplerKind distinguishes default, comparison and mono samplers.
type SamplerKind uint8

const (
	SamplerDefault SamplerKind = iota
	SamplerComparison
	SamplerMono
	SamplerInvalid
)

// ResourceBase holds the fields shared by every resource table entry.
// ID always equals the entry's position in its table.
type ResourceBase struct {
	ID    uint32
	Class ResourceClass
	Kind  ResourceKind

	// Symbol is the graph value standing for the resource: a global
	// variable, or an undef pointer for resources synthesised by passes.
	Symbol value.Value

	// Name is the HLSL-level name of the resource.
	Name string

	Space      uint32
	LowerBound uint32
	RangeSize  uint32
}

func (r *ResourceBase) base() *ResourceBase { return r }

// IsUnbounded reports whether the resource binds an unbounded range.
func (r *ResourceBase) IsUnbounded() bool { return r.RangeSize == ^uint32(0) }

// UpperBound returns the last register covered by the resource.
func (r *ResourceBase) UpperBound() uint32 {
	if r.IsUnbounded() {
		return ^uint32(0)
	}
	return r.LowerBound + r.RangeSize - 1
}

// CBuffer is a constant buffer binding.
type CBuffer struct {
	ResourceBase
	// Size is the buffer size in bytes.
	Size uint32
}

// Sampler is a sampler binding.
type Sampler struct {
	ResourceBase
	SamplerKind SamplerKind
}

// Resource is a shader resource view or unordered access view.
type Resource struct {
	ResourceBase

	// CompType is the element type of typed buffers and textures.
	CompType typesys.CompType

	// SampleCount applies to multisampled textures.
	SampleCount uint32

	// ElementStride is the element size of structured buffers.
	ElementStride uint32

	// UAV-only properties.
	GloballyCoherent bool
	HasCounter       bool
	ROV              bool
}

// IsUAV reports whether r is an unordered access view.
func (r *Resource) IsUAV() bool { return r.Class == ClassUAV }

// resourceEntry is implemented by every table element type.
type resourceEntry interface {
	base() *ResourceBase
}

// appendResource appends r to table and assigns its id.
func appendResource[T resourceEntry](table []T, r T) ([]T, uint32) {
	if uint64(len(table)) >= uint64(^uint32(0)) {
		panic("hlmodule: resource table full")
	}
	id := uint32(len(table))
	r.base().ID = id
	return append(table, r), id
}

// removeResource erases the entry whose symbol is sym and renumbers the
// entries after it so that ID keeps matching the position.
func removeResource[T resourceEntry](table []T, sym value.Value) ([]T, bool) {
	for i, r := range table {
		if r.base().Symbol != sym {
			continue
		}
		table = append(table[:i], table[i+1:]...)
		for _, rest := range table[i:] {
			rest.base().ID--
		}
		return table, true
	}
	return table, false
}
