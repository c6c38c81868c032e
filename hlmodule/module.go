// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package hlmodule implements the high-level shader module.
//
// A Module wraps an LLVM module from github.com/llir/llvm and owns the
// shader-level view of it: shader model, entry point, signatures, resource
// tables, type annotations, per-function properties and packed options.
// EmitHLMetadata writes that view into the named metadata of the wrapped
// module; Load reads it back.
//
// Resource ids are dense. Each table entry's ID equals its position and
// RemoveResources renumbers the entries that follow a removed one, so passes
// must not hold on to ids across a removal.
package hlmodule

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/gogpu/dxil/dxilop"
	"github.com/gogpu/dxil/shadermodel"
	"github.com/gogpu/dxil/typesys"
)

// Validator version written when none has been set.
const (
	DefaultValidatorMajor = 1
	DefaultValidatorMinor = 2
)

type resTypeAnnotation struct {
	class ResourceClass
	kind  ResourceKind
}

// Module is the shader-level view of an LLVM module.
type Module struct {
	module *ir.Module
	sm     *shadermodel.ShaderModel

	entry     *ir.Func
	entryName string

	valMajor, valMinor uint32

	typeSystem *typesys.TypeSystem
	op         *dxilop.OP

	cbuffers []*CBuffer
	srvs     []*Resource
	uavs     []*Resource
	samplers []*Sampler

	resTypes     map[types.Type]resTypeAnnotation
	resTypeOrder []types.Type

	inputSig      Signature
	outputSig     Signature
	patchConstSig Signature

	fnProps      map[*ir.Func]*FunctionProps
	fnPropsOrder []*ir.Func

	options       Options
	flags         ShaderFlags
	rootSignature []byte
	used          []constant.Constant
}

// New wraps m. The shader model must be set before metadata is emitted.
func New(m *ir.Module) *Module {
	return &Module{
		module:     m,
		valMajor:   DefaultValidatorMajor,
		valMinor:   DefaultValidatorMinor,
		typeSystem: typesys.New(),
		op:         dxilop.New(m),
		resTypes:   make(map[types.Type]resTypeAnnotation),
		fnProps:    make(map[*ir.Func]*FunctionProps),
	}
}

// Module returns the wrapped LLVM module.
func (hm *Module) Module() *ir.Module { return hm.module }

// ShaderModel returns the target model, or nil if it has not been set.
func (hm *Module) ShaderModel() *shadermodel.ShaderModel { return hm.sm }

// SetShaderModel binds the target model. The model can be set only once and
// must be a DXIL target.
func (hm *Module) SetShaderModel(sm *shadermodel.ShaderModel) {
	if hm.sm != nil {
		panic("hlmodule: shader model already set")
	}
	if !sm.IsValidForDxil() {
		panic(fmt.Sprintf("hlmodule: %s is not a DXIL shader model", sm))
	}
	hm.sm = sm
}

// EntryFunction returns the entry point, or nil.
func (hm *Module) EntryFunction() *ir.Func { return hm.entry }

// SetEntryFunction sets the entry point.
func (hm *Module) SetEntryFunction(f *ir.Func) { hm.entry = f }

// EntryFunctionName returns the HLSL name of the entry point.
func (hm *Module) EntryFunctionName() string { return hm.entryName }

// SetEntryFunctionName sets the HLSL name of the entry point.
func (hm *Module) SetEntryFunctionName(name string) { hm.entryName = name }

// FindEntryFunction looks up the function called name and makes it the entry
// point.
func (hm *Module) FindEntryFunction(name string) error {
	for _, f := range hm.module.Funcs {
		if f.Name() == name && len(f.Blocks) > 0 {
			hm.entry = f
			hm.entryName = name
			return nil
		}
	}
	return NewError(ErrEntryPointNotFound, fmt.Sprintf("no function body for entry point %q", name))
}

// DxilVersion returns the DXIL version implied by the shader model.
func (hm *Module) DxilVersion() (major, minor uint32) { return hm.sm.DxilVersion() }

// ValidatorVersion returns the validator version the module targets.
func (hm *Module) ValidatorVersion() (major, minor uint32) { return hm.valMajor, hm.valMinor }

// SetValidatorVersion sets the validator version the module targets.
func (hm *Module) SetValidatorVersion(major, minor uint32) {
	hm.valMajor, hm.valMinor = major, minor
}

// TypeSystem returns the annotation store.
func (hm *Module) TypeSystem() *typesys.TypeSystem { return hm.typeSystem }

// OP returns the DXIL operation table of the wrapped module.
func (hm *Module) OP() *dxilop.OP { return hm.op }

// InputSignature returns the entry point's input signature.
func (hm *Module) InputSignature() *Signature { return &hm.inputSig }

// OutputSignature returns the entry point's output signature.
func (hm *Module) OutputSignature() *Signature { return &hm.outputSig }

// PatchConstantSignature returns the hull/domain patch constant signature.
func (hm *Module) PatchConstantSignature() *Signature { return &hm.patchConstSig }

// AddCBuffer appends cb to the constant buffer table and returns its id.
func (hm *Module) AddCBuffer(cb *CBuffer) uint32 {
	cb.Class, cb.Kind = ClassCBuffer, KindCBuffer
	var id uint32
	hm.cbuffers, id = appendResource(hm.cbuffers, cb)
	return id
}

// AddSampler appends s to the sampler table and returns its id.
func (hm *Module) AddSampler(s *Sampler) uint32 {
	s.Class, s.Kind = ClassSampler, KindSampler
	var id uint32
	hm.samplers, id = appendResource(hm.samplers, s)
	return id
}

// AddSRV appends r to the shader resource view table and returns its id.
func (hm *Module) AddSRV(r *Resource) uint32 {
	r.Class = ClassSRV
	var id uint32
	hm.srvs, id = appendResource(hm.srvs, r)
	return id
}

// AddUAV appends r to the unordered access view table and returns its id.
func (hm *Module) AddUAV(r *Resource) uint32 {
	r.Class = ClassUAV
	var id uint32
	hm.uavs, id = appendResource(hm.uavs, r)
	return id
}

// CBuffer returns the constant buffer with the given id.
func (hm *Module) CBuffer(id uint32) *CBuffer { return hm.cbuffers[id] }

// Sampler returns the sampler with the given id.
func (hm *Module) Sampler(id uint32) *Sampler { return hm.samplers[id] }

// SRV returns the shader resource view with the given id.
func (hm *Module) SRV(id uint32) *Resource { return hm.srvs[id] }

// UAV returns the unordered access view with the given id.
func (hm *Module) UAV(id uint32) *Resource { return hm.uavs[id] }

// CBuffers returns the constant buffer table in id order.
func (hm *Module) CBuffers() []*CBuffer { return hm.cbuffers }

// Samplers returns the sampler table in id order.
func (hm *Module) Samplers() []*Sampler { return hm.samplers }

// SRVs returns the shader resource view table in id order.
func (hm *Module) SRVs() []*Resource { return hm.srvs }

// UAVs returns the unordered access view table in id order.
func (hm *Module) UAVs() []*Resource { return hm.uavs }

// RemoveResources drops the table entries whose symbol is one of syms.
// Tables are searched in the order CBuffer, SRV, UAV, Sampler and only the
// first match is removed. Symbols that are not resources are ignored.
func (hm *Module) RemoveResources(syms ...value.Value) {
	for _, sym := range syms {
		var ok bool
		if hm.cbuffers, ok = removeResource(hm.cbuffers, sym); ok {
			continue
		}
		if hm.srvs, ok = removeResource(hm.srvs, sym); ok {
			continue
		}
		if hm.uavs, ok = removeResource(hm.uavs, sym); ok {
			continue
		}
		hm.samplers, _ = removeResource(hm.samplers, sym)
	}
}

// IsResourceSymbol reports whether v is the symbol of any table entry.
func (hm *Module) IsResourceSymbol(v value.Value) bool {
	for _, r := range hm.allResources() {
		if r.Symbol == v {
			return true
		}
	}
	return false
}

func (hm *Module) allResources() []*ResourceBase {
	var out []*ResourceBase
	for _, r := range hm.cbuffers {
		out = append(out, &r.ResourceBase)
	}
	for _, r := range hm.srvs {
		out = append(out, &r.ResourceBase)
	}
	for _, r := range hm.uavs {
		out = append(out, &r.ResourceBase)
	}
	for _, r := range hm.samplers {
		out = append(out, &r.ResourceBase)
	}
	return out
}

// AddResourceTypeAnnotation records that t denotes a resource of the given
// class and kind. Re-recording the same pair is a no-op; a different pair
// panics.
func (hm *Module) AddResourceTypeAnnotation(t types.Type, class ResourceClass, kind ResourceKind) {
	want := resTypeAnnotation{class: class, kind: kind}
	if got, ok := hm.resTypes[t]; ok {
		if got != want {
			panic(fmt.Sprintf("hlmodule: resource type %v already annotated as %s/%d",
				t, got.class, got.kind))
		}
		return
	}
	hm.resTypes[t] = want
	hm.resTypeOrder = append(hm.resTypeOrder, t)
}

// GetResourceClass returns the class recorded for t, or ClassInvalid.
func (hm *Module) GetResourceClass(t types.Type) ResourceClass {
	if a, ok := hm.resTypes[t]; ok {
		return a.class
	}
	return ClassInvalid
}

// GetResourceKind returns the kind recorded for t, or KindInvalid.
func (hm *Module) GetResourceKind(t types.Type) ResourceKind {
	if a, ok := hm.resTypes[t]; ok {
		return a.kind
	}
	return KindInvalid
}

// ResourceTypes returns the annotated resource types in insertion order.
func (hm *Module) ResourceTypes() []types.Type { return hm.resTypeOrder }

// HasFunctionProps reports whether f has stage properties.
func (hm *Module) HasFunctionProps(f *ir.Func) bool {
	_, ok := hm.fnProps[f]
	return ok
}

// FunctionProps returns the stage properties of f, or nil.
func (hm *Module) FunctionProps(f *ir.Func) *FunctionProps { return hm.fnProps[f] }

// SetFunctionProps attaches stage properties to f, replacing earlier ones.
func (hm *Module) SetFunctionProps(f *ir.Func, props *FunctionProps) {
	if _, ok := hm.fnProps[f]; !ok {
		hm.fnPropsOrder = append(hm.fnPropsOrder, f)
	}
	hm.fnProps[f] = props
}

// Options returns the persisted compiler options.
func (hm *Module) Options() Options { return hm.options }

// SetOptions replaces the persisted compiler options.
func (hm *Module) SetOptions(o Options) { hm.options = o }

// ShaderFlags returns the module feature flags.
func (hm *Module) ShaderFlags() ShaderFlags { return hm.flags }

// SetShaderFlags replaces the module feature flags.
func (hm *Module) SetShaderFlags(f ShaderFlags) { hm.flags = f }

// RootSignature returns the serialized root signature, if any.
func (hm *Module) RootSignature() []byte { return hm.rootSignature }

// SetRootSignature stores a serialized root signature. The bytes are opaque.
func (hm *Module) SetRootSignature(b []byte) {
	hm.rootSignature = append([]byte(nil), b...)
}

// AddUsed keeps c alive through the llvm.used list.
func (hm *Module) AddUsed(c constant.Constant) { hm.used = append(hm.used, c) }

// Used returns the llvm.used list.
func (hm *Module) Used() []constant.Constant { return hm.used }
