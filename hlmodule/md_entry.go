// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"github.com/llir/llvm/ir/metadata"

	"github.com/gogpu/dxil/shadermodel"
	"github.com/gogpu/dxil/typesys"
)

// Entry property tags.
const (
	entryTagShaderFlags = 0
)

func (hm *Module) emitEntryPoint(w mdWriter, resources *metadata.Tuple) *metadata.Tuple {
	entry := mdNull()
	if hm.entry != nil {
		entry = mdValue(hm.entry)
	}
	props := mdNull()
	if hm.flags != 0 {
		props = w.tuple(mdI32(entryTagShaderFlags), mdI64(uint64(hm.flags)))
	}
	return w.tuple(entry, mdString(hm.entryName), hm.emitSignatures(w), mdTupleOrNull(resources), props)
}

// emitSignatures returns the signature slot of the entry record. It stays
// null until some signature has elements.
func (hm *Module) emitSignatures(w mdWriter) metadata.Field {
	sigs := []*Signature{&hm.inputSig, &hm.outputSig, &hm.patchConstSig}
	empty := true
	fields := make([]metadata.Field, len(sigs))
	for i, s := range sigs {
		fields[i] = mdNull()
		if s.Len() == 0 {
			continue
		}
		empty = false
		elems := make([]metadata.Field, s.Len())
		for j, e := range s.Elements {
			elems[j] = w.signatureElement(e)
		}
		fields[i] = w.tuple(elems...)
	}
	if empty {
		return mdNull()
	}
	return w.tuple(fields...)
}

func (w mdWriter) signatureElement(e *SignatureElement) *metadata.Tuple {
	semIdx := mdNull()
	if len(e.SemanticIndex) > 0 {
		idx := make([]metadata.Field, len(e.SemanticIndex))
		for i, v := range e.SemanticIndex {
			idx[i] = mdI32(v)
		}
		semIdx = w.tuple(idx...)
	}
	return w.tuple(
		mdI32(e.ID),
		mdString(e.Name),
		mdI8(int8(e.CompType)),
		mdI8(int8(e.Kind)),
		semIdx,
		mdI8(int8(e.Interpolation)),
		mdI32(e.Rows),
		mdI8(int8(e.Cols)),
		mdS32(e.StartRow),
		mdI8(int8(e.StartCol)),
		mdNull(),
	)
}

func (hm *Module) loadEntryPoint() error {
	nodes := namedNodes(hm.module, SectionEntryPoints)
	if len(nodes) == 0 {
		return nil
	}
	// Only the first entry point is modelled.
	r := newReader(SectionEntryPoints, nodes[0])
	hm.entry = r.function()
	hm.entryName = r.string()
	if sigs := r.sub(); sigs != nil {
		for i, s := range []*Signature{&hm.inputSig, &hm.outputSig, &hm.patchConstSig} {
			hm.loadSignature(sigs, s, sigKind(i))
		}
		sigs.done()
		r.join(sigs)
	}
	r.tuple() // resources are read from their own section
	if props := r.sub(); props != nil {
		for props.more() {
			switch tag := props.u32(); tag {
			case entryTagShaderFlags:
				hm.flags = ShaderFlags(props.u64())
			default:
				props.fail("unknown entry property tag %d", tag)
			}
		}
		r.join(props)
	}
	return r.done()
}

func (hm *Module) loadSignature(r *mdReader, s *Signature, which sigKind) {
	list := r.sub()
	if list == nil {
		return
	}
	for list.more() {
		er := list.sub()
		if er == nil {
			list.fail("null signature element")
			break
		}
		e := &SignatureElement{SigPoint: sigPointOf(hm.sm.Kind(), which)}
		id := er.u32()
		e.Name = er.string()
		e.CompType = typesys.CompType(er.u32())
		e.Kind = SemanticKind(er.u32())
		if idx := er.sub(); idx != nil {
			for idx.more() {
				e.SemanticIndex = append(e.SemanticIndex, idx.u32())
			}
			er.join(idx)
		}
		e.Interpolation = typesys.InterpolationMode(er.u32())
		e.Rows = er.u32()
		e.Cols = er.u32()
		e.StartRow = er.s32()
		e.StartCol = er.s32()
		er.tuple()
		er.done()
		if er.err == nil && s.AppendElement(e) != id {
			er.fail("signature element id %d out of order", id)
		}
		list.join(er)
	}
	list.done()
	r.join(list)
}

func (hm *Module) emitFunctionProps(w mdWriter) []metadata.Node {
	var nodes []metadata.Node
	for _, f := range hm.fnPropsOrder {
		p := hm.fnProps[f]
		fields := []metadata.Field{mdValue(f), mdI32(uint32(p.Kind))}
		switch p.Kind {
		case shadermodel.KindCompute:
			for _, n := range p.CS.NumThreads {
				fields = append(fields, mdI32(n))
			}
		case shadermodel.KindGeometry:
			fields = append(fields,
				mdI32(uint32(p.GS.InputPrimitive)),
				mdI32(p.GS.MaxVertexCount),
				mdI32(p.GS.InstanceCount))
			for _, t := range p.GS.StreamTopology {
				fields = append(fields, mdI32(uint32(t)))
			}
		case shadermodel.KindHull:
			pcf := mdNull()
			if p.HS.PatchConstantFunc != nil {
				pcf = mdValue(p.HS.PatchConstantFunc)
			}
			fields = append(fields,
				pcf,
				mdI32(uint32(p.HS.Domain)),
				mdI32(uint32(p.HS.Partition)),
				mdI32(uint32(p.HS.OutputPrimitive)),
				mdI32(p.HS.InputControlPoints),
				mdI32(p.HS.OutputControlPoints),
				mdFloat(p.HS.MaxTessFactor))
		case shadermodel.KindDomain:
			fields = append(fields, mdI32(uint32(p.DS.Domain)), mdI32(p.DS.InputControlPoints))
		case shadermodel.KindPixel:
			fields = append(fields, mdBool(p.PS.EarlyDepthStencil))
		}
		nodes = append(nodes, w.tuple(fields...))
	}
	return nodes
}

// loadFunctionProps decodes one record per node. Every record is checked
// against the exact shape of its stage, so a truncated or overlong record
// is reported instead of bleeding into the next one.
func (hm *Module) loadFunctionProps() error {
	for _, node := range namedNodes(hm.module, SectionFunctionProps) {
		r := newReader(SectionFunctionProps, node)
		f := r.function()
		p := &FunctionProps{Kind: shadermodel.Kind(r.u32())}
		switch p.Kind {
		case shadermodel.KindCompute:
			for i := range p.CS.NumThreads {
				p.CS.NumThreads[i] = r.u32()
			}
		case shadermodel.KindGeometry:
			p.GS.InputPrimitive = InputPrimitive(r.u32())
			p.GS.MaxVertexCount = r.u32()
			p.GS.InstanceCount = r.u32()
			for i := range p.GS.StreamTopology {
				p.GS.StreamTopology[i] = PrimitiveTopology(r.u32())
			}
		case shadermodel.KindHull:
			p.HS.PatchConstantFunc = r.function()
			p.HS.Domain = TessDomain(r.u32())
			p.HS.Partition = TessPartitioning(r.u32())
			p.HS.OutputPrimitive = TessOutputPrimitive(r.u32())
			p.HS.InputControlPoints = r.u32()
			p.HS.OutputControlPoints = r.u32()
			p.HS.MaxTessFactor = r.float()
		case shadermodel.KindDomain:
			p.DS.Domain = TessDomain(r.u32())
			p.DS.InputControlPoints = r.u32()
		case shadermodel.KindPixel:
			p.PS.EarlyDepthStencil = r.bool()
		case shadermodel.KindVertex, shadermodel.KindLibrary:
		default:
			r.fail("unknown shader kind %d", p.Kind)
		}
		if err := r.done(); err != nil {
			return err
		}
		if f == nil {
			return corrupt(SectionFunctionProps, "record without function")
		}
		if hm.HasFunctionProps(f) {
			return corrupt(SectionFunctionProps, "function %s listed twice", f.Name())
		}
		hm.SetFunctionProps(f, p)
	}
	return nil
}
