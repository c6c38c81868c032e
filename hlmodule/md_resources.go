// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"github.com/llir/llvm/ir/metadata"

	"github.com/gogpu/dxil/typesys"
)

// Tags of the resource extra-properties list.
const (
	resTagElementType      = 0
	resTagStructuredStride = 1
)

// Positions in the dx.resources tuple.
const (
	resListSRV = iota
	resListUAV
	resListCBuffer
	resListSampler
	numResLists
)

func baseFields(b *ResourceBase) []metadata.Field {
	return []metadata.Field{
		mdI32(b.ID),
		mdValue(b.Symbol),
		mdString(b.Name),
		mdI32(b.Space),
		mdI32(b.LowerBound),
		mdI32(b.RangeSize),
	}
}

func (w mdWriter) resourceExtra(r *Resource) metadata.Field {
	var kv []metadata.Field
	if r.CompType != typesys.CompInvalid {
		kv = append(kv, mdI32(resTagElementType), mdI32(uint32(r.CompType)))
	}
	if r.Kind.IsStructuredBuffer() || r.ElementStride != 0 {
		kv = append(kv, mdI32(resTagStructuredStride), mdI32(r.ElementStride))
	}
	if len(kv) == 0 {
		return mdNull()
	}
	return w.tuple(kv...)
}

func (w mdWriter) srv(r *Resource) *metadata.Tuple {
	f := baseFields(&r.ResourceBase)
	f = append(f, mdI32(uint32(r.Kind)), mdI32(r.SampleCount), w.resourceExtra(r))
	return w.tuple(f...)
}

func (w mdWriter) uav(r *Resource) *metadata.Tuple {
	f := baseFields(&r.ResourceBase)
	f = append(f, mdI32(uint32(r.Kind)), mdBool(r.GloballyCoherent), mdBool(r.HasCounter),
		mdBool(r.ROV), w.resourceExtra(r))
	return w.tuple(f...)
}

func (w mdWriter) cbuffer(cb *CBuffer) *metadata.Tuple {
	f := baseFields(&cb.ResourceBase)
	f = append(f, mdI32(cb.Size), mdNull())
	return w.tuple(f...)
}

func (w mdWriter) sampler(s *Sampler) *metadata.Tuple {
	f := baseFields(&s.ResourceBase)
	f = append(f, mdI32(uint32(s.SamplerKind)), mdNull())
	return w.tuple(f...)
}

// emitResources returns the dx.resources tuple, or nil when every table is
// empty. Empty tables become null slots.
func (hm *Module) emitResources(w mdWriter) *metadata.Tuple {
	var lists [numResLists]*metadata.Tuple
	list := func(n int, record func(i int) *metadata.Tuple) *metadata.Tuple {
		if n == 0 {
			return nil
		}
		fields := make([]metadata.Field, n)
		for i := range fields {
			fields[i] = record(i)
		}
		return w.tuple(fields...)
	}
	lists[resListSRV] = list(len(hm.srvs), func(i int) *metadata.Tuple { return w.srv(hm.srvs[i]) })
	lists[resListUAV] = list(len(hm.uavs), func(i int) *metadata.Tuple { return w.uav(hm.uavs[i]) })
	lists[resListCBuffer] = list(len(hm.cbuffers), func(i int) *metadata.Tuple { return w.cbuffer(hm.cbuffers[i]) })
	lists[resListSampler] = list(len(hm.samplers), func(i int) *metadata.Tuple { return w.sampler(hm.samplers[i]) })

	empty := true
	fields := make([]metadata.Field, numResLists)
	for i, l := range lists {
		fields[i] = mdTupleOrNull(l)
		if l != nil {
			empty = false
		}
	}
	if empty {
		return nil
	}
	return w.tuple(fields...)
}

func (hm *Module) loadResources() error {
	node, err := singleNode(hm.module, SectionResources)
	if err != nil || node == nil {
		return err
	}
	r := newReader(SectionResources, node)
	if r.err == nil && r.len() != numResLists {
		r.fail("expected %d resource lists, got %d", numResLists, r.len())
	}
	lists := make([]*mdReader, numResLists)
	for i := range lists {
		lists[i] = r.sub()
	}
	if err := r.done(); err != nil {
		return err
	}

	each := func(list *mdReader, record func(rec *mdReader)) error {
		if list == nil {
			return nil
		}
		for list.more() {
			rec := list.sub()
			if rec == nil {
				list.fail("null resource record")
				break
			}
			record(rec)
			if err := rec.done(); err != nil {
				return err
			}
		}
		return list.done()
	}

	if err := each(lists[resListSRV], func(rec *mdReader) {
		res := &Resource{}
		id := readBase(rec, &res.ResourceBase)
		res.Kind = ResourceKind(rec.u32())
		res.SampleCount = rec.u32()
		readExtra(rec, res)
		checkID(rec, id, hm.AddSRV(res))
	}); err != nil {
		return err
	}
	if err := each(lists[resListUAV], func(rec *mdReader) {
		res := &Resource{}
		id := readBase(rec, &res.ResourceBase)
		res.Kind = ResourceKind(rec.u32())
		res.GloballyCoherent = rec.bool()
		res.HasCounter = rec.bool()
		res.ROV = rec.bool()
		readExtra(rec, res)
		checkID(rec, id, hm.AddUAV(res))
	}); err != nil {
		return err
	}
	if err := each(lists[resListCBuffer], func(rec *mdReader) {
		cb := &CBuffer{}
		id := readBase(rec, &cb.ResourceBase)
		cb.Size = rec.u32()
		rec.tuple()
		checkID(rec, id, hm.AddCBuffer(cb))
	}); err != nil {
		return err
	}
	return each(lists[resListSampler], func(rec *mdReader) {
		s := &Sampler{}
		id := readBase(rec, &s.ResourceBase)
		s.SamplerKind = SamplerKind(rec.u32())
		rec.tuple()
		checkID(rec, id, hm.AddSampler(s))
	})
}

// checkID checks that a decoded record sat at the position its id names.
func checkID(rec *mdReader, stored, assigned uint32) {
	if rec.err == nil && stored != assigned {
		rec.fail("resource id %d at position %d", stored, assigned)
	}
}

// readBase decodes the common record prefix and returns the stored id.
func readBase(rec *mdReader, b *ResourceBase) uint32 {
	b.ID = rec.u32()
	b.Symbol = rec.value()
	b.Name = rec.string()
	b.Space = rec.u32()
	b.LowerBound = rec.u32()
	b.RangeSize = rec.u32()
	return b.ID
}

func readExtra(rec *mdReader, res *Resource) {
	kv := rec.sub()
	if kv == nil {
		return
	}
	for kv.more() {
		switch tag := kv.u32(); tag {
		case resTagElementType:
			res.CompType = typesys.CompType(kv.u32())
		case resTagStructuredStride:
			res.ElementStride = kv.u32()
		default:
			kv.fail("unknown resource property tag %d", tag)
		}
	}
	rec.join(kv)
}
