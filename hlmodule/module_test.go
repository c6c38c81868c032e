// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/gogpu/dxil/shadermodel"
	"github.com/gogpu/dxil/typesys"
)

func checkIDs[T resourceEntry](t *testing.T, table []T) {
	t.Helper()
	for i, r := range table {
		if got := r.base().ID; got != uint32(i) {
			t.Errorf("entry %d (%s) has id %d", i, r.base().Name, got)
		}
	}
}

func TestModule_ResourceIDsDense(t *testing.T) {
	m := ir.NewModule()
	hm := New(m)

	var syms []value.Value
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		g := m.NewGlobal(name, types.I32)
		syms = append(syms, g)
		if id := hm.AddSRV(&Resource{ResourceBase: ResourceBase{Symbol: g, Name: name}}); id != uint32(i) {
			t.Fatalf("AddSRV(%s) = %d, want %d", name, id, i)
		}
	}

	tests := []struct {
		name   string
		remove []value.Value
		want   []string
	}{
		{"middle", []value.Value{syms[2]}, []string{"a", "b", "d", "e"}},
		{"first", []value.Value{syms[0]}, []string{"b", "d", "e"}},
		{"last", []value.Value{syms[4]}, []string{"b", "d"}},
		{"not a resource", []value.Value{m.NewGlobal("x", types.I32)}, []string{"b", "d"}},
		{"already removed", []value.Value{syms[2]}, []string{"b", "d"}},
		{"several", []value.Value{syms[1], syms[3]}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm.RemoveResources(tt.remove...)
			srvs := hm.SRVs()
			if len(srvs) != len(tt.want) {
				t.Fatalf("got %d SRVs, want %d", len(srvs), len(tt.want))
			}
			for i, name := range tt.want {
				if srvs[i].Name != name {
					t.Errorf("SRV %d = %s, want %s", i, srvs[i].Name, name)
				}
			}
			checkIDs(t, srvs)
		})
	}
}

func TestModule_RemoveResourcesTableOrder(t *testing.T) {
	m := ir.NewModule()
	hm := New(m)
	g := m.NewGlobal("shared", types.I32)
	other := m.NewGlobal("other", types.I32)

	hm.AddCBuffer(&CBuffer{ResourceBase: ResourceBase{Symbol: other, Name: "cb0"}})
	hm.AddCBuffer(&CBuffer{ResourceBase: ResourceBase{Symbol: g, Name: "cb1"}})
	hm.AddUAV(&Resource{ResourceBase: ResourceBase{Symbol: g, Name: "u0"}})
	hm.AddSampler(&Sampler{ResourceBase: ResourceBase{Symbol: g, Name: "s0"}})

	// The constant buffer table is searched first; only that match goes.
	hm.RemoveResources(g)
	if len(hm.CBuffers()) != 1 || hm.CBuffer(0).Name != "cb0" {
		t.Errorf("cbuffers after removal = %v", hm.CBuffers())
	}
	if len(hm.UAVs()) != 1 || len(hm.Samplers()) != 1 {
		t.Errorf("later tables touched: %d UAVs, %d samplers", len(hm.UAVs()), len(hm.Samplers()))
	}

	hm.RemoveResources(g)
	if len(hm.UAVs()) != 0 || len(hm.Samplers()) != 1 {
		t.Errorf("second removal: %d UAVs, %d samplers", len(hm.UAVs()), len(hm.Samplers()))
	}
}

func TestModule_AddSetsClass(t *testing.T) {
	hm := New(ir.NewModule())
	cb := &CBuffer{}
	s := &Sampler{}
	srv := &Resource{ResourceBase: ResourceBase{Kind: KindTexture2D}}
	uav := &Resource{ResourceBase: ResourceBase{Kind: KindRawBuffer}}
	hm.AddCBuffer(cb)
	hm.AddSampler(s)
	hm.AddSRV(srv)
	hm.AddUAV(uav)

	tests := []struct {
		name      string
		got       *ResourceBase
		wantClass ResourceClass
		wantKind  ResourceKind
	}{
		{"cbuffer", &cb.ResourceBase, ClassCBuffer, KindCBuffer},
		{"sampler", &s.ResourceBase, ClassSampler, KindSampler},
		{"srv", &srv.ResourceBase, ClassSRV, KindTexture2D},
		{"uav", &uav.ResourceBase, ClassUAV, KindRawBuffer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Class != tt.wantClass || tt.got.Kind != tt.wantKind {
				t.Errorf("got %s/%d, want %s/%d", tt.got.Class, tt.got.Kind, tt.wantClass, tt.wantKind)
			}
		})
	}
}

func TestModule_ResourceTypeAnnotation(t *testing.T) {
	hm := New(ir.NewModule())
	buf := types.NewStruct(types.I32)
	other := types.NewStruct(types.Float)

	if got := hm.GetResourceClass(buf); got != ClassInvalid {
		t.Errorf("GetResourceClass(unknown) = %s, want Invalid", got)
	}
	if got := hm.GetResourceKind(buf); got != KindInvalid {
		t.Errorf("GetResourceKind(unknown) = %d, want KindInvalid", got)
	}

	hm.AddResourceTypeAnnotation(buf, ClassUAV, KindStructuredBuffer)
	hm.AddResourceTypeAnnotation(buf, ClassUAV, KindStructuredBuffer)
	hm.AddResourceTypeAnnotation(other, ClassSRV, KindTypedBuffer)

	if got := hm.GetResourceClass(buf); got != ClassUAV {
		t.Errorf("GetResourceClass = %s, want UAV", got)
	}
	if got := hm.GetResourceKind(other); got != KindTypedBuffer {
		t.Errorf("GetResourceKind = %d, want TypedBuffer", got)
	}
	if got := len(hm.ResourceTypes()); got != 2 {
		t.Errorf("ResourceTypes() has %d entries, want 2", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("divergent annotation did not panic")
		}
	}()
	hm.AddResourceTypeAnnotation(buf, ClassSRV, KindStructuredBuffer)
}

func TestModule_SetShaderModelOnce(t *testing.T) {
	hm := New(ir.NewModule())
	hm.SetShaderModel(shadermodel.GetByName("ps_6_0"))

	defer func() {
		if recover() == nil {
			t.Error("second SetShaderModel did not panic")
		}
	}()
	hm.SetShaderModel(shadermodel.GetByName("ps_6_1"))
}

func TestModule_SetShaderModelRejectsLegacy(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("ps_5_0 accepted as DXIL target")
		}
	}()
	New(ir.NewModule()).SetShaderModel(shadermodel.GetByName("ps_5_0"))
}

func TestModule_FindEntryFunction(t *testing.T) {
	m := ir.NewModule()
	decl := m.NewFunc("decl", types.Void)
	f := m.NewFunc("main", types.Void)
	f.NewBlock("").NewRet(nil)
	hm := New(m)

	if err := hm.FindEntryFunction("main"); err != nil {
		t.Fatalf("FindEntryFunction(main) error: %v", err)
	}
	if hm.EntryFunction() != f || hm.EntryFunctionName() != "main" {
		t.Errorf("entry = %v %q", hm.EntryFunction(), hm.EntryFunctionName())
	}

	for _, name := range []string{decl.Name(), "missing"} {
		err := hm.FindEntryFunction(name)
		e, ok := err.(*Error)
		if !ok || e.Kind != ErrEntryPointNotFound {
			t.Errorf("FindEntryFunction(%s) = %v, want EntryPointNotFound", name, err)
		}
	}
}

func TestOptions_Word(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want uint32
	}{
		{"zero", Options{}, 0},
		{"row major", Options{DefaultRowMajor: true}, 1},
		{"all resources bound", Options{AllResourcesBound: true}, 1 << 2},
		{"packing", Options{PackingStrategy: PackingOptimized}, 2 << 5},
		{"min precision", Options{UseMinPrecision: true}, 1 << 7},
		{"legacy reservation", Options{LegacyResourceReservation: true}, 1 << 10},
		{"mixed", Options{IEEEStrict: true, LegacyCBufferLoad: true, FXCCompatMode: true}, 1<<1 | 1<<4 | 1<<9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Word(); got != tt.want {
				t.Errorf("Word() = %#x, want %#x", got, tt.want)
			}
			if got := OptionsFromWord(tt.want); got != tt.opts {
				t.Errorf("OptionsFromWord(%#x) = %+v, want %+v", tt.want, got, tt.opts)
			}
		})
	}
}

func TestResourceClass_RegisterPrefix(t *testing.T) {
	tests := []struct {
		class ResourceClass
		want  string
	}{
		{ClassSRV, "t"},
		{ClassUAV, "u"},
		{ClassCBuffer, "b"},
		{ClassSampler, "s"},
		{ClassInvalid, "?"},
	}
	for _, tt := range tests {
		if got := tt.class.RegisterPrefix(); got != tt.want {
			t.Errorf("%s.RegisterPrefix() = %q, want %q", tt.class, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.Void)
	f.NewBlock("").NewRet(nil)
	g := m.NewGlobal("buf", types.I32)

	hm := New(m)
	hm.SetShaderModel(shadermodel.GetByName("ps_6_0"))
	hm.SetEntryFunction(f)
	hm.AddUAV(&Resource{ResourceBase: ResourceBase{Symbol: g, Name: "buf", RangeSize: 1}, ElementStride: 4})

	errs, err := Validate(hm)
	if err != nil || errs != nil {
		t.Fatalf("Validate() = %v, %v; want clean", errs, err)
	}

	hm.UAV(0).ID = 3
	hm.UAV(0).RangeSize = 0
	errs, _ = Validate(hm)
	if len(errs) != 2 {
		t.Errorf("Validate() found %d problems, want 2: %v", len(errs), errs)
	}

	if _, err := Validate(nil); err == nil {
		t.Error("Validate(nil) returned no error")
	}
}

func TestValidate_Resources(t *testing.T) {
	const last = ^uint32(0)
	tests := []struct {
		name  string
		srv   Resource
		clean bool
	}{
		{"texture", Resource{ResourceBase: ResourceBase{Kind: KindTexture2D, RangeSize: 1}, CompType: typesys.CompF32}, true},
		{"last register", Resource{ResourceBase: ResourceBase{Kind: KindRawBuffer, LowerBound: last, RangeSize: 1}}, true},
		{"range to last register", Resource{ResourceBase: ResourceBase{Kind: KindRawBuffer, LowerBound: last - 3, RangeSize: 4}}, true},
		{"unbounded", Resource{ResourceBase: ResourceBase{Kind: KindRawBuffer, LowerBound: 7, RangeSize: last}}, true},
		{"range overflows", Resource{ResourceBase: ResourceBase{Kind: KindRawBuffer, LowerBound: last - 1, RangeSize: 4}}, false},
		{"texture without component type", Resource{ResourceBase: ResourceBase{Kind: KindTexture2DMS, RangeSize: 1}, SampleCount: 4}, false},
		{"structured buffer without stride", Resource{ResourceBase: ResourceBase{Kind: KindStructuredBuffer, RangeSize: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ir.NewModule()
			f := m.NewFunc("main", types.Void)
			f.NewBlock("").NewRet(nil)
			hm := New(m)
			hm.SetShaderModel(shadermodel.GetByName("ps_6_0"))
			hm.SetEntryFunction(f)
			srv := tt.srv
			srv.Symbol = m.NewGlobal("res", types.I32)
			srv.Name = "res"
			hm.AddSRV(&srv)

			errs, err := Validate(hm)
			if err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
			if clean := len(errs) == 0; clean != tt.clean {
				t.Errorf("Validate() = %v, want clean=%v", errs, tt.clean)
			}
		})
	}
}

func TestResourceBase_UpperBound(t *testing.T) {
	tests := []struct {
		lower, size, want uint32
	}{
		{0, 1, 0},
		{4, 8, 11},
		{3, ^uint32(0), ^uint32(0)},
	}
	for _, tt := range tests {
		r := ResourceBase{LowerBound: tt.lower, RangeSize: tt.size}
		if got := r.UpperBound(); got != tt.want {
			t.Errorf("UpperBound(%d, %d) = %d, want %d", tt.lower, tt.size, got, tt.want)
		}
	}
}
