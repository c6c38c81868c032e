// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package deadres

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/gogpu/dxil/hlmodule"
	"github.com/gogpu/dxil/shadermodel"
)

func TestRun(t *testing.T) {
	m := ir.NewModule()
	direct := m.NewGlobal("direct", types.I32)
	cast := m.NewGlobal("cast", types.I32)
	dead := m.NewGlobal("dead", types.I32)
	kept := m.NewGlobal("kept", types.I32)
	deadSampler := m.NewGlobal("deadSampler", types.I32)

	f := m.NewFunc("main", types.Void)
	b := f.NewBlock("")
	b.NewLoad(types.I32, direct)
	b.NewLoad(types.I8, constant.NewBitCast(cast, types.I8Ptr))
	b.NewRet(nil)

	hm := hlmodule.New(m)
	hm.SetShaderModel(shadermodel.GetByName("ps_6_0"))
	hm.SetEntryFunction(f)
	for _, g := range []*ir.Global{dead, direct, cast, kept} {
		hm.AddSRV(&hlmodule.Resource{ResourceBase: hlmodule.ResourceBase{Symbol: g, Name: g.Name(), RangeSize: 1}})
	}
	hm.AddSampler(&hlmodule.Sampler{ResourceBase: hlmodule.ResourceBase{Symbol: deadSampler, Name: "deadSampler", RangeSize: 1}})
	hm.AddUsed(kept)

	p := New()
	p.Run(hm)

	if diff := cmp.Diff([]string{"dead", "deadSampler"}, p.Removed()); diff != "" {
		t.Errorf("removed (-want +got):\n%s", diff)
	}

	var names []string
	for i, r := range hm.SRVs() {
		names = append(names, r.Name)
		if r.ID != uint32(i) {
			t.Errorf("SRV %s has id %d at position %d", r.Name, r.ID, i)
		}
	}
	if diff := cmp.Diff([]string{"direct", "cast", "kept"}, names); diff != "" {
		t.Errorf("SRVs (-want +got):\n%s", diff)
	}
	if len(hm.Samplers()) != 0 {
		t.Errorf("sampler table still has %d entries", len(hm.Samplers()))
	}

	for _, g := range m.Globals {
		if g == dead || g == deadSampler {
			t.Errorf("global %s not deleted", g.Name())
		}
	}
	if len(m.Globals) != 3 {
		t.Errorf("module has %d globals, want 3", len(m.Globals))
	}

	if errs, err := hlmodule.Validate(hm); err != nil || errs != nil {
		t.Errorf("Validate() after removal = %v, %v", errs, err)
	}
}

func TestRun_NothingDead(t *testing.T) {
	m := ir.NewModule()
	g := m.NewGlobal("buf", types.I32)
	f := m.NewFunc("main", types.Void)
	b := f.NewBlock("")
	b.NewStore(constant.NewInt(types.I32, 1), g)
	b.NewRet(nil)

	hm := hlmodule.New(m)
	hm.AddUAV(&hlmodule.Resource{ResourceBase: hlmodule.ResourceBase{Symbol: g, Name: "buf", RangeSize: 1}, ElementStride: 4})

	p := New()
	p.Run(hm)
	if len(p.Removed()) != 0 || len(hm.UAVs()) != 1 || len(m.Globals) != 1 {
		t.Errorf("live resource touched: removed %v, %d UAVs, %d globals", p.Removed(), len(hm.UAVs()), len(m.Globals))
	}
}

func TestUnused_IgnoresNonGlobalSymbols(t *testing.T) {
	m := ir.NewModule()
	hm := hlmodule.New(m)
	hm.AddUAV(&hlmodule.Resource{ResourceBase: hlmodule.ResourceBase{
		Symbol: constant.NewUndef(types.NewPointer(types.I32)), Name: "synthetic", RangeSize: 1,
	}})
	if dead := Unused(hm); len(dead) != 0 {
		t.Errorf("Unused() = %v, want none", dead)
	}
}

func TestRun_SymbolInSeveralTables(t *testing.T) {
	m := ir.NewModule()
	shared := m.NewGlobal("shared", types.I32)
	live := m.NewGlobal("live", types.I32)
	f := m.NewFunc("main", types.Void)
	b := f.NewBlock("")
	b.NewLoad(types.I32, live)
	b.NewRet(nil)

	hm := hlmodule.New(m)
	hm.AddSRV(&hlmodule.Resource{ResourceBase: hlmodule.ResourceBase{Symbol: shared, Name: "shared", RangeSize: 1}})
	hm.AddSRV(&hlmodule.Resource{ResourceBase: hlmodule.ResourceBase{Symbol: live, Name: "live", RangeSize: 1}})
	hm.AddUAV(&hlmodule.Resource{ResourceBase: hlmodule.ResourceBase{Symbol: shared, Name: "shared", RangeSize: 1}, ElementStride: 4})

	p := New()
	p.Run(hm)

	if diff := cmp.Diff([]string{"shared"}, p.Removed()); diff != "" {
		t.Errorf("removed (-want +got):\n%s", diff)
	}
	if hm.IsResourceSymbol(shared) {
		t.Error("deleted global still backs a table entry")
	}
	if len(hm.SRVs()) != 1 || hm.SRV(0).Name != "live" || hm.SRV(0).ID != 0 {
		t.Errorf("SRVs = %+v", hm.SRVs())
	}
	if len(hm.UAVs()) != 0 {
		t.Errorf("UAV table still has %d entries", len(hm.UAVs()))
	}
	if len(m.Globals) != 1 || m.Globals[0] != live {
		t.Errorf("globals = %v", m.Globals)
	}
}
