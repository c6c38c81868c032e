// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package pixelhit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/gogpu/dxil/dxilop"
	"github.com/gogpu/dxil/hlmodule"
	"github.com/gogpu/dxil/shadermodel"
	"github.com/gogpu/dxil/typesys"
)

// newPixelShader returns a ps_6_0 module whose entry adds two floats and
// returns.
func newPixelShader(t *testing.T) (*hlmodule.Module, *ir.Func) {
	t.Helper()
	m := ir.NewModule()
	f := m.NewFunc("main", types.Void)
	b := f.NewBlock("entry")
	b.NewFAdd(constant.NewFloat(types.Float, 1), constant.NewFloat(types.Float, 2))
	b.NewRet(nil)

	hm := hlmodule.New(m)
	hm.SetShaderModel(shadermodel.GetByName("ps_6_0"))
	hm.SetEntryFunction(f)
	hm.SetEntryFunctionName("main")
	return hm, f
}

func callsOf(f *ir.Func, code dxilop.OpCode) []*ir.InstCall {
	var calls []*ir.InstCall
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			call, ok := inst.(*ir.InstCall)
			if !ok {
				continue
			}
			if c, ok := dxilop.OpCodeOf(call); ok && c == code {
				calls = append(calls, call)
			}
		}
	}
	return calls
}

func constArg(t *testing.T, v value.Value) int64 {
	t.Helper()
	c, ok := v.(*constant.Int)
	if !ok {
		t.Fatalf("argument %v is not an integer constant", v)
	}
	return c.X.Int64()
}

func TestRun_Default(t *testing.T) {
	hm, f := newPixelShader(t)
	New(DefaultOptions()).Run(hm)

	uavs := hm.UAVs()
	if len(uavs) != 1 {
		t.Fatalf("got %d UAVs, want 1", len(uavs))
	}
	u := uavs[0]
	want := hlmodule.ResourceBase{
		ID:         0,
		Class:      hlmodule.ClassUAV,
		Kind:       hlmodule.KindStructuredBuffer,
		Name:       CounterName,
		Space:      CounterSpace,
		LowerBound: 0,
		RangeSize:  1,
	}
	got := u.ResourceBase
	got.Symbol = nil
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counter UAV mismatch (-want +got):\n%s", diff)
	}
	if u.ElementStride != 4 || u.CompType != typesys.CompI32 {
		t.Errorf("counter stride %d comp %v, want 4 i32", u.ElementStride, u.CompType)
	}
	if hm.GetResourceKind(counterType(hm.Module())) != hlmodule.KindStructuredBuffer {
		t.Error("counter element type not annotated")
	}

	sig := hm.InputSignature()
	if sig.Len() != 1 || sig.Elements[0].Kind != hlmodule.SemanticPosition {
		t.Fatalf("input signature = %+v, want one position element", sig.Elements)
	}
	if e := sig.Elements[0]; e.Cols != 4 || e.CompType != typesys.CompF32 {
		t.Errorf("position element shape = %d cols %v", e.Cols, e.CompType)
	}

	handles := callsOf(f, dxilop.OpCreateHandle)
	if len(handles) != 1 {
		t.Fatalf("got %d createHandle calls, want 1", len(handles))
	}
	if f.Blocks[0].Insts[0] != handles[0] {
		t.Error("handle is not created first in the entry block")
	}
	if got := constArg(t, handles[0].Args[1]); got != int64(hlmodule.ClassUAV) {
		t.Errorf("handle class = %d", got)
	}

	if got := len(callsOf(f, dxilop.OpLoadInput)); got != 2 {
		t.Errorf("got %d loadInput calls, want 2", got)
	}
	atomics := callsOf(f, dxilop.OpAtomicBinOp)
	if len(atomics) != 1 {
		t.Fatalf("got %d atomics, want 1", len(atomics))
	}
	a := atomics[0]
	if a.Args[1] != handles[0] {
		t.Error("atomic does not use the counter handle")
	}
	if got := constArg(t, a.Args[6]); got != 1 {
		t.Errorf("atomic increment = %d, want 1", got)
	}
	sel, ok := a.Args[3].(*ir.InstSelect)
	if !ok {
		t.Fatalf("atomic index is %T, want a select", a.Args[3])
	}
	if got := constArg(t, sel.ValueTrue); got != 127 {
		t.Errorf("index clamped to %d, want 127", got)
	}
	if got := len(callsOf(f, dxilop.OpBufferLoad)); got != 0 {
		t.Errorf("got %d buffer loads without pixel cost", got)
	}

	var width int64
	for _, inst := range f.Blocks[0].Insts {
		if mul, ok := inst.(*ir.InstMul); ok {
			width = constArg(t, mul.Y)
		}
	}
	if width != 1024 {
		t.Errorf("row stride = %d, want 1024", width)
	}
	if !hm.ShaderFlags().Has(hlmodule.FlagEnableRawAndStructuredBuffers) {
		t.Error("structured buffer flag not set")
	}
}

func TestRun_PixelCost(t *testing.T) {
	hm, f := newPixelShader(t)
	opts := DefaultOptions()
	opts.AddPixelCost = true
	New(opts).Run(hm)

	loads := callsOf(f, dxilop.OpBufferLoad)
	if len(loads) != 1 {
		t.Fatalf("got %d buffer loads, want 1", len(loads))
	}
	if got := constArg(t, loads[0].Args[2]); got != 256 {
		t.Errorf("weight slot = %d, want 256", got)
	}

	atomics := callsOf(f, dxilop.OpAtomicBinOp)
	if len(atomics) != 2 {
		t.Fatalf("got %d atomics, want 2", len(atomics))
	}
	add, ok := atomics[1].Args[3].(*ir.InstAdd)
	if !ok {
		t.Fatalf("cost index is %T, want an add", atomics[1].Args[3])
	}
	if add.X != atomics[0].Args[3] {
		t.Error("cost index is not derived from the hit index")
	}
	if got := constArg(t, add.Y); got != 128 {
		t.Errorf("cost offset = %d, want 128", got)
	}
	if _, ok := atomics[1].Args[6].(*ir.InstExtractValue); !ok {
		t.Errorf("cost weight is %T, want the loaded value", atomics[1].Args[6])
	}
}

func TestRun_ReusesPosition(t *testing.T) {
	hm, f := newPixelShader(t)
	sig := hm.InputSignature()
	sig.AppendElement(&hlmodule.SignatureElement{Name: "TEXCOORD", Kind: hlmodule.SemanticArbitrary, Rows: 1, Cols: 2})
	pos := &hlmodule.SignatureElement{Name: "SV_Position", Kind: hlmodule.SemanticPosition, Rows: 1, Cols: 4}
	sig.AppendElement(pos)

	New(DefaultOptions()).Run(hm)

	if sig.Len() != 2 {
		t.Fatalf("input signature grew to %d elements", sig.Len())
	}
	for _, call := range callsOf(f, dxilop.OpLoadInput) {
		if got := constArg(t, call.Args[1]); got != int64(pos.ID) {
			t.Errorf("loadInput reads element %d, want %d", got, pos.ID)
		}
	}
}

func TestRun_ReturnSites(t *testing.T) {
	one, two := constant.NewFloat(types.Float, 1), constant.NewFloat(types.Float, 2)
	tests := []struct {
		name        string
		build       func(f *ir.Func)
		wantAtomics int
	}{
		{"entry return", func(f *ir.Func) {
			entry := f.NewBlock("entry")
			entry.NewAlloca(types.I32)
			entry.NewFAdd(one, two)
			entry.NewRet(nil)
		}, 1},
		{"returns behind a branch", func(f *ir.Func) {
			entry := f.NewBlock("entry")
			hit := f.NewBlock("hit")
			empty := f.NewBlock("empty")
			entry.NewAlloca(types.I32)
			entry.NewCondBr(entry.NewFCmp(enum.FPredOLT, one, two), hit, empty)
			hit.NewFAdd(one, two)
			hit.NewRet(nil)
			empty.NewRet(nil)
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ir.NewModule()
			f := m.NewFunc("main", types.Void)
			tt.build(f)
			sizes := make([]int, len(f.Blocks))
			for i, b := range f.Blocks {
				sizes[i] = len(b.Insts)
			}

			hm := hlmodule.New(m)
			hm.SetShaderModel(shadermodel.GetByName("ps_6_0"))
			hm.SetEntryFunction(f)
			New(DefaultOptions()).Run(hm)

			if got := len(callsOf(f, dxilop.OpAtomicBinOp)); got != tt.wantAtomics {
				t.Errorf("got %d atomics, want %d", got, tt.wantAtomics)
			}
			if got := len(hm.UAVs()); got != tt.wantAtomics {
				t.Errorf("got %d UAVs, want %d", got, tt.wantAtomics)
			}
			for i, b := range f.Blocks[1:] {
				if len(b.Insts) != sizes[i+1] {
					t.Errorf("block %s changed from %d to %d instructions", b.Name(), sizes[i+1], len(b.Insts))
				}
			}
			if tt.wantAtomics > 0 {
				if _, ok := f.Blocks[0].Insts[1].(*ir.InstCall); !ok {
					t.Errorf("entry block slot 1 is %T, want the handle after the alloca", f.Blocks[0].Insts[1])
				}
			}
		})
	}
}

func TestRun_NoQualifyingReturn(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunc("main", types.Void)
	f.NewBlock("entry").NewRet(nil)

	hm := hlmodule.New(m)
	hm.SetShaderModel(shadermodel.GetByName("ps_6_0"))
	hm.SetEntryFunction(f)
	New(DefaultOptions()).Run(hm)

	if len(hm.UAVs()) != 0 {
		t.Errorf("counter allocated for a shader with no qualifying return")
	}
	if hm.InputSignature().FindKind(hlmodule.SemanticPosition) == nil {
		t.Error("position element not inserted")
	}
}

func TestRun_ForceEarlyZ(t *testing.T) {
	hm, f := newPixelShader(t)
	opts := DefaultOptions()
	opts.ForceEarlyZ = true
	New(opts).Run(hm)

	if !hm.ShaderFlags().Has(hlmodule.FlagForceEarlyDepthStencil) {
		t.Error("early depth-stencil flag not set")
	}
	if p := hm.FunctionProps(f); p == nil || !p.PS.EarlyDepthStencil {
		t.Errorf("entry props = %+v, want early depth-stencil", p)
	}
}

func TestRun_SurvivesMetadata(t *testing.T) {
	hm, f := newPixelShader(t)
	New(DefaultOptions()).Run(hm)
	hm.EmitHLMetadata()

	got, err := hlmodule.Load(hm.Module())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.EntryFunction() != f {
		t.Errorf("entry = %v", got.EntryFunction())
	}
	if len(got.UAVs()) != 1 || got.UAV(0).Name != CounterName {
		t.Errorf("UAVs after reload = %+v", got.UAVs())
	}
	if got.InputSignature().FindKind(hlmodule.SemanticPosition) == nil {
		t.Error("position element lost on reload")
	}
}

func TestRun_PanicsWithoutEntry(t *testing.T) {
	hm := hlmodule.New(ir.NewModule())
	defer func() {
		if recover() == nil {
			t.Error("Run without an entry function did not panic")
		}
	}()
	New(DefaultOptions()).Run(hm)
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]string
		want    Options
		wantErr bool
	}{
		{"defaults", nil, Options{RTWidth: 1024, NumPixels: 128}, false},
		{"flags without value", map[string]string{"force-early-z": "", "add-pixel-cost": ""},
			Options{ForceEarlyZ: true, AddPixelCost: true, RTWidth: 1024, NumPixels: 128}, false},
		{"sizes", map[string]string{"rt-width": "1920", "num-pixels": "0x100"},
			Options{RTWidth: 1920, NumPixels: 256}, false},
		{"explicit false", map[string]string{"force-early-z": "false"}, Options{RTWidth: 1024, NumPixels: 128}, false},
		{"bad bool", map[string]string{"add-pixel-cost": "maybe"}, Options{}, true},
		{"bad number", map[string]string{"rt-width": "wide"}, Options{}, true},
		{"zero pixels", map[string]string{"num-pixels": "0"}, Options{}, true},
		{"most pixels", map[string]string{"num-pixels": "2147483647"}, Options{RTWidth: 1024, NumPixels: MaxNumPixels}, false},
		{"too many pixels", map[string]string{"num-pixels": "2147483648"}, Options{}, true},
		{"pixels out of range", map[string]string{"num-pixels": "0x100000000"}, Options{}, true},
		{"unknown key", map[string]string{"rt-height": "1080"}, Options{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptions(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
