// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package pixelhit instruments a pixel shader to count how often each
// render-target pixel is shaded.
//
// The return of the entry block of the entry function increments one slot
// of a structured counter buffer, indexed by the pixel position. The buffer is a UAV the
// pass appends to the module in a reserved register space, so it never
// collides with resources the shader author declared.
package pixelhit

import (
	"fmt"
	"math"
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/gogpu/dxil/dxilop"
	"github.com/gogpu/dxil/hlmodule"
	"github.com/gogpu/dxil/typesys"
)

// PassName is the pipeline name of the pass.
const PassName = "hlsl-dxil-add-pixel-hit-instrumentation"

// Names given to the objects the pass creates.
const (
	CounterName       = "PIX_CountUAVName"
	CounterTypeName   = "PIX_CountUAV_Type"
	CounterHandleName = "PIX_CountUAV_Handle"
)

// CounterSpace is the register space of the counter buffer.
const CounterSpace = 0xFFFFFFFE

// MaxNumPixels is the largest num-pixels whose weight slot offset,
// 2*num-pixels, still fits in 32 bits.
const MaxNumPixels = math.MaxUint32 / 2

// Options configures the pass.
type Options struct {
	// ForceEarlyZ forces early depth and stencil testing. Shaders that
	// discard pixels change meaning under it.
	ForceEarlyZ bool

	// RTWidth is the render-target width used to linearize positions.
	RTWidth uint32

	// NumPixels is the number of counters per half of the buffer.
	// Out-of-range pixels saturate into the last counter.
	NumPixels uint32

	// AddPixelCost enables the weighted second counter. The weight is read
	// from slot NumPixels*2, which the host fills in.
	AddPixelCost bool
}

// DefaultOptions returns the options used when a key is not given.
func DefaultOptions() Options {
	return Options{
		RTWidth:   1024,
		NumPixels: 128,
	}
}

// ParseOptions reads pipeline arguments on top of DefaultOptions.
// A boolean key without a value means true.
func ParseOptions(args map[string]string) (Options, error) {
	opts := DefaultOptions()
	for key, val := range args {
		var err error
		switch key {
		case "force-early-z":
			opts.ForceEarlyZ, err = parseBool(val)
		case "add-pixel-cost":
			opts.AddPixelCost, err = parseBool(val)
		case "rt-width":
			opts.RTWidth, err = parseUint(val)
		case "num-pixels":
			opts.NumPixels, err = parseUint(val)
			switch {
			case err != nil:
			case opts.NumPixels == 0:
				err = fmt.Errorf("must be at least 1")
			case opts.NumPixels > MaxNumPixels:
				err = fmt.Errorf("must be at most %d", MaxNumPixels)
			}
		default:
			return opts, fmt.Errorf("%s: unknown option %q", PassName, key)
		}
		if err != nil {
			return opts, fmt.Errorf("%s: option %s=%q: %w", PassName, key, val, err)
		}
	}
	return opts, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return true, nil
	}
	return strconv.ParseBool(s)
}

func parseUint(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

// Pass is the pixel-hit instrumentation pass.
type Pass struct {
	opts Options
}

// New returns a pass configured with opts.
func New(opts Options) *Pass {
	return &Pass{opts: opts}
}

// Name returns PassName.
func (p *Pass) Name() string { return PassName }

// Options returns the configuration of the pass.
func (p *Pass) Options() Options { return p.opts }

// Run instruments the entry function of hm. The module must have an entry
// function with a body; anything else is a pipeline bug and panics.
func (p *Pass) Run(hm *hlmodule.Module) {
	f := hm.EntryFunction()
	if f == nil || len(f.Blocks) == 0 {
		panic("pixelhit: module has no entry function body")
	}

	if p.opts.ForceEarlyZ {
		hm.SetEarlyDepthStencil()
	}

	pos := positionElement(hm)
	inst := &instrumenter{hm: hm, op: hm.OP(), opts: p.opts, fn: f, pos: pos}
	// Only the entry block is scanned; returns reached through branches
	// are left alone. A bare return has nothing to attribute a hit to.
	entry := f.Blocks[0]
	if _, ok := entry.Term.(*ir.TermRet); ok && len(entry.Insts) > 0 {
		inst.instrument(entry)
	}
}

// positionElement returns the SV_Position input, appending one if the
// shader does not read it.
func positionElement(hm *hlmodule.Module) *hlmodule.SignatureElement {
	sig := hm.InputSignature()
	if e := sig.FindKind(hlmodule.SemanticPosition); e != nil {
		return e
	}
	e := &hlmodule.SignatureElement{
		Name:          "SV_Position",
		SemanticIndex: []uint32{0},
		Kind:          hlmodule.SemanticPosition,
		CompType:      typesys.CompF32,
		Interpolation: typesys.InterpLinearNoperspective,
		SigPoint:      typesys.SigPointPSIn,
		Rows:          1,
		Cols:          4,
		StartRow:      -1,
		StartCol:      -1,
	}
	sig.AppendElement(e)
	return e
}

type instrumenter struct {
	hm     *hlmodule.Module
	op     *dxilop.OP
	opts   Options
	fn     *ir.Func
	pos    *hlmodule.SignatureElement
	handle value.Value
}

// counterHandle allocates the counter UAV on first use and returns the
// handle created for it at the top of the entry block.
func (in *instrumenter) counterHandle() value.Value {
	if in.handle != nil {
		return in.handle
	}
	m := in.hm.Module()
	elemType := counterType(m)
	id := in.hm.AddUAV(&hlmodule.Resource{
		ResourceBase: hlmodule.ResourceBase{
			Kind:       hlmodule.KindStructuredBuffer,
			Symbol:     constant.NewUndef(types.NewPointer(elemType)),
			Name:       CounterName,
			Space:      CounterSpace,
			LowerBound: 0,
			RangeSize:  1,
		},
		CompType:      typesys.CompI32,
		ElementStride: 4,
	})
	in.hm.AddResourceTypeAnnotation(elemType, hlmodule.ClassUAV, hlmodule.KindStructuredBuffer)
	in.hm.SetShaderFlags(in.hm.ShaderFlags() | hlmodule.FlagEnableRawAndStructuredBuffers)

	entry := in.fn.Blocks[0]
	at := 0
	for at < len(entry.Insts) {
		if _, ok := entry.Insts[at].(*ir.InstAlloca); !ok {
			break
		}
		at++
	}
	insertAt(entry, at, func(b *ir.Block) {
		call := b.NewCall(in.op.Func(dxilop.OpCreateHandle, types.Void),
			dxilop.Opcode(dxilop.OpCreateHandle),
			dxilop.I8(uint8(hlmodule.ClassUAV)),
			dxilop.I32(id),
			dxilop.I32(0),
			dxilop.I1(false))
		call.SetName(CounterHandleName)
		in.handle = call
	})
	return in.handle
}

// counterType returns the element type of the counter buffer, reusing the
// definition left by an earlier run.
func counterType(m *ir.Module) types.Type {
	for _, t := range m.TypeDefs {
		if t.Name() == CounterTypeName {
			return t
		}
	}
	return m.NewTypeDef(CounterTypeName, types.NewStruct(types.I32))
}

// instrument appends the counting sequence to b, ahead of its terminator.
func (in *instrumenter) instrument(b *ir.Block) {
	handle := in.counterHandle()
	i32 := types.I32

	loadInput := in.op.Func(dxilop.OpLoadInput, types.Float)
	component := func(col uint8) value.Value {
		return b.NewCall(loadInput,
			dxilop.Opcode(dxilop.OpLoadInput),
			dxilop.I32(in.pos.ID),
			dxilop.I32(0),
			dxilop.I8(col),
			constant.NewUndef(i32))
	}
	x := b.NewFPToUI(component(0), i32)
	y := b.NewFPToUI(component(1), i32)

	index := b.NewAdd(x, b.NewMul(y, dxilop.I32(in.opts.RTWidth)))
	last := dxilop.I32(in.opts.NumPixels - 1)
	over := b.NewICmp(enum.IPredUGT, index, last)
	slot := b.NewSelect(over, last, index)

	atomic := in.op.Func(dxilop.OpAtomicBinOp, i32)
	in.atomicAdd(b, atomic, handle, slot, dxilop.I32(1))

	if !in.opts.AddPixelCost {
		return
	}
	load := b.NewCall(in.op.Func(dxilop.OpBufferLoad, i32),
		dxilop.Opcode(dxilop.OpBufferLoad),
		handle,
		dxilop.I32(in.opts.NumPixels*2),
		constant.NewUndef(i32))
	weight := b.NewExtractValue(load, 0)
	costSlot := b.NewAdd(slot, dxilop.I32(in.opts.NumPixels))
	in.atomicAdd(b, atomic, handle, costSlot, weight)
}

func (in *instrumenter) atomicAdd(b *ir.Block, callee *ir.Func, handle, index, val value.Value) {
	undef := constant.NewUndef(types.I32)
	b.NewCall(callee,
		dxilop.Opcode(dxilop.OpAtomicBinOp),
		handle,
		dxilop.I32(uint32(dxilop.AtomicAdd)),
		index,
		undef,
		undef,
		val)
}

// insertAt runs gen against b and moves whatever it appended to position at.
func insertAt(b *ir.Block, at int, gen func(b *ir.Block)) {
	n := len(b.Insts)
	gen(b)
	added := append([]ir.Instruction(nil), b.Insts[n:]...)
	tail := append([]ir.Instruction(nil), b.Insts[at:n]...)
	b.Insts = append(append(b.Insts[:at], added...), tail...)
}
