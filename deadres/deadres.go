// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package deadres removes resources that no function reads.
package deadres

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"

	"github.com/gogpu/dxil/hlmodule"
)

// PassName is the pipeline name of the pass.
const PassName = "hlsl-dxil-remove-dead-resources"

// Pass deletes unreferenced resource globals and their table entries.
type Pass struct {
	removed []string
}

// New returns the pass.
func New() *Pass { return &Pass{} }

// Name returns PassName.
func (p *Pass) Name() string { return PassName }

// Removed lists the resources dropped by the last Run, in table order.
func (p *Pass) Removed() []string { return p.removed }

// Run removes every resource whose global has no use in a function body
// and is not kept alive by llvm.used. Remaining resources are renumbered.
func (p *Pass) Run(hm *hlmodule.Module) {
	dead := Unused(hm)
	p.removed = p.removed[:0]
	if len(dead) == 0 {
		return
	}

	drop := make(map[*ir.Global]bool, len(dead))
	for _, g := range dead {
		drop[g] = true
		p.removed = append(p.removed, g.Name())
		// RemoveResources drops one entry per call; a global may back
		// entries in more than one table.
		for hm.IsResourceSymbol(g) {
			hm.RemoveResources(g)
		}
	}

	m := hm.Module()
	kept := m.Globals[:0]
	for _, g := range m.Globals {
		if !drop[g] {
			kept = append(kept, g)
		}
	}
	m.Globals = kept
}

// Unused returns the resource globals of hm that nothing references.
func Unused(hm *hlmodule.Module) []*ir.Global {
	live := referencedGlobals(hm.Module())
	for _, c := range hm.Used() {
		markConstant(c, live)
	}

	var dead []*ir.Global
	seen := make(map[*ir.Global]bool)
	check := func(b *hlmodule.ResourceBase) {
		g, ok := b.Symbol.(*ir.Global)
		if !ok || live[g] || seen[g] {
			return
		}
		seen[g] = true
		dead = append(dead, g)
	}
	for _, r := range hm.CBuffers() {
		check(&r.ResourceBase)
	}
	for _, r := range hm.SRVs() {
		check(&r.ResourceBase)
	}
	for _, r := range hm.UAVs() {
		check(&r.ResourceBase)
	}
	for _, r := range hm.Samplers() {
		check(&r.ResourceBase)
	}
	return dead
}

// operands is implemented by llir instructions and terminators.
type operands interface {
	Operands() []*value.Value
}

func referencedGlobals(m *ir.Module) map[*ir.Global]bool {
	live := make(map[*ir.Global]bool)
	visit := func(x any) {
		user, ok := x.(operands)
		if !ok {
			return
		}
		for _, op := range user.Operands() {
			if op != nil {
				markValue(*op, live)
			}
		}
	}
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			for _, inst := range b.Insts {
				visit(inst)
			}
			visit(b.Term)
		}
	}
	return live
}

func markValue(v value.Value, live map[*ir.Global]bool) {
	if c, ok := v.(constant.Constant); ok {
		markConstant(c, live)
	}
}

// markConstant records the globals reachable through constant expressions.
func markConstant(c constant.Constant, live map[*ir.Global]bool) {
	switch c := c.(type) {
	case *ir.Global:
		live[c] = true
	case *constant.ExprBitCast:
		markConstant(c.From, live)
	case *constant.ExprAddrSpaceCast:
		markConstant(c.From, live)
	case *constant.ExprPtrToInt:
		markConstant(c.From, live)
	case *constant.ExprGetElementPtr:
		markConstant(c.Src, live)
		for _, idx := range c.Indices {
			markConstant(idx, live)
		}
	case *constant.Array:
		for _, e := range c.Elems {
			markConstant(e, live)
		}
	case *constant.Struct:
		for _, f := range c.Fields {
			markConstant(f, live)
		}
	}
}
