// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"

	"github.com/gogpu/dxil/shadermodel"
)

// Named metadata sections. The names and tuple layouts are read by the
// validator and must not change.
const (
	SectionVersion           = "dx.version"
	SectionValidatorVersion  = "dx.valver"
	SectionShaderModel       = "dx.shaderModel"
	SectionResources         = "dx.resources"
	SectionTypeAnnotations   = "dx.typeAnnotations"
	SectionEntryPoints       = "dx.entryPoints"
	SectionFunctionProps     = "dx.fnprops"
	SectionOptions           = "dx.options"
	SectionResourceTypeAnnot = "dx.resource.type.annotation"
	SectionRootSignature     = "dx.rootSignature"
	SectionViewIDState       = "dx.viewIdState"
	SectionTypeVarPrefix     = "dx.typevar."
	usedGlobalName           = "llvm.used"
	usedSection              = "llvm.metadata"
)

var hlSections = []string{
	SectionVersion,
	SectionValidatorVersion,
	SectionShaderModel,
	SectionResources,
	SectionTypeAnnotations,
	SectionEntryPoints,
	SectionFunctionProps,
	SectionOptions,
	SectionResourceTypeAnnot,
	SectionRootSignature,
	SectionViewIDState,
}

// HasHLMetadata reports whether m carries a serialized module.
func HasHLMetadata(m *ir.Module) bool {
	_, ok := m.NamedMetadataDefs[SectionShaderModel]
	return ok
}

// EmitHLMetadata writes the module into the named metadata of the wrapped
// LLVM module. Stale sections should be removed with ClearHLMetadata first.
func (hm *Module) EmitHLMetadata() {
	if hm.sm == nil {
		panic("hlmodule: shader model not set")
	}
	w := mdWriter{m: hm.module}

	major, minor := hm.DxilVersion()
	w.named(SectionVersion, w.tuple(mdI32(major), mdI32(minor)))
	w.named(SectionValidatorVersion, w.tuple(mdI32(hm.valMajor), mdI32(hm.valMinor)))
	w.named(SectionShaderModel, w.tuple(
		mdString(hm.sm.KindName()), mdI32(hm.sm.Major()), mdI32(hm.sm.Minor())))

	resources := hm.emitResources(w)
	if resources != nil {
		w.named(SectionResources, resources)
	}
	if nodes := hm.emitTypeSystem(w); len(nodes) > 0 {
		w.named(SectionTypeAnnotations, nodes...)
	}
	hm.emitUsed()

	w.named(SectionEntryPoints, hm.emitEntryPoint(w, resources))
	if nodes := hm.emitFunctionProps(w); len(nodes) > 0 {
		w.named(SectionFunctionProps, nodes...)
	}
	w.named(SectionOptions, w.tuple(mdI32(hm.options.Word())))
	if t := hm.emitResourceTypeAnnotations(w); t != nil {
		w.named(SectionResourceTypeAnnot, t)
	}
	if len(hm.rootSignature) > 0 {
		w.named(SectionRootSignature, w.tuple(mdConst(constant.NewCharArray(hm.rootSignature))))
	}
}

// Load reads a module serialized by EmitHLMetadata. On error nothing is
// returned; the returned error is an *Error.
func Load(m *ir.Module) (*Module, error) {
	hm := New(m)
	steps := []func() error{
		hm.loadVersions,
		hm.loadShaderModel,
		hm.loadEntryPoint,
		hm.loadResources,
		hm.loadTypeSystem,
		hm.loadFunctionProps,
		hm.loadOptions,
		hm.loadResourceTypeAnnotations,
		hm.loadRootSignature,
		hm.loadUsed,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return hm, nil
}

// ClearHLMetadata removes every serialized section from m together with the
// numbered nodes only they referenced, and the llvm.used list.
func ClearHLMetadata(m *ir.Module) {
	var dropped []metadata.Node
	for name, def := range m.NamedMetadataDefs {
		if isHLSection(name) {
			dropped = append(dropped, def.Nodes...)
			delete(m.NamedMetadataDefs, name)
		}
	}
	removeUsedGlobal(m)
	if len(dropped) == 0 {
		return
	}

	live := make(map[metadata.Definition]bool)
	for _, def := range m.NamedMetadataDefs {
		for _, n := range def.Nodes {
			markReachable(n, live)
		}
	}
	dead := make(map[metadata.Definition]bool)
	for _, n := range dropped {
		markReachable(n, dead)
	}

	kept := m.MetadataDefs[:0]
	for _, d := range m.MetadataDefs {
		if dead[d] && !live[d] {
			continue
		}
		kept = append(kept, d)
	}
	for i := len(kept); i < len(m.MetadataDefs); i++ {
		m.MetadataDefs[i] = nil
	}
	m.MetadataDefs = kept
	for i, d := range m.MetadataDefs {
		d.SetID(int64(i))
	}
}

func isHLSection(name string) bool {
	if strings.HasPrefix(name, SectionTypeVarPrefix) {
		return true
	}
	for _, s := range hlSections {
		if s == name {
			return true
		}
	}
	return false
}

// markReachable records every tuple reachable from n.
func markReachable(n any, seen map[metadata.Definition]bool) {
	t, ok := n.(*metadata.Tuple)
	if !ok || seen[t] {
		return
	}
	seen[t] = true
	for _, f := range t.Fields {
		markReachable(f, seen)
	}
}

func (hm *Module) loadVersions() error {
	node, err := singleNode(hm.module, SectionValidatorVersion)
	if err != nil || node == nil {
		return err
	}
	r := newReader(SectionValidatorVersion, node)
	hm.valMajor, hm.valMinor = r.u32(), r.u32()
	return r.done()
}

func (hm *Module) loadShaderModel() error {
	node, err := singleNode(hm.module, SectionShaderModel)
	if err != nil {
		return err
	}
	if node == nil {
		return corrupt(SectionShaderModel, "section missing")
	}
	r := newReader(SectionShaderModel, node)
	kind, major, minor := r.string(), r.u32(), r.u32()
	if err := r.done(); err != nil {
		return err
	}
	sm := shadermodel.GetByName(fmt.Sprintf("%s_%d_%d", kind, major, minor))
	if !sm.IsValidForDxil() {
		return &Error{
			Kind:    ErrInvalidShaderModel,
			Section: SectionShaderModel,
			Message: fmt.Sprintf("%s_%d_%d is not a DXIL shader model", kind, major, minor),
		}
	}
	hm.sm = sm

	// dx.version is derived from the shader model; reject a contradiction.
	if node, err := singleNode(hm.module, SectionVersion); err != nil {
		return err
	} else if node != nil {
		r := newReader(SectionVersion, node)
		gotMajor, gotMinor := r.u32(), r.u32()
		if err := r.done(); err != nil {
			return err
		}
		if wantMajor, wantMinor := sm.DxilVersion(); gotMajor != wantMajor || gotMinor != wantMinor {
			return corrupt(SectionVersion, "version %d.%d does not match %s", gotMajor, gotMinor, sm)
		}
	}
	return nil
}

func (hm *Module) loadOptions() error {
	node, err := singleNode(hm.module, SectionOptions)
	if err != nil || node == nil {
		return err
	}
	r := newReader(SectionOptions, node)
	hm.options = OptionsFromWord(r.u32())
	return r.done()
}

func (hm *Module) emitResourceTypeAnnotations(w mdWriter) *metadata.Tuple {
	if len(hm.resTypeOrder) == 0 {
		return nil
	}
	fields := make([]metadata.Field, 0, 3*len(hm.resTypeOrder))
	for _, t := range hm.resTypeOrder {
		a := hm.resTypes[t]
		fields = append(fields, mdConst(constant.NewUndef(t)), mdI32(uint32(a.class)), mdI32(uint32(a.kind)))
	}
	return w.tuple(fields...)
}

func (hm *Module) loadResourceTypeAnnotations() error {
	for _, node := range namedNodes(hm.module, SectionResourceTypeAnnot) {
		r := newReader(SectionResourceTypeAnnot, node)
		if r.err != nil {
			return r.err
		}
		if r.len()%3 != 0 {
			return corrupt(SectionResourceTypeAnnot, "%d operands is not a list of triples", r.len())
		}
		for r.more() {
			t, class, kind := r.undefType(), ResourceClass(r.u32()), ResourceKind(r.u32())
			if r.err != nil {
				return r.err
			}
			if a, ok := hm.resTypes[t]; ok && (a.class != class || a.kind != kind) {
				return corrupt(SectionResourceTypeAnnot, "conflicting annotations for %v", t)
			}
			hm.AddResourceTypeAnnotation(t, class, kind)
		}
	}
	return nil
}

func (hm *Module) loadRootSignature() error {
	node, err := singleNode(hm.module, SectionRootSignature)
	if err != nil || node == nil {
		return err
	}
	r := newReader(SectionRootSignature, node)
	v := r.value()
	if err := r.done(); err != nil {
		return err
	}
	data, ok := v.(*constant.CharArray)
	if !ok {
		return corrupt(SectionRootSignature, "expected byte array, got %v", v)
	}
	hm.rootSignature = append([]byte(nil), data.X...)
	return nil
}

// emitUsed replaces the llvm.used global with the current list.
func (hm *Module) emitUsed() {
	removeUsedGlobal(hm.module)
	if len(hm.used) == 0 {
		return
	}
	elems := make([]constant.Constant, len(hm.used))
	for i, c := range hm.used {
		elems[i] = constant.NewBitCast(c, types.I8Ptr)
	}
	arr := constant.NewArray(types.NewArray(uint64(len(elems)), types.I8Ptr), elems...)
	g := hm.module.NewGlobalDef(usedGlobalName, arr)
	g.Linkage = enum.LinkageAppending
	g.Section = usedSection
}

func (hm *Module) loadUsed() error {
	g := findGlobal(hm.module, usedGlobalName)
	if g == nil || g.Init == nil {
		return nil
	}
	arr, ok := g.Init.(*constant.Array)
	if !ok {
		return corrupt(usedGlobalName, "initializer is %v, not an array", g.Init)
	}
	for _, e := range arr.Elems {
		if bc, ok := e.(*constant.ExprBitCast); ok {
			e = bc.From
		}
		hm.used = append(hm.used, e)
	}
	return nil
}

func findGlobal(m *ir.Module, name string) *ir.Global {
	for _, g := range m.Globals {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

func removeUsedGlobal(m *ir.Module) {
	for i, g := range m.Globals {
		if g.Name() == usedGlobalName {
			m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
			return
		}
	}
}
