// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"

	"github.com/gogpu/dxil/typesys"
)

// First operand of each dx.typeAnnotations node.
const (
	typeAnnotStructs   = 0
	typeAnnotFunctions = 1
)

// Field annotation tags.
const (
	fieldTagMatrix            = 2
	fieldTagCBufferOffset     = 3
	fieldTagSemantic          = 4
	fieldTagInterpolation     = 5
	fieldTagFieldName         = 6
	fieldTagCompType          = 7
	fieldTagPrecise           = 8
	fieldTagResourceAttribute = 10
)

func (w mdWriter) fieldAnnotation(a *typesys.FieldAnnotation) *metadata.Tuple {
	var kv []metadata.Field
	if a.IsPrecise() {
		kv = append(kv, mdI32(fieldTagPrecise), mdBool(true))
	}
	if a.HasMatrix() {
		m := a.Matrix()
		kv = append(kv, mdI32(fieldTagMatrix),
			w.tuple(mdI32(m.Rows), mdI32(m.Cols), mdI32(uint32(m.Orientation))))
	}
	if a.HasCBufferOffset() {
		kv = append(kv, mdI32(fieldTagCBufferOffset), mdI32(a.CBufferOffset()))
	}
	if a.HasSemanticString() {
		kv = append(kv, mdI32(fieldTagSemantic), mdString(a.SemanticString()))
	}
	if a.HasInterpolationMode() {
		kv = append(kv, mdI32(fieldTagInterpolation), mdI32(uint32(a.InterpolationMode())))
	}
	if a.HasFieldName() {
		kv = append(kv, mdI32(fieldTagFieldName), mdString(a.FieldName()))
	}
	if a.HasCompType() {
		kv = append(kv, mdI32(fieldTagCompType), mdI32(uint32(a.CompType())))
	}
	if a.HasResourceAttribute() {
		kv = append(kv, mdI32(fieldTagResourceAttribute), w.adopt(a.ResourceAttribute()))
	}
	return w.tuple(kv...)
}

func (w mdWriter) parameterAnnotation(a *typesys.ParameterAnnotation) *metadata.Tuple {
	semIdx := mdNull()
	if idx := a.SemanticIndices(); len(idx) > 0 {
		fields := make([]metadata.Field, len(idx))
		for i, v := range idx {
			fields[i] = mdI32(v)
		}
		semIdx = w.tuple(fields...)
	}
	return w.tuple(mdI32(uint32(a.InputQualifier())), w.fieldAnnotation(&a.FieldAnnotation), semIdx)
}

// emitTypeSystem returns the dx.typeAnnotations nodes: one for structs and
// one for functions, each omitted when empty.
func (hm *Module) emitTypeSystem(w mdWriter) []metadata.Node {
	var nodes []metadata.Node

	if structs := hm.typeSystem.StructAnnotations(); len(structs) > 0 {
		fields := []metadata.Field{mdI32(typeAnnotStructs)}
		for _, sa := range structs {
			sf := []metadata.Field{mdI32(sa.CBufferSize())}
			for i := 0; i < sa.NumFields(); i++ {
				sf = append(sf, w.fieldAnnotation(sa.Field(i)))
			}
			fields = append(fields, mdConst(constant.NewUndef(sa.StructType())), w.tuple(sf...))
		}
		nodes = append(nodes, w.tuple(fields...))
	}

	if funcs := hm.typeSystem.FunctionAnnotations(); len(funcs) > 0 {
		fields := []metadata.Field{mdI32(typeAnnotFunctions)}
		for _, fa := range funcs {
			ff := []metadata.Field{mdI32(uint32(fa.FPFlag())), w.parameterAnnotation(fa.Return())}
			for i := 0; i < fa.NumParameters(); i++ {
				ff = append(ff, w.parameterAnnotation(fa.Parameter(i)))
			}
			fields = append(fields, mdValue(fa.Function()), w.tuple(ff...))
		}
		nodes = append(nodes, w.tuple(fields...))
	}
	return nodes
}

func (hm *Module) loadTypeSystem() error {
	for _, node := range namedNodes(hm.module, SectionTypeAnnotations) {
		r := newReader(SectionTypeAnnotations, node)
		switch tag := r.u32(); {
		case r.err != nil:
		case tag == typeAnnotStructs:
			for r.more() {
				hm.loadStructAnnotation(r)
			}
		case tag == typeAnnotFunctions:
			for r.more() {
				hm.loadFunctionAnnotation(r)
			}
		default:
			r.fail("unknown annotation list %d", tag)
		}
		if err := r.done(); err != nil {
			return err
		}
	}
	return nil
}

func (hm *Module) loadStructAnnotation(r *mdReader) {
	t := r.undefType()
	sr := r.sub()
	if r.err != nil {
		return
	}
	st, ok := t.(*types.StructType)
	if !ok {
		r.fail("annotated type %v is not a struct", t)
		return
	}
	if sr == nil {
		r.fail("null annotation for %s", st.Name())
		return
	}
	if hm.typeSystem.GetStructAnnotation(st) != nil {
		r.fail("struct %s annotated twice", st.Name())
		return
	}

	sa := hm.typeSystem.AddStructAnnotation(st)
	sa.SetCBufferSize(sr.u32())
	switch n := sr.len() - 1; {
	case n == 0:
		sa.MarkEmptyStruct()
	case n != sa.NumFields():
		sr.fail("struct %s has %d fields, annotation has %d", st.Name(), sa.NumFields(), n)
	default:
		for i := 0; i < n; i++ {
			readFieldAnnotation(sr, sa.Field(i))
		}
	}
	sr.done()
	r.join(sr)
}

func (hm *Module) loadFunctionAnnotation(r *mdReader) {
	f := r.function()
	fr := r.sub()
	if r.err != nil {
		return
	}
	if f == nil || fr == nil {
		r.fail("null function annotation")
		return
	}
	if hm.typeSystem.GetFunctionAnnotation(f) != nil {
		r.fail("function %s annotated twice", f.Name())
		return
	}
	if got := fr.len() - 2; got != len(f.Params) {
		r.fail("function %s has %d parameters, annotation has %d", f.Name(), len(f.Params), got)
		return
	}

	fa := hm.typeSystem.AddFunctionAnnotationWithFPFlag(f, typesys.FPFlag(fr.u32()))
	readParameterAnnotation(fr, fa.Return())
	for i := 0; i < fa.NumParameters(); i++ {
		readParameterAnnotation(fr, fa.Parameter(i))
	}
	r.join(fr)
}

func readParameterAnnotation(r *mdReader, a *typesys.ParameterAnnotation) {
	pr := r.sub()
	if pr == nil {
		r.fail("null parameter annotation")
		return
	}
	a.SetInputQualifier(typesys.InputQualifier(pr.u32()))
	readFieldAnnotation(pr, &a.FieldAnnotation)
	if idx := pr.sub(); idx != nil {
		var indices []uint32
		for idx.more() {
			indices = append(indices, idx.u32())
		}
		a.SetSemanticIndices(indices)
		pr.join(idx)
	}
	pr.done()
	r.join(pr)
}

func readFieldAnnotation(r *mdReader, a *typesys.FieldAnnotation) {
	kv := r.sub()
	if kv == nil {
		r.fail("null field annotation")
		return
	}
	for kv.more() {
		switch tag := kv.u32(); tag {
		case fieldTagPrecise:
			a.SetPrecise(kv.bool())
		case fieldTagMatrix:
			m := kv.sub()
			if m == nil {
				kv.fail("null matrix annotation")
				break
			}
			a.SetMatrix(typesys.MatrixAnnotation{
				Rows:        m.u32(),
				Cols:        m.u32(),
				Orientation: typesys.MatrixOrientation(m.u32()),
			})
			m.done()
			kv.join(m)
		case fieldTagCBufferOffset:
			a.SetCBufferOffset(kv.u32())
		case fieldTagSemantic:
			a.SetSemanticString(kv.string())
		case fieldTagInterpolation:
			a.SetInterpolationMode(typesys.InterpolationMode(kv.u32()))
		case fieldTagFieldName:
			a.SetFieldName(kv.string())
		case fieldTagCompType:
			a.SetCompType(typesys.CompType(kv.u32()))
		case fieldTagResourceAttribute:
			a.SetResourceAttribute(kv.tuple())
		default:
			kv.fail("unknown field annotation tag %d", tag)
		}
	}
	r.join(kv)
}
