// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"math"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// mdWriter creates numbered metadata nodes in one module.
type mdWriter struct {
	m *ir.Module
}

// tuple creates a numbered tuple and registers it with the module.
func (w mdWriter) tuple(fields ...metadata.Field) *metadata.Tuple {
	t := &metadata.Tuple{Fields: fields}
	t.SetID(int64(len(w.m.MetadataDefs)))
	w.m.MetadataDefs = append(w.m.MetadataDefs, t)
	return t
}

// adopt registers a tuple created outside the writer, such as one dropped
// by ClearHLMetadata but still referenced from an annotation.
func (w mdWriter) adopt(t *metadata.Tuple) *metadata.Tuple {
	if id := t.ID(); id >= 0 && id < int64(len(w.m.MetadataDefs)) && w.m.MetadataDefs[id] == t {
		return t
	}
	t.SetID(int64(len(w.m.MetadataDefs)))
	w.m.MetadataDefs = append(w.m.MetadataDefs, t)
	return t
}

// named replaces the named section name with nodes.
func (w mdWriter) named(name string, nodes ...metadata.Node) {
	if w.m.NamedMetadataDefs == nil {
		w.m.NamedMetadataDefs = make(map[string]*metadata.NamedDef)
	}
	w.m.NamedMetadataDefs[name] = &metadata.NamedDef{Name: name, Nodes: nodes}
}

// mdConst and mdValue emit bare typed operands; llir prints a metadata.Value
// wrapper with a leading metadata keyword that no parser accepts.
func mdConst(c constant.Constant) metadata.Field { return c }

func mdI32(v uint32) metadata.Field { return mdConst(constant.NewInt(types.I32, int64(v))) }

func mdS32(v int32) metadata.Field { return mdConst(constant.NewInt(types.I32, int64(v))) }

func mdI8(v int8) metadata.Field { return mdConst(constant.NewInt(types.I8, int64(v))) }

func mdI64(v uint64) metadata.Field { return mdConst(constant.NewInt(types.I64, int64(v))) }

func mdBool(b bool) metadata.Field { return mdConst(constant.NewBool(b)) }

func mdFloat(f float32) metadata.Field { return mdConst(constant.NewFloat(types.Float, float64(f))) }

func mdString(s string) metadata.Field { return &metadata.String{Value: s} }

func mdValue(v value.Value) metadata.Field { return v }

func mdNull() metadata.Field { return &metadata.NullLit{} }

// mdTupleOrNull returns t, or a null field when t is nil.
func mdTupleOrNull(t *metadata.Tuple) metadata.Field {
	if t == nil {
		return mdNull()
	}
	return t
}

// mdReader walks the fields of one tuple. The first decoding failure is
// kept and every later read returns a zero value, so callers check err once.
type mdReader struct {
	section string
	fields  []metadata.Field
	pos     int
	err     error
}

func newReader(section string, node any) *mdReader {
	r := &mdReader{section: section}
	t, ok := node.(*metadata.Tuple)
	if !ok {
		r.fail("expected tuple, got %T", node)
		return r
	}
	r.fields = t.Fields
	return r
}

func (r *mdReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = corrupt(r.section, format, args...)
	}
}

// more reports whether unread fields remain.
func (r *mdReader) more() bool { return r.err == nil && r.pos < len(r.fields) }

// len returns the total number of fields.
func (r *mdReader) len() int { return len(r.fields) }

// done fails unless every field was consumed.
func (r *mdReader) done() error {
	if r.err == nil && r.pos != len(r.fields) {
		r.fail("%d unexpected trailing operands", len(r.fields)-r.pos)
	}
	return r.err
}

func (r *mdReader) next() metadata.Field {
	if r.err != nil {
		return nil
	}
	if r.pos >= len(r.fields) {
		r.fail("missing operand %d", r.pos)
		return nil
	}
	f := r.fields[r.pos]
	r.pos++
	return f
}

// value returns the next field as an IR value.
func (r *mdReader) value() value.Value {
	f := r.next()
	if f == nil {
		return nil
	}
	switch f := any(f).(type) {
	case *metadata.Value:
		if v, ok := f.Value.(value.Value); ok {
			return v
		}
	case value.Value:
		return f
	}
	r.fail("operand %d: expected value, got %T", r.pos-1, f)
	return nil
}

// valueOrNull returns the next field as an IR value, or nil for null.
func (r *mdReader) valueOrNull() value.Value {
	if r.peekNull() {
		r.pos++
		return nil
	}
	return r.value()
}

func (r *mdReader) int() *constant.Int {
	v := r.value()
	if v == nil {
		return nil
	}
	c, ok := v.(*constant.Int)
	if !ok {
		r.fail("operand %d: expected integer constant, got %v", r.pos-1, v)
		return nil
	}
	return c
}

func (r *mdReader) u64() uint64 {
	c := r.int()
	if c == nil {
		return 0
	}
	return c.X.Uint64()
}

func (r *mdReader) u32() uint32 {
	c := r.int()
	if c == nil {
		return 0
	}
	if !c.X.IsUint64() || c.X.Uint64() > math.MaxUint32 {
		r.fail("operand %d: %s out of range", r.pos-1, c.X)
		return 0
	}
	return uint32(c.X.Uint64())
}

// s32 reads a signed integer such as an unpacked start row of -1.
func (r *mdReader) s32() int32 {
	c := r.int()
	if c == nil {
		return 0
	}
	v := c.X.Int64()
	if bits := c.Typ.BitSize; bits < 64 && v >= 1<<(bits-1) {
		v -= 1 << bits
	}
	return int32(v)
}

func (r *mdReader) bool() bool {
	return r.u64() != 0
}

func (r *mdReader) float() float32 {
	v := r.value()
	if v == nil {
		return 0
	}
	c, ok := v.(*constant.Float)
	if !ok {
		r.fail("operand %d: expected float constant, got %v", r.pos-1, v)
		return 0
	}
	f, _ := c.X.Float32()
	return f
}

func (r *mdReader) string() string {
	f := r.next()
	if f == nil {
		return ""
	}
	s, ok := f.(*metadata.String)
	if !ok {
		r.fail("operand %d: expected string, got %T", r.pos-1, f)
		return ""
	}
	return s.Value
}

func (r *mdReader) peekNull() bool {
	if !r.more() {
		return false
	}
	_, ok := r.fields[r.pos].(*metadata.NullLit)
	return ok
}

// tuple returns the next field as a tuple, or nil if it is null.
func (r *mdReader) tuple() *metadata.Tuple {
	if r.peekNull() {
		r.pos++
		return nil
	}
	f := r.next()
	if f == nil {
		return nil
	}
	t, ok := f.(*metadata.Tuple)
	if !ok {
		r.fail("operand %d: expected tuple, got %T", r.pos-1, f)
		return nil
	}
	return t
}

// sub returns a reader over the next tuple field, or nil if it is null.
func (r *mdReader) sub() *mdReader {
	t := r.tuple()
	if t == nil {
		return nil
	}
	return &mdReader{section: r.section, fields: t.Fields}
}

// join records the error of a nested reader in r.
func (r *mdReader) join(sub *mdReader) {
	if sub != nil && sub.err != nil && r.err == nil {
		r.err = sub.err
	}
}

func (r *mdReader) function() *ir.Func {
	v := r.valueOrNull()
	if v == nil {
		return nil
	}
	f, ok := v.(*ir.Func)
	if !ok {
		r.fail("operand %d: expected function, got %v", r.pos-1, v)
		return nil
	}
	return f
}

// undefType returns the type carried by an "T undef" operand.
func (r *mdReader) undefType() types.Type {
	v := r.value()
	if v == nil {
		return nil
	}
	u, ok := v.(*constant.Undef)
	if !ok {
		r.fail("operand %d: expected undef, got %v", r.pos-1, v)
		return nil
	}
	return u.Typ
}

// namedNodes returns the nodes of the named section, or nil.
func namedNodes(m *ir.Module, name string) []metadata.Node {
	def, ok := m.NamedMetadataDefs[name]
	if !ok {
		return nil
	}
	return def.Nodes
}

// singleNode returns the only node of a named section, or nil if absent.
func singleNode(m *ir.Module, name string) (metadata.Node, error) {
	nodes := namedNodes(m, name)
	switch len(nodes) {
	case 0:
		return nil, nil
	case 1:
		return nodes[0], nil
	}
	return nil, corrupt(name, "expected one node, got %d", len(nodes))
}
