// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

import (
	"fmt"

	"github.com/llir/llvm/ir"

	"github.com/gogpu/dxil/typesys"
)

// ValidationError describes one broken module invariant.
type ValidationError struct {
	Message string
	// Optional context
	Resource string
	Function string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	switch {
	case e.Resource != "":
		return fmt.Sprintf("resource %s: %s", e.Resource, e.Message)
	case e.Function != "":
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validator checks a module before it is emitted.
type Validator struct {
	module *Module
	errors []ValidationError
}

// Validate checks hm for broken invariants. It returns the list of
// problems found, or nil if the module is consistent.
func Validate(hm *Module) ([]ValidationError, error) {
	if hm == nil {
		return nil, fmt.Errorf("module is nil")
	}

	v := &Validator{module: hm}
	v.ValidateModule()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateModule runs every check.
func (v *Validator) ValidateModule() {
	v.validateShaderModel()
	v.validateEntryPoint()
	v.validateResources()
	v.validateSignatures()
	v.validateAnnotations()
}

func (v *Validator) validateShaderModel() {
	sm := v.module.sm
	if sm == nil {
		v.addError("shader model not set")
		return
	}
	if !sm.IsValidForDxil() {
		v.addError(fmt.Sprintf("shader model %s is not a DXIL target", sm))
	}
}

func (v *Validator) validateEntryPoint() {
	entry := v.module.entry
	if entry == nil {
		if v.module.sm != nil && !v.module.sm.IsLib() {
			v.addError("entry point not set")
		}
		return
	}
	if len(entry.Blocks) == 0 {
		v.addFunctionError(entry, "entry point has no body")
	}
	if !containsFunc(v.module.module.Funcs, entry) {
		v.addFunctionError(entry, "entry point is not part of the module")
	}
}

func (v *Validator) validateResources() {
	hm := v.module
	check := func(class ResourceClass, i int, r *ResourceBase) {
		name := fmt.Sprintf("%s%d (%s)", class.RegisterPrefix(), r.LowerBound, r.Name)
		if r.ID != uint32(i) {
			v.addResourceError(name, fmt.Sprintf("id %d at position %d", r.ID, i))
		}
		if r.Class != class {
			v.addResourceError(name, fmt.Sprintf("class %s in %s table", r.Class, class))
		}
		if r.Symbol == nil {
			v.addResourceError(name, "no symbol")
		}
		if r.RangeSize == 0 {
			v.addResourceError(name, "empty register range")
		} else if r.UpperBound() < r.LowerBound {
			v.addResourceError(name, "register range overflows")
		}
	}
	for i, r := range hm.cbuffers {
		check(ClassCBuffer, i, &r.ResourceBase)
	}
	for i, r := range hm.srvs {
		check(ClassSRV, i, &r.ResourceBase)
		v.validateView(r)
	}
	for i, r := range hm.uavs {
		check(ClassUAV, i, &r.ResourceBase)
		v.validateView(r)
	}
	for i, r := range hm.samplers {
		check(ClassSampler, i, &r.ResourceBase)
	}
}

// validateView checks the kind-specific properties of an SRV or UAV.
func (v *Validator) validateView(r *Resource) {
	switch {
	case r.Kind.IsStructuredBuffer() && r.ElementStride == 0:
		v.addResourceError(r.Name, "structured buffer without stride")
	case r.Kind.IsTexture() && r.CompType == typesys.CompInvalid:
		v.addResourceError(r.Name, "texture without component type")
	}
}

func (v *Validator) validateSignatures() {
	for _, sig := range []*Signature{&v.module.inputSig, &v.module.outputSig, &v.module.patchConstSig} {
		for i, e := range sig.Elements {
			if e.ID != uint32(i) {
				v.addError(fmt.Sprintf("signature element %s has id %d at position %d", e.Name, e.ID, i))
			}
			if e.Cols == 0 || e.Cols > 4 {
				v.addError(fmt.Sprintf("signature element %s has %d columns", e.Name, e.Cols))
			}
		}
	}
}

func (v *Validator) validateAnnotations() {
	ts := v.module.typeSystem
	for _, sa := range ts.StructAnnotations() {
		if !sa.IsEmptyStruct() && sa.NumFields() != len(sa.StructType().Fields) {
			v.addError(fmt.Sprintf("struct %s: %d field annotations for %d fields",
				sa.StructType().Name(), sa.NumFields(), len(sa.StructType().Fields)))
		}
	}
	for _, fa := range ts.FunctionAnnotations() {
		if fa.NumParameters() != len(fa.Function().Params) {
			v.addFunctionError(fa.Function(), fmt.Sprintf("%d parameter annotations for %d parameters",
				fa.NumParameters(), len(fa.Function().Params)))
		}
	}
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, ValidationError{Message: msg})
}

func (v *Validator) addResourceError(name, msg string) {
	v.errors = append(v.errors, ValidationError{Message: msg, Resource: name})
}

func (v *Validator) addFunctionError(f *ir.Func, msg string) {
	v.errors = append(v.errors, ValidationError{Message: msg, Function: f.Name()})
}

func containsFunc(funcs []*ir.Func, f *ir.Func) bool {
	for _, g := range funcs {
		if g == f {
			return true
		}
	}
	return false
}
