// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package shadermodel is the registry of DirectX shader models.
//
// A shader model is identified by a stage kind and a major/minor version
// and carries the register limits and UAV capabilities of that target.
// The registry is a fixed table; every lookup that does not resolve returns
// the Invalid sentinel instead of an error, so callers must check IsValid.
//
//	sm := shadermodel.GetByName("ps_6_0")
//	if !sm.IsValidForDxil() {
//	    return fmt.Errorf("unsupported profile")
//	}
package shadermodel

import (
	"fmt"
	"math"

	"golang.org/x/mod/semver"
)

// Kind is the shader stage a shader model targets.
// The order matches the DXIL ShaderKind encoding.
type Kind uint8

const (
	KindPixel Kind = iota
	KindVertex
	KindGeometry
	KindHull
	KindDomain
	KindCompute
	KindLibrary
	KindInvalid
)

// String returns the stage name.
func (k Kind) String() string {
	switch k {
	case KindPixel:
		return "pixel"
	case KindVertex:
		return "vertex"
	case KindGeometry:
		return "geometry"
	case KindHull:
		return "hull"
	case KindDomain:
		return "domain"
	case KindCompute:
		return "compute"
	case KindLibrary:
		return "library"
	default:
		return "invalid"
	}
}

// Prefix returns the profile prefix for the stage ("ps", "vs", ..., "lib").
func (k Kind) Prefix() string {
	switch k {
	case KindPixel:
		return "ps"
	case KindVertex:
		return "vs"
	case KindGeometry:
		return "gs"
	case KindHull:
		return "hs"
	case KindDomain:
		return "ds"
	case KindCompute:
		return "cs"
	case KindLibrary:
		return "lib"
	default:
		return "invalid"
	}
}

// Unbounded is the UAV register count of models without a fixed limit.
const Unbounded = math.MaxUint32

// ShaderModel describes one registered target profile.
type ShaderModel struct {
	kind          Kind
	major         uint32
	minor         uint32
	name          string
	numInputRegs  uint32
	numOutputRegs uint32
	uav           bool
	typedUAV      bool
	numUAVRegs    uint32
}

// Kind returns the stage kind.
func (sm *ShaderModel) Kind() Kind { return sm.kind }

// Major returns the major version number.
func (sm *ShaderModel) Major() uint32 { return sm.major }

// Minor returns the minor version number.
func (sm *ShaderModel) Minor() uint32 { return sm.minor }

// Name returns the profile name, e.g. "ps_6_0".
func (sm *ShaderModel) Name() string { return sm.name }

// KindName returns the stage prefix of the profile, e.g. "ps".
func (sm *ShaderModel) KindName() string { return sm.kind.Prefix() }

// NumInputRegs returns the number of input registers.
func (sm *ShaderModel) NumInputRegs() uint32 { return sm.numInputRegs }

// NumOutputRegs returns the number of output registers.
func (sm *ShaderModel) NumOutputRegs() uint32 { return sm.numOutputRegs }

// SupportsUAV reports whether the model can bind unordered access views.
func (sm *ShaderModel) SupportsUAV() bool { return sm.uav }

// SupportsTypedUAVs reports whether typed UAV loads and stores are available.
func (sm *ShaderModel) SupportsTypedUAVs() bool { return sm.typedUAV }

// NumUAVRegs returns the UAV register count, Unbounded for SM 5.1 and later.
func (sm *ShaderModel) NumUAVRegs() uint32 { return sm.numUAVRegs }

// IsValid reports whether sm is a registered model rather than the sentinel.
func (sm *ShaderModel) IsValid() bool { return sm.kind != KindInvalid }

// IsPS reports whether sm is a pixel shader model.
func (sm *ShaderModel) IsPS() bool { return sm.kind == KindPixel }

// IsVS reports whether sm is a vertex shader model.
func (sm *ShaderModel) IsVS() bool { return sm.kind == KindVertex }

// IsGS reports whether sm is a geometry shader model.
func (sm *ShaderModel) IsGS() bool { return sm.kind == KindGeometry }

// IsHS reports whether sm is a hull shader model.
func (sm *ShaderModel) IsHS() bool { return sm.kind == KindHull }

// IsDS reports whether sm is a domain shader model.
func (sm *ShaderModel) IsDS() bool { return sm.kind == KindDomain }

// IsCS reports whether sm is a compute shader model.
func (sm *ShaderModel) IsCS() bool { return sm.kind == KindCompute }

// IsLib reports whether sm is a library target.
func (sm *ShaderModel) IsLib() bool { return sm.kind == KindLibrary }

// IsSM50Plus reports whether sm is version 5.0 or later.
func (sm *ShaderModel) IsSM50Plus() bool { return sm.major >= 5 }

// IsSM51Plus reports whether sm is version 5.1 or later.
func (sm *ShaderModel) IsSM51Plus() bool { return sm.major > 5 || (sm.major == 5 && sm.minor >= 1) }

// IsSM60Plus reports whether sm is version 6.0 or later.
func (sm *ShaderModel) IsSM60Plus() bool { return sm.major >= 6 }

// IsSM61Plus reports whether sm is version 6.1 or later.
func (sm *ShaderModel) IsSM61Plus() bool { return sm.major > 6 || (sm.major == 6 && sm.minor >= 1) }

// IsSM62Plus reports whether sm is version 6.2 or later.
func (sm *ShaderModel) IsSM62Plus() bool { return sm.major > 6 || (sm.major == 6 && sm.minor >= 2) }

// IsValidForDxil reports whether code generation supports this model.
// Only 6.0 through 6.2 are DXIL targets.
func (sm *ShaderModel) IsValidForDxil() bool {
	if !sm.IsValid() {
		return false
	}
	return sm.major == 6 && sm.minor <= 2
}

// DxilVersion returns the DXIL version emitted for this model.
// It panics if the model is not valid for DXIL.
func (sm *ShaderModel) DxilVersion() (major, minor uint32) {
	if !sm.IsValidForDxil() {
		panic(fmt.Sprintf("shadermodel: DxilVersion called on %s", sm.name))
	}
	return 1, sm.minor
}

// MinValidatorVersion returns the oldest validator accepting this model.
// It panics if the model is not valid for DXIL.
func (sm *ShaderModel) MinValidatorVersion() (major, minor uint32) {
	if !sm.IsValidForDxil() {
		panic(fmt.Sprintf("shadermodel: MinValidatorVersion called on %s", sm.name))
	}
	return 1, sm.minor
}

// SupportedByValidator reports whether a validator of the given version
// accepts this model. A 0.0 validator disables validation and accepts all.
func (sm *ShaderModel) SupportedByValidator(major, minor uint32) bool {
	if major == 0 && minor == 0 {
		return true
	}
	reqMajor, reqMinor := sm.MinValidatorVersion()
	return semver.Compare(semverString(major, minor), semverString(reqMajor, reqMinor)) >= 0
}

// String returns the profile name.
func (sm *ShaderModel) String() string { return sm.name }

func semverString(major, minor uint32) string {
	return fmt.Sprintf("v%d.%d.0", major, minor)
}
