// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlmodule

// PackingStrategy selects how signature elements are packed.
type PackingStrategy uint8

const (
	PackingDefault PackingStrategy = iota
	PackingPrefixStable
	PackingOptimized
)

// Options holds the compiler options that survive in the module. They are
// persisted as a single packed word.
type Options struct {
	// DefaultRowMajor makes matrices row major unless annotated otherwise.
	DefaultRowMajor bool

	// IEEEStrict disables floating point relaxations.
	IEEEStrict bool

	// AllResourcesBound promises that every declared resource is bound.
	AllResourcesBound bool

	DisableOptimizations bool

	// LegacyCBufferLoad keeps the SM5 cbuffer load layout.
	LegacyCBufferLoad bool

	PackingStrategy PackingStrategy

	// UseMinPrecision maps half types to min16float instead of native 16 bit.
	UseMinPrecision bool

	DX9CompatMode bool
	FXCCompatMode bool

	// LegacyResourceReservation reserves registers of unused resources.
	LegacyResourceReservation bool
}

const (
	optDefaultRowMajor = 1 << iota
	optIEEEStrict
	optAllResourcesBound
	optDisableOptimizations
	optLegacyCBufferLoad
	optPackingLo
	optPackingHi
	optUseMinPrecision
	optDX9CompatMode
	optFXCCompatMode
	optLegacyResourceReservation
)

const (
	packingShift = 5
	packingMask  = optPackingLo | optPackingHi
)

// Word returns the packed option word.
func (o Options) Word() uint32 {
	var w uint32
	set := func(b bool, bit uint32) {
		if b {
			w |= bit
		}
	}
	set(o.DefaultRowMajor, optDefaultRowMajor)
	set(o.IEEEStrict, optIEEEStrict)
	set(o.AllResourcesBound, optAllResourcesBound)
	set(o.DisableOptimizations, optDisableOptimizations)
	set(o.LegacyCBufferLoad, optLegacyCBufferLoad)
	w |= uint32(o.PackingStrategy) << packingShift & packingMask
	set(o.UseMinPrecision, optUseMinPrecision)
	set(o.DX9CompatMode, optDX9CompatMode)
	set(o.FXCCompatMode, optFXCCompatMode)
	set(o.LegacyResourceReservation, optLegacyResourceReservation)
	return w
}

// OptionsFromWord unpacks a word produced by Options.Word. Unknown bits are
// ignored.
func OptionsFromWord(w uint32) Options {
	return Options{
		DefaultRowMajor:           w&optDefaultRowMajor != 0,
		IEEEStrict:                w&optIEEEStrict != 0,
		AllResourcesBound:         w&optAllResourcesBound != 0,
		DisableOptimizations:      w&optDisableOptimizations != 0,
		LegacyCBufferLoad:         w&optLegacyCBufferLoad != 0,
		PackingStrategy:           PackingStrategy(w & packingMask >> packingShift),
		UseMinPrecision:           w&optUseMinPrecision != 0,
		DX9CompatMode:             w&optDX9CompatMode != 0,
		FXCCompatMode:             w&optFXCCompatMode != 0,
		LegacyResourceReservation: w&optLegacyResourceReservation != 0,
	}
}

// ShaderFlags records module-wide features required by the shader.
type ShaderFlags uint64

const (
	FlagDisableOptimizations ShaderFlags = 1 << iota
	FlagDisableMathRefactoring
	FlagEnableDoublePrecision
	FlagForceEarlyDepthStencil
	FlagEnableRawAndStructuredBuffers
	FlagLowPrecisionPresent
	FlagEnableDoubleExtensions
	FlagEnableMSAD
	FlagAllResourcesBound
	FlagViewportAndRTArrayIndex
	FlagInnerCoverage
	FlagStencilRef
	FlagTiledResources
	FlagUAVLoadAdditionalFormats
	FlagLevel9ComparisonFiltering
	Flag64UAVs
	FlagUAVsAtEveryStage
	FlagCSRawAndStructuredViaShader4X
	FlagROVs
	FlagWaveOps
	FlagInt64Ops
	FlagViewID
	FlagBarycentrics
	FlagUseNativeLowPrecision
)

// Has reports whether every flag in f is set.
func (s ShaderFlags) Has(f ShaderFlags) bool { return s&f == f }
