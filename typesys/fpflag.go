// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package typesys

// DenormMode controls how denormal floats are treated.
type DenormMode uint32

const (
	DenormIEEE      DenormMode = 0
	DenormFTZ       DenormMode = 1
	DenormPreserve  DenormMode = 2
	DenormUndefined DenormMode = 7
)

const (
	denormBits = 3
	denormMask = 1<<denormBits - 1
	fp16Shift  = 0
	fp32Shift  = 3
	fp64Shift  = 6
)

// FPFlag packs the per-width denormal modes of a function. Bits [0:2] hold
// the fp16 mode, [3:5] fp32 and [6:8] fp64. The zero value is all-IEEE.
type FPFlag uint32

func (f FPFlag) get(shift uint) DenormMode {
	return DenormMode(uint32(f) >> shift & denormMask)
}

func (f *FPFlag) set(shift uint, m DenormMode) {
	*f = FPFlag(uint32(*f)&^(denormMask<<shift) | (uint32(m)&denormMask)<<shift)
}

// FP16DenormMode returns the denormal mode for half precision.
func (f FPFlag) FP16DenormMode() DenormMode { return f.get(fp16Shift) }

// FP32DenormMode returns the denormal mode for single precision.
func (f FPFlag) FP32DenormMode() DenormMode { return f.get(fp32Shift) }

// FP64DenormMode returns the denormal mode for double precision.
func (f FPFlag) FP64DenormMode() DenormMode { return f.get(fp64Shift) }

// SetFP16DenormMode sets the half precision mode, leaving the others alone.
func (f *FPFlag) SetFP16DenormMode(m DenormMode) { f.set(fp16Shift, m) }

// SetFP32DenormMode sets the single precision mode, leaving the others alone.
func (f *FPFlag) SetFP32DenormMode(m DenormMode) { f.set(fp32Shift, m) }

// SetFP64DenormMode sets the double precision mode, leaving the others alone.
func (f *FPFlag) SetFP64DenormMode(m DenormMode) { f.set(fp64Shift, m) }

// SetAllDenormMode writes m into each sub-field independently.
func (f *FPFlag) SetAllDenormMode(m DenormMode) {
	f.SetFP16DenormMode(m)
	f.SetFP32DenormMode(m)
	f.SetFP64DenormMode(m)
}
