// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package dxilop implements the DXIL intrinsic call convention.
//
// A DXIL operation is a call to an external function named
// "dx.op.<name>[.<overload>]" whose first argument is the i32 opcode.
// Each (opcode, overload type) pair maps to exactly one declaration in the
// module; OP derives that declaration on first use and caches it.
package dxilop

import "fmt"

// OpCode identifies a DXIL operation.
type OpCode uint32

const (
	OpLoadInput    OpCode = 4
	OpStoreOutput  OpCode = 5
	OpCreateHandle OpCode = 57
	OpBufferLoad   OpCode = 68
	OpBufferStore  OpCode = 69
	OpAtomicBinOp  OpCode = 78
)

// opInfo is the static description of an opcode.
type opInfo struct {
	name string
	// overloaded operations carry a type suffix in their function name
	overloaded bool
}

var opTable = map[OpCode]opInfo{
	OpLoadInput:    {"loadInput", true},
	OpStoreOutput:  {"storeOutput", true},
	OpCreateHandle: {"createHandle", false},
	OpBufferLoad:   {"bufferLoad", true},
	OpBufferStore:  {"bufferStore", true},
	OpAtomicBinOp:  {"atomicBinOp", true},
}

// String returns the operation name.
func (c OpCode) String() string {
	if info, ok := opTable[c]; ok {
		return info.name
	}
	return fmt.Sprintf("OpCode(%d)", uint32(c))
}

// IsOverloaded reports whether the function name carries a type suffix.
func (c OpCode) IsOverloaded() bool {
	return opTable[c].overloaded
}

// AtomicBinOpCode selects the operation of an AtomicBinOp call.
type AtomicBinOpCode uint32

const (
	AtomicAdd AtomicBinOpCode = iota
	AtomicAnd
	AtomicOr
	AtomicXor
	AtomicIMin
	AtomicIMax
	AtomicUMin
	AtomicUMax
	AtomicExchange
	AtomicInvalid
)

// FuncPrefix is the name prefix shared by every DXIL operation function.
const FuncPrefix = "dx.op."
