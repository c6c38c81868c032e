// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package dxil processes DXIL shader modules in Pure Go.
//
// A module is LLVM IR, parsed with github.com/llir/llvm, plus the shader
// description serialized in its named metadata. Process loads that
// description (or builds one from a profile and entry point), runs a pass
// pipeline over it, validates the result and writes the metadata back.
//
// Example usage:
//
//	m, err := dxil.ParseFile("shader.ll")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts := dxil.DefaultOptions()
//	opts.Profile = "ps_6_0"
//	opts.Passes = "hlsl-dxil-add-pixel-hit-instrumentation,rt-width=1920"
//	if _, err := dxil.Process(m, opts); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(m)
//
// The individual stages live in their own packages: shadermodel, typesys,
// hlmodule, dxilop and passes.
package dxil

import (
	"fmt"
	"log"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"

	"github.com/gogpu/dxil/hlmodule"
	"github.com/gogpu/dxil/passes"
	"github.com/gogpu/dxil/shadermodel"
)

// Options configures Process.
type Options struct {
	// Profile names the target shader model, e.g. "ps_6_0". It is used
	// only for modules that carry no shader metadata yet.
	Profile string

	// EntryPoint is the entry function name for new modules.
	// Defaults to "main".
	EntryPoint string

	// Passes is the pipeline to run, see package passes.
	Passes string

	// ValidatorMajor and ValidatorMinor select the validator version.
	// Zero keeps the version stored in the module.
	ValidatorMajor uint32
	ValidatorMinor uint32

	// HLOptions replaces the packed HL option word when non-nil.
	HLOptions *hlmodule.Options

	// Validate checks module invariants before metadata is written.
	Validate bool

	// Logger receives per-pass progress. Nil is silent.
	Logger *log.Logger
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		EntryPoint: "main",
		Validate:   true,
	}
}

// ParseFile parses an LLVM assembly file.
func ParseFile(path string) (*ir.Module, error) {
	m, err := asm.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return m, nil
}

// ParseString parses LLVM assembly. name is used in error messages.
func ParseString(name, source string) (*ir.Module, error) {
	m, err := asm.ParseString(name, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return m, nil
}

// Open returns the shader view of m. Serialized metadata wins over
// opts.Profile and opts.EntryPoint.
func Open(m *ir.Module, opts Options) (*hlmodule.Module, error) {
	var hm *hlmodule.Module
	if hlmodule.HasHLMetadata(m) {
		loaded, err := hlmodule.Load(m)
		if err != nil {
			return nil, err
		}
		hm = loaded
	} else {
		created, err := create(m, opts)
		if err != nil {
			return nil, err
		}
		hm = created
	}

	if opts.ValidatorMajor != 0 || opts.ValidatorMinor != 0 {
		if !hm.ShaderModel().SupportedByValidator(opts.ValidatorMajor, opts.ValidatorMinor) {
			return nil, hlmodule.NewError(hlmodule.ErrInvalidShaderModel,
				fmt.Sprintf("validator %d.%d does not support %s", opts.ValidatorMajor, opts.ValidatorMinor, hm.ShaderModel()))
		}
		hm.SetValidatorVersion(opts.ValidatorMajor, opts.ValidatorMinor)
	}
	if opts.HLOptions != nil {
		hm.SetOptions(*opts.HLOptions)
	}
	return hm, nil
}

func create(m *ir.Module, opts Options) (*hlmodule.Module, error) {
	if opts.Profile == "" {
		return nil, hlmodule.NewError(hlmodule.ErrInvalidShaderModel, "module has no shader metadata and no profile was given")
	}
	sm := shadermodel.GetByName(opts.Profile)
	if !sm.IsValidForDxil() {
		return nil, hlmodule.NewError(hlmodule.ErrInvalidShaderModel, fmt.Sprintf("%q is not a DXIL profile", opts.Profile))
	}

	hm := hlmodule.New(m)
	hm.SetShaderModel(sm)
	if sm.IsLib() {
		return hm, nil
	}
	entry := opts.EntryPoint
	if entry == "" {
		entry = "main"
	}
	if err := hm.FindEntryFunction(entry); err != nil {
		return nil, err
	}
	return hm, nil
}

// Process runs the pipeline over m and rewrites its shader metadata.
//
// The steps are:
//  1. Load the metadata, or create it from the profile
//  2. Run opts.Passes
//  3. Validate (if enabled)
//  4. Clear the old metadata and emit the new one
func Process(m *ir.Module, opts Options) (*hlmodule.Module, error) {
	hm, err := Open(m, opts)
	if err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}

	list, err := passes.Build(opts.Passes)
	if err != nil {
		return nil, fmt.Errorf("pipeline error: %w", err)
	}
	if err := passes.NewManager(opts.Logger, list...).Run(hm); err != nil {
		return nil, err
	}

	if opts.Validate {
		validationErrors, err := Validate(hm)
		if err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
		if len(validationErrors) > 0 {
			return nil, fmt.Errorf("validation failed: %w", &validationErrors[0])
		}
	}

	hlmodule.ClearHLMetadata(m)
	hm.EmitHLMetadata()
	return hm, nil
}

// Validate checks hm for broken invariants.
//
// Returns a slice of validation errors. If the slice is empty, validation passed.
func Validate(hm *hlmodule.Module) ([]hlmodule.ValidationError, error) {
	return hlmodule.Validate(hm)
}
