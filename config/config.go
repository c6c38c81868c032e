// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package config loads dxilopt settings from a TOML file.
//
// The file is named dxilopt.toml and is searched for in the start
// directory and its parents. Every key is optional:
//
//	profile   = "ps_6_0"
//	entry     = "main"
//	passes    = "hlsl-dxil-add-pixel-hit-instrumentation,rt-width=1920"
//	validator = "1.2"
//
//	[options]
//	default-row-major = true
//	packing-strategy  = "prefix-stable"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/semver"

	"github.com/gogpu/dxil"
	"github.com/gogpu/dxil/hlmodule"
)

// FileName is the name searched for by Load.
const FileName = "dxilopt.toml"

// Config is the file structure. Unset keys keep their defaults.
type Config struct {
	Profile   string `toml:"profile"`
	Entry     string `toml:"entry"`
	Passes    string `toml:"passes"`
	Validator string `toml:"validator"`

	// Options overrides bits of the packed HL option word.
	Options *HLOptions `toml:"options"`
}

// HLOptions mirrors hlmodule.Options with every field optional.
type HLOptions struct {
	DefaultRowMajor           *bool   `toml:"default-row-major"`
	IEEEStrict                *bool   `toml:"ieee-strict"`
	AllResourcesBound         *bool   `toml:"all-resources-bound"`
	DisableOptimizations      *bool   `toml:"disable-optimizations"`
	LegacyCBufferLoad         *bool   `toml:"legacy-cbuffer-load"`
	PackingStrategy           *string `toml:"packing-strategy"`
	UseMinPrecision           *bool   `toml:"use-min-precision"`
	DX9CompatMode             *bool   `toml:"dx9-compat-mode"`
	FXCCompatMode             *bool   `toml:"fxc-compat-mode"`
	LegacyResourceReservation *bool   `toml:"legacy-resource-reservation"`
}

var packingStrategies = map[string]hlmodule.PackingStrategy{
	"default":       hlmodule.PackingDefault,
	"prefix-stable": hlmodule.PackingPrefixStable,
	"optimized":     hlmodule.PackingOptimized,
}

// Load searches for FileName from startDir upwards. It returns a nil
// config and an empty path when no file exists.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			return cfg, path, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile reads a config file. Unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) check() error {
	if c.Validator != "" {
		if _, _, err := ParseValidatorVersion(c.Validator); err != nil {
			return err
		}
	}
	if c.Options != nil && c.Options.PackingStrategy != nil {
		if _, ok := packingStrategies[*c.Options.PackingStrategy]; !ok {
			return fmt.Errorf("unknown packing strategy %q", *c.Options.PackingStrategy)
		}
	}
	return nil
}

// ParseValidatorVersion parses "major.minor".
func ParseValidatorVersion(s string) (major, minor uint32, err error) {
	v := "v" + s
	if !semver.IsValid(v) || semver.MajorMinor(v) != v {
		return 0, 0, fmt.Errorf("validator version %q is not major.minor", s)
	}
	if _, err := fmt.Sscanf(v, "v%d.%d", &major, &minor); err != nil {
		return 0, 0, fmt.Errorf("validator version %q: %w", s, err)
	}
	return major, minor, nil
}

// Apply overlays the HL option bits set in h onto o.
func (h *HLOptions) Apply(o hlmodule.Options) hlmodule.Options {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&o.DefaultRowMajor, h.DefaultRowMajor)
	set(&o.IEEEStrict, h.IEEEStrict)
	set(&o.AllResourcesBound, h.AllResourcesBound)
	set(&o.DisableOptimizations, h.DisableOptimizations)
	set(&o.LegacyCBufferLoad, h.LegacyCBufferLoad)
	set(&o.UseMinPrecision, h.UseMinPrecision)
	set(&o.DX9CompatMode, h.DX9CompatMode)
	set(&o.FXCCompatMode, h.FXCCompatMode)
	set(&o.LegacyResourceReservation, h.LegacyResourceReservation)
	if h.PackingStrategy != nil {
		o.PackingStrategy = packingStrategies[*h.PackingStrategy]
	}
	return o
}

// ToOptions converts the config to processing options.
func (c *Config) ToOptions() dxil.Options {
	opts := dxil.DefaultOptions()
	if c == nil {
		return opts
	}
	if c.Profile != "" {
		opts.Profile = c.Profile
	}
	if c.Entry != "" {
		opts.EntryPoint = c.Entry
	}
	if c.Passes != "" {
		opts.Passes = c.Passes
	}
	if c.Validator != "" {
		// checked by LoadFile
		opts.ValidatorMajor, opts.ValidatorMinor, _ = ParseValidatorVersion(c.Validator)
	}
	if c.Options != nil {
		hl := c.Options.Apply(hlmodule.Options{})
		opts.HLOptions = &hl
	}
	return opts
}

// MergeOptions holds command line values. Empty strings mean the flag was
// not given.
type MergeOptions struct {
	Profile string
	Entry   string
	Passes  string
}

// Merge returns the config's options with command line values on top.
func (c *Config) Merge(cli MergeOptions) dxil.Options {
	opts := c.ToOptions()
	if cli.Profile != "" {
		opts.Profile = cli.Profile
	}
	if cli.Entry != "" {
		opts.EntryPoint = cli.Entry
	}
	if cli.Passes != "" {
		opts.Passes = cli.Passes
	}
	return opts
}
