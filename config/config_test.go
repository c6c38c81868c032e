// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gogpu/dxil"
	"github.com/gogpu/dxil/hlmodule"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
profile   = "ps_6_1"
entry     = "frag"
passes    = "hlsl-dxil-add-pixel-hit-instrumentation,rt-width=1920"
validator = "1.3"

[options]
default-row-major = true
packing-strategy  = "optimized"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	want := dxil.DefaultOptions()
	want.Profile = "ps_6_1"
	want.EntryPoint = "frag"
	want.Passes = "hlsl-dxil-add-pixel-hit-instrumentation,rt-width=1920"
	want.ValidatorMajor, want.ValidatorMinor = 1, 3
	want.HLOptions = &hlmodule.Options{DefaultRowMajor: true, PackingStrategy: hlmodule.PackingOptimized}

	if diff := cmp.Diff(want, cfg.ToOptions(), cmpopts.IgnoreFields(dxil.Options{}, "Logger")); diff != "" {
		t.Errorf("ToOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", `profil = "ps_6_0"`, "unknown keys profil"},
		{"unknown option", "[options]\nrow-major = true", "options.row-major"},
		{"bad validator", `validator = "1"`, "not major.minor"},
		{"validator with patch", `validator = "1.2.3"`, "not major.minor"},
		{"bad packing", "[options]\npacking-strategy = \"tight\"", "packing strategy"},
		{"bad syntax", `profile = `, "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFile() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "project", "shaders")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}
	configPath := writeConfig(t, filepath.Join(tmpDir, "project"), `profile = "cs_6_0"`)

	cfg, foundPath, err := Load(subDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
	if foundPath != configPath {
		t.Errorf("found config at %s, expected %s", foundPath, configPath)
	}
	if cfg.Profile != "cs_6_0" {
		t.Errorf("Profile = %q, want cs_6_0", cfg.Profile)
	}
}

func TestMerge(t *testing.T) {
	cfg := &Config{Profile: "ps_6_0", Entry: "frag", Passes: "a"}
	opts := cfg.Merge(MergeOptions{Profile: "ps_6_2", Passes: "b"})
	if opts.Profile != "ps_6_2" || opts.EntryPoint != "frag" || opts.Passes != "b" {
		t.Errorf("Merge() = %+v", opts)
	}

	// A missing file yields the defaults plus the command line.
	var none *Config
	opts = none.Merge(MergeOptions{Entry: "vert"})
	if opts.EntryPoint != "vert" || !opts.Validate || opts.Profile != "" {
		t.Errorf("nil Merge() = %+v", opts)
	}
}

func TestParseValidatorVersion(t *testing.T) {
	tests := []struct {
		in           string
		major, minor uint32
		wantErr      bool
	}{
		{"1.2", 1, 2, false},
		{"1.10", 1, 10, false},
		{"0.0", 0, 0, false},
		{"1", 0, 0, true},
		{"1.2.0", 0, 0, true},
		{"one.two", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		major, minor, err := ParseValidatorVersion(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseValidatorVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if major != tt.major || minor != tt.minor {
			t.Errorf("ParseValidatorVersion(%q) = %d.%d, want %d.%d", tt.in, major, minor, tt.major, tt.minor)
		}
	}
}
