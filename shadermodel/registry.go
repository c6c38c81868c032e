// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package shadermodel

// registry holds every known model. The Invalid sentinel is the last entry.
// Lookups are linear; a sorted search could replace them if the table grows.
var registry = []ShaderModel{
	{KindCompute, 4, 0, "cs_4_0", 0, 0, false, false, 0},
	{KindCompute, 4, 1, "cs_4_1", 0, 0, false, false, 0},
	{KindCompute, 5, 0, "cs_5_0", 0, 0, true, true, 64},
	{KindCompute, 5, 1, "cs_5_1", 0, 0, true, true, Unbounded},
	{KindCompute, 6, 0, "cs_6_0", 0, 0, true, true, Unbounded},
	{KindCompute, 6, 1, "cs_6_1", 0, 0, true, true, Unbounded},
	{KindCompute, 6, 2, "cs_6_2", 0, 0, true, true, Unbounded},

	{KindDomain, 5, 0, "ds_5_0", 32, 32, true, true, 64},
	{KindDomain, 5, 1, "ds_5_1", 32, 32, true, true, Unbounded},
	{KindDomain, 6, 0, "ds_6_0", 32, 32, true, true, Unbounded},
	{KindDomain, 6, 1, "ds_6_1", 32, 32, true, true, Unbounded},
	{KindDomain, 6, 2, "ds_6_2", 32, 32, true, true, Unbounded},

	{KindGeometry, 4, 0, "gs_4_0", 16, 32, false, false, 0},
	{KindGeometry, 4, 1, "gs_4_1", 32, 32, false, false, 0},
	{KindGeometry, 5, 0, "gs_5_0", 32, 32, true, true, 64},
	{KindGeometry, 5, 1, "gs_5_1", 32, 32, true, true, Unbounded},
	{KindGeometry, 6, 0, "gs_6_0", 32, 32, true, true, Unbounded},
	{KindGeometry, 6, 1, "gs_6_1", 32, 32, true, true, Unbounded},
	{KindGeometry, 6, 2, "gs_6_2", 32, 32, true, true, Unbounded},

	{KindHull, 5, 0, "hs_5_0", 32, 32, true, true, 64},
	{KindHull, 5, 1, "hs_5_1", 32, 32, true, true, Unbounded},
	{KindHull, 6, 0, "hs_6_0", 32, 32, true, true, Unbounded},
	{KindHull, 6, 1, "hs_6_1", 32, 32, true, true, Unbounded},
	{KindHull, 6, 2, "hs_6_2", 32, 32, true, true, Unbounded},

	{KindPixel, 4, 0, "ps_4_0", 32, 8, false, false, 0},
	{KindPixel, 4, 1, "ps_4_1", 32, 8, false, false, 0},
	{KindPixel, 5, 0, "ps_5_0", 32, 8, true, true, 64},
	{KindPixel, 5, 1, "ps_5_1", 32, 8, true, true, Unbounded},
	{KindPixel, 6, 0, "ps_6_0", 32, 8, true, true, Unbounded},
	{KindPixel, 6, 1, "ps_6_1", 32, 8, true, true, Unbounded},
	{KindPixel, 6, 2, "ps_6_2", 32, 8, true, true, Unbounded},

	{KindVertex, 4, 0, "vs_4_0", 16, 16, false, false, 0},
	{KindVertex, 4, 1, "vs_4_1", 32, 32, false, false, 0},
	{KindVertex, 5, 0, "vs_5_0", 32, 32, true, true, 64},
	{KindVertex, 5, 1, "vs_5_1", 32, 32, true, true, Unbounded},
	{KindVertex, 6, 0, "vs_6_0", 32, 32, true, true, Unbounded},
	{KindVertex, 6, 1, "vs_6_1", 32, 32, true, true, Unbounded},
	{KindVertex, 6, 2, "vs_6_2", 32, 32, true, true, Unbounded},

	{KindLibrary, 6, 1, "lib_6_1", 32, 32, true, true, Unbounded},
	{KindLibrary, 6, 2, "lib_6_2", 32, 32, true, true, Unbounded},

	{KindInvalid, 0, 0, "invalid", 0, 0, false, false, 0},
}

// numModels is the number of registered models, not counting the sentinel.
var numModels = len(registry) - 1

// Invalid returns the sentinel returned by every failed lookup.
func Invalid() *ShaderModel {
	return &registry[len(registry)-1]
}

// All returns the registered models in table order, without the sentinel.
func All() []*ShaderModel {
	out := make([]*ShaderModel, 0, numModels)
	for i := 0; i < numModels; i++ {
		out = append(out, &registry[i])
	}
	return out
}

// Get returns the model at index, or Invalid when out of range.
func Get(index int) *ShaderModel {
	if index < 0 || index >= numModels {
		return Invalid()
	}
	return &registry[index]
}

// GetKind returns the model for the (kind, major, minor) triple, or Invalid.
func GetKind(kind Kind, major, minor uint32) *ShaderModel {
	for i := 0; i < numModels; i++ {
		sm := &registry[i]
		if sm.kind == kind && sm.major == major && sm.minor == minor {
			return sm
		}
	}
	return Invalid()
}

// GetByName parses a profile name of the form "ps_6_0" or "lib_6_1".
// Any deviation from the grammar yields Invalid, never an error.
func GetByName(name string) *ShaderModel {
	if name == "" {
		return Invalid()
	}

	var kind Kind
	switch name[0] {
	case 'p':
		kind = KindPixel
	case 'v':
		kind = KindVertex
	case 'g':
		kind = KindGeometry
	case 'h':
		kind = KindHull
	case 'd':
		kind = KindDomain
	case 'c':
		kind = KindCompute
	case 'l':
		kind = KindLibrary
	default:
		return Invalid()
	}

	rest := name[1:]
	prefix := "s_"
	if kind == KindLibrary {
		prefix = "ib_"
	}
	if len(rest) < len(prefix) || rest[:len(prefix)] != prefix {
		return Invalid()
	}
	rest = rest[len(prefix):]

	// major '_' minor, exactly three bytes
	if len(rest) != 3 || rest[1] != '_' {
		return Invalid()
	}

	var major uint32
	switch rest[0] {
	case '4':
		major = 4
	case '5':
		major = 5
	case '6':
		major = 6
	default:
		return Invalid()
	}

	var minor uint32
	switch rest[2] {
	case '0':
		minor = 0
	case '1':
		minor = 1
	case '2':
		if major != 6 {
			return Invalid()
		}
		minor = 2
	default:
		return Invalid()
	}

	return GetKind(kind, major, minor)
}
