// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package passes runs transformation passes over an HL module.
//
// Passes are looked up by name in a registry and configured from a
// pipeline string such as
//
//	hlsl-dxil-remove-dead-resources;hlsl-dxil-add-pixel-hit-instrumentation,rt-width=1920
//
// Manager runs the resulting list in order.
package passes

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gogpu/dxil/deadres"
	"github.com/gogpu/dxil/hlmodule"
	"github.com/gogpu/dxil/pixelhit"
)

// Pass transforms a module in place. Passes report no changed flag and
// are always run.
type Pass interface {
	Name() string
	Run(hm *hlmodule.Module)
}

// Factory builds a pass from its pipeline options.
type Factory func(args map[string]string) (Pass, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		pixelhit.PassName: func(args map[string]string) (Pass, error) {
			opts, err := pixelhit.ParseOptions(args)
			if err != nil {
				return nil, err
			}
			return pixelhit.New(opts), nil
		},
		deadres.PassName: func(args map[string]string) (Pass, error) {
			if len(args) != 0 {
				return nil, fmt.Errorf("%s takes no options", deadres.PassName)
			}
			return deadres.New(), nil
		},
	}
)

// Register adds a pass factory. It panics if name is already taken.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("passes: Register called twice for " + name)
	}
	registry[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Names returns the registered pass names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build parses pipeline and instantiates its passes.
func Build(pipeline string) ([]Pass, error) {
	steps, err := ParsePipeline(pipeline)
	if err != nil {
		return nil, err
	}
	list := make([]Pass, 0, len(steps))
	for _, s := range steps {
		f, ok := Lookup(s.Name)
		if !ok {
			return nil, fmt.Errorf("unknown pass %q", s.Name)
		}
		p, err := f(s.Args)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// Manager runs passes in order.
type Manager struct {
	passes []Pass
	logger *log.Logger
}

// NewManager returns a manager for passes. A nil logger keeps it silent.
func NewManager(logger *log.Logger, passes ...Pass) *Manager {
	return &Manager{passes: passes, logger: logger}
}

// Run applies every pass to hm. A pass that panics stops the pipeline and
// is reported as an hlmodule.ErrInternalError naming the pass.
func (m *Manager) Run(hm *hlmodule.Module) error {
	for _, p := range m.passes {
		start := time.Now()
		if err := runPass(p, hm); err != nil {
			return err
		}
		m.logf("%s: %s", p.Name(), time.Since(start))
	}
	return nil
}

func runPass(p Pass, hm *hlmodule.Module) (err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		e := &hlmodule.Error{Kind: hlmodule.ErrInternalError, Message: "pass " + p.Name()}
		if cause, ok := v.(error); ok {
			e.Err = cause
		} else {
			e.Message = fmt.Sprintf("pass %s: %v", p.Name(), v)
		}
		err = e
	}()
	p.Run(hm)
	return nil
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
