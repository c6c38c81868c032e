// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command dxilopt runs DXIL passes over LLVM assembly files.
//
// Usage:
//
//	dxilopt [options] <input.ll>...
//
// Examples:
//
//	dxilopt -profile ps_6_0 shader.ll                     # Attach metadata, validate
//	dxilopt -passes hlsl-dxil-remove-dead-resources a.ll  # Run a pass
//	dxilopt -dump shader.ll                               # Print the shader model
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/logrusorgru/aurora"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/dxil"
	"github.com/gogpu/dxil/config"
	"github.com/gogpu/dxil/hlmodule"
	"github.com/gogpu/dxil/passes"
)

var (
	output     = flag.String("o", "", "output file (default: stdout, single input only)")
	profile    = flag.String("profile", "", "target profile for modules without metadata, e.g. ps_6_0")
	entry      = flag.String("entry", "", "entry point name (default: main)")
	pipeline   = flag.String("passes", "", "pass pipeline, e.g. \"pass,key=value;pass\"")
	configPath = flag.String("config", "", "config file (default: search for "+config.FileName+")")
	dump       = flag.Bool("dump", false, "print the shader model of each module to stderr")
	jobs       = flag.Int("j", runtime.NumCPU(), "number of files processed in parallel")
	verbose    = flag.Bool("v", false, "log each pass")
	noColor    = flag.Bool("no-color", false, "disable colored diagnostics")
	listPasses = flag.Bool("list-passes", false, "print the available passes")
	version    = flag.Bool("version", false, "print version")
)

const dxiloptVersion = "0.1.0-dev"

func main() {
	flag.Usage = usage
	flag.Parse()
	au := aurora.NewAurora(!*noColor)

	if *version {
		fmt.Printf("dxilopt version %s\n", dxiloptVersion)
		return
	}
	if *listPasses {
		for _, name := range passes.Names() {
			fmt.Println(name)
		}
		return
	}

	inputs := flag.Args()
	if len(inputs) < 1 {
		fatal(au, fmt.Errorf("no input file specified"), true)
	}
	if *output != "" && len(inputs) > 1 {
		fatal(au, fmt.Errorf("-o needs exactly one input, got %d", len(inputs)), false)
	}

	opts, err := loadOptions()
	if err != nil {
		fatal(au, err, false)
	}
	if *verbose {
		opts.Logger = log.New(os.Stderr, "dxilopt: ", 0)
	}

	results := make([]string, len(inputs))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(*jobs, 1))
	for i, path := range inputs {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := processFile(path, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatal(au, err, false)
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(results[0]), 0644); err != nil {
			fatal(au, fmt.Errorf("writing output: %w", err), false)
		}
		fmt.Fprintf(os.Stderr, "%s %s -> %s\n", au.Green("ok"), inputs[0], *output)
		return
	}
	for _, out := range results {
		if _, err := io.WriteString(os.Stdout, out); err != nil {
			fatal(au, fmt.Errorf("writing output: %w", err), false)
		}
	}
}

// loadOptions merges the config file with the command line.
func loadOptions() (dxil.Options, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			cfg, _, err = config.Load(wd)
		}
	}
	if err != nil {
		return dxil.Options{}, err
	}
	return cfg.Merge(config.MergeOptions{
		Profile: *profile,
		Entry:   *entry,
		Passes:  *pipeline,
	}), nil
}

// processFile parses one file, runs the pipeline and returns the new
// assembly. Each call owns its module, so calls may run concurrently.
func processFile(path string, opts dxil.Options) (string, error) {
	m, err := dxil.ParseFile(path)
	if err != nil {
		return "", err
	}
	hm, err := dxil.Process(m, opts)
	if err != nil {
		return "", err
	}
	if *dump {
		dumpModule(os.Stderr, path, hm)
	}
	return m.String(), nil
}

// summary is the part of a module worth printing; the LLVM graph itself is
// left out.
type summary struct {
	ShaderModel string
	Entry       string
	Validator   string
	Options     hlmodule.Options
	Flags       hlmodule.ShaderFlags
	CBuffers    []*hlmodule.CBuffer
	SRVs        []*hlmodule.Resource
	UAVs        []*hlmodule.Resource
	Samplers    []*hlmodule.Sampler
	Inputs      []*hlmodule.SignatureElement
	Outputs     []*hlmodule.SignatureElement
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	MaxDepth:                4,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func dumpModule(w io.Writer, path string, hm *hlmodule.Module) {
	major, minor := hm.ValidatorVersion()
	s := summary{
		ShaderModel: hm.ShaderModel().Name(),
		Entry:       hm.EntryFunctionName(),
		Validator:   fmt.Sprintf("%d.%d", major, minor),
		Options:     hm.Options(),
		Flags:       hm.ShaderFlags(),
		CBuffers:    hm.CBuffers(),
		SRVs:        hm.SRVs(),
		UAVs:        hm.UAVs(),
		Samplers:    hm.Samplers(),
		Inputs:      hm.InputSignature().Elements,
		Outputs:     hm.OutputSignature().Elements,
	}
	fmt.Fprintf(w, "; %s\n%s", path, dumper.Sdump(s))
}

func fatal(au aurora.Aurora, err error, showUsage bool) {
	fmt.Fprintf(os.Stderr, "%s %s\n", au.Red("error:").Bold(), strings.TrimSpace(err.Error()))
	var he *hlmodule.Error
	if errors.As(err, &he) && he.IsInternalError() {
		fmt.Fprintf(os.Stderr, "%s a pass left the module inconsistent; please report this with the input file\n", au.Yellow("note:"))
	}
	if showUsage {
		usage()
	}
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: dxilopt [options] <input.ll>...\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  dxilopt -profile ps_6_0 shader.ll          Attach metadata to stdout\n")
	fmt.Fprintf(os.Stderr, "  dxilopt -o out.ll -passes PASS shader.ll   Run a pipeline into a file\n")
	fmt.Fprintf(os.Stderr, "  dxilopt -list-passes                       Show available passes\n")
}
