// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package passes

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle"
	"github.com/alecthomas/participle/lexer"
)

const pipelineLexer = `(\s+)|` +
	`(?P<Int>0[xX][0-9a-fA-F]+|\d+)|` +
	`(?P<String>"(?:[^"\\]|\\.)*")|` +
	`(?P<Ident>[a-zA-Z_][a-zA-Z0-9_.\-]*)|` +
	`(?P<Punct>[,;=])`

// pipelineAST is the grammar of a pipeline string:
//
//	pass[,key[=value]]*(;pass[,key[=value]]*)*
type pipelineAST struct {
	Passes []*passAST `parser:"@@ { \";\" @@ }"`
}

type passAST struct {
	Pos lexer.Position

	Name string    `parser:"@Ident"`
	Args []*argAST `parser:"{ \",\" @@ }"`
}

type argAST struct {
	Key   string  `parser:"@Ident"`
	Value *string `parser:"[ \"=\" @( Ident | Int | String ) ]"`
}

var pipelineParser = participle.MustBuild(
	&pipelineAST{},
	participle.Lexer(lexer.Must(lexer.Regexp(pipelineLexer))),
	participle.Unquote("String"),
)

// Step is one parsed pipeline entry.
type Step struct {
	Name string
	Args map[string]string
}

// ParsePipeline splits a pipeline string into steps. The empty string is
// the empty pipeline.
func ParsePipeline(s string) ([]Step, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	ast := &pipelineAST{}
	if err := pipelineParser.ParseString(s, ast); err != nil {
		return nil, fmt.Errorf("parse pipeline %q: %w", s, err)
	}

	steps := make([]Step, 0, len(ast.Passes))
	for _, p := range ast.Passes {
		step := Step{Name: p.Name, Args: make(map[string]string, len(p.Args))}
		for _, a := range p.Args {
			if _, dup := step.Args[a.Key]; dup {
				return nil, fmt.Errorf("pass %s at %s: option %s given twice", p.Name, p.Pos, a.Key)
			}
			val := ""
			if a.Value != nil {
				val = *a.Value
			}
			step.Args[a.Key] = val
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// String formats the step back into pipeline syntax, options sorted.
func (s Step) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	for _, k := range sortedKeys(s.Args) {
		sb.WriteByte(',')
		sb.WriteString(k)
		if v := s.Args[k]; v != "" {
			sb.WriteByte('=')
			sb.WriteString(v)
		}
	}
	return sb.String()
}
