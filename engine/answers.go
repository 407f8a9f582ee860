// Copyright (c) 2014, Kevin Walsh.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"

	"github.com/kevinawalsh/wam/compile"
	"github.com/kevinawalsh/wam/internal/ast"
	"github.com/kevinawalsh/wam/internal/cell"
	"github.com/kevinawalsh/wam/isa"
)

// Answers is the lazy, re-entrant answer sequence resolve_query produces
// (spec section 6, section 9 "coroutine-style answer generation"): each
// call to Next either reports one binding set or exhaustion, resuming the
// underlying Machine from where the previous suspend left it.
type Answers struct {
	m     *Machine
	log   hclog.Logger
	alloc *compile.Allocation
	names map[int]uint32

	// session tags every trace line this answer sequence emits, so that
	// traces from multiple Answers sharing one noisy test log (or multiple
	// engines under one test binary) can be told apart.
	session string

	entry     int
	started   bool
	exhausted bool
}

// Resume compiles and loads a query against m and returns its answer
// sequence. The query's code is appended to m's existing code buffer (spec
// section 6, "load" semantics extend to a query's own entry point); m must
// already have every predicate the query calls loaded via Load. Per spec
// section 5, one engine serves one query session: m must be freshly
// constructed (or just Reset and reloaded) and not mid-way through another
// query's answers.
func Resume(m *Machine, q ast.QueryClause, log hclog.Logger) *Answers {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	alloc := compile.AllocateQueryClause(q)
	an := compile.AnalyzeQueryClause(q, alloc)
	instr := compile.CompileQueryClause(q, alloc, an, log)
	var code []byte
	for _, in := range instr {
		code = isa.Encode(code, in)
	}
	entry := m.loadCode(code)
	session, err := uuid.GenerateUUID()
	if err != nil {
		session = "unavailable"
	}
	log = log.With("session", session)
	return &Answers{m: m, log: log, alloc: alloc, names: q.VarNames, entry: entry, session: session}
}

// Next advances to the next answer. It returns (bindings, true, nil) for an
// answer, (nil, false, nil) once the query is exhausted, and (nil, false,
// err) on a fatal engine fault (spec section 7, kinds 4-5), after which
// Next must not be called again.
func (a *Answers) Next() (map[uint32]ast.Term, bool, error) {
	if a.exhausted {
		return nil, false, nil
	}

	var err error
	if !a.started {
		a.started = true
		a.m.E = -1
		a.m.CP = 0
		a.m.IP = a.entry
		err = a.m.run()
	} else {
		// Re-entry resumes as though the previous suspend had failed (spec
		// section 4.5, "Suspension semantics"), driving the engine to
		// backtrack through its still-intact choice-point chain.
		if err = a.m.fail(); err == nil {
			err = a.m.run()
		}
	}

	if err == errNoMoreAnswers {
		a.exhausted = true
		a.log.Trace("answers exhausted")
		return nil, false, nil
	}
	if err != nil {
		a.exhausted = true
		return nil, false, err
	}

	bindings := a.readBindings()
	a.log.Trace("answer", "bindings", len(bindings))
	return bindings, true, nil
}

// readBindings dereferences every named query variable's permanent slot in
// the query's own environment frame, which remains live at m.E precisely
// because CompileQueryClause never deallocates it (DESIGN.md).
func (a *Answers) readBindings() map[uint32]ast.Term {
	out := make(map[uint32]ast.Term, len(a.names))
	for id, name := range a.names {
		addr, ok := a.alloc.VarAddr[id]
		if !ok {
			continue
		}
		out[name] = readTerm(a.m, a.m.resolveAddr(addr))
	}
	return out
}

// readTerm reconstructs a fully dereferenced ast.Term rooted at addr. An
// unbound variable becomes an ast.Var keyed by its own heap/stack address,
// so two query variables sharing the same unbound cell report as the same
// fresh variable (spec section 8, scenario 3).
func readTerm(m *Machine, addr int) ast.Term {
	d := m.deref(addr)
	v := m.data[d]
	switch v.Tag() {
	case cell.Con:
		return ast.Atom{Name: v.Value()}
	case cell.Str:
		f := cell.Functor(uint32(m.data[v.Addr()]))
		n := f.Arity()
		args := make([]ast.Term, n)
		for i := 0; i < n; i++ {
			args[i] = readTerm(m, v.Addr()+1+i)
		}
		return &ast.Compound{Name: f.Name(), Args: args}
	case cell.Lis:
		return &ast.Cons{Head: readTerm(m, v.Addr()), Tail: readTerm(m, v.Addr()+1)}
	default:
		return ast.Var{ID: d}
	}
}
