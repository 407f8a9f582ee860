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

package compile

import (
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	set "github.com/hashicorp/go-set/v3"

	"github.com/kevinawalsh/wam/internal/ast"
	"github.com/kevinawalsh/wam/isa"
)

// PredicateDef groups one predicate's clauses (program clauses sharing a
// name and arity), in source order.
type PredicateDef struct {
	Name    uint32
	Arity   int
	Clauses []ast.ProgramClause
}

// CallEntry records where one predicate's code lives in the assembled
// buffer (spec section 3, "call table").
type CallEntry struct {
	EntryPoint int
	Length     int
}

// Program is the assembler's output: an encoded code buffer plus the call
// table mapping (name, arity) to where that predicate's code lives.
type Program struct {
	Code      []byte
	CallTable map[isa.Functor]CallEntry
}

// AssembleProgram compiles and links a whole set of predicates: each
// predicate's clauses are wrapped in try_me_else/retry_me_else/trust_me
// dispatch (spec section 4.4, "Predicate assembly"), concatenated into one
// code buffer, and cross-checked so every called predicate is declared
// somewhere in the set (spec section 7, linkage errors). Errors are
// aggregated across the whole program rather than stopping at the first
// (SPEC_FULL.md section 2.1).
//
// Call and execute operands are never resolved to code addresses here: they
// name a (functor, arity) pair and are resolved dynamically against the
// call table at run time (spec section 6, "load" extends the call table
// incrementally). Only try_me_else/retry_me_else labels -- which always
// target a sibling clause of the very predicate being assembled -- are
// resolved to absolute code offsets at assembly time.
func AssembleProgram(preds []PredicateDef, log hclog.Logger) (*Program, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	var errs *multierror.Error

	declared := set.New[isa.Functor](len(preds))
	called := set.New[isa.Functor](0)

	prog := &Program{CallTable: make(map[isa.Functor]CallEntry, len(preds))}

	for pi, pd := range preds {
		key := isa.F(pd.Arity, pd.Name)
		if declared.Contains(key) {
			errs = multierror.Append(errs, &CompileError{ClauseIndex: pi, Kind: ErrParseShape, Msg: "duplicate predicate definition"})
			continue
		}
		if len(pd.Clauses) == 0 {
			errs = multierror.Append(errs, &CompileError{ClauseIndex: pi, Kind: ErrParseShape, Msg: "predicate with no clauses"})
			continue
		}
		declared.Insert(key)

		entry, length, code, clauseErrs := assemblePredicate(pi, pd, len(prog.Code), called, log)
		if clauseErrs != nil {
			errs = multierror.Append(errs, clauseErrs)
			continue
		}
		prog.Code = append(prog.Code, code...)
		prog.CallTable[key] = CallEntry{EntryPoint: entry, Length: length}
		log.Trace("assembled predicate", "name", pd.Name, "arity", pd.Arity, "clauses", len(pd.Clauses), "entry", entry, "length", length)
	}

	missing := called.Difference(declared).Slice()
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	for _, k := range missing {
		errs = multierror.Append(errs, &CompileError{ClauseIndex: -1, Kind: ErrLinkage, Msg: "call to undeclared predicate " + k.String()})
	}

	if errs != nil {
		return nil, errs.ErrorOrNil()
	}
	return prog, nil
}

// assemblePredicate compiles one predicate's clauses, computes clause
// layout (and so resolves its own try/retry/trust labels), and returns the
// encoded bytes for the whole predicate.
func assemblePredicate(predIdx int, pd PredicateDef, codeBase int, called *set.Set[isa.Functor], log hclog.Logger) (entry, length int, code []byte, errs *multierror.Error) {
	k := len(pd.Clauses)
	bodies := make([][]isa.Instruction, k)
	bodySizes := make([]int, k)

	for ci, c := range pd.Clauses {
		if c.Head.Name != pd.Name || c.Head.Arity() != pd.Arity {
			errs = multierror.Append(errs, &CompileError{ClauseIndex: predIdx, Kind: ErrParseShape, Msg: "clause head does not match predicate name/arity"})
			continue
		}
		alloc := AllocateProgramClause(c)
		an := AnalyzeProgramClause(c, alloc)
		instr := CompileProgramClause(c, alloc, an, log)
		bodies[ci] = instr
		size := 0
		for _, in := range instr {
			size += isa.Size(in.Opcode())
		}
		bodySizes[ci] = size
		collectCalls(c, called)
	}
	if errs != nil {
		return 0, 0, nil, errs
	}

	prologueSize := func(ci int) int {
		if k == 1 {
			return 0
		}
		if ci == k-1 {
			return isa.Size(isa.OpTrustMe)
		}
		return isa.Size(isa.OpTryMeElse) // retry_me_else has the same fixed width
	}

	clauseStart := make([]int, k)
	offset := codeBase
	for ci := 0; ci < k; ci++ {
		clauseStart[ci] = offset
		offset += prologueSize(ci) + bodySizes[ci]
	}

	var full []isa.Instruction
	for ci := 0; ci < k; ci++ {
		if k > 1 {
			switch {
			case ci == 0:
				full = append(full, isa.TryMeElse{L: uint32(clauseStart[ci+1])})
			case ci == k-1:
				full = append(full, isa.TrustMe{})
			default:
				full = append(full, isa.RetryMeElse{L: uint32(clauseStart[ci+1])})
			}
		}
		full = append(full, bodies[ci]...)
	}

	for _, in := range full {
		code = isa.Encode(code, in)
	}
	return clauseStart[0], offset - codeBase, code, nil
}

// collectCalls records every predicate invoked from a clause's body, for
// the assembler's declared-vs-called cross-check.
func collectCalls(c ast.ProgramClause, called *set.Set[isa.Functor]) {
	for _, goal := range c.Body {
		called.Insert(isa.F(len(goal.Args), goal.Name))
	}
}

// AssembleQuery compiles a query clause on its own, with no predicate
// dispatch wrapping (a query is never one of several alternative clauses).
// The returned code is meant to be appended to a running engine's code
// buffer as a fresh entry point for resolve_query (spec section 6).
func AssembleQuery(q ast.QueryClause, log hclog.Logger) ([]byte, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	called := set.New[isa.Functor](len(q.Body))
	for _, goal := range q.Body {
		called.Insert(isa.F(len(goal.Args), goal.Name))
	}
	alloc := AllocateQueryClause(q)
	an := AnalyzeQueryClause(q, alloc)
	instr := CompileQueryClause(q, alloc, an, log)
	var code []byte
	for _, in := range instr {
		code = isa.Encode(code, in)
	}
	return code, nil
}
