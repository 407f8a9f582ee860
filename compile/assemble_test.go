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
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/kevinawalsh/wam/internal/ast"
	"github.com/kevinawalsh/wam/isa"
)

func unitFact(name uint32) PredicateDef {
	return PredicateDef{
		Name:  name,
		Arity: 0,
		Clauses: []ast.ProgramClause{
			{Head: ast.Functor{Name: name}},
		},
	}
}

// TestAssembleProgram_SingleClauseHasNoDispatchPrologue checks that a
// single-clause predicate is assembled without try/retry/trust_me (spec
// section 4.4, 4.6: "stateless" dispatch for facts with no alternatives).
func TestAssembleProgram_SingleClauseHasNoDispatchPrologue(t *testing.T) {
	prog, err := AssembleProgram([]PredicateDef{unitFact(1)}, nil)
	require.NoError(t, err)

	instr, _, err := isa.Decode(prog.Code, 0)
	require.NoError(t, err)
	require.Equal(t, isa.OpProceed, instr.Opcode())
}

// TestAssembleProgram_MultiClauseWrapsTryRetryTrust checks the dispatch
// shape for a predicate with several alternatives.
func TestAssembleProgram_MultiClauseWrapsTryRetryTrust(t *testing.T) {
	name := uint32(1)
	pd := PredicateDef{
		Name:  name,
		Arity: 1,
		Clauses: []ast.ProgramClause{
			{Head: ast.Functor{Name: name, Args: []ast.Term{ast.Atom{Name: 10}}}},
			{Head: ast.Functor{Name: name, Args: []ast.Term{ast.Atom{Name: 11}}}},
			{Head: ast.Functor{Name: name, Args: []ast.Term{ast.Atom{Name: 12}}}},
		},
	}
	prog, err := AssembleProgram([]PredicateDef{pd}, nil)
	require.NoError(t, err)

	pc := 0
	var ops []isa.Opcode
	for pc < len(prog.Code) {
		instr, next, err := isa.Decode(prog.Code, pc)
		require.NoError(t, err)
		ops = append(ops, instr.Opcode())
		pc = next
	}

	require.Contains(t, ops, isa.OpTryMeElse)
	require.Contains(t, ops, isa.OpRetryMeElse)
	require.Contains(t, ops, isa.OpTrustMe)
}

// TestAssembleProgram_DuplicatePredicateIsAnError checks that declaring the
// same (name, arity) twice is reported rather than silently overwritten.
func TestAssembleProgram_DuplicatePredicateIsAnError(t *testing.T) {
	_, err := AssembleProgram([]PredicateDef{unitFact(1), unitFact(1)}, nil)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	found := false
	for _, e := range merr.Errors {
		var ce *CompileError
		if errors.As(e, &ce) && ce.Kind == ErrParseShape {
			found = true
		}
	}
	require.True(t, found)
}

// TestAssembleProgram_CallToUndeclaredPredicateIsLinkageError checks spec
// section 7's linkage error kind: a body goal calling a predicate that is
// never declared anywhere in the assembled set.
func TestAssembleProgram_CallToUndeclaredPredicateIsLinkageError(t *testing.T) {
	pd := PredicateDef{
		Name:  1,
		Arity: 0,
		Clauses: []ast.ProgramClause{
			{Head: ast.Functor{Name: 1}, Body: []ast.Functor{{Name: 99, Args: nil}}},
		},
	}
	_, err := AssembleProgram([]PredicateDef{pd}, nil)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	found := false
	for _, e := range merr.Errors {
		var ce *CompileError
		if errors.As(e, &ce) && ce.Kind == ErrLinkage {
			found = true
		}
	}
	require.True(t, found)
}

// TestAssembleProgram_EmptyClauseListIsAnError checks that a declared
// predicate with zero clauses is rejected rather than producing unreachable
// dispatch code.
func TestAssembleProgram_EmptyClauseListIsAnError(t *testing.T) {
	_, err := AssembleProgram([]PredicateDef{{Name: 1, Arity: 0}}, nil)
	require.Error(t, err)
}

// TestAssembleQuery_EndsInSuspend checks that a standalone query's code
// never falls through past its own frame (spec section 6, resolve_query).
func TestAssembleQuery_EndsInSuspend(t *testing.T) {
	q := ast.QueryClause{Body: []ast.Functor{{Name: 1, Args: []ast.Term{ast.Atom{Name: 10}}}}}
	code, err := AssembleQuery(q, nil)
	require.NoError(t, err)

	var last isa.Opcode
	pc := 0
	for pc < len(code) {
		instr, next, err := isa.Decode(code, pc)
		require.NoError(t, err)
		last = instr.Opcode()
		pc = next
	}
	require.Equal(t, isa.OpSuspend, last)
}
