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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kevinawalsh/wam/internal/ast"
	"github.com/kevinawalsh/wam/isa"
)

// grandparent(X, Z) :- parent(X, Y), parent(Y, Z).
func grandparentClause() ast.ProgramClause {
	return ast.ProgramClause{
		Head: ast.Functor{Name: 1, Args: []ast.Term{ast.Var{ID: 0}, ast.Var{ID: 1}}},
		Body: []ast.Functor{
			{Name: 2, Args: []ast.Term{ast.Var{ID: 0}, ast.Var{ID: 2}}},
			{Name: 2, Args: []ast.Term{ast.Var{ID: 2}, ast.Var{ID: 1}}},
		},
	}
}

// TestAllocateProgramClause_SpanningVarsArePermanent checks that a variable
// occurring in more than one occurrence group (head counts as group 0 along
// with the first body goal) is placed in a stack slot, while a variable
// confined to a single goal is not.
func TestAllocateProgramClause_SpanningVarsArePermanent(t *testing.T) {
	c := grandparentClause()
	alloc := AllocateProgramClause(c)

	// X (id 0) occurs in the head and in body goal 0: both fall in group 0,
	// so X is not forced permanent by spanning groups.
	xAddr, ok := alloc.VarAddr[0]
	require.True(t, ok)
	require.Equal(t, isa.RegAddr, xAddr.Mode)

	// Y (id 2) occurs in body goal 0 (group 0) and body goal 1 (group 1):
	// it spans groups and must be permanent.
	yAddr, ok := alloc.VarAddr[2]
	require.True(t, ok)
	require.Equal(t, isa.StackAddr, yAddr.Mode)

	// Z (id 1) occurs in the head (group 0) and body goal 1 (group 1): also
	// spans groups, also permanent.
	zAddr, ok := alloc.VarAddr[1]
	require.True(t, ok)
	require.Equal(t, isa.StackAddr, zAddr.Mode)

	require.Equal(t, 2, alloc.NumPermanent)
}

// TestAllocateProgramClause_FactHasNoPermanentVars checks that a clause with
// no body never needs stack slots, since there is no later goal for a
// variable to survive across.
func TestAllocateProgramClause_FactHasNoPermanentVars(t *testing.T) {
	c := ast.ProgramClause{Head: ast.Functor{Name: 1, Args: []ast.Term{ast.Var{ID: 0}, ast.Atom{Name: 9}}}}
	alloc := AllocateProgramClause(c)
	require.Equal(t, 0, alloc.NumPermanent)
	require.Equal(t, isa.RegAddr, alloc.VarAddr[0].Mode)
}

// TestAllocateQueryClause_NamedVarsAlwaysPermanent checks that every named
// query variable gets a stack slot even when it occurs only once, since it
// must still be addressable when the query's own frame is read back for
// answers (spec section 4.1).
func TestAllocateQueryClause_NamedVarsAlwaysPermanent(t *testing.T) {
	q := ast.QueryClause{
		Body:     []ast.Functor{{Name: 1, Args: []ast.Term{ast.Var{ID: 0}}}},
		VarNames: map[int]uint32{0: 100},
	}
	alloc := AllocateQueryClause(q)
	require.Equal(t, 1, alloc.NumPermanent)
	require.Equal(t, isa.StackAddr, alloc.VarAddr[0].Mode)
}

// TestAllocateQueryClause_AnonymousSingleGoalVarIsTemporary checks that an
// unnamed variable confined to one goal stays a register, even in a query.
func TestAllocateQueryClause_AnonymousSingleGoalVarIsTemporary(t *testing.T) {
	q := ast.QueryClause{
		Body: []ast.Functor{{Name: 1, Args: []ast.Term{ast.Var{ID: 0}, ast.Var{ID: 0}}}},
	}
	alloc := AllocateQueryClause(q)
	require.Equal(t, 0, alloc.NumPermanent)
	require.Equal(t, isa.RegAddr, alloc.VarAddr[0].Mode)
}

// TestAllocateProgramClause_NestedStructureGetsOwnRegister checks that a
// compound nested inside another compound's argument is assigned its own
// register distinct from its parent's.
func TestAllocateProgramClause_NestedStructureGetsOwnRegister(t *testing.T) {
	inner := &ast.Compound{Name: 5, Args: []ast.Term{ast.Var{ID: 0}}}
	outer := &ast.Compound{Name: 6, Args: []ast.Term{inner}}
	c := ast.ProgramClause{Head: ast.Functor{Name: 1, Args: []ast.Term{outer}}}
	alloc := AllocateProgramClause(c)

	outerAddr, ok := alloc.NodeAddr[outer]
	require.True(t, ok)
	innerAddr, ok := alloc.NodeAddr[inner]
	require.True(t, ok)
	require.NotEqual(t, outerAddr, innerAddr)
}

// TestAllocateProgramClause_LiveAfterGoalNonIncreasing checks the
// environment-trimming bookkeeping spec section 4.1 describes: the live
// permanent-variable count can only shrink or stay the same as goals
// complete, never grow.
func TestAllocateProgramClause_LiveAfterGoalNonIncreasing(t *testing.T) {
	c := grandparentClause()
	alloc := AllocateProgramClause(c)
	require.Len(t, alloc.LiveAfterGoal, 2)
	for i := 1; i < len(alloc.LiveAfterGoal); i++ {
		require.LessOrEqual(t, alloc.LiveAfterGoal[i], alloc.LiveAfterGoal[i-1])
	}
	// After the final goal nothing needs to survive further.
	require.Equal(t, 0, alloc.LiveAfterGoal[len(alloc.LiveAfterGoal)-1])
}
