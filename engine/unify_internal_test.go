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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kevinawalsh/wam/internal/cell"
)

func newTestMachine() *Machine {
	return New(DefaultOptions(), nil)
}

func TestDerefFollowsChainToUnboundRef(t *testing.T) {
	m := newTestMachine()
	a, err := m.newHeapRef()
	require.NoError(t, err)
	b, err := m.newHeapRef()
	require.NoError(t, err)

	// a -> b, b unbound: deref(a) must land on b.
	m.data[a] = cell.Make(cell.Ref, uint32(b))
	require.Equal(t, b, m.deref(a))
	require.Equal(t, b, m.deref(b))
}

func TestBindBindsYoungerRefToOlder(t *testing.T) {
	m := newTestMachine()
	older, err := m.newHeapRef()
	require.NoError(t, err)
	younger, err := m.newHeapRef()
	require.NoError(t, err)
	require.Less(t, older, younger)

	m.bind(older, younger)

	require.Equal(t, cell.Ref, m.data[younger].Tag())
	require.Equal(t, older, m.data[younger].Addr())
	// The older cell is left as the representative: still self-referencing.
	require.Equal(t, older, m.data[older].Addr())
}

func TestUnifyTwoUnboundRefsAliasesThem(t *testing.T) {
	m := newTestMachine()
	a, err := m.newHeapRef()
	require.NoError(t, err)
	b, err := m.newHeapRef()
	require.NoError(t, err)

	require.True(t, m.unify(a, b))
	require.Equal(t, m.deref(a), m.deref(b))
}

func TestUnifyConstants(t *testing.T) {
	m := newTestMachine()
	a, err := m.pushHeap(cell.Make(cell.Con, 7))
	require.NoError(t, err)
	b, err := m.pushHeap(cell.Make(cell.Con, 7))
	require.NoError(t, err)
	c, err := m.pushHeap(cell.Make(cell.Con, 8))
	require.NoError(t, err)

	require.True(t, m.unify(a, b))
	require.False(t, m.unify(a, c))
}

func TestUnifyVarWithConstantBinds(t *testing.T) {
	m := newTestMachine()
	v, err := m.newHeapRef()
	require.NoError(t, err)
	con, err := m.pushHeap(cell.Make(cell.Con, 42))
	require.NoError(t, err)

	require.True(t, m.unify(v, con))
	d := m.deref(v)
	require.Equal(t, cell.Con, m.data[d].Tag())
	require.Equal(t, uint32(42), m.data[d].Value())
}

func TestUnifyStructuresRecursesIntoArguments(t *testing.T) {
	m := newTestMachine()

	// f(1, X)
	strA, err := m.pushHeap(0)
	require.NoError(t, err)
	_, err = m.pushHeap(cell.Cell(uint32(cell.MakeFunctor(2, 99))))
	require.NoError(t, err)
	m.data[strA] = cell.Make(cell.Str, uint32(strA+1))
	_, err = m.pushHeap(cell.Make(cell.Con, 1))
	require.NoError(t, err)
	xAddr, err := m.newHeapRef()
	require.NoError(t, err)

	// f(1, 2)
	strB, err := m.pushHeap(0)
	require.NoError(t, err)
	_, err = m.pushHeap(cell.Cell(uint32(cell.MakeFunctor(2, 99))))
	require.NoError(t, err)
	m.data[strB] = cell.Make(cell.Str, uint32(strB+1))
	_, err = m.pushHeap(cell.Make(cell.Con, 1))
	require.NoError(t, err)
	_, err = m.pushHeap(cell.Make(cell.Con, 2))
	require.NoError(t, err)

	require.True(t, m.unify(strA, strB))
	d := m.deref(xAddr)
	require.Equal(t, cell.Con, m.data[d].Tag())
	require.Equal(t, uint32(2), m.data[d].Value())
}

func TestUnifyMismatchedFunctorFails(t *testing.T) {
	m := newTestMachine()
	strA, err := m.pushHeap(0)
	require.NoError(t, err)
	_, err = m.pushHeap(cell.Cell(uint32(cell.MakeFunctor(1, 1))))
	require.NoError(t, err)
	m.data[strA] = cell.Make(cell.Str, uint32(strA+1))
	_, err = m.pushHeap(cell.Make(cell.Con, 1))
	require.NoError(t, err)

	strB, err := m.pushHeap(0)
	require.NoError(t, err)
	_, err = m.pushHeap(cell.Cell(uint32(cell.MakeFunctor(1, 2))))
	require.NoError(t, err)
	m.data[strB] = cell.Make(cell.Str, uint32(strB+1))
	_, err = m.pushHeap(cell.Make(cell.Con, 1))
	require.NoError(t, err)

	require.False(t, m.unify(strA, strB))
}

// TestBacktrackReclaimsStackGrownSinceTry covers spec section 3's
// environment-frame lifecycle ("die... on backtracking past them"): any
// stack growth (environment frames allocated by intervening calls) after a
// choice point was taken must be undone on backtrack, not just the heap,
// trail and control registers.
func TestBacktrackReclaimsStackGrownSinceTry(t *testing.T) {
	m := newTestMachine()
	spAtTry := m.SP

	m.pushChoicePoint(0)
	require.Equal(t, spAtTry, m.choicePoints[m.B].SP)

	// Simulate an allocate executed after the try, growing the stack.
	m.SP += 16
	require.Greater(t, m.SP, spAtTry)

	m.backtrack()
	require.Equal(t, spAtTry, m.SP)
}

func TestTrailIfConditionalOnlyTrailsBelowHB(t *testing.T) {
	m := newTestMachine()
	m.HB = m.H + 100 // pretend a choice point set HB ahead of current H
	addr, err := m.newHeapRef()
	require.NoError(t, err)

	before := len(m.trail)
	m.trailIfConditional(addr)
	require.Equal(t, before+1, len(m.trail))

	m.HB = m.H // now HB trails current top: new cells are not conditional
	addr2, err := m.newHeapRef()
	require.NoError(t, err)
	before2 := len(m.trail)
	m.trailIfConditional(addr2)
	require.Equal(t, before2, len(m.trail))
}
