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

	set "github.com/hashicorp/go-set/v3"

	"github.com/kevinawalsh/wam/internal/ast"
	"github.com/kevinawalsh/wam/isa"
)

// Allocation records, for one clause, where every sub-term lives (spec
// section 4.1). VarAddr maps a variable's stable id to its register or
// permanent slot; NodeAddr maps a nested compound/list node (by identity) to
// the register that holds it once built/matched. The outermost functor of
// each goal is never itself allocated (spec section 4.1) -- only its
// arguments are, whether directly (NodeAddr/VarAddr) or via the argument
// register bank implicitly (index i of the goal's own Args).
type Allocation struct {
	VarAddr       map[int]isa.Addr
	NodeAddr      map[ast.Term]isa.Addr
	NumPermanent  int
	LiveAfterGoal []int // len(Body); monotonically non-increasing
}

// goalList bundles a clause's head and body into one flat sequence: index
// -1 is the head (absent for queries), indices 0..len(Body)-1 are body
// goals.
type goalList struct {
	head *ast.Functor
	body []ast.Functor
}

// groupOf returns the occurrence-grouping index used for permanence
// analysis (spec section 4.1): group 0 is head ∪ first body goal; each
// later body goal is its own group.
func (g goalList) groupOf(goalIndex int) int {
	if goalIndex <= 0 {
		return 0
	}
	return goalIndex
}

// AllocateProgramClause assigns registers and stack slots for a program
// clause (fact or rule).
func AllocateProgramClause(c ast.ProgramClause) *Allocation {
	gl := goalList{head: &c.Head, body: c.Body}
	permRule := func(varGroups map[int]*set.Set[int], _ *set.Set[int]) *set.Set[int] {
		perm := set.New[int](0)
		for v, groups := range varGroups {
			if groups.Size() > 1 {
				perm.Insert(v)
			}
		}
		return perm
	}
	return allocate(gl, permRule, nil)
}

// AllocateQueryClause assigns registers and stack slots for a query. Every
// named variable is permanent, so that it survives to be read back as an
// answer (spec section 4.1); anonymous variables remain temporary unless
// they happen to span more than one group, in which case they must be
// permanent regardless, to survive the intervening call.
func AllocateQueryClause(c ast.QueryClause) *Allocation {
	gl := goalList{head: nil, body: c.Body}
	named := set.New[int](len(c.VarNames))
	for v := range c.VarNames {
		named.Insert(v)
	}
	permRule := func(varGroups map[int]*set.Set[int], named *set.Set[int]) *set.Set[int] {
		perm := set.New[int](0)
		for v, groups := range varGroups {
			if groups.Size() > 1 || named.Contains(v) {
				perm.Insert(v)
			}
		}
		return perm
	}
	return allocate(gl, permRule, named)
}

func allocate(gl goalList, permRule func(map[int]*set.Set[int], *set.Set[int]) *set.Set[int], named *set.Set[int]) *Allocation {
	// Step 1: occurrence groups, for permanence classification.
	varGroups := make(map[int]*set.Set[int])
	firstOccurrence := make(map[int]int)
	order := 0
	noteVar := func(group, id int) {
		if _, ok := varGroups[id]; !ok {
			varGroups[id] = set.New[int](1)
			firstOccurrence[id] = order
			order++
		}
		varGroups[id].Insert(group)
	}
	if gl.head != nil {
		walkVars(gl.head.Args, func(id int) { noteVar(gl.groupOf(-1), id) })
	}
	for i := range gl.body {
		walkVars(gl.body[i].Args, func(id int) { noteVar(gl.groupOf(i), id) })
	}

	permanent := permRule(varGroups, named)

	// Step 2: order permanent variables by decreasing last group index,
	// ties broken by first occurrence (DESIGN.md, Open Question decisions).
	permList := permanent.Slice()
	lastGroup := func(v int) int {
		m := 0
		for _, g := range varGroups[v].Slice() {
			if g > m {
				m = g
			}
		}
		return m
	}
	sort.Slice(permList, func(i, j int) bool {
		gi, gj := lastGroup(permList[i]), lastGroup(permList[j])
		if gi != gj {
			return gi > gj
		}
		return firstOccurrence[permList[i]] < firstOccurrence[permList[j]]
	})
	varAddr := make(map[int]isa.Addr)
	for slot, v := range permList {
		varAddr[v] = isa.Y(slot)
	}
	nodeAddr := make(map[ast.Term]isa.Addr)

	// Step 3: register assignment, one goal at a time. The head and the
	// first body goal form one occurrence group, so a temporary introduced
	// in the head must survive the first goal's argument loading: they share
	// one temp counter, started at the larger of the two arities so that no
	// argument register of the first goal overlaps a head temporary. Every
	// later goal starts a fresh counter at its own arity: any variable it
	// shares with an earlier goal is permanent (a Y slot, already assigned
	// above), so its temporaries are scratch space for its own code sequence
	// only. A compound or list appearing
	// directly as argument i of a goal occupies argument register X(i)
	// itself (spec section 4.1); a variable in that same position never
	// does, since the same variable may fill more than one argument
	// position.
	assignTop := func(args []ast.Term, startTemp int) int {
		nextTemp := startTemp
		var children []ast.Term
		for i, arg := range args {
			switch t := arg.(type) {
			case ast.Var:
				if _, ok := varAddr[t.ID]; ok {
					continue
				}
				varAddr[t.ID] = isa.X(nextTemp)
				nextTemp++
			case *ast.Compound:
				nodeAddr[t] = isa.X(i)
				children = append(children, t.Args...)
			case *ast.Cons:
				nodeAddr[t] = isa.X(i)
				children = append(children, t.Head, t.Tail)
			}
		}
		assignInner(children, varAddr, nodeAddr, &nextTemp)
		return nextTemp
	}
	headNext := 0
	if gl.head != nil {
		start := gl.head.Arity()
		if len(gl.body) > 0 && gl.body[0].Arity() > start {
			start = gl.body[0].Arity()
		}
		headNext = assignTop(gl.head.Args, start)
	}
	liveAfter := make([]int, len(gl.body))
	for i := range gl.body {
		start := gl.body[i].Arity()
		if i == 0 && headNext > start {
			start = headNext
		}
		assignTop(gl.body[i].Args, start)
		liveAfter[i] = countLivePermanent(permanent, varGroups, gl, i)
	}

	return &Allocation{
		VarAddr:       varAddr,
		NodeAddr:      nodeAddr,
		NumPermanent:  permanent.Size(),
		LiveAfterGoal: liveAfter,
	}
}

// assignInner assigns temporary registers to every sub-term nested below a
// goal's top-level arguments, level by level: it fully allocates the
// current level (the args passed in) before moving on to the level below,
// rather than descending into a compound/cons the moment it is seen (spec
// section 4.1, "breadth-first (outer-to-inner) walk... starting after the
// outermost functor"). Only the outermost functor's direct arguments may
// occupy an argument register; every sub-term handled here always receives
// a fresh temporary.
func assignInner(args []ast.Term, varAddr map[int]isa.Addr, nodeAddr map[ast.Term]isa.Addr, nextTemp *int) {
	level := args
	for len(level) > 0 {
		var next []ast.Term
		for _, arg := range level {
			switch t := arg.(type) {
			case ast.Var:
				if _, ok := varAddr[t.ID]; ok {
					continue
				}
				varAddr[t.ID] = isa.X(*nextTemp)
				*nextTemp++
			case *ast.Compound:
				nodeAddr[t] = isa.X(*nextTemp)
				*nextTemp++
				next = append(next, t.Args...)
			case *ast.Cons:
				nodeAddr[t] = isa.X(*nextTemp)
				*nextTemp++
				next = append(next, t.Head, t.Tail)
			}
		}
		level = next
	}
}

// countLivePermanent returns the number of permanent variables still live
// after body goal i completes, for environment trimming (spec section 4.1,
// "for every body goal the allocator records the number of permanent
// variables still live after the call").
func countLivePermanent(permanent *set.Set[int], varGroups map[int]*set.Set[int], gl goalList, goalIndex int) int {
	afterGroup := gl.groupOf(goalIndex)
	live := 0
	for _, v := range permanent.Slice() {
		for _, g := range varGroups[v].Slice() {
			if g > afterGroup {
				live++
				break
			}
		}
	}
	return live
}

// walkVars calls fn once per Var occurrence (including nested occurrences)
// in the given argument terms, in left-to-right, outer-to-inner order.
func walkVars(args []ast.Term, fn func(id int)) {
	for _, arg := range args {
		switch t := arg.(type) {
		case ast.Var:
			fn(t.ID)
		case *ast.Compound:
			walkVars(t.Args, fn)
		case *ast.Cons:
			walkVars([]ast.Term{t.Head, t.Tail}, fn)
		}
	}
}
