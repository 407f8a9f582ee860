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
	"github.com/hashicorp/go-hclog"

	"github.com/kevinawalsh/wam/internal/ast"
	"github.com/kevinawalsh/wam/isa"
)

// emitter walks one clause's terms and appends the byte-code that matches or
// builds them, consulting an Allocation and Analysis already computed for
// that same clause.
type emitter struct {
	alloc *Allocation
	an    *Analysis
	log   hclog.Logger

	seenVar map[int]bool // variable already introduced, so subsequent uses are "val" not the first-occurrence form
	local   map[int]bool // copy of an.Local, consumed (cleared) on first globalizing use

	goalIndex int // number of body goals compiled so far
	code      []isa.Instruction
}

func newEmitter(alloc *Allocation, an *Analysis, log hclog.Logger) *emitter {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	local := make(map[int]bool, len(an.Local))
	for id, v := range an.Local {
		local[id] = v
	}
	return &emitter{
		alloc:   alloc,
		an:      an,
		log:     log,
		seenVar: make(map[int]bool),
		local:   local,
	}
}

func (e *emitter) emit(i isa.Instruction) {
	e.code = append(e.code, i)
	e.log.Trace("emit", "instr", i.String())
}

// consumeLocal reports whether id's first copy to the heap must use the
// *_local_val globalizing form, clearing the mark so later copies use the
// plain form (spec section 9, "the analyzer must clear the local mark after
// the first emission").
func (e *emitter) consumeLocal(id int) bool {
	if e.local[id] {
		delete(e.local, id)
		return true
	}
	return false
}

// CompileProgramClause emits PROGRAM tokens for a clause head followed by
// QUERY tokens for its body (spec section 4.4). A rule with more than one
// body goal gets an environment frame: allocate comes before the head, and
// deallocate comes after the last goal's arguments are loaded, right before
// its execute. Facts and chain rules get no frame. Predicate-level
// try/retry/trust_me wrapping is left to the assembler (assemble.go), since
// it depends on the clause's position among its predicate's sibling clauses.
func CompileProgramClause(c ast.ProgramClause, alloc *Allocation, an *Analysis, log hclog.Logger) []isa.Instruction {
	e := newEmitter(alloc, an, log)
	wrapped := !c.IsChainRule()
	if wrapped {
		e.emit(isa.Allocate{N: uint8(alloc.NumPermanent)})
	}
	e.compileHead(c.Head)
	if c.IsFact() {
		// A fact has no goal to tail-call into, so it must return to its
		// caller explicitly.
		e.emit(isa.Proceed{})
	}
	for i, goal := range c.Body {
		last := i == len(c.Body)-1
		e.compileBodyGoal(goal, last)
		if last && wrapped {
			// The last goal's arguments are read from this frame, so it is
			// popped only between them and the closing execute.
			n := len(e.code) - 1
			exec := e.code[n]
			e.code = e.code[:n]
			e.emit(isa.Deallocate{})
			e.code = append(e.code, exec)
		}
	}
	return e.code
}

// CompileQueryClause emits QUERY tokens for every goal of a query, always
// wrapped in an environment frame and never tail-called away: unlike a
// program clause, a query has no caller to return to, and its named
// variables (all permanent, see AllocateQueryClause) must still be reachable
// through its own environment frame at the moment suspend reports an answer
// (spec section 6, "a map from free-variable name to a fully dereferenced
// term"). The fact/chain-rule execute+deallocate elision of spec section
// 4.4 is a property of clauses that return to a caller; it does not apply
// here, so every goal -- including the last -- ends in `call`, and the
// clause ends in `suspend` rather than `execute`.
func CompileQueryClause(c ast.QueryClause, alloc *Allocation, an *Analysis, log hclog.Logger) []isa.Instruction {
	e := newEmitter(alloc, an, log)
	e.emit(isa.Allocate{N: uint8(alloc.NumPermanent)})
	for _, goal := range c.Body {
		e.compileBodyGoal(goal, false)
	}
	e.emit(isa.Suspend{})
	return e.code
}

// --- Head (PROGRAM) compilation: outer-to-inner breadth-first walk. ---
//
// get_struc/get_list leave their match position in the engine's single
// global S/mode pair (engine/exec.go); a structure's own unify_* stream must
// therefore run to completion, uninterrupted by any other structure's
// get_struc/get_list, before S can be repointed at the next one. compileHead
// drains a level-order queue of pending structures rather than recursing
// into a nested compound/list the moment it is encountered, so the emitted
// code always finishes one structure's unify_* block before opening the
// next (spec section 4.1, "breadth-first (outer-to-inner) walk").

func (e *emitter) compileHead(head ast.Functor) {
	var pending []ast.Term
	for i, arg := range head.Args {
		e.compileHeadArg(arg, uint8(i), &pending)
	}
	for len(pending) > 0 {
		t := pending[0]
		pending = pending[1:]
		e.compileHeadStruct(t, &pending)
	}
}

func (e *emitter) compileHeadArg(arg ast.Term, ai uint8, pending *[]ast.Term) {
	switch t := arg.(type) {
	case ast.Var:
		if e.seenVar[t.ID] {
			e.emit(isa.GetVal{Slot: e.alloc.VarAddr[t.ID], Ai: ai})
		} else {
			e.seenVar[t.ID] = true
			e.emit(isa.GetVar{Slot: e.alloc.VarAddr[t.ID], Ai: ai})
		}
	case ast.Atom:
		e.emit(isa.GetConst{C: t.Name, Ai: ai})
	case *ast.Compound, *ast.Cons:
		e.compileHeadStruct(t, pending)
	}
}

// compileHeadStruct emits one structure's own get_struc/get_list followed
// immediately by its unify_* stream, queuing any nested compound/cons found
// among its direct arguments for a later round rather than opening it here.
func (e *emitter) compileHeadStruct(t ast.Term, pending *[]ast.Term) {
	switch n := t.(type) {
	case *ast.Compound:
		e.emit(isa.GetStruc{R: e.alloc.NodeAddr[n], F: isa.F(len(n.Args), n.Name)})
		for _, sub := range n.Args {
			e.compileHeadStructArg(sub, pending)
		}
	case *ast.Cons:
		e.emit(isa.GetList{R: e.alloc.NodeAddr[n]})
		e.compileHeadStructArg(n.Head, pending)
		e.compileHeadStructArg(n.Tail, pending)
	}
}

// compileHeadStructArg emits the unify_* token for one sub-argument of a
// get_struc/get_list, read in the dual read/write mode the running engine
// decides at execution time (spec section 4.3 -- the compiler emits a single
// stream of unify tokens regardless of the mode that will be active).
func (e *emitter) compileHeadStructArg(arg ast.Term, pending *[]ast.Term) {
	switch t := arg.(type) {
	case ast.Var:
		if e.seenVar[t.ID] {
			if e.consumeLocal(t.ID) {
				e.emit(isa.UnifyLocalVal{R: e.alloc.VarAddr[t.ID]})
			} else {
				e.emit(isa.UnifyVal{R: e.alloc.VarAddr[t.ID]})
			}
			return
		}
		e.seenVar[t.ID] = true
		e.emit(isa.UnifyVar{R: e.alloc.VarAddr[t.ID]})
	case ast.Atom:
		e.emit(isa.UnifyConst{C: t.Name})
	case *ast.Compound, *ast.Cons:
		// A nested structure appearing as a sub-argument of another
		// structure still needs its own register recorded by the
		// allocator; unify_var introduces it here, but its own
		// get_struc/get_list sequence waits for the current structure's
		// unify_* stream to finish, so it cannot clobber S/mode out from
		// under it.
		e.emit(isa.UnifyVar{R: e.alloc.NodeAddr[t]})
		*pending = append(*pending, t)
	}
}

// --- Body/query (QUERY) compilation: inner-to-outer postfix walk per goal. ---

func (e *emitter) compileBodyGoal(goal ast.Functor, isLast bool) {
	e.goalIndex++
	idx := e.goalIndex - 1
	for i, arg := range goal.Args {
		e.compileBodyArg(arg, uint8(i), idx)
	}
	if isLast {
		e.emit(isa.Execute{P: isa.F(len(goal.Args), goal.Name)})
	} else {
		e.emit(isa.Call{P: isa.F(len(goal.Args), goal.Name), NRemaining: e.liveAfter(idx)})
	}
}

func (e *emitter) liveAfter(goalIndex int) uint8 {
	if goalIndex < 0 || goalIndex >= len(e.alloc.LiveAfterGoal) {
		return 0
	}
	return uint8(e.alloc.LiveAfterGoal[goalIndex])
}

func (e *emitter) compileBodyArg(arg ast.Term, ai uint8, goalIndex int) {
	switch t := arg.(type) {
	case ast.Var:
		e.compileBodyVarArg(t, ai, goalIndex)
	case ast.Atom:
		e.emit(isa.PutConst{C: t.Name, Ai: ai})
	case *ast.Compound:
		e.emit(isa.PutStruc{R: e.alloc.NodeAddr[t], F: isa.F(len(t.Args), t.Name)})
		for _, sub := range t.Args {
			e.compileBodyStructSub(sub)
		}
		e.emit(isa.PutVal{Slot: e.alloc.NodeAddr[t], Ai: ai})
	case *ast.Cons:
		e.emit(isa.PutList{R: e.alloc.NodeAddr[t]})
		e.compileBodyStructSub(t.Head)
		e.compileBodyStructSub(t.Tail)
		e.emit(isa.PutVal{Slot: e.alloc.NodeAddr[t], Ai: ai})
	}
}

// compileBodyVarArg decides between put_var (first occurrence), put_val
// (subsequent, safe), and put_unsafe_val (subsequent, in the one goal where
// the analyzer found every occurrence of this permanent variable to be
// direct-argument-only -- spec section 4.2).
func (e *emitter) compileBodyVarArg(t ast.Var, ai uint8, goalIndex int) {
	if !e.seenVar[t.ID] {
		e.seenVar[t.ID] = true
		e.emit(isa.PutVar{Slot: e.alloc.VarAddr[t.ID], Ai: ai})
		return
	}
	if last, ok := e.an.UnsafeAt[t.ID]; ok && last == goalIndex {
		e.emit(isa.PutUnsafeVal{Y: e.alloc.VarAddr[t.ID].Index, Ai: ai})
		return
	}
	e.emit(isa.PutVal{Slot: e.alloc.VarAddr[t.ID], Ai: ai})
}

// compileBodyStructSub emits postfix tokens for one sub-argument of a
// put_struc/put_list under construction. A nested structure gets its own
// put_struc/put_list first, immediately followed by its own set_* stream,
// so its cells land contiguously on the heap right after its functor word
// -- the same layout get_struc/get_list expect when matching it back later.
func (e *emitter) compileBodyStructSub(arg ast.Term) {
	switch t := arg.(type) {
	case ast.Var:
		if e.seenVar[t.ID] {
			if e.consumeLocal(t.ID) {
				e.emit(isa.SetLocalVal{R: e.alloc.VarAddr[t.ID]})
			} else {
				e.emit(isa.SetVal{R: e.alloc.VarAddr[t.ID]})
			}
			return
		}
		e.seenVar[t.ID] = true
		e.emit(isa.SetVar{R: e.alloc.VarAddr[t.ID]})
	case ast.Atom:
		e.emit(isa.SetConst{C: t.Name})
	case *ast.Compound:
		e.emit(isa.PutStruc{R: e.alloc.NodeAddr[t], F: isa.F(len(t.Args), t.Name)})
		for _, sub := range t.Args {
			e.compileBodyStructSub(sub)
		}
		e.emit(isa.SetVal{R: e.alloc.NodeAddr[t]})
	case *ast.Cons:
		e.emit(isa.PutList{R: e.alloc.NodeAddr[t]})
		e.compileBodyStructSub(t.Head)
		e.compileBodyStructSub(t.Tail)
		e.emit(isa.SetVal{R: e.alloc.NodeAddr[t]})
	}
}
