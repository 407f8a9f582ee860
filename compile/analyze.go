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
	"github.com/kevinawalsh/wam/internal/ast"
	"github.com/kevinawalsh/wam/isa"
)

// InstrKind identifies which family of instruction first introduced a
// variable: head side top-level (Get), body/query side top-level (Put),
// body/query side nested inside a structure being built (Set), or head side
// nested inside a structure being matched (Unify). Spec section 4.2.
type InstrKind int

const (
	KindGet InstrKind = iota
	KindPut
	KindSet
	KindUnify
)

func (k InstrKind) String() string {
	switch k {
	case KindGet:
		return "get"
	case KindPut:
		return "put"
	case KindSet:
		return "set"
	case KindUnify:
		return "unify"
	default:
		return "?"
	}
}

// Analysis records, for one clause, the occurrence and introduction-kind
// bookkeeping the clause compiler needs beyond plain register addresses
// (spec section 4.2).
type Analysis struct {
	Occurrences map[int]int
	Singleton   map[int]bool
	FirstKind   map[int]InstrKind
	// Local holds variables whose first heap copy must use a *_local_val
	// instruction to globalize them (permanent and first introduced by
	// Get/Put, or temporary and first introduced by Get).
	Local map[int]bool
	// UnsafeAt maps a permanent variable's id to the index of the last body
	// goal in which it occurs, when every occurrence of that variable in
	// that goal is directly in argument position. put_unsafe_val is only
	// correct (and only needed) for that specific goal's compilation.
	UnsafeAt map[int]int
}

// AnalyzeProgramClause analyzes a program clause's head and body against an
// allocation already computed for the same clause.
func AnalyzeProgramClause(c ast.ProgramClause, alloc *Allocation) *Analysis {
	return analyze(&c.Head, c.Body, alloc)
}

// AnalyzeQueryClause analyzes a query's body against an allocation already
// computed for the same query.
func AnalyzeQueryClause(c ast.QueryClause, alloc *Allocation) *Analysis {
	return analyze(nil, c.Body, alloc)
}

func analyze(head *ast.Functor, body []ast.Functor, alloc *Allocation) *Analysis {
	occ := make(map[int]int)
	count := func(id int) { occ[id]++ }
	if head != nil {
		walkVars(head.Args, count)
	}
	for i := range body {
		walkVars(body[i].Args, count)
	}
	singleton := make(map[int]bool, len(occ))
	for id, n := range occ {
		singleton[id] = n == 1
	}

	first := make(map[int]InstrKind)
	if head != nil {
		walkTop(head.Args, KindGet, KindUnify, first)
	}
	for i := range body {
		walkTop(body[i].Args, KindPut, KindSet, first)
	}

	permanent := func(id int) bool {
		a, ok := alloc.VarAddr[id]
		return ok && a.Mode == isa.StackAddr
	}
	local := make(map[int]bool)
	for id, k := range first {
		switch {
		case permanent(id) && (k == KindGet || k == KindPut):
			local[id] = true
		case !permanent(id) && k == KindGet:
			local[id] = true
		}
	}

	unsafeAt := make(map[int]int)
	for id := range occ {
		if !permanent(id) {
			continue
		}
		last := -1
		for i := range body {
			if containsVarAnywhere(body[i].Args, id) {
				last = i
			}
		}
		if last < 0 {
			continue
		}
		if containsVarAnywhere(body[last].Args, id) && !containsVarNested(body[last].Args, id) {
			unsafeAt[id] = last
		}
	}

	return &Analysis{
		Occurrences: occ,
		Singleton:   singleton,
		FirstKind:   first,
		Local:       local,
		UnsafeAt:    unsafeAt,
	}
}

// walkTop visits args at top level, tagging a directly-occurring variable
// with topKind and any variable nested inside a Compound/Cons argument with
// nestedKind, recording only the first kind seen for each variable id.
func walkTop(args []ast.Term, topKind, nestedKind InstrKind, first map[int]InstrKind) {
	mark := func(id int, kind InstrKind) {
		if _, ok := first[id]; !ok {
			first[id] = kind
		}
	}
	for _, arg := range args {
		switch t := arg.(type) {
		case ast.Var:
			mark(t.ID, topKind)
		case *ast.Compound:
			markNested(t.Args, nestedKind, mark)
		case *ast.Cons:
			markNested([]ast.Term{t.Head, t.Tail}, nestedKind, mark)
		}
	}
}

func markNested(args []ast.Term, kind InstrKind, mark func(id int, kind InstrKind)) {
	for _, arg := range args {
		switch t := arg.(type) {
		case ast.Var:
			mark(t.ID, kind)
		case *ast.Compound:
			markNested(t.Args, kind, mark)
		case *ast.Cons:
			markNested([]ast.Term{t.Head, t.Tail}, kind, mark)
		}
	}
}

func containsVarAnywhere(args []ast.Term, id int) bool {
	found := false
	walkVars(args, func(v int) {
		if v == id {
			found = true
		}
	})
	return found
}

func containsVarNested(args []ast.Term, id int) bool {
	for _, arg := range args {
		switch t := arg.(type) {
		case *ast.Compound:
			if containsVarAnywhere(t.Args, id) {
				return true
			}
		case *ast.Cons:
			if containsVarAnywhere([]ast.Term{t.Head, t.Tail}, id) {
				return true
			}
		}
	}
	return false
}
