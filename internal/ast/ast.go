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

// Package ast defines the minimal clause and term shapes that the compiler
// consumes. Parsing, name interning and the rest of a front end are the
// caller's responsibility (spec section 6): ast only fixes the data the
// compiler needs in hand once a clause has been parsed and its names
// interned.
package ast

import "fmt"

// Term is a sub-term of a clause: a Var, an Atom, a Compound or a Cons.
type Term interface {
	isTerm()
}

// Var is an occurrence of a variable. ID is a stable identifier, unique
// within the enclosing clause: two occurrences of the "same" variable must
// carry the same ID, and distinct variables must carry distinct IDs.
type Var struct {
	ID int
}

func (Var) isTerm() {}

func (v Var) String() string { return fmt.Sprintf("_%d", v.ID) }

// Atom is a zero-arity functor, i.e. a constant such as an identifier or
// quoted string, identified by its interned name id.
type Atom struct {
	Name uint32
}

func (Atom) isTerm() {}

func (a Atom) String() string { return fmt.Sprintf("atom#%d", a.Name) }

// Compound is a functor of arity one or more, applied to argument terms. It
// is always held as *Compound: the register allocator keys its "which
// register builds/matches this nested structure" table on node identity, so
// two syntactically identical but distinct sub-terms never alias a
// register.
type Compound struct {
	Name uint32
	Args []Term
}

func (*Compound) isTerm() {}

func (c *Compound) String() string { return fmt.Sprintf("#%d/%d", c.Name, len(c.Args)) }

// Cons is a list pair, i.e. '.'(Head, Tail) with dedicated LIS heap
// representation rather than a generic structure cell. Always held as
// *Cons, for the same identity-keying reason as *Compound.
type Cons struct {
	Head Term
	Tail Term
}

func (*Cons) isTerm() {}

func (*Cons) String() string { return "'.'/2" }

// Functor is the callable head of a clause or a body goal: a predicate
// symbol applied to argument terms. It never contains a nested Compound at
// its own level -- it IS the top-level application.
type Functor struct {
	Name uint32
	Args []Term
}

func (f Functor) String() string { return fmt.Sprintf("#%d/%d", f.Name, len(f.Args)) }

// Arity returns the number of arguments of the functor.
func (f Functor) Arity() int { return len(f.Args) }

// ProgramClause is a clause with a head: a fact (len(Body) == 0) or a rule.
type ProgramClause struct {
	Head Functor
	Body []Functor
}

// IsFact reports whether the clause has no body goals.
func (c ProgramClause) IsFact() bool { return len(c.Body) == 0 }

// IsChainRule reports whether the clause has at most one body goal. Facts
// and chain rules are assembled without an environment frame (spec section
// 4.4, "Predicate assembly").
func (c ProgramClause) IsChainRule() bool { return len(c.Body) <= 1 }

// QueryClause is a top-level query: one or more body goals and no head.
// VarNames records, for each named (non-anonymous) variable id appearing in
// the query, its interned source name, so the enumerator can report answers
// keyed by name (spec section 6, "a map from free-variable name to a fully
// dereferenced term").
type QueryClause struct {
	Body     []Functor
	VarNames map[int]uint32
}
