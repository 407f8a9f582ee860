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

// Package interner provides a reference implementation of the NameInterner
// (spec section 6): the mapping from names to the ids that the compiler's
// input (package ast) and the engine's answers carry. The compiler and
// engine take those ids as given and never call an interner themselves.
package interner

import "fmt"

// NameInterner maps textual functor/variable names to dense small integer
// ids and back. Names are scoped by arity: "foo"/1 and "foo"/2 are distinct
// entries.
type NameInterner interface {
	Intern(text string, arity int) uint32
	Deintern(id uint32) (text string, arity int, ok bool)
}

type key struct {
	text  string
	arity int
}

// Table is a simple in-memory NameInterner. The zero value is not usable;
// construct with New.
type Table struct {
	ids   map[key]uint32
	names []key
}

// New returns an empty Table.
func New() *Table {
	return &Table{ids: make(map[key]uint32)}
}

// Intern returns the dense id for (text, arity), assigning a fresh one the
// first time this pair is seen. IDs are dense and monotonically increasing,
// so the core always has room for them in a 24-bit cell value (spec section
// 6: "IDs are dense small integers, fit in 24 bits").
func (t *Table) Intern(text string, arity int) uint32 {
	k := key{text, arity}
	if id, ok := t.ids[k]; ok {
		return id
	}
	id := uint32(len(t.names))
	t.ids[k] = id
	t.names = append(t.names, k)
	return id
}

// Deintern recovers the text and arity for an id previously returned by
// Intern.
func (t *Table) Deintern(id uint32) (text string, arity int, ok bool) {
	if int(id) >= len(t.names) {
		return "", 0, false
	}
	k := t.names[id]
	return k.text, k.arity, true
}

// MustIntern is Intern for callers (tests, fixtures) that want a readable
// panic on misuse: it rejects a negative arity instead of interning it.
func (t *Table) MustIntern(text string, arity int) uint32 {
	if arity < 0 {
		panic(fmt.Sprintf("interner: negative arity for %q", text))
	}
	return t.Intern(text, arity)
}
