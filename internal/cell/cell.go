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

// Package cell implements the tagged 32-bit heap cell described by the
// machine's data model: a tag in the top 8 bits and a 24-bit value below it.
package cell

import "fmt"

// Tag distinguishes the four kinds of cell the machine understands.
type Tag uint8

const (
	// Ref marks a reference cell: either a bound pointer to another cell, or,
	// when its value equals its own address, an unbound variable.
	Ref Tag = iota
	// Str marks a structure cell: its value points to a functor word followed
	// by that functor's arguments.
	Str
	// Con marks a constant (an atom, i.e. a functor of arity zero): its value
	// is the interned name id.
	Con
	// Lis marks a list pair cell: its value points to a two-cell head/tail
	// pair.
	Lis
)

func (t Tag) String() string {
	switch t {
	case Ref:
		return "REF"
	case Str:
		return "STR"
	case Con:
		return "CON"
	case Lis:
		return "LIS"
	default:
		return fmt.Sprintf("TAG(%d)", uint8(t))
	}
}

const (
	tagShift = 24
	valMask  = 1<<tagShift - 1
)

// Cell is a single tagged heap/stack word.
type Cell uint32

// Make packs a tag and a value (an address or an interned id) into a cell.
// value must fit in 24 bits.
func Make(t Tag, value uint32) Cell {
	return Cell(uint32(t)<<tagShift | (value & valMask))
}

// Tag returns the cell's tag.
func (c Cell) Tag() Tag {
	return Tag(uint32(c) >> tagShift)
}

// Value returns the cell's 24-bit payload.
func (c Cell) Value() uint32 {
	return uint32(c) & valMask
}

// Addr returns the cell's payload interpreted as a data-segment address.
// Valid only for Ref, Str and Lis cells.
func (c Cell) Addr() int {
	return int(c.Value())
}

func (c Cell) String() string {
	return fmt.Sprintf("%s(%d)", c.Tag(), c.Value())
}

// Functor is an untagged word packing a predicate/atom arity (top 8 bits) and
// its interned name (bottom 24 bits). It follows a Str cell on the heap, and
// is also the payload of a Con cell (with Arity() always 0 in that case).
type Functor uint32

const functorShift = 24

// MakeFunctor packs an arity and an interned name id into a functor word.
func MakeFunctor(arity int, name uint32) Functor {
	return Functor(uint32(uint8(arity))<<functorShift | (name & valMask))
}

// Arity returns the functor's arity.
func (f Functor) Arity() int {
	return int(uint32(f) >> functorShift)
}

// Name returns the functor's interned name id.
func (f Functor) Name() uint32 {
	return uint32(f) & valMask
}

func (f Functor) String() string {
	return fmt.Sprintf("#%d/%d", f.Name(), f.Arity())
}
