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

// Package isa defines the WAM byte-code instruction set: the addressing
// modes, the opcode encoding, and the instruction variants of spec section
// 4.3, along with their encoder, decoder and pretty-printer.
package isa

import (
	"fmt"

	"github.com/kevinawalsh/wam/internal/cell"
)

// Mode selects which data-segment bank an Addr refers into (spec section 3,
// invariant 6: "its section is determined by an addressing mode byte").
type Mode uint8

const (
	// RegAddr addresses the X register bank (argument registers A0..A_{n-1}
	// are simply X0..X_{n-1} of the active call).
	RegAddr Mode = iota
	// StackAddr addresses a permanent variable slot Y_j in the current
	// environment frame.
	StackAddr
)

func (m Mode) String() string {
	if m == StackAddr {
		return "Y"
	}
	return "X"
}

// maxIndex is the largest register/slot index that fits alongside the one
// mode bit in a single operand byte.
const maxIndex = 0x7F

// Addr is an operand referring to either an X register or a Y stack slot.
type Addr struct {
	Mode  Mode
	Index uint8
}

// X constructs a temporary/argument register operand.
func X(index int) Addr { return Addr{Mode: RegAddr, Index: uint8(index)} }

// Y constructs a permanent variable stack-slot operand.
func Y(index int) Addr { return Addr{Mode: StackAddr, Index: uint8(index)} }

func (a Addr) String() string { return fmt.Sprintf("%s%d", a.Mode, a.Index) }

func (a Addr) encode() byte {
	return byte(a.Mode)<<7 | (a.Index & maxIndex)
}

func decodeAddr(b byte) Addr {
	return Addr{Mode: Mode(b >> 7), Index: b & maxIndex}
}

// Functor is the wire form of a predicate or structure symbol: an arity and
// an interned name id, matching the heap's functor word (spec section 4.3,
// "Functor operands are encoded as a 32-bit word (arity << 24) | name_id").
type Functor = cell.Functor

// F builds a Functor operand.
func F(arity int, name uint32) Functor { return cell.MakeFunctor(arity, name) }
