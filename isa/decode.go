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

package isa

import (
	"encoding/binary"
	"fmt"
)

// ErrInvalidOpcode is returned by Decode when a byte does not name a known
// opcode. Per spec section 4.7, this is a fatal engine error, not a
// unification failure.
type ErrInvalidOpcode struct {
	Offset int
	Byte   byte
}

func (e *ErrInvalidOpcode) Error() string {
	return fmt.Sprintf("isa: invalid opcode 0x%02x at offset %d", e.Byte, e.Offset)
}

// ErrTruncated is returned by Decode when an instruction's operand bytes run
// past the end of the code buffer.
type ErrTruncated struct {
	Offset int
	Opcode Opcode
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("isa: truncated %s at offset %d", e.Opcode, e.Offset)
}

// Decode reads one instruction from code starting at pc. It returns the
// decoded instruction and the offset of the following instruction.
func Decode(code []byte, pc int) (Instruction, int, error) {
	if pc >= len(code) {
		return nil, pc, fmt.Errorf("isa: decode past end of code at offset %d", pc)
	}
	op := Opcode(code[pc])
	size := Size(op)
	if size < 0 {
		return nil, pc, &ErrInvalidOpcode{Offset: pc, Byte: code[pc]}
	}
	if pc+size > len(code) {
		return nil, pc, &ErrTruncated{Offset: pc, Opcode: op}
	}
	b := code[pc+1 : pc+size]
	next := pc + size

	switch op {
	case OpPutStruc:
		return PutStruc{R: decodeAddr(b[0]), F: Functor(u32(b[1:]))}, next, nil
	case OpSetVar:
		return SetVar{R: decodeAddr(b[0])}, next, nil
	case OpSetVal:
		return SetVal{R: decodeAddr(b[0])}, next, nil
	case OpSetLocalVal:
		return SetLocalVal{R: decodeAddr(b[0])}, next, nil
	case OpSetConst:
		return SetConst{C: u32(b)}, next, nil
	case OpSetVoid:
		return SetVoid{N: b[0]}, next, nil
	case OpPutVar:
		return PutVar{Slot: decodeAddr(b[0]), Ai: b[1]}, next, nil
	case OpPutVal:
		return PutVal{Slot: decodeAddr(b[0]), Ai: b[1]}, next, nil
	case OpPutUnsafeVal:
		return PutUnsafeVal{Y: b[0], Ai: b[1]}, next, nil
	case OpPutConst:
		return PutConst{C: u32(b[:4]), Ai: b[4]}, next, nil
	case OpPutList:
		return PutList{R: decodeAddr(b[0])}, next, nil
	case OpGetStruc:
		return GetStruc{R: decodeAddr(b[0]), F: Functor(u32(b[1:]))}, next, nil
	case OpGetVar:
		return GetVar{Slot: decodeAddr(b[0]), Ai: b[1]}, next, nil
	case OpGetVal:
		return GetVal{Slot: decodeAddr(b[0]), Ai: b[1]}, next, nil
	case OpGetConst:
		return GetConst{C: u32(b[:4]), Ai: b[4]}, next, nil
	case OpGetList:
		return GetList{R: decodeAddr(b[0])}, next, nil
	case OpUnifyVar:
		return UnifyVar{R: decodeAddr(b[0])}, next, nil
	case OpUnifyVal:
		return UnifyVal{R: decodeAddr(b[0])}, next, nil
	case OpUnifyLocalVal:
		return UnifyLocalVal{R: decodeAddr(b[0])}, next, nil
	case OpUnifyConst:
		return UnifyConst{C: u32(b)}, next, nil
	case OpUnifyVoid:
		return UnifyVoid{N: b[0]}, next, nil
	case OpAllocate:
		return Allocate{N: b[0]}, next, nil
	case OpDeallocate:
		return Deallocate{}, next, nil
	case OpCall:
		return Call{P: Functor(u32(b[:4])), NRemaining: b[4]}, next, nil
	case OpExecute:
		return Execute{P: Functor(u32(b))}, next, nil
	case OpProceed:
		return Proceed{}, next, nil
	case OpTryMeElse:
		return TryMeElse{L: u32(b)}, next, nil
	case OpRetryMeElse:
		return RetryMeElse{L: u32(b)}, next, nil
	case OpTrustMe:
		return TrustMe{}, next, nil
	case OpSuspend:
		return Suspend{}, next, nil
	default:
		return nil, pc, &ErrInvalidOpcode{Offset: pc, Byte: code[pc]}
	}
}

func u32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b[:4])
}

// Disassemble decodes an entire code buffer into its instruction list. It is
// the inverse of repeatedly calling Encode (spec section 8, "round trip").
func Disassemble(code []byte) ([]Instruction, error) {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		instr, next, err := Decode(code, pc)
		if err != nil {
			return out, err
		}
		out = append(out, instr)
		pc = next
	}
	return out, nil
}
