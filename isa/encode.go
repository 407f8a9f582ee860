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

// Size returns the encoded length, in bytes, of an instruction of the given
// opcode, including the opcode byte itself. Every instruction of a given
// opcode has the same encoded length, since operand widths never depend on
// operand values (spec section 6, "on-wire code format"): this lets the
// assembler lay out label addresses in a single forward pass before any
// instruction is actually encoded.
//
// Deviation from spec section 6's literal "constant indices occupy one
// byte": a CON cell's value is the full interned functor id (up to 24 bits,
// spec section 3), so a one-byte constant operand could not address most of
// the interner's id space. Constant operands here are encoded as 4-byte
// little-endian ids, consistent with the data model; see DESIGN.md.
func Size(op Opcode) int {
	const (
		opByte  = 1
		addrOp  = 1
		u8Op    = 1
		u32Op   = 4
		funcOp  = 4
	)
	switch op {
	case OpPutStruc, OpGetStruc:
		return opByte + addrOp + funcOp
	case OpSetVar, OpSetVal, OpSetLocalVal, OpUnifyVar, OpUnifyVal, OpUnifyLocalVal:
		return opByte + addrOp
	case OpSetConst, OpUnifyConst:
		return opByte + u32Op
	case OpSetVoid, OpUnifyVoid, OpAllocate, OpPutList, OpGetList:
		return opByte + u8Op
	case OpPutVar, OpPutVal, OpGetVar, OpGetVal:
		return opByte + addrOp + u8Op
	case OpPutUnsafeVal:
		return opByte + u8Op + u8Op
	case OpPutConst, OpGetConst:
		return opByte + u32Op + u8Op
	case OpDeallocate, OpProceed, OpTrustMe, OpSuspend:
		return opByte
	case OpCall:
		return opByte + funcOp + u8Op
	case OpExecute:
		return opByte + funcOp
	case OpTryMeElse, OpRetryMeElse:
		return opByte + u32Op
	default:
		return -1
	}
}

// Encode appends the wire encoding of instr to code and returns the result.
func Encode(code []byte, instr Instruction) []byte {
	op := instr.Opcode()
	code = append(code, byte(op))
	switch i := instr.(type) {
	case PutStruc:
		code = append(code, i.R.encode())
		code = appendU32(code, uint32(i.F))
	case SetVar:
		code = append(code, i.R.encode())
	case SetVal:
		code = append(code, i.R.encode())
	case SetLocalVal:
		code = append(code, i.R.encode())
	case SetConst:
		code = appendU32(code, i.C)
	case SetVoid:
		code = append(code, i.N)
	case PutVar:
		code = append(code, i.Slot.encode(), i.Ai)
	case PutVal:
		code = append(code, i.Slot.encode(), i.Ai)
	case PutUnsafeVal:
		code = append(code, i.Y, i.Ai)
	case PutConst:
		code = appendU32(code, i.C)
		code = append(code, i.Ai)
	case PutList:
		code = append(code, i.R.encode())
	case GetStruc:
		code = append(code, i.R.encode())
		code = appendU32(code, uint32(i.F))
	case GetVar:
		code = append(code, i.Slot.encode(), i.Ai)
	case GetVal:
		code = append(code, i.Slot.encode(), i.Ai)
	case GetConst:
		code = appendU32(code, i.C)
		code = append(code, i.Ai)
	case GetList:
		code = append(code, i.R.encode())
	case UnifyVar:
		code = append(code, i.R.encode())
	case UnifyVal:
		code = append(code, i.R.encode())
	case UnifyLocalVal:
		code = append(code, i.R.encode())
	case UnifyConst:
		code = appendU32(code, i.C)
	case UnifyVoid:
		code = append(code, i.N)
	case Allocate:
		code = append(code, i.N)
	case Deallocate:
	case Call:
		code = appendU32(code, uint32(i.P))
		code = append(code, i.NRemaining)
	case Execute:
		code = appendU32(code, uint32(i.P))
	case Proceed:
	case TryMeElse:
		code = appendU32(code, i.L)
	case RetryMeElse:
		code = appendU32(code, i.L)
	case TrustMe:
	case Suspend:
	default:
		panic(fmt.Sprintf("isa: encode: unhandled instruction type %T", instr))
	}
	return code
}

func appendU32(code []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(code, b[:]...)
}
