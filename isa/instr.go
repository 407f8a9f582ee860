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

import "fmt"

// Opcode identifies an instruction variant on the wire. Each instruction
// begins with a one-byte opcode (spec section 4.3).
type Opcode uint8

const (
	OpPutStruc Opcode = iota
	OpSetVar
	OpSetVal
	OpSetLocalVal
	OpSetConst
	OpSetVoid
	OpPutVar
	OpPutVal
	OpPutUnsafeVal
	OpPutConst
	OpPutList

	OpGetStruc
	OpGetVar
	OpGetVal
	OpGetConst
	OpGetList

	OpUnifyVar
	OpUnifyVal
	OpUnifyLocalVal
	OpUnifyConst
	OpUnifyVoid

	OpAllocate
	OpDeallocate
	OpCall
	OpExecute
	OpProceed
	OpTryMeElse
	OpRetryMeElse
	OpTrustMe
	OpSuspend
)

var opcodeNames = [...]string{
	OpPutStruc:      "put_struc",
	OpSetVar:        "set_var",
	OpSetVal:        "set_val",
	OpSetLocalVal:   "set_local_val",
	OpSetConst:      "set_const",
	OpSetVoid:       "set_void",
	OpPutVar:        "put_var",
	OpPutVal:        "put_val",
	OpPutUnsafeVal:  "put_unsafe_val",
	OpPutConst:      "put_const",
	OpPutList:       "put_list",
	OpGetStruc:      "get_struc",
	OpGetVar:        "get_var",
	OpGetVal:        "get_val",
	OpGetConst:      "get_const",
	OpGetList:       "get_list",
	OpUnifyVar:      "unify_var",
	OpUnifyVal:      "unify_val",
	OpUnifyLocalVal: "unify_local_val",
	OpUnifyConst:    "unify_const",
	OpUnifyVoid:     "unify_void",
	OpAllocate:      "allocate",
	OpDeallocate:    "deallocate",
	OpCall:          "call",
	OpExecute:       "execute",
	OpProceed:       "proceed",
	OpTryMeElse:     "try_me_else",
	OpRetryMeElse:   "retry_me_else",
	OpTrustMe:       "trust_me",
	OpSuspend:       "suspend",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Instruction is a decoded byte-code instruction. Every variant below
// implements it; Opcode identifies the variant for encoding, String renders
// WAM mnemonic syntax for tracing and disassembly (spec section 6.1).
type Instruction interface {
	Opcode() Opcode
	String() string
}

// --- Structure-building (query/body side) ---

type PutStruc struct {
	R Addr
	F Functor
}

func (PutStruc) Opcode() Opcode { return OpPutStruc }
func (i PutStruc) String() string {
	return fmt.Sprintf("put_struc %s, %d/%d", i.R, i.F.Name(), i.F.Arity())
}

type SetVar struct{ R Addr }

func (SetVar) Opcode() Opcode     { return OpSetVar }
func (i SetVar) String() string   { return fmt.Sprintf("set_var %s", i.R) }

type SetVal struct{ R Addr }

func (SetVal) Opcode() Opcode   { return OpSetVal }
func (i SetVal) String() string { return fmt.Sprintf("set_val %s", i.R) }

type SetLocalVal struct{ R Addr }

func (SetLocalVal) Opcode() Opcode   { return OpSetLocalVal }
func (i SetLocalVal) String() string { return fmt.Sprintf("set_local_val %s", i.R) }

type SetConst struct{ C uint32 }

func (SetConst) Opcode() Opcode   { return OpSetConst }
func (i SetConst) String() string { return fmt.Sprintf("set_const #%d", i.C) }

type SetVoid struct{ N uint8 }

func (SetVoid) Opcode() Opcode   { return OpSetVoid }
func (i SetVoid) String() string { return fmt.Sprintf("set_void %d", i.N) }

type PutVar struct {
	Slot Addr
	Ai   uint8
}

func (PutVar) Opcode() Opcode   { return OpPutVar }
func (i PutVar) String() string { return fmt.Sprintf("put_var %s, A%d", i.Slot, i.Ai) }

type PutVal struct {
	Slot Addr
	Ai   uint8
}

func (PutVal) Opcode() Opcode   { return OpPutVal }
func (i PutVal) String() string { return fmt.Sprintf("put_val %s, A%d", i.Slot, i.Ai) }

// PutUnsafeVal is always over a Y (permanent stack) slot (spec section 4.3).
type PutUnsafeVal struct {
	Y  uint8
	Ai uint8
}

func (PutUnsafeVal) Opcode() Opcode { return OpPutUnsafeVal }
func (i PutUnsafeVal) String() string {
	return fmt.Sprintf("put_unsafe_val Y%d, A%d", i.Y, i.Ai)
}

type PutConst struct {
	C  uint32
	Ai uint8
}

func (PutConst) Opcode() Opcode   { return OpPutConst }
func (i PutConst) String() string { return fmt.Sprintf("put_const #%d, A%d", i.C, i.Ai) }

// PutList holds a general register, not just an argument register: a list
// cell may be built while constructing a nested sub-term, not only directly
// in a goal's argument position.
type PutList struct{ R Addr }

func (PutList) Opcode() Opcode   { return OpPutList }
func (i PutList) String() string { return fmt.Sprintf("put_list %s", i.R) }

// --- Structure-matching (program/head side) ---

type GetStruc struct {
	R Addr
	F Functor
}

func (GetStruc) Opcode() Opcode { return OpGetStruc }
func (i GetStruc) String() string {
	return fmt.Sprintf("get_struc %s, %d/%d", i.R, i.F.Name(), i.F.Arity())
}

type GetVar struct {
	Slot Addr
	Ai   uint8
}

func (GetVar) Opcode() Opcode   { return OpGetVar }
func (i GetVar) String() string { return fmt.Sprintf("get_var %s, A%d", i.Slot, i.Ai) }

type GetVal struct {
	Slot Addr
	Ai   uint8
}

func (GetVal) Opcode() Opcode   { return OpGetVal }
func (i GetVal) String() string { return fmt.Sprintf("get_val %s, A%d", i.Slot, i.Ai) }

type GetConst struct {
	C  uint32
	Ai uint8
}

func (GetConst) Opcode() Opcode   { return OpGetConst }
func (i GetConst) String() string { return fmt.Sprintf("get_const #%d, A%d", i.C, i.Ai) }

// GetList holds a general register, for the same reason as PutList.
type GetList struct{ R Addr }

func (GetList) Opcode() Opcode   { return OpGetList }
func (i GetList) String() string { return fmt.Sprintf("get_list %s", i.R) }

// --- Unify (read/write mode dual) ---

type UnifyVar struct{ R Addr }

func (UnifyVar) Opcode() Opcode   { return OpUnifyVar }
func (i UnifyVar) String() string { return fmt.Sprintf("unify_var %s", i.R) }

type UnifyVal struct{ R Addr }

func (UnifyVal) Opcode() Opcode   { return OpUnifyVal }
func (i UnifyVal) String() string { return fmt.Sprintf("unify_val %s", i.R) }

type UnifyLocalVal struct{ R Addr }

func (UnifyLocalVal) Opcode() Opcode   { return OpUnifyLocalVal }
func (i UnifyLocalVal) String() string { return fmt.Sprintf("unify_local_val %s", i.R) }

type UnifyConst struct{ C uint32 }

func (UnifyConst) Opcode() Opcode   { return OpUnifyConst }
func (i UnifyConst) String() string { return fmt.Sprintf("unify_const #%d", i.C) }

type UnifyVoid struct{ N uint8 }

func (UnifyVoid) Opcode() Opcode   { return OpUnifyVoid }
func (i UnifyVoid) String() string { return fmt.Sprintf("unify_void %d", i.N) }

// --- Control ---

type Allocate struct{ N uint8 }

func (Allocate) Opcode() Opcode   { return OpAllocate }
func (i Allocate) String() string { return fmt.Sprintf("allocate %d", i.N) }

type Deallocate struct{}

func (Deallocate) Opcode() Opcode   { return OpDeallocate }
func (Deallocate) String() string   { return "deallocate" }

type Call struct {
	P          Functor
	NRemaining uint8
}

func (Call) Opcode() Opcode { return OpCall }
func (i Call) String() string {
	return fmt.Sprintf("call %d/%d, %d", i.P.Name(), i.P.Arity(), i.NRemaining)
}

type Execute struct{ P Functor }

func (Execute) Opcode() Opcode { return OpExecute }
func (i Execute) String() string {
	return fmt.Sprintf("execute %d/%d", i.P.Name(), i.P.Arity())
}

type Proceed struct{}

func (Proceed) Opcode() Opcode { return OpProceed }
func (Proceed) String() string { return "proceed" }

type TryMeElse struct{ L uint32 }

func (TryMeElse) Opcode() Opcode   { return OpTryMeElse }
func (i TryMeElse) String() string { return fmt.Sprintf("try_me_else %d", i.L) }

type RetryMeElse struct{ L uint32 }

func (RetryMeElse) Opcode() Opcode   { return OpRetryMeElse }
func (i RetryMeElse) String() string { return fmt.Sprintf("retry_me_else %d", i.L) }

type TrustMe struct{}

func (TrustMe) Opcode() Opcode { return OpTrustMe }
func (TrustMe) String() string { return "trust_me" }

type Suspend struct{}

func (Suspend) Opcode() Opcode { return OpSuspend }
func (Suspend) String() string { return "suspend" }
