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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleProgram() []Instruction {
	return []Instruction{
		PutStruc{R: X(1), F: F(2, 7)},
		SetVar{R: X(2)},
		SetVal{R: Y(0)},
		SetLocalVal{R: Y(1)},
		SetConst{C: 42},
		SetVoid{N: 3},
		PutVar{Slot: Y(0), Ai: 1},
		PutVal{Slot: X(4), Ai: 2},
		PutUnsafeVal{Y: 2, Ai: 0},
		PutConst{C: 9, Ai: 3},
		PutList{R: X(0)},
		GetStruc{R: X(0), F: F(2, 7)},
		GetVar{Slot: Y(1), Ai: 0},
		GetVal{Slot: X(3), Ai: 1},
		GetConst{C: 5, Ai: 2},
		GetList{R: X(1)},
		UnifyVar{R: X(5)},
		UnifyVal{R: Y(2)},
		UnifyLocalVal{R: X(6)},
		UnifyConst{C: 11},
		UnifyVoid{N: 2},
		Allocate{N: 3},
		Deallocate{},
		Call{P: F(2, 9), NRemaining: 1},
		Execute{P: F(1, 3)},
		Proceed{},
		TryMeElse{L: 128},
		RetryMeElse{L: 256},
		TrustMe{},
		Suspend{},
	}
}

func TestRoundTripEncodeDecode(t *testing.T) {
	var code []byte
	for _, instr := range sampleProgram() {
		code = Encode(code, instr)
	}
	decoded, err := Disassemble(code)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleProgram(), decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSizeIsFixedPerOpcode(t *testing.T) {
	// Every operand width is value-independent: size must depend only on
	// opcode, never on the specific instruction's field values. This is what
	// lets the assembler lay out label addresses before encoding.
	require.Equal(t, Size(OpTryMeElse), Size(TryMeElse{L: 0}.Opcode()))
	require.Equal(t, len(encodeOne(t, TryMeElse{L: 0})), len(encodeOne(t, TryMeElse{L: 0xFFFFFFFF})))
}

func encodeOne(t *testing.T, instr Instruction) []byte {
	t.Helper()
	return Encode(nil, instr)
}

func TestDecodeInvalidOpcode(t *testing.T) {
	_, _, err := Decode([]byte{0xFF}, 0)
	require.Error(t, err)
	var invalid *ErrInvalidOpcode
	require.ErrorAs(t, err, &invalid)
}

func TestDecodeTruncated(t *testing.T) {
	_, _, err := Decode([]byte{byte(OpAllocate)}, 0)
	require.Error(t, err)
	var trunc *ErrTruncated
	require.ErrorAs(t, err, &trunc)
}

func TestAddrEncodeDecode(t *testing.T) {
	for _, a := range []Addr{X(0), X(63), Y(0), Y(63)} {
		got := decodeAddr(a.encode())
		require.Equal(t, a, got)
	}
}

func TestInstructionStringsAreNotEmpty(t *testing.T) {
	for _, instr := range sampleProgram() {
		require.NotEmpty(t, instr.String())
		require.NotEmpty(t, instr.Opcode().String())
	}
}
