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

// Package engine runs compiled byte-code: dereference, bind, unify,
// environment frame and choice-point management, and the call/proceed/
// execute control transfers (spec section 4.5-4.7).
package engine

import (
	"github.com/hashicorp/go-hclog"

	"github.com/kevinawalsh/wam/compile"
	"github.com/kevinawalsh/wam/internal/cell"
	"github.com/kevinawalsh/wam/isa"
)

// runMode is the engine's read/write mode during structure matching (spec
// section 4.3); distinct from isa.Mode, which selects an addressing bank.
type runMode int

const (
	modeWrite runMode = iota
	modeRead
)

// Options configures a Machine's fixed resource capacities (spec section 5:
// "no environment variables... accepts a small Options struct"). All data
// segment regions are pre-sized at construction; exceeding one is resource
// exhaustion (spec section 7, kind 4), reported as a fatal *EngineFault.
type Options struct {
	NumRegisters int // size of the X register bank
	HeapSize     int
	StackSize    int // environment frames only; choice points are kept in a separate Go slice
	TrailSize    int
	Logger       hclog.Logger
}

// DefaultOptions returns capacities generous enough for the small test
// programs this module ships with its own tests.
func DefaultOptions() Options {
	return Options{
		NumRegisters: 256,
		HeapSize:     1 << 16,
		StackSize:    1 << 16,
		TrailSize:    1 << 14,
	}
}

// Machine is one independent WAM execution context: its own data segment,
// code buffer and call table (spec section 5, "multiple query sessions are
// permitted only if each has its own engine instance"). The zero value is
// not usable; construct with New.
type Machine struct {
	log hclog.Logger

	// data is the unified data segment (spec section 3): X register bank,
	// then heap, then stack, laid out back to back so every address is a
	// plain integer offset into one array and deref/bind/unify never need
	// to dispatch on which region an address falls in.
	data []cell.Cell

	xBase, heapBase, stackBase, stackEnd int

	H  int // heap top: next free heap cell
	SP int // stack top: next free environment frame slot
	E  int // current environment frame base, or -1
	B  int // latest choice point index, or -1 (see choicepoint.go)
	HB int // heap top recorded at the time of B
	TR int // not read or written: the trail top is len(trail)
	CP int // continuation: code offset to resume at on proceed
	IP int // instruction pointer: code offset of the next instruction

	mode runMode
	S    int // structure argument cursor during read mode

	argCount int // arity of the predicate currently being entered, for choice-point capture

	trail        []int
	choicePoints []choicePoint

	code      []byte
	callTable map[isa.Functor]compile.CallEntry
}

// New constructs a Machine with no code loaded.
func New(opts Options, log hclog.Logger) *Machine {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	xBase := 0
	heapBase := xBase + opts.NumRegisters
	stackBase := heapBase + opts.HeapSize
	stackEnd := stackBase + opts.StackSize
	m := &Machine{
		log:       log,
		data:      make([]cell.Cell, stackEnd),
		xBase:     xBase,
		heapBase:  heapBase,
		stackBase: stackBase,
		stackEnd:  stackEnd,
		H:         heapBase,
		SP:        stackBase,
		E:         -1,
		B:         -1,
		HB:        heapBase,
		trail:     make([]int, 0, opts.TrailSize),
		callTable: make(map[isa.Functor]compile.CallEntry),
	}
	return m
}

// Load appends a compiled program's code to the machine's code buffer and
// extends its call table (spec section 6, "load(compiled_predicate)").
func (m *Machine) Load(prog *compile.Program) {
	base := len(m.code)
	m.code = append(m.code, prog.Code...)
	for f, e := range prog.CallTable {
		m.callTable[f] = compile.CallEntry{EntryPoint: base + e.EntryPoint, Length: e.Length}
	}
}

// loadCode appends raw encoded instructions (e.g. a compiled query, which
// has no call-table entry of its own) and returns their entry offset.
func (m *Machine) loadCode(code []byte) int {
	entry := len(m.code)
	m.code = append(m.code, code...)
	return entry
}

// Reset clears code, data and the call table, returning the machine to its
// state just after New (spec section 6, "reset()").
func (m *Machine) Reset() {
	for i := range m.data {
		m.data[i] = 0
	}
	m.H = m.heapBase
	m.SP = m.stackBase
	m.E = -1
	m.B = -1
	m.HB = m.heapBase
	m.trail = m.trail[:0]
	m.choicePoints = nil
	m.CP = 0
	m.IP = 0
	m.code = nil
	m.callTable = make(map[isa.Functor]compile.CallEntry)
}

func (m *Machine) inHeap(addr int) bool  { return addr >= m.heapBase && addr < m.stackBase }
func (m *Machine) inStack(addr int) bool { return addr >= m.stackBase && addr < m.stackEnd }

// resolveAddr turns a compile-time operand into an absolute data segment
// address: register operands index the X bank directly; stack operands are
// relative to the current environment frame's permanent variable area
// (slots 3.. of the frame, spec section 3).
func (m *Machine) resolveAddr(a isa.Addr) int {
	if a.Mode == isa.RegAddr {
		return m.xBase + int(a.Index)
	}
	return m.E + 3 + int(a.Index)
}

func (m *Machine) resolveAi(ai uint8) int { return m.xBase + int(ai) }

func (m *Machine) growHeap(n int) error {
	if m.H+n > m.stackBase {
		return fault("heap")
	}
	return nil
}

func (m *Machine) pushHeap(c cell.Cell) (int, error) {
	if err := m.growHeap(1); err != nil {
		return 0, err
	}
	addr := m.H
	m.data[addr] = c
	m.H++
	return addr, nil
}

func (m *Machine) trailIfConditional(addr int) {
	if addr < m.HB {
		m.trail = append(m.trail, addr)
	}
}

// run executes from m.IP until suspend (returns nil, with IP parked just
// past the suspend instruction), exhaustion (returns errNoMoreAnswers), or a
// fatal fault (returns *EngineFault). See answers.go, which drives run and
// distinguishes these three outcomes.
func (m *Machine) run() error {
	for {
		if m.IP >= len(m.code) {
			return fault("code: ran off the end of the code buffer")
		}
		instr, next, err := isa.Decode(m.code, m.IP)
		if err != nil {
			return fault("code: " + err.Error())
		}
		m.log.Trace("step", "ip", m.IP, "instr", instr.String())
		fellThrough := next
		suspend, err := m.step(instr, fellThrough)
		if err != nil {
			return err
		}
		if suspend {
			return nil
		}
	}
}

// step executes one instruction. fellThrough is the code offset following
// this instruction textually, used by every instruction that does not
// itself alter control flow. step returns (true, nil) on suspend.
func (m *Machine) step(instr isa.Instruction, fellThrough int) (bool, error) {
	switch i := instr.(type) {
	case isa.PutStruc:
		return false, m.execPutStruc(i, fellThrough)
	case isa.SetVar:
		return false, m.execSetVar(i, fellThrough)
	case isa.SetVal:
		return false, m.execSetVal(i, fellThrough)
	case isa.SetLocalVal:
		return false, m.execSetLocalVal(i, fellThrough)
	case isa.SetConst:
		return false, m.execSetConst(i, fellThrough)
	case isa.SetVoid:
		return false, m.execSetVoid(i, fellThrough)
	case isa.PutVar:
		return false, m.execPutVar(i, fellThrough)
	case isa.PutVal:
		return false, m.execPutVal(i, fellThrough)
	case isa.PutUnsafeVal:
		return false, m.execPutUnsafeVal(i, fellThrough)
	case isa.PutConst:
		return false, m.execPutConst(i, fellThrough)
	case isa.PutList:
		return false, m.execPutList(i, fellThrough)
	case isa.GetStruc:
		return false, m.execGetStruc(i, fellThrough)
	case isa.GetVar:
		return false, m.execGetVar(i, fellThrough)
	case isa.GetVal:
		return false, m.execGetVal(i, fellThrough)
	case isa.GetConst:
		return false, m.execGetConst(i, fellThrough)
	case isa.GetList:
		return false, m.execGetList(i, fellThrough)
	case isa.UnifyVar:
		return false, m.execUnifyVar(i, fellThrough)
	case isa.UnifyVal:
		return false, m.execUnifyVal(i, fellThrough)
	case isa.UnifyLocalVal:
		return false, m.execUnifyLocalVal(i, fellThrough)
	case isa.UnifyConst:
		return false, m.execUnifyConst(i, fellThrough)
	case isa.UnifyVoid:
		return false, m.execUnifyVoid(i, fellThrough)
	case isa.Allocate:
		return false, m.execAllocate(i, fellThrough)
	case isa.Deallocate:
		return false, m.execDeallocate(fellThrough)
	case isa.Call:
		return false, m.execCall(i, fellThrough)
	case isa.Execute:
		return false, m.execExecute(i)
	case isa.Proceed:
		m.IP = m.CP
		return false, nil
	case isa.TryMeElse:
		return false, m.execTryMeElse(i, fellThrough)
	case isa.RetryMeElse:
		return false, m.execRetryMeElse(i, fellThrough)
	case isa.TrustMe:
		return false, m.execTrustMe(fellThrough)
	case isa.Suspend:
		m.IP = fellThrough
		return true, nil
	default:
		return false, fault("unknown instruction")
	}
}

// fail triggers backtracking to the latest choice point (spec section 4.5,
// 4.7). With no choice point left it reports exhaustion, which is not a
// fault: it means the query has no (more) answers.
func (m *Machine) fail() error {
	if m.B < 0 {
		return errNoMoreAnswers
	}
	m.backtrack()
	return nil
}
