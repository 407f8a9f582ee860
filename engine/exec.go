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

package engine

import (
	"github.com/kevinawalsh/wam/internal/cell"
	"github.com/kevinawalsh/wam/isa"
)

// newHeapRef pushes a fresh unbound (self-referencing) REF cell and returns
// its address.
func (m *Machine) newHeapRef() (int, error) {
	addr, err := m.pushHeap(0)
	if err != nil {
		return 0, err
	}
	m.data[addr] = cell.Make(cell.Ref, uint32(addr))
	return addr, nil
}

// globalize implements the one-shot stack-to-heap promotion that
// *_local_val and put_unsafe_val perform (spec section 4.3, 9): if val is
// still an unbound ref residing on the stack, a fresh heap ref is created
// and the stack cell is bound to it, and the fresh ref is returned in its
// place. Anything else, including an already-globalized or non-stack
// value, passes through unchanged.
func (m *Machine) globalize(val cell.Cell) (cell.Cell, error) {
	if val.Tag() != cell.Ref || !m.inStack(val.Addr()) {
		return val, nil
	}
	stackAddr := val.Addr()
	if m.data[stackAddr].Addr() != stackAddr {
		return val, nil // already bound to something else by the time we got here
	}
	newAddr, err := m.newHeapRef()
	if err != nil {
		return val, err
	}
	m.bindTo(stackAddr, newAddr)
	return m.data[newAddr], nil
}

// --- Structure-building (put_struc writes the STR+functor header; the
// following set_*/put_val sequence builds its arguments contiguously right
// after it, relying on nothing else pushing to the heap in between.) ---

func (m *Machine) execPutStruc(i isa.PutStruc, next int) error {
	strAddr, err := m.pushHeap(0)
	if err != nil {
		return err
	}
	if _, err := m.pushHeap(cell.Cell(uint32(i.F))); err != nil {
		return err
	}
	m.data[strAddr] = cell.Make(cell.Str, uint32(strAddr+1))
	m.setCell(m.resolveAddr(i.R), m.data[strAddr])
	m.mode = modeWrite
	m.IP = next
	return nil
}

func (m *Machine) execSetVar(i isa.SetVar, next int) error {
	addr, err := m.newHeapRef()
	if err != nil {
		return err
	}
	m.setCell(m.resolveAddr(i.R), m.data[addr])
	m.IP = next
	return nil
}

func (m *Machine) execSetVal(i isa.SetVal, next int) error {
	if _, err := m.pushHeap(m.getCell(m.resolveAddr(i.R))); err != nil {
		return err
	}
	m.IP = next
	return nil
}

func (m *Machine) execSetLocalVal(i isa.SetLocalVal, next int) error {
	v, err := m.globalize(m.getCell(m.resolveAddr(i.R)))
	if err != nil {
		return err
	}
	if _, err := m.pushHeap(v); err != nil {
		return err
	}
	m.IP = next
	return nil
}

func (m *Machine) execSetConst(i isa.SetConst, next int) error {
	if _, err := m.pushHeap(cell.Make(cell.Con, i.C)); err != nil {
		return err
	}
	m.IP = next
	return nil
}

func (m *Machine) execSetVoid(i isa.SetVoid, next int) error {
	for n := 0; n < int(i.N); n++ {
		if _, err := m.newHeapRef(); err != nil {
			return err
		}
	}
	m.IP = next
	return nil
}

func (m *Machine) execPutVar(i isa.PutVar, next int) error {
	addr, err := m.newHeapRef()
	if err != nil {
		return err
	}
	v := m.data[addr]
	m.setCell(m.resolveAddr(i.Slot), v)
	m.setCell(m.resolveAi(i.Ai), v)
	m.IP = next
	return nil
}

func (m *Machine) execPutVal(i isa.PutVal, next int) error {
	m.setCell(m.resolveAi(i.Ai), m.getCell(m.resolveAddr(i.Slot)))
	m.IP = next
	return nil
}

func (m *Machine) execPutUnsafeVal(i isa.PutUnsafeVal, next int) error {
	slot := m.E + 3 + int(i.Y)
	d := m.deref(slot)
	v, err := m.globalize(m.data[d])
	if err != nil {
		return err
	}
	m.setCell(m.resolveAi(i.Ai), v)
	m.IP = next
	return nil
}

func (m *Machine) execPutConst(i isa.PutConst, next int) error {
	m.setCell(m.resolveAi(i.Ai), cell.Make(cell.Con, i.C))
	m.IP = next
	return nil
}

func (m *Machine) execPutList(i isa.PutList, next int) error {
	m.setCell(m.resolveAddr(i.R), cell.Make(cell.Lis, uint32(m.H)))
	m.mode = modeWrite
	m.IP = next
	return nil
}

// --- Structure-matching ---

func (m *Machine) execGetStruc(i isa.GetStruc, next int) error {
	addr := m.resolveAddr(i.R)
	d := m.deref(addr)
	v := m.data[d]
	switch {
	case v.Tag() == cell.Ref && v.Addr() == d:
		strAddr, err := m.pushHeap(0)
		if err != nil {
			return err
		}
		if _, err := m.pushHeap(cell.Cell(uint32(i.F))); err != nil {
			return err
		}
		m.data[strAddr] = cell.Make(cell.Str, uint32(strAddr+1))
		m.bindCell(d, m.data[strAddr])
		m.mode = modeWrite
	case v.Tag() == cell.Str:
		f := cell.Functor(uint32(m.data[v.Addr()]))
		if f != i.F {
			return m.fail()
		}
		m.S = v.Addr() + 1
		m.mode = modeRead
	default:
		return m.fail()
	}
	m.IP = next
	return nil
}

func (m *Machine) execGetVar(i isa.GetVar, next int) error {
	m.setCell(m.resolveAddr(i.Slot), m.getCell(m.resolveAi(i.Ai)))
	m.IP = next
	return nil
}

func (m *Machine) execGetVal(i isa.GetVal, next int) error {
	if !m.unify(m.resolveAddr(i.Slot), m.resolveAi(i.Ai)) {
		return m.fail()
	}
	m.IP = next
	return nil
}

func (m *Machine) execGetConst(i isa.GetConst, next int) error {
	addr := m.resolveAi(i.Ai)
	d := m.deref(addr)
	v := m.data[d]
	switch {
	case v.Tag() == cell.Ref && v.Addr() == d:
		m.bindCell(d, cell.Make(cell.Con, i.C))
	case v.Tag() != cell.Con || v.Value() != i.C:
		return m.fail()
	}
	m.IP = next
	return nil
}

func (m *Machine) execGetList(i isa.GetList, next int) error {
	addr := m.resolveAddr(i.R)
	d := m.deref(addr)
	v := m.data[d]
	switch {
	case v.Tag() == cell.Ref && v.Addr() == d:
		m.bindCell(d, cell.Make(cell.Lis, uint32(m.H)))
		m.mode = modeWrite
	case v.Tag() == cell.Lis:
		m.S = v.Addr()
		m.mode = modeRead
	default:
		return m.fail()
	}
	m.IP = next
	return nil
}

// --- Unify (read/write mode dual; spec section 4.3) ---

func (m *Machine) execUnifyVar(i isa.UnifyVar, next int) error {
	if m.mode == modeRead {
		m.setCell(m.resolveAddr(i.R), m.data[m.S])
		m.S++
	} else {
		addr, err := m.newHeapRef()
		if err != nil {
			return err
		}
		m.setCell(m.resolveAddr(i.R), m.data[addr])
	}
	m.IP = next
	return nil
}

func (m *Machine) execUnifyVal(i isa.UnifyVal, next int) error {
	if m.mode == modeRead {
		if !m.unify(m.resolveAddr(i.R), m.S) {
			return m.fail()
		}
		m.S++
	} else if _, err := m.pushHeap(m.getCell(m.resolveAddr(i.R))); err != nil {
		return err
	}
	m.IP = next
	return nil
}

func (m *Machine) execUnifyLocalVal(i isa.UnifyLocalVal, next int) error {
	if m.mode == modeRead {
		if !m.unify(m.resolveAddr(i.R), m.S) {
			return m.fail()
		}
		m.S++
		m.IP = next
		return nil
	}
	v, err := m.globalize(m.getCell(m.resolveAddr(i.R)))
	if err != nil {
		return err
	}
	if _, err := m.pushHeap(v); err != nil {
		return err
	}
	m.IP = next
	return nil
}

func (m *Machine) execUnifyConst(i isa.UnifyConst, next int) error {
	if m.mode == modeRead {
		d := m.deref(m.S)
		v := m.data[d]
		switch {
		case v.Tag() == cell.Ref && v.Addr() == d:
			m.bindCell(d, cell.Make(cell.Con, i.C))
		case v.Tag() != cell.Con || v.Value() != i.C:
			return m.fail()
		}
		m.S++
	} else if _, err := m.pushHeap(cell.Make(cell.Con, i.C)); err != nil {
		return err
	}
	m.IP = next
	return nil
}

func (m *Machine) execUnifyVoid(i isa.UnifyVoid, next int) error {
	if m.mode == modeRead {
		m.S += int(i.N)
	} else {
		for n := 0; n < int(i.N); n++ {
			if _, err := m.newHeapRef(); err != nil {
				return err
			}
		}
	}
	m.IP = next
	return nil
}

// bindCell overwrites an unbound REF cell at refAddr with v directly (not a
// ref-to-ref bind): used when matching a free variable against a constant
// or a freshly built structure/list header.
func (m *Machine) bindCell(refAddr int, v cell.Cell) {
	m.data[refAddr] = v
	m.trailIfConditional(refAddr)
}

// --- Control ---

func (m *Machine) execAllocate(i isa.Allocate, next int) error {
	newE := m.SP
	n := int(i.N)
	if newE+3+n > m.stackEnd {
		return fault("stack")
	}
	m.setRaw(newE, m.E)
	m.setRaw(newE+1, m.CP)
	m.setRaw(newE+2, n)
	m.SP = newE + 3 + n
	m.E = newE
	m.IP = next
	return nil
}

func (m *Machine) execDeallocate(next int) error {
	prevE := m.getRaw(m.E)
	m.CP = m.getRaw(m.E + 1)
	m.SP = m.E
	m.E = prevE
	m.IP = next
	return nil
}

func (m *Machine) execCall(i isa.Call, next int) error {
	entry, ok := m.callTable[i.P]
	if !ok {
		return m.fail()
	}
	if m.E >= 0 {
		m.setRaw(m.E+2, int(i.NRemaining))
	}
	m.CP = next
	m.argCount = i.P.Arity()
	m.IP = entry.EntryPoint
	return nil
}

func (m *Machine) execExecute(i isa.Execute) error {
	entry, ok := m.callTable[i.P]
	if !ok {
		return m.fail()
	}
	m.argCount = i.P.Arity()
	m.IP = entry.EntryPoint
	return nil
}

func (m *Machine) execTryMeElse(i isa.TryMeElse, next int) error {
	m.pushChoicePoint(int(i.L))
	m.IP = next
	return nil
}

func (m *Machine) execRetryMeElse(i isa.RetryMeElse, next int) error {
	m.choicePoints[m.B].retryIP = int(i.L)
	m.IP = next
	return nil
}

func (m *Machine) execTrustMe(next int) error {
	m.popChoicePoint()
	m.IP = next
	return nil
}

func (m *Machine) setRaw(addr, v int) { m.data[addr] = cell.Cell(uint32(v)) }
func (m *Machine) getRaw(addr int) int { return int(uint32(m.data[addr])) }
