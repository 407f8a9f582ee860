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

import "github.com/kevinawalsh/wam/internal/cell"

// deref follows a chain of REF cells iteratively (spec section 9, "express
// iteratively with a loop to avoid unbounded activation stacks") until it
// reaches a non-REF cell or a self-referencing (unbound) REF, and returns
// that address.
func (m *Machine) deref(addr int) int {
	for {
		c := m.data[addr]
		if c.Tag() != cell.Ref {
			return addr
		}
		next := c.Addr()
		if next == addr {
			return addr
		}
		addr = next
	}
}

func (m *Machine) getCell(addr int) cell.Cell  { return m.data[addr] }
func (m *Machine) setCell(addr int, c cell.Cell) { m.data[addr] = c }

// bindTo makes the REF cell at refAddr point at target, trailing the address
// if it lies below HB (spec section 3, "Trail").
func (m *Machine) bindTo(refAddr, target int) {
	m.data[refAddr] = cell.Make(cell.Ref, uint32(target))
	m.trailIfConditional(refAddr)
}

// bind binds one of two addresses, at least one of which holds an unbound
// REF, to the other. An unbound REF facing a bound cell is bound to it; of
// two unbound REFs, the one at the higher address is bound to the one at the
// lower address (see DESIGN.md, Open Question decisions).
func (m *Machine) bind(a, b int) {
	aRef := m.data[a].Tag() == cell.Ref && m.data[a].Addr() == a
	bRef := m.data[b].Tag() == cell.Ref && m.data[b].Addr() == b

	switch {
	case aRef && bRef:
		// Both unbound (and distinct: equal addresses can't happen here).
		// The data segment holds the X registers, then the heap, then the
		// stack, so binding the higher address to the lower rebinds the
		// younger of two heap cells, and always binds a stack cell to a
		// heap cell rather than the reverse.
		if a < b {
			m.bindTo(b, a)
		} else {
			m.bindTo(a, b)
		}
	case aRef:
		m.bindTo(a, b)
	case bRef:
		m.bindTo(b, a)
	}
}

// unify runs the PDL (push-down list) algorithm of spec section 4.5: a
// two-pointer work stack of address pairs, rather than literally carving PDL
// space out of the data segment (the pairs never need independent
// heap/stack addresses of their own).
func (m *Machine) unify(a0, b0 int) bool {
	type pair struct{ a, b int }
	pdl := []pair{{a0, b0}}

	for len(pdl) > 0 {
		p := pdl[len(pdl)-1]
		pdl = pdl[:len(pdl)-1]

		a := m.deref(p.a)
		b := m.deref(p.b)
		if a == b {
			continue
		}

		ca, cb := m.data[a], m.data[b]
		aIsRef := ca.Tag() == cell.Ref && ca.Addr() == a
		bIsRef := cb.Tag() == cell.Ref && cb.Addr() == b

		switch {
		case aIsRef || bIsRef:
			m.bind(a, b)
		case ca.Tag() != cb.Tag():
			return false
		case ca.Tag() == cell.Con:
			if ca.Value() != cb.Value() {
				return false
			}
		case ca.Tag() == cell.Str:
			fa := cell.Functor(uint32(m.data[ca.Addr()]))
			fb := cell.Functor(uint32(m.data[cb.Addr()]))
			if fa != fb {
				return false
			}
			n := fa.Arity()
			for i := 0; i < n; i++ {
				pdl = append(pdl, pair{ca.Addr() + 1 + i, cb.Addr() + 1 + i})
			}
		case ca.Tag() == cell.Lis:
			pdl = append(pdl, pair{ca.Addr(), cb.Addr()})
			pdl = append(pdl, pair{ca.Addr() + 1, cb.Addr() + 1})
		default:
			return false
		}
	}
	return true
}
