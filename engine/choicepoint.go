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

// choicePoint is the state snapshot spec section 3 describes: argument
// registers, saved E/CP, the heap and trail tops at the time it was taken,
// and where to jump on failure. It is kept as a plain Go stack rather than
// literally carved out of the data segment's PDL-adjacent region: nothing
// in the core ever needs a choice point's own data-segment address (unlike
// environment frames, whose Y slots are addressed directly by Addr
// operands), so a slice is the idiomatic container.
type choicePoint struct {
	args    []cell.Cell
	E, CP   int
	HB, TR  int
	SP      int // stack top at the time of the try, for environment frame reclamation on backtrack
	retryIP int // code offset of the next alternative clause's prologue
	prevB   int
}

// pushChoicePoint implements try_me_else (spec section 4.6): save the
// current call's argument registers and control state, and make this the
// latest choice point.
func (m *Machine) pushChoicePoint(retryIP int) {
	args := make([]cell.Cell, m.argCount)
	copy(args, m.data[m.xBase:m.xBase+m.argCount])
	m.choicePoints = append(m.choicePoints, choicePoint{
		args:    args,
		E:       m.E,
		CP:      m.CP,
		HB:      m.H,
		TR:      len(m.trail),
		SP:      m.SP,
		retryIP: retryIP,
		prevB:   m.B,
	})
	m.B = len(m.choicePoints) - 1
	m.HB = m.H
}

// popChoicePoint implements trust_me (spec section 4.6): discard the
// current choice point, since its last alternative is now the only path.
func (m *Machine) popChoicePoint() {
	cp := m.choicePoints[m.B]
	m.choicePoints = m.choicePoints[:m.B]
	m.B = cp.prevB
	if m.B >= 0 {
		m.HB = m.choicePoints[m.B].HB
	} else {
		m.HB = m.heapBase
	}
}

// untrailTo undoes every binding recorded in the trail back to target,
// resetting each cell to an unbound self-reference (spec section 3,
// "Trail").
func (m *Machine) untrailTo(target int) {
	for len(m.trail) > target {
		addr := m.trail[len(m.trail)-1]
		m.trail = m.trail[:len(m.trail)-1]
		m.data[addr] = cell.Make(cell.Ref, uint32(addr))
	}
}

// backtrack restores the latest choice point's saved state and resumes at
// its recorded alternative (spec section 4.5, "On fail the engine
// backtracks to B"). The choice point itself is not popped here: a
// retry_me_else reached via retryIP mutates it in place, and only trust_me
// pops it (spec section 4.6). Restoring SP along with E/CP/H/HB/TR reclaims
// every environment frame allocated since the try -- those frames die on
// backtracking past them just as surely as on an ordinary deallocate (spec
// section 3, "Environment frames... die on DEALLOCATE or on backtracking
// past them").
func (m *Machine) backtrack() {
	cp := m.choicePoints[m.B]
	copy(m.data[m.xBase:m.xBase+len(cp.args)], cp.args)
	m.E = cp.E
	m.CP = cp.CP
	m.untrailTo(cp.TR)
	m.H = cp.HB
	m.HB = cp.HB
	m.SP = cp.SP
	m.IP = cp.retryIP
}
