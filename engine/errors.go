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
	"errors"
	"fmt"
)

// errNoMoreAnswers signals ordinary exhaustion (spec section 4.7, "no
// further answers"): not a fault, just the end of the answer sequence.
var errNoMoreAnswers = errors.New("engine: no more answers")

// EngineFault is a fatal engine error (spec section 7, kinds 4 and 5):
// resource exhaustion or an invalid byte-code stream. The machine's state is
// undefined afterwards; Resume must not be called again.
type EngineFault struct {
	Resource string // e.g. "heap", "stack", or a code/opcode description
	Fatal    bool   // always true; kept as an explicit discriminator per SPEC_FULL.md section 7.1
}

func (e *EngineFault) Error() string {
	return fmt.Sprintf("engine: fatal: %s exhausted or invalid", e.Resource)
}

func fault(resource string) *EngineFault {
	return &EngineFault{Resource: resource, Fatal: true}
}
