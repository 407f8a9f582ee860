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

package compile

import "fmt"

// ErrorKind distinguishes the two error kinds the compiler itself can
// surface synchronously (spec section 7): parse/shape problems in a
// submitted clause, and linkage problems (a call to an unknown predicate)
// found once a whole program has been assembled.
type ErrorKind int

const (
	ErrParseShape ErrorKind = iota
	ErrLinkage
)

func (k ErrorKind) String() string {
	if k == ErrLinkage {
		return "linkage"
	}
	return "parse/shape"
}

// CompileError is one problem found while compiling or linking a program.
// The compiler collects every CompileError it finds into a multierror.Error
// rather than stopping at the first (spec section 2.1/7.1).
type CompileError struct {
	ClauseIndex int
	Kind        ErrorKind
	Msg         string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile: clause %d: %s: %s", e.ClauseIndex, e.Kind, e.Msg)
}
