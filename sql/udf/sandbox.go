// Copyright 2020-2021 Dolthub, Inc.
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

package udf

import "github.com/bqlite/bqlite/sql"

// allowedBuiltins lists the scripted-function builtins a real Sandbox is
// expected to expose, giving an embedded interpreter added later a
// concrete boundary to enforce rather than ad hoc reinvention.
var allowedBuiltins = []string{
	"abs", "all", "any", "bool", "dict", "enumerate", "filter", "float",
	"int", "len", "list", "map", "max", "min", "range", "reversed",
	"round", "set", "sorted", "str", "sum", "tuple", "type", "zip",
}

// AllowedBuiltins returns the scripted-function builtin allow-list.
func AllowedBuiltins() []string {
	out := make([]string, len(allowedBuiltins))
	copy(out, allowedBuiltins)
	return out
}

// NoSandbox is a Sandbox that refuses every call, for a Caller with no
// script interpreter to run scripted bodies in: calling a scripted function
// through it fails fast with ErrUnsupported instead of hanging or silently
// no-op'ing.
type NoSandbox struct{}

var _ Sandbox = NoSandbox{}

func (NoSandbox) Run(source string, params []string, args []sql.Value) (sql.Value, error) {
	return sql.Null, sql.ErrUnsupported.New("scripted user functions")
}
