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

package sql

import "sync"

// OptimizerLevel is the optimizer's level axis: None, Basic, Standard,
// Aggressive, Full, each a strict superset of the previous level's passes.
type OptimizerLevel uint8

const (
	OptimizerNone OptimizerLevel = iota
	OptimizerBasic
	OptimizerStandard
	OptimizerAggressive
	OptimizerFull
)

func ParseOptimizerLevel(s string) (OptimizerLevel, bool) {
	switch s {
	case "NONE":
		return OptimizerNone, true
	case "BASIC":
		return OptimizerBasic, true
	case "STANDARD":
		return OptimizerStandard, true
	case "AGGRESSIVE":
		return OptimizerAggressive, true
	case "FULL":
		return OptimizerFull, true
	default:
		return OptimizerStandard, false
	}
}

func (l OptimizerLevel) String() string {
	switch l {
	case OptimizerNone:
		return "NONE"
	case OptimizerBasic:
		return "BASIC"
	case OptimizerStandard:
		return "STANDARD"
	case OptimizerAggressive:
		return "AGGRESSIVE"
	case OptimizerFull:
		return "FULL"
	default:
		return "STANDARD"
	}
}

// SystemVariables is the session-level registry: PARALLEL_EXECUTION,
// OPTIMIZER_LEVEL, and implementation-defined flags, resolved
// case-insensitively; unknown names read as Null rather than erroring.
type SystemVariables struct {
	mu   sync.RWMutex
	vars map[string]Value
}

func NewSystemVariables() *SystemVariables {
	sv := &SystemVariables{vars: map[string]Value{}}
	sv.vars["parallel_execution"] = NewBool(false)
	sv.vars["optimizer_level"] = NewString(OptimizerStandard.String())
	return sv
}

func (sv *SystemVariables) Get(name string) Value {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	v, ok := sv.vars[lower(name)]
	if !ok {
		return Null
	}
	return v
}

func (sv *SystemVariables) Set(name string, v Value) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.vars[lower(name)] = v
}

func (sv *SystemVariables) ParallelExecution() bool {
	v := sv.Get("parallel_execution")
	return !v.IsNull() && v.Bool()
}

func (sv *SystemVariables) OptimizerLevel() OptimizerLevel {
	v := sv.Get("optimizer_level")
	if v.IsNull() {
		return OptimizerStandard
	}
	lvl, _ := ParseOptimizerLevel(v.String())
	return lvl
}

// ScriptVariables holds DECLARE/SET script-scoped @variables for one
// session.
type ScriptVariables struct {
	mu   sync.RWMutex
	vars map[string]Value
}

func NewScriptVariables() *ScriptVariables {
	return &ScriptVariables{vars: map[string]Value{}}
}

func (s *ScriptVariables) Get(name string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[lower(name)]
	return v, ok
}

func (s *ScriptVariables) Set(name string, v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[lower(name)] = v
}

func (s *ScriptVariables) Declare(name string, typ TypeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vars[lower(name)]; !ok {
		s.vars[lower(name)] = Null
	}
}
