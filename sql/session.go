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

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/bqlite/bqlite/sql/plancache"
)

var sessionIDCounter uint32

// Session is the concurrency unit: it owns a Catalog, a map of script
// variables, a map of system variables, and the plan cache. A Session is
// single-writer from the client's perspective -- one statement runs at a
// time -- though individual operators may parallelize internally.
type Session struct {
	ID      uint32
	Catalog *Catalog
	System  *SystemVariables
	Script  *ScriptVariables
	Cache   *plancache.Cache
	logger  *logrus.Logger
}

// NewSession builds a session with a fresh catalog (name becomes the
// default database). Pass 0 for id to auto-assign the next sequential id.
func NewSession(dbName string, id uint32) *Session {
	if id == 0 {
		id = atomic.AddUint32(&sessionIDCounter, 1)
	}
	if dbName == "" {
		dbName = "default"
	}
	return &Session{
		ID:      id,
		Catalog: NewCatalog(dbName),
		System:  NewSystemVariables(),
		Script:  NewScriptVariables(),
		Cache:   plancache.New(plancache.DefaultCapacity),
		logger:  logrus.StandardLogger(),
	}
}

// NewSessionWithCatalog builds a session bound to an existing catalog,
// letting multiple sessions (e.g. several database/sql driver connections)
// share one in-memory database.
func NewSessionWithCatalog(cat *Catalog, id uint32) *Session {
	if id == 0 {
		id = atomic.AddUint32(&sessionIDCounter, 1)
	}
	return &Session{
		ID:      id,
		Catalog: cat,
		System:  NewSystemVariables(),
		Script:  NewScriptVariables(),
		Cache:   plancache.New(plancache.DefaultCapacity),
		logger:  logrus.StandardLogger(),
	}
}

// WithLogger overrides the default (standard) logrus logger.
func (s *Session) WithLogger(l *logrus.Logger) *Session {
	s.logger = l
	return s
}

// InvalidateCache discards every cached plan; called after any DDL or
// catalog-mutating DML, since a stale cached plan could read a dropped
// or reshaped table.
func (s *Session) InvalidateCache() { s.Cache.Invalidate() }
