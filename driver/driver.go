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

// Package driver adapts bqlite.Engine to database/sql/driver: a DSN
// resolves to a *sql.Catalog, Connect opens a session against it, and Stmt
// runs queries through bqlite.Engine.
package driver

import (
	"context"
	"database/sql/driver"
	"sync"

	"github.com/bqlite/bqlite"
	"github.com/bqlite/bqlite/sql"
)

// Provider resolves a DSN to the catalog it names. Callers that want several
// DSNs to share one in-memory database return the same *sql.Catalog for
// each; callers that want a fresh database per DSN return a new one.
type Provider interface {
	Resolve(dsn string) (*sql.Catalog, error)
}

// Driver exposes a bqlite Engine as a stdlib database/sql driver.
type Driver struct {
	provider Provider

	mu       sync.Mutex
	catalogs map[*sql.Catalog]*catalogState
}

// New returns a driver resolving DSNs through provider.
func New(provider Provider) *Driver {
	return &Driver{provider: provider}
}

// Open returns a new connection to the database named by dsn.
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	connector, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector resolves dsn and returns a reusable Connector for it.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	cat, err := d.provider.Resolve(dsn)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	state, ok := d.catalogs[cat]
	if !ok {
		state = &catalogState{engine: bqlite.New(cat)}
		if d.catalogs == nil {
			d.catalogs = map[*sql.Catalog]*catalogState{}
		}
		d.catalogs[cat] = state
	}
	d.mu.Unlock()

	return &Connector{driver: d, state: state}, nil
}

// catalogState is the per-catalog counters and Engine shared by every
// Connector/Conn opened against the same underlying catalog.
type catalogState struct {
	engine *bqlite.Engine

	mu     sync.Mutex
	connID uint32
	procID uint64
}

func (c *catalogState) nextConnectionID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connID++
	return c.connID
}

func (c *catalogState) nextProcessID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.procID++
	return c.procID
}

// Connector represents a driver in a fixed configuration and can create any
// number of equivalent Conns for use by multiple goroutines.
type Connector struct {
	driver *Driver
	state  *catalogState
}

// Driver returns the connector's parent driver.
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// Connect returns a new connection sharing the connector's catalog.
func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	id := c.state.nextConnectionID()
	session := sql.NewSessionWithCatalog(c.state.engine.Catalog, id)
	return &Conn{state: c.state, session: session}, nil
}
