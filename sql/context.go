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
	"context"

	"github.com/sirupsen/logrus"
)

// Context wraps a context.Context with the Session executing the current
// statement and a logger pre-populated with session fields.
type Context struct {
	context.Context
	Session *Session
	query   string
	logger  *logrus.Entry
}

// NewContext builds a Context for a statement running under session.
func NewContext(ctx context.Context, session *Session, query string) *Context {
	logger := session.logger.WithFields(logrus.Fields{
		"session": session.ID,
	})
	return &Context{Context: ctx, Session: session, query: query, logger: logger}
}

// NewEmptyContext builds a Context with a fresh anonymous session, used by
// tests and by one-shot evaluation helpers.
func NewEmptyContext() *Context {
	return NewContext(context.Background(), NewSession("", 0), "")
}

func (c *Context) Query() string { return c.query }

// Logger returns the structured logger scoped to this statement.
func (c *Context) Logger() *logrus.Entry { return c.logger }

// WithQuery returns a copy of the Context scoped to a different query
// string, used when the executor recurses into a correlated subquery.
func (c *Context) WithQuery(q string) *Context {
	cp := *c
	cp.query = q
	return &cp
}
