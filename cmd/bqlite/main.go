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

// Package main is the bqlite command-line front-end: a thin cobra
// wrapper over bqlite.Engine, following the usual single-rootCmd-plus-
// subcommands shape. Each invocation starts a fresh in-memory catalog --
// nothing is persisted across runs -- so "query" is the only subcommand
// that makes sense as a one-shot CLI; there is nothing to connect to
// between runs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bqlite/bqlite"
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/eval"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bqlite",
		Short: "An in-memory, BigQuery-compatible SQL engine",
	}
	root.AddCommand(newQueryCmd())
	return root
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a single SQL statement against a fresh in-memory database",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runQuery(args[0])
		},
	}
}

func runQuery(query string) error {
	sess := sql.NewSession("default", 0)
	ctx := sql.NewContext(context.Background(), sess, query)
	engine := bqlite.New(sess.Catalog)

	result, err := engine.Query(ctx, query)
	if err != nil {
		return err
	}

	printTable(result)
	return nil
}

// printTable renders result as a unicode box-drawn table, with a
// trailing "(N rows)" summary; an empty result still prints its header
// row and "(0 rows)".
func printTable(t *sql.Table) {
	headers := make([]string, len(t.Schema))
	for i, f := range t.Schema {
		headers[i] = f.Name
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetCenterSeparator("┼")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetBorder(true)

	n := t.RowCount()
	for i := 0; i < n; i++ {
		row := t.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = displayValue(v)
		}
		table.Append(cells)
	}
	table.Render()

	fmt.Printf("(%d row%s)\n", n, plural(n))
}

func displayValue(v sql.Value) string {
	if v.IsNull() {
		return "NULL"
	}
	s, err := eval.CastValue(v, sql.TypeString)
	if err != nil {
		return ""
	}
	return s.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
