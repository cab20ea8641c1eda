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

// dml.go executes INSERT/UPDATE/DELETE/TRUNCATE,
// each reading the target table's current snapshot,
// computing the post-image table entirely in memory, and publishing it
// with a single StoredTable.Replace call -- there is no in-place row
// mutation, consistent with component B's copy-on-write Table model.
// It also runs EXPORT DATA, which only counts its source rows; MERGE is
// in ddl.go.
package rowexec

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/plan"
)

// resolveTable looks up the StoredTable targeted by a DDL/DML node,
// defaulting an empty database name to the session's current database
// (the same fallback execScan uses).
func (b *Builder) resolveTable(ctx *sql.Context, dbName, table string) (*sql.Database, sql.StoredTable, error) {
	if dbName == "" {
		dbName = ctx.Session.Catalog.CurrentDatabaseName()
	}
	db, ok := b.Catalog.Database(dbName)
	if !ok {
		return nil, nil, sql.ErrInvalidQuery.New("unknown database: " + dbName)
	}
	st, ok := db.Table(table)
	if !ok {
		return nil, nil, sql.ErrTableNotFound.New(table)
	}
	return db, st, nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func scalarCountTable(n int64) *sql.Table {
	col := sql.NewColumn(sql.TypeInt64, 1)
	col.Set(0, sql.NewInt64(n))
	return &sql.Table{
		Schema: sql.Schema{sql.NewField("", "num_affected_rows", sql.TypeInt64, false)},
		Cols:   []*sql.Column{col},
	}
}

// checkConstraints validates NOT NULL, PRIMARY KEY, and UNIQUE over the
// full post-image table next, raising ConstraintViolation on the first hit.
func checkConstraints(schema sql.Schema, constraints sql.TableConstraints, next *sql.Table) error {
	for i, f := range schema {
		if f.Nullable {
			continue
		}
		for r := 0; r < next.RowCount(); r++ {
			if next.Cols[i].IsNull(r) {
				return sql.ErrConstraintViolation.New("NOT NULL violated on column " + f.Name)
			}
		}
	}

	checkUnique := func(names []string, label string) error {
		idxs := make([]int, len(names))
		for i, name := range names {
			idx := schema.IndexOf(name, "")
			if idx < 0 {
				return sql.ErrInternal.New("constraint references unknown column: " + name)
			}
			idxs[i] = idx
		}
		seen := map[string]bool{}
		for r := 0; r < next.RowCount(); r++ {
			vs := make([]sql.Value, len(idxs))
			for i, ci := range idxs {
				vs[i] = next.Cols[ci].GetValue(r)
			}
			key := sql.RowKey(vs)
			if seen[key] {
				return sql.ErrConstraintViolation.New(label + " violated: duplicate key")
			}
			seen[key] = true
		}
		return nil
	}

	if len(constraints.PrimaryKey) > 0 {
		for _, name := range constraints.PrimaryKey {
			idx := schema.IndexOf(name, "")
			if idx < 0 {
				continue
			}
			for r := 0; r < next.RowCount(); r++ {
				if next.Cols[idx].IsNull(r) {
					return sql.ErrConstraintViolation.New("PRIMARY KEY column is null: " + name)
				}
			}
		}
		if err := checkUnique(constraints.PrimaryKey, "PRIMARY KEY"); err != nil {
			return err
		}
	}
	for _, u := range constraints.Unique {
		if err := checkUnique(u, "UNIQUE"); err != nil {
			return err
		}
	}
	return nil
}

// execInsert evaluates n.Child (the VALUES list or SELECT source) and
// appends its rows to the target table, scattering source columns into
// target column positions per ColumnMap (nil means positional).
func (b *Builder) execInsert(ctx *sql.Context, n *plan.Insert) (*sql.Table, error) {
	src, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	_, st, err := b.resolveTable(ctx, n.Database, n.Table)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()
	snap := st.Snapshot()
	base := snap.RowCount()
	total := base + src.RowCount()

	cols := make([]*sql.Column, len(n.TableSchema))
	for i := range n.TableSchema {
		out := sql.NewColumn(n.TableSchema[i].Type, total)
		if i < len(snap.Cols) {
			for r := 0; r < base; r++ {
				if !snap.Cols[i].IsNull(r) {
					out.Set(r, snap.Cols[i].GetValue(r))
				}
			}
		}
		cols[i] = out
	}
	for si, srcCol := range src.Cols {
		ti := si
		if n.ColumnMap != nil {
			ti = n.ColumnMap[si]
		}
		for r := 0; r < src.RowCount(); r++ {
			if !srcCol.IsNull(r) {
				cols[ti].Set(base+r, srcCol.GetValue(r))
			}
		}
	}

	next := &sql.Table{Schema: n.TableSchema, Cols: cols}
	if err := checkConstraints(n.TableSchema, st.Constraints(), next); err != nil {
		return nil, err
	}
	if err := st.Replace(ctx, next); err != nil {
		return nil, err
	}
	return scalarCountTable(int64(src.RowCount())), nil
}

// execUpdate evaluates Filter as a row mask over Child, then for every
// masked row overwrites each Assignment's target column with its
// evaluated expression -- vectorized per assignment, rather than
// re-evaluating row by row.
func (b *Builder) execUpdate(ctx *sql.Context, n *plan.Update) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	_, st, err := b.resolveTable(ctx, n.Database, n.Table)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()
	ectx := b.evalCtx(ctx)

	var mask *sql.Column
	if n.Filter != nil {
		mask, err = eval.Evaluate(ectx, n.Filter, in)
		if err != nil {
			return nil, err
		}
	}

	ids := identity(in.RowCount())
	cols := make([]*sql.Column, len(in.Cols))
	for i, c := range in.Cols {
		cols[i] = c.Gather(ids)
	}

	affected := int64(0)
	matches := make([]bool, in.RowCount())
	for r := range matches {
		matches[r] = mask == nil || (!mask.IsNull(r) && mask.GetValue(r).Bool())
		if matches[r] {
			affected++
		}
	}

	for _, asn := range n.Assignments {
		newCol, err := eval.Evaluate(ectx, asn.Expr, in)
		if err != nil {
			return nil, err
		}
		for r, matched := range matches {
			if !matched {
				continue
			}
			if newCol.IsNull(r) {
				cols[asn.Index].SetNull(r)
			} else {
				cols[asn.Index].Set(r, newCol.GetValue(r))
			}
		}
	}

	next := &sql.Table{Schema: n.TableSchema, Cols: cols}
	if err := checkConstraints(n.TableSchema, st.Constraints(), next); err != nil {
		return nil, err
	}
	if err := st.Replace(ctx, next); err != nil {
		return nil, err
	}
	return scalarCountTable(affected), nil
}

// execDelete evaluates Filter as a row mask over Child and republishes the
// table with matched rows removed.
func (b *Builder) execDelete(ctx *sql.Context, n *plan.Delete) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	_, st, err := b.resolveTable(ctx, n.Database, n.Table)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()

	var keep []int
	var mask *sql.Column
	if n.Filter != nil {
		mask, err = eval.Evaluate(b.evalCtx(ctx), n.Filter, in)
		if err != nil {
			return nil, err
		}
	}
	for r := 0; r < in.RowCount(); r++ {
		matched := mask == nil || (!mask.IsNull(r) && mask.GetValue(r).Bool())
		if !matched {
			keep = append(keep, r)
		}
	}

	next := in.GatherRows(keep)
	next.Schema = n.TableSchema
	if err := st.Replace(ctx, next); err != nil {
		return nil, err
	}
	return scalarCountTable(int64(in.RowCount() - len(keep))), nil
}

// execTruncate replaces the table with an empty table of the same schema.
func (b *Builder) execTruncate(ctx *sql.Context, n *plan.Truncate) (*sql.Table, error) {
	_, st, err := b.resolveTable(ctx, n.Database, n.Table)
	if err != nil {
		return nil, err
	}
	st.Lock()
	defer st.Unlock()
	before := st.Snapshot().RowCount()
	if err := st.Replace(ctx, sql.EmptyTable(st.Schema())); err != nil {
		return nil, err
	}
	return scalarCountTable(int64(before)), nil
}

// execExportData runs Source to completion; the actual write to an
// external sink (cloud storage, another warehouse) is out of scope for an
// in-memory engine, so this reports the row count that would have been
// exported.
func (b *Builder) execExportData(ctx *sql.Context, n *plan.ExportData) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	return scalarCountTable(int64(in.RowCount())), nil
}
