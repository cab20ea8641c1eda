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

// ddl.go executes CREATE/DROP/ALTER for TABLE/VIEW/SCHEMA/FUNCTION, plus
// MERGE (which, unlike the other DML statements in dml.go, needs a join
// between target and source rather than a plain row mask).
package rowexec

import (
	"github.com/bqlite/bqlite/memory"
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/plan"
)

func (b *Builder) database(ctx *sql.Context, name string) (*sql.Database, error) {
	if name == "" {
		name = ctx.Session.Catalog.CurrentDatabaseName()
	}
	db, ok := b.Catalog.Database(name)
	if !ok {
		return nil, sql.ErrInvalidQuery.New("unknown database: " + name)
	}
	return db, nil
}

func (b *Builder) execCreateTable(ctx *sql.Context, n *plan.CreateTable) (*sql.Table, error) {
	db, err := b.database(ctx, n.Database)
	if err != nil {
		return nil, err
	}

	var table *memory.Table
	if n.AsSelect != nil {
		data, err := b.Exec(ctx, n.AsSelect)
		if err != nil {
			return nil, err
		}
		table = memory.NewTableWithData(n.Table, &sql.Table{Schema: n.TableSchema, Cols: data.Cols})
	} else {
		table = memory.NewConstrainedTable(n.Table, n.TableSchema, n.Constraints)
	}

	if err := db.AddTable(table); err != nil {
		if n.IfNotExists && sql.ErrTableAlreadyExists.Is(err) {
			return sql.EmptyTable(nil), nil
		}
		return nil, err
	}
	return sql.EmptyTable(nil), nil
}

func (b *Builder) execDropTable(ctx *sql.Context, n *plan.DropTable) (*sql.Table, error) {
	db, err := b.database(ctx, n.Database)
	if err != nil {
		return nil, err
	}
	if err := db.DropTable(n.Table); err != nil {
		if n.IfExists && sql.ErrTableNotFound.Is(err) {
			return sql.EmptyTable(nil), nil
		}
		return nil, err
	}
	return sql.EmptyTable(nil), nil
}

func (b *Builder) execAlterTable(ctx *sql.Context, n *plan.AlterTable) (*sql.Table, error) {
	db, err := b.database(ctx, n.Database)
	if err != nil {
		return nil, err
	}
	st, ok := db.Table(n.Table)
	if !ok {
		return nil, sql.ErrTableNotFound.New(n.Table)
	}

	st.Lock()
	snap := st.Snapshot()
	constraints := st.Constraints()
	st.Unlock()

	switch n.Kind {
	case plan.AlterAddColumn:
		schema := append(append(sql.Schema{}, snap.Schema...), n.NewColumn)
		cols := append(append([]*sql.Column{}, snap.Cols...), sql.NewColumn(n.NewColumn.Type, snap.RowCount()))
		if err := db.DropTable(n.Table); err != nil {
			return nil, err
		}
		next := memory.NewConstrainedTableWithData(n.Table, &sql.Table{Schema: schema, Cols: cols}, constraints)
		return sql.EmptyTable(nil), db.AddTable(next)
	case plan.AlterDropColumn:
		idx := snap.Schema.IndexOf(n.DropColumnName, "")
		if idx < 0 {
			return nil, sql.ErrColumnNotFound.New(n.DropColumnName)
		}
		var schema sql.Schema
		var cols []*sql.Column
		for i, f := range snap.Schema {
			if i == idx {
				continue
			}
			schema = append(schema, f)
			cols = append(cols, snap.Cols[i])
		}
		if err := db.DropTable(n.Table); err != nil {
			return nil, err
		}
		next := memory.NewConstrainedTableWithData(n.Table, &sql.Table{Schema: schema, Cols: cols}, constraints)
		return sql.EmptyTable(nil), db.AddTable(next)
	case plan.AlterRenameTable:
		if err := db.DropTable(n.Table); err != nil {
			return nil, err
		}
		renamed := memory.NewConstrainedTableWithData(n.NewTableName, snap, constraints)
		return sql.EmptyTable(nil), db.AddTable(renamed)
	default:
		return nil, sql.ErrInternal.New("unknown ALTER TABLE kind")
	}
}

func (b *Builder) execCreateView(ctx *sql.Context, n *plan.CreateView) (*sql.Table, error) {
	db, err := b.database(ctx, n.Database)
	if err != nil {
		return nil, err
	}
	if n.OrReplace {
		_ = db.DropView(n.Name)
	}
	err = db.AddView(&sql.ViewDefinition{Name: n.Name, QueryText: n.QueryText, Materialized: n.Materialized})
	return sql.EmptyTable(nil), err
}

func (b *Builder) execDropView(ctx *sql.Context, n *plan.DropView) (*sql.Table, error) {
	db, err := b.database(ctx, n.Database)
	if err != nil {
		return nil, err
	}
	if err := db.DropView(n.Name); err != nil {
		if n.IfExists && sql.ErrViewNotFound.Is(err) {
			return sql.EmptyTable(nil), nil
		}
		return nil, err
	}
	return sql.EmptyTable(nil), nil
}

func (b *Builder) execCreateSchema(ctx *sql.Context, n *plan.CreateSchema) (*sql.Table, error) {
	if err := b.Catalog.CreateDatabase(n.Name); err != nil {
		if n.IfNotExists {
			return sql.EmptyTable(nil), nil
		}
		return nil, err
	}
	return sql.EmptyTable(nil), nil
}

func (b *Builder) execDropSchema(ctx *sql.Context, n *plan.DropSchema) (*sql.Table, error) {
	if err := b.Catalog.DropDatabase(n.Name); err != nil {
		if n.IfExists {
			return sql.EmptyTable(nil), nil
		}
		return nil, err
	}
	return sql.EmptyTable(nil), nil
}

func (b *Builder) execCreateFunction(ctx *sql.Context, n *plan.CreateFunction) (*sql.Table, error) {
	db, err := b.database(ctx, n.Database)
	if err != nil {
		return nil, err
	}
	if n.OrReplace {
		db.DropFunction(n.Def.Name)
	}
	db.AddFunction(n.Def)
	return sql.EmptyTable(nil), nil
}

func (b *Builder) execDropFunction(ctx *sql.Context, n *plan.DropFunction) (*sql.Table, error) {
	db, err := b.database(ctx, n.Database)
	if err != nil {
		return nil, err
	}
	if _, ok := db.Function(n.Name); !ok && !n.IfExists {
		return nil, sql.ErrFunctionNotFound.New(n.Name)
	}
	db.DropFunction(n.Name)
	return sql.EmptyTable(nil), nil
}

// execMerge joins target (the table's current snapshot) against source on
// n.On, then applies WhenMatched/WhenNotMatchedByTarget/
// WhenNotMatchedBySource clauses in order, taking the first clause per
// bucket whose Extra condition (if any) holds -- mirroring the
// match/not-matched buckets of a MERGE statement without reusing the
// outer-join row-assembly machinery (MERGE needs row identity, not nulled
// companion columns).
func (b *Builder) execMerge(ctx *sql.Context, n *plan.Merge) (*sql.Table, error) {
	source, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}
	_, st, err := b.resolveTable(ctx, n.Database, n.Table)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()
	target := st.Snapshot()
	ectx := b.evalCtx(ctx)

	leftKeys, rightKeys, residual, ok := extractEquiKeys(n.On, len(n.TableSchema))
	var ti, si []int
	if ok && len(leftKeys) > 0 {
		ti, si, err = b.hashJoinPairs(ctx, target, source, leftKeys, rightKeys)
	} else {
		ti, si, err = b.nestedLoopPairs(ctx, target, source, n.On)
	}
	if err != nil {
		return nil, err
	}
	if ok && residual != nil && len(ti) > 0 {
		ti, si, err = b.applyResidual(ctx, target, source, ti, si, residual)
		if err != nil {
			return nil, err
		}
	}

	matchedTarget := map[int]bool{}
	matchedSource := map[int]bool{}
	for i := range ti {
		matchedTarget[ti[i]] = true
		matchedSource[si[i]] = true
	}

	deleted := map[int]bool{}
	updates := map[int]map[int]sql.Value{} // target row -> column index -> value
	affected := int64(0)

	// applyClauses evaluates clauses' Extra conditions (if any) against
	// row in order and applies the first one that matches, recording the
	// effect against targetRow.
	applyClauses := func(clauses []plan.MergeClause, targetRow int, row *sql.Table) error {
		for _, c := range clauses {
			if c.Extra != nil {
				mask, err := eval.Evaluate(ectx, c.Extra, row)
				if err != nil {
					return err
				}
				if mask.IsNull(0) || !mask.GetValue(0).Bool() {
					continue
				}
			}
			switch c.Action {
			case plan.MergeActionDelete:
				deleted[targetRow] = true
			case plan.MergeActionUpdate:
				set := updates[targetRow]
				if set == nil {
					set = map[int]sql.Value{}
					updates[targetRow] = set
				}
				for _, asn := range c.Assignments {
					v, err := eval.Evaluate(ectx, asn.Expr, row)
					if err != nil {
						return err
					}
					if !v.IsNull(0) {
						set[asn.Index] = v.GetValue(0)
					}
				}
			}
			affected++
			return nil
		}
		return nil
	}

	for i := range ti {
		row := hconcat(target.GatherRows([]int{ti[i]}), source.GatherRows([]int{si[i]}))
		if err := applyClauses(n.WhenMatched, ti[i], row); err != nil {
			return nil, err
		}
	}

	for t := 0; t < target.RowCount(); t++ {
		if matchedTarget[t] {
			continue
		}
		row := target.GatherRows([]int{t})
		if err := applyClauses(n.WhenNotMatchedBySource, t, row); err != nil {
			return nil, err
		}
	}

	var insertedCols []*sql.Column
	for sIdx := 0; sIdx < source.RowCount(); sIdx++ {
		if matchedSource[sIdx] {
			continue
		}
		row := source.GatherRows([]int{sIdx})
		for _, c := range n.WhenNotMatchedByTarget {
			if c.Action != plan.MergeActionInsert {
				continue
			}
			if c.Extra != nil {
				mask, err := eval.Evaluate(ectx, c.Extra, row)
				if err != nil {
					return nil, err
				}
				if mask.IsNull(0) || !mask.GetValue(0).Bool() {
					continue
				}
			}
			newRow := make([]sql.Value, len(n.TableSchema))
			for j, srcCol := range row.Cols {
				targetIdx := j
				if c.ColumnMap != nil {
					targetIdx = c.ColumnMap[j]
				}
				if !srcCol.IsNull(0) {
					newRow[targetIdx] = srcCol.GetValue(0)
				}
			}
			if insertedCols == nil {
				insertedCols = make([]*sql.Column, len(n.TableSchema))
				for j := range insertedCols {
					insertedCols[j] = sql.NewColumn(n.TableSchema[j].Type, 0)
				}
			}
			for j, v := range newRow {
				if v.IsNull() {
					continue
				}
				insertedCols[j] = appendValue(insertedCols[j], v)
			}
			affected++
			break
		}
	}

	keep := make([]int, 0, target.RowCount())
	for t := 0; t < target.RowCount(); t++ {
		if !deleted[t] {
			keep = append(keep, t)
		}
	}
	resultCols := make([]*sql.Column, len(n.TableSchema))
	for i := range n.TableSchema {
		out := target.Cols[i].Gather(keep)
		for j, t := range keep {
			if v, ok := updates[t][i]; ok {
				out.Set(j, v)
			}
		}
		if insertedCols != nil {
			out = concatColumn(out, insertedCols[i])
		}
		resultCols[i] = out
	}

	next := &sql.Table{Schema: n.TableSchema, Cols: resultCols}
	if err := checkConstraints(n.TableSchema, st.Constraints(), next); err != nil {
		return nil, err
	}
	if err := st.Replace(ctx, next); err != nil {
		return nil, err
	}
	return scalarCountTable(affected), nil
}

func appendValue(c *sql.Column, v sql.Value) *sql.Column {
	out := sql.NewColumn(c.Typ, c.Len()+1)
	for i := 0; i < c.Len(); i++ {
		if !c.IsNull(i) {
			out.Set(i, c.GetValue(i))
		}
	}
	out.Set(c.Len(), v)
	return out
}

func concatColumn(a, b *sql.Column) *sql.Column {
	out := sql.NewColumn(a.Typ, a.Len()+b.Len())
	for i := 0; i < a.Len(); i++ {
		if !a.IsNull(i) {
			out.Set(i, a.GetValue(i))
		}
	}
	for i := 0; i < b.Len(); i++ {
		if !b.IsNull(i) {
			out.Set(a.Len()+i, b.GetValue(i))
		}
	}
	return out
}
