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

package rowexec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
	"github.com/bqlite/bqlite/sql/rowexec"
)

func idNameSchema() sql.Schema {
	return sql.Schema{
		sql.NewField("l", "id", sql.TypeInt64, false),
		sql.NewField("l", "name", sql.TypeString, true),
	}
}

func idAmountSchema() sql.Schema {
	return sql.Schema{
		sql.NewField("r", "id", sql.TypeInt64, false),
		sql.NewField("r", "amount", sql.TypeInt64, true),
	}
}

func col(idx int, typ sql.TypeID) *expression.Column {
	return expression.NewColumn("", "", idx, typ, true)
}

func TestExecJoinInner(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	left := valuesOf(idNameSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(2), sql.NewString("b")},
	})
	right := valuesOf(idAmountSchema(), [][]sql.Value{
		{sql.NewInt64(2), sql.NewInt64(100)},
		{sql.NewInt64(3), sql.NewInt64(200)},
	})
	cond := expression.NewBinaryOp(expression.OpEq, col(0, sql.TypeInt64), col(2, sql.TypeInt64), sql.TypeBool)
	join := plan.NewJoin(left, right, plan.JoinInner, cond)

	out, err := b.Exec(ctx, join)
	require.NoError(err)
	require.Equal(1, out.RowCount())
	require.Equal(int64(2), out.Row(0)[0].Int64())
	require.Equal(int64(100), out.Row(0)[3].Int64())
}

func TestExecJoinLeftFillsNulls(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	left := valuesOf(idNameSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(2), sql.NewString("b")},
	})
	right := valuesOf(idAmountSchema(), [][]sql.Value{
		{sql.NewInt64(2), sql.NewInt64(100)},
	})
	cond := expression.NewBinaryOp(expression.OpEq, col(0, sql.TypeInt64), col(2, sql.TypeInt64), sql.TypeBool)
	join := plan.NewJoin(left, right, plan.JoinLeft, cond)

	out, err := b.Exec(ctx, join)
	require.NoError(err)
	require.Equal(2, out.RowCount())

	var unmatched []sql.Value
	for i := 0; i < out.RowCount(); i++ {
		if out.Row(i)[0].Int64() == 1 {
			unmatched = out.Row(i)
		}
	}
	require.NotNil(unmatched)
	require.True(unmatched[3].IsNull())
}

func TestExecJoinCross(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	left := valuesOf(idNameSchema(), [][]sql.Value{{sql.NewInt64(1), sql.NewString("a")}})
	right := valuesOf(idAmountSchema(), [][]sql.Value{
		{sql.NewInt64(2), sql.NewInt64(100)},
		{sql.NewInt64(3), sql.NewInt64(200)},
	})
	join := plan.NewJoin(left, right, plan.JoinCross, nil)

	out, err := b.Exec(ctx, join)
	require.NoError(err)
	require.Equal(2, out.RowCount())
}

func TestExecAggregateGroupBy(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	schema := sql.Schema{
		sql.NewField("", "category", sql.TypeString, false),
		sql.NewField("", "amount", sql.TypeInt64, false),
	}
	src := valuesOf(schema, [][]sql.Value{
		{sql.NewString("x"), sql.NewInt64(1)},
		{sql.NewString("x"), sql.NewInt64(2)},
		{sql.NewString("y"), sql.NewInt64(10)},
	})

	sumAgg := expression.NewAggregate(expression.AggSum, sql.TypeInt64, col(1, sql.TypeInt64))
	agg := plan.NewAggregate(
		[]expression.Expr{col(0, sql.TypeString)},
		[]string{"category"},
		[]plan.AggregateItem{{Agg: sumAgg, Field: sql.NewField("", "total", sql.TypeInt64, true)}},
		src,
	)

	out, err := b.Exec(ctx, agg)
	require.NoError(err)
	require.Equal(2, out.RowCount())

	totals := map[string]int64{}
	for i := 0; i < out.RowCount(); i++ {
		row := out.Row(i)
		totals[row[0].String()] = row[1].Int64()
	}
	require.Equal(int64(3), totals["x"])
	require.Equal(int64(10), totals["y"])
}

func TestExecAggregateGlobalOverEmptyInput(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := plan.NewEmpty(sql.Schema{sql.NewField("", "amount", sql.TypeInt64, false)})
	countAgg := expression.NewAggregate(expression.AggCountStar, sql.TypeInt64)
	agg := plan.NewAggregate(nil, nil, []plan.AggregateItem{{Agg: countAgg, Field: sql.NewField("", "n", sql.TypeInt64, false)}}, src)

	out, err := b.Exec(ctx, agg)
	require.NoError(err)
	require.Equal(1, out.RowCount())
	require.Equal(int64(0), out.Row(0)[0].Int64())
}

func TestExecSort(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := valuesOf(twoColSchema(), [][]sql.Value{
		{sql.NewInt64(3), sql.NewString("c")},
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(2), sql.NewString("b")},
	})
	sort := plan.NewSort([]expression.OrderByItem{{Expr: col(0, sql.TypeInt64)}}, src)

	out, err := b.Exec(ctx, sort)
	require.NoError(err)
	require.Equal([]int64{1, 2, 3}, []int64{out.Row(0)[0].Int64(), out.Row(1)[0].Int64(), out.Row(2)[0].Int64()})
}

func TestExecSortDescending(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := valuesOf(twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(3), sql.NewString("c")},
		{sql.NewInt64(2), sql.NewString("b")},
	})
	sort := plan.NewSort([]expression.OrderByItem{{Expr: col(0, sql.TypeInt64), Descending: true}}, src)

	out, err := b.Exec(ctx, sort)
	require.NoError(err)
	require.Equal(int64(3), out.Row(0)[0].Int64())
	require.Equal(int64(1), out.Row(2)[0].Int64())
}

func TestExecTopN(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := valuesOf(twoColSchema(), [][]sql.Value{
		{sql.NewInt64(3), sql.NewString("c")},
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(2), sql.NewString("b")},
	})
	top := plan.NewTopN([]expression.OrderByItem{{Expr: col(0, sql.TypeInt64)}}, 2, src)

	out, err := b.Exec(ctx, top)
	require.NoError(err)
	require.Equal(2, out.RowCount())
	require.Equal(int64(1), out.Row(0)[0].Int64())
	require.Equal(int64(2), out.Row(1)[0].Int64())
}

func TestExecLimitWithOffset(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := valuesOf(twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(2), sql.NewString("b")},
		{sql.NewInt64(3), sql.NewString("c")},
	})
	offset := int64(1)
	lim := plan.NewLimit(1, &offset, src)

	out, err := b.Exec(ctx, lim)
	require.NoError(err)
	require.Equal(1, out.RowCount())
	require.Equal(int64(2), out.Row(0)[0].Int64())
}

func TestExecDistinct(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := valuesOf(twoColSchema(), [][]sql.Value{
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(1), sql.NewString("a")},
		{sql.NewInt64(2), sql.NewString("b")},
	})
	out, err := b.Exec(ctx, plan.NewDistinct(src))
	require.NoError(err)
	require.Equal(2, out.RowCount())
}

func oneColValues(vals ...int64) *plan.Values {
	schema := sql.Schema{sql.NewField("", "n", sql.TypeInt64, false)}
	rows := make([][]sql.Value, len(vals))
	for i, v := range vals {
		rows[i] = []sql.Value{sql.NewInt64(v)}
	}
	return valuesOf(schema, rows)
}

func TestExecSetOpUnion(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	left := oneColValues(1, 2)
	right := oneColValues(2, 3)

	unionAll, err := b.Exec(ctx, plan.NewSetOp(plan.SetUnion, true, []plan.LogicalPlan{left, right}))
	require.NoError(err)
	require.Equal(4, unionAll.RowCount())

	unionDistinct, err := b.Exec(ctx, plan.NewSetOp(plan.SetUnion, false, []plan.LogicalPlan{left, right}))
	require.NoError(err)
	require.Equal(3, unionDistinct.RowCount())
}

func TestExecSetOpIntersectAndExcept(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	left := oneColValues(1, 2, 2)
	right := oneColValues(2, 3)

	intersect, err := b.Exec(ctx, plan.NewSetOp(plan.SetIntersect, true, []plan.LogicalPlan{left, right}))
	require.NoError(err)
	require.Equal(1, intersect.RowCount())
	require.Equal(int64(2), intersect.Row(0)[0].Int64())

	except, err := b.Exec(ctx, plan.NewSetOp(plan.SetExcept, true, []plan.LogicalPlan{left, right}))
	require.NoError(err)
	// EXCEPT ALL removes one 2 per matching right-side row: {1, 2, 2} minus {2, 3} leaves {1, 2}.
	require.Equal(2, except.RowCount())
	require.Equal(int64(1), except.Row(0)[0].Int64())
	require.Equal(int64(2), except.Row(1)[0].Int64())
}

func TestExecWindowRowNumberAndRank(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	schema := sql.Schema{
		sql.NewField("", "grp", sql.TypeString, false),
		sql.NewField("", "n", sql.TypeInt64, false),
	}
	src := valuesOf(schema, [][]sql.Value{
		{sql.NewString("a"), sql.NewInt64(10)},
		{sql.NewString("a"), sql.NewInt64(10)},
		{sql.NewString("a"), sql.NewInt64(20)},
	})

	spec := expression.WindowSpec{
		PartitionBy: []expression.Expr{col(0, sql.TypeString)},
		OrderBy:     []expression.OrderByItem{{Expr: col(1, sql.TypeInt64)}},
	}
	rowNum := expression.NewWindow(expression.WinRowNumber, sql.TypeInt64, spec)
	rank := expression.NewWindow(expression.WinRank, sql.TypeInt64, spec)

	win := plan.NewWindow([]plan.WindowItem{
		{Expr: rowNum, Field: sql.NewField("", "rn", sql.TypeInt64, false)},
		{Expr: rank, Field: sql.NewField("", "rk", sql.TypeInt64, false)},
	}, src)

	out, err := b.Exec(ctx, win)
	require.NoError(err)
	require.Equal(3, out.RowCount())
	require.Equal(int64(1), out.Row(0)[2].Int64())
	require.Equal(int64(2), out.Row(1)[2].Int64())
	require.Equal(int64(3), out.Row(2)[2].Int64())
	// RANK skips past a tie: both 10s rank 1, the 20 ranks 3.
	require.Equal(int64(1), out.Row(0)[3].Int64())
	require.Equal(int64(1), out.Row(1)[3].Int64())
	require.Equal(int64(3), out.Row(2)[3].Int64())
}

func TestExecWindowFramedAggregate(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	schema := sql.Schema{sql.NewField("", "n", sql.TypeInt64, false)}
	src := valuesOf(schema, [][]sql.Value{
		{sql.NewInt64(1)},
		{sql.NewInt64(2)},
		{sql.NewInt64(3)},
	})

	spec := expression.WindowSpec{OrderBy: []expression.OrderByItem{{Expr: col(0, sql.TypeInt64)}}}
	sumAgg := expression.NewAggregate(expression.AggSum, sql.TypeInt64, col(0, sql.TypeInt64))
	runningSum := expression.NewAggregateWindow(sumAgg, spec)

	win := plan.NewWindow([]plan.WindowItem{
		{Expr: runningSum, Field: sql.NewField("", "running", sql.TypeInt64, true)},
	}, src)

	out, err := b.Exec(ctx, win)
	require.NoError(err)
	require.Equal(int64(6), out.Row(0)[1].Int64(), "no explicit frame defaults to the whole partition")
	require.Equal(int64(6), out.Row(2)[1].Int64())
}

func TestExecUnnest(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	schema := sql.Schema{sql.NewField("", "id", sql.TypeInt64, false)}
	src := valuesOf(schema, [][]sql.Value{{sql.NewInt64(1)}})

	arr := expression.NewLiteral(sql.NewArray([]sql.Value{sql.NewInt64(10), sql.NewInt64(20), sql.NewInt64(30)}))
	elemField := sql.NewField("", "elem", sql.TypeInt64, true)
	un := plan.NewUnnest(arr, elemField, true, "off", src)

	out, err := b.Exec(ctx, un)
	require.NoError(err)
	require.Equal(3, out.RowCount())
	require.Equal(int64(10), out.Row(0)[1].Int64())
	require.Equal(int64(0), out.Row(0)[2].Int64())
	require.Equal(int64(2), out.Row(2)[2].Int64())
}

func TestExecSampleRows(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := oneColValues(1, 2, 3, 4, 5)
	seed := int64(42)
	sample := plan.NewSample(plan.SampleRows, 2, &seed, src)

	out, err := b.Exec(ctx, sample)
	require.NoError(err)
	require.Equal(2, out.RowCount())
}

func TestExecSampleMoreRowsThanInputClamps(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	src := oneColValues(1, 2)
	seed := int64(1)
	sample := plan.NewSample(plan.SampleRows, 10, &seed, src)

	out, err := b.Exec(ctx, sample)
	require.NoError(err)
	require.Equal(2, out.RowCount())
}

func TestExecWithCte(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	schema := sql.Schema{sql.NewField("", "n", sql.TypeInt64, false)}
	body := valuesOf(schema, [][]sql.Value{{sql.NewInt64(1)}, {sql.NewInt64(2)}})

	with := plan.NewWithCte(
		[]plan.CteDef{{Name: "c", Body: body}},
		plan.NewCteRef("c", schema, false),
	)

	out, err := b.Exec(ctx, with)
	require.NoError(err)
	require.Equal(2, out.RowCount())
}

func TestExecCteRefUnboundErrors(t *testing.T) {
	require := require.New(t)
	b, ctx := newTestBuilder()

	_, err := b.Exec(ctx, plan.NewCteRef("missing", twoColSchema(), false))
	require.Error(err)
}
