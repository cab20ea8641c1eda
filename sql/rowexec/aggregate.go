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

package rowexec

import (
	"math"
	"sort"
	"strings"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/eval"
	"github.com/bqlite/bqlite/sql/expression"
	"github.com/bqlite/bqlite/sql/plan"
)

// execAggregate groups in's rows by each of n's grouping sets (a single
// plain GROUP BY is just one set spanning every GroupBy expression) and
// computes n.Aggregates per group. Multiple grouping
// sets (ROLLUP/CUBE/GROUPING SETS) are evaluated independently and their
// outputs concatenated, with a trailing __grouping_id column distinguishing
// which set produced each row.
func (b *Builder) execAggregate(ctx *sql.Context, n *plan.Aggregate) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}

	sets := n.GroupingSets
	if len(sets) == 0 {
		full := make([]int, len(n.GroupBy))
		for i := range full {
			full[i] = i
		}
		sets = [][]int{full}
	}

	ectx := b.evalCtx(ctx)
	groupCols := make([]*sql.Column, len(n.GroupBy))
	for i, g := range n.GroupBy {
		c, err := eval.Evaluate(ectx, g, in)
		if err != nil {
			return nil, err
		}
		groupCols[i] = c
	}

	argCols, filterCols, orderCols, err := evalAggregateInputs(ectx, n.Aggregates, in)
	if err != nil {
		return nil, err
	}

	multi := len(sets) > 1
	tables := make([]*sql.Table, len(sets))
	for si, set := range sets {
		t, err := b.execGroupingSet(n, in, groupCols, argCols, filterCols, orderCols, set, multi)
		if err != nil {
			return nil, err
		}
		tables[si] = t
	}
	if len(tables) == 1 {
		return tables[0], nil
	}
	return sql.ConcatTables(tables...), nil
}

// evalAggregateInputs evaluates every aggregate's arguments, FILTER (WHERE
// ...) predicate, and ORDER BY keys once against the whole input table, so
// per-group accumulation only needs to index into these columns.
func evalAggregateInputs(ectx *eval.Context, aggs []plan.AggregateItem, in *sql.Table) (args, filters, orders [][]*sql.Column, err error) {
	args = make([][]*sql.Column, len(aggs))
	filters = make([][]*sql.Column, len(aggs))
	orders = make([][]*sql.Column, len(aggs))
	for i, it := range aggs {
		a := it.Agg
		args[i] = make([]*sql.Column, len(a.Args))
		for j, e := range a.Args {
			c, err := eval.Evaluate(ectx, e, in)
			if err != nil {
				return nil, nil, nil, err
			}
			args[i][j] = c
		}
		if a.Filter != nil {
			c, err := eval.Evaluate(ectx, a.Filter, in)
			if err != nil {
				return nil, nil, nil, err
			}
			filters[i] = []*sql.Column{c}
		}
		orders[i] = make([]*sql.Column, len(a.OrderBy))
		for j, o := range a.OrderBy {
			c, err := eval.Evaluate(ectx, o.Expr, in)
			if err != nil {
				return nil, nil, nil, err
			}
			orders[i][j] = c
		}
	}
	return args, filters, orders, nil
}

// execGroupingSet computes one grouping set's output table: rows are
// bucketed by the active (non-rolled-up) GroupBy columns only, and every
// other GroupBy column reads as NULL in the output, matching ROLLUP/CUBE's
// super-aggregate row convention.
func (b *Builder) execGroupingSet(n *plan.Aggregate, in *sql.Table, groupCols []*sql.Column, argCols, filterCols, orderCols [][]*sql.Column, active []int, withGroupingID bool) (*sql.Table, error) {
	activeSet := map[int]bool{}
	for _, i := range active {
		activeSet[i] = true
	}

	type group struct {
		key  string
		rows []int
	}
	order := []string{}
	groups := map[string]*group{}
	rowCount := in.RowCount()

	if len(active) == 0 {
		// Global aggregate: exactly one group, even over zero rows.
		g := &group{key: ""}
		for i := 0; i < rowCount; i++ {
			g.rows = append(g.rows, i)
		}
		groups[""] = g
		order = append(order, "")
	} else {
		for r := 0; r < rowCount; r++ {
			vs := make([]sql.Value, len(active))
			for k, ci := range active {
				vs[k] = groupCols[ci].GetValue(r)
			}
			key := sql.RowKey(vs)
			g, ok := groups[key]
			if !ok {
				g = &group{key: key}
				groups[key] = g
				order = append(order, key)
			}
			g.rows = append(g.rows, r)
		}
	}

	nGroups := len(order)
	outCols := make([]*sql.Column, 0, len(groupCols)+len(n.Aggregates)+1)

	for ci, gcol := range groupCols {
		out := sql.NewColumn(gcol.Typ, nGroups)
		if activeSet[ci] {
			for gi, key := range order {
				g := groups[key]
				r := g.rows[0]
				if !gcol.IsNull(r) {
					out.Set(gi, gcol.GetValue(r))
				}
			}
		}
		outCols = append(outCols, out)
	}

	for ai, it := range n.Aggregates {
		out := sql.NewColumn(it.Agg.Typ, nGroups)
		for gi, key := range order {
			g := groups[key]
			v, err := computeAggregate(it.Agg, argCols[ai], filterCols[ai], orderCols[ai], g.rows)
			if err != nil {
				return nil, err
			}
			if !v.IsNull() {
				out.Set(gi, v)
			}
		}
		outCols = append(outCols, out)
	}

	if withGroupingID {
		idCol := sql.NewColumn(sql.TypeInt64, nGroups)
		var mask int64
		for i := range groupCols {
			if !activeSet[i] {
				mask |= 1 << uint(i)
			}
		}
		for gi := range order {
			idCol.Set(gi, sql.NewInt64(mask))
		}
		outCols = append(outCols, idCol)
	}

	return &sql.Table{Schema: n.Schema(), Cols: outCols}, nil
}

// computeAggregate reduces one aggregate function over a single group's row
// indices, applying FILTER, DISTINCT, and ORDER BY (for ARRAY_AGG/
// STRING_AGG) before dispatching on a.Func.
func computeAggregate(a *expression.Aggregate, args []*sql.Column, filter []*sql.Column, orderBy []*sql.Column, rows []int) (sql.Value, error) {
	if len(filter) == 1 {
		kept := rows[:0:0]
		for _, r := range rows {
			if !filter[0].IsNull(r) && filter[0].GetValue(r).Bool() {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	if len(orderBy) > 0 {
		rows = append([]int(nil), rows...)
		sort.SliceStable(rows, func(i, j int) bool {
			for _, col := range orderBy {
				if col.IsNull(rows[i]) || col.IsNull(rows[j]) {
					continue
				}
				cmp := sql.CompareValues(col.GetValue(rows[i]), col.GetValue(rows[j]))
				if cmp == 0 {
					continue
				}
				return cmp < 0
			}
			return false
		})
	}

	if a.Distinct && len(args) > 0 {
		seen := map[string]bool{}
		kept := rows[:0:0]
		for _, r := range rows {
			key := sql.RowKey([]sql.Value{args[0].GetValue(r)})
			if seen[key] {
				continue
			}
			seen[key] = true
			kept = append(kept, r)
		}
		rows = kept
	}

	switch a.Func {
	case expression.AggCountStar:
		return sql.NewInt64(int64(len(rows))), nil
	case expression.AggCount:
		n := 0
		for _, r := range rows {
			if !args[0].IsNull(r) {
				n++
			}
		}
		return sql.NewInt64(int64(n)), nil
	case expression.AggSum:
		return aggSum(args[0], rows)
	case expression.AggAvg:
		return aggAvg(args[0], rows)
	case expression.AggMin:
		return aggExtreme(args[0], rows, -1)
	case expression.AggMax:
		return aggExtreme(args[0], rows, 1)
	case expression.AggArrayAgg:
		return aggArrayAgg(args[0], rows)
	case expression.AggStringAgg:
		return aggStringAgg(args, rows)
	case expression.AggVariance:
		return aggVariance(args[0], rows, true, false)
	case expression.AggStdDev:
		return aggVariance(args[0], rows, true, true)
	case expression.AggCovariance:
		return aggCovariance(args[0], args[1], rows, false)
	case expression.AggCorrelation:
		return aggCorrelation(args[0], args[1], rows)
	case expression.AggAnyValue:
		return aggAnyValue(args[0], rows)
	case expression.AggLogicalAnd:
		return aggLogical(args[0], rows, true)
	case expression.AggLogicalOr:
		return aggLogical(args[0], rows, false)
	case expression.AggBitAnd:
		return aggBit(args[0], rows, func(acc, v int64) int64 { return acc & v }, -1)
	case expression.AggBitOr:
		return aggBit(args[0], rows, func(acc, v int64) int64 { return acc | v }, 0)
	case expression.AggBitXor:
		return aggBit(args[0], rows, func(acc, v int64) int64 { return acc ^ v }, 0)
	default:
		return sql.Null, sql.ErrUnsupported.New("aggregate function " + string(a.Func))
	}
}

func aggSum(col *sql.Column, rows []int) (sql.Value, error) {
	found := false
	var isum int64
	var fsum float64
	isFloat := col.Typ == sql.TypeFloat64
	for _, r := range rows {
		if col.IsNull(r) {
			continue
		}
		found = true
		if isFloat {
			fsum += float64(col.GetValue(r).Float64())
		} else {
			isum += col.GetValue(r).Int64()
		}
	}
	if !found {
		return sql.Null, nil
	}
	if isFloat {
		return sql.NewFloat64(fsum), nil
	}
	return sql.NewInt64(isum), nil
}

func aggAvg(col *sql.Column, rows []int) (sql.Value, error) {
	var sum float64
	n := 0
	for _, r := range rows {
		if col.IsNull(r) {
			continue
		}
		sum += float64(col.GetValue(r).Float64())
		n++
	}
	if n == 0 {
		return sql.Null, nil
	}
	return sql.NewFloat64(sum / float64(n)), nil
}

func aggExtreme(col *sql.Column, rows []int, dir int) (sql.Value, error) {
	var best sql.Value
	found := false
	for _, r := range rows {
		if col.IsNull(r) {
			continue
		}
		v := col.GetValue(r)
		if !found {
			best, found = v, true
			continue
		}
		if sql.CompareValues(v, best)*dir > 0 {
			best = v
		}
	}
	if !found {
		return sql.Null, nil
	}
	return best, nil
}

func aggArrayAgg(col *sql.Column, rows []int) (sql.Value, error) {
	elems := make([]sql.Value, 0, len(rows))
	for _, r := range rows {
		if col.IsNull(r) {
			continue
		}
		elems = append(elems, col.GetValue(r))
	}
	return sql.NewArray(elems), nil
}

// aggStringAgg implements STRING_AGG(value[, separator]); the default
// separator is "," per BigQuery's documented default.
func aggStringAgg(args []*sql.Column, rows []int) (sql.Value, error) {
	valCol := args[0]
	sep := ","
	if len(args) > 1 {
		for _, r := range rows {
			if !args[1].IsNull(r) {
				sep = args[1].GetValue(r).String()
				break
			}
		}
	}
	var parts []string
	for _, r := range rows {
		if valCol.IsNull(r) {
			continue
		}
		parts = append(parts, valCol.GetValue(r).String())
	}
	if len(parts) == 0 {
		return sql.Null, nil
	}
	return sql.NewString(strings.Join(parts, sep)), nil
}

// aggVariance implements VARIANCE/STDDEV via Welford's single-pass online
// algorithm: sample variance divides by count-1 and is NULL for fewer than
// two values.
func aggVariance(col *sql.Column, rows []int, sample, stddev bool) (sql.Value, error) {
	var count int64
	var mean, m2 float64
	for _, r := range rows {
		if col.IsNull(r) {
			continue
		}
		count++
		x := float64(col.GetValue(r).Float64())
		delta := x - mean
		mean += delta / float64(count)
		m2 += delta * (x - mean)
	}
	if sample && count < 2 {
		return sql.Null, nil
	}
	if !sample && count == 0 {
		return sql.Null, nil
	}
	divisor := float64(count)
	if sample {
		divisor = float64(count - 1)
	}
	variance := m2 / divisor
	if stddev {
		return sql.NewFloat64(math.Sqrt(variance)), nil
	}
	return sql.NewFloat64(variance), nil
}

// aggCovariance and aggCorrelation implement the bivariate Welford
// extension from statistical.rs's CovarianceAccumulator: population
// covariance divides the running cross-product by count, and correlation
// normalizes covariance by the product of each side's standard deviation,
// yielding NULL when either side's variance is non-positive.
func bivariateWelford(x, y *sql.Column, rows []int) (count int64, meanX, meanY, cXY, m2X, m2Y float64) {
	for _, r := range rows {
		if x.IsNull(r) || y.IsNull(r) {
			continue
		}
		count++
		vx, vy := float64(x.GetValue(r).Float64()), float64(y.GetValue(r).Float64())
		dx := vx - meanX
		meanX += dx / float64(count)
		dy := vy - meanY
		meanY += dy / float64(count)
		cXY += dx * (vy - meanY)
		m2X += dx * (vx - meanX)
		m2Y += dy * (vy - meanY)
	}
	return
}

func aggCovariance(x, y *sql.Column, rows []int, sample bool) (sql.Value, error) {
	count, _, _, cXY, _, _ := bivariateWelford(x, y, rows)
	if count < 2 {
		return sql.Null, nil
	}
	divisor := float64(count)
	if sample {
		divisor = float64(count - 1)
	}
	return sql.NewFloat64(cXY / divisor), nil
}

func aggCorrelation(x, y *sql.Column, rows []int) (sql.Value, error) {
	count, _, _, cXY, m2X, m2Y := bivariateWelford(x, y, rows)
	if count < 2 {
		return sql.Null, nil
	}
	varX, varY := m2X/float64(count), m2Y/float64(count)
	if varX <= 0 || varY <= 0 {
		return sql.Null, nil
	}
	return sql.NewFloat64(cXY / float64(count) / math.Sqrt(varX*varY)), nil
}

func aggAnyValue(col *sql.Column, rows []int) (sql.Value, error) {
	for _, r := range rows {
		if !col.IsNull(r) {
			return col.GetValue(r), nil
		}
	}
	return sql.Null, nil
}

func aggLogical(col *sql.Column, rows []int, and bool) (sql.Value, error) {
	found := false
	result := and
	for _, r := range rows {
		if col.IsNull(r) {
			continue
		}
		found = true
		v := col.GetValue(r).Bool()
		if and {
			result = result && v
		} else {
			result = result || v
		}
	}
	if !found {
		return sql.Null, nil
	}
	return sql.NewBool(result), nil
}

func aggBit(col *sql.Column, rows []int, combine func(acc, v int64) int64, identity int64) (sql.Value, error) {
	found := false
	acc := identity
	for _, r := range rows {
		if col.IsNull(r) {
			continue
		}
		if !found {
			acc = col.GetValue(r).Int64()
			found = true
			continue
		}
		acc = combine(acc, col.GetValue(r).Int64())
	}
	if !found {
		return sql.Null, nil
	}
	return sql.NewInt64(acc), nil
}
