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

package optimizer

// ColumnStats summarizes one column's value distribution for selectivity
// estimation.
type ColumnStats struct {
	DistinctCount int
	NullCount     int
}

// TableStats summarizes one base table for the cost model: its row count
// and per-column distribution stats.
type TableStats struct {
	RowCount    int
	ColumnStats map[string]ColumnStats
}

func NewTableStats(rowCount int) *TableStats {
	return &TableStats{RowCount: rowCount, ColumnStats: map[string]ColumnStats{}}
}

// EstimateSelectivity returns the fraction of rows a predicate of the
// given comparison operator against column is expected to pass, falling
// back to fixed constants when no column statistics are available.
func (t *TableStats) EstimateSelectivity(column, op string) float64 {
	cs, ok := t.ColumnStats[column]
	if !ok || cs.DistinctCount == 0 {
		return 0.5
	}
	switch op {
	case "=":
		return 1.0 / float64(cs.DistinctCount)
	case "<", ">", "<=", ">=":
		return 0.33
	case "!=", "<>":
		return 1.0 - 1.0/float64(cs.DistinctCount)
	default:
		return 0.5
	}
}

// Stats is a per-optimize-call registry of TableStats keyed by base table
// name, populated from the catalog's StoredTable snapshots before
// optimization begins (or left empty, in which case every estimate falls
// back to the default constants above).
type Stats struct {
	Tables map[string]*TableStats
}

func NewStats() *Stats { return &Stats{Tables: map[string]*TableStats{}} }

func (s *Stats) RowCountEstimate(tableName string, fallback int) int {
	if t, ok := s.Tables[tableName]; ok {
		return t.RowCount
	}
	return fallback
}
