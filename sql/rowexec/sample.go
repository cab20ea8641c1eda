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
	"math/rand"

	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/plan"
)

// execSample implements TABLESAMPLE SYSTEM (ROWS n | PERCENT p). A Seed
// makes sampling deterministic for a given input, used by tests and
// reproducible query plans; without one, each execution draws fresh rows.
func (b *Builder) execSample(ctx *sql.Context, n *plan.Sample) (*sql.Table, error) {
	in, err := b.Exec(ctx, n.Child)
	if err != nil {
		return nil, err
	}

	total := in.RowCount()
	var want int
	switch n.Kind {
	case plan.SampleRows:
		want = int(n.Value)
	case plan.SamplePercent:
		want = int(n.Value / 100 * float64(total))
	default:
		return nil, sql.ErrInternal.New("unknown sample kind")
	}
	if want > total {
		want = total
	}
	if want < 0 {
		want = 0
	}

	var rng *rand.Rand
	if n.Seed != nil {
		rng = rand.New(rand.NewSource(*n.Seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	perm := rng.Perm(total)
	idx := perm[:want]
	return in.GatherRows(idx), nil
}
