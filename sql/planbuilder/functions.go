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

package planbuilder

import (
	"github.com/bqlite/bqlite/sql"
	"github.com/bqlite/bqlite/sql/expression"
)

// aggregateFuncs maps a call's uppercased name to its AggregateFunc tag.
// COUNT is registered once here and reclassified to AggCountStar by
// buildFunctionCall when it finds no arguments (the bare `COUNT(*)` form).
var aggregateFuncs = map[string]expression.AggregateFunc{
	"COUNT":        expression.AggCount,
	"SUM":          expression.AggSum,
	"AVG":          expression.AggAvg,
	"MIN":          expression.AggMin,
	"MAX":          expression.AggMax,
	"ARRAY_AGG":    expression.AggArrayAgg,
	"STRING_AGG":   expression.AggStringAgg,
	"VARIANCE":     expression.AggVariance,
	"VAR_POP":      expression.AggVariance,
	"STDDEV":       expression.AggStdDev,
	"STDDEV_POP":   expression.AggStdDev,
	"COVAR_POP":    expression.AggCovariance,
	"CORR":         expression.AggCorrelation,
	"ANY_VALUE":    expression.AggAnyValue,
	"LOGICAL_AND":  expression.AggLogicalAnd,
	"LOGICAL_OR":   expression.AggLogicalOr,
	"BIT_AND":      expression.AggBitAnd,
	"BIT_OR":       expression.AggBitOr,
	"BIT_XOR":      expression.AggBitXor,
}

var windowFuncs = map[string]expression.WindowFunc{
	"ROW_NUMBER":  expression.WinRowNumber,
	"RANK":        expression.WinRank,
	"DENSE_RANK":  expression.WinDenseRank,
	"NTILE":       expression.WinNtile,
	"LAG":         expression.WinLag,
	"LEAD":        expression.WinLead,
	"FIRST_VALUE": expression.WinFirstValue,
	"LAST_VALUE":  expression.WinLastValue,
	"NTH_VALUE":   expression.WinNthValue,
}

// aggregateReturnType assigns each aggregate function its BigQuery result
// type: most pass through their single argument's type, a handful (COUNT,
// the statistical functions, LOGICAL_*) have a fixed type regardless of
// input.
func aggregateReturnType(fn expression.AggregateFunc, args []expression.Expr) sql.TypeID {
	switch fn {
	case expression.AggCount, expression.AggCountStar, expression.AggBitAnd, expression.AggBitOr, expression.AggBitXor:
		return sql.TypeInt64
	case expression.AggAvg, expression.AggVariance, expression.AggStdDev, expression.AggCovariance, expression.AggCorrelation:
		return sql.TypeFloat64
	case expression.AggLogicalAnd, expression.AggLogicalOr:
		return sql.TypeBool
	case expression.AggStringAgg:
		return sql.TypeString
	case expression.AggArrayAgg:
		return sql.TypeArray
	default:
		return argType(args, sql.TypeDefault)
	}
}

// windowReturnType assigns each ranking/navigational window function its
// result type: the ranking functions always return INT64, the value
// functions (LAG/LEAD/FIRST_VALUE/...) pass through their argument's type.
func windowReturnType(fn expression.WindowFunc, args []expression.Expr) sql.TypeID {
	switch fn {
	case expression.WinRowNumber, expression.WinRank, expression.WinDenseRank, expression.WinNtile:
		return sql.TypeInt64
	default:
		return argType(args, sql.TypeDefault)
	}
}

func argType(args []expression.Expr, fallback sql.TypeID) sql.TypeID {
	if len(args) == 0 {
		return fallback
	}
	return args[0].Type()
}

// scalarReturnType is a heuristic name -> TypeID table for the built-in
// scalar functions this engine supports, used since expression.ScalarFunction
// requires an explicit static result type and this engine has no function
// signature registry (unlike aggregates/window functions, which carry
// their own fixed or pass-through typing rules above). Functions not
// listed here default to passing through their first argument's type,
// which is correct for the numeric SAFE_* family and wrong only for
// obscure builtins this heuristic does not yet name.
var scalarReturnTypes = map[string]sql.TypeID{
	"UPPER": sql.TypeString, "LOWER": sql.TypeString, "CONCAT": sql.TypeString,
	"SUBSTR": sql.TypeString, "SUBSTRING": sql.TypeString, "TRIM": sql.TypeString,
	"LTRIM": sql.TypeString, "RTRIM": sql.TypeString, "REPLACE": sql.TypeString,
	"SPLIT": sql.TypeArray, "FORMAT": sql.TypeString, "LPAD": sql.TypeString,
	"RPAD": sql.TypeString, "REGEXP_EXTRACT": sql.TypeString, "REGEXP_REPLACE": sql.TypeString,
	"TO_JSON_STRING": sql.TypeString, "STRING": sql.TypeString,

	"LENGTH": sql.TypeInt64, "CHAR_LENGTH": sql.TypeInt64, "CHARACTER_LENGTH": sql.TypeInt64,
	"BYTE_LENGTH": sql.TypeInt64, "STRPOS": sql.TypeInt64,

	"REGEXP_CONTAINS": sql.TypeBool, "STARTS_WITH": sql.TypeBool, "ENDS_WITH": sql.TypeBool,

	"ABS": sql.TypeDefault, "ROUND": sql.TypeDefault, "CEIL": sql.TypeDefault, "CEILING": sql.TypeDefault,
	"FLOOR": sql.TypeDefault, "SIGN": sql.TypeInt64,
	"SQRT": sql.TypeFloat64, "POW": sql.TypeFloat64, "POWER": sql.TypeFloat64, "EXP": sql.TypeFloat64,
	"LN": sql.TypeFloat64, "LOG": sql.TypeFloat64, "LOG10": sql.TypeFloat64,
	"SAFE_DIVIDE": sql.TypeFloat64, "MOD": sql.TypeInt64, "IEEE_DIVIDE": sql.TypeFloat64,

	"CURRENT_DATE": sql.TypeDate, "CURRENT_TIME": sql.TypeTime,
	"CURRENT_DATETIME": sql.TypeDateTime, "CURRENT_TIMESTAMP": sql.TypeTimestamp,
	"DATE": sql.TypeDate, "TIME": sql.TypeTime, "DATETIME": sql.TypeDateTime, "TIMESTAMP": sql.TypeTimestamp,
	"DATE_ADD": sql.TypeDate, "DATE_SUB": sql.TypeDate, "DATE_DIFF": sql.TypeInt64,
	"TIMESTAMP_ADD": sql.TypeTimestamp, "TIMESTAMP_SUB": sql.TypeTimestamp, "TIMESTAMP_DIFF": sql.TypeInt64,
	"EXTRACT": sql.TypeInt64,

	"IFNULL": sql.TypeDefault, "COALESCE": sql.TypeDefault, "NULLIF": sql.TypeDefault,
	"GENERATE_UUID": sql.TypeString, "FARM_FINGERPRINT": sql.TypeInt64,

	"TO_JSON": sql.TypeJSON, "PARSE_JSON": sql.TypeJSON, "JSON_EXTRACT": sql.TypeJSON,
	"JSON_EXTRACT_SCALAR": sql.TypeString, "JSON_VALUE": sql.TypeString,

	"ST_GEOGPOINT": sql.TypeGeography, "ST_DISTANCE": sql.TypeFloat64,

	"CAST": sql.TypeDefault, "SAFE_CAST": sql.TypeDefault,
}

func scalarReturnType(name string, args []expression.Expr) sql.TypeID {
	if t, ok := scalarReturnTypes[name]; ok && t != sql.TypeDefault {
		return t
	}
	return argType(args, sql.TypeDefault)
}
