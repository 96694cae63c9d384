// Copyright © 2025 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
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

package persistence

import (
	"reflect"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgreSQL prepares a separate statement for each arity of an IN clause, which
// defeats the statement cache for queries over caller-supplied lists of values.
// UseAny installs a query callback that rewrites eligible IN clauses to
// "= ANY (?)" with a single array-typed bind variable.
//
// Installed automatically for the postgres provider.
func UseAny(gdb *gorm.DB) {
	_ = gdb.Callback().Query().Before("gorm:query").Register("veridict:use_any", func(db *gorm.DB) {
		if c, ok := db.Statement.Clauses["WHERE"]; ok {
			if where, ok := c.Expression.(clause.Where); ok {
				processExpressions(where.Exprs)
			}
		}
	})
}

// ANY wraps either a structured IN clause, or a raw "x IN (?)" expression, deferring
// until Build time the choice between an array bind and the original IN semantics.
type ANY struct {
	IN   *clause.IN
	Expr *clause.Expr
}

func processExpressions(exprs []clause.Expression) {
	for i, e := range exprs {
		switch expr := e.(type) {
		case clause.IN:
			exprs[i] = ANY{IN: &expr}
		case clause.Expr:
			if strings.Contains(expr.SQL, " IN (?)") && !strings.Contains(expr.SQL, " NOT IN ") {
				exprs[i] = ANY{Expr: &expr}
			}
		case clause.Where:
			processExpressions(expr.Exprs)
		case clause.OrConditions:
			processExpressions(expr.Exprs)
		case clause.AndConditions:
			processExpressions(expr.Exprs)
		}
	}
}

// Sub-queries, column references and similar non-value entries cannot go into an
// array bind, and single-entry lists gain nothing - in those cases we fall back
// to the original IN clause.
func hasNonValue(values []interface{}) bool {
	for _, v := range values {
		switch v.(type) {
		case clause.Column, clause.Table, clause.Expression, *gorm.DB:
			return true
		}
	}
	return false
}

func (a ANY) Build(builder clause.Builder) {
	switch {
	case a.IN != nil:
		if len(a.IN.Values) <= 1 || hasNonValue(a.IN.Values) {
			a.IN.Build(builder)
			return
		}
		builder.WriteQuoted(a.IN.Column)
		_, _ = builder.WriteString(" = ANY (")
		builder.AddVar(builder, pq.Array(a.IN.Values))
		_ = builder.WriteByte(')')
	case a.Expr != nil:
		if len(a.Expr.Vars) == 1 {
			rv := reflect.ValueOf(a.Expr.Vars[0])
			if rv.Kind() == reflect.Slice && rv.Len() > 1 {
				values := make([]interface{}, rv.Len())
				for i := range values {
					values[i] = rv.Index(i).Interface()
				}
				if !hasNonValue(values) {
					rewritten := clause.Expr{
						SQL:  strings.Replace(a.Expr.SQL, "IN (?)", "= ANY (?)", 1),
						Vars: []interface{}{pq.Array(a.Expr.Vars[0])},
					}
					rewritten.Build(builder)
					return
				}
			}
		}
		a.Expr.Build(builder)
	}
}
