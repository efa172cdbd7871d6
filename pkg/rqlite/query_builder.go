package rqlite

// query_builder.go implements a fluent SQL query builder for SELECT statements.

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QueryBuilder implements a fluent SELECT builder.
type QueryBuilder struct {
	exec    executor
	table   string
	selects []string
	wheres  []whereClause

	groupBys []string
	orderBys []string
	limit    *int
}

// whereClause holds an expression and args with a conjunction.
type whereClause struct {
	conj string // "AND" or "OR"
	expr string
	args []any
}

// newQueryBuilder creates a new QueryBuilder for the given table.
func newQueryBuilder(exec executor, table string) *QueryBuilder {
	return &QueryBuilder{
		exec:  exec,
		table: table,
	}
}

// Select specifies columns to select.
func (qb *QueryBuilder) Select(cols ...string) *QueryBuilder {
	qb.selects = append(qb.selects, cols...)
	return qb
}

// Where adds a WHERE clause (same as AndWhere).
func (qb *QueryBuilder) Where(expr string, args ...any) *QueryBuilder {
	return qb.AndWhere(expr, args...)
}

// AndWhere adds an AND WHERE clause.
func (qb *QueryBuilder) AndWhere(expr string, args ...any) *QueryBuilder {
	qb.wheres = append(qb.wheres, whereClause{conj: "AND", expr: expr, args: args})
	return qb
}

// GroupBy adds GROUP BY columns.
func (qb *QueryBuilder) GroupBy(cols ...string) *QueryBuilder {
	qb.groupBys = append(qb.groupBys, cols...)
	return qb
}

// OrderBy adds ORDER BY expressions.
func (qb *QueryBuilder) OrderBy(exprs ...string) *QueryBuilder {
	qb.orderBys = append(qb.orderBys, exprs...)
	return qb
}

// Limit sets the LIMIT clause. Non-positive values are ignored.
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	if n > 0 {
		qb.limit = &n
	}
	return qb
}

// Build returns the SQL string and args for a SELECT.
func (qb *QueryBuilder) Build() (string, []any) {
	cols := "*"
	if len(qb.selects) > 0 {
		cols = strings.Join(qb.selects, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, qb.table)

	args := make([]any, 0, 8)
	if len(qb.wheres) > 0 {
		b.WriteString(" WHERE ")
		for i, w := range qb.wheres {
			if i > 0 {
				b.WriteString(" " + w.conj + " ")
			}
			b.WriteString("(" + w.expr + ")")
			args = append(args, w.args...)
		}
	}

	if len(qb.groupBys) > 0 {
		b.WriteString(" GROUP BY " + strings.Join(qb.groupBys, ", "))
	}
	if len(qb.orderBys) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(qb.orderBys, ", "))
	}
	if qb.limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *qb.limit)
	}
	return b.String(), args
}

// GetMany executes the built query and scans into dest (pointer to slice).
func (qb *QueryBuilder) GetMany(ctx context.Context, dest any) error {
	if qb.table == "" {
		return ErrEmptyTable
	}
	sqlStr, args := qb.Build()
	rows, err := qb.exec.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	return scanIntoDest(rows, dest)
}

// GetOne executes the built query with LIMIT 1 and scans into dest.
func (qb *QueryBuilder) GetOne(ctx context.Context, dest any) error {
	if qb.table == "" {
		return ErrEmptyTable
	}
	qb.Limit(1)
	sqlStr, args := qb.Build()
	rows, err := qb.exec.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return scanIntoSingle(rows, dest)
}
