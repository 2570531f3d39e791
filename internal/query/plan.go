// Package query parses the accepted SELECT shape, picks a scan or
// index plan, and projects rows to output, per spec.md §4.6.
package query

import (
	"fmt"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// Predicate is the single `column = literal` condition this engine
// understands (spec.md §1 Non-goals: nothing richer).
type Predicate struct {
	Column  string
	Literal string
}

// Plan is a parsed SELECT statement, reduced to the shape spec.md §4.6
// accepts: a projected column list or COUNT(*), one table, and at
// most one equality predicate.
type Plan struct {
	Table     string
	CountStar bool
	Columns   []string // projection order; empty when CountStar
	Where     *Predicate
}

// ParseSelect parses sql, which must be a single SELECT statement in
// the accepted shape:
//
//	SELECT col [, col ...] FROM table [WHERE col = literal]
//	SELECT COUNT(*) FROM table
func ParseSelect(sql string) (*Plan, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse SQL: %w", err)
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok {
		return nil, fmt.Errorf("unsupported statement type %T, only SELECT is accepted", stmt)
	}

	table, err := tableName(sel)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Table: table}

	for _, expr := range sel.SelectExprs {
		aliased, ok := expr.(*sqlparser.AliasedExpr)
		if !ok {
			return nil, fmt.Errorf("unsupported select expression %T", expr)
		}
		switch inner := aliased.Expr.(type) {
		case *sqlparser.FuncExpr:
			if !strings.EqualFold(inner.Name.String(), "count") {
				return nil, fmt.Errorf("unsupported function %q, only COUNT(*) is accepted", inner.Name.String())
			}
			plan.CountStar = true
		case *sqlparser.ColName:
			plan.Columns = append(plan.Columns, inner.Name.String())
		default:
			return nil, fmt.Errorf("unsupported select expression %T", inner)
		}
	}

	if plan.CountStar && len(plan.Columns) > 0 {
		return nil, fmt.Errorf("cannot mix COUNT(*) with projected columns")
	}
	if !plan.CountStar && len(plan.Columns) == 0 {
		return nil, fmt.Errorf("no columns in SELECT list")
	}

	if sel.Where != nil {
		pred, err := parsePredicate(sel.Where.Expr)
		if err != nil {
			return nil, err
		}
		plan.Where = pred
	}

	return plan, nil
}

func tableName(sel *sqlparser.Select) (string, error) {
	if len(sel.From) != 1 {
		return "", fmt.Errorf("expected exactly one table in FROM, got %d", len(sel.From))
	}
	aliased, ok := sel.From[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", fmt.Errorf("unsupported FROM expression %T", sel.From[0])
	}
	table, ok := aliased.Expr.(sqlparser.TableName)
	if !ok {
		return "", fmt.Errorf("unsupported table expression %T", aliased.Expr)
	}
	return table.Name.String(), nil
}

// parsePredicate accepts only `column = literal`; anything richer
// (AND/OR, other operators, column-to-column comparisons) is rejected
// rather than silently mishandled.
func parsePredicate(expr sqlparser.Expr) (*Predicate, error) {
	cmp, ok := expr.(*sqlparser.ComparisonExpr)
	if !ok {
		return nil, fmt.Errorf("unsupported WHERE expression %T, only column = literal is accepted", expr)
	}
	if cmp.Operator != "=" {
		return nil, fmt.Errorf("unsupported WHERE operator %q, only = is accepted", cmp.Operator)
	}
	col, ok := cmp.Left.(*sqlparser.ColName)
	if !ok {
		return nil, fmt.Errorf("WHERE left side must be a column name, got %T", cmp.Left)
	}
	val, ok := cmp.Right.(*sqlparser.SQLVal)
	if !ok {
		return nil, fmt.Errorf("WHERE right side must be a literal, got %T", cmp.Right)
	}
	return &Predicate{Column: col.Name.String(), Literal: string(val.Val)}, nil
}
