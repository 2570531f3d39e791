package query

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hgye/pagereader/internal/btree"
	"github.com/hgye/pagereader/internal/catalog"
	"github.com/hgye/pagereader/internal/engine"
	"github.com/hgye/pagereader/internal/page"
)

// Pager is the narrow interface the executor needs from engine.Pager.
// MaxConcurrency sizes the index plan's per-row-id fetch worker pool
// (teacher's database_raw.go concurrency-semaphore pattern).
type Pager interface {
	ReadPage(ctx context.Context, pageNum uint32) (page.Page, error)
	MaxConcurrency() int
}

// Executor runs accepted SELECT statements against a catalog and
// pager, choosing between an index plan and a scan plan per spec.md
// §4.6, and writes results through a ConsoleFormatter.
type Executor struct {
	pager Pager
	cat   *catalog.Catalog
	out   *ConsoleFormatter
}

// NewExecutor builds an Executor over an already-loaded catalog.
func NewExecutor(pager Pager, cat *catalog.Catalog, out *ConsoleFormatter) *Executor {
	return &Executor{pager: pager, cat: cat, out: out}
}

// Execute parses sql, runs it, and writes its result through the
// executor's formatter.
func (e *Executor) Execute(ctx context.Context, sql string) error {
	plan, err := ParseSelect(sql)
	if err != nil {
		return err
	}

	table, ok := e.cat.Tables[plan.Table]
	if !ok {
		return engine.Wrap("execute_select", engine.ErrUnknownTable, map[string]any{"table": plan.Table})
	}

	if plan.CountStar {
		count, err := btree.CountTable(ctx, e.pager, table.RootPage)
		if err != nil {
			return engine.Wrap("count_star", err, map[string]any{"table": plan.Table})
		}
		return e.out.WriteCount(count)
	}

	colIndices := make([]int, len(plan.Columns))
	for i, name := range plan.Columns {
		idx, ok := table.ColumnIndex[strings.ToLower(name)]
		if !ok {
			return engine.Wrap("execute_select", engine.ErrUnknownColumn, map[string]any{"table": plan.Table, "column": name})
		}
		colIndices[i] = idx
	}

	rows, err := e.collectRows(ctx, plan, table)
	if err != nil {
		return err
	}

	for _, r := range rows {
		values := make([]string, len(colIndices))
		for i, colIdx := range colIndices {
			if colIdx >= len(r.rec.Values) {
				values[i] = ""
				continue
			}
			values[i] = projectValue(r.rec.Values[colIdx], r.rowID, colIdx == table.RowIDAliasColumn)
		}
		if err := e.out.WriteRow(values); err != nil {
			return err
		}
	}
	return nil
}

type tableRow struct {
	rowID int64
	rec   page.Record
}

// collectRows runs the index plan when an index covers the WHERE
// column, otherwise the scan plan with in-memory filtering
// (spec.md §4.6 plan selection).
func (e *Executor) collectRows(ctx context.Context, plan *Plan, table catalog.TableDescriptor) ([]tableRow, error) {
	if plan.Where == nil {
		var rows []tableRow
		err := btree.ScanTable(ctx, e.pager, table.RootPage, func(rowID int64, rec page.Record) error {
			rows = append(rows, tableRow{rowID: rowID, rec: rec})
			return nil
		})
		return rows, err
	}

	if idx, ok := e.cat.IndexFor(plan.Table, plan.Where.Column); ok {
		rowIDs, err := btree.FindRowIDs(ctx, e.pager, idx.RootPage, plan.Where.Literal)
		if err != nil {
			return nil, fmt.Errorf("index lookup on %s: %w", idx.Name, err)
		}
		return e.fetchRows(ctx, table, rowIDs)
	}

	whereIdx, ok := table.ColumnIndex[strings.ToLower(plan.Where.Column)]
	if !ok {
		return nil, engine.Wrap("execute_select", engine.ErrUnknownColumn, map[string]any{"table": plan.Table, "column": plan.Where.Column})
	}

	var rows []tableRow
	err := btree.ScanTable(ctx, e.pager, table.RootPage, func(rowID int64, rec page.Record) error {
		if whereIdx >= len(rec.Values) {
			return nil
		}
		v := projectValue(rec.Values[whereIdx], rowID, whereIdx == table.RowIDAliasColumn)
		if v == plan.Where.Literal {
			rows = append(rows, tableRow{rowID: rowID, rec: rec})
		}
		return nil
	})
	return rows, err
}

// fetchRows point-fetches rowIDs from the table tree through a
// worker pool bounded by the pager's configured concurrency, per
// SPEC_FULL.md's index-plan concurrency promise and the teacher's
// database_raw.go semaphore pattern. Output preserves rowIDs order
// (the order the index leaf delivered them), per spec.md §8 example 5.
func (e *Executor) fetchRows(ctx context.Context, table catalog.TableDescriptor, rowIDs []int64) ([]tableRow, error) {
	n := e.pager.MaxConcurrency()
	if n < 1 {
		n = 1
	}
	sem := make(chan struct{}, n)

	found := make([]bool, len(rowIDs))
	results := make([]tableRow, len(rowIDs))
	errs := make([]error, len(rowIDs))

	var wg sync.WaitGroup
	for i, id := range rowIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id int64) {
			defer wg.Done()
			defer func() { <-sem }()
			rec, ok, err := btree.FindRow(ctx, e.pager, table.RootPage, id)
			if err != nil {
				errs[i] = fmt.Errorf("point fetch row %d: %w", id, err)
				return
			}
			// A false-positive range check admits a row id the leaf
			// scan wouldn't have; absence here is not corruption, just
			// no output for that id (spec.md §7 Diagnostics policy).
			if ok {
				results[i] = tableRow{rowID: id, rec: rec}
				found[i] = true
			}
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	rows := make([]tableRow, 0, len(rowIDs))
	for i, ok := range found {
		if ok {
			rows = append(rows, results[i])
		}
	}
	return rows, nil
}
