// Package catalog builds the table/index descriptor maps from the
// schema table on page 1, per spec.md §4.3.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hgye/pagereader/internal/page"
)

var errBadSQL = errors.New("malformed schema SQL")

// TableDescriptor names a table's root page and column order.
type TableDescriptor struct {
	RootPage    uint32
	Columns     []string // declaration order
	ColumnIndex map[string]int
	// RowIDAliasColumn is the index of the column declared INTEGER
	// PRIMARY KEY, or -1 if the table has none.
	RowIDAliasColumn int
}

// IndexDescriptor names an index's root page, owning table, and the
// set of columns it covers.
type IndexDescriptor struct {
	RootPage uint32
	Name     string
	Table    string
	Columns  map[string]bool
}

// Covers reports whether the index covers the named column.
func (d IndexDescriptor) Covers(column string) bool {
	return d.Columns[strings.ToLower(column)]
}

// reader is the subset of Pager this package depends on, kept narrow
// so catalog tests can supply a fake.
type reader interface {
	ReadPage(ctx context.Context, pageNum uint32) (page.Page, error)
}

// Catalog is the read-only, built-once index of schema objects.
// Indexes are keyed by the table they cover and kept as a list (§5.1
// resolution of the "one index per table" open question), rather than
// the teacher's "last index wins" map keyed by index name.
type Catalog struct {
	Tables  map[string]TableDescriptor
	Indexes map[string][]IndexDescriptor
}

// Load reads page 1 (the schema table, a leaf-table page whose header
// sits at byte 100) and builds the catalog from its rows.
func Load(ctx context.Context, r reader) (*Catalog, error) {
	root, err := r.ReadPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("read schema table: %w", err)
	}
	if root.Type != page.TypeLeafTable {
		return nil, fmt.Errorf("%w: schema table root is not a leaf table page (type 0x%02x)", errBadSQL, root.Type)
	}

	cat := &Catalog{
		Tables:  make(map[string]TableDescriptor),
		Indexes: make(map[string][]IndexDescriptor),
	}

	type deferredIndex struct {
		rootPage uint32
		sql      string
	}
	var deferred []deferredIndex

	for _, cell := range root.LeafTableCells {
		vals := cell.Record.Values
		if len(vals) < 5 {
			return nil, fmt.Errorf("%w: schema row has %d columns, want 5", errMissingCol, len(vals))
		}
		objType, _ := vals[0].Text()
		name, _ := vals[1].Text()
		rootPage, _ := vals[3].Int64()
		sql, _ := vals[4].Text()

		switch objType {
		case "table":
			if name == "sqlite_sequence" {
				continue
			}
			defs, err := ParseCreateTableColumnDefs(sql)
			if err != nil {
				return nil, fmt.Errorf("parse schema for table %s: %w", name, err)
			}
			columns := make([]string, len(defs))
			colIndex := make(map[string]int, len(defs))
			rowIDAlias := -1
			for i, d := range defs {
				columns[i] = d.Name
				colIndex[strings.ToLower(d.Name)] = i
				if d.IsRowIDAlias {
					rowIDAlias = i
				}
			}
			cat.Tables[name] = TableDescriptor{
				RootPage:         uint32(rootPage),
				Columns:          columns,
				ColumnIndex:      colIndex,
				RowIDAliasColumn: rowIDAlias,
			}
		case "index":
			// Deferred: the SQL text, not column 1/2, is authoritative
			// for the index name and owning table (spec.md §4.3).
			deferred = append(deferred, deferredIndex{rootPage: uint32(rootPage), sql: sql})
		default:
			// views, triggers: outside this spec's scope, ignored.
		}
	}

	// Second pass: every table's root page is now known, so resolve
	// index descriptors from the deferred SQL text.
	for _, d := range deferred {
		idxName, tableName, columns, err := ParseCreateIndex(d.sql)
		if err != nil {
			return nil, fmt.Errorf("parse index SQL: %w", err)
		}
		colSet := make(map[string]bool, len(columns))
		for _, c := range columns {
			colSet[strings.ToLower(c)] = true
		}
		desc := IndexDescriptor{
			RootPage: d.rootPage,
			Name:     idxName,
			Table:    tableName,
			Columns:  colSet,
		}
		cat.Indexes[tableName] = append(cat.Indexes[tableName], desc)
	}

	return cat, nil
}

var errMissingCol = errors.New("missing schema column")

// TableNames returns all non-system table names, sorted, for `.tables`
// (spec.md §8 scenario 2 names a deterministic expected output, which
// a raw range over the Tables map cannot give).
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexFor returns the first index covering the given column on the
// named table, per the §5.1 tie-break (declaration order, first wins).
func (c *Catalog) IndexFor(table, column string) (IndexDescriptor, bool) {
	for _, idx := range c.Indexes[table] {
		if idx.Covers(column) {
			return idx, true
		}
	}
	return IndexDescriptor{}, false
}
