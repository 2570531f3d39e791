package query

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hgye/pagereader/internal/catalog"
	"github.com/hgye/pagereader/internal/page"
)

type fakePager struct {
	pages map[uint32]page.Page
}

func (f *fakePager) ReadPage(ctx context.Context, pageNum uint32) (page.Page, error) {
	return f.pages[pageNum], nil
}

func (f *fakePager) MaxConcurrency() int { return 4 }

func appleRow(rowID int64, name, color string) page.LeafTableCell {
	return page.LeafTableCell{RowID: rowID, Record: page.Record{Values: []page.Value{
		page.NullValue(), // id: INTEGER PRIMARY KEY alias, stored as NULL
		page.TextValue(name),
		page.TextValue(color),
	}}}
}

func newApplesCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Tables: map[string]catalog.TableDescriptor{
			"apples": {
				RootPage:         1,
				Columns:          []string{"id", "name", "color"},
				ColumnIndex:      map[string]int{"id": 0, "name": 1, "color": 2},
				RowIDAliasColumn: 0,
			},
		},
		Indexes: map[string][]catalog.IndexDescriptor{},
	}
}

func TestExecuteSelectColumnsWithScanFilter(t *testing.T) {
	pager := &fakePager{pages: map[uint32]page.Page{
		1: {
			Type: page.TypeLeafTable,
			LeafTableCells: []page.LeafTableCell{
				appleRow(1, "Granny Smith", "Light Green"),
				appleRow(2, "Fuji", "Red"),
				appleRow(3, "Honeycrisp", "Yellow"),
				appleRow(4, "Golden Delicious", "Yellow"),
			},
		},
	}}

	var buf bytes.Buffer
	exec := NewExecutor(pager, newApplesCatalog(), NewConsoleFormatter(&buf))
	err := exec.Execute(context.Background(), "SELECT name, color FROM apples WHERE color = 'Yellow'")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := buf.String()
	want := "Honeycrisp|Yellow\nGolden Delicious|Yellow\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExecuteCountStar(t *testing.T) {
	pager := &fakePager{pages: map[uint32]page.Page{
		1: {
			Type: page.TypeLeafTable,
			LeafTableCells: []page.LeafTableCell{
				appleRow(1, "a", "x"),
				appleRow(2, "b", "y"),
				appleRow(3, "c", "z"),
				appleRow(4, "d", "w"),
			},
		},
	}}

	var buf bytes.Buffer
	exec := NewExecutor(pager, newApplesCatalog(), NewConsoleFormatter(&buf))
	if err := exec.Execute(context.Background(), "SELECT COUNT(*) FROM apples"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "4" {
		t.Fatalf("got %q, want \"4\"", buf.String())
	}
}

func TestExecuteRowIDAliasProjection(t *testing.T) {
	pager := &fakePager{pages: map[uint32]page.Page{
		1: {
			Type: page.TypeLeafTable,
			LeafTableCells: []page.LeafTableCell{
				appleRow(7, "Fuji", "Red"),
			},
		},
	}}

	var buf bytes.Buffer
	exec := NewExecutor(pager, newApplesCatalog(), NewConsoleFormatter(&buf))
	if err := exec.Execute(context.Background(), "SELECT id, name FROM apples"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "7|Fuji" {
		t.Fatalf("got %q, want \"7|Fuji\"", buf.String())
	}
}

func TestExecuteIndexPlan(t *testing.T) {
	cat := newApplesCatalog()
	cat.Indexes["apples"] = []catalog.IndexDescriptor{{
		RootPage: 2,
		Name:     "idx_apples_color",
		Table:    "apples",
		Columns:  map[string]bool{"color": true},
	}}

	pager := &fakePager{pages: map[uint32]page.Page{
		1: {
			Type: page.TypeLeafTable,
			LeafTableCells: []page.LeafTableCell{
				appleRow(1, "Granny Smith", "Light Green"),
				appleRow(2, "Fuji", "Red"),
				appleRow(3, "Honeycrisp", "Yellow"),
				appleRow(4, "Golden Delicious", "Yellow"),
			},
		},
		2: {
			Type: page.TypeLeafIndex,
			LeafIndexCells: []page.LeafIndexCell{
				{Record: page.Record{Values: []page.Value{page.TextValue("Yellow"), page.IntValue(1, 3)}}},
				{Record: page.Record{Values: []page.Value{page.TextValue("Yellow"), page.IntValue(1, 4)}}},
			},
		},
	}}

	var buf bytes.Buffer
	exec := NewExecutor(pager, cat, NewConsoleFormatter(&buf))
	if err := exec.Execute(context.Background(), "SELECT name FROM apples WHERE color = 'Yellow'"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := buf.String()
	want := "Honeycrisp\nGolden Delicious\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestExecuteUnknownTable(t *testing.T) {
	pager := &fakePager{pages: map[uint32]page.Page{1: {Type: page.TypeLeafTable}}}
	exec := NewExecutor(pager, newApplesCatalog(), NewConsoleFormatter(&bytes.Buffer{}))
	err := exec.Execute(context.Background(), "SELECT id FROM oranges")
	if err == nil {
		t.Fatal("expected error for unknown table")
	}
}
