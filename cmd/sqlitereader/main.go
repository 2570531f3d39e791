// Command sqlitereader is a thin collaborator (spec.md §2): it opens a
// database file, dispatches the requested command, and reports errors
// to stderr. All novelty lives in the storage core under internal/.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hgye/pagereader/internal/catalog"
	"github.com/hgye/pagereader/internal/engine"
	"github.com/hgye/pagereader/internal/query"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: sqlitereader <db-file> <command>")
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dbPath, command string) error {
	ctx := context.Background()

	pager, err := engine.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer pager.Close()

	switch {
	case command == ".dbinfo":
		return runDBInfo(ctx, pager)
	case command == ".tables":
		return runTables(ctx, pager)
	case strings.HasPrefix(strings.ToLower(strings.TrimSpace(command)), "select"):
		return runSelect(ctx, pager, command)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runDBInfo(ctx context.Context, pager *engine.Pager) error {
	root, err := pager.ReadPage(ctx, 1)
	if err != nil {
		return fmt.Errorf("read schema page: %w", err)
	}
	cat, err := catalog.Load(ctx, pager)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	numIndexes := 0
	for _, idxs := range cat.Indexes {
		numIndexes += len(idxs)
	}
	fmt.Printf("database page size: %d\n", pager.PageSize())
	fmt.Printf("number of tables: %d\n", len(root.LeafTableCells))
	fmt.Printf("number of indexes: %d\n", numIndexes)
	return nil
}

func runTables(ctx context.Context, pager *engine.Pager) error {
	cat, err := catalog.Load(ctx, pager)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	names := cat.TableNames()
	for _, name := range names {
		fmt.Print(name + " ")
	}
	fmt.Println()
	return nil
}

func runSelect(ctx context.Context, pager *engine.Pager, sql string) error {
	cat, err := catalog.Load(ctx, pager)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	formatter := query.NewConsoleFormatter(os.Stdout)
	executor := query.NewExecutor(pager, cat, formatter)
	return executor.Execute(ctx, sql)
}
