// Package btree walks the table and index B-tree structures decoded
// by package page, per spec.md §4.4 and §4.5.
package btree

import (
	"context"
	"fmt"

	"github.com/hgye/pagereader/internal/engine"
	"github.com/hgye/pagereader/internal/page"
)

// Pager is the narrow interface this package needs from engine.Pager,
// so traversal can be tested against a fake.
type Pager interface {
	ReadPage(ctx context.Context, pageNum uint32) (page.Page, error)
}

// ScanTable performs an in-order visit of every leaf-table cell
// beneath rootPage: for each interior cell, recurse into its left
// child in array order, then recurse into the rightmost child.
func ScanTable(ctx context.Context, p Pager, rootPage uint32, visit func(rowID int64, rec page.Record) error) error {
	pg, err := p.ReadPage(ctx, rootPage)
	if err != nil {
		return fmt.Errorf("scan table page %d: %w", rootPage, err)
	}

	switch pg.Type {
	case page.TypeLeafTable:
		for _, cell := range pg.LeafTableCells {
			if err := visit(cell.RowID, cell.Record); err != nil {
				return err
			}
		}
		return nil
	case page.TypeInteriorTable:
		for _, cell := range pg.InteriorTableCells {
			if err := ScanTable(ctx, p, cell.LeftChildPage, visit); err != nil {
				return err
			}
		}
		return ScanTable(ctx, p, pg.RightmostChild, visit)
	default:
		return fmt.Errorf("%w: page %d is not a table page (type 0x%02x)", page.ErrCorruptPageType, rootPage, pg.Type)
	}
}

// CountTable returns the number of leaf-table cells beneath rootPage,
// via a full traversal (the §5.2 resolution: always a complete count,
// never just the root page's cell count, so interior-rooted tables are
// counted correctly).
func CountTable(ctx context.Context, p Pager, rootPage uint32) (int, error) {
	count := 0
	err := ScanTable(ctx, p, rootPage, func(int64, page.Record) error {
		count++
		return nil
	})
	return count, err
}

// FindRow performs a point lookup for rowID beneath rootPage. Interior
// cell row ids are inclusive upper bounds for their left child: a
// rowID equal to the cell's row id descends left (spec.md §4.4).
func FindRow(ctx context.Context, p Pager, rootPage uint32, rowID int64) (page.Record, bool, error) {
	pg, err := p.ReadPage(ctx, rootPage)
	if err != nil {
		return page.Record{}, false, fmt.Errorf("find row page %d: %w", rootPage, err)
	}

	switch pg.Type {
	case page.TypeLeafTable:
		for _, cell := range pg.LeafTableCells {
			if cell.RowID == rowID {
				return cell.Record, true, nil
			}
		}
		return page.Record{}, false, nil
	case page.TypeInteriorTable:
		for _, cell := range pg.InteriorTableCells {
			if rowID <= cell.RowID {
				return FindRow(ctx, p, cell.LeftChildPage, rowID)
			}
		}
		return FindRow(ctx, p, pg.RightmostChild, rowID)
	default:
		return page.Record{}, false, fmt.Errorf("%w: page %d is not a table page (type 0x%02x)", page.ErrCorruptPageType, rootPage, pg.Type)
	}
}

// FindRowIDs walks the index tree rooted at rootPage, collecting the
// trailing row id of every leaf cell whose first key column equals
// needle under byte-wise equality, per spec.md §4.5. The interior
// range check is conservative (admits false positives, never false
// negatives); ordering follows in-order traversal and duplicates are
// preserved.
func FindRowIDs(ctx context.Context, p Pager, rootPage uint32, needle string) ([]int64, error) {
	var out []int64
	if err := scanIndex(ctx, p, rootPage, needle, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func scanIndex(ctx context.Context, p Pager, pageNum uint32, needle string, out *[]int64) error {
	pg, err := p.ReadPage(ctx, pageNum)
	if err != nil {
		return fmt.Errorf("scan index page %d: %w", pageNum, err)
	}

	switch pg.Type {
	case page.TypeLeafIndex:
		if len(pg.LeafIndexCells) == 0 {
			return fmt.Errorf("%w: empty leaf index page %d", engine.ErrCorruptIndex, pageNum)
		}
		for _, cell := range pg.LeafIndexCells {
			key, rowID, err := indexCellKeyAndRowID(cell.Record)
			if err != nil {
				return err
			}
			if key == needle {
				*out = append(*out, rowID)
			}
		}
		return nil

	case page.TypeInteriorIndex:
		if len(pg.InteriorIndexCells) == 0 {
			return fmt.Errorf("%w: empty interior index page %d", engine.ErrCorruptIndex, pageNum)
		}
		first, _, err := indexCellKeyAndRowID(pg.InteriorIndexCells[0].Record)
		if err != nil {
			return err
		}
		last, _, err := indexCellKeyAndRowID(pg.InteriorIndexCells[len(pg.InteriorIndexCells)-1].Record)
		if err != nil {
			return err
		}

		if needle >= first && needle <= last {
			for _, cell := range pg.InteriorIndexCells {
				if err := scanIndex(ctx, p, cell.LeftChildPage, needle, out); err != nil {
					return err
				}
				key, rowID, err := indexCellKeyAndRowID(cell.Record)
				if err != nil {
					return err
				}
				if key == needle {
					*out = append(*out, rowID)
				}
			}
			// Entries equal to the last key can continue into the
			// rightmost subtree.
			if needle == last {
				return scanIndex(ctx, p, pg.RightmostChild, needle, out)
			}
			return nil
		}
		if needle < first {
			return scanIndex(ctx, p, pg.InteriorIndexCells[0].LeftChildPage, needle, out)
		}
		return scanIndex(ctx, p, pg.RightmostChild, needle, out)

	default:
		return fmt.Errorf("%w: page %d is not an index page (type 0x%02x)", page.ErrCorruptPageType, pageNum, pg.Type)
	}
}

// indexCellKeyAndRowID extracts the first key column (required to be
// Text for this query surface) and the trailing row id column from an
// index record.
func indexCellKeyAndRowID(rec page.Record) (key string, rowID int64, err error) {
	if len(rec.Values) < 2 {
		return "", 0, fmt.Errorf("%w: index record has %d columns, want at least 2", engine.ErrCorruptIndex, len(rec.Values))
	}
	key, ok := rec.Values[0].Text()
	if !ok {
		return "", 0, fmt.Errorf("%w: index key column is not text", engine.ErrUnsupportedKey)
	}
	rowID, ok = rec.Values[len(rec.Values)-1].Int64()
	if !ok {
		return "", 0, fmt.Errorf("%w: index trailing row id column is not integer", engine.ErrCorruptIndex)
	}
	return key, rowID, nil
}
