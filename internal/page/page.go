// Package page decodes the four on-disk page kinds (leaf/interior,
// table/index) into typed Go values, given a pread-addressable file,
// a page offset, and an optional in-page header offset (page 1's
// header sits at byte 100, past the file header).
package page

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hgye/pagereader/internal/varint"
)

// Type identifies the on-disk page kind.
type Type uint8

const (
	TypeInteriorIndex Type = 0x02
	TypeInteriorTable Type = 0x05
	TypeLeafIndex     Type = 0x0a
	TypeLeafTable     Type = 0x0d
)

func (t Type) IsLeaf() bool {
	return t == TypeLeafIndex || t == TypeLeafTable
}

func (t Type) IsInterior() bool {
	return t == TypeInteriorIndex || t == TypeInteriorTable
}

func (t Type) valid() bool {
	switch t {
	case TypeInteriorIndex, TypeInteriorTable, TypeLeafIndex, TypeLeafTable:
		return true
	default:
		return false
	}
}

// LeafTableCell is a table B-tree leaf cell: a row keyed by rowid.
type LeafTableCell struct {
	RowID  int64
	Record Record
}

// InteriorTableCell is a table B-tree interior cell: rowid is the
// inclusive maximum rowid reachable through LeftChildPage.
type InteriorTableCell struct {
	LeftChildPage uint32
	RowID         int64
}

// LeafIndexCell is an index B-tree leaf cell: key columns followed by
// a trailing rowid column, both folded into Record.
type LeafIndexCell struct {
	Record Record
}

// InteriorIndexCell is an index B-tree interior cell.
type InteriorIndexCell struct {
	LeftChildPage uint32
	Record        Record
}

// Page is the decoded form of one on-disk page: an exclusive tagged
// union over the four page kinds. Exactly one of the cell slices
// below is populated, selected by Type.
type Page struct {
	Type               Type
	RightmostChild     uint32 // only for interior pages
	LeafTableCells     []LeafTableCell
	InteriorTableCells []InteriorTableCell
	LeafIndexCells     []LeafIndexCell
	InteriorIndexCells []InteriorIndexCell
}

// headerSize returns the page header length in bytes: 8 for leaves,
// 12 for interiors (which carry the rightmost-child pointer).
func (t Type) headerSize() int {
	if t.IsInterior() {
		return 12
	}
	return 8
}

// Read decodes the page found at pageOffset within r, where the page
// occupies exactly pageSize bytes and its header begins headerOffset
// bytes into that region (0 for every page but the first, which is
// shifted by the 100-byte file header).
func Read(ctx context.Context, r io.ReaderAt, pageOffset int64, headerOffset int, pageSize int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	buf := make([]byte, pageSize)
	n, err := r.ReadAt(buf, pageOffset)
	if err != nil && !(err == io.EOF && n == pageSize) {
		return Page{}, fmt.Errorf("%w: page at offset %d: %v", ErrShortRead, pageOffset, err)
	}

	if headerOffset+8 > len(buf) {
		return Page{}, fmt.Errorf("%w: header offset %d exceeds page size %d", ErrCorruptPageHeader, headerOffset, len(buf))
	}

	pageType := Type(buf[headerOffset])
	if !pageType.valid() {
		return Page{}, fmt.Errorf("%w: 0x%02x", ErrCorruptPageType, buf[headerOffset])
	}

	hdrSize := pageType.headerSize()
	if headerOffset+hdrSize > len(buf) {
		return Page{}, fmt.Errorf("%w: page too small for %d-byte header", ErrCorruptPageHeader, hdrSize)
	}

	numCells := int(binary.BigEndian.Uint16(buf[headerOffset+3 : headerOffset+5]))

	var rightmost uint32
	if pageType.IsInterior() {
		rightmost = binary.BigEndian.Uint32(buf[headerOffset+8 : headerOffset+12])
	}

	pointerArrayStart := headerOffset + hdrSize
	cellPointers := make([]int, numCells)
	for i := 0; i < numCells; i++ {
		off := pointerArrayStart + i*2
		if off+2 > len(buf) {
			return Page{}, fmt.Errorf("%w: cell pointer %d at byte %d", ErrInvalidCellPointer, i, off)
		}
		ptr := int(binary.BigEndian.Uint16(buf[off : off+2]))
		if ptr < 0 || ptr >= len(buf) {
			return Page{}, fmt.Errorf("%w: pointer %d out of page bounds", ErrInvalidCellPointer, ptr)
		}
		cellPointers[i] = ptr
	}

	p := Page{Type: pageType, RightmostChild: rightmost}

	switch pageType {
	case TypeLeafTable:
		p.LeafTableCells = make([]LeafTableCell, numCells)
		for i, ptr := range cellPointers {
			cell, err := decodeLeafTableCell(buf, ptr)
			if err != nil {
				return Page{}, fmt.Errorf("leaf table cell %d: %w", i, err)
			}
			p.LeafTableCells[i] = cell
		}
	case TypeInteriorTable:
		p.InteriorTableCells = make([]InteriorTableCell, numCells)
		for i, ptr := range cellPointers {
			cell, err := decodeInteriorTableCell(buf, ptr)
			if err != nil {
				return Page{}, fmt.Errorf("interior table cell %d: %w", i, err)
			}
			p.InteriorTableCells[i] = cell
		}
	case TypeLeafIndex:
		p.LeafIndexCells = make([]LeafIndexCell, numCells)
		for i, ptr := range cellPointers {
			cell, err := decodeLeafIndexCell(buf, ptr)
			if err != nil {
				return Page{}, fmt.Errorf("leaf index cell %d: %w", i, err)
			}
			p.LeafIndexCells[i] = cell
		}
	case TypeInteriorIndex:
		p.InteriorIndexCells = make([]InteriorIndexCell, numCells)
		for i, ptr := range cellPointers {
			cell, err := decodeInteriorIndexCell(buf, ptr)
			if err != nil {
				return Page{}, fmt.Errorf("interior index cell %d: %w", i, err)
			}
			p.InteriorIndexCells[i] = cell
		}
	}

	return p, nil
}

func decodeLeafTableCell(buf []byte, offset int) (LeafTableCell, error) {
	payloadSize, next := varint.DecodeAt(buf, offset)
	rowID, payloadStart := varint.DecodeAt(buf, next)
	if payloadStart+int(payloadSize) > len(buf) {
		return LeafTableCell{}, fmt.Errorf("%w: payload of %d bytes at %d overruns page", ErrShortRead, payloadSize, payloadStart)
	}
	rec, _, err := DecodeRecord(buf[payloadStart : payloadStart+int(payloadSize)])
	if err != nil {
		return LeafTableCell{}, err
	}
	return LeafTableCell{RowID: rowID, Record: rec}, nil
}

func decodeInteriorTableCell(buf []byte, offset int) (InteriorTableCell, error) {
	if offset+4 > len(buf) {
		return InteriorTableCell{}, fmt.Errorf("%w: interior cell at %d", ErrShortRead, offset)
	}
	child := binary.BigEndian.Uint32(buf[offset : offset+4])
	if child == 0 {
		return InteriorTableCell{}, ErrNegativePageIndex
	}
	rowID, _ := varint.DecodeAt(buf, offset+4)
	return InteriorTableCell{LeftChildPage: child, RowID: rowID}, nil
}

func decodeLeafIndexCell(buf []byte, offset int) (LeafIndexCell, error) {
	payloadSize, payloadStart := varint.DecodeAt(buf, offset)
	if payloadStart+int(payloadSize) > len(buf) {
		return LeafIndexCell{}, fmt.Errorf("%w: payload of %d bytes at %d overruns page", ErrShortRead, payloadSize, payloadStart)
	}
	rec, _, err := DecodeRecord(buf[payloadStart : payloadStart+int(payloadSize)])
	if err != nil {
		return LeafIndexCell{}, err
	}
	return LeafIndexCell{Record: rec}, nil
}

func decodeInteriorIndexCell(buf []byte, offset int) (InteriorIndexCell, error) {
	if offset+4 > len(buf) {
		return InteriorIndexCell{}, fmt.Errorf("%w: interior cell at %d", ErrShortRead, offset)
	}
	child := binary.BigEndian.Uint32(buf[offset : offset+4])
	if child == 0 {
		return InteriorIndexCell{}, ErrNegativePageIndex
	}
	payloadSize, payloadStart := varint.DecodeAt(buf, offset+4)
	if payloadStart+int(payloadSize) > len(buf) {
		return InteriorIndexCell{}, fmt.Errorf("%w: payload of %d bytes at %d overruns page", ErrShortRead, payloadSize, payloadStart)
	}
	rec, _, err := DecodeRecord(buf[payloadStart : payloadStart+int(payloadSize)])
	if err != nil {
		return InteriorIndexCell{}, err
	}
	return InteriorIndexCell{LeftChildPage: child, Record: rec}, nil
}
