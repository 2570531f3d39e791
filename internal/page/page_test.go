package page

import (
	"bytes"
	"context"
	"testing"
)

// encodeVarint encodes non-negative values up to 2^28-1 in at most 4
// bytes, sufficient for the small header sizes and row ids used here.
func encodeVarint(v int64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var groups []byte
	u := uint64(v)
	groups = append(groups, byte(u&0x7f))
	u >>= 7
	for u > 0 {
		groups = append([]byte{byte(u&0x7f) | 0x80}, groups...)
		u >>= 7
	}
	return groups
}

// buildRecord assembles a record payload from serial types and their
// already-encoded bodies, per spec.md §3.
func buildRecord(serialTypes []int64, bodies [][]byte) []byte {
	var typesBuf bytes.Buffer
	for _, st := range serialTypes {
		typesBuf.Write(encodeVarint(st))
	}
	headerSize := int64(1 + typesBuf.Len()) // header-size varint is 1 byte for our small fixtures
	var out bytes.Buffer
	out.Write(encodeVarint(headerSize))
	out.Write(typesBuf.Bytes())
	for _, b := range bodies {
		out.Write(b)
	}
	return out.Bytes()
}

func textColumn(s string) (serialType int64, body []byte) {
	return int64(13 + 2*len(s)), []byte(s)
}

// buildLeafTablePage constructs a full page buffer (pageSize bytes)
// containing a leaf-table page with the given (rowid, record) cells.
func buildLeafTablePage(pageSize int, rows []struct {
	rowID  int64
	record []byte
}) []byte {
	buf := make([]byte, pageSize)
	buf[0] = byte(TypeLeafTable)
	numCells := len(rows)
	buf[3] = byte(numCells >> 8)
	buf[4] = byte(numCells)

	// Lay out cell content back-to-front from the end of the page, and
	// cell pointers immediately after the 8-byte header.
	cellEnd := pageSize
	pointers := make([]int, numCells)
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		cell := append(encodeVarint(int64(len(row.record))), encodeVarint(row.rowID)...)
		cell = append(cell, row.record...)
		cellEnd -= len(cell)
		copy(buf[cellEnd:], cell)
		pointers[i] = cellEnd
	}

	for i, ptr := range pointers {
		off := 8 + i*2
		buf[off] = byte(ptr >> 8)
		buf[off+1] = byte(ptr)
	}
	return buf
}

func TestReadLeafTablePage(t *testing.T) {
	const pageSize = 512
	st1, b1 := textColumn("Granny Smith")
	st2, b2 := textColumn("Light Green")
	record := buildRecord([]int64{st1, st2}, [][]byte{b1, b2})

	pageBuf := buildLeafTablePage(pageSize, []struct {
		rowID  int64
		record []byte
	}{{rowID: 1, record: record}})

	r := bytes.NewReader(pageBuf)
	p, err := Read(context.Background(), r, 0, 0, pageSize)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if p.Type != TypeLeafTable {
		t.Fatalf("Type = %v, want leaf table", p.Type)
	}
	if len(p.LeafTableCells) != 1 {
		t.Fatalf("got %d cells, want 1", len(p.LeafTableCells))
	}
	cell := p.LeafTableCells[0]
	if cell.RowID != 1 {
		t.Fatalf("rowid = %d, want 1", cell.RowID)
	}
	name, ok := cell.Record.Values[0].Text()
	if !ok || name != "Granny Smith" {
		t.Fatalf("name = %q, ok=%v", name, ok)
	}
}

func TestReadPageWithHeaderOffset(t *testing.T) {
	const pageSize = 512
	record := buildRecord([]int64{1}, [][]byte{{42}})
	inner := buildLeafTablePage(pageSize-100, []struct {
		rowID  int64
		record []byte
	}{{rowID: 5, record: record}})

	full := make([]byte, pageSize)
	copy(full[100:], inner)
	// Cell pointers are relative to the start of the page, not to the
	// shifted header, so move the single pointer past the 100-byte prefix.
	ptr := (int(full[108])<<8 | int(full[109])) + 100
	full[108], full[109] = byte(ptr>>8), byte(ptr)

	r := bytes.NewReader(full)
	p, err := Read(context.Background(), r, 0, 100, pageSize)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(p.LeafTableCells) != 1 || p.LeafTableCells[0].RowID != 5 {
		t.Fatalf("unexpected cells: %+v", p.LeafTableCells)
	}
}

func TestReadRejectsBadPageType(t *testing.T) {
	buf := make([]byte, 512)
	buf[0] = 0xff
	_, err := Read(context.Background(), bytes.NewReader(buf), 0, 0, 512)
	if err == nil {
		t.Fatal("expected error for invalid page type")
	}
}

func TestInteriorTableHeader(t *testing.T) {
	const pageSize = 512
	buf := make([]byte, pageSize)
	buf[0] = byte(TypeInteriorTable)
	buf[3] = 0
	buf[4] = 1
	// rightmost child at bytes 8-11
	buf[8], buf[9], buf[10], buf[11] = 0, 0, 0, 7
	// one interior cell: child page 3, rowid 10, pointer array starts at 12
	cellOffset := 400
	buf[12] = byte(cellOffset >> 8)
	buf[13] = byte(cellOffset)
	buf[cellOffset], buf[cellOffset+1], buf[cellOffset+2], buf[cellOffset+3] = 0, 0, 0, 3
	copy(buf[cellOffset+4:], encodeVarint(10))

	p, err := Read(context.Background(), bytes.NewReader(buf), 0, 0, pageSize)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if p.RightmostChild != 7 {
		t.Fatalf("rightmost = %d, want 7", p.RightmostChild)
	}
	if len(p.InteriorTableCells) != 1 || p.InteriorTableCells[0].LeftChildPage != 3 || p.InteriorTableCells[0].RowID != 10 {
		t.Fatalf("unexpected cell: %+v", p.InteriorTableCells)
	}
}
