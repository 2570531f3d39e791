package page

import (
	"fmt"
	"unicode/utf8"

	"github.com/hgye/pagereader/internal/varint"
)

// Record is a decoded row/index-entry payload: a serial type per
// column plus its decoded value, in column order.
type Record struct {
	SerialTypes []int64
	Values      []Value
}

// DecodeRecord parses a record body per spec.md §3: a varint header
// size (counting itself), that many bytes of serial-type varints, then
// the column bodies in order. Returns the record and the number of
// bytes of payload consumed.
func DecodeRecord(payload []byte) (Record, int, error) {
	headerSize, bodyStart := varint.DecodeAt(payload, 0)
	if headerSize < 1 || int(headerSize) > len(payload) {
		return Record{}, 0, fmt.Errorf("%w: record header size %d exceeds payload length %d", ErrCorruptPageHeader, headerSize, len(payload))
	}

	var serialTypes []int64
	offset := bodyStart
	for offset < int(headerSize) {
		st, next := varint.DecodeAt(payload, offset)
		serialTypes = append(serialTypes, st)
		offset = next
	}

	values := make([]Value, len(serialTypes))
	bodyOffset := int(headerSize)
	for i, st := range serialTypes {
		size, ok := serialTypeBodySize(st)
		if !ok {
			return Record{}, 0, fmt.Errorf("%w: serial type %d", ErrUnknownSerialType, st)
		}
		if bodyOffset+size > len(payload) {
			return Record{}, 0, fmt.Errorf("%w: column %d needs %d bytes at offset %d, payload is %d bytes", ErrShortRead, i, size, bodyOffset, len(payload))
		}
		body := payload[bodyOffset : bodyOffset+size]
		if st >= 13 && st%2 == 1 && !utf8.Valid(body) {
			return Record{}, 0, fmt.Errorf("%w: column %d", ErrBadUTF8, i)
		}
		v, err := decodeValue(st, body)
		if err != nil {
			return Record{}, 0, err
		}
		values[i] = v
		bodyOffset += size
	}

	return Record{SerialTypes: serialTypes, Values: values}, bodyOffset, nil
}
