// Package varint decodes the file format's variable-length integer
// encoding: 1-9 bytes, high bit of bytes 0-7 is a continuation flag, the
// 9th byte contributes all 8 of its bits.
package varint

// Decode reads a varint from the front of b and returns its value and
// the number of bytes consumed (1-9). b must have at least 9 bytes, or
// enough bytes to cover the encoded value if shorter than 9.
func Decode(b []byte) (value int64, consumed int) {
	var result uint64
	for i := 0; i < 8 && i < len(b); i++ {
		c := b[i]
		result = (result << 7) | uint64(c&0x7f)
		if c&0x80 == 0 {
			return int64(result), i + 1
		}
	}
	if len(b) >= 9 {
		result = (result << 8) | uint64(b[8])
		return int64(result), 9
	}
	return int64(result), len(b)
}

// DecodeAt decodes a varint starting at offset within b, returning the
// decoded value and the offset immediately past it.
func DecodeAt(b []byte, offset int) (value int64, next int) {
	end := offset + 9
	if end > len(b) {
		end = len(b)
	}
	v, n := Decode(b[offset:end])
	return v, offset + n
}
