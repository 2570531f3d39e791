package page

import "errors"

// Error kinds from spec.md §7 owned by the page-decoding layer.
var (
	ErrCorruptPageType    = errors.New("corrupt page type")
	ErrCorruptPageHeader  = errors.New("corrupt page header")
	ErrShortRead          = errors.New("short read")
	ErrBadUTF8            = errors.New("invalid utf-8 in text column")
	ErrUnknownSerialType  = errors.New("unknown or unsupported serial type")
	ErrBadVarint          = errors.New("invalid varint")
	ErrNegativePageIndex  = errors.New("negative or zero page index")
	ErrInvalidCellPointer = errors.New("cell pointer out of range")
)
