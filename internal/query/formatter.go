package query

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hgye/pagereader/internal/page"
)

// ConsoleFormatter renders rows the way the accepted query shape's
// examples do: a lone column one value per line, multiple columns
// pipe-separated, per spec.md §8 examples 4 and 5.
type ConsoleFormatter struct {
	w io.Writer
}

// NewConsoleFormatter returns a ConsoleFormatter writing to w.
func NewConsoleFormatter(w io.Writer) *ConsoleFormatter {
	return &ConsoleFormatter{w: w}
}

func (f *ConsoleFormatter) FormatRow(values []string) string {
	return strings.Join(values, "|")
}

func (f *ConsoleFormatter) FormatCount(count int) string {
	return strconv.Itoa(count)
}

// WriteRow formats and writes one output row, terminated by a newline.
func (f *ConsoleFormatter) WriteRow(values []string) error {
	_, err := fmt.Fprintln(f.w, f.FormatRow(values))
	return err
}

// WriteCount formats and writes a COUNT(*) result.
func (f *ConsoleFormatter) WriteCount(count int) error {
	_, err := fmt.Fprintln(f.w, f.FormatCount(count))
	return err
}

// projectValue renders a single column for output, applying the
// rowid-alias substitution rule: a NULL value stored in the table's
// INTEGER PRIMARY KEY column is the row id itself (spec.md §4.6).
func projectValue(v page.Value, rowID int64, isRowIDAlias bool) string {
	if isRowIDAlias && v.IsNull() {
		return strconv.FormatInt(rowID, 10)
	}
	return v.String()
}
