package catalog

import (
	"fmt"
	"strings"
)

// tokenizeColumnList splits the parenthesized column-definition list of
// a CREATE TABLE/INDEX statement on top-level commas, respecting
// nested parens (e.g. DECIMAL(10,2) type clauses) and quoted
// identifiers that might themselves contain commas. This replaces the
// single-regex approach original_source/src/query.rs takes, per the
// REDESIGN FLAG against fragile regex-based schema parsing.
func tokenizeColumnList(sql string) ([]string, error) {
	open := strings.IndexByte(sql, '(')
	if open == -1 {
		return nil, fmt.Errorf("%w: no '(' in %q", errBadSQL, sql)
	}
	depth := 0
	close := -1
	for i := open; i < len(sql); i++ {
		switch sql[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				close = i
			}
		}
		if close != -1 {
			break
		}
	}
	if close == -1 {
		return nil, fmt.Errorf("%w: unbalanced parens in %q", errBadSQL, sql)
	}

	body := sql[open+1 : close]

	var parts []string
	var cur strings.Builder
	parenDepth := 0
	var quote byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
			cur.WriteByte(c)
		case c == '(':
			parenDepth++
			cur.WriteByte(c)
		case c == ')':
			parenDepth--
			cur.WriteByte(c)
		case c == ',' && parenDepth == 0:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		parts = append(parts, s)
	}
	return parts, nil
}

// leadingIdentifier extracts the first identifier token from a column
// definition, stripping surrounding quotes/brackets/backticks.
func leadingIdentifier(def string) (name string, rest string, ok bool) {
	def = strings.TrimSpace(def)
	if def == "" {
		return "", "", false
	}
	switch def[0] {
	case '"', '`':
		q := def[0]
		end := strings.IndexByte(def[1:], q)
		if end == -1 {
			return "", "", false
		}
		return def[1 : 1+end], strings.TrimSpace(def[2+end:]), true
	case '[':
		end := strings.IndexByte(def, ']')
		if end == -1 {
			return "", "", false
		}
		return def[1:end], strings.TrimSpace(def[end+1:]), true
	default:
		i := 0
		for i < len(def) && !isSpace(def[i]) && def[i] != '(' {
			i++
		}
		if i == 0 {
			return "", "", false
		}
		return def[:i], strings.TrimSpace(def[i:]), true
	}
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// tableConstraintKeywords are leading identifiers that mark a
// table-level constraint clause, not a column definition.
var tableConstraintKeywords = map[string]bool{
	"PRIMARY":    true,
	"FOREIGN":    true,
	"UNIQUE":     true,
	"CHECK":      true,
	"CONSTRAINT": true,
}

// ColumnDef is a single parsed column declaration.
type ColumnDef struct {
	Name string
	// IsRowIDAlias is true when this column is declared
	// "INTEGER PRIMARY KEY", making it an alias for the table's rowid
	// (spec.md §4.6): its stored value is always NULL and the row id
	// itself is the projected value.
	IsRowIDAlias bool
}

// ParseCreateTableColumnDefs extracts column declarations, in
// declaration order, from a
// `CREATE TABLE name (col1 type ..., col2 ..., PRIMARY KEY(...))`
// statement. Type clauses and trailing per-column constraints are
// parsed only far enough to detect the INTEGER PRIMARY KEY rowid
// alias; table-level constraint clauses are skipped.
func ParseCreateTableColumnDefs(sql string) ([]ColumnDef, error) {
	parts, err := tokenizeColumnList(sql)
	if err != nil {
		return nil, err
	}
	var defs []ColumnDef
	for _, part := range parts {
		name, rest, ok := leadingIdentifier(part)
		if !ok {
			continue
		}
		if tableConstraintKeywords[strings.ToUpper(name)] {
			continue
		}
		defs = append(defs, ColumnDef{
			Name:         name,
			IsRowIDAlias: isIntegerPrimaryKey(rest),
		})
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no columns parsed from %q", errBadSQL, sql)
	}
	return defs, nil
}

// isIntegerPrimaryKey reports whether a column's type-and-constraint
// tail declares it INTEGER PRIMARY KEY, in either constraint order and
// tolerating a trailing AUTOINCREMENT.
func isIntegerPrimaryKey(tail string) bool {
	upper := strings.ToUpper(tail)
	return strings.HasPrefix(strings.TrimSpace(upper), "INTEGER") &&
		strings.Contains(upper, "PRIMARY KEY")
}

// ParseCreateIndex extracts the index name, owning table name, and
// indexed column set from a
// `CREATE INDEX idx ON table (col1, col2, ...)` statement.
func ParseCreateIndex(sql string) (indexName, tableName string, columns []string, err error) {
	upper := strings.ToUpper(sql)
	onPos := strings.Index(upper, " ON ")
	if onPos == -1 {
		return "", "", nil, fmt.Errorf("%w: no ON clause in %q", errBadSQL, sql)
	}

	head := strings.TrimSpace(sql[:onPos])
	// head looks like "CREATE [UNIQUE] INDEX name" (possibly with
	// "IF NOT EXISTS"); take the last whitespace-separated token.
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return "", "", nil, fmt.Errorf("%w: empty index name in %q", errBadSQL, sql)
	}
	indexName = trimIdentQuotes(fields[len(fields)-1])

	rest := strings.TrimSpace(sql[onPos+4:])
	name, afterName, ok := leadingIdentifier(rest)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: no table name after ON in %q", errBadSQL, sql)
	}
	tableName = name

	parts, err := tokenizeColumnList(afterName)
	if err != nil {
		return "", "", nil, err
	}
	for _, part := range parts {
		colName, _, ok := leadingIdentifier(part)
		if ok {
			columns = append(columns, colName)
		}
	}
	if len(columns) == 0 {
		return "", "", nil, fmt.Errorf("%w: no indexed columns parsed from %q", errBadSQL, sql)
	}
	return indexName, tableName, columns, nil
}

func trimIdentQuotes(s string) string {
	if len(s) >= 2 {
		switch {
		case s[0] == '"' && s[len(s)-1] == '"':
			return s[1 : len(s)-1]
		case s[0] == '`' && s[len(s)-1] == '`':
			return s[1 : len(s)-1]
		case s[0] == '[' && s[len(s)-1] == ']':
			return s[1 : len(s)-1]
		}
	}
	return s
}
