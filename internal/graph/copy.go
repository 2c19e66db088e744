package graph

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
)

// Delimiters of the bulk file format. Relationship files use '|' so they
// are never mistaken for node files. String cells escape backslash and CR
// as `\\` and `\r`; csv.Reader folds CRLF inside quoted fields to LF.
const (
	NodeDelimiter = ','
	RelDelimiter  = '|'
)

// CopyTo writes every instance of a node label or relationship type to w
// as headerless delimited text. Node rows are id followed by the declared
// columns; relationship rows are from, to, then the declared columns.
func (e *Engine) CopyTo(ctx context.Context, name string, w io.Writer) (int, error) {
	var (
		query string
		cols  []Column
		keys  int
		comma rune
	)
	if nt, ok := e.schema.Node(name); ok {
		query = fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
			strings.Join(append([]string{"id"}, quoteAll(columnNames(nt.Columns))...), ", "), ident(name))
		cols, keys, comma = nt.Columns, 1, NodeDelimiter
	} else if rt, ok := e.schema.Rel(name); ok {
		query = fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
			strings.Join(append([]string{"from_id", "to_id"}, quoteAll(columnNames(rt.Columns))...), ", "), ident(name))
		cols, keys, comma = rt.Columns, 2, RelDelimiter
	} else {
		return 0, apperr.Validation(fmt.Sprintf("copy to: unknown table %q", name), nil)
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("copy %s to: %w", name, err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	cw.Comma = comma
	n := 0
	for rows.Next() {
		raw := make([]any, keys+len(cols))
		dest := make([]any, len(raw))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return n, fmt.Errorf("copy %s to: %w", name, err)
		}
		record := make([]string, len(raw))
		for i := 0; i < keys; i++ {
			record[i] = escapeCell(fmt.Sprint(fromSQL(Column{Type: TypeString}, raw[i])))
		}
		for i, col := range cols {
			record[keys+i] = formatCell(fromSQL(col, raw[keys+i]))
		}
		if err := cw.Write(record); err != nil {
			return n, fmt.Errorf("copy %s to: %w", name, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("copy %s to: %w", name, err)
	}
	e.logger.Debug("copied table out", "table", name, "rows", n)
	return n, nil
}

// CopyFrom appends the rows of a CopyTo file to a table in one
// transaction. Relationship endpoints are not checked, so node and
// relationship files may be loaded in any order.
func (e *Engine) CopyFrom(ctx context.Context, name string, r io.Reader) (int, error) {
	var (
		cols  []Column
		keys  int
		comma rune
		rt    RelTable
		node  bool
	)
	if nt, ok := e.schema.Node(name); ok {
		cols, keys, comma, node = nt.Columns, 1, NodeDelimiter, true
	} else if t, ok := e.schema.Rel(name); ok {
		rt = t
		cols, keys, comma = t.Columns, 2, RelDelimiter
	} else {
		return 0, apperr.Validation(fmt.Sprintf("copy from: unknown table %q", name), nil)
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = keys + len(cols)

	n := 0
	err := e.Tx(ctx, func(c *Conn) error {
		for {
			record, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return apperr.Validation(fmt.Sprintf("copy %s from: line %d", name, n+1), err)
			}
			props := make(Props, len(cols))
			for i, col := range cols {
				v, err := parseCell(col, record[keys+i])
				if err != nil {
					return apperr.Validation(fmt.Sprintf("copy %s from: line %d: %s", name, n+1, col.Name), err)
				}
				props[col.Name] = v
			}
			if node {
				err = c.CreateNode(ctx, name, unescapeCell(record[0]), props)
			} else {
				err = c.insertRel(ctx, rt, unescapeCell(record[0]), unescapeCell(record[1]), props)
			}
			if err != nil {
				return fmt.Errorf("copy %s from: line %d: %w", name, n+1, err)
			}
			n++
		}
	})
	if err != nil {
		return 0, err
	}
	e.logger.Debug("copied table in", "table", name, "rows", n)
	return n, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return escapeCell(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func parseCell(col Column, s string) (any, error) {
	if s == "" && col.Nullable {
		return nil, nil
	}
	switch col.Type {
	case TypeInt:
		return strconv.ParseInt(s, 10, 64)
	case TypeBool:
		return strconv.ParseBool(s)
	default:
		return unescapeCell(s), nil
	}
}

var cellEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}

// unescapeCell reverses escapeCell. Unknown escapes are kept verbatim.
func unescapeCell(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case 'r':
				b.WriteByte('\r')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
