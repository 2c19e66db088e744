// Package graph is the graph store: an embedded property graph kept in
// SQLite, and the repositories that read and write scenario structure
// through it.
//
// Every node label is a table keyed by id and every relationship type is a
// table of (from_id, to_id, properties). Graph statements map onto Conn
// methods: CreateNode and CreateRel for CREATE, SetNode and SetRels for SET,
// DetachDelete for DETACH DELETE, and CopyTo/CopyFrom for bulk file I/O.
// Repositories MATCH with plain SQL joins over the label tables.
package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
)

// ErrNoFieldsToUpdate rejects a SET with nothing to set.
var ErrNoFieldsToUpdate = apperr.Validation("no fields to update", nil)

// Props are the property values of a node or relationship. Values are
// string, int64, bool or nil once read back from a table.
type Props map[string]any

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn runs graph statements against the database or an open transaction.
type Conn struct {
	q      querier
	schema *Schema
}

// Engine owns the graph database.
type Engine struct {
	Conn
	db     *sql.DB
	logger *slog.Logger
}

// OpenMemory opens an in-memory engine with the default schema.
func OpenMemory(logger *slog.Logger) (*Engine, error) {
	return Open(":memory:", DefaultSchema(), logger)
}

// Open opens the engine at dsn. CreateSchema must run before the first
// statement.
func Open(dsn string, s Schema, logger *slog.Logger) (*Engine, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open graph db: %w", err)
	}
	// ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping graph db: %w", err)
	}
	schemaCopy := s
	return &Engine{
		Conn:   Conn{q: db, schema: &schemaCopy},
		db:     db,
		logger: logging.Or(logger),
	}, nil
}

// Close closes the database.
func (e *Engine) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Schema returns the declared tables.
func (e *Engine) Schema() Schema {
	return *e.schema
}

// CreateSchema creates every node and relationship table. Safe to call
// more than once.
func (e *Engine) CreateSchema(ctx context.Context) error {
	var stmts []string
	for _, n := range e.schema.Nodes {
		cols := []string{"id TEXT PRIMARY KEY"}
		for _, c := range n.Columns {
			cols = append(cols, ident(c.Name)+" "+c.Type.sqlType())
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident(n.Label), strings.Join(cols, ", ")))
	}
	for _, r := range e.schema.Rels {
		cols := []string{"from_id TEXT NOT NULL", "to_id TEXT NOT NULL"}
		for _, c := range r.Columns {
			cols = append(cols, ident(c.Name)+" "+c.Type.sqlType())
		}
		stmts = append(stmts,
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident(r.Type), strings.Join(cols, ", ")),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(from_id)", ident("idx_"+r.Type+"_from"), ident(r.Type)),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(to_id)", ident("idx_"+r.Type+"_to"), ident(r.Type)),
		)
	}
	for _, stmt := range stmts {
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	e.logger.Debug("graph schema ready", "nodes", len(e.schema.Nodes), "rels", len(e.schema.Rels))
	return nil
}

// Tx runs fn in one transaction. fn's Conn must not escape.
func (e *Engine) Tx(ctx context.Context, fn func(c *Conn) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Conn{q: tx, schema: e.schema}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DetachDelete removes a node and its incident edges atomically.
func (e *Engine) DetachDelete(ctx context.Context, label, id string) error {
	return e.Tx(ctx, func(c *Conn) error {
		return c.DetachDelete(ctx, label, id)
	})
}

// =============================================================================
// Raw access
// =============================================================================

// Exec runs a statement.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, query, args...)
}

// Query runs a query.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, query, args...)
}

// QueryRow runs a query returning at most one row.
func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, query, args...)
}

// =============================================================================
// Nodes
// =============================================================================

// Exists reports whether a node exists.
func (c *Conn) Exists(ctx context.Context, label, id string) (bool, error) {
	if _, err := c.nodeTable(label); err != nil {
		return false, err
	}
	var n int
	err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ident(label)+" WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("match %s %s: %w", label, id, err)
	}
	return n > 0, nil
}

// Count returns the number of nodes with label.
func (c *Conn) Count(ctx context.Context, label string) (int, error) {
	if _, err := c.nodeTable(label); err != nil {
		return 0, err
	}
	var n int
	if err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ident(label)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", label, err)
	}
	return n, nil
}

// CreateNode inserts a node. An existing id is a conflict.
func (c *Conn) CreateNode(ctx context.Context, label, id string, props Props) error {
	return c.insertNode(ctx, label, id, props, false)
}

// MergeNode inserts a node or overwrites the given properties of an
// existing one.
func (c *Conn) MergeNode(ctx context.Context, label, id string, props Props) error {
	return c.insertNode(ctx, label, id, props, true)
}

func (c *Conn) insertNode(ctx context.Context, label, id string, props Props, merge bool) error {
	nt, err := c.nodeTable(label)
	if err != nil {
		return err
	}
	if id == "" {
		return apperr.Validation("create "+label+": id is required", nil)
	}
	names, values, err := bindProps(label, nt.Columns, props)
	if err != nil {
		return err
	}

	cols := append([]string{"id"}, quoteAll(names)...)
	args := append([]any{id}, values...)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", ident(label), strings.Join(cols, ", "), placeholders(len(args)))
	if merge && len(names) > 0 {
		sets := make([]string, len(names))
		for i, n := range names {
			sets[i] = fmt.Sprintf("%s = excluded.%s", ident(n), ident(n))
		}
		query += " ON CONFLICT(id) DO UPDATE SET " + strings.Join(sets, ", ")
	} else if merge {
		query += " ON CONFLICT(id) DO NOTHING"
	}

	if _, err := c.q.ExecContext(ctx, query, args...); err != nil {
		if isConstraint(err) {
			return apperr.Conflict(fmt.Sprintf("create %s %s: already exists", label, id), err)
		}
		return fmt.Errorf("create %s %s: %w", label, id, err)
	}
	return nil
}

// SetNode updates the given properties of a node. Empty props fail with
// ErrNoFieldsToUpdate; a missing node is not-found.
func (c *Conn) SetNode(ctx context.Context, label, id string, props Props) error {
	nt, err := c.nodeTable(label)
	if err != nil {
		return err
	}
	if len(props) == 0 {
		return fmt.Errorf("set %s %s: %w", label, id, ErrNoFieldsToUpdate)
	}
	names, values, err := bindProps(label, nt.Columns, props)
	if err != nil {
		return err
	}
	res, err := c.q.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", ident(label), assignments(names)),
		append(values, id)...)
	if err != nil {
		return fmt.Errorf("set %s %s: %w", label, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("set %s %s: not found", label, id)
	}
	return nil
}

// DetachDelete removes every edge touching the node, then the node.
// Deleting an absent node is not an error.
func (c *Conn) DetachDelete(ctx context.Context, label, id string) error {
	if _, err := c.nodeTable(label); err != nil {
		return err
	}
	for _, rt := range c.schema.Touching(label) {
		var cond []string
		var args []any
		if rt.From == label {
			cond = append(cond, "from_id = ?")
			args = append(args, id)
		}
		if rt.To == label {
			cond = append(cond, "to_id = ?")
			args = append(args, id)
		}
		query := "DELETE FROM " + ident(rt.Type) + " WHERE " + strings.Join(cond, " OR ")
		if _, err := c.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("detach %s %s from %s: %w", label, id, rt.Type, err)
		}
	}
	if _, err := c.q.ExecContext(ctx, "DELETE FROM "+ident(label)+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete %s %s: %w", label, id, err)
	}
	return nil
}

// NodeProps returns every property of a node, or nil when absent.
func (c *Conn) NodeProps(ctx context.Context, label, id string) (Props, error) {
	nt, err := c.nodeTable(label)
	if err != nil {
		return nil, err
	}
	cols := columnNames(nt.Columns)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(quoteAll(cols), ", "), ident(label))
	if len(cols) == 0 {
		query = fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", ident(label))
	}
	rows, err := c.q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("match %s %s: %w", label, id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	if len(cols) == 0 {
		return Props{}, nil
	}
	vals, err := scanRow(rows, nt.Columns)
	if err != nil {
		return nil, fmt.Errorf("scan %s %s: %w", label, id, err)
	}
	return vals, nil
}

// =============================================================================
// Relationships
// =============================================================================

// Rel is one relationship instance.
type Rel struct {
	From  string
	To    string
	Props Props
}

// RelMatch selects relationships. Empty fields match everything; FromIn
// and ToIn restrict endpoints to a set (an empty non-nil set matches
// nothing).
type RelMatch struct {
	From   string
	To     string
	FromIn []string
	ToIn   []string
	Props  Props
}

func (m RelMatch) where(label string, cols []Column) (string, []any, error) {
	var cond []string
	var args []any
	if m.From != "" {
		cond = append(cond, "from_id = ?")
		args = append(args, m.From)
	}
	if m.To != "" {
		cond = append(cond, "to_id = ?")
		args = append(args, m.To)
	}
	for _, in := range []struct {
		col string
		ids []string
	}{{"from_id", m.FromIn}, {"to_id", m.ToIn}} {
		if in.ids == nil {
			continue
		}
		if len(in.ids) == 0 {
			cond = append(cond, "0")
			continue
		}
		cond = append(cond, in.col+" IN ("+placeholders(len(in.ids))+")")
		for _, id := range in.ids {
			args = append(args, id)
		}
	}
	names, values, err := bindProps(label, cols, m.Props)
	if err != nil {
		return "", nil, err
	}
	for i, n := range names {
		cond = append(cond, ident(n)+" = ?")
		args = append(args, values[i])
	}
	if len(cond) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(cond, " AND "), args, nil
}

// CreateRel creates a relationship. Both endpoints must exist.
func (c *Conn) CreateRel(ctx context.Context, relType, from, to string, props Props) error {
	rt, err := c.relTable(relType)
	if err != nil {
		return err
	}
	for _, end := range []struct{ label, id string }{{rt.From, from}, {rt.To, to}} {
		ok, err := c.Exists(ctx, end.label, end.id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFoundf("create %s: %s %s not found", relType, end.label, end.id)
		}
	}
	return c.insertRel(ctx, rt, from, to, props)
}

func (c *Conn) insertRel(ctx context.Context, rt RelTable, from, to string, props Props) error {
	names, values, err := bindProps(rt.Type, rt.Columns, props)
	if err != nil {
		return err
	}
	cols := append([]string{"from_id", "to_id"}, quoteAll(names)...)
	args := append([]any{from, to}, values...)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", ident(rt.Type), strings.Join(cols, ", "), placeholders(len(args)))
	if _, err := c.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create %s %s->%s: %w", rt.Type, from, to, err)
	}
	return nil
}

// RelExists reports whether any relationship matches.
func (c *Conn) RelExists(ctx context.Context, relType string, m RelMatch) (bool, error) {
	rt, err := c.relTable(relType)
	if err != nil {
		return false, err
	}
	where, args, err := m.where(relType, rt.Columns)
	if err != nil {
		return false, err
	}
	var n int
	if err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+ident(relType)+where, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("match %s: %w", relType, err)
	}
	return n > 0, nil
}

// SetRels updates properties on every matching relationship and returns
// how many matched.
func (c *Conn) SetRels(ctx context.Context, relType string, m RelMatch, props Props) (int64, error) {
	rt, err := c.relTable(relType)
	if err != nil {
		return 0, err
	}
	if len(props) == 0 {
		return 0, fmt.Errorf("set %s: %w", relType, ErrNoFieldsToUpdate)
	}
	names, values, err := bindProps(relType, rt.Columns, props)
	if err != nil {
		return 0, err
	}
	where, args, err := m.where(relType, rt.Columns)
	if err != nil {
		return 0, err
	}
	res, err := c.q.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s%s", ident(relType), assignments(names), where),
		append(values, args...)...)
	if err != nil {
		return 0, fmt.Errorf("set %s: %w", relType, err)
	}
	return res.RowsAffected()
}

// DeleteRels deletes every matching relationship and returns how many
// were removed.
func (c *Conn) DeleteRels(ctx context.Context, relType string, m RelMatch) (int64, error) {
	rt, err := c.relTable(relType)
	if err != nil {
		return 0, err
	}
	where, args, err := m.where(relType, rt.Columns)
	if err != nil {
		return 0, err
	}
	res, err := c.q.ExecContext(ctx, "DELETE FROM "+ident(relType)+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", relType, err)
	}
	return res.RowsAffected()
}

// Rels returns every matching relationship in insertion order.
func (c *Conn) Rels(ctx context.Context, relType string, m RelMatch) ([]Rel, error) {
	rt, err := c.relTable(relType)
	if err != nil {
		return nil, err
	}
	where, args, err := m.where(relType, rt.Columns)
	if err != nil {
		return nil, err
	}
	cols := append([]string{"from_id", "to_id"}, quoteAll(columnNames(rt.Columns))...)
	rows, err := c.q.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s%s ORDER BY rowid", strings.Join(cols, ", "), ident(relType), where), args...)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", relType, err)
	}
	defer rows.Close()

	out := []Rel{}
	for rows.Next() {
		var r Rel
		dest := make([]any, 2+len(rt.Columns))
		dest[0], dest[1] = &r.From, &r.To
		raw := make([]any, len(rt.Columns))
		for i := range raw {
			dest[2+i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", relType, err)
		}
		r.Props = make(Props, len(rt.Columns))
		for i, col := range rt.Columns {
			r.Props[col.Name] = fromSQL(col, raw[i])
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Conn) nodeTable(label string) (NodeTable, error) {
	nt, ok := c.schema.Node(label)
	if !ok {
		return NodeTable{}, apperr.Validation(fmt.Sprintf("unknown node label %q", label), nil)
	}
	return nt, nil
}

func (c *Conn) relTable(relType string) (RelTable, error) {
	rt, ok := c.schema.Rel(relType)
	if !ok {
		return RelTable{}, apperr.Validation(fmt.Sprintf("unknown relationship type %q", relType), nil)
	}
	return rt, nil
}

// bindProps converts props to column values in a stable order.
func bindProps(table string, cols []Column, props Props) ([]string, []any, error) {
	if len(props) == 0 {
		return nil, nil, nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]any, len(names))
	for i, name := range names {
		col, ok := findColumn(cols, name)
		if !ok {
			return nil, nil, apperr.Validation(fmt.Sprintf("%s has no property %q", table, name), nil)
		}
		v, err := toSQL(col, props[name])
		if err != nil {
			return nil, nil, apperr.Validation(fmt.Sprintf("%s.%s: %v", table, name, err), nil)
		}
		values[i] = v
	}
	return names, values, nil
}

func findColumn(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func toSQL(col Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch col.Type {
	case TypeString:
		switch s := v.(type) {
		case string:
			return s, nil
		case *string:
			if s == nil {
				return nil, nil
			}
			return *s, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case *int:
			if n == nil {
				return nil, nil
			}
			return int64(*n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("%v is not an integer", n)
			}
			return int64(n), nil
		}
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case *bool:
			if b == nil {
				return nil, nil
			}
			return *b, nil
		}
	}
	return nil, fmt.Errorf("cannot store %T as %s", v, col.Type)
}

func fromSQL(col Column, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		if col.Nullable {
			return nil
		}
		switch col.Type {
		case TypeInt:
			return int64(0)
		case TypeBool:
			return false
		default:
			return ""
		}
	}
	switch col.Type {
	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b
		case int64:
			return b != 0
		}
	case TypeInt:
		switch n := v.(type) {
		case int64:
			return n
		case float64:
			return int64(n)
		}
	case TypeString:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return v
}

func scanRow(rows *sql.Rows, cols []Column) (Props, error) {
	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	props := make(Props, len(cols))
	for i, col := range cols {
		props[col.Name] = fromSQL(col, raw[i])
	}
	return props, nil
}

func columnNames(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ident(n)
	}
	return out
}

func assignments(names []string) string {
	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = ident(n) + " = ?"
	}
	return strings.Join(sets, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isConstraint(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT)
}
