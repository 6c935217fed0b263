package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/resource"
	"github.com/artpar/anvil/core/schema"
)

// PlaceholderStyle selects how bind parameters are written.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2, ...
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name        string
	Placeholder PlaceholderStyle

	// NumericID and StringID are the primary key column definitions.
	NumericID string
	StringID  string

	// Column types per value family.
	Text      string
	Number    string
	Timestamp string

	// TimeArg converts a time bound parameter for the driver.
	TimeArg func(time.Time) any
}

// argList accumulates bind parameters and renders their placeholders.
type argList struct {
	style PlaceholderStyle
	args  []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	if a.style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(a.args))
	}
	return "?"
}

// quote wraps an identifier in double quotes. Identifiers are validated
// before they reach SQL.
func quote(ident string) string {
	return `"` + ident + `"`
}

// column family stored for a field.
type family int

const (
	familyText family = iota
	familyNumber
	familyDate
	familyID
)

// columnMapper is a schema.Visitor that maps form fields to column
// families. Hidden fields get no column.
type columnMapper struct {
	fam    family
	stored bool
}

func (c *columnMapper) set(f family) { c.fam, c.stored = f, true }

func (c *columnMapper) VisitText(schema.TextField)         { c.set(familyText) }
func (c *columnMapper) VisitEmail(schema.EmailField)       { c.set(familyText) }
func (c *columnMapper) VisitNumber(schema.NumberField)     { c.set(familyNumber) }
func (c *columnMapper) VisitDate(schema.DateField)         { c.set(familyDate) }
func (c *columnMapper) VisitSelect(schema.SelectField)     { c.set(familyText) }
func (c *columnMapper) VisitTextarea(schema.TextareaField) { c.set(familyText) }
func (c *columnMapper) VisitHidden(schema.HiddenField)     { c.stored = false }

type sqlColumn struct {
	name   string
	fam    family
	unique bool
}

type sqlTable struct {
	name    string
	idKind  resource.IDKind
	columns []sqlColumn // id first, timestamps last
	index   map[string]family
}

// SQLStore implements DataAccess and Provisioner over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time

	mu     sync.RWMutex
	tables map[string]*sqlTable
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		now:     time.Now,
		tables:  make(map[string]*sqlTable),
	}
}

// DB returns the underlying database connection.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns the store's dialect.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

// Close closes the database connection.
func (s *SQLStore) Close() error { return s.db.Close() }

// Ensure implements Provisioner. The table is named after the resource
// slug and holds one column per stored field of the create and edit forms.
func (s *SQLStore) Ensure(ctx context.Context, res *resource.Resource) error {
	t, err := buildTable(res)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.createTableSQL(t)); err != nil {
		return fmt.Errorf("create table %s: %w", t.name, err)
	}

	s.mu.Lock()
	s.tables[res.Model()] = t
	s.mu.Unlock()
	return nil
}

func buildTable(res *resource.Resource) (*sqlTable, error) {
	t := &sqlTable{
		name:   res.Slug(),
		idKind: res.IDKind(),
		index:  make(map[string]family),
	}
	if !schema.IsValidIdentifier(t.name) {
		return nil, fmt.Errorf("table name %q is not a valid identifier", t.name)
	}

	t.columns = append(t.columns, sqlColumn{name: ColumnID, fam: familyID})
	t.index[ColumnID] = familyID

	for _, ff := range res.Fields() {
		if ff.Name == ColumnID || ff.Name == ColumnCreatedAt || ff.Name == ColumnUpdatedAt {
			continue
		}
		var m columnMapper
		ff.Field.Accept(&m)
		if !m.stored {
			continue
		}
		if !schema.IsValidIdentifier(ff.Name) {
			return nil, fmt.Errorf("column name %q is not a valid identifier", ff.Name)
		}
		t.columns = append(t.columns, sqlColumn{name: ff.Name, fam: m.fam, unique: schema.IsUnique(ff.Field)})
		t.index[ff.Name] = m.fam
	}

	for _, name := range []string{ColumnCreatedAt, ColumnUpdatedAt} {
		t.columns = append(t.columns, sqlColumn{name: name, fam: familyDate})
		t.index[name] = familyDate
	}
	return t, nil
}

func (s *SQLStore) createTableSQL(t *sqlTable) string {
	defs := make([]string, 0, len(t.columns))
	var constraints []string
	for _, c := range t.columns {
		defs = append(defs, quote(c.name)+" "+s.columnType(c.fam, t.idKind))
		if c.unique {
			constraints = append(constraints, "UNIQUE ("+quote(c.name)+")")
		}
	}
	defs = append(defs, constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", quote(t.name), strings.Join(defs, ",\n  "))
}

func (s *SQLStore) columnType(f family, idKind resource.IDKind) string {
	switch f {
	case familyID:
		if idKind == resource.IDString {
			return s.dialect.StringID
		}
		return s.dialect.NumericID
	case familyNumber:
		return s.dialect.Number
	case familyDate:
		return s.dialect.Timestamp
	default:
		return s.dialect.Text
	}
}

// Model implements DataAccess.
func (s *SQLStore) Model(name string) (ModelClient, bool) {
	s.mu.RLock()
	t, ok := s.tables[name]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return &sqlModel{store: s, table: t}, true
}

type sqlModel struct {
	store *SQLStore
	table *sqlTable
}

func (m *sqlModel) args() *argList {
	return &argList{style: m.store.dialect.Placeholder}
}

func (m *sqlModel) selectList() string {
	cols := make([]string, len(m.table.columns))
	for i, c := range m.table.columns {
		cols[i] = quote(c.name)
	}
	return strings.Join(cols, ", ")
}

// arg converts a value into a driver parameter for column name.
func (m *sqlModel) arg(name string, v record.Value) any {
	fam := m.table.index[name]
	switch {
	case v.IsNull():
		return nil
	case fam == familyID && m.table.idKind == resource.IDNumeric:
		if n, ok := v.Float(); ok {
			return int64(n)
		}
		return v.Text()
	case fam == familyNumber:
		if n, ok := v.Float(); ok {
			return n
		}
		return v.Text()
	case fam == familyDate:
		if t, ok := v.AsDate(); ok {
			return m.store.dialect.TimeArg(t.UTC())
		}
		return v.Text()
	default:
		return v.Text()
	}
}

func (m *sqlModel) known(name string) error {
	if _, ok := m.table.index[name]; !ok {
		return fmt.Errorf("unknown column %q for table %s", name, m.table.name)
	}
	return nil
}

func (m *sqlModel) FindMany(ctx context.Context, args FindManyArgs) ([]record.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", m.selectList(), quote(m.table.name))

	if len(args.OrderBy) > 0 {
		terms := make([]string, 0, len(args.OrderBy))
		for _, o := range args.OrderBy {
			if err := m.known(o.Field); err != nil {
				return nil, err
			}
			dir := "ASC"
			if o.Order == Desc {
				dir = "DESC"
			}
			terms = append(terms, quote(o.Field)+" "+dir)
		}
		query += " ORDER BY " + strings.Join(terms, ", ")
	}

	rows, err := m.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", m.table.name, err)
	}
	defer rows.Close()

	out := []record.Record{}
	for rows.Next() {
		rec, err := m.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (m *sqlModel) FindUnique(ctx context.Context, id record.Value) (record.Record, error) {
	a := m.args()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		m.selectList(), quote(m.table.name), quote(ColumnID), a.add(m.arg(ColumnID, id)))

	rec, err := m.scan(m.store.db.QueryRowContext(ctx, query, a.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (m *sqlModel) FindFirst(ctx context.Context, where Where) (record.Record, error) {
	a := m.args()

	conds, err := m.conditions(a, where.Equals)
	if err != nil {
		return nil, err
	}
	if len(where.Not) > 0 {
		not, err := m.conditions(a, where.Not)
		if err != nil {
			return nil, err
		}
		conds = append(conds, "NOT ("+strings.Join(not, " AND ")+")")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", m.selectList(), quote(m.table.name))
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + quote(ColumnID) + " ASC LIMIT 1"

	rec, err := m.scan(m.store.db.QueryRowContext(ctx, query, a.args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (m *sqlModel) conditions(a *argList, values record.Record) ([]string, error) {
	conds := make([]string, 0, len(values))
	for _, name := range sortedKeys(values) {
		if err := m.known(name); err != nil {
			return nil, err
		}
		v := values[name]
		if v.IsNull() {
			conds = append(conds, quote(name)+" IS NULL")
			continue
		}
		conds = append(conds, quote(name)+" = "+a.add(m.arg(name, v)))
	}
	return conds, nil
}

func (m *sqlModel) Create(ctx context.Context, data record.Record) (record.Record, error) {
	a := m.args()
	var cols, vals []string

	if id, ok := data[ColumnID]; ok && !id.IsBlank() {
		cols = append(cols, quote(ColumnID))
		vals = append(vals, a.add(m.arg(ColumnID, id)))
	} else if m.table.idKind == resource.IDString {
		cols = append(cols, quote(ColumnID))
		vals = append(vals, a.add(uuid.NewString()))
	}

	for _, name := range sortedKeys(data) {
		if _, ok := m.table.index[name]; !ok || isReserved(name) {
			continue
		}
		cols = append(cols, quote(name))
		vals = append(vals, a.add(m.arg(name, data[name])))
	}

	now := m.store.now().UTC().Truncate(time.Microsecond)
	for _, name := range []string{ColumnCreatedAt, ColumnUpdatedAt} {
		cols = append(cols, quote(name))
		vals = append(vals, a.add(m.store.dialect.TimeArg(now)))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quote(m.table.name), strings.Join(cols, ", "), strings.Join(vals, ", "), quote(ColumnID))

	var raw any
	if err := m.store.db.QueryRowContext(ctx, query, a.args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("insert %s: %w", m.table.name, err)
	}

	rec, err := m.FindUnique(ctx, m.fromSQL(familyID, raw))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("insert %s: %w", m.table.name, ErrNotFound)
	}
	return rec, nil
}

func (m *sqlModel) Update(ctx context.Context, id record.Value, data record.Record) (record.Record, error) {
	a := m.args()
	var sets []string

	for _, name := range sortedKeys(data) {
		if _, ok := m.table.index[name]; !ok || isReserved(name) {
			continue
		}
		sets = append(sets, quote(name)+" = "+a.add(m.arg(name, data[name])))
	}
	now := m.store.now().UTC().Truncate(time.Microsecond)
	sets = append(sets, quote(ColumnUpdatedAt)+" = "+a.add(m.store.dialect.TimeArg(now)))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		quote(m.table.name), strings.Join(sets, ", "), quote(ColumnID), a.add(m.arg(ColumnID, id)))

	result, err := m.store.db.ExecContext(ctx, query, a.args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", m.table.name, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("update %s %s: %w", m.table.name, id, ErrNotFound)
	}

	return m.FindUnique(ctx, id)
}

func (m *sqlModel) Delete(ctx context.Context, id record.Value) (record.Record, error) {
	rec, err := m.FindUnique(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("delete %s %s: %w", m.table.name, id, ErrNotFound)
	}

	a := m.args()
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		quote(m.table.name), quote(ColumnID), a.add(m.arg(ColumnID, id)))
	if _, err := m.store.db.ExecContext(ctx, query, a.args...); err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.table.name, err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (m *sqlModel) scan(row scanner) (record.Record, error) {
	values := make([]any, len(m.table.columns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec := make(record.Record, len(values))
	for i, c := range m.table.columns {
		rec[c.name] = m.fromSQL(c.fam, values[i])
	}
	return rec, nil
}

// timeLayouts are tried, in order, for timestamps that come back as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// fromSQL converts a scanned driver value into a record value.
func (m *sqlModel) fromSQL(fam family, v any) record.Value {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}

	switch x := v.(type) {
	case nil:
		return record.Null()
	case time.Time:
		return record.Date(x.UTC())
	case int64:
		return record.Int(x)
	case float64:
		return record.Number(x)
	case bool:
		return record.Bool(x)
	case string:
		switch fam {
		case familyDate:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, x); err == nil {
					return record.Date(t.UTC())
				}
			}
		case familyNumber:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return record.Number(f)
			}
		case familyID:
			if m.table.idKind == resource.IDNumeric {
				if n, err := strconv.ParseInt(x, 10, 64); err == nil {
					return record.Int(n)
				}
			}
		}
		return record.String(x)
	default:
		val, err := record.Of(x)
		if err != nil {
			return record.String(fmt.Sprint(x))
		}
		return val
	}
}

func isReserved(name string) bool {
	return name == ColumnID || name == ColumnCreatedAt || name == ColumnUpdatedAt
}

func sortedKeys(r record.Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
