package schema

// Orderable is the default sort direction offered for a column.
type Orderable string

const (
	OrderNone Orderable = ""
	OrderAsc  Orderable = "asc"
	OrderDesc Orderable = "desc"
)

// Visibility controls whether a column is shown.
type Visibility string

const (
	VisibleAlways Visibility = "always"
	VisibleNever  Visibility = "never"
	VisibleToggle Visibility = "toggle"
)

// Column is one display column of a table.
type Column struct {
	Name      string     `json:"name" yaml:"name"`
	Label     string     `json:"label,omitempty" yaml:"label,omitempty"`
	Orderable Orderable  `json:"orderable,omitempty" yaml:"orderable,omitempty"`
	Visible   Visibility `json:"visible" yaml:"visible,omitempty"`
}

// Heading returns the label, falling back to the column name.
func (c Column) Heading() string {
	if c.Label == "" {
		return c.Name
	}
	return c.Label
}

// Table is the ordered list of columns used to display records.
type Table struct {
	Columns []Column `json:"columns" yaml:"columns"`
}

// NewTable builds a table, defaulting column visibility to always.
func NewTable(cols ...Column) Table {
	out := make([]Column, len(cols))
	for i, c := range cols {
		if c.Visible == "" {
			c.Visible = VisibleAlways
		}
		out[i] = c
	}
	return Table{Columns: out}
}

// Clone returns a copy of t with its own column slice.
func (t Table) Clone() Table {
	cols := make([]Column, len(t.Columns))
	copy(cols, t.Columns)
	return Table{Columns: cols}
}

// VisibleColumns returns the columns not marked never, in order.
func (t Table) VisibleColumns() []Column {
	out := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Visible == VisibleNever {
			continue
		}
		out = append(out, c)
	}
	return out
}
