// Package resource binds a model name to its create form, edit form and
// list table. A Resource is immutable once defined.
package resource

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/artpar/anvil/core/convention"
	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/schema"
)

// Definition errors. Define wraps them with the model name.
var (
	ErrModelRequired = errors.New("model is required")
	ErrTableRequired = errors.New("table is required")
	ErrFormRequired  = errors.New("form is required")
)

// ErrInvalidID is returned by ParseID for identifiers that do not match the
// resource's id kind.
var ErrInvalidID = errors.New("invalid id")

// IDKind is the type of a resource's primary key.
type IDKind string

const (
	IDNumeric IDKind = "numeric"
	IDString  IDKind = "string"
)

// Mode selects which form a mutation runs against.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "create"
}

// SkipsReadOnly reports whether read-only fields are excluded from
// validation and transformation. Only create skips them; on update a
// read-only field is still checked and written when supplied.
func (m Mode) SkipsReadOnly() bool {
	return m == ModeCreate
}

// Config is the input to Define. Form and Table must be set. EditForm
// defaults to Form and Label defaults to the pluralized model name.
type Config struct {
	Model    string
	Label    string
	Form     *schema.Form
	EditForm *schema.Form
	Table    *schema.Table
	IDKind   IDKind
}

// Resource is a defined admin resource.
type Resource struct {
	model    string
	slug     string
	label    string
	form     schema.Form
	editForm schema.Form
	table    schema.Table
	idKind   IDKind
}

// Define validates cfg and derives the slug and label.
func Define(cfg Config) (*Resource, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, ErrModelRequired
	}
	if cfg.Table == nil {
		return nil, fmt.Errorf("resource %s: %w", model, ErrTableRequired)
	}
	if cfg.Form == nil {
		return nil, fmt.Errorf("resource %s: %w", model, ErrFormRequired)
	}

	idKind := cfg.IDKind
	switch idKind {
	case "":
		idKind = IDNumeric
	case IDNumeric, IDString:
	default:
		return nil, fmt.Errorf("resource %s: unknown id kind %q", model, idKind)
	}

	editForm := *cfg.Form
	if cfg.EditForm != nil {
		editForm = *cfg.EditForm
	}

	label := cfg.Label
	if label == "" {
		label = convention.Label(model)
	}

	return &Resource{
		model:    model,
		slug:     convention.Slug(model),
		label:    label,
		form:     *cfg.Form,
		editForm: editForm,
		table:    cfg.Table.Clone(),
		idKind:   idKind,
	}, nil
}

// MustDefine is like Define but panics on error. Use it for resources
// declared in Go code.
func MustDefine(cfg Config) *Resource {
	r, err := Define(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Resource) Model() string         { return r.model }
func (r *Resource) Slug() string          { return r.slug }
func (r *Resource) Label() string         { return r.label }
func (r *Resource) Form() schema.Form     { return r.form }
func (r *Resource) EditForm() schema.Form { return r.editForm }
func (r *Resource) Table() schema.Table   { return r.table.Clone() }
func (r *Resource) IDKind() IDKind        { return r.idKind }

// Singular returns the singular display label, e.g. "Category" for
// "Categories".
func (r *Resource) Singular() string {
	return convention.SingularLabel(r.label)
}

// FormFor returns the form used for mode.
func (r *Resource) FormFor(mode Mode) schema.Form {
	if mode == ModeUpdate {
		return r.editForm
	}
	return r.form
}

// Fields returns the union of create and edit form fields, create form
// first, without duplicates. Stores use it to derive columns.
func (r *Resource) Fields() []schema.FormField {
	seen := make(map[string]bool)
	var out []schema.FormField
	for _, form := range []schema.Form{r.form, r.editForm} {
		for _, ff := range form.Fields() {
			if seen[ff.Name] {
				continue
			}
			seen[ff.Name] = true
			out = append(out, ff)
		}
	}
	return out
}

// ParseID converts a raw path identifier into a record value according to
// the resource's id kind.
func (r *Resource) ParseID(raw string) (record.Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return record.Value{}, ErrInvalidID
	}
	if r.idKind == IDString {
		return record.String(raw), nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return record.Value{}, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return record.Int(n), nil
}
