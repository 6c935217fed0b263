// Package validation checks raw input against a resource's form before any
// store access. It performs no I/O and holds no state between calls.
package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/resource"
	"github.com/artpar/anvil/core/schema"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldError is one validation failure. Field is empty for errors that are
// not tied to a single field, such as store failures.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validate walks the form selected by mode in declaration order and returns
// the errors found. An empty result means the data is valid.
func Validate(res *resource.Resource, data record.Record, mode resource.Mode) []FieldError {
	form := res.FormFor(mode)
	c := &checker{data: data, mode: mode}
	for _, ff := range form.Fields() {
		c.name = ff.Name
		ff.Field.Accept(c)
	}
	return c.errs
}

// Unique returns the error reported when a unique field collides with an
// existing record.
func Unique(name string, attrs schema.Attrs) FieldError {
	return FieldError{Field: name, Message: attrs.LabelOr(name) + " must be unique"}
}

// checker implements schema.Visitor. Each Visit method handles one field
// of the form currently being walked.
type checker struct {
	data record.Record
	mode resource.Mode
	name string
	errs []FieldError
}

func (c *checker) add(label, format string, args ...any) {
	c.errs = append(c.errs, FieldError{
		Field:   c.name,
		Message: label + " " + fmt.Sprintf(format, args...),
	})
}

// common applies the skip and required rules shared by every visible kind.
// It returns the value and true when kind-specific checks should run.
func (c *checker) common(attrs schema.Attrs) (record.Value, string, bool) {
	if attrs.ReadOnly && c.mode.SkipsReadOnly() {
		return record.Value{}, "", false
	}
	label := attrs.LabelOr(c.name)
	v := c.data[c.name]
	if v.IsBlank() {
		if attrs.Required {
			c.add(label, "is required")
		}
		return record.Value{}, "", false
	}
	return v, label, true
}

func (c *checker) VisitText(f schema.TextField) {
	v, label, ok := c.common(f.Attrs)
	if !ok {
		return
	}
	// Length only applies to strings.
	s, isString := v.AsString()
	if !isString {
		return
	}
	n := utf8.RuneCountInString(s)
	if f.MinLength > 0 && n < f.MinLength {
		c.add(label, "must be at least %d characters", f.MinLength)
	}
	if n > f.MaxLength {
		c.add(label, "must be no more than %d characters", f.MaxLength)
	}
}

func (c *checker) VisitEmail(f schema.EmailField) {
	v, label, ok := c.common(f.Attrs)
	if !ok {
		return
	}
	if !emailPattern.MatchString(v.Text()) {
		c.add(label, "must be a valid email")
	}
}

func (c *checker) VisitNumber(f schema.NumberField) {
	v, label, ok := c.common(f.Attrs)
	if !ok {
		return
	}
	n, numeric := v.Float()
	if !numeric {
		return
	}
	if f.Min != nil && n < *f.Min {
		c.add(label, "must be at least %s", record.FormatNumber(*f.Min))
	}
	if f.Max != nil && n > *f.Max {
		c.add(label, "must be no more than %s", record.FormatNumber(*f.Max))
	}
}

// Dates, selects and textareas only carry the required check.

func (c *checker) VisitDate(f schema.DateField)         { c.common(f.Attrs) }
func (c *checker) VisitSelect(f schema.SelectField)     { c.common(f.Attrs) }
func (c *checker) VisitTextarea(f schema.TextareaField) { c.common(f.Attrs) }

func (c *checker) VisitHidden(schema.HiddenField) {}
