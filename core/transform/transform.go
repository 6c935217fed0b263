// Package transform turns validated input into the payload handed to the
// store. Only fields of the mode-selected form survive; blank values are
// dropped and date strings are coerced.
package transform

import (
	"time"

	"github.com/artpar/anvil/core/record"
	"github.com/artpar/anvil/core/resource"
	"github.com/artpar/anvil/core/schema"
)

// DateLayout is the accepted calendar date string format.
const DateLayout = "2006-01-02"

// Transform returns the sanitized payload for data. It never mutates data.
func Transform(res *resource.Resource, data record.Record, mode resource.Mode) record.Record {
	t := &transformer{in: data, mode: mode, out: record.Record{}}
	for _, ff := range res.FormFor(mode).Fields() {
		t.name = ff.Name
		ff.Field.Accept(t)
	}
	return t.out
}

// ParseDate converts a date input into a date value. Dates pass through,
// YYYY-MM-DD strings become midnight UTC. It reports false for anything
// else.
func ParseDate(v record.Value) (record.Value, bool) {
	if _, ok := v.AsDate(); ok {
		return v, true
	}
	s, ok := v.AsString()
	if !ok {
		return record.Value{}, false
	}
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return record.Value{}, false
	}
	return record.Date(d), true
}

type transformer struct {
	in   record.Record
	mode resource.Mode
	out  record.Record
	name string
}

// value returns the input for the current field when it should be carried.
func (t *transformer) value(attrs schema.Attrs) (record.Value, bool) {
	if attrs.ReadOnly && t.mode.SkipsReadOnly() {
		return record.Value{}, false
	}
	v, ok := t.in[t.name]
	if !ok || v.IsBlank() {
		return record.Value{}, false
	}
	return v, true
}

func (t *transformer) pass(attrs schema.Attrs) {
	if v, ok := t.value(attrs); ok {
		t.out[t.name] = v
	}
}

func (t *transformer) VisitText(f schema.TextField)         { t.pass(f.Attrs) }
func (t *transformer) VisitEmail(f schema.EmailField)       { t.pass(f.Attrs) }
func (t *transformer) VisitNumber(f schema.NumberField)     { t.pass(f.Attrs) }
func (t *transformer) VisitSelect(f schema.SelectField)     { t.pass(f.Attrs) }
func (t *transformer) VisitTextarea(f schema.TextareaField) { t.pass(f.Attrs) }

func (t *transformer) VisitDate(f schema.DateField) {
	if f.ReadOnly && t.mode.SkipsReadOnly() {
		return
	}
	v, ok := t.in[t.name]
	if !ok {
		return
	}
	// An explicit empty string clears the column.
	if s, isStr := v.AsString(); isStr && s == "" {
		t.out[t.name] = record.Null()
		return
	}
	if v.IsNull() {
		return
	}
	if d, ok := ParseDate(v); ok {
		t.out[t.name] = d
	}
}

func (t *transformer) VisitHidden(schema.HiddenField) {}
