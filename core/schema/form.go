package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FormField pairs a field name with its schema.
type FormField struct {
	Name  string
	Field Field
}

// Entry is shorthand for building a FormField.
func Entry(name string, f Field) FormField {
	return FormField{Name: name, Field: f}
}

// Form is an ordered mapping of field name to field schema. Declaration order
// is the display and iteration order. The zero Form has no fields.
type Form struct {
	fields []FormField
	index  map[string]int
}

// NewForm builds a form from fields in declaration order.
func NewForm(fields ...FormField) (Form, error) {
	f := Form{
		fields: make([]FormField, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, ff := range fields {
		if err := f.add(ff); err != nil {
			return Form{}, err
		}
	}
	return f, nil
}

// MustForm is like NewForm but panics on error. It is meant for forms
// declared at package initialization.
func MustForm(fields ...FormField) Form {
	f, err := NewForm(fields...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Form) add(ff FormField) error {
	if ff.Name == "" {
		return errors.New("form field name is required")
	}
	if ff.Field == nil {
		return fmt.Errorf("form field %q has no schema", ff.Name)
	}
	if _, dup := f.index[ff.Name]; dup {
		return fmt.Errorf("duplicate form field %q", ff.Name)
	}
	if f.index == nil {
		f.index = make(map[string]int)
	}
	f.index[ff.Name] = len(f.fields)
	f.fields = append(f.fields, FormField{Name: ff.Name, Field: detach(ff.Field)})
	return nil
}

// Fields returns the fields in declaration order.
func (f Form) Fields() []FormField {
	out := make([]FormField, len(f.fields))
	for i, ff := range f.fields {
		out[i] = FormField{Name: ff.Name, Field: detach(ff.Field)}
	}
	return out
}

// Get returns the schema of the named field.
func (f Form) Get(name string) (Field, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return detach(f.fields[i].Field), true
}

// Names returns the field names in declaration order.
func (f Form) Names() []string {
	names := make([]string, len(f.fields))
	for i, ff := range f.fields {
		names[i] = ff.Name
	}
	return names
}

// Len returns the number of fields.
func (f Form) Len() int {
	return len(f.fields)
}

// MarshalJSON encodes the form as {"fields": {...}} keeping field order.
func (f Form) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"fields":{`)
	for i, ff := range f.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ff.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(ff.Field)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", ff.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}
