package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// FieldType is the discriminant of a Field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeHidden   FieldType = "hidden"
)

// Size controls the layout width of a rendered field.
type Size string

const (
	SizeLarge  Size = "large"  // full width
	SizeMedium Size = "medium" // 1/2
	SizeSmall  Size = "small"  // 1/3
	SizeTiny   Size = "tiny"   // 1/4
)

// Default bounds applied by the constructors.
const (
	DefaultTextMaxLength     = 255
	DefaultTextareaRows      = 4
	DefaultTextareaMaxLength = 524288
	DefaultSize              = SizeMedium
)

var (
	// DefaultMinDate is the lower date bound used when none is given.
	DefaultMinDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

	// DefaultMaxDate is the upper date bound used when none is given.
	DefaultMaxDate = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Field describes one form input. The set of implementations is closed:
// TextField, EmailField, NumberField, DateField, SelectField, TextareaField
// and HiddenField.
type Field interface {
	// Type returns the field kind.
	Type() FieldType

	// Attributes returns the attributes shared by visible fields.
	// It reports false for hidden fields, which carry none.
	Attributes() (Attrs, bool)

	// Accept calls the Visitor method matching the field kind.
	Accept(v Visitor)

	field()
}

// Visitor handles every field kind. Code that must treat each kind
// explicitly (validation, transformation, storage) implements Visitor so a
// new kind cannot be added without handling it there too.
type Visitor interface {
	VisitText(f TextField)
	VisitEmail(f EmailField)
	VisitNumber(f NumberField)
	VisitDate(f DateField)
	VisitSelect(f SelectField)
	VisitTextarea(f TextareaField)
	VisitHidden(f HiddenField)
}

// Attrs holds the attributes common to all visible fields.
type Attrs struct {
	Label       string `json:"label" yaml:"label"`
	Required    bool   `json:"required" yaml:"required"`
	ReadOnly    bool   `json:"readOnly" yaml:"read_only"`
	Placeholder string `json:"placeholder" yaml:"placeholder"`
	Size        Size   `json:"size" yaml:"size"`
}

// LabelOr returns the label, or name when the label is empty.
func (a Attrs) LabelOr(name string) string {
	if a.Label == "" {
		return name
	}
	return a.Label
}

// FieldOptions are the partial common options accepted by constructors.
// Zero values select the defaults.
type FieldOptions struct {
	Label       string
	Required    bool
	ReadOnly    bool
	Placeholder string
	Size        Size
}

func (o FieldOptions) resolve() Attrs {
	size := o.Size
	if size == "" {
		size = DefaultSize
	}
	return Attrs{
		Label:       o.Label,
		Required:    o.Required,
		ReadOnly:    o.ReadOnly,
		Placeholder: o.Placeholder,
		Size:        size,
	}
}

// -----------------------------------------------------------------------------
// text
// -----------------------------------------------------------------------------

// TextField is a single-line text input.
type TextField struct {
	Attrs
	Unique    bool `json:"unique"`
	MinLength int  `json:"minLength"`
	MaxLength int  `json:"maxLength"`
}

// TextOptions configures Text.
type TextOptions struct {
	FieldOptions
	Unique    bool
	MinLength int
	MaxLength int // 0 means DefaultTextMaxLength
}

// Text returns a fully defaulted text field.
func Text(opts TextOptions) TextField {
	maxLen := opts.MaxLength
	if maxLen == 0 {
		maxLen = DefaultTextMaxLength
	}
	return TextField{
		Attrs:     opts.resolve(),
		Unique:    opts.Unique,
		MinLength: opts.MinLength,
		MaxLength: maxLen,
	}
}

func (TextField) Type() FieldType             { return FieldTypeText }
func (f TextField) Attributes() (Attrs, bool) { return f.Attrs, true }
func (f TextField) Accept(v Visitor)          { v.VisitText(f) }
func (TextField) field()                      {}

func (f TextField) MarshalJSON() ([]byte, error) {
	type plain TextField
	return marshalTagged(FieldTypeText, plain(f))
}

// -----------------------------------------------------------------------------
// email
// -----------------------------------------------------------------------------

// EmailField is an email address input.
type EmailField struct {
	Attrs
	Unique bool `json:"unique"`
}

// EmailOptions configures Email.
type EmailOptions struct {
	FieldOptions
	Unique bool
}

// Email returns a fully defaulted email field.
func Email(opts EmailOptions) EmailField {
	return EmailField{Attrs: opts.resolve(), Unique: opts.Unique}
}

func (EmailField) Type() FieldType             { return FieldTypeEmail }
func (f EmailField) Attributes() (Attrs, bool) { return f.Attrs, true }
func (f EmailField) Accept(v Visitor)          { v.VisitEmail(f) }
func (EmailField) field()                      {}

func (f EmailField) MarshalJSON() ([]byte, error) {
	type plain EmailField
	return marshalTagged(FieldTypeEmail, plain(f))
}

// -----------------------------------------------------------------------------
// number
// -----------------------------------------------------------------------------

// NumberField is a numeric input with optional bounds.
type NumberField struct {
	Attrs
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// NumberOptions configures Number. Nil bounds leave the field unbounded.
type NumberOptions struct {
	FieldOptions
	Min *float64
	Max *float64
}

// Number returns a fully defaulted number field.
func Number(opts NumberOptions) NumberField {
	return NumberField{Attrs: opts.resolve(), Min: copyBound(opts.Min), Max: copyBound(opts.Max)}
}

func copyBound(b *float64) *float64 {
	if b == nil {
		return nil
	}
	return Bound(*b)
}

// detach returns a copy of f that shares no slices or pointers with it.
// Forms store and hand out detached fields so a defined form cannot be
// changed through a value read from it.
func detach(f Field) Field {
	switch v := f.(type) {
	case SelectField:
		opts := make([]Option, len(v.Options))
		copy(opts, v.Options)
		v.Options = opts
		return v
	case NumberField:
		v.Min, v.Max = copyBound(v.Min), copyBound(v.Max)
		return v
	default:
		return f
	}
}

// Bound is a helper for NumberOptions literals.
func Bound(v float64) *float64 {
	return &v
}

func (NumberField) Type() FieldType             { return FieldTypeNumber }
func (f NumberField) Attributes() (Attrs, bool) { return f.Attrs, true }
func (f NumberField) Accept(v Visitor)          { v.VisitNumber(f) }
func (NumberField) field()                      {}

func (f NumberField) MarshalJSON() ([]byte, error) {
	type plain NumberField
	return marshalTagged(FieldTypeNumber, plain(f))
}

// -----------------------------------------------------------------------------
// date
// -----------------------------------------------------------------------------

// DateField is a calendar date input.
type DateField struct {
	Attrs
	MinDate time.Time `json:"minDate"`
	MaxDate time.Time `json:"maxDate"`
}

// DateOptions configures Date. Zero times select the default bounds.
type DateOptions struct {
	FieldOptions
	MinDate time.Time
	MaxDate time.Time
}

// Date returns a fully defaulted date field.
func Date(opts DateOptions) DateField {
	minDate, maxDate := opts.MinDate, opts.MaxDate
	if minDate.IsZero() {
		minDate = DefaultMinDate
	}
	if maxDate.IsZero() {
		maxDate = DefaultMaxDate
	}
	return DateField{Attrs: opts.resolve(), MinDate: minDate, MaxDate: maxDate}
}

func (DateField) Type() FieldType             { return FieldTypeDate }
func (f DateField) Attributes() (Attrs, bool) { return f.Attrs, true }
func (f DateField) Accept(v Visitor)          { v.VisitDate(f) }
func (DateField) field()                      {}

func (f DateField) MarshalJSON() ([]byte, error) {
	type plain DateField
	return marshalTagged(FieldTypeDate, plain(f))
}

// -----------------------------------------------------------------------------
// select
// -----------------------------------------------------------------------------

// Option is one choice of a select field.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// SelectField is a single-choice input.
type SelectField struct {
	Attrs
	Options []Option `json:"options"`
}

// SelectOptions configures Select. Options may mix bare strings, Option
// values and label/value maps.
type SelectOptions struct {
	FieldOptions
	Options []any
}

// Select returns a select field with its options normalized.
func Select(opts SelectOptions) SelectField {
	return SelectField{Attrs: opts.resolve(), Options: NormalizeOptions(opts.Options)}
}

// NormalizeOptions converts a heterogeneous option list into label/value
// pairs. A bare string is used as both label and value.
func NormalizeOptions(in []any) []Option {
	out := make([]Option, 0, len(in))
	for _, o := range in {
		switch v := o.(type) {
		case Option:
			out = append(out, v)
		case *Option:
			if v != nil {
				out = append(out, *v)
			}
		case string:
			out = append(out, Option{Label: v, Value: v})
		case map[string]any:
			out = append(out, optionFromMap(v))
		case map[string]string:
			out = append(out, Option{Label: v["label"], Value: v["value"]})
		default:
			s := fmt.Sprint(v)
			out = append(out, Option{Label: s, Value: s})
		}
	}
	return out
}

func optionFromMap(m map[string]any) Option {
	var opt Option
	if v, ok := m["value"]; ok {
		opt.Value = fmt.Sprint(v)
	}
	if l, ok := m["label"]; ok {
		opt.Label = fmt.Sprint(l)
	} else {
		opt.Label = opt.Value
	}
	return opt
}

func (SelectField) Type() FieldType             { return FieldTypeSelect }
func (f SelectField) Attributes() (Attrs, bool) { return f.Attrs, true }
func (f SelectField) Accept(v Visitor)          { v.VisitSelect(f) }
func (SelectField) field()                      {}

func (f SelectField) MarshalJSON() ([]byte, error) {
	type plain SelectField
	return marshalTagged(FieldTypeSelect, plain(f))
}

// -----------------------------------------------------------------------------
// textarea
// -----------------------------------------------------------------------------

// TextareaField is a multi-line text input.
type TextareaField struct {
	Attrs
	Rows      int `json:"rows"`
	MinLength int `json:"minLength"`
	MaxLength int `json:"maxLength"`
}

// TextareaOptions configures Textarea.
type TextareaOptions struct {
	FieldOptions
	Rows      int // 0 means DefaultTextareaRows
	MinLength int
	MaxLength int // 0 means DefaultTextareaMaxLength
}

// Textarea returns a fully defaulted textarea field.
func Textarea(opts TextareaOptions) TextareaField {
	rows := opts.Rows
	if rows == 0 {
		rows = DefaultTextareaRows
	}
	maxLen := opts.MaxLength
	if maxLen == 0 {
		maxLen = DefaultTextareaMaxLength
	}
	return TextareaField{
		Attrs:     opts.resolve(),
		Rows:      rows,
		MinLength: opts.MinLength,
		MaxLength: maxLen,
	}
}

func (TextareaField) Type() FieldType             { return FieldTypeTextarea }
func (f TextareaField) Attributes() (Attrs, bool) { return f.Attrs, true }
func (f TextareaField) Accept(v Visitor)          { v.VisitTextarea(f) }
func (TextareaField) field()                      {}

func (f TextareaField) MarshalJSON() ([]byte, error) {
	type plain TextareaField
	return marshalTagged(FieldTypeTextarea, plain(f))
}

// -----------------------------------------------------------------------------
// hidden
// -----------------------------------------------------------------------------

// HiddenField carries a fixed value and is never validated, rendered or
// persisted from input.
type HiddenField struct {
	Value string `json:"value"`
}

// HiddenOptions configures Hidden.
type HiddenOptions struct {
	Value string
}

// Hidden returns a hidden field.
func Hidden(opts HiddenOptions) HiddenField {
	return HiddenField{Value: opts.Value}
}

func (HiddenField) Type() FieldType           { return FieldTypeHidden }
func (HiddenField) Attributes() (Attrs, bool) { return Attrs{}, false }
func (f HiddenField) Accept(v Visitor)        { v.VisitHidden(f) }
func (HiddenField) field()                    {}

func (f HiddenField) MarshalJSON() ([]byte, error) {
	type plain HiddenField
	return marshalTagged(FieldTypeHidden, plain(f))
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// IsUnique reports whether f is a text or email field marked unique.
func IsUnique(f Field) bool {
	switch v := f.(type) {
	case TextField:
		return v.Unique
	case EmailField:
		return v.Unique
	default:
		return false
	}
}

// marshalTagged encodes v as a JSON object with a leading "type" key.
func marshalTagged(t FieldType, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head := []byte(`{"type":"` + string(t) + `"`)
	if len(body) <= 2 {
		return append(head, '}'), nil
	}
	head = append(head, ',')
	return append(head, body[1:]...), nil
}
