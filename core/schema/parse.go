package schema

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// dateLayout is the layout used for date bounds in definitions and input.
const dateLayout = "2006-01-02"

// rawField is the YAML shape of a field definition. Which keys apply depends
// on the type; unknown keys for a type are ignored.
type rawField struct {
	Type        FieldType `yaml:"type"`
	Label       string    `yaml:"label"`
	Required    bool      `yaml:"required"`
	ReadOnly    bool      `yaml:"read_only"`
	Placeholder string    `yaml:"placeholder"`
	Size        Size      `yaml:"size"`

	Unique    bool     `yaml:"unique"`
	MinLength int      `yaml:"min_length"`
	MaxLength int      `yaml:"max_length"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	MinDate   string   `yaml:"min_date"`
	MaxDate   string   `yaml:"max_date"`
	Options   []any    `yaml:"options"`
	Rows      int      `yaml:"rows"`
	Value     string   `yaml:"value"`
}

// build runs the constructor for the declared type.
func (r rawField) build() (Field, error) {
	common := FieldOptions{
		Label:       r.Label,
		Required:    r.Required,
		ReadOnly:    r.ReadOnly,
		Placeholder: r.Placeholder,
		Size:        r.Size,
	}
	if !isValidSize(r.Size) {
		return nil, fmt.Errorf("unknown size %q", r.Size)
	}

	switch r.Type {
	case FieldTypeText:
		return Text(TextOptions{FieldOptions: common, Unique: r.Unique, MinLength: r.MinLength, MaxLength: r.MaxLength}), nil
	case FieldTypeEmail:
		return Email(EmailOptions{FieldOptions: common, Unique: r.Unique}), nil
	case FieldTypeNumber:
		return Number(NumberOptions{FieldOptions: common, Min: r.Min, Max: r.Max}), nil
	case FieldTypeDate:
		minDate, err := parseBound(r.MinDate)
		if err != nil {
			return nil, fmt.Errorf("min_date: %w", err)
		}
		maxDate, err := parseBound(r.MaxDate)
		if err != nil {
			return nil, fmt.Errorf("max_date: %w", err)
		}
		return Date(DateOptions{FieldOptions: common, MinDate: minDate, MaxDate: maxDate}), nil
	case FieldTypeSelect:
		return Select(SelectOptions{FieldOptions: common, Options: r.Options}), nil
	case FieldTypeTextarea:
		return Textarea(TextareaOptions{FieldOptions: common, Rows: r.Rows, MinLength: r.MinLength, MaxLength: r.MaxLength}), nil
	case FieldTypeHidden:
		return Hidden(HiddenOptions{Value: r.Value}), nil
	case "":
		return nil, fmt.Errorf("type is required")
	default:
		return nil, fmt.Errorf("unknown type %q", r.Type)
	}
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// UnmarshalYAML decodes a mapping of field name to field definition,
// keeping the mapping order.
func (f *Form) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: form must be a mapping of field name to field", node.Line)
	}

	form := Form{index: make(map[string]int, len(node.Content)/2)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		name := key.Value
		if !isValidIdentifier(name) {
			return fmt.Errorf("line %d: field name %q is not a valid identifier", key.Line, name)
		}

		var raw rawField
		if err := val.Decode(&raw); err != nil {
			return fmt.Errorf("line %d: field %q: %w", val.Line, name, err)
		}
		field, err := raw.build()
		if err != nil {
			return fmt.Errorf("line %d: field %q: %w", val.Line, name, err)
		}
		if err := form.add(FormField{Name: name, Field: field}); err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
	}

	*f = form
	return nil
}

// UnmarshalYAML accepts either {columns: [...]} or a bare column list and
// applies column defaults.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	var cols []Column
	switch node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&cols); err != nil {
			return err
		}
	case yaml.MappingNode:
		var wrapped struct {
			Columns []Column `yaml:"columns"`
		}
		if err := node.Decode(&wrapped); err != nil {
			return err
		}
		cols = wrapped.Columns
	default:
		return fmt.Errorf("line %d: table must be a column list", node.Line)
	}

	for _, c := range cols {
		if c.Name == "" {
			return fmt.Errorf("line %d: table column name is required", node.Line)
		}
		if !isValidVisibility(c.Visible) {
			return fmt.Errorf("line %d: column %q: unknown visibility %q", node.Line, c.Name, c.Visible)
		}
		if !isValidOrderable(c.Orderable) {
			return fmt.Errorf("line %d: column %q: unknown order %q", node.Line, c.Name, c.Orderable)
		}
	}

	*t = NewTable(cols...)
	return nil
}

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

// IsValidIdentifier reports whether s can be used as a field or model name.
func IsValidIdentifier(s string) bool {
	return isValidIdentifier(s)
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isValidSize(s Size) bool {
	switch s {
	case "", SizeLarge, SizeMedium, SizeSmall, SizeTiny:
		return true
	default:
		return false
	}
}

func isValidVisibility(v Visibility) bool {
	switch v {
	case "", VisibleAlways, VisibleNever, VisibleToggle:
		return true
	default:
		return false
	}
}

func isValidOrderable(o Orderable) bool {
	switch o {
	case OrderNone, OrderAsc, OrderDesc:
		return true
	default:
		return false
	}
}
