/*
Package schema defines the declarative building blocks of a resource: field
schemas, forms and tables.

# Fields

A field schema is one of seven kinds, each built by a constructor that
applies every default up front:

	name := schema.Text(schema.TextOptions{
		FieldOptions: schema.FieldOptions{Label: "Name", Required: true},
		Unique:       true,
	})
	due := schema.Date(schema.DateOptions{FieldOptions: schema.FieldOptions{Label: "Due"}})
	status := schema.Select(schema.SelectOptions{Options: []any{"open", "closed"}})

Supported kinds:

  - text:     single-line text (unique, min/max length, default max 255)
  - email:    email address (unique)
  - number:   numeric value (optional min/max)
  - date:     calendar date (bounds default to 1900-01-01 .. 2100-01-01)
  - select:   one of a list of label/value options
  - textarea: multi-line text (rows default 4, max length 524288)
  - hidden:   fixed value, never validated or persisted from input

The kind set is closed. Code that must handle each kind implements Visitor.

# Forms

A Form is an ordered mapping of field name to field. Order is preserved in
iteration, JSON and YAML:

	form := schema.MustForm(
		schema.Entry("name", name),
		schema.Entry("due", due),
	)

# Tables

A Table lists display columns with optional label, default order and
visibility (always, never, toggle).

# YAML

Forms and tables decode from YAML:

	form:
	  name:   { type: text, label: Name, required: true, unique: true }
	  status: { type: select, label: Status, options: [open, closed] }
	table:
	  - { name: id, label: ID, visible: never }
	  - { name: name, label: Name }
*/
package schema
