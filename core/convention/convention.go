// Package convention derives names from a resource's model name.
// Slugs and labels are pure functions of the model and are computed once,
// when the resource is defined.
package convention

import "strings"

// Slug returns the URL key for a model: the pluralized, lower-cased name.
//
//	Slug("Category") == "categories"
func Slug(model string) string {
	return Pluralize(strings.ToLower(model))
}

// Label returns the display label for a model: its plural form.
//
//	Label("Category") == "Categories"
func Label(model string) string {
	return Pluralize(model)
}

// SingularLabel returns the singular display form of a label,
// e.g. for "Create Category" buttons.
func SingularLabel(label string) string {
	return Singularize(label)
}
