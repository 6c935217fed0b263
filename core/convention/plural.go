package convention

import (
	"strings"

	"github.com/gertd/go-pluralize"
)

// inflector is read-only after init.
var inflector = newInflector()

func newInflector() *pluralize.Client {
	c := pluralize.NewClient()
	// Technical usage prefers "schemas" and "statuses".
	c.AddIrregularRule("schema", "schemas")
	c.AddIrregularRule("status", "statuses")
	return c
}

// Pluralize returns the plural form of a word, preserving its casing.
// Irregular and uncountable nouns follow the pluralize rule set.
func Pluralize(word string) string {
	if strings.TrimSpace(word) == "" {
		return ""
	}
	return inflector.Plural(word)
}

// Singularize returns the singular form of a word.
// Inverse of Pluralize.
func Singularize(word string) string {
	if strings.TrimSpace(word) == "" {
		return ""
	}
	return inflector.Singular(word)
}
