package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/anvil/core/schema"
)

// file is the YAML shape of a resource definition:
//
//	model: Category
//	label: Categories
//	id: numeric
//	form:
//	  name: { type: text, label: Name, required: true, unique: true }
//	edit_form: ...
//	table:
//	  - { name: name, label: Name, orderable: asc }
type file struct {
	Model    string        `yaml:"model"`
	Label    string        `yaml:"label"`
	ID       IDKind        `yaml:"id"`
	Form     *schema.Form  `yaml:"form"`
	EditForm *schema.Form  `yaml:"edit_form"`
	Table    *schema.Table `yaml:"table"`
}

// ParseFile parses a resource definition from a YAML file.
func ParseFile(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse parses a resource definition from YAML bytes.
func Parse(data []byte) (*Resource, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	return Define(Config{
		Model:    f.Model,
		Label:    f.Label,
		Form:     f.Form,
		EditForm: f.EditForm,
		Table:    f.Table,
		IDKind:   f.ID,
	})
}

// ParseDir parses every .yaml/.yml file under dir, including subdirectories,
// in lexical order.
func ParseDir(dir string) ([]*Resource, error) {
	var resources []*Resource

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			resources = append(resources, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		res, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	return resources, nil
}
