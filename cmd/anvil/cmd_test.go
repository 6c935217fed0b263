package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const productYAML = `
model: Product
form:
  title: { type: text, label: Title, required: true }
  price: { type: number, label: Price, min: 0 }
table:
  - { name: title, label: Title }
`

func writeProject(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	resDir := filepath.Join(dir, "resources")
	if err := os.Mkdir(resDir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{"product.yaml": productYAML}
	for k, v := range extra {
		files[k] = v
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(resDir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := "database:\n  driver: memory\nresources:\n  dir: " + resDir + "\n"
	path := filepath.Join(dir, "anvil.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "--config", writeProject(t, nil))
	if err != nil {
		t.Fatalf("validate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Resources: 1") {
		t.Errorf("output missing resource count:\n%s", out)
	}
	if !strings.Contains(out, "Configuration is valid.") {
		t.Errorf("output = %s", out)
	}
}

func TestValidateCommand_DuplicateModel(t *testing.T) {
	path := writeProject(t, map[string]string{"copy.yaml": productYAML})

	_, err := run(t, "validate", "--config", path)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !strings.Contains(err.Error(), "resource conflicts detected") {
		t.Errorf("error = %v", err)
	}
}

func TestResourcesCommand(t *testing.T) {
	out, err := run(t, "resources", "--config", writeProject(t, nil))
	if err != nil {
		t.Fatalf("resources failed: %v", err)
	}
	if !strings.Contains(out, "products") || !strings.Contains(out, "Product") {
		t.Errorf("output missing product row:\n%s", out)
	}
	if !strings.Contains(out, "title*, price") {
		t.Errorf("output missing field list:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "anvil dev\n") {
		t.Errorf("output = %q", out)
	}
}
