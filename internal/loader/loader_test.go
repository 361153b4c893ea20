package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeTemp(t, "blueprint.yaml", `
definitions_version: blueprint_dsl_1_2
inputs:
  port:
    type: integer
    default: 8080
list:
  - one
  - 2
`)
	raw, err := Load(path)
	require.NoError(t, err)

	document, ok := raw.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "blueprint_dsl_1_2", document["definitions_version"])
	inputs := document["inputs"].(map[string]any)
	port := inputs["port"].(map[string]any)
	assert.Equal(t, 8080, port["default"])
	assert.Equal(t, []any{"one", 2}, document["list"])
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "blueprint.json",
		`{"definitions_version": "blueprint_dsl_1_2", "count": 5, "ratio": 1.5}`)
	raw, err := Load(path)
	require.NoError(t, err)

	document := raw.(map[string]any)
	// Whole numbers come back as int, fractions stay float.
	assert.Equal(t, 5, document["count"])
	assert.Equal(t, 1.5, document["ratio"])
}

func TestLoadHCL(t *testing.T) {
	path := writeTemp(t, "blueprint.hcl", `
definitions_version = "blueprint_dsl_1_2"

inputs "port" {
  type    = "integer"
  default = 8080
}

tags = ["a", "b"]
`)
	raw, err := Load(path)
	require.NoError(t, err)

	document := raw.(map[string]any)
	assert.Equal(t, "blueprint_dsl_1_2", document["definitions_version"])
	assert.Equal(t, []any{"a", "b"}, document["tags"])

	inputs := document["inputs"].(map[string]any)
	port := inputs["port"].(map[string]any)
	assert.Equal(t, "integer", port["type"])
	assert.Equal(t, 8080, port["default"])
}

func TestLoadDirectory(t *testing.T) {
	t.Run("single blueprint is discovered", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "blueprint.yaml"),
			[]byte("definitions_version: blueprint_dsl_1_2\n"), 0o644))

		raw, err := Load(dir)
		require.NoError(t, err)
		document := raw.(map[string]any)
		assert.Equal(t, "blueprint_dsl_1_2", document["definitions_version"])
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no blueprint file found")
	})

	t.Run("ambiguous directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("a: 1\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte("{}"), 0o644))

		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "multiple blueprint files found")
	})
}

func TestLoadErrors(t *testing.T) {
	t.Run("unknown extension", func(t *testing.T) {
		path := writeTemp(t, "blueprint.toml", "x = 1")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported blueprint format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeTemp(t, "bad.yaml", "a: [unclosed")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("malformed hcl", func(t *testing.T) {
		path := writeTemp(t, "bad.hcl", "inputs {")
		_, err := Load(path)
		require.Error(t, err)
	})
}
