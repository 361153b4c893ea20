// Package loader reads a blueprint document from disk into the raw
// mapping/sequence/scalar tree the parser core consumes. YAML, JSON and HCL
// sources are supported, selected by file extension.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vk/blueprintgo/internal/fsutil"
)

// extensions lists the supported blueprint file extensions, in the order
// directory discovery tries them.
var extensions = []string{".yaml", ".yml", ".json", ".hcl"}

// Load reads and decodes the document at path. A directory path is searched
// for exactly one blueprint file among the supported extensions.
func Load(path string) (any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading blueprint %q: %w", path, err)
	}
	if info.IsDir() {
		path, err = findBlueprint(path)
		if err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blueprint %q: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(data)
	case ".json":
		return LoadJSON(data)
	case ".hcl":
		return LoadHCL(path, data)
	default:
		return nil, fmt.Errorf("unsupported blueprint format %q, expected .yaml, .json or .hcl", filepath.Ext(path))
	}
}

// findBlueprint locates the single blueprint file under dir.
func findBlueprint(dir string) (string, error) {
	var found []string
	for _, extension := range extensions {
		files, err := fsutil.FindFilesByExtension(dir, extension)
		if err != nil {
			return "", fmt.Errorf("searching blueprint directory %q: %w", dir, err)
		}
		found = append(found, files...)
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no blueprint file found under %q, expected one of %v", dir, extensions)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("multiple blueprint files found under %q: %v", dir, found)
	}
}

// LoadYAML decodes a YAML document.
func LoadYAML(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding yaml blueprint: %w", err)
	}
	return normalizeYAML(raw), nil
}

// LoadJSON decodes a JSON document. Whole numbers decode as int so that
// integer-typed leaves validate.
func LoadJSON(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding json blueprint: %w", err)
	}
	return normalizeJSON(raw), nil
}

// normalizeYAML rewrites interface-keyed mappings to string-keyed ones where
// possible, which is what the rest of the pipeline expects.
func normalizeYAML(v any) any {
	switch value := v.(type) {
	case map[string]any:
		for key, member := range value {
			value[key] = normalizeYAML(member)
		}
		return value
	case map[any]any:
		result := make(map[string]any, len(value))
		for key, member := range value {
			result[fmt.Sprint(key)] = normalizeYAML(member)
		}
		return result
	case []any:
		for index, member := range value {
			value[index] = normalizeYAML(member)
		}
		return value
	default:
		return value
	}
}

// normalizeJSON converts float64 values holding whole numbers back to int.
func normalizeJSON(v any) any {
	switch value := v.(type) {
	case map[string]any:
		for key, member := range value {
			value[key] = normalizeJSON(member)
		}
		return value
	case []any:
		for index, member := range value {
			value[index] = normalizeJSON(member)
		}
		return value
	case float64:
		if value == float64(int64(value)) {
			return int(value)
		}
		return value
	default:
		return value
	}
}
