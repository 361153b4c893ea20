package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertiesVisitsEveryMember(t *testing.T) {
	payload := map[string]any{
		"a": "1",
		"b": []any{"2", map[string]any{"c": "3"}},
	}

	var paths []string
	handler := func(value any, scope string, context map[string]any, path string) (any, error) {
		paths = append(paths, path)
		return value, nil
	}
	require.NoError(t, Properties(payload, handler, NodeTemplateScope, nil, "root", false))

	assert.Equal(t, []string{
		"root.a",
		"root.b",
		"root.b[0]",
		"root.b[1]",
		"root.b[1].c",
	}, paths)
}

func TestPropertiesReplaces(t *testing.T) {
	payload := map[string]any{
		"keep":    "as-is",
		"replace": "old",
		"nested":  []any{"old"},
	}
	handler := func(value any, scope string, context map[string]any, path string) (any, error) {
		if value == "old" {
			return "new", nil
		}
		return value, nil
	}
	require.NoError(t, Properties(payload, handler, NodeTemplateScope, nil, "root", true))

	assert.Equal(t, "as-is", payload["keep"])
	assert.Equal(t, "new", payload["replace"])
	assert.Equal(t, []any{"new"}, payload["nested"])
}

func TestPropertiesIdempotentWithoutReplacements(t *testing.T) {
	payload := map[string]any{
		"scalar": 5,
		"list":   []any{1, "two", true},
		"map":    map[string]any{"inner": nil},
	}
	identity := func(value any, scope string, context map[string]any, path string) (any, error) {
		return value, nil
	}
	require.NoError(t, Properties(payload, identity, OutputsScope, nil, "payload", true))

	assert.Equal(t, map[string]any{
		"scalar": 5,
		"list":   []any{1, "two", true},
		"map":    map[string]any{"inner": nil},
	}, payload)
}

func TestPropertiesStopsOnError(t *testing.T) {
	payload := map[string]any{"a": "boom", "b": "fine"}
	handler := func(value any, scope string, context map[string]any, path string) (any, error) {
		if value == "boom" {
			return nil, assert.AnError
		}
		return value, nil
	}
	err := Properties(payload, handler, NodeTemplateScope, nil, "root", false)
	assert.ErrorIs(t, err, assert.AnError)
}
