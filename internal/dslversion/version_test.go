package dslversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/blueprintgo/internal/parseerr"
)

func TestParse(t *testing.T) {
	t.Run("supported versions", func(t *testing.T) {
		v, err := Parse("blueprint_dsl_1_2")
		require.NoError(t, err)
		assert.Equal(t, 1, v.Major)
		assert.Equal(t, 2, v.Minor)
		assert.Equal(t, "1_2", v.Definitions)
		assert.Equal(t, "blueprint_dsl_1_2", v.String())
	})

	t.Run("missing prefix", func(t *testing.T) {
		_, err := Parse("1_2")
		require.Error(t, err)
		perr, ok := parseerr.As(err)
		require.True(t, ok)
		assert.Equal(t, parseerr.CodeInvalidDSLVersion, perr.Code)
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := Parse("blueprint_dsl_9_9")
		require.Error(t, err)
		perr, ok := parseerr.As(err)
		require.True(t, ok)
		assert.Equal(t, parseerr.CodeInvalidDSLVersion, perr.Code)
	})
}

func TestLess(t *testing.T) {
	assert.True(t, V1_0.Less(V1_1))
	assert.True(t, V1_1.Less(V1_3))
	assert.False(t, V1_3.Less(V1_3))
	assert.False(t, V1_2.Less(V1_0))
}
