package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "string", TypeName("x"))
	assert.Equal(t, "boolean", TypeName(true))
	assert.Equal(t, "number", TypeName(float64(1)))
	assert.Equal(t, "number", TypeName(int32(1)))
	assert.Equal(t, "number", TypeName(json.Number("1.5")))
	assert.Equal(t, "array", TypeName([]any{}))
	assert.Equal(t, "array", TypeName([]string{"a"}))
	assert.Equal(t, "object", TypeName(map[string]any{}))
	assert.Equal(t, "object", TypeName(map[string]int{}))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1, float64(1)))
	assert.True(t, Equal(json.Number("2"), int64(2)))
	assert.False(t, Equal(1, "1"))
	assert.False(t, Equal("1", 1))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, 0))
	assert.True(t, Equal([]any{1, "a"}, []any{float64(1), "a"}))
	assert.True(t, Equal([]int{1, 2}, []any{1, 2}))
	assert.False(t, Equal([]any{1, 2}, []any{2, 1}))
	assert.True(t, Equal(map[string]any{"a": 1}, map[string]any{"a": float64(1)}))
	assert.False(t, Equal(map[string]any{"a": 1}, map[string]any{"a": 1, "b": 2}))
	assert.False(t, Equal(map[string]any{}, []any{}))
}

func TestAsList(t *testing.T) {
	l, ok := AsList([]string{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, l)

	_, ok = AsList("ab")
	assert.False(t, ok)
	_, ok = AsList([]byte("ab"))
	assert.False(t, ok)
	_, ok = AsList(nil)
	assert.False(t, ok)
}
