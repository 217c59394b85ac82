package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"DOCSTORE_BACKEND", "DOCSTORE_DATA_DIR", "DOCSTORE_CODEC", "DOCSTORE_PREFIX", "DOCSTORE_QUEUED", "DOCSTORE_COMPRESS"} {
		t.Setenv(k, "")
	}
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--data-dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decodeOutput[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func TestCLIAddFindUpdateRemove(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "add", "users", `{"name":"ann","age":30}`)
	require.NoError(t, err)
	added := decodeOutput[map[string]any](t, out)
	assert.NotEmpty(t, added["_id"])

	_, err = runCLI(t, dir, "add", "users", `{"_id":"b","name":"bob","age":20}`)
	require.NoError(t, err)

	out, err = runCLI(t, dir, "collections")
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, decodeOutput[[]string](t, out))

	out, err = runCLI(t, dir, "find", "users", `{"$gt":{"age":25}}`, "--select", "name")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "ann"}}, decodeOutput[[]map[string]any](t, out))

	out, err = runCLI(t, dir, "update", "users", `{"_id":"b"}`, `{"$inc":{"age":1}}`, "--one")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ok": true}, decodeOutput[map[string]bool](t, out))

	out, err = runCLI(t, dir, "find", "users", `{"_id":"b"}`, "--one")
	require.NoError(t, err)
	assert.Equal(t, float64(21), decodeOutput[map[string]any](t, out)["age"])

	out, err = runCLI(t, dir, "remove", "users", `{"name":"ann"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ok": true}, decodeOutput[map[string]bool](t, out))

	out, err = runCLI(t, dir, "find", "users")
	require.NoError(t, err)
	docs := decodeOutput[[]map[string]any](t, out)
	require.Len(t, docs, 1)
	assert.Equal(t, "bob", docs[0]["name"])
}

func TestCLIFindOperatorShape(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "add", "users", `{"name":"ann","age":30}`)
	require.NoError(t, err)

	// Operators wrap the field map; a field wrapping an operator map is
	// a plain equality test against that map.
	out, err := runCLI(t, dir, "find", "users", `{"$gt":{"age":25}}`, "--select", "name")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "ann"}}, decodeOutput[[]map[string]any](t, out))

	out, err = runCLI(t, dir, "find", "users", `{"age":{"$gt":25}}`)
	require.NoError(t, err)
	assert.Empty(t, decodeOutput[[]map[string]any](t, out))
}

func TestCLIUpsertAndDrop(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "--queued", "update", "tags", `{"name":"go"}`, `{"count":1}`, "--upsert", "--extra", `{"kind":"lang"}`, "--gen-id=false")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ok": true}, decodeOutput[map[string]bool](t, out))

	out, err = runCLI(t, dir, "find", "tags")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "go", "count": float64(1), "kind": "lang"}}, decodeOutput[[]map[string]any](t, out))

	_, err = runCLI(t, dir, "drop", "tags")
	require.NoError(t, err)

	out, err = runCLI(t, dir, "collections")
	require.NoError(t, err)
	assert.Empty(t, decodeOutput[[]string](t, out))
}

func TestCLIRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "find", "users", `{not json`)
	assert.Error(t, err)

	_, err = runCLI(t, dir, "--backend", "nope", "collections")
	assert.Error(t, err)

	_, err = runCLI(t, dir, "add", "users")
	assert.Error(t, err)
}

func TestParseUpdaterAcceptsList(t *testing.T) {
	u, err := parseUpdater(`[{"$set":{"a":1}},{"$inc":{"b":2}}]`)
	require.NoError(t, err)
	assert.Len(t, u.Exprs(), 2)

	u, err = parseUpdater(`{"a":1}`)
	require.NoError(t, err)
	assert.Len(t, u.Exprs(), 1)
}
