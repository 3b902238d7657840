package search

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/aide/internal/sandbox"
	"github.com/Cyclone1070/aide/internal/tool"
)

func newWorkspace(t *testing.T, files map[string][]byte) *sandbox.Validator {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644))
	}
	policy, err := sandbox.NewPolicy(root, 0, nil, nil)
	require.NoError(t, err)
	return sandbox.NewValidator(policy)
}

func searchResponse(t *testing.T, out string) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestSearchTool(t *testing.T) {
	v := newWorkspace(t, map[string][]byte{
		"main.go":       []byte("package main\n\nfunc main() {}\n"),
		"sub/helper.go": []byte("package sub\n\nfunc Helper() {}\n"),
	})

	searchTool := NewSearchTool(v, nil, 100)
	out, err := searchTool.Execute(context.Background(), map[string]any{"pattern": `func \w+\(`})
	require.NoError(t, err)

	resp := searchResponse(t, out)
	require.Len(t, resp.Matches, 2)
	for _, m := range resp.Matches {
		assert.Contains(t, m.Text, "func ")
		assert.Greater(t, m.Line, 0)
	}
}

func TestSearchToolInvalidPattern(t *testing.T) {
	v := newWorkspace(t, nil)
	searchTool := NewSearchTool(v, nil, 100)

	_, err := searchTool.Execute(context.Background(), map[string]any{"pattern": "([unclosed"})
	assert.ErrorIs(t, err, tool.ErrInvalidPattern)
}

func TestSearchToolSkipsBinaryFiles(t *testing.T) {
	v := newWorkspace(t, map[string][]byte{
		"data.bin": {0, 'm', 'a', 't', 'c', 'h', 0},
		"text.txt": []byte("match here\n"),
	})

	searchTool := NewSearchTool(v, nil, 100)
	out, err := searchTool.Execute(context.Background(), map[string]any{"pattern": "match"})
	require.NoError(t, err)

	resp := searchResponse(t, out)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "text.txt", resp.Matches[0].Path)
}

func TestSearchToolBoundedResults(t *testing.T) {
	content := []byte("hit\nhit\nhit\nhit\nhit\n")
	v := newWorkspace(t, map[string][]byte{"many.txt": content})

	searchTool := NewSearchTool(v, nil, 2)
	out, err := searchTool.Execute(context.Background(), map[string]any{"pattern": "hit"})
	require.NoError(t, err)

	resp := searchResponse(t, out)
	assert.Len(t, resp.Matches, 2)
	assert.True(t, resp.Truncated)
}

func TestSearchToolScopedPath(t *testing.T) {
	v := newWorkspace(t, map[string][]byte{
		"a/one.txt": []byte("needle\n"),
		"b/two.txt": []byte("needle\n"),
	})

	searchTool := NewSearchTool(v, nil, 100)
	out, err := searchTool.Execute(context.Background(), map[string]any{"pattern": "needle", "path": "a"})
	require.NoError(t, err)

	resp := searchResponse(t, out)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "a/one.txt", resp.Matches[0].Path)
}

func TestSearchToolEscape(t *testing.T) {
	v := newWorkspace(t, nil)
	searchTool := NewSearchTool(v, nil, 100)

	_, err := searchTool.Execute(context.Background(), map[string]any{"pattern": "x", "path": "../../"})
	assert.ErrorIs(t, err, sandbox.ErrPathEscape)
}
