package directory

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
	"github.com/Cyclone1070/aide/internal/tool/gitutil"
)

func newWorkspace(t *testing.T, files map[string]string) (*sandbox.Validator, string) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	policy, err := sandbox.NewPolicy(root, 0, nil, nil)
	require.NoError(t, err)
	return sandbox.NewValidator(policy), policy.Root
}

func listResponse(t *testing.T, out string) ListResponse {
	t.Helper()
	var resp ListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestListTool(t *testing.T) {
	v, _ := newWorkspace(t, map[string]string{
		"main.go":       "package main",
		"sub/helper.go": "package sub",
		"sub/README.md": "# sub",
	})

	listTool := NewListTool(v, nil, 100)
	out, err := listTool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)

	resp := listResponse(t, out)
	paths := make(map[string]bool)
	for _, e := range resp.Entries {
		paths[e.Path] = e.IsDir
	}
	assert.False(t, paths["main.go"])
	assert.True(t, paths["sub"])
	assert.False(t, paths["sub/helper.go"])
	assert.False(t, resp.Truncated)
}

func TestListToolPattern(t *testing.T) {
	v, _ := newWorkspace(t, map[string]string{
		"main.go":       "x",
		"sub/helper.go": "x",
		"notes.md":      "x",
	})

	listTool := NewListTool(v, nil, 100)
	out, err := listTool.Execute(context.Background(), map[string]any{"pattern": "*.go"})
	require.NoError(t, err)

	resp := listResponse(t, out)
	for _, e := range resp.Entries {
		assert.Equal(t, ".go", filepath.Ext(e.Path))
	}
	require.Len(t, resp.Entries, 2)
}

func TestListToolInvalidPattern(t *testing.T) {
	v, _ := newWorkspace(t, nil)
	listTool := NewListTool(v, nil, 100)

	_, err := listTool.Execute(context.Background(), map[string]any{"pattern": "[unclosed"})
	assert.ErrorIs(t, err, tool.ErrInvalidPattern)
}

func TestListToolTruncation(t *testing.T) {
	files := map[string]string{}
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		files[n+".txt"] = "x"
	}
	v, _ := newWorkspace(t, files)

	listTool := NewListTool(v, nil, 3)
	out, err := listTool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)

	resp := listResponse(t, out)
	assert.Len(t, resp.Entries, 3)
	assert.True(t, resp.Truncated)
}

func TestListToolGitignore(t *testing.T) {
	v, root := newWorkspace(t, map[string]string{
		".gitignore":    "build/\n*.log\n",
		"main.go":       "x",
		"build/out.bin": "x",
		"trace.log":     "x",
		".git/HEAD":     "ref: refs/heads/main",
	})

	ignore, err := gitutil.NewIgnoreMatcher(root)
	require.NoError(t, err)

	listTool := NewListTool(v, ignore, 100)
	out, err := listTool.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)

	resp := listResponse(t, out)
	paths := make(map[string]bool)
	for _, e := range resp.Entries {
		paths[e.Path] = true
	}
	assert.True(t, paths["main.go"])
	assert.False(t, paths["build"], "gitignored directory must be skipped")
	assert.False(t, paths["build/out.bin"])
	assert.False(t, paths["trace.log"])
	assert.False(t, paths[".git"], ".git is always ignored")
}

func TestListToolEscape(t *testing.T) {
	v, _ := newWorkspace(t, nil)
	listTool := NewListTool(v, nil, 100)

	_, err := listTool.Execute(context.Background(), map[string]any{"path": "../"})
	assert.ErrorIs(t, err, sandbox.ErrPathEscape)
}
