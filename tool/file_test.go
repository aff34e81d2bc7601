package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileToolkit(t *testing.T) *FileToolkit {
	t.Helper()

	ft, err := NewFileToolkit(t.TempDir())
	require.NoError(t, err)

	return ft
}

func TestFileToolkit_WriteReadReplace(t *testing.T) {
	ft := newFileToolkit(t)
	ctx := context.Background()

	res, err := ft.Invoke(ctx, "file_write", map[string]any{"filepath": "notes/hello.txt", "content": "Hello\nWorld", "trailing_newline": true})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	data, err := os.ReadFile(filepath.Join(ft.Root(), "notes", "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello\nWorld\n", string(data))

	res, err = ft.Invoke(ctx, "file_read", map[string]any{"filepath": filepath.Join(ft.Root(), "notes/hello.txt"), "start_line": 1.0, "end_line": 2.0})
	require.NoError(t, err)
	assert.Equal(t, "World", res.Data.(map[string]any)["content"])

	res, err = ft.Invoke(ctx, "file_write", map[string]any{"filepath": "notes/hello.txt", "content": "!", "append": true})
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = ft.Invoke(ctx, "file_str_replace", map[string]any{"filepath": "notes/hello.txt", "old_str": "World", "new_str": "Go"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Data.(map[string]any)["replaced"])

	data, _ = os.ReadFile(filepath.Join(ft.Root(), "notes", "hello.txt"))
	assert.Equal(t, "Hello\nGo\n!", string(data))

	res, err = ft.Invoke(ctx, "file_str_replace", map[string]any{"filepath": "notes/hello.txt", "old_str": "absent", "new_str": "x"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestFileToolkit_ReadTruncates(t *testing.T) {
	ft := newFileToolkit(t)
	require.NoError(t, os.WriteFile(filepath.Join(ft.Root(), "big.txt"), []byte("abcdefghij"), 0o644))

	res, err := ft.Invoke(context.Background(), "file_read", map[string]any{"filepath": "big.txt", "max_length": 4.0})
	require.NoError(t, err)
	assert.Equal(t, "abcd(truncated)", res.Data.(map[string]any)["content"])
}

func TestFileToolkit_RejectsEscape(t *testing.T) {
	ft := newFileToolkit(t)

	for _, p := range []string{"../outside.txt", "/etc/passwd"} {
		res, err := ft.Invoke(context.Background(), "file_read", map[string]any{"filepath": p})
		require.NoError(t, err, p)
		assert.False(t, res.Success, p)
		assert.Contains(t, res.Message, "outside the workspace", p)
	}
}

func TestFileToolkit_SearchFindList(t *testing.T) {
	ft := newFileToolkit(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(ft.Root(), "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ft.Root(), "src", "main.go"), []byte("package main\nfunc main() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ft.Root(), "src", "README.md"), []byte("docs"), 0o644))

	res, err := ft.Invoke(ctx, "file_find_in_content", map[string]any{"filepath": "src/main.go", "regex": `^func`})
	require.NoError(t, err)
	matches := res.Data.(map[string]any)["matches"].([]LineMatch)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Line)

	res, err = ft.Invoke(ctx, "file_find_in_content", map[string]any{"filepath": "src/main.go", "regex": `(`})
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = ft.Invoke(ctx, "file_find_by_name", map[string]any{"dir_path": ".", "glob_pattern": "*.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(ft.Root(), "src", "main.go")}, res.Data.(map[string]any)["files"])

	res, err = ft.Invoke(ctx, "file_find_by_name", map[string]any{"dir_path": ".", "glob_pattern": "mgo"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(ft.Root(), "src", "main.go")}, res.Data.(map[string]any)["files"])

	res, err = ft.Invoke(ctx, "file_list", map[string]any{"dir_path": "src"})
	require.NoError(t, err)
	entries := res.Data.(map[string]any)["entries"].([]FileEntry)
	assert.Len(t, entries, 2)
}

func TestFileToolkit_MaxResults(t *testing.T) {
	ft, err := NewFileToolkit(t.TempDir(), func(o *ToolkitOptions) { o.MaxResults = 2 })
	require.NoError(t, err)

	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(ft.Root(), name), []byte("x\nx\nx\n"), 0o644))
	}

	res, err := ft.Invoke(ctx, "file_find_by_name", map[string]any{"dir_path": ".", "glob_pattern": "*.txt"})
	require.NoError(t, err)
	assert.Len(t, res.Data.(map[string]any)["files"], 2)

	res, err = ft.Invoke(ctx, "file_find_in_content", map[string]any{"filepath": "a.txt", "regex": "x"})
	require.NoError(t, err)
	assert.Len(t, res.Data.(map[string]any)["matches"], 2)
}
