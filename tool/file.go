package tool

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hupe1980/planact/core"
)

const (
	defaultMaxReadLength = 10000
	maxFindResults       = 200
)

// FileToolkit exposes file operations confined to a root directory. Absolute
// paths must resolve inside the root; relative paths are joined to it.
type FileToolkit struct {
	*Toolkit
	root       string
	maxResults int
}

type fileReadArgs struct {
	Filepath  string `json:"filepath" description:"Path of the file to read"`
	StartLine *int   `json:"start_line" description:"(Optional) first line to read, zero based"`
	EndLine   *int   `json:"end_line" description:"(Optional) line to stop at, exclusive"`
	MaxLength *int   `json:"max_length" description:"(Optional) maximum number of characters returned, default 10000"`
}

type fileWriteArgs struct {
	Filepath        string `json:"filepath" description:"Path of the file to write"`
	Content         string `json:"content" description:"Text content to write"`
	Append          bool   `json:"append,omitempty" description:"(Optional) append instead of overwrite"`
	LeadingNewline  bool   `json:"leading_newline,omitempty" description:"(Optional) prepend a newline to the content"`
	TrailingNewline bool   `json:"trailing_newline,omitempty" description:"(Optional) append a newline to the content"`
}

type fileReplaceArgs struct {
	Filepath string `json:"filepath" description:"Path of the file to modify"`
	OldStr   string `json:"old_str" description:"Original text to replace"`
	NewStr   string `json:"new_str" description:"Replacement text"`
}

type fileSearchArgs struct {
	Filepath string `json:"filepath" description:"Path of the file to search"`
	Regex    string `json:"regex" description:"Regular expression matched against every line"`
}

type fileFindArgs struct {
	DirPath     string `json:"dir_path" description:"Directory to search"`
	GlobPattern string `json:"glob_pattern" description:"File name pattern in glob syntax; plain words are matched fuzzily"`
}

type fileListArgs struct {
	DirPath string `json:"dir_path" description:"Directory to list"`
}

// LineMatch is one hit of file_find_in_content.
type LineMatch struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// FileEntry is one entry returned by file_list.
type FileEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// NewFileToolkit creates the "file" provider rooted at root.
func NewFileToolkit(root string, optFns ...func(o *ToolkitOptions)) (*FileToolkit, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("file toolkit root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("file toolkit root: %w", err)
	}

	opts := ToolkitOptions{MaxResults: maxFindResults}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxResults <= 0 {
		opts.MaxResults = maxFindResults
	}

	ft := &FileToolkit{root: abs, maxResults: opts.MaxResults}
	ft.Toolkit = NewToolkit("file", []Tool{
		NewTypedTool("file_read", "Read file content. Use it to inspect files, logs or configuration.", ft.read),
		NewTypedTool("file_write", "Overwrite or append to a file. Use it to create files or change existing content.", ft.write),
		NewTypedTool("file_str_replace", "Replace a string in a file. Use it to update specific content.", ft.replace),
		NewTypedTool("file_find_in_content", "Search a file for lines matching a regular expression.", ft.search),
		NewTypedTool("file_find_by_name", "Find files in a directory by name pattern.", ft.find),
		NewTypedTool("file_list", "List the entries of a directory.", ft.list),
	}, optFns...)

	return ft, nil
}

// Root returns the absolute root directory.
func (ft *FileToolkit) Root() string { return ft.root }

// resolve maps a model supplied path into the root.
func (ft *FileToolkit) resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("empty path")
	}

	var full string
	if filepath.IsAbs(p) {
		full = filepath.Clean(p)
	} else {
		full = filepath.Join(ft.root, p)
	}

	rel, err := filepath.Rel(ft.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the workspace %s", p, ft.root)
	}

	return full, nil
}

func (ft *FileToolkit) read(_ context.Context, args fileReadArgs) (any, error) {
	path, err := ft.resolve(args.Filepath)
	if err != nil {
		return core.Fail[any](err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content := string(data)

	if args.StartLine != nil || args.EndLine != nil {
		lines := strings.Split(content, "\n")

		start, end := 0, len(lines)
		if args.StartLine != nil {
			start = clamp(*args.StartLine, 0, len(lines))
		}

		if args.EndLine != nil {
			end = clamp(*args.EndLine, start, len(lines))
		}

		content = strings.Join(lines[start:end], "\n")
	}

	maxLen := defaultMaxReadLength
	if args.MaxLength != nil && *args.MaxLength > 0 {
		maxLen = *args.MaxLength
	}

	if runes := []rune(content); len(runes) > maxLen {
		content = string(runes[:maxLen]) + "(truncated)"
	}

	return map[string]any{"filepath": path, "content": content}, nil
}

func (ft *FileToolkit) write(_ context.Context, args fileWriteArgs) (any, error) {
	path, err := ft.resolve(args.Filepath)
	if err != nil {
		return core.Fail[any](err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	content := args.Content
	if args.LeadingNewline {
		content = "\n" + content
	}

	if args.TrailingNewline {
		content += "\n"
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if args.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := f.WriteString(content)
	if err != nil {
		return nil, err
	}

	return map[string]any{"filepath": path, "bytes_written": n}, nil
}

func (ft *FileToolkit) replace(_ context.Context, args fileReplaceArgs) (any, error) {
	path, err := ft.resolve(args.Filepath)
	if err != nil {
		return core.Fail[any](err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	count := strings.Count(string(data), args.OldStr)
	if args.OldStr == "" || count == 0 {
		return core.Fail[any](fmt.Sprintf("string not found in %s", path)), nil
	}

	updated := strings.ReplaceAll(string(data), args.OldStr, args.NewStr)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return nil, err
	}

	return map[string]any{"filepath": path, "replaced": count}, nil
}

func (ft *FileToolkit) search(_ context.Context, args fileSearchArgs) (any, error) {
	path, err := ft.resolve(args.Filepath)
	if err != nil {
		return core.Fail[any](err.Error()), nil
	}

	re, err := regexp.Compile(args.Regex)
	if err != nil {
		return core.Fail[any](fmt.Sprintf("invalid regex: %v", err)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	matches := []LineMatch{}

	for i, line := range strings.Split(string(data), "\n") {
		if re.MatchString(line) {
			matches = append(matches, LineMatch{Line: i, Content: line})
			if len(matches) == ft.maxResults {
				break
			}
		}
	}

	return map[string]any{"filepath": path, "matches": matches}, nil
}

func (ft *FileToolkit) find(_ context.Context, args fileFindArgs) (any, error) {
	dir, err := ft.resolve(args.DirPath)
	if err != nil {
		return core.Fail[any](err.Error()), nil
	}

	var files []string

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			files = append(files, p)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	results := []string{}

	if strings.ContainsAny(args.GlobPattern, "*?[") {
		for _, p := range files {
			if ok, _ := filepath.Match(args.GlobPattern, filepath.Base(p)); ok {
				results = append(results, p)
			}
		}
	} else {
		names := make([]string, len(files))
		for i, p := range files {
			names[i] = filepath.Base(p)
		}

		for _, m := range fuzzy.Find(args.GlobPattern, names) {
			results = append(results, files[m.Index])
		}
	}

	if len(results) > ft.maxResults {
		results = results[:ft.maxResults]
	}

	return map[string]any{"dir_path": dir, "files": results}, nil
}

func (ft *FileToolkit) list(_ context.Context, args fileListArgs) (any, error) {
	dir, err := ft.resolve(args.DirPath)
	if err != nil {
		return core.Fail[any](err.Error()), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := make([]FileEntry, 0, len(entries))

	for _, e := range entries {
		fe := FileEntry{Name: e.Name(), IsDir: e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			fe.Size = info.Size()
		}

		out = append(out, fe)
	}

	return map[string]any{"dir_path": dir, "entries": out}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
