package core

import (
	"mime"
	"path/filepath"
	"strings"
)

// Message is a user request handed to a flow: free text plus optional
// attachment paths inside the agent workspace.
type Message struct {
	Message     string   `json:"message"`
	Attachments []string `json:"attachments,omitempty"`
}

// File references an attachment produced or consumed by the agents.
type File struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Filepath  string `json:"filepath"`
	Key       string `json:"key"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
}

// NewFile builds a File reference from a path. Size is left at zero; stores
// that know the object size fill it in.
func NewFile(path string) File {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	f := File{
		ID:        NewID(),
		Filename:  filepath.Base(path),
		Filepath:  path,
		Extension: ext,
	}

	if ext != "" {
		f.MimeType = mime.TypeByExtension("." + ext)
	}

	return f
}

// FilesFromPaths converts attachment paths into File references, skipping blanks.
func FilesFromPaths(paths []string) []File {
	files := make([]File, 0, len(paths))

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}

		files = append(files, NewFile(p))
	}

	return files
}
