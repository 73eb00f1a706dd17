// Package fileextract turns uploaded reference documents into the single
// text block the auto-population prompt consumes.
package fileextract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoFiles   = errors.New("no files provided")
	ErrEmptyFile = errors.New("file is empty")
)

// File is one extracted reference document.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Concatenate joins the extracted files into one prompt block. Order is
// preserved; every file must carry a name and non-blank content.
func Concatenate(files []File) (string, error) {
	if len(files) == 0 {
		return "", ErrNoFiles
	}

	sections := make([]string, 0, len(files))
	for i, file := range files {
		name := strings.TrimSpace(file.Name)
		if name == "" {
			return "", fmt.Errorf("%w: file %d has no name", ErrEmptyFile, i)
		}
		if strings.TrimSpace(file.Content) == "" {
			return "", fmt.Errorf("%w: file %q has no content", ErrEmptyFile, name)
		}
		sections = append(sections, fmt.Sprintf("File: %s\n\nContent:\n%s", name, file.Content))
	}
	return strings.Join(sections, "\n\n"), nil
}
