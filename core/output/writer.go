// Package output handles file naming and writing for rendered posts.
// Post URLs such as https://www.patreon.com/posts/my-post-123 become
// my-post-123.<ext>; local HTML files keep their base name.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Write stores data under a name derived from source, a post URL or a
// local file path, and returns the written path.
func (w *Writer) Write(source string, data []byte, ext string) (string, error) {
	p := filepath.Join(w.OutputDir, Name(source)+ext)
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", p, err)
	}
	return p, nil
}

// Name derives a flat file name from a post URL or file path.
// Example: https://www.patreon.com/posts/intro-98765?l=de → intro-98765
func Name(source string) string {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		base := filepath.Base(source)
		return sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
	}

	p := strings.Trim(u.Path, "/")
	if p == "" {
		return sanitize(u.Host)
	}
	return sanitize(path.Base(p))
}

// sanitize replaces everything except letters, digits, '-' and '_' with
// underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			b.WriteRune(ch)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "post"
	}
	return b.String()
}
