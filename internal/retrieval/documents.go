package retrieval

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoDocuments is returned when the configured sources match no files.
var ErrNoDocuments = errors.New("no reference documents found")

// Document is one reference text with its source filename.
type Document struct {
	Source string
	Text   string
}

// ResolveSources expands glob patterns into a sorted, de-duplicated file list.
// A pattern without glob metacharacters must name an existing file.
func ResolveSources(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 && !strings.ContainsAny(pattern, "*?[") {
			return nil, fmt.Errorf("reference document %s: %w", pattern, os.ErrNotExist)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w for %v", ErrNoDocuments, patterns)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadDocuments reads every path in full. Any unreadable or empty file fails
// the whole read; no partial set is returned.
func ReadDocuments(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read reference document %s: %w", p, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, fmt.Errorf("reference document %s is empty", p)
		}
		docs = append(docs, Document{Source: filepath.Base(p), Text: string(data)})
	}
	return docs, nil
}
