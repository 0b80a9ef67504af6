// Package jsonfile loads a corpus from a JSON array of documents on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knoguchi/semsearch/internal/repository"
)

// Source reads documents from a JSON file such as data/news.json.
type Source struct {
	path string
}

// New creates a corpus source for the given file path.
func New(path string) *Source {
	return &Source{path: path}
}

// Load decodes the whole file. Documents keep the order they have in the array.
func (s *Source) Load(ctx context.Context) ([]repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Clean(s.path))
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", s.path, err)
	}
	defer f.Close()

	var docs []repository.Document
	if err := json.NewDecoder(f).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode corpus %s: %w", s.path, err)
	}

	return docs, nil
}

// Ensure Source implements CorpusSource interface.
var _ repository.CorpusSource = (*Source)(nil)
