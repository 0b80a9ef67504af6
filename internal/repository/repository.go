// Package repository defines the corpus document model and the interface used to load it.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when two corpus documents share an ID
	ErrDuplicateID = errors.New("duplicate document id")

	// ErrEmptyID is returned when a corpus document has no ID
	ErrEmptyID = errors.New("empty document id")
)

// DocumentID identifies a corpus document. Corpus files may use either
// JSON strings or JSON numbers for ids; both decode into a DocumentID and
// numbers are kept in their literal form.
type DocumentID string

// UnmarshalJSON accepts a JSON string or number.
func (id *DocumentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = DocumentID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("document id must be a string or number: %w", err)
	}
	*id = DocumentID(n.String())
	return nil
}

// Document is an immutable corpus record. It is created once when the
// corpus is loaded and never mutated afterwards.
type Document struct {
	ID       DocumentID     `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CorpusSource loads the ordered corpus the index is built from.
type CorpusSource interface {
	// Load returns every document of the corpus in a stable order.
	Load(ctx context.Context) ([]Document, error)
}

// ValidateCorpus checks that every document has a non-empty, unique ID.
func ValidateCorpus(docs []Document) error {
	seen := make(map[DocumentID]int, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document at position %d: %w", i, ErrEmptyID)
		}
		if prev, ok := seen[doc.ID]; ok {
			return fmt.Errorf("document %q at positions %d and %d: %w", doc.ID, prev, i, ErrDuplicateID)
		}
		seen[doc.ID] = i
	}
	return nil
}

// Contents returns the content of each document in corpus order.
func Contents(docs []Document) []string {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	return texts
}
