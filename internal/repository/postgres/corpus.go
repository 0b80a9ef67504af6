package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/semsearch/internal/repository"
)

// DefaultCorpusQuery reads the corpus from a table shaped like
//
//	CREATE TABLE documents (
//	    id       BIGINT PRIMARY KEY, -- or TEXT
//	    content  TEXT NOT NULL,
//	    metadata JSONB
//	);
//
// The id column is cast to text so both integer and text keys are supported.
// Rows come back in primary key order.
const DefaultCorpusQuery = `
	SELECT id::text, content, metadata
	FROM documents
	ORDER BY id
`

// CorpusSource implements repository.CorpusSource on top of a documents table
type CorpusSource struct {
	db    *DB
	query string
}

// CorpusOption is a functional option for configuring CorpusSource.
type CorpusOption func(*CorpusSource)

// WithQuery overrides the SELECT used to read the corpus. The query must
// return (id text, content text, metadata jsonb) rows.
func WithQuery(query string) CorpusOption {
	return func(s *CorpusSource) {
		s.query = query
	}
}

// NewCorpusSource creates a corpus source backed by the given pool
func NewCorpusSource(db *DB, opts ...CorpusOption) *CorpusSource {
	s := &CorpusSource{
		db:    db,
		query: DefaultCorpusQuery,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load reads every document row
func (s *CorpusSource) Load(ctx context.Context) ([]repository.Document, error) {
	rows, err := s.db.Pool.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	docs, err := pgx.CollectRows(rows, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}

	return docs, nil
}

func scanDocument(row pgx.CollectableRow) (repository.Document, error) {
	var (
		doc          repository.Document
		id           string
		metadataJSON []byte
	)

	if err := row.Scan(&id, &doc.Content, &metadataJSON); err != nil {
		return repository.Document{}, err
	}
	doc.ID = repository.DocumentID(id)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return repository.Document{}, fmt.Errorf("failed to unmarshal metadata for %s: %w", id, err)
		}
	}

	return doc, nil
}

// Ensure CorpusSource implements CorpusSource interface.
var _ repository.CorpusSource = (*CorpusSource)(nil)
