// Package vectorstore provides an exact, in-memory cosine similarity index
// over document embeddings.
package vectorstore

import (
	"errors"

	"github.com/knoguchi/semsearch/internal/repository"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLengthMismatch is returned when embeddings and documents are not parallel
	ErrLengthMismatch = errors.New("embeddings and documents length mismatch")
)

// ScoreSource records which stage last wrote a SearchResult's score.
// Similarity and rerank scores both live in [0,1] but are not comparable.
type ScoreSource string

const (
	// ScoreCosine is the raw cosine similarity in [-1,1] produced by Index.Search.
	ScoreCosine ScoreSource = "cosine"

	// ScoreSimilarity is the cosine similarity mapped into [0,1].
	ScoreSimilarity ScoreSource = "similarity"

	// ScoreRerank is the oracle relevance judgment normalized into [0,1].
	ScoreRerank ScoreSource = "rerank"
)

// SearchResult pairs a document with a stage-specific score.
type SearchResult struct {
	Document repository.Document
	Score    float64
	Source   ScoreSource
}
