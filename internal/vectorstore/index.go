package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"github.com/knoguchi/semsearch/internal/repository"
)

// Index is an exact nearest-neighbour index. Vectors are L2-normalized at
// build time so the inner product of stored and query vectors is their
// cosine similarity. Position i of vectors belongs to position i of docs.
//
// An Index is immutable after Build and safe for concurrent searches.
type Index struct {
	vectors [][]float32
	docs    []repository.Document
	dim     int
}

// Build creates an index from parallel slices of embeddings and documents.
// Each embedding is normalized in place; the caller must not reuse them.
func Build(embeddings [][]float32, documents []repository.Document) (*Index, error) {
	if len(embeddings) != len(documents) {
		return nil, fmt.Errorf("%w: %d embeddings, %d documents", ErrLengthMismatch, len(embeddings), len(documents))
	}
	if len(embeddings) == 0 {
		return &Index{}, nil
	}

	dim := len(embeddings[0])
	for i, v := range embeddings {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	for _, v := range embeddings {
		Normalize(v)
	}

	return &Index{
		vectors: append([][]float32(nil), embeddings...),
		docs:    append([]repository.Document(nil), documents...),
		dim:     dim,
	}, nil
}

// Search returns up to k documents ordered by descending cosine similarity
// to query. Ties keep insertion order. The query slice is not modified.
func (idx *Index) Search(query []float32, k int) ([]SearchResult, error) {
	if k <= 0 || len(idx.vectors) == 0 {
		return []SearchResult{}, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", ErrDimensionMismatch, len(query), idx.dim)
	}

	q := append([]float32(nil), query...)
	Normalize(q)

	type scored struct {
		pos   int
		score float64
	}
	scoreds := make([]scored, len(idx.vectors))
	for i, v := range idx.vectors {
		scoreds[i] = scored{pos: i, score: Dot(q, v)}
	}

	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].score > scoreds[b].score })

	if k > len(scoreds) {
		k = len(scoreds)
	}

	results := make([]SearchResult, 0, k)
	for _, s := range scoreds[:k] {
		if s.pos < 0 || s.pos >= len(idx.docs) || math.IsNaN(s.score) {
			continue
		}
		results = append(results, SearchResult{
			Document: idx.docs[s.pos],
			Score:    s.score,
			Source:   ScoreCosine,
		})
	}

	return results, nil
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docs)
}

// Dimension returns the embedding dimension, or 0 for an empty index.
func (idx *Index) Dimension() int {
	return idx.dim
}

// Documents returns the indexed documents in insertion order.
func (idx *Index) Documents() []repository.Document {
	return append([]repository.Document(nil), idx.docs...)
}

// Normalize scales v to unit L2 length in place. A zero vector is left as is.
func Normalize(v []float32) {
	norm := math.Sqrt(Dot(v, v))
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
