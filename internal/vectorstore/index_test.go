package vectorstore

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/knoguchi/semsearch/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDocs(n int) []repository.Document {
	docs := make([]repository.Document, n)
	for i := range docs {
		docs[i] = repository.Document{
			ID:       repository.DocumentID(fmt.Sprintf("doc-%d", i+1)),
			Content:  fmt.Sprintf("content %d", i+1),
			Metadata: map[string]any{"position": i},
		}
	}
	return docs
}

func TestBuild_LengthMismatch(t *testing.T) {
	_, err := Build([][]float32{{1, 0}}, makeDocs(2))
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestBuild_DimensionMismatch(t *testing.T) {
	_, err := Build([][]float32{{1, 0}, {1, 0, 0}}, makeDocs(2))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuild_NormalizesInPlace(t *testing.T) {
	v := []float32{3, 4}
	idx, err := Build([][]float32{v}, makeDocs(1))
	require.NoError(t, err)

	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, 2, idx.Dimension())
	assert.Equal(t, 1, idx.Len())
}

func TestBuild_Empty(t *testing.T) {
	idx, err := Build(nil, nil)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 2}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, idx.Len())
}

func TestSearch_SelfSimilarity(t *testing.T) {
	embeddings := [][]float32{
		{1, 0, 0},
		{0.2, 0.9, 0.1},
		{0, 0, 5},
	}
	query := []float32{0.2, 0.9, 0.1}

	idx, err := Build(embeddings, makeDocs(3))
	require.NoError(t, err)

	results, err := idx.Search(query, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, repository.DocumentID("doc-2"), results[0].Document.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.Equal(t, ScoreCosine, results[0].Source)
}

func TestSearch_QueryNotMutated(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}}, makeDocs(1))
	require.NoError(t, err)

	query := []float32{3, 4}
	_, err = idx.Search(query, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, query)
}

func TestSearch_BoundedAndSorted(t *testing.T) {
	embeddings := [][]float32{
		{1, 0},
		{-1, 0},
		{0.7, 0.7},
		{0, 1},
		{0.9, 0.1},
	}
	idx, err := Build(embeddings, makeDocs(len(embeddings)))
	require.NoError(t, err)

	for _, k := range []int{1, 2, 5, 10} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			results, err := idx.Search([]float32{1, 0.2}, k)
			require.NoError(t, err)

			assert.LessOrEqual(t, len(results), min(k, idx.Len()))
			for i := 1; i < len(results); i++ {
				assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
			}
			for _, r := range results {
				assert.GreaterOrEqual(t, r.Score, -1.0-1e-6)
				assert.LessOrEqual(t, r.Score, 1.0+1e-6)
			}
		})
	}
}

func TestSearch_NonPositiveK(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}}, makeDocs(1))
	require.NoError(t, err)

	for _, k := range []int{0, -3} {
		results, err := idx.Search([]float32{1, 0}, k)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	embeddings := [][]float32{
		{0, 1},
		{1, 0},
		{2, 0},
		{5, 0},
	}
	idx, err := Build(embeddings, makeDocs(4))
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, repository.DocumentID("doc-2"), results[0].Document.ID)
	assert.Equal(t, repository.DocumentID("doc-3"), results[1].Document.ID)
	assert.Equal(t, repository.DocumentID("doc-4"), results[2].Document.ID)
}

func TestSearch_ZeroVectors(t *testing.T) {
	embeddings := [][]float32{
		{0, 0},
		{1, 0},
	}
	idx, err := Build(embeddings, makeDocs(2))
	require.NoError(t, err)

	results, err := idx.Search([]float32{-1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// zero vector scores 0 and outranks the opposite vector
	assert.Equal(t, repository.DocumentID("doc-1"), results[0].Document.ID)
	assert.Equal(t, 0.0, results[0].Score)
	assert.InDelta(t, -1.0, results[1].Score, 1e-6)

	results, err = idx.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, math.IsNaN(r.Score))
		assert.Equal(t, 0.0, r.Score)
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}}, makeDocs(1))
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_Concurrent(t *testing.T) {
	embeddings := [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}
	idx, err := Build(embeddings, makeDocs(3))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := idx.Search([]float32{1, 0}, 2)
			assert.NoError(t, err)
			assert.Len(t, results, 2)
		}()
	}
	wg.Wait()
}

func TestNormalize(t *testing.T) {
	v := []float32{0, 0, 0}
	Normalize(v)
	assert.Equal(t, []float32{0, 0, 0}, v)

	w := []float32{0, 2}
	Normalize(w)
	assert.Equal(t, []float32{0, 1}, w)
}
