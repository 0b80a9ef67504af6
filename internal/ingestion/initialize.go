// Package ingestion builds the search index from the corpus at process startup.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/knoguchi/semsearch/internal/embedder"
	"github.com/knoguchi/semsearch/internal/repository"
	"github.com/knoguchi/semsearch/internal/vectorstore"
)

// Stats describes one index build.
type Stats struct {
	// DocumentCount is the number of indexed documents
	DocumentCount int

	// Dimension is the embedding dimension of the index
	Dimension int

	// LoadTime is how long reading the corpus took
	LoadTime time.Duration

	// EmbedTime is how long embedding all documents took
	EmbedTime time.Duration

	// TotalTime is the whole build duration
	TotalTime time.Duration
}

// Initialize loads the corpus, embeds every document and builds the index.
// It is called once by the process owner before any search is served; the
// returned index is immutable and must be passed explicitly to consumers.
func Initialize(ctx context.Context, source repository.CorpusSource, emb embedder.Embedder, logger *slog.Logger) (*vectorstore.Index, Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var stats Stats
	start := time.Now()

	docs, err := source.Load(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to load corpus: %w", err)
	}
	if err := repository.ValidateCorpus(docs); err != nil {
		return nil, stats, fmt.Errorf("invalid corpus: %w", err)
	}
	stats.LoadTime = time.Since(start)

	embedStart := time.Now()
	embeddings, err := emb.EmbedBatch(ctx, repository.Contents(docs))
	if err != nil {
		return nil, stats, fmt.Errorf("failed to embed corpus: %w", err)
	}
	stats.EmbedTime = time.Since(embedStart)

	idx, err := vectorstore.Build(embeddings, docs)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to build index: %w", err)
	}

	stats.DocumentCount = idx.Len()
	stats.Dimension = idx.Dimension()
	stats.TotalTime = time.Since(start)

	if want := emb.Dimension(); want > 0 && idx.Len() > 0 && want != idx.Dimension() {
		logger.Warn("index dimension differs from embedder default",
			"model", emb.ModelName(),
			"expected", want,
			"actual", idx.Dimension(),
		)
	}

	logger.Info("index built",
		"documents", stats.DocumentCount,
		"dimension", stats.Dimension,
		"model", emb.ModelName(),
		"load_ms", stats.LoadTime.Milliseconds(),
		"embed_ms", stats.EmbedTime.Milliseconds(),
		"total_ms", stats.TotalTime.Milliseconds(),
	)

	return idx, stats, nil
}
