package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/knoguchi/semsearch/internal/embedder"
	"github.com/knoguchi/semsearch/internal/metrics"
	"github.com/knoguchi/semsearch/internal/repository"
	"github.com/knoguchi/semsearch/internal/reranker"
	"github.com/knoguchi/semsearch/internal/vectorstore"
)

var (
	// ErrEmbedding is returned when the query cannot be embedded
	ErrEmbedding = errors.New("query embedding failed")

	// ErrRetrieval is returned when the index search fails
	ErrRetrieval = errors.New("vector retrieval failed")
)

// Index is the read-only retrieval stage the service searches.
type Index interface {
	Search(query []float32, k int) ([]vectorstore.SearchResult, error)
	Len() int
}

// SearchRequest holds the parameters of one search
type SearchRequest struct {
	Query   string
	K       int  // candidates retrieved from the index
	Rerank  bool // rescore candidates with the reranker
	RerankK int  // results returned after the optional rerank
}

// Result is one ranked document
type Result struct {
	ID          repository.DocumentID
	Content     string
	Metadata    map[string]any
	Score       float64
	ScoreSource vectorstore.ScoreSource
}

// Metrics describes how a search was served
type Metrics struct {
	LatencyMs int64
	TotalDocs int
}

// SearchResponse is the ranked result of a search. Scores of a reranked
// response and a non-reranked one are on different scales.
type SearchResponse struct {
	Results  []Result
	Reranked bool
	Metrics  Metrics
}

// SearchService runs the retrieve-then-rerank pipeline
type SearchService struct {
	index    Index
	embedder embedder.Embedder
	reranker reranker.Reranker // Optional: without it rerank requests are served by similarity
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// SearchServiceOption is a functional option for configuring SearchService.
type SearchServiceOption func(*SearchService)

// WithReranker sets the reranker used when a request asks for reranking.
func WithReranker(r reranker.Reranker) SearchServiceOption {
	return func(s *SearchService) {
		s.reranker = r
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) SearchServiceOption {
	return func(s *SearchService) {
		s.logger = logger
	}
}

// WithMetrics records search latency and failures.
func WithMetrics(m *metrics.Metrics) SearchServiceOption {
	return func(s *SearchService) {
		s.metrics = m
	}
}

// NewSearchService creates a search service over a built index
func NewSearchService(index Index, emb embedder.Embedder, opts ...SearchServiceOption) *SearchService {
	s := &SearchService{
		index:    index,
		embedder: emb,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// TotalDocs returns the size of the searched corpus
func (s *SearchService) TotalDocs() int {
	return s.index.Len()
}

// Handle embeds the query, retrieves the top K documents and optionally
// reranks them before truncating to RerankK. Embedding and retrieval
// failures abort the request; rerank failures never do.
func (s *SearchService) Handle(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return &SearchResponse{
			Results: []Result{},
			Metrics: Metrics{TotalDocs: s.index.Len()},
		}, nil
	}

	start := time.Now()
	logger := s.logger.With("search_id", uuid.NewString())

	queryVector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		s.metrics.IncSearchFailure("embed")
		logger.ErrorContext(ctx, "query embedding failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	hits, err := s.index.Search(queryVector, req.K)
	if err != nil {
		s.metrics.IncSearchFailure("retrieve")
		logger.ErrorContext(ctx, "index search failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	retrievalTime := time.Since(start)

	candidates := toSimilarity(hits)

	reranked := false
	var rerankTime time.Duration
	if req.Rerank && s.reranker != nil {
		rerankStart := time.Now()
		candidates = s.reranker.Rerank(ctx, req.Query, candidates)
		rerankTime = time.Since(rerankStart)
		reranked = true
	}

	candidates = truncate(candidates, req.RerankK)
	latency := time.Since(start)

	s.metrics.ObserveSearch(reranked, latency)
	logger.InfoContext(ctx, "search completed",
		"k", req.K,
		"rerank_k", req.RerankK,
		"reranked", reranked,
		"candidates", len(hits),
		"results", len(candidates),
		"retrieval_ms", retrievalTime.Milliseconds(),
		"rerank_ms", rerankTime.Milliseconds(),
		"latency_ms", latency.Milliseconds(),
	)

	return &SearchResponse{
		Results:  toResults(candidates),
		Reranked: reranked,
		Metrics: Metrics{
			LatencyMs: latency.Milliseconds(),
			TotalDocs: s.index.Len(),
		},
	}, nil
}

// toSimilarity maps raw cosine scores from [-1,1] into [0,1].
func toSimilarity(hits []vectorstore.SearchResult) []vectorstore.SearchResult {
	out := make([]vectorstore.SearchResult, len(hits))
	for i, h := range hits {
		out[i] = vectorstore.SearchResult{
			Document: h.Document,
			Score:    (h.Score + 1) / 2,
			Source:   vectorstore.ScoreSimilarity,
		}
	}
	return out
}

// truncate keeps the first n results; n <= 0 keeps none.
func truncate(results []vectorstore.SearchResult, n int) []vectorstore.SearchResult {
	if n <= 0 {
		return results[:0]
	}
	if len(results) > n {
		return results[:n]
	}
	return results
}

func toResults(candidates []vectorstore.SearchResult) []Result {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{
			ID:          c.Document.ID,
			Content:     c.Document.Content,
			Metadata:    c.Document.Metadata,
			Score:       c.Score,
			ScoreSource: c.Source,
		}
	}
	return results
}

// Ensure the vector index satisfies the retrieval stage.
var _ Index = (*vectorstore.Index)(nil)
