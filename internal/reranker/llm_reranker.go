package reranker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/knoguchi/semsearch/internal/llm"
	"github.com/knoguchi/semsearch/internal/metrics"
	"github.com/knoguchi/semsearch/internal/vectorstore"
)

const (
	// DefaultModel is the model used to judge relevance.
	DefaultModel = "gemma3:1b-it-qat"

	// DefaultTimeout bounds a single scoring call.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTokens caps the scoring answer; a single number needs very few.
	DefaultMaxTokens = 10

	// DefaultConcurrency is the number of scoring calls in flight.
	DefaultConcurrency = 4
)

// LLMReranker scores every query/document pair with one LLM call.
type LLMReranker struct {
	llmClient   llm.LLM
	model       string
	timeout     time.Duration
	maxTokens   int
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// LLMRerankerOption is a functional option for configuring LLMReranker.
type LLMRerankerOption func(*LLMReranker)

// WithModel sets the model to use for reranking.
func WithModel(model string) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.model = model
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.timeout = timeout
	}
}

// WithMaxTokens caps the length of each scoring answer.
func WithMaxTokens(n int) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.maxTokens = n
	}
}

// WithConcurrency sets how many scoring calls may run at once.
// 1 scores candidates sequentially.
func WithConcurrency(n int) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.concurrency = n
	}
}

// WithLogger sets the logger used to report scoring failures.
func WithLogger(logger *slog.Logger) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.logger = logger
	}
}

// WithMetrics records call outcomes and durations.
func WithMetrics(m *metrics.Metrics) LLMRerankerOption {
	return func(r *LLMReranker) {
		r.metrics = m
	}
}

// NewLLMReranker creates a new LLM-based reranker.
func NewLLMReranker(llmClient llm.LLM, opts ...LLMRerankerOption) *LLMReranker {
	r := &LLMReranker{
		llmClient:   llmClient,
		model:       DefaultModel,
		timeout:     DefaultTimeout,
		maxTokens:   DefaultMaxTokens,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.concurrency < 1 {
		r.concurrency = 1
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Rerank scores each candidate, overwrites its score with the normalized
// relevance and sorts the candidates by it. Documents are passed through
// unchanged.
func (r *LLMReranker) Rerank(ctx context.Context, query string, candidates []vectorstore.SearchResult) []vectorstore.SearchResult {
	if len(candidates) == 0 {
		return []vectorstore.SearchResult{}
	}

	scored := make([]vectorstore.SearchResult, len(candidates))

	// Goroutines never return an error, so one failed call cannot cancel the others.
	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, c := range candidates {
		g.Go(func() error {
			scored[i] = vectorstore.SearchResult{
				Document: c.Document,
				Score:    Normalize(r.score(ctx, query, c)),
				Source:   vectorstore.ScoreRerank,
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	return scored
}

// score asks the model for a raw 0-10 score. Any failure yields 0.
func (r *LLMReranker) score(ctx context.Context, query string, c vectorstore.SearchResult) float64 {
	opts := llm.GenerateOptions{
		Model:       r.model,
		Temperature: 0, // deterministic scoring
		MaxTokens:   r.maxTokens,
		Timeout:     r.timeout,
	}

	start := time.Now()
	answer, err := r.llmClient.Generate(ctx, BuildPrompt(query, c.Document.Content), opts)
	elapsed := time.Since(start)

	if err != nil {
		r.metrics.ObserveOracleCall(metrics.OutcomeCallError, elapsed)
		r.logger.ErrorContext(ctx, "rerank oracle call failed",
			"document_id", c.Document.ID,
			"model", r.model,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return 0
	}

	raw, ok := ParseScore(answer)
	if !ok {
		r.metrics.ObserveOracleCall(metrics.OutcomeParseError, elapsed)
		r.logger.WarnContext(ctx, "could not parse number from rerank answer",
			"document_id", c.Document.ID,
			"model", r.model,
			"answer", answer,
		)
		return 0
	}

	r.metrics.ObserveOracleCall(metrics.OutcomeOK, elapsed)
	r.logger.DebugContext(ctx, "rerank score",
		"document_id", c.Document.ID,
		"raw_score", raw,
		"duration_ms", elapsed.Milliseconds(),
	)
	return raw
}

// ModelName returns the model used for scoring.
func (r *LLMReranker) ModelName() string {
	return r.model
}

// BuildPrompt constructs the scoring prompt for one query/document pair.
func BuildPrompt(query, content string) string {
	return fmt.Sprintf(`You are a relevance scoring assistant.
Query: "%s"
Document: "%s"

On a scale from 0 (not relevant) to 10 (highly relevant), rate how relevant this document is to the query.
Respond with only a single number between 0 and 10. Nothing else.
`, query, content)
}

// Ensure LLMReranker implements Reranker interface.
var _ Reranker = (*LLMReranker)(nil)
