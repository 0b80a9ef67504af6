// Package reranker re-scores retrieval candidates with a generative model.
//
// Each candidate is judged independently: the model sees the query and one
// document, answers with a number on a 0-10 scale, and the first number in
// the answer becomes the candidate's relevance score.
//
// # Trade-offs
//
//   - Latency: one model call per candidate. Calls run with bounded
//     concurrency; with concurrency 1 the worst case is candidates × timeout.
//   - Robustness: a failed call or an answer without a number scores 0.
//     The candidate stays in the list and the rerank never fails.
//   - Scale: rerank scores are not comparable with similarity scores even
//     though both are in [0,1].
package reranker

import (
	"context"

	"github.com/knoguchi/semsearch/internal/vectorstore"
)

// Reranker defines the interface for re-ranking search results.
type Reranker interface {
	// Rerank returns the candidates re-scored and sorted by descending score.
	// The output has the same length as the input; ties keep input order.
	// Per-candidate failures are absorbed, so there is no error result.
	Rerank(ctx context.Context, query string, candidates []vectorstore.SearchResult) []vectorstore.SearchResult

	// ModelName returns the model identifier for logging.
	ModelName() string
}
