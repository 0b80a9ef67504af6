package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/knoguchi/semsearch/internal/service"
)

// Searcher is the pipeline behind POST /search
type Searcher interface {
	Handle(ctx context.Context, req service.SearchRequest) (*service.SearchResponse, error)
}

// RequestDefaults fill fields omitted from a search request body. A zero K or
// RerankK falls back to 12 or 7.
type RequestDefaults struct {
	K       int
	Rerank  bool
	RerankK int
}

func (d RequestDefaults) withFallbacks() RequestDefaults {
	if d.K == 0 {
		d.K = 12
	}
	if d.RerankK == 0 {
		d.RerankK = 7
	}
	return d
}

type searchRequest struct {
	Query   string `json:"query"`
	K       *int   `json:"k"`
	Rerank  *bool  `json:"rerank"`
	RerankK *int   `json:"rerankK"`
}

type searchResult struct {
	ID          string         `json:"id"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
	Score       float64        `json:"score"`
	ScoreSource string         `json:"scoreSource"`
}

type searchMetrics struct {
	Latency   int64 `json:"latency"`
	TotalDocs int   `json:"totalDocs"`
}

type searchResponse struct {
	Results  []searchResult `json:"results"`
	Reranked bool           `json:"reranked"`
	Metrics  searchMetrics  `json:"metrics"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (r searchRequest) toService(d RequestDefaults) service.SearchRequest {
	req := service.SearchRequest{
		Query:   r.Query,
		K:       d.K,
		Rerank:  d.Rerank,
		RerankK: d.RerankK,
	}
	if r.K != nil {
		req.K = *r.K
	}
	if r.Rerank != nil {
		req.Rerank = *r.Rerank
	}
	if r.RerankK != nil {
		req.RerankK = *r.RerankK
	}
	return req
}

func searchHandler(svc Searcher, defaults RequestDefaults, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		var body searchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error(), RequestID: requestID})
			return
		}

		resp, err := svc.Handle(r.Context(), body.toService(defaults))
		if err != nil {
			status := statusFor(err)
			logger.ErrorContext(r.Context(), "search failed", "status", status, "request_id", requestID, "error", err)
			writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: requestID})
			return
		}

		writeJSON(w, http.StatusOK, toSearchResponse(resp))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmbedding):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func toSearchResponse(resp *service.SearchResponse) searchResponse {
	out := searchResponse{
		Results:  make([]searchResult, len(resp.Results)),
		Reranked: resp.Reranked,
		Metrics: searchMetrics{
			Latency:   resp.Metrics.LatencyMs,
			TotalDocs: resp.Metrics.TotalDocs,
		},
	}
	for i, res := range resp.Results {
		out.Results[i] = searchResult{
			ID:          string(res.ID),
			Content:     res.Content,
			Metadata:    res.Metadata,
			Score:       res.Score,
			ScoreSource: string(res.ScoreSource),
		}
	}
	return out
}
