package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "gemma3:1b-it-qat", req["model"])
		assert.Equal(t, "rate it", req["prompt"])
		assert.Equal(t, false, req["stream"])
		assert.NotContains(t, req, "system", "instructions travel in the prompt")

		options, ok := req["options"].(map[string]any)
		require.True(t, ok, "options must be present")
		assert.Equal(t, float64(0), options["temperature"])
		assert.Equal(t, float64(10), options["num_predict"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"model": "gemma3:1b-it-qat", "response": "7", "done": true})
	}))
	defer server.Close()

	client := NewOllamaClient(WithBaseURL(server.URL + "/"))

	text, err := client.Generate(context.Background(), "rate it", GenerateOptions{MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "7", text)
}

func TestOllamaClient_Generate_ModelOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		_, hasCap := req.Options["num_predict"]
		assert.False(t, hasCap)
		json.NewEncoder(w).Encode(generateResponse{Response: "ok", Done: true})
	}))
	defer server.Close()

	client := NewOllamaClient(WithBaseURL(server.URL), WithModel("ignored"))

	_, err := client.Generate(context.Background(), "p", GenerateOptions{Model: "llama3.2"})
	require.NoError(t, err)
}

func TestOllamaClient_Generate_StreamedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"Score: ","done":false}` + "\n"))
		w.Write([]byte(`{"response":"8.5","done":false}` + "\n"))
		w.Write([]byte(`{"response":"","done":true}` + "\n"))
	}))
	defer server.Close()

	client := NewOllamaClient(WithBaseURL(server.URL))

	text, err := client.Generate(context.Background(), "p", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Score: 8.5", text)
}

func TestOllamaClient_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not loaded"))
	}))
	defer server.Close()

	client := NewOllamaClient(WithBaseURL(server.URL))

	_, err := client.Generate(context.Background(), "p", GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestOllamaClient_Generate_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "out of memory"})
	}))
	defer server.Close()

	client := NewOllamaClient(WithBaseURL(server.URL))

	_, err := client.Generate(context.Background(), "p", GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestOllamaClient_Generate_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewOllamaClient(WithBaseURL(server.URL))

	_, err := client.Generate(context.Background(), "p", GenerateOptions{})
	assert.Error(t, err)
}

func TestOllamaClient_Generate_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewOllamaClient(WithBaseURL(server.URL))

	start := time.Now()
	_, err := client.Generate(context.Background(), "p", GenerateOptions{Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOllamaClient_Generate_RateLimitRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "1", Done: true})
	}))
	defer server.Close()

	client := NewOllamaClient(WithBaseURL(server.URL), WithRateLimit(0.001, 1))

	_, err := client.Generate(context.Background(), "p", GenerateOptions{})
	require.NoError(t, err)

	// burst is spent; the next token is far in the future
	_, err = client.Generate(context.Background(), "p", GenerateOptions{Timeout: 20 * time.Millisecond})
	assert.Error(t, err)
}
