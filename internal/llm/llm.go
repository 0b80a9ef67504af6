// Package llm provides the text generation client used as a relevance oracle.
package llm

import (
	"context"
	"time"
)

// GenerateOptions configures the LLM generation request.
type GenerateOptions struct {
	// Model specifies the LLM model to use (e.g., "gemma3:1b-it-qat").
	Model string

	// Temperature controls randomness in generation. Zero is sent as-is and
	// requests deterministic sampling.
	Temperature float32

	// MaxTokens caps the response length. Zero means no cap.
	MaxTokens int

	// Timeout bounds the whole request. Zero means the caller's context only.
	Timeout time.Duration
}

// LLM defines the interface for Large Language Model clients.
type LLM interface {
	// Generate sends a prompt and returns the complete response text.
	// Streaming is never requested; the call blocks until the full answer
	// is available, the timeout expires or ctx is cancelled.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
