// Package service implements the search pipeline: query embedding, exact
// vector retrieval and optional LLM reranking.
package service
