// Package llm provides the text-generation provider used by the query
// pipeline for query expansion, re-ranking scoring, and RAG answer
// composition: one small interface, one concrete implementation per
// backend.
package llm

import "context"

// Provider generates text completions from a single prompt. Query
// expansion, re-ranking, and RAG composition all go through this one
// method; prompt construction is the caller's responsibility.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
