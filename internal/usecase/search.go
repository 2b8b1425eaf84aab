package usecase

import (
	"context"
	"time"
)

// Default per-request timeouts, applied at the use-case boundary; a
// caller-supplied deadline that is already shorter wins.
const (
	vectorSearchTimeout = 5 * time.Second
	ragQueryTimeout     = 30 * time.Second
)

// VectorSearch runs the query pipeline's standalone search use-case.
func (u *UseCases) VectorSearch(ctx context.Context, in SearchInput) (SearchResult, error) {
	ctx, span := u.tracer.Start(ctx, "usecase.VectorSearch")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, vectorSearchTimeout)
	defer cancel()
	return u.container.Query().Search(ctx, in)
}

// RAGQuery runs the query pipeline's retrieval-augmented generation
// use-case.
func (u *UseCases) RAGQuery(ctx context.Context, in RAGInput) (RAGResult, error) {
	ctx, span := u.tracer.Start(ctx, "usecase.RAGQuery")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, ragQueryTimeout)
	defer cancel()
	return u.container.Query().RAG(ctx, in)
}
