package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/llm"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/telemetry"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

// rrfK is reciprocal-rank fusion's rank-damping constant, the standard
// value from the RRF literature.
const rrfK = 60.0

// Pipeline implements the multi-stage search and RAG use-cases. Query
// expansion and re-ranking are config-gated and degrade silently to
// vector-only retrieval on any LLM failure, timeout, or absent provider.
type Pipeline struct {
	vectors     vectorstore.Store
	embedder    vectorstore.Embedder
	provider    llm.Provider // nil disables expansion, rerank, and RAG answers
	collections store.CollectionStore
	cfg         Config
	cache       *expansionCache
	logger      *zap.Logger
	tokenizer   *tiktoken.Tiktoken
}

// NewPipeline wires a Pipeline. provider may be nil (no LLM configured);
// every LLM-dependent stage then degrades as if every call failed.
func NewPipeline(vectors vectorstore.Store, embedder vectorstore.Embedder, provider llm.Provider, collections store.CollectionStore, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	tok, _ := tiktoken.GetEncoding("cl100k_base")
	return &Pipeline{
		vectors:     vectors,
		embedder:    embedder,
		provider:    provider,
		collections: collections,
		cfg:         cfg,
		cache:       newExpansionCache(cfg.ExpansionCacheTTL),
		logger:      logger,
		tokenizer:   tok,
	}
}

// Search runs the full pipeline (validate, expand, retrieve, fuse,
// rerank, expand context, filter) and returns the ranked chunk list.
func (p *Pipeline) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	threshold, err := p.validateSearch(ctx, req)
	if err != nil {
		return SearchResult{}, err
	}

	variants, expansionUsed := p.expandQuery(ctx, req.Query)

	candidates, err := p.retrieve(ctx, req.Collection, variants, req.Limit, req.Filter)
	if err != nil {
		return SearchResult{}, err
	}

	fused := fuse(candidates)

	rerankUsed := false
	if p.cfg.AutoRerankingEnabled && p.provider != nil && len(fused) > p.cfg.RerankingThreshold {
		if reranked, ok := p.rerank(ctx, req.Query, fused); ok {
			fused = reranked
			rerankUsed = true
		}
	}

	sort.SliceStable(fused, func(i, j int) bool { return fused[i].rankScore > fused[j].rankScore })

	results := make([]ChunkResult, 0, req.Limit)
	for _, c := range fused {
		if c.view.Score < float32(threshold) {
			continue
		}
		results = append(results, ChunkResult{
			ChunkID:             c.view.ChunkID,
			FileID:              c.view.FileID,
			Text:                c.view.Text,
			Score:               c.view.Score,
			ChunkType:           c.view.ChunkType,
			ContainsCode:        c.view.ContainsCode,
			ProgrammingLanguage: c.view.ProgrammingLanguage,
			HeaderHierarchy:     c.view.HeaderHierarchy,
		})
		if len(results) == req.Limit {
			break
		}
	}

	if req.ExpandContext && p.cfg.ContextExpansionEnabled {
		for i := range results {
			results[i].ExpandedContext = p.expandContext(ctx, req.Collection, fused, results[i].ChunkID)
		}
	}

	telemetry.SearchesTotal.WithLabelValues(strconv.FormatBool(expansionUsed)).Inc()

	return SearchResult{
		Results:       results,
		ExpansionUsed: expansionUsed,
		RerankUsed:    rerankUsed,
		QueryVariants: variants,
	}, nil
}

func (p *Pipeline) validateSearch(ctx context.Context, req SearchRequest) (float64, error) {
	if strings.TrimSpace(req.Query) == "" {
		return 0, kberrors.Validation(kberrors.CodeMissingQuery, "query must not be empty")
	}
	if req.Limit < 1 {
		return 0, kberrors.Validation(kberrors.CodeInvalidLimit, "limit must be >= 1")
	}
	threshold := p.cfg.DefaultSimilarityThresh
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
		if threshold < 0 || threshold > 1 {
			return 0, kberrors.Validation(kberrors.CodeInvalidThreshold, "similarity_threshold must be in [0,1]")
		}
	}
	if req.Collection != "" && p.collections != nil {
		if _, err := p.collections.GetCollection(ctx, req.Collection); err != nil {
			return 0, err
		}
	}
	return threshold, nil
}

// expandQuery asks the LLM for query variants. On any failure, timeout,
// or absent provider it degrades silently to [query].
func (p *Pipeline) expandQuery(ctx context.Context, query string) ([]string, bool) {
	if !p.cfg.QueryExpansionEnabled || p.provider == nil {
		return []string{query}, false
	}
	if cached, ok := p.cache.get(query); ok {
		return append([]string{query}, cached...), true
	}

	prompt := fmt.Sprintf(
		"Give up to %d alternative phrasings of the following search query, covering synonyms, abbreviation expansions, and register shifts. Reply with one phrasing per line, no numbering, no commentary.\n\nQuery: %s",
		p.cfg.MaxQueryVariants, query)

	text, err := p.provider.Complete(ctx, prompt)
	if err != nil {
		return []string{query}, false
	}

	variants := parseVariants(text, p.cfg.MaxQueryVariants)
	if len(variants) == 0 {
		return []string{query}, false
	}
	p.cache.put(query, variants)
	return append([]string{query}, variants...), true
}

func parseVariants(text string, max int) []string {
	lines := strings.Split(text, "\n")
	variants := make([]string, 0, max)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. \t")
		if line == "" {
			continue
		}
		variants = append(variants, line)
		if len(variants) == max {
			break
		}
	}
	return variants
}

// scoredChunk carries a decoded chunk view plus its fusion/rerank-ready
// rank score through the pipeline's internal stages.
type scoredChunk struct {
	view      vectorstore.ChunkView
	rankScore float64
}

// retrieve embeds the original query and every expansion variant in
// parallel, queries the vector store for each with an enlarged candidate
// pool, and unions the raw matches (deduplication happens in fuse).
func (p *Pipeline) retrieve(ctx context.Context, collection string, variants []string, limit int, filter map[string]string) ([][]vectorstore.SearchMatch, error) {
	pool := limit * p.cfg.CandidatePoolMultiplier
	if pool <= 0 {
		pool = limit
	}
	if p.cfg.CandidatePoolCap > 0 && pool > p.cfg.CandidatePoolCap {
		pool = p.cfg.CandidatePoolCap
	}

	results := make([][]vectorstore.SearchMatch, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	for i, variant := range variants {
		i, variant := i, variant
		g.Go(func() error {
			vec, err := p.embedder.EmbedQuery(gctx, variant)
			if err != nil {
				return kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "embedding provider unavailable")
			}
			matches, err := p.vectors.QueryWithRelationships(gctx, collection, vec, pool, filter)
			if err != nil {
				return err
			}
			results[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if kberrors.Is(err, kberrors.KindNotFound) {
			return nil, err
		}
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "vector store unavailable")
	}
	return results, nil
}

// fuse identifies duplicates by chunk id, combines ranks via
// reciprocal-rank fusion, and retains the best (highest-similarity)
// vector score per chunk for display and threshold filtering.
func fuse(perVariant [][]vectorstore.SearchMatch) []scoredChunk {
	byID := map[string]*scoredChunk{}
	order := make([]string, 0)
	for _, matches := range perVariant {
		for rank, m := range matches {
			view := vectorstore.ChunkViewFromMatch(m)
			if existing, ok := byID[view.ChunkID]; ok {
				existing.rankScore += 1.0 / (rrfK + float64(rank) + 1)
				if view.Score > existing.view.Score {
					existing.view.Score = view.Score
				}
				continue
			}
			sc := &scoredChunk{view: view, rankScore: 1.0 / (rrfK + float64(rank) + 1)}
			byID[view.ChunkID] = sc
			order = append(order, view.ChunkID)
		}
	}
	out := make([]scoredChunk, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// rerank asks the LLM to score each candidate 0-10
// against the query, blend with the vector score, and re-sort. Returns
// ok=false (keep vector-only order) on any parse or provider failure.
func (p *Pipeline) rerank(ctx context.Context, query string, candidates []scoredChunk) ([]scoredChunk, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "Score how relevant each passage below is to the query on a scale of 0 to 10. Reply with one line per passage, exactly \"<id>: <score>\", no commentary.\n\nQuery: %s\n\n", query)
	for _, c := range candidates {
		text := c.view.Text
		if len(text) > 500 {
			text = text[:500]
		}
		fmt.Fprintf(&b, "id=%s: %s\n\n", c.view.ChunkID, text)
	}

	reply, err := p.provider.Complete(ctx, b.String())
	if err != nil {
		return nil, false
	}

	scores := parseRerankScores(reply)
	if len(scores) == 0 {
		return nil, false
	}

	out := make([]scoredChunk, len(candidates))
	copy(out, candidates)
	for i, c := range out {
		llmScore, ok := scores[c.view.ChunkID]
		if !ok {
			continue
		}
		vectorScore := float64(c.view.Score)
		out[i].rankScore = p.cfg.RerankLLMWeight*(llmScore/10.0) + (1-p.cfg.RerankLLMWeight)*vectorScore
	}
	return out, true
}

func parseRerankScores(reply string) map[string]float64 {
	scores := map[string]float64{}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		id := strings.TrimPrefix(strings.TrimSpace(parts[0]), "id=")
		score, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		scores[id] = math.Max(0, math.Min(10, score))
	}
	return scores
}

// expandContext materializes a result's declared
// related chunks from the already-fused candidate set first (avoids a
// round trip when the related chunk was itself a candidate), falling back
// to GetByChunkIDs for anything still missing.
func (p *Pipeline) expandContext(ctx context.Context, collection string, fused []scoredChunk, chunkID string) []ExpandedChunk {
	var target *scoredChunk
	byID := map[string]vectorstore.ChunkView{}
	for _, c := range fused {
		byID[c.view.ChunkID] = c.view
		if c.view.ChunkID == chunkID {
			cc := c
			target = &cc
		}
	}
	if target == nil {
		return nil
	}

	related := target.view.Related
	wanted := make([]struct {
		relation string
		id       string
	}, 0, 4)
	if related.PrevID != "" {
		wanted = append(wanted, struct {
			relation string
			id       string
		}{"previous", related.PrevID})
	}
	if related.NextID != "" {
		wanted = append(wanted, struct {
			relation string
			id       string
		}{"next", related.NextID})
	}
	for _, id := range related.OverlapPartnerIDs {
		wanted = append(wanted, struct {
			relation string
			id       string
		}{"overlap", id})
	}
	if related.ParentSectionID != "" {
		wanted = append(wanted, struct {
			relation string
			id       string
		}{"parent_section", related.ParentSectionID})
	}

	var missing []string
	for _, w := range wanted {
		if _, ok := byID[w.id]; !ok {
			missing = append(missing, w.id)
		}
	}
	if len(missing) > 0 {
		if fetched, err := p.vectors.GetByChunkIDs(ctx, collection, missing); err == nil {
			for _, m := range fetched {
				byID[m.ChunkID] = vectorstore.ChunkViewFromMatch(m)
			}
		}
	}

	out := make([]ExpandedChunk, 0, len(wanted))
	for _, w := range wanted {
		if v, ok := byID[w.id]; ok {
			out = append(out, ExpandedChunk{Relation: w.relation, ChunkID: w.id, Text: v.Text})
		}
	}
	return out
}

// RAG implements RAG query use-case: retrieval via Search,
// then context assembly under a token budget, then a single LLM call.
// With no LLM provider available it degrades to retrieval-only
// (Degraded=true, Answer=nil).
func (p *Pipeline) RAG(ctx context.Context, req RAGRequest) (RAGResult, error) {
	start := time.Now()
	searchRes, err := p.Search(ctx, SearchRequest{
		Query:               req.Query,
		Collection:          req.Collection,
		Limit:               req.Limit,
		SimilarityThreshold: req.SimilarityThreshold,
		Filter:              req.Filter,
	})
	if err != nil {
		return RAGResult{}, err
	}

	sources := make([]RAGSource, len(searchRes.Results))
	for i, r := range searchRes.Results {
		sources[i] = RAGSource{ChunkID: r.ChunkID, FileID: r.FileID, Score: r.Score}
	}

	if p.provider == nil {
		telemetry.RAGQueriesTotal.WithLabelValues("true").Inc()
		return RAGResult{
			Answer:     nil,
			Sources:    sources,
			Degraded:   true,
			ChunksUsed: len(searchRes.Results),
			Collection: req.Collection,
			ElapsedMS:  time.Since(start).Milliseconds(),
		}, nil
	}

	contextText := p.assembleContext(searchRes.Results)
	prompt := fmt.Sprintf(
		"Answer the question using only the context below. If the context doesn't contain the answer, say so.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		contextText, req.Query)

	answer, err := p.provider.Complete(ctx, prompt)
	if err != nil {
		telemetry.RAGQueriesTotal.WithLabelValues("true").Inc()
		return RAGResult{
			Answer:     nil,
			Sources:    sources,
			Degraded:   true,
			ChunksUsed: len(searchRes.Results),
			Collection: req.Collection,
			ElapsedMS:  time.Since(start).Milliseconds(),
		}, nil
	}

	telemetry.RAGQueriesTotal.WithLabelValues("false").Inc()
	return RAGResult{
		Answer:     &answer,
		Sources:    sources,
		Degraded:   false,
		ChunksUsed: len(searchRes.Results),
		Collection: req.Collection,
		Provider:   "llm",
		ElapsedMS:  time.Since(start).Milliseconds(),
	}, nil
}

// assembleContext concatenates chunk texts, truncating the overall budget
// to cfg.RAGMaxContextTokens as counted by countTokens (cl100k_base, or
// characters / 4 when no tokenizer loaded).
func (p *Pipeline) assembleContext(results []ChunkResult) string {
	var b strings.Builder
	budget := p.cfg.RAGMaxContextTokens
	used := 0
	for _, r := range results {
		n := p.countTokens(r.Text)
		if used+n > budget {
			break
		}
		used += n
		b.WriteString(r.Text)
		b.WriteString("\n\n---\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n\n---\n\n")
}

func (p *Pipeline) countTokens(text string) int {
	if p.tokenizer == nil {
		return len(text) / 4
	}
	return len(p.tokenizer.Encode(text, nil, nil))
}
