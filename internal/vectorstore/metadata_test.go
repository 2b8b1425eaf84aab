package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/chunking"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

func TestNormalizeChunkMetadata(t *testing.T) {
	c := chunking.Chunk{
		ID:                  "chunk-1",
		CollectionID:        "docs",
		FileID:              "f1",
		Position:            2,
		Text:                "some text",
		ContainsCode:        true,
		ProgrammingLanguage: "python",
		HeaderHierarchy:     []string{"Intro", "Setup"},
		ChunkType:           chunking.ChunkTypeCodeBlock,
		ContentHash:         "abc123",
		TokenCount:          3,
		PrevID:              "chunk-0",
		OverlapPartnerIDs:   []string{"chunk-0", "chunk-2"},
	}

	m, err := NormalizeChunkMetadata(c)
	require.NoError(t, err)

	// Lists serialize to an order-preserving delimited string; enums to
	// their symbolic name; booleans and numbers to decimal strings.
	assert.Equal(t, "Intro|Setup", m["header_hierarchy"])
	assert.Equal(t, "chunk-0|chunk-2", m["overlap_partner_ids"])
	assert.Equal(t, "code_block", m["chunk_type"])
	assert.Equal(t, "true", m["contains_code"])
	assert.Equal(t, "2", m["position"])
	assert.Equal(t, "python", m["programming_language"])

	// Unset optional fields are omitted entirely, not written empty.
	_, hasNext := m["next_id"]
	assert.False(t, hasNext)
	_, hasParent := m["parent_section_id"]
	assert.False(t, hasParent)
}

func TestNormalizeChunkMetadataRejectsMissingHash(t *testing.T) {
	_, err := NormalizeChunkMetadata(chunking.Chunk{ID: "c", Text: "x"})
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindChunkMetadata))
}

func TestChunkViewRoundTrip(t *testing.T) {
	c := chunking.Chunk{
		ID:              "chunk-1",
		CollectionID:    "docs",
		FileID:          "f1",
		Position:        5,
		Text:            "body",
		HeaderHierarchy: []string{"A", "B"},
		ChunkType:       chunking.ChunkTypeHeaderSection,
		ContentHash:     "h",
		TokenCount:      1,
		PrevID:          "chunk-0",
		NextID:          "chunk-2",
		ParentSectionID: "chunk-root",
	}
	m, err := NormalizeChunkMetadata(c)
	require.NoError(t, err)

	view := ChunkViewFromMatch(SearchMatch{
		ChunkID:  c.ID,
		Score:    0.8,
		Metadata: m,
		Related:  relationshipsFromMetadata(m),
	})
	assert.Equal(t, c.Position, view.Position)
	assert.Equal(t, c.Text, view.Text)
	assert.Equal(t, []string{"A", "B"}, view.HeaderHierarchy)
	assert.Equal(t, "chunk-0", view.Related.PrevID)
	assert.Equal(t, "chunk-2", view.Related.NextID)
	assert.Equal(t, "chunk-root", view.Related.ParentSectionID)
}
