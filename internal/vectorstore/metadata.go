package vectorstore

import (
	"strconv"
	"strings"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/chunking"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// Metadata keys written by NormalizeChunkMetadata and read back by
// relationshipsFromMetadata. Kept as constants since both the chromem and
// qdrant backends need to agree on them.
const (
	metaCollectionID  = "collection_id"
	metaFileID        = "file_id"
	metaPosition      = "position"
	metaChunkType     = "chunk_type"
	metaContainsCode  = "contains_code"
	metaLanguage      = "programming_language"
	metaHeaderPath    = "header_hierarchy"
	metaContentHash   = "content_hash"
	metaTokenCount    = "token_count"
	metaText          = "text"
	metaPrevID        = "prev_id"
	metaNextID        = "next_id"
	metaOverlapIDs    = "overlap_partner_ids"
	metaParentSection = "parent_section_id"

	listDelimiter = "|"
)

// NormalizeChunkMetadata implements the primitive-only metadata contract
//: lists become a delimited string preserving order,
// enums become their symbolic name, booleans/numbers become their decimal
// string form, and empty/zero-value optional fields are omitted entirely
// rather than written as empty strings, so a collection's metadata schema
// only ever contains fields real chunks actually set.
func NormalizeChunkMetadata(c chunking.Chunk) (map[string]string, error) {
	m := map[string]string{
		metaCollectionID: c.CollectionID,
		metaFileID:       c.FileID,
		metaPosition:     strconv.Itoa(c.Position),
		metaChunkType:    string(c.ChunkType),
		metaContainsCode: strconv.FormatBool(c.ContainsCode),
		metaContentHash:  c.ContentHash,
		metaTokenCount:   strconv.Itoa(c.TokenCount),
		metaText:         c.Text,
	}
	if c.ProgrammingLanguage != "" {
		m[metaLanguage] = c.ProgrammingLanguage
	}
	if len(c.HeaderHierarchy) > 0 {
		m[metaHeaderPath] = strings.Join(c.HeaderHierarchy, listDelimiter)
	}
	if c.PrevID != "" {
		m[metaPrevID] = c.PrevID
	}
	if c.NextID != "" {
		m[metaNextID] = c.NextID
	}
	if len(c.OverlapPartnerIDs) > 0 {
		m[metaOverlapIDs] = strings.Join(c.OverlapPartnerIDs, listDelimiter)
	}
	if c.ParentSectionID != "" {
		m[metaParentSection] = c.ParentSectionID
	}
	if c.ContentHash == "" {
		return nil, kberrors.ChunkMetadata(kberrors.CodeChunkMetadataError, "chunk "+c.ID+" has no content hash to normalize")
	}
	return m, nil
}

func relationshipsFromMetadata(m map[string]string) RelatedIDs {
	var r RelatedIDs
	r.PrevID = m[metaPrevID]
	r.NextID = m[metaNextID]
	r.ParentSectionID = m[metaParentSection]
	if v := m[metaOverlapIDs]; v != "" {
		r.OverlapPartnerIDs = strings.Split(v, listDelimiter)
	}
	return r
}

func headerHierarchyFromMetadata(m map[string]string) []string {
	v := m[metaHeaderPath]
	if v == "" {
		return nil
	}
	return strings.Split(v, listDelimiter)
}

// ChunkView is the read-side reconstruction of a chunk's primitive
// metadata mirror, decoded back out of a SearchMatch. It is the only view
// of chunk content the vector store backends carry.
type ChunkView struct {
	ChunkID             string
	CollectionID        string
	FileID              string
	Position            int
	Text                string
	ContainsCode        bool
	ProgrammingLanguage string
	HeaderHierarchy     []string
	ChunkType           string
	ContentHash         string
	TokenCount          int
	Score               float32
	Related             RelatedIDs
}

// ChunkViewFromMatch decodes one SearchMatch's primitive metadata mirror
// back into a ChunkView for the query pipeline.
func ChunkViewFromMatch(match SearchMatch) ChunkView {
	m := match.Metadata
	position, _ := strconv.Atoi(m[metaPosition])
	tokenCount, _ := strconv.Atoi(m[metaTokenCount])
	containsCode, _ := strconv.ParseBool(m[metaContainsCode])
	return ChunkView{
		ChunkID:             match.ChunkID,
		CollectionID:        m[metaCollectionID],
		FileID:              m[metaFileID],
		Position:            position,
		Text:                m[metaText],
		ContainsCode:        containsCode,
		ProgrammingLanguage: m[metaLanguage],
		HeaderHierarchy:     headerHierarchyFromMetadata(m),
		ChunkType:           m[metaChunkType],
		ContentHash:         m[metaContentHash],
		TokenCount:          tokenCount,
		Score:               match.Score,
		Related:             match.Related,
	}
}
