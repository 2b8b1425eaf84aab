package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// span is a half-open byte range [start, end) into a segment's text.
type span struct{ start, end int }

var sentenceEndRe = regexp.MustCompile(`[.!?](\s+|\n)`)

// splitSpan recursively divides text[start:end] into pieces no larger than
// chunkSize, preferring paragraph, then sentence, then word, then character
// boundaries, step 2.
func splitSpan(text string, start, end, chunkSize int) []span {
	n := end - start
	if n <= chunkSize || n <= 1 {
		return []span{{start, end}}
	}

	limit := start + chunkSize
	if limit > end {
		limit = end
	}

	if cut := lastIndexWithin(text, start, limit, "\n\n"); cut > start {
		return joinSplits(splitSpan(text, start, cut+2, chunkSize), splitSpan(text, cut+2, end, chunkSize))
	}
	if cut := lastSentenceBoundary(text, start, limit); cut > start {
		return joinSplits(splitSpan(text, start, cut, chunkSize), splitSpan(text, cut, end, chunkSize))
	}
	if cut := lastIndexWithin(text, start, limit, " "); cut > start {
		return joinSplits(splitSpan(text, start, cut+1, chunkSize), splitSpan(text, cut+1, end, chunkSize))
	}

	cut := adjustToRuneStart(text, limit)
	if cut <= start {
		cut = adjustToRuneStart(text, start+1)
	}
	if cut >= end {
		return []span{{start, end}}
	}
	return joinSplits(splitSpan(text, start, cut, chunkSize), splitSpan(text, cut, end, chunkSize))
}

func joinSplits(a, b []span) []span {
	return append(a, b...)
}

func lastIndexWithin(text string, start, limit int, sep string) int {
	idx := strings.LastIndex(text[start:limit], sep)
	if idx < 0 {
		return -1
	}
	return start + idx
}

func lastSentenceBoundary(text string, start, limit int) int {
	locs := sentenceEndRe.FindAllStringIndex(text[start:limit], -1)
	if len(locs) == 0 {
		return -1
	}
	last := locs[len(locs)-1]
	return start + last[1]
}

func adjustToRuneStart(text string, idx int) int {
	if idx <= 0 {
		return 0
	}
	if idx >= len(text) {
		return len(text)
	}
	for idx > 0 && !utf8.RuneStart(text[idx]) {
		idx--
	}
	return idx
}

// splitByLines packs whole lines into chunks up to chunkSize, never cutting
// a line in half. Used for tables, where a row must never be split.
func splitByLines(text string, chunkSize int) []span {
	if len(text) <= chunkSize {
		return []span{{0, len(text)}}
	}
	var spans []span
	lineStart := 0
	chunkStart := 0
	pos := 0
	for pos <= len(text) {
		atEnd := pos == len(text)
		if atEnd || text[pos] == '\n' {
			lineEnd := pos
			if atEnd {
				lineEnd = len(text)
			} else {
				lineEnd = pos + 1
			}
			if lineEnd-chunkStart > chunkSize && lineEnd != lineStart {
				spans = append(spans, span{chunkStart, lineStart})
				chunkStart = lineStart
			}
			lineStart = lineEnd
			if atEnd {
				break
			}
		}
		pos++
	}
	if chunkStart < len(text) {
		spans = append(spans, span{chunkStart, len(text)})
	}
	return spans
}

// withOverlap expands each span's start backward by overlapLen characters
// (bounded by the segment and rune boundaries), producing the
// overlap-aware chunk texts described It also enforces the
// hard storage budget: total emitted bytes must not exceed 1.4x the
// original segment length.
func withOverlap(text string, spans []span, overlapRatio float64, chunkSize int) ([]string, [][2]int) {
	if len(spans) <= 1 || overlapRatio <= 0 {
		texts := make([]string, len(spans))
		bounds := make([][2]int, len(spans))
		for i, s := range spans {
			texts[i] = text[s.start:s.end]
			bounds[i] = [2]int{s.start, s.end}
		}
		return texts, bounds
	}

	overlapLen := int(float64(chunkSize) * overlapRatio)
	gaps := len(spans) - 1
	budget := int(float64(len(text)) * 0.4)
	if gaps > 0 && overlapLen*gaps > budget {
		overlapLen = budget / gaps
	}
	if overlapLen < 0 {
		overlapLen = 0
	}

	texts := make([]string, len(spans))
	bounds := make([][2]int, len(spans))
	for i, s := range spans {
		start := s.start
		if i > 0 && overlapLen > 0 {
			start = s.start - overlapLen
			if start < spans[0].start {
				start = spans[0].start
			}
			start = adjustToRuneStart(text, start)
		}
		texts[i] = text[start:s.end]
		bounds[i] = [2]int{start, s.end}
	}
	return texts, bounds
}

// Split turns a file's content into chunks
func Split(collectionID, fileID, content string, cfg Config) []Chunk {
	cfg = cfg.normalize()

	segments := parseSegments(content, cfg.MaxHeaderDepth)
	if len(segments) == 0 && strings.TrimSpace(content) != "" {
		segments = []segment{{kind: ChunkTypeParagraph, text: content}}
	}

	type rawChunk struct {
		text       string
		kind       ChunkType
		lang       string
		headerPath []string
		overlapped bool
		overlapIdx int
		segmentLen int
	}

	var raw []rawChunk

	for _, seg := range segments {
		switch {
		case seg.kind == ChunkTypeCodeBlock && cfg.PreserveCodeBlocks:
			raw = append(raw, rawChunk{text: seg.text, kind: ChunkTypeCodeBlock, lang: seg.lang, headerPath: seg.headerPath})
		case seg.kind == ChunkTypeTable:
			spans := splitByLines(seg.text, cfg.ChunkSize)
			for _, s := range spans {
				raw = append(raw, rawChunk{text: seg.text[s.start:s.end], kind: ChunkTypeTable, headerPath: seg.headerPath})
			}
		default:
			spans := splitSpan(seg.text, 0, len(seg.text), cfg.ChunkSize)
			texts, _ := withOverlap(seg.text, spans, cfg.ChunkOverlapRatio, cfg.ChunkSize)
			for i, t := range texts {
				raw = append(raw, rawChunk{
					text:       t,
					kind:       seg.kind,
					lang:       seg.lang,
					headerPath: seg.headerPath,
					overlapped: len(texts) > 1,
					overlapIdx: i,
					segmentLen: len(texts),
				})
			}
		}
	}

	chunks := make([]Chunk, len(raw))
	anchorByPath := map[string]string{}

	for i, rc := range raw {
		hash := contentHash(rc.text)
		id := chunkID(fileID, i, hash)
		chunks[i] = Chunk{
			ID:                  id,
			CollectionID:        collectionID,
			FileID:              fileID,
			Position:            i,
			Text:                rc.text,
			Length:              len(rc.text),
			ContainsCode:        rc.kind == ChunkTypeCodeBlock,
			ProgrammingLanguage: rc.lang,
			HeaderHierarchy:     append([]string(nil), rc.headerPath...),
			ChunkType:           rc.kind,
			ContentHash:         hash,
			TokenCount:          estimateTokens(rc.text),
		}

		pathKey := strings.Join(rc.headerPath, "\x1f")
		if _, ok := anchorByPath[pathKey]; !ok {
			anchorByPath[pathKey] = id
		}
	}

	for i := range chunks {
		if i > 0 {
			chunks[i].PrevID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			chunks[i].NextID = chunks[i+1].ID
		}

		path := chunks[i].HeaderHierarchy
		if len(path) > 0 {
			parentKey := strings.Join(path[:len(path)-1], "\x1f")
			if parentID, ok := anchorByPath[parentKey]; ok {
				chunks[i].ParentSectionID = parentID
			}
		}
	}

	// Overlap partners: adjacent raw chunks within the same multi-piece
	// segment share an overlap region and reference each other symmetrically.
	for i, rc := range raw {
		if !rc.overlapped {
			continue
		}
		if rc.overlapIdx > 0 {
			chunks[i].OverlapPartnerIDs = append(chunks[i].OverlapPartnerIDs, chunks[i-1].ID)
		}
		if rc.overlapIdx < rc.segmentLen-1 {
			chunks[i].OverlapPartnerIDs = append(chunks[i].OverlapPartnerIDs, chunks[i+1].ID)
		}
	}

	return chunks
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func chunkID(fileID string, position int, hash string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", fileID, position, hash)))
	return "chk_" + hex.EncodeToString(sum[:])[:24]
}

// estimateTokens is a coarse approximation (~4 bytes/token) used when a
// tokenizer-backed estimate (see internal/query) is not available.
func estimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
