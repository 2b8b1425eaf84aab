package chunking

import (
	"strings"
	"testing"
)

func TestSplitIsDeterministic(t *testing.T) {
	content := "# Title\n\nSome paragraph text that repeats. " + strings.Repeat("word ", 50)
	cfg := DefaultConfig()
	a := Split("col1", "file1", content, cfg)
	b := Split("col1", "file1", content, cfg)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Text != b[i].Text {
			t.Fatalf("non-deterministic chunk at %d", i)
		}
	}
}

func TestSplitPreservesFencedCodeBlock(t *testing.T) {
	var code strings.Builder
	code.WriteString("## Section\n\n```python\n")
	for i := 0; i < 40; i++ {
		code.WriteString("print('line')\n")
	}
	code.WriteString("```\n")

	chunks := Split("col1", "file1", code.String(), DefaultConfig())

	var codeChunks []Chunk
	for _, c := range chunks {
		if c.ChunkType == ChunkTypeCodeBlock {
			codeChunks = append(codeChunks, c)
		}
	}
	if len(codeChunks) != 1 {
		t.Fatalf("expected exactly 1 code chunk, got %d", len(codeChunks))
	}
	cc := codeChunks[0]
	if cc.ProgrammingLanguage != "python" {
		t.Errorf("ProgrammingLanguage = %q, want python", cc.ProgrammingLanguage)
	}
	if !cc.ContainsCode {
		t.Errorf("ContainsCode = false, want true")
	}
	if len(cc.HeaderHierarchy) != 1 || cc.HeaderHierarchy[0] != "Section" {
		t.Errorf("HeaderHierarchy = %v, want [Section]", cc.HeaderHierarchy)
	}
	if strings.Contains(cc.Text, "```") {
		t.Errorf("code chunk text should not include fence markers: %q", cc.Text)
	}
}

func TestSplitFallsBackOnUnterminatedFence(t *testing.T) {
	content := "# H\n\n```python\nprint('unterminated')\n"
	chunks := Split("col1", "file1", content, DefaultConfig())
	for _, c := range chunks {
		if c.ChunkType == ChunkTypeCodeBlock {
			t.Fatalf("expected no code_block chunk for unterminated fence, got one")
		}
	}
	found := false
	for _, c := range chunks {
		if c.ChunkType == ChunkTypeParagraph {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a paragraph fallback chunk")
	}
}

func TestSplitNeverSplitsTableRow(t *testing.T) {
	content := "| a | b |\n| - | - |\n" + strings.Repeat("| xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx | yyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyyy |\n", 30)
	cfg := DefaultConfig()
	cfg.ChunkSize = 200
	chunks := Split("col1", "file1", content, cfg)
	for _, c := range chunks {
		if c.ChunkType != ChunkTypeTable {
			continue
		}
		for _, line := range strings.Split(c.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if !strings.HasPrefix(trimmed, "|") && !strings.HasSuffix(trimmed, "|") {
				t.Errorf("table chunk contains a non-row fragment: %q", line)
			}
		}
	}
}

func TestSplitOverlapIsSymmetric(t *testing.T) {
	content := "# H\n\n" + strings.Repeat("This is a sentence about overlap handling. ", 200)
	cfg := DefaultConfig()
	cfg.ChunkSize = 300
	chunks := Split("col1", "file1", content, cfg)
	if err := CheckOverlapSymmetry(chunks); err != nil {
		t.Fatalf("overlap symmetry violated: %v", err)
	}
	hasOverlap := false
	for _, c := range chunks {
		if len(c.OverlapPartnerIDs) > 0 {
			hasOverlap = true
		}
	}
	if !hasOverlap {
		t.Fatalf("expected at least one chunk with overlap partners")
	}
}

func TestSplitParentSectionTracksHeaderNesting(t *testing.T) {
	content := "# Top\n\nintro text\n\n## Sub\n\nsub text that is long enough to matter here.\n"
	chunks := Split("col1", "file1", content, DefaultConfig())

	var topAnchor, subChunk *Chunk
	for i := range chunks {
		c := &chunks[i]
		if len(c.HeaderHierarchy) == 1 && c.HeaderHierarchy[0] == "Top" && topAnchor == nil {
			topAnchor = c
		}
		if len(c.HeaderHierarchy) == 2 && c.HeaderHierarchy[1] == "Sub" {
			subChunk = c
		}
	}
	if topAnchor == nil || subChunk == nil {
		t.Fatalf("expected both Top and Sub chunks, got top=%v sub=%v", topAnchor, subChunk)
	}
	if subChunk.ParentSectionID != topAnchor.ID {
		t.Errorf("ParentSectionID = %q, want %q", subChunk.ParentSectionID, topAnchor.ID)
	}
}

func TestSplitDeletingFileDeletesAllChunksIsCallerResponsibility(t *testing.T) {
	// Split itself has no storage; this documents that the chunk set is
	// fully determined by fileID and is safe to delete wholesale by that key.
	chunks := Split("col1", "file1", "# H\n\nbody", DefaultConfig())
	for _, c := range chunks {
		if c.FileID != "file1" {
			t.Fatalf("chunk has wrong FileID: %q", c.FileID)
		}
	}
}
