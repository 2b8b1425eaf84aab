package chunking

import (
	"regexp"
	"strings"
)

// segment is one structurally-labeled slice of a document produced by the
// structural pass: a contiguous run of lines that share a ChunkType and an
// enclosing header path.
type segment struct {
	kind       ChunkType
	text       string
	lang       string
	headerPath []string
}

// Compiled line matchers: a small ordered table of compiled regexes
// applied per line rather than pulling in a full CommonMark parser.
var (
	atxHeaderRe    = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	setextH1Re     = regexp.MustCompile(`^=+\s*$`)
	setextH2Re     = regexp.MustCompile(`^-+\s*$`)
	fenceRe        = regexp.MustCompile("^(```+|~~~+)\\s*([A-Za-z0-9_+-]*)\\s*$")
	listItemRe     = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+\S`)
	tableRowRe     = regexp.MustCompile(`^\s*\|?.+\|.*\|?\s*$`)
	tableSepRe     = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
	indentedCodeRe = regexp.MustCompile(`^(    |\t)\S`)
	blockquoteRe   = regexp.MustCompile(`^\s*>`)
)

// headerFrame is one entry on the header stack built while scanning lines.
type headerFrame struct {
	level int
	title string
}

// parseSegments runs the structural pass described step 1.
func parseSegments(content string, maxHeaderDepth int) []segment {
	lines := strings.Split(content, "\n")

	var (
		segments []segment
		stack    []headerFrame
		buf      []string
		bufKind  ChunkType
	)

	currentPath := func() []string {
		path := make([]string, 0, len(stack))
		for _, f := range stack {
			path = append(path, f.title)
		}
		return path
	}

	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.Join(buf, "\n")
		if strings.TrimSpace(text) != "" {
			segments = append(segments, segment{kind: bufKind, text: text, headerPath: currentPath()})
		}
		buf = nil
	}

	pushHeader := func(level int, title string) {
		flush()
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		if level <= maxHeaderDepth {
			stack = append(stack, headerFrame{level: level, title: title})
		}
	}

	appendLine := func(kind ChunkType, line string) {
		if bufKind != kind && len(buf) > 0 {
			flush()
		}
		bufKind = kind
		buf = append(buf, line)
	}

	i := 0
	for i < len(lines) {
		line := lines[i]

		// ATX header.
		if m := atxHeaderRe.FindStringSubmatch(line); m != nil {
			pushHeader(len(m[1]), strings.TrimSpace(m[2]))
			i++
			continue
		}

		// Setext header: current non-blank line followed by a ===/--- rule.
		if i+1 < len(lines) && strings.TrimSpace(line) != "" {
			if setextH1Re.MatchString(lines[i+1]) && !listItemRe.MatchString(line) {
				pushHeader(1, strings.TrimSpace(line))
				i += 2
				continue
			}
			if setextH2Re.MatchString(lines[i+1]) && !listItemRe.MatchString(line) && len(strings.TrimSpace(lines[i+1])) > 0 {
				pushHeader(2, strings.TrimSpace(line))
				i += 2
				continue
			}
		}

		// Fenced code block.
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			flush()
			fence := m[1][:3]
			lang := m[2]
			var codeLines []string
			closed := false
			i++
			for i < len(lines) {
				if strings.HasPrefix(strings.TrimRight(lines[i], " \t"), fence) {
					i++
					closed = true
					break
				}
				codeLines = append(codeLines, lines[i])
				i++
			}
			kind := ChunkTypeCodeBlock
			if !closed {
				// Malformed markdown: an unterminated fence falls back to
				// size-based paragraph splitting,
				kind = ChunkTypeParagraph
				lang = ""
			}
			segments = append(segments, segment{
				kind:       kind,
				text:       strings.Join(codeLines, "\n"),
				lang:       lang,
				headerPath: currentPath(),
			})
			continue
		}

		// Indented code block.
		if indentedCodeRe.MatchString(line) {
			flush()
			var codeLines []string
			for i < len(lines) && (indentedCodeRe.MatchString(lines[i]) || strings.TrimSpace(lines[i]) == "") {
				codeLines = append(codeLines, strings.TrimPrefix(strings.TrimPrefix(lines[i], "\t"), "    "))
				i++
			}
			for len(codeLines) > 0 && strings.TrimSpace(codeLines[len(codeLines)-1]) == "" {
				codeLines = codeLines[:len(codeLines)-1]
			}
			segments = append(segments, segment{
				kind:       ChunkTypeCodeBlock,
				text:       strings.Join(codeLines, "\n"),
				lang:       detectIndentedLanguage(codeLines),
				headerPath: currentPath(),
			})
			continue
		}

		// Table: a row containing '|' immediately followed by a separator row.
		if i+1 < len(lines) && tableRowRe.MatchString(line) && strings.Contains(line, "|") && tableSepRe.MatchString(lines[i+1]) {
			flush()
			var tableLines []string
			for i < len(lines) && strings.TrimSpace(lines[i]) != "" && strings.Contains(lines[i], "|") {
				tableLines = append(tableLines, lines[i])
				i++
			}
			segments = append(segments, segment{
				kind:       ChunkTypeTable,
				text:       strings.Join(tableLines, "\n"),
				headerPath: currentPath(),
			})
			continue
		}

		// List item (and its indented continuation lines).
		if listItemRe.MatchString(line) {
			appendLine(ChunkTypeList, line)
			i++
			continue
		}
		if bufKind == ChunkTypeList && (strings.TrimSpace(line) == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			appendLine(ChunkTypeList, line)
			i++
			continue
		}

		// Blockquote lines fold into ordinary prose.
		if blockquoteRe.MatchString(line) {
			appendLine(ChunkTypeHeaderSection, strings.TrimSpace(blockquoteRe.ReplaceAllString(line, "")))
			i++
			continue
		}

		// Default: running prose under the current header.
		appendLine(ChunkTypeHeaderSection, line)
		i++
	}
	flush()

	return trimEmptySegments(segments)
}

func trimEmptySegments(in []segment) []segment {
	out := in[:0]
	for _, s := range in {
		if strings.TrimSpace(s.text) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

var shebangRe = regexp.MustCompile(`^#!`)

// detectIndentedLanguage applies the "keywords + shebang" heuristic from
// for indented code blocks, where no fence tag is available.
func detectIndentedLanguage(lines []string) string {
	joined := strings.Join(lines, "\n")
	if len(lines) > 0 && shebangRe.MatchString(strings.TrimSpace(lines[0])) {
		shebang := strings.ToLower(lines[0])
		switch {
		case strings.Contains(shebang, "python"):
			return "python"
		case strings.Contains(shebang, "bash"), strings.Contains(shebang, "sh"):
			return "bash"
		case strings.Contains(shebang, "node"):
			return "javascript"
		}
	}
	switch {
	case strings.Contains(joined, "func ") && strings.Contains(joined, "package "):
		return "go"
	case strings.Contains(joined, "def ") && strings.Contains(joined, ":"):
		return "python"
	case strings.Contains(joined, "function ") || strings.Contains(joined, "=>"):
		return "javascript"
	case strings.Contains(joined, "public class "), strings.Contains(joined, "private "):
		return "java"
	case strings.Contains(joined, "#include"):
		return "c"
	}
	return ""
}
