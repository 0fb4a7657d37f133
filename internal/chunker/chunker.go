package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/harborai/docvector-mcp/pkg/types"
)

// PrepareChunks splits a document's content into bounded, overlapping
// chunks suitable for embedding. The result is deterministic for
// identical input and always contains at least one chunk.
//
// Every chunk's text begins with "{title}\n\n". Chunks after the first
// carry an ellipsis-prefixed overlap excerpt from the previous section
// between the title line and the chunk body.
func PrepareChunks(doc *types.Document, maxChunkChars, overlapChars int) []types.TextChunk {
	content := normalizeWhitespace(doc.Content)

	var initial []string
	if isMarkdownShaped(doc) {
		initial = splitMarkdownSections(content)
	} else {
		initial = splitPlainSections(content, maxChunkChars)
	}

	// Bound every section before merging so the merge step only ever
	// combines pieces that already fit.
	var bounded []string
	for _, section := range initial {
		bounded = append(bounded, splitOversized(section, maxChunkChars)...)
	}

	sections := mergeSmallSections(bounded, maxChunkChars)

	if len(sections) == 0 {
		// Document empty or whitespace-only: emit a minimal single chunk
		// so Total is never zero.
		return []types.TextChunk{{
			Text:  doc.Title + "\n\n" + content,
			Index: 0,
			Total: 1,
		}}
	}

	chunks := make([]types.TextChunk, 0, len(sections))
	for i, section := range sections {
		var sb strings.Builder
		sb.WriteString(doc.Title)
		sb.WriteString("\n\n")
		if i > 0 {
			if overlap := overlapExcerpt(sections[i-1], overlapChars); overlap != "" {
				sb.WriteString("...")
				sb.WriteString(overlap)
				sb.WriteString("\n\n")
			}
		}
		sb.WriteString(section)
		chunks = append(chunks, types.TextChunk{
			Text:  sb.String(),
			Index: i,
			Total: len(sections),
		})
	}
	return chunks
}

// mergeSmallSections greedily joins adjacent sections whose combined
// length still fits within the chunk limit, so heading-dense documents
// do not produce a flood of tiny chunks.
func mergeSmallSections(sections []string, maxChunkChars int) []string {
	var merged []string
	current := ""
	for _, section := range sections {
		if current == "" {
			current = section
			continue
		}
		if len(current)+len("\n\n")+len(section) <= maxChunkChars {
			current += "\n\n" + section
			continue
		}
		merged = append(merged, current)
		current = section
	}
	if current != "" {
		merged = append(merged, current)
	}
	return merged
}

// normalizeWhitespace collapses runs of three or more newlines to exactly
// two, so blank-line splitting sees uniform paragraph boundaries.
func normalizeWhitespace(text string) string {
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}

// isMarkdownShaped reports whether the document should be split on
// level-2 headings. Code and config files are never markdown-shaped even
// when their content resembles it.
func isMarkdownShaped(doc *types.Document) bool {
	if !strings.HasSuffix(doc.Path, ".md") {
		return false
	}
	return doc.DocType != types.DocTypeCode && doc.DocType != types.DocTypeConfig
}

// splitMarkdownSections splits on lines beginning with "## ", keeping
// each heading with the content that follows it.
func splitMarkdownSections(content string) []string {
	var sections []string
	var current []string

	flush := func() {
		section := strings.TrimSpace(strings.Join(current, "\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "## ") && len(current) > 0 {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return sections
}

// splitPlainSections splits on blank-line boundaries, but only flushes
// once the accumulated section reaches half the chunk limit. This keeps
// code and other unstructured files from fragmenting on every blank line.
func splitPlainSections(content string, maxChunkChars int) []string {
	var sections []string
	var current []string
	currentLen := 0

	flush := func() {
		section := strings.TrimSpace(strings.Join(current, "\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = current[:0]
		currentLen = 0
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" && currentLen >= maxChunkChars/2 {
			flush()
			continue
		}
		current = append(current, line)
		currentLen += len(line) + 1
	}
	flush()
	return sections
}

// splitOversized breaks a section exceeding the limit on paragraph
// boundaries; paragraphs still exceeding the limit are hard-split at
// whitespace.
func splitOversized(section string, maxChunkChars int) []string {
	if len(section) <= maxChunkChars {
		return []string{section}
	}

	var pieces []string
	for _, para := range strings.Split(section, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxChunkChars {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, hardSplit(para, maxChunkChars)...)
	}
	return pieces
}

// hardSplit cuts text into pieces of at most maxChars bytes, preferring
// the nearest whitespace at or before the limit. Cut points are snapped
// to rune boundaries so multi-byte characters are never split.
func hardSplit(text string, maxChars int) []string {
	var pieces []string
	for len(text) > maxChars {
		cut := snapBackToRuneStart(text, maxChars)
		if ws := strings.LastIndexFunc(text[:cut], unicode.IsSpace); ws > 0 {
			cut = ws
		}
		if cut <= 0 {
			break
		}
		pieces = append(pieces, strings.TrimSpace(text[:cut]))
		text = strings.TrimLeftFunc(text[cut:], unicode.IsSpace)
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

// overlapExcerpt returns the trailing overlapChars of the previous
// section, snapped forward to a rune boundary and then to a clean word
// start. Returns "" when no usable overlap exists.
func overlapExcerpt(prev string, overlapChars int) string {
	if overlapChars <= 0 || prev == "" {
		return ""
	}
	start := len(prev) - overlapChars
	if start >= len(prev) {
		return ""
	}
	if start <= 0 {
		return prev
	}
	start = snapForwardToRuneStart(prev, start)
	if start >= len(prev) {
		return ""
	}

	// Already at a word start when the preceding byte is whitespace.
	if !unicode.IsSpace(rune(prev[start-1])) {
		rest := prev[start:]
		ws := strings.IndexFunc(rest, unicode.IsSpace)
		if ws < 0 {
			return ""
		}
		start += ws
	}

	excerpt := strings.TrimLeftFunc(prev[start:], unicode.IsSpace)
	return excerpt
}

// snapForwardToRuneStart moves an index forward to the nearest rune
// boundary.
func snapForwardToRuneStart(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// snapBackToRuneStart moves an index backward to the nearest rune
// boundary at or before i.
func snapBackToRuneStart(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
