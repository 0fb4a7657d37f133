package types

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// TextChunk is a bounded slice of a document's content prepared for
// embedding. Text is title-prefixed and, for chunks after the first,
// carries a leading ellipsis-prefixed overlap excerpt from the previous
// chunk.
type TextChunk struct {
	Text  string
	Index int
	Total int
}

// BaseID derives the stable document identifier from an absolute file
// path. FNV-1a is stable across process restarts, unlike hash/maphash.
func BaseID(path string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return fmt.Sprintf("doc_%016x", h.Sum64())
}

// ChunkID builds the composite row identifier for a chunk of a document.
func ChunkID(baseID string, index int) string {
	return fmt.Sprintf("%s_c%d", baseID, index)
}

// SplitChunkID parses a composite chunk identifier back to its document
// base ID. Returns ok=false for identifiers without a chunk suffix.
func SplitChunkID(id string) (baseID string, ok bool) {
	i := strings.LastIndex(id, "_c")
	if i <= 0 {
		return "", false
	}
	suffix := id[i+2:]
	if suffix == "" {
		return "", false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id[:i], true
}
