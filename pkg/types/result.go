package types

// SearchResult is a single ranked hit from hybrid search. Results are
// ephemeral and never persisted.
type SearchResult struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	DocType DocType `json:"doc_type"`
	Path    string  `json:"path"`
	// Score is the combined weighted ranking score in [0,1].
	Score float32 `json:"score"`
	// SemanticScore is the vector-similarity component.
	SemanticScore float32 `json:"semantic_score"`
	// KeywordScore is the lexical/title-match component.
	KeywordScore float32 `json:"keyword_score"`
	// Highlight is a content prefix of at most 200 characters, snapped to
	// a rune boundary and ellipsis-suffixed when truncated.
	Highlight string `json:"highlight"`
}

// SearchFilters narrows a search call.
type SearchFilters struct {
	// DocTypes restricts results to the given classifications when non-empty.
	DocTypes []DocType
	// Threshold overrides the configured similarity threshold when set.
	Threshold *float32
}

// IndexStats reports the outcome of one indexing pass. Indexed and Failed
// count chunks; Skipped and TotalDiscovered count documents.
type IndexStats struct {
	Indexed         int `json:"indexed"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
	TotalDiscovered int `json:"total_discovered"`
	ChunksCreated   int `json:"chunks_created"`
}
