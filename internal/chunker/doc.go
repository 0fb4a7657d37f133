// Package chunker splits workspace documents into bounded, overlapping
// text chunks for embedding.
//
// Markdown documents are split on level-2 headings so each chunk keeps a
// coherent topic; code and other unstructured files are split on blank
// lines once enough content has accumulated, which avoids fragmenting on
// every empty line. Oversized sections fall back to paragraph splits and
// finally to whitespace hard-splits, and small adjacent sections are
// re-merged up to the chunk limit.
//
//	chunks := chunker.PrepareChunks(doc, 2000, 200)
//
// Chunking never fails: an empty document produces a single minimal
// chunk, and all cut points respect UTF-8 rune boundaries.
package chunker
