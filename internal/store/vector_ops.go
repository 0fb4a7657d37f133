package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// VectorSearch returns up to limit nearest neighbors of queryVector by
// cosine distance, ascending.
func (s *SQLiteStore) VectorSearch(ctx context.Context, queryVector []float32, limit int, docTypes []string) ([]VectorMatch, error) {
	if limit <= 0 {
		return []VectorMatch{}, nil
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	// Use SQL-level distance when sqlite-vec is available, otherwise
	// compute cosine distances in Go.
	if VectorExtensionAvailable {
		return s.vectorSearchSQL(ctx, queryVector, limit, docTypes)
	}
	return s.vectorSearchFallback(ctx, queryVector, limit, docTypes)
}

// vectorSearchSQL pushes distance computation into sqlite-vec.
func (s *SQLiteStore) vectorSearchSQL(ctx context.Context, queryVector []float32, limit int, docTypes []string) ([]VectorMatch, error) {
	query := `
		SELECT id, content, doc_type, path, title,
		       vec_distance_cosine(embedding, ?) AS distance
		FROM document_vectors
	`
	args := []interface{}{serializeVector(queryVector)}
	query, args = applyDocTypeFilter(query, args, docTypes, "WHERE")
	query += " ORDER BY distance ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorMatch, 0, limit)
	for rows.Next() {
		var m VectorMatch
		if err := rows.Scan(&m.ID, &m.Content, &m.DocType, &m.Path, &m.Title, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// vectorSearchFallback scans all candidate rows and ranks them in Go.
func (s *SQLiteStore) vectorSearchFallback(ctx context.Context, queryVector []float32, limit int, docTypes []string) ([]VectorMatch, error) {
	query := `
		SELECT id, content, doc_type, path, title, embedding
		FROM document_vectors
	`
	args := []interface{}{}
	query, args = applyDocTypeFilter(query, args, docTypes, "WHERE")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]VectorMatch, 0, 256)
	for rows.Next() {
		var m VectorMatch
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Content, &m.DocType, &m.Path, &m.Title, &blob); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		m.Distance = 1.0 - cosineSimilarity(queryVector, vector)
		candidates = append(candidates, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	if limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// TextSearch runs a BM25 full-text query over chunk content and titles.
// Results come back best-first (ascending bm25, which is negative).
func (s *SQLiteStore) TextSearch(ctx context.Context, query string, limit int, docTypes []string) ([]TextMatch, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return []TextMatch{}, nil
	}
	if limit <= 0 {
		return []TextMatch{}, nil
	}

	sqlQuery := `
		SELECT dv.id, bm25(document_vectors_fts) AS score
		FROM document_vectors_fts
		INNER JOIN document_vectors dv ON document_vectors_fts.rowid = dv.rowid
		WHERE document_vectors_fts MATCH ?
	`
	args := []interface{}{sanitized}
	sqlQuery, args = applyDocTypeFilter(sqlQuery, args, docTypes, "AND")
	sqlQuery += " ORDER BY score LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextMatch, 0, limit)
	for rows.Next() {
		var m TextMatch
		if err := rows.Scan(&m.ID, &m.Score); err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// applyDocTypeFilter appends a doc_type IN (...) clause. keyword is
// "WHERE" or "AND" depending on what the query already carries.
func applyDocTypeFilter(query string, args []interface{}, docTypes []string, keyword string) (string, []interface{}) {
	if len(docTypes) == 0 {
		return query, args
	}

	query += " " + keyword + " doc_type IN ("
	for i, dt := range docTypes {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, dt)
	}
	query += ")"
	return query, args
}

// nonSearchable matches runes that carry FTS5 syntax or add nothing to
// a bareword query.
var nonSearchable = regexp.MustCompile(`[^\pL\pN_]+`)

// sanitizeFTSQuery rewrites free text into a safe FTS5 match expression:
// each term is double-quoted so operators, quotes, and punctuation in
// user input cannot change the query's structure.
func sanitizeFTSQuery(query string) string {
	terms := nonSearchable.Split(query, -1)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " ")
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
