package store

import "strings"

// Helpers for building DeleteRaw predicates. Values interpolated into a
// predicate must pass through quoteLiteral; LIKE patterns additionally
// need escapeLike so underscores and percents in IDs match literally.

// quoteLiteral wraps s in single quotes with embedded quotes doubled,
// per the SQL string literal rules.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// escapeLike escapes LIKE metacharacters with a backslash. Chunk IDs
// contain underscores, so prefix matches would otherwise wildcard.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// PrefixPredicate builds an "id starts with any of prefixes" predicate
// for DeleteRaw. Returns "" when prefixes is empty.
func PrefixPredicate(prefixes []string) string {
	if len(prefixes) == 0 {
		return ""
	}

	clauses := make([]string, len(prefixes))
	for i, p := range prefixes {
		clauses[i] = "id LIKE " + quoteLiteral(escapeLike(p)+"%") + ` ESCAPE '\'`
	}
	return strings.Join(clauses, " OR ")
}

// IDPredicate builds an "id in set" predicate for DeleteRaw. Returns ""
// when ids is empty.
func IDPredicate(ids []string) string {
	if len(ids) == 0 {
		return ""
	}

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = quoteLiteral(id)
	}
	return "id IN (" + strings.Join(quoted, ", ") + ")"
}
