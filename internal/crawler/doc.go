// Package crawler discovers indexable documents in a workspace directory
// tree.
//
// The crawler performs a single depth-first pass: it skips hidden and
// well-known build/dependency directories, admits files by extension
// allowlist and size cap, classifies each file by naming convention and
// extension, and extracts a title and ownership metadata. Unreadable
// entries are logged and skipped so one bad file never aborts a crawl.
//
//	c := crawler.New("/path/to/workspace", config.Default())
//	docs := c.DiscoverDocuments()
//
// The crawler is not incremental; it re-discovers everything on each call.
// Change detection happens downstream in the indexer via content hashes.
package crawler
