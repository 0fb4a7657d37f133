package crawler

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/harborai/docvector-mcp/internal/config"
	"github.com/harborai/docvector-mcp/pkg/types"
)

// skipDirs are directory names never descended into, regardless of the
// extension allowlist. Dot-directories are skipped separately.
var skipDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".next":        true,
	"vendor":       true,
	".git":         true,
}

// codeExtensions map to DocTypeCode during classification.
var codeExtensions = map[string]bool{
	"go": true, "rs": true, "ts": true, "tsx": true, "js": true,
	"jsx": true, "py": true, "sh": true, "css": true, "html": true,
}

// configExtensions map to DocTypeConfig during classification.
var configExtensions = map[string]bool{
	"toml": true, "yaml": true, "yml": true, "json": true,
}

// WorkspaceCrawler recursively discovers and classifies workspace documents.
type WorkspaceCrawler struct {
	root string
	cfg  *config.Config
}

// New creates a crawler rooted at workspaceRoot.
func New(workspaceRoot string, cfg *config.Config) *WorkspaceCrawler {
	return &WorkspaceCrawler{root: workspaceRoot, cfg: cfg}
}

// DiscoverDocuments walks the workspace and returns every indexable
// document. The walk is a single synchronous pass; unreadable files and
// directories are logged and skipped, never aborting the crawl.
// Incrementality is the indexer's job, via content hashing.
func (c *WorkspaceCrawler) DiscoverDocuments() []*types.Document {
	var documents []*types.Document

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("crawler: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			name := d.Name()
			if path != c.root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.isIndexable(path, d) {
			return nil
		}

		if doc := c.processFile(path); doc != nil {
			documents = append(documents, doc)
		}
		return nil
	})
	if err != nil {
		log.Printf("crawler: walk of %s failed: %v", c.root, err)
	}

	log.Printf("crawler: discovered %d workspace documents", len(documents))
	return documents
}

// isIndexable checks the extension allowlist and the file size cap.
// Oversized files are silently skipped as likely generated or binary.
func (c *WorkspaceCrawler) isIndexable(path string, d fs.DirEntry) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" || !c.cfg.Indexable(ext) {
		return false
	}
	if info, err := d.Info(); err == nil && info.Size() > c.cfg.MaxFileSize {
		return false
	}
	return true
}

// processFile reads and classifies a single file. Returns nil when the
// file cannot be read.
func (c *WorkspaceCrawler) processFile(path string) *types.Document {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Printf("crawler: failed to read %s: %v", path, err)
		return nil
	}

	fileName := filepath.Base(path)
	docType := classify(fileName)
	text := string(content)

	title := extractTitle(text)
	if title == "" {
		title = fileName
	}

	meta := types.DocMetadata{SizeBytes: int64(len(content))}
	if rel, err := filepath.Rel(c.root, path); err == nil {
		meta.Agent = extractAgentName(rel)
	}
	if docType == types.DocTypeSkill {
		meta.SkillName = filepath.Base(filepath.Dir(path))
	}

	return &types.Document{
		ID:       types.BaseID(path),
		DocType:  docType,
		Path:     path,
		Title:    title,
		Content:  text,
		Metadata: meta,
	}
}

// classify maps a filename to a document type. Exact well-known names win,
// then naming conventions, then extension groups.
func classify(fileName string) types.DocType {
	switch fileName {
	case "SKILL.md":
		return types.DocTypeSkill
	case "IDENTITY.md":
		return types.DocTypeIdentity
	case "SOUL.md":
		return types.DocTypeSoul
	case "README.md":
		return types.DocTypeDocs
	}
	if strings.Contains(fileName, "_PLAN") ||
		strings.Contains(fileName, "_IMPLEMENTATION_") ||
		strings.Contains(fileName, "_GUIDE") {
		return types.DocTypePlan
	}
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if configExtensions[ext] {
		return types.DocTypeConfig
	}
	if codeExtensions[ext] {
		return types.DocTypeCode
	}
	return types.DocTypeOther
}

// extractTitle returns the first non-empty markdown heading with the
// heading markers stripped, or "" when no heading exists.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		if title != "" {
			return title
		}
	}
	return ""
}

// extractAgentName finds the path segment following a segment literally
// named "agents" in a workspace-relative path.
func extractAgentName(relPath string) string {
	segments := strings.Split(filepath.ToSlash(relPath), "/")
	for i, seg := range segments {
		if seg == "agents" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}
