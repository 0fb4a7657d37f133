package types

// DocType classifies a workspace document.
type DocType string

const (
	// DocTypeSkill is a SKILL.md file describing an agent capability.
	DocTypeSkill DocType = "skill"
	// DocTypePlan covers plans, implementation guides, and summaries.
	DocTypePlan DocType = "plan"
	// DocTypeDocs covers README files and general documentation.
	DocTypeDocs DocType = "docs"
	// DocTypeIdentity is an IDENTITY.md agent identity definition.
	DocTypeIdentity DocType = "identity"
	// DocTypeSoul is a SOUL.md agent personality definition.
	DocTypeSoul DocType = "soul"
	// DocTypeConfig covers structured configuration files (TOML, YAML, JSON).
	DocTypeConfig DocType = "config"
	// DocTypeCode covers common source-code files.
	DocTypeCode DocType = "code"
	// DocTypeOther is any other markdown or text document.
	DocTypeOther DocType = "other"
)

// ParseDocType parses a stored doc_type string. Unknown values map to
// DocTypeOther so rows written by newer versions never fail to load.
func ParseDocType(s string) DocType {
	switch DocType(s) {
	case DocTypeSkill, DocTypePlan, DocTypeDocs, DocTypeIdentity,
		DocTypeSoul, DocTypeConfig, DocTypeCode:
		return DocType(s)
	default:
		return DocTypeOther
	}
}

// String returns the string form stored in the document table.
func (d DocType) String() string {
	return string(d)
}

// DocMetadata holds facts derived from a document's location and type.
type DocMetadata struct {
	// Agent is the owning agent's name, parsed from an "agents/<name>"
	// path segment pair. Empty when the document is not agent-scoped.
	Agent string
	// SkillName is the parent directory name, set only for SKILL.md files.
	SkillName string
	// SizeBytes is the document content length in bytes.
	SizeBytes int64
}

// Document is a workspace file discovered by the crawler. Documents are
// rebuilt fresh on every crawl pass and never persisted directly; only
// their derived chunks are stored.
type Document struct {
	// ID is a stable identifier derived from the absolute file path.
	// The same path always yields the same ID across runs.
	ID string
	// DocType is the document classification.
	DocType DocType
	// Path is the absolute filesystem path.
	Path string
	// Title is the first markdown heading, or the bare filename.
	Title string
	// Content is the full raw text of the file.
	Content string
	// Metadata holds derived facts about the document.
	Metadata DocMetadata
}
