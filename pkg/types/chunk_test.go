package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseIDStableAndPrefixed(t *testing.T) {
	a := BaseID("/ws/skills/deploy/SKILL.md")
	b := BaseID("/ws/skills/deploy/SKILL.md")
	c := BaseID("/ws/README.md")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^doc_[0-9a-f]{16}$`, a)
}

func TestChunkIDRoundTrip(t *testing.T) {
	base := BaseID("/ws/README.md")
	id := ChunkID(base, 7)

	got, ok := SplitChunkID(id)
	assert.True(t, ok)
	assert.Equal(t, base, got)
}

func TestSplitChunkIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{
		"",
		"doc_0011223344556677",
		"_c0",
		"doc_0011223344556677_c",
		"doc_0011223344556677_cx",
		"doc_0011223344556677_c1x",
	} {
		_, ok := SplitChunkID(id)
		assert.False(t, ok, "id %q should not parse", id)
	}
}

func TestSplitChunkIDUsesLastSuffix(t *testing.T) {
	// A path hash cannot contain "_c", but IDs are just strings; the
	// last suffix wins.
	got, ok := SplitChunkID("doc_c1_c2")
	assert.True(t, ok)
	assert.Equal(t, "doc_c1", got)
}

func TestParseDocType(t *testing.T) {
	assert.Equal(t, DocTypeSkill, ParseDocType("skill"))
	assert.Equal(t, DocTypeOther, ParseDocType("nonsense"))
	assert.Equal(t, DocTypeOther, ParseDocType(""))
	assert.Equal(t, DocTypeOther, ParseDocType("other"))
}
