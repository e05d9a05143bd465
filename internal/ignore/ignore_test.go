package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		want     bool
	}{
		{"no patterns", nil, "a.md", false, false},
		{"basename glob", []string{"*.draft.md"}, "2026/03/walk.draft.md", false, true},
		{"basename glob miss", []string{"*.draft.md"}, "2026/03/walk.md", false, false},
		{"dir pattern covers children", []string{"drafts/"}, "drafts/a.md", false, true},
		{"dir pattern nested", []string{"drafts/"}, "2026/drafts/a.md", false, true},
		{"dir pattern skips file of same name", []string{"drafts/"}, "drafts", false, false},
		{"dir pattern matches dir", []string{"drafts/"}, "drafts", true, true},
		{"anchored", []string{"/templates"}, "templates/daily.md", false, true},
		{"anchored does not float", []string{"/templates"}, "2026/templates/daily.md", false, false},
		{"inner slash anchors", []string{"2025/old"}, "2025/old/a.md", false, true},
		{"inner slash anchors miss", []string{"2025/old"}, "x/2025/old/a.md", false, false},
		{"double star prefix", []string{"**/scratch.md"}, "a/b/scratch.md", false, true},
		{"double star middle", []string{"archive/**/secret.md"}, "archive/2020/01/secret.md", false, true},
		{"double star suffix", []string{"archive/**"}, "archive/2020/a.md", false, true},
		{"question mark", []string{"day?.md"}, "day1.md", false, true},
		{"question mark no slash", []string{"a?b.md"}, "a/b.md", false, false},
		{"class", []string{"202[45]/"}, "2024/a.md", false, true},
		{"negated class", []string{"202[!45]/"}, "2024/a.md", false, false},
		{"negation re-includes", []string{"drafts/*", "!drafts/keep.md"}, "drafts/keep.md", false, false},
		{"later rule wins", []string{"!a.md", "a.md"}, "a.md", false, true},
		{"comment", []string{"# a.md"}, "a.md", false, false},
		{"escaped hash", []string{`\#tag.md`}, "#tag.md", false, true},
		{"escaped bang", []string{`\!loud.md`}, "!loud.md", false, true},
		{"dots are literal", []string{"a.md"}, "axmd", false, false},
		{"unicode name", []string{"café.md"}, "notes/café.md", false, true},
		{"invalid pattern is skipped", []string{"[[:alpha:]]x"}, "ax", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.patterns...)
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestParse(t *testing.T) {
	// Given an ignore file with comments and blank lines
	content := "# drafts\n\ndrafts/\n  *.tmp.md  \n!keep.tmp.md\n"

	// When parsing it
	m, err := Parse(strings.NewReader(content))

	// Then only real patterns remain, in order
	require.NoError(t, err)
	assert.Equal(t, []string{"drafts/", "*.tmp.md", "!keep.tmp.md"}, m.Patterns())
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.Match("x.tmp.md", false))
	assert.False(t, m.Match("keep.tmp.md", false))
}

func TestLoad(t *testing.T) {
	t.Run("missing file ignores nothing", func(t *testing.T) {
		m, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, 0, m.Len())
		assert.False(t, m.Match("a.md", false))
	})

	t.Run("reads the journal ignore file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("templates/\n"), 0o644))

		m, err := Load(dir)

		require.NoError(t, err)
		assert.True(t, m.Match("templates/daily.md", false))
	})
}

func TestNilMatcher(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Match("a.md", false))
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Patterns())
}
