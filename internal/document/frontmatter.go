package document

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatterRegex matches a leading YAML block delimited by --- lines.
var frontMatterRegex = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|$)`)

// headingRegex finds the first markdown heading, used as a fallback title.
var headingRegex = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)\s*#*\s*$`)

// Parse splits raw file content into front-matter and body.
// Content without a front-matter block is all body.
func Parse(content []byte) (FrontMatter, string, error) {
	var fm FrontMatter

	loc := frontMatterRegex.FindSubmatchIndex(content)
	if loc == nil {
		return fm, strings.TrimSpace(string(content)), nil
	}

	block := content[loc[2]:loc[3]]
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return fm, "", fmt.Errorf("invalid front-matter: %w", err)
	}

	body := strings.TrimSpace(string(content[loc[1]:]))
	return fm, body, nil
}

// Render serializes a document back into front-matter plus body.
func Render(doc *Document) ([]byte, error) {
	meta, err := yaml.Marshal(doc.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal front-matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n\n")
	buf.WriteString(doc.Body)
	if !strings.HasSuffix(doc.Body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// FirstHeading returns the text of the first markdown heading in body, or "".
func FirstHeading(body string) string {
	m := headingRegex.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}
