package parsers

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Parser = (*DOCXParser)(nil)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxLineBreak    = regexp.MustCompile(`<w:(br|cr)[^>]*/>`)
	docxTab          = regexp.MustCompile(`<w:tab[^>]*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

// DOCXParser extracts paragraph text from Word documents. Each Word
// paragraph becomes its own blank-line separated paragraph.
type DOCXParser struct{}

func (p *DOCXParser) Parse(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	return documentXMLToText(r.Editable().GetContent()), nil
}

// documentXMLToText flattens WordprocessingML to plain text.
func documentXMLToText(content string) string {
	content = docxParagraphEnd.ReplaceAllString(content, "\n\n")
	content = docxLineBreak.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	text := normalizeText(content)
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}

func (p *DOCXParser) SupportedExtensions() []string {
	return []string{".docx"}
}

func (p *DOCXParser) Priority() int {
	return 50
}
