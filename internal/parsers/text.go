package parsers

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Parser = (*PlaintextParser)(nil)
	_ driven.Parser = (*MarkdownParser)(nil)
)

// normalizeText unifies line endings and trims trailing spaces on each line.
func normalizeText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// PlaintextParser handles .txt uploads.
type PlaintextParser struct{}

func (p *PlaintextParser) Parse(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return normalizeText(strings.ToValidUTF8(string(data), "�")), nil
	}
	return normalizeText(string(data)), nil
}

func (p *PlaintextParser) SupportedExtensions() []string {
	return []string{".txt"}
}

func (p *PlaintextParser) Priority() int {
	return 10
}

// MarkdownParser handles .md uploads. Headings, paragraphs, list items and
// code blocks each become a paragraph of plain text; inline markup, link
// targets and raw HTML are dropped.
type MarkdownParser struct {
	md goldmark.Markdown
}

// NewMarkdownParser creates a markdown parser with CommonMark defaults.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{md: goldmark.New()}
}

func (p *MarkdownParser) Parse(data []byte) (string, error) {
	md := p.md
	if md == nil {
		md = goldmark.New()
	}

	source := []byte(normalizeText(string(data)))
	doc := md.Parser().Parse(text.NewReader(source))

	var blocks []string
	add := func(block string) {
		if block = strings.TrimSpace(block); block != "" {
			blocks = append(blocks, block)
		}
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			add(inlineText(node, source))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			add(blockLines(node, source))
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walk markdown: %w", err)
	}

	return normalizeText(strings.Join(blocks, "\n\n")), nil
}

// inlineText collects the visible text of an inline container.
func inlineText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(source))
			if v.HardLineBreak() {
				buf.WriteByte('\n')
			} else if v.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.AutoLink:
			buf.Write(v.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// blockLines returns the raw lines of a code block.
func blockLines(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(source))
	}
	return buf.String()
}

func (p *MarkdownParser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

func (p *MarkdownParser) Priority() int {
	return 50
}
