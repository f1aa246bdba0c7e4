package epub

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	boldRe   = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
)

// generateChapterXHTML converts a chapter's text to XHTML.
func (b *Builder) generateChapterXHTML(ch Chapter) string {
	var sb strings.Builder

	lang := escapeXML(b.language())
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml"`)
	sb.WriteString(fmt.Sprintf(" xml:lang=\"%s\" lang=\"%s\">\n", lang, lang))
	sb.WriteString(`<head>
  <title>`)
	sb.WriteString(escapeXML(ch.Title))
	sb.WriteString(`</title>
  <link rel="stylesheet" type="text/css" href="../styles/style.css"/>
</head>
<body>
`)

	sb.WriteString(markdownToXHTML(ch.Text, ch.Title))

	sb.WriteString("\n</body>\n</html>\n")

	return sb.String()
}

// markdownToXHTML converts paragraph text with light markdown to XHTML.
// Blank lines separate paragraphs; consecutive lines are joined.
func markdownToXHTML(md, title string) string {
	if strings.TrimSpace(md) == "" {
		return fmt.Sprintf("<h1>%s</h1>\n", escapeXML(title))
	}

	var result strings.Builder
	var inParagraph bool
	closeParagraph := func() {
		if inParagraph {
			result.WriteString("</p>\n")
			inParagraph = false
		}
	}

	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)

		// Empty line closes paragraph
		if trimmed == "" {
			closeParagraph()
			continue
		}

		// Headers
		if level, text, ok := heading(trimmed); ok {
			closeParagraph()
			result.WriteString(fmt.Sprintf("<h%d>%s</h%d>\n", level, processInlineFormatting(text), level))
			continue
		}

		// Blockquote
		if strings.HasPrefix(trimmed, "> ") {
			closeParagraph()
			result.WriteString("<blockquote><p>")
			result.WriteString(processInlineFormatting(strings.TrimPrefix(trimmed, "> ")))
			result.WriteString("</p></blockquote>\n")
			continue
		}

		// Horizontal rule
		if trimmed == "---" || trimmed == "***" || trimmed == "___" {
			closeParagraph()
			result.WriteString("<hr/>\n")
			continue
		}

		if !inParagraph {
			result.WriteString("<p>")
			inParagraph = true
		} else {
			result.WriteString(" ")
		}
		result.WriteString(processInlineFormatting(trimmed))
	}

	closeParagraph()
	return result.String()
}

func heading(line string) (int, string, bool) {
	for level, prefix := range []string{"# ", "## ", "### "} {
		if strings.HasPrefix(line, prefix) {
			return level + 1, strings.TrimPrefix(line, prefix), true
		}
	}
	return 0, "", false
}

// processInlineFormatting handles bold and italic markdown.
func processInlineFormatting(text string) string {
	// Escape XML first
	text = escapeXML(text)

	text = boldRe.ReplaceAllStringFunc(text, func(match string) string {
		return "<strong>" + strings.Trim(match, "*_") + "</strong>"
	})
	text = italicRe.ReplaceAllStringFunc(text, func(match string) string {
		return "<em>" + strings.Trim(match, "*_") + "</em>"
	})

	return text
}
