package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadTextFile parses a plain text or markdown file.
func ReadTextFile(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := ReadText(f, baseName(path), format == FormatMarkdown)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// ReadText parses text from r. Plain text becomes a single section named
// name. Markdown is split into sections at level 1 and 2 headings.
func ReadText(r io.Reader, name string, markdown bool) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	doc := &Document{Format: FormatText, Title: name}
	if !markdown {
		if strings.TrimSpace(text) != "" {
			doc.Sections = []Section{{ID: name, Title: name, Text: text}}
		}
		return doc, nil
	}

	doc.Format = FormatMarkdown
	doc.Sections = markdownSections(text)
	for _, s := range doc.Sections {
		if s.Title != "" {
			doc.Title = s.Title
			break
		}
	}
	return doc, nil
}

func markdownSections(text string) []Section {
	var (
		sections []Section
		title    string
		body     strings.Builder
		inFence  bool
	)
	flush := func() {
		if strings.TrimSpace(body.String()) != "" {
			sections = append(sections, Section{
				ID:    fmt.Sprintf("section_%03d", len(sections)+1),
				Title: title,
				Text:  body.String(),
			})
		}
		body.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if heading, ok := sectionHeading(line); ok && !inFence {
			flush()
			title = heading
			// The heading is translated with its section.
			body.WriteString(heading)
			body.WriteString("\n\n")
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()
	return sections
}

func sectionHeading(line string) (string, bool) {
	for _, prefix := range []string{"# ", "## "} {
		if strings.HasPrefix(line, prefix) {
			if h := strings.TrimSpace(strings.Trim(strings.TrimPrefix(line, prefix), "#")); h != "" {
				return h, true
			}
		}
	}
	return "", false
}
