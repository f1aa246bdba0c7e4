// Package epub writes EPUB 3 books, either built fresh from translated
// text or rewritten from a source EPUB.
package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

const containerXML = xmlDeclaration + `<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// Book contains the metadata needed for epub generation.
type Book struct {
	Identifier     string // e.g., "urn:uuid:..."; generated when empty
	Title          string
	Author         string
	Language       string // ISO 639-1 code (e.g., "ko")
	SourceLanguage string // language of the original, if known
	Translator     string // model or service that produced the text
	ModifiedAt     time.Time
}

// Chapter represents a chapter for epub generation.
type Chapter struct {
	ID    string // Unique identifier (e.g., "ch_001")
	Title string
	Text  string // Paragraphs separated by blank lines; light markdown allowed
}

// Builder creates EPUB 3 files from plain chapters.
type Builder struct {
	book     Book
	chapters []Chapter
}

// NewBuilder creates a new epub builder. Chapters without an ID are
// numbered ch_001, ch_002, ... in order.
func NewBuilder(book Book, chapters []Chapter) *Builder {
	if book.Identifier == "" {
		book.Identifier = "urn:uuid:" + uuid.New().String()
	}
	if book.ModifiedAt.IsZero() {
		book.ModifiedAt = time.Now()
	}
	out := make([]Chapter, len(chapters))
	for i, ch := range chapters {
		if ch.ID == "" {
			ch.ID = fmt.Sprintf("ch_%03d", i+1)
		}
		out[i] = ch
	}
	return &Builder{book: book, chapters: out}
}

// WriteTo writes the epub container to w.
func (b *Builder) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)
	if err := writeMimetype(zw); err != nil {
		return err
	}

	entries := []struct {
		name    string
		content string
	}{
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", b.generatePackage()},
		{"OEBPS/nav.xhtml", b.generateNavigation()},
		{"OEBPS/toc.ncx", b.generateNCX()},
		{"OEBPS/styles/style.css", defaultStylesheet},
	}
	for _, ch := range b.chapters {
		entries = append(entries, struct {
			name    string
			content string
		}{"OEBPS/chapters/" + ch.ID + ".xhtml", b.generateChapterXHTML(ch)})
	}

	for _, e := range entries {
		if err := writeFile(zw, e.name, []byte(e.content)); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	return zw.Close()
}

// writeMimetype writes the mimetype entry, which must come first and be stored.
func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("failed to create mimetype: %w", err)
	}
	_, err = io.WriteString(w, "application/epub+zip")
	return err
}

func writeFile(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

const defaultStylesheet = `body {
  font-family: Georgia, "Times New Roman", serif;
  line-height: 1.6;
  margin: 1em;
}

h1, h2, h3 {
  text-align: left;
  margin-top: 1.5em;
}

p {
  margin: 0.5em 0;
  text-indent: 1.5em;
}

h1 + p, h2 + p, h3 + p {
  text-indent: 0;
}

blockquote {
  margin: 1em 2em;
  font-style: italic;
}
`
