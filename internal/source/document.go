// Package source splits input documents into translation units.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/folio/internal/translate"
)

// Format identifies an input document type.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatEPUB     Format = "epub"
	FormatPDF      Format = "pdf"
)

// ErrUnsupportedFormat is returned for inputs with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Key identifies one unit: a chunk within a section. Keys are unique
// within a document.
type Key struct {
	Section string
	Chunk   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Section, k.Chunk)
}

// Section is a chapter, page or other top-level division of a document.
type Section struct {
	ID    string
	Title string
	Text  string
}

// Document is a parsed input file.
type Document struct {
	Path       string
	Format     Format
	Title      string
	Author     string
	Language   string
	Identifier string
	Sections   []Section
}

// FormatFor returns the input format implied by path's extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return FormatText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".epub":
		return FormatEPUB, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Open parses the document at path according to its extension.
func Open(path string) (*Document, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatEPUB:
		return ReadEPUB(path)
	case FormatPDF:
		return ReadPDF(path)
	default:
		return ReadTextFile(path)
	}
}

// Units chunks every section into translation units in document order.
// Sections without text produce no units.
func (d *Document) Units(chunkSize int) []translate.Unit[Key] {
	var units []translate.Unit[Key]
	for _, s := range d.Sections {
		for i, chunk := range Chunk(s.Text, chunkSize) {
			units = append(units, translate.Unit[Key]{
				ID:   Key{Section: s.ID, Chunk: i},
				Text: chunk,
			})
		}
	}
	return units
}

// Texts returns section texts in order.
func (d *Document) Texts() []string {
	out := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = s.Text
	}
	return out
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
