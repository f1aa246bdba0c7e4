// Package sink writes translation results to output files.
package sink

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/folio/internal/epub"
	"github.com/jackzampolin/folio/internal/source"
	"github.com/jackzampolin/folio/internal/translate"
)

// Chapter is one translated section.
type Chapter struct {
	ID    string
	Title string
	Text  string
	// Missing counts chunks with no translation (cancelled or failed).
	Missing int
}

// Book is the metadata written alongside the chapters.
type Book struct {
	Title          string
	Author         string
	Language       string // target language code
	SourceLanguage string
	Translator     string
}

// Writer writes a translated book.
type Writer interface {
	Write(w io.Writer, book Book, chapters []Chapter) error
	Extension() string
}

// AssembleOptions controls how results become chapters.
type AssembleOptions struct {
	// KeepSource substitutes the source text for chunks that have no
	// translation.
	KeepSource bool
}

// Assemble groups results by section in document order. Chunks are joined
// with blank lines. Sections with no translated chunk are dropped unless
// KeepSource is set.
func Assemble(doc *source.Document, units []translate.Unit[source.Key], results *translate.Results[source.Key], opts AssembleOptions) []Chapter {
	bySection := make(map[string][]translate.Unit[source.Key])
	for _, u := range units {
		bySection[u.ID.Section] = append(bySection[u.ID.Section], u)
	}

	var chapters []Chapter
	for _, s := range doc.Sections {
		ch := Chapter{ID: s.ID, Title: s.Title}
		var parts []string
		translated := 0
		for _, u := range bySection[s.ID] {
			text, ok := results.Get(u.ID)
			if ok && text != "" {
				parts = append(parts, text)
				translated++
				continue
			}
			if ok && strings.TrimSpace(u.Text) == "" {
				continue
			}
			ch.Missing++
			if opts.KeepSource {
				parts = append(parts, u.Text)
			}
		}
		if translated == 0 && !opts.KeepSource {
			continue
		}
		ch.Text = strings.Join(parts, "\n\n")
		chapters = append(chapters, ch)
	}
	return chapters
}

// ForPath picks a writer from the output file extension.
func ForPath(path string) (Writer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return EPUBWriter{}, nil
	case ".txt", ".text", ".md", ".markdown", "":
		return TextWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", filepath.Ext(path))
	}
}

// ForDocument picks a writer for translating doc into path. EPUB to EPUB
// runs rewrite the source book so its layout, images and navigation are
// kept; other inputs use ForPath.
func ForDocument(doc *source.Document, path string) (Writer, error) {
	w, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	if _, ok := w.(EPUBWriter); !ok || doc.Format != source.FormatEPUB || doc.Path == "" {
		return w, nil
	}
	if samePath(doc.Path, path) {
		return nil, fmt.Errorf("output %s would overwrite the source", path)
	}
	return EPUBRewriter{Source: doc.Path}, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// WriteFile writes the book to path, creating parent directories.
func WriteFile(path string, w Writer, book Book, chapters []Chapter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := w.Write(f, book, chapters); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TextWriter writes sections in order, each under a header line.
type TextWriter struct{}

func (TextWriter) Extension() string { return ".txt" }

func (TextWriter) Write(w io.Writer, book Book, chapters []Chapter) error {
	bw := bufio.NewWriter(w)
	for _, ch := range chapters {
		fmt.Fprintf(bw, "--- Section: %s ---\n\n", ch.ID)
		bw.WriteString(ch.Text)
		bw.WriteString("\n\n")
	}
	return bw.Flush()
}

// EPUBWriter writes an EPUB 3 book with one chapter per section.
type EPUBWriter struct{}

func (EPUBWriter) Extension() string { return ".epub" }

func (EPUBWriter) Write(w io.Writer, book Book, chapters []Chapter) error {
	out := make([]epub.Chapter, len(chapters))
	for i, ch := range chapters {
		out[i] = epub.Chapter{Title: ch.Title, Text: ch.Text}
	}
	b := epub.NewBuilder(epub.Book{
		Title:          book.Title,
		Author:         book.Author,
		Language:       book.Language,
		SourceLanguage: book.SourceLanguage,
		Translator:     book.Translator,
	}, out)
	return b.WriteTo(w)
}

// EPUBRewriter writes a copy of the Source EPUB with each chapter's spine
// document replaced by its translation. Chapter IDs are manifest ids.
type EPUBRewriter struct {
	Source string
}

func (EPUBRewriter) Extension() string { return ".epub" }

func (r EPUBRewriter) Write(w io.Writer, book Book, chapters []Chapter) error {
	zr, err := zip.OpenReader(r.Source)
	if err != nil {
		return fmt.Errorf("failed to open source epub: %w", err)
	}
	defer zr.Close()

	out := make([]epub.Chapter, len(chapters))
	for i, ch := range chapters {
		out[i] = epub.Chapter{ID: ch.ID, Title: ch.Title, Text: ch.Text}
	}
	if err := epub.Rewrite(&zr.Reader, w, epub.Book{
		Language:   book.Language,
		Translator: book.Translator,
	}, out); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", r.Source, err)
	}
	return nil
}
