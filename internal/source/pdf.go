package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pageNumberPattern = regexp.MustCompile(`(\d+)\D*$`)

// ReadPDF extracts the text shown on each page of a PDF. Each page with
// text becomes a section keyed "page_0001", "page_0002", ...
//
// Only text drawn with simple (single byte) font encodings is recovered.
// Pages without any shown text are skipped.
func ReadPDF(filePath string) (*Document, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	outDir, err := os.MkdirTemp("", "folio-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContent(f, outDir, "page", nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract pdf content: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}

	type page struct {
		num  int
		text string
	}
	var pages []page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		m := pageNumberPattern.FindStringSubmatch(name[:len(name)-len(filepath.Ext(name))])
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			return nil, err
		}
		pages = append(pages, page{num: num, text: ContentText(data)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	doc := &Document{Path: filePath, Format: FormatPDF, Title: baseName(filePath)}
	for _, p := range pages {
		if p.text == "" {
			continue
		}
		doc.Sections = append(doc.Sections, Section{
			ID:    fmt.Sprintf("page_%04d", p.num),
			Title: fmt.Sprintf("Page %d", p.num),
			Text:  p.text,
		})
	}
	return doc, nil
}
