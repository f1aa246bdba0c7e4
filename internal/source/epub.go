package source

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Metadata struct {
		Titles      []string `xml:"title"`
		Creators    []string `xml:"creator"`
		Languages   []string `xml:"language"`
		Identifiers []string `xml:"identifier"`
	} `xml:"metadata"`
	Manifest []struct {
		ID         string `xml:"id,attr"`
		Href       string `xml:"href,attr"`
		MediaType  string `xml:"media-type,attr"`
		Properties string `xml:"properties,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// ReadEPUB parses an EPUB 2 or 3 file. Each spine document with text
// becomes a section keyed by its manifest id.
func ReadEPUB(filePath string) (*Document, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer zr.Close()

	doc, err := readEPUB(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read epub %s: %w", filePath, err)
	}
	doc.Path = filePath
	if doc.Title == "" {
		doc.Title = baseName(filePath)
	}
	return doc, nil
}

func readEPUB(zr *zip.Reader) (*Document, error) {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var container epubContainer
	if err := decodeXML(files, "META-INF/container.xml", &container); err != nil {
		return nil, err
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return nil, fmt.Errorf("container.xml has no rootfile")
	}
	opfPath := container.Rootfiles[0].FullPath

	var pkg epubPackage
	if err := decodeXML(files, opfPath, &pkg); err != nil {
		return nil, err
	}

	doc := &Document{
		Format:     FormatEPUB,
		Title:      first(pkg.Metadata.Titles),
		Author:     first(pkg.Metadata.Creators),
		Language:   first(pkg.Metadata.Languages),
		Identifier: first(pkg.Metadata.Identifiers),
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		if !isXHTML(item.MediaType) || strings.Contains(item.Properties, "nav") {
			continue
		}
		hrefs[item.ID] = item.Href
	}

	base := path.Dir(opfPath)
	for _, ref := range pkg.Spine {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		name, err := url.PathUnescape(href)
		if err != nil {
			name = href
		}
		f, ok := files[path.Join(base, name)]
		if !ok {
			return nil, fmt.Errorf("spine item %s not found: %s", ref.IDRef, href)
		}

		title, text, err := extractFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", href, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		doc.Sections = append(doc.Sections, Section{ID: ref.IDRef, Title: title, Text: text})
	}
	return doc, nil
}

func decodeXML(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func extractFile(f *zip.File) (string, string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", "", err
	}
	defer rc.Close()
	return ExtractHTML(rc)
}

// ExtractHTML returns the first heading and the visible text of an
// (X)HTML document, with block elements separated by blank lines.
func ExtractHTML(r io.Reader) (title, text string, err error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		block := false
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Head, atom.Script, atom.Style, atom.Noscript:
				return
			case atom.Br:
				b.WriteString("\n")
				return
			case atom.H1, atom.H2, atom.H3:
				if title == "" {
					title = strings.Join(strings.Fields(nodeText(n)), " ")
				}
			}
			block = isBlock(n.DataAtom)
		}
		if block {
			b.WriteString("\n\n")
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteString("\n\n")
		}
	}
	walk(root)

	return title, strings.Join(Paragraphs(b.String()), "\n\n"), nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Aside, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Ul, atom.Ol, atom.Dl, atom.Dt, atom.Dd,
		atom.Table, atom.Tr, atom.Pre, atom.Figure, atom.Figcaption,
		atom.Header, atom.Footer, atom.Hr:
		return true
	}
	return false
}

func isXHTML(mediaType string) bool {
	return mediaType == "application/xhtml+xml" || mediaType == "text/html"
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
