package source

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeZip(t *testing.T, path string, files map[string]string, order []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReadEPUB(t *testing.T) {
	files := map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:creator>A. Writer</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier>urn:uuid:1234</dc:identifier>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ch2" href="text/chapter%202.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="text/chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="blank" href="text/blank.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="nav"/>
    <itemref idref="ch1"/>
    <itemref idref="blank"/>
    <itemref idref="ch2"/>
  </spine>
</package>`,
		"OEBPS/nav.xhtml": `<html><body><nav><ol><li>Chapter 1</li></ol></nav></body></html>`,
		"OEBPS/text/chapter1.xhtml": `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>ignored</title><style>p{}</style></head>
<body><h1>Chapter <em>One</em></h1><p>It was a dark
and stormy night.</p><p>The end<br/>of one.</p><script>var x;</script></body></html>`,
		"OEBPS/text/chapter 2.xhtml": `<html><body><div><p>Second chapter.</p></div></body></html>`,
		"OEBPS/text/blank.xhtml":     `<html><body><img src="cover.jpg"/></body></html>`,
		"OEBPS/style.css":            `p { margin: 0 }`,
	}
	order := []string{"mimetype", "META-INF/container.xml", "OEBPS/content.opf", "OEBPS/nav.xhtml",
		"OEBPS/text/chapter1.xhtml", "OEBPS/text/chapter 2.xhtml", "OEBPS/text/blank.xhtml", "OEBPS/style.css"}

	path := filepath.Join(t.TempDir(), "book.epub")
	writeZip(t, path, files, order)

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if doc.Title != "Test Book" || doc.Author != "A. Writer" || doc.Language != "en" || doc.Identifier != "urn:uuid:1234" {
		t.Errorf("metadata = %+v", doc)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("got %d sections: %+v", len(doc.Sections), doc.Sections)
	}

	ch1 := doc.Sections[0]
	if ch1.ID != "ch1" || ch1.Title != "Chapter One" {
		t.Errorf("ch1 = %+v", ch1)
	}
	want := "Chapter One\n\nIt was a dark and stormy night.\n\nThe end of one."
	if ch1.Text != want {
		t.Errorf("ch1 text = %q, want %q", ch1.Text, want)
	}
	if strings.Contains(ch1.Text, "var x") || strings.Contains(ch1.Text, "ignored") {
		t.Error("script or head text leaked into section")
	}
	if doc.Sections[1].ID != "ch2" || doc.Sections[1].Text != "Second chapter." {
		t.Errorf("ch2 = %+v", doc.Sections[1])
	}
}

func TestReadEPUB_Invalid(t *testing.T) {
	dir := t.TempDir()

	notZip := filepath.Join(dir, "bad.epub")
	os.WriteFile(notZip, []byte("not a zip"), 0o644)
	if _, err := ReadEPUB(notZip); err == nil {
		t.Error("expected error for non-zip file")
	}

	noContainer := filepath.Join(dir, "empty.epub")
	writeZip(t, noContainer, map[string]string{"mimetype": "application/epub+zip"}, []string{"mimetype"})
	if _, err := ReadEPUB(noContainer); err == nil {
		t.Error("expected error for missing container.xml")
	}
}
