package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	languageRe      = regexp.MustCompile(`(?s)(<dc:language\b[^>]*>).*?(</dc:language>)`)
	metadataCloseRe = regexp.MustCompile(`</(?:opf:)?metadata>`)
)

type containerDoc struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type manifestDoc struct {
	Items []struct {
		ID   string `xml:"id,attr"`
		Href string `xml:"href,attr"`
	} `xml:"manifest>item"`
}

// Rewrite copies the EPUB in src to w, replacing the body of each chapter's
// document with its text. Chapter IDs are manifest ids. Every other entry
// (stylesheets, images, fonts, navigation) is copied byte for byte. The
// package language is set to book.Language and book.Translator, if set, is
// added as a contributor.
func Rewrite(src *zip.Reader, w io.Writer, book Book, chapters []Chapter) error {
	files := make(map[string]*zip.File, len(src.File))
	for _, f := range src.File {
		files[f.Name] = f
	}

	data, err := readEntry(files, "META-INF/container.xml")
	if err != nil {
		return err
	}
	var container containerDoc
	if err := xml.Unmarshal(data, &container); err != nil {
		return fmt.Errorf("failed to parse container.xml: %w", err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return fmt.Errorf("container.xml has no rootfile")
	}
	opfPath := container.Rootfiles[0].FullPath

	opf, err := readEntry(files, opfPath)
	if err != nil {
		return err
	}
	var manifest manifestDoc
	if err := xml.Unmarshal(opf, &manifest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", opfPath, err)
	}
	hrefs := make(map[string]string, len(manifest.Items))
	for _, item := range manifest.Items {
		name, err := url.PathUnescape(item.Href)
		if err != nil {
			name = item.Href
		}
		hrefs[item.ID] = path.Join(path.Dir(opfPath), name)
	}

	targets := make(map[string]Chapter, len(chapters))
	for _, ch := range chapters {
		name, ok := hrefs[ch.ID]
		if !ok {
			return fmt.Errorf("chapter %q is not in the manifest", ch.ID)
		}
		if strings.TrimSpace(ch.Text) != "" {
			targets[name] = ch
		}
	}

	lang := book.Language
	if lang == "" {
		lang = "en"
	}

	zw := zip.NewWriter(w)
	if err := writeMimetype(zw); err != nil {
		return err
	}
	for _, f := range src.File {
		switch ch, translated := targets[f.Name]; {
		case f.Name == "mimetype":
			continue
		case f.Name == opfPath:
			err = writeFile(zw, f.Name, rewritePackage(opf, lang, book.Translator))
		case translated:
			err = rewriteChapter(zw, f, ch, lang)
		default:
			err = copyEntry(zw, f)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}

func readEntry(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// copyEntry copies a zip entry without recompressing it.
func copyEntry(zw *zip.Writer, f *zip.File) error {
	r, err := f.OpenRaw()
	if err != nil {
		return err
	}
	fh := f.FileHeader
	w, err := zw.CreateRaw(&fh)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

func rewritePackage(opf []byte, lang, translator string) []byte {
	var out []byte
	if loc := languageRe.FindSubmatchIndex(opf); loc != nil {
		out = append(out, opf[:loc[3]]...)
		out = append(out, escapeXML(lang)...)
		out = append(out, opf[loc[4]:]...)
	} else {
		out = insertMetadata(opf, fmt.Sprintf("<dc:language>%s</dc:language>", escapeXML(lang)))
	}
	if translator != "" {
		out = insertMetadata(out, fmt.Sprintf("<dc:contributor>%s</dc:contributor>", escapeXML(translator)))
	}
	return out
}

// insertMetadata adds element just before the closing metadata tag.
func insertMetadata(opf []byte, element string) []byte {
	loc := metadataCloseRe.FindIndex(opf)
	if loc == nil {
		return opf
	}
	out := make([]byte, 0, len(opf)+len(element)+4)
	out = append(out, opf[:loc[0]]...)
	out = append(out, "  "+element+"\n  "...)
	return append(out, opf[loc[0]:]...)
}

func rewriteChapter(zw *zip.Writer, f *zip.File, ch Chapter, lang string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	root, err := html.Parse(rc)
	rc.Close()
	if err != nil {
		return err
	}

	body := findElement(root, atom.Body)
	if body == nil {
		return fmt.Errorf("document has no body")
	}
	if el := findElement(root, atom.Html); el != nil {
		setAttr(el, "lang", lang)
		setAttr(el, "xml:lang", lang)
	}

	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		body.RemoveChild(c)
		c = next
	}
	nodes, err := html.ParseFragment(strings.NewReader(markdownToXHTML(ch.Text, ch.Title)), body)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		// The parser keeps the XML declaration as a bogus comment.
		if c.Type == html.CommentNode && strings.HasPrefix(c.Data, "?xml") {
			continue
		}
		if err := html.Render(&buf, c); err != nil {
			return err
		}
		buf.WriteByte('\n')
	}
	return writeFile(zw, f.Name, buf.Bytes())
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
