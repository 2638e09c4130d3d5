package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/net/html"

	"github.com/yuanying/txt2epub/internal/converter"
)

var ErrEmptyReadingOrder = errors.New("empty reading order: nothing to write")

// Config holds document metadata and rendering options for the PDF writer.
type Config struct {
	Title   string
	Creator string
	// FontPath names a TTF file registered for body text. The built-in core
	// fonts cover Latin text only, so CJK sources need a font file here.
	FontPath string
}

type page struct {
	id     string
	title  string
	markup string
}

type asset struct {
	mediaType string
	data      []byte
}

type bookmark struct {
	title string
	level int
}

// Writer assembles a PDF document from the page and asset stream of a
// conversion run. It implements converter.PackageBuilder; each page of the
// reading order becomes one or more PDF pages.
type Writer struct {
	cfg       Config
	pages     []page
	pageIX    map[string]int
	assets    map[string]asset
	spine     []string
	bookmarks map[string]bookmark
	cover     *asset
}

var _ converter.PackageBuilder = (*Writer)(nil)

// NewWriter creates a PDF writer.
func NewWriter(cfg Config) *Writer {
	if cfg.Title == "" {
		cfg.Title = "Untitled"
	}
	return &Writer{
		cfg:    cfg,
		pageIX: make(map[string]int),
		assets: make(map[string]asset),
	}
}

// AddImage stores an image for later placement wherever a page references it.
func (w *Writer) AddImage(path, mediaType string, data []byte) error {
	if _, ok := w.assets[path]; ok {
		return fmt.Errorf("duplicate image path %q", path)
	}
	w.assets[path] = asset{mediaType: mediaType, data: data}
	return nil
}

// AddPage adds one XHTML content document.
func (w *Writer) AddPage(id, title, markup string) error {
	if _, ok := w.pageIX[id]; ok {
		return fmt.Errorf("duplicate page id %q", id)
	}
	w.pageIX[id] = len(w.pages)
	w.pages = append(w.pages, page{id: id, title: title, markup: markup})
	return nil
}

// SetReadingOrder defines the page sequence of the document.
func (w *Writer) SetReadingOrder(ids []string) error {
	for _, id := range ids {
		if _, ok := w.pageIX[id]; !ok {
			return fmt.Errorf("reading order references unknown page %q", id)
		}
	}
	w.spine = ids
	return nil
}

// SetNavigation flattens the navigation tree into PDF outline bookmarks.
func (w *Writer) SetNavigation(points []converter.NavPoint) error {
	marks := make(map[string]bookmark)
	var walk func(points []converter.NavPoint, level int) error
	walk = func(points []converter.NavPoint, level int) error {
		for _, p := range points {
			if _, ok := w.pageIX[p.PageID]; !ok {
				return fmt.Errorf("navigation references unknown page %q", p.PageID)
			}
			if _, exists := marks[p.PageID]; !exists {
				marks[p.PageID] = bookmark{title: p.Title, level: level}
			}
			if err := walk(p.Children, level+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(points, 0); err != nil {
		return err
	}
	w.bookmarks = marks
	return nil
}

// SetCover designates the cover image, rendered as the first page.
func (w *Writer) SetCover(name, mediaType string, data []byte) error {
	w.cover = &asset{mediaType: mediaType, data: data}
	return nil
}

// WriteTo renders the document and writes it to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	if len(w.spine) == 0 {
		return 0, ErrEmptyReadingOrder
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(w.cfg.Title, true)
	if w.cfg.Creator != "" {
		doc.SetAuthor(w.cfg.Creator, true)
	}
	doc.SetMargins(20, 20, 20)
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Arial", "I", 8)
		doc.CellFormat(0, 10, fmt.Sprintf("Page %d", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	r := &renderer{doc: doc, assets: w.assets, headingFont: "Arial", textFont: "Times"}
	if w.cfg.FontPath != "" {
		doc.AddUTF8Font("custom", "", w.cfg.FontPath)
		doc.AddUTF8Font("custom", "B", w.cfg.FontPath)
		r.headingFont = "custom"
		r.textFont = "custom"
	}

	if w.cover != nil {
		doc.AddPage()
		r.drawImage("__cover__", *w.cover)
	}

	for _, id := range w.spine {
		p := w.pages[w.pageIX[id]]
		doc.AddPage()
		if bm, ok := w.bookmarks[id]; ok {
			doc.Bookmark(bm.title, bm.level, -1)
		}
		node, err := html.Parse(strings.NewReader(p.markup))
		if err != nil {
			return 0, fmt.Errorf("failed to parse page %s: %w", p.id, err)
		}
		r.render(node)
	}

	if doc.Err() {
		return 0, fmt.Errorf("failed to render pdf: %w", doc.Error())
	}

	cw := &countingWriter{w: out}
	if err := doc.Output(cw); err != nil {
		return cw.n, fmt.Errorf("failed to write pdf: %w", err)
	}
	return cw.n, nil
}

// WriteFile renders the document to path.
func (w *Writer) WriteFile(path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := w.WriteTo(f)
	if err != nil {
		f.Close()
		return n, err
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return n, nil
}

// renderer walks parsed XHTML and emits gofpdf drawing calls.
type renderer struct {
	doc         *gofpdf.Fpdf
	assets      map[string]asset
	headingFont string
	textFont    string
}

func (r *renderer) render(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			r.doc.Write(5, text)
		}
	case html.ElementNode:
		switch n.Data {
		case "head":
			return
		case "h1":
			r.doc.SetFont(r.headingFont, "B", 24)
			r.renderChildren(n)
			r.doc.Ln(20)
		case "h2":
			r.doc.Ln(10)
			r.doc.SetFont(r.headingFont, "B", 18)
			r.renderChildren(n)
			r.doc.Ln(8)
		case "p":
			r.doc.SetFont(r.textFont, "", 12)
			r.renderChildren(n)
			r.doc.Ln(8)
		case "br":
			r.doc.Ln(5)
		case "img":
			r.renderImage(n)
		default:
			r.renderChildren(n)
		}
	default:
		r.renderChildren(n)
	}
}

func (r *renderer) renderChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.render(c)
	}
}

func (r *renderer) renderImage(n *html.Node) {
	src := getAttr(n, "src")
	if src == "" {
		return
	}
	a, ok := r.assets[src]
	if !ok {
		return
	}
	r.doc.Ln(3)
	r.drawImage(src, a)
	r.doc.Ln(3)
}

// drawImage registers the image under name and places it at the current
// position, scaled down to the content box and centered horizontally.
func (r *renderer) drawImage(name string, a asset) {
	opts := gofpdf.ImageOptions{ImageType: imageType(a.mediaType)}
	info := r.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(a.data))
	if info == nil || r.doc.Err() {
		return
	}

	pageW, pageH := r.doc.GetPageSize()
	left, top, right, bottom := r.doc.GetMargins()
	maxW := pageW - left - right
	maxH := pageH - top - bottom

	wd, ht := info.Extent()
	if wd <= 0 || ht <= 0 {
		return
	}
	if wd > maxW {
		ht = ht * maxW / wd
		wd = maxW
	}
	if ht > maxH {
		wd = wd * maxH / ht
		ht = maxH
	}

	x := left + (maxW-wd)/2
	r.doc.ImageOptions(name, x, 0, wd, ht, true, opts, 0, "")
}

// imageType maps a MIME media type to the format names gofpdf knows.
func imageType(mediaType string) string {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return "JPEG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
