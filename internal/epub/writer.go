package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/yuanying/txt2epub/internal/converter"
)

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

var ErrEmptyReadingOrder = errors.New("empty reading order: nothing to write")

// Config holds package metadata for the EPUB writer.
type Config struct {
	Title        string
	Creator      string
	Language     string
	Identifier   string
	CreationTime time.Time // dcterms:modified; zero means time of writing
}

// Writer assembles an EPUB 3 package in memory. It implements
// converter.PackageBuilder; nothing touches the filesystem until WriteFile.
type Writer struct {
	cfg    Config
	pages  []Page
	pageIX map[string]int
	assets []Asset
	spine  []string
	nav    []converter.NavPoint
	cover  *Asset
}

var _ converter.PackageBuilder = (*Writer)(nil)

// NewWriter creates an EPUB writer. Missing metadata falls back to defaults;
// a fresh UUID serves as identifier when none is given.
func NewWriter(cfg Config) *Writer {
	if cfg.Title == "" {
		cfg.Title = "Untitled"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Identifier == "" {
		cfg.Identifier = "urn:uuid:" + uuid.NewString()
	}
	return &Writer{cfg: cfg, pageIX: make(map[string]int)}
}

// AddImage embeds an image asset at the given path under the content root.
func (w *Writer) AddImage(path, mediaType string, data []byte) error {
	for _, a := range w.assets {
		if a.Path == path {
			return fmt.Errorf("duplicate image path %q", path)
		}
	}
	w.assets = append(w.assets, Asset{Path: path, MediaType: mediaType, Data: data})
	return nil
}

// AddPage adds one XHTML content document. The id becomes the manifest id
// and the document is stored as <id>.xhtml.
func (w *Writer) AddPage(id, title, markup string) error {
	if _, ok := w.pageIX[id]; ok {
		return fmt.Errorf("duplicate page id %q", id)
	}
	w.pageIX[id] = len(w.pages)
	w.pages = append(w.pages, Page{ID: id, Title: title, Markup: markup})
	return nil
}

// SetReadingOrder defines the spine. Every id must name an added page.
func (w *Writer) SetReadingOrder(ids []string) error {
	for _, id := range ids {
		if _, ok := w.pageIX[id]; !ok {
			return fmt.Errorf("reading order references unknown page %q", id)
		}
	}
	w.spine = ids
	return nil
}

// SetNavigation defines the table of contents. Every entry must point at an
// added page.
func (w *Writer) SetNavigation(points []converter.NavPoint) error {
	if err := w.checkNavTargets(points); err != nil {
		return err
	}
	w.nav = points
	return nil
}

func (w *Writer) checkNavTargets(points []converter.NavPoint) error {
	for _, p := range points {
		if _, ok := w.pageIX[p.PageID]; !ok {
			return fmt.Errorf("navigation references unknown page %q", p.PageID)
		}
		if err := w.checkNavTargets(p.Children); err != nil {
			return err
		}
	}
	return nil
}

// SetCover designates the cover image. The image is stored under the content
// root by name and gets a standalone cover document.
func (w *Writer) SetCover(name, mediaType string, data []byte) error {
	w.cover = &Asset{Path: name, MediaType: mediaType, Data: data}
	return nil
}

// WriteTo writes the assembled package to out and returns the byte count.
// The mimetype entry comes first and is stored uncompressed, as the OCF
// container format requires.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	if len(w.spine) == 0 {
		return 0, ErrEmptyReadingOrder
	}

	opf, err := w.buildOPF()
	if err != nil {
		return 0, fmt.Errorf("failed to build package document: %w", err)
	}
	ncx, err := w.buildNCX()
	if err != nil {
		return 0, fmt.Errorf("failed to build NCX: %w", err)
	}

	cw := &countingWriter{w: out}
	zw := zip.NewWriter(cw)

	mh := &zip.FileHeader{Name: "mimetype", Method: zip.Store}
	mf, err := zw.CreateHeader(mh)
	if err != nil {
		return cw.n, fmt.Errorf("failed to create mimetype entry: %w", err)
	}
	if _, err := mf.Write([]byte(MediaTypeEPUB)); err != nil {
		return cw.n, fmt.Errorf("failed to write mimetype entry: %w", err)
	}

	entries := []zipEntry{
		{"META-INF/container.xml", []byte(containerXML)},
		{"OEBPS/content.opf", opf},
		{"OEBPS/toc.ncx", ncx},
		{"OEBPS/nav.xhtml", []byte(w.buildNavDoc())},
	}
	if w.cover != nil {
		entries = append(entries,
			zipEntry{"OEBPS/cover.xhtml", []byte(buildCoverPage(w.cover.Path))},
			zipEntry{"OEBPS/" + w.cover.Path, w.cover.Data},
		)
	}
	for _, p := range w.pages {
		entries = append(entries, zipEntry{"OEBPS/" + p.ID + ".xhtml", []byte(p.Markup)})
	}
	for _, a := range w.assets {
		entries = append(entries, zipEntry{"OEBPS/" + a.Path, a.Data})
	}

	for _, e := range entries {
		f, err := zw.Create(e.name)
		if err != nil {
			return cw.n, fmt.Errorf("failed to create zip entry %s: %w", e.name, err)
		}
		if _, err := f.Write(e.data); err != nil {
			return cw.n, fmt.Errorf("failed to write zip entry %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return cw.n, nil
}

// WriteFile writes the assembled package to path.
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

type zipEntry struct {
	name string
	data []byte
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
