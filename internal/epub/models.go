package epub

// Media types used in the package manifest.
const (
	MediaTypeEPUB  = "application/epub+zip"
	MediaTypeXHTML = "application/xhtml+xml"
	MediaTypeNCX   = "application/x-dtbncx+xml"
	MediaTypeJPEG  = "image/jpeg"
	MediaTypePNG   = "image/png"
	MediaTypeGIF   = "image/gif"
)

// Page represents one XHTML content document of the package.
type Page struct {
	ID     string // manifest id; the document is stored as <ID>.xhtml
	Title  string
	Markup string // complete XHTML document
}

// Asset represents a binary resource embedded in the package.
type Asset struct {
	Path      string // path relative to the content root, e.g. images/01.jpg
	MediaType string
	Data      []byte
}
