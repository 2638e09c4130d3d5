package converter

// PackageBuilder assembles an e-book package in memory and serializes it to a
// file. The pipeline drives a builder through this interface only; the caller
// chooses the concrete output format.
type PackageBuilder interface {
	// AddImage embeds an image asset at the given package-internal path.
	AddImage(path, mediaType string, data []byte) error
	// AddPage registers a content page. The markup must be a complete
	// XHTML document.
	AddPage(id, title, markup string) error
	// SetReadingOrder defines the linear reading sequence as page IDs.
	SetReadingOrder(ids []string) error
	// SetCover designates the package cover image.
	SetCover(name, mediaType string, data []byte) error
	// SetNavigation attaches the table-of-contents tree.
	SetNavigation(points []NavPoint) error
	// WriteFile serializes the package to path and reports bytes written.
	// Nothing is written to disk before this call.
	WriteFile(path string) (int64, error)
}

// NavPoint is a single entry in the navigation tree.
type NavPoint struct {
	ID       string
	Title    string
	PageID   string
	Children []NavPoint
}
