package converter

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const xhtmlHeader = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<!DOCTYPE html>\n"

const pageTemplate = `<html xmlns="http://www.w3.org/1999/xhtml"><head><title></title></head><body></body></html>`

// PageBuilder synthesizes the XHTML content pages of the package.
type PageBuilder struct{}

// NewPageBuilder creates a new PageBuilder instance.
func NewPageBuilder() *PageBuilder {
	return &PageBuilder{}
}

// ChapterPage builds a page with the chapter title as a heading and the body
// as one paragraph, each internal newline rendered as an explicit line break.
// Image references injected by placeholder substitution pass through as
// markup.
func (b *PageBuilder) ChapterPage(ch Chapter) (string, error) {
	var frag strings.Builder
	fmt.Fprintf(&frag, "<h1>%s</h1>", html.EscapeString(ch.Title))
	frag.WriteString("<p>")
	frag.WriteString(strings.ReplaceAll(ch.Body, "\n", "<br/>"))
	frag.WriteString("</p>")

	return b.renderPage(ch.Title, frag.String())
}

// FrontImagePage builds a full-page display of a single front-matter image.
// index is the 1-based position of the image in the front-matter sequence.
func (b *PageBuilder) FrontImagePage(filename string, index int) (string, error) {
	title := fmt.Sprintf("Front Image %d", index)
	frag := fmt.Sprintf(`<img src="front_images/%s" alt="%s" style="max-width: 100%%; height: auto;"/>`,
		html.EscapeString(filename), html.EscapeString(title))

	return b.renderPage(title, frag)
}

// renderPage parses the body fragment into a page skeleton and serializes the
// result. Running raw novel text through the parser normalizes stray angle
// brackets and bare ampersands into well-formed markup.
func (b *PageBuilder) renderPage(title, bodyFragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageTemplate))
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	doc.Find("title").SetText(title)
	doc.Find("body").AppendHtml(bodyFragment)

	page, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}

	return xhtmlHeader + page, nil
}
