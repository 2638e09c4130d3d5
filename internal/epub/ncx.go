package epub

import (
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/yuanying/txt2epub/internal/converter"
)

const ncxNamespace = "http://www.daisy.org/z3986/2005/ncx/"

type ncxRoot struct {
	XMLName xml.Name  `xml:"ncx"`
	Xmlns   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Head    ncxHead   `xml:"head"`
	Title   ncxText   `xml:"docTitle"`
	NavMap  ncxNavMap `xml:"navMap"`
}

type ncxHead struct {
	Metas []ncxMeta `xml:"meta"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxText struct {
	Text string `xml:"text"`
}

type ncxNavMap struct {
	Points []ncxNavPoint `xml:"navPoint"`
}

type ncxNavPoint struct {
	ID        string        `xml:"id,attr"`
	PlayOrder int           `xml:"playOrder,attr"`
	Label     ncxText       `xml:"navLabel"`
	Content   ncxContent    `xml:"content"`
	Children  []ncxNavPoint `xml:"navPoint"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// buildNCX renders the NCX table of contents for EPUB 2 readers.
func (w *Writer) buildNCX() ([]byte, error) {
	depth := navDepth(w.nav)
	if depth == 0 {
		depth = 1
	}

	root := ncxRoot{
		Xmlns:   ncxNamespace,
		Version: "2005-1",
		Head: ncxHead{Metas: []ncxMeta{
			{Name: "dtb:uid", Content: w.cfg.Identifier},
			{Name: "dtb:depth", Content: strconv.Itoa(depth)},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
		}},
		Title: ncxText{Text: w.cfg.Title},
	}

	order := 0
	root.NavMap.Points = ncxPoints(w.nav, &order)

	return marshalXML(root)
}

func ncxPoints(points []converter.NavPoint, order *int) []ncxNavPoint {
	var out []ncxNavPoint
	for _, p := range points {
		*order++
		out = append(out, ncxNavPoint{
			ID:        p.ID,
			PlayOrder: *order,
			Label:     ncxText{Text: p.Title},
			Content:   ncxContent{Src: p.PageID + ".xhtml"},
			Children:  ncxPoints(p.Children, order),
		})
	}
	return out
}

func navDepth(points []converter.NavPoint) int {
	depth := 0
	for _, p := range points {
		if d := 1 + navDepth(p.Children); d > depth {
			depth = d
		}
	}
	return depth
}

// buildNavDoc renders the EPUB 3 navigation document.
func (w *Writer) buildNavDoc() string {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html xmlns=\"http://www.w3.org/1999/xhtml\" xmlns:epub=\"http://www.idpf.org/2007/ops\">\n")
	sb.WriteString("<head><title>" + html.EscapeString(w.cfg.Title) + "</title></head>\n")
	sb.WriteString("<body>\n")
	sb.WriteString("<nav epub:type=\"toc\" id=\"toc\">\n")
	sb.WriteString("<h1>Table of Contents</h1>\n")
	writeNavList(&sb, w.nav, 0)
	sb.WriteString("</nav>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")
	return sb.String()
}

func writeNavList(sb *strings.Builder, points []converter.NavPoint, depth int) {
	if len(points) == 0 {
		return
	}
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent + "<ol>\n")
	for _, p := range points {
		sb.WriteString(indent + "  <li>")
		sb.WriteString("<a href=\"" + p.PageID + ".xhtml\">" + html.EscapeString(p.Title) + "</a>")
		if len(p.Children) > 0 {
			sb.WriteString("\n")
			writeNavList(sb, p.Children, depth+2)
			sb.WriteString(indent + "  ")
		}
		sb.WriteString("</li>\n")
	}
	sb.WriteString(indent + "</ol>\n")
}

// buildCoverPage renders the standalone cover document pointing at coverPath.
func buildCoverPage(coverPath string) string {
	escaped := html.EscapeString(coverPath)
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Cover</title></head>
<body style="margin: 0; text-align: center;">
<img src="%s" alt="Cover" style="max-width: 100%%; max-height: 100%%;"/>
</body>
</html>
`, escaped)
}
