package epub

import (
	"encoding/xml"
	"fmt"
	"time"
)

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"
)

// opfPackage is the marshal shape of the OPF package document. encoding/xml
// cannot emit namespace prefixes from namespace-qualified tags, so the dc:
// prefix is declared as a literal xmlns:dc attribute and used verbatim in the
// element names below.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Xmlns    string      `xml:"xmlns,attr"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
	Guide    *opfGuide   `xml:"guide,omitempty"`
}

type opfMetadata struct {
	XmlnsDC    string        `xml:"xmlns:dc,attr"`
	Identifier opfIdentifier `xml:"dc:identifier"`
	Title      string        `xml:"dc:title"`
	Language   string        `xml:"dc:language"`
	Creator    *opfCreator   `xml:"dc:creator,omitempty"`
	Meta       []opfMeta     `xml:"meta"`
}

type opfIdentifier struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type opfCreator struct {
	Value string `xml:",chardata"`
}

// opfMeta covers both meta forms: EPUB 2 name/content pairs and EPUB 3
// property elements with text content.
type opfMeta struct {
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Property string `xml:"property,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

type opfGuide struct {
	References []opfReference `xml:"reference"`
}

type opfReference struct {
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

// buildOPF renders the package document from the writer's assembled state.
func (w *Writer) buildOPF() ([]byte, error) {
	modified := w.cfg.CreationTime
	if modified.IsZero() {
		modified = time.Now()
	}

	pkg := opfPackage{
		Xmlns:    opfNamespace,
		Version:  "3.0",
		UniqueID: "uid",
		Metadata: opfMetadata{
			XmlnsDC:    dcNamespace,
			Identifier: opfIdentifier{ID: "uid", Value: w.cfg.Identifier},
			Title:      w.cfg.Title,
			Language:   w.cfg.Language,
			Meta: []opfMeta{
				{Property: "dcterms:modified", Value: modified.UTC().Format("2006-01-02T15:04:05Z")},
			},
		},
		Spine: opfSpine{Toc: "ncx"},
	}
	if w.cfg.Creator != "" {
		pkg.Metadata.Creator = &opfCreator{Value: w.cfg.Creator}
	}

	pkg.Manifest.Items = append(pkg.Manifest.Items,
		opfManifestItem{ID: "ncx", Href: "toc.ncx", MediaType: MediaTypeNCX},
		opfManifestItem{ID: "nav", Href: "nav.xhtml", MediaType: MediaTypeXHTML, Properties: "nav"},
	)

	if w.cover != nil {
		pkg.Metadata.Meta = append(pkg.Metadata.Meta, opfMeta{Name: "cover", Content: "cover-img"})
		pkg.Manifest.Items = append(pkg.Manifest.Items,
			opfManifestItem{ID: "cover-img", Href: w.cover.Path, MediaType: w.cover.MediaType, Properties: "cover-image"},
			opfManifestItem{ID: "cover", Href: "cover.xhtml", MediaType: MediaTypeXHTML},
		)
		pkg.Guide = &opfGuide{References: []opfReference{
			{Type: "cover", Title: "Cover", Href: "cover.xhtml"},
		}}
	}

	for _, p := range w.pages {
		pkg.Manifest.Items = append(pkg.Manifest.Items, opfManifestItem{
			ID:        p.ID,
			Href:      p.ID + ".xhtml",
			MediaType: MediaTypeXHTML,
		})
	}
	for i, a := range w.assets {
		pkg.Manifest.Items = append(pkg.Manifest.Items, opfManifestItem{
			ID:        fmt.Sprintf("img_%d", i+1),
			Href:      a.Path,
			MediaType: a.MediaType,
		})
	}

	for _, id := range w.spine {
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: id})
	}

	return marshalXML(pkg)
}

// marshalXML renders v as an indented XML document with declaration.
func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
