package converter

import (
	"fmt"
	"html"
	"regexp"
)

// DefaultPlaceholderPattern matches an illustration marker line isolated by
// line breaks. The marker token may be wrapped in fullwidth brackets.
const DefaultPlaceholderPattern = "\n(（?插圖）?)\n"

// imageReference builds the inline markup substituted for a marker. The
// flanking newlines of the matched marker line are re-emitted so the
// reference stays isolated on its own line.
func imageReference(name string) string {
	escaped := html.EscapeString(name)
	return fmt.Sprintf("\n<img src=\"images/%s\" alt=\"%s\"/>\n", escaped, escaped)
}

// ReplacePlaceholders rewrites placeholder markers in text into image
// references, pairing markers in document order against images in the given
// order. The rewrite is sequential: each replacement scans from the start of
// the text for the first remaining marker and splices in a reference to the
// next unused image. The spliced reference restores the flanking line
// breaks, so a marker that shared a break with the replaced one is found by
// the following scan; no marker is skipped. Replacement stops when either
// the images or the markers run out, each image consumed at most once and
// surplus markers left as literal text. Returns the rewritten text and the
// image names consumed, in order.
func ReplacePlaceholders(text string, pattern *regexp.Regexp, images []string) (string, []string) {
	var used []string
	for _, name := range images {
		m := pattern.FindStringIndex(text)
		if m == nil {
			break
		}
		text = text[:m[0]] + imageReference(name) + text[m[1]:]
		used = append(used, name)
	}
	return text, used
}
