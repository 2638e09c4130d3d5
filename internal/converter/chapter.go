package converter

import (
	"regexp"
	"strings"
)

// DefaultChapterPattern matches a chapter title line flanked by blank lines,
// where the title contains a chapter or episode counter followed by an
// ideographic space.
const DefaultChapterPattern = "\n\n(.*?[章話]　.*?)\n\n"

// DefaultPrefaceTitle is the title of the synthetic zeroth chapter.
const DefaultPrefaceTitle = "Preface"

// Chapter is one contiguous segment of the source text.
type Chapter struct {
	Title string
	Body  string
	Index int
}

// SplitChapters partitions text into a preface plus one chapter per pattern
// match, in source order. The preface carries prefaceTitle and index 0 and
// always exists, possibly with an empty body. Each chapter's title is the
// pattern's first capture group (the full match when the pattern has no
// group) and its body runs from the end of its title match to the start of
// the next, both trimmed of surrounding whitespace.
//
// The function is pure: identical inputs yield identical chapter lists.
func SplitChapters(text string, pattern *regexp.Regexp, prefaceTitle string) []Chapter {
	matches := pattern.FindAllStringSubmatchIndex(text, -1)

	chapters := make([]Chapter, 0, len(matches)+1)

	prefaceEnd := len(text)
	if len(matches) > 0 {
		prefaceEnd = matches[0][0]
	}
	chapters = append(chapters, Chapter{
		Title: prefaceTitle,
		Body:  strings.TrimSpace(text[:prefaceEnd]),
		Index: 0,
	})

	for i, m := range matches {
		title := text[m[0]:m[1]]
		if len(m) >= 4 && m[2] >= 0 {
			title = text[m[2]:m[3]]
		}

		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}

		chapters = append(chapters, Chapter{
			Title: strings.TrimSpace(title),
			Body:  strings.TrimSpace(text[m[1]:bodyEnd]),
			Index: i + 1,
		})
	}

	return chapters
}
