package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default locations of the image directories inside the project directory.
const (
	DefaultPlaceholderDir = "images"
	DefaultFrontImageDir  = "front_images"
)

// coverExtensions is the probe order for cover detection. An extension wins
// only when exactly one file with that extension exists.
var coverExtensions = []string{"jpg", "png", "jpeg"}

var (
	ErrSourceNotFound = errors.New("no .txt source file found")
	ErrCoverNotFound  = errors.New("no unambiguous cover image found")
)

// Resources holds the discovered inputs for one conversion run.
type Resources struct {
	SourcePath  string   // path to the source text file
	CoverPath   string   // path to the cover image
	Images      []string // placeholder image filenames, sorted
	FrontImages []string // front-matter image filenames, sorted
}

// ListSourceTexts returns the paths of all .txt files in dir, sorted by name.
func ListSourceTexts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var texts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".txt") {
			texts = append(texts, filepath.Join(dir, entry.Name()))
		}
	}
	return texts, nil
}

// DetectCoverImage locates the cover image in dir by probing extensions in
// preference order. An extension satisfies the probe only when exactly one
// file carries it; the first satisfying extension wins. Extension matching is
// case-sensitive. Returns ErrCoverNotFound when no extension satisfies.
func DetectCoverImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, ext := range coverExtensions {
		var matches []string
		suffix := "." + ext
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.HasSuffix(entry.Name(), suffix) {
				matches = append(matches, entry.Name())
			}
		}
		if len(matches) == 1 {
			return filepath.Join(dir, matches[0]), nil
		}
	}

	return "", ErrCoverNotFound
}

// ListImages returns the filenames of all regular files in dir, sorted
// lexicographically. A missing directory yields an empty list; a text without
// illustrations is valid input.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
