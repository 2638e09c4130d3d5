// Test program for source discovery and chapter segmentation
//
// Usage:
//   go run ./cmd/test/segmenter/main.go <project-dir>
//
// This program:
// 1. Discovers the source text, cover image, and image directories
// 2. Replaces illustration placeholders with <img> references
// 3. Splits the text into a preface and chapters
// 4. Displays the resulting page structure
//
// Verification points:
// - ✓ Source text and cover image are discovered
// - ✓ Placeholder markers are paired with images in filename order
// - ✓ Chapter headings match the expected pattern
// - ✓ The text before the first heading becomes the preface

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"

	"github.com/yuanying/txt2epub/internal/converter"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <project-dir>\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}

	dir := os.Args[1]

	fmt.Printf("=== Source Discovery and Segmentation Test ===\n")
	fmt.Printf("Project directory: %s\n\n", dir)

	// Discover project resources
	texts, err := converter.ListSourceTexts(dir)
	if err != nil {
		log.Fatalf("Failed to list source texts: %v", err)
	}
	if len(texts) == 0 {
		log.Fatalf("No .txt source found in %s", dir)
	}
	fmt.Printf("✓ Source text: %s\n", texts[0])
	if len(texts) > 1 {
		fmt.Printf("⚠ Multiple source texts found (%d), using first\n", len(texts))
	}

	cover, err := converter.DetectCoverImage(dir)
	if err != nil {
		fmt.Printf("✗ No cover image: %v\n", err)
	} else {
		fmt.Printf("✓ Cover image: %s\n", cover)
	}

	images, err := converter.ListImages(filepath.Join(dir, converter.DefaultPlaceholderDir))
	if err != nil {
		log.Fatalf("Failed to list placeholder images: %v", err)
	}
	fmt.Printf("Placeholder images: %d\n", len(images))
	for _, name := range images {
		fmt.Printf("  - %s\n", name)
	}

	front, err := converter.ListImages(filepath.Join(dir, converter.DefaultFrontImageDir))
	if err != nil {
		log.Fatalf("Failed to list front images: %v", err)
	}
	fmt.Printf("Front images: %d\n\n", len(front))

	// Replace placeholders
	fmt.Println("=== Placeholder Substitution ===")

	raw, err := os.ReadFile(texts[0])
	if err != nil {
		log.Fatalf("Failed to read source text: %v", err)
	}

	placeholderRe := regexp.MustCompile(converter.DefaultPlaceholderPattern)

	text, used := converter.ReplacePlaceholders(string(raw), placeholderRe, images)
	for i, name := range used {
		fmt.Printf("[%d] ✓ marker -> %s\n", i+1, name)
	}
	remaining := len(placeholderRe.FindAllStringIndex(text, -1))
	if remaining > 0 {
		fmt.Printf("⚠ %d marker(s) left without an image\n", remaining)
	}
	if surplus := len(images) - len(used); surplus > 0 {
		fmt.Printf("⚠ %d image(s) left without a marker\n", surplus)
	}
	fmt.Println()

	// Split chapters
	fmt.Println("=== Chapter Segmentation ===")

	chapterRe := regexp.MustCompile(converter.DefaultChapterPattern)
	chapters := converter.SplitChapters(text, chapterRe, converter.DefaultPrefaceTitle)

	for _, ch := range chapters {
		fmt.Printf("[%d] %s\n", ch.Index+1, ch.Title)
		fmt.Printf("    Body length: %d characters\n", len(ch.Body))
	}
	fmt.Println()

	// Summary
	fmt.Println("=== Summary ===")
	fmt.Printf("Chapters (including preface): %d\n", len(chapters))
	fmt.Printf("Placeholders replaced: %d/%d\n", len(used), len(used)+remaining)
	fmt.Printf("Front-matter pages: %d\n", len(front))
}
