package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	epublib "github.com/simp-lee/epub"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture %s: %v", path, err)
	}
}

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mustEncodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func mustEncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// writeProject lays out a complete conversion project: source text with one
// illustration marker and two chapter headings, a cover, one placeholder
// image, and one front-matter image.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	novel := "紹介\n插圖\n続き\n\n第一章　始動\n\n本文1\n\n第二章　決戦\n\n本文2"
	writeFile(t, filepath.Join(dir, "novel.txt"), []byte(novel))
	writeFile(t, filepath.Join(dir, "cover.jpg"),
		mustEncodeJPEG(t, makeSolidNRGBA(40, 60, color.NRGBA{R: 220, A: 255})))

	for _, sub := range []string{"images", "front_images"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", sub, err)
		}
	}
	writeFile(t, filepath.Join(dir, "images", "01.jpg"),
		mustEncodeJPEG(t, makeSolidNRGBA(30, 20, color.NRGBA{G: 180, A: 255})))
	writeFile(t, filepath.Join(dir, "front_images", "front.png"),
		mustEncodePNG(t, makeSolidNRGBA(20, 30, color.NRGBA{B: 180, A: 255})))

	return dir
}

func readCLIOptionsForTest(t *testing.T, dir string, flagArgs ...string) (*cliOptions, error) {
	t.Helper()
	cmd := newRootCmd()
	if err := cmd.ParseFlags(flagArgs); err != nil {
		return nil, err
	}
	return readCLIOptions(cmd, []string{dir})
}

func TestReadCLIOptions_Defaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "novel.txt"), []byte("text"))

	opts, err := readCLIOptionsForTest(t, dir)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	if opts.format != "epub" {
		t.Errorf("format = %q, want %q", opts.format, "epub")
	}
	if want := filepath.Join(dir, "novel.epub"); opts.OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", opts.OutputPath, want)
	}
	if opts.title != "novel" {
		t.Errorf("title = %q, want %q", opts.title, "novel")
	}
	if opts.language != "en" {
		t.Errorf("language = %q, want %q", opts.language, "en")
	}
	if opts.JPEGQuality != defaultJPEGQuality {
		t.Errorf("JPEGQuality = %d, want %d", opts.JPEGQuality, defaultJPEGQuality)
	}
	if opts.MaxImageWidth != defaultMaxImageWidth {
		t.Errorf("MaxImageWidth = %d, want %d", opts.MaxImageWidth, defaultMaxImageWidth)
	}
	if opts.OptimizeImages {
		t.Error("OptimizeImages = true, want false")
	}
	if opts.PlaceholderDir != "images" {
		t.Errorf("PlaceholderDir = %q, want %q", opts.PlaceholderDir, "images")
	}
	if opts.PrefaceTitle != "Preface" {
		t.Errorf("PrefaceTitle = %q, want %q", opts.PrefaceTitle, "Preface")
	}
	if opts.Logger == nil {
		t.Fatal("Logger is nil, want non-nil")
	}
	if !opts.Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Logger should be enabled at INFO level by default")
	}
	if opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger should not be enabled at DEBUG level by default")
	}
}

func TestReadCLIOptions_CustomFlags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "novel.txt"), []byte("text"))

	opts, err := readCLIOptionsForTest(t, dir,
		"--output", "./out/custom.pdf",
		"--format", "pdf",
		"--title", "砂の星",
		"--author", "山田太郎",
		"--language", "ja",
		"--optimize-images",
		"--quality", "90",
		"--max-image-width", "720",
		"--pdf-font", "./fonts/noto.ttf",
		"--log-level", "warn",
		"--verbose",
	)
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	if opts.OutputPath != "./out/custom.pdf" {
		t.Errorf("OutputPath = %q", opts.OutputPath)
	}
	if opts.format != "pdf" {
		t.Errorf("format = %q, want %q", opts.format, "pdf")
	}
	if opts.title != "砂の星" {
		t.Errorf("title = %q", opts.title)
	}
	if opts.author != "山田太郎" {
		t.Errorf("author = %q", opts.author)
	}
	if opts.language != "ja" {
		t.Errorf("language = %q", opts.language)
	}
	if !opts.OptimizeImages {
		t.Error("OptimizeImages = false, want true")
	}
	if opts.JPEGQuality != 90 {
		t.Errorf("JPEGQuality = %d, want 90", opts.JPEGQuality)
	}
	if opts.MaxImageWidth != 720 {
		t.Errorf("MaxImageWidth = %d, want 720", opts.MaxImageWidth)
	}
	if opts.fontPath != "./fonts/noto.ttf" {
		t.Errorf("fontPath = %q", opts.fontPath)
	}
	// --verbose overrides log-level to debug
	if !opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger should be enabled at DEBUG level when --verbose is set")
	}
}

func TestReadCLIOptions_ConfigMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "novel.txt"), []byte("text"))
	writeFile(t, filepath.Join(dir, "txt2epub.yaml"), []byte(`source: novel.txt
prefaceTitle: 序文
metadata:
  title: 設定の題
  author: 設定の著者
  language: ja
images:
  optimize: true
  maxWidth: 480
  jpegQuality: 70
`))

	opts, err := readCLIOptionsForTest(t, dir, "--title", "旗の題")
	if err != nil {
		t.Fatalf("readCLIOptions() error = %v", err)
	}

	if want := filepath.Join(dir, "novel.txt"); opts.SourcePath != want {
		t.Errorf("SourcePath = %q, want %q", opts.SourcePath, want)
	}
	// Flags win over config.
	if opts.title != "旗の題" {
		t.Errorf("title = %q, want flag override", opts.title)
	}
	if opts.author != "設定の著者" {
		t.Errorf("author = %q, want config value", opts.author)
	}
	if opts.language != "ja" {
		t.Errorf("language = %q, want config value", opts.language)
	}
	if opts.PrefaceTitle != "序文" {
		t.Errorf("PrefaceTitle = %q, want config value", opts.PrefaceTitle)
	}
	if !opts.OptimizeImages {
		t.Error("OptimizeImages = false, want config value true")
	}
	if opts.MaxImageWidth != 480 {
		t.Errorf("MaxImageWidth = %d, want config value 480", opts.MaxImageWidth)
	}
	if opts.JPEGQuality != 70 {
		t.Errorf("JPEGQuality = %d, want config value 70", opts.JPEGQuality)
	}
}

func TestReadCLIOptions_InvalidFormat(t *testing.T) {
	_, err := readCLIOptionsForTest(t, ".", "--format", "azw3")
	if err == nil || !strings.Contains(err.Error(), "--format") {
		t.Fatalf("expected format validation error, got %v", err)
	}
}

func TestReadCLIOptions_InvalidQuality(t *testing.T) {
	_, err := readCLIOptionsForTest(t, ".", "--quality", "59")
	if err == nil || !strings.Contains(err.Error(), "--quality") {
		t.Fatalf("expected quality validation error, got %v", err)
	}

	_, err = readCLIOptionsForTest(t, ".", "--quality", "101")
	if err == nil || !strings.Contains(err.Error(), "--quality") {
		t.Fatalf("expected quality validation error, got %v", err)
	}
}

func TestReadCLIOptions_InvalidMaxImageWidth(t *testing.T) {
	_, err := readCLIOptionsForTest(t, ".", "--max-image-width", "0")
	if err == nil || !strings.Contains(err.Error(), "--max-image-width") {
		t.Fatalf("expected max-image-width validation error, got %v", err)
	}
}

func TestReadCLIOptions_InvalidLogLevel(t *testing.T) {
	_, err := readCLIOptionsForTest(t, ".", "--log-level", "trace")
	if err == nil || !strings.Contains(err.Error(), "--log-level") {
		t.Fatalf("expected log-level validation error, got %v", err)
	}
}

func TestReadCLIOptions_InvalidLogFormat(t *testing.T) {
	_, err := readCLIOptionsForTest(t, ".", "--log-format", "yaml")
	if err == nil || !strings.Contains(err.Error(), "--log-format") {
		t.Fatalf("expected log-format validation error, got %v", err)
	}
}

func TestBuildLogger_FormatNormalization(t *testing.T) {
	var buf bytes.Buffer
	logger := buildLogger(&buf, "info", "JSON")
	logger.Info("test message")
	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Fatalf("expected JSON output for format 'JSON', got: %s", output)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	got := defaultOutputPath("./books/sample.txt", "epub")
	if got != "./books/sample.epub" {
		t.Fatalf("defaultOutputPath() = %q", got)
	}
}

func TestDefaultOutputPath_PDF(t *testing.T) {
	got := defaultOutputPath("./books/sample.txt", "pdf")
	if got != "./books/sample.pdf" {
		t.Fatalf("defaultOutputPath() = %q", got)
	}
}

func TestRun_EPUB(t *testing.T) {
	dir := writeProject(t)
	out := filepath.Join(dir, "book.epub")

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir, "-o", out, "--title", "砂の星", "--author", "山田太郎", "--language", "ja"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	book, err := epublib.Open(out)
	if err != nil {
		t.Fatalf("epub.Open() error = %v", err)
	}
	defer book.Close()

	md := book.Metadata()
	if len(md.Titles) == 0 || md.Titles[0] != "砂の星" {
		t.Errorf("Titles = %v, want [砂の星]", md.Titles)
	}
	if len(md.Authors) == 0 || md.Authors[0].Name != "山田太郎" {
		t.Errorf("Authors = %v, want [山田太郎]", md.Authors)
	}
	if len(md.Language) == 0 || md.Language[0] != "ja" {
		t.Errorf("Language = %v, want [ja]", md.Language)
	}

	toc := book.TOC()
	if len(toc) != 3 {
		t.Fatalf("TOC has %d entries, want 3: %+v", len(toc), toc)
	}
	if toc[0].Title != "Preface" {
		t.Errorf("TOC[0].Title = %q, want %q", toc[0].Title, "Preface")
	}
	if toc[1].Title != "第一章　始動" {
		t.Errorf("TOC[1].Title = %q, want %q", toc[1].Title, "第一章　始動")
	}

	chapters := book.Chapters()
	if len(chapters) != 4 {
		t.Fatalf("book has %d spine documents, want 4 (front image + preface + 2 chapters)", len(chapters))
	}

	cover, err := book.Cover()
	if err != nil {
		t.Fatalf("Cover() error = %v", err)
	}
	if cover.Path != "OEBPS/cover.jpg" {
		t.Errorf("Cover().Path = %q, want %q", cover.Path, "OEBPS/cover.jpg")
	}

	if warnings := book.Warnings(); len(warnings) != 0 {
		t.Errorf("reader reported warnings: %v", warnings)
	}
}

func TestRun_EPUB_ConfigMetadata(t *testing.T) {
	dir := writeProject(t)
	writeFile(t, filepath.Join(dir, "txt2epub.yaml"), []byte(`prefaceTitle: 序文
metadata:
  title: 設定の題
  language: ja
`))
	out := filepath.Join(dir, "book.epub")

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir, "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	book, err := epublib.Open(out)
	if err != nil {
		t.Fatalf("epub.Open() error = %v", err)
	}
	defer book.Close()

	md := book.Metadata()
	if len(md.Titles) == 0 || md.Titles[0] != "設定の題" {
		t.Errorf("Titles = %v, want [設定の題]", md.Titles)
	}
	toc := book.TOC()
	if len(toc) == 0 || toc[0].Title != "序文" {
		t.Errorf("TOC[0] = %+v, want preface titled 序文", toc)
	}
}

func TestRun_PDF(t *testing.T) {
	dir := writeProject(t)
	out := filepath.Join(dir, "book.pdf")

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir, "-o", out, "--format", "pdf", "--title", "Sample"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("output does not start with %PDF- magic")
	}
}

func TestRun_MissingSource(t *testing.T) {
	dir := t.TempDir()

	cmd := newRootCmd()
	cmd.SetArgs([]string{dir})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute() succeeded with empty project directory, want error")
	}
}
