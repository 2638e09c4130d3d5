package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuanying/txt2epub/internal/config"
	"github.com/yuanying/txt2epub/internal/converter"
	"github.com/yuanying/txt2epub/internal/epub"
	"github.com/yuanying/txt2epub/internal/pdf"
)

const (
	defaultJPEGQuality   = 85
	defaultMaxImageWidth = 600
)

// cliOptions carries the resolved pipeline options plus the cmd-level
// choices that select and configure the package builder.
type cliOptions struct {
	converter.Options

	format     string
	title      string
	author     string
	language   string
	identifier string
	fontPath   string
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "txt2epub [dir]",
		Short: "Package a plain text novel into an EPUB or PDF e-book",
		Long: `txt2epub packages a plain text novel and its illustrations into an
EPUB 3 e-book, or with --format pdf into a print-oriented PDF.

Run it against a project directory holding the novel as a .txt file, an
optional cover image, and optional images/ and front_images/ directories.
Illustration markers in the text are replaced with the images in filename
order, and chapter headings split the text into one page per chapter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			return run(opts)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default: source name with format extension)")
	cmd.Flags().String("format", "epub", "Output format: epub or pdf")
	cmd.Flags().StringP("config", "c", "", "Config file path (default: txt2epub.yaml in the project directory)")
	cmd.Flags().String("title", "", "Book title (default: source file name)")
	cmd.Flags().String("author", "", "Book author")
	cmd.Flags().String("language", "", "Book language tag")
	cmd.Flags().Bool("optimize-images", false, "Resize and recompress images for e-reader screens")
	cmd.Flags().Int("quality", defaultJPEGQuality, "JPEG quality for optimized images (60-100)")
	cmd.Flags().Int("max-image-width", defaultMaxImageWidth, "Maximum image width in pixels when optimizing")
	cmd.Flags().String("pdf-font", "", "TTF font file for PDF text (required for CJK sources)")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "text", "Log format: text or json")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	return cmd
}

// readCLIOptions validates the flags and merges them with the project config.
// Flags win over config values; config values win over built-in defaults.
func readCLIOptions(cmd *cobra.Command, args []string) (*cliOptions, error) {
	flags := cmd.Flags()

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	format, _ := flags.GetString("format")
	if format != "epub" && format != "pdf" {
		return nil, fmt.Errorf("--format must be %q or %q, got %q", "epub", "pdf", format)
	}

	quality, _ := flags.GetInt("quality")
	if quality < 60 || quality > 100 {
		return nil, fmt.Errorf("--quality must be between 60 and 100, got %d", quality)
	}

	maxWidth, _ := flags.GetInt("max-image-width")
	if maxWidth < 1 {
		return nil, fmt.Errorf("--max-image-width must be positive, got %d", maxWidth)
	}

	logLevel, _ := flags.GetString("log-level")
	switch strings.ToLower(logLevel) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("--log-level must be one of debug, info, warn, error, got %q", logLevel)
	}

	logFormat, _ := flags.GetString("log-format")
	switch strings.ToLower(logFormat) {
	case "text", "json":
	default:
		return nil, fmt.Errorf("--log-format must be %q or %q, got %q", "text", "json", logFormat)
	}

	if verbose, _ := flags.GetBool("verbose"); verbose {
		logLevel = "debug"
	}
	logger := buildLogger(os.Stderr, logLevel, logFormat)

	cfg, err := loadProjectConfig(cmd, dir)
	if err != nil {
		return nil, err
	}

	sourcePath := cfg.Source
	if sourcePath != "" && !filepath.IsAbs(sourcePath) {
		sourcePath = filepath.Join(dir, sourcePath)
	}

	outputPath, _ := flags.GetString("output")
	title, _ := flags.GetString("title")
	if title == "" {
		title = cfg.Metadata.Title
	}

	// The default output name and title come from the source file, which may
	// itself need discovering when the config names none.
	if outputPath == "" || title == "" {
		named := sourcePath
		if named == "" {
			texts, err := converter.ListSourceTexts(dir)
			if err != nil {
				return nil, err
			}
			if len(texts) == 0 {
				return nil, converter.ErrSourceNotFound
			}
			named = texts[0]
		}
		if outputPath == "" {
			outputPath = defaultOutputPath(named, format)
		}
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(named), filepath.Ext(named))
		}
	}

	author, _ := flags.GetString("author")
	if author == "" {
		author = cfg.Metadata.Author
	}
	language, _ := flags.GetString("language")
	if language == "" {
		language = cfg.Metadata.Language
	}

	optimize := cfg.Images.Optimize
	if flags.Changed("optimize-images") {
		optimize, _ = flags.GetBool("optimize-images")
	}
	if !flags.Changed("quality") {
		quality = cfg.Images.JPEGQuality
	}
	if !flags.Changed("max-image-width") {
		maxWidth = cfg.Images.MaxWidth
	}

	coverPath := cfg.Cover
	if coverPath != "" && !filepath.IsAbs(coverPath) {
		coverPath = filepath.Join(dir, coverPath)
	}

	fontPath, _ := flags.GetString("pdf-font")

	return &cliOptions{
		Options: converter.Options{
			Dir:                dir,
			SourcePath:         sourcePath,
			CoverPath:          coverPath,
			OutputPath:         outputPath,
			PlaceholderDir:     cfg.PlaceholderDir,
			FrontImageDir:      cfg.FrontImageDir,
			PlaceholderPattern: cfg.PlaceholderRegexp(),
			ChapterPattern:     cfg.ChapterRegexp(),
			PrefaceTitle:       cfg.PrefaceTitle,
			OptimizeImages:     optimize,
			MaxImageWidth:      maxWidth,
			JPEGQuality:        quality,
			Logger:             logger,
		},
		format:     format,
		title:      title,
		author:     author,
		language:   language,
		identifier: cfg.Metadata.Identifier,
		fontPath:   fontPath,
	}, nil
}

// loadProjectConfig loads the config named by -c, or the project-local
// txt2epub.yaml when present. A missing project-local file is not an error.
func loadProjectConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadConfig(path)
	}
	cfg, err := config.LoadConfig(filepath.Join(dir, "txt2epub.yaml"))
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

// buildLogger constructs the slog logger the pipeline reports through.
func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// defaultOutputPath derives the output file name from the source text path.
func defaultOutputPath(input, ext string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + ext
}

func run(opts *cliOptions) error {
	switch opts.format {
	case "pdf":
		opts.Builder = pdf.NewWriter(pdf.Config{
			Title:    opts.title,
			Creator:  opts.author,
			FontPath: opts.fontPath,
		})
	default:
		opts.Builder = epub.NewWriter(epub.Config{
			Title:      opts.title,
			Creator:    opts.author,
			Language:   opts.language,
			Identifier: opts.identifier,
		})
	}

	p := converter.NewPipeline(opts.Options)
	if err := p.Convert(); err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
