package converter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

// Options holds options for the conversion pipeline.
type Options struct {
	Dir                string // project directory holding the source text and image directories
	SourcePath         string // explicit source text path; empty means discover in Dir
	CoverPath          string // explicit cover image path; empty means discover in Dir
	OutputPath         string
	PlaceholderDir     string // placeholder image directory, relative to Dir
	FrontImageDir      string // front-matter image directory, relative to Dir
	PlaceholderPattern *regexp.Regexp
	ChapterPattern     *regexp.Regexp
	PrefaceTitle       string
	Builder            PackageBuilder
	OptimizeImages     bool
	MaxImageWidth      int
	JPEGQuality        int
	MaxImageSizeBytes  int
	Logger             *slog.Logger
}

// Pipeline orchestrates the text to e-book conversion.
type Pipeline struct {
	opts  Options
	log   *slog.Logger
	pages *PageBuilder
}

// NewPipeline creates a new conversion pipeline. Zero-valued options fall
// back to the package defaults.
func NewPipeline(opts Options) *Pipeline {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.PlaceholderDir == "" {
		opts.PlaceholderDir = DefaultPlaceholderDir
	}
	if opts.FrontImageDir == "" {
		opts.FrontImageDir = DefaultFrontImageDir
	}
	if opts.PlaceholderPattern == nil {
		opts.PlaceholderPattern = regexp.MustCompile(DefaultPlaceholderPattern)
	}
	if opts.ChapterPattern == nil {
		opts.ChapterPattern = regexp.MustCompile(DefaultChapterPattern)
	}
	if opts.PrefaceTitle == "" {
		opts.PrefaceTitle = DefaultPrefaceTitle
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Pipeline{opts: opts, log: opts.Logger, pages: NewPageBuilder()}
}

// Convert executes the conversion pipeline: resource discovery, placeholder
// substitution, chapter segmentation, and package assembly, in that order.
func (p *Pipeline) Convert() error {
	if p.opts.Builder == nil {
		return fmt.Errorf("no package builder configured")
	}

	res, err := p.discoverResources()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(res.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source text: %w", err)
	}

	text, used := ReplacePlaceholders(string(raw), p.opts.PlaceholderPattern, res.Images)
	for _, name := range used {
		p.log.Info("replacing placeholder", "image", name)
	}

	chapters := SplitChapters(text, p.opts.ChapterPattern, p.opts.PrefaceTitle)
	for _, ch := range chapters[1:] {
		p.log.Info("chapter found", "title", ch.Title)
	}

	return p.assemble(res, chapters)
}

// discoverResources locates the source text, the cover image, and the two
// image directories. Explicit paths in Options bypass discovery.
func (p *Pipeline) discoverResources() (*Resources, error) {
	res := &Resources{
		SourcePath: p.opts.SourcePath,
		CoverPath:  p.opts.CoverPath,
	}

	if res.SourcePath == "" {
		texts, err := ListSourceTexts(p.opts.Dir)
		if err != nil {
			return nil, err
		}
		if len(texts) == 0 {
			return nil, ErrSourceNotFound
		}
		if len(texts) > 1 {
			p.log.Warn("multiple source texts found, using first", "chosen", texts[0], "count", len(texts))
		}
		res.SourcePath = texts[0]
	}

	if res.CoverPath == "" {
		cover, err := DetectCoverImage(p.opts.Dir)
		if err != nil {
			return nil, err
		}
		res.CoverPath = cover
	}

	images, err := ListImages(filepath.Join(p.opts.Dir, p.opts.PlaceholderDir))
	if err != nil {
		return nil, err
	}
	res.Images = images

	front, err := ListImages(filepath.Join(p.opts.Dir, p.opts.FrontImageDir))
	if err != nil {
		return nil, err
	}
	res.FrontImages = front

	return res, nil
}

// assemble drives the package builder: image assets, front-matter pages,
// chapter pages, reading order, navigation, cover, and the final write.
// Everything stays in memory until WriteFile.
func (p *Pipeline) assemble(res *Resources, chapters []Chapter) error {
	b := p.opts.Builder

	var optimizer *ImageOptimizer
	if p.opts.OptimizeImages {
		optimizer = NewImageOptimizer(p.opts)
	}

	for _, name := range res.Images {
		src := filepath.Join(p.opts.Dir, p.opts.PlaceholderDir, name)
		if err := p.addImageAsset(b, optimizer, src, "images/"+name); err != nil {
			return err
		}
	}

	var order []string
	for i, name := range res.FrontImages {
		src := filepath.Join(p.opts.Dir, p.opts.FrontImageDir, name)
		if err := p.addImageAsset(b, optimizer, src, "front_images/"+name); err != nil {
			return err
		}

		id := fmt.Sprintf("front_img_%d", i+1)
		markup, err := p.pages.FrontImagePage(name, i+1)
		if err != nil {
			return err
		}
		if err := b.AddPage(id, fmt.Sprintf("Front Image %d", i+1), markup); err != nil {
			return fmt.Errorf("failed to add front page %s: %w", id, err)
		}
		order = append(order, id)
	}

	var nav []NavPoint
	for i, ch := range chapters {
		id := fmt.Sprintf("chap_%02d", i+1)
		markup, err := p.pages.ChapterPage(ch)
		if err != nil {
			return err
		}
		if err := b.AddPage(id, ch.Title, markup); err != nil {
			return fmt.Errorf("failed to add chapter page %s: %w", id, err)
		}
		order = append(order, id)
		nav = append(nav, NavPoint{
			ID:     fmt.Sprintf("chap%d", i+1),
			Title:  ch.Title,
			PageID: id,
		})
	}

	if err := b.SetReadingOrder(order); err != nil {
		return fmt.Errorf("failed to set reading order: %w", err)
	}
	if err := b.SetNavigation(nav); err != nil {
		return fmt.Errorf("failed to set navigation: %w", err)
	}

	if err := p.setCover(b, optimizer, res.CoverPath); err != nil {
		return err
	}

	written, err := b.WriteFile(p.opts.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to write package: %w", err)
	}
	p.log.Info("package written", "path", p.opts.OutputPath, "bytes", written)

	return nil
}

// addImageAsset reads one image file, optionally optimizes it, and embeds it
// under pkgPath. The asset keeps its original filename; the media type
// follows the optimized format when optimization changed it.
func (p *Pipeline) addImageAsset(b PackageBuilder, optimizer *ImageOptimizer, srcPath, pkgPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read image %s: %w", srcPath, err)
	}

	mediaType := MediaTypeForFile(srcPath)
	if optimizer != nil {
		out, optErr := optimizer.Optimize(pkgPath, mediaType, data, false)
		if optErr != nil {
			return fmt.Errorf("failed to optimize image %s: %w", srcPath, optErr)
		}
		if out.Warning != "" {
			p.log.Warn("image optimization incomplete", "image", pkgPath, "detail", out.Warning)
		}
		data = out.Data
		if out.Format != "" {
			mediaType = "image/" + out.Format
		}
	}

	if err := b.AddImage(pkgPath, mediaType, data); err != nil {
		return fmt.Errorf("failed to add image %s: %w", pkgPath, err)
	}
	return nil
}

// setCover reads the cover file and designates it as the package cover.
func (p *Pipeline) setCover(b PackageBuilder, optimizer *ImageOptimizer, coverPath string) error {
	data, err := os.ReadFile(coverPath)
	if err != nil {
		return fmt.Errorf("failed to read cover image: %w", err)
	}

	name := filepath.Base(coverPath)
	mediaType := MediaTypeForFile(name)
	if optimizer != nil {
		out, optErr := optimizer.Optimize(name, mediaType, data, true)
		if optErr != nil {
			return fmt.Errorf("failed to optimize cover: %w", optErr)
		}
		if out.Warning != "" {
			p.log.Warn("cover optimization incomplete", "image", name, "detail", out.Warning)
		}
		data = out.Data
		if out.Format != "" {
			mediaType = "image/" + out.Format
		}
	}

	if err := b.SetCover(name, mediaType, data); err != nil {
		return fmt.Errorf("failed to set cover: %w", err)
	}
	return nil
}
