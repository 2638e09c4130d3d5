// Package config loads the optional project configuration file. Every field
// has a default, so a project without txt2epub.yaml converts with the stock
// patterns and metadata derived from the source file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"

	"github.com/yuanying/txt2epub/internal/converter"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Config mirrors the txt2epub.yaml schema.
type Config struct {
	Source             string   `yaml:"source"`
	Cover              string   `yaml:"cover"`
	PlaceholderDir     string   `yaml:"placeholderDir"`
	FrontImageDir      string   `yaml:"frontImageDir"`
	PlaceholderPattern string   `yaml:"placeholderPattern"`
	ChapterPattern     string   `yaml:"chapterPattern"`
	PrefaceTitle       string   `yaml:"prefaceTitle"`
	Metadata           Metadata `yaml:"metadata"`
	Images             Images   `yaml:"images"`

	placeholderRe *regexp.Regexp
	chapterRe     *regexp.Regexp
}

// Metadata holds the package metadata written into the output document.
type Metadata struct {
	Title      string `yaml:"title"`      // empty = source file basename
	Author     string `yaml:"author"`     // empty = no creator element
	Language   string `yaml:"language"`   // BCP 47 tag
	Identifier string `yaml:"identifier"` // empty = generated urn:uuid
}

// Images holds the optimization knobs passed through to the converter.
type Images struct {
	Optimize    bool `yaml:"optimize"`
	MaxWidth    int  `yaml:"maxWidth"`
	JPEGQuality int  `yaml:"jpegQuality"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{
		PlaceholderDir:     "images",
		FrontImageDir:      "front_images",
		PlaceholderPattern: converter.DefaultPlaceholderPattern,
		ChapterPattern:     converter.DefaultChapterPattern,
		PrefaceTitle:       "Preface",
		Metadata:           Metadata{Language: "en"},
		Images: Images{
			Optimize:    false,
			MaxWidth:    600,
			JPEGQuality: 85,
		},
	}
	// The stock patterns are compile-tested constants.
	cfg.placeholderRe = regexp.MustCompile(cfg.PlaceholderPattern)
	cfg.chapterRe = regexp.MustCompile(cfg.ChapterPattern)
	return cfg
}

// LoadConfig reads and strict-parses a YAML config file. Keys absent from the
// file keep their defaults; unknown keys are rejected. The returned config is
// already validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and compiles the two patterns. It must be
// called after any mutation of the pattern strings.
func (c *Config) Validate() error {
	re, err := regexp.Compile(c.PlaceholderPattern)
	if err != nil {
		return fmt.Errorf("%w: placeholderPattern: %v", ErrInvalidConfig, err)
	}
	c.placeholderRe = re

	re, err = regexp.Compile(c.ChapterPattern)
	if err != nil {
		return fmt.Errorf("%w: chapterPattern: %v", ErrInvalidConfig, err)
	}
	c.chapterRe = re

	if c.Images.JPEGQuality < 60 || c.Images.JPEGQuality > 100 {
		return fmt.Errorf("%w: images.jpegQuality must be between 60 and 100, got %d", ErrInvalidConfig, c.Images.JPEGQuality)
	}
	if c.Images.MaxWidth < 1 {
		return fmt.Errorf("%w: images.maxWidth must be positive, got %d", ErrInvalidConfig, c.Images.MaxWidth)
	}
	return nil
}

// PlaceholderRegexp returns the compiled placeholder pattern.
func (c *Config) PlaceholderRegexp() *regexp.Regexp { return c.placeholderRe }

// ChapterRegexp returns the compiled chapter heading pattern.
func (c *Config) ChapterRegexp() *regexp.Regexp { return c.chapterRe }
