// Package config assembles runtime settings from an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Epistemic-Technology/pdf-regions/internal/logger"
)

const (
	DefaultDisplayWidth = 800
	DefaultExportDPI    = 72
)

type Config struct {
	// DatabasePath is the SQLite file holding saved sessions.
	DatabasePath string `yaml:"database"`

	// GhostscriptPath is the gs binary used to rasterise pages.
	GhostscriptPath string `yaml:"ghostscript"`

	// DisplayWidth is the width in pixels pages are rendered to for display.
	DisplayWidth float64 `yaml:"display_width"`

	// ExportDPI is the resolution of exported crops.
	ExportDPI float64 `yaml:"export_dpi"`

	OpenAIAPIKey    string `yaml:"openai_api_key"`
	ZoteroAPIKey    string `yaml:"zotero_api_key"`
	ZoteroLibraryID string `yaml:"zotero_library_id"`

	Log logger.LogConfig `yaml:"log"`
}

// Load reads the YAML file at path, if any, and applies environment
// overrides. With an empty path PDF_REGIONS_CONFIG is consulted.
func Load(path string) (*Config, error) {
	c := &Config{
		GhostscriptPath: "gs",
		DisplayWidth:    DefaultDisplayWidth,
		ExportDPI:       DefaultExportDPI,
	}

	if path == "" {
		path = os.Getenv("PDF_REGIONS_CONFIG")
	}
	if path != "" {
		if err := c.parseFile(path); err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if c.DatabasePath == "" {
		dir, err := logger.DataDir()
		if err != nil {
			return nil, err
		}
		c.DatabasePath = filepath.Join(dir, "regions.db")
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) parseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setFloat := func(dst *float64, key string) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = f
		return nil
	}

	setString(&c.DatabasePath, "PDF_REGIONS_DB_PATH")
	setString(&c.GhostscriptPath, "PDF_REGIONS_GS_PATH")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.ZoteroAPIKey, "ZOTERO_API_KEY")
	setString(&c.ZoteroLibraryID, "ZOTERO_LIBRARY_ID")
	setString(&c.Log.Output, "LOG_OUTPUT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.FilePath, "LOG_FILE_PATH")

	if err := setFloat(&c.DisplayWidth, "PDF_REGIONS_DISPLAY_WIDTH"); err != nil {
		return err
	}
	return setFloat(&c.ExportDPI, "PDF_REGIONS_EXPORT_DPI")
}

func (c *Config) validate() error {
	if c.DisplayWidth <= 0 {
		return fmt.Errorf("display width must be positive, got %v", c.DisplayWidth)
	}
	if c.ExportDPI <= 0 {
		return fmt.Errorf("export dpi must be positive, got %v", c.ExportDPI)
	}
	return nil
}
