package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/uiforge/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "uiforge.json"

	// DefaultCatalogID is the catalogId written to new catalog documents.
	DefaultCatalogID = "design-system-v1"

	// DefaultCatalogVersion is the version written to new catalog documents.
	DefaultCatalogVersion = "1.0.0"

	// DefaultScaffoldURL is the default scaffold helper address.
	DefaultScaffoldURL = "http://localhost:4202"

	// DefaultScaffoldTimeout bounds every scaffold helper request.
	DefaultScaffoldTimeout = 3 * time.Second

	// DefaultServerAddress is where `uiforge serve` listens.
	DefaultServerAddress = "localhost:4202"
)

// DefaultExtensions are the source file extensions rewritten by tree passes.
var DefaultExtensions = []string{".ts", ".html", ".scss", ".css"}

// DefaultSkip are the directory names never descended into.
var DefaultSkip = []string{"node_modules", "dist", ".angular"}

// Config represents the complete uiforge.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Paths contains path configuration for project directories.
	Paths PathsConfig `json:"paths,omitempty"`

	// Walk configures project-wide reference passes.
	Walk WalkConfig `json:"walk,omitempty"`

	// Scaffold configures the scaffold generator.
	Scaffold ScaffoldConfig `json:"scaffold,omitempty"`

	// Catalog configures the component catalog document.
	Catalog CatalogConfig `json:"catalog,omitempty"`

	// Server configures `uiforge serve`.
	Server ServerConfig `json:"server,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// PathsConfig contains path configuration for project directories.
type PathsConfig struct {
	// Source is the root of the source tree rewritten by reference passes.
	Source string `json:"source,omitempty"`

	// Components is the directory holding one sub-directory per component.
	Components string `json:"components,omitempty"`

	// Canvas is the directory of the component canvas page.
	Canvas string `json:"canvas,omitempty"`

	// Catalog is the catalog JSON document.
	Catalog string `json:"catalog,omitempty"`
}

// WalkConfig configures tree passes.
type WalkConfig struct {
	// Extensions are the file extensions visited.
	Extensions []string `json:"extensions,omitempty"`

	// Skip are directory names skipped at any depth.
	Skip []string `json:"skip,omitempty"`

	// ImportAnchor is the declaration new imports are inserted before.
	ImportAnchor string `json:"importAnchor,omitempty"`
}

// ScaffoldConfig configures the scaffold generator.
type ScaffoldConfig struct {
	// Mode is "local" (in-process) or "remote" (HTTP helper).
	Mode string `json:"mode,omitempty"`

	// URL is the scaffold helper base URL in remote mode.
	URL string `json:"url,omitempty"`

	// Timeout bounds each helper request (e.g., "3s").
	Timeout string `json:"timeout,omitempty"`
}

// CatalogConfig configures the catalog document.
type CatalogConfig struct {
	ID      string `json:"id,omitempty"`
	Version string `json:"version,omitempty"`

	// S3Bucket enables mirroring every saved snapshot to S3.
	S3Bucket string `json:"s3Bucket,omitempty"`
	S3Key    string `json:"s3Key,omitempty"`
	S3Region string `json:"s3Region,omitempty"`
}

// ServerConfig configures the helper server.
type ServerConfig struct {
	Address string `json:"address,omitempty"`

	// Metrics exposes Prometheus metrics on /metrics.
	Metrics bool `json:"metrics,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Paths: PathsConfig{
			Source:     "src",
			Components: "src/app/components",
			Canvas:     "src/app/pages/components-canvas",
			Catalog:    "component-catalog.json",
		},
		Walk: WalkConfig{
			Extensions:   append([]string(nil), DefaultExtensions...),
			Skip:         append([]string(nil), DefaultSkip...),
			ImportAnchor: "declare var initFlowbite",
		},
		Scaffold: ScaffoldConfig{
			Mode:    "local",
			URL:     DefaultScaffoldURL,
			Timeout: DefaultScaffoldTimeout.String(),
		},
		Catalog: CatalogConfig{
			ID:      DefaultCatalogID,
			Version: DefaultCatalogVersion,
			S3Key:   "component-catalog.json",
		},
		Server: ServerConfig{
			Address: DefaultServerAddress,
			Metrics: true,
		},
	}
}

// Load reads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No uiforge.json found in " + filepath.Dir(path)).
				WithSuggestion("Create uiforge.json at the project root (an empty {} uses defaults)")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse uiforge.json: " + err.Error()).
			WithSuggestion("Check that uiforge.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Paths.Source == "" {
		c.Paths.Source = d.Paths.Source
	}
	if c.Paths.Components == "" {
		c.Paths.Components = d.Paths.Components
	}
	if c.Paths.Canvas == "" {
		c.Paths.Canvas = d.Paths.Canvas
	}
	if c.Paths.Catalog == "" {
		c.Paths.Catalog = d.Paths.Catalog
	}

	if len(c.Walk.Extensions) == 0 {
		c.Walk.Extensions = d.Walk.Extensions
	}
	if c.Walk.Skip == nil {
		c.Walk.Skip = d.Walk.Skip
	}
	if c.Walk.ImportAnchor == "" {
		c.Walk.ImportAnchor = d.Walk.ImportAnchor
	}

	if c.Scaffold.Mode == "" {
		c.Scaffold.Mode = d.Scaffold.Mode
	}
	if c.Scaffold.URL == "" {
		c.Scaffold.URL = d.Scaffold.URL
	}
	if c.Scaffold.Timeout == "" {
		c.Scaffold.Timeout = d.Scaffold.Timeout
	}

	if c.Catalog.ID == "" {
		c.Catalog.ID = d.Catalog.ID
	}
	if c.Catalog.Version == "" {
		c.Catalog.Version = d.Catalog.Version
	}
	if c.Catalog.S3Key == "" {
		c.Catalog.S3Key = d.Catalog.S3Key
	}

	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Scaffold.Mode {
	case "local", "remote":
	default:
		return errors.New("E121").
			WithDetail("scaffold.mode must be \"local\" or \"remote\", got \"" + c.Scaffold.Mode + "\"")
	}
	if _, err := c.ScaffoldTimeout(); err != nil {
		return err
	}
	return nil
}

// ScaffoldTimeout returns the parsed scaffold request timeout.
func (c *Config) ScaffoldTimeout() (time.Duration, error) {
	if c.Scaffold.Timeout == "" {
		return DefaultScaffoldTimeout, nil
	}
	d, err := time.ParseDuration(c.Scaffold.Timeout)
	if err != nil || d <= 0 {
		return 0, errors.New("E121").
			WithDetail("scaffold.timeout must be a positive duration such as \"3s\"")
	}
	return d, nil
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// SourcePath returns the absolute path to the source root.
func (c *Config) SourcePath() string {
	return c.resolve(c.Paths.Source)
}

// ComponentsPath returns the absolute path to the components directory.
func (c *Config) ComponentsPath() string {
	return c.resolve(c.Paths.Components)
}

// CanvasPath returns the absolute path to the canvas page directory.
func (c *Config) CanvasPath() string {
	return c.resolve(c.Paths.Canvas)
}

// CatalogPath returns the absolute path to the catalog document.
func (c *Config) CatalogPath() string {
	return c.resolve(c.Paths.Catalog)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing uiforge.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E141").
				WithDetail("No uiforge.json found in " + startDir + " or any parent directory").
				WithSuggestion("Create uiforge.json at the project root")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
