package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// HTTPConfig controls the shared fetcher.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	HostInterval  time.Duration `yaml:"host_interval"`
	RespectRobots bool          `yaml:"respect_robots"`
}

// HarvestConfig controls the harvest run itself.
type HarvestConfig struct {
	CategoriesFile     string        `yaml:"categories_file"`
	MaxArticles        int           `yaml:"max_articles"`
	SourceConcurrency  int           `yaml:"source_concurrency"`
	ArticleConcurrency int           `yaml:"article_concurrency"`
	RunTimeout         time.Duration `yaml:"run_timeout"`
	// Pointer so that an explicit false in the file can turn the filter
	// off.
	AIOnly              *bool `yaml:"ai_only"`
	WordBoundary        bool  `yaml:"word_boundary"`
	MinTitleLen         int   `yaml:"min_title_len"`
	BodyCap             int   `yaml:"body_cap"`
	DescriptionCap      int   `yaml:"description_cap"`
	MinParagraphWords   int   `yaml:"min_paragraph_words"`
	ReadabilityFallback bool  `yaml:"readability_fallback"`
}

// StorageConfig selects where category reports are written. Type is
// "file" (DSN is a directory) or "sqlite" (DSN is a database path).
type StorageConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// FileConfig represents the structure of ~/.newsharvest/config.yaml.
type FileConfig struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Harvest HarvestConfig `yaml:"harvest"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() *FileConfig {
	aiOnly := true
	return &FileConfig{
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			HostInterval: 500 * time.Millisecond,
		},
		Harvest: HarvestConfig{
			CategoriesFile:     "categories_config.json",
			MaxArticles:        8,
			SourceConcurrency:  4,
			ArticleConcurrency: 2,
			RunTimeout:         30 * time.Minute,
			AIOnly:             &aiOnly,
			MinTitleLen:        6,
			BodyCap:            3000,
			DescriptionCap:     300,
			MinParagraphWords:  3,
		},
		Storage: StorageConfig{
			Type: "file",
			DSN:  "news_by_category",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Merge overlays every field that is set in override onto a copy of base.
// Zero values in override leave base untouched.
func Merge(base, override *FileConfig) *FileConfig {
	out := *base
	if override == nil {
		return &out
	}

	h, o := &out.HTTP, override.HTTP
	if o.Timeout > 0 {
		h.Timeout = o.Timeout
	}
	if o.UserAgent != "" {
		h.UserAgent = o.UserAgent
	}
	if o.HostInterval != 0 {
		h.HostInterval = o.HostInterval
	}
	if o.RespectRobots {
		h.RespectRobots = true
	}

	hv, ov := &out.Harvest, override.Harvest
	if ov.CategoriesFile != "" {
		hv.CategoriesFile = ov.CategoriesFile
	}
	if ov.MaxArticles > 0 {
		hv.MaxArticles = ov.MaxArticles
	}
	if ov.SourceConcurrency > 0 {
		hv.SourceConcurrency = ov.SourceConcurrency
	}
	if ov.ArticleConcurrency > 0 {
		hv.ArticleConcurrency = ov.ArticleConcurrency
	}
	if ov.RunTimeout > 0 {
		hv.RunTimeout = ov.RunTimeout
	}
	if ov.AIOnly != nil {
		v := *ov.AIOnly
		hv.AIOnly = &v
	}
	if ov.WordBoundary {
		hv.WordBoundary = true
	}
	if ov.MinTitleLen > 0 {
		hv.MinTitleLen = ov.MinTitleLen
	}
	if ov.BodyCap > 0 {
		hv.BodyCap = ov.BodyCap
	}
	if ov.DescriptionCap > 0 {
		hv.DescriptionCap = ov.DescriptionCap
	}
	if ov.MinParagraphWords > 0 {
		hv.MinParagraphWords = ov.MinParagraphWords
	}
	if ov.ReadabilityFallback {
		hv.ReadabilityFallback = true
	}

	if override.Storage.Type != "" {
		out.Storage.Type = override.Storage.Type
	}
	if override.Storage.DSN != "" {
		out.Storage.DSN = override.Storage.DSN
	}
	if override.Log.Level != "" {
		out.Log.Level = override.Log.Level
	}

	return &out
}

// DefaultPath returns ~/.newsharvest/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".newsharvest", "config.yaml"), nil
}

// LoadConfigFile loads configuration from ~/.newsharvest/config.yaml.
// Returns nil if the file doesn't exist (not an error). Returns error if the
// file exists but cannot be parsed.
func LoadConfigFile() (*FileConfig, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFileFrom(configPath)
}

// LoadConfigFileFrom is LoadConfigFile for an explicit path.
func LoadConfigFileFrom(configPath string) (*FileConfig, error) {
	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil // File doesn't exist -- not an error
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

const defaultConfigContent = `# newsharvest settings. Environment variables (NEWSHARVEST_*) override
# these values, and command-line flags override both.
http:
  timeout: 15s
  host_interval: 500ms
  respect_robots: false
harvest:
  categories_file: categories_config.json
  max_articles: 8
  source_concurrency: 4
  article_concurrency: 2
  run_timeout: 30m
  ai_only: true
  word_boundary: false
  readability_fallback: false
storage:
  type: file
  dsn: news_by_category
log:
  level: info
`

// WriteDefaultConfigFile writes a commented default settings file to
// ~/.newsharvest/config.yaml. An existing file is left alone unless force
// is set. It reports whether a file was written.
func WriteDefaultConfigFile(force bool) (bool, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return false, err
	}
	return writeConfigFile(configPath, force)
}

func writeConfigFile(configPath string, force bool) (bool, error) {
	if _, err := os.Stat(configPath); err == nil && !force {
		return false, nil
	}

	// 0700: owner-only access
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigContent), 0o600); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}
