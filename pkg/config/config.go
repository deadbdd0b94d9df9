package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Pixiv crawler
type Config struct {
	// Pixiv session and request headers
	Pixiv PixivConfig `yaml:"pixiv" json:"pixiv"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Filter policy defaults
	Filter FilterConfig `yaml:"filter" json:"filter"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PixivConfig holds the session cookie and the user agents used against
// the two Pixiv surfaces. The API user agent is sent to the ajax
// endpoints; the download user agent is a distinct desktop-browser
// string sent to the image host.
type PixivConfig struct {
	Cookie            string `yaml:"cookie" json:"cookie"`
	UserAgent         string `yaml:"user_agent" json:"user_agent"`
	DownloadUserAgent string `yaml:"download_user_agent" json:"download_user_agent"`
}

// RateLimitConfig holds the fixed request spacing. The delays are
// unconditional; there is no adaptive backoff.
type RateLimitConfig struct {
	RequestDelay time.Duration `yaml:"request_delay" json:"request_delay"`
	PageDelay    time.Duration `yaml:"page_delay" json:"page_delay"`
}

// FilterConfig holds the default policy parameters applied to resolved
// artworks.
type FilterConfig struct {
	MinBookmarks     int      `yaml:"min_bookmarks" json:"min_bookmarks"`
	MaxPages         int      `yaml:"max_pages" json:"max_pages"`
	ExcludedKeywords []string `yaml:"excluded_keywords" json:"excluded_keywords"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory    string `yaml:"base_directory" json:"base_directory"`
	CreateRunFolders bool   `yaml:"create_run_folders" json:"create_run_folders"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pixiv: PixivConfig{
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36",
			DownloadUserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36",
		},
		RateLimit: RateLimitConfig{
			RequestDelay: 500 * time.Millisecond,
			PageDelay:    3 * time.Second,
		},
		Filter: FilterConfig{
			MinBookmarks: 1000,
			MaxPages:     5,
		},
		Output: OutputConfig{
			BaseDirectory:    "./pixiv_images",
			CreateRunFolders: true,
		},
		Download: DownloadConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if cookie := os.Getenv("PIXCRAWL_COOKIE"); cookie != "" {
		c.Pixiv.Cookie = cookie
	}
	if userAgent := os.Getenv("PIXCRAWL_USER_AGENT"); userAgent != "" {
		c.Pixiv.UserAgent = userAgent
	}
	if delay := os.Getenv("PIXCRAWL_REQUEST_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return fmt.Errorf("invalid PIXCRAWL_REQUEST_DELAY: %w", err)
		}
		c.RateLimit.RequestDelay = d
	}
	if outputDir := os.Getenv("PIXCRAWL_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if bookmarks := os.Getenv("PIXCRAWL_MIN_BOOKMARKS"); bookmarks != "" {
		var val int
		fmt.Sscanf(bookmarks, "%d", &val)
		if val >= 0 {
			c.Filter.MinBookmarks = val
		}
	}
	if pages := os.Getenv("PIXCRAWL_MAX_PAGES"); pages != "" {
		var val int
		fmt.Sscanf(pages, "%d", &val)
		if val > 0 {
			c.Filter.MaxPages = val
		}
	}
	if logLevel := os.Getenv("PIXCRAWL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".pixcrawl.yaml",
		".pixcrawl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "pixcrawl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "pixcrawl", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".pixcrawl.yaml"),
		filepath.Join(os.Getenv("HOME"), ".pixcrawl.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.RateLimit.RequestDelay < 0 {
		errs = append(errs, errors.New("request delay cannot be negative"))
	}
	if c.RateLimit.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}

	if c.Filter.MinBookmarks < 0 {
		errs = append(errs, errors.New("minimum bookmarks cannot be negative"))
	}
	if c.Filter.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: the file may hold the session cookie
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if cookie, ok := flags["cookie"].(string); ok && cookie != "" {
		c.Pixiv.Cookie = cookie
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if bookmarks, ok := flags["min-bookmarks"].(int); ok && bookmarks >= 0 {
		c.Filter.MinBookmarks = bookmarks
	}
	if pages, ok := flags["max-pages"].(int); ok && pages > 0 {
		c.Filter.MaxPages = pages
	}
	if keywords, ok := flags["exclude"].([]string); ok && len(keywords) > 0 {
		c.Filter.ExcludedKeywords = keywords
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".pixcrawl.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
