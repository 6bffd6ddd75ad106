// SPDX-License-Identifier: LGPL-3.0-or-later
// Author: Michel Prunet - Safe Pic Technologies
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"sourcemapx.safepic.fr/extractor"
	"sourcemapx.safepic.fr/fetcher"
	"sourcemapx.safepic.fr/pathsafe"
)

// Config represents the application configuration
type Config struct {
	Output         string   `yaml:"output"`
	Workers        int      `yaml:"workers"`
	StripPrefixes  []string `yaml:"strip_prefixes"`
	ParentDirName  string   `yaml:"parent_dir_name"`
	ExternalMarker string   `yaml:"external_marker"`
	UseSourceRoot  bool     `yaml:"source_root"`
	Beautify       bool     `yaml:"beautify"`
	EOL            string   `yaml:"eol"`
	MetricsFile    string   `yaml:"metrics_file"`
	Fetch          Fetch    `yaml:"fetch"`
}

// Fetch holds the remote fetcher settings
type Fetch struct {
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"user_agent"`
	Proxy       string        `yaml:"proxy"`
	Insecure    bool          `yaml:"insecure"`
	Concurrency int           `yaml:"concurrency"`
	MaxBody     int64         `yaml:"max_body"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyDefaults sets default values for unspecified configuration options
func (c *Config) ApplyDefaults() {
	if c.Output == "" {
		c.Output = "output"
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.StripPrefixes == nil {
		c.StripPrefixes = extractor.DefaultStripPrefixes
	}
	if c.ParentDirName == "" {
		c.ParentDirName = extractor.DefaultParentDirName
	}
	if c.ExternalMarker == "" {
		c.ExternalMarker = extractor.DefaultExternalMarker
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = fetcher.DefaultTimeout
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = fetcher.DefaultUserAgent
	}
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = 4
	}
	if c.Fetch.MaxBody == 0 {
		c.Fetch.MaxBody = fetcher.DefaultMaxBody
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers: %d (must be at least 1)", c.Workers)
	}
	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("invalid fetch concurrency: %d (must be at least 1)", c.Fetch.Concurrency)
	}
	if c.Fetch.MaxBody < 0 {
		return fmt.Errorf("invalid fetch max_body: %d", c.Fetch.MaxBody)
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("invalid fetch timeout: %s", c.Fetch.Timeout)
	}
	if err := extractor.ValidateEOL(c.EOL); err != nil {
		return err
	}
	// must stay a single, meaningful path component
	if got := pathsafe.SanitizeName(c.ParentDirName); got != c.ParentDirName {
		return fmt.Errorf("invalid parent_dir_name %q", c.ParentDirName)
	}
	return nil
}

// Extractor maps the configuration onto an extractor.Config
func (c *Config) Extractor() extractor.Config {
	return extractor.Config{
		Root:           c.Output,
		StripPrefixes:  c.StripPrefixes,
		ExternalMarker: c.ExternalMarker,
		ParentDirName:  c.ParentDirName,
		UseSourceRoot:  c.UseSourceRoot,
		Beautify:       c.Beautify,
		EOL:            c.EOL,
	}
}

// Fetcher maps the configuration onto fetcher.Options
func (c *Config) Fetcher() fetcher.Options {
	return fetcher.Options{
		Timeout:   c.Fetch.Timeout,
		UserAgent: c.Fetch.UserAgent,
		Proxy:     c.Fetch.Proxy,
		Insecure:  c.Fetch.Insecure,
		MaxBody:   c.Fetch.MaxBody,
	}
}
