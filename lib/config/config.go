// Package config defines the YAML/JSON configuration model for programs
// that load the Maps script, together with helpers to read it from local
// files or URLs.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/nptay1999/google-map-javascript-api/lib/loader"
)

// Duration is a time.Duration that decodes from "5s"-style strings in both
// YAML and JSON.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	return d.parse(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.parse(raw)
}

func (d *Duration) parse(raw string) error {
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Agent describes the subprocess that hosts the document on the far side
// of a bridge.
type Agent struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
	// Timeout bounds the ready handshake after the agent starts; zero
	// leaves the caller's default in place.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Config carries the script loading settings and, optionally, the agent
// subprocess serving the document.
type Config struct {
	APIKey    string   `yaml:"apiKey" json:"apiKey"`
	Libraries []string `yaml:"libraries,omitempty" json:"libraries,omitempty"`
	Language  string   `yaml:"language,omitempty" json:"language,omitempty"`
	Region    string   `yaml:"region,omitempty" json:"region,omitempty"`
	Agent     *Agent   `yaml:"agent,omitempty" json:"agent,omitempty"`
}

// Load reads a config file. The extension picks the format: .json parses
// as JSON, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	return parse(path, data)
}

// NewFromURL downloads a config through the afs virtual filesystem, which
// accepts local paths and remote URLs alike, and decodes it like Load.
func NewFromURL(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download config %q: %w", URL, err)
	}
	return parse(URL, data)
}

func parse(name string, data []byte) (*Config, error) {
	var cfg Config
	if strings.EqualFold(filepath.Ext(name), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", name, err)
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", name, err)
	}
	return &cfg, nil
}

// Options converts the script settings to loader options. Values pass
// through unvalidated; the loader treats them the same way.
func (c *Config) Options() loader.Options {
	return loader.Options{
		Libraries: c.Libraries,
		Language:  c.Language,
		Region:    c.Region,
	}
}

// Validate rejects a config without an API key. Everything else is
// optional.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("config: apiKey is required")
	}
	return nil
}
