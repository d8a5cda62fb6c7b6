// Package config handles configuration for the srpkeeper CLI: defaults, an
// optional JSON or YAML file, then command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/timex"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the CLI.
type Config struct {
	ServerURL      string
	DatabasePath   string
	RequestTimeout time.Duration
	Retries        uint64
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabasePath = "srpkeeper.db"
	c.RequestTimeout = 10 * time.Second
	c.Retries = 2
	c.LogLevel = "warn"
}

// BindFlags registers the CLI flags on fs, writing straight into c.
//
//	-a, --server    base URL of the server
//	-f, --db        path of the local SQLite file
//	-t, --timeout   per-request timeout
//	    --retries   retries for idempotent requests
//	-l, --log-level log level (debug, info, warn, error)
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVarP(&c.ServerURL, "server", "a", c.ServerURL, "base URL of the srpkeeper server")
	fs.StringVarP(&c.DatabasePath, "db", "f", c.DatabasePath, "path of the local database file")
	fs.DurationVarP(&c.RequestTimeout, "timeout", "t", c.RequestTimeout, "per-request timeout")
	fs.Uint64Var(&c.Retries, "retries", c.Retries, "retries for idempotent requests")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "log level")
}

// FileConfig is the on-disk shape of the configuration.
type FileConfig struct {
	ServerURL      string          `json:"server_url" yaml:"server_url"`
	DatabasePath   string          `json:"db_path" yaml:"db_path"`
	RequestTimeout *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	Retries        *uint64         `json:"retries" yaml:"retries"`
	LogLevel       string          `json:"log_level" yaml:"log_level"`
}

// Resolve overlays the file at path (if any) on c, then re-applies the flags
// the user set explicitly on fs, so flags win over the file.
func (c *Config) Resolve(fs *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}

	changed := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	if err := c.loadFile(path); err != nil {
		return err
	}

	for name, v := range changed {
		if err := fs.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.ServerURL != "" {
		c.ServerURL = fc.ServerURL
	}
	if fc.DatabasePath != "" {
		c.DatabasePath = fc.DatabasePath
	}
	if fc.RequestTimeout != nil {
		c.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.Retries != nil {
		c.Retries = *fc.Retries
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	return nil
}
