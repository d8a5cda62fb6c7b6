package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/srpkeeper/internal/flagx"
	"github.com/dmitrijs2005/srpkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Only fields present
// in the file override the current values.
type FileConfig struct {
	HTTPAddr            string          `json:"http_addr" yaml:"http_addr"`
	DatabaseDSN         string          `json:"database_dsn" yaml:"database_dsn"`
	SecretKey           string          `json:"secret_key" yaml:"secret_key"`
	NatsURL             string          `json:"nats_url" yaml:"nats_url"`
	HandshakeBucket     string          `json:"handshake_bucket" yaml:"handshake_bucket"`
	LogLevel            string          `json:"log_level" yaml:"log_level"`
	ShutdownTimeout     *timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	HideUnknownAccounts *bool           `json:"hide_unknown_accounts" yaml:"hide_unknown_accounts"`
	DecoyKey            string          `json:"decoy_key" yaml:"decoy_key"`
}

func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

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

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, fc.HTTPAddr)
	setString(&config.DatabaseDSN, fc.DatabaseDSN)
	setString(&config.SecretKey, fc.SecretKey)
	setString(&config.NatsURL, fc.NatsURL)
	setString(&config.HandshakeBucket, fc.HandshakeBucket)
	setString(&config.LogLevel, fc.LogLevel)
	setString(&config.DecoyKey, fc.DecoyKey)
	if fc.ShutdownTimeout != nil {
		config.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
	if fc.HideUnknownAccounts != nil {
		config.HideUnknownAccounts = *fc.HideUnknownAccounts
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
