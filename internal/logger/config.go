package logger

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   bool   `yaml:"file_compress"`
}

// fileConfig mirrors Config with pointer booleans so unset keys keep their defaults
type fileConfig struct {
	Logging struct {
		Level          string `yaml:"level"`
		ConsoleEnabled *bool  `yaml:"console_enabled"`
		ConsoleFormat  string `yaml:"console_format"`
		FileEnabled    *bool  `yaml:"file_enabled"`
		FilePath       string `yaml:"file_path"`
		FileFormat     string `yaml:"file_format"`
		FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
		FileMaxBackups int    `yaml:"file_max_backups"`
		FileMaxAgeDays int    `yaml:"file_max_age_days"`
		FileCompress   *bool  `yaml:"file_compress"`
	} `yaml:"logging"`
}

// DefaultConfig returns console-only text logging at INFO
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FilePath:       "logs/roomgen.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig reads the logging section of a YAML file over the defaults and
// applies ROOMGEN_LOG_* environment overrides. A missing file is not an error;
// a malformed one is.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return config, fmt.Errorf("logger: reading %s: %w", configPath, err)
		default:
			var raw fileConfig
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return config, fmt.Errorf("logger: parsing %s: %w", configPath, err)
			}
			config.merge(raw)
		}
	}

	config.applyEnv()
	return config, config.Validate()
}

func (c *Config) merge(raw fileConfig) {
	l := raw.Logging
	if l.Level != "" {
		c.Level = l.Level
	}
	if l.ConsoleEnabled != nil {
		c.ConsoleEnabled = *l.ConsoleEnabled
	}
	if l.ConsoleFormat != "" {
		c.ConsoleFormat = l.ConsoleFormat
	}
	if l.FileEnabled != nil {
		c.FileEnabled = *l.FileEnabled
	}
	if l.FilePath != "" {
		c.FilePath = l.FilePath
	}
	if l.FileFormat != "" {
		c.FileFormat = l.FileFormat
	}
	if l.FileMaxSizeMB > 0 {
		c.FileMaxSizeMB = l.FileMaxSizeMB
	}
	if l.FileMaxBackups > 0 {
		c.FileMaxBackups = l.FileMaxBackups
	}
	if l.FileMaxAgeDays > 0 {
		c.FileMaxAgeDays = l.FileMaxAgeDays
	}
	if l.FileCompress != nil {
		c.FileCompress = *l.FileCompress
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ROOMGEN_LOG_LEVEL"); v != "" {
		c.Level = v
	}
	if v := os.Getenv("ROOMGEN_LOG_FORMAT"); v != "" {
		c.ConsoleFormat = v
	}
	if v := os.Getenv("ROOMGEN_LOG_FILE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.FileEnabled = enabled
		}
	}
	if v := os.Getenv("ROOMGEN_LOG_FILE_PATH"); v != "" {
		c.FilePath = v
	}
}

// Validate rejects unknown formats and a file sink without a path
func (c Config) Validate() error {
	for _, f := range []string{c.ConsoleFormat, c.FileFormat} {
		switch strings.ToLower(f) {
		case "text", "json":
		default:
			return fmt.Errorf("logger: unknown format %q (want text or json)", f)
		}
	}
	if c.FileEnabled && c.FilePath == "" {
		return fmt.Errorf("logger: file logging enabled without file_path")
	}
	return nil
}
