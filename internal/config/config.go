// Package config provides YAML-based configuration loading for Garage.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Garage configuration, loaded from garage.yaml.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Uploads     UploadsConfig     `yaml:"uploads"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Seed        []SeedBuild       `yaml:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds connection settings for the record database.
// Driver is "sqlite" (default) or "mysql".
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// UploadsConfig holds settings for the image content directory.
type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// MaintenanceConfig holds schedules for background maintenance jobs.
// OrphanScan is a 5-field cron expression; empty disables the scan.
type MaintenanceConfig struct {
	OrphanScan string `yaml:"orphan_scan"`
}

// SeedBuild is a catalog record seeded at init time. Seeding is
// insert-if-absent: an existing row with the same id is never overwritten.
type SeedBuild struct {
	ID            string    `yaml:"id"`
	Name          string    `yaml:"name"`
	Category      string    `yaml:"category"`
	Year          int       `yaml:"year"`
	Description   string    `yaml:"description"`
	Modifications string    `yaml:"modifications"`
	Image         string    `yaml:"image"`
	Specs         SeedSpecs `yaml:"specs"`
}

// SeedSpecs holds the optional spec fields of a seeded build.
type SeedSpecs struct {
	Engine   string `yaml:"engine"`
	Power    string `yaml:"power"`
	Torque   string `yaml:"torque"`
	Weight   string `yaml:"weight"`
	TopSpeed string `yaml:"topSpeed"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file exists:
// SQLite in the working directory, uploads/ next to it.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "garage.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.Name == "" {
			c.Database.Name = "garage"
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	for i, s := range c.Seed {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("seed[%d].id is required", i))
		}
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("seed[%d].name is required", i))
		}
		if s.Category == "" {
			errs = append(errs, fmt.Sprintf("seed[%d].category is required", i))
		}
		if s.Year == 0 {
			errs = append(errs, fmt.Sprintf("seed[%d].year is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
