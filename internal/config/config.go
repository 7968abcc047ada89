// Package config loads repository maintenance settings from a yaml file and
// merges CLI overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dcaro/repoman/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// RPMConfig tunes the RPM artifact family.
type RPMConfig struct {
	// DistroPattern extracts the distribution token from release strings.
	DistroPattern string `yaml:"distro_pattern"`
	// ToAllDistros lists package-name patterns that apply to every
	// distribution.
	ToAllDistros []string `yaml:"to_all_distros"`
}

// CreaterepoConfig tunes yum metadata generation.
type CreaterepoConfig struct {
	// Compression for primary.xml: gz, xz or zst.
	Compression string `yaml:"compression"`
}

// Config holds one run's settings.
type Config struct {
	TempDir           string   `yaml:"temp_dir"`
	Stores            []string `yaml:"stores"`
	SigningKey        string   `yaml:"signing_key"`
	SigningPassphrase string   `yaml:"signing_passphrase"`
	OnlyIfNewer       bool     `yaml:"onlyifnewer"`
	WithSources       bool     `yaml:"with_sources"`

	RPM        RPMConfig        `yaml:"rpm"`
	Createrepo CreaterepoConfig `yaml:"createrepo"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Stores: []string{"rpm", "generic"},
		Createrepo: CreaterepoConfig{
			Compression: "gz",
		},
	}
}

// Load reads a yaml config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.RepoError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to read config %s: %w", path, err),
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &models.RepoError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to parse config %s: %w", path, err),
		}
	}

	logrus.Debugf("Loaded config from %s", path)
	return cfg, nil
}

// ApplyOption applies one section.option=value override, the same dotted
// addressing the config file uses.
func (c *Config) ApplyOption(expr string) error {
	key, value, found := strings.Cut(expr, "=")
	if !found || !strings.Contains(key, ".") {
		return &models.RepoError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("invalid option %q, want section.option=value", expr),
		}
	}

	switch key {
	case "main.temp_dir":
		c.TempDir = value
	case "main.stores":
		c.Stores = splitList(value)
	case "main.signing_key":
		c.SigningKey = value
	case "main.signing_passphrase":
		c.SigningPassphrase = value
	case "main.onlyifnewer":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &models.RepoError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("invalid boolean for %s: %q", key, value),
			}
		}
		c.OnlyIfNewer = b
	case "main.with_sources":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &models.RepoError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("invalid boolean for %s: %q", key, value),
			}
		}
		c.WithSources = b
	case "rpm.distro_pattern":
		c.RPM.DistroPattern = value
	case "rpm.to_all_distros":
		c.RPM.ToAllDistros = splitList(value)
	case "createrepo.compression":
		c.Createrepo.Compression = value
	default:
		return &models.RepoError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("unknown option %q", key),
		}
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
