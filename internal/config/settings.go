package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint    = "https://geobigdata.io"
	DefaultWaitTimeout = time.Hour
)

// Settings configures the command-line tool. They are read from
// ~/.gbdx/config.yml and can be overridden from the environment.
type Settings struct {
	Endpoint     string        `yaml:"endpoint,omitempty"`
	Token        string        `yaml:"token,omitempty"`
	DockerHost   string        `yaml:"docker_host,omitempty"`
	DockerConfig string        `yaml:"docker_config,omitempty"`
	WaitTimeout  time.Duration `yaml:"wait_timeout,omitempty"`
}

// DefaultSettingsPath returns ~/.gbdx/config.yml for the given home directory.
func DefaultSettingsPath(homeDir string) string {
	return filepath.Join(homeDir, ".gbdx", "config.yml")
}

// LoadSettings reads a settings file. A missing file yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := &Settings{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("could not read settings file: %w", err)
	default:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("could not unmarshal settings: %w", err)
		}
	}

	settings.applyDefaults()
	return settings, nil
}

// ApplyEnv overrides settings from GBDX_ENDPOINT, GBDX_TOKEN and DOCKER_HOST.
func (s *Settings) ApplyEnv(getenv func(string) string) {
	if v := getenv("GBDX_ENDPOINT"); v != "" {
		s.Endpoint = strings.TrimSuffix(v, "/")
	}
	if v := getenv("GBDX_TOKEN"); v != "" {
		s.Token = v
	}
	if v := getenv("DOCKER_HOST"); v != "" {
		s.DockerHost = v
	}
}

func (s *Settings) applyDefaults() {
	if s.Endpoint == "" {
		s.Endpoint = DefaultEndpoint
	}
	s.Endpoint = strings.TrimSuffix(s.Endpoint, "/")
	if s.WaitTimeout <= 0 {
		s.WaitTimeout = DefaultWaitTimeout
	}
}
