package internal

import (
	"os"
	"path/filepath"

	"github.com/dangazineu/gbdx/internal/config"
	"github.com/dangazineu/gbdx/internal/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadSettings reads the settings file named by --config, then applies the
// environment and the --endpoint flag on top.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	endpoint, _ := cmd.Flags().GetString("endpoint")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		configPath = config.DefaultSettingsPath(homeDir)
	}

	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}
	settings.ApplyEnv(os.Getenv)
	if endpoint != "" {
		settings.Endpoint = endpoint
	}
	if settings.DockerConfig == "" {
		settings.DockerConfig = filepath.Join(homeDir, ".docker", "config.json")
	}
	return settings, nil
}

func newAPIClient(cmd *cobra.Command, logger *zap.Logger) (*registry.Client, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	return registry.NewClient(settings.Endpoint, settings.Token, registry.WithLogger(logger)), nil
}
