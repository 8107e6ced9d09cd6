package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig honours an explicit --config strictly and otherwise falls back
// to defaults when no file exists at the default location.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.MustLoad(path)
	}
	return config.Load("")
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// writePIDFile records the current process id and returns a func that
// removes the file again.
func writePIDFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID file directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}
	return func() { _ = os.Remove(path) }, nil
}
