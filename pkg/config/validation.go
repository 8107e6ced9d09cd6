package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/fileshare/internal/telemetry"
	"github.com/marmos91/fileshare/pkg/session"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules that span several
// fields. It does not modify cfg.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return errors.New("telemetry is enabled but telemetry.endpoint is empty")
	}
	if err := validateProfiling(&cfg.Telemetry.Profiling); err != nil {
		return err
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		return err
	}
	if _, err := session.NewAuthenticator(cfg.Auth.Username, cfg.Auth.Password, cfg.Auth.PasswordHash); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return validatePorts(cfg)
}

// validatePorts rejects two enabled listeners on the same port.
func validatePorts(cfg *Config) error {
	used := map[int]string{cfg.Server.Port: "server.port"}
	listeners := []struct {
		key     string
		port    int
		enabled bool
	}{
		{"metrics.port", cfg.Metrics.Port, cfg.Metrics.Enabled},
		{"api.port", cfg.API.Port, cfg.API.IsEnabled()},
	}
	for _, l := range listeners {
		if !l.enabled {
			continue
		}
		if other, taken := used[l.port]; taken {
			return fmt.Errorf("%s and %s are both %d", other, l.key, l.port)
		}
		used[l.port] = l.key
	}
	return nil
}

func validateProfiling(cfg *ProfilingConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Endpoint == "" {
		return errors.New("profiling is enabled but telemetry.profiling.endpoint is empty")
	}
	for _, pt := range cfg.ProfileTypes {
		if !telemetry.ValidProfileType(pt) {
			return fmt.Errorf("unknown profile type %q (valid: %v)", pt, telemetry.ProfileTypeNames)
		}
	}
	return nil
}

// validateStorage rejects areas that share a directory; moving a file to
// the trash would otherwise be a no-op.
func validateStorage(cfg *StorageConfig) error {
	seen := make(map[string]string, 3)
	for _, area := range []struct{ key, dir string }{
		{"storage.upload_dir", cfg.UploadDir},
		{"storage.trash_dir", cfg.TrashDir},
		{"storage.static_dir", cfg.StaticDir},
	} {
		abs, err := filepath.Abs(area.dir)
		if err != nil {
			return fmt.Errorf("%s: %w", area.key, err)
		}
		if other, dup := seen[abs]; dup {
			return fmt.Errorf("%s and %s point to the same directory %s", other, area.key, abs)
		}
		seen[abs] = area.key
	}
	return nil
}
