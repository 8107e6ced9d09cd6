package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/fileshare/internal/logger"
	"github.com/marmos91/fileshare/internal/telemetry"
	"github.com/marmos91/fileshare/pkg/adapter/gateway"
	"github.com/marmos91/fileshare/pkg/api"
	"github.com/marmos91/fileshare/pkg/config"
	"github.com/marmos91/fileshare/pkg/metrics"
	"github.com/marmos91/fileshare/pkg/metrics/prometheus"
	"github.com/marmos91/fileshare/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	pidFile   string
	startPort int
	startBind string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the fileshare server",
	Long: `Start the fileshare server in the foreground.

The file port accepts one connection at a time. Each connection is sniffed
and served either as HTTP (browser interface) or as the command protocol
used by "fileshare client".

Without --config the default location $XDG_CONFIG_HOME/fileshare/config.yaml
is used when present; otherwise built-in defaults apply.

Examples:
  # Start with defaults on port 8080
  fileshare start

  # Start on another port
  fileshare start --port 9000

  # Start with a custom config file
  fileshare start --config /etc/fileshare/config.yaml

  # Start with environment variable overrides
  FILESHARE_LOGGING_LEVEL=DEBUG fileshare start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Write the process id to this file while running")
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "Override server.port")
	startCmd.Flags().StringVar(&startBind, "bind", "", "Override server.bind_address")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(GetConfigFile())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = startPort
	}
	if cmd.Flags().Changed("bind") {
		cfg.Server.BindAddress = startBind
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.TelemetryConfig(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(cfg.ProfilingConfig(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	// The registry must exist before the gateway metrics are built.
	var (
		gatewayMetrics metrics.GatewayMetrics
		metricsServer  *metrics.Server
	)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		gatewayMetrics = prometheus.NewGatewayMetrics()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	store, err := storage.New(cfg.StorageConfig())
	if err != nil {
		return err
	}
	if err := store.EnsureLayout(); err != nil {
		return err
	}
	logger.Info("Storage ready",
		"uploads", store.Dir(storage.AreaUpload),
		"trash", store.Dir(storage.AreaTrash),
		"static", store.Dir(storage.AreaStatic))

	auth, err := cfg.Authenticator()
	if err != nil {
		return fmt.Errorf("failed to configure credentials: %w", err)
	}
	if !auth.UsesHash() && cfg.Auth.Password == config.DefaultPassword {
		logger.Warn("Using the default password; set auth.password_hash (see 'fileshare hash-password')")
	}

	gw := gateway.New(cfg.GatewayConfig(), store, auth, gatewayMetrics)

	var apiServer *api.Server
	if cfg.API.IsEnabled() {
		apiServer = api.NewServer(cfg.API, store, gw)
		logger.Info("API server enabled", "port", cfg.API.Port)
	}

	if pidFile != "" {
		remove, err := writePIDFile(pidFile)
		if err != nil {
			return err
		}
		defer remove()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- gw.Serve(ctx)
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error", logger.Err(err))
			}
		}()
	}
	if apiServer != nil {
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				logger.Error("API server error", logger.Err(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.", logger.Addr(gw.GetListenerAddr()))

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
