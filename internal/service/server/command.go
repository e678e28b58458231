package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/home-alarm/internal/api/grpc/security"
	"github.com/oshokin/home-alarm/internal/config"
	"github.com/oshokin/home-alarm/internal/logger"
	"github.com/oshokin/home-alarm/internal/metrics"
	"github.com/oshokin/home-alarm/internal/version"
)

// Options controls the alarm-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// MetricsAddress overrides the metrics endpoint address from config.
	MetricsAddress string
	// StorageDriver overrides the storage driver from config.
	StorageDriver string
	// StatePath overrides the state file or database directory from config.
	StatePath string
	// LogLevel overrides the log level from config.
	LogLevel string
}

var (
	// ErrNoServerAddress indicates missing server configuration.
	ErrNoServerAddress = errors.New("no server address configured")
	// errInvalidLogLevel is returned for an unknown log level name.
	errInvalidLogLevel = errors.New("invalid log level")
)

// Run starts the gRPC server and the metrics endpoint, and blocks until the
// context is canceled or one of them fails.
//
//nolint:funlen // Startup wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-server")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repository, closer, err := openRepository(ctx, settings.Storage)
	if err != nil {
		return err
	}

	defer func() {
		if err := closer.Close(); err != nil {
			logger.ErrorKV(ctx, "Failed to close storage", "error", err)
		}
	}()

	detector, err := newClassifier(settings.Classifier)
	if err != nil {
		return err
	}

	engine, err := newEngine(settings, repository, detector)
	if err != nil {
		return fmt.Errorf("initialise engine: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	listener := metrics.NewListener(registry)

	current, err := engine.AlarmStatus(ctx)
	if err != nil {
		return fmt.Errorf("read alarm status: %w", err)
	}

	listener.SetStatus(current)

	if err = engine.AddStatusListener(listener); err != nil {
		return fmt.Errorf("register metrics listener: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterSecurityServiceServer(grpcServer, api.NewServer(engine, api.WithDroppedReporter(listener.AddDropped)))

	logger.InfoKV(ctx, "Alarm server listening",
		"listen_address", listenAddress,
		"storage", settings.Storage.Driver,
		"state_path", settings.Storage.Path,
		"classifier", settings.Classifier.Driver,
		"alarm_status", current,
		"version", version.Short(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	var httpServer *http.Server

	if settings.MetricsAddress != "" {
		httpServer = &http.Server{
			Addr: settings.MetricsAddress,
			Handler: metrics.NewRouter(registry, func(ctx context.Context) error {
				_, err := engine.AlarmStatus(ctx)

				return err
			}),
			ReadHeaderTimeout: settings.Timeout,
		}

		g.Go(func() error {
			logger.InfoKV(ctx, "Metrics endpoint listening", "metrics_address", settings.MetricsAddress)

			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down servers")

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorKV(ctx, "Failed to stop metrics endpoint", "error", err)
			}
		}

		grpcServer.GracefulStop()

		return nil
	})

	err = g.Wait()

	engine.RemoveStatusListener(listener)
	logger.Info(ctx, "GRPC server stopped")

	return err
}

// loadSettings reads the config file and applies command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.MetricsAddress != "" {
		settings.MetricsAddress = opts.MetricsAddress
	}

	if opts.StorageDriver != "" && opts.StorageDriver != settings.Storage.Driver {
		settings.Storage = config.Storage{Driver: opts.StorageDriver}
	}

	if opts.StatePath != "" {
		settings.Storage.Path = opts.StatePath
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	if err = config.Validate(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	level, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errInvalidLogLevel, settings.LogLevel)
	}

	logger.SetLevel(level)

	return settings, nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
