package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/home-alarm/internal/config"
	"github.com/oshokin/home-alarm/internal/service/server"
	"github.com/oshokin/home-alarm/internal/version"
)

var (
	// options collects the flag values passed to server.Run.
	options server.Options

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "alarm-server [listen-address]",
		Short: "Run the home alarm gRPC server.",
		Long: `Starts the gRPC server that owns the alarm status and decides on every
sensor report, camera frame and arming change.

Only the port from server_addr in the configuration file is used for listening
(e.g., :50051). A listen address argument overrides it (e.g., :9090, 0.0.0.0:8080).
Sensors and statuses are persisted with the configured storage driver
(memory, file or badger). Prometheus metrics and a health probe are served on
metrics_addr when it is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			if len(args) > 0 {
				options.ListenAddress = args[0]
			}

			return server.Run(ctx, &options)
		},
	}
)

// Execute runs the alarm-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&options.StorageDriver, "storage", "s", "", "storage driver override (memory, file, badger)")
	flags.StringVar(&options.StatePath, "state-path", "", "state file or database directory override")
	flags.StringVarP(&options.MetricsAddress, "metrics-addr", "m", "", "metrics endpoint address override")
	flags.StringVarP(&options.LogLevel, "log-level", "l", "", "log level override (debug, info, warn, error)")
}
