package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/home-alarm/internal/config"
	"github.com/oshokin/home-alarm/internal/service/ctl"
	"github.com/oshokin/home-alarm/internal/version"
)

var (
	// options holds the connection flags shared by every subcommand.
	options ctl.Options

	// rootCmd represents the base command of the control client.
	rootCmd = &cobra.Command{
		Use:   "alarm-ctl",
		Short: "Control the home alarm server.",
		Long: `Reads the alarm status, changes the arming mode, manages sensors,
sends camera frames and follows the event stream of a running alarm-server.

The server address is taken from the configuration file unless --server is given.`,
		SilenceUsage: true,
	}
)

// Execute runs the alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withSession opens a session for the duration of a subcommand.
func withSession(run func(ctx context.Context, session *ctl.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		opts := options
		opts.Output = cmd.OutOrStdout()

		session, err := ctl.Open(ctx, &opts)
		if err != nil {
			return err
		}

		defer func() {
			_ = session.Close()
		}()

		return run(ctx, session, args)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&options.ServerAddress, "server", "s", "", "server address override")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Print the alarm status, arming mode and sensors.",
			Args:  cobra.NoArgs,
			RunE: withSession(func(ctx context.Context, session *ctl.Session, _ []string) error {
				return session.Status(ctx)
			}),
		},
		&cobra.Command{
			Use:       "arm <disarmed|armed_home|armed_away>",
			Short:     "Change the arming mode.",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"disarmed", "armed_home", "armed_away"},
			RunE: withSession(func(ctx context.Context, session *ctl.Session, args []string) error {
				return session.Arm(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "image <file>",
			Short: "Send a camera frame to the cat classifier.",
			Args:  cobra.ExactArgs(1),
			RunE: withSession(func(ctx context.Context, session *ctl.Session, args []string) error {
				return session.SendImage(ctx, args[0])
			}),
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Print alarm events until interrupted.",
			Args:  cobra.NoArgs,
			RunE: withSession(func(ctx context.Context, session *ctl.Session, _ []string) error {
				return session.Watch(ctx)
			}),
		},
		sensorCommand(),
	)
}

// sensorCommand groups the sensor subcommands.
func sensorCommand() *cobra.Command {
	sensor := &cobra.Command{
		Use:   "sensor",
		Short: "Manage sensors. Types are door, window and motion.",
	}

	sensor.AddCommand(
		&cobra.Command{
			Use:   "add <name> <type>",
			Short: "Register an inactive sensor.",
			Args:  cobra.ExactArgs(2), //nolint:mnd // Name and type.
			RunE: withSession(func(ctx context.Context, session *ctl.Session, args []string) error {
				return session.AddSensor(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "remove <name> <type>",
			Short: "Remove a sensor.",
			Args:  cobra.ExactArgs(2), //nolint:mnd // Name and type.
			RunE: withSession(func(ctx context.Context, session *ctl.Session, args []string) error {
				return session.RemoveSensor(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "activate <name> <type>",
			Short: "Report that a sensor detected something.",
			Args:  cobra.ExactArgs(2), //nolint:mnd // Name and type.
			RunE: withSession(func(ctx context.Context, session *ctl.Session, args []string) error {
				return session.SetSensorActive(ctx, args[0], args[1], true)
			}),
		},
		&cobra.Command{
			Use:   "deactivate <name> <type>",
			Short: "Report that a sensor returned to rest.",
			Args:  cobra.ExactArgs(2), //nolint:mnd // Name and type.
			RunE: withSession(func(ctx context.Context, session *ctl.Session, args []string) error {
				return session.SetSensorActive(ctx, args[0], args[1], false)
			}),
		},
	)

	return sensor
}
