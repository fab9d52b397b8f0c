package cli

import (
	"log/slog"
	"os"

	"github.com/me/clustersim/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking CLUSTERSIM_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("CLUSTERSIM_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the clustersim CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clustersim",
		Short: "clustersim: resource-aware job scheduling simulator",
		Long: `clustersim simulates a cluster of resource nodes and a priority queue of
jobs. Remote commands talk to a clustersim server; shell and run drive an
in-process simulation.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(logging.Options{Level: flagLogLevel, Format: flagLogFormat, Writer: cmd.ErrOrStderr()})
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "clustersim server URL (or CLUSTERSIM_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newNodeCmd(),
		newJobCmd(),
		newTickCmd(),
		newStatusCmd(),
		newSnapshotCmd(),
		newShellCmd(),
		newRunCmd(),
	)

	return root
}
