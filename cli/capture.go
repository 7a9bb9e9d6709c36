package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mobile-next/trackcli/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start capturing input events",
	Long: `Starts capturing input events into the CSV log and keeps recording
until interrupted. With --server, starts capture on a running control server
instead and returns immediately.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if startOnServer {
			return callAndPrint("capture.start", server.CaptureStartParams{IntervalMs: startIntervalMs})
		}

		response := captureTracker.StartCommand(startIntervalMs)
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}

		registerCaptureShutdown()

		// recording continues until SIGINT/SIGTERM, which stops the session
		// through the shutdown hook
		select {}
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop capture on the control server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint("capture.stop", nil)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show capture status from the control server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint("capture.status", nil)
	},
}

var setkeysCmd = &cobra.Command{
	Use:   "setkeys KEY...",
	Short: "Replace the tracked key set on the control server",
	Long:  `Replaces the tracked key set, e.g. "trackcli setkeys Q W CTRL". Valid identifiers are single letters, single digits, CTRL, SHIFT and ALT; anything else is dropped.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint("capture.setkeys", server.CaptureSetKeysParams{Keys: args})
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent capture runs from the control server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return callAndPrint("runs.list", nil)
	},
}

func init() {
	rootCmd.AddCommand(startCmd, stopCmd, statusCmd, setkeysCmd, runsCmd)

	// start command flags
	startCmd.Flags().IntVar(&startIntervalMs, "interval", 0, "position sampler interval in milliseconds (0 keeps the configured value)")
	startCmd.Flags().BoolVar(&startOnServer, "server", false, "start capture on the control server instead of this process")

	// client command flags
	for _, cmd := range []*cobra.Command{startCmd, stopCmd, statusCmd, setkeysCmd, runsCmd} {
		cmd.Flags().StringVar(&serverAddr, "listen", "", "control server address (default from config)")
	}
}
