package cli

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mobile-next/trackcli/commands"
	"github.com/mobile-next/trackcli/hooks"
	"github.com/mobile-next/trackcli/tracker"
	"github.com/mobile-next/trackcli/utils"
)

const version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trackcli",
	Short: "Capture mouse and keyboard events into CSV logs",
	Long:  `Records OS input events (clicks, tracked keys, cursor positions) into a timestamped CSV log, driven from the command line, an interactive console, or a JSON-RPC control server.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	// cfg holds the file-backed settings loaded before any command runs
	cfg tracker.Config

	// captureTracker is the one capture pipeline of this process
	captureTracker *commands.Tracker

	// shutdownHook is injected by main so commands can register cleanups
	// that must run on SIGINT/SIGTERM
	shutdownHook *tracker.ShutdownHook
)

func initConfig() {
	utils.SetVerbose(verbose)

	var err error
	cfg, err = tracker.LoadConfig(configPath)
	if err != nil {
		utils.Warn("Failed to load config: %v", err)
	}

	captureTracker = commands.NewTracker(cfg, hooks.Sources)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.trackcli/config.ini)")
}

// SetShutdownHook wires the process-wide shutdown hook registry. Called once
// from main before Execute.
func SetShutdownHook(hook *tracker.ShutdownHook) {
	shutdownHook = hook
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// registerCaptureShutdown makes SIGINT/SIGTERM stop the session, so the
// final flush happens before the process exits.
func registerCaptureShutdown() {
	if shutdownHook == nil {
		return
	}
	shutdownHook.Register("capture", func() error {
		captureTracker.StopCommand()
		return nil
	})
}

// printJson is a helper function to print JSON responses
func printJson(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(jsonData))
}
