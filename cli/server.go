package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mobile-next/trackcli/daemon"
	"github.com/mobile-next/trackcli/server"
	"github.com/mobile-next/trackcli/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server management commands",
	Long:  `Commands for managing the trackcli control server.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the control server",
	Long:  `Starts the JSON-RPC control server, exposing capture over HTTP and WebSocket.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr := cmd.Flag("listen").Value.String()
		if listenAddr == "" {
			listenAddr = cfg.Server.Listen
		}

		// GetBool cannot fail for defined flags
		enableCORS, _ := cmd.Flags().GetBool("cors")
		if !cmd.Flags().Changed("cors") {
			enableCORS = cfg.Server.CORS
		}
		isDaemon, _ := cmd.Flags().GetBool("daemon")

		if isDaemon && !daemon.IsChild() {
			_, err := daemon.Daemonize()
			if err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			fmt.Printf("Server daemon spawned, attempting to listen on %s\n", listenAddr)
			return nil
		}

		srv := server.New(captureTracker, server.Options{
			EnableCORS: enableCORS,
			AuthToken:  storedToken(),
		})

		if shutdownHook != nil {
			// drain in-flight requests before the capture hook stops the session
			shutdownHook.Register("server", func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			})
		}
		registerCaptureShutdown()

		return srv.Start(listenAddr)
	},
}

var serverKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the daemonized control server",
	Long:  `Connects to the server and sends a shutdown command via JSON-RPC. Falls back to the pidfile when the server does not answer.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// GetString cannot fail for defined flags
		addr, _ := cmd.Flags().GetString("listen")
		if addr == "" {
			addr = cfg.Server.Listen
		}

		if err := daemon.KillServer(addr, storedToken()); err != nil {
			utils.Warn("shutdown over RPC failed: %v", err)
			if pidErr := daemon.KillByPidfile(); pidErr != nil {
				return err
			}
			fmt.Println("Server killed via pidfile")
			return nil
		}

		fmt.Printf("Server shutdown command sent successfully\n")
		return nil
	},
}

var serverAutostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage launch-at-login for the server",
}

var autostartInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the launchd agent",
	Long:  `Writes a launchd agent so the server starts at login. macOS only.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr := cmd.Flag("listen").Value.String()
		if listenAddr == "" {
			listenAddr = cfg.Server.Listen
		}

		path, err := daemon.InstallAutostart(listenAddr)
		if err != nil {
			return err
		}

		fmt.Printf("Autostart agent installed at %s\n", path)
		return nil
	},
}

var autostartUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the launchd agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := daemon.UninstallAutostart()
		if err != nil {
			return err
		}

		fmt.Printf("Autostart agent removed from %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// add server subcommands
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverKillCmd)
	serverCmd.AddCommand(serverAutostartCmd)
	serverAutostartCmd.AddCommand(autostartInstallCmd)
	serverAutostartCmd.AddCommand(autostartUninstallCmd)

	// server start flags
	serverStartCmd.Flags().String("listen", "", "Address to listen on (e.g., 'localhost:12100' or '0.0.0.0:13000')")
	serverStartCmd.Flags().Bool("cors", false, "Enable CORS support")
	serverStartCmd.Flags().BoolP("daemon", "d", false, "Run server in daemon mode (background)")

	// server kill flags
	serverKillCmd.Flags().String("listen", "", "Address of server to kill (default from config)")

	// autostart flags
	autostartInstallCmd.Flags().String("listen", "", "Address the agent's server listens on (default from config)")
}
