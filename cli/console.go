package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mobile-next/trackcli/commands"
	"github.com/mobile-next/trackcli/types"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the interactive capture console",
	Long: `Runs an interactive prompt for driving capture in the foreground.

Commands:
  start [intervalMs]   start capture, optionally overriding the poll interval
  stop                 stop capture and flush the log
  setkeys KEY [KEY...] replace the tracked key set
  status               print the session status as JSON
  exit                 stop capture if running and quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registerCaptureShutdown()
		return runConsole(os.Stdin, os.Stdout)
	},
}

// runConsole reads commands from in until exit or EOF. Malformed input is
// reported on out and leaves the capture state untouched.
func runConsole(in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Interactive capture console. Commands: start [intervalMs], stop, setkeys KEY..., status, exit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			// EOF behaves like exit
			exitConsole(out)
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "start":
			interval := 0
			if len(fields) > 1 {
				n, err := strconv.Atoi(fields[1])
				if err != nil || n <= 0 {
					fmt.Fprintf(out, "Invalid interval: %s\n", fields[1])
					continue
				}
				interval = n
			}
			printConsoleResult(out, captureTracker.StartCommand(interval))

		case "stop":
			printConsoleResult(out, captureTracker.StopCommand())

		case "setkeys":
			if len(fields) < 2 {
				fmt.Fprintln(out, "Usage: setkeys KEY [KEY ...]")
				continue
			}
			printConsoleResult(out, captureTracker.SetKeysCommand(fields[1:]))

		case "status":
			resp := captureTracker.StatusCommand()
			data, err := json.MarshalIndent(resp.Data, "", "  ")
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, string(data))

		case "exit":
			exitConsole(out)
			return nil

		default:
			fmt.Fprintf(out, "Unknown command: %s\n", fields[0])
		}
	}
}

// printConsoleResult prints the one-line human message for a lifecycle
// command, or the error.
func printConsoleResult(out io.Writer, resp *commands.CommandResponse) {
	if resp.Status != "ok" {
		fmt.Fprintf(out, "Error: %s\n", resp.Error)
		return
	}

	switch data := resp.Data.(type) {
	case types.StartResult:
		fmt.Fprintln(out, data.Message)
	case types.StopResult:
		fmt.Fprintln(out, data.Message)
	case types.SetKeysResult:
		fmt.Fprintln(out, data.Message)
	}
}

// exitConsole stops a running capture on the way out. Nothing is printed when
// capture was already idle.
func exitConsole(out io.Writer) {
	resp := captureTracker.StopCommand()
	if data, ok := resp.Data.(types.StopResult); ok && data.Changed {
		fmt.Fprintln(out, data.Message)
	}
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
