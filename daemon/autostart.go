package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"howett.net/plist"
)

const autostartLabel = "com.mobile-next.trackcli"

// launchdAgent models the LaunchAgent property list written by autostart.
type launchdAgent struct {
	Label             string   `plist:"Label"`
	ProgramArguments  []string `plist:"ProgramArguments"`
	RunAtLoad         bool     `plist:"RunAtLoad"`
	KeepAlive         bool     `plist:"KeepAlive"`
	StandardOutPath   string   `plist:"StandardOutPath,omitempty"`
	StandardErrorPath string   `plist:"StandardErrorPath,omitempty"`
}

// AutostartPath returns the LaunchAgent plist location for the current user.
func AutostartPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", autostartLabel+".plist"), nil
}

// InstallAutostart writes a LaunchAgent that starts the RPC server at login
// and returns the plist path. launchd picks it up on the next login; run
// "launchctl load" to activate it immediately.
func InstallAutostart(listenAddr string) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("autostart is only supported on macOS, not %s", runtime.GOOS)
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}

	dir, err := Dir()
	if err != nil {
		return "", err
	}

	agent := launchdAgent{
		Label:             autostartLabel,
		ProgramArguments:  []string{exe, "server", "start", "--listen", listenAddr},
		RunAtLoad:         true,
		KeepAlive:         false,
		StandardOutPath:   filepath.Join(dir, logFileName),
		StandardErrorPath: filepath.Join(dir, logFileName),
	}

	data, err := plist.MarshalIndent(agent, plist.XMLFormat, "\t")
	if err != nil {
		return "", fmt.Errorf("failed to marshal plist: %w", err)
	}

	path, err := AutostartPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// UninstallAutostart removes the LaunchAgent and returns the removed path.
func UninstallAutostart() (string, error) {
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("autostart is only supported on macOS, not %s", runtime.GOOS)
	}

	path, err := AutostartPath()
	if err != nil {
		return "", err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("autostart is not installed")
		}
		return "", fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return path, nil
}
