package tracker

import (
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	"github.com/mobile-next/trackcli/utils"
)

// Config holds the file-backed settings. Command line flags override
// anything loaded from the file.
type Config struct {
	Capture CaptureConfig
	Server  ServerConfig
}

// CaptureConfig is the [capture] section of the config file.
type CaptureConfig struct {
	Output           string
	PollIntervalMs   int
	FlushIntervalSec int
	Keys             []string
}

// ServerConfig is the [server] section of the config file.
type ServerConfig struct {
	Listen string
	CORS   bool
}

// DefaultConfig returns the built-in settings used when no config file
// exists.
func DefaultConfig() Config {
	return Config{
		Capture: CaptureConfig{
			Output:           "input_log.csv",
			PollIntervalMs:   int(DefaultPollInterval.Milliseconds()),
			FlushIntervalSec: int(DefaultFlushInterval.Seconds()),
		},
		Server: ServerConfig{
			Listen: "localhost:12100",
		},
	}
}

// DefaultConfigPath returns ~/.trackcli/config.ini, or an empty string when
// the home directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".trackcli", "config.ini")
}

// LoadConfig reads settings from an ini file, falling back to defaults for
// anything absent. A missing file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniConfig, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}

	capture := iniConfig.Section("capture")
	cfg.Capture.Output = capture.Key("output").MustString(cfg.Capture.Output)
	cfg.Capture.PollIntervalMs = capture.Key("poll_interval_ms").MustInt(cfg.Capture.PollIntervalMs)
	cfg.Capture.FlushIntervalSec = capture.Key("flush_interval_sec").MustInt(cfg.Capture.FlushIntervalSec)
	if keys := capture.Key("keys").Strings(","); len(keys) > 0 {
		cfg.Capture.Keys = keys
	}

	server := iniConfig.Section("server")
	cfg.Server.Listen = server.Key("listen").MustString(cfg.Server.Listen)
	cfg.Server.CORS = server.Key("cors").MustBool(cfg.Server.CORS)

	utils.Verbose("Loaded config from %s", path)
	return cfg, nil
}
