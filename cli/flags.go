package cli

var (
	verbose bool

	// path to the config file, empty means ~/.trackcli/config.ini
	configPath string

	// for start command
	startIntervalMs int
	startOnServer   bool

	// control server address for client commands (stop, status, setkeys, runs)
	serverAddr string
)
