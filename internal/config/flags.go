package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagVerbose = flag.Bool("v", false, "Enable debug logging")
	flagWorkers = flag.Int("workers", 0, "Conversion worker count (0 = one per CPU)")
	flagLogFile = flag.String("log-file", "", "Write logs to a rotated file")
	flagWrite   = flag.Bool("write-config", false, "Write the effective config to the user config directory and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigRequested reports whether -write-config was given.
func WriteConfigRequested() bool {
	return *flagWrite
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagVerbose {
		cfg.Logging.Level = "debug"
	}
	if *flagWorkers > 0 {
		cfg.Export.Workers = *flagWorkers
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
