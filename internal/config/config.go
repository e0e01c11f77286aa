// Package config handles exporter configuration loading and management.
package config

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds settings for the glTF baking pipeline.
type ExportConfig struct {
	// Generator is written into the output document's asset block.
	Generator string `yaml:"generator"`
	// Copyright is written into the output document's asset block.
	Copyright string `yaml:"copyright"`
	// Workers is the goroutine count per conversion kernel; 0 means one
	// per CPU.
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Generator: "github.com/Battlehub0x/glTFast",
			Workers:   0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
