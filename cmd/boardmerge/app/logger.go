package app

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/tobiasrohr/FInal-merger/pkg/logging"
)

var validLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NewLogger creates the diagnostic logger. Problems with the requested level
// are reported on warnings. Level precedence, highest first:
//  1. --log-level (or LOG_LEVEL)
//  2. -q/--quiet, which beats -v/--verbose
//  3. -v/--verbose
//  4. info
func NewLogger(config *Config, warnings io.Writer) zerolog.Logger {
	level := determineLogLevel(config, warnings)
	return logging.NewLoggerFromConfig(&logging.Config{
		Level:      level,
		Format:     config.LogFormat,
		Output:     config.LogOutput,
		TimeFormat: "kitchen",
		NoColor:    config.NoColor,
		AddCaller:  level == "debug" || level == "trace",
	})
}

func determineLogLevel(config *Config, warnings io.Writer) string {
	if config.LogLevel != "" {
		if validLevels[config.LogLevel] {
			return config.LogLevel
		}
		fmt.Fprintf(warnings, "Warning: invalid log level %q, using \"info\"\n", config.LogLevel)
		return "info"
	}
	switch {
	case config.Verbose && config.Quiet:
		fmt.Fprintf(warnings, "Warning: both --verbose and --quiet specified, using --quiet\n")
		return "warn"
	case config.Quiet:
		return "warn"
	case config.Verbose:
		return "debug"
	}
	return "info"
}
