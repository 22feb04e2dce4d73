// Package logger configures the process-wide structured logger and hands out
// component- and plugin-scoped children of it.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the global logger instance, configured by Initialize.
var Log zerolog.Logger

// Initialize sets up the global logger with the given level and format.
func Initialize(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Log = log.With().Str("service", "brains-host").Logger()

	Log.Info().Str("level", logLevel.String()).Bool("pretty", pretty).Msg("logger initialized")
}

// GetLogger returns the global logger instance.
func GetLogger() *zerolog.Logger {
	return &Log
}

// Plugin returns a logger scoped to a single plugin, used by the core-tier
// context so every log line a plugin emits carries its id without the
// plugin doing any of its own tagging.
func Plugin(pluginID string) zerolog.Logger {
	return Log.With().Str("component", "plugin").Str("plugin", pluginID).Logger()
}

// Bus returns a logger scoped to the message bus.
func Bus() zerolog.Logger {
	return Log.With().Str("component", "bus").Logger()
}

// Jobs returns a logger scoped to the job scheduler.
func Jobs() zerolog.Logger {
	return Log.With().Str("component", "jobs").Logger()
}

// Daemon returns a logger scoped to the daemon registry.
func Daemon() zerolog.Logger {
	return Log.With().Str("component", "daemon").Logger()
}

// Manager returns a logger scoped to the plugin manager.
func Manager() zerolog.Logger {
	return Log.With().Str("component", "plugin-manager").Logger()
}

// Progress returns a logger scoped to progress routing, optionally tagged
// with the owning interface id.
func Progress(interfaceType string) zerolog.Logger {
	return Log.With().Str("component", "progress").Str("interface", interfaceType).Logger()
}
