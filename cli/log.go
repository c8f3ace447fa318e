package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	flagLogLevel  = "loglevel"
	flagLogFormat = "logformat"
)

func registerLoggingFlags(flags *pflag.FlagSet) {
	flags.String(flagLogLevel, "warn", "set the log level (debug, info, warn, error)")
	flags.StringP(flagLogFormat, "f", "text", "set the log format (text, json)")
}

func getBaseLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := getLoggerLevel(cmd)
	if err != nil {
		return nil, err
	}

	format := cmd.Flag(flagLogFormat).Value.String()
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: level,
		})
	case "text":
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: level,
		})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	return slog.New(handler), nil
}

func getLoggerLevel(cmd *cobra.Command) (slog.Level, error) {
	var level slog.Level
	switch raw := cmd.Flag(flagLogLevel).Value.String(); raw {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level: %s", raw)
	}
	return level, nil
}
