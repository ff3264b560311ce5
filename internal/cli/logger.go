package cli

import (
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"crmgrip/internal/config"
)

var globalLogger *slog.Logger

// configureLogger configures the global slog logger.
//
// Logs go to a rotating file; the terminal belongs to the UI. logPath
// overrides the configured file name.
func configureLogger(cfg *config.Config, logPath string) *slog.Logger {
	if strings.TrimSpace(logPath) == "" {
		logPath = cfg.Log.Filename
	}
	if strings.TrimSpace(logPath) == "" {
		logPath = config.DefaultConfig().Log.Filename
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.SlogLevel(),
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	return globalLogger
}
