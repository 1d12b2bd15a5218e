package main

import (
	"io"
	"os"

	"github.com/martinemde/codeagent/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// initLogger configures the global logger. Logs always go to stderr so they
// never mix with the conversation on stdout.
func initLogger(cfg config.LoggingConfig) error {
	var logWriter io.Writer = os.Stderr
	if cfg.LogFormat == "text" {
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.LogFile != "" {
		logWriter = io.MultiWriter(
			logWriter,
			zerolog.ConsoleWriter{
				NoColor: true,
				Out: &lumberjack.Logger{
					Filename:   cfg.LogFile,
					MaxSize:    10, // megabytes
					MaxBackups: 3,
					MaxAge:     28, // days
				},
			})
	}

	logger := zerolog.New(logWriter).With().Timestamp()
	if cfg.WithCaller {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()

	level := zerolog.WarnLevel
	if cfg.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
