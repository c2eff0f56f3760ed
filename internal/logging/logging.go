// Package logging builds the zap loggers used by the pepdb CLI.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

// Off disables logging entirely.
const Off = "off"

// New returns a console logger writing to outputPaths (stderr when none)
// at the named level: debug, info, warn, error or off.
func New(level string, outputPaths ...string) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = DefaultLevel
	}
	if level == Off {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder

	return zap.Config{
		Level:             zap.NewAtomicLevelAt(lvl),
		Encoding:          "console",
		EncoderConfig:     encoder,
		DisableStacktrace: lvl > zapcore.DebugLevel,
		OutputPaths:       outputPaths,
		ErrorOutputPaths:  outputPaths,
	}.Build()
}
