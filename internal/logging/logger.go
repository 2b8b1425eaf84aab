// Package logging builds the process-wide zap logger: level, format, and
// an optional OTel log-bridge core.
package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/config"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// New builds a *zap.Logger from LoggingConfig. Format "console" produces
// human-readable output for local development; anything else (including
// the empty string) produces structured JSON. With OTelEnabled the stdout
// core is teed with an otelzap bridge core emitting to the process's
// global OTel logger provider.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level)
	if cfg.OTelEnabled {
		core = zapcore.NewTee(core, otelzap.NewCore("crawl4ai-core"))
	}
	return zap.New(core, zap.AddCaller()), nil
}

func parseLevel(raw string) (zapcore.Level, error) {
	if raw == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, kberrors.Validation("invalid_log_level", fmt.Sprintf("invalid log level %q", raw))
	}
	return level, nil
}
