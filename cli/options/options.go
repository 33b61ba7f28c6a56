// Package options holds the flags and config/logger bootstrap helpers
// shared by every subcommand: GetConfigFromContext's config-path
// resolution and HandleLoggingParams's zap.Config construction.
package options

import (
	"fmt"
	"os"
	"time"

	"github.com/nspcc-dev/network-map-service/pkg/config"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	// Config is the path to the service's YAML config file.
	Config = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the network map service config file",
		Value:   "config.yml",
	}
	// Debug forces debug-level logging regardless of the config file.
	Debug = &cli.BoolFlag{
		Name:    "debug",
		Aliases: []string{"d"},
		Usage:   "Enable debug logging",
	}
	// ForceTimestampLogs forces timestamped log entries even when stdout
	// is not a terminal (useful when output is captured by a supervisor
	// that itself doesn't add timestamps).
	ForceTimestampLogs = &cli.BoolFlag{
		Name:  "force-timestamp-logs",
		Usage: "Force timestamps in logs even when output is not a TTY",
	}
)

// Flags is the common flag set every subcommand accepts.
var Flags = []cli.Flag{Config, Debug, ForceTimestampLogs}

// GetConfigFromContext loads and validates config.Config from the path
// named by the --config flag.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	path := ctx.String("config")
	if path == "" {
		return config.Config{}, fmt.Errorf("no config path given")
	}
	return config.Load(path)
}

// HandleLoggingParams builds a zap.Logger from cfg.Logger, honoring the
// --debug and --force-timestamp-logs flags.
func HandleLoggingParams(ctx *cli.Context, cfg config.Logger) (*zap.Logger, *zap.AtomicLevel, error) {
	level := zapcore.InfoLevel
	encoding := "console"
	var err error

	if cfg.Level != "" {
		level, err = zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if cfg.Encoding != "" {
		encoding = cfg.Encoding
	}
	if ctx != nil && ctx.Bool("debug") {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	wantTimestamps := cfg.Timestamp != nil && *cfg.Timestamp
	if term.IsTerminal(int(os.Stdout.Fd())) || (ctx != nil && ctx.Bool("force-timestamp-logs")) || wantTimestamps {
		cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cc.EncoderConfig.EncodeTime = func(time.Time, zapcore.PrimitiveArrayEncoder) {}
	}
	cc.Encoding = encoding
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if cfg.Path != "" {
		cc.OutputPaths = []string{cfg.Path}
		cc.ErrorOutputPaths = []string{cfg.Path}
	}

	log, err := cc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, &cc.Level, nil
}
