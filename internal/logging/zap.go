// Package logging builds the process logger for voxscribe. Everything goes to
// stderr so stdout stays reserved for transcript contents and paths that
// callers may pipe elsewhere.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Verbose bool
	JSON    bool
}

// New builds the logger the CLI threads through the runner, downloader, and
// doctor. Console mode drops timestamps and callers: transcription runs are
// short-lived and the per-file event stream already carries progress, so the
// level and message are all that matter. Level color follows whether stderr
// is an interactive terminal, keeping redirected batch logs free of escape
// codes.
func New(opts Options) (*zap.Logger, error) {
	interactive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	logger, err := buildConfig(opts, interactive).Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("voxscribe"), nil
}

func buildConfig(opts Options, interactive bool) zap.Config {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	if !opts.JSON {
		cfg = zap.NewDevelopmentConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.TimeKey = ""
		cfg.EncoderConfig.EncodeCaller = nil
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if interactive {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = !opts.Verbose

	return cfg
}
