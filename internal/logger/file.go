package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileOptions configures rotated file output.
type FileOptions struct {
	// Pattern is a strftime-style file name, e.g. "panel-sentinel-%Y-%m-%d-%H.log".
	Pattern string
	// MaxAge is how long rotated files are kept.
	MaxAge time.Duration
	// RotationTime is how often a new file is started.
	RotationTime time.Duration
	// Level raises the minimum level of the file sink above the console one.
	// Nil keeps the file in step with the console.
	Level zapcore.LevelEnabler
}

// NewWithFile creates a logger that writes to stdout and to a rotated file.
// The returned closer releases the file handle.
func NewWithFile(level zapcore.LevelEnabler, opts FileOptions, options ...zap.Option) (*zap.SugaredLogger, io.Closer, error) {
	if level == nil {
		level = sharedLevel
	}

	fileLevel := level
	if opts.Level != nil {
		fileLevel = zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return level.Enabled(l) && opts.Level.Enabled(l)
		})
	}

	rotated, err := rotatelogs.New(
		opts.Pattern,
		rotatelogs.WithMaxAge(opts.MaxAge),
		rotatelogs.WithRotationTime(opts.RotationTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("open rotated log %q: %w", opts.Pattern, err)
	}

	//nolint:exhaustruct // Default values are fine for the rest of the encoder.
	fileEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		MessageKey:     "message",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder(), zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(fileEncoder, zapcore.AddSync(rotated), fileLevel),
	)

	return zap.New(core, options...).Sugar(), rotated, nil
}
