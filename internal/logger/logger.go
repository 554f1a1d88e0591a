package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// global backs FromContext when a context carries no logger.
	//nolint:gochecknoglobals // One process-wide logger, replaced once at startup.
	global *zap.SugaredLogger
	// sharedLevel is the minimum level of every logger built without an explicit one.
	//nolint:gochecknoglobals // SetLevel must reach loggers that were already built.
	sharedLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() { //nolint:gochecknoinits // Packages log before Run configures anything.
	SetLogger(New(nil))
}

// New builds a console logger on stdout. A nil level means the shared level.
func New(level zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	if level == nil {
		level = sharedLevel
	}

	return zap.New(zapcore.NewCore(consoleEncoder(), zapcore.AddSync(os.Stdout), level), options...).Sugar()
}

//nolint:ireturn // zapcore.NewConsoleEncoder returns an interface.
func consoleEncoder() zapcore.Encoder {
	//nolint:exhaustruct // Unset keys are omitted from the output.
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "message",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: ", ",
	})
}

// ParseLogLevel maps a config value such as "warn" to a zap level.
// The second result is false for anything zap does not know.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return zapcore.InfoLevel, false
	}

	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, false
	}

	return level, true
}

// Logger returns the process-wide logger.
func Logger() *zap.SugaredLogger {
	return global
}

// SetLogger replaces the process-wide logger. Call it before starting goroutines.
func SetLogger(l *zap.SugaredLogger) {
	global = l
}

// SetLevel changes the shared level, including for loggers already built with it.
func SetLevel(level zapcore.Level) {
	sharedLevel.SetLevel(level)

	_ = global.Sync()
}

// Debug logs args at debug level.
func Debug(ctx context.Context, args ...any) {
	FromContext(ctx).Debug(args...)
}

// DebugKV logs message with key-value pairs at debug level.
func DebugKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Debugw(message, kvs...)
}

// Info logs args at info level.
func Info(ctx context.Context, args ...any) {
	FromContext(ctx).Info(args...)
}

// InfoKV logs message with key-value pairs at info level.
func InfoKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Infow(message, kvs...)
}

// Warn logs args at warn level.
func Warn(ctx context.Context, args ...any) {
	FromContext(ctx).Warn(args...)
}

// WarnKV logs message with key-value pairs at warn level.
func WarnKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Warnw(message, kvs...)
}

// ErrorKV logs message with key-value pairs at error level.
func ErrorKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Errorw(message, kvs...)
}
