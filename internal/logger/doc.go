// Package logger wraps zap with a global sugared logger, context helpers
// (ToContext, FromContext, WithName, WithKV, WithFields) and level parsing.
//
// NewWithFile adds a JSON copy of the entries to a file rotated by
// file-rotatelogs, optionally at a stricter level than the console.
// Services take a context and log through it, so a per-building or
// per-phase logger is a single WithKV call away.
package logger
