// Package logger is a thin factory over log/slog with functional options for
// level, format and destination. Services in this module accept a
// *slog.Logger and default to Discard so instrumentation never becomes a
// hard dependency.
package logger
