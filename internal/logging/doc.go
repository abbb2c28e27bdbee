// Package logging provides structured, rotated file logging for the
// folder indexing engine, built on log/slog.
//
// By default logs are minimal and go to stderr only; Setup with a Config
// enables a rotating JSON log file under ~/.folder-mcp/logs/.
package logging
