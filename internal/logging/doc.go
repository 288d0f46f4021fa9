// Package logging provides file-based structured logging with rotation for RAM.
// Logs are JSON lines written to ~/.ragged_memory/logs/ram.log. With --debug the
// level drops to debug and entries are mirrored to stderr.
package logging
