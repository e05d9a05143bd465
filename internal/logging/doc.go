// Package logging provides structured JSON logging with size-based file
// rotation for amanjournal. Logs go to ~/.amanjournal/logs/amanjournal.log by
// default, optionally mirrored to stderr.
//
// The MCP server must never write logs to stdout or stderr, since stdout
// carries the JSON-RPC stream; it runs with WriteToStderr disabled.
package logging
