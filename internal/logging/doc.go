// Package logging provides file-based logging with rotation for the
// search engine. Logs are written as JSON to ~/.codesearch/logs/.
//
// DefaultConfig logs at info level to the file and to stderr;
// DebugConfig lowers the level to debug.
package logging
