// Package logging provides concrete implementations of the moviepipe.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: zap-backed, human-readable lines on stderr
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
