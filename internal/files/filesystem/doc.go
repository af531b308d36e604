// Package filesystem provides the file operations used by the pipeline tasks.
//
// Implementations:
//   - OSFileSystem: production implementation on the host filesystem
//   - MemoryFileSystem: in-memory implementation for tests, with injectable Remove failures
package filesystem
