// Package files groups the file handling used by the pipeline.
//
// Sub-packages:
//   - filesystem: file operations behind an interface (OS and in-memory)
package files
