// Package logging builds the process logger and the journal files.
//
// The logger fans out to three sinks:
//   - access.log: INFO and above, rotated by size
//   - error.log: ERROR and above as "Error/Stack" blocks, rotated by size
//   - console: INFO and above
//
// requests.log and detections.log are written by Journal and never rotated.
package logging
