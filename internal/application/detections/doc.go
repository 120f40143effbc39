// Package detections implements detection ingestion.
//
// The recorder turns a decoded request into a domain.Detection by:
//   - Validating that frequency and magnitude are present
//   - Defaulting the timestamp to the current server time
//   - Appending the detection to the journal
//   - Publishing it to the configured event sinks
//
// A zero frequency or magnitude counts as missing.
package detections
