// Package events provides detection event publishers.
//
// Implementations:
//   - memory: in-process fan-out hub feeding the live stream
//   - redis: Redis Streams forwarder (optional)
//
// Multi combines several publishers behind one ports.EventPublisher.
package events
