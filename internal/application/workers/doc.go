// Package workers provides the asynchronous forwarding pool placed in front
// of remote event sinks.
//
// Publish only enqueues. A fixed number of workers drain the queue and call
// the wrapped publisher with a per-forward timeout. When the queue is full
// the detection is refused with ErrQueueFull rather than blocking the
// request that produced it.
package workers
