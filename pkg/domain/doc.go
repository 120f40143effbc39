// Package domain holds the value types exchanged between the API layer,
// the application services and the adapters.
//
// Nothing here is persisted structurally: a Detection only lives for the
// duration of a request (and the events it produces), and health values are
// recomputed on every call.
package domain
