// Package health builds the health report served by GET /api/health.
//
// Every report queries the host again: memory, boot time and the list of
// reachable network addresses are never cached.
package health
