// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Detection ingestion (POST /api/detections)
//   - Host health checks (GET /api/health)
//   - Live detection streaming over WebSocket
//   - Prometheus metrics
//
// Every request produces one access line on the logger. Detection requests
// additionally have their raw body journaled before the handler runs.
package http
