// Package websocket provides real-time detection streaming via WebSocket.
//
// Clients connect to /api/detections/stream and receive every detection
// recorded after they connected, one JSON text frame per detection.
package websocket
