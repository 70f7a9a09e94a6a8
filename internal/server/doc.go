// Package server exposes the catalog and the installer over HTTP.
//
// Routes live under /api/v1. Installer results are returned as JSON with a
// status derived from their code (not found 404, already installed 409,
// rejected input 422). Every state change is pushed to WebSocket clients
// connected to /api/v1/events, and /metrics serves the Prometheus
// collectors.
package server
