// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs for run submission, /v1/runs/standard for templates.
//   - GET /v1/runs/{id}/status and /result, POST /v1/runs/{id}/cancel.
package api
