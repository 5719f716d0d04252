// Package proxy relays a game client's websocket to the upstream server
// with a tap installed on the upstream side, and serves a small JSON
// control API over the tapped session.
//
// # Endpoints
//
//	GET    /ws                        relay (one active client at a time)
//	GET    /api/state?wait=500ms      last known state code
//	PUT    /api/state                 apply {"stateCode": "..."}
//	PUT    /api/figure                send {"figure": "...", "gender": "..."}
//	GET    /api/records               list saved records
//	POST   /api/records               create {"name": "...", "stateCode": "..."}
//	POST   /api/records/capture       save the current state as {"name": "..."}
//	GET    /api/records/{id}          one record
//	PUT    /api/records/{id}          rename or replace
//	DELETE /api/records/{id}          remove
//	POST   /api/records/{id}/apply    apply a saved record
//	GET    /healthz                   liveness and relay status
//	GET    /metrics                   Prometheus exposition (with WithMetrics)
//
// Errors are JSON objects carrying a W-code from internal/errors and the
// HTTP status registered for it.
package proxy
