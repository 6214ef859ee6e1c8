// Package http implements the HTTP handlers of the licensegate status API.
// Handlers are thin: they decode requests, call the license manager or the
// trusted clock and render JSON or RFC 7807 problem documents.
//
// # Endpoints
//
//	GET  /api/health                  liveness plus clock and cached license state
//	GET  /api/v1/license              current license status (always 200)
//	POST /api/v1/license/verify       validate a document without installing it
//	POST /api/v1/license/install      validate and install a document
//	GET  /api/v1/clock                trusted clock diagnostics
//	POST /api/v1/clock/check          run one guard tick now
//	GET  /api/v1/features/{name}      feature entitlement, behind the license guard
//	GET  /metrics                     Prometheus scrape endpoint
//
// # Error Handling
//
// License and clock failures are mapped with errors.MapLicenseError, so the
// machine-readable error_code of a problem document is the same one the CLI
// and the websocket feed report.
//
//	{
//	  "type": "/errors/license/clock-tampered",
//	  "title": "Clock Tampering Detected",
//	  "status": 403,
//	  "error_code": "CLOCK_TAMPERED",
//	  "trace_id": "..."
//	}
//
// Status changes caused by a request (install, clock check) are pushed to
// websocket clients through the Broadcaster passed to the handler.
package http
