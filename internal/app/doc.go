// Package app wires licensegate together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, licensegate.yaml, LICENSEGATE_* env)
//	2. Initialize logging and OpenTelemetry
//	3. Resolve paths and select the slot backend (keyring, file or memory)
//	4. Build the fingerprint, time store, network source and trusted clock
//	5. Build the validator and license manager around the clock
//	6. Set up the websocket hub, handlers, middleware and HTTP server
//
// Start runs the initial license check, which bootstraps the trusted clock,
// then starts the guard loop that calls CheckAndUpdate every tick interval.
// A failed initial check does not stop the server; the status API stays
// available so a license can be installed.
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM. Stop shuts down the HTTP server, closes
// websocket clients, waits for the guard loop and flushes telemetry.
// Errors are returned to the caller; the package never calls os.Exit.
package app
