// Package notify delivers guard events to the host.
//
// The trusted clock and the license manager report fatal conditions
// (tampering, an invalid license) and degraded ones through a Notifier.
// LogNotifier writes them to the structured log, the websocket hub pushes
// them to connected clients and MultiNotifier combines several sinks.
package notify
