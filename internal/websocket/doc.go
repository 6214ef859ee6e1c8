// Package websocket pushes guard events and status snapshots to connected
// clients.
//
// A Hub owns the client set and runs a single loop that registers clients,
// fans messages out and drops clients whose send buffer is full. Each Client
// runs a read pump, which only honours heartbeats, and a write pump that
// also keeps the connection alive with pings.
//
// HubNotifier adapts the hub to notify.Notifier so tamper and license
// failures reach every open dashboard as guard:event messages.
package websocket
