// Package signaling is the WebSocket transport for the relay. It upgrades
// client connections, decodes the JSON event envelope, dispatches inbound
// events to an EventHandler and delivers outbound emissions without ever
// blocking the caller.
package signaling
