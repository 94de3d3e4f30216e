// Package hub contains the in-memory coordination core of the signaling
// relay: identity registration, room lifecycle, invitation routing and
// point-to-point payload relay.
//
// The hub never carries media or data itself; it brokers discovery and
// opaque negotiation messages so peers can connect out-of-band.
package hub
