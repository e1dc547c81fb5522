// Package server implements the messaging server.
//
// Clients connect over a websocket and exchange signed, encrypted envelopes
// with the server. For every incoming envelope the server verifies the
// client's signature before decrypting; envelopes that fail verification or
// decryption are dropped and counted, never dispatched.
//
// Decrypted messages carry a type tag that selects a Handler from the Mux.
// Handlers run concurrently under a server-wide limit and reply through the
// MessageContext, which encrypts and signs responses back to the originating
// client. One slow handler therefore does not stall the connection's read
// loop, and replies may interleave across handlers.
//
// WebsocketServer is a lifecycle-managed component: it plugs into the
// services package, exposes liveness and readiness probes driven by the
// application's health registry, and serves prometheus metrics.
package server
