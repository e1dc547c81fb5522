// Package client implements the messaging client.
//
// A Client owns a private key and talks to one server over a Transport,
// normally a websocket. Every outgoing message is encrypted to the server's
// encryption address and signed; every incoming envelope must carry a valid
// signature from the server's signing address before it is decrypted.
// Messages from any other signer are rejected.
//
// The encrypt-sign-send pipeline runs on an Executor so callers issuing many
// concurrent sends share a bounded worker pool instead of spawning unbounded
// goroutines. Concurrent sends are not ordered relative to each other; use a
// single goroutine when ordering matters.
package client
