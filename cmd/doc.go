// Package cmd provides the algomsg CLI commands.
//
// # Commands
//
// algomsgd: Runs the secure messaging server. Clients connect over a
// websocket and exchange signed, encrypted messages; liveness, readiness,
// and prometheus metrics are served alongside.
//
//	go run ./cmd/algomsgd --listen=:8080 --mnemonic-file=server.mnemonic
//	go run ./cmd/algomsgd --listen=:8080 --db-url=postgres://user@host/db
//
// algomsg-keygen: Generates a messaging identity and prints its 25-word
// mnemonic along with the signing and encryption addresses. Can also derive
// the addresses from an existing mnemonic.
//
//	go run ./cmd/algomsg-keygen
//	go run ./cmd/algomsg-keygen --mnemonic="... 25 words ..."
//
// # Identity
//
// The server's identity is a single 32-byte seed, exported and imported as a
// standard Algorand 25-word mnemonic. The same seed derives both the Ed25519
// signing key and the Curve25519 encryption key, so one mnemonic is all a
// deployment needs to back up. Without a --mnemonic-file, algomsgd generates
// an ephemeral identity and logs its mnemonic at startup.
package cmd
