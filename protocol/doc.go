// Package protocol implements the sign-then-encrypt secure messaging
// protocol used for authenticated, confidential communication between wallet
// and service endpoints over an untrusted transport.
//
// # Envelope construction
//
// An application payload is first wrapped in a Message, which tags it with a
// 16-byte ULID message type. The receiver dispatches on this tag only after
// decryption, so routing metadata is never trusted in unauthenticated form.
//
// The packed Message bytes are then box-encrypted for the recipient's
// encryption address (EncryptedMessage), and the resulting ciphertext bytes
// (exactly the ciphertext, not the nonce or addresses) are signed with the
// sender's Ed25519 key (SignedEncryptedMessage).
//
// # Wire format
//
// A SignedEncryptedMessage is serialized as a msgpack array of six fields in
// fixed order:
//
//	(signer_address, signature, sender_encryption_address,
//	 recipient_encryption_address, nonce, ciphertext)
//
// Addresses are base32 strings; signature, nonce, and ciphertext are raw
// binary. Field order is part of the protocol and must not change.
//
// # Verify before decrypt
//
// Unpacking performs no verification. Receivers MUST call Verify before
// Decrypt; decrypting an unverified envelope and trusting its plaintext is a
// protocol violation. OpenSecureMessage enforces this order and fails with
// ErrSignatureVerificationFailed before any decryption is attempted.
package protocol
