// Package crypto provides the dual-purpose identity key material used for
// secure messaging between wallet and service endpoints.
//
// A single 32-byte seed yields two key pairs:
//
//   - An Ed25519 signing key pair used to authenticate messages. The public
//     signing key is encoded as a standard Algorand base32 address
//     (SigningAddress), so the messaging identity is the same identity that
//     signs Algorand transactions.
//
//   - A Curve25519 key pair used for NaCl box authenticated encryption
//     (https://doc.libsodium.org/public-key_cryptography/authenticated_encryption).
//     The seed is used directly as the Curve25519 scalar, and the derived
//     public key is encoded with the same base32 address scheme
//     (EncryptionAddress).
//
// Messages are encrypted for a recipient's EncryptionAddress and can only be
// decrypted by the recipient's private key together with the sender's public
// encryption key. Decryption is authenticated: tampered ciphertext fails with
// ErrDecryptionFailed and never yields garbage plaintext.
//
// Private key material never leaves this package except through Mnemonic,
// which exports the seed in the standard Algorand 25-word form.
package crypto
