package protocol

import "errors"

var (
	// ErrSignatureVerificationFailed indicates the envelope signature does
	// not authenticate over the ciphertext under the claimed signer. The
	// envelope must be discarded without decrypting it. Distinct from
	// transport and parse errors so callers can alert on it as a potential
	// spoofing attempt.
	ErrSignatureVerificationFailed = errors.New("protocol: message signature verification failed")

	// ErrInvalidEnvelope indicates the wire bytes could not be parsed as a
	// signed encrypted message.
	ErrInvalidEnvelope = errors.New("protocol: invalid envelope")

	// ErrInvalidMessage indicates a decrypted payload could not be parsed as
	// a type-tagged message.
	ErrInvalidMessage = errors.New("protocol: invalid message")
)
