package protocol

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/algomesh/algomsg/crypto"
)

// EncryptedMessage is a box-encrypted payload addressed from one encryption
// address to another. The nonce is unique per message.
type EncryptedMessage struct {
	Sender     crypto.EncryptionAddress
	Recipient  crypto.EncryptionAddress
	Nonce      [crypto.NonceSize]byte
	Ciphertext []byte
}

// EncryptMessage encrypts plaintext from the sender's key to the recipient.
func EncryptMessage(sender *crypto.PrivateKey, recipient crypto.EncryptionAddress, plaintext []byte) (*EncryptedMessage, error) {
	nonce, ciphertext, err := sender.Encrypt(plaintext, recipient)
	if err != nil {
		return nil, err
	}
	return &EncryptedMessage{
		Sender:     sender.EncryptionAddress(),
		Recipient:  recipient,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Decrypt opens the message with the recipient's private key. Re-decryption
// with the same keys is idempotent. Fails with crypto.ErrDecryptionFailed
// when the ciphertext does not authenticate.
func (m *EncryptedMessage) Decrypt(recipient *crypto.PrivateKey) ([]byte, error) {
	return recipient.Decrypt(m.Nonce, m.Ciphertext, m.Sender)
}

// SignedEncryptedMessage is the wire envelope: an EncryptedMessage plus a
// signature over exactly the ciphertext bytes and the signer's address.
type SignedEncryptedMessage struct {
	Sender    crypto.SigningAddress
	Signature crypto.Signature
	Encrypted EncryptedMessage
}

// SignMessage signs an already-constructed EncryptedMessage. The signature
// covers the ciphertext bytes only.
func SignMessage(key *crypto.PrivateKey, msg *EncryptedMessage) *SignedEncryptedMessage {
	return &SignedEncryptedMessage{
		Sender:    key.SigningAddress(),
		Signature: key.Sign(msg.Ciphertext),
		Encrypted: *msg,
	}
}

// Verify reports whether the signature authenticates over the ciphertext
// under the claimed signer's address. It never returns an error; a malformed
// address simply fails verification.
func (m *SignedEncryptedMessage) Verify() bool {
	return crypto.VerifyMessage(m.Encrypted.Ciphertext, m.Signature, m.Sender)
}

// Pack serializes the envelope as a msgpack array of six fields in fixed
// order: signer address, signature, sender encryption address, recipient
// encryption address, nonce, ciphertext.
func (m *SignedEncryptedMessage) Pack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeArrayLen(6); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(string(m.Sender)); err != nil {
		return nil, err
	}
	if err := enc.EncodeBytes(m.Signature); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(string(m.Encrypted.Sender)); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(string(m.Encrypted.Recipient)); err != nil {
		return nil, err
	}
	if err := enc.EncodeBytes(m.Encrypted.Nonce[:]); err != nil {
		return nil, err
	}
	if err := enc.EncodeBytes(m.Encrypted.Ciphertext); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnpackSignedMessage parses the wire envelope. It performs no verification;
// callers must Verify before Decrypt.
func UnpackSignedMessage(data []byte) (*SignedEncryptedMessage, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if n != 6 {
		return nil, fmt.Errorf("%w: expected 6 fields, got %d", ErrInvalidEnvelope, n)
	}

	signer, err := dec.DecodeString()
	if err != nil {
		return nil, fmt.Errorf("%w: signer: %v", ErrInvalidEnvelope, err)
	}
	signature, err := dec.DecodeBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrInvalidEnvelope, err)
	}
	sender, err := dec.DecodeString()
	if err != nil {
		return nil, fmt.Errorf("%w: sender: %v", ErrInvalidEnvelope, err)
	}
	recipient, err := dec.DecodeString()
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", ErrInvalidEnvelope, err)
	}
	nonceBytes, err := dec.DecodeBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrInvalidEnvelope, err)
	}
	if len(nonceBytes) != crypto.NonceSize {
		return nil, fmt.Errorf("%w: nonce: expected %d bytes, got %d", ErrInvalidEnvelope, crypto.NonceSize, len(nonceBytes))
	}
	ciphertext, err := dec.DecodeBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrInvalidEnvelope, err)
	}

	msg := &SignedEncryptedMessage{
		Sender:    crypto.SigningAddress(signer),
		Signature: crypto.Signature(signature),
		Encrypted: EncryptedMessage{
			Sender:     crypto.EncryptionAddress(sender),
			Recipient:  crypto.EncryptionAddress(recipient),
			Ciphertext: ciphertext,
		},
	}
	copy(msg.Encrypted.Nonce[:], nonceBytes)
	return msg, nil
}

// PackSecureMessage runs the full send-side pipeline: tag the payload,
// encrypt it for the recipient, sign the ciphertext, and serialize the
// envelope.
func PackSecureMessage(key *crypto.PrivateKey, msg *Message, recipient crypto.EncryptionAddress) ([]byte, error) {
	plaintext, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack message: %w", err)
	}
	encrypted, err := EncryptMessage(key, recipient, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt message: %w", err)
	}
	return SignMessage(key, encrypted).Pack()
}

// OpenSecureMessage runs the full receive-side pipeline: parse the envelope,
// verify the signature, decrypt, and parse the type-tagged message.
// Verification failure is reported before any decryption is attempted.
func OpenSecureMessage(key *crypto.PrivateKey, data []byte) (*Message, error) {
	envelope, err := UnpackSignedMessage(data)
	if err != nil {
		return nil, err
	}
	return OpenSignedMessage(key, envelope)
}

// OpenSignedMessage verifies and decrypts an already-parsed envelope.
func OpenSignedMessage(key *crypto.PrivateKey, envelope *SignedEncryptedMessage) (*Message, error) {
	if !envelope.Verify() {
		return nil, ErrSignatureVerificationFailed
	}
	plaintext, err := envelope.Encrypted.Decrypt(key)
	if err != nil {
		return nil, err
	}
	return UnpackMessage(plaintext)
}
