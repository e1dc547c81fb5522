package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const (
	// SeedSize is the size of the private seed in bytes.
	SeedSize = 32

	// NonceSize is the size of the box encryption nonce in bytes.
	NonceSize = 24
)

// ErrDecryptionFailed indicates that a ciphertext/nonce/key combination did
// not authenticate. The message must be discarded; retrying with the same
// inputs will fail again.
var ErrDecryptionFailed = errors.New("crypto: decryption failed")

// Signature is a detached Ed25519 signature.
type Signature []byte

// Bytes returns the signature as a byte slice.
func (s Signature) Bytes() []byte {
	return []byte(s)
}

// PublicKeys holds both public identifiers derived from one private seed.
type PublicKeys struct {
	Signing    SigningAddress
	Encryption EncryptionAddress
}

// PrivateKey is a dual-purpose private key. The same 32-byte seed derives an
// Ed25519 signing key and a Curve25519 box encryption key, so one Algorand
// account can both sign and exchange encrypted messages.
//
// A PrivateKey is immutable for its lifetime and must never be transmitted.
type PrivateKey struct {
	seed       [SeedSize]byte
	signingKey ed25519.PrivateKey
	encryptPub [32]byte
}

// GenerateKey creates a new private key from a cryptographically secure
// random seed.
func GenerateKey() (*PrivateKey, error) {
	var seed [SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	return FromSeed(seed[:])
}

// FromSeed derives a private key from a 32-byte seed.
// The input is copied; the caller may zero its copy afterwards.
func FromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("invalid seed size: %d", len(seed))
	}

	key := &PrivateKey{}
	copy(key.seed[:], seed)
	key.signingKey = ed25519.NewKeyFromSeed(key.seed[:])

	// The box public key is the Curve25519 base-point multiple of the seed,
	// matching libsodium's crypto_box keypair derivation.
	pub, err := curve25519.X25519(key.seed[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	copy(key.encryptPub[:], pub)

	return key, nil
}

// FromMnemonic derives a private key from a standard Algorand 25-word
// mnemonic.
func FromMnemonic(words string) (*PrivateKey, error) {
	seed, err := mnemonic.ToKey(words)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	return FromSeed(seed)
}

// Mnemonic exports the private seed as an Algorand 25-word mnemonic.
func (k *PrivateKey) Mnemonic() (string, error) {
	return mnemonic.FromKey(k.seed[:])
}

// SigningAddress returns the base32 encoding of the Ed25519 public key.
// This is the standard Algorand account address.
func (k *PrivateKey) SigningAddress() SigningAddress {
	return SigningAddress(encodeAddress(k.signingKey.Public().(ed25519.PublicKey)))
}

// EncryptionAddress returns the base32 encoding of the Curve25519 public key.
func (k *PrivateKey) EncryptionAddress() EncryptionAddress {
	return EncryptionAddress(encodeAddress(k.encryptPub[:]))
}

// PublicKeys returns both public addresses.
func (k *PrivateKey) PublicKeys() PublicKeys {
	return PublicKeys{
		Signing:    k.SigningAddress(),
		Encryption: k.EncryptionAddress(),
	}
}

// Sign produces a detached signature over msg.
func (k *PrivateKey) Sign(msg []byte) Signature {
	return Signature(ed25519.Sign(k.signingKey, msg))
}

// Encrypt seals plaintext for the recipient using box authenticated
// encryption with a fresh random nonce. Only the recipient's private key
// together with this key's public EncryptionAddress can open it.
//
// A key may encrypt to itself, i.e. recipient == k.EncryptionAddress().
func (k *PrivateKey) Encrypt(plaintext []byte, recipient EncryptionAddress) (nonce [NonceSize]byte, ciphertext []byte, err error) {
	recipientKey, err := recipient.PublicKey()
	if err != nil {
		return nonce, nil, fmt.Errorf("invalid recipient: %w", err)
	}

	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext = box.Seal(nil, plaintext, &nonce, recipientKey, &k.seed)
	return nonce, ciphertext, nil
}

// Decrypt opens a ciphertext that the sender encrypted for this key.
// Returns ErrDecryptionFailed when the ciphertext does not authenticate
// under the given nonce and sender key.
func (k *PrivateKey) Decrypt(nonce [NonceSize]byte, ciphertext []byte, sender EncryptionAddress) ([]byte, error) {
	senderKey, err := sender.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}

	plaintext, ok := box.Open(nil, ciphertext, &nonce, senderKey, &k.seed)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	if plaintext == nil {
		// Empty plaintexts open to a nil slice; a successful decrypt always
		// returns non-nil.
		plaintext = []byte{}
	}
	return plaintext, nil
}

// VerifyMessage reports whether sig is a valid signature over msg by the
// given signing address. Malformed addresses verify as false.
func VerifyMessage(msg []byte, sig Signature, signer SigningAddress) bool {
	verifyKey, err := signer.VerifyKey()
	if err != nil {
		return false
	}
	return ed25519.Verify(verifyKey, msg, sig)
}
