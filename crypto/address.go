package crypto

import (
	"crypto/ed25519"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// SigningAddress is an Ed25519 public signing key encoded as an Algorand
// base32 address. It is the standard Algorand account address.
type SigningAddress string

// EncryptionAddress is a Curve25519 public box encryption key encoded as an
// Algorand base32 address.
type EncryptionAddress string

// VerifyKey decodes the address into an Ed25519 public key.
func (a SigningAddress) VerifyKey() (ed25519.PublicKey, error) {
	addr, err := types.DecodeAddress(string(a))
	if err != nil {
		return nil, fmt.Errorf("invalid signing address: %w", err)
	}
	return ed25519.PublicKey(addr[:]), nil
}

// PublicKey decodes the address into a Curve25519 public key.
func (a EncryptionAddress) PublicKey() (*[32]byte, error) {
	addr, err := types.DecodeAddress(string(a))
	if err != nil {
		return nil, fmt.Errorf("invalid encryption address: %w", err)
	}
	key := [32]byte(addr)
	return &key, nil
}

func encodeAddress(publicKey []byte) string {
	addr, err := types.EncodeAddress(publicKey)
	if err != nil {
		// Unreachable for the 32-byte keys this package derives.
		panic(fmt.Sprintf("encode address: %v", err))
	}
	return addr
}
