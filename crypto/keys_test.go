package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromSeedIsDeterministic(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	words, err := key.Mnemonic()
	require.NoError(t, err)

	restored, err := FromMnemonic(words)
	require.NoError(t, err)

	require.Equal(t, key.SigningAddress(), restored.SigningAddress())
	require.Equal(t, key.EncryptionAddress(), restored.EncryptionAddress())
}

func TestAddressesAreDistinct(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	keys := key.PublicKeys()
	require.NotEqual(t, string(keys.Signing), string(keys.Encryption))

	// Both addresses decode back to 32-byte public keys.
	verifyKey, err := keys.Signing.VerifyKey()
	require.NoError(t, err)
	require.Len(t, []byte(verifyKey), 32)

	boxKey, err := keys.Encryption.PublicKey()
	require.NoError(t, err)
	require.Len(t, boxKey[:], 32)
}

func TestSignAndVerify(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte("data to sign")
	sig := key.Sign(msg)

	require.True(t, VerifyMessage(msg, sig, key.SigningAddress()))
	require.False(t, VerifyMessage([]byte("other data"), sig, key.SigningAddress()))

	other, err := GenerateKey()
	require.NoError(t, err)
	require.False(t, VerifyMessage(msg, sig, other.SigningAddress()))
}

func TestVerifyMessageMalformedAddress(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	sig := key.Sign([]byte("msg"))
	require.False(t, VerifyMessage([]byte("msg"), sig, SigningAddress("not an address")))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sender, err := GenerateKey()
	require.NoError(t, err)
	recipient, err := GenerateKey()
	require.NoError(t, err)

	for _, plaintext := range [][]byte{
		[]byte("hello"),
		{},
		make([]byte, 4096),
	} {
		nonce, ciphertext, err := sender.Encrypt(plaintext, recipient.EncryptionAddress())
		require.NoError(t, err)

		decrypted, err := recipient.Decrypt(nonce, ciphertext, sender.EncryptionAddress())
		require.NoError(t, err)
		require.NotNil(t, decrypted)
		require.Equal(t, plaintext, decrypted)
	}
}

func TestSelfEncryption(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	nonce, ciphertext, err := key.Encrypt([]byte("note to self"), key.EncryptionAddress())
	require.NoError(t, err)

	decrypted, err := key.Decrypt(nonce, ciphertext, key.EncryptionAddress())
	require.NoError(t, err)
	require.Equal(t, []byte("note to self"), decrypted)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	sender, err := GenerateKey()
	require.NoError(t, err)
	recipient, err := GenerateKey()
	require.NoError(t, err)
	eavesdropper, err := GenerateKey()
	require.NoError(t, err)

	nonce, ciphertext, err := sender.Encrypt([]byte("secret"), recipient.EncryptionAddress())
	require.NoError(t, err)

	_, err = eavesdropper.Decrypt(nonce, ciphertext, sender.EncryptionAddress())
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	sender, err := GenerateKey()
	require.NoError(t, err)
	recipient, err := GenerateKey()
	require.NoError(t, err)

	nonce, ciphertext, err := sender.Encrypt([]byte("secret"), recipient.EncryptionAddress())
	require.NoError(t, err)

	ciphertext[0] ^= 0x01
	_, err = recipient.Decrypt(nonce, ciphertext, sender.EncryptionAddress())
	require.ErrorIs(t, err, ErrDecryptionFailed)

	ciphertext[0] ^= 0x01
	nonce[0] ^= 0x01
	_, err = recipient.Decrypt(nonce, ciphertext, sender.EncryptionAddress())
	require.ErrorIs(t, err, ErrDecryptionFailed)
}
