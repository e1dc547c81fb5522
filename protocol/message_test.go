package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	msgType := mustMessageType(t, "01GVH1J2Q3R4S5T6V7W8X9YZAB")
	msg := NewMessage(msgType, []byte("payload"))

	packed, err := msg.Pack()
	require.NoError(t, err)

	parsed, err := UnpackMessage(packed)
	require.NoError(t, err)
	require.Equal(t, msg.ID, parsed.ID)
	require.Equal(t, msg.Type, parsed.Type)
	require.Equal(t, msg.Data, parsed.Data)
}

func TestNewMessageIDsAreUnique(t *testing.T) {
	msgType := mustMessageType(t, "01GVH1J2Q3R4S5T6V7W8X9YZAB")

	seen := make(map[MessageID]bool)
	for i := 0; i < 100; i++ {
		msg := NewMessage(msgType, nil)
		require.False(t, seen[msg.ID])
		seen[msg.ID] = true
	}
}

func TestUnpackMalformedMessage(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":       {},
		"wrong arity": {0x91, 0xa1, 0x61},
		"short id":    {0x93, 0xc4, 0x01, 0x00, 0xc4, 0x01, 0x00, 0xc4, 0x00},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := UnpackMessage(data)
			require.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}
