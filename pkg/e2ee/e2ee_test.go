package e2ee

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "00112233445566778899aabbccddeeff"

func TestSealOpen(t *testing.T) {
	key, err := DeriveKey("room-1", testSecret)
	require.NoError(t, err)

	enc, err := key.Seal("hello, привет 👋")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(enc)
	require.NoError(t, err)
	// IV, payload, 16 byte GCM tag.
	assert.Len(t, raw, IVLength+len("hello, привет 👋")+16)

	plain, err := key.Open(enc)
	require.NoError(t, err)
	assert.Equal(t, "hello, привет 👋", plain)
}

func TestSealUsesFreshIV(t *testing.T) {
	key, err := DeriveKey("room-1", testSecret)
	require.NoError(t, err)

	a, err := key.Seal("same")
	require.NoError(t, err)
	b, err := key.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptWithWrongRoomOrSecret(t *testing.T) {
	enc, err := Encrypt("secret text", "room-1", testSecret)
	require.NoError(t, err)

	_, err = Decrypt(enc, "room-2", testSecret)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt(enc, "room-1", "ffeeddccbbaa99887766554433221100")
	assert.ErrorIs(t, err, ErrDecrypt)

	plain, err := Decrypt(enc, "room-1", testSecret)
	require.NoError(t, err)
	assert.Equal(t, "secret text", plain)
}

func TestOpenMalformed(t *testing.T) {
	key, err := DeriveKey("room-1", testSecret)
	require.NoError(t, err)

	_, err = key.Open("not base64!!")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = key.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestGenerateSecret(t *testing.T) {
	s, err := GenerateSecret(0)
	require.NoError(t, err)
	assert.Len(t, s, DefaultSecretLength*2)
	assert.True(t, ValidSecret(s))

	assert.False(t, ValidSecret("abc"))
	assert.False(t, ValidSecret("zzzzzzzzzzzzzzzzzzzz"))
}
