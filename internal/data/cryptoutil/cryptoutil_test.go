package cryptoutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor(t *testing.T) *AESGCMEncryptor {
	t.Helper()
	key, err := DeriveKey([]string{"auth-key", "salt-value"})
	require.NoError(t, err)
	enc, err := NewAESGCMEncryptor(key)
	require.NoError(t, err)
	return enc
}

func TestDeriveKey(t *testing.T) {
	k1, err := DeriveKey([]string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, k1, 32)

	// Deterministic for the same secrets, different for different ones.
	k2, err := DeriveKey([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := DeriveKey([]string{"a", "c"})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestDeriveKey_NoMaterial(t *testing.T) {
	_, err := DeriveKey(nil)
	assert.Error(t, err)

	_, err = DeriveKey([]string{"", ""})
	assert.Error(t, err)
}

func TestNewAESGCMEncryptor_BadKeyLength(t *testing.T) {
	_, err := NewAESGCMEncryptor([]byte("short"))
	assert.Error(t, err)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc := newTestEncryptor(t)

	for _, plaintext := range []string{"hunter2", "a", strings.Repeat("x", 4096), "pässwörd"} {
		ct, err := enc.Encrypt([]byte(plaintext))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ct, "v1:"))

		pt, err := enc.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, string(pt))
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	enc := newTestEncryptor(t)

	ct1, err := enc.Encrypt([]byte("hunter2"))
	require.NoError(t, err)
	ct2, err := enc.Encrypt([]byte("hunter2"))
	require.NoError(t, err)

	assert.NotEqual(t, ct1, ct2)
}

func TestDecrypt_Malformed(t *testing.T) {
	enc := newTestEncryptor(t)

	for _, ct := range []string{
		"",
		"garbage",
		"v1:",
		"v1:!!!not-base64!!!",
		"v1:AAAA", // shorter than a nonce
	} {
		_, err := enc.Decrypt(ct)
		require.Error(t, err, "ciphertext %q", ct)
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc := newTestEncryptor(t)
	ct, err := enc.Encrypt([]byte("hunter2"))
	require.NoError(t, err)

	otherKey, err := DeriveKey([]string{"different"})
	require.NoError(t, err)
	other, err := NewAESGCMEncryptor(otherKey)
	require.NoError(t, err)

	_, err = other.Decrypt(ct)
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestDegradedEncryptor_RoundTrip(t *testing.T) {
	var enc DegradedEncryptor

	ct, err := enc.Encrypt([]byte("hunter2"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ct, "plain:"))

	pt, err := enc.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(pt))
}

func TestAESGCM_ReadsDegradedValues(t *testing.T) {
	// Policies written before a key was configured stay readable.
	ct, err := DegradedEncryptor{}.Encrypt([]byte("hunter2"))
	require.NoError(t, err)

	enc := newTestEncryptor(t)
	pt, err := enc.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(pt))
}
