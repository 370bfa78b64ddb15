package exchange

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	payloads := map[string][]byte{
		"Empty":   {},
		"Short":   []byte("this is a crypto test"),
		"Binary":  {0x00, 0xff, 0x10, 0x00},
		"MaxSize": bytes.Repeat([]byte{'x'}, MaxPlaintextSize),
	}
	for name, m := range payloads {
		t.Run(name, func(t *testing.T) {
			ct, err := EncryptFor(kp.Public, m)
			require.NoError(t, err)
			assert.Len(t, ct, len(m)+Overhead)

			pt, err := DecryptWith(kp.Private, ct)
			require.NoError(t, err)
			assert.Equal(t, m, pt)
		})
	}
}

func TestEncrypt_Randomized(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	a, err := EncryptFor(kp.Public, []byte("same"))
	require.NoError(t, err)
	b, err := EncryptFor(kp.Public, []byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEncrypt_TooLarge(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = EncryptFor(kp.Public, make([]byte, MaxPlaintextSize+1))
	assert.ErrorIs(t, err, ErrPlaintextTooLarge)
}

func TestDecrypt_WrongKey(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	mallory, err := GenerateKeyPair()
	require.NoError(t, err)

	ct, err := EncryptFor(alice.Public, []byte("secret"))
	require.NoError(t, err)

	pt, err := DecryptWith(mallory.Private, ct)
	assert.Nil(t, pt)
	assert.ErrorIs(t, err, ErrDecryption)

	var decErr *DecryptionError
	assert.True(t, errors.As(err, &decErr))
}

func TestDecrypt_Tampered(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	ct, err := EncryptFor(kp.Public, []byte("secret"))
	require.NoError(t, err)

	tests := map[string]func([]byte) []byte{
		"FlipBody": func(c []byte) []byte { c[len(c)-1] ^= 0x01; return c },
		"FlipNonce": func(c []byte) []byte {
			c[ephemeralKeySize] ^= 0x01
			return c
		},
		"Truncated": func(c []byte) []byte { return c[:Overhead-1] },
		"BadEphemeralKey": func(c []byte) []byte {
			c[0] = 0x05
			return c
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecryptWith(kp.Private, mutate(bytes.Clone(ct)))
			assert.ErrorIs(t, err, ErrDecryption)
		})
	}
}

func TestSelfTest(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	ct, err := SelfTest(kp, []byte("this is a crypto test"))
	require.NoError(t, err)
	assert.NotEmpty(t, ct)
}

func TestKeyHex_RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	restored, err := ParsePrivateKeyHex(kp.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyHex(), restored.PublicKeyHex())

	pub, err := ParsePublicKeyHex(kp.PublicKeyHex())
	require.NoError(t, err)
	assert.True(t, pub.IsEqual(kp.Public))

	// 用解析出的公钥加密，原私钥可以解密
	ct, err := EncryptFor(pub, []byte("hi"))
	require.NoError(t, err)
	pt, err := DecryptWith(restored.Private, ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), pt)
}

func TestParseKeys_Invalid(t *testing.T) {
	_, err := ParsePublicKeyHex("zz")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
	_, err = ParsePublicKeyHex("0203")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = ParsePrivateKeyHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
	_, err = ParsePrivateKeyHex(string(bytes.Repeat([]byte("0"), 64)))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
	_, err = ParsePrivateKeyHex(string(bytes.Repeat([]byte("f"), 64)))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}
