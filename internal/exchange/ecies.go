package exchange

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// MaxPlaintextSize 单条消息的最大明文长度
	MaxPlaintextSize = 32 * 1024

	// ephemeralKeySize 非压缩临时公钥长度
	ephemeralKeySize = 65

	// Overhead 密文相对明文的额外长度
	Overhead = ephemeralKeySize + chacha20poly1305.NonceSize + chacha20poly1305.Overhead
)

var hkdfInfo = []byte("mailx ecies v1")

// deriveKey 从临时公钥与 ECDH 共享 x 坐标派生对称密钥
func deriveKey(ephemeralPub, sharedX []byte) ([]byte, error) {
	ikm := make([]byte, 0, len(ephemeralPub)+len(sharedX))
	ikm = append(ikm, ephemeralPub...)
	ikm = append(ikm, sharedX...)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, hkdfInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}

// EncryptFor 用 pub 加密 plaintext
//
// 密文格式：临时公钥(65) || nonce(12) || ChaCha20-Poly1305 密文。
// 临时公钥同时作为附加认证数据。
func EncryptFor(pub *secp256k1.PublicKey, plaintext []byte) ([]byte, error) {
	if pub == nil {
		return nil, ErrInvalidPublicKey
	}
	if len(plaintext) > MaxPlaintextSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPlaintextTooLarge, len(plaintext), MaxPlaintextSize)
	}

	ephemeral, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("exchange: generate ephemeral key: %w", err)
	}
	defer ephemeral.Zero()

	ephemeralPub := ephemeral.PubKey().SerializeUncompressed()
	key, err := deriveKey(ephemeralPub, secp256k1.GenerateSharedSecret(ephemeral, pub))
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, ephemeralKeySize+aead.NonceSize(), Overhead+len(plaintext))
	copy(out, ephemeralPub)
	nonce := out[ephemeralKeySize:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("exchange: nonce: %w", err)
	}
	return aead.Seal(out, nonce, plaintext, ephemeralPub), nil
}

// DecryptWith 用 priv 解密 EncryptFor 产生的密文
//
// 密钥不匹配、篡改或截断都返回 *DecryptionError，不会返回损坏的数据。
func DecryptWith(priv *secp256k1.PrivateKey, ciphertext []byte) ([]byte, error) {
	if priv == nil {
		return nil, ErrInvalidPrivateKey
	}
	if len(ciphertext) < Overhead {
		return nil, &DecryptionError{Reason: "ciphertext too short"}
	}

	ephemeralPub := ciphertext[:ephemeralKeySize]
	pub, err := secp256k1.ParsePubKey(ephemeralPub)
	if err != nil {
		return nil, &DecryptionError{Reason: "bad ephemeral key", Err: err}
	}

	key, err := deriveKey(ephemeralPub, secp256k1.GenerateSharedSecret(priv, pub))
	if err != nil {
		return nil, &DecryptionError{Reason: "key derivation", Err: err}
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, &DecryptionError{Reason: "cipher init", Err: err}
	}

	nonce := ciphertext[ephemeralKeySize : ephemeralKeySize+aead.NonceSize()]
	sealed := ciphertext[ephemeralKeySize+aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, ephemeralPub)
	if err != nil {
		return nil, &DecryptionError{Reason: "authentication failed", Err: err}
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// SelfTest 用 kp 自己的密钥做一次加密再解密，返回密文
//
// 只验证本地加密路径，不是双方之间的密钥交换。
func SelfTest(kp *KeyPair, plaintext []byte) ([]byte, error) {
	ciphertext, err := EncryptFor(kp.Public, plaintext)
	if err != nil {
		return nil, err
	}
	decrypted, err := DecryptWith(kp.Private, ciphertext)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(decrypted, plaintext) {
		return nil, &DecryptionError{Reason: "round trip mismatch"}
	}
	return ciphertext, nil
}
