package exchange

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KeyPair secp256k1 密钥对
type KeyPair struct {
	Private *secp256k1.PrivateKey
	Public  *secp256k1.PublicKey
}

// GenerateKeyPair 生成新的密钥对
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("exchange: generate key: %w", err)
	}
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// PublicKeyHex 压缩公钥的十六进制形式
func (kp *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(kp.Public.SerializeCompressed())
}

// PrivateKeyHex 私钥的十六进制形式
func (kp *KeyPair) PrivateKeyHex() string {
	return hex.EncodeToString(kp.Private.Serialize())
}

// ParsePublicKeyHex 解析压缩或非压缩公钥
func ParsePublicKeyHex(s string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// ParsePrivateKeyHex 解析 32 字节私钥
func ParsePrivateKeyHex(s string) (*KeyPair, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if len(b) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidPrivateKey, secp256k1.PrivKeyBytesLen, len(b))
	}

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidPrivateKey)
	}
	priv := secp256k1.NewPrivateKey(&scalar)
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}
