package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrDecryption 解密失败（密钥不匹配、密文被篡改或截断）
	ErrDecryption = errors.New("exchange: decryption failed")

	// ErrPlaintextTooLarge 明文超过 MaxPlaintextSize
	ErrPlaintextTooLarge = errors.New("exchange: plaintext too large")

	// ErrInvalidPublicKey 公钥无效
	ErrInvalidPublicKey = errors.New("exchange: invalid public key")

	// ErrInvalidPrivateKey 私钥无效
	ErrInvalidPrivateKey = errors.New("exchange: invalid private key")
)

// DecryptionError 解密错误
//
// 总是满足 errors.Is(err, ErrDecryption)。
type DecryptionError struct {
	Reason string
	Err    error
}

func (e *DecryptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrDecryption, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrDecryption, e.Reason)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrDecryption) 成立
func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryption
}
