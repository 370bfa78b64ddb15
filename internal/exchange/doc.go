// Package exchange 提供基于 secp256k1 的 ECIES 加解密
//
// 方案：临时密钥 ECDH → HKDF-SHA256 → ChaCha20-Poly1305。
//
//	kp, _ := exchange.GenerateKeyPair()
//	ct, _ := exchange.EncryptFor(kp.Public, []byte("hi"))
//	pt, err := exchange.DecryptWith(kp.Private, ct)
//	if errors.Is(err, exchange.ErrDecryption) {
//	    // 密钥不匹配或密文被篡改
//	}
//
// 会话中只用自己的密钥对做自检；真正的双方通信还需要公钥交换
// （例如地址簿），本包不提供。
package exchange
