// Package cryptox implements the at-rest framing for stored files:
// IV(16 bytes) || AES-256-CTR(plaintext), keyed by a passphrase.
//
// The scheme is confidentiality only. There is no authentication tag, so a
// wrong passphrase decrypts to garbage instead of failing, and every file
// encrypted under one passphrase shares the same derived key because the KDF
// salt is a constant.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// IVSize is the length of the random initialization value prefix.
	IVSize = aes.BlockSize

	// KeySize selects AES-256.
	KeySize = 32
)

// kdfSalt is fixed on purpose: the derived key depends on the passphrase only.
var kdfSalt = []byte("filevault-static-salt")

// DeriveKey stretches passphrase into a KeySize-byte AES key with argon2id.
func DeriveKey(passphrase string) []byte {
	return argon2.IDKey([]byte(passphrase), kdfSalt, 1, 64*1024, 4, KeySize)
}

// Encrypt returns IV || ciphertext for plaintext under passphrase.
// A fresh random IV is generated on every call.
func Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	iv, err := common.GenerateRandByteArray(IVSize)
	if err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	stream, err := newStream(passphrase, iv)
	if err != nil {
		return nil, err
	}

	out := make([]byte, IVSize+len(plaintext))
	copy(out, iv)
	stream.XORKeyStream(out[IVSize:], plaintext)

	return out, nil
}

// Decrypt reverses Encrypt. It fails only when blob is too short to hold the
// IV; a wrong passphrase yields garbage bytes and a nil error.
func Decrypt(blob []byte, passphrase string) ([]byte, error) {
	if len(blob) < IVSize {
		return nil, fmt.Errorf("%w: blob is %d bytes, need at least %d", common.ErrDecryption, len(blob), IVSize)
	}

	stream, err := newStream(passphrase, blob[:IVSize])
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(blob)-IVSize)
	stream.XORKeyStream(plaintext, blob[IVSize:])

	return plaintext, nil
}

func newStream(passphrase string, iv []byte) (cipher.Stream, error) {
	key := DeriveKey(passphrase)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	return cipher.NewCTR(block, iv), nil
}
