// Package cryptox holds the client's local encryption: a key derived from the
// account password and salt, used for AES-256-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrDecrypt is returned for a wrong key or a tampered payload.
var ErrDecrypt = errors.New("decryption failed")

// DeriveMasterKey stretches the password with argon2id into a 32-byte key.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	x := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return x
}

// Sealed is an encrypted text. Both fields are standard base64.
type Sealed struct {
	Data  string `json:"encryptedData"`
	Nonce string `json:"nonce"`
}

// Vault encrypts and decrypts text under one derived key. It is created at
// login and owned by that client session.
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives the vault key from password and salt. The intermediate key
// bytes are wiped once the cipher is set up.
func NewVault(password, salt []byte) (*Vault, error) {
	key := DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// EncryptText seals plaintext with a fresh random nonce.
func (v *Vault) EncryptText(plaintext string) (Sealed, error) {
	nonce := common.GenerateRandByteArray(v.aead.NonceSize())
	if nonce == nil {
		return Sealed{}, errors.New("nonce generation failed")
	}
	ciphertext := v.aead.Seal(nil, nonce, []byte(plaintext), nil)

	return Sealed{
		Data:  base64.StdEncoding.EncodeToString(ciphertext),
		Nonce: base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

func (v *Vault) DecryptText(s Sealed) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(s.Data)
	if err != nil {
		return "", ErrDecrypt
	}
	nonce, err := base64.StdEncoding.DecodeString(s.Nonce)
	if err != nil || len(nonce) != v.aead.NonceSize() {
		return "", ErrDecrypt
	}

	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
