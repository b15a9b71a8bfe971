package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
)

// FieldCipher encrypts individual PII fields (address, contact) with
// AES-256-CBC under a fixed key/IV pair, matching the format already in
// the database. Ciphertexts are stored base64-encoded.
type FieldCipher struct {
	block cipher.Block
	iv    []byte
}

func NewFieldCipher(key, iv string) (*FieldCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("field key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("field iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, err
	}
	return &FieldCipher{block: block, iv: []byte(iv)}, nil
}

// EncryptField encrypts a field value. Empty values pass through unchanged.
func (c *FieldCipher) EncryptField(plaintext string) string {
	if plaintext == "" {
		return plaintext
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out)
}

// DecryptField decrypts a stored field value. Values that do not decode as
// ciphertext are returned unchanged: rows written before encryption was
// introduced hold plaintext, and those must keep reading correctly.
func (c *FieldCipher) DecryptField(stored string) string {
	if stored == "" {
		return stored
	}
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return stored
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)
	plain, ok := pkcs7Unpad(out, aes.BlockSize)
	if !ok {
		return stored
	}
	return string(plain)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
