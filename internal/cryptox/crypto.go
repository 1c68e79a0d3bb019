// Package cryptox implements the per-file encryption scheme and content
// addressing used by the sync engine.
//
// Every stored file gets a fresh random 32-byte key and 16-byte IV; the
// transmitted representation is "hex(iv):base64(ciphertext)" for encrypted
// files and plain base64 for files under the reserved Public path. The
// content address is computed over the transmitted representation, so
// re-encrypting identical plaintext yields a different address.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// GenerateKey returns a fresh random AES-256 key. Keys are never reused
// across files or across re-uploads of the same file.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating file key: %w", err)
	}
	return key, nil
}

// EncryptContent encrypts plaintext with AES-256-CBC under a fresh random IV
// and returns the transmitted representation "hex(iv):base64(ciphertext)".
//
// The IV is minted here so two calls with identical inputs produce different
// outputs (and therefore different content addresses).
func EncryptContent(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptContent reverses EncryptContent, returning the original plaintext.
func DecryptContent(content string, key []byte) ([]byte, error) {
	ivHex, ctBase64, ok := strings.Cut(content, ":")
	if !ok {
		return nil, fmt.Errorf("content has no iv prefix")
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("decoding iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ctBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a block multiple", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded, aes.BlockSize)
}

// EncodePublic returns the transmitted representation of an unencrypted
// (Public path) file.
func EncodePublic(plaintext []byte) string {
	return base64.StdEncoding.EncodeToString(plaintext)
}

// DecodePublic reverses EncodePublic.
func DecodePublic(content string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("decoding public content: %w", err)
	}
	return b, nil
}

// HashContent returns the hex SHA-256 content address of a transmitted
// representation.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append([]byte{}, b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return b[:len(b)-n], nil
}
