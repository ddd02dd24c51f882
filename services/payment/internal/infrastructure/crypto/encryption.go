package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Suffixes of the keys a sealed field is stored under
const (
	CiphertextSuffix = "_ciphertext"
	IVSuffix         = "_iv"
	Last4Suffix      = "_last4"
)

// EncryptionService encrypts short secrets such as payout account numbers
type EncryptionService interface {
	Encrypt(plaintext string) (ciphertext, iv string, err error)
	Decrypt(ciphertext, iv string) (plaintext string, err error)
}

// AESEncryptionService is AES-256-GCM with a random nonce per value
type AESEncryptionService struct {
	key []byte
}

// NewAESEncryptionService parses a 64 hex character key
func NewAESEncryptionService(hexKey string) (*AESEncryptionService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.New("invalid encryption key format")
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes (64 hex chars)")
	}
	return &AESEncryptionService{key: key}, nil
}

func (s *AESEncryptionService) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *AESEncryptionService) Encrypt(plaintext string) (string, string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", "", err
	}

	ciphertext := gcm.Seal(nil, iv, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(iv),
		nil
}

func (s *AESEncryptionService) Decrypt(ciphertextB64, ivB64 string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", err
	}

	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", err
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// SealField replaces fields[name] with its ciphertext, nonce and last four
// characters. Missing or non-string fields are left alone.
func SealField(enc EncryptionService, fields map[string]interface{}, name string) error {
	value, ok := fields[name].(string)
	if !ok {
		return nil
	}

	ciphertext, iv, err := enc.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", name, err)
	}

	delete(fields, name)
	fields[name+CiphertextSuffix] = ciphertext
	fields[name+IVSuffix] = iv
	fields[name+Last4Suffix] = lastN(value, 4)
	return nil
}

// OpenField restores a field sealed by SealField
func OpenField(enc EncryptionService, fields map[string]interface{}, name string) error {
	ciphertext, ok := fields[name+CiphertextSuffix].(string)
	if !ok {
		return nil
	}
	iv, _ := fields[name+IVSuffix].(string)

	plaintext, err := enc.Decrypt(ciphertext, iv)
	if err != nil {
		return fmt.Errorf("failed to decrypt %s: %w", name, err)
	}

	delete(fields, name+CiphertextSuffix)
	delete(fields, name+IVSuffix)
	delete(fields, name+Last4Suffix)
	fields[name] = plaintext
	return nil
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
