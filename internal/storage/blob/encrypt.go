package blob

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	encryptionMetadataKey = "blob-encryption"
	encryptionNonceKey    = "blob-nonce"
	plainSizeKey          = "blob-plain-size"
	encryptionMethod      = "aes-gcm"
)

type encryptor struct {
	aead cipher.AEAD
}

func newEncryptor(raw string) (*encryptor, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("audio.encryption_key must be base64: %w", err)
	}
	switch len(decoded) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("audio.encryption_key must be 16/24/32 bytes after decoding")
	}
	block, err := aes.NewCipher(decoded)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &encryptor{aead: gcm}, nil
}

// encrypt seals the whole payload; the nonce is prepended to the ciphertext.
func (e *encryptor) encrypt(r io.Reader) (io.Reader, int64, map[string]string, error) {
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, nil, err
	}
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, 0, nil, err
	}
	payload := e.aead.Seal(append([]byte(nil), nonce...), nonce, plain, nil)
	meta := map[string]string{
		encryptionMetadataKey: encryptionMethod,
		encryptionNonceKey:    base64.StdEncoding.EncodeToString(nonce),
		plainSizeKey:          strconv.Itoa(len(plain)),
	}
	return bytes.NewReader(payload), int64(len(plain)), meta, nil
}

func (e *encryptor) decrypt(r io.Reader) (io.ReadCloser, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, 0, errors.New("encrypted payload too short")
	}
	plain, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, 0, fmt.Errorf("decrypt object: %w", err)
	}
	return io.NopCloser(bytes.NewReader(plain)), int64(len(plain)), nil
}
