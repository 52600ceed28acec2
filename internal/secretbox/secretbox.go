package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// DecodeState tells apart the three outcomes of decoding legacy key
// material. The legacy format stored provider keys base64-encoded with no
// cipher; decoding it must not conflate "nothing stored" with "corrupt".
type DecodeState int

const (
	DecodeOK DecodeState = iota
	DecodeEmpty
	DecodeMalformed
)

// DecodeLegacy decodes a legacy base64-stored value. Read-only support for
// rows written before sealed storage existed; new values go through Seal.
func DecodeLegacy(s string) (string, DecodeState) {
	if s == "" {
		return "", DecodeEmpty
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", DecodeMalformed
	}
	return string(raw), DecodeOK
}

// EncodeLegacy produces the legacy representation. Kept only so tests and
// migrations can fabricate old-format rows.
func EncodeLegacy(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

var ErrBadKeySize = errors.New("secretbox: key must be 32 bytes")

// Seal encrypts plaintext with AES-256-GCM under key and returns a base64
// envelope of nonce || ciphertext.
func Seal(key []byte, plaintext string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Any tampering with the envelope fails authentication.
func Open(key []byte, sealed string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("secretbox: envelope is not base64: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("secretbox: envelope too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: open: %w", err)
	}
	return string(plaintext), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, ErrBadKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
