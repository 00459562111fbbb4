package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var errSealed = errors.New("credential: sealed value is malformed or was sealed with another key")

// Sealer encrypts token values before they reach a storage backend.
type Sealer struct {
	key [32]byte
}

// NewSealer derives a secretbox key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("credential: storage secret is empty")
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("ecoai credential store v1"))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("credential: derive key: %w", err)
	}
	return s, nil
}

// Seal returns base64(nonce || box).
func (s *Sealer) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("credential: nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", errSealed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errSealed
	}
	return string(plain), nil
}
