// Package tokenstore holds TokenStore implementations and the optional
// encryption layer applied to what they persist.
package tokenstore

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/natserract/sfclient/pkg/salesforce"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// Sealer encrypts a persisted token before it is written and decrypts it
// after it is read.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// SecretboxSealer seals with NaCl secretbox. Output is base64 text.
type SecretboxSealer struct {
	key [keySize]byte
}

func NewSecretboxSealer(key []byte) (*SecretboxSealer, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}
	s := &SecretboxSealer{}
	copy(s.key[:], key)
	return s, nil
}

func (s *SecretboxSealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], plaintext, &nonce, &s.key)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(box)))
	base64.StdEncoding.Encode(out, box)
	return out, nil
}

func (s *SecretboxSealer) Open(sealed []byte) ([]byte, error) {
	box := make([]byte, base64.StdEncoding.DecodedLen(len(sealed)))
	n, err := base64.StdEncoding.Decode(box, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed token: %w", err)
	}
	box = box[:n]

	if len(box) < nonceSize+secretbox.Overhead {
		return nil, errors.New("sealed token is too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	plaintext, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("failed to open sealed token: wrong key or corrupted data")
	}
	return plaintext, nil
}

// Encode renders token for storage, sealing it when sealer is non-nil.
func Encode(token *salesforce.AccessToken, sealer Sealer) ([]byte, error) {
	if token == nil {
		return nil, errors.New("access token is nil")
	}
	payload, err := token.ToJSON()
	if err != nil {
		return nil, err
	}
	if sealer == nil {
		return []byte(payload), nil
	}
	return sealer.Seal([]byte(payload))
}

// Decode is the inverse of Encode. Every failure is a *salesforce.DeserializationError.
func Decode(data []byte, sealer Sealer) (*salesforce.AccessToken, error) {
	if sealer != nil {
		opened, err := sealer.Open(data)
		if err != nil {
			return nil, &salesforce.DeserializationError{Source: "sealed access token", Err: err}
		}
		data = opened
	}
	return salesforce.TokenFromJSON(data)
}
