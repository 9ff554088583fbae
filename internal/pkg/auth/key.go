package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrKeyDisabled means no administrator key is configured.
	ErrKeyDisabled = errors.New("admin key is not configured")
	// ErrInvalidKey means presented key does not match.
	ErrInvalidKey = errors.New("invalid admin key")
)

// KeyVerifier checks keys presented to administrative endpoints.
type KeyVerifier interface {
	Verify(key string) error
}

// NewKeyVerifier picks verifier for configured key.
// Values in bcrypt format are compared as hashes, anything else as plain text.
func NewKeyVerifier(configured string) KeyVerifier {
	switch {
	case configured == "":
		return disabledVerifier{}
	case isBcryptHash(configured):
		return &BcryptVerifier{hash: []byte(configured)}
	default:
		return &PlainVerifier{key: []byte(configured)}
	}
}

func isBcryptHash(value string) bool {
	if _, err := bcrypt.Cost([]byte(value)); err != nil {
		return false
	}
	return strings.HasPrefix(value, "$2")
}

type disabledVerifier struct{}

func (disabledVerifier) Verify(string) error { return ErrKeyDisabled }

// PlainVerifier compares keys in constant time.
type PlainVerifier struct {
	key []byte
}

func (v *PlainVerifier) Verify(key string) error {
	if subtle.ConstantTimeCompare([]byte(key), v.key) != 1 {
		return ErrInvalidKey
	}
	return nil
}

// BcryptVerifier matches keys against bcrypt hash.
type BcryptVerifier struct {
	hash []byte
}

func (v *BcryptVerifier) Verify(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidKey
	}
	return nil
}
