// Package auth handles API key minting and verification.
//
// Keys look like af_1a2b3c4d_<secret>. The short public prefix is
// stored in clear for lookup; the full key is stored only as a bcrypt
// hash, so a database leak does not leak usable credentials.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	keyScheme    = "af_"
	prefixBytes  = 4
	secretBytes  = 24
	prefixLength = len(keyScheme) + prefixBytes*2
)

// ErrInvalidKey is returned when a presented key fails verification.
var ErrInvalidKey = errors.New("invalid api key")

// Mint generates a new API key. It returns the full key (shown to the
// operator exactly once), its public prefix, and the bcrypt hash to
// persist.
func Mint() (key, prefix string, hash []byte, err error) {
	buf := make([]byte, prefixBytes+secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", nil, fmt.Errorf("generate api key: %w", err)
	}
	prefix = keyScheme + hex.EncodeToString(buf[:prefixBytes])
	key = prefix + "_" + hex.EncodeToString(buf[prefixBytes:])

	hash, err = bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", nil, fmt.Errorf("hash api key: %w", err)
	}
	return key, prefix, hash, nil
}

// PrefixOf extracts the public lookup prefix from a presented key.
func PrefixOf(key string) (string, error) {
	if len(key) <= prefixLength || key[:len(keyScheme)] != keyScheme {
		return "", ErrInvalidKey
	}
	return key[:prefixLength], nil
}

// Verify compares a presented key against the stored bcrypt hash.
func Verify(hash []byte, key string) error {
	if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
		return ErrInvalidKey
	}
	return nil
}
