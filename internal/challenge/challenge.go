// Package challenge implements the secret/hash pair used to prove
// authorship of a message without an account. The client keeps the
// secret and submits only the hash at message creation; presenting the
// secret later authorizes an edit.
package challenge

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"io"
)

const secretBytes = 32

// Pair is a freshly generated secret and its SHA-512 hex digest.
type Pair struct {
	Secret string `json:"secret"`
	Hash   string `json:"hash"`
}

// Generate draws a random secret from r and returns it with its hash.
// A nil r falls back to crypto/rand.
func Generate(r io.Reader) (Pair, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Pair{}, err
	}
	secret := hex.EncodeToString(buf)
	return Pair{Secret: secret, Hash: Hash(secret)}, nil
}

// Hash returns the SHA-512 hex digest of secret.
func Hash(secret string) string {
	sum := sha512.Sum512([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether secret hashes to hash. The comparison is
// constant-time.
func Verify(secret, hash string) bool {
	computed := Hash(secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
