package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// CodeChallengeMethod is the only challenge method sent.
	CodeChallengeMethod = "S256"

	// verifierLength is the number of random bytes, and therefore
	// characters, in a code verifier.
	verifierLength = 50

	verifierAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// randReader is swapped in tests.
var randReader io.Reader = rand.Reader

// CreateChallenge generates a fresh PKCE verifier and its S256 challenge.
//
// The verifier is 50 characters drawn from [0-9A-Za-z]; each random byte
// selects a character modulo the alphabet size. The challenge is the
// unpadded base64url SHA-256 digest of the verifier bytes.
func CreateChallenge() (*CodeChallenge, error) {
	buf := make([]byte, verifierLength)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	for i, b := range buf {
		buf[i] = verifierAlphabet[int(b)%len(verifierAlphabet)]
	}

	hash := sha256.Sum256(buf)

	return &CodeChallenge{
		Verifier:  string(buf),
		Challenge: base64.RawURLEncoding.EncodeToString(hash[:]),
	}, nil
}
