// Package credential generates the opaque rotating tokens presented at scan
// time. Tokens are one-way digests, fixed length, and unguessable: brute-force
// or enumeration of the credential space is infeasible.
package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/sha3"
)

const nonceBytes = 16

// Generate derives a fresh credential from the identity id, a high-resolution
// timestamp and a random nonce, folded through SHA3-256. The nonce alone
// carries 128 bits of entropy, so two calls never collide in practice; callers
// still retry on a uniqueness violation rather than fail.
func Generate(identityID string) (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("credential nonce: %w", err)
	}

	h := sha3.New256()
	h.Write([]byte(identityID))
	h.Write(strconv.AppendInt(nil, time.Now().UnixNano(), 10))
	h.Write(nonce)

	return hex.EncodeToString(h.Sum(nil)), nil
}
