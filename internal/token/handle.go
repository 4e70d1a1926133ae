// Package token mints opaque download handles. A handle carries no client
// readable structure; it only resolves through its ledger entry, which keeps
// all state server-side and makes revocation a row delete away.
package token

import (
	"crypto/rand"
	"encoding/hex"
)

// HandleLen is the hex length of an issued handle.
const HandleLen = 64

// NewHandle returns a fresh cryptographically random handle.
func NewHandle() (string, error) {
	b := make([]byte, HandleLen/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
