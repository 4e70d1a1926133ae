// Package device derives stable fingerprints from client signals so one
// package can be bounded to a fixed number of devices.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/filemart/downloads/internal/model"
)

// FingerprintLen is the hex length of a truncated fingerprint digest.
const FingerprintLen = 32

// Fingerprint hashes (user-agent, accept-language, client-ip) into a
// truncated lowercase hex digest. Inputs are trimmed so proxy quirks in
// header whitespace do not mint a second device.
func Fingerprint(sig model.DeviceSignals) string {
	seed := strings.TrimSpace(sig.UserAgent) + "|" +
		strings.TrimSpace(sig.AcceptLanguage) + "|" +
		strings.TrimSpace(sig.IP)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:FingerprintLen]
}

// Normalize canonicalizes a caller-provided fingerprint for comparison.
func Normalize(fp string) string {
	return strings.ToLower(strings.TrimSpace(fp))
}

// Valid reports whether fp looks like a normalized fingerprint digest.
func Valid(fp string) bool {
	if len(fp) != FingerprintLen {
		return false
	}
	_, err := hex.DecodeString(fp)
	return err == nil
}
