package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintBytes keeps fingerprints short enough to read in a log line.
const fingerprintBytes = 12

// FingerprintToken identifies a bearer or refresh token in logs and limiter
// keys without holding the token itself.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:fingerprintBytes])
}
