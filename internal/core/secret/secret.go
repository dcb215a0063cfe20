// Package secret generates and splices service secrets.
//
// This is part of the Functional Core - key material comes from the
// platform CSPRNG, everything else is pure string transformation. File
// I/O belongs to the shell adapters.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyBytes is the entropy of a generated key. Hex encoding doubles it on
// the wire, so callers see 64 characters.
const KeyBytes = 32

// GenerateKey returns a fresh key as lowercase hex. It fails only when the
// platform entropy source does.
func GenerateKey() (string, error) {
	buf := make([]byte, KeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Inject replaces every occurrence of placeholder in content with key and
// reports whether anything changed. Unchanged content means the placeholder
// was already provisioned away (or never present), which callers treat as
// success without a rewrite.
func Inject(content, placeholder, key string) (string, bool) {
	if !strings.Contains(content, placeholder) {
		return content, false
	}
	return strings.ReplaceAll(content, placeholder, key), true
}
