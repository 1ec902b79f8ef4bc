package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// MaxHashSize is the maximum number of bytes hashed from a subject's JSON form.
const MaxHashSize = 1024 * 1024

// HashContent returns the hex-encoded SHA-256 of content, truncated to
// MaxHashSize bytes. Returns an empty string if content is empty.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	if len(content) > MaxHashSize {
		content = content[:MaxHashSize]
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashSubject hashes the JSON encoding of a subject. Map keys are sorted by
// encoding/json, so equal maps hash equally.
func HashSubject(subject any) (string, error) {
	if subject == nil {
		return "", nil
	}
	data, err := json.Marshal(subject)
	if err != nil {
		return "", err
	}
	return HashContent(data), nil
}
