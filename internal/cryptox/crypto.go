// Package cryptox hashes and verifies the 4-digit group PINs kept in the
// offline reference cache.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	pinTime    = 1
	pinMemory  = 16 * 1024
	pinThreads = 2
	pinKeyLen  = 32
)

// pinSalt derives a per-group salt. It is deterministic so that a full
// sync with unchanged remote data writes byte-identical rows.
func pinSalt(groupID string) []byte {
	sum := sha256.Sum256([]byte("inventaire/group-pin/" + groupID))
	return sum[:16]
}

// HashPIN returns the argon2id hash of pin for the given group.
// An empty pin yields a nil hash: such a group is not PIN-gated.
func HashPIN(groupID, pin string) []byte {
	if pin == "" {
		return nil
	}
	return argon2.IDKey([]byte(pin), pinSalt(groupID), pinTime, pinMemory, pinThreads, pinKeyLen)
}

// VerifyPIN reports whether candidate matches hash in constant time.
// A nil hash accepts any candidate.
func VerifyPIN(groupID, candidate string, hash []byte) bool {
	if len(hash) == 0 {
		return true
	}
	return subtle.ConstantTimeCompare(HashPIN(groupID, candidate), hash) == 1
}
