package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"sync"
)

// Basic checks HTTP basic credentials against one configured user.
//
// The digest of the last accepted password is cached; matching requests skip
// the argon2id key derivation.
type Basic struct {
	username string
	hash     string

	mu       sync.RWMutex
	accepted [sha256.Size]byte
	hasCache bool
}

// NewBasic validates hash and returns an authenticator for username.
func NewBasic(username, hash string) (*Basic, error) {
	if err := ValidateHash(hash); err != nil {
		return nil, err
	}
	return &Basic{username: username, hash: hash}, nil
}

// Check reports whether username and password match.
func (b *Basic) Check(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(b.username)) == 1

	digest := sha256.Sum256([]byte(password))
	b.mu.RLock()
	cached := b.hasCache && subtle.ConstantTimeCompare(digest[:], b.accepted[:]) == 1
	b.mu.RUnlock()
	if cached {
		return userOK
	}

	if VerifyPassword(b.hash, password) != nil {
		return false
	}
	b.mu.Lock()
	b.accepted, b.hasCache = digest, true
	b.mu.Unlock()
	return userOK
}
