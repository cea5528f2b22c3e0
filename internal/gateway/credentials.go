package gateway

import (
	"sync"
	"time"
)

// Credential is an access token scoped to one character or corporation.
type Credential struct {
	OwnerID     int64
	Corporation bool
	Token       string
	ExpiresAt   time.Time
}

// CredentialCache holds gateway tokens in memory. Reads return copies so the
// lock is never held across a network call.
type CredentialCache struct {
	mu     sync.RWMutex
	tokens map[int64]Credential
}

func NewCredentialCache() *CredentialCache {
	return &CredentialCache{tokens: make(map[int64]Credential)}
}

func (c *CredentialCache) Put(cred Credential) {
	c.mu.Lock()
	c.tokens[cred.OwnerID] = cred
	c.mu.Unlock()
}

// Get returns the live token for the owner, or false when missing or expired.
func (c *CredentialCache) Get(ownerID int64, now time.Time) (Credential, bool) {
	c.mu.RLock()
	cred, ok := c.tokens[ownerID]
	c.mu.RUnlock()
	if !ok || (!cred.ExpiresAt.IsZero() && !cred.ExpiresAt.After(now)) {
		return Credential{}, false
	}
	return cred, true
}

func (c *CredentialCache) Delete(ownerID int64) {
	c.mu.Lock()
	delete(c.tokens, ownerID)
	c.mu.Unlock()
}

// Owners returns a snapshot of all cached owner ids.
func (c *CredentialCache) Owners() []int64 {
	c.mu.RLock()
	out := make([]int64, 0, len(c.tokens))
	for id := range c.tokens {
		out = append(out, id)
	}
	c.mu.RUnlock()
	return out
}
