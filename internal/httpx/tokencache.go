package httpx

import "sync"

// TokenCache holds the single shared bearer token for the identity-management
// API. Multiple concurrent readers are permitted; a writer excludes all
// readers and writers for the duration of the write.
//
// No expiry is tracked. A stale token is only discovered when a downstream
// call fails authentication, which triggers the retry-with-refresh path in
// BearerRetryTransport.
type TokenCache struct {
	mu    sync.RWMutex
	token string
}

func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// Read returns the cached token, or the empty string when no authentication
// has happened yet.
func (c *TokenCache) Read() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *TokenCache) Write(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}
