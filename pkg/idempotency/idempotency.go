package idempotency

import (
	"net/http"
	"strings"
	"sync"
)

const Header = "Idempotency-Key"

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Cache remembers the first response body produced for an idempotency key
// so replays of the same checkout return the identical result instead of
// charging the customer twice.
type Cache struct {
	mu        sync.Mutex
	responses map[string][]byte
}

func NewCache() *Cache {
	return &Cache{responses: make(map[string][]byte)}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, ok := c.responses[key]
	return body, ok
}

func (c *Cache) Put(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[key] = body
}
