package bridge

import "sync"

// SyncCache lembra os hashes já projetados, só em memória.
type SyncCache struct {
	mu     sync.Mutex
	hashes map[string]string
}

func NewSyncCache() *SyncCache {
	return &SyncCache{hashes: make(map[string]string)}
}

// Observe registra o hash e diz se ele é novo.
func (c *SyncCache) Observe(hash, leadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, seen := c.hashes[hash]
	c.hashes[hash] = leadID
	return !seen
}

func (c *SyncCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hashes)
}

func (c *SyncCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes = make(map[string]string)
}
